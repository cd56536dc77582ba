package selection

import "github.com/fastmal/roilabel/internal/labels"

// DefaultShapeKind is armed on the first primary selection
const DefaultShapeKind = "rectangle"

// Mode is the state machine position
type Mode int

const (
	Off Mode = iota
	PrimarySelected
	PrimaryWithSecondaries
)

func (m Mode) String() string {
	switch m {
	case PrimarySelected:
		return "primary"
	case PrimaryWithSecondaries:
		return "primary+secondaries"
	default:
		return "off"
	}
}

// SelectionState is the active primary label and its active secondaries.
// Primary is empty while the off label is selected.
type SelectionState struct {
	Primary     string   `json:"primary"`
	Secondaries []string `json:"secondaries"`
}

// Mode derives the state machine position
func (s SelectionState) Mode() Mode {
	switch {
	case s.Primary == "":
		return Off
	case len(s.Secondaries) == 0:
		return PrimarySelected
	default:
		return PrimaryWithSecondaries
	}
}

// ShapeDefaults is what the drawing tool reads after each transition.
// ShapeToDraw is empty when the tool must disarm.
type ShapeDefaults struct {
	Text        string `json:"text"`
	StrokeColor int32  `json:"stroke_color"`
	ShapeToDraw string `json:"shape_to_draw"`
}

// TreeView is the label picker widget. It only renders what the controller
// tells it and is never read back.
type TreeView interface {
	DeselectAll()
	SelectNode(id string)
	OpenNode(id string)
}

type noopTree struct{}

func (noopTree) DeselectAll()      {}
func (noopTree) SelectNode(string) {}
func (noopTree) OpenNode(string)   {}

// syncTree mirrors state onto the widget: everything deselected, then the
// nodes implied by state selected, with the primary opened if it has
// children.
func syncTree(tree TreeView, catalog *labels.Catalog, state SelectionState) {
	tree.DeselectAll()
	if state.Primary == "" {
		tree.SelectNode(labels.OffLabelID)
		return
	}
	tree.SelectNode(state.Primary)
	if primary, ok := catalog.FindByID(state.Primary); ok && len(primary.Children) > 0 {
		tree.OpenNode(state.Primary)
	}
	for _, id := range state.Secondaries {
		tree.SelectNode(id)
	}
}
