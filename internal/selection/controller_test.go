package selection

import (
	"errors"
	"reflect"
	"strings"
	"testing"

	"github.com/fastmal/roilabel/internal/annotation"
	"github.com/fastmal/roilabel/internal/events"
	"github.com/fastmal/roilabel/internal/labels"
	"github.com/fastmal/roilabel/internal/models"
)

type recordingTree struct {
	ops []string
}

func (t *recordingTree) DeselectAll()         { t.ops = nil }
func (t *recordingTree) SelectNode(id string) { t.ops = append(t.ops, "select:"+id) }
func (t *recordingTree) OpenNode(id string)   { t.ops = append(t.ops, "open:"+id) }

func testCatalog(t *testing.T) *labels.Catalog {
	t.Helper()
	c, err := labels.LoadDefs([]models.RawLabel{
		{ID: "A", Name: "A", Children: []models.RawLabel{{ID: "A1", Name: "A1"}, {ID: "A2", Name: "A2"}}},
		{ID: "B", Name: "B", Children: []models.RawLabel{{ID: "B1", Name: "B1"}}},
	})
	if err != nil {
		t.Fatalf("LoadDefs failed: %v", err)
	}
	return c
}

func newTestController(t *testing.T) (*Controller, *events.Recorder, *recordingTree) {
	t.Helper()
	catalog := testCatalog(t)
	rec := &events.Recorder{}
	tree := &recordingTree{}
	c := New(Deps{
		Catalog:   catalog,
		Index:     annotation.NewStore(1, catalog.CountLabelIDs(), nil),
		Publisher: rec,
		Tree:      tree,
	})
	return c, rec, tree
}

func mustClick(t *testing.T, c *Controller, id string) ShapeDefaults {
	t.Helper()
	d, err := c.OnTreeNodeClicked(id)
	if err != nil {
		t.Fatalf("click on %s failed: %v", id, err)
	}
	return d
}

func TestScenarioToggleSecondaries(t *testing.T) {
	c, _, _ := newTestController(t)

	mustClick(t, c, "A")
	mustClick(t, c, "A1")
	mustClick(t, c, "A2")
	d := mustClick(t, c, "A1")

	state := c.State()
	if !reflect.DeepEqual(state.Secondaries, []string{"A2"}) {
		t.Errorf("Expected secondaries [A2], got %v", state.Secondaries)
	}
	if d.Text != "A" {
		t.Errorf("Expected drawing text A, got %q", d.Text)
	}
	if state.Mode() != PrimaryWithSecondaries {
		t.Errorf("Expected mode %s, got %s", PrimaryWithSecondaries, state.Mode())
	}
}

func TestSelectPrimaryClearsSecondaries(t *testing.T) {
	c, _, _ := newTestController(t)

	mustClick(t, c, "A")
	mustClick(t, c, "A1")
	mustClick(t, c, "B")

	state := c.State()
	if state.Primary != "B" || len(state.Secondaries) != 0 {
		t.Errorf("Expected B with no secondaries, got %+v", state)
	}

	mustClick(t, c, "A")
	if len(c.State().Secondaries) != 0 {
		t.Errorf("Expected reselecting A to start with no secondaries, got %v", c.State().Secondaries)
	}
}

func TestSelectPrimaryDefaultsAndEvent(t *testing.T) {
	c, rec, _ := newTestController(t)
	a, _ := c.Catalog().FindByID("A")

	d := mustClick(t, c, "A")

	if d.Text != "A" || d.ShapeToDraw != DefaultShapeKind {
		t.Errorf("Unexpected defaults: %+v", d)
	}
	if d.StrokeColor != a.Colour.SignedInteger() {
		t.Errorf("Expected stroke colour %d, got %d", a.Colour.SignedInteger(), d.StrokeColor)
	}
	if c.Defaults() != d {
		t.Errorf("Expected Defaults to match returned value")
	}

	if len(rec.Events) != 1 || rec.Events[0].Event != events.LabelSelected {
		t.Fatalf("Expected one selected event, got %v", rec.Names())
	}
	payload := rec.Events[0].Payload.(events.SelectedPayload)
	if payload.ShapeKind != DefaultShapeKind {
		t.Errorf("Expected shape kind %s, got %s", DefaultShapeKind, payload.ShapeKind)
	}
}

func TestSelectOffDisarms(t *testing.T) {
	c, rec, _ := newTestController(t)
	mustClick(t, c, "A")
	mustClick(t, c, "A1")
	rec.Reset()

	d := mustClick(t, c, labels.OffLabelID)

	if d.Text != "" || d.ShapeToDraw != "" {
		t.Errorf("Expected disarmed defaults, got %+v", d)
	}
	if c.State().Mode() != Off || len(c.State().Secondaries) != 0 {
		t.Errorf("Expected off with no secondaries, got %+v", c.State())
	}
	if names := rec.Names(); len(names) != 1 || names[0] != events.LabelDeselected {
		t.Errorf("Expected one deselected event, got %v", names)
	}
}

func TestToggleSecondaryRejectedWhenParentInactive(t *testing.T) {
	tests := []struct {
		name    string
		clicks  []string
		toggled string
	}{
		{name: "nothing selected", clicks: nil, toggled: "A1"},
		{name: "other primary active", clicks: []string{"B"}, toggled: "A1"},
		{name: "other primary with secondary", clicks: []string{"B", "B1"}, toggled: "A2"},
		{name: "off selected", clicks: []string{"A", labels.OffLabelID}, toggled: "A1"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, rec, tree := newTestController(t)
			for _, id := range tt.clicks {
				mustClick(t, c, id)
			}
			before := c.State()
			beforeDefaults := c.Defaults()
			beforeTree := append([]string(nil), tree.ops...)
			rec.Reset()

			_, err := c.OnTreeNodeClicked(tt.toggled)
			if !errors.Is(err, ErrParentInactive) {
				t.Errorf("Expected ErrParentInactive, got %v", err)
			}
			if !reflect.DeepEqual(c.State(), before) {
				t.Errorf("Expected state unchanged, was %+v now %+v", before, c.State())
			}
			if c.Defaults() != beforeDefaults {
				t.Errorf("Expected defaults unchanged")
			}
			if len(rec.Events) != 0 {
				t.Errorf("Expected no events, got %v", rec.Names())
			}
			if !reflect.DeepEqual(tree.ops, beforeTree) {
				t.Errorf("Expected tree untouched, was %v now %v", beforeTree, tree.ops)
			}
		})
	}
}

func TestToggleSecondaryRoundTrip(t *testing.T) {
	c, rec, _ := newTestController(t)
	mustClick(t, c, "A")
	mustClick(t, c, "A2")
	before := c.State()
	rec.Reset()

	mustClick(t, c, "A1")
	mustClick(t, c, "A1")

	if !reflect.DeepEqual(c.State(), before) {
		t.Errorf("Expected round trip to restore %+v, got %+v", before, c.State())
	}
	names := rec.Names()
	if len(names) != 2 || names[0] != events.LabelSelected || names[1] != events.LabelSelected {
		t.Errorf("Expected two selected events, got %v", names)
	}
}

func TestClickUnknownNode(t *testing.T) {
	c, rec, _ := newTestController(t)
	mustClick(t, c, "A")
	before := c.State()
	rec.Reset()

	if _, err := c.OnTreeNodeClicked("Z"); !errors.Is(err, ErrUnknownNode) {
		t.Errorf("Expected ErrUnknownNode, got %v", err)
	}
	if !reflect.DeepEqual(c.State(), before) || len(rec.Events) != 0 {
		t.Errorf("Expected no change and no events")
	}
}

func TestLevelMismatch(t *testing.T) {
	c, _, _ := newTestController(t)

	if _, err := c.SelectPrimary("A1"); !errors.Is(err, ErrNotPrimary) {
		t.Errorf("Expected ErrNotPrimary, got %v", err)
	}
	if _, err := c.ToggleSecondary("A"); !errors.Is(err, ErrNotSecondary) {
		t.Errorf("Expected ErrNotSecondary, got %v", err)
	}
}

func TestTreeMirrorsState(t *testing.T) {
	c, _, tree := newTestController(t)

	mustClick(t, c, "A")
	mustClick(t, c, "A2")
	mustClick(t, c, "A1")
	expected := []string{"select:A", "open:A", "select:A1", "select:A2"}
	if !reflect.DeepEqual(tree.ops, expected) {
		t.Errorf("Expected tree %v, got %v", expected, tree.ops)
	}

	mustClick(t, c, labels.OffLabelID)
	if !reflect.DeepEqual(tree.ops, []string{"select:" + labels.OffLabelID}) {
		t.Errorf("Expected only off selected, got %v", tree.ops)
	}
}

func TestSetActiveImageResets(t *testing.T) {
	c, rec, _ := newTestController(t)
	c.SetActiveImage(5)
	mustClick(t, c, "A")
	mustClick(t, c, "A1")
	if err := c.DrawingFinished("p1"); err != nil {
		t.Fatalf("DrawingFinished failed: %v", err)
	}
	rec.Reset()

	d := c.SetActiveImage(6)

	if c.State().Mode() != Off || d.ShapeToDraw != "" {
		t.Errorf("Expected reset to off, got %+v / %+v", c.State(), d)
	}
	if c.ActiveImage() != 6 {
		t.Errorf("Expected active image 6, got %d", c.ActiveImage())
	}
	if ids, ok := c.Shapes().Pending("p1"); !ok || ids[0] != "A1" {
		t.Errorf("Expected shape labels to survive image switch, got %v", ids)
	}
	if names := rec.Names(); len(names) != 1 || names[0] != events.LabelDeselected {
		t.Errorf("Expected deselected event, got %v", names)
	}

	rec.Reset()
	c.SetActiveImage(6)
	if len(rec.Events) != 0 {
		t.Errorf("Expected no events when image does not change")
	}
}

func TestSetShapeKind(t *testing.T) {
	c, rec, _ := newTestController(t)
	c.SetShapeKind("ellipse")
	d := mustClick(t, c, "B")

	if d.ShapeToDraw != "ellipse" {
		t.Errorf("Expected ellipse armed, got %q", d.ShapeToDraw)
	}
	if p := rec.Events[len(rec.Events)-1].Payload.(events.SelectedPayload); p.ShapeKind != "ellipse" {
		t.Errorf("Expected ellipse in payload, got %q", p.ShapeKind)
	}

	c.SetShapeKind("polygon")
	if c.Defaults().ShapeToDraw != "polygon" {
		t.Errorf("Expected armed shape to follow tool change, got %q", c.Defaults().ShapeToDraw)
	}
}

func TestDrawingFinished(t *testing.T) {
	c, _, _ := newTestController(t)

	if err := c.DrawingFinished("off-shape"); err != nil {
		t.Fatalf("DrawingFinished failed: %v", err)
	}
	mustClick(t, c, "A")
	if err := c.DrawingFinished("plain"); err != nil {
		t.Fatalf("DrawingFinished failed: %v", err)
	}
	if c.Shapes().Len() != 0 {
		t.Errorf("Expected no entries for shapes without secondaries, got %d", c.Shapes().Len())
	}

	mustClick(t, c, "A2")
	mustClick(t, c, "A1")
	if err := c.DrawingFinished("p1"); err != nil {
		t.Fatalf("DrawingFinished failed: %v", err)
	}
	ids, _ := c.Shapes().Pending("p1")
	if strings.Join(ids, ",") != "A1,A2" {
		t.Errorf("Expected A1,A2 in document order, got %v", ids)
	}
}
