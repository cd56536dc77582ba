package labels

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/fastmal/roilabel/internal/models"
)

// OffLabelID is the reserved id of the synthetic "Off" label. Selecting it
// disarms the drawing tool.
const OffLabelID = "FASTMAL:ERROR_SELECTION_ROI!"

const offLabelName = "Off"

var (
	ErrNotSequence = errors.New("label definitions are not a sequence")
	ErrTooDeep     = errors.New("label tree deeper than two levels")
	ErrDuplicateID = errors.New("duplicate label id")
	ErrEmptyID     = errors.New("label id is empty")
	ErrReservedID  = errors.New("label id is reserved")
)

// Label is a node of the two-level label tree
type Label struct {
	ID       string
	Name     string
	Colour   Colour
	ParentID string
	Children []*Label
}

// Level is 1 for primary labels (including off) and 2 for secondaries
func (l *Label) Level() int {
	if l.ParentID == "" {
		return 1
	}
	return 2
}

// IsOff reports whether l is the synthetic off label
func (l *Label) IsOff() bool {
	return l.ID == OffLabelID
}

// Catalog is the immutable label tree of one dataset session
type Catalog struct {
	labels []*Label
	byID   map[string]*Label
}

// Load decodes raw project label definitions and builds the catalog.
// The input must be a JSON array.
func Load(raw json.RawMessage) (*Catalog, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || trimmed[0] != '[' {
		slog.Warn("Rejecting label definitions", "err", ErrNotSequence)
		return nil, ErrNotSequence
	}

	var defs []models.RawLabel
	if err := json.Unmarshal(trimmed, &defs); err != nil {
		return nil, fmt.Errorf("failed to decode label definitions: %w", err)
	}

	return LoadDefs(defs)
}

// LoadDefs builds the catalog from decoded definitions. The off label is
// prepended and primary labels get palette colours by position.
func LoadDefs(defs []models.RawLabel) (*Catalog, error) {
	off := &Label{ID: OffLabelID, Name: offLabelName, Colour: paletteColour(0)}
	c := &Catalog{
		labels: make([]*Label, 0, len(defs)+1),
		byID:   map[string]*Label{OffLabelID: off},
	}
	c.labels = append(c.labels, off)

	for i, def := range defs {
		primary := &Label{ID: def.ID, Name: def.Name, Colour: paletteColour(i + 1)}
		if err := c.add(primary); err != nil {
			return nil, err
		}

		for _, childDef := range def.Children {
			if len(childDef.Children) > 0 {
				return nil, fmt.Errorf("%w: %s", ErrTooDeep, childDef.ID)
			}
			child := &Label{
				ID:       childDef.ID,
				Name:     childDef.Name,
				Colour:   primary.Colour,
				ParentID: primary.ID,
			}
			if err := c.add(child); err != nil {
				return nil, err
			}
			primary.Children = append(primary.Children, child)
		}

		c.labels = append(c.labels, primary)
	}

	slog.Debug("Label catalog loaded", "primaries", len(c.labels)-1, "labels", len(c.byID))

	return c, nil
}

func (c *Catalog) add(l *Label) error {
	switch {
	case l.ID == "":
		return fmt.Errorf("%w (name %q)", ErrEmptyID, l.Name)
	case l.ID == OffLabelID:
		return fmt.Errorf("%w: %s", ErrReservedID, l.ID)
	}
	if _, exists := c.byID[l.ID]; exists {
		return fmt.Errorf("%w: %s", ErrDuplicateID, l.ID)
	}
	c.byID[l.ID] = l
	return nil
}

// FindByID looks up a primary or secondary label
func (c *Catalog) FindByID(id string) (*Label, bool) {
	l, ok := c.byID[id]
	return l, ok
}

// Labels returns the top level of the tree, off label first
func (c *Catalog) Labels() []*Label {
	return c.labels
}

// Len is the number of top-level labels including off
func (c *Catalog) Len() int {
	return len(c.labels)
}

// Off returns the synthetic off label
func (c *Catalog) Off() *Label {
	return c.labels[0]
}

// CountLabelIDs returns the ids of the non-off primary labels in document
// order. Per-image count vectors follow this order.
func (c *Catalog) CountLabelIDs() []string {
	ids := make([]string, 0, len(c.labels)-1)
	for _, l := range c.labels[1:] {
		ids = append(ids, l.ID)
	}
	return ids
}

// Names maps label ids to display names
func (c *Catalog) Names() map[string]string {
	names := make(map[string]string, len(c.byID))
	for id, l := range c.byID {
		names[id] = l.Name
	}
	return names
}

// OrderChildren returns the members of set that are children of parentID, in
// document order.
func (c *Catalog) OrderChildren(parentID string, set map[string]struct{}) []string {
	parent, ok := c.byID[parentID]
	if !ok {
		return nil
	}
	var ordered []string
	for _, child := range parent.Children {
		if _, ok := set[child.ID]; ok {
			ordered = append(ordered, child.ID)
		}
	}
	return ordered
}
