package shapes

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/fastmal/roilabel/internal/models"
	"github.com/google/uuid"
)

// ErrConflict is returned when a provisional shape already carries labels
var ErrConflict = errors.New("shape already has recorded labels")

// Pair maps a persisted shape id back to the provisional id it was drawn with
type Pair struct {
	PermanentID   int64  `json:"permanent_id"`
	ProvisionalID string `json:"provisional_id"`
}

// NewProvisionalID returns a client-side id for a shape not yet saved
func NewProvisionalID() string {
	return fmt.Sprintf("shape_%s", uuid.New().String())
}

// LabelMap carries secondary label choices from the moment a shape is
// drawn until the backend has assigned it a permanent id.
type LabelMap struct {
	entries map[string][]string
	mu      sync.Mutex
	logger  *slog.Logger
}

// NewLabelMap creates an empty map. A nil logger uses slog.Default().
func NewLabelMap(logger *slog.Logger) *LabelMap {
	if logger == nil {
		logger = slog.Default()
	}
	return &LabelMap{
		entries: make(map[string][]string),
		logger:  logger,
	}
}

// RecordSelection stores labelIDs for a provisional shape. The first write
// wins; an empty set records nothing.
func (m *LabelMap) RecordSelection(provisionalID string, labelIDs []string) error {
	if len(labelIDs) == 0 {
		return nil
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if existing, ok := m.entries[provisionalID]; ok {
		m.logger.Warn("Shape labels already recorded, keeping first selection",
			"provisional_id", provisionalID,
			"existing", strings.Join(existing, ","),
			"rejected", strings.Join(labelIDs, ","))
		return fmt.Errorf("%w: %s", ErrConflict, provisionalID)
	}

	m.entries[provisionalID] = append([]string(nil), labelIDs...)
	return nil
}

// Resolve emits a link for every pair whose provisional id has an entry.
// Entries stay recorded until Clear.
func (m *LabelMap) Resolve(pairs []Pair) []models.ROILabelLink {
	m.mu.Lock()
	defer m.mu.Unlock()

	var links []models.ROILabelLink
	for _, p := range pairs {
		ids, ok := m.entries[p.ProvisionalID]
		if !ok {
			continue
		}
		links = append(links, models.ROILabelLink{
			ROIID:  p.PermanentID,
			Labels: strings.Join(ids, ","),
		})
	}
	return links
}

// Clear removes the entries of the given pairs
func (m *LabelMap) Clear(pairs []Pair) {
	m.mu.Lock()
	defer m.mu.Unlock()

	cleared := 0
	for _, p := range pairs {
		if _, ok := m.entries[p.ProvisionalID]; ok {
			delete(m.entries, p.ProvisionalID)
			cleared++
		}
	}
	if cleared > 0 {
		m.logger.Debug("Cleared shape labels", "cleared", cleared, "pending", len(m.entries))
	}
}

// ResolveAndClear emits a link for every pair whose provisional id has an
// entry and removes those entries. Pairs without an entry are skipped.
func (m *LabelMap) ResolveAndClear(pairs []Pair) []models.ROILabelLink {
	links := m.Resolve(pairs)
	m.Clear(pairs)
	return links
}

// Pending returns the labels recorded for a provisional shape
func (m *LabelMap) Pending(provisionalID string) ([]string, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	ids, ok := m.entries[provisionalID]
	if !ok {
		return nil, false
	}
	return append([]string(nil), ids...), true
}

// Len is the number of shapes awaiting a permanent id
func (m *LabelMap) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.entries)
}
