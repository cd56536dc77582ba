package shapes

import (
	"errors"
	"strings"
	"testing"
)

func TestRecordSelectionEmptyCreatesNothing(t *testing.T) {
	m := NewLabelMap(nil)

	if err := m.RecordSelection("p1", nil); err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if err := m.RecordSelection("p2", []string{}); err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if m.Len() != 0 {
		t.Errorf("Expected no entries, got %d", m.Len())
	}
}

func TestRecordSelectionFirstWriteWins(t *testing.T) {
	m := NewLabelMap(nil)

	if err := m.RecordSelection("p1", []string{"A1"}); err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	err := m.RecordSelection("p1", []string{"A2"})
	if !errors.Is(err, ErrConflict) {
		t.Errorf("Expected ErrConflict, got %v", err)
	}

	ids, ok := m.Pending("p1")
	if !ok || len(ids) != 1 || ids[0] != "A1" {
		t.Errorf("Expected first selection [A1] to survive, got %v", ids)
	}
}

func TestRecordSelectionCopiesInput(t *testing.T) {
	m := NewLabelMap(nil)
	labels := []string{"A1", "A2"}
	if err := m.RecordSelection("p1", labels); err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	labels[0] = "changed"

	ids, _ := m.Pending("p1")
	if ids[0] != "A1" {
		t.Errorf("Expected stored labels to be independent of caller slice, got %v", ids)
	}
}

func TestResolveAndClear(t *testing.T) {
	m := NewLabelMap(nil)
	_ = m.RecordSelection("p1", []string{"A1", "A2"})
	_ = m.RecordSelection("p3", []string{"B1"})

	links := m.ResolveAndClear([]Pair{
		{PermanentID: 101, ProvisionalID: "p1"},
		{PermanentID: 102, ProvisionalID: "p2"},
		{PermanentID: 103, ProvisionalID: "p3"},
	})

	if len(links) != 2 {
		t.Fatalf("Expected 2 links, got %d", len(links))
	}
	if links[0].ROIID != 101 || links[0].Labels != "A1,A2" {
		t.Errorf("Expected {101 A1,A2}, got %+v", links[0])
	}
	if links[1].ROIID != 103 || links[1].Labels != "B1" {
		t.Errorf("Expected {103 B1}, got %+v", links[1])
	}
	for _, l := range links {
		if l.ROIID == 102 {
			t.Errorf("Expected no link for shape without labels")
		}
	}

	if m.Len() != 0 {
		t.Errorf("Expected resolved entries to be cleared, %d left", m.Len())
	}
	if again := m.ResolveAndClear([]Pair{{PermanentID: 101, ProvisionalID: "p1"}}); len(again) != 0 {
		t.Errorf("Expected second resolve to emit nothing, got %v", again)
	}
}

func TestResolveKeepsEntriesUntilClear(t *testing.T) {
	m := NewLabelMap(nil)
	_ = m.RecordSelection("p1", []string{"A1"})
	pairs := []Pair{{PermanentID: 101, ProvisionalID: "p1"}}

	first := m.Resolve(pairs)
	second := m.Resolve(pairs)
	if len(first) != 1 || len(second) != 1 || first[0] != second[0] {
		t.Fatalf("Expected repeated resolve to yield the same link, got %v and %v", first, second)
	}
	if m.Len() != 1 {
		t.Errorf("Expected entry to stay recorded, %d left", m.Len())
	}

	m.Clear(pairs)
	if m.Len() != 0 {
		t.Errorf("Expected entry to be cleared, %d left", m.Len())
	}
	if links := m.Resolve(pairs); len(links) != 0 {
		t.Errorf("Expected nothing after clear, got %v", links)
	}
}

func TestNewProvisionalID(t *testing.T) {
	a, b := NewProvisionalID(), NewProvisionalID()
	if a == b {
		t.Errorf("Expected unique ids, got %s twice", a)
	}
	if !strings.HasPrefix(a, "shape_") {
		t.Errorf("Expected shape_ prefix, got %s", a)
	}
}
