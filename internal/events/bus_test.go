package events

import "testing"

func TestBusPublishOrder(t *testing.T) {
	b := NewBus(nil)
	var got []string

	b.On(LabelSelected, func(e Event, payload any) {
		p := payload.(SelectedPayload)
		got = append(got, "first:"+p.ShapeKind)
	})
	b.On(LabelSelected, func(e Event, payload any) {
		got = append(got, "second")
	})
	b.On(LabelDeselected, func(e Event, payload any) {
		got = append(got, "deselected")
	})

	b.Publish(LabelSelected, SelectedPayload{ShapeKind: "rectangle"})

	if len(got) != 2 || got[0] != "first:rectangle" || got[1] != "second" {
		t.Errorf("Expected [first:rectangle second], got %v", got)
	}
}

func TestBusOnAll(t *testing.T) {
	b := NewBus(nil)
	var seen []Event
	b.OnAll(func(e Event, payload any) { seen = append(seen, e) })

	b.Publish(CountUpdated, CountPayload{DatasetID: 1})
	b.Publish(ThumbnailRefresh, nil)

	if len(seen) != 2 || seen[0] != CountUpdated || seen[1] != ThumbnailRefresh {
		t.Errorf("Expected [count thumbnail], got %v", seen)
	}
}

func TestRecorder(t *testing.T) {
	var r Recorder
	r.Publish(LabelSelected, nil)
	r.Publish(LabelDeselected, nil)

	names := r.Names()
	if len(names) != 2 || names[1] != LabelDeselected {
		t.Errorf("Expected two events ending in deselected, got %v", names)
	}

	r.Reset()
	if len(r.Names()) != 0 {
		t.Errorf("Expected reset to clear events")
	}
}

func TestRecorderLimit(t *testing.T) {
	r := Recorder{Limit: 2}
	r.Publish(LabelSelected, nil)
	r.Publish(CountUpdated, CountPayload{DatasetID: 3})
	r.Publish(ThumbnailRefresh, nil)

	snap := r.Snapshot()
	if len(snap) != 2 || snap[0].Event != CountUpdated || snap[1].Event != ThumbnailRefresh {
		t.Errorf("Expected the two most recent events, got %v", snap)
	}

	snap[0].Event = LabelDeselected
	if r.Names()[0] != CountUpdated {
		t.Errorf("Expected Snapshot to return a copy")
	}
}
