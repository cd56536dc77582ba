package watch

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/fastmal/roilabel/internal/annotation"
)

type countingRefresher struct {
	calls int
	fail  bool
}

func (r *countingRefresher) Refresh(ctx context.Context, datasetID int64) (*annotation.Index, error) {
	r.calls++
	if datasetID != 0 {
		return nil, errors.New("expected current dataset")
	}
	if r.fail {
		return nil, errors.New("backend down")
	}
	return annotation.Empty(7, nil), nil
}

func immediate(time.Duration) <-chan time.Time {
	ch := make(chan time.Time, 1)
	ch <- time.Now()
	return ch
}

func TestParse(t *testing.T) {
	tests := []struct {
		spec    string
		wantErr bool
	}{
		{"*/5 * * * *", false},
		{"0 9 * * 1-5", false},
		{"@hourly", false},
		{"@every 90s", false},
		{"", true},
		{"* * *", true},
		{"61 * * * *", true},
	}

	for _, tt := range tests {
		t.Run(tt.spec, func(t *testing.T) {
			_, err := Parse(tt.spec)
			if (err != nil) != tt.wantErr {
				t.Errorf("Parse(%q) error = %v, wantErr %v", tt.spec, err, tt.wantErr)
			}
		})
	}
}

func TestNewDefaultSchedule(t *testing.T) {
	w, err := New("", &countingRefresher{}, nil)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	if w.spec != DefaultSchedule {
		t.Errorf("Expected default schedule, got %q", w.spec)
	}

	base := time.Date(2026, 1, 1, 10, 2, 0, 0, time.UTC)
	if next := w.schedule.Next(base); !next.Equal(time.Date(2026, 1, 1, 10, 5, 0, 0, time.UTC)) {
		t.Errorf("Expected next run at 10:05, got %v", next)
	}
}

func TestRunRefreshesUntilCancelled(t *testing.T) {
	tests := []struct {
		name string
		fail bool
	}{
		{name: "successful refreshes", fail: false},
		{name: "failures keep the loop alive", fail: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := &countingRefresher{fail: tt.fail}
			w, err := New("@every 1m", r, nil)
			if err != nil {
				t.Fatalf("New failed: %v", err)
			}
			w.after = immediate

			ctx, cancel := context.WithCancel(context.Background())
			defer cancel()

			ticks := 0
			errs := 0
			err = w.Run(ctx, func(idx *annotation.Index, err error) {
				ticks++
				if err != nil {
					errs++
				}
				if ticks == 3 {
					cancel()
				}
			})
			if err != nil {
				t.Fatalf("Run returned %v", err)
			}
			if r.calls != 3 {
				t.Errorf("Expected 3 refreshes, got %d", r.calls)
			}
			if tt.fail && errs != 3 {
				t.Errorf("Expected 3 failed ticks, got %d", errs)
			}
			if !tt.fail && errs != 0 {
				t.Errorf("Expected no failed ticks, got %d", errs)
			}
		})
	}
}

func TestRunStopsBeforeFirstTick(t *testing.T) {
	r := &countingRefresher{}
	w, err := New("@every 1h", r, nil)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if err := w.Run(ctx, nil); err != nil {
		t.Errorf("Expected nil on cancellation, got %v", err)
	}
	if r.calls != 0 {
		t.Errorf("Expected no refresh, got %d", r.calls)
	}
}
