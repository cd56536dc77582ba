// Package watch refreshes a dataset annotation index on a cron schedule.
package watch

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/fastmal/roilabel/internal/annotation"
	"github.com/robfig/cron/v3"
)

// DefaultSchedule refreshes every five minutes
const DefaultSchedule = "*/5 * * * *"

// Refresher is satisfied by selection.Controller
type Refresher interface {
	Refresh(ctx context.Context, datasetID int64) (*annotation.Index, error)
}

// TickFunc observes the outcome of each scheduled refresh
type TickFunc func(idx *annotation.Index, err error)

// Watcher runs scheduled refreshes until its context is cancelled
type Watcher struct {
	schedule cron.Schedule
	spec     string
	r        Refresher
	logger   *slog.Logger

	now   func() time.Time
	after func(time.Duration) <-chan time.Time
}

// Parse accepts a standard 5-field cron expression or a descriptor such as
// "@hourly" or "@every 90s"
func Parse(spec string) (cron.Schedule, error) {
	spec = strings.TrimSpace(spec)
	if spec == "" {
		return nil, fmt.Errorf("empty refresh schedule")
	}
	parser := cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)
	sched, err := parser.Parse(spec)
	if err != nil {
		return nil, fmt.Errorf("invalid refresh schedule %q: %w", spec, err)
	}
	return sched, nil
}

// New creates a watcher for spec. An empty spec uses DefaultSchedule.
func New(spec string, r Refresher, logger *slog.Logger) (*Watcher, error) {
	if strings.TrimSpace(spec) == "" {
		spec = DefaultSchedule
	}
	sched, err := Parse(spec)
	if err != nil {
		return nil, err
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Watcher{
		schedule: sched,
		spec:     spec,
		r:        r,
		logger:   logger,
		now:      time.Now,
		after:    time.After,
	}, nil
}

// Run blocks, refreshing the current dataset at every scheduled time. A
// failed refresh is logged and the loop continues. Run returns nil when
// ctx is cancelled.
func (w *Watcher) Run(ctx context.Context, onTick TickFunc) error {
	w.logger.Info("Refresh scheduled", "cron", w.spec)

	for ctx.Err() == nil {
		now := w.now()
		next := w.schedule.Next(now)
		wait := next.Sub(now)
		w.logger.Debug("Next refresh", "at", next.Format("Mon Jan 2 15:04:05"), "in", wait.Round(time.Second))

		select {
		case <-ctx.Done():
			continue
		case <-w.after(wait):
		}

		idx, err := w.r.Refresh(ctx, 0)
		if err != nil {
			if ctx.Err() != nil {
				continue
			}
			w.logger.Error("Scheduled refresh failed", "err", err)
		} else {
			w.logger.Info("Scheduled refresh complete",
				"dataset_id", idx.DatasetID,
				"annotated", len(idx.ImagesWithAnyAnnotation()),
				"complete", len(idx.ImagesMarkedComplete()))
		}
		if onTick != nil {
			onTick(idx, err)
		}
	}

	w.logger.Info("Refresh schedule stopped")
	return nil
}
