package annotation

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/fastmal/roilabel/internal/models"
)

var (
	// ErrStale marks a response for a dataset that is no longer the one
	// most recently requested. The response is discarded.
	ErrStale = errors.New("stale dataset refresh discarded")

	ErrNoDataset = errors.New("no dataset to refresh")
)

// Fetcher retrieves dataset annotation data from the backend
type Fetcher interface {
	DatasetAnnotationData(ctx context.Context, datasetID int64) (*models.DatasetAnnotationData, error)
}

// Store holds the current Index behind a single atomic pointer. Readers
// call Current each time they need the index and never keep it across a
// refresh.
type Store struct {
	current  atomic.Pointer[Index]
	wanted   atomic.Int64
	labelIDs []string
	logger   *slog.Logger

	mu      sync.Mutex
	lastErr error
}

// NewStore creates a store holding an empty index for datasetID
func NewStore(datasetID int64, labelIDs []string, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Store{
		labelIDs: labelIDs,
		logger:   logger,
	}
	s.current.Store(Empty(datasetID, labelIDs))
	s.wanted.Store(datasetID)
	return s
}

// Current returns the latest committed index
func (s *Store) Current() *Index {
	return s.current.Load()
}

// LastError returns the error of the most recent failed refresh, or nil
// once a refresh succeeds.
func (s *Store) LastError() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastErr
}

// Refresh fetches dataset annotation data and replaces the index. A zero
// datasetID refreshes the current dataset. On failure the previous index
// stays in place and the error is returned.
func (s *Store) Refresh(ctx context.Context, f Fetcher, datasetID int64) (*Index, error) {
	if datasetID == 0 {
		datasetID = s.Current().DatasetID
	}
	if datasetID == 0 {
		return nil, ErrNoDataset
	}

	s.wanted.Store(datasetID)
	s.logger.Debug("Refreshing annotation index", "dataset_id", datasetID)

	data, err := f.DatasetAnnotationData(ctx, datasetID)
	if err != nil && s.wanted.Load() != datasetID {
		s.logger.Debug("Ignoring failure of stale refresh", "dataset_id", datasetID, "err", err)
		return nil, ErrStale
	}
	if err != nil {
		err = fmt.Errorf("failed to refresh dataset %d: %w", datasetID, err)
		s.recordError(err)
		s.logger.Error("Annotation refresh failed, keeping previous index", "dataset_id", datasetID, "err", err)
		return nil, err
	}

	idx, err := Build(datasetID, data, s.labelIDs)
	if err != nil {
		err = fmt.Errorf("failed to build index for dataset %d: %w", datasetID, err)
		s.recordError(err)
		s.logger.Error("Annotation refresh failed, keeping previous index", "dataset_id", datasetID, "err", err)
		return nil, err
	}

	return s.commit(idx)
}

// Commit installs a prebuilt index, subject to the same staleness check as
// Refresh.
func (s *Store) Commit(idx *Index) (*Index, error) {
	return s.commit(idx)
}

func (s *Store) commit(idx *Index) (*Index, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if wanted := s.wanted.Load(); wanted != idx.DatasetID {
		s.logger.Debug("Discarding stale annotation index", "dataset_id", idx.DatasetID, "wanted", wanted)
		return nil, ErrStale
	}

	s.current.Store(idx)
	s.lastErr = nil
	s.logger.Info("Annotation index updated",
		"dataset_id", idx.DatasetID,
		"images", len(idx.ImageIDs),
		"annotated", len(idx.imagesWithAnyAnnotation),
		"complete", len(idx.imagesMarkedComplete))
	return idx, nil
}

func (s *Store) recordError(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastErr = err
}
