package selection

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/fastmal/roilabel/internal/annotation"
	"github.com/fastmal/roilabel/internal/events"
	"github.com/fastmal/roilabel/internal/labels"
	"github.com/fastmal/roilabel/internal/models"
	"github.com/fastmal/roilabel/internal/shapes"
)

// UserSource is implemented by gateways that can identify the current user
type UserSource interface {
	UserInfo(ctx context.Context) (*models.UserInfo, error)
}

// Open loads a dataset session: one annotation data request provides both
// the label catalog and the first index.
func Open(ctx context.Context, gw Gateway, pub events.Publisher, tree TreeView, datasetID int64, logger *slog.Logger) (*Controller, error) {
	if logger == nil {
		logger = slog.Default()
	}

	data, err := gw.DatasetAnnotationData(ctx, datasetID)
	if err != nil {
		return nil, fmt.Errorf("failed to open dataset %d: %w", datasetID, err)
	}

	catalog, err := labels.Load(data.ProjectROILabels)
	if err != nil {
		return nil, fmt.Errorf("failed to load labels of dataset %d: %w", datasetID, err)
	}

	store := annotation.NewStore(datasetID, catalog.CountLabelIDs(), logger)
	idx, err := annotation.Build(datasetID, data, catalog.CountLabelIDs())
	if err != nil {
		return nil, fmt.Errorf("failed to index dataset %d: %w", datasetID, err)
	}
	if _, err := store.Commit(idx); err != nil {
		return nil, err
	}

	c := New(Deps{
		Catalog:   catalog,
		Index:     store,
		Shapes:    shapes.NewLabelMap(logger),
		Publisher: pub,
		Tree:      tree,
		Gateway:   gw,
		Logger:    logger,
	})

	if users, ok := gw.(UserSource); ok {
		c.loadUser(ctx, users)
	}

	logger.Info("Dataset session opened",
		"dataset_id", datasetID,
		"labels", catalog.Len()-1,
		"images", len(idx.ImageIDs))
	c.pub.Publish(events.CountUpdated, events.CountPayload{DatasetID: datasetID})

	return c, nil
}

// loadUser enables owner filtering. Failure leaves it disabled.
func (c *Controller) loadUser(ctx context.Context, users UserSource) {
	user, err := users.UserInfo(ctx)
	if err != nil {
		c.logger.Warn("User info unavailable, user filtering disabled", "err", err)
		return
	}
	c.ownerID.Store(user.ID)
	c.logger.Debug("User filtering enabled", "user_id", user.ID, "user", user.Name)
}

// OwnerFilter is the user whose shapes are counted, zero when filtering is
// disabled
func (c *Controller) OwnerFilter() int64 {
	return c.ownerID.Load()
}

// DrawingFinished captures the active secondary labels for a freshly drawn
// shape
func (c *Controller) DrawingFinished(provisionalID string) error {
	state := c.State()
	if state.Primary == "" {
		return nil
	}
	return c.shapes.RecordSelection(provisionalID, state.Secondaries)
}

// ShapesPersisted links recorded secondary labels to the permanent ROI ids,
// then refreshes the index. The returned links are the ones sent. Recorded
// labels are kept when linking fails so the same pairs can be retried.
func (c *Controller) ShapesPersisted(ctx context.Context, pairs []shapes.Pair) ([]models.ROILabelLink, error) {
	links := c.shapes.Resolve(pairs)
	if len(links) > 0 {
		if err := c.gateway().LinkLabelsToROIs(ctx, links); err != nil {
			c.logger.Error("Failed to link labels to ROIs", "links", len(links), "err", err)
			return links, err
		}
		c.shapes.Clear(pairs)
		c.pub.Publish(events.CommentUpdated, links)
	}

	if _, err := c.Refresh(ctx, 0); err != nil {
		return links, err
	}
	c.pub.Publish(events.ThumbnailRefresh, nil)
	return links, nil
}

// SetCompletion toggles the completion tag of an image and refreshes the
// index on success
func (c *Controller) SetCompletion(ctx context.Context, imageID int64, state bool) error {
	if err := c.gateway().SetCompletionTag(ctx, imageID, state); err != nil {
		c.logger.Error("Failed to set completion tag", "image_id", imageID, "state", state, "err", err)
		return err
	}

	if _, err := c.Refresh(ctx, 0); err != nil {
		return err
	}
	c.pub.Publish(events.ThumbnailRefresh, nil)
	return nil
}

// Refresh replaces the annotation index. A zero datasetID refreshes the
// current dataset. A response overtaken by a request for another dataset
// is dropped without error and without an event.
func (c *Controller) Refresh(ctx context.Context, datasetID int64) (*annotation.Index, error) {
	idx, err := c.store.Refresh(ctx, c.gateway(), datasetID)
	if errors.Is(err, annotation.ErrStale) {
		return c.store.Current(), nil
	}
	if err != nil {
		return nil, err
	}

	c.pub.Publish(events.CountUpdated, events.CountPayload{DatasetID: idx.DatasetID})
	return idx, nil
}

// RefreshAsync runs Refresh in the background and reports through done,
// which may be nil
func (c *Controller) RefreshAsync(ctx context.Context, datasetID int64, done func(*annotation.Index, error)) {
	go func() {
		idx, err := c.Refresh(ctx, datasetID)
		if err != nil {
			c.logger.Error("Background refresh failed", "dataset_id", datasetID, "err", err)
		}
		if done != nil {
			done(idx, err)
		}
	}()
}

// ImageSummary renders the per-label "image/dataset" line for an image. Live
// shapes are tallied when given, otherwise the index counts are used.
func (c *Controller) ImageSummary(imageID int64, live []models.Shape) string {
	idx := c.store.Current()
	counts := idx.PerLabelPerImageCount[imageID]
	if live != nil {
		counts = annotation.TallyShapes(live, c.OwnerFilter())
	}
	return idx.Summary(counts, c.catalog.Names())
}

func (c *Controller) gateway() Gateway {
	if c.gw == nil {
		return offlineGateway{}
	}
	return c.gw
}

// ErrOffline is returned by backend operations of a controller built
// without a gateway
var ErrOffline = errors.New("no backend gateway configured")

type offlineGateway struct{}

func (offlineGateway) DatasetAnnotationData(context.Context, int64) (*models.DatasetAnnotationData, error) {
	return nil, ErrOffline
}

func (offlineGateway) SetCompletionTag(context.Context, int64, bool) error {
	return ErrOffline
}

func (offlineGateway) LinkLabelsToROIs(context.Context, []models.ROILabelLink) error {
	return ErrOffline
}

// LastRefreshError is the error of the most recent failed refresh, nil once
// a refresh succeeds
func (c *Controller) LastRefreshError() error {
	return c.store.LastError()
}
