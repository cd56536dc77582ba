package annotation

import (
	"bytes"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/fastmal/roilabel/internal/models"
)

// Completion is the badge state of an image
type Completion int

const (
	None Completion = iota
	InProgress
	Complete
)

func (c Completion) String() string {
	switch c {
	case Complete:
		return "complete"
	case InProgress:
		return "in_progress"
	default:
		return "none"
	}
}

// Counts maps a label id to a number of shapes or images
type Counts map[string]int

// Get returns the count for label, zero when absent
func (c Counts) Get(label string) int {
	if c == nil {
		return 0
	}
	n, ok := c[label]
	if !ok {
		return 0
	}
	return n
}

// Index is an immutable snapshot of dataset-wide annotation statistics.
// It is never patched; a refresh builds a new one.
type Index struct {
	DatasetID             int64
	ImageIDs              []int64
	LabelIDs              []string
	PerLabelDatasetCount  Counts
	PerLabelPerImageCount map[int64]Counts
	ImagesPerLabel        Counts

	imagesWithAnyAnnotation map[int64]struct{}
	imagesMarkedComplete    map[int64]struct{}
	inProgress              []int64
}

// Empty returns an index with no annotations, used before the first refresh
func Empty(datasetID int64, labelIDs []string) *Index {
	return &Index{
		DatasetID:               datasetID,
		LabelIDs:                labelIDs,
		PerLabelDatasetCount:    Counts{},
		PerLabelPerImageCount:   map[int64]Counts{},
		ImagesPerLabel:          Counts{},
		imagesWithAnyAnnotation: map[int64]struct{}{},
		imagesMarkedComplete:    map[int64]struct{}{},
	}
}

// Build derives an index from a dataset annotation response. labelIDs are
// the non-off primary labels in document order.
func Build(datasetID int64, data *models.DatasetAnnotationData, labelIDs []string) (*Index, error) {
	idx := Empty(datasetID, labelIDs)
	idx.ImageIDs = append([]int64(nil), data.ImageIDs...)

	for label, n := range data.ROITypeCount {
		idx.PerLabelDatasetCount[label] = n
	}
	for label, n := range data.ImagesPerROI {
		idx.ImagesPerLabel[label] = n
	}

	for key, perLabel := range data.ImagesWithROIs {
		imageID, err := parseImageKey(key)
		if err != nil {
			return nil, err
		}
		counts := make(Counts, len(perLabel))
		for label, n := range perLabel {
			counts[label] = n
		}
		idx.PerLabelPerImageCount[imageID] = counts
		idx.imagesWithAnyAnnotation[imageID] = struct{}{}
	}

	for key, value := range data.ImagesROIComplete {
		imageID, err := parseImageKey(key)
		if err != nil {
			return nil, err
		}
		// presence marks completion; only an explicit false clears it
		if bytes.Equal(bytes.TrimSpace(value), []byte("false")) {
			continue
		}
		idx.imagesMarkedComplete[imageID] = struct{}{}
	}

	for imageID := range idx.imagesWithAnyAnnotation {
		if _, done := idx.imagesMarkedComplete[imageID]; !done {
			idx.inProgress = append(idx.inProgress, imageID)
		}
	}
	sort.Slice(idx.inProgress, func(i, j int) bool { return idx.inProgress[i] < idx.inProgress[j] })

	return idx, nil
}

func parseImageKey(key string) (int64, error) {
	id, err := strconv.ParseInt(strings.TrimSpace(key), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid image id %q: %w", key, err)
	}
	return id, nil
}

// CountsFor returns one count per label in LabelIDs for the image. Unknown
// images yield zeros.
func (idx *Index) CountsFor(imageID int64) []int {
	perImage := idx.PerLabelPerImageCount[imageID]
	out := make([]int, len(idx.LabelIDs))
	for i, label := range idx.LabelIDs {
		out[i] = perImage.Get(label)
	}
	return out
}

// CompletionIndicator reports complete before in-progress; completion does
// not depend on the image having annotations.
func (idx *Index) CompletionIndicator(imageID int64) Completion {
	if _, ok := idx.imagesMarkedComplete[imageID]; ok {
		return Complete
	}
	if _, ok := idx.imagesWithAnyAnnotation[imageID]; ok {
		return InProgress
	}
	return None
}

// HasAnnotation reports whether the image has any shape
func (idx *Index) HasAnnotation(imageID int64) bool {
	_, ok := idx.imagesWithAnyAnnotation[imageID]
	return ok
}

// IsComplete reports whether the image carries the completion tag
func (idx *Index) IsComplete(imageID int64) bool {
	_, ok := idx.imagesMarkedComplete[imageID]
	return ok
}

// ImagesWithAnyAnnotation returns the annotated image ids in ascending order
func (idx *Index) ImagesWithAnyAnnotation() []int64 {
	return sortedKeys(idx.imagesWithAnyAnnotation)
}

// ImagesMarkedComplete returns the completed image ids in ascending order
func (idx *Index) ImagesMarkedComplete() []int64 {
	return sortedKeys(idx.imagesMarkedComplete)
}

// ImagesAnnotationInProgress is the annotated images minus the completed ones
func (idx *Index) ImagesAnnotationInProgress() []int64 {
	return append([]int64(nil), idx.inProgress...)
}

// Summary renders "name = image/dataset; " for every label, using
// imageCounts for the image side.
func (idx *Index) Summary(imageCounts Counts, names map[string]string) string {
	var b strings.Builder
	for _, label := range idx.LabelIDs {
		name := names[label]
		if name == "" {
			name = label
		}
		fmt.Fprintf(&b, "%s = %d/%d; ", name, imageCounts.Get(label), idx.PerLabelDatasetCount.Get(label))
	}
	return b.String()
}

func sortedKeys(set map[int64]struct{}) []int64 {
	ids := make([]int64, 0, len(set))
	for id := range set {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// TallyShapes counts live shapes per label text. A non-zero ownerID keeps
// only that user's shapes.
func TallyShapes(shapes []models.Shape, ownerID int64) Counts {
	counts := Counts{}
	for _, s := range shapes {
		if ownerID != 0 && s.OwnerID != ownerID {
			continue
		}
		counts[s.Text]++
	}
	return counts
}
