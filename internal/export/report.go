package export

import (
	"time"

	"github.com/fastmal/roilabel/internal/annotation"
	"github.com/fastmal/roilabel/internal/labels"
)

// Report is the serialisable view of one annotation index
type Report struct {
	DatasetID   int64         `yaml:"dataset_id"`
	GeneratedAt string        `yaml:"generated_at"`
	Labels      []LabelTotals `yaml:"labels"`
	Images      []ImageCounts `yaml:"images"`
	InProgress  []int64       `yaml:"in_progress,omitempty"`
	Complete    []int64       `yaml:"complete,omitempty"`
}

// LabelTotals are the dataset-wide numbers of one primary label
type LabelTotals struct {
	ID     string `yaml:"id"`
	Name   string `yaml:"name"`
	Colour string `yaml:"colour"`
	Shapes int    `yaml:"shapes"`
	Images int    `yaml:"images"`
}

// ImageCounts is one image row with counts in label order
type ImageCounts struct {
	ImageID    int64  `yaml:"image_id"`
	Completion string `yaml:"completion"`
	Counts     []int  `yaml:"counts,flow"`
}

// BuildReport flattens idx using the label names and colours of catalog
func BuildReport(idx *annotation.Index, catalog *labels.Catalog) Report {
	report := Report{
		DatasetID:   idx.DatasetID,
		GeneratedAt: time.Now().UTC().Format(time.RFC3339),
		Labels:      make([]LabelTotals, 0, len(idx.LabelIDs)),
		Images:      make([]ImageCounts, 0, len(idx.ImageIDs)),
		InProgress:  idx.ImagesAnnotationInProgress(),
		Complete:    idx.ImagesMarkedComplete(),
	}

	for _, id := range idx.LabelIDs {
		totals := LabelTotals{
			ID:     id,
			Name:   id,
			Shapes: idx.PerLabelDatasetCount.Get(id),
			Images: idx.ImagesPerLabel.Get(id),
		}
		if l, ok := catalog.FindByID(id); ok {
			totals.Name = l.Name
			totals.Colour = l.Colour.String()
		}
		report.Labels = append(report.Labels, totals)
	}

	for _, imageID := range idx.ImageIDs {
		report.Images = append(report.Images, ImageCounts{
			ImageID:    imageID,
			Completion: idx.CompletionIndicator(imageID).String(),
			Counts:     idx.CountsFor(imageID),
		})
	}

	return report
}
