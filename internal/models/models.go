package models

import "encoding/json"

// RawLabel is a project label definition as delivered by the backend
type RawLabel struct {
	ID       string     `json:"id" yaml:"id"`
	Name     string     `json:"name" yaml:"name"`
	Children []RawLabel `json:"children,omitempty" yaml:"children,omitempty"`
}

// DatasetAnnotationData is the payload of the dataset annotation endpoint.
// Image ids arrive as numbers in image_ids but as string keys in the maps.
type DatasetAnnotationData struct {
	ProjectROILabels  json.RawMessage            `json:"project_roi_labels"`
	ROITypeCount      map[string]int             `json:"roi_type_count"`
	ImagesPerROI      map[string]int             `json:"images_per_roi"`
	ImagesWithROIs    map[string]map[string]int  `json:"images_with_rois"`
	ImagesROIComplete map[string]json.RawMessage `json:"images_roi_complete"`
	ImageIDs          []int64                    `json:"image_ids"`
	ExecutionTime     float64                    `json:"execution_time,omitempty"`
	Error             string                     `json:"error,omitempty"`
}

// UserInfo describes the logged in user
type UserInfo struct {
	ID        int64  `json:"id"`
	Name      string `json:"name"`
	FullName  string `json:"fullname"`
	CurrentID int64  `json:"current_id"`
	Error     string `json:"error,omitempty"`
}

// ROILabelLink ties a persisted ROI to its comma-joined secondary labels
type ROILabelLink struct {
	ROIID  int64  `json:"roi_id"`
	Labels string `json:"labels"`
}

// Shape is the subset of a viewer shape needed to tally labels
type Shape struct {
	ID      int64  `json:"id"`
	Text    string `json:"text"`
	OwnerID int64  `json:"owner_id"`
}

// ShapeAnnotation is a single keyed numeric value attached to a shape
type ShapeAnnotation struct {
	ShapeID int64   `json:"shape_id"`
	Key     string  `json:"key"`
	Value   float64 `json:"value"`
}
