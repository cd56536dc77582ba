package export

import (
	"bytes"
	"encoding/json"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"github.com/fastmal/roilabel/internal/annotation"
	"github.com/fastmal/roilabel/internal/labels"
	"github.com/fastmal/roilabel/internal/models"
)

func testReport(t *testing.T) Report {
	t.Helper()
	catalog, err := labels.LoadDefs([]models.RawLabel{
		{ID: "A", Name: "Parasite"},
		{ID: "B", Name: "White cell"},
	})
	if err != nil {
		t.Fatalf("LoadDefs failed: %v", err)
	}

	var data models.DatasetAnnotationData
	raw := `{
		"image_ids": [5, 7, 9],
		"roi_type_count": {"A": 3, "B": 1},
		"images_per_roi": {"A": 1, "B": 1},
		"images_with_rois": {"5": {"A": 3, "B": 1}},
		"images_roi_complete": {"9": 0}
	}`
	if err := json.Unmarshal([]byte(raw), &data); err != nil {
		t.Fatalf("decode: %v", err)
	}
	idx, err := annotation.Build(42, &data, catalog.CountLabelIDs())
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	return BuildReport(idx, catalog)
}

func TestBuildReport(t *testing.T) {
	report := testReport(t)

	if report.DatasetID != 42 {
		t.Errorf("Expected dataset 42, got %d", report.DatasetID)
	}
	if len(report.Labels) != 2 || report.Labels[0].Name != "Parasite" || report.Labels[0].Shapes != 3 {
		t.Errorf("Unexpected labels: %+v", report.Labels)
	}
	if report.Labels[0].Colour == "" {
		t.Errorf("Expected label colour to be filled")
	}

	expected := []ImageCounts{
		{ImageID: 5, Completion: "in_progress", Counts: []int{3, 1}},
		{ImageID: 7, Completion: "none", Counts: []int{0, 0}},
		{ImageID: 9, Completion: "complete", Counts: []int{0, 0}},
	}
	if !reflect.DeepEqual(report.Images, expected) {
		t.Errorf("Expected images %+v, got %+v", expected, report.Images)
	}
	if !reflect.DeepEqual(report.InProgress, []int64{5}) || !reflect.DeepEqual(report.Complete, []int64{9}) {
		t.Errorf("Unexpected status lists: %v %v", report.InProgress, report.Complete)
	}
}

func TestYAMLFile(t *testing.T) {
	report := testReport(t)
	path := filepath.Join(t.TempDir(), "reports", "dataset-42.yaml")

	if err := SaveYAML(path, report); err != nil {
		t.Fatalf("SaveYAML failed: %v", err)
	}
	loaded, err := LoadYAML(path)
	if err != nil {
		t.Fatalf("LoadYAML failed: %v", err)
	}
	if !reflect.DeepEqual(loaded, report) {
		t.Errorf("Expected loaded report to match\nwant %+v\ngot  %+v", report, loaded)
	}
}

func TestParquetFile(t *testing.T) {
	report := testReport(t)
	path := filepath.Join(t.TempDir(), "counts.parquet")

	if err := SaveParquet(path, report); err != nil {
		t.Fatalf("SaveParquet failed: %v", err)
	}
	rows, err := LoadParquet(path)
	if err != nil {
		t.Fatalf("LoadParquet failed: %v", err)
	}

	if len(rows) != 6 {
		t.Fatalf("Expected 3 images x 2 labels rows, got %d", len(rows))
	}
	first := CountRow{DatasetID: 42, ImageID: 5, LabelID: "A", LabelName: "Parasite", Count: 3, Completion: "in_progress"}
	if rows[0] != first {
		t.Errorf("Expected first row %+v, got %+v", first, rows[0])
	}
	if rows[5].ImageID != 9 || rows[5].Completion != "complete" {
		t.Errorf("Unexpected last row %+v", rows[5])
	}
}

func TestWriteText(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteText(&buf, testReport(t)); err != nil {
		t.Fatalf("WriteText failed: %v", err)
	}

	out := buf.String()
	for _, want := range []string{"Dataset 42", "Parasite", "in_progress", "complete"} {
		if !strings.Contains(out, want) {
			t.Errorf("Expected output to contain %q:\n%s", want, out)
		}
	}
}

func TestWriteRows(t *testing.T) {
	var buf bytes.Buffer
	rows := Rows(testReport(t))
	if err := WriteRows(&buf, rows); err != nil {
		t.Fatalf("WriteRows failed: %v", err)
	}

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != len(rows)+1 {
		t.Fatalf("Expected header plus %d rows, got %d lines", len(rows), len(lines))
	}
	if !strings.Contains(lines[1], "Parasite") || !strings.Contains(lines[1], "in_progress") {
		t.Errorf("Unexpected first row %q", lines[1])
	}
}
