package script

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/fastmal/roilabel/internal/models"
	"github.com/fastmal/roilabel/internal/selection"
)

type stubGateway struct {
	links    []models.ROILabelLink
	complete map[int64]bool
}

func (g *stubGateway) DatasetAnnotationData(ctx context.Context, datasetID int64) (*models.DatasetAnnotationData, error) {
	data := &models.DatasetAnnotationData{
		ProjectROILabels: json.RawMessage(`[
			{"id": "A", "name": "Parasite", "children": [{"id": "A1", "name": "Ring"}]},
			{"id": "B", "name": "White cell", "children": [{"id": "B1", "name": "Neutrophil"}]}
		]`),
		ImageIDs:          []int64{5, 6},
		ROITypeCount:      map[string]int{"A": 1},
		ImagesWithROIs:    map[string]map[string]int{"5": {"A": 1}},
		ImagesROIComplete: map[string]json.RawMessage{},
	}
	if g.complete[6] {
		data.ImagesROIComplete["6"] = json.RawMessage("0")
	}
	return data, nil
}

func (g *stubGateway) SetCompletionTag(ctx context.Context, imageID int64, state bool) error {
	if g.complete == nil {
		g.complete = map[int64]bool{}
	}
	g.complete[imageID] = state
	return nil
}

func (g *stubGateway) LinkLabelsToROIs(ctx context.Context, links []models.ROILabelLink) error {
	g.links = append(g.links, links...)
	return nil
}

func newRunner(t *testing.T) (*Runner, *stubGateway, *bytes.Buffer) {
	t.Helper()
	gw := &stubGateway{}
	c, err := selection.Open(context.Background(), gw, nil, nil, 1, nil)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	var out bytes.Buffer
	return NewRunner(c, &out), gw, &out
}

func TestRunScript(t *testing.T) {
	r, gw, out := newRunner(t)

	script := `
# annotate image 5
image 5
click A
click A1
draw
click B1
draw p2
persist 900 901=p2
complete 6
counts 5
status
`
	if err := r.Run(context.Background(), strings.NewReader(script)); err != nil {
		t.Fatalf("Run failed: %v\noutput:\n%s", err, out.String())
	}

	if len(gw.links) != 2 || gw.links[0].ROIID != 900 || gw.links[0].Labels != "A1" {
		t.Errorf("Unexpected links: %+v", gw.links)
	}
	if !gw.complete[6] {
		t.Errorf("Expected image 6 to be tagged complete")
	}

	text := out.String()
	for _, want := range []string{
		"rejected: parent label is not active",
		"linked roi 900 -> A1",
		"image 6 complete",
		"Parasite = 1/1; White cell = 0/0; ",
	} {
		if !strings.Contains(text, want) {
			t.Errorf("Expected output to contain %q:\n%s", want, text)
		}
	}
}

func TestExecErrors(t *testing.T) {
	tests := []struct {
		name string
		line string
	}{
		{name: "unknown command", line: "zoom 3"},
		{name: "missing image id", line: "image"},
		{name: "bad image id", line: "counts x"},
		{name: "persist without drawing", line: "persist 900"},
		{name: "bad completion state", line: "complete 5 maybe"},
		{name: "click without label", line: "click"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, _, _ := newRunner(t)
			if err := r.Exec(context.Background(), tt.line); err == nil {
				t.Errorf("Expected error for %q", tt.line)
			}
		})
	}
}

func TestRunReportsLineNumber(t *testing.T) {
	r, _, _ := newRunner(t)

	err := r.Run(context.Background(), strings.NewReader("status\n\nbogus\n"))
	if err == nil || !strings.Contains(err.Error(), "line 3") {
		t.Errorf("Expected error on line 3, got %v", err)
	}
}
