package export

import (
	"fmt"
	"io"
	"strings"
)

// WriteText prints the report as a plain table, one image per line
func WriteText(w io.Writer, report Report) error {
	var b strings.Builder

	fmt.Fprintf(&b, "Dataset %d\n", report.DatasetID)
	for _, l := range report.Labels {
		fmt.Fprintf(&b, "  %-24s %6d shapes %6d images\n", l.Name, l.Shapes, l.Images)
	}

	b.WriteString("\nimage       status      ")
	for _, l := range report.Labels {
		fmt.Fprintf(&b, " %8.8s", l.Name)
	}
	b.WriteString("\n")
	for _, img := range report.Images {
		fmt.Fprintf(&b, "%-11d %-11s", img.ImageID, img.Completion)
		for _, n := range img.Counts {
			fmt.Fprintf(&b, " %8d", n)
		}
		b.WriteString("\n")
	}

	_, err := io.WriteString(w, b.String())
	return err
}

// WriteRows prints count rows read back from a parquet export
func WriteRows(w io.Writer, rows []CountRow) error {
	var b strings.Builder
	fmt.Fprintf(&b, "%-10s %-11s %-24s %6s %s\n", "dataset", "image", "label", "count", "status")
	for _, r := range rows {
		fmt.Fprintf(&b, "%-10d %-11d %-24s %6d %s\n", r.DatasetID, r.ImageID, r.LabelName, r.Count, r.Completion)
	}
	_, err := io.WriteString(w, b.String())
	return err
}
