package export

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/parquet-go/parquet-go"
)

// CountRow is one (image, label) cell of the count table
type CountRow struct {
	DatasetID  int64  `parquet:"dataset_id"`
	ImageID    int64  `parquet:"image_id"`
	LabelID    string `parquet:"label_id"`
	LabelName  string `parquet:"label_name"`
	Count      int64  `parquet:"count"`
	Completion string `parquet:"completion"`
}

// Rows expands the report into one row per image and label
func Rows(report Report) []CountRow {
	rows := make([]CountRow, 0, len(report.Images)*len(report.Labels))
	for _, img := range report.Images {
		for i, l := range report.Labels {
			var n int
			if i < len(img.Counts) {
				n = img.Counts[i]
			}
			rows = append(rows, CountRow{
				DatasetID:  report.DatasetID,
				ImageID:    img.ImageID,
				LabelID:    l.ID,
				LabelName:  l.Name,
				Count:      int64(n),
				Completion: img.Completion,
			})
		}
	}
	return rows
}

// SaveParquet writes the report rows to path
func SaveParquet(path string, report Report) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create parquet file: %w", err)
	}
	defer f.Close()

	rows := Rows(report)
	w := parquet.NewGenericWriter[CountRow](f)
	if _, err := w.Write(rows); err != nil {
		return fmt.Errorf("failed to write parquet rows: %w", err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("failed to close parquet writer: %w", err)
	}

	slog.Info("Annotation counts saved", "path", path, "rows", len(rows))
	return nil
}

// LoadParquet reads count rows written by SaveParquet
func LoadParquet(path string) ([]CountRow, error) {
	slog.Debug("Opening Parquet file", "path", path)

	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open parquet file: %w", err)
	}
	defer file.Close()

	info, err := file.Stat()
	if err != nil {
		return nil, fmt.Errorf("failed to stat file: %w", err)
	}

	pf, err := parquet.OpenFile(file, info.Size())
	if err != nil {
		return nil, fmt.Errorf("failed to open parquet: %w", err)
	}

	slog.Debug("Parquet file opened", "num_rows", pf.NumRows(), "num_row_groups", len(pf.RowGroups()))

	reader := parquet.NewGenericReader[CountRow](pf)
	defer reader.Close()

	var rows []CountRow
	batch := make([]CountRow, 128)
	for {
		n, err := reader.Read(batch)
		rows = append(rows, batch[:n]...)
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read parquet rows: %w", err)
		}
	}

	return rows, nil
}
