package cmd

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/fastmal/roilabel/internal/export"
	"github.com/spf13/cobra"
)

func newStatsCmd(opts *rootOptions) *cobra.Command {
	var (
		datasetID int64
		imageID   int64
		format    string
		output    string
		input     string
	)

	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Show or export per-label annotation counts of a dataset",
		Example: `  # Table of every image
  roilabel stats --dataset 1201

  # Count line of one image
  roilabel stats --dataset 1201 --image 88410

  # Export for analysis
  roilabel stats --dataset 1201 --format parquet --output counts.parquet
  roilabel stats --dataset 1201 --format yaml --output reports/1201.yaml

  # Print a saved export without contacting the server
  roilabel stats --input reports/1201.yaml`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if input != "" {
				return printSaved(cmd.OutOrStdout(), input)
			}

			controller, err := opts.openSession(cmd.Context(), datasetID, nil)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()

			if imageID > 0 {
				idx := controller.Index()
				fmt.Fprintf(out, "Image %d: %s\n", imageID, idx.CompletionIndicator(imageID))
				fmt.Fprintln(out, controller.ImageSummary(imageID, nil))
				return nil
			}

			report := export.BuildReport(controller.Index(), controller.Catalog())
			switch format {
			case "text":
				return export.WriteText(out, report)
			case "yaml":
				if output == "" {
					return export.WriteYAML(out, report)
				}
				return export.SaveYAML(output, report)
			case "parquet":
				if output == "" {
					return fmt.Errorf("--output is required for parquet")
				}
				if err := export.SaveParquet(output, report); err != nil {
					return err
				}
				fmt.Fprintf(os.Stderr, "Wrote %d rows to %s\n", len(export.Rows(report)), output)
				return nil
			default:
				return fmt.Errorf("unsupported format: %s", format)
			}
		},
	}

	cmd.Flags().Int64VarP(&datasetID, "dataset", "d", 0, "Dataset ID")
	cmd.Flags().Int64Var(&imageID, "image", 0, "Only show the count line of this image")
	cmd.Flags().StringVarP(&format, "format", "f", "text", "Output format: text, yaml, parquet")
	cmd.Flags().StringVarP(&output, "output", "o", "", "Output file (required for parquet)")
	cmd.Flags().StringVarP(&input, "input", "i", "", "Print a saved yaml or parquet export instead")

	return cmd
}

// printSaved renders a previous export as text, picking the reader by
// file extension
func printSaved(out io.Writer, path string) error {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		report, err := export.LoadYAML(path)
		if err != nil {
			return err
		}
		return export.WriteText(out, report)
	case ".parquet":
		rows, err := export.LoadParquet(path)
		if err != nil {
			return err
		}
		return export.WriteRows(out, rows)
	default:
		return fmt.Errorf("unsupported export file: %s", path)
	}
}
