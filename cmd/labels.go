package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newLabelsCmd(opts *rootOptions) *cobra.Command {
	var datasetID int64

	cmd := &cobra.Command{
		Use:   "labels",
		Short: "Print the ROI label tree of a dataset's project",
		Example: `  # Show labels with their colours
  roilabel labels --dataset 1201`,
		RunE: func(cmd *cobra.Command, args []string) error {
			controller, err := opts.openSession(cmd.Context(), datasetID, nil)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			for _, l := range controller.Catalog().Labels() {
				fmt.Fprintf(out, "%-32s %-28s rgb(%s) %d\n", l.ID, l.Name, l.Colour, l.Colour.SignedInteger())
				for _, child := range l.Children {
					fmt.Fprintf(out, "  └ %-28s %-28s\n", child.ID, child.Name)
				}
			}
			return nil
		},
	}

	cmd.Flags().Int64VarP(&datasetID, "dataset", "d", 0, "Dataset ID")

	return cmd
}
