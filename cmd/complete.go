package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newCompleteCmd(opts *rootOptions) *cobra.Command {
	var (
		datasetID int64
		imageID   int64
		state     bool
	)

	cmd := &cobra.Command{
		Use:   "complete",
		Short: "Set or clear the ROI completion tag of an image",
		Example: `  # Mark an image complete
  roilabel complete --image 88410

  # Clear the tag and show the refreshed status within its dataset
  roilabel complete --image 88410 --state=false --dataset 1201`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if imageID <= 0 {
				return fmt.Errorf("--image is required")
			}
			out := cmd.OutOrStdout()

			if datasetID <= 0 && opts.cfg.DatasetID <= 0 {
				client, err := opts.client()
				if err != nil {
					return err
				}
				if err := client.SetCompletionTag(cmd.Context(), imageID, state); err != nil {
					return fmt.Errorf("failed to set completion tag: %w", err)
				}
				fmt.Fprintf(out, "Image %d completion tag set to %t\n", imageID, state)
				return nil
			}

			controller, err := opts.openSession(cmd.Context(), datasetID, nil)
			if err != nil {
				return err
			}
			if err := controller.SetCompletion(cmd.Context(), imageID, state); err != nil {
				return fmt.Errorf("failed to set completion tag: %w", err)
			}
			fmt.Fprintf(out, "Image %d: %s\n", imageID, controller.Index().CompletionIndicator(imageID))
			return nil
		},
	}

	cmd.Flags().Int64VarP(&datasetID, "dataset", "d", 0, "Dataset ID, refreshes its counts afterwards")
	cmd.Flags().Int64Var(&imageID, "image", 0, "Image ID")
	cmd.Flags().BoolVar(&state, "state", true, "Completion state")

	return cmd
}
