package cmd

import (
	"fmt"
	"log/slog"

	"github.com/fastmal/roilabel/internal/annotation"
	"github.com/fastmal/roilabel/internal/events"
	"github.com/fastmal/roilabel/internal/watch"
	"github.com/spf13/cobra"
)

func newWatchCmd(opts *rootOptions) *cobra.Command {
	var (
		datasetID int64
		schedule  string
	)

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Refresh a dataset's annotation counts on a cron schedule",
		Long: `Keeps the annotation index of a dataset up to date, printing the
in-progress and completed images after every refresh. The schedule is a
5-field cron expression or a descriptor such as "@every 2m".`,
		Example: `  roilabel watch --dataset 1201
  roilabel watch --dataset 1201 --schedule "0 * * * *"`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if schedule == "" {
				schedule = opts.cfg.RefreshSchedule
			}

			bus := events.NewBus(slog.Default())
			controller, err := opts.openSession(cmd.Context(), datasetID, bus)
			if err != nil {
				return err
			}

			w, err := watch.New(schedule, controller, slog.Default())
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			printIndex := func(idx *annotation.Index) {
				fmt.Fprintf(out, "dataset %d: %d images, %d in progress %v, %d complete %v\n",
					idx.DatasetID, len(idx.ImageIDs),
					len(idx.ImagesAnnotationInProgress()), idx.ImagesAnnotationInProgress(),
					len(idx.ImagesMarkedComplete()), idx.ImagesMarkedComplete())
			}
			bus.On(events.CountUpdated, func(events.Event, any) {
				printIndex(controller.Index())
			})
			printIndex(controller.Index())

			return w.Run(cmd.Context(), nil)
		},
	}

	cmd.Flags().Int64VarP(&datasetID, "dataset", "d", 0, "Dataset ID")
	cmd.Flags().StringVar(&schedule, "schedule", "", "Cron schedule (default from config, \"*/5 * * * *\")")

	return cmd
}
