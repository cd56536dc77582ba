package cmd

import (
	"fmt"
	"io"
	"os"

	"github.com/fastmal/roilabel/internal/script"
	"github.com/spf13/cobra"
)

func newSessionCmd(opts *rootOptions) *cobra.Command {
	var (
		datasetID  int64
		scriptPath string
	)

	cmd := &cobra.Command{
		Use:   "session",
		Short: "Replay a labelling session against a dataset",
		Long: `Opens a dataset session and runs viewer actions from a script, one per
line:

  image <id>                     switch the active image
  click <label-id>               click a node of the label tree
  shape <kind>                   pick the drawing tool
  draw [provisional-id]          finish drawing a shape
  persist <roi>[=<provisional>]  report saved shapes and link their labels
  complete <image> [true|false]  toggle the completion tag
  counts <image>                 print the count line of an image
  refresh                        reload the dataset counts
  status                         print the selection and dataset status

Lines starting with # are ignored. The script is read from stdin when
--script is not given.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			var in io.Reader = cmd.InOrStdin()
			if scriptPath != "" {
				f, err := os.Open(scriptPath)
				if err != nil {
					return fmt.Errorf("failed to open script: %w", err)
				}
				defer f.Close()
				in = f
			}

			controller, err := opts.openSession(cmd.Context(), datasetID, nil)
			if err != nil {
				return err
			}

			return script.NewRunner(controller, cmd.OutOrStdout()).Run(cmd.Context(), in)
		},
	}

	cmd.Flags().Int64VarP(&datasetID, "dataset", "d", 0, "Dataset ID")
	cmd.Flags().StringVarP(&scriptPath, "script", "s", "", "Script file (default stdin)")

	return cmd
}
