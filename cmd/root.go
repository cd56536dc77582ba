package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/fastmal/roilabel/internal/config"
	"github.com/fastmal/roilabel/internal/events"
	"github.com/fastmal/roilabel/internal/gateway"
	"github.com/fastmal/roilabel/internal/selection"
	"github.com/spf13/cobra"
)

// rootOptions are shared by every subcommand
type rootOptions struct {
	configPath string
	logLevel   string
	cfg        config.Config
}

func NewRootCmd() *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:   "roilabel",
		Short: "ROI label selection and dataset annotation tooling for OMERO.iviewer",
		Long: `roilabel drives the hierarchical ROI label picker of the FastMal iviewer
plugin and keeps the per-dataset annotation counts it shows.

It talks to the OMERO.web iviewer endpoints with your web session and can
print label trees, export annotation statistics, toggle completion tags,
replay labelling sessions, serve a local session API and run the
development proxy.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			// Load .env file if present, then roilabel.yaml and env overrides
			cfg, err := config.Load(opts.configPath)
			if err != nil {
				return err
			}
			if opts.logLevel != "" {
				cfg.LogLevel = opts.logLevel
			}
			opts.cfg = cfg

			slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
				Level: cfg.SlogLevel(),
			})))
			return nil
		},
	}

	cmd.PersistentFlags().StringVar(&opts.configPath, "config", "", "Config file (default roilabel.yaml or $ROILABEL_CONFIG)")
	cmd.PersistentFlags().StringVar(&opts.logLevel, "log-level", "", "Log level: debug, info, warn, error")

	// Add subcommands
	cmd.AddCommand(newLabelsCmd(opts))
	cmd.AddCommand(newStatsCmd(opts))
	cmd.AddCommand(newCompleteCmd(opts))
	cmd.AddCommand(newRangeCmd(opts))
	cmd.AddCommand(newWatchCmd(opts))
	cmd.AddCommand(newSessionCmd(opts))
	cmd.AddCommand(newServeCmd(opts))
	cmd.AddCommand(newProxyCmd(opts))

	return cmd
}

// client builds the backend gateway from the loaded config
func (o *rootOptions) client() (*gateway.Client, error) {
	if err := o.cfg.RequireBackend(); err != nil {
		return nil, err
	}
	c := gateway.NewClient(o.cfg.ServerURL, o.cfg.SessionID, o.cfg.HTTPTimeout())
	c.CSRFToken = o.cfg.CSRFToken
	return c, nil
}

// datasetID resolves the --dataset flag against the configured default
func (o *rootOptions) datasetID(flag int64) (int64, error) {
	if flag > 0 {
		return flag, nil
	}
	if o.cfg.DatasetID > 0 {
		return o.cfg.DatasetID, nil
	}
	return 0, fmt.Errorf("--dataset is required (or set dataset_id / ROILABEL_DATASET_ID)")
}

// openSession opens a controller for the dataset
func (o *rootOptions) openSession(ctx context.Context, datasetFlag int64, pub events.Publisher) (*selection.Controller, error) {
	datasetID, err := o.datasetID(datasetFlag)
	if err != nil {
		return nil, err
	}
	client, err := o.client()
	if err != nil {
		return nil, err
	}
	controller, err := selection.Open(ctx, client, pub, nil, datasetID, slog.Default())
	if err != nil {
		return nil, err
	}
	return controller, nil
}
