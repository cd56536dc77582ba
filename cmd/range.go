package cmd

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/fastmal/roilabel/internal/gateway"
	"github.com/spf13/cobra"
)

func newRangeCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "range",
		Short: "Read or write the numeric range annotation of a shape",
	}

	cmd.AddCommand(newRangeGetCmd(opts))
	cmd.AddCommand(newRangeSetCmd(opts))

	return cmd
}

func newRangeGetCmd(opts *rootOptions) *cobra.Command {
	var (
		shapeID int64
		key     string
	)

	cmd := &cobra.Command{
		Use:   "get",
		Short: "Print the range value of a shape",
		RunE: func(cmd *cobra.Command, args []string) error {
			if shapeID <= 0 {
				return fmt.Errorf("--shape is required")
			}
			if key == "" {
				key = opts.cfg.RangeKey
			}
			client, err := opts.client()
			if err != nil {
				return err
			}

			value, err := client.ShapeRangeAnnotation(cmd.Context(), shapeID, key)
			if errors.Is(err, gateway.ErrNotFound) {
				fmt.Fprintf(cmd.OutOrStdout(), "Shape %d has no %s annotation\n", shapeID, key)
				return nil
			}
			if err != nil {
				return fmt.Errorf("failed to read %s of shape %d: %w", key, shapeID, err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), strconv.FormatFloat(value, 'f', -1, 64))
			return nil
		},
	}

	cmd.Flags().Int64Var(&shapeID, "shape", 0, "Shape ID")
	cmd.Flags().StringVar(&key, "key", "", "Annotation key (default from config, \"range\")")

	return cmd
}

func newRangeSetCmd(opts *rootOptions) *cobra.Command {
	var (
		shapeID int64
		key     string
	)

	cmd := &cobra.Command{
		Use:   "set VALUE",
		Short: "Set the range value of a shape",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if shapeID <= 0 {
				return fmt.Errorf("--shape is required")
			}
			value, err := strconv.ParseFloat(args[0], 64)
			if err != nil {
				return fmt.Errorf("invalid value %q: %w", args[0], err)
			}
			if key == "" {
				key = opts.cfg.RangeKey
			}
			client, err := opts.client()
			if err != nil {
				return err
			}

			stored, err := client.SetShapeRangeAnnotation(cmd.Context(), shapeID, key, value)
			if err != nil {
				return fmt.Errorf("failed to set %s of shape %d: %w", key, shapeID, err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), strconv.FormatFloat(stored, 'f', -1, 64))
			return nil
		},
	}

	cmd.Flags().Int64Var(&shapeID, "shape", 0, "Shape ID")
	cmd.Flags().StringVar(&key, "key", "", "Annotation key (default from config, \"range\")")

	return cmd
}
