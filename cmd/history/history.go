// Package history provides the command that lists or clears stored readings.
package history

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/labddb/resistorlens/internal/analysis"
	"github.com/labddb/resistorlens/internal/conf"
	"github.com/labddb/resistorlens/pkg/output"
)

// Command creates a new history command
func Command(settings *conf.Settings) *cobra.Command {
	var (
		format   string
		clearAll bool
	)

	cmd := &cobra.Command{
		Use:   "history",
		Short: "List recent readings",
		Long:  "List the most recent readings, newest first. Use --clear to delete them.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			f, err := output.ParseFormat(format)
			if err != nil {
				return err
			}

			rt, err := analysis.Setup(cmd.Context(), settings)
			if err != nil {
				return fmt.Errorf("error initializing: %w", err)
			}
			defer rt.Close()

			if clearAll {
				if err := rt.History.Clear(cmd.Context()); err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), "History cleared.")
				return nil
			}

			entries, err := rt.History.List(cmd.Context())
			if err != nil {
				return err
			}
			return output.WriteHistory(cmd.OutOrStdout(), entries, f)
		},
	}

	cmd.Flags().StringVarP(&format, "output", "o", string(output.FormatTable), "Output format: table, json or yaml")
	cmd.Flags().BoolVar(&clearAll, "clear", false, "Delete all stored readings")
	return cmd
}
