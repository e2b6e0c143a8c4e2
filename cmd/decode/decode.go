// Package decode provides the command that decodes an explicit band list.
package decode

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/labddb/resistorlens/internal/analysis"
	"github.com/labddb/resistorlens/internal/conf"
	"github.com/labddb/resistorlens/pkg/output"
)

// Command creates a new decode command
func Command(settings *conf.Settings) *cobra.Command {
	var format string

	cmd := &cobra.Command{
		Use:   "decode <band1> <band2> <multiplier> [tolerance]",
		Short: "Decode a resistor from its colour names",
		Long: `Decode a resistor value from three colour bands. A fourth tolerance band
is accepted and ignored. The reading is stored in the history.`,
		Example: "  resistorlens decode yellow violet red\n  resistorlens decode brown black orange gold -o json",
		Args:    cobra.RangeArgs(3, 4),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := output.ParseFormat(format)
			if err != nil {
				return err
			}

			rt, err := analysis.Setup(cmd.Context(), settings)
			if err != nil {
				return fmt.Errorf("error initializing: %w", err)
			}
			defer rt.Close()

			r, err := rt.Scanner.DecodeBands(cmd.Context(), args)
			if err != nil {
				return err
			}

			v := output.NewEntryView(r.Entry)
			v.Usage = &r.Usage
			return output.WriteView(cmd.OutOrStdout(), v, f)
		},
	}

	cmd.Flags().StringVarP(&format, "output", "o", string(output.FormatTable), "Output format: table, json or yaml")
	return cmd
}
