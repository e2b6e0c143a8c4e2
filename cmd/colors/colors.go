// Package colors provides the command that prints the colour code table.
package colors

import (
	"github.com/spf13/cobra"

	"github.com/labddb/resistorlens/internal/colorcode"
	"github.com/labddb/resistorlens/pkg/output"
)

// Command creates a new colors command
func Command() *cobra.Command {
	return &cobra.Command{
		Use:   "colors",
		Short: "Print the resistor colour code table",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return output.WriteColors(cmd.OutOrStdout(), colorcode.Colors())
		},
	}
}
