// Package manual provides the command that evaluates a hand-picked band
// selection.
package manual

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/labddb/resistorlens/internal/analysis"
	"github.com/labddb/resistorlens/internal/conf"
	"github.com/labddb/resistorlens/internal/errors"
	"github.com/labddb/resistorlens/internal/manual"
	"github.com/labddb/resistorlens/internal/scanner"
	"github.com/labddb/resistorlens/pkg/output"
)

type options struct {
	format     string
	band1      string
	band2      string
	multiplier string
	set        []string
	save       bool
}

// Command creates a new manual command
func Command(settings *conf.Settings) *cobra.Command {
	var opts options

	cmd := &cobra.Command{
		Use:   "manual",
		Short: "Evaluate a manual band selection",
		Long: `Start from brown, black, red (1kΩ) and apply the given band selections.
Only colours offered for a slot are accepted: black to white for the digit
bands, and all twelve colours including gold and silver for the multiplier.
Use --save to store the result in the history.`,
		Example: "  resistorlens manual --band1 yellow --band2 violet --multiplier orange --save\n  resistorlens manual --set multiplier=gold",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			f, err := output.ParseFormat(opts.format)
			if err != nil {
				return err
			}
			edits, err := opts.edits()
			if err != nil {
				return err
			}

			rt, err := analysis.Setup(cmd.Context(), settings)
			if err != nil {
				return fmt.Errorf("error initializing: %w", err)
			}
			defer rt.Close()

			return run(cmd, rt.Scanner, edits, opts.save, f)
		},
	}

	cmd.Flags().StringVarP(&opts.format, "output", "o", string(output.FormatTable), "Output format: table, json or yaml")
	cmd.Flags().StringVar(&opts.band1, "band1", "", "First digit colour")
	cmd.Flags().StringVar(&opts.band2, "band2", "", "Second digit colour")
	cmd.Flags().StringVar(&opts.multiplier, "multiplier", "", "Multiplier colour")
	cmd.Flags().StringArrayVar(&opts.set, "set", nil, "Slot selection as slot=color, repeatable (slot: band1, band2, multiplier or 0-2)")
	cmd.Flags().BoolVar(&opts.save, "save", false, "Store the result in the history")
	return cmd
}

type edit struct {
	slot  manual.Slot
	color string
}

// edits returns the named band flags first, then --set values in order.
func (o options) edits() ([]edit, error) {
	var out []edit
	named := []string{o.band1, o.band2, o.multiplier}
	for i, color := range named {
		if color != "" {
			out = append(out, edit{slot: manual.Slot(i), color: color})
		}
	}
	for _, s := range o.set {
		slotName, color, ok := strings.Cut(s, "=")
		if !ok || color == "" {
			return nil, fmt.Errorf("invalid --set value %q, expected slot=color", s)
		}
		slot, err := manual.ParseSlot(slotName)
		if err != nil {
			return nil, err
		}
		out = append(out, edit{slot: slot, color: strings.TrimSpace(color)})
	}
	return out, nil
}

func run(cmd *cobra.Command, svc *scanner.Service, edits []edit, save bool, f output.Format) error {
	ctx := cmd.Context()

	result, usage, err := svc.ActivateManual(ctx)
	if err != nil {
		return err
	}
	for _, e := range edits {
		if result, err = svc.ManualUpdate(ctx, e.slot, e.color); err != nil {
			if errors.Is(err, manual.ErrOptionNotOffered) {
				return fmt.Errorf("%s is not offered for %s: %w", e.color, e.slot, err)
			}
			return err
		}
	}

	if save {
		r, err := svc.SaveManual(ctx)
		if err != nil {
			return err
		}
		v := output.NewEntryView(r.Entry)
		v.Usage = &r.Usage
		return output.WriteView(cmd.OutOrStdout(), v, f)
	}

	v := output.NewView(result)
	v.Usage = &usage
	return output.WriteView(cmd.OutOrStdout(), v, f)
}
