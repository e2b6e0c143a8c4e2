// Package scan provides the command that reads a resistor from a photo.
package scan

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/labddb/resistorlens/internal/analysis"
	"github.com/labddb/resistorlens/internal/conf"
	"github.com/labddb/resistorlens/internal/errors"
	"github.com/labddb/resistorlens/internal/history"
	"github.com/labddb/resistorlens/internal/vision"
	"github.com/labddb/resistorlens/pkg/output"
	"github.com/labddb/resistorlens/pkg/spinner"
)

// Command creates a new scan command
func Command(settings *conf.Settings) *cobra.Command {
	var (
		format string
		camera bool
	)

	cmd := &cobra.Command{
		Use:   "scan <image>",
		Short: "Read a resistor value from a photo",
		Long: `Send a JPEG, PNG, WebP, HEIC or HEIF photo to the vision model and decode the
colour bands it reports. The reading is stored in the history.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := output.ParseFormat(format)
			if err != nil {
				return err
			}

			img, err := vision.ReadImageFile(args[0])
			if err != nil {
				return userError(err)
			}

			rt, err := analysis.Setup(cmd.Context(), settings)
			if err != nil {
				return fmt.Errorf("error initializing: %w", err)
			}
			defer rt.Close()

			source := history.SourceUpload
			if camera {
				source = history.SourceCamera
			}

			var sp *spinner.Spinner
			if f == output.FormatTable {
				sp = spinner.New(cmd.ErrOrStderr(), " Reading colour bands...")
				sp.Start(cmd.Context())
			}
			r, err := rt.Scanner.Scan(cmd.Context(), source, img)
			if sp != nil {
				sp.Stop()
			}
			if err != nil {
				return userError(err)
			}

			v := output.NewEntryView(r.Entry)
			v.Usage = &r.Usage
			return output.WriteView(cmd.OutOrStdout(), v, f)
		},
	}

	cmd.Flags().StringVarP(&format, "output", "o", string(output.FormatTable), "Output format: table, json or yaml")
	cmd.Flags().BoolVar(&camera, "camera", false, "Record the reading as a camera capture instead of an upload")
	return cmd
}

// userError keeps the underlying error for errors.Is while printing the
// message meant for the user.
func userError(err error) error {
	if errors.Is(err, vision.ErrInvalidImage) || errors.Is(err, vision.ErrNotConfigured) ||
		errors.Is(err, vision.ErrQuotaExceeded) || errors.Is(err, vision.ErrNoResult) {
		return fmt.Errorf("%s: %w", vision.UserMessage(err), err)
	}
	return err
}
