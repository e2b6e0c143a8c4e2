// Package serve provides the command that runs the HTTP API.
package serve

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/labddb/resistorlens/internal/analysis"
	"github.com/labddb/resistorlens/internal/buildinfo"
	"github.com/labddb/resistorlens/internal/conf"
)

// Command creates a new serve command
func Command(settings *conf.Settings, build *buildinfo.Context) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		Long:  "Serve the reading API until interrupted. Metrics are exposed on the API or on the telemetry listener.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			rt, err := analysis.Setup(cmd.Context(), settings)
			if err != nil {
				return fmt.Errorf("error initializing: %w", err)
			}
			defer rt.Close()
			return analysis.Serve(cmd.Context(), rt, build)
		},
	}

	if err := setupFlags(cmd); err != nil {
		fmt.Printf("error setting up flags for serve command: %v\n", err)
	}
	return cmd
}

// setupFlags defines flags specific to the serve command. Bound flags only
// override the configuration when set.
func setupFlags(cmd *cobra.Command) error {
	cmd.Flags().String("listen", "", "Address the HTTP API listens on")
	cmd.Flags().Bool("telemetry", false, "Serve metrics on the dedicated telemetry listener")

	bindings := map[string]string{
		"webserver.listen":  "listen",
		"telemetry.enabled": "telemetry",
	}
	for key, flag := range bindings {
		if err := viper.BindPFlag(key, cmd.Flags().Lookup(flag)); err != nil {
			return fmt.Errorf("error binding flag %s: %w", flag, err)
		}
	}
	return nil
}
