// Package cmd assembles the resistorlens command line.
package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/labddb/resistorlens/cmd/colors"
	"github.com/labddb/resistorlens/cmd/decode"
	historycmd "github.com/labddb/resistorlens/cmd/history"
	manualcmd "github.com/labddb/resistorlens/cmd/manual"
	"github.com/labddb/resistorlens/cmd/scan"
	"github.com/labddb/resistorlens/cmd/serve"
	"github.com/labddb/resistorlens/cmd/version"
	"github.com/labddb/resistorlens/internal/buildinfo"
	"github.com/labddb/resistorlens/internal/conf"
	"github.com/labddb/resistorlens/internal/logger"
	"github.com/labddb/resistorlens/internal/telemetry"
)

// RootCommand creates and returns the root command
func RootCommand(settings *conf.Settings, build *buildinfo.Context) *cobra.Command {
	var configFile string
	var centralLogger *logger.CentralLogger

	rootCmd := &cobra.Command{
		Use:           "resistorlens",
		Short:         "Read resistor values from colour bands",
		Long:          "ResistorLens decodes resistor colour bands from a photo, an explicit band list or a manual selection.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	// Set up the global flags for the root command.
	if err := setupFlags(rootCmd, &configFile); err != nil {
		panic(err)
	}

	colorsCmd := colors.Command()
	versionCmd := version.Command(build)

	subcommands := []*cobra.Command{
		decode.Command(settings),
		manualcmd.Command(settings),
		scan.Command(settings),
		historycmd.Command(settings),
		serve.Command(settings, build),
		colorsCmd,
		versionCmd,
	}
	rootCmd.AddCommand(subcommands...)

	rootCmd.PersistentPreRunE = func(cmd *cobra.Command, _ []string) error {
		// colors and version need no configuration
		if cmd.Name() == colorsCmd.Name() || cmd.Name() == versionCmd.Name() {
			return nil
		}
		cl, err := initialize(configFile, settings, build)
		centralLogger = cl
		return err
	}
	rootCmd.PersistentPostRun = func(*cobra.Command, []string) {
		telemetry.Flush(telemetry.DefaultFlushTimeout)
		if centralLogger != nil {
			_ = centralLogger.Close()
		}
	}

	return rootCmd
}

// initialize loads the configuration into settings and sets up logging and
// error telemetry. It runs before every command that touches the history.
func initialize(configFile string, settings *conf.Settings, build *buildinfo.Context) (*logger.CentralLogger, error) {
	loaded, err := conf.Load(configFile)
	if err != nil {
		return nil, err
	}
	*settings = *loaded

	if settings.Debug {
		settings.Logging.DefaultLevel = "debug"
		if settings.Logging.Console != nil {
			settings.Logging.Console.Level = "debug"
		}
	}

	cl, err := logger.NewCentralLogger(&settings.Logging)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logging: %w", err)
	}
	logger.SetGlobal(cl)

	if err := telemetry.InitSentry(settings, build); err != nil {
		cl.Module("main").Warn("error telemetry disabled", logger.Error(err))
	}
	return cl, nil
}

// setupFlags defines flags that are global to the command line interface
func setupFlags(rootCmd *cobra.Command, configFile *string) error {
	rootCmd.PersistentFlags().StringVar(configFile, "config", "", "Path to config file (default: search the standard locations)")
	rootCmd.PersistentFlags().BoolP("debug", "d", false, "Enable debug output")

	if err := viper.BindPFlag("debug", rootCmd.PersistentFlags().Lookup("debug")); err != nil {
		return fmt.Errorf("error binding flags: %w", err)
	}
	return nil
}
