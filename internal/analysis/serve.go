package analysis

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"golang.org/x/sync/errgroup"

	"github.com/labddb/resistorlens/internal/api"
	"github.com/labddb/resistorlens/internal/buildinfo"
	"github.com/labddb/resistorlens/internal/logger"
	"github.com/labddb/resistorlens/internal/observability"
)

// Serve runs the HTTP API, and the dedicated metrics listener when
// telemetry is enabled, until ctx is cancelled or SIGINT/SIGTERM arrives.
func Serve(ctx context.Context, rt *Runtime, build *buildinfo.Context) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	server := api.NewServer(rt.Settings, rt.Scanner,
		api.WithMetrics(rt.Metrics),
		api.WithBuildInfo(build),
		api.WithVisionReady(rt.VisionReady))

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return server.Run(gctx) })

	if rt.Settings.Telemetry.Enabled {
		endpoint, err := observability.NewEndpoint(rt.Settings, rt.Metrics, nil)
		if err != nil {
			return err
		}
		g.Go(func() error { return endpoint.Run(gctx) })
	}

	rt.log.Info("ResistorLens started",
		logger.String("version", build.GetVersion()),
		logger.String("datastore", rt.Store.Kind()),
		logger.Bool("vision", rt.VisionReady),
		logger.Bool("mqtt", rt.Publisher != nil))

	err := g.Wait()
	rt.log.Info("ResistorLens stopped")
	return err
}
