// Package analysis wires configuration, persistence, the vision analyzer and
// result publication into a ready scanner.Service.
package analysis

import (
	"context"
	"fmt"

	"github.com/labddb/resistorlens/internal/conf"
	"github.com/labddb/resistorlens/internal/datastore"
	"github.com/labddb/resistorlens/internal/history"
	"github.com/labddb/resistorlens/internal/logger"
	"github.com/labddb/resistorlens/internal/mqtt"
	"github.com/labddb/resistorlens/internal/observability"
	"github.com/labddb/resistorlens/internal/scanner"
	"github.com/labddb/resistorlens/internal/vision"
)

// Runtime holds the long-lived components shared by the CLI commands and
// the HTTP server.
type Runtime struct {
	Settings  *conf.Settings
	Store     datastore.Interface
	History   *history.Service
	Scanner   *scanner.Service
	Metrics   *observability.Metrics
	Publisher *mqtt.Publisher

	// VisionReady is false when no API key is configured; scans then fail
	// with vision.ErrNotConfigured while manual input keeps working.
	VisionReady bool

	log logger.Logger
}

type setupOptions struct {
	analyzer   vision.Analyzer
	store      datastore.Interface
	mqttClient mqtt.Client
}

// Option customises Setup.
type Option func(*setupOptions)

// WithAnalyzer replaces the analyzer built from settings.
func WithAnalyzer(a vision.Analyzer) Option {
	return func(o *setupOptions) { o.analyzer = a }
}

// WithStore replaces the store selected by settings. Setup opens it.
func WithStore(s datastore.Interface) Option {
	return func(o *setupOptions) { o.store = s }
}

// WithMQTTClient publishes through c instead of a broker connection built
// from settings. It only takes effect when MQTT is enabled.
func WithMQTTClient(c mqtt.Client) Option {
	return func(o *setupOptions) { o.mqttClient = c }
}

// Setup opens the datastore and builds the scanner. The caller must Close
// the returned Runtime.
func Setup(ctx context.Context, settings *conf.Settings, opts ...Option) (*Runtime, error) {
	var o setupOptions
	for _, opt := range opts {
		opt(&o)
	}

	log := logger.Global().Module("analysis")
	m, err := observability.NewMetrics()
	if err != nil {
		return nil, fmt.Errorf("error initializing metrics: %w", err)
	}

	store := o.store
	if store == nil {
		store = datastore.New(settings)
	}
	if err := store.Open(); err != nil {
		return nil, err
	}
	store = datastore.Instrument(store, m.Datastore)
	log.Debug("datastore opened", logger.String("kind", store.Kind()))

	hist := history.NewService(store, history.WithLimit(settings.History.Limit))

	rt := &Runtime{
		Settings: settings,
		Store:    store,
		History:  hist,
		Metrics:  m,
		log:      log,
	}

	analyzer := o.analyzer
	rt.VisionReady = analyzer != nil || settings.Vision.APIKey != ""
	if analyzer == nil {
		analyzer = vision.NewFromSettings(ctx, settings, m.Vision, nil)
	}

	scannerOpts := []scanner.Option{scanner.WithMetrics(m.Scanner, m.Datastore)}
	if pub := rt.newPublisher(o.mqttClient); pub != nil {
		rt.Publisher = pub
		scannerOpts = append(scannerOpts, scanner.WithPublisher(pub))
	}
	rt.Scanner = scanner.New(analyzer, hist, scannerOpts...)

	if entries, err := hist.List(ctx); err == nil {
		m.Datastore.SetHistorySize(len(entries))
	}
	if usage, err := hist.Usage(ctx); err == nil {
		m.Datastore.SetUsage(int(usage))
	}
	return rt, nil
}

// newPublisher returns nil when MQTT is disabled or misconfigured. A broken
// broker setting never prevents readings.
func (rt *Runtime) newPublisher(c mqtt.Client) *mqtt.Publisher {
	if !rt.Settings.MQTT.Enabled {
		return nil
	}
	if c == nil {
		var err error
		c, err = mqtt.NewClient(mqtt.ConfigFromSettings(rt.Settings), rt.Metrics.MQTT, nil)
		if err != nil {
			rt.log.Warn("MQTT publishing disabled", logger.Error(err))
			return nil
		}
	}
	return mqtt.NewPublisher(c, rt.Settings.MQTT.Topic, nil)
}

// Close disconnects the publisher and closes the datastore.
func (rt *Runtime) Close() error {
	if rt.Publisher != nil {
		rt.Publisher.Close()
	}
	if err := rt.Store.Close(); err != nil {
		rt.log.Error("failed to close datastore", logger.Error(err))
		return err
	}
	rt.log.Debug("datastore closed")
	return nil
}
