// Package scanner turns every reading source into a recorded Result. Vision
// scans, explicit band lists and the manual picker all end up in the same
// place: the bounded history, the usage counter, the optional publisher and
// the metrics.
package scanner

import (
	"context"
	"time"

	"github.com/labddb/resistorlens/internal/colorcode"
	"github.com/labddb/resistorlens/internal/errors"
	"github.com/labddb/resistorlens/internal/history"
	"github.com/labddb/resistorlens/internal/logger"
	"github.com/labddb/resistorlens/internal/manual"
	"github.com/labddb/resistorlens/internal/observability/metrics"
	"github.com/labddb/resistorlens/internal/reading"
	"github.com/labddb/resistorlens/internal/vision"
)

// Operation names used in logs and metrics.
const (
	opScan         = "scan"
	opDecode       = "decode"
	opManualUpdate = "manual_update"
	opManualSave   = "manual_save"
	opActivate     = "manual_activate"
	opPublish      = "publish"
)

// Publisher receives every new Result. Publication is best effort: a
// failing publisher is logged and counted but never fails the reading.
type Publisher interface {
	Publish(ctx context.Context, source history.Source, result reading.Result) error
}

// Reading is a completed, recorded Result.
type Reading struct {
	history.Entry
	Quality reading.Quality `json:"quality" yaml:"quality"`
	Usage   int64           `json:"usage" yaml:"usage"`
}

// Service coordinates the reading sources.
type Service struct {
	analyzer  vision.Analyzer
	history   *history.Service
	selector  *manual.Selector
	publisher Publisher
	metrics   *metrics.ScannerMetrics
	store     *metrics.DatastoreMetrics
	log       logger.Logger
	initial   manual.State
}

// Option configures a Service.
type Option func(*Service)

// WithPublisher sets the result publisher.
func WithPublisher(p Publisher) Option {
	return func(s *Service) { s.publisher = p }
}

// WithMetrics sets the collectors. Either may be nil.
func WithMetrics(sm *metrics.ScannerMetrics, dm *metrics.DatastoreMetrics) Option {
	return func(s *Service) {
		s.metrics = sm
		s.store = dm
	}
}

// WithLogger sets the module logger.
func WithLogger(l logger.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.log = l
		}
	}
}

// WithManualState starts the manual picker from state instead of manual.Initial.
func WithManualState(state manual.State) Option {
	return func(s *Service) { s.initial = state }
}

// New creates a Service. analyzer may be nil when only manual sources are used.
func New(analyzer vision.Analyzer, hist *history.Service, opts ...Option) *Service {
	s := &Service{
		analyzer: analyzer,
		history:  hist,
		log:      logger.Global().Module("scanner"),
		initial:  manual.Initial(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.selector = manual.NewSelectorFrom(s.initial, s.onManualResult)
	return s
}

// Scan reads an image with the vision analyzer and records the Result.
func (s *Service) Scan(ctx context.Context, source history.Source, img vision.Image) (Reading, error) {
	start := time.Now()
	if s.analyzer == nil {
		err := errors.New(errors.Join(vision.ErrNotConfigured, errors.NewStd("no analyzer"))).
			Component("scanner").
			Category(errors.CategoryConfiguration).
			Build()
		s.observe(opScan, start, err)
		return Reading{}, err
	}

	result, err := s.analyzer.Analyze(ctx, img)
	if err != nil {
		s.observe(opScan, start, err)
		s.log.Warn("scan failed",
			logger.String("source", string(source)),
			logger.String("message", vision.UserMessage(err)),
			logger.Error(err))
		return Reading{}, err
	}

	r, err := s.complete(ctx, source, result)
	s.observe(opScan, start, err)
	return r, err
}

// DecodeBands decodes an explicit band list. A fourth (tolerance) band is
// ignored. The Result is a manual one: confidence 100, value formatted locally.
func (s *Service) DecodeBands(ctx context.Context, names []string) (Reading, error) {
	start := time.Now()
	ohms, err := colorcode.DecodeSequence(names)
	if err != nil {
		s.observe(opDecode, start, err)
		return Reading{}, err
	}

	colors := make([]colorcode.Color, colorcode.SequenceLength)
	for i := range colors {
		// DecodeSequence already resolved these names.
		colors[i], _ = colorcode.Lookup(names[i])
	}

	r, err := s.complete(ctx, history.SourceBands, reading.NewManual(colors, ohms))
	s.observe(opDecode, start, err)
	return r, err
}

// Manual exposes the picker.
func (s *Service) Manual() *manual.Selector {
	return s.selector
}

// ActivateManual switches to manual mode: it counts one usage and returns
// the picker's current Result.
func (s *Service) ActivateManual(ctx context.Context) (reading.Result, int64, error) {
	start := time.Now()
	usage, err := s.history.IncrementUsage(ctx)
	s.observe(opActivate, start, err)
	if err != nil {
		return reading.Result{}, 0, err
	}
	s.store.SetUsage(int(usage))
	return s.selector.Current(), usage, nil
}

// ManualUpdate applies one picker edit and publishes the new Result.
// Edits are not recorded in the history; SaveManual does that.
func (s *Service) ManualUpdate(ctx context.Context, slot manual.Slot, color string) (reading.Result, error) {
	start := time.Now()
	result, err := s.selector.Select(slot, color)
	s.observe(opManualUpdate, start, err)
	if err != nil {
		return reading.Result{}, err
	}
	s.publish(ctx, history.SourceManual, result)
	return result, nil
}

// ResetManual returns the picker to its initial selection.
func (s *Service) ResetManual(ctx context.Context) reading.Result {
	result := s.selector.Reset()
	s.publish(ctx, history.SourceManual, result)
	return result
}

// SaveManual records the picker's current Result in the history.
func (s *Service) SaveManual(ctx context.Context) (Reading, error) {
	start := time.Now()
	current := s.selector.Current()
	if len(current.Bands) == 0 {
		err := errors.New(errors.NewStd("manual selection has no valid reading")).
			Component("scanner").
			Category(errors.CategoryState).
			Build()
		s.observe(opManualSave, start, err)
		return Reading{}, err
	}

	entry, err := s.history.Record(ctx, history.SourceManual, current)
	s.observe(opManualSave, start, err)
	if err != nil {
		return Reading{}, err
	}
	s.updateHistoryGauge(ctx)
	usage, err := s.history.Usage(ctx)
	if err != nil {
		return Reading{}, err
	}
	return Reading{Entry: entry, Quality: current.Quality(), Usage: usage}, nil
}

// History returns the history service.
func (s *Service) History() *history.Service {
	return s.history
}

// complete records, counts and publishes a finished reading.
func (s *Service) complete(ctx context.Context, source history.Source, result reading.Result) (Reading, error) {
	entry, err := s.history.Record(ctx, source, result)
	if err != nil {
		return Reading{}, err
	}
	usage, err := s.history.IncrementUsage(ctx)
	if err != nil {
		return Reading{}, err
	}

	s.metrics.RecordReading(string(source), string(result.Quality()), result.ResistanceOhms)
	s.store.SetUsage(int(usage))
	s.updateHistoryGauge(ctx)
	s.publish(ctx, source, result)

	s.log.Info("reading recorded",
		logger.String("source", string(source)),
		logger.String("summary", result.Summary()),
		logger.Int("confidence", result.Confidence),
		logger.String("quality", string(result.Quality())),
		logger.Int64("usage", usage))

	return Reading{Entry: entry, Quality: result.Quality(), Usage: usage}, nil
}

// onManualResult runs synchronously inside the selector for every new Result.
func (s *Service) onManualResult(result reading.Result) {
	s.metrics.RecordReading(string(history.SourceManual), string(result.Quality()), result.ResistanceOhms)
	s.log.Debug("manual selection changed", logger.String("summary", result.Summary()))
}

func (s *Service) publish(ctx context.Context, source history.Source, result reading.Result) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.Publish(ctx, source, result); err != nil {
		s.metrics.RecordError(opPublish, categoryOf(err))
		s.log.Warn("failed to publish reading",
			logger.String("source", string(source)),
			logger.Error(err))
	}
}

func (s *Service) updateHistoryGauge(ctx context.Context) {
	if s.store == nil {
		return
	}
	if entries, err := s.history.List(ctx); err == nil {
		s.store.SetHistorySize(len(entries))
	}
}

func (s *Service) observe(operation string, start time.Time, err error) {
	s.metrics.RecordOperation(operation, metrics.StatusOf(err))
	s.metrics.RecordDuration(operation, time.Since(start).Seconds())
	if err != nil {
		s.metrics.RecordError(operation, categoryOf(err))
	}
}

func categoryOf(err error) string {
	var ee *errors.EnhancedError
	if errors.As(err, &ee) {
		return string(ee.Category)
	}
	return string(errors.CategoryGeneric)
}
