// Package history keeps the bounded list of recent readings and the usage
// counter on top of an injected key/value store.
package history

import (
	"context"
	"encoding/json"
	"fmt"
	"slices"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/labddb/resistorlens/internal/errors"
	"github.com/labddb/resistorlens/internal/logger"
	"github.com/labddb/resistorlens/internal/reading"
)

// Fixed store keys.
const (
	HistoryKey = "resistor_history"
	UsageKey   = "usage_count"
)

// DefaultLimit is the number of readings kept.
const DefaultLimit = 5

// Store is the durable key/value contract the history persists through.
// Get reports found=false for a missing key.
type Store interface {
	Get(ctx context.Context, key string) (value []byte, found bool, err error)
	Set(ctx context.Context, key string, value []byte) error
}

// Source tells where a reading came from.
type Source string

const (
	SourceCamera Source = "camera"
	SourceUpload Source = "upload"
	SourceManual Source = "manual"
	SourceBands  Source = "bands"
)

// Entry is one persisted reading.
type Entry struct {
	ID         uuid.UUID      `json:"id" yaml:"id"`
	RecordedAt time.Time      `json:"recorded_at" yaml:"recorded_at"`
	Source     Source         `json:"source" yaml:"source"`
	Result     reading.Result `json:"result" yaml:"result"`
}

// Service serialises read-modify-write cycles against the store. Writers in
// other processes are not coordinated; the last write wins.
type Service struct {
	store Store
	limit int
	now   func() time.Time
	log   logger.Logger
	mu    sync.Mutex
}

// Option configures a Service.
type Option func(*Service)

// WithLimit overrides DefaultLimit. Values below 1 are ignored.
func WithLimit(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.limit = n
		}
	}
}

// WithClock replaces time.Now, for tests.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// WithLogger sets the module logger.
func WithLogger(l logger.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.log = l
		}
	}
}

// NewService creates a history service over store.
func NewService(store Store, opts ...Option) *Service {
	s := &Service{
		store: store,
		limit: DefaultLimit,
		now:   time.Now,
		log:   logger.Global().Module("history"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Limit returns the maximum number of entries kept.
func (s *Service) Limit() int {
	return s.limit
}

// Record prepends result and trims the list to the limit.
func (s *Service) Record(ctx context.Context, source Source, result reading.Result) (Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entries, err := s.load(ctx)
	if err != nil {
		return Entry{}, err
	}

	entry := Entry{
		ID:         uuid.New(),
		RecordedAt: s.now().UTC(),
		Source:     source,
		Result:     result,
	}
	entries = slices.Insert(entries, 0, entry)
	if len(entries) > s.limit {
		evicted := len(entries) - s.limit
		entries = entries[:s.limit]
		s.log.Debug("evicted old readings", logger.Int("count", evicted))
	}

	if err := s.save(ctx, entries); err != nil {
		return Entry{}, err
	}
	s.log.Debug("reading recorded",
		logger.String("id", entry.ID.String()),
		logger.String("source", string(source)),
		logger.String("value", result.FormattedValue),
		logger.Time("recorded_at", entry.RecordedAt))
	return entry, nil
}

// List returns the stored entries, most recent first.
func (s *Service) List(ctx context.Context) ([]Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.load(ctx)
}

// Latest returns the most recent entry; ok is false when the history is empty.
func (s *Service) Latest(ctx context.Context) (entry Entry, ok bool, err error) {
	entries, err := s.List(ctx)
	if err != nil || len(entries) == 0 {
		return Entry{}, false, err
	}
	return entries[0], true, nil
}

// Clear removes all entries. The usage counter is kept.
func (s *Service) Clear(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.save(ctx, []Entry{})
}

// IncrementUsage adds one to the usage counter and returns the new value.
func (s *Service) IncrementUsage(ctx context.Context) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	count, err := s.usage(ctx)
	if err != nil {
		return 0, err
	}
	count++
	if err := s.store.Set(ctx, UsageKey, []byte(strconv.FormatInt(count, 10))); err != nil {
		return 0, storeError(err, "set", UsageKey)
	}
	return count, nil
}

// Usage returns the current usage counter.
func (s *Service) Usage(ctx context.Context) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.usage(ctx)
}

func (s *Service) usage(ctx context.Context) (int64, error) {
	raw, found, err := s.store.Get(ctx, UsageKey)
	if err != nil {
		return 0, storeError(err, "get", UsageKey)
	}
	if !found || len(raw) == 0 {
		return 0, nil
	}
	count, err := strconv.ParseInt(string(raw), 10, 64)
	if err != nil {
		return 0, parseError(err, UsageKey)
	}
	return count, nil
}

func (s *Service) load(ctx context.Context) ([]Entry, error) {
	raw, found, err := s.store.Get(ctx, HistoryKey)
	if err != nil {
		return nil, storeError(err, "get", HistoryKey)
	}
	if !found || len(raw) == 0 {
		return []Entry{}, nil
	}

	var entries []Entry
	if err := json.Unmarshal(raw, &entries); err != nil {
		return nil, parseError(err, HistoryKey)
	}
	if entries == nil {
		entries = []Entry{}
	}
	return entries, nil
}

func (s *Service) save(ctx context.Context, entries []Entry) error {
	raw, err := json.Marshal(entries)
	if err != nil {
		return errors.New(fmt.Errorf("encode history: %w", err)).
			Component("history").
			Category(errors.CategoryFileParsing).
			Build()
	}
	if err := s.store.Set(ctx, HistoryKey, raw); err != nil {
		return storeError(err, "set", HistoryKey)
	}
	return nil
}

func storeError(err error, op, key string) error {
	return errors.New(fmt.Errorf("history store %s %q: %w", op, key, err)).
		Component("history").
		Category(errors.CategoryDatabase).
		Context("operation", op).
		Context("key", key).
		Build()
}

func parseError(err error, key string) error {
	return errors.New(fmt.Errorf("corrupt %q blob: %w", key, err)).
		Component("history").
		Category(errors.CategoryFileParsing).
		Context("key", key).
		Build()
}
