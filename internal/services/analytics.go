package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"

	"ecommerce-dashboard/internal/dataset"
	"ecommerce-dashboard/internal/filter"
	"ecommerce-dashboard/internal/normalize"
	"ecommerce-dashboard/internal/observability"
)

const defaultCacheSize = 4

var ErrNotLoaded = errors.New("no dataset loaded")

// Session is the state of one loaded dataset.
type Session struct {
	Dataset     *dataset.Dataset
	Diagnostics normalize.Diagnostics
	Source      string
	Fingerprint string
	LoadedAt    time.Time
}

// Defaults apply when a request leaves a parameter unset.
type Defaults struct {
	TopN     int
	ZeroFill bool
}

type normalized struct {
	ds   *dataset.Dataset
	diag normalize.Diagnostics
}

// Analytics answers dashboard questions against the current session. The
// session's dataset is immutable; loading swaps it under the lock. The
// normalization memo is keyed by raw fingerprint alone, since the normalizer
// is fixed once New returns.
type Analytics struct {
	mu         sync.RWMutex
	session    *Session
	normalizer *normalize.Normalizer
	memo       *lru.Cache[string, normalized]
	loadOpts   dataset.LoadOptions
	defaults   Defaults
	logger     *slog.Logger

	loads    atomic.Int64
	memoHits atomic.Int64
	queries  atomic.Int64
}

type Option func(*Analytics)

func WithLogger(logger *slog.Logger) Option {
	return func(a *Analytics) { a.logger = logger }
}

func WithNormalizer(n *normalize.Normalizer) Option {
	return func(a *Analytics) { a.normalizer = n }
}

func WithCacheSize(size int) Option {
	return func(a *Analytics) {
		if size <= 0 {
			size = defaultCacheSize
		}
		a.memo, _ = lru.New[string, normalized](size)
	}
}

func WithDefaults(d Defaults) Option {
	return func(a *Analytics) { a.defaults = d }
}

func WithLoadOptions(opts dataset.LoadOptions) Option {
	return func(a *Analytics) { a.loadOpts = opts }
}

func NewAnalytics(opts ...Option) *Analytics {
	a := &Analytics{
		logger:   slog.Default(),
		defaults: Defaults{TopN: filter.DefaultTopN, ZeroFill: true},
	}
	for _, opt := range opts {
		opt(a)
	}
	if a.normalizer == nil {
		a.normalizer = normalize.New(a.logger)
	}
	if a.memo == nil {
		a.memo, _ = lru.New[string, normalized](defaultCacheSize)
	}
	return a
}

// LoadFromFile reads and normalizes a dataset file and makes it the current
// session. Any error leaves the previous session in place.
func (a *Analytics) LoadFromFile(ctx context.Context, path string) error {
	ctx, span := observability.StartSpan(ctx, "dataset.load")
	defer span.Finish()
	span.SetTag("path", path)

	start := time.Now()
	a.logger.Info("loading dataset", "path", path)

	raw, err := dataset.LoadFile(ctx, path, a.loadOpts)
	if err != nil {
		span.SetError(err)
		return fmt.Errorf("load dataset: %w", err)
	}
	if err := a.load(ctx, raw, path); err != nil {
		span.SetError(err)
		return err
	}

	count := raw.Len()
	duration := time.Since(start)
	a.logger.Info("dataset loading complete",
		"records", count,
		"duration", duration,
		"rate", fmt.Sprintf("%.0f records/sec", float64(count)/duration.Seconds()))
	return nil
}

// SetData normalizes an in-memory table and makes it the current session.
func (a *Analytics) SetData(ctx context.Context, raw *dataset.RawTable) error {
	return a.load(ctx, raw, "memory")
}

func (a *Analytics) load(ctx context.Context, raw *dataset.RawTable, source string) error {
	fp := raw.Fingerprint()

	n, ok := a.memo.Get(fp)
	if ok {
		a.memoHits.Add(1)
		a.logger.Debug("normalization memo hit", "fingerprint", fp[:12])
	} else {
		_, span := observability.StartSpan(ctx, "dataset.normalize")
		ds, diag, err := a.normalizer.Normalize(ctx, raw)
		span.Finish()
		if err != nil {
			return fmt.Errorf("normalize dataset: %w", err)
		}
		n = normalized{ds: ds, diag: diag}
		a.memo.Add(fp, n)
	}

	if n.diag.InvalidTimestamps > 0 || n.diag.PriceParseFailures > 0 || len(n.diag.MissingColumns) > 0 {
		a.logger.Warn("dataset has data quality issues",
			"invalid_timestamps", n.diag.InvalidTimestamps,
			"price_parse_failures", n.diag.PriceParseFailures,
			"missing_columns", n.diag.MissingColumns)
	}

	a.mu.Lock()
	a.session = &Session{
		Dataset:     n.ds,
		Diagnostics: n.diag,
		Source:      source,
		Fingerprint: fp,
		LoadedAt:    time.Now(),
	}
	a.mu.Unlock()

	a.loads.Add(1)
	return nil
}

// Session returns the current session or ErrNotLoaded.
func (a *Analytics) Session() (*Session, error) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	if a.session == nil {
		return nil, ErrNotLoaded
	}
	return a.session, nil
}

func (a *Analytics) Loaded() bool {
	_, err := a.Session()
	return err == nil
}

func (a *Analytics) Defaults() Defaults { return a.defaults }

// Capabilities reports which semantic columns the loaded dataset carries.
func (a *Analytics) Capabilities() (dataset.Capabilities, error) {
	s, err := a.Session()
	if err != nil {
		return nil, err
	}
	return s.Dataset.Capabilities(), nil
}

func (a *Analytics) Diagnostics() (normalize.Diagnostics, error) {
	s, err := a.Session()
	if err != nil {
		return normalize.Diagnostics{}, err
	}
	return s.Diagnostics, nil
}

// selection validates the filters and applies them to the full dataset.
func (a *Analytics) selection(f filter.Filters) (*dataset.Dataset, *dataset.View, error) {
	s, err := a.Session()
	if err != nil {
		return nil, nil, err
	}
	view, err := filter.Apply(s.Dataset.All(), f)
	if err != nil {
		return nil, nil, err
	}
	a.queries.Add(1)
	return s.Dataset, view, nil
}

// Utility method for monitoring
func (a *Analytics) Stats() map[string]any {
	stats := map[string]any{
		"loaded":    false,
		"loads":     a.loads.Load(),
		"memo_hits": a.memoHits.Load(),
		"memo_size": a.memo.Len(),
		"queries":   a.queries.Load(),
	}
	s, err := a.Session()
	if err != nil {
		return stats
	}
	stats["loaded"] = true
	stats["source"] = s.Source
	stats["record_count"] = s.Dataset.Len()
	stats["last_processed"] = s.LoadedAt
	stats["time_column"] = s.Dataset.TimeColumn()
	stats["diagnostics"] = s.Diagnostics
	return stats
}
