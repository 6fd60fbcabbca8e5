// Package catalog orchestrates source adapters, normalization and merging,
// and serves read-only queries over the resulting snapshot.
package catalog

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/sourcegraph/conc/iter"
	"golang.org/x/sync/singleflight"

	"github.com/everstacklabs/pricehub/internal/adapter"
	"github.com/everstacklabs/pricehub/internal/merge"
	"github.com/everstacklabs/pricehub/internal/model"
	"github.com/everstacklabs/pricehub/internal/normalize"
)

const (
	// DefaultTimeout bounds each adapter fetch.
	DefaultTimeout = 30 * time.Second
	// DefaultTTL is how long a snapshot is served before a lazy rebuild.
	DefaultTTL = time.Hour
)

// Recorder receives refresh telemetry.
type Recorder interface {
	ObserveSource(source string, records, malformed int, err error, d time.Duration)
	ObserveRefresh(records, canonical int, d time.Duration)
}

// Service owns the adapter registry, the merge engine and the current
// catalog snapshot. It is safe for concurrent use.
type Service struct {
	registry *adapter.Registry
	engine   *merge.Engine
	timeout  time.Duration
	ttl      time.Duration
	recorder Recorder
	now      func() time.Time

	snap  atomic.Pointer[snapshot]
	group singleflight.Group
	// dirty forces a rebuild on next use after the source set changes.
	dirty atomic.Bool
}

// Option configures a Service.
type Option func(*Service)

// WithTimeout sets the per-adapter fetch timeout.
func WithTimeout(d time.Duration) Option {
	return func(s *Service) { s.timeout = d }
}

// WithTTL sets the snapshot lifetime. Zero means a snapshot never expires.
func WithTTL(d time.Duration) Option {
	return func(s *Service) { s.ttl = d }
}

// WithRecorder reports refresh telemetry to r.
func WithRecorder(r Recorder) Option {
	return func(s *Service) { s.recorder = r }
}

// WithClock overrides time.Now.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// New creates a Service over registry using engine for merging.
func New(registry *adapter.Registry, engine *merge.Engine, opts ...Option) *Service {
	s := &Service{
		registry: registry,
		engine:   engine,
		timeout:  DefaultTimeout,
		ttl:      DefaultTTL,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// snapshot is one immutable catalog build.
type snapshot struct {
	records    []model.Record
	merged     []model.CanonicalModel
	singletons []model.CanonicalModel
	brands     []string
	report     *RefreshReport
	builtAt    time.Time
}

type sourceResult struct {
	info     adapter.SourceInfo
	raws     []adapter.RawModel
	err      error
	short    bool
	duration time.Duration
}

// Refresh rebuilds the catalog from every enabled source and swaps it in.
// Concurrent calls share one rebuild. Source failures are reported, not
// returned; an error means ctx ended before the rebuild finished.
func (s *Service) Refresh(ctx context.Context) (*RefreshReport, error) {
	return s.refresh(ctx, true)
}

// refresh rebuilds under singleflight. Without force the rebuild is skipped
// when a usable snapshot appeared while waiting. The shared rebuild runs
// detached from any one caller and is bounded by the per-adapter timeout;
// each caller stops waiting when its own ctx ends.
func (s *Service) refresh(ctx context.Context, force bool) (*RefreshReport, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("refresh aborted: %w", err)
	}

	shared := context.WithoutCancel(ctx)
	ch := s.group.DoChan("refresh", func() (any, error) {
		if !force {
			if snap := s.snap.Load(); s.usable(snap) {
				return snap.report, nil
			}
		}
		return s.rebuild(shared)
	})

	select {
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.(*RefreshReport), nil
	case <-ctx.Done():
		return nil, fmt.Errorf("refresh aborted: %w", ctx.Err())
	}
}

func (s *Service) rebuild(ctx context.Context) (*RefreshReport, error) {
	s.dirty.Store(false)
	start := s.now()
	report := &RefreshReport{RunID: uuid.NewString(), StartedAt: start}
	log := slog.With("run_id", report.RunID)

	adapters := s.registry.Enabled()
	mapper := iter.Mapper[adapter.Adapter, sourceResult]{MaxGoroutines: max(len(adapters), 1)}
	results := mapper.Map(adapters, func(a *adapter.Adapter) sourceResult {
		return s.fetch(ctx, *a)
	})

	// Results come back in registry order regardless of completion order.
	var records []model.Record
	for _, res := range results {
		sr := SourceReport{
			SourceID:      res.info.ID,
			DisplayName:   res.info.DisplayName,
			BelowExpected: res.short,
			DurationMS:    res.duration.Milliseconds(),
		}

		if res.err != nil {
			sr.Error = res.err.Error()
			report.Errors = append(report.Errors, res.err)
			log.Warn("source unavailable", "source", res.info.ID, "error", res.err)
		} else {
			batch, errs := normalize.NormalizeAll(res.raws, res.info, len(records))
			records = append(records, batch...)
			sr.Records = len(batch)
			sr.Malformed = len(errs)
			for _, e := range errs {
				log.Debug("skipping malformed record", "source", res.info.ID, "error", e)
			}
			log.Info("source fetched", "source", res.info.ID, "records", sr.Records, "malformed", sr.Malformed, "duration", res.duration)
		}

		if s.recorder != nil {
			s.recorder.ObserveSource(res.info.ID, sr.Records, sr.Malformed, res.err, res.duration)
		}
		report.Sources = append(report.Sources, sr)
	}

	snap := &snapshot{
		records:    records,
		merged:     s.engine.Merge(records),
		singletons: merge.Singletons(records),
		brands:     brandsOf(records),
		report:     report,
	}

	report.Records = len(records)
	report.Canonical = len(snap.merged)
	elapsed := s.now().Sub(start)
	report.DurationMS = elapsed.Milliseconds()
	snap.builtAt = s.now()

	s.snap.Store(snap)
	if s.recorder != nil {
		s.recorder.ObserveRefresh(report.Records, report.Canonical, elapsed)
	}
	log.Info("catalog refreshed", "records", report.Records, "canonical", report.Canonical, "failed_sources", len(report.Errors), "duration", elapsed)
	return report, nil
}

// fetch runs one adapter under its own timeout. The select bounds adapters
// that ignore ctx.
func (s *Service) fetch(parent context.Context, a adapter.Adapter) sourceResult {
	info := a.Info()
	start := time.Now()

	ctx, cancel := context.WithTimeout(parent, s.timeout)
	defer cancel()

	type outcome struct {
		raws []adapter.RawModel
		err  error
	}
	done := make(chan outcome, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- outcome{err: fmt.Errorf("panic: %v", r)}
			}
		}()
		raws, err := a.FetchModels(ctx)
		done <- outcome{raws: raws, err: err}
	}()

	var out outcome
	select {
	case out = <-done:
	case <-ctx.Done():
		out.err = ctx.Err()
	}

	res := sourceResult{info: info, raws: out.raws, duration: time.Since(start)}
	if out.err != nil {
		res.raws = nil
		res.err = &AdapterUnavailableError{SourceID: info.ID, Err: out.err}
		return res
	}

	if hc, ok := a.(adapter.HealthChecker); ok && len(out.raws) < hc.MinExpectedModels() {
		res.short = true
		slog.Warn("source returned fewer models than expected", "source", info.ID, "records", len(out.raws), "min_expected", hc.MinExpectedModels())
	}
	return res
}

func brandsOf(records []model.Record) []string {
	brands := make([]string, 0, len(records))
	for _, r := range records {
		brands = append(brands, r.Brand)
	}
	slices.Sort(brands)
	return slices.Compact(brands)
}

// current returns a usable snapshot, rebuilding lazily when none exists,
// the TTL has passed, or the source set changed. A failed rebuild falls back
// to the previous snapshot when there is one.
func (s *Service) current(ctx context.Context) (*snapshot, error) {
	snap := s.snap.Load()
	if s.usable(snap) {
		return snap, nil
	}

	if _, err := s.refresh(ctx, false); err != nil {
		if snap != nil {
			slog.Warn("catalog refresh failed, serving previous snapshot", "error", err)
			return snap, nil
		}
		return nil, err
	}
	return s.snap.Load(), nil
}

func (s *Service) usable(snap *snapshot) bool {
	if snap == nil || s.dirty.Load() {
		return false
	}
	return s.ttl <= 0 || s.now().Sub(snap.builtAt) < s.ttl
}

// ListModels returns the merged catalog, or every normalized record as its
// own model when mergeEnabled is false.
func (s *Service) ListModels(ctx context.Context, mergeEnabled bool) ([]model.CanonicalModel, error) {
	snap, err := s.current(ctx)
	if err != nil {
		return nil, err
	}
	if mergeEnabled {
		return slices.Clone(snap.merged), nil
	}
	return slices.Clone(snap.singletons), nil
}

// ListBrands returns the distinct brands of all normalized records, sorted.
func (s *Service) ListBrands(ctx context.Context) ([]string, error) {
	snap, err := s.current(ctx)
	if err != nil {
		return nil, err
	}
	return slices.Clone(snap.brands), nil
}

// ListModelsByBrand returns merged models whose brand is exactly brand.
func (s *Service) ListModelsByBrand(ctx context.Context, brand string) ([]model.CanonicalModel, error) {
	snap, err := s.current(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]model.CanonicalModel, 0)
	for _, m := range snap.merged {
		if m.Brand == brand {
			out = append(out, m)
		}
	}
	return out, nil
}

// GetProvidersForModel returns the offers of the merged model called name.
// An exact match wins over a case-insensitive one.
func (s *Service) GetProvidersForModel(ctx context.Context, name string) ([]model.ProviderOffer, error) {
	snap, err := s.current(ctx)
	if err != nil {
		return nil, err
	}

	fold := -1
	for i, m := range snap.merged {
		if m.Name == name {
			return slices.Clone(m.Providers), nil
		}
		if fold < 0 && strings.EqualFold(m.Name, name) {
			fold = i
		}
	}
	if fold >= 0 {
		return slices.Clone(snap.merged[fold].Providers), nil
	}
	return nil, fmt.Errorf("%w: %s", ErrModelNotFound, name)
}

// ListSources reports every registered source and whether it is enabled.
func (s *Service) ListSources() []adapter.SourceStatus {
	return s.registry.Status()
}

// ModelsBySource returns the records of one source as unmerged models.
func (s *Service) ModelsBySource(ctx context.Context, id string) ([]model.CanonicalModel, error) {
	if _, err := s.registry.Get(id); err != nil {
		return nil, err
	}
	snap, err := s.current(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]model.CanonicalModel, 0)
	for i, r := range snap.records {
		if r.SourceID() == id {
			out = append(out, snap.singletons[i])
		}
	}
	return out, nil
}

// SetSourceEnabled toggles a source. The next query rebuilds the catalog.
func (s *Service) SetSourceEnabled(id string, enabled bool) error {
	if err := s.registry.SetEnabled(id, enabled); err != nil {
		return err
	}
	s.dirty.Store(true)
	return nil
}

// Report returns the last refresh report, or nil before the first refresh.
func (s *Service) Report() *RefreshReport {
	if snap := s.snap.Load(); snap != nil {
		return snap.report
	}
	return nil
}

// Engine returns the merge engine in use.
func (s *Service) Engine() *merge.Engine { return s.engine }

// Source returns the status of one registered source.
func (s *Service) Source(id string) (adapter.SourceStatus, error) {
	for _, st := range s.registry.Status() {
		if st.ID == id {
			return st, nil
		}
	}
	return adapter.SourceStatus{}, fmt.Errorf("%w: %s", adapter.ErrUnknownSource, id)
}

// ReloadSource forces a rebuild after checking that id is registered.
func (s *Service) ReloadSource(ctx context.Context, id string) (*RefreshReport, error) {
	if _, err := s.registry.Get(id); err != nil {
		return nil, err
	}
	return s.Refresh(ctx)
}

// GroupExplanation lists the records one merged model was built from.
type GroupExplanation struct {
	Name    string   `json:"name"`
	Members []string `json:"members"`
}

// Explain reports, for each merged model, the source and listed name of
// every record that was folded into it.
func (s *Service) Explain(ctx context.Context) ([]GroupExplanation, error) {
	snap, err := s.current(ctx)
	if err != nil {
		return nil, err
	}
	groups := s.engine.Groups(snap.records)
	out := make([]GroupExplanation, 0, len(groups))
	for _, g := range groups {
		ex := GroupExplanation{Name: g.Key, Members: make([]string, 0, len(g.Members))}
		for _, i := range g.Members {
			r := snap.records[i]
			ex.Members = append(ex.Members, r.SourceID()+": "+r.Name)
		}
		out = append(out, ex)
	}
	return out, nil
}

// CheckSource runs the source's liveness probe when it has one.
func (s *Service) CheckSource(ctx context.Context, id string) error {
	a, err := s.registry.Get(id)
	if err != nil {
		return err
	}
	hc, ok := a.(adapter.HealthChecker)
	if !ok {
		return nil
	}
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	return hc.HealthCheck(ctx)
}
