// Package engine is the single entry point to every analysis. It owns the
// graph store, builds the analyzers from Settings, and wraps each operation
// with a deadline, a trace span and Prometheus metrics.
package engine

import (
	"context"
	"sync/atomic"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/moolen/riskgraph/internal/blastradius"
	"github.com/moolen/riskgraph/internal/cost"
	"github.com/moolen/riskgraph/internal/dependency"
	"github.com/moolen/riskgraph/internal/graph"
	"github.com/moolen/riskgraph/internal/logging"
	"github.com/moolen/riskgraph/internal/risk"
	"github.com/moolen/riskgraph/internal/riskerr"
	"github.com/moolen/riskgraph/internal/rootcause"
	"github.com/moolen/riskgraph/internal/spof"
	"github.com/moolen/riskgraph/internal/timing"
	"github.com/moolen/riskgraph/internal/trend"
)

// analyzers is one consistent generation of analysis components. An
// operation loads it once so a concurrent Reload never mixes settings.
type analyzers struct {
	settings  Settings
	resolver  *dependency.Resolver
	blast     *blastradius.Calculator
	spof      *spof.Detector
	scorer    *risk.Scorer
	calendar  *timing.Calendar
	cost      *cost.Estimator
	trend     *trend.Analyzer
	rootcause *rootcause.Correlator
}

func buildAnalyzers(store graph.Store, settings Settings) (*analyzers, error) {
	if err := settings.Validate(); err != nil {
		return nil, riskerr.Wrap(riskerr.KindInvalidParameter, err, "invalid settings")
	}
	calendar, err := timing.NewCalendar(settings.Timing)
	if err != nil {
		return nil, riskerr.Wrap(riskerr.KindInvalidParameter, err, "invalid timing settings")
	}
	resolver := dependency.NewResolver(store, settings.Dependency)
	blast := blastradius.NewCalculator(resolver, settings.BlastRadius)
	return &analyzers{
		settings:  settings,
		resolver:  resolver,
		blast:     blast,
		spof:      spof.NewDetector(resolver, blast, settings.SPOF),
		scorer:    risk.NewScorer(resolver, blast, settings.Risk),
		calendar:  calendar,
		cost:      cost.NewEstimator(settings.Cost),
		trend:     trend.NewAnalyzer(settings.Trend),
		rootcause: rootcause.NewCorrelator(resolver, settings.RootCause),
	}, nil
}

// Engine runs analyses against a graph store. It is safe for concurrent use.
type Engine struct {
	store   graph.Store
	metrics *Metrics
	tracer  trace.Tracer
	now     func() time.Time
	logger  *logging.Logger
	current atomic.Pointer[analyzers]
}

// Option customizes an Engine.
type Option func(*Engine)

// WithMetrics records operation metrics in m.
func WithMetrics(m *Metrics) Option {
	return func(e *Engine) { e.metrics = m }
}

// WithClock replaces the wall clock used for "now" in time-aware analyses.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

// New creates an engine over store.
func New(store graph.Store, settings Settings, opts ...Option) (*Engine, error) {
	a, err := buildAnalyzers(store, settings)
	if err != nil {
		return nil, err
	}
	e := &Engine{
		store:  store,
		tracer: otel.Tracer("riskgraph/engine"),
		now:    time.Now,
		logger: logging.GetLogger("engine"),
	}
	for _, opt := range opts {
		opt(e)
	}
	e.current.Store(a)
	return e, nil
}

// Reload swaps in new settings. Operations already running finish with the
// settings they started with. Invalid settings leave the engine unchanged.
func (e *Engine) Reload(settings Settings) error {
	a, err := buildAnalyzers(e.store, settings)
	if err != nil {
		e.logger.Warn("Rejected settings reload: %v", err)
		return err
	}
	e.current.Store(a)
	e.logger.Info("Analysis settings reloaded")
	return nil
}

// Settings returns the active settings.
func (e *Engine) Settings() Settings {
	return e.current.Load().settings
}

// Store returns the graph store.
func (e *Engine) Store() graph.Store {
	return e.store
}

// Industries lists the industries the cost model knows.
func (e *Engine) Industries() []string {
	return e.current.Load().cost.Industries()
}

// operation is the per-call state shared by begin and finish.
type operation struct {
	name    string
	span    trace.Span
	cancel  context.CancelFunc
	started time.Time
}

// begin starts a span, applies the operation timeout and pins the current
// analyzers.
func (e *Engine) begin(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, *analyzers, *operation) {
	a := e.current.Load()
	ctx, span := e.tracer.Start(ctx, "engine."+name, trace.WithAttributes(attrs...))
	cancel := context.CancelFunc(func() {})
	if _, ok := ctx.Deadline(); !ok && a.settings.Engine.OperationTimeout > 0 {
		ctx, cancel = context.WithTimeout(ctx, a.settings.Engine.OperationTimeout)
	}
	return ctx, a, &operation{name: name, span: span, cancel: cancel, started: time.Now()}
}

// finish ends the span and records metrics. partial marks a result returned
// alongside a Timeout error.
func (e *Engine) finish(ctx context.Context, op *operation, err error, partial bool) {
	op.cancel()
	e.metrics.observe(op.name, time.Since(op.started), err, partial)
	if err != nil {
		kind := riskerr.KindOf(err)
		op.span.SetAttributes(attribute.String("error.kind", string(kind)), attribute.Bool("partial", partial))
		op.span.RecordError(err)
		op.span.SetStatus(codes.Error, err.Error())
		if kind == riskerr.KindInternal || kind == riskerr.KindUpstreamUnavailable {
			e.logger.WithContext(ctx).ErrorWithErr("Operation %s failed", err, op.name)
		} else {
			e.logger.WithContext(ctx).Debug("Operation %s: %v", op.name, err)
		}
	}
	op.span.End()
}
