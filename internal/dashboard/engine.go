// Package dashboard implements the tenant dashboard aggregation runtime:
// concurrent fan-out over the tenant's active modules, per-module failure
// isolation, and deterministic merging into an immutable snapshot.
package dashboard

import (
	"context"
	"errors"
	"log/slog"
	"math"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"repairradar/internal/dashboard/models"
	"repairradar/internal/platform/metrics"
	"repairradar/internal/registry"
	id "repairradar/pkg/domain"
	dErrors "repairradar/pkg/domain-errors"
)

// Engine runs one aggregation pass per call. It is stateless and safe for
// concurrent use across tenants.
type Engine struct {
	fetchTimeout time.Duration
	logger       *slog.Logger
	metrics      *metrics.Metrics
	tracer       trace.Tracer
	now          func() time.Time
}

type EngineOption func(e *Engine)

func WithLogger(logger *slog.Logger) EngineOption {
	return func(e *Engine) { e.logger = logger }
}

func WithMetrics(m *metrics.Metrics) EngineOption {
	return func(e *Engine) { e.metrics = m }
}

// WithClock overrides the snapshot timestamp source. Used in tests.
func WithClock(now func() time.Time) EngineOption {
	return func(e *Engine) { e.now = now }
}

func NewEngine(fetchTimeout time.Duration, opts ...EngineOption) *Engine {
	e := &Engine{
		fetchTimeout: fetchTimeout,
		tracer:       otel.Tracer("repairradar/dashboard"),
		now:          time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// fetchOutcome travels from a fetch goroutine to the collector over a
// buffered channel of capacity one, so a straggler that completes after the
// deadline parks its result there and is discarded.
type fetchOutcome struct {
	metrics models.ModuleMetrics
	err     error
}

// Aggregate fans out over the active modules concurrently and assembles a
// snapshot. Every fetch is isolated: a timeout, a typed provider error, a
// malformed result, or a panic becomes a FetchFailure entry for that module
// and never aborts siblings. Snapshot ordering follows the input order, not
// fetch completion order, so identical inputs yield reproducible snapshots.
//
// Fetchers must honor context cancellation; the per-module deadline is a hard
// cancellation boundary and results arriving after it are discarded.
func (e *Engine) Aggregate(ctx context.Context, tenantID id.TenantID, active []registry.Descriptor) *models.Snapshot {
	start := e.now()

	ctx, span := e.tracer.Start(ctx, "dashboard.aggregate", trace.WithAttributes(
		attribute.String("tenant_id", tenantID.String()),
		attribute.Int("modules", len(active)),
	))
	defer span.End()

	fetchCtx, cancel := context.WithTimeout(ctx, e.fetchTimeout)
	defer cancel()

	outcomes := make([]chan fetchOutcome, len(active))
	for i, d := range active {
		outcomes[i] = make(chan fetchOutcome, 1)
		go e.fetchModule(fetchCtx, d, tenantID, outcomes[i])
	}

	snap := &models.Snapshot{
		TenantID:    tenantID,
		GeneratedAt: start,
		Modules:     make([]models.ModuleResult, len(active)),
		Aggregate:   models.ModuleMetrics{},
	}

	// Collect in input order. All fetches share one absolute deadline, so the
	// total wait is bounded by the fetch timeout, not the sum of latencies.
	for i, d := range active {
		select {
		case out := <-outcomes[i]:
			snap.Modules[i] = e.moduleResult(ctx, d, out)
		case <-fetchCtx.Done():
			// The result may have landed just as the deadline fired.
			select {
			case out := <-outcomes[i]:
				snap.Modules[i] = e.moduleResult(ctx, d, out)
			default:
				snap.Modules[i] = e.failedResult(ctx, d, models.ReasonTimeout, context.DeadlineExceeded)
			}
		}
	}

	e.merge(snap, active)

	elapsed := e.now().Sub(start)
	if e.metrics != nil {
		e.metrics.ObserveAggregationLatency(elapsed)
	}
	if failed := snap.FailedModules(); len(failed) > 0 {
		span.SetAttributes(attribute.StringSlice("failed_modules", failed))
	}
	if e.logger != nil {
		e.logger.DebugContext(ctx, "aggregation pass complete",
			"tenant_id", tenantID,
			"modules", len(active),
			"failed", len(snap.FailedModules()),
			"duration_ms", elapsed.Milliseconds(),
		)
	}
	return snap
}

// fetchModule invokes one module's summary fetcher, classifying any failure.
// Panics inside a provider are converted to provider errors.
func (e *Engine) fetchModule(ctx context.Context, d registry.Descriptor, tenantID id.TenantID, out chan<- fetchOutcome) {
	defer func() {
		if r := recover(); r != nil {
			if e.logger != nil {
				e.logger.ErrorContext(ctx, "module fetcher panicked",
					"module", string(d.Key),
					"tenant_id", tenantID,
					"panic", r,
				)
			}
			out <- fetchOutcome{err: dErrors.New(dErrors.CodeInternal, "module fetcher panicked")}
		}
	}()

	start := time.Now()
	m, err := d.Fetch(ctx, tenantID)
	if e.metrics != nil {
		e.metrics.ObserveModuleFetchLatency(string(d.Key), time.Since(start))
	}
	if err == nil {
		if err = validateMetrics(m); err == nil {
			// Clone so a provider reusing its map cannot mutate the snapshot.
			out <- fetchOutcome{metrics: m.Clone()}
			return
		}
	}
	out <- fetchOutcome{err: err}
}

func (e *Engine) moduleResult(ctx context.Context, d registry.Descriptor, out fetchOutcome) models.ModuleResult {
	if out.err != nil {
		return e.failedResult(ctx, d, classifyFailure(out.err), out.err)
	}
	return models.ModuleResult{
		Key:         string(d.Key),
		DisplayName: d.DisplayName,
		Metrics:     out.metrics,
	}
}

func (e *Engine) failedResult(ctx context.Context, d registry.Descriptor, reason models.FailureReason, err error) models.ModuleResult {
	if e.metrics != nil {
		e.metrics.IncrementModuleFetchFailed(string(d.Key), string(reason))
	}
	if e.logger != nil {
		e.logger.WarnContext(ctx, "module summary fetch failed",
			"module", string(d.Key),
			"reason", string(reason),
			"error", err,
		)
	}
	return models.ModuleResult{
		Key:         string(d.Key),
		DisplayName: d.DisplayName,
		Failure: &models.FetchFailure{
			Key:        string(d.Key),
			Reason:     reason,
			OccurredAt: e.now(),
		},
	}
}

// merge computes the cross-module aggregate. Metric names are namespaced by
// module key to avoid collisions, except names the descriptor declares
// global: those are summed across modules, with absence treated as zero only
// here at merge time, never at the source.
func (e *Engine) merge(snap *models.Snapshot, active []registry.Descriptor) {
	for i, result := range snap.Modules {
		if !result.OK() {
			continue
		}
		global := make(map[string]bool, len(active[i].GlobalMetrics))
		for _, name := range active[i].GlobalMetrics {
			global[name] = true
		}
		for name, value := range result.Metrics {
			if global[name] {
				snap.Aggregate[name] += value
			} else {
				snap.Aggregate[result.Key+"."+name] = value
			}
		}
	}
}

// classifyFailure maps a fetch error to a failure reason.
func classifyFailure(err error) models.FailureReason {
	switch {
	case errors.Is(err, context.DeadlineExceeded) || dErrors.HasCode(err, dErrors.CodeTimeout):
		return models.ReasonTimeout
	case dErrors.HasCode(err, dErrors.CodeMalformedResult):
		return models.ReasonMalformedResult
	default:
		return models.ReasonProviderError
	}
}

// validateMetrics rejects values the merge rule cannot handle.
func validateMetrics(m models.ModuleMetrics) error {
	for name, v := range m {
		if name == "" {
			return dErrors.New(dErrors.CodeMalformedResult, "empty metric name")
		}
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return dErrors.New(dErrors.CodeMalformedResult, "non-finite metric value: "+name)
		}
	}
	return nil
}
