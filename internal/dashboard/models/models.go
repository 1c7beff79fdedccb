// Package models defines the dashboard snapshot shapes shared by the
// registry, the aggregation engine, and the transport layer.
package models

import (
	"time"

	id "repairradar/pkg/domain"
)

// ModuleMetrics maps metric names to values. The mapping is open-ended:
// modules may report names not known in advance. An absent key means the
// module did not report that metric; a zero value means it reported zero.
type ModuleMetrics map[string]float64

// Clone returns an independent copy so snapshots stay immutable even if a
// provider reuses its map.
func (m ModuleMetrics) Clone() ModuleMetrics {
	if m == nil {
		return nil
	}
	out := make(ModuleMetrics, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

// FailureReason classifies a single module's fetch failure.
type FailureReason string

const (
	ReasonTimeout         FailureReason = "timeout"
	ReasonProviderError   FailureReason = "provider_error"
	ReasonMalformedResult FailureReason = "malformed_result"
)

// FetchFailure records one module's failed summary fetch. It is data inside
// the snapshot, not an error: a failing module never aborts aggregation.
type FetchFailure struct {
	Key        string        `json:"key"`
	Reason     FailureReason `json:"reason"`
	OccurredAt time.Time     `json:"occurred_at"`
}

// ModuleResult is one module's entry in a snapshot. Exactly one of Metrics
// or Failure is set.
type ModuleResult struct {
	Key         string        `json:"key"`
	DisplayName string        `json:"display_name"`
	Metrics     ModuleMetrics `json:"metrics,omitempty"`
	Failure     *FetchFailure `json:"failure,omitempty"`
}

// OK reports whether the module's fetch succeeded.
func (r ModuleResult) OK() bool { return r.Failure == nil }

// Snapshot is an immutable point-in-time aggregation result for one tenant's
// dashboard. A new snapshot is produced on every pass; the previous one is
// retired when superseded.
type Snapshot struct {
	TenantID    id.TenantID    `json:"tenant_id"`
	GeneratedAt time.Time      `json:"generated_at"`
	Modules     []ModuleResult `json:"modules"`
	Aggregate   ModuleMetrics  `json:"aggregate"`
}

// FailedModules returns the keys of modules whose fetch failed, in snapshot order.
func (s *Snapshot) FailedModules() []string {
	var failed []string
	for _, m := range s.Modules {
		if !m.OK() {
			failed = append(failed, m.Key)
		}
	}
	return failed
}
