// Package registry holds the process-wide catalog of dashboard modules.
// The catalog is populated once at startup and read-only afterwards; adding a
// module requires a restart. Registration order is the canonical order for
// every downstream sequence (activation, snapshots), which keeps snapshots
// stable across repeated aggregation passes for the same tenant.
package registry

import (
	"context"
	"fmt"

	"repairradar/internal/dashboard/models"
	id "repairradar/pkg/domain"
)

// Key identifies a module. Keys are opaque, stable strings defined once per
// module package and never created dynamically.
type Key string

// SummaryFetcher loads a module's metrics summary for one tenant. It must
// fail with a typed error on any unrecoverable condition rather than
// returning partial data.
type SummaryFetcher func(ctx context.Context, tenantID id.TenantID) (models.ModuleMetrics, error)

// Descriptor describes one module's participation in the dashboard.
type Descriptor struct {
	Key         Key
	DisplayName string

	// GlobalMetrics lists metric names this module contributes to the
	// cross-module aggregate. Global metrics with the same name are summed
	// across modules; all other metrics are namespaced by module key.
	GlobalMetrics []string

	Fetch SummaryFetcher
}

// DuplicateKeyError reports a second registration for an already known key.
// This is a programming error surfaced at startup, never a runtime condition.
type DuplicateKeyError struct {
	Key Key
}

func (e *DuplicateKeyError) Error() string {
	return fmt.Sprintf("module %q already registered", e.Key)
}

// Registry is the module descriptor set. Not safe for concurrent
// registration; register everything during startup, then only read.
type Registry struct {
	order       []Key
	descriptors map[Key]Descriptor
}

func New() *Registry {
	return &Registry{descriptors: make(map[Key]Descriptor)}
}

// Register adds a descriptor to the catalog. The key must be unique and the
// descriptor must carry a fetcher.
func (r *Registry) Register(d Descriptor) error {
	if d.Key == "" {
		return fmt.Errorf("module key cannot be empty")
	}
	if d.Fetch == nil {
		return fmt.Errorf("module %q has no summary fetcher", d.Key)
	}
	if _, exists := r.descriptors[d.Key]; exists {
		return &DuplicateKeyError{Key: d.Key}
	}
	r.descriptors[d.Key] = d
	r.order = append(r.order, d.Key)
	return nil
}

// MustRegister registers a descriptor and panics on failure. Intended for
// startup wiring where a duplicate key is fatal.
func (r *Registry) MustRegister(d Descriptor) {
	if err := r.Register(d); err != nil {
		panic(err)
	}
}

// Resolve returns the descriptor for a key, if known.
func (r *Registry) Resolve(key Key) (Descriptor, bool) {
	d, ok := r.descriptors[key]
	return d, ok
}

// Keys returns all registered keys in registration order. The returned slice
// is a copy; callers may not mutate registry state through it.
func (r *Registry) Keys() []Key {
	keys := make([]Key, len(r.order))
	copy(keys, r.order)
	return keys
}

// Len returns the number of registered modules.
func (r *Registry) Len() int {
	return len(r.order)
}
