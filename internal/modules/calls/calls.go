// Package calls tracks incoming maintenance calls and contributes the call
// summary to the dashboard.
package calls

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"repairradar/internal/dashboard/models"
	"repairradar/internal/events"
	"repairradar/internal/registry"
	id "repairradar/pkg/domain"
	dErrors "repairradar/pkg/domain-errors"
)

// ModuleKey identifies this module in activation configs and snapshots.
const ModuleKey registry.Key = "calls"

// Call is a reported maintenance issue. Calls start unresolved and are
// closed once handled, typically by opening a work order.
type Call struct {
	ID       id.CallID   `json:"id"`
	TenantID id.TenantID `json:"tenant_id"`
	Subject  string      `json:"subject"`
	Caller   string      `json:"caller,omitempty"`
	Resolved bool        `json:"resolved"`
	OpenedAt time.Time   `json:"opened_at"`
	ClosedAt *time.Time  `json:"closed_at,omitempty"`
}

// Store defines the persistence interface for calls. Mutate applies a change
// atomically and returns ErrNotFound when the call does not exist.
type Store interface {
	Save(ctx context.Context, call *Call) error
	Mutate(ctx context.Context, tenantID id.TenantID, callID id.CallID, fn func(call *Call) error) (*Call, error)
	Stats(ctx context.Context, tenantID id.TenantID) (total, unresolved int, err error)
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

func WithEmitter(emitter events.Emitter) Option {
	return func(s *Service) { s.emitter = emitter }
}

// Service owns the call lifecycle and the dashboard summary.
type Service struct {
	store   Store
	emitter events.Emitter
	logger  *slog.Logger
	now     func() time.Time
}

func NewService(store Store, opts ...Option) *Service {
	s := &Service{store: store, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// LogCall records a new unresolved call.
func (s *Service) LogCall(ctx context.Context, tenantID id.TenantID, subject, caller string) (*Call, error) {
	if tenantID.IsNil() {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "tenant ID cannot be empty")
	}
	if subject == "" {
		return nil, dErrors.New(dErrors.CodeValidation, "call subject cannot be empty")
	}

	call := &Call{
		ID:       id.CallID(uuid.New()),
		TenantID: tenantID,
		Subject:  subject,
		Caller:   caller,
		OpenedAt: s.now().UTC(),
	}
	if err := s.store.Save(ctx, call); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "save call")
	}

	s.emit(ctx, tenantID, "call.logged")
	return call, nil
}

// CloseCall marks a call resolved. Closing an already resolved call is
// idempotent; concurrent closes resolve the call once and emit one event.
func (s *Service) CloseCall(ctx context.Context, tenantID id.TenantID, callID id.CallID) (*Call, error) {
	var closed bool
	call, err := s.store.Mutate(ctx, tenantID, callID, func(call *Call) error {
		if call.Resolved {
			return nil
		}
		closedAt := s.now().UTC()
		call.Resolved = true
		call.ClosedAt = &closedAt
		closed = true
		return nil
	})
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "call not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "close call")
	}

	if closed {
		s.emit(ctx, tenantID, "call.closed")
	}
	return call, nil
}

// Summary produces the dashboard metrics for this module.
func (s *Service) Summary(ctx context.Context, tenantID id.TenantID) (models.ModuleMetrics, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	total, unresolved, err := s.store.Stats(ctx, tenantID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "count calls")
	}
	return models.ModuleMetrics{
		"total":      float64(total),
		"unresolved": float64(unresolved),
		"records":    float64(total),
	}, nil
}

// Descriptor returns this module's dashboard registration.
func (s *Service) Descriptor() registry.Descriptor {
	return registry.Descriptor{
		Key:           ModuleKey,
		DisplayName:   "Calls",
		GlobalMetrics: []string{"records"},
		Fetch:         s.Summary,
	}
}

func (s *Service) emit(ctx context.Context, tenantID id.TenantID, kind string) {
	if s.emitter == nil {
		return
	}
	s.emitter.Emit(ctx, events.NewEvent(tenantID, kind))
}
