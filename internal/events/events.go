// Package events carries domain change notifications from the module
// services to the live update channel. Deployments without Kafka use the
// in-process emitter; with Kafka configured, events round-trip through the
// domain-events topic so every replica learns about mutations made elsewhere.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"repairradar/internal/platform/kafka/consumer"
	"repairradar/internal/platform/kafka/producer"
	id "repairradar/pkg/domain"
)

// Event describes one domain mutation. The payload is deliberately thin: the
// dashboard recomputes from the stores, so consumers only need to know which
// tenant changed.
type Event struct {
	TenantID   id.TenantID `json:"tenant_id"`
	Kind       string      `json:"kind"`
	OccurredAt time.Time   `json:"occurred_at"`
}

// Emitter publishes domain events. Emit must not block domain operations.
type Emitter interface {
	Emit(ctx context.Context, event Event)
}

// EmitterFunc adapts a function to the Emitter interface.
type EmitterFunc func(ctx context.Context, event Event)

func (f EmitterFunc) Emit(ctx context.Context, event Event) { f(ctx, event) }

// Publisher receives change notifications for a tenant. Implemented by the
// live broker.
type Publisher interface {
	Publish(tenantID id.TenantID)
}

// InProcessEmitter delivers events straight to the publisher, skipping the
// wire. Used when Kafka is not configured.
type InProcessEmitter struct {
	pub Publisher
}

func NewInProcessEmitter(pub Publisher) *InProcessEmitter {
	return &InProcessEmitter{pub: pub}
}

func (e *InProcessEmitter) Emit(ctx context.Context, event Event) {
	e.pub.Publish(event.TenantID)
}

// KafkaProducer is the slice of the platform producer the emitter needs.
type KafkaProducer interface {
	ProduceAsync(msg *producer.Message) error
}

// KafkaEmitter publishes events to the domain-events topic, keyed by tenant
// so one tenant's events stay ordered within a partition.
type KafkaEmitter struct {
	producer KafkaProducer
	topic    string
	logger   *slog.Logger
}

func NewKafkaEmitter(p KafkaProducer, topic string, logger *slog.Logger) *KafkaEmitter {
	return &KafkaEmitter{producer: p, topic: topic, logger: logger}
}

func (e *KafkaEmitter) Emit(ctx context.Context, event Event) {
	payload, err := json.Marshal(event)
	if err != nil {
		if e.logger != nil {
			e.logger.ErrorContext(ctx, "marshal domain event failed",
				"kind", event.Kind,
				"error", err,
			)
		}
		return
	}

	err = e.producer.ProduceAsync(&producer.Message{
		Topic: e.topic,
		Key:   []byte(event.TenantID.String()),
		Value: payload,
	})
	if err != nil && e.logger != nil {
		e.logger.ErrorContext(ctx, "produce domain event failed",
			"kind", event.Kind,
			"tenant_id", event.TenantID,
			"error", err,
		)
	}
}

// DashboardHandler consumes domain events and pokes the live broker. Malformed
// records are logged and skipped; redelivering them would never succeed.
type DashboardHandler struct {
	pub    Publisher
	logger *slog.Logger
}

func NewDashboardHandler(pub Publisher, logger *slog.Logger) *DashboardHandler {
	return &DashboardHandler{pub: pub, logger: logger}
}

// Handle implements consumer.Handler.
func (h *DashboardHandler) Handle(ctx context.Context, msg *consumer.Message) error {
	var event Event
	if err := json.Unmarshal(msg.Value, &event); err != nil {
		if h.logger != nil {
			h.logger.WarnContext(ctx, "skipping malformed domain event",
				"topic", msg.Topic,
				"offset", msg.Offset,
				"error", err,
			)
		}
		return nil
	}

	if event.TenantID.IsNil() {
		if h.logger != nil {
			h.logger.WarnContext(ctx, "skipping domain event without tenant",
				"kind", event.Kind,
				"offset", msg.Offset,
			)
		}
		return nil
	}

	h.pub.Publish(event.TenantID)
	return nil
}

// NewEvent stamps an event with the current time.
func NewEvent(tenantID id.TenantID, kind string) Event {
	return Event{
		TenantID:   tenantID,
		Kind:       kind,
		OccurredAt: time.Now().UTC(),
	}
}

var _ consumer.Handler = (*DashboardHandler)(nil)

// Ensure both emitters satisfy the interface.
var (
	_ Emitter = (*InProcessEmitter)(nil)
	_ Emitter = (*KafkaEmitter)(nil)
)

// String implements fmt.Stringer for log readability.
func (e Event) String() string {
	return fmt.Sprintf("%s tenant=%s", e.Kind, e.TenantID)
}
