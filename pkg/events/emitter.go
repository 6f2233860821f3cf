// Package events handles event emission for entity and share lifecycle changes
package events

import (
	"context"
	"encoding/json"

	"github.com/Gobusters/ectologger"
	"github.com/Ramsey-B/clover/pkg/tracing"

	"github.com/Ramsey-B/clover/pkg/kafka"
)

// SchemaVersion is the current event schema version
const SchemaVersion = "1.0"

// Lifecycle event types.
const (
	EntityCreated           = "entity.created"
	EntityUpdated           = "entity.updated"
	EntityDeleted           = "entity.deleted"
	EntityShared            = "entity.shared"
	EntityUnshared          = "entity.unshared"
	EntityPermissionChanged = "entity.permission_changed"
)

// Emitter publishes lifecycle events. A nil producer disables emission, so
// handlers can emit unconditionally. Emission is fire-and-forget: mutation
// outcomes never depend on it.
type Emitter struct {
	producer *kafka.Producer
	logger   ectologger.Logger
}

// NewEmitter creates a new event emitter
func NewEmitter(producer *kafka.Producer, logger ectologger.Logger) *Emitter {
	return &Emitter{
		producer: producer,
		logger:   logger,
	}
}

// Enabled reports whether a producer is configured
func (e *Emitter) Enabled() bool {
	return e != nil && e.producer != nil
}

// EmitEntityChanged emits an entity.created/updated/deleted event
func (e *Emitter) EmitEntityChanged(ctx context.Context, eventType, entityType, entityID, ownerID string, data any) {
	if !e.Enabled() {
		return
	}

	ctx, span := tracing.StartSpan(ctx, "events.Emitter.EmitEntityChanged")
	defer span.End()

	var payload json.RawMessage
	if data != nil {
		payload, _ = json.Marshal(data)
	}

	event := &kafka.EntityEvent{
		EventType:  eventType,
		EntityID:   entityID,
		EntityType: entityType,
		OwnerID:    ownerID,
		Data:       payload,
	}

	if err := e.producer.PublishEntityEvent(ctx, event); err != nil {
		e.logger.WithContext(ctx).WithError(err).Errorf("Failed to emit %s event", eventType)
	}
}

// EmitShareMutation emits an entity.shared/unshared/permission_changed event
func (e *Emitter) EmitShareMutation(ctx context.Context, eventType, entityType, entityID, actorID, targetID, permission string) {
	if !e.Enabled() {
		return
	}

	ctx, span := tracing.StartSpan(ctx, "events.Emitter.EmitShareMutation")
	defer span.End()

	event := &kafka.EntityEvent{
		EventType:  eventType,
		EntityID:   entityID,
		EntityType: entityType,
		ActorID:    actorID,
		TargetID:   targetID,
		Permission: permission,
	}

	if err := e.producer.PublishEntityEvent(ctx, event); err != nil {
		e.logger.WithContext(ctx).WithError(err).Errorf("Failed to emit %s event", eventType)
	}
}
