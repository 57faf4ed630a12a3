package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/dzsentinel/incident_reporting_system/internal/models"
)

const (
	// eventQueueKey is the Redis list drained by the webhook delivery worker.
	eventQueueKey = "incident_events"
	// eventChannel is the Redis pub/sub channel feeding live SSE streams.
	eventChannel = "incident_events:stream"
)

// Lifecycle event types emitted by the incident service.
const (
	TypeIncidentCreated  = "incident.created"
	TypeIncidentUpdated  = "incident.updated"
	TypeIncidentVerified = "incident.verified"
	TypeIncidentDeleted  = "incident.deleted"
)

// Event is a lifecycle notification. Deleted events carry only the incident
// id; the record is already gone when consumers receive them, so consumers
// must tolerate a missing incident.
type Event struct {
	Type       string           `json:"type"`
	Timestamp  time.Time        `json:"timestamp"`
	Incident   *models.Incident `json:"incident,omitempty"`
	IncidentID string           `json:"incidentId,omitempty"`
	UserID     string           `json:"userId,omitempty"`
	UserRole   models.Role      `json:"userRole,omitempty"`
	VerifiedBy string           `json:"verifiedBy,omitempty"`
}

// Publisher is the contract for emitting lifecycle events. Emission is
// fire-and-forget from the caller's point of view: a failed publish must
// never fail the mutating operation.
type Publisher interface {
	Publish(ctx context.Context, event Event) error
}

// RedisPublisher publishes events to the delivery queue and the live
// pub/sub channel.
type RedisPublisher struct {
	redisClient *redis.Client
}

func NewRedisPublisher(client *redis.Client) *RedisPublisher {
	return &RedisPublisher{
		redisClient: client,
	}
}

// Publish pushes the event onto the worker queue and broadcasts it to
// stream subscribers. A broadcast with no subscribers is not an error.
func (p *RedisPublisher) Publish(ctx context.Context, event Event) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	if err := p.redisClient.LPush(ctx, eventQueueKey, payload).Err(); err != nil {
		return fmt.Errorf("failed to enqueue event: %w", err)
	}

	if err := p.redisClient.Publish(ctx, eventChannel, payload).Err(); err != nil {
		return fmt.Errorf("failed to broadcast event: %w", err)
	}
	return nil
}
