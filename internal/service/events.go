package service

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// Domain event types emitted when a practice activity completes.
const (
	EventAssessmentCompleted = "assessment.completed"
	EventInterviewEnded      = "interview.ended"
	EventResumeAnalyzed      = "resume.analyzed"
)

// DomainEvent is the envelope published for downstream consumers.
type DomainEvent struct {
	ID         string      `json:"id"`
	Type       string      `json:"type"`
	UserID     uint        `json:"user_id"`
	OccurredAt time.Time   `json:"occurred_at"`
	Data       interface{} `json:"data"`
}

// EventPublisher fans domain events out to the configured brokers.
type EventPublisher interface {
	Publish(ctx context.Context, eventType string, userID uint, data interface{}) error
}

type brokerEventPublisher struct {
	nats        *nats.Conn
	redis       *redis.Client
	subjectBase string
	channelBase string
	logger      zerolog.Logger
}

// NewEventPublisher publishes to NATS subjects and Redis channels derived from channelBase.
// Either broker may be nil.
func NewEventPublisher(natsConn *nats.Conn, redisClient *redis.Client, channelBase string, logger zerolog.Logger) EventPublisher {
	channelBase = strings.TrimSpace(channelBase)
	if channelBase == "" {
		channelBase = "prep"
	}

	return &brokerEventPublisher{
		nats:        natsConn,
		redis:       redisClient,
		subjectBase: strings.ReplaceAll(channelBase, ":", "."),
		channelBase: channelBase,
		logger:      logger.With().Str("component", "event_publisher").Logger(),
	}
}

func (p *brokerEventPublisher) Publish(ctx context.Context, eventType string, userID uint, data interface{}) error {
	event := DomainEvent{
		ID:         uuid.NewString(),
		Type:       eventType,
		UserID:     userID,
		OccurredAt: time.Now().UTC(),
		Data:       data,
	}

	payload, err := json.Marshal(event)
	if err != nil {
		return err
	}

	if p.redis != nil {
		if err := p.redis.Publish(ctx, p.channelBase+":events:"+eventType, payload).Err(); err != nil {
			return err
		}
	}

	if p.nats != nil {
		if err := p.nats.Publish(p.subjectBase+".events."+eventType, payload); err != nil {
			return err
		}
	}

	p.logger.Debug().Str("event", eventType).Uint("user_id", userID).Msg("domain event published")
	return nil
}

type noopEventPublisher struct{}

// NewNoopEventPublisher discards every event.
func NewNoopEventPublisher() EventPublisher {
	return noopEventPublisher{}
}

func (noopEventPublisher) Publish(context.Context, string, uint, interface{}) error {
	return nil
}
