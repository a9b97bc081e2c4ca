// Package events publishes feedback lifecycle events for downstream consumers.
package events

import (
	"context"
	"time"

	"reviewflow/internal/services/dto"
)

const (
	TypeFeedbackCreated = "feedback.created"
	TypeFeedbackDeleted = "feedback.deleted"
)

type Event struct {
	Type       string               `json:"type"`
	Feedback   dto.FeedbackResponse `json:"feedback"`
	OccurredAt time.Time            `json:"occurredAt"`
}

//go:generate mockgen -destination=../mocks/mock_publisher.go -package=mocks reviewflow/internal/events Publisher

type Publisher interface {
	Publish(ctx context.Context, event Event) error
	Close() error
}

// Config - пустой Brokers отключает публикацию
type Config struct {
	Brokers []string
	Topic   string
}

func NewPublisher(cfg Config) (Publisher, error) {
	if len(cfg.Brokers) == 0 {
		return NoopPublisher{}, nil
	}
	return NewKafkaPublisher(cfg)
}

type NoopPublisher struct{}

func (NoopPublisher) Publish(context.Context, Event) error { return nil }
func (NoopPublisher) Close() error                         { return nil }
