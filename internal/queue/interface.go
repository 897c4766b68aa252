package queue

import (
	"context"
	"time"
)

// Publisher sends schedule events
type Publisher interface {
	Publish(ctx context.Context, event *Event) error
}

// MessageInterface is a delivered event awaiting acknowledgement
type MessageInterface interface {
	Ack() error
	Nack(requeue bool) error
	GetEvent() *Event
}

// EventQueue is a durable publisher that can also be consumed
type EventQueue interface {
	Publisher

	// Consume delivers messages until ctx is cancelled. The caller acknowledges each message.
	// Prefetch controls how many unacknowledged messages the consumer can hold.
	Consume(ctx context.Context, prefetchCount int) (<-chan *Message, <-chan error, error)

	// Close closes the queue connection
	Close() error

	// HealthCheck verifies the queue connection is healthy
	HealthCheck(ctx context.Context) error
}

// DLQPurger removes dead-lettered messages older than retention
type DLQPurger interface {
	PurgeOlderThan(ctx context.Context, retention time.Duration) (int, error)
}

// NoopPublisher drops every event. Used when no broker is configured.
type NoopPublisher struct{}

// Publish discards event
func (NoopPublisher) Publish(context.Context, *Event) error { return nil }

// HealthCheck always succeeds
func (NoopPublisher) HealthCheck(context.Context) error { return nil }

// Close is a no-op
func (NoopPublisher) Close() error { return nil }
