package queue

import (
	"time"

	"github.com/benvon/whatodo/internal/models"
	"github.com/google/uuid"
)

// EventType names what happened to a schedule
type EventType string

const (
	// EventScheduleCommitted carries the live schedule after a generation, chat edit or manual edit
	EventScheduleCommitted EventType = "schedule.committed"
	// EventScheduleCleared is published when the live schedule is emptied
	EventScheduleCleared EventType = "schedule.cleared"
)

// DefaultMaxRetries bounds transient redeliveries of an event
const DefaultMaxRetries = 3

// Event carries a committed schedule to downstream consumers
type Event struct {
	ID         uuid.UUID              `json:"id"`
	Type       EventType              `json:"type"`
	Source     string                 `json:"source,omitempty"` // generate, regenerate, chat, edit
	Date       string                 `json:"date"`
	Blocks     []models.ScheduleBlock `json:"blocks"`
	NotAfter   *time.Time             `json:"not_after,omitempty"`
	CreatedAt  time.Time              `json:"created_at"`
	RetryCount int                    `json:"retry_count"`
	MaxRetries int                    `json:"max_retries"`
}

// NewEvent creates an event carrying a copy of blocks
func NewEvent(eventType EventType, source, date string, blocks []models.ScheduleBlock) *Event {
	return &Event{
		ID:         uuid.New(),
		Type:       eventType,
		Source:     source,
		Date:       date,
		Blocks:     models.CloneBlocks(blocks),
		CreatedAt:  time.Now(),
		MaxRetries: DefaultMaxRetries,
	}
}

// IsExpired checks if the event is past its NotAfter deadline
func (e *Event) IsExpired(now time.Time) bool {
	return e.NotAfter != nil && now.After(*e.NotAfter)
}

// CanRetry checks if the event can be retried
func (e *Event) CanRetry() bool {
	return e.RetryCount < e.MaxRetries
}

// IncrementRetry increments the retry count
func (e *Event) IncrementRetry() {
	e.RetryCount++
}
