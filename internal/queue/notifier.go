package queue

import (
	"context"
	"reflect"
	"sync"

	"github.com/benvon/whatodo/internal/models"
)

// SourceEdit marks an event raised by a manual schedule change
const SourceEdit = "edit"

// ScheduleNotifier turns schedule changes into events. An event that repeats
// the last one sent (same type, date and blocks) is dropped, so a snapshot-only
// change or a commit reported by both the store and the orchestrator goes out once.
type ScheduleNotifier struct {
	publisher Publisher

	mu         sync.Mutex
	sent       bool
	lastType   EventType
	lastDate   string
	lastBlocks []models.ScheduleBlock
}

// NewScheduleNotifier wraps publisher
func NewScheduleNotifier(publisher Publisher) *ScheduleNotifier {
	if publisher == nil {
		publisher = NoopPublisher{}
	}
	return &ScheduleNotifier{publisher: publisher}
}

// Publish sends event unless it repeats the last one sent. A failed publish
// is not remembered, so the same change is tried again next time.
func (n *ScheduleNotifier) Publish(ctx context.Context, event *Event) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.repeats(event) {
		return nil
	}
	if err := n.publisher.Publish(ctx, event); err != nil {
		return err
	}
	n.sent = true
	n.lastType = event.Type
	n.lastDate = event.Date
	n.lastBlocks = models.CloneBlocks(event.Blocks)
	return nil
}

// Changed publishes state as committed, or as cleared when it has no blocks.
// A schedule without a date was never exported and is skipped.
func (n *ScheduleNotifier) Changed(ctx context.Context, state models.ScheduleState) error {
	if state.Date == "" {
		return nil
	}
	eventType := EventScheduleCommitted
	if len(state.Blocks) == 0 {
		eventType = EventScheduleCleared
	}
	return n.Publish(ctx, NewEvent(eventType, SourceEdit, state.Date, state.Blocks))
}

func (n *ScheduleNotifier) repeats(event *Event) bool {
	if !n.sent || event.Type != n.lastType || event.Date != n.lastDate {
		return false
	}
	if len(event.Blocks) == 0 && len(n.lastBlocks) == 0 {
		return true
	}
	return reflect.DeepEqual(event.Blocks, n.lastBlocks)
}
