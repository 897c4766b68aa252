package queue

import (
	"context"
	"errors"
	"testing"

	"github.com/benvon/whatodo/internal/models"
	"github.com/google/uuid"
)

type capturingPublisher struct {
	err    error
	events []*Event
}

func (p *capturingPublisher) Publish(_ context.Context, e *Event) error {
	if p.err != nil {
		return p.err
	}
	p.events = append(p.events, e)
	return nil
}

func TestScheduleNotifierChanged(t *testing.T) {
	t.Parallel()

	id := uuid.New()
	morning := []models.ScheduleBlock{
		{TaskTitle: "Write report", TaskID: &id, StartTime: "09:00", EndTime: "10:00"},
		{TaskTitle: "Gym", StartTime: "10:00", EndTime: "10:30"},
	}
	moved := []models.ScheduleBlock{morning[1], morning[0]}

	pub := &capturingPublisher{}
	n := NewScheduleNotifier(pub)
	ctx := context.Background()

	steps := []struct {
		name     string
		state    models.ScheduleState
		wantSent int
		wantType EventType
	}{
		{name: "no date yet", state: models.ScheduleState{Blocks: morning}, wantSent: 0},
		{name: "first schedule", state: models.ScheduleState{Date: "2026-10-15", Blocks: morning}, wantSent: 1, wantType: EventScheduleCommitted},
		{name: "snapshot saved, blocks unchanged", state: models.ScheduleState{Date: "2026-10-15", Blocks: models.CloneBlocks(morning)}, wantSent: 1},
		{name: "block moved", state: models.ScheduleState{Date: "2026-10-15", Blocks: moved}, wantSent: 2, wantType: EventScheduleCommitted},
		{name: "cleared", state: models.ScheduleState{Date: "2026-10-15"}, wantSent: 3, wantType: EventScheduleCleared},
		{name: "cleared again", state: models.ScheduleState{Date: "2026-10-15", Blocks: []models.ScheduleBlock{}}, wantSent: 3},
		{name: "switched to an empty day", state: models.ScheduleState{Date: "2026-10-16"}, wantSent: 4, wantType: EventScheduleCleared},
	}

	for _, step := range steps {
		if err := n.Changed(ctx, step.state); err != nil {
			t.Fatalf("%s: Changed() error = %v", step.name, err)
		}
		if len(pub.events) != step.wantSent {
			t.Fatalf("%s: sent %d events, want %d", step.name, len(pub.events), step.wantSent)
		}
		if step.wantType == "" {
			continue
		}
		last := pub.events[len(pub.events)-1]
		if last.Type != step.wantType || last.Date != step.state.Date || last.Source != SourceEdit {
			t.Errorf("%s: event = %s %s %s", step.name, last.Type, last.Date, last.Source)
		}
	}
}

func TestScheduleNotifierDropsRepeatedCommit(t *testing.T) {
	t.Parallel()

	pub := &capturingPublisher{}
	n := NewScheduleNotifier(pub)
	blocks := []models.ScheduleBlock{{TaskTitle: "Gym", StartTime: "09:00", EndTime: "09:30"}}

	if err := n.Changed(context.Background(), models.ScheduleState{Date: "2026-10-15", Blocks: blocks}); err != nil {
		t.Fatal(err)
	}
	if err := n.Publish(context.Background(), NewEvent(EventScheduleCommitted, "generate", "2026-10-15", blocks)); err != nil {
		t.Fatal(err)
	}
	if len(pub.events) != 1 {
		t.Errorf("sent %d events, want 1", len(pub.events))
	}
}

func TestScheduleNotifierRetriesAfterFailure(t *testing.T) {
	t.Parallel()

	pub := &capturingPublisher{err: errors.New("broker down")}
	n := NewScheduleNotifier(pub)
	state := models.ScheduleState{Date: "2026-10-15", Blocks: []models.ScheduleBlock{{TaskTitle: "Gym", StartTime: "09:00", EndTime: "09:30"}}}

	if err := n.Changed(context.Background(), state); err == nil {
		t.Fatal("Changed() should report the publish failure")
	}
	pub.err = nil
	if err := n.Changed(context.Background(), state); err != nil {
		t.Fatal(err)
	}
	if len(pub.events) != 1 {
		t.Errorf("sent %d events after recovery, want 1", len(pub.events))
	}
}
