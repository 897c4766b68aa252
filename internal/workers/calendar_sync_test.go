package workers

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"testing"

	"github.com/benvon/whatodo/internal/models"
	"github.com/benvon/whatodo/internal/queue"
	"google.golang.org/api/googleapi"
)

type fakeMessage struct {
	event   *queue.Event
	acked   bool
	nacked  bool
	requeue bool
}

func (m *fakeMessage) Ack() error { m.acked = true; return nil }
func (m *fakeMessage) Nack(requeue bool) error {
	m.nacked = true
	m.requeue = requeue
	return nil
}
func (m *fakeMessage) GetEvent() *queue.Event { return m.event }

type fakeExporter struct {
	exportErr error
	removeErr error
	exported  map[string]int
	removed   []string
}

func (f *fakeExporter) Export(_ context.Context, date string, blocks []models.ScheduleBlock) (int, error) {
	if f.exportErr != nil {
		return 0, f.exportErr
	}
	if f.exported == nil {
		f.exported = make(map[string]int)
	}
	f.exported[date] = len(blocks)
	return len(blocks), nil
}

func (f *fakeExporter) Remove(_ context.Context, date string) (int, error) {
	if f.removeErr != nil {
		return 0, f.removeErr
	}
	f.removed = append(f.removed, date)
	return 1, nil
}

type recordingPublisher struct {
	mu     sync.Mutex
	err    error
	events []*queue.Event
}

func (p *recordingPublisher) Publish(_ context.Context, e *queue.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	p.events = append(p.events, e)
	return nil
}

func committed() *queue.Event {
	return queue.NewEvent(queue.EventScheduleCommitted, "generate", "2026-10-15", []models.ScheduleBlock{
		{TaskTitle: "Write report", StartTime: "09:00", EndTime: "10:00"},
		{TaskTitle: "Gym", StartTime: "10:00", EndTime: "10:30"},
	})
}

func TestCalendarSyncProcess(t *testing.T) {
	t.Parallel()

	exhausted := committed()
	exhausted.RetryCount = exhausted.MaxRetries

	tests := []struct {
		name        string
		event       *queue.Event
		exporter    *fakeExporter
		publisher   *recordingPublisher
		wantErr     bool
		wantAck     bool
		wantNack    bool
		wantRequeue bool
		wantRepub   int
	}{
		{
			name:      "export succeeds",
			event:     committed(),
			exporter:  &fakeExporter{},
			publisher: &recordingPublisher{},
			wantAck:   true,
		},
		{
			name:      "cleared removes events",
			event:     queue.NewEvent(queue.EventScheduleCleared, "", "2026-10-15", nil),
			exporter:  &fakeExporter{},
			publisher: &recordingPublisher{},
			wantAck:   true,
		},
		{
			name:      "transient failure is re-published",
			event:     committed(),
			exporter:  &fakeExporter{exportErr: errors.New("connection reset")},
			publisher: &recordingPublisher{},
			wantErr:   true,
			wantAck:   true,
			wantRepub: 1,
		},
		{
			name:      "permanent failure is dead-lettered",
			event:     committed(),
			exporter:  &fakeExporter{exportErr: &googleapi.Error{Code: http.StatusForbidden}},
			publisher: &recordingPublisher{},
			wantErr:   true,
			wantNack:  true,
		},
		{
			name:      "retries exhausted",
			event:     exhausted,
			exporter:  &fakeExporter{exportErr: errors.New("timeout")},
			publisher: &recordingPublisher{},
			wantErr:   true,
			wantNack:  true,
		},
		{
			name:        "republish failure requeues",
			event:       committed(),
			exporter:    &fakeExporter{exportErr: errors.New("timeout")},
			publisher:   &recordingPublisher{err: errors.New("broker down")},
			wantErr:     true,
			wantNack:    true,
			wantRequeue: true,
		},
		{
			name:      "unknown type",
			event:     &queue.Event{Type: "schedule.exploded", MaxRetries: 3},
			exporter:  &fakeExporter{},
			publisher: &recordingPublisher{},
			wantErr:   true,
			wantNack:  true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			msg := &fakeMessage{event: tt.event}
			worker := NewCalendarSync(tt.exporter, tt.publisher, nil)

			err := worker.Process(context.Background(), msg)
			if (err != nil) != tt.wantErr {
				t.Fatalf("Process() error = %v, wantErr %v", err, tt.wantErr)
			}
			if msg.acked != tt.wantAck {
				t.Errorf("acked = %v, want %v", msg.acked, tt.wantAck)
			}
			if msg.nacked != tt.wantNack {
				t.Errorf("nacked = %v, want %v", msg.nacked, tt.wantNack)
			}
			if msg.requeue != tt.wantRequeue {
				t.Errorf("requeue = %v, want %v", msg.requeue, tt.wantRequeue)
			}
			if len(tt.publisher.events) != tt.wantRepub {
				t.Errorf("republished %d events, want %d", len(tt.publisher.events), tt.wantRepub)
			}
			if tt.wantRepub > 0 && tt.publisher.events[0].RetryCount != 1 {
				t.Errorf("retry count = %d, want 1", tt.publisher.events[0].RetryCount)
			}
		})
	}
}

func TestCalendarSyncRunStopsWhenChannelCloses(t *testing.T) {
	t.Parallel()

	msgs := make(chan *queue.Message)
	errs := make(chan error, 1)
	errs <- errors.New("delivery channel closed")
	close(errs)
	close(msgs)

	done := make(chan struct{})
	go func() {
		NewCalendarSync(&fakeExporter{}, nil, nil).Run(context.Background(), msgs, errs)
		close(done)
	}()
	<-done
}

func TestCalendarSyncRetryReturnsExportError(t *testing.T) {
	t.Parallel()

	exportErr := errors.New("connection reset")
	msg := &fakeMessage{event: committed()}
	pub := &recordingPublisher{}

	err := NewCalendarSync(&fakeExporter{exportErr: exportErr}, pub, nil).Process(context.Background(), msg)
	if !errors.Is(err, exportErr) {
		t.Fatalf("Process() error = %v, want %v", err, exportErr)
	}
	if !msg.acked || msg.nacked {
		t.Errorf("acked = %v, nacked = %v; the original delivery should be acked once re-published", msg.acked, msg.nacked)
	}
	if len(pub.events) != 1 {
		t.Errorf("republished %d events, want 1", len(pub.events))
	}
}
