// Package workers consumes schedule events in the background worker.
package workers

import (
	"context"
	"errors"
	"fmt"

	"github.com/benvon/whatodo/internal/calendar"
	"github.com/benvon/whatodo/internal/metrics"
	"github.com/benvon/whatodo/internal/models"
	"github.com/benvon/whatodo/internal/queue"
	"go.uber.org/zap"
)

var errUnknownEvent = errors.New("unknown event type")

// Exporter writes or removes a day's schedule in an external calendar
type Exporter interface {
	Export(ctx context.Context, date string, blocks []models.ScheduleBlock) (int, error)
	Remove(ctx context.Context, date string) (int, error)
}

// CalendarSync mirrors committed schedules into a calendar
type CalendarSync struct {
	exporter  Exporter
	publisher queue.Publisher // re-publishes events that failed transiently
	logger    *zap.Logger
}

// NewCalendarSync creates a calendar sync worker
func NewCalendarSync(exporter Exporter, publisher queue.Publisher, logger *zap.Logger) *CalendarSync {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CalendarSync{exporter: exporter, publisher: publisher, logger: logger}
}

// Process handles one delivered event. It acks on success, re-publishes with an
// incremented retry count on transient failure, and dead-letters everything else.
// Any failure to apply the event is returned, including one that was re-published.
func (c *CalendarSync) Process(ctx context.Context, msg queue.MessageInterface) error {
	event := msg.GetEvent()
	if event == nil {
		_ = msg.Nack(false)
		return errors.New("message has no event")
	}

	err := c.apply(ctx, event)
	if err == nil {
		metrics.RecordCalendarExport(metrics.OutcomeSuccess)
		return msg.Ack()
	}

	logFields := []zap.Field{
		zap.String("event_id", event.ID.String()),
		zap.String("type", string(event.Type)),
		zap.String("date", event.Date),
		zap.Int("retry_count", event.RetryCount),
		zap.Error(err),
	}

	if errors.Is(err, errUnknownEvent) || calendar.IsPermanent(err) || !event.CanRetry() || c.publisher == nil {
		metrics.RecordCalendarExport(metrics.OutcomeFailed)
		c.logger.Error("calendar_sync_failed", logFields...)
		if nackErr := msg.Nack(false); nackErr != nil {
			return fmt.Errorf("nack after %v: %w", err, nackErr)
		}
		return err
	}

	event.IncrementRetry()
	if pubErr := c.publisher.Publish(ctx, event); pubErr != nil {
		c.logger.Warn("calendar_sync_republish_failed", append(logFields, zap.NamedError("publish_error", pubErr))...)
		_ = msg.Nack(true)
		return err
	}
	metrics.RecordCalendarExport(metrics.OutcomeRetried)
	c.logger.Warn("calendar_sync_retrying", logFields...)
	if ackErr := msg.Ack(); ackErr != nil {
		return fmt.Errorf("ack after %v: %w", err, ackErr)
	}
	return err
}

func (c *CalendarSync) apply(ctx context.Context, event *queue.Event) error {
	switch event.Type {
	case queue.EventScheduleCommitted:
		n, err := c.exporter.Export(ctx, event.Date, event.Blocks)
		if err != nil {
			return err
		}
		c.logger.Info("calendar_sync_exported", zap.String("date", event.Date), zap.Int("events", n))
		return nil
	case queue.EventScheduleCleared:
		n, err := c.exporter.Remove(ctx, event.Date)
		if err != nil {
			return err
		}
		c.logger.Info("calendar_sync_removed", zap.String("date", event.Date), zap.Int("events", n))
		return nil
	default:
		return fmt.Errorf("%w: %q", errUnknownEvent, event.Type)
	}
}

// Run processes messages until ctx is cancelled or the delivery channel closes
func (c *CalendarSync) Run(ctx context.Context, msgs <-chan *queue.Message, errs <-chan error) {
	for {
		select {
		case <-ctx.Done():
			return
		case err, ok := <-errs:
			if !ok {
				errs = nil
				continue
			}
			c.logger.Error("queue_error", zap.Error(err))
		case msg, ok := <-msgs:
			if !ok {
				c.logger.Info("message_channel_closed")
				return
			}
			if err := c.Process(ctx, msg); err != nil {
				c.logger.Debug("calendar_sync_message_failed", zap.Error(err))
			}
		}
	}
}
