package calendar

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/benvon/whatodo/internal/models"
	"go.uber.org/zap"
	gcal "google.golang.org/api/calendar/v3"
	"google.golang.org/api/googleapi"
)

// Exporter writes a day's schedule into one Google calendar
type Exporter struct {
	srv        *gcal.Service
	calendarID string
	loc        *time.Location
	logger     *zap.Logger
}

// NewExporter wraps an authenticated calendar service
func NewExporter(srv *gcal.Service, calendarID string, loc *time.Location, logger *zap.Logger) *Exporter {
	if calendarID == "" {
		calendarID = "primary"
	}
	if loc == nil {
		loc = time.Local
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Exporter{srv: srv, calendarID: calendarID, loc: loc, logger: logger}
}

// Export replaces every event previously exported for date with one event per block.
// It returns the number of events created.
func (e *Exporter) Export(ctx context.Context, date string, blocks []models.ScheduleBlock) (int, error) {
	events := make([]*gcal.Event, 0, len(blocks))
	for i, b := range blocks {
		ev, err := ToEvent(date, i, b, e.loc)
		if err != nil {
			return 0, fmt.Errorf("convert block %d: %w", i, err)
		}
		events = append(events, ev)
	}

	removed, err := e.Remove(ctx, date)
	if err != nil {
		return 0, err
	}

	created := 0
	for _, ev := range events {
		if _, err := e.srv.Events.Insert(e.calendarID, ev).Context(ctx).Do(); err != nil {
			return created, fmt.Errorf("insert event %q: %w", ev.Summary, err)
		}
		created++
	}

	e.logger.Info("calendar_exported",
		zap.String("date", date),
		zap.Int("created", created),
		zap.Int("removed", removed),
	)
	return created, nil
}

// Remove deletes the events previously exported for date
func (e *Exporter) Remove(ctx context.Context, date string) (int, error) {
	existing, err := e.exported(ctx, date)
	if err != nil {
		return 0, err
	}
	removed := 0
	for _, ev := range existing {
		err := e.srv.Events.Delete(e.calendarID, ev.Id).Context(ctx).Do()
		if err != nil && !isGone(err) {
			return removed, fmt.Errorf("delete event %s: %w", ev.Id, err)
		}
		removed++
	}
	return removed, nil
}

func (e *Exporter) exported(ctx context.Context, date string) ([]*gcal.Event, error) {
	var out []*gcal.Event
	call := e.srv.Events.List(e.calendarID).
		PrivateExtendedProperty(PropertyDate + "=" + date).
		SingleEvents(true)
	err := call.Pages(ctx, func(page *gcal.Events) error {
		out = append(out, page.Items...)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("list exported events for %s: %w", date, err)
	}
	return out, nil
}

func isGone(err error) bool {
	var apiErr *googleapi.Error
	return errors.As(err, &apiErr) && (apiErr.Code == http.StatusGone || apiErr.Code == http.StatusNotFound)
}

// IsPermanent reports failures that retrying will not fix: bad input or
// rejected credentials. Throttling and server errors are transient.
func IsPermanent(err error) bool {
	var apiErr *googleapi.Error
	if !errors.As(err, &apiErr) {
		return false
	}
	switch {
	case apiErr.Code == http.StatusTooManyRequests:
		return false
	case apiErr.Code >= 400 && apiErr.Code < 500:
		return true
	default:
		return false
	}
}
