package calendar

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/benvon/whatodo/internal/models"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"
	gcal "google.golang.org/api/calendar/v3"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
)

type fakeCalendar struct {
	mu       sync.Mutex
	events   map[string]*gcal.Event
	nextID   int
	deleted  []string
}

func newFakeCalendar(t *testing.T) (*fakeCalendar, *gcal.Service) {
	t.Helper()
	fc := &fakeCalendar{events: make(map[string]*gcal.Event)}
	srv := httptest.NewServer(http.HandlerFunc(fc.serve))
	t.Cleanup(srv.Close)

	svc, err := gcal.NewService(context.Background(),
		option.WithEndpoint(srv.URL+"/"),
		option.WithHTTPClient(srv.Client()),
	)
	require.NoError(t, err)
	return fc, svc
}

func (fc *fakeCalendar) serve(w http.ResponseWriter, r *http.Request) {
	fc.mu.Lock()
	defer fc.mu.Unlock()
	w.Header().Set("Content-Type", "application/json")

	switch {
	case r.URL.Path == "/users/me/calendarList":
		_ = json.NewEncoder(w).Encode(gcal.CalendarList{Items: []*gcal.CalendarListEntry{
			{Id: "cal-work", Summary: "Work"},
			{Id: "cal-plan", Summary: "Daily plan"},
		}})
	case strings.HasSuffix(r.URL.Path, "/events") && r.Method == http.MethodGet:
		filter := r.URL.Query().Get("privateExtendedProperty")
		var items []*gcal.Event
		for _, ev := range fc.events {
			key, value, _ := strings.Cut(filter, "=")
			if ev.ExtendedProperties.Private[key] == value {
				items = append(items, ev)
			}
		}
		_ = json.NewEncoder(w).Encode(gcal.Events{Items: items})
	case strings.HasSuffix(r.URL.Path, "/events") && r.Method == http.MethodPost:
		var ev gcal.Event
		_ = json.NewDecoder(r.Body).Decode(&ev)
		fc.nextID++
		ev.Id = fmt.Sprintf("ev%d", fc.nextID)
		fc.events[ev.Id] = &ev
		_ = json.NewEncoder(w).Encode(ev)
	case r.Method == http.MethodDelete:
		id := r.URL.Path[strings.LastIndex(r.URL.Path, "/")+1:]
		delete(fc.events, id)
		fc.deleted = append(fc.deleted, id)
		w.WriteHeader(http.StatusNoContent)
	default:
		http.NotFound(w, r)
	}
}

func TestToEvent(t *testing.T) {
	t.Parallel()
	loc := time.FixedZone("test", 2*60*60)
	id := uuid.New()

	ev, err := ToEvent("2026-10-15", 2, models.ScheduleBlock{
		TaskTitle: "Night shift", TaskID: &id, StartTime: "23:30", EndTime: "00:30", Reasoning: "late", DayOffset: 0,
	}, loc)
	require.NoError(t, err)
	assert.Equal(t, "Night shift", ev.Summary)
	assert.Equal(t, "late", ev.Description)
	assert.Equal(t, "2026-10-15T23:30:00+02:00", ev.Start.DateTime)
	assert.Equal(t, "2026-10-16T00:30:00+02:00", ev.End.DateTime)
	assert.Equal(t, "2026-10-15/2", ev.ExtendedProperties.Private[PropertyBlock])
	assert.Equal(t, id.String(), ev.ExtendedProperties.Private[PropertyTask])

	ev, err = ToEvent("2026-10-15", 3, models.ScheduleBlock{
		TaskTitle: "Lunch break", StartTime: "01:00", EndTime: "01:30", DayOffset: 1,
	}, loc)
	require.NoError(t, err)
	assert.Equal(t, "2026-10-16T01:00:00+02:00", ev.Start.DateTime)
	assert.Equal(t, "transparent", ev.Transparency)

	_, err = ToEvent("15/10/2026", 0, models.ScheduleBlock{StartTime: "09:00", EndTime: "10:00"}, loc)
	assert.Error(t, err)
	_, err = ToEvent("2026-10-15", 0, models.ScheduleBlock{StartTime: "9am", EndTime: "10:00"}, loc)
	assert.Error(t, err)
}

func TestExporterReplacesPreviousExport(t *testing.T) {
	t.Parallel()
	fc, svc := newFakeCalendar(t)
	exp := NewExporter(svc, "", time.UTC, nil)
	ctx := context.Background()

	first := []models.ScheduleBlock{
		{TaskTitle: "Write report", StartTime: "09:00", EndTime: "10:00"},
		{TaskTitle: "Gym", StartTime: "10:00", EndTime: "10:30"},
	}
	n, err := exp.Export(ctx, "2026-10-15", first)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	other := []models.ScheduleBlock{{TaskTitle: "Errands", StartTime: "12:00", EndTime: "13:00"}}
	_, err = exp.Export(ctx, "2026-10-16", other)
	require.NoError(t, err)

	n, err = exp.Export(ctx, "2026-10-15", first[:1])
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	fc.mu.Lock()
	defer fc.mu.Unlock()
	assert.Len(t, fc.deleted, 2)
	assert.Len(t, fc.events, 2)
	var titles []string
	for _, ev := range fc.events {
		titles = append(titles, ev.Summary)
	}
	assert.ElementsMatch(t, []string{"Write report", "Errands"}, titles)
}

func TestExporterConversionFailureLeavesCalendarAlone(t *testing.T) {
	t.Parallel()
	fc, svc := newFakeCalendar(t)
	exp := NewExporter(svc, "primary", time.UTC, nil)

	_, err := exp.Export(context.Background(), "2026-10-15", []models.ScheduleBlock{{TaskTitle: "A", StartTime: "09:00", EndTime: "10:00"}})
	require.NoError(t, err)
	_, err = exp.Export(context.Background(), "2026-10-15", []models.ScheduleBlock{{TaskTitle: "B", StartTime: "bad", EndTime: "10:00"}})
	require.Error(t, err)

	fc.mu.Lock()
	defer fc.mu.Unlock()
	assert.Len(t, fc.events, 1)
}

func TestResolveCalendarID(t *testing.T) {
	t.Parallel()
	_, svc := newFakeCalendar(t)
	ctx := context.Background()

	id, err := ResolveCalendarID(ctx, svc, "")
	require.NoError(t, err)
	assert.Equal(t, "primary", id)

	id, err = ResolveCalendarID(ctx, svc, "Daily plan")
	require.NoError(t, err)
	assert.Equal(t, "cal-plan", id)

	_, err = ResolveCalendarID(ctx, svc, "Missing")
	assert.Error(t, err)
}

func TestIsPermanent(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"plain", errors.New("dial tcp: refused"), false},
		{"forbidden", &googleapi.Error{Code: http.StatusForbidden}, true},
		{"bad request", &googleapi.Error{Code: http.StatusBadRequest}, true},
		{"throttled", &googleapi.Error{Code: http.StatusTooManyRequests}, false},
		{"server", &googleapi.Error{Code: http.StatusBadGateway}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, IsPermanent(tt.err))
		})
	}
}

func TestTokenRoundTrip(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "nested", "token.json")

	_, err := LoadToken(path)
	assert.ErrorIs(t, err, ErrNoToken)

	want := &oauth2.Token{AccessToken: "access", RefreshToken: "refresh", TokenType: "Bearer"}
	require.NoError(t, SaveToken(path, want))
	got, err := LoadToken(path)
	require.NoError(t, err)
	assert.Equal(t, want.AccessToken, got.AccessToken)
	assert.Equal(t, want.RefreshToken, got.RefreshToken)
}
