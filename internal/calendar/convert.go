// Package calendar exports committed schedules to Google Calendar.
package calendar

import (
	"fmt"
	"strconv"
	"time"

	"github.com/benvon/whatodo/internal/models"
	"github.com/benvon/whatodo/internal/timeutil"
	gcal "google.golang.org/api/calendar/v3"
)

// Private extended properties used to find exported events again
const (
	PropertyBlock = "whatodo_block"
	PropertyDate  = "whatodo_date"
	PropertyTask  = "whatodo_task"
)

const dateLayout = "2006-01-02"

// BlockKey identifies one exported block: "<date>/<index>"
func BlockKey(date string, index int) string {
	return date + "/" + strconv.Itoa(index)
}

// ToEvent converts the block at index into a calendar event in loc.
// DayOffset moves blocks that start after midnight onto the following day.
func ToEvent(date string, index int, block models.ScheduleBlock, loc *time.Location) (*gcal.Event, error) {
	day, err := time.ParseInLocation(dateLayout, date, loc)
	if err != nil {
		return nil, fmt.Errorf("invalid schedule date %q: %w", date, err)
	}
	startMin, err := timeutil.ToMinutes(block.StartTime)
	if err != nil {
		return nil, err
	}
	length, err := timeutil.Span(block.StartTime, block.EndTime)
	if err != nil {
		return nil, err
	}

	start := day.AddDate(0, 0, block.DayOffset).Add(time.Duration(startMin) * time.Minute)
	end := start.Add(time.Duration(length) * time.Minute)

	private := map[string]string{
		PropertyBlock: BlockKey(date, index),
		PropertyDate:  date,
	}
	if block.TaskID != nil {
		private[PropertyTask] = block.TaskID.String()
	}

	event := &gcal.Event{
		Summary:     block.TaskTitle,
		Description: block.Reasoning,
		Start:       &gcal.EventDateTime{DateTime: start.Format(time.RFC3339), TimeZone: loc.String()},
		End:         &gcal.EventDateTime{DateTime: end.Format(time.RFC3339), TimeZone: loc.String()},
		ExtendedProperties: &gcal.EventExtendedProperties{
			Private: private,
		},
	}
	if block.IsBreak() {
		event.Transparency = "transparent"
	}
	return event, nil
}
