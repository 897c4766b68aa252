package prompt

import (
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/benvon/whatodo/internal/models"
	"github.com/stretchr/testify/assert"
)

var fixedNow = time.Date(2026, 10, 15, 8, 20, 0, 0, time.UTC)

func sampleTasks() []models.Task {
	return []models.Task{
		{Title: "Write report", Priority: models.PriorityHigh, EstimatedMinutes: 60, Status: models.TaskStatusTodo, Date: "2026-10-15"},
		{Title: "Gym", Priority: models.PriorityMedium, EstimatedMinutes: 30, Status: models.TaskStatusTodo, Date: "2026-10-15", TimePreference: models.TimePreferenceEvening, Description: "leg day"},
		{Title: "File taxes", Priority: models.PriorityCritical, EstimatedMinutes: 90, Status: models.TaskStatusDone, Date: "2026-10-15"},
		{Title: "Call mom", Priority: models.PriorityLow, EstimatedMinutes: 15, Status: models.TaskStatusInProgress, Date: "2026-10-16"},
	}
}

func TestGeneration(t *testing.T) {
	t.Parallel()

	p := Generation(sampleTasks(), fixedNow)

	assert.Contains(t, p, `- "Write report" | Priority: high | Est. time: 60min | No details`)
	assert.Contains(t, p, `- "Gym" | Priority: medium | Est. time: 30min | Preferred time: evening | leg day`)
	assert.NotContains(t, p, "File taxes", "done tasks are excluded")
	assert.Contains(t, p, "Current date/time: Thursday, October 15, 2026 8:20 AM")
	assert.Contains(t, p, "Next available hour: 09:00")
	assert.Contains(t, p, "morning = 6:00am–12:00pm, afternoon = 12:00pm–5:00pm, evening = 5:00pm–10:00pm")
	assert.Contains(t, p, "Never schedule more than 2 hours of deep work without a break")
	assert.Contains(t, p, "Respond ONLY with a valid JSON array")
}

func TestGenerationIsDeterministic(t *testing.T) {
	t.Parallel()

	a := Generation(sampleTasks(), fixedNow)
	b := Generation(sampleTasks(), fixedNow)
	assert.Equal(t, a, b)
}

func TestGenerationQuotesTitles(t *testing.T) {
	t.Parallel()

	p := Generation([]models.Task{{Title: `Say "hi"`, Priority: models.PriorityLow, EstimatedMinutes: 5}}, fixedNow)
	assert.Contains(t, p, `- "Say \"hi\""`)
}

func TestActiveTasks(t *testing.T) {
	t.Parallel()

	got := ActiveTasks(sampleTasks(), "2026-10-15")
	assert.Len(t, got, 2)

	undated := append(sampleTasks(), models.Task{Title: "Anytime", Status: models.TaskStatusTodo})
	got = ActiveTasks(undated, "2026-10-15")
	assert.Len(t, got, 3)

	got = ActiveTasks(sampleTasks(), "")
	assert.Len(t, got, 3)
}

func TestNextAvailableHour(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "00:00", NextAvailableHour(time.Date(2026, 1, 1, 23, 5, 0, 0, time.UTC)))
	assert.Equal(t, "14:00", NextAvailableHour(time.Date(2026, 1, 1, 13, 0, 0, 0, time.UTC)))
}

func TestChat(t *testing.T) {
	t.Parallel()

	history := make([]models.ChatMessage, 0, 10)
	for i := 0; i < 10; i++ {
		history = append(history, models.ChatMessage{Role: models.ChatRoleUser, Content: fmt.Sprintf("turn %d", i)})
	}

	p := Chat(ChatInput{
		Tasks: sampleTasks(),
		Schedule: []models.ScheduleBlock{
			{TaskTitle: "Write report", StartTime: "09:00", EndTime: "10:00"},
			{TaskTitle: "Gym", StartTime: "10:00", EndTime: "10:30"},
		},
		History: history,
		Message: "move gym to the evening",
	})

	assert.Contains(t, p, "Current timetable:\n09:00-10:00: Write report\n10:00-10:30: Gym\n")
	assert.Contains(t, p, `- "Gym" (medium, 30min)`)
	assert.NotContains(t, p, "File taxes")
	assert.NotContains(t, p, "turn 3")
	assert.Contains(t, p, "user: turn 4")
	assert.Contains(t, p, "user: turn 9")
	assert.Contains(t, p, `User says: "move gym to the evening"`)
	assert.Contains(t, p, "MESSAGE: Your friendly explanation here")
	assert.Contains(t, p, "TIMETABLE: [")
}

func TestChatWindow(t *testing.T) {
	t.Parallel()

	history := []models.ChatMessage{
		{Role: models.ChatRoleSystem, Content: "first"},
		{Role: models.ChatRoleAI, Content: "second"},
	}
	p := Chat(ChatInput{History: history, Message: "x", Window: 1})
	assert.False(t, strings.Contains(p, "system: first"))
	assert.Contains(t, p, "ai: second")
}
