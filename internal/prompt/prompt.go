// Package prompt renders the instructions sent to the text-completion model.
// Output depends only on the arguments, so identical inputs give identical prompts.
package prompt

import (
	"fmt"
	"strings"
	"time"

	"github.com/benvon/whatodo/internal/models"
	"github.com/benvon/whatodo/internal/parser"
)

// DefaultHistoryWindow is how many recent chat turns the chat prompt carries
const DefaultHistoryWindow = 6

// Band windows used for preferred-time enforcement
const (
	MorningWindow   = "6:00am–12:00pm"
	AfternoonWindow = "12:00pm–5:00pm"
	EveningWindow   = "5:00pm–10:00pm"
)

const nowLayout = "Monday, January 2, 2006 3:04 PM"

// ActiveTasks returns the tasks that are not done, in their original order.
// When date is non-empty only tasks on that date (or with no date) are kept.
func ActiveTasks(tasks []models.Task, date string) []models.Task {
	out := make([]models.Task, 0, len(tasks))
	for _, t := range tasks {
		if !t.IsActive() {
			continue
		}
		if date != "" && t.Date != "" && t.Date != date {
			continue
		}
		out = append(out, t)
	}
	return out
}

// NextAvailableHour returns the first whole hour after now as "HH:00"
func NextAvailableHour(now time.Time) string {
	return fmt.Sprintf("%02d:00", (now.Hour()+1)%24)
}

// Generation builds the full-schedule instruction for the given tasks.
// Done tasks are dropped; the caller decides which date the tasks belong to.
func Generation(tasks []models.Task, now time.Time) string {
	var b strings.Builder

	b.WriteString("You are an expert productivity coach and time management specialist. Generate an optimized daily timetable based on these tasks.\n\n")
	fmt.Fprintf(&b, "Current date/time: %s\n", now.Format(nowLayout))
	fmt.Fprintf(&b, "Next available hour: %s\n\n", NextAvailableHour(now))

	b.WriteString("Tasks:\n")
	for _, t := range ActiveTasks(tasks, "") {
		b.WriteString(taskLine(t))
		b.WriteString("\n")
	}

	b.WriteString(`
Rules:
1. Critical and high priority tasks should be scheduled during peak focus hours (morning/early afternoon)
2. Include 5-10 minute breaks between tasks
3. Include a lunch break if schedule spans midday
4. Group similar tasks when possible
5. Never schedule more than 2 hours of deep work without a break
6. Start from the next available hour from now
7. Respect the estimated time for each task
8. Respect each task's preferred time slot when specified:
`)
	fmt.Fprintf(&b, "   - morning = %s, afternoon = %s, evening = %s\n", MorningWindow, AfternoonWindow, EveningWindow)
	b.WriteString("   Only override a preference if it creates a severe scheduling conflict.\n\n")

	b.WriteString("Respond ONLY with a valid JSON array. No markdown, no backticks, no explanation text. Just the raw JSON array:\n")
	b.WriteString(`[{"taskTitle":"exact task title from above","startTime":"HH:MM","endTime":"HH:MM","reasoning":"brief reason for this time slot"},{"taskTitle":"Break","startTime":"HH:MM","endTime":"HH:MM","reasoning":"Rest period"}]`)

	return b.String()
}

func taskLine(t models.Task) string {
	line := fmt.Sprintf("- %q | Priority: %s | Est. time: %dmin", t.Title, t.Priority, t.EstimatedMinutes)
	if t.TimePreference != models.TimePreferenceNone {
		line += fmt.Sprintf(" | Preferred time: %s", t.TimePreference)
	}
	desc := strings.TrimSpace(t.Description)
	if desc == "" {
		desc = "No details"
	}
	return line + " | " + desc
}

// ChatInput is everything the chat-edit prompt embeds
type ChatInput struct {
	Tasks    []models.Task
	Schedule []models.ScheduleBlock
	// History is the conversation so far, excluding Message.
	History []models.ChatMessage
	Message string
	// Window caps how many History entries are included; zero means DefaultHistoryWindow.
	Window int
}

// Chat builds the conversational edit instruction
func Chat(in ChatInput) string {
	window := in.Window
	if window <= 0 {
		window = DefaultHistoryWindow
	}

	var b strings.Builder
	b.WriteString("You are an AI productivity assistant for the WhaTodo app. The user wants to modify their timetable through conversation.\n\n")

	b.WriteString("Current timetable:\n")
	for _, blk := range in.Schedule {
		fmt.Fprintf(&b, "%s-%s: %s\n", blk.StartTime, blk.EndTime, blk.TaskTitle)
	}

	b.WriteString("\nAvailable tasks:\n")
	for _, t := range ActiveTasks(in.Tasks, "") {
		fmt.Fprintf(&b, "- %q (%s, %dmin)\n", t.Title, t.Priority, t.EstimatedMinutes)
	}

	b.WriteString("\nRecent conversation:\n")
	for _, m := range recent(in.History, window) {
		fmt.Fprintf(&b, "%s: %s\n", m.Role, m.Content)
	}

	fmt.Fprintf(&b, "\nUser says: %q\n\n", in.Message)

	b.WriteString(`If the user wants to rearrange, add breaks, swap tasks, or modify timing, respond with TWO parts:
1. A brief friendly message explaining what you changed
2. The updated timetable as JSON

Format your response EXACTLY like this:
`)
	fmt.Fprintf(&b, "%s Your friendly explanation here\n", parser.MessageMarker)
	fmt.Fprintf(&b, "%s [{\"taskTitle\":\"...\",\"startTime\":\"HH:MM\",\"endTime\":\"HH:MM\",\"reasoning\":\"...\"}]\n\n", parser.TimetableMarker)
	b.WriteString("If the user is just chatting or asking a question (not requesting changes), respond with ONLY:\n")
	fmt.Fprintf(&b, "%s Your helpful response here\n\n", parser.MessageMarker)
	b.WriteString("Do NOT use markdown backticks around the JSON. Do NOT add any other text outside this format.")

	return b.String()
}

func recent(history []models.ChatMessage, n int) []models.ChatMessage {
	if len(history) <= n {
		return history
	}
	return history[len(history)-n:]
}

// Ping is the minimal prompt used to check provider connectivity
func Ping() string {
	return "Reply with the single word OK."
}
