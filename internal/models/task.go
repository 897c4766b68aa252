package models

import (
	"time"

	"github.com/google/uuid"
)

// Priority is the importance of a task
type Priority string

const (
	PriorityCritical Priority = "critical"
	PriorityHigh     Priority = "high"
	PriorityMedium   Priority = "medium"
	PriorityLow      Priority = "low"
)

// Priorities lists every priority from most to least important
var Priorities = []Priority{PriorityCritical, PriorityHigh, PriorityMedium, PriorityLow}

// Rank returns 0 for critical up to 3 for low, or -1 for an unknown priority
func (p Priority) Rank() int {
	for i, candidate := range Priorities {
		if candidate == p {
			return i
		}
	}
	return -1
}

// TaskStatus represents the status of a task
type TaskStatus string

const (
	TaskStatusTodo       TaskStatus = "todo"
	TaskStatusInProgress TaskStatus = "in-progress"
	TaskStatusDone       TaskStatus = "done"
)

// TimePreference is a coarse window of the day a task should land in
type TimePreference string

const (
	TimePreferenceNone      TimePreference = ""
	TimePreferenceMorning   TimePreference = "morning"
	TimePreferenceAfternoon TimePreference = "afternoon"
	TimePreferenceEvening   TimePreference = "evening"
)

// Task represents a unit of work the user wants scheduled
type Task struct {
	ID               uuid.UUID      `json:"id"`
	Title            string         `json:"title"`
	Description      string         `json:"description"`
	Priority         Priority       `json:"priority"`
	EstimatedMinutes int            `json:"estimated_minutes"`
	Status           TaskStatus     `json:"status"`
	Date             string         `json:"date"` // YYYY-MM-DD
	TimePreference   TimePreference `json:"time_preference,omitempty"`
	Category         string         `json:"category,omitempty"`
	Tags             []string       `json:"tags,omitempty"`
	DueDate          string         `json:"due_date,omitempty"`
	CreatedAt        time.Time      `json:"created_at"`
	UpdatedAt        *time.Time     `json:"updated_at,omitempty"`
}

// IsActive reports whether the task is still eligible for scheduling
func (t Task) IsActive() bool {
	return t.Status != TaskStatusDone
}

// TaskInput carries the user-editable fields of a task
type TaskInput struct {
	Title            string         `json:"title" validate:"required,max=500"`
	Description      string         `json:"description" validate:"max=5000"`
	Priority         Priority       `json:"priority" validate:"omitempty,priority"`
	EstimatedMinutes int            `json:"estimated_minutes" validate:"gt=0,lte=1440"`
	Date             string         `json:"date" validate:"omitempty,datetime=2006-01-02"`
	TimePreference   TimePreference `json:"time_preference" validate:"omitempty,time_preference"`
	Category         string         `json:"category" validate:"max=100"`
	Tags             []string       `json:"tags" validate:"max=20,dive,max=50"`
	DueDate          string         `json:"due_date" validate:"omitempty,datetime=2006-01-02"`
}

// TaskPatch is a partial update; nil fields are left unchanged
type TaskPatch struct {
	Title            *string         `json:"title,omitempty"`
	Description      *string         `json:"description,omitempty"`
	Priority         *Priority       `json:"priority,omitempty"`
	EstimatedMinutes *int            `json:"estimated_minutes,omitempty"`
	Date             *string         `json:"date,omitempty"`
	TimePreference   *TimePreference `json:"time_preference,omitempty"`
	Status           *TaskStatus     `json:"status,omitempty"`
}

// TaskStats summarises the task collection
type TaskStats struct {
	Total  int `json:"total"`
	Active int `json:"active"`
	Done   int `json:"done"`
}
