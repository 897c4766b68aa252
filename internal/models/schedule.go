package models

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// ScheduleBlock is one contiguous slice of the day
type ScheduleBlock struct {
	TaskTitle string     `json:"taskTitle"`
	TaskID    *uuid.UUID `json:"taskId,omitempty"`
	StartTime string     `json:"startTime"` // HH:MM
	EndTime   string     `json:"endTime"`   // HH:MM
	Reasoning string     `json:"reasoning"`
	// DayOffset counts the midnights crossed before the block starts.
	DayOffset int `json:"dayOffset,omitempty"`
}

// IsBreak reports whether the block is a synthetic rest period rather than a task
func (b ScheduleBlock) IsBreak() bool {
	title := strings.ToLower(b.TaskTitle)
	return strings.Contains(title, "break") || strings.Contains(title, "lunch")
}

// CloneBlocks returns a deep copy of blocks
func CloneBlocks(blocks []ScheduleBlock) []ScheduleBlock {
	if blocks == nil {
		return nil
	}
	out := make([]ScheduleBlock, len(blocks))
	for i, b := range blocks {
		out[i] = b
		if b.TaskID != nil {
			id := *b.TaskID
			out[i].TaskID = &id
		}
	}
	return out
}

// CountTaskBlocks counts the blocks that are not breaks
func CountTaskBlocks(blocks []ScheduleBlock) int {
	n := 0
	for _, b := range blocks {
		if !b.IsBreak() {
			n++
		}
	}
	return n
}

// Snapshot is an immutable saved copy of a schedule
type Snapshot struct {
	ID        uuid.UUID       `json:"id"`
	Blocks    []ScheduleBlock `json:"timetable"`
	SavedAt   time.Time       `json:"saved_at"`
	TaskCount int             `json:"task_count"`
	Date      string          `json:"date,omitempty"`
	Label     string          `json:"label,omitempty"`
}

// ScheduleState is the persisted form of the schedule store
type ScheduleState struct {
	Date      string          `json:"date,omitempty"`
	Blocks    []ScheduleBlock `json:"timetable"`
	Snapshots []Snapshot      `json:"saved_timetables"`
}
