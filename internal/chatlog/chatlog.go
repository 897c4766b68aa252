// Package chatlog keeps the append-only conversation shown next to the schedule.
package chatlog

import (
	"sync"
	"time"

	"github.com/benvon/whatodo/internal/models"
)

// Greeting is the only message in a fresh or cleared log
const Greeting = "Generate a timetable first, then ask me to rearrange it."

// Log is safe for concurrent use
type Log struct {
	mu       sync.RWMutex
	messages []models.ChatMessage
	now      func() time.Time
}

// New returns a log holding the greeting
func New() *Log {
	return NewWithClock(time.Now)
}

// NewWithClock is New with an injectable clock
func NewWithClock(now func() time.Time) *Log {
	l := &Log{now: now}
	l.messages = []models.ChatMessage{{Role: models.ChatRoleSystem, Content: Greeting}}
	return l
}

// Append adds a timestamped message
func (l *Log) Append(role models.ChatRole, content string) models.ChatMessage {
	ts := l.now().UTC()
	msg := models.ChatMessage{Role: role, Content: content, Timestamp: &ts}
	l.mu.Lock()
	defer l.mu.Unlock()
	l.messages = append(l.messages, msg)
	return msg
}

// Reset replaces the whole log. With no arguments it returns to the greeting.
func (l *Log) Reset(msgs ...models.ChatMessage) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if len(msgs) == 0 {
		l.messages = []models.ChatMessage{{Role: models.ChatRoleSystem, Content: Greeting}}
		return
	}
	l.messages = append([]models.ChatMessage(nil), msgs...)
}

// Messages returns the whole log, oldest first
func (l *Log) Messages() []models.ChatMessage {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return append([]models.ChatMessage(nil), l.messages...)
}

// Recent returns at most the last n messages
func (l *Log) Recent(n int) []models.ChatMessage {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if n <= 0 {
		return nil
	}
	start := len(l.messages) - n
	if start < 0 {
		start = 0
	}
	return append([]models.ChatMessage(nil), l.messages[start:]...)
}
