// Package notify holds short-lived user notifications.
package notify

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// DefaultTTL is how long success and info notifications stay visible
const DefaultTTL = 4 * time.Second

// Kind is the notification severity
type Kind string

const (
	KindSuccess Kind = "success"
	KindError   Kind = "error"
	KindInfo    Kind = "info"
)

// Notification is one visible message
type Notification struct {
	ID        uuid.UUID `json:"id"`
	Message   string    `json:"message"`
	Kind      Kind      `json:"type"`
	CreatedAt time.Time `json:"created_at"`
}

// Sink is what producers of notifications depend on
type Sink interface {
	Show(message string, kind Kind) Notification
}

// Center keeps notifications in display order. Errors stay until dismissed;
// everything else expires after the TTL.
type Center struct {
	mu     sync.Mutex
	items  []Notification
	timers map[uuid.UUID]*time.Timer
	ttl    time.Duration
}

// NewCenter creates a center with the given TTL; zero means DefaultTTL
func NewCenter(ttl time.Duration) *Center {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Center{ttl: ttl, timers: make(map[uuid.UUID]*time.Timer)}
}

// Show adds a notification
func (c *Center) Show(message string, kind Kind) Notification {
	n := Notification{ID: uuid.New(), Message: message, Kind: kind, CreatedAt: time.Now().UTC()}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.items = append(c.items, n)
	if kind != KindError {
		id := n.ID
		c.timers[id] = time.AfterFunc(c.ttl, func() { c.Dismiss(id) })
	}
	return n
}

// Dismiss removes a notification; it reports false when the id is unknown
func (c *Center) Dismiss(id uuid.UUID) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if t, ok := c.timers[id]; ok {
		t.Stop()
		delete(c.timers, id)
	}
	for i := range c.items {
		if c.items[i].ID == id {
			c.items = append(c.items[:i:i], c.items[i+1:]...)
			return true
		}
	}
	return false
}

// List returns visible notifications, oldest first
func (c *Center) List() []Notification {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]Notification(nil), c.items...)
}

// Close stops pending expiry timers
func (c *Center) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	for id, t := range c.timers {
		t.Stop()
		delete(c.timers, id)
	}
}
