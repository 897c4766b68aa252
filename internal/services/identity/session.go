// Package identity tracks whether the AI provider credential is present.
package identity

import (
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/benvon/whatodo/internal/services/ai"
)

// ErrNotAuthenticated is returned when no credential has been supplied
var ErrNotAuthenticated = errors.New("not signed in to the AI provider")

// Status is the public view of the session
type Status struct {
	SignedIn   bool       `json:"signed_in"`
	Key        string     `json:"key,omitempty"`
	SignedInAt *time.Time `json:"signed_in_at,omitempty"`
}

// Session holds the provider API key in memory
type Session struct {
	mu         sync.RWMutex
	apiKey     string
	signedInAt time.Time
}

// NewSession optionally starts signed in with a configured key
func NewSession(initialKey string) *Session {
	s := &Session{}
	if k := strings.TrimSpace(initialKey); k != "" {
		s.apiKey = k
		s.signedInAt = time.Now().UTC()
	}
	return s
}

// SignIn stores a key
func (s *Session) SignIn(apiKey string) error {
	k := strings.TrimSpace(apiKey)
	if k == "" {
		return errors.New("api key is required")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.apiKey = k
	s.signedInAt = time.Now().UTC()
	return nil
}

// SignOut forgets the key
func (s *Session) SignOut() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.apiKey = ""
	s.signedInAt = time.Time{}
}

// Status reports sign-in state with the key masked
func (s *Session) Status() Status {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.apiKey == "" {
		return Status{}
	}
	at := s.signedInAt
	return Status{SignedIn: true, Key: ai.SanitizeAPIKey(s.apiKey), SignedInAt: &at}
}

// Credential returns the key for an outgoing request
func (s *Session) Credential() (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.apiKey == "" {
		return "", ErrNotAuthenticated
	}
	return s.apiKey, nil
}
