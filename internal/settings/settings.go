// Package settings keeps user preferences such as the selected AI model.
package settings

import (
	"fmt"
	"sync"

	"github.com/benvon/whatodo/internal/models"
	"github.com/benvon/whatodo/internal/validation"
)

// ChangeFunc receives the settings after every change
type ChangeFunc func(models.Settings)

// Patch is a partial settings update
type Patch struct {
	AIModel    *models.AIModel `json:"ai_model,omitempty"`
	ActiveView *models.View    `json:"active_view,omitempty"`
}

// Store is safe for concurrent use
type Store struct {
	mu       sync.RWMutex
	current  models.Settings
	onChange ChangeFunc
}

// NewStore starts from the defaults
func NewStore(onChange ChangeFunc) *Store {
	return &Store{current: models.DefaultSettings(), onChange: onChange}
}

// Replace installs persisted settings without firing the hook. Invalid fields
// fall back to their defaults.
func (s *Store) Replace(in models.Settings) {
	def := models.DefaultSettings()
	if !in.AIModel.IsKnown() {
		in.AIModel = def.AIModel
	}
	if in.ActiveView == "" {
		in.ActiveView = def.ActiveView
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.current = in
}

// Get returns the current settings
func (s *Store) Get() models.Settings {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current
}

// Model returns the selected AI model
func (s *Store) Model() models.AIModel {
	return s.Get().AIModel
}

// SetModel selects an AI model from the supported set
func (s *Store) SetModel(m models.AIModel) error {
	_, err := s.Apply(Patch{AIModel: &m})
	return err
}

// Apply validates and stores a partial update
func (s *Store) Apply(p Patch) (models.Settings, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	next := s.current
	if p.AIModel != nil {
		next.AIModel = *p.AIModel
	}
	if p.ActiveView != nil {
		next.ActiveView = *p.ActiveView
	}
	if err := validation.Struct(next); err != nil {
		return s.current, fmt.Errorf("invalid settings: %w", err)
	}
	s.current = next
	if s.onChange != nil {
		s.onChange(next)
	}
	return next, nil
}
