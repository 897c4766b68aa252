// Package tasks holds the user's task collection.
package tasks

import (
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/benvon/whatodo/internal/models"
	"github.com/benvon/whatodo/internal/validation"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const dateLayout = "2006-01-02"

var (
	// ErrNotFound is returned when no task has the given id
	ErrNotFound = errors.New("task not found")
	// ErrInvalidFilter is returned by ParseFilter for unknown filter names
	ErrInvalidFilter = errors.New("invalid filter")
)

// Filter selects a subset of tasks: all, active, done, or one priority
type Filter string

const (
	FilterAll    Filter = "all"
	FilterActive Filter = "active"
	FilterDone   Filter = "done"
)

// ParseFilter validates a filter name; empty means all
func ParseFilter(s string) (Filter, error) {
	switch f := Filter(strings.ToLower(strings.TrimSpace(s))); f {
	case "":
		return FilterAll, nil
	case FilterAll, FilterActive, FilterDone:
		return f, nil
	default:
		if models.Priority(f).Rank() >= 0 {
			return f, nil
		}
		return "", fmt.Errorf("%w: %q", ErrInvalidFilter, s)
	}
}

func (f Filter) match(t models.Task) bool {
	switch f {
	case "", FilterAll:
		return true
	case FilterActive:
		return t.IsActive()
	case FilterDone:
		return !t.IsActive()
	default:
		return t.Priority == models.Priority(f)
	}
}

// ChangeFunc receives the full collection after every mutation. It runs with
// the store lock held and must not call back into the Store.
type ChangeFunc func([]models.Task)

// RenameFunc is told when a task's title changes
type RenameFunc func(id uuid.UUID, title string)

// Store is safe for concurrent use. Newest tasks come first.
type Store struct {
	mu       sync.RWMutex
	tasks    []models.Task
	now      func() time.Time
	onChange ChangeFunc
	onRename RenameFunc
	logger   *zap.Logger
}

// Option configures a Store
type Option func(*Store)

// WithClock overrides time.Now
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// WithChangeHook registers the persistence callback
func WithChangeHook(fn ChangeFunc) Option {
	return func(s *Store) { s.onChange = fn }
}

// WithRenameHook registers the callback fired when a title changes
func WithRenameHook(fn RenameFunc) Option {
	return func(s *Store) { s.onRename = fn }
}

// WithLogger sets the logger
func WithLogger(logger *zap.Logger) Option {
	return func(s *Store) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// NewStore creates an empty collection
func NewStore(opts ...Option) *Store {
	s := &Store{now: time.Now, logger: zap.NewNop()}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// SetRenameHook wires the rename callback after construction, for stores that
// are built before the schedule they notify.
func (s *Store) SetRenameHook(fn RenameFunc) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onRename = fn
}

// Replace swaps in a persisted collection without firing the change hook
func (s *Store) Replace(all []models.Task) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tasks = cloneTasks(all)
}

// Today is the current date in YYYY-MM-DD
func (s *Store) Today() string {
	return s.now().Format(dateLayout)
}

// Add validates input and stores a new todo task at the front of the list
func (s *Store) Add(input models.TaskInput) (models.Task, error) {
	input.Title = validation.SanitizeText(input.Title)
	input.Description = validation.SanitizeText(input.Description)
	input.Category = validation.SanitizeText(input.Category)
	if input.Priority == "" {
		input.Priority = models.PriorityMedium
	}
	if err := validation.Struct(input); err != nil {
		return models.Task{}, err
	}
	if input.Date == "" {
		input.Date = s.Today()
	}

	task := models.Task{
		ID:               uuid.New(),
		Title:            input.Title,
		Description:      input.Description,
		Priority:         input.Priority,
		EstimatedMinutes: input.EstimatedMinutes,
		Status:           models.TaskStatusTodo,
		Date:             input.Date,
		TimePreference:   input.TimePreference,
		Category:         input.Category,
		Tags:             append([]string(nil), input.Tags...),
		DueDate:          input.DueDate,
		CreatedAt:        s.now().UTC(),
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.tasks = append([]models.Task{task}, s.tasks...)
	s.changed()
	s.logger.Debug("task_added", zap.String("task_id", task.ID.String()), zap.String("priority", string(task.Priority)))
	return cloneTask(task), nil
}

// AddCompanion creates the task backing a manually inserted schedule block
func (s *Store) AddCompanion(title string, minutes int, date string) (uuid.UUID, error) {
	t, err := s.Add(models.TaskInput{
		Title:            title,
		Priority:         models.PriorityMedium,
		EstimatedMinutes: minutes,
		Date:             date,
	})
	if err != nil {
		return uuid.Nil, err
	}
	return t.ID, nil
}

// Update applies a partial edit and stamps UpdatedAt. The rename hook runs
// after the store lock is released.
func (s *Store) Update(id uuid.UUID, patch models.TaskPatch) (models.Task, error) {
	updated, renamed, err := s.update(id, patch)
	if err != nil {
		return models.Task{}, err
	}
	if renamed {
		s.mu.RLock()
		hook := s.onRename
		s.mu.RUnlock()
		if hook != nil {
			hook(id, updated.Title)
		}
	}
	return updated, nil
}

func (s *Store) update(id uuid.UUID, patch models.TaskPatch) (models.Task, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.index(id)
	if i < 0 {
		return models.Task{}, false, ErrNotFound
	}
	cur := s.tasks[i]
	next := cur

	if patch.Title != nil {
		next.Title = validation.SanitizeText(*patch.Title)
	}
	if patch.Description != nil {
		next.Description = validation.SanitizeText(*patch.Description)
	}
	if patch.Priority != nil {
		next.Priority = *patch.Priority
	}
	if patch.EstimatedMinutes != nil {
		next.EstimatedMinutes = *patch.EstimatedMinutes
	}
	if patch.Date != nil {
		next.Date = *patch.Date
	}
	if patch.TimePreference != nil {
		next.TimePreference = *patch.TimePreference
	}
	if patch.Status != nil {
		if err := validation.ValidateTaskStatus(string(*patch.Status)); err != nil {
			return models.Task{}, false, err
		}
		next.Status = *patch.Status
	}

	if err := validation.Struct(inputOf(next)); err != nil {
		return models.Task{}, false, err
	}

	now := s.now().UTC()
	next.UpdatedAt = &now
	s.tasks[i] = next
	s.changed()
	return cloneTask(next), next.Title != cur.Title, nil
}

// Delete removes a task and returns it so the caller can undo with Restore
func (s *Store) Delete(id uuid.UUID) (models.Task, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.index(id)
	if i < 0 {
		return models.Task{}, false
	}
	removed := s.tasks[i]
	s.tasks = append(s.tasks[:i:i], s.tasks[i+1:]...)
	s.changed()
	return removed, true
}

// Restore puts back a task removed by Delete. A task whose id is already
// present is overwritten in place.
func (s *Store) Restore(task models.Task) models.Task {
	s.mu.Lock()
	defer s.mu.Unlock()
	task = cloneTask(task)
	if i := s.index(task.ID); i >= 0 {
		s.tasks[i] = task
	} else {
		s.tasks = append([]models.Task{task}, s.tasks...)
	}
	s.changed()
	return cloneTask(task)
}

// Toggle flips done and todo; an in-progress task becomes done
func (s *Store) Toggle(id uuid.UUID) (models.Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.index(id)
	if i < 0 {
		return models.Task{}, ErrNotFound
	}
	if s.tasks[i].Status == models.TaskStatusDone {
		s.tasks[i].Status = models.TaskStatusTodo
	} else {
		s.tasks[i].Status = models.TaskStatusDone
	}
	now := s.now().UTC()
	s.tasks[i].UpdatedAt = &now
	s.changed()
	return cloneTask(s.tasks[i]), nil
}

// Get returns one task
func (s *Store) Get(id uuid.UUID) (models.Task, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if i := s.index(id); i >= 0 {
		return cloneTask(s.tasks[i]), nil
	}
	return models.Task{}, ErrNotFound
}

// All returns every task, newest first
func (s *Store) All() []models.Task {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return cloneTasks(s.tasks)
}

// List applies a filter and a case-insensitive search over title and description
func (s *Store) List(filter Filter, query string) []models.Task {
	q := strings.ToLower(strings.TrimSpace(query))

	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.Task, 0, len(s.tasks))
	for _, t := range s.tasks {
		if !filter.match(t) {
			continue
		}
		if q != "" &&
			!strings.Contains(strings.ToLower(t.Title), q) &&
			!strings.Contains(strings.ToLower(t.Description), q) {
			continue
		}
		out = append(out, cloneTask(t))
	}
	return out
}

// Active returns the tasks eligible for scheduling on date. Tasks without a
// date match every day; an empty date matches every task.
func (s *Store) Active(date string) []models.Task {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.Task, 0, len(s.tasks))
	for _, t := range s.tasks {
		if !t.IsActive() {
			continue
		}
		if date != "" && t.Date != "" && t.Date != date {
			continue
		}
		out = append(out, cloneTask(t))
	}
	return out
}

// Stats counts total, active and done tasks
func (s *Store) Stats() models.TaskStats {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var st models.TaskStats
	st.Total = len(s.tasks)
	for _, t := range s.tasks {
		if t.IsActive() {
			st.Active++
		} else {
			st.Done++
		}
	}
	return st
}

// ClearAll removes every task
func (s *Store) ClearAll() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tasks = nil
	s.changed()
}

func (s *Store) index(id uuid.UUID) int {
	for i := range s.tasks {
		if s.tasks[i].ID == id {
			return i
		}
	}
	return -1
}

func (s *Store) changed() {
	if s.onChange != nil {
		s.onChange(cloneTasks(s.tasks))
	}
}

func inputOf(t models.Task) models.TaskInput {
	return models.TaskInput{
		Title:            t.Title,
		Description:      t.Description,
		Priority:         t.Priority,
		EstimatedMinutes: t.EstimatedMinutes,
		Date:             t.Date,
		TimePreference:   t.TimePreference,
		Category:         t.Category,
		Tags:             t.Tags,
		DueDate:          t.DueDate,
	}
}

func cloneTask(t models.Task) models.Task {
	if t.Tags != nil {
		t.Tags = append([]string(nil), t.Tags...)
	}
	if t.UpdatedAt != nil {
		u := *t.UpdatedAt
		t.UpdatedAt = &u
	}
	return t
}

func cloneTasks(in []models.Task) []models.Task {
	if in == nil {
		return nil
	}
	out := make([]models.Task, len(in))
	for i := range in {
		out[i] = cloneTask(in[i])
	}
	return out
}
