package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/benvon/whatodo/internal/models"
	"go.uber.org/zap"
)

// Document keys
const (
	KeyTasks     = "whatodo-tasks"
	KeyTimetable = "whatodo-timetable"
	KeySettings  = "whatodo-settings"
)

// Repository reads and writes the three persisted documents as JSON
type Repository struct {
	kv     KV
	logger *zap.Logger
}

// NewRepository wraps kv
func NewRepository(kv KV, logger *zap.Logger) *Repository {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Repository{kv: kv, logger: logger}
}

// KV returns the backing store
func (r *Repository) KV() KV {
	return r.kv
}

// LoadTasks returns the stored tasks, or an empty list when nothing was saved
func (r *Repository) LoadTasks(ctx context.Context) ([]models.Task, error) {
	var doc struct {
		Tasks []models.Task `json:"tasks"`
	}
	found, err := r.load(ctx, KeyTasks, &doc)
	if err != nil || !found {
		return []models.Task{}, err
	}
	if doc.Tasks == nil {
		doc.Tasks = []models.Task{}
	}
	return doc.Tasks, nil
}

// SaveTasks writes the whole task collection
func (r *Repository) SaveTasks(ctx context.Context, tasks []models.Task) error {
	return r.save(ctx, KeyTasks, struct {
		Tasks []models.Task `json:"tasks"`
	}{Tasks: tasks})
}

// LoadSchedule returns the stored schedule and snapshots, or an empty state
func (r *Repository) LoadSchedule(ctx context.Context) (models.ScheduleState, error) {
	var state models.ScheduleState
	if _, err := r.load(ctx, KeyTimetable, &state); err != nil {
		return models.ScheduleState{}, err
	}
	return state, nil
}

// SaveSchedule writes the schedule and snapshots
func (r *Repository) SaveSchedule(ctx context.Context, state models.ScheduleState) error {
	return r.save(ctx, KeyTimetable, state)
}

// LoadSettings returns the stored settings, falling back to defaults
func (r *Repository) LoadSettings(ctx context.Context) (models.Settings, error) {
	s := models.DefaultSettings()
	if _, err := r.load(ctx, KeySettings, &s); err != nil {
		return models.DefaultSettings(), err
	}
	return s, nil
}

// SaveSettings writes the settings document
func (r *Repository) SaveSettings(ctx context.Context, s models.Settings) error {
	return r.save(ctx, KeySettings, s)
}

// Clear deletes every persisted document
func (r *Repository) Clear(ctx context.Context) error {
	var errs []error
	for _, key := range []string{KeyTasks, KeyTimetable, KeySettings} {
		if err := r.kv.Delete(ctx, key); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (r *Repository) load(ctx context.Context, key string, out any) (bool, error) {
	raw, err := r.kv.Get(ctx, key)
	if errors.Is(err, ErrNotFound) {
		r.logger.Debug("storage_key_missing", zap.String("key", key))
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return false, fmt.Errorf("decode %s: %w", key, err)
	}
	return true, nil
}

func (r *Repository) save(ctx context.Context, key string, v any) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode %s: %w", key, err)
	}
	if err := r.kv.Put(ctx, key, raw); err != nil {
		r.logger.Error("storage_save_failed", zap.String("key", key), zap.Error(err))
		return err
	}
	return nil
}
