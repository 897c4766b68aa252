// Package schedule owns the live block list for one day plus its saved snapshots.
//
// After every structural edit (move, reorder, delete, add) the blocks are
// re-chained: the first block keeps its start, every later block starts where
// the previous one ended, and each block keeps its own length.
package schedule

import (
	"errors"
	"reflect"
	"strings"
	"sync"
	"time"

	logpkg "github.com/benvon/whatodo/internal/logger"
	"github.com/benvon/whatodo/internal/metrics"
	"github.com/benvon/whatodo/internal/models"
	"github.com/benvon/whatodo/internal/timeutil"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ErrSnapshotNotFound is reported by the lookup helpers; mutating operations stay silent
var ErrSnapshotNotFound = errors.New("snapshot not found")

// AddedBlockReasoning is the rationale attached to manually inserted blocks
const AddedBlockReasoning = "Added manually"

// TaskSink receives the companion task created for a manually added block
type TaskSink interface {
	AddCompanion(title string, minutes int, date string) (uuid.UUID, error)
}

// ChangeFunc is called with the full state after every mutation. It runs while
// the store lock is held and must not call back into the Store.
type ChangeFunc func(models.ScheduleState)

// Store is safe for concurrent use
type Store struct {
	mu           sync.RWMutex
	date         string
	blocks       []models.ScheduleBlock
	snapshots    []models.Snapshot
	defaultStart string
	now          func() time.Time
	onChange     ChangeFunc
	tasks        TaskSink
	logger       *zap.Logger
}

// Option configures a Store
type Option func(*Store)

// WithDefaultStart sets where an empty schedule starts when a block is added
func WithDefaultStart(hhmm string) Option {
	return func(s *Store) {
		if _, err := timeutil.ToMinutes(hhmm); err == nil {
			s.defaultStart = hhmm
		}
	}
}

// WithClock overrides time.Now for snapshot timestamps
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// WithChangeHook registers the persistence callback
func WithChangeHook(fn ChangeFunc) Option {
	return func(s *Store) { s.onChange = fn }
}

// WithTaskSink wires the task collection used by AddBlock
func WithTaskSink(sink TaskSink) Option {
	return func(s *Store) { s.tasks = sink }
}

// WithLogger sets the logger; the default discards output
func WithLogger(logger *zap.Logger) Option {
	return func(s *Store) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// NewStore creates an empty store
func NewStore(opts ...Option) *Store {
	s := &Store{
		defaultStart: timeutil.DefaultStart,
		now:          time.Now,
		logger:       zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Restore replaces the whole state, typically with what was persisted. The
// change hook is not fired.
func (s *Store) Restore(state models.ScheduleState) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.date = state.Date
	s.blocks = models.CloneBlocks(state.Blocks)
	s.snapshots = cloneSnapshots(state.Snapshots)
}

// State returns a deep copy of the full persisted state
func (s *Store) State() models.ScheduleState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.stateLocked()
}

func (s *Store) stateLocked() models.ScheduleState {
	return models.ScheduleState{
		Date:      s.date,
		Blocks:    models.CloneBlocks(s.blocks),
		Snapshots: cloneSnapshots(s.snapshots),
	}
}

// Blocks returns a copy of the live schedule
func (s *Store) Blocks() []models.ScheduleBlock {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return models.CloneBlocks(s.blocks)
}

// Len returns the number of live blocks
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.blocks)
}

// Date returns the day the live schedule belongs to
func (s *Store) Date() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.date
}

// SetDate stamps the live schedule with a day
func (s *Store) SetDate(date string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.date = date
	s.changed("set_date")
}

// SetSchedule replaces the live blocks as given. Clock times are not
// re-derived; only day offsets are annotated where the sequence wraps past
// midnight.
func (s *Store) SetSchedule(blocks []models.ScheduleBlock) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.blocks = annotateDays(models.CloneBlocks(blocks))
	s.changed("set")
}

// Commit replaces the live blocks and stamps the date in one step
func (s *Store) Commit(date string, blocks []models.ScheduleBlock) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.date = date
	s.blocks = annotateDays(models.CloneBlocks(blocks))
	s.changed("commit")
}

// MoveBlock swaps block index with its neighbour in direction (-1 or +1)
func (s *Store) MoveBlock(index, direction int) {
	if direction != -1 && direction != 1 {
		s.logger.Debug("schedule_move_skipped", zap.Int("index", index), zap.Int("direction", direction))
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	target := index + direction
	if !s.inRange(index) || !s.inRange(target) {
		s.logger.Debug("schedule_move_skipped", zap.Int("index", index), zap.Int("direction", direction))
		return
	}
	anchor := s.anchorLocked()
	s.blocks[index], s.blocks[target] = s.blocks[target], s.blocks[index]
	s.blocks = rechain(s.blocks, anchor)
	s.changed("move")
}

// Reorder moves the block at from so that it ends up at index to
func (s *Store) Reorder(from, to int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.inRange(from) || !s.inRange(to) || from == to {
		s.logger.Debug("schedule_reorder_skipped", zap.Int("from", from), zap.Int("to", to))
		return
	}
	anchor := s.anchorLocked()
	moved := s.blocks[from]
	rest := append(s.blocks[:from:from], s.blocks[from+1:]...)
	out := make([]models.ScheduleBlock, 0, len(s.blocks))
	out = append(out, rest[:to]...)
	out = append(out, moved)
	out = append(out, rest[to:]...)
	s.blocks = rechain(out, anchor)
	s.changed("reorder")
}

// DeleteBlock removes one block and closes the gap
func (s *Store) DeleteBlock(index int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.inRange(index) {
		s.logger.Debug("schedule_delete_skipped", zap.Int("index", index))
		return
	}
	anchor := s.anchorLocked()
	s.blocks = append(s.blocks[:index:index], s.blocks[index+1:]...)
	s.blocks = rechain(s.blocks, anchor)
	s.changed("delete")
}

// AddBlock appends a block of the given length after the last block, or at
// the default start when the schedule is empty. When a TaskSink is wired a
// companion task is created and linked.
func (s *Store) AddBlock(title string, minutes int) {
	title = strings.TrimSpace(title)
	if title == "" || minutes <= 0 || minutes >= timeutil.MinutesPerDay {
		s.logger.Debug("schedule_add_skipped", logpkg.Title(title), zap.Int("minutes", minutes))
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	var startAbs int
	if n := len(s.blocks); n > 0 {
		last := s.blocks[n-1]
		startAbs = absStart(last) + blockSpan(last)
	} else {
		startAbs = timeutil.MustMinutes(s.defaultStart)
	}

	start := timeutil.Split(startAbs)
	block := models.ScheduleBlock{
		TaskTitle: title,
		StartTime: start.String(),
		EndTime:   timeutil.ToTimeString(startAbs + minutes),
		Reasoning: AddedBlockReasoning,
		DayOffset: start.Day,
	}

	if s.tasks != nil {
		id, err := s.tasks.AddCompanion(title, minutes, s.date)
		if err != nil {
			s.logger.Warn("schedule_companion_task_failed", logpkg.Title(title), zap.Error(err))
		} else {
			block.TaskID = &id
		}
	}

	s.blocks = append(s.blocks, block)
	s.changed("add")
}

// Rechain re-derives every block's times from the first block's start. On an
// already contiguous schedule it changes nothing.
func (s *Store) Rechain() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.blocks) == 0 {
		return
	}
	s.blocks = rechain(s.blocks, s.anchorLocked())
	s.changed("rechain")
}

// RetitleTask renames every block linked to taskID
func (s *Store) RetitleTask(taskID uuid.UUID, title string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for i := range s.blocks {
		if s.blocks[i].TaskID != nil && *s.blocks[i].TaskID == taskID {
			s.blocks[i].TaskTitle = title
			n++
		}
	}
	if n > 0 {
		s.changed("retitle")
	}
}

// Clear empties the live schedule and keeps the snapshots
func (s *Store) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.blocks = nil
	s.changed("clear")
}

// ClearAll drops the live schedule, the date and every snapshot
func (s *Store) ClearAll() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.blocks = nil
	s.snapshots = nil
	s.date = ""
	s.changed("clear_all")
}

// Save archives the live schedule as the newest snapshot. An empty schedule is
// not saved and ok is false.
func (s *Store) Save(label string) (snap models.Snapshot, ok bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	snap, ok = s.saveLocked(label)
	if ok {
		s.changed("save")
	}
	return snap, ok
}

func (s *Store) saveLocked(label string) (models.Snapshot, bool) {
	if len(s.blocks) == 0 {
		return models.Snapshot{}, false
	}
	snap := models.Snapshot{
		ID:        uuid.New(),
		Blocks:    models.CloneBlocks(s.blocks),
		SavedAt:   s.now().UTC(),
		TaskCount: models.CountTaskBlocks(s.blocks),
		Date:      s.date,
		Label:     strings.TrimSpace(label),
	}
	s.snapshots = append([]models.Snapshot{snap}, s.snapshots...)
	return cloneSnapshot(snap), true
}

// Snapshots lists saved snapshots, newest first
func (s *Store) Snapshots() []models.Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return cloneSnapshots(s.snapshots)
}

// GetSnapshot looks a snapshot up by id
func (s *Store) GetSnapshot(id uuid.UUID) (models.Snapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if i := s.snapshotIndex(id); i >= 0 {
		return cloneSnapshot(s.snapshots[i]), nil
	}
	return models.Snapshot{}, ErrSnapshotNotFound
}

// Load copies a snapshot back into the live schedule. Unknown ids are ignored.
func (s *Store) Load(id uuid.UUID) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.snapshotIndex(id)
	if i < 0 {
		s.logger.Debug("snapshot_load_skipped", zap.String("snapshot_id", id.String()))
		return false
	}
	s.blocks = models.CloneBlocks(s.snapshots[i].Blocks)
	if s.snapshots[i].Date != "" {
		s.date = s.snapshots[i].Date
	}
	s.changed("load")
	return true
}

// DeleteSnapshot discards a snapshot. Unknown ids are ignored.
func (s *Store) DeleteSnapshot(id uuid.UUID) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.snapshotIndex(id)
	if i < 0 {
		return false
	}
	s.snapshots = append(s.snapshots[:i:i], s.snapshots[i+1:]...)
	s.changed("delete_snapshot")
	return true
}

// SwitchDay archives the current schedule and brings up the newest snapshot
// saved for date, or an empty schedule when there is none. The archive is
// skipped when the newest snapshot for the current day already holds the
// same blocks.
func (s *Store) SwitchDay(date string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if date == s.date {
		return
	}
	if !s.archivedLocked() {
		s.saveLocked("")
	}
	s.date = date
	s.blocks = nil
	for _, snap := range s.snapshots {
		if snap.Date == date {
			s.blocks = models.CloneBlocks(snap.Blocks)
			break
		}
	}
	s.changed("switch_day")
}

// archivedLocked reports whether the newest snapshot for the live date equals the live blocks
func (s *Store) archivedLocked() bool {
	for _, snap := range s.snapshots {
		if snap.Date == s.date {
			return reflect.DeepEqual(snap.Blocks, s.blocks)
		}
	}
	return false
}

func (s *Store) inRange(i int) bool {
	return i >= 0 && i < len(s.blocks)
}

// anchorLocked is the absolute start of the first block, falling back to the
// default start when it is unreadable.
func (s *Store) anchorLocked() int {
	if len(s.blocks) == 0 {
		return timeutil.MustMinutes(s.defaultStart)
	}
	first := s.blocks[0]
	m, err := timeutil.ToMinutes(first.StartTime)
	if err != nil {
		return timeutil.MustMinutes(s.defaultStart)
	}
	return first.DayOffset*timeutil.MinutesPerDay + m
}

func (s *Store) snapshotIndex(id uuid.UUID) int {
	for i := range s.snapshots {
		if s.snapshots[i].ID == id {
			return i
		}
	}
	return -1
}

func (s *Store) changed(kind string) {
	metrics.RecordScheduleMutation(kind)
	if s.onChange != nil {
		s.onChange(s.stateLocked())
	}
}

func cloneSnapshot(snap models.Snapshot) models.Snapshot {
	snap.Blocks = models.CloneBlocks(snap.Blocks)
	return snap
}

func cloneSnapshots(in []models.Snapshot) []models.Snapshot {
	if in == nil {
		return nil
	}
	out := make([]models.Snapshot, len(in))
	for i := range in {
		out[i] = cloneSnapshot(in[i])
	}
	return out
}
