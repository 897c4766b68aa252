// Package orchestrator runs the AI round trips that create and edit a schedule:
// build a prompt, call the model, parse the reply, and commit it or report why not.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	logpkg "github.com/benvon/whatodo/internal/logger"
	"github.com/benvon/whatodo/internal/metrics"
	"github.com/benvon/whatodo/internal/models"
	"github.com/benvon/whatodo/internal/notify"
	"github.com/benvon/whatodo/internal/parser"
	"github.com/benvon/whatodo/internal/prompt"
	"github.com/benvon/whatodo/internal/queue"
	"github.com/benvon/whatodo/internal/services/ai"
	"github.com/benvon/whatodo/internal/telemetry"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/zap"
	"golang.org/x/sync/semaphore"
)

// Operations, also used as metric and event labels
const (
	OpGenerate   = "generate"
	OpRegenerate = "regenerate"
	OpChat       = "chat"
)

// DefaultTimeout bounds a single AI call
const DefaultTimeout = 60 * time.Second

// State is what the orchestrator is doing right now
type State string

const (
	StateIdle       State = "idle"
	StateGenerating State = "generating"
	StateChatting   State = "chatting"
)

// Status is a point-in-time view for callers polling progress
type Status struct {
	State     State  `json:"state"`
	Operation string `json:"operation,omitempty"`
	Model     string `json:"model,omitempty"`
	LastError string `json:"last_error,omitempty"`
}

// TaskSource supplies the tasks a prompt is built from
type TaskSource interface {
	Today() string
	Active(date string) []models.Task
	All() []models.Task
}

// ScheduleStore receives committed schedules
type ScheduleStore interface {
	Blocks() []models.ScheduleBlock
	Len() int
	Date() string
	SetSchedule(blocks []models.ScheduleBlock)
	Commit(date string, blocks []models.ScheduleBlock)
}

// ChatLog records the conversation shown next to the schedule
type ChatLog interface {
	Append(role models.ChatRole, content string) models.ChatMessage
	Reset(msgs ...models.ChatMessage)
	Messages() []models.ChatMessage
}

// ModelSource reports the user's selected model
type ModelSource interface {
	Model() models.AIModel
}

// Deps are the collaborators an Orchestrator drives
type Deps struct {
	AI        ai.Completer
	Tasks     TaskSource
	Schedule  ScheduleStore
	Chat      ChatLog
	Settings  ModelSource
	Notifier  notify.Sink
	Publisher queue.Publisher
}

// Options tune an Orchestrator; zero values pick defaults
type Options struct {
	Timeout       time.Duration
	HistoryWindow int
	Now           func() time.Time
	Logger        *zap.Logger
}

// Result describes a committed generation or chat reply
type Result struct {
	Operation string                 `json:"operation"`
	Reply     string                 `json:"reply,omitempty"`
	Blocks    []models.ScheduleBlock `json:"timetable,omitempty"`
	Changed   bool                   `json:"changed"`
	// ScheduleError explains why a chat reply's embedded schedule was ignored
	ScheduleError string `json:"schedule_error,omitempty"`
}

// Orchestrator allows at most one AI round trip at a time. A second request
// while one is in flight fails immediately with ErrBusy.
type Orchestrator struct {
	deps    Deps
	slot    *semaphore.Weighted
	timeout time.Duration
	window  int
	now     func() time.Time
	logger  *zap.Logger

	mu     sync.RWMutex
	status Status
}

// New creates an Orchestrator
func New(deps Deps, opts Options) *Orchestrator {
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}
	if opts.HistoryWindow <= 0 {
		opts.HistoryWindow = prompt.DefaultHistoryWindow
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if deps.Publisher == nil {
		deps.Publisher = queue.NoopPublisher{}
	}
	return &Orchestrator{
		deps:    deps,
		slot:    semaphore.NewWeighted(1),
		timeout: opts.Timeout,
		window:  opts.HistoryWindow,
		now:     opts.Now,
		logger:  opts.Logger,
		status:  Status{State: StateIdle},
	}
}

// Status returns the current state
func (o *Orchestrator) Status() Status {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.status
}

// GenerationPrompt returns the prompt Generate would send right now
func (o *Orchestrator) GenerationPrompt() (string, error) {
	active := o.deps.Tasks.Active(o.deps.Tasks.Today())
	if len(active) == 0 {
		return "", ErrNoActiveTasks
	}
	return prompt.Generation(active, o.now()), nil
}

// Generate builds a schedule for today's active tasks and replaces the current one
func (o *Orchestrator) Generate(ctx context.Context) (Result, error) {
	return o.generate(ctx, OpGenerate)
}

// Regenerate asks for a fresh schedule for the same tasks
func (o *Orchestrator) Regenerate(ctx context.Context) (Result, error) {
	return o.generate(ctx, OpRegenerate)
}

func (o *Orchestrator) generate(ctx context.Context, op string) (Result, error) {
	date := o.deps.Tasks.Today()
	active := o.deps.Tasks.Active(date)
	if len(active) == 0 {
		metrics.RecordGeneration(op, metrics.OutcomeRejected)
		return Result{}, ErrNoActiveTasks
	}

	release, err := o.acquire(op, StateGenerating)
	if err != nil {
		return Result{}, err
	}
	defer release()

	ctx, span := telemetry.StartSpan(ctx, "orchestrator."+op, attribute.Int("tasks.active", len(active)))
	defer span.End()

	text, err := o.complete(ctx, op, prompt.Generation(active, o.now()))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "ai call failed")
		return Result{}, o.generationFailed(op, err, o.describe(err))
	}

	blocks, err := parser.ParseSchedule(text)
	if err != nil {
		metrics.RecordParseFailure(op)
		o.logger.Debug("unparseable_reply", zap.String("operation", op), logpkg.ReplyPreview(text))
		span.RecordError(err)
		span.SetStatus(codes.Error, "unparseable reply")
		reason := "Could not parse timetable from AI response"
		if op == OpRegenerate {
			reason = "Failed to parse AI response"
		}
		return Result{}, o.generationFailed(op, fmt.Errorf("%s: %w", reason, err), reason)
	}

	blocks = linkTasks(blocks, active)
	o.deps.Schedule.Commit(date, blocks)

	if op == OpRegenerate {
		o.resetChat(
			models.ChatMessage{Role: models.ChatRoleSystem, Content: "Timetable regenerated!"},
			models.ChatMessage{Role: models.ChatRoleAI, Content: fmt.Sprintf("Fresh schedule with %d blocks. Ask me to adjust anything!", len(blocks))},
		)
	} else {
		o.resetChat(
			models.ChatMessage{Role: models.ChatRoleSystem, Content: "Timetable generated! Ask me to rearrange anything."},
			models.ChatMessage{Role: models.ChatRoleAI, Content: fmt.Sprintf("I've built your schedule with %d blocks, prioritizing your critical tasks in peak hours. Want me to adjust anything?", len(blocks))},
		)
	}

	span.SetAttributes(attribute.Int("schedule.blocks", len(blocks)))
	o.succeeded(op, metrics.OutcomeSuccess)
	o.publish(ctx, op, date, o.deps.Schedule.Blocks())
	o.logger.Info("schedule_committed",
		zap.String("operation", op),
		zap.String("date", date),
		zap.Int("blocks", len(blocks)),
	)
	return Result{Operation: op, Blocks: blocks, Changed: true}, nil
}

// Chat sends message with the current schedule as context. The reply is
// always logged; the schedule is replaced only when the reply carries a
// valid one.
func (o *Orchestrator) Chat(ctx context.Context, message string) (Result, error) {
	message = strings.TrimSpace(message)
	if message == "" {
		metrics.RecordGeneration(OpChat, metrics.OutcomeRejected)
		return Result{}, ErrEmptyMessage
	}
	if o.deps.Schedule.Len() == 0 {
		metrics.RecordGeneration(OpChat, metrics.OutcomeRejected)
		return Result{}, ErrNoSchedule
	}

	release, err := o.acquire(OpChat, StateChatting)
	if err != nil {
		return Result{}, err
	}
	defer release()

	ctx, span := telemetry.StartSpan(ctx, "orchestrator.chat")
	defer span.End()

	date := o.deps.Schedule.Date()
	if date == "" {
		date = o.deps.Tasks.Today()
	}
	active := o.deps.Tasks.Active(date)

	history := o.deps.Chat.Messages()
	o.deps.Chat.Append(models.ChatRoleUser, message)

	in := prompt.ChatInput{
		Tasks:    active,
		Schedule: o.deps.Schedule.Blocks(),
		History:  history,
		Message:  message,
		Window:   o.window,
	}
	text, err := o.complete(ctx, OpChat, prompt.Chat(in))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "ai call failed")
		userText := o.describe(err)
		o.deps.Chat.Append(models.ChatRoleAI, "Something went wrong: "+userText)
		o.failed(OpChat, err, userText)
		return Result{}, &GenerationError{Op: OpChat, Message: userText, Err: err}
	}

	reply := parser.ParseChat(text)
	o.deps.Chat.Append(models.ChatRoleAI, reply.Message)

	result := Result{Operation: OpChat, Reply: reply.Message}
	if reply.ScheduleErr != nil {
		metrics.RecordParseFailure(OpChat)
		result.ScheduleError = reply.ScheduleErr.Error()
		o.logger.Warn("chat_schedule_rejected", zap.Error(reply.ScheduleErr), logpkg.ReplyPreview(text))
	}
	if !reply.HasSchedule() {
		o.succeeded(OpChat, metrics.OutcomeNoChange)
		return result, nil
	}

	blocks := linkTasks(reply.Blocks, active)
	o.deps.Schedule.SetSchedule(blocks)
	o.publish(ctx, OpChat, date, o.deps.Schedule.Blocks())
	o.succeeded(OpChat, metrics.OutcomeSuccess)
	o.logger.Info("schedule_committed",
		zap.String("operation", OpChat),
		zap.String("date", date),
		zap.Int("blocks", len(blocks)),
	)

	result.Blocks = blocks
	result.Changed = true
	return result, nil
}

func (o *Orchestrator) acquire(op string, state State) (func(), error) {
	if !o.slot.TryAcquire(1) {
		metrics.RecordGeneration(op, metrics.OutcomeRejected)
		o.logger.Debug("generation_rejected_busy", zap.String("operation", op))
		return nil, ErrBusy
	}
	o.mu.Lock()
	o.status = Status{State: state, Operation: op, Model: string(o.deps.Settings.Model()), LastError: o.status.LastError}
	o.mu.Unlock()

	return func() {
		o.mu.Lock()
		o.status.State = StateIdle
		o.status.Operation = ""
		o.status.Model = ""
		o.mu.Unlock()
		o.slot.Release(1)
	}, nil
}

func (o *Orchestrator) complete(ctx context.Context, op, text string) (string, error) {
	model := string(o.deps.Settings.Model())
	ctx, cancel := context.WithTimeout(ctx, o.timeout)
	defer cancel()

	start := time.Now()
	out, err := o.deps.AI.Complete(ctx, text, model)
	metrics.RecordGenerationDuration(op, model, time.Since(start))
	return out, err
}

func (o *Orchestrator) describe(err error) string {
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Sprintf("The AI service did not respond within %s.", o.timeout)
	}
	return ai.UserMessage(err)
}

func (o *Orchestrator) generationFailed(op string, err error, userText string) error {
	if op == OpRegenerate {
		o.resetChat(models.ChatMessage{Role: models.ChatRoleAI, Content: "Regeneration failed: " + userText})
	} else {
		o.resetChat(
			models.ChatMessage{Role: models.ChatRoleSystem, Content: "Timetable generation failed."},
			models.ChatMessage{Role: models.ChatRoleAI, Content: "Sorry, I had trouble generating the timetable. " + userText},
		)
	}
	o.failed(op, err, userText)
	return &GenerationError{Op: op, Message: userText, Err: err}
}

func (o *Orchestrator) failed(op string, err error, userText string) {
	metrics.RecordGeneration(op, metrics.OutcomeFailed)
	o.mu.Lock()
	o.status.LastError = userText
	o.mu.Unlock()
	if o.deps.Notifier != nil {
		o.deps.Notifier.Show(userText, notify.KindError)
	}
	o.logger.Warn("generation_failed", zap.String("operation", op), zap.Error(err))
}

func (o *Orchestrator) succeeded(op, outcome string) {
	metrics.RecordGeneration(op, outcome)
	o.mu.Lock()
	o.status.LastError = ""
	o.mu.Unlock()
}

func (o *Orchestrator) resetChat(msgs ...models.ChatMessage) {
	now := o.now().UTC()
	for i := range msgs {
		msgs[i].Timestamp = &now
	}
	o.deps.Chat.Reset(msgs...)
}

func (o *Orchestrator) publish(ctx context.Context, op, date string, blocks []models.ScheduleBlock) {
	event := queue.NewEvent(queue.EventScheduleCommitted, op, date, blocks)
	if err := o.deps.Publisher.Publish(ctx, event); err != nil {
		o.logger.Warn("event_publish_failed",
			zap.String("event_id", event.ID.String()),
			zap.String("operation", op),
			zap.Error(err),
		)
	}
}

// linkTasks sets TaskID on blocks whose title matches a task exactly. Blocks
// that already carry an id keep it.
func linkTasks(blocks []models.ScheduleBlock, tasks []models.Task) []models.ScheduleBlock {
	byTitle := make(map[string]models.Task, len(tasks))
	for _, t := range tasks {
		if _, dup := byTitle[t.Title]; !dup {
			byTitle[t.Title] = t
		}
	}
	out := models.CloneBlocks(blocks)
	for i := range out {
		if out[i].TaskID != nil {
			continue
		}
		if t, ok := byTitle[out[i].TaskTitle]; ok {
			id := t.ID
			out[i].TaskID = &id
		}
	}
	return out
}
