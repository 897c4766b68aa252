package orchestrator

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/benvon/whatodo/internal/chatlog"
	"github.com/benvon/whatodo/internal/models"
	"github.com/benvon/whatodo/internal/notify"
	"github.com/benvon/whatodo/internal/queue"
	"github.com/benvon/whatodo/internal/schedule"
	"github.com/benvon/whatodo/internal/settings"
	"github.com/benvon/whatodo/internal/tasks"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const specReply = `[{"taskTitle":"Write report","startTime":"09:00","endTime":"10:00","reasoning":"peak focus"},{"taskTitle":"Break","startTime":"10:00","endTime":"10:10","reasoning":"rest"},{"taskTitle":"Gym","startTime":"10:10","endTime":"10:40","reasoning":"afternoon ok"}]`

var fixedNow = time.Date(2026, 10, 15, 8, 20, 0, 0, time.UTC)

type fakeAI struct {
	mu      sync.Mutex
	fn      func(ctx context.Context, prompt, model string) (string, error)
	prompts []string
	models  []string
}

func (f *fakeAI) Complete(ctx context.Context, prompt, model string) (string, error) {
	f.mu.Lock()
	f.prompts = append(f.prompts, prompt)
	f.models = append(f.models, model)
	fn := f.fn
	f.mu.Unlock()
	return fn(ctx, prompt, model)
}

func (f *fakeAI) calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.prompts)
}

func reply(text string) func(context.Context, string, string) (string, error) {
	return func(context.Context, string, string) (string, error) { return text, nil }
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []*queue.Event
}

func (p *recordingPublisher) Publish(_ context.Context, e *queue.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, e)
	return nil
}

type harness struct {
	orch     *Orchestrator
	ai       *fakeAI
	tasks    *tasks.Store
	schedule *schedule.Store
	chat     *chatlog.Log
	settings *settings.Store
	notes    *notify.Center
	pub      *recordingPublisher
}

func newHarness(t *testing.T, fn func(context.Context, string, string) (string, error), opts Options) *harness {
	t.Helper()
	clock := func() time.Time { return fixedNow }
	h := &harness{
		ai:       &fakeAI{fn: fn},
		tasks:    tasks.NewStore(tasks.WithClock(clock)),
		chat:     chatlog.NewWithClock(clock),
		settings: settings.NewStore(nil),
		notes:    notify.NewCenter(time.Minute),
		pub:      &recordingPublisher{},
	}
	t.Cleanup(h.notes.Close)
	h.schedule = schedule.NewStore(schedule.WithClock(clock), schedule.WithTaskSink(h.tasks))
	opts.Now = clock
	h.orch = New(Deps{
		AI:        h.ai,
		Tasks:     h.tasks,
		Schedule:  h.schedule,
		Chat:      h.chat,
		Settings:  h.settings,
		Notifier:  h.notes,
		Publisher: h.pub,
	}, opts)
	return h
}

func (h *harness) addTasks(t *testing.T) {
	t.Helper()
	_, err := h.tasks.Add(models.TaskInput{Title: "Gym", Priority: models.PriorityMedium, EstimatedMinutes: 30})
	require.NoError(t, err)
	_, err = h.tasks.Add(models.TaskInput{Title: "Write report", Priority: models.PriorityHigh, EstimatedMinutes: 60})
	require.NoError(t, err)
}

func contents(msgs []models.ChatMessage) []string {
	out := make([]string, len(msgs))
	for i, m := range msgs {
		out[i] = string(m.Role) + ": " + m.Content
	}
	return out
}

func TestGenerateCommitsParsedSchedule(t *testing.T) {
	h := newHarness(t, reply("```json\n"+specReply+"\n```"), Options{})
	h.addTasks(t)

	res, err := h.orch.Generate(context.Background())
	require.NoError(t, err)
	assert.True(t, res.Changed)
	require.Len(t, res.Blocks, 3)

	blocks := h.schedule.Blocks()
	require.Len(t, blocks, 3)
	assert.Equal(t, "2026-10-15", h.schedule.Date())
	require.NotNil(t, blocks[0].TaskID, "Write report should link to its task")
	assert.Nil(t, blocks[1].TaskID, "breaks have no task")
	require.NotNil(t, blocks[2].TaskID)

	gym, err := h.tasks.Get(*blocks[2].TaskID)
	require.NoError(t, err)
	assert.Equal(t, "Gym", gym.Title)

	assert.Equal(t, []string{
		"system: Timetable generated! Ask me to rearrange anything.",
		"ai: I've built your schedule with 3 blocks, prioritizing your critical tasks in peak hours. Want me to adjust anything?",
	}, contents(h.chat.Messages()))

	require.Len(t, h.pub.events, 1)
	assert.Equal(t, queue.EventScheduleCommitted, h.pub.events[0].Type)
	assert.Equal(t, OpGenerate, h.pub.events[0].Source)
	assert.Len(t, h.pub.events[0].Blocks, 3)

	assert.Equal(t, StateIdle, h.orch.Status().State)
	assert.Equal(t, string(models.DefaultSettings().AIModel), h.ai.models[0])
	assert.Contains(t, h.ai.prompts[0], `"Write report"`)
	assert.Contains(t, h.ai.prompts[0], "Est. time: 60min")
}

func TestGenerateWithoutActiveTasks(t *testing.T) {
	h := newHarness(t, reply(specReply), Options{})
	task, err := h.tasks.Add(models.TaskInput{Title: "Done already", EstimatedMinutes: 10})
	require.NoError(t, err)
	_, err = h.tasks.Toggle(task.ID)
	require.NoError(t, err)

	_, err = h.orch.Generate(context.Background())
	assert.ErrorIs(t, err, ErrNoActiveTasks)
	assert.Zero(t, h.ai.calls())
	assert.Equal(t, []string{"system: " + chatlog.Greeting}, contents(h.chat.Messages()))

	_, err = h.orch.GenerationPrompt()
	assert.ErrorIs(t, err, ErrNoActiveTasks)
}

func TestGenerateFailures(t *testing.T) {
	tests := []struct {
		name     string
		op       string
		fn       func(context.Context, string, string) (string, error)
		wantChat []string
		wantText string
	}{
		{
			name: "ai error on generate",
			op:   OpGenerate,
			fn: func(context.Context, string, string) (string, error) {
				return "", errors.New("AI request failed: not signed in")
			},
			wantChat: []string{
				"system: Timetable generation failed.",
				"ai: Sorry, I had trouble generating the timetable. AI request failed: not signed in",
			},
			wantText: "AI request failed: not signed in",
		},
		{
			name: "unparseable generate",
			op:   OpGenerate,
			fn:   reply("Here is your day! Enjoy."),
			wantChat: []string{
				"system: Timetable generation failed.",
				"ai: Sorry, I had trouble generating the timetable. Could not parse timetable from AI response",
			},
			wantText: "Could not parse timetable from AI response",
		},
		{
			name:     "unparseable regenerate",
			op:       OpRegenerate,
			fn:       reply(`[{"taskTitle":"","startTime":"09:00","endTime":"10:00"}]`),
			wantChat: []string{"ai: Regeneration failed: Failed to parse AI response"},
			wantText: "Failed to parse AI response",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t, tt.fn, Options{})
			h.addTasks(t)
			prior := []models.ScheduleBlock{{TaskTitle: "Old", StartTime: "08:00", EndTime: "09:00"}}
			h.schedule.SetSchedule(prior)

			var err error
			if tt.op == OpRegenerate {
				_, err = h.orch.Regenerate(context.Background())
			} else {
				_, err = h.orch.Generate(context.Background())
			}

			var genErr *GenerationError
			require.ErrorAs(t, err, &genErr)
			assert.Equal(t, tt.op, genErr.Op)
			assert.Equal(t, tt.wantText, genErr.Message)

			assert.Equal(t, prior, h.schedule.Blocks(), "prior schedule must survive a failure")
			assert.Equal(t, tt.wantChat, contents(h.chat.Messages()))
			assert.Empty(t, h.pub.events)

			notes := h.notes.List()
			require.Len(t, notes, 1)
			assert.Equal(t, notify.KindError, notes[0].Kind)
			assert.Equal(t, tt.wantText, notes[0].Message)
			assert.Equal(t, tt.wantText, h.orch.Status().LastError)
		})
	}
}

func TestRegenerateSuccess(t *testing.T) {
	h := newHarness(t, reply(specReply), Options{})
	h.addTasks(t)

	_, err := h.orch.Regenerate(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{
		"system: Timetable regenerated!",
		"ai: Fresh schedule with 3 blocks. Ask me to adjust anything!",
	}, contents(h.chat.Messages()))
	assert.Equal(t, OpRegenerate, h.pub.events[0].Source)
}

func TestTimeout(t *testing.T) {
	h := newHarness(t, func(ctx context.Context, _, _ string) (string, error) {
		<-ctx.Done()
		return "", ctx.Err()
	}, Options{Timeout: 20 * time.Millisecond})
	h.addTasks(t)

	_, err := h.orch.Generate(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	var genErr *GenerationError
	require.ErrorAs(t, err, &genErr)
	assert.Contains(t, genErr.Message, "did not respond within 20ms")
	assert.Equal(t, StateIdle, h.orch.Status().State)
}

func TestSecondRequestIsRejectedWhileBusy(t *testing.T) {
	release := make(chan struct{})
	h := newHarness(t, func(ctx context.Context, _, _ string) (string, error) {
		<-release
		return specReply, nil
	}, Options{})
	h.addTasks(t)
	h.schedule.SetSchedule([]models.ScheduleBlock{{TaskTitle: "Old", StartTime: "08:00", EndTime: "09:00"}})

	done := make(chan error, 1)
	go func() {
		_, err := h.orch.Generate(context.Background())
		done <- err
	}()

	require.Eventually(t, func() bool {
		return h.orch.Status().State == StateGenerating
	}, time.Second, time.Millisecond)
	assert.Equal(t, OpGenerate, h.orch.Status().Operation)

	_, err := h.orch.Regenerate(context.Background())
	assert.ErrorIs(t, err, ErrBusy)
	_, err = h.orch.Chat(context.Background(), "swap gym")
	assert.ErrorIs(t, err, ErrBusy)

	close(release)
	require.NoError(t, <-done)
	assert.Equal(t, 1, h.ai.calls())
	assert.Equal(t, StateIdle, h.orch.Status().State)

	_, err = h.orch.Regenerate(context.Background())
	assert.NoError(t, err, "slot is released after completion")
}

func TestChatGuards(t *testing.T) {
	h := newHarness(t, reply("MESSAGE: hi"), Options{})

	_, err := h.orch.Chat(context.Background(), "   ")
	assert.ErrorIs(t, err, ErrEmptyMessage)

	_, err = h.orch.Chat(context.Background(), "move gym")
	assert.ErrorIs(t, err, ErrNoSchedule)
	assert.Zero(t, h.ai.calls())
	assert.Len(t, h.chat.Messages(), 1)
}

func TestChat(t *testing.T) {
	start := []models.ScheduleBlock{
		{TaskTitle: "Write report", StartTime: "09:00", EndTime: "10:00"},
		{TaskTitle: "Gym", StartTime: "10:00", EndTime: "10:30"},
	}

	tests := []struct {
		name        string
		reply       string
		err         error
		wantChanged bool
		wantBlocks  []string
		wantAI      string
		wantSchErr  bool
		wantErr     bool
	}{
		{
			name:       "question only",
			reply:      "MESSAGE: Your report is first because it needs focus.",
			wantAI:     "ai: Your report is first because it needs focus.",
			wantBlocks: []string{"Write report", "Gym"},
		},
		{
			name: "edit",
			reply: `MESSAGE: Moved the gym earlier.
TIMETABLE: [{"taskTitle":"Gym","startTime":"09:00","endTime":"09:30","reasoning":"energy"},{"taskTitle":"Write report","startTime":"09:30","endTime":"10:30","reasoning":"focus"}]`,
			wantChanged: true,
			wantAI:      "ai: Moved the gym earlier.",
			wantBlocks:  []string{"Gym", "Write report"},
		},
		{
			name:       "malformed timetable keeps message",
			reply:      "MESSAGE: Done!\nTIMETABLE: [{\"taskTitle\":\"Gym\",\"startTime\":\"nine\"}]",
			wantAI:     "ai: Done!",
			wantBlocks: []string{"Write report", "Gym"},
			wantSchErr: true,
		},
		{
			name:       "ai failure",
			err:        errors.New("AI request failed: boom"),
			wantAI:     "ai: Something went wrong: AI request failed: boom",
			wantBlocks: []string{"Write report", "Gym"},
			wantErr:    true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t, func(context.Context, string, string) (string, error) {
				return tt.reply, tt.err
			}, Options{})
			h.addTasks(t)
			h.schedule.Commit("2026-10-15", start)

			res, err := h.orch.Chat(context.Background(), "  move gym first ")
			if tt.wantErr {
				require.Error(t, err)
			} else {
				require.NoError(t, err)
				assert.Equal(t, tt.wantChanged, res.Changed)
				assert.Equal(t, tt.wantSchErr, res.ScheduleError != "")
			}

			msgs := contents(h.chat.Messages())
			require.Len(t, msgs, 3)
			assert.Equal(t, "user: move gym first", msgs[1])
			assert.Equal(t, tt.wantAI, msgs[2])

			var titles []string
			for _, b := range h.schedule.Blocks() {
				titles = append(titles, b.TaskTitle)
			}
			assert.Equal(t, tt.wantBlocks, titles)

			if tt.wantChanged {
				require.Len(t, h.pub.events, 1)
				assert.Equal(t, OpChat, h.pub.events[0].Source)
				assert.Equal(t, "2026-10-15", h.pub.events[0].Date)
				assert.NotNil(t, h.schedule.Blocks()[0].TaskID)
			} else {
				assert.Empty(t, h.pub.events)
			}
		})
	}
}

func TestChatPromptCarriesHistoryButNotNewMessage(t *testing.T) {
	h := newHarness(t, reply("MESSAGE: ok"), Options{HistoryWindow: 2})
	h.addTasks(t)
	h.schedule.Commit("2026-10-15", []models.ScheduleBlock{{TaskTitle: "Gym", StartTime: "09:00", EndTime: "09:30"}})

	_, err := h.orch.Chat(context.Background(), "first")
	require.NoError(t, err)
	_, err = h.orch.Chat(context.Background(), "second")
	require.NoError(t, err)

	p := h.ai.prompts[1]
	assert.Contains(t, p, `User says: "second"`)
	assert.Contains(t, p, "user: first\nai: ok\n")
	assert.NotContains(t, p, chatlog.Greeting, "history is capped at the window")
	assert.Equal(t, 1, strings.Count(p, "second"))
}

func TestChatUsesTasksForTheScheduleDate(t *testing.T) {
	h := newHarness(t, reply("MESSAGE: Swapped.\nTIMETABLE: "+
		`[{"taskTitle":"Dentist","startTime":"09:00","endTime":"09:30"},{"taskTitle":"Gym","startTime":"09:30","endTime":"10:00"}]`), Options{})
	h.addTasks(t)
	_, err := h.tasks.Add(models.TaskInput{Title: "Dentist", Priority: models.PriorityHigh, EstimatedMinutes: 30, Date: "2026-10-20"})
	require.NoError(t, err)
	h.schedule.Commit("2026-10-15", []models.ScheduleBlock{{TaskTitle: "Gym", StartTime: "09:00", EndTime: "09:30"}})

	_, err = h.orch.Chat(context.Background(), "add the dentist")
	require.NoError(t, err)

	assert.NotContains(t, h.ai.prompts[0], "Dentist", "tasks for other days stay out of the prompt")
	blocks := h.schedule.Blocks()
	require.Len(t, blocks, 2)
	assert.Nil(t, blocks[0].TaskID, "a task from another day is not linked")
	require.NotNil(t, blocks[1].TaskID)

	require.Len(t, h.pub.events, 1)
	assert.Equal(t, "2026-10-15", h.pub.events[0].Date)
}

func TestGenerationPrompt(t *testing.T) {
	h := newHarness(t, reply(specReply), Options{})
	h.addTasks(t)

	p1, err := h.orch.GenerationPrompt()
	require.NoError(t, err)
	p2, err := h.orch.GenerationPrompt()
	require.NoError(t, err)
	assert.Equal(t, p1, p2)
	assert.Contains(t, p1, "Next available hour: 09:00")
}
