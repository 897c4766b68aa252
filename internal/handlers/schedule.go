package handlers

import (
	"errors"
	"fmt"
	"math"
	"net/http"
	"strings"

	"github.com/benvon/whatodo/internal/chatlog"
	"github.com/benvon/whatodo/internal/models"
	"github.com/benvon/whatodo/internal/orchestrator"
	"github.com/benvon/whatodo/internal/schedule"
	"github.com/benvon/whatodo/internal/services/ai"
	"github.com/benvon/whatodo/internal/timeutil"
	"github.com/benvon/whatodo/internal/validation"
	"github.com/gorilla/mux"
)

// ScheduleHandler handles the live schedule, the AI routes and the chat log
type ScheduleHandler struct {
	store *schedule.Store
	orch  *orchestrator.Orchestrator
	chat  *chatlog.Log
}

// NewScheduleHandler creates a new schedule handler
func NewScheduleHandler(store *schedule.Store, orch *orchestrator.Orchestrator, chat *chatlog.Log) *ScheduleHandler {
	return &ScheduleHandler{store: store, orch: orch, chat: chat}
}

// RegisterRoutes registers the non-AI routes on a router prefixed with /schedule
func (h *ScheduleHandler) RegisterRoutes(r *mux.Router) {
	r.HandleFunc("", h.GetSchedule).Methods("GET")
	r.HandleFunc("", h.SetSchedule).Methods("PUT")
	r.HandleFunc("", h.ClearSchedule).Methods("DELETE")
	r.HandleFunc("/move", h.MoveBlock).Methods("POST")
	r.HandleFunc("/reorder", h.Reorder).Methods("POST")
	r.HandleFunc("/blocks", h.AddBlock).Methods("POST")
	r.HandleFunc("/blocks/{index}", h.DeleteBlock).Methods("DELETE")
	r.HandleFunc("/switch-day", h.SwitchDay).Methods("POST")
	r.HandleFunc("/chat", h.ChatLog).Methods("GET")
	r.HandleFunc("/status", h.Status).Methods("GET")
}

// RegisterAIRoutes registers the routes that call the AI provider. They are
// kept separate so the caller can rate limit them.
func (h *ScheduleHandler) RegisterAIRoutes(r *mux.Router) {
	r.HandleFunc("/generate", h.Generate).Methods("POST")
	r.HandleFunc("/regenerate", h.Regenerate).Methods("POST")
	r.HandleFunc("/chat", h.Chat).Methods("POST")
}

// ScheduleResponse is the live schedule
type ScheduleResponse struct {
	Date      string                 `json:"date,omitempty"`
	Blocks    []models.ScheduleBlock `json:"timetable"`
	Total     int                    `json:"total_minutes"`
	TaskCount int                    `json:"task_count"`
}

func (h *ScheduleHandler) current() ScheduleResponse {
	blocks := h.store.Blocks()
	if blocks == nil {
		blocks = []models.ScheduleBlock{}
	}
	total := 0
	for _, b := range blocks {
		if span, err := timeutil.Span(b.StartTime, b.EndTime); err == nil {
			total += span
		}
	}
	return ScheduleResponse{
		Date:      h.store.Date(),
		Blocks:    blocks,
		Total:     total,
		TaskCount: models.CountTaskBlocks(blocks),
	}
}

// GetSchedule returns the live schedule
func (h *ScheduleHandler) GetSchedule(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, h.current())
}

// SetScheduleRequest replaces the live schedule verbatim
type SetScheduleRequest struct {
	Blocks []models.ScheduleBlock `json:"timetable"`
}

// SetSchedule replaces the schedule without re-deriving times
func (h *ScheduleHandler) SetSchedule(w http.ResponseWriter, r *http.Request) {
	var req SetScheduleRequest
	if !decodeJSON(w, r, &req, false) {
		return
	}
	for i, b := range req.Blocks {
		if strings.TrimSpace(b.TaskTitle) == "" {
			respondJSONError(w, http.StatusBadRequest, "Bad Request", fmt.Sprintf("Block %d has no title", i))
			return
		}
		if _, err := timeutil.CheckSpan(b.StartTime, b.EndTime); err != nil {
			respondJSONError(w, http.StatusBadRequest, "Bad Request", fmt.Sprintf("Block %d: %v", i, err))
			return
		}
	}
	h.store.SetSchedule(req.Blocks)
	respondJSON(w, http.StatusOK, h.current())
}

// ClearSchedule empties the live schedule; ?all=true also drops every snapshot
func (h *ScheduleHandler) ClearSchedule(w http.ResponseWriter, r *http.Request) {
	if r.URL.Query().Get("all") == "true" {
		h.store.ClearAll()
	} else {
		h.store.Clear()
	}
	w.WriteHeader(http.StatusNoContent)
}

// MoveRequest moves one block up (-1) or down (+1)
type MoveRequest struct {
	Index     int `json:"index" validate:"gte=0"`
	Direction int `json:"direction" validate:"oneof=-1 1"`
}

// MoveBlock swaps a block with its neighbour and re-chains times
func (h *ScheduleHandler) MoveBlock(w http.ResponseWriter, r *http.Request) {
	var req MoveRequest
	if !decodeJSON(w, r, &req, false) {
		return
	}
	if err := validation.Struct(req); err != nil {
		respondJSONError(w, http.StatusBadRequest, "Bad Request", "Validation failed: "+err.Error())
		return
	}
	h.store.MoveBlock(req.Index, req.Direction)
	respondJSON(w, http.StatusOK, h.current())
}

// ReorderRequest moves a block from one position to another
type ReorderRequest struct {
	From int `json:"from" validate:"gte=0"`
	To   int `json:"to" validate:"gte=0"`
}

// Reorder moves a block and re-chains times
func (h *ScheduleHandler) Reorder(w http.ResponseWriter, r *http.Request) {
	var req ReorderRequest
	if !decodeJSON(w, r, &req, false) {
		return
	}
	if err := validation.Struct(req); err != nil {
		respondJSONError(w, http.StatusBadRequest, "Bad Request", "Validation failed: "+err.Error())
		return
	}
	h.store.Reorder(req.From, req.To)
	respondJSON(w, http.StatusOK, h.current())
}

// AddBlockRequest appends a manual block and its companion task
type AddBlockRequest struct {
	Title   string `json:"title" validate:"required,max=500"`
	Minutes int    `json:"minutes" validate:"gt=0,lt=1440"`
}

// AddBlock appends a block after the last one
func (h *ScheduleHandler) AddBlock(w http.ResponseWriter, r *http.Request) {
	var req AddBlockRequest
	if !decodeJSON(w, r, &req, false) {
		return
	}
	req.Title = validation.SanitizeText(req.Title)
	if err := validation.Struct(req); err != nil {
		respondJSONError(w, http.StatusBadRequest, "Bad Request", "Validation failed: "+err.Error())
		return
	}
	h.store.AddBlock(req.Title, req.Minutes)
	respondJSON(w, http.StatusCreated, h.current())
}

// DeleteBlock removes a block and closes the gap
func (h *ScheduleHandler) DeleteBlock(w http.ResponseWriter, r *http.Request) {
	index, ok := pathInt(w, r, "index")
	if !ok {
		return
	}
	h.store.DeleteBlock(index)
	respondJSON(w, http.StatusOK, h.current())
}

// SwitchDayRequest names the day to bring up
type SwitchDayRequest struct {
	Date string `json:"date" validate:"required,datetime=2006-01-02"`
}

// SwitchDay archives the current schedule and loads the target day's newest snapshot
func (h *ScheduleHandler) SwitchDay(w http.ResponseWriter, r *http.Request) {
	var req SwitchDayRequest
	if !decodeJSON(w, r, &req, false) {
		return
	}
	if err := validation.Struct(req); err != nil {
		respondJSONError(w, http.StatusBadRequest, "Bad Request", "Validation failed: "+err.Error())
		return
	}
	h.store.SwitchDay(req.Date)
	respondJSON(w, http.StatusOK, h.current())
}

// GenerateResponse carries the outcome of an AI round trip
type GenerateResponse struct {
	orchestrator.Result
	Schedule ScheduleResponse `json:"schedule"`
}

// Generate builds a schedule for today's active tasks
func (h *ScheduleHandler) Generate(w http.ResponseWriter, r *http.Request) {
	result, err := h.orch.Generate(r.Context())
	h.respondResult(w, result, err)
}

// Regenerate asks for a fresh schedule for the same tasks
func (h *ScheduleHandler) Regenerate(w http.ResponseWriter, r *http.Request) {
	result, err := h.orch.Regenerate(r.Context())
	h.respondResult(w, result, err)
}

// ChatRequest is one user message
type ChatRequest struct {
	Message string `json:"message" validate:"required,max=4000"`
}

// Chat sends a message about the current schedule
func (h *ScheduleHandler) Chat(w http.ResponseWriter, r *http.Request) {
	var req ChatRequest
	if !decodeJSON(w, r, &req, false) {
		return
	}
	if err := validation.Struct(req); err != nil {
		respondJSONError(w, http.StatusBadRequest, "Bad Request", "Validation failed: "+err.Error())
		return
	}
	result, err := h.orch.Chat(r.Context(), req.Message)
	h.respondResult(w, result, err)
}

func (h *ScheduleHandler) respondResult(w http.ResponseWriter, result orchestrator.Result, err error) {
	if err != nil {
		respondOrchestratorError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, GenerateResponse{Result: result, Schedule: h.current()})
}

// ChatLog returns the conversation
func (h *ScheduleHandler) ChatLog(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]any{"messages": h.chat.Messages()})
}

// Status reports what the orchestrator is doing
func (h *ScheduleHandler) Status(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, h.orch.Status())
}

func respondOrchestratorError(w http.ResponseWriter, err error) {
	var genErr *orchestrator.GenerationError
	switch {
	case errors.Is(err, orchestrator.ErrBusy):
		respondJSONError(w, http.StatusConflict, "Conflict", err.Error())
	case errors.Is(err, orchestrator.ErrNoSchedule):
		respondJSONError(w, http.StatusConflict, "Conflict", err.Error())
	case errors.Is(err, orchestrator.ErrNoActiveTasks), errors.Is(err, orchestrator.ErrEmptyMessage):
		respondJSONError(w, http.StatusBadRequest, "Bad Request", err.Error())
	case errors.As(err, &genErr):
		if wait := ai.RetryAfter(err); wait > 0 {
			w.Header().Set("Retry-After", fmt.Sprintf("%d", int(math.Ceil(wait.Seconds()))))
		}
		respondJSONError(w, http.StatusBadGateway, "Bad Gateway", genErr.Message)
	default:
		respondJSONError(w, http.StatusInternalServerError, "Internal Server Error", "Request failed")
	}
}

