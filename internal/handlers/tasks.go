package handlers

import (
	"errors"
	"net/http"

	"github.com/benvon/whatodo/internal/models"
	"github.com/benvon/whatodo/internal/tasks"
	"github.com/google/uuid"
	"github.com/gorilla/mux"
)

// TaskHandler handles task collection requests
type TaskHandler struct {
	store *tasks.Store
}

// NewTaskHandler creates a new task handler
func NewTaskHandler(store *tasks.Store) *TaskHandler {
	return &TaskHandler{store: store}
}

// RegisterRoutes registers task routes on a router already prefixed with /tasks
func (h *TaskHandler) RegisterRoutes(r *mux.Router) {
	r.HandleFunc("", h.ListTasks).Methods("GET")
	r.HandleFunc("", h.CreateTask).Methods("POST")
	r.HandleFunc("", h.ClearTasks).Methods("DELETE")
	r.HandleFunc("/stats", h.Stats).Methods("GET")
	r.HandleFunc("/restore", h.RestoreTask).Methods("POST")
	r.HandleFunc("/{id}", h.GetTask).Methods("GET")
	r.HandleFunc("/{id}", h.UpdateTask).Methods("PATCH")
	r.HandleFunc("/{id}", h.DeleteTask).Methods("DELETE")
	r.HandleFunc("/{id}/toggle", h.ToggleTask).Methods("POST")
}

// ListTasksResponse is the body of GET /tasks
type ListTasksResponse struct {
	Tasks  []models.Task `json:"tasks"`
	Filter string        `json:"filter"`
	Query  string        `json:"query,omitempty"`
	Total  int           `json:"total"`
}

// ListTasks lists tasks filtered by ?filter=all|active|done|<priority> and searched by ?q=
func (h *TaskHandler) ListTasks(w http.ResponseWriter, r *http.Request) {
	filter, err := tasks.ParseFilter(r.URL.Query().Get("filter"))
	if err != nil {
		respondJSONError(w, http.StatusBadRequest, "Bad Request", err.Error())
		return
	}
	query := r.URL.Query().Get("q")
	list := h.store.List(filter, query)
	respondJSON(w, http.StatusOK, ListTasksResponse{
		Tasks:  list,
		Filter: string(filter),
		Query:  query,
		Total:  len(list),
	})
}

// CreateTask adds a task
func (h *TaskHandler) CreateTask(w http.ResponseWriter, r *http.Request) {
	var req models.TaskInput
	if !decodeJSON(w, r, &req, false) {
		return
	}
	task, err := h.store.Add(req)
	if err != nil {
		respondJSONError(w, http.StatusBadRequest, "Bad Request", "Validation failed: "+err.Error())
		return
	}
	respondJSON(w, http.StatusCreated, task)
}

// GetTask returns one task
func (h *TaskHandler) GetTask(w http.ResponseWriter, r *http.Request) {
	id, ok := pathUUID(w, r, "id")
	if !ok {
		return
	}
	task, err := h.store.Get(id)
	if err != nil {
		respondTaskError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, task)
}

// UpdateTask applies a partial edit
func (h *TaskHandler) UpdateTask(w http.ResponseWriter, r *http.Request) {
	id, ok := pathUUID(w, r, "id")
	if !ok {
		return
	}
	var patch models.TaskPatch
	if !decodeJSON(w, r, &patch, false) {
		return
	}
	task, err := h.store.Update(id, patch)
	if err != nil {
		respondTaskError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, task)
}

// DeleteTask removes a task and returns it; POST it to /restore to undo
func (h *TaskHandler) DeleteTask(w http.ResponseWriter, r *http.Request) {
	id, ok := pathUUID(w, r, "id")
	if !ok {
		return
	}
	removed, found := h.store.Delete(id)
	if !found {
		respondTaskError(w, tasks.ErrNotFound)
		return
	}
	respondJSON(w, http.StatusOK, removed)
}

// RestoreTask puts back a task previously returned by DeleteTask
func (h *TaskHandler) RestoreTask(w http.ResponseWriter, r *http.Request) {
	var task models.Task
	if !decodeJSON(w, r, &task, false) {
		return
	}
	if task.ID == uuid.Nil || task.Title == "" {
		respondJSONError(w, http.StatusBadRequest, "Bad Request", "A deleted task with id and title is required")
		return
	}
	respondJSON(w, http.StatusOK, h.store.Restore(task))
}

// ToggleTask flips a task between todo and done
func (h *TaskHandler) ToggleTask(w http.ResponseWriter, r *http.Request) {
	id, ok := pathUUID(w, r, "id")
	if !ok {
		return
	}
	task, err := h.store.Toggle(id)
	if err != nil {
		respondTaskError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, task)
}

// Stats returns task counts
func (h *TaskHandler) Stats(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, h.store.Stats())
}

// ClearTasks removes every task
func (h *TaskHandler) ClearTasks(w http.ResponseWriter, r *http.Request) {
	h.store.ClearAll()
	w.WriteHeader(http.StatusNoContent)
}

func respondTaskError(w http.ResponseWriter, err error) {
	if errors.Is(err, tasks.ErrNotFound) {
		respondJSONError(w, http.StatusNotFound, "Not Found", "Task not found")
		return
	}
	respondJSONError(w, http.StatusBadRequest, "Bad Request", "Validation failed: "+err.Error())
}
