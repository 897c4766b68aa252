package handlers

import (
	"errors"
	"net/http"

	"github.com/benvon/whatodo/internal/schedule"
	"github.com/benvon/whatodo/internal/validation"
	"github.com/gorilla/mux"
)

// SnapshotHandler handles saved schedules
type SnapshotHandler struct {
	store *schedule.Store
}

// NewSnapshotHandler creates a new snapshot handler
func NewSnapshotHandler(store *schedule.Store) *SnapshotHandler {
	return &SnapshotHandler{store: store}
}

// RegisterRoutes registers snapshot routes on a router prefixed with /snapshots
func (h *SnapshotHandler) RegisterRoutes(r *mux.Router) {
	r.HandleFunc("", h.ListSnapshots).Methods("GET")
	r.HandleFunc("", h.SaveSnapshot).Methods("POST")
	r.HandleFunc("/{id}", h.GetSnapshot).Methods("GET")
	r.HandleFunc("/{id}", h.DeleteSnapshot).Methods("DELETE")
	r.HandleFunc("/{id}/load", h.LoadSnapshot).Methods("POST")
}

// SaveSnapshotRequest optionally labels the snapshot
type SaveSnapshotRequest struct {
	Label string `json:"label" validate:"max=200"`
}

// ListSnapshots lists snapshots newest first
func (h *SnapshotHandler) ListSnapshots(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]any{"snapshots": h.store.Snapshots()})
}

// SaveSnapshot archives the live schedule
func (h *SnapshotHandler) SaveSnapshot(w http.ResponseWriter, r *http.Request) {
	var req SaveSnapshotRequest
	if !decodeJSON(w, r, &req, true) {
		return
	}
	req.Label = validation.SanitizeText(req.Label)
	if err := validation.Struct(req); err != nil {
		respondJSONError(w, http.StatusBadRequest, "Bad Request", "Validation failed: "+err.Error())
		return
	}
	snap, ok := h.store.Save(req.Label)
	if !ok {
		respondJSONError(w, http.StatusConflict, "Conflict", "There is no schedule to save")
		return
	}
	respondJSON(w, http.StatusCreated, snap)
}

// GetSnapshot returns one snapshot
func (h *SnapshotHandler) GetSnapshot(w http.ResponseWriter, r *http.Request) {
	id, ok := pathUUID(w, r, "id")
	if !ok {
		return
	}
	snap, err := h.store.GetSnapshot(id)
	if err != nil {
		respondSnapshotError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, snap)
}

// LoadSnapshot copies a snapshot into the live schedule
func (h *SnapshotHandler) LoadSnapshot(w http.ResponseWriter, r *http.Request) {
	id, ok := pathUUID(w, r, "id")
	if !ok {
		return
	}
	if !h.store.Load(id) {
		respondSnapshotError(w, schedule.ErrSnapshotNotFound)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"date": h.store.Date(), "timetable": h.store.Blocks()})
}

// DeleteSnapshot discards a snapshot
func (h *SnapshotHandler) DeleteSnapshot(w http.ResponseWriter, r *http.Request) {
	id, ok := pathUUID(w, r, "id")
	if !ok {
		return
	}
	if !h.store.DeleteSnapshot(id) {
		respondSnapshotError(w, schedule.ErrSnapshotNotFound)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func respondSnapshotError(w http.ResponseWriter, err error) {
	if errors.Is(err, schedule.ErrSnapshotNotFound) {
		respondJSONError(w, http.StatusNotFound, "Not Found", "Snapshot not found")
		return
	}
	respondJSONError(w, http.StatusInternalServerError, "Internal Server Error", "Snapshot request failed")
}
