package handlers

import (
	"net/http"

	"github.com/benvon/whatodo/internal/models"
	"github.com/benvon/whatodo/internal/notify"
	"github.com/benvon/whatodo/internal/orchestrator"
	"github.com/benvon/whatodo/internal/services/identity"
	"github.com/benvon/whatodo/internal/settings"
	"github.com/gorilla/mux"
)

// SettingsHandler handles preferences, the provider session, notifications
// and the prompt preview
type SettingsHandler struct {
	settings *settings.Store
	session  *identity.Session
	notices  *notify.Center
	orch     *orchestrator.Orchestrator
}

// NewSettingsHandler creates a new settings handler
func NewSettingsHandler(store *settings.Store, session *identity.Session, notices *notify.Center, orch *orchestrator.Orchestrator) *SettingsHandler {
	return &SettingsHandler{settings: store, session: session, notices: notices, orch: orch}
}

// RegisterRoutes registers routes on the /api/v1 router
func (h *SettingsHandler) RegisterRoutes(r *mux.Router) {
	r.HandleFunc("/settings", h.GetSettings).Methods("GET")
	r.HandleFunc("/settings", h.UpdateSettings).Methods("PATCH")
	r.HandleFunc("/settings/models", h.ListModels).Methods("GET")
	r.HandleFunc("/session", h.GetSession).Methods("GET")
	r.HandleFunc("/session", h.SignIn).Methods("POST")
	r.HandleFunc("/session", h.SignOut).Methods("DELETE")
	r.HandleFunc("/notifications", h.ListNotifications).Methods("GET")
	r.HandleFunc("/notifications/{id}", h.DismissNotification).Methods("DELETE")
	r.HandleFunc("/prompts/preview", h.PromptPreview).Methods("GET")
}

// GetSettings returns the current settings
func (h *SettingsHandler) GetSettings(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, h.settings.Get())
}

// UpdateSettings applies a partial update
func (h *SettingsHandler) UpdateSettings(w http.ResponseWriter, r *http.Request) {
	var patch settings.Patch
	if !decodeJSON(w, r, &patch, false) {
		return
	}
	updated, err := h.settings.Apply(patch)
	if err != nil {
		respondJSONError(w, http.StatusBadRequest, "Bad Request", err.Error())
		return
	}
	respondJSON(w, http.StatusOK, updated)
}

// ListModels returns the selectable AI models
func (h *SettingsHandler) ListModels(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]any{
		"models":   models.AIModels,
		"selected": h.settings.Model(),
	})
}

// SignInRequest carries the provider API key
type SignInRequest struct {
	APIKey string `json:"api_key"`
}

// GetSession reports whether a provider key is present
func (h *SettingsHandler) GetSession(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, h.session.Status())
}

// SignIn stores a provider key
func (h *SettingsHandler) SignIn(w http.ResponseWriter, r *http.Request) {
	var req SignInRequest
	if !decodeJSON(w, r, &req, false) {
		return
	}
	if err := h.session.SignIn(req.APIKey); err != nil {
		respondJSONError(w, http.StatusBadRequest, "Bad Request", err.Error())
		return
	}
	respondJSON(w, http.StatusOK, h.session.Status())
}

// SignOut forgets the provider key
func (h *SettingsHandler) SignOut(w http.ResponseWriter, r *http.Request) {
	h.session.SignOut()
	w.WriteHeader(http.StatusNoContent)
}

// ListNotifications returns the visible notifications
func (h *SettingsHandler) ListNotifications(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]any{"notifications": h.notices.List()})
}

// DismissNotification removes one notification
func (h *SettingsHandler) DismissNotification(w http.ResponseWriter, r *http.Request) {
	id, ok := pathUUID(w, r, "id")
	if !ok {
		return
	}
	if !h.notices.Dismiss(id) {
		respondJSONError(w, http.StatusNotFound, "Not Found", "Notification not found")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// PromptPreview returns the prompt a generation would send right now
func (h *SettingsHandler) PromptPreview(w http.ResponseWriter, r *http.Request) {
	text, err := h.orch.GenerationPrompt()
	if err != nil {
		respondOrchestratorError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"prompt": text, "model": string(h.settings.Model())})
}
