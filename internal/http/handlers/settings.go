package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/wolfman30/lysandra-ai-platform/internal/settings"
	"github.com/wolfman30/lysandra-ai-platform/pkg/logging"
)

// SettingsStore reads and patches settings/main.
type SettingsStore interface {
	Get(ctx context.Context) (settings.Settings, error)
	Update(ctx context.Context, patch json.RawMessage) (settings.Settings, error)
	UpdateSystemPrompt(ctx context.Context, prompt string) (settings.Settings, error)
}

// SettingsHandler serves /admin/settings.
type SettingsHandler struct {
	store  SettingsStore
	logger *logging.Logger
}

func NewSettingsHandler(store SettingsStore, logger *logging.Logger) *SettingsHandler {
	if logger == nil {
		logger = logging.Default()
	}
	return &SettingsHandler{store: store, logger: logger}
}

// GetSettings returns the stored settings merged over the defaults.
// GET /admin/settings
func (h *SettingsHandler) GetSettings(w http.ResponseWriter, r *http.Request) {
	current, err := h.store.Get(r.Context())
	if err != nil {
		h.logger.Error("settings read failed", "error", err)
		jsonError(w, "Error al cargar los ajustes.", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, current)
}

type settingsResult struct {
	actionResult
	Settings *settings.Settings `json:"settings,omitempty"`
}

// UpdateSettings merges the body into settings/main.
// PUT /admin/settings
func (h *SettingsHandler) UpdateSettings(w http.ResponseWriter, r *http.Request) {
	patch, err := readObject(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, settingsResult{actionResult: actionResult{Message: err.Error()}})
		return
	}
	updated, err := h.store.Update(r.Context(), patch)
	if err != nil {
		h.logger.Error("settings update failed", "error", err)
		writeJSON(w, http.StatusInternalServerError, settingsResult{actionResult: actionResult{Message: err.Error()}})
		return
	}
	writeJSON(w, http.StatusOK, settingsResult{
		actionResult: actionResult{Success: true, Message: "Ajustes guardados"},
		Settings:     &updated,
	})
}

type systemPromptRequest struct {
	SystemPrompt string `json:"systemPrompt"`
}

// UpdateSystemPrompt replaces the assistant's base prompt.
// PUT /admin/settings/system-prompt
func (h *SettingsHandler) UpdateSystemPrompt(w http.ResponseWriter, r *http.Request) {
	var req systemPromptRequest
	if err := decodeJSON(r, &req); err != nil || strings.TrimSpace(req.SystemPrompt) == "" {
		writeJSON(w, http.StatusBadRequest, actionResult{Message: "systemPrompt is required"})
		return
	}
	updated, err := h.store.UpdateSystemPrompt(r.Context(), req.SystemPrompt)
	if err != nil {
		h.logger.Error("system prompt update failed", "error", err)
		writeJSON(w, http.StatusInternalServerError, settingsResult{actionResult: actionResult{Message: err.Error()}})
		return
	}
	writeJSON(w, http.StatusOK, settingsResult{
		actionResult: actionResult{Success: true, Message: "Prompt guardado"},
		Settings:     &updated,
	})
}

// ListModels returns the selectable models and their free-tier limits.
// GET /admin/models
func (h *SettingsHandler) ListModels(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"models":  settings.Models(),
		"default": settings.DefaultModel,
	})
}
