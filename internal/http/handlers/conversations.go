package handlers

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/wolfman30/lysandra-ai-platform/internal/archive"
	"github.com/wolfman30/lysandra-ai-platform/internal/store"
	"github.com/wolfman30/lysandra-ai-platform/pkg/logging"
)

const (
	defaultListLimit = 50
	maxListLimit     = 200
)

// Archiver exports a conversation transcript.
type Archiver interface {
	Archive(ctx context.Context, phone string, scrub bool) (archive.ManifestEntry, error)
}

// ConversationsHandler serves conversation and appointment listings.
type ConversationsHandler struct {
	messages     store.MessageStore
	appointments store.AppointmentStore
	archiver     Archiver
	logger       *logging.Logger
}

func NewConversationsHandler(messages store.MessageStore, appointments store.AppointmentStore, archiver Archiver, logger *logging.Logger) *ConversationsHandler {
	if logger == nil {
		logger = logging.Default()
	}
	return &ConversationsHandler{messages: messages, appointments: appointments, archiver: archiver, logger: logger}
}

type conversationRow struct {
	ID          string `json:"id"`
	PhoneNumber string `json:"phoneNumber"`
	LastMessage string `json:"lastMessage"`
	LastActive  string `json:"lastActive"`
}

// ListConversations returns conversations, most recently active first.
// GET /admin/conversations?limit=
func (h *ConversationsHandler) ListConversations(w http.ResponseWriter, r *http.Request) {
	summaries, err := h.messages.ListConversations(r.Context(), listLimit(r))
	if err != nil {
		h.logger.Error("list conversations failed", "error", err)
		jsonError(w, err.Error(), http.StatusInternalServerError)
		return
	}
	rows := make([]conversationRow, 0, len(summaries))
	for _, s := range summaries {
		row := conversationRow{
			ID:          s.ID,
			PhoneNumber: s.ID,
			LastMessage: "Sin mensajes",
			LastActive:  s.LastActivity.UTC().Format(time.RFC3339),
		}
		if s.LastMessage != nil {
			row.LastMessage = s.LastMessage.Content
		}
		rows = append(rows, row)
	}
	writeJSON(w, http.StatusOK, map[string]any{"conversations": rows, "count": len(rows)})
}

// ConversationMessages returns one conversation oldest first.
// GET /admin/conversations/{phone}/messages
func (h *ConversationsHandler) ConversationMessages(w http.ResponseWriter, r *http.Request) {
	phone := strings.TrimSpace(chi.URLParam(r, "phone"))
	if phone == "" {
		jsonError(w, "missing phone", http.StatusBadRequest)
		return
	}
	history, err := h.messages.History(r.Context(), phone)
	if err != nil {
		h.logger.Error("conversation history failed", "error", err)
		jsonError(w, err.Error(), http.StatusInternalServerError)
		return
	}
	if history == nil {
		history = []store.Message{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"conversationId": phone, "messages": history})
}

type archiveResult struct {
	actionResult
	Entry *archive.ManifestEntry `json:"entry,omitempty"`
}

// ArchiveConversation writes the transcript to the archive bucket. PII in
// message bodies is masked unless scrub=false.
// POST /admin/conversations/{phone}/archive
func (h *ConversationsHandler) ArchiveConversation(w http.ResponseWriter, r *http.Request) {
	phone := strings.TrimSpace(chi.URLParam(r, "phone"))
	if phone == "" {
		jsonError(w, "missing phone", http.StatusBadRequest)
		return
	}
	if h.archiver == nil {
		writeJSON(w, http.StatusServiceUnavailable, archiveResult{actionResult: actionResult{Message: archive.ErrDisabled.Error()}})
		return
	}
	scrub := r.URL.Query().Get("scrub") != "false"

	entry, err := h.archiver.Archive(r.Context(), phone, scrub)
	switch {
	case errors.Is(err, archive.ErrDisabled):
		writeJSON(w, http.StatusServiceUnavailable, archiveResult{actionResult: actionResult{Message: err.Error()}})
		return
	case errors.Is(err, archive.ErrEmptyConversation):
		writeJSON(w, http.StatusNotFound, archiveResult{actionResult: actionResult{Message: err.Error()}})
		return
	case err != nil:
		h.logger.Error("archive conversation failed", "error", err)
		writeJSON(w, http.StatusInternalServerError, archiveResult{actionResult: actionResult{Message: err.Error()}})
		return
	}
	writeJSON(w, http.StatusOK, archiveResult{
		actionResult: actionResult{Success: true, Message: "Conversación archivada"},
		Entry:        &entry,
	})
}

// ListAppointments returns bookings, newest first.
// GET /admin/appointments?limit=
func (h *ConversationsHandler) ListAppointments(w http.ResponseWriter, r *http.Request) {
	appts, err := h.appointments.ListAppointments(r.Context(), listLimit(r))
	if err != nil {
		h.logger.Error("list appointments failed", "error", err)
		jsonError(w, err.Error(), http.StatusInternalServerError)
		return
	}
	if appts == nil {
		appts = []store.Appointment{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"appointments": appts, "count": len(appts)})
}

func listLimit(r *http.Request) int {
	n, err := strconv.Atoi(r.URL.Query().Get("limit"))
	switch {
	case err != nil || n <= 0:
		return defaultListLimit
	case n > maxListLimit:
		return maxListLimit
	}
	return n
}
