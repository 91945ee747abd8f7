package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/wolfman30/lysandra-ai-platform/internal/knowledge"
	"github.com/wolfman30/lysandra-ai-platform/pkg/logging"
)

// KnowledgeStore is the override-backed knowledge record.
type KnowledgeStore interface {
	Get(ctx context.Context) knowledge.Company
	Update(ctx context.Context, patch json.RawMessage) error
	Reset(ctx context.Context) error
}

// IndexProvider yields the current knowledge index.
type IndexProvider interface {
	Index(ctx context.Context) *knowledge.Index
}

// KnowledgeHandler serves /admin/knowledge.
type KnowledgeHandler struct {
	store  KnowledgeStore
	index  IndexProvider
	logger *logging.Logger
}

func NewKnowledgeHandler(store KnowledgeStore, index IndexProvider, logger *logging.Logger) *KnowledgeHandler {
	if logger == nil {
		logger = logging.Default()
	}
	return &KnowledgeHandler{store: store, index: index, logger: logger}
}

// GetKnowledge returns the effective company record.
// GET /admin/knowledge
func (h *KnowledgeHandler) GetKnowledge(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.store.Get(r.Context()))
}

// UpdateKnowledge merges the body into the persisted override.
// PUT /admin/knowledge
func (h *KnowledgeHandler) UpdateKnowledge(w http.ResponseWriter, r *http.Request) {
	patch, err := readObject(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, actionResult{Message: err.Error()})
		return
	}
	if err := h.store.Update(r.Context(), patch); err != nil {
		if errors.Is(err, knowledge.ErrInvalidKnowledge) {
			writeJSON(w, http.StatusBadRequest, actionResult{Message: err.Error()})
			return
		}
		h.logger.Error("knowledge update failed", "error", err)
		writeJSON(w, http.StatusInternalServerError, actionResult{Message: err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, actionResult{Success: true, Message: "Base de conocimiento actualizada exitosamente"})
}

// ResetKnowledge replaces the override with the bundled default.
// POST /admin/knowledge/reset
func (h *KnowledgeHandler) ResetKnowledge(w http.ResponseWriter, r *http.Request) {
	if err := h.store.Reset(r.Context()); err != nil {
		h.logger.Error("knowledge reset failed", "error", err)
		writeJSON(w, http.StatusInternalServerError, actionResult{Message: err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, actionResult{Success: true, Message: "Base de conocimiento restablecida a valores por defecto"})
}

type searchResponse struct {
	Query   string                  `json:"query"`
	Results []knowledge.ScoredEntry `json:"results"`
	Count   int                     `json:"count"`
}

// Search runs a query against the index with scores, for tuning keywords.
// GET /admin/knowledge/search?q=
func (h *KnowledgeHandler) Search(w http.ResponseWriter, r *http.Request) {
	q := strings.TrimSpace(r.URL.Query().Get("q"))
	if q == "" {
		jsonError(w, "missing q", http.StatusBadRequest)
		return
	}
	results := h.index.Index(r.Context()).SearchScored(q)
	if results == nil {
		results = []knowledge.ScoredEntry{}
	}
	writeJSON(w, http.StatusOK, searchResponse{Query: q, Results: results, Count: len(results)})
}

type entriesResponse struct {
	Entries []knowledge.Entry `json:"entries"`
	Count   int               `json:"count"`
}

// Entries lists index entries, optionally for one category.
// GET /admin/knowledge/entries?category=
func (h *KnowledgeHandler) Entries(w http.ResponseWriter, r *http.Request) {
	ix := h.index.Index(r.Context())
	var entries []knowledge.Entry
	if category := strings.TrimSpace(r.URL.Query().Get("category")); category != "" {
		entries = ix.ByCategory(category)
	} else {
		entries = ix.All()
	}
	if entries == nil {
		entries = []knowledge.Entry{}
	}
	writeJSON(w, http.StatusOK, entriesResponse{Entries: entries, Count: len(entries)})
}
