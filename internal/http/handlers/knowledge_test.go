package handlers

import (
	"net/http"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wolfman30/lysandra-ai-platform/internal/knowledge"
	"github.com/wolfman30/lysandra-ai-platform/internal/store"
)

func knowledgeRouter(docs store.DocumentStore) http.Handler {
	ks := knowledge.NewStore(docs, nil, discard)
	provider := knowledge.NewProvider(ks)
	ks.OnChange(provider.Invalidate)
	h := NewKnowledgeHandler(ks, provider, discard)

	r := chi.NewRouter()
	r.Get("/admin/knowledge", h.GetKnowledge)
	r.Put("/admin/knowledge", h.UpdateKnowledge)
	r.Post("/admin/knowledge/reset", h.ResetKnowledge)
	r.Get("/admin/knowledge/search", h.Search)
	r.Get("/admin/knowledge/entries", h.Entries)
	return r
}

func TestKnowledgeGetDefault(t *testing.T) {
	r := knowledgeRouter(store.NewMemoryStore())
	rec := do(t, r, http.MethodGet, "/admin/knowledge", "")
	require.Equal(t, http.StatusOK, rec.Code)
	body := decode[knowledge.Company](t, rec)
	assert.Equal(t, "CoreAura", body.Company.Name)
}

func TestKnowledgeUpdateAndReset(t *testing.T) {
	r := knowledgeRouter(store.NewMemoryStore())

	rec := do(t, r, http.MethodPut, "/admin/knowledge", `{"company":{"tagline":"Lema de prueba"}}`)
	require.Equal(t, http.StatusOK, rec.Code)
	res := decode[actionResult](t, rec)
	assert.True(t, res.Success)
	assert.Equal(t, "Base de conocimiento actualizada exitosamente", res.Message)

	got := decode[knowledge.Company](t, do(t, r, http.MethodGet, "/admin/knowledge", ""))
	assert.Equal(t, "Lema de prueba", got.Company.Tagline)
	assert.Equal(t, "CoreAura", got.Company.Name, "merge keeps untouched fields")

	rec = do(t, r, http.MethodPost, "/admin/knowledge/reset", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Base de conocimiento restablecida a valores por defecto", decode[actionResult](t, rec).Message)

	got = decode[knowledge.Company](t, do(t, r, http.MethodGet, "/admin/knowledge", ""))
	assert.Equal(t, knowledge.Default().Company.Tagline, got.Company.Tagline)
}

func TestKnowledgeUpdateRejectsNonObject(t *testing.T) {
	r := knowledgeRouter(store.NewMemoryStore())
	rec := do(t, r, http.MethodPut, "/admin/knowledge", `["no"]`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.False(t, decode[actionResult](t, rec).Success)
}

func TestKnowledgeUpdateRejectsInvalidRecord(t *testing.T) {
	docs := store.NewMemoryStore()
	r := knowledgeRouter(docs)

	rec := do(t, r, http.MethodPut, "/admin/knowledge", `{"company":{"name":""}}`)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	res := decode[actionResult](t, rec)
	assert.False(t, res.Success)
	assert.Contains(t, res.Message, "company name required")

	rec = do(t, r, http.MethodPut, "/admin/knowledge", `{"services":"ninguno"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	got := decode[knowledge.Company](t, do(t, r, http.MethodGet, "/admin/knowledge", ""))
	assert.Equal(t, "CoreAura", got.Company.Name)
}

func TestKnowledgeStoreFailureSurfaces(t *testing.T) {
	r := knowledgeRouter(store.Unavailable{})

	rec := do(t, r, http.MethodGet, "/admin/knowledge", "")
	assert.Equal(t, http.StatusOK, rec.Code, "reads degrade to the bundled default")

	rec = do(t, r, http.MethodPut, "/admin/knowledge", `{"company":{"tagline":"x"}}`)
	require.Equal(t, http.StatusInternalServerError, rec.Code)
	res := decode[actionResult](t, rec)
	assert.False(t, res.Success)
	assert.Contains(t, res.Message, "unavailable")

	rec = do(t, r, http.MethodPost, "/admin/knowledge/reset", "")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestKnowledgeSearch(t *testing.T) {
	r := knowledgeRouter(store.NewMemoryStore())

	rec := do(t, r, http.MethodGet, "/admin/knowledge/search?q=rfc", "")
	require.Equal(t, http.StatusOK, rec.Code)
	res := decode[searchResponse](t, rec)
	require.NotZero(t, res.Count)
	assert.Equal(t, knowledge.CategoryFiscal, res.Results[0].Category)
	assert.Positive(t, res.Results[0].Score)

	rec = do(t, r, http.MethodGet, "/admin/knowledge/search?q=zzzz", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Zero(t, decode[searchResponse](t, rec).Count)

	rec = do(t, r, http.MethodGet, "/admin/knowledge/search", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestKnowledgeEntries(t *testing.T) {
	r := knowledgeRouter(store.NewMemoryStore())
	def := knowledge.Default()

	all := decode[entriesResponse](t, do(t, r, http.MethodGet, "/admin/knowledge/entries", ""))
	assert.Equal(t, 6+len(def.Services)+len(def.Portfolio)+len(def.FAQs), all.Count)

	services := decode[entriesResponse](t, do(t, r, http.MethodGet, "/admin/knowledge/entries?category=service", ""))
	assert.Equal(t, len(def.Services), services.Count)

	none := decode[entriesResponse](t, do(t, r, http.MethodGet, "/admin/knowledge/entries?category=nada", ""))
	assert.Zero(t, none.Count)
	assert.NotNil(t, none.Entries)
}
