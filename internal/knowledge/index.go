package knowledge

import (
	"fmt"
	"sort"
	"strings"
	"unicode/utf8"
)

// Entry categories.
const (
	CategoryCompany      = "company"
	CategoryFiscal       = "fiscal"
	CategoryContact      = "contact"
	CategoryService      = "service"
	CategoryValues       = "values"
	CategoryTechnologies = "technologies"
	CategoryPortfolio    = "portfolio"
	CategoryFAQ          = "faq"
	CategoryTeam         = "team"
)

// Scoring weights for Search.
const (
	keywordMatchScore = 2
	contentMatchScore = 1
	minTokenRunes     = 3
)

// Entry is one searchable unit derived from a Company record.
type Entry struct {
	Category string   `json:"category"`
	Content  string   `json:"content"`
	Keywords []string `json:"keywords"`
}

// Index is an immutable, ordered set of entries.
type Index struct {
	entries []Entry
	lowered []string
}

// NewIndex builds an index from k.
func NewIndex(k Company) *Index {
	entries := Build(k)
	lowered := make([]string, len(entries))
	for i, e := range entries {
		lowered[i] = strings.ToLower(e.Content)
	}
	return &Index{entries: entries, lowered: lowered}
}

// Build derives the ordered entry list: company, fiscal, contact, one per
// service, values, technologies, one per project, one per FAQ, team.
func Build(k Company) []Entry {
	entries := make([]Entry, 0, 6+len(k.Services)+len(k.Portfolio)+len(k.FAQs))

	entries = append(entries, Entry{
		Category: CategoryCompany,
		Content: fmt.Sprintf("%s (%s) es %s.\nFundada en %s, nos especializamos en %s para %s.\nNuestro sitio web es %s.",
			k.Company.Name, k.Company.LegalName, k.Company.Description,
			k.Company.Founded, k.Company.Industry, k.Company.TargetMarket,
			k.Company.Website),
		Keywords: keywords("empresa", strings.ToLower(k.Company.Name), "quienes somos", "about", "información"),
	})

	entries = append(entries, Entry{
		Category: CategoryFiscal,
		Content: fmt.Sprintf("Información Fiscal: %s.\nRégimen: %s.\n%s.\nEstatus: %s.",
			k.FiscalInfo.RFC, k.FiscalInfo.Regime, k.FiscalInfo.Invoicing, k.FiscalInfo.TaxStatus),
		Keywords: keywords("fiscal", "factura", "rfc", "régimen", "cfdi", "deducible", "impuestos"),
	})

	entries = append(entries, Entry{
		Category: CategoryContact,
		Content: fmt.Sprintf("Puedes contactarnos en:\n- Email: %s\n- Teléfono: %s\n- Dirección: %s\n- LinkedIn: %s\n- Twitter: %s\n- Facebook: %s",
			k.Contact.Email, k.Contact.Phone, k.Contact.Address,
			k.Contact.SocialMedia.LinkedIn, k.Contact.SocialMedia.Twitter, k.Contact.SocialMedia.Facebook),
		Keywords: keywords("contacto", "email", "teléfono", "dirección", "ubicación", "redes sociales"),
	})

	for _, svc := range k.Services {
		kw := []string{svc.ID, svc.Name}
		kw = append(kw, svc.Technologies...)
		kw = append(kw, "servicio", "precio", "características")
		entries = append(entries, Entry{
			Category: CategoryService,
			Content: fmt.Sprintf("**%s**: %s\n\nCaracterísticas:\n%s\n\nTecnologías: %s\nPrecio: %s",
				svc.Name, svc.Description, bullets(svc.Features), strings.Join(svc.Technologies, ", "), svc.Pricing),
			Keywords: keywords(kw...),
		})
	}

	values := make([]string, 0, len(k.Values))
	for _, v := range k.Values {
		values = append(values, fmt.Sprintf("- **%s**: %s", v.Name, v.Description))
	}
	entries = append(entries, Entry{
		Category: CategoryValues,
		Content:  "Nuestros valores son:\n" + strings.Join(values, "\n"),
		Keywords: keywords("valores", "misión", "visión", "cultura", "principios"),
	})

	t := k.Technologies
	entries = append(entries, Entry{
		Category: CategoryTechnologies,
		Content: fmt.Sprintf("Trabajamos con las siguientes tecnologías:\n\n**Frontend**: %s\n**Backend**: %s\n**Bases de Datos**: %s\n**Cloud**: %s\n**DevOps**: %s\n**Seguridad**: %s",
			strings.Join(t.Frontend, ", "), strings.Join(t.Backend, ", "), strings.Join(t.Databases, ", "),
			strings.Join(t.Cloud, ", "), strings.Join(t.DevOps, ", "), strings.Join(t.Security, ", ")),
		Keywords: keywords("tecnologías", "stack", "herramientas", "frameworks", "lenguajes"),
	})

	for _, p := range k.Portfolio {
		entries = append(entries, Entry{
			Category: CategoryPortfolio,
			Content: fmt.Sprintf("**%s** (%s): %s\nTecnologías utilizadas: %s",
				p.Name, p.Industry, p.Description, strings.Join(p.Technologies, ", ")),
			Keywords: keywords("portafolio", "proyectos", "casos de éxito", p.Industry),
		})
	}

	for _, f := range k.FAQs {
		kw := append([]string{"faq", "pregunta", "frecuente"}, strings.Fields(f.Question)...)
		entries = append(entries, Entry{
			Category: CategoryFAQ,
			Content:  fmt.Sprintf("**%s**\n%s", f.Question, f.Answer),
			Keywords: keywords(kw...),
		})
	}

	entries = append(entries, Entry{
		Category: CategoryTeam,
		Content: fmt.Sprintf("Nuestro equipo cuenta con %s profesionales especializados en:\n%s.\n\nCertificaciones: %s.",
			k.Team.Size, strings.Join(k.Team.Expertise, ", "), strings.Join(k.Certifications, ", ")),
		Keywords: keywords("equipo", "certificaciones", "experiencia", "expertise"),
	})

	return entries
}

// keywords lowercases and drops blanks; a blank keyword would match every token.
func keywords(in ...string) []string {
	out := make([]string, 0, len(in))
	for _, k := range in {
		k = strings.ToLower(strings.TrimSpace(k))
		if k != "" {
			out = append(out, k)
		}
	}
	return out
}

func bullets(items []string) string {
	lines := make([]string, len(items))
	for i, item := range items {
		lines[i] = "- " + item
	}
	return strings.Join(lines, "\n")
}

// Tokenize lowercases the query, splits on whitespace, and drops tokens
// shorter than three characters.
func Tokenize(query string) []string {
	var tokens []string
	for _, tok := range strings.Fields(strings.ToLower(query)) {
		if utf8.RuneCountInString(tok) >= minTokenRunes {
			tokens = append(tokens, tok)
		}
	}
	return tokens
}

// score computes the relevance of entry i for the given tokens.
func (ix *Index) score(i int, tokens []string) int {
	score := 0
	for _, kw := range ix.entries[i].Keywords {
		for _, tok := range tokens {
			if strings.Contains(kw, tok) || strings.Contains(tok, kw) {
				score += keywordMatchScore
			}
		}
	}
	for _, tok := range tokens {
		if strings.Contains(ix.lowered[i], tok) {
			score += contentMatchScore
		}
	}
	return score
}

// ScoredEntry pairs an entry with its relevance.
type ScoredEntry struct {
	Entry
	Score int `json:"score"`
}

// SearchScored returns matching entries with scores, highest first, ties in
// build order.
func (ix *Index) SearchScored(query string) []ScoredEntry {
	tokens := Tokenize(query)
	if len(tokens) == 0 {
		return nil
	}
	var results []ScoredEntry
	for i := range ix.entries {
		if s := ix.score(i, tokens); s > 0 {
			results = append(results, ScoredEntry{Entry: ix.entries[i], Score: s})
		}
	}
	sort.SliceStable(results, func(a, b int) bool {
		return results[a].Score > results[b].Score
	})
	return results
}

// Search returns matching entries, highest score first.
func (ix *Index) Search(query string) []Entry {
	scored := ix.SearchScored(query)
	out := make([]Entry, len(scored))
	for i, s := range scored {
		out[i] = s.Entry
	}
	return out
}

// ByCategory returns the entries of one category in build order.
func (ix *Index) ByCategory(category string) []Entry {
	var out []Entry
	for _, e := range ix.entries {
		if e.Category == category {
			out = append(out, e)
		}
	}
	return out
}

// All returns every entry in build order.
func (ix *Index) All() []Entry {
	return append([]Entry(nil), ix.entries...)
}

// Len reports the number of entries.
func (ix *Index) Len() int {
	return len(ix.entries)
}
