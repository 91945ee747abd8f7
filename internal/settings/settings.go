// Package settings manages the settings/main record: the assistant persona,
// the selected model, and the company profile shown in the dashboard.
package settings

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/wolfman30/lysandra-ai-platform/internal/store"
	"github.com/wolfman30/lysandra-ai-platform/pkg/logging"
)

// DefaultSystemPrompt is the persona used when none is configured.
const DefaultSystemPrompt = "Eres Lysandra, la asistente de IA de CoreAura. Eres profesional, eficiente y amable. Ayudas a los clientes a agendar citas y resolver dudas sobre tecnología. Usa las herramientas disponibles para consultar disponibilidad y agendar citas."

// BusinessHours holds opening hours per weekday as free text.
type BusinessHours struct {
	Monday    string `json:"monday"`
	Tuesday   string `json:"tuesday"`
	Wednesday string `json:"wednesday"`
	Thursday  string `json:"thursday"`
	Friday    string `json:"friday"`
	Saturday  string `json:"saturday"`
	Sunday    string `json:"sunday"`
}

// Settings is the settings/main record.
type Settings struct {
	CompanyName    string        `json:"companyName"`
	SystemPrompt   string        `json:"systemPrompt"`
	AIModel        string        `json:"aiModel"`
	WhatsAppNumber string        `json:"whatsappNumber"`
	SupportEmail   string        `json:"supportEmail"`
	FiscalName     string        `json:"fiscalName"`
	RFC            string        `json:"rfc"`
	FiscalAddress  string        `json:"fiscalAddress"`
	Timezone       string        `json:"timezone"`
	BusinessHours  BusinessHours `json:"businessHours"`
	UpdatedAt      string        `json:"updatedAt,omitempty"`
}

// Default returns the hard-coded settings.
func Default() Settings {
	return Settings{
		CompanyName:    "CoreAura",
		SystemPrompt:   DefaultSystemPrompt,
		AIModel:        DefaultModel,
		WhatsAppNumber: "+52 1 55 1234 5678",
		SupportEmail:   "hola@coreaura.com.mx",
		FiscalName:     "COREAURA S.A.S. DE C.V.",
		RFC:            "COR230101XYZ",
		FiscalAddress:  "Av. Reforma 222, CDMX, México",
		Timezone:       "America/Mexico_City",
		BusinessHours: BusinessHours{
			Monday:    "09:00 - 18:00",
			Tuesday:   "09:00 - 18:00",
			Wednesday: "09:00 - 18:00",
			Thursday:  "09:00 - 18:00",
			Friday:    "09:00 - 18:00",
			Saturday:  "10:00 - 14:00",
			Sunday:    "Cerrado",
		},
	}
}

// Parse overlays raw onto the defaults. Blank persona and model fields keep
// their defaults.
func Parse(raw []byte) (Settings, error) {
	s := Default()
	if err := json.Unmarshal(raw, &s); err != nil {
		return Default(), fmt.Errorf("settings: decode: %w", err)
	}
	if strings.TrimSpace(s.SystemPrompt) == "" {
		s.SystemPrompt = DefaultSystemPrompt
	}
	if strings.TrimSpace(s.AIModel) == "" {
		s.AIModel = DefaultModel
	}
	return s, nil
}

// Service reads and writes settings/main.
type Service struct {
	docs   store.DocumentStore
	logger *logging.Logger
	now    func() time.Time
}

// NewService wires the document store.
func NewService(docs store.DocumentStore, logger *logging.Logger) *Service {
	if docs == nil {
		docs = store.Unavailable{}
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Service{docs: docs, logger: logger, now: time.Now}
}

// Load returns the current settings and never fails: absence, read errors,
// and malformed records all yield defaults.
func (s *Service) Load(ctx context.Context) Settings {
	settings, err := s.Get(ctx)
	if err != nil {
		s.logger.Warn("settings: using defaults", "error", err)
		return Default()
	}
	return settings
}

// Get returns the current settings. A missing record yields defaults; a
// read failure is returned to the caller.
func (s *Service) Get(ctx context.Context) (Settings, error) {
	raw, err := s.docs.GetDocument(ctx, store.CollectionSettings, store.DocSettingsMain)
	if errors.Is(err, store.ErrNotFound) {
		return Default(), nil
	}
	if err != nil {
		return Settings{}, fmt.Errorf("settings: load: %w", err)
	}
	return Parse(raw)
}

// Update merges patch into the stored record and stamps updatedAt.
func (s *Service) Update(ctx context.Context, patch json.RawMessage) (Settings, error) {
	base, err := s.docs.GetDocument(ctx, store.CollectionSettings, store.DocSettingsMain)
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		return Settings{}, fmt.Errorf("settings: load: %w", err)
	}

	merged, err := store.MergeJSON(base, patch)
	if err != nil {
		return Settings{}, fmt.Errorf("settings: merge: %w", err)
	}
	stamped, err := store.MergeJSON(merged, s.updatedAtPatch())
	if err != nil {
		return Settings{}, fmt.Errorf("settings: stamp: %w", err)
	}
	parsed, err := Parse(stamped)
	if err != nil {
		return Settings{}, err
	}
	if err := s.docs.SetDocument(ctx, store.CollectionSettings, store.DocSettingsMain, stamped); err != nil {
		return Settings{}, fmt.Errorf("settings: save: %w", err)
	}
	return parsed, nil
}

// UpdateSystemPrompt replaces the persona text.
func (s *Service) UpdateSystemPrompt(ctx context.Context, prompt string) (Settings, error) {
	if strings.TrimSpace(prompt) == "" {
		return Settings{}, errors.New("settings: system prompt required")
	}
	patch, err := json.Marshal(map[string]string{"systemPrompt": prompt})
	if err != nil {
		return Settings{}, fmt.Errorf("settings: encode prompt: %w", err)
	}
	return s.Update(ctx, patch)
}

func (s *Service) updatedAtPatch() json.RawMessage {
	b, _ := json.Marshal(map[string]string{"updatedAt": s.now().UTC().Format(time.RFC3339Nano)})
	return b
}
