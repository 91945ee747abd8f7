package handlers

import (
	"context"
	"math"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/wolfman30/lysandra-ai-platform/internal/observability/metrics"
	"github.com/wolfman30/lysandra-ai-platform/internal/settings"
	"github.com/wolfman30/lysandra-ai-platform/internal/store"
	"github.com/wolfman30/lysandra-ai-platform/pkg/logging"
)

const (
	recentActivityLimit = 3
	// Share of conversations shown as captured leads until lead capture exists.
	placeholderLeadRate = 0.4
)

// DashboardStore is the read side the overview needs.
type DashboardStore interface {
	CountConversations(ctx context.Context) (int, error)
	CountAppointments(ctx context.Context) (int, error)
	ListAppointments(ctx context.Context, limit int) ([]store.Appointment, error)
}

// DashboardHandler serves the overview and per-model usage.
type DashboardHandler struct {
	store    DashboardStore
	gatherer prometheus.Gatherer
	logger   *logging.Logger
}

func NewDashboardHandler(st DashboardStore, gatherer prometheus.Gatherer, logger *logging.Logger) *DashboardHandler {
	if logger == nil {
		logger = logging.Default()
	}
	return &DashboardHandler{store: st, gatherer: gatherer, logger: logger}
}

// Activity is one row of the recent activity feed.
type Activity struct {
	ID     string `json:"id"`
	User   string `json:"user"`
	Action string `json:"action"`
	Time   string `json:"time"`
	Status string `json:"status"`
}

// ModelHealth is derived from what this process observed since start.
type ModelHealth struct {
	Source                string  `json:"source"`
	Requests              uint64  `json:"requests"`
	Errors                uint64  `json:"errors"`
	AverageLatencySeconds float64 `json:"averageLatencySeconds"`
	TokensUsed            float64 `json:"tokensUsed"`
}

// DailyCount is one bar of the interactions chart.
type DailyCount struct {
	Date  string `json:"date"`
	Count int    `json:"count"`
}

// Placeholders carries figures with no real data source yet.
type Placeholders struct {
	Placeholder       bool         `json:"placeholder"`
	Note              string       `json:"note"`
	CapturedLeads     int          `json:"capturedLeads"`
	DailyInteractions []DailyCount `json:"dailyInteractions"`
}

// DashboardResponse is the overview payload.
type DashboardResponse struct {
	TotalInteractions     int          `json:"totalInteractions"`
	ScheduledAppointments int          `json:"scheduledAppointments"`
	SuccessRate           int          `json:"successRate"`
	RecentActivity        []Activity   `json:"recentActivity"`
	ModelHealth           ModelHealth  `json:"modelHealth"`
	Placeholders          Placeholders `json:"placeholders"`
}

// GetDashboard returns totals, recent bookings and observed model health.
// GET /admin/dashboard
func (h *DashboardHandler) GetDashboard(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	conversations, err := h.store.CountConversations(ctx)
	if err != nil {
		h.logger.Error("dashboard: count conversations failed", "error", err)
		jsonError(w, err.Error(), http.StatusInternalServerError)
		return
	}
	appointments, err := h.store.CountAppointments(ctx)
	if err != nil {
		h.logger.Error("dashboard: count appointments failed", "error", err)
		jsonError(w, err.Error(), http.StatusInternalServerError)
		return
	}
	recent, err := h.store.ListAppointments(ctx, recentActivityLimit)
	if err != nil {
		h.logger.Error("dashboard: list appointments failed", "error", err)
		jsonError(w, err.Error(), http.StatusInternalServerError)
		return
	}

	usage, err := metrics.Snapshot(h.gatherer)
	if err != nil {
		h.logger.Warn("dashboard: metrics snapshot failed", "error", err)
	}
	totals := usage.Totals()

	writeJSON(w, http.StatusOK, DashboardResponse{
		TotalInteractions:     conversations,
		ScheduledAppointments: appointments,
		SuccessRate:           successRate(appointments, conversations),
		RecentActivity:        activityFeed(recent),
		ModelHealth: ModelHealth{
			Source:                "prometheus",
			Requests:              totals.Requests,
			Errors:                totals.Errors,
			AverageLatencySeconds: totals.AverageLatency(),
			TokensUsed:            totals.TotalTokens,
		},
		Placeholders: Placeholders{
			Placeholder:       true,
			Note:              "Cifras ilustrativas: aún no existe una fuente de datos para prospectos ni interacciones diarias.",
			CapturedLeads:     int(math.Floor(float64(conversations) * placeholderLeadRate)),
			DailyInteractions: placeholderDaily(),
		},
	})
}

func successRate(appointments, conversations int) int {
	if conversations <= 0 {
		return 0
	}
	return int(math.Round(float64(appointments) / float64(conversations) * 100))
}

func activityFeed(appts []store.Appointment) []Activity {
	if len(appts) == 0 {
		return []Activity{{ID: "system", User: "Sistema", Action: "Lysandra inicializada", Time: "Ahora", Status: "info"}}
	}
	out := make([]Activity, 0, len(appts))
	for _, a := range appts {
		user := strings.TrimSpace(a.ClientName)
		if user == "" {
			user = "Usuario"
		}
		kind := strings.TrimSpace(a.Type)
		if kind == "" {
			kind = "Interés"
		}
		out = append(out, Activity{
			ID:     a.ID,
			User:   user,
			Action: "Agendó cita de " + kind,
			Time:   a.CreatedAt.UTC().Format(time.RFC3339),
			Status: "success",
		})
	}
	return out
}

func placeholderDaily() []DailyCount {
	return []DailyCount{
		{"Lun", 12}, {"Mar", 18}, {"Mie", 15}, {"Jue", 25},
		{"Vie", 22}, {"Sab", 30}, {"Dom", 28},
	}
}

// ModelMetricsResponse pairs static free-tier limits with observed usage.
type ModelMetricsResponse struct {
	ModelName     string `json:"modelName"`
	Known         bool   `json:"known"`
	LimitsSource  string `json:"limitsSource"`
	RequestsLimit int    `json:"requestsPerMinuteLimit"`
	TokensLimit   int    `json:"tokensPerMinuteLimit"`

	UsageSource    string  `json:"usageSource"`
	RequestsUsed   uint64  `json:"requestsUsed"`
	Errors         uint64  `json:"errors"`
	TokensUsed     float64 `json:"tokensUsed"`
	AverageLatency float64 `json:"averageLatencySeconds"`
}

// GetModelMetrics reports one model's limits and what this process used.
// Usage counts are cumulative since process start, not per minute.
// GET /admin/models/{model}/metrics
func (h *DashboardHandler) GetModelMetrics(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimSpace(chi.URLParam(r, "model"))
	if id == "" {
		jsonError(w, "missing model", http.StatusBadRequest)
		return
	}
	info, known := settings.LookupModel(id)
	if !known {
		info, _ = settings.LookupModel(settings.DefaultModel)
	}

	usage, err := metrics.Snapshot(h.gatherer)
	if err != nil {
		h.logger.Warn("model metrics: snapshot failed", "error", err)
	}
	observed := usage.Model(id)

	writeJSON(w, http.StatusOK, ModelMetricsResponse{
		ModelName:      id,
		Known:          known,
		LimitsSource:   "static free-tier table",
		RequestsLimit:  info.RequestsPerMinute,
		TokensLimit:    info.TokensPerMinute,
		UsageSource:    "prometheus",
		RequestsUsed:   observed.Requests,
		Errors:         observed.Errors,
		TokensUsed:     observed.TotalTokens,
		AverageLatency: observed.AverageLatency(),
	})
}
