package router

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/wolfman30/lysandra-ai-platform/internal/http/handlers"
	httpmiddleware "github.com/wolfman30/lysandra-ai-platform/internal/http/middleware"
	"github.com/wolfman30/lysandra-ai-platform/internal/messaging"
	"github.com/wolfman30/lysandra-ai-platform/pkg/logging"
)

const readinessTimeout = 2 * time.Second

// Pinger reports whether a backing service is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Config holds router configuration
type Config struct {
	Logger         *logging.Logger
	Webhook        *messaging.Handler
	Knowledge      *handlers.KnowledgeHandler
	Settings       *handlers.SettingsHandler
	Dashboard      *handlers.DashboardHandler
	Conversations  *handlers.ConversationsHandler
	Console        *handlers.ConsoleHandler
	Store          Pinger
	MetricsHandler http.Handler

	AdminAuthSecret     string
	CORSAllowedOrigins  []string
	WebhookRateLimitRPS float64
	WebhookRateBurst    int
}

// New creates a new Chi router with all routes configured
func New(cfg *Config) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	if len(cfg.CORSAllowedOrigins) > 0 {
		r.Use(httpmiddleware.CORS(cfg.CORSAllowedOrigins))
	}
	if cfg.Logger != nil {
		r.Use(httpmiddleware.RequestLogger(cfg.Logger))
	}

	// Public endpoints (webhook, health checks)
	r.Group(func(public chi.Router) {
		public.Get("/health", health)
		public.Get("/ready", readiness(cfg.Store))
		if cfg.MetricsHandler != nil {
			public.Handle("/metrics", cfg.MetricsHandler)
		}
		if cfg.Webhook != nil {
			limited := public.With(httpmiddleware.RateLimit(cfg.WebhookRateLimitRPS, cfg.WebhookRateBurst))
			limited.Post("/api/webhook", cfg.Webhook.WhatsAppWebhook)
			limited.Post("/webhook", cfg.Webhook.WhatsAppWebhook)
		}
	})

	r.Route("/admin", func(admin chi.Router) {
		admin.Use(httpmiddleware.AdminJWT(cfg.AdminAuthSecret))

		if h := cfg.Knowledge; h != nil {
			admin.Get("/knowledge", h.GetKnowledge)
			admin.Put("/knowledge", h.UpdateKnowledge)
			admin.Post("/knowledge/reset", h.ResetKnowledge)
			admin.Get("/knowledge/search", h.Search)
			admin.Get("/knowledge/entries", h.Entries)
		}
		if h := cfg.Settings; h != nil {
			admin.Get("/settings", h.GetSettings)
			admin.Put("/settings", h.UpdateSettings)
			admin.Put("/settings/system-prompt", h.UpdateSystemPrompt)
			admin.Get("/models", h.ListModels)
		}
		if h := cfg.Dashboard; h != nil {
			admin.Get("/dashboard", h.GetDashboard)
			admin.Get("/models/{model}/metrics", h.GetModelMetrics)
		}
		if h := cfg.Conversations; h != nil {
			admin.Get("/conversations", h.ListConversations)
			admin.Get("/conversations/{phone}/messages", h.ConversationMessages)
			admin.Post("/conversations/{phone}/archive", h.ArchiveConversation)
			admin.Get("/appointments", h.ListAppointments)
		}
		if h := cfg.Console; h != nil {
			admin.Post("/test/message", h.SendMessage)
			admin.Get("/test/ws", h.Stream)
		}
	})

	return r
}

func health(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write([]byte(`{"status":"ok"}`))
}

// readiness pings the document store. The webhook keeps answering with the
// apology while the store is down, so only readiness reports it.
func readiness(store Pinger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if store != nil {
			ctx, cancel := context.WithTimeout(r.Context(), readinessTimeout)
			defer cancel()
			if err := store.Ping(ctx); err != nil {
				w.WriteHeader(http.StatusServiceUnavailable)
				_, _ = w.Write([]byte(`{"status":"unavailable","store":"down"}`))
				return
			}
		}
		_, _ = w.Write([]byte(`{"status":"ok","store":"up"}`))
	}
}
