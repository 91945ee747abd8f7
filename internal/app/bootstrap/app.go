package bootstrap

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/sesv2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"github.com/wolfman30/lysandra-ai-platform/internal/api/router"
	"github.com/wolfman30/lysandra-ai-platform/internal/archive"
	"github.com/wolfman30/lysandra-ai-platform/internal/bookings"
	appconfig "github.com/wolfman30/lysandra-ai-platform/internal/config"
	"github.com/wolfman30/lysandra-ai-platform/internal/conversation"
	"github.com/wolfman30/lysandra-ai-platform/internal/http/handlers"
	"github.com/wolfman30/lysandra-ai-platform/internal/knowledge"
	"github.com/wolfman30/lysandra-ai-platform/internal/messaging"
	"github.com/wolfman30/lysandra-ai-platform/internal/notify"
	"github.com/wolfman30/lysandra-ai-platform/internal/observability/metrics"
	"github.com/wolfman30/lysandra-ai-platform/internal/settings"
	"github.com/wolfman30/lysandra-ai-platform/internal/store"
	"github.com/wolfman30/lysandra-ai-platform/pkg/logging"
)

// Deps are the externally constructed clients. Nil clients disable the
// feature that needs them.
type Deps struct {
	Store    store.Store
	Model    conversation.ChatModel
	Redis    *redis.Client
	S3       archive.S3API
	SES      *sesv2.Client
	Registry *prometheus.Registry
}

// App is the assembled runtime.
type App struct {
	Handler      http.Handler
	Store        store.Store
	Orchestrator *conversation.Orchestrator
	Console      *conversation.Console
	Settings     *settings.Service
	Bookings     *bookings.Service
	Knowledge    *knowledge.Store
	Index        *knowledge.Provider
}

// Build wires services, handlers and the router.
func Build(cfg *appconfig.Config, deps Deps, logger *logging.Logger) (*App, error) {
	if cfg == nil {
		return nil, fmt.Errorf("bootstrap: config is required")
	}
	if deps.Model == nil {
		return nil, fmt.Errorf("bootstrap: chat model is required")
	}
	if logger == nil {
		logger = logging.Default()
	}
	st := deps.Store
	if st == nil {
		st = store.Unavailable{}
	}
	reg := deps.Registry
	if reg == nil {
		reg = prometheus.NewRegistry()
	}

	llmMetrics := metrics.NewLLMMetrics(reg)
	messagingMetrics := metrics.NewMessagingMetrics(reg)

	knowledgeStore := knowledge.NewStore(st, knowledge.NewRedisCache(deps.Redis, cfg.KnowledgeCacheTTL), logger.Component("knowledge"))
	index := knowledge.NewProvider(knowledgeStore)
	knowledgeStore.OnChange(index.Invalidate)

	settingsSvc := settings.NewService(st, logger.Component("settings"))
	bookingSvc := bookings.NewService(st, BuildNotifier(cfg, deps.SES, logger), logger.Component("bookings"))

	tools := conversation.NewToolExecutor(bookingSvc, index)
	gateway := conversation.NewGateway(deps.Model, tools, logger.Component("gateway"),
		conversation.WithMetrics(llmMetrics),
		conversation.WithTimeout(cfg.ModelTimeout),
	)
	orchestrator := conversation.NewOrchestrator(st, settingsSvc, gateway,
		conversation.WebhookPolicy(cfg.WebhookToolRounds), logger.Component("webhook"))
	console := conversation.NewConsole(gateway, settingsSvc, logger.Component("console"))

	var archiver handlers.Archiver
	if strings.TrimSpace(cfg.ArchiveBucket) != "" && deps.S3 != nil {
		archiver = archive.NewArchiver(st, archive.NewStore(deps.S3, cfg.ArchiveBucket, logger), logger.Component("archive"))
	}

	handler := router.New(&router.Config{
		Logger:              logger,
		Webhook:             messaging.NewHandler(cfg.TwilioAuthToken, orchestrator, messagingMetrics, logger.Component("messaging")),
		Knowledge:           handlers.NewKnowledgeHandler(knowledgeStore, index, logger),
		Settings:            handlers.NewSettingsHandler(settingsSvc, logger),
		Dashboard:           handlers.NewDashboardHandler(st, reg, logger),
		Conversations:       handlers.NewConversationsHandler(st, st, archiver, logger),
		Console:             handlers.NewConsoleHandler(console, logger),
		Store:               st,
		MetricsHandler:      promhttp.HandlerFor(reg, promhttp.HandlerOpts{}),
		AdminAuthSecret:     cfg.AdminJWTSecret,
		CORSAllowedOrigins:  cfg.CORSAllowedOrigins,
		WebhookRateLimitRPS: cfg.WebhookRateLimitRPS,
		WebhookRateBurst:    cfg.WebhookRateBurst,
	})

	return &App{
		Handler:      handler,
		Store:        st,
		Orchestrator: orchestrator,
		Console:      console,
		Settings:     settingsSvc,
		Bookings:     bookingSvc,
		Knowledge:    knowledgeStore,
		Index:        index,
	}, nil
}

// BuildNotifier picks SendGrid, then SES, then a logging stub. It returns
// nil when no recipient is configured.
func BuildNotifier(cfg *appconfig.Config, ses *sesv2.Client, logger *logging.Logger) bookings.Notifier {
	if strings.TrimSpace(cfg.BookingNotifyEmail) == "" {
		return nil
	}
	from := notify.Identity{Name: cfg.SendGridFromName}
	var sender notify.Sender
	switch {
	case cfg.SendGridAPIKey != "":
		from.Address = cfg.SendGridFromEmail
		sender = notify.NewSendGrid(cfg.SendGridAPIKey, from, logger)
	case ses != nil && cfg.SESFromEmail != "":
		from.Address = cfg.SESFromEmail
		sender = notify.NewSES(ses, from, logger)
	default:
		sender = notify.NewLogSender(logger)
	}
	n := notify.NewBookingNotifier(sender, cfg.BookingNotifyEmail, logger.Component("notify"))
	if n == nil {
		return nil
	}
	return n
}

// S3Options applies the endpoint override with path-style addressing.
func S3Options(cfg *appconfig.Config) func(*s3.Options) {
	return func(o *s3.Options) {
		if endpoint := strings.TrimSpace(cfg.AWSEndpointOverride); endpoint != "" {
			o.BaseEndpoint = aws.String(endpoint)
			o.UsePathStyle = true
		}
	}
}

// Close releases clients owned by the app.
func (a *App) Close(_ context.Context) {
	if a != nil && a.Store != nil {
		a.Store.Close()
	}
}
