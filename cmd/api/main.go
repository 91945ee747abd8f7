package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/sesv2"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/wolfman30/lysandra-ai-platform/cmd/mainconfig"
	"github.com/wolfman30/lysandra-ai-platform/internal/app/bootstrap"
	appconfig "github.com/wolfman30/lysandra-ai-platform/internal/config"
	"github.com/wolfman30/lysandra-ai-platform/internal/conversation"
	"github.com/wolfman30/lysandra-ai-platform/pkg/logging"
)

func main() {
	for _, file := range []string{".env.local", ".env"} {
		_ = godotenv.Load(file)
	}
	cfg := appconfig.Load()

	logger := logging.NewWithWriter(os.Stdout, cfg.LogLevel, cfg.LogFormat)
	logger.Info("starting lysandra API server", "env", cfg.Env, "port", cfg.Port)

	if err := run(cfg, logger); err != nil {
		logger.Error("server exited", "error", err)
		os.Exit(1)
	}
	logger.Info("server stopped")
}

func run(cfg *appconfig.Config, logger *logging.Logger) error {
	if strings.TrimSpace(cfg.GeminiAPIKey) == "" {
		return errors.New("GEMINI_API_KEY is required")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	awsCfg, err := mainconfig.LoadAWSConfig(ctx, cfg)
	if err != nil {
		return fmt.Errorf("load aws config: %w", err)
	}

	st, backend := bootstrap.BuildStore(ctx, cfg, awsCfg, logger)
	logger.Info("document store selected", "backend", backend)

	model, err := conversation.NewGeminiChatModel(ctx, cfg.GeminiAPIKey)
	if err != nil {
		st.Close()
		return fmt.Errorf("gemini client: %w", err)
	}
	defer model.Close()

	redisClient := bootstrap.BuildRedisClient(ctx, cfg, logger, true)
	if redisClient != nil {
		defer redisClient.Close()
	}

	deps := awsDeps(cfg, awsCfg)
	deps.Store = st
	deps.Model = model
	deps.Redis = redisClient
	deps.Registry = newRegistry()

	app, err := bootstrap.Build(cfg, deps, logger)
	if err != nil {
		st.Close()
		return err
	}
	defer app.Close(context.Background())

	srv := newServer(cfg, app.Handler)
	errCh := make(chan error, 1)
	go func() {
		logger.Info("server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info("shutting down server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}
	return nil
}

// awsDeps builds the optional AWS clients. The archive bucket enables S3 and
// a sender address enables SES.
func awsDeps(cfg *appconfig.Config, awsCfg aws.Config) bootstrap.Deps {
	var deps bootstrap.Deps
	if strings.TrimSpace(cfg.ArchiveBucket) != "" {
		deps.S3 = s3.NewFromConfig(awsCfg, bootstrap.S3Options(cfg))
	}
	if strings.TrimSpace(cfg.SESFromEmail) != "" {
		deps.SES = sesv2.NewFromConfig(awsCfg)
	}
	return deps
}

func newRegistry() *prometheus.Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return reg
}

// newServer sizes the write timeout to outlast one model turn.
func newServer(cfg *appconfig.Config, handler http.Handler) *http.Server {
	writeTimeout := 15 * time.Second
	if floor := cfg.ModelTimeout + 10*time.Second; floor > writeTimeout {
		writeTimeout = floor
	}
	return &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      writeTimeout,
		IdleTimeout:       60 * time.Second,
	}
}
