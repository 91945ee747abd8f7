// Command lysandractl is the operator CLI for the Lysandra assistant.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/wolfman30/lysandra-ai-platform/cmd/mainconfig"
	"github.com/wolfman30/lysandra-ai-platform/internal/app/bootstrap"
	"github.com/wolfman30/lysandra-ai-platform/internal/cli"
	appconfig "github.com/wolfman30/lysandra-ai-platform/internal/config"
	"github.com/wolfman30/lysandra-ai-platform/internal/conversation"
	"github.com/wolfman30/lysandra-ai-platform/internal/store"
	"github.com/wolfman30/lysandra-ai-platform/pkg/logging"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cli.Execute(ctx, &cli.Runtime{
		OpenStore: openStore,
		OpenModel: openModel,
	})
}

func openStore(ctx context.Context, cfg *appconfig.Config, logger *logging.Logger) (store.Store, string) {
	awsCfg, err := mainconfig.LoadAWSConfig(ctx, cfg)
	if err != nil {
		logger.Warn("aws config unavailable", "error", err)
	}
	return bootstrap.BuildStore(ctx, cfg, awsCfg, logger)
}

func openModel(ctx context.Context, cfg *appconfig.Config) (conversation.ChatModel, func(), error) {
	model, err := conversation.NewGeminiChatModel(ctx, cfg.GeminiAPIKey)
	if err != nil {
		return nil, nil, err
	}
	return model, func() { _ = model.Close() }, nil
}
