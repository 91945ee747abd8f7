// Package cli provides the lysandractl operator commands.
package cli

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	appconfig "github.com/wolfman30/lysandra-ai-platform/internal/config"
	"github.com/wolfman30/lysandra-ai-platform/internal/conversation"
	"github.com/wolfman30/lysandra-ai-platform/internal/store"
	"github.com/wolfman30/lysandra-ai-platform/pkg/logging"
)

// Version is set at build time.
var Version = "0.1.0"

// errStoreUnavailable is returned by commands that must write to the store.
var errStoreUnavailable = errors.New("document store is not configured or unreachable")

// Runtime carries the clients commands run against. Nil fields are filled
// from the environment before the first command runs.
type Runtime struct {
	Config *appconfig.Config
	Logger *logging.Logger

	// OpenStore returns the store and the backend name; "unavailable"
	// means reads fall back to defaults and writes are refused.
	OpenStore func(ctx context.Context, cfg *appconfig.Config, logger *logging.Logger) (store.Store, string)
	// OpenModel returns the chat model and a release func.
	OpenModel func(ctx context.Context, cfg *appconfig.Config) (conversation.ChatModel, func(), error)
}

// NewRootCommand assembles the command tree around rt.
func NewRootCommand(rt *Runtime) *cobra.Command {
	var envFiles []string

	root := &cobra.Command{
		Use:   "lysandractl",
		Short: "Operate the Lysandra WhatsApp assistant",
		Long: `lysandractl talks to the same store and model as the API server.

Use it to try prompts without WhatsApp, inspect the knowledge index,
seed a fresh environment, and mint admin tokens for the dashboard.`,
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if rt.Config == nil {
				for _, file := range envFiles {
					_ = godotenv.Load(file)
				}
				rt.Config = appconfig.Load()
			}
			if rt.Logger == nil {
				rt.Logger = logging.NewWithWriter(cmd.ErrOrStderr(), rt.Config.LogLevel, rt.Config.LogFormat)
			}
			return nil
		},
	}
	root.PersistentFlags().StringSliceVar(&envFiles, "env-file", []string{".env.local", ".env"}, "environment files loaded before reading configuration")

	root.AddCommand(newAskCommand(rt))
	root.AddCommand(newSearchCommand(rt))
	root.AddCommand(newSeedCommand(rt))
	root.AddCommand(newTokenCommand(rt))
	return root
}

// Execute runs the command tree and exits non-zero on failure.
func Execute(ctx context.Context, rt *Runtime) {
	if err := NewRootCommand(rt).ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func (rt *Runtime) openStore(ctx context.Context) (store.Store, string) {
	if rt.OpenStore == nil {
		return store.Unavailable{}, "unavailable"
	}
	return rt.OpenStore(ctx, rt.Config, rt.Logger)
}
