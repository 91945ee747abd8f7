package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/wolfman30/lysandra-ai-platform/internal/app/bootstrap"
	"github.com/wolfman30/lysandra-ai-platform/internal/conversation"
)

func newAskCommand(rt *Runtime) *cobra.Command {
	var verbose bool

	cmd := &cobra.Command{
		Use:   "ask <message>",
		Short: "Send a test message through the admin console pipeline",
		Long: `Send one message with the knowledge-enhanced prompt and the console tools.
Nothing is written to the conversation log.

Examples:
  lysandractl ask "¿Qué servicios ofrecen?"
  lysandractl ask -v "¿Hay espacio el 2025-01-20 10:00?"`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if rt.OpenModel == nil {
				return errors.New("no chat model configured")
			}

			st, _ := rt.openStore(ctx)
			defer st.Close()

			model, release, err := rt.OpenModel(ctx, rt.Config)
			if err != nil {
				return fmt.Errorf("init model: %w", err)
			}
			defer release()

			app, err := bootstrap.Build(rt.Config, bootstrap.Deps{Store: st, Model: model}, rt.Logger)
			if err != nil {
				return err
			}

			reply := app.Console.Send(ctx, conversation.ConsoleRequest{Message: strings.Join(args, " ")})
			if !reply.Success {
				return fmt.Errorf("console: %s", reply.Text)
			}

			out := cmd.OutOrStdout()
			fmt.Fprintln(out, reply.Text)
			if !verbose {
				return nil
			}
			fmt.Fprintf(out, "\nmodel: %s\n", reply.Model)
			for _, call := range reply.ToolCalls {
				raw, _ := json.Marshal(call.Args)
				fmt.Fprintf(out, "tool: %s %s\n", call.Name, raw)
			}
			fmt.Fprintf(out, "tokens: in=%d out=%d total=%d\n", reply.Usage.InputTokens, reply.Usage.OutputTokens, reply.Usage.TotalTokens)
			return nil
		},
	}
	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "print model, tool calls and token usage")
	return cmd
}
