package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/wolfman30/lysandra-ai-platform/internal/app/bootstrap"
	"github.com/wolfman30/lysandra-ai-platform/internal/knowledge"
)

func newSearchCommand(rt *Runtime) *cobra.Command {
	var (
		category string
		limit    int
	)

	cmd := &cobra.Command{
		Use:   "search <query>",
		Short: "Search the knowledge index the way searchKnowledgeBase does",
		Long: `Search the keyword index built from the current knowledge record.
Results are ranked by score, ties in index order.

Examples:
  lysandractl search "precio desarrollo web"
  lysandractl search horario --category general`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			st, _ := rt.openStore(ctx)
			defer st.Close()

			redisClient := bootstrap.BuildRedisClient(ctx, rt.Config, rt.Logger, true)
			if redisClient != nil {
				defer redisClient.Close()
			}

			ks := knowledge.NewStore(st, knowledge.NewRedisCache(redisClient, rt.Config.KnowledgeCacheTTL), rt.Logger.Component("knowledge"))
			results := knowledge.NewProvider(ks).Index(ctx).SearchScored(args[0])

			out := cmd.OutOrStdout()
			shown := 0
			for _, r := range results {
				if category != "" && r.Category != category {
					continue
				}
				if limit > 0 && shown == limit {
					break
				}
				shown++
				fmt.Fprintf(out, "%d. [%s] score=%d\n   %s\n", shown, r.Category, r.Score, r.Content)
			}
			if shown == 0 {
				fmt.Fprintln(out, "No results found.")
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&category, "category", "c", "", "only show entries of this category")
	cmd.Flags().IntVarP(&limit, "limit", "n", 5, "max results (0 for all)")
	return cmd
}
