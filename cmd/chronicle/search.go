package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"chronicle/internal/store"
)

func searchCmd() *cobra.Command {
	var slug, kind string
	var limit int
	cmd := &cobra.Command{
		Use:   "search <text>",
		Short: "Semantic search over a world's knowledge",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, err := newApp(ctx)
			if err != nil {
				return err
			}
			defer a.close(ctx)

			world, err := a.world(ctx, slug)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()

			switch kind {
			case "event", "events":
				results, err := a.knowledge.SearchEvents(ctx, world, args[0], limit)
				if err != nil {
					return err
				}
				if len(results) == 0 {
					fmt.Fprintln(out, "No matches found.")
					return nil
				}
				for _, r := range results {
					fmt.Fprintf(out, "event %d score=%.2f %s\n", r.ID, r.Similarity, summary(r.ShortDescription, r.Description))
				}
				return nil
			case "personality":
				results, err := a.knowledge.SearchPersonalities(ctx, world, args[0], limit)
				if err != nil {
					return err
				}
				printEntities(cmd, results)
				return nil
			}

			k, err := store.ParseKind(kind)
			if err != nil {
				return err
			}
			results, err := a.knowledge.Search(ctx, world, k, args[0], limit)
			if err != nil {
				return err
			}
			printEntities(cmd, results)
			return nil
		},
	}
	cmd.Flags().StringVar(&slug, "world", "", "World slug")
	cmd.Flags().StringVar(&kind, "kind", "location", "location, character, player, item, event or personality")
	cmd.Flags().IntVar(&limit, "limit", 10, "Maximum results")
	return cmd
}

func printEntities(cmd *cobra.Command, results []store.ScoredEntity) {
	out := cmd.OutOrStdout()
	if len(results) == 0 {
		fmt.Fprintln(out, "No matches found.")
		return
	}
	for _, r := range results {
		fmt.Fprintf(out, "%s %d score=%.2f %s\n", r.Kind, r.ID, r.Similarity, r.Name)
	}
}

func summary(short, description string) string {
	if short != "" {
		return short
	}
	return description
}
