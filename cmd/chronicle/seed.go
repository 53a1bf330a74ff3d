package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"chronicle/internal/seed"
)

func seedCmd() *cobra.Command {
	var slug string
	cmd := &cobra.Command{
		Use:   "seed [dir...]",
		Short: "Load a world's starting lore from markdown files",
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
			roots := args
			if len(roots) == 0 {
				roots = a.cfg.Seed.Paths
			}
			if len(roots) == 0 {
				return fmt.Errorf("no seed directories given and seed.paths is empty")
			}

			result, err := seed.Run(ctx, a.knowledge, world, roots, seed.Options{
				Exclude: a.cfg.Seed.Exclude,
				Logger:  a.logger,
			})
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintln(out, "Seeding complete.")
			fmt.Fprintf(out, "  Entities created: %d\n", result.EntitiesCreated)
			fmt.Fprintf(out, "  Events created:   %d\n", result.EventsCreated)
			fmt.Fprintf(out, "  Files skipped:    %d\n", result.FilesSkipped)

			if len(result.Errors) > 0 {
				fmt.Fprintf(out, "\nErrors (%d):\n", len(result.Errors))
				for _, item := range result.Errors {
					fmt.Fprintf(out, "  - %v\n", item)
				}
				return fmt.Errorf("seeding completed with errors")
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&slug, "world", "", "World slug")
	return cmd
}
