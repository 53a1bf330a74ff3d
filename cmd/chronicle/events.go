package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"chronicle/internal/store"
)

func eventsCmd() *cobra.Command {
	var slug, kind string
	var id int64
	var limit int
	cmd := &cobra.Command{
		Use:   "events",
		Short: "List a world's events, or those linked to one entity",
		Args:  cobra.NoArgs,
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

			var events []store.Event
			if kind == "" {
				events, err = a.knowledge.RecentEvents(ctx, world, limit)
			} else {
				k, perr := store.ParseKind(kind)
				if perr != nil {
					return perr
				}
				events, err = a.knowledge.EventsFor(ctx, world, k, id, limit)
			}
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if len(events) == 0 {
				fmt.Fprintln(out, "No events found.")
				return nil
			}
			for _, ev := range events {
				fmt.Fprintf(out, "%d\t%s\t%s\n", ev.ID, ev.CreatedAt.Format("2006-01-02 15:04"), summary(ev.ShortDescription, ev.Description))
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&slug, "world", "", "World slug")
	cmd.Flags().StringVar(&kind, "kind", "", "Entity kind to filter by (requires --id)")
	cmd.Flags().Int64Var(&id, "id", 0, "Entity id")
	cmd.Flags().IntVar(&limit, "limit", 20, "Maximum events")
	return cmd
}
