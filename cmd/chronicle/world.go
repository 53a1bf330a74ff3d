package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func worldCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "world",
		Short: "Create and list worlds",
	}
	cmd.AddCommand(worldCreateCmd())
	cmd.AddCommand(worldListCmd())
	return cmd
}

func worldCreateCmd() *cobra.Command {
	var description string
	var slug string
	cmd := &cobra.Command{
		Use:   "create <name>",
		Short: "Create a world",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, err := newApp(ctx)
			if err != nil {
				return err
			}
			defer a.close(ctx)

			w, err := a.knowledge.CreateWorld(ctx, args[0], description, slug)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Created world %q (id=%d, slug=%s).\n", w.Name, w.ID, w.Slug)
			return nil
		},
	}
	cmd.Flags().StringVar(&description, "description", "", "World description")
	cmd.Flags().StringVar(&slug, "slug", "", "URL slug (derived from the name when empty)")
	return cmd
}

func worldListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List worlds",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, err := newApp(ctx)
			if err != nil {
				return err
			}
			defer a.close(ctx)

			worlds, err := a.knowledge.ListWorlds(ctx)
			if err != nil {
				return err
			}
			if len(worlds) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No worlds found.")
				return nil
			}
			for _, w := range worlds {
				fmt.Fprintf(cmd.OutOrStdout(), "%d\t%s\t%s\n", w.ID, w.Slug, w.Name)
			}
			return nil
		},
	}
}
