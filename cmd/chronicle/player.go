package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func playerCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "player",
		Short: "Manage players",
	}
	cmd.AddCommand(playerCreateCmd())
	cmd.AddCommand(playerListCmd())
	return cmd
}

func playerCreateCmd() *cobra.Command {
	var slug, externalID, description string
	cmd := &cobra.Command{
		Use:   "create <name>",
		Short: "Create a player owned by an external identity",
		Args:  cobra.ExactArgs(1),
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
			p, err := a.knowledge.CreatePlayer(ctx, world, externalID, args[0], description)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Created player %q (id=%d) in %s.\n", p.Name, p.ID, world.Slug)
			return nil
		},
	}
	cmd.Flags().StringVar(&slug, "world", "", "World slug")
	cmd.Flags().StringVar(&externalID, "external-id", "", "Owning external identity")
	cmd.Flags().StringVar(&description, "description", "", "Player description")
	return cmd
}

func playerListCmd() *cobra.Command {
	var slug, externalID string
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List the players of an external identity",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if externalID == "" {
				return fmt.Errorf("--external-id is required")
			}
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
			players, err := a.knowledge.PlayersForIdentity(ctx, world, externalID)
			if err != nil {
				return err
			}
			if len(players) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No players found.")
				return nil
			}
			for _, p := range players {
				fmt.Fprintf(cmd.OutOrStdout(), "%d\t%s\n", p.ID, p.Name)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&slug, "world", "", "World slug")
	cmd.Flags().StringVar(&externalID, "external-id", "", "Owning external identity")
	return cmd
}
