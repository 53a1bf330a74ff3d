package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"chronicle/internal/merge"
	"chronicle/internal/store"
)

func mergeCmd() *cobra.Command {
	var slug, kind string
	var keep, remove, player int64
	cmd := &cobra.Command{
		Use:   "merge",
		Short: "Merge duplicate entities, or absorb a character into a player",
		Long: "Merge --remove into --keep for a location, character or item. " +
			"With --player, the character --remove is absorbed into that player instead.",
		Args: cobra.NoArgs,
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

			var result *merge.Result
			if player > 0 {
				result, err = a.merge.MergeCharacterIntoPlayer(ctx, world, remove, player)
			} else {
				k, perr := store.ParseKind(kind)
				if perr != nil {
					return perr
				}
				result, err = a.merge.MergeSameKind(ctx, world, k, keep, remove)
			}
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Merged %d into %s %d %q.\n",
				result.RemovedID, result.Survivor.Kind, result.Survivor.ID, result.Survivor.Name)
			return nil
		},
	}
	cmd.Flags().StringVar(&slug, "world", "", "World slug")
	cmd.Flags().StringVar(&kind, "kind", "", "location, character or item")
	cmd.Flags().Int64Var(&keep, "keep", 0, "Surviving entity id")
	cmd.Flags().Int64Var(&remove, "remove", 0, "Entity id folded into the survivor")
	cmd.Flags().Int64Var(&player, "player", 0, "Player absorbing the character --remove")
	return cmd
}
