package main

import (
	"context"
	"fmt"

	sdk "github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/spf13/cobra"

	"chronicle/internal/mcp"
	"chronicle/internal/store"
	"chronicle/internal/tools"
)

func mcpCmd() *cobra.Command {
	var slug string
	var playerID int64
	var readOnly bool
	cmd := &cobra.Command{
		Use:   "mcp",
		Short: "Serve a player's knowledge tools over MCP on stdio",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runMCP(cmd.Context(), slug, playerID, readOnly)
		},
	}
	cmd.Flags().StringVar(&slug, "world", "", "World slug")
	cmd.Flags().Int64Var(&playerID, "player", 0, "Player id the session acts for")
	cmd.Flags().BoolVar(&readOnly, "read-only", false, "Offer only the read tools")
	return cmd
}

func runMCP(ctx context.Context, slug string, playerID int64, readOnly bool) error {
	if playerID <= 0 {
		return fmt.Errorf("--player is required")
	}

	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.close(ctx)

	world, err := a.world(ctx, slug)
	if err != nil {
		return err
	}
	player, err := a.knowledge.Get(ctx, world, store.KindPlayer, playerID)
	if err != nil {
		return err
	}

	session := tools.Session{World: world, Player: player}
	catalogue, err := tools.New(a.toolDeps(), session)
	if err != nil {
		return err
	}
	set := tools.ReadWrite
	if readOnly {
		set = tools.ReadOnly
	}

	a.logger.Info("serving mcp", "world", world.Slug, "player", player.ID, "read_only", readOnly)
	return mcp.NewServer(catalogue, a.knowledge, session, set, version).Run(ctx, &sdk.StdioTransport{})
}
