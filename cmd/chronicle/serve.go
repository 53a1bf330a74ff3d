package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"

	"chronicle/internal/server"
)

func serveCmd() *cobra.Command {
	var addr string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the HTTP API and realtime stream",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context(), addr)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "Listen address (defaults to http.addr)")
	return cmd
}

func runServe(ctx context.Context, addr string) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.close(ctx)

	if addr == "" {
		addr = a.cfg.HTTP.Addr
	}
	gin.SetMode(gin.ReleaseMode)

	srv := server.New(server.Deps{
		Knowledge: a.knowledge,
		Narrator:  a.narrator,
		Hub:       a.hub,
		Logger:    a.logger,
	})
	a.logger.Info("listening", "addr", addr, "driver", a.cfg.Database.Driver)
	return srv.Run(ctx, addr)
}
