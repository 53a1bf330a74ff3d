package main

import (
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var configPath string

func main() {
	// A missing .env is normal outside development.
	_ = godotenv.Load()

	root := &cobra.Command{
		Use:          "chronicle",
		Short:        "Shared world knowledge base for AI-narrated adventures",
		SilenceUsage: true,
	}
	root.Version = version
	root.SetVersionTemplate("{{.Version}}\n")
	root.PersistentFlags().StringVar(&configPath, "config", "chronicle.yaml", "Path to the project config")
	root.AddCommand(initCmd())
	root.AddCommand(migrateCmd())
	root.AddCommand(serveCmd())
	root.AddCommand(mcpCmd())
	root.AddCommand(worldCmd())
	root.AddCommand(playerCmd())
	root.AddCommand(searchCmd())
	root.AddCommand(eventsCmd())
	root.AddCommand(mergeCmd())
	root.AddCommand(seedCmd())
	root.AddCommand(auditCmd())
	root.AddCommand(versionCmd())
	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}
