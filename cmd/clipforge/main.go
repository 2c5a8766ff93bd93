package main

import (
	"os"

	"github.com/spf13/cobra"

	"clipforge/internal/interfaces/cli/migrate"
	"clipforge/internal/interfaces/cli/server"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "clipforge",
		Short: "Clipforge admission and dispatch service",
		Long:  `Clipforge backend service providing login rate limiting, audit trail, and render dispatch.`,
	}

	rootCmd.AddCommand(
		server.NewCommand(),
		migrate.NewCommand(),
	)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
