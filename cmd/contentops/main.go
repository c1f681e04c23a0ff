package main

import (
	"os"

	"github.com/spf13/cobra"
	"github.com/templui/contentops/cmd/contentops/cmd"
)

func main() {
	rootCmd := &cobra.Command{
		Use:           "contentops",
		Short:         "Public upload gateway for the content-ops dashboard",
		SilenceUsage:  true,
		SilenceErrors: false,
	}

	rootCmd.AddCommand(cmd.ServeCmd())
	rootCmd.AddCommand(cmd.MigrateCmd())
	rootCmd.AddCommand(cmd.TokenCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
