// File: cmd/app/main.go
package main

import (
	"context"
	"os"

	"github.com/spf13/cobra"
)

var (
	version = "dev"
	commit  = "none"
)

var (
	cfgPath string
	devMode bool
)

func main() {
	root := &cobra.Command{
		Use:          "bridge",
		Short:        "WhatsApp (Green-API) to Telegram webhook bridge",
		SilenceUsage: true,
		Version:      version + " (" + commit + ")",
	}
	root.PersistentFlags().StringVarP(&cfgPath, "config", "c", "config.yaml", "path to YAML config file")
	root.PersistentFlags().BoolVar(&devMode, "dev", false, "developer mode (console logs, secrets unredacted)")

	root.AddCommand(serveCmd())
	root.AddCommand(webhookCmd())
	root.AddCommand(migrateCmd())

	if err := root.ExecuteContext(context.Background()); err != nil {
		os.Exit(1)
	}
}
