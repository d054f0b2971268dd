// docadmin is the operational CLI for the document tracking table.
// Build with: go build -o bin/docadmin ./cmd/docadmin
package main

import (
	"log/slog"
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "docadmin",
	Short: "Administer the document tracking store",
	Long:  "Operational commands for the document tracking table: schema bootstrap and list-index reconciliation.",
}

func init() {
	rootCmd.AddCommand(initTableCmd)
	rootCmd.AddCommand(reconcileCmd)
}

func newLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
