// Package cmd holds the domainimport command tree.
package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:           "domainimport",
	Short:         "Bulk import of domain registration records from XLSX files",
	SilenceUsage:  true,
	SilenceErrors: false,
}

// SetVersion sets the string printed by --version.
func SetVersion(v string) {
	rootCmd.Version = v
}

// Execute runs the root command until it returns or SIGINT/SIGTERM arrives.
func Execute() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return rootCmd.ExecuteContext(ctx)
}
