// Package cli holds the guildpay command tree.
package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var Version = "dev"

func NewRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "guildpay",
		Short:         "GuildPay - paid Discord roles with crypto payouts",
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(payoutWorkerCmd())
	rootCmd.AddCommand(roleWorkerCmd())
	rootCmd.AddCommand(workerCmd())
	rootCmd.AddCommand(catalogCmd())
	rootCmd.AddCommand(hashKeyCmd())
	return rootCmd
}

// Execute runs the command tree and exits non-zero on error.
func Execute() {
	if err := NewRootCmd().ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
