package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/openpaas/groupd/internal/logging"
)

// Run executes the command line with the given arguments, handling interrupt
// signals by cancelling the command context.
func Run(ctx context.Context, args ...string) error {
	ctx, cancel := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer cancel()

	rootCmd := NewRootCmd()
	rootCmd.SetArgs(args)
	return rootCmd.ExecuteContext(ctx)
}

func NewRootCmd() *cobra.Command {
	var logLevel string

	rootCmd := &cobra.Command{
		Use:           "groupd",
		Short:         "Group membership server",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return logging.SetLevel(logLevel)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	rootCmd.AddCommand(
		newServerCmd(),
		newVersionCmd(),
	)

	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "Show logs when running the command [error, warn, info, debug]")
	return rootCmd
}
