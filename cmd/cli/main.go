package main

import (
	"os"

	"github.com/concordtech/contact-api/config"
	"github.com/concordtech/contact-api/internal/log"
	"github.com/spf13/cobra"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

// newRootCmd wires every subcommand. Logs go to stderr so command output on stdout stays parseable.
func newRootCmd() *cobra.Command {
	logger := log.NewLoggerFromEnv(os.Stderr)

	root := &cobra.Command{
		Use:          "cli",
		Short:        "Operational commands for the contact API",
		SilenceUsage: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			config.InitializeEnvFile(logger)
		},
	}

	root.AddCommand(
		newMigrateCmd(logger),
		newSubmissionsCmd(logger),
		newStorageCmd(logger),
	)

	return root
}
