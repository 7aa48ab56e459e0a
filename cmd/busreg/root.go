package main

import (
	"github.com/spf13/cobra"

	"github.com/JonMunkholm/busreg/internal/logging"
)

func newRootCmd() *cobra.Command {
	var logLevel string

	root := &cobra.Command{
		Use:           "busreg",
		Short:         "Bus registration pipeline tools",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(*cobra.Command, []string) {
			logging.Setup(logLevel, "text")
		},
	}
	root.PersistentFlags().StringVar(&logLevel, "log-level", "warn", "log level: debug, info, warn, error")

	root.AddCommand(newMigrateCmd())
	root.AddCommand(newValidateCmd())
	root.AddCommand(newIngestWecaCmd())
	return root
}
