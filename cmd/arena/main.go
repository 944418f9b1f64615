package main

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/Dakheel-code/arena-run-sub001/internal/tools/common"
	"github.com/Dakheel-code/arena-run-sub001/internal/tools/smoke"
)

func main() {
	if err := newRootCommand().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	var envFile string
	cmd := &cobra.Command{
		Use:           "arena",
		Short:         "Arena Run playback integrity service",
		SilenceUsage:  true,
		SilenceErrors: false,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return common.LoadEnvFile(envFile)
		},
	}
	cmd.PersistentFlags().StringVar(&envFile, "env-file", ".env", "dotenv file loaded before configuration")
	cmd.AddCommand(
		newServeCommand(),
		newMigrateCommand(),
		newTokenCommand(),
		newGeoCommand(),
		newLoadgenCommand(),
		smoke.NewCommand(),
	)
	return cmd
}
