package cmd

import (
	"github.com/phuslu/log"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"rmsh.dev/rmsh/core/config"
)

// initCmd writes the default configuration and a fresh SSH host key.
var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize the configuration directory.",
	Args:  cobra.ExactArgs(0),
	RunE: func(cmd *cobra.Command, args []string) error {
		cmd.SilenceUsage = true

		logger := &log.Logger{Writer: &log.ConsoleWriter{Writer: cmd.ErrOrStderr()}}
		return config.Initialize(afero.NewOsFs(), cfgPath, logger)
	},
}

func init() {
	rootCmd.AddCommand(initCmd)
}
