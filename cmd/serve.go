package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/phuslu/log"
	"github.com/spf13/cobra"

	"rmsh.dev/rmsh/core"
)

// serveCmd exposes the shell over SSH on a local port.
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the shell over SSH.",
	RunE: func(cmd *cobra.Command, args []string) error {
		cmd.SilenceUsage = true

		configuration, err := loadConfig()
		if err != nil {
			return err
		}
		if err := configuration.Validate(); err != nil {
			return err
		}

		appLog, err := configuration.OpenAppLog()
		if err != nil {
			return err
		}
		defer appLog.Close()

		logger := &log.Logger{
			Writer: &log.MultiEntryWriter{
				&log.ConsoleWriter{Writer: cmd.ErrOrStderr()},
				&log.IOWriter{Writer: appLog},
			},
		}

		server, err := core.NewServer(configuration, logger)
		if err != nil {
			return err
		}

		go func() {
			if err := server.ListenAndServe(); err != nil {
				logger.Fatal().Err(err).Msg("server failed")
			}
		}()

		sigs := make(chan os.Signal, 1)
		signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)
		sig := <-sigs
		logger.Info().Str("signal", sig.String()).Msg("terminating")

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return server.Shutdown(ctx)
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
}
