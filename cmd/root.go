package cmd

import (
	"io"
	"os"
	"path/filepath"

	"github.com/phuslu/log"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"rmsh.dev/rmsh/core"
	"rmsh.dev/rmsh/core/config"
	"rmsh.dev/rmsh/core/term"
)

var (
	cfgPath    string
	command    string
	debugInput bool

	// exitStatus is the shell's last exit status, propagated to the
	// process exit code by Execute.
	exitStatus int
)

func loadConfig() (*config.Configuration, error) {
	return config.Load(afero.NewOsFs(), cfgPath)
}

func defaultConfigDir() string {
	if dir, err := os.UserConfigDir(); err == nil {
		return filepath.Join(dir, "rmsh")
	}
	return "."
}

// rootCmd runs the shell itself when called without a subcommand.
var rootCmd = &cobra.Command{
	Use:   "rmsh",
	Short: "An interactive command shell",
	Long: `rmsh is an interactive command shell: a raw-mode line editor with
history and reverse search, running pipelines with POSIX job control.`,
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		// The shell's own log is off by default; user-facing output goes
		// through the shell's writers, never the logger.
		logger := &log.Logger{Writer: &log.IOWriter{Writer: io.Discard}}
		sh := core.NewShell("rmsh", cfg, os.Stdin, os.Stdout, os.Stderr, logger)

		if command != "" {
			exitStatus = sh.RunInput(command)
			return nil
		}

		t := term.NewTerminal(os.Stdin)
		if t.IsTerminal() {
			if debugInput {
				return core.DebugInput(t, os.Stdin, os.Stdout)
			}
			status, err := sh.Run(t)
			if err != nil {
				return err
			}
			exitStatus = status
			return nil
		}

		// Piped input: the whole script is one input, newlines separate
		// words like any other blank.
		data, err := io.ReadAll(os.Stdin)
		if err != nil {
			return err
		}
		exitStatus = sh.RunInput(string(data))
		return nil
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	cobra.CheckErr(rootCmd.Execute())
	os.Exit(exitStatus)
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgPath, "config", defaultConfigDir(), "config path")
	rootCmd.Flags().StringVarP(&command, "command", "c", "", "run a single command and exit")
	rootCmd.Flags().BoolVarP(&debugInput, "debug-input", "D", false, "dump raw terminal input instead of running the shell")
}
