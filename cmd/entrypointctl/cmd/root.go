package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/psantana5/entrypoint/internal/app"
	"github.com/psantana5/entrypoint/internal/config"
	"github.com/psantana5/entrypoint/internal/handoff"
	"github.com/spf13/cobra"
)

var (
	cfgFile      string
	logLevel     string
	outputFormat string
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "entrypointctl",
	Short: "Inspect and run the container entrypoint",
	Long: `entrypointctl shows what the container entrypoint would do, runs it with
overrides, and reads the run reports it leaves behind.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// exitError carries a process exit code out of a command.
type exitError struct {
	code int
	err  error
}

func (e *exitError) Error() string { return e.err.Error() }
func (e *exitError) Unwrap() error { return e.err }

// Execute runs the root command and returns the process exit code.
func Execute() int {
	err := rootCmd.ExecuteContext(context.Background())
	if err == nil {
		return 0
	}

	fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	var ee *exitError
	if errors.As(err, &ee) {
		return ee.code
	}
	return 1
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $"+config.EnvConfigPath+")")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "override log.level (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVarP(&outputFormat, "output", "o", "table", "output format: table, json or yaml")
}

// loadConfig reads the configuration the same way the entrypoint does and
// applies the global flag overrides.
func loadConfig() (*config.Config, error) {
	path := cfgFile
	if path == "" {
		path = os.Getenv(config.EnvConfigPath)
	}

	cfg, err := app.LoadConfig(path)
	if err != nil {
		return nil, err
	}
	if logLevel != "" {
		cfg.Log.Level = logLevel
	}
	return cfg, nil
}

func delegationExit(err error) error {
	if err == nil {
		return nil
	}
	return &exitError{code: handoff.ExitCode(err), err: err}
}
