package cmd

import (
	"github.com/psantana5/entrypoint/internal/app"
	"github.com/spf13/cobra"
)

var (
	skipMigrate       bool
	skipCollectStatic bool
	reportPath        string
)

// runCmd represents the run command
var runCmd = &cobra.Command{
	Use:   "run [flags] [--] command [args...]",
	Short: "Run the setup steps and hand off to a command",
	Long: `Run migrate and collectstatic, ignoring their outcome, then replace this
process with the given command. Flags after the command name belong to the
command.`,
	Example: `  entrypointctl run -- gunicorn app.wsgi --bind 0.0.0.0:8000
  entrypointctl run --skip-migrate --report /tmp/run.json -- python manage.py runserver`,
	RunE: runRun,
}

func init() {
	rootCmd.AddCommand(runCmd)
	runCmd.Flags().SetInterspersed(false)
	runCmd.Flags().BoolVar(&skipMigrate, "skip-migrate", false, "disable the migrate step")
	runCmd.Flags().BoolVar(&skipCollectStatic, "skip-collectstatic", false, "disable the collectstatic step")
	runCmd.Flags().StringVar(&reportPath, "report", "", "write the run report to this file (.json or .yaml)")
}

func runRun(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if skipMigrate {
		cfg.Migrate.Enabled = false
	}
	if skipCollectStatic {
		cfg.CollectStatic.Enabled = false
	}
	if reportPath != "" {
		cfg.Report.Path = reportPath
	}

	a, err := app.New(cmd.Context(), cfg, args)
	if err != nil {
		return err
	}
	return delegationExit(a.Run(cmd.Context(), args))
}
