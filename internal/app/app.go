// Package app assembles the entrypoint from its configuration.
package app

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/psantana5/entrypoint/internal/config"
	"github.com/psantana5/entrypoint/internal/logging"
	"github.com/psantana5/entrypoint/internal/migrate"
	"github.com/psantana5/entrypoint/internal/report"
	"github.com/psantana5/entrypoint/internal/sequencer"
	"github.com/psantana5/entrypoint/internal/shutdown"
	"github.com/psantana5/entrypoint/internal/step"
	"github.com/psantana5/entrypoint/internal/tracing"
)

// Version is set at build time with -ldflags "-X .../internal/app.Version=...".
var Version = "dev"

// finalizeTimeout bounds the pre-handoff flush.
const finalizeTimeout = 5 * time.Second

// App is a fully wired entrypoint.
type App struct {
	Config    *config.Config
	Log       *logging.Logger
	Sequencer *sequencer.Sequencer
	Recorder  *Recorder
}

// LoadConfig loads the configuration at path. When it names an env file,
// that file is loaded into the environment and the configuration is read
// again so ENTRYPOINT_ variables from the file take effect.
func LoadConfig(path string) (*config.Config, error) {
	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}
	if cfg.EnvFile == "" {
		return cfg, nil
	}

	if err := config.LoadEnvFile(cfg.EnvFile); err != nil {
		return nil, err
	}
	return config.Load(path)
}

// NewLogger builds the logger described by cfg.
func NewLogger(cfg config.LogConfig) *logging.Logger {
	log := logging.NewLogger(logging.ParseLevel(cfg.Level), strings.EqualFold(cfg.Format, "json"))
	log.SetOutput(logging.OutputFor(cfg.Output))
	return log
}

// New wires steps, recorder and finalizers for one bootstrap run of argv.
func New(ctx context.Context, cfg *config.Config, argv []string) (*App, error) {
	if cfg == nil {
		return nil, fmt.Errorf("nil config")
	}
	log := NewLogger(cfg.Log)

	tracer, err := tracing.Init(ctx, tracing.Config{
		ServiceName:    cfg.Tracing.ServiceName,
		ServiceVersion: Version,
		Environment:    cfg.Tracing.Environment,
		Endpoint:       cfg.Tracing.Endpoint,
	})
	if err != nil {
		// Tracing is observability only; it never blocks a start.
		log.Warn(fmt.Sprintf("Tracing disabled: %v", err))
		tracer, _ = tracing.Init(ctx, tracing.Config{ServiceName: cfg.Tracing.ServiceName})
	}

	rec := &Recorder{
		Run:          report.NewRun(argv, report.CollectHost()),
		Metrics:      report.NewMetrics(),
		Tracer:       tracer,
		ReportPath:   cfg.Report.Path,
		TextfilePath: cfg.Report.MetricsTextfile,
		Log:          log,
	}

	finalizers := shutdown.New(finalizeTimeout, log)
	finalizers.Register("tracing", tracer.Shutdown)
	finalizers.Register("report", rec.Flush)

	migrateStep, collectStep := BuildSteps(cfg)

	seq := &sequencer.Sequencer{
		Migrate:       migrateStep,
		CollectStatic: collectStep,
		Finalizers:    finalizers,
		Observers:     []sequencer.Observer{rec},
		Log:           log,
		Environ:       os.Environ,
	}

	return &App{
		Config:    cfg,
		Log:       log,
		Sequencer: seq,
		Recorder:  rec,
	}, nil
}

// BuildSteps returns the configured setup steps. A disabled step is nil.
func BuildSteps(cfg *config.Config) (migrateStep, collectStep step.Step) {
	if cfg.Migrate.Enabled {
		if cfg.Migrate.Driver == config.DriverGoose {
			migrateStep = migrate.NewGooseStep(sequencer.NameMigrate, migrate.Config{
				Dialect: cfg.Migrate.Goose.Dialect,
				DSN:     cfg.Migrate.Goose.DSN,
				Dir:     cfg.Migrate.Goose.Dir,
				Table:   cfg.Migrate.Goose.Table,
			})
		} else {
			migrateStep = step.NewCommandStep(sequencer.NameMigrate, cfg.Migrate.Command, cfg.WorkDir)
		}
	}

	if cfg.CollectStatic.Enabled {
		collectStep = step.NewCommandStep(sequencer.NameCollectStatic, cfg.CollectStatic.Command, cfg.WorkDir)
	}
	return migrateStep, collectStep
}

// Run performs the bootstrap of argv. It only returns on delegation
// failure.
func (a *App) Run(ctx context.Context, argv []string) error {
	a.Log.Debug("Starting bootstrap", map[string]interface{}{
		"run_id":  a.Recorder.Run.ID,
		"version": Version,
	})
	return a.Sequencer.Run(ctx, argv)
}

// Plan describes what Run would do for argv without running anything.
func (a *App) Plan(argv []string) []sequencer.PlanEntry {
	return a.Sequencer.Plan(argv)
}
