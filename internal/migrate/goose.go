// Package migrate runs schema migrations in-process with goose, as an
// alternative to shelling out to a framework's migration command.
package migrate

import (
	"context"
	"database/sql"
	"fmt"
	"sync"

	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
	"github.com/pressly/goose/v3"
	"github.com/psantana5/entrypoint/internal/step"
)

// goose keeps dialect and table name in package state.
var gooseMu sync.Mutex

// Config selects the database and migration directory.
type Config struct {
	Dialect string // postgres or sqlite3
	DSN     string
	Dir     string
	Table   string
}

// GooseStep applies all pending migrations in Dir.
type GooseStep struct {
	name string
	cfg  Config
}

// NewGooseStep creates a migration step named name.
func NewGooseStep(name string, cfg Config) *GooseStep {
	return &GooseStep{name: name, cfg: cfg}
}

func (s *GooseStep) Name() string { return s.name }

func (s *GooseStep) Describe() string {
	return fmt.Sprintf("goose up (%s, %s)", s.cfg.Dialect, s.cfg.Dir)
}

// Run applies migrations. Any failure is reported as exit code 1 with the
// error text; a configuration problem that prevents goose from starting is
// reported as start_failed.
func (s *GooseStep) Run(ctx context.Context) step.Result {
	res := step.Begin(s.name, s.Describe())
	started, err := s.up(ctx)
	res.Finish()

	switch {
	case err == nil:
		res.Reason = step.ReasonSuccess
	case !started:
		res.ExitCode = -1
		res.Reason = step.ReasonStartFailed
		res.Error = err.Error()
	default:
		res.ExitCode = 1
		res.Reason = step.ReasonError
		res.Error = err.Error()
	}
	return res
}

func (s *GooseStep) up(ctx context.Context) (started bool, err error) {
	driver, err := driverFor(s.cfg.Dialect)
	if err != nil {
		return false, err
	}
	if s.cfg.DSN == "" {
		return false, fmt.Errorf("no database DSN configured")
	}

	db, err := sql.Open(driver, s.cfg.DSN)
	if err != nil {
		return false, fmt.Errorf("opening database: %w", err)
	}
	defer db.Close()

	if err := db.PingContext(ctx); err != nil {
		return true, fmt.Errorf("connecting to database: %w", err)
	}

	gooseMu.Lock()
	defer gooseMu.Unlock()

	if err := goose.SetDialect(s.cfg.Dialect); err != nil {
		return false, fmt.Errorf("setting goose dialect: %w", err)
	}
	if s.cfg.Table != "" {
		goose.SetTableName(s.cfg.Table)
	}

	if err := goose.UpContext(ctx, db, s.cfg.Dir); err != nil {
		return true, fmt.Errorf("applying migrations from %s: %w", s.cfg.Dir, err)
	}
	return true, nil
}

func driverFor(dialect string) (string, error) {
	switch dialect {
	case "postgres":
		return "postgres", nil
	case "sqlite3":
		return "sqlite3", nil
	default:
		return "", fmt.Errorf("unsupported dialect %q (want postgres or sqlite3)", dialect)
	}
}
