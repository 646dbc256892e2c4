package app

import (
	"context"
	"errors"
	"fmt"

	"github.com/psantana5/entrypoint/internal/handoff"
	"github.com/psantana5/entrypoint/internal/logging"
	"github.com/psantana5/entrypoint/internal/report"
	"github.com/psantana5/entrypoint/internal/sequencer"
	"github.com/psantana5/entrypoint/internal/step"
	"github.com/psantana5/entrypoint/internal/tracing"
	"go.opentelemetry.io/otel/attribute"
)

// Recorder observes the sequencer and keeps the run report, metrics and
// spans up to date.
type Recorder struct {
	Run     *report.Run
	Metrics *report.Metrics
	Tracer  *tracing.Provider

	ReportPath   string
	TextfilePath string

	Log *logging.Logger
}

var _ sequencer.Observer = (*Recorder)(nil)

func (r *Recorder) StepFinished(res step.Result) {
	r.Run.AddStep(res)
	r.Metrics.Record(res)
	if r.Tracer != nil {
		r.Tracer.RecordStep(res)
	}
}

func (r *Recorder) Transition(to sequencer.State) {
	r.Run.State = string(to)
	r.Metrics.SetState(string(to))
}

func (r *Recorder) Delegating(target *handoff.Target) {
	r.Run.Resolved = target.Path
	if r.Tracer != nil {
		r.Tracer.Annotate("handoff", attribute.String("path", target.Path))
	}
}

// DelegationFailed records err and writes the report again, since the
// pre-exec flush may already have happened.
func (r *Recorder) DelegationFailed(err error) {
	r.Run.Error = err.Error()
	if r.Tracer != nil {
		r.Tracer.Annotate("delegation_failed",
			attribute.String("error", err.Error()),
			attribute.Int("exit_code", handoff.ExitCode(err)),
		)
	}
	if ferr := r.Flush(context.Background()); ferr != nil {
		r.logger().Warn(fmt.Sprintf("Writing report failed: %v", ferr))
	}
}

// Flush writes the report and the metrics textfile if they are configured.
func (r *Recorder) Flush(context.Context) error {
	var errs []error
	if r.ReportPath != "" {
		if err := r.Run.WriteFile(r.ReportPath); err != nil {
			errs = append(errs, err)
		}
	}
	if r.TextfilePath != "" {
		if err := r.Metrics.WriteTextfile(r.TextfilePath); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (r *Recorder) logger() *logging.Logger {
	if r.Log == nil {
		return logging.Nop()
	}
	return r.Log
}
