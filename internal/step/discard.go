package step

import (
	"context"
	"fmt"

	"github.com/psantana5/entrypoint/internal/logging"
)

// Discard is the best-effort policy: run s, log what happened, carry on.
// The result is returned for reporting only; callers must not branch on it.
// A panicking in-process step is converted into a failed Result.
func Discard(ctx context.Context, s Step, log *logging.Logger) (res Result) {
	log = log.WithField("step", s.Name())
	log.Info(fmt.Sprintf("Running %s", Describe(s)))

	defer func() {
		if r := recover(); r != nil {
			res = Result{
				Name:     s.Name(),
				Command:  Describe(s),
				ExitCode: -1,
				Reason:   ReasonStartFailed,
				Error:    fmt.Sprintf("panic: %v", r),
			}
		}
		logOutcome(log, res)
	}()

	return s.Run(ctx)
}

func logOutcome(log *logging.Logger, res Result) {
	fields := map[string]interface{}{
		"exit_code": res.ExitCode,
		"reason":    string(res.Reason),
		"duration":  res.Duration.String(),
	}
	if res.Signal != "" {
		fields["signal"] = res.Signal
	}
	if res.Error != "" {
		fields["error"] = res.Error
	}

	if res.Reason.IsFailure() {
		log.Warn("Step failed, continuing", fields)
		return
	}
	log.Info("Step finished", fields)
}
