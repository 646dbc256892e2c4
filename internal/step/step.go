// Package step runs the preparatory work that happens before the handoff.
package step

// Setup steps are best effort.
// A step that fails is recorded, never retried, never fatal.
// Only the handoff may stop the container from starting.

import (
	"context"
	"time"
)

// Step is one unit of preparatory work.
type Step interface {
	Name() string
	Run(ctx context.Context) Result
}

// Describer is implemented by steps that can say what they would run.
type Describer interface {
	Describe() string
}

// Result is the immutable outcome of one step.
type Result struct {
	Name      string        `json:"name" yaml:"name"`
	Command   string        `json:"command,omitempty" yaml:"command,omitempty"`
	PID       int           `json:"pid,omitempty" yaml:"pid,omitempty"`
	ExitCode  int           `json:"exit_code" yaml:"exit_code"`
	Reason    ExitReason    `json:"reason" yaml:"reason"`
	Signal    string        `json:"signal,omitempty" yaml:"signal,omitempty"`
	StartedAt time.Time     `json:"started_at" yaml:"started_at"`
	EndedAt   time.Time     `json:"ended_at" yaml:"ended_at"`
	Duration  time.Duration `json:"duration" yaml:"duration"`
	Error     string        `json:"error,omitempty" yaml:"error,omitempty"`
}

// OK reports whether the step completed successfully.
func (r Result) OK() bool {
	return r.Reason == ReasonSuccess
}

// Begin returns the Result of a step that starts now.
func Begin(name, command string) Result {
	return Result{Name: name, Command: command, StartedAt: time.Now()}
}

// Finish stamps the end time and duration and returns the result.
// Only the first call counts.
func (r *Result) Finish() Result {
	if r.EndedAt.IsZero() {
		r.EndedAt = time.Now()
		r.Duration = r.EndedAt.Sub(r.StartedAt)
	}
	return *r
}

// Skipped returns the result recorded for a disabled step.
func Skipped(name string) Result {
	now := time.Now()
	return Result{
		Name:      name,
		ExitCode:  0,
		Reason:    ReasonSkipped,
		StartedAt: now,
		EndedAt:   now,
	}
}

// Describe returns a human readable description of s.
func Describe(s Step) string {
	if d, ok := s.(Describer); ok {
		return d.Describe()
	}
	return s.Name()
}
