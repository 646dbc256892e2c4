// Package sequencer drives the container bootstrap: two best-effort setup
// steps followed by a terminal handoff to the container's command.
package sequencer

// Setup steps never stop the sequence.
// The handoff either replaces this process or fails the container.
// There is nothing in between.

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/psantana5/entrypoint/internal/handoff"
	"github.com/psantana5/entrypoint/internal/logging"
	"github.com/psantana5/entrypoint/internal/shutdown"
	"github.com/psantana5/entrypoint/internal/step"
)

// Observer is told about every step result and state change. Observers
// run synchronously on the sequencer's goroutine.
type Observer interface {
	StepFinished(res step.Result)
	Transition(to State)
	Delegating(target *handoff.Target)
	DelegationFailed(err error)
}

// ResolveFunc locates the delegated command.
type ResolveFunc func(argv []string, env []string) (*handoff.Target, error)

// Sequencer runs Start → AfterMigrate → AfterCollectStatic → Replaced.
// A nil step is treated as disabled; its state transition still happens.
type Sequencer struct {
	Migrate       step.Step
	CollectStatic step.Step

	// Finalizers run once, immediately before the exec.
	Finalizers *shutdown.Manager
	Observers  []Observer

	Log     *logging.Logger
	Resolve ResolveFunc
	Environ func() []string

	state State
}

// State returns the last state reached.
func (s *Sequencer) State() State {
	return s.state
}

// Run executes the sequence. On success it does not return: the process
// image is replaced by argv. The returned error is always a delegation
// failure; use handoff.ExitCode to turn it into an exit status.
func (s *Sequencer) Run(ctx context.Context, argv []string) error {
	log := s.logger()

	s.transition(StateStart)

	s.setup(ctx, NameMigrate, s.Migrate)
	s.transition(StateAfterMigrate)

	s.setup(ctx, NameCollectStatic, s.CollectStatic)
	s.transition(StateAfterCollectStatic)

	target, err := s.resolver()(argv, s.environ())
	if err != nil {
		return s.fail(ctx, err)
	}

	for _, o := range s.Observers {
		o.Delegating(target)
	}
	log.Info(fmt.Sprintf("Handing off to %s", strings.Join(argv, " ")), map[string]interface{}{
		"path": target.Path,
	})

	// Recorded before the exec because nothing can be recorded after it.
	s.transition(StateReplaced)
	s.finalize(ctx)

	if err := target.Exec(); err != nil {
		return s.fail(ctx, err)
	}
	return nil
}

func (s *Sequencer) setup(ctx context.Context, name string, st step.Step) {
	var res step.Result
	if st == nil {
		s.logger().Info(fmt.Sprintf("Skipping %s (disabled)", name))
		res = step.Skipped(name)
	} else {
		res = step.Discard(ctx, st, s.logger())
	}

	for _, o := range s.Observers {
		o.StepFinished(res)
	}
}

func (s *Sequencer) fail(ctx context.Context, err error) error {
	s.logger().Error(fmt.Sprintf("Cannot hand off: %v", err), map[string]interface{}{
		"exit_code": handoff.ExitCode(err),
	})
	s.transition(StateDelegationFailed)
	for _, o := range s.Observers {
		o.DelegationFailed(err)
	}
	s.finalize(ctx)
	return err
}

func (s *Sequencer) finalize(ctx context.Context) {
	if s.Finalizers == nil {
		return
	}
	// Errors are logged by the manager; none may block the handoff.
	_ = s.Finalizers.Run(ctx)
}

func (s *Sequencer) transition(to State) {
	s.logger().Debug(fmt.Sprintf("State %s -> %s", s.state, to))
	s.state = to
	for _, o := range s.Observers {
		o.Transition(to)
	}
}

func (s *Sequencer) logger() *logging.Logger {
	if s.Log == nil {
		s.Log = logging.Nop()
	}
	return s.Log
}

func (s *Sequencer) resolver() ResolveFunc {
	if s.Resolve != nil {
		return s.Resolve
	}
	return handoff.Resolve
}

func (s *Sequencer) environ() []string {
	if s.Environ != nil {
		return s.Environ()
	}
	return os.Environ()
}
