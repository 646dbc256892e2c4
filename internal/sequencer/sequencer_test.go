package sequencer

import (
	"bytes"
	"context"
	"errors"
	"syscall"
	"testing"
	"time"

	"github.com/psantana5/entrypoint/internal/handoff"
	"github.com/psantana5/entrypoint/internal/logging"
	"github.com/psantana5/entrypoint/internal/shutdown"
	"github.com/psantana5/entrypoint/internal/step"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeStep records its invocation into a shared journal.
type fakeStep struct {
	name    string
	code    int
	reason  step.ExitReason
	journal *[]string
}

func (f *fakeStep) Name() string { return f.name }

func (f *fakeStep) Run(context.Context) step.Result {
	*f.journal = append(*f.journal, f.name)
	return step.Result{Name: f.name, ExitCode: f.code, Reason: f.reason}
}

// recorder is an Observer that keeps everything it is told.
type recorder struct {
	steps    []step.Result
	states   []State
	target   *handoff.Target
	failures []error
}

func (r *recorder) StepFinished(res step.Result)      { r.steps = append(r.steps, res) }
func (r *recorder) Transition(to State)               { r.states = append(r.states, to) }
func (r *recorder) Delegating(target *handoff.Target) { r.target = target }
func (r *recorder) DelegationFailed(err error)        { r.failures = append(r.failures, err) }

type execCall struct {
	path string
	argv []string
	env  []string
}

// fakeExec resolves commands for real but never replaces the test process.
func fakeExec(journal *[]string, calls *[]execCall, execErr error) ResolveFunc {
	return func(argv []string, env []string) (*handoff.Target, error) {
		target, err := handoff.Resolve(argv, env)
		if err != nil {
			return nil, err
		}
		return target.WithExec(func(path string, argv []string, env []string) error {
			*journal = append(*journal, "exec")
			*calls = append(*calls, execCall{path: path, argv: argv, env: env})
			return execErr
		}), nil
	}
}

func outcomes() []struct {
	code   int
	reason step.ExitReason
} {
	return []struct {
		code   int
		reason step.ExitReason
	}{
		{0, step.ReasonSuccess},
		{1, step.ReasonError},
		{137, step.ReasonSignal},
		{-1, step.ReasonStartFailed},
	}
}

func TestSetupOutcomesNeverStopTheSequence(t *testing.T) {
	for _, m := range outcomes() {
		for _, c := range outcomes() {
			name := string(m.reason) + "/" + string(c.reason)
			t.Run(name, func(t *testing.T) {
				var journal []string
				var calls []execCall
				obs := &recorder{}

				seq := &Sequencer{
					Migrate:       &fakeStep{name: NameMigrate, code: m.code, reason: m.reason, journal: &journal},
					CollectStatic: &fakeStep{name: NameCollectStatic, code: c.code, reason: c.reason, journal: &journal},
					Observers:     []Observer{obs},
					Resolve:       fakeExec(&journal, &calls, nil),
					Environ:       func() []string { return []string{"A=1"} },
				}

				require.NoError(t, seq.Run(context.Background(), []string{"sh", "-c", "true"}))

				assert.Equal(t, []string{NameMigrate, NameCollectStatic, "exec"}, journal)
				assert.Equal(t, []State{StateStart, StateAfterMigrate, StateAfterCollectStatic, StateReplaced}, obs.states)
				require.Len(t, obs.steps, 2)
				assert.Equal(t, m.code, obs.steps[0].ExitCode)
				assert.Equal(t, c.code, obs.steps[1].ExitCode)
				assert.Equal(t, StateReplaced, seq.State())
			})
		}
	}
}

func TestArgvForwardedVerbatim(t *testing.T) {
	var journal []string
	var calls []execCall

	argv := []string{"sh", "serve", "--port", "8080", "", "with space"}
	seq := &Sequencer{
		Resolve: fakeExec(&journal, &calls, nil),
		Environ: func() []string { return []string{"DJANGO_SETTINGS_MODULE=app.settings"} },
	}

	require.NoError(t, seq.Run(context.Background(), argv))
	require.Len(t, calls, 1)
	assert.Equal(t, []string{"sh", "serve", "--port", "8080", "", "with space"}, calls[0].argv)
	assert.Equal(t, []string{"DJANGO_SETTINGS_MODULE=app.settings"}, calls[0].env)
	assert.NotEmpty(t, calls[0].path)
}

func TestDisabledStepsStillAdvance(t *testing.T) {
	var journal []string
	var calls []execCall
	obs := &recorder{}

	seq := &Sequencer{
		Observers: []Observer{obs},
		Resolve:   fakeExec(&journal, &calls, nil),
	}

	require.NoError(t, seq.Run(context.Background(), []string{"sh"}))
	require.Len(t, obs.steps, 2)
	assert.Equal(t, step.ReasonSkipped, obs.steps[0].Reason)
	assert.Equal(t, step.ReasonSkipped, obs.steps[1].Reason)
	assert.Equal(t, []string{"exec"}, journal)
}

func TestFinalizersRunBeforeExec(t *testing.T) {
	var journal []string
	var calls []execCall

	fin := shutdown.New(time.Second, nil)
	fin.Register("report", func(context.Context) error {
		journal = append(journal, "finalize")
		return nil
	})
	fin.Register("broken", func(context.Context) error { return errors.New("collector down") })

	seq := &Sequencer{
		Finalizers: fin,
		Resolve:    fakeExec(&journal, &calls, nil),
	}

	require.NoError(t, seq.Run(context.Background(), []string{"sh"}))
	assert.Equal(t, []string{"finalize", "exec"}, journal)
}

func TestDelegationFailures(t *testing.T) {
	tests := []struct {
		name     string
		argv     []string
		execErr  error
		wantCode int
		wantExec bool
	}{
		{"no command", nil, nil, handoff.ExitUsage, false},
		{"not found", []string{"definitely-not-a-real-binary-xyz", "serve"}, nil, handoff.ExitNotFound, false},
		{"exec refused", []string{"sh"}, syscall.EACCES, handoff.ExitNotExecutable, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var journal []string
			var calls []execCall
			var logs bytes.Buffer
			log := logging.NewLogger(logging.DEBUG, false)
			log.SetOutput(&logs)

			finalized := 0
			fin := shutdown.New(time.Second, nil)
			fin.Register("report", func(context.Context) error { finalized++; return nil })

			obs := &recorder{}
			seq := &Sequencer{
				Migrate:    &fakeStep{name: NameMigrate, reason: step.ReasonSuccess, journal: &journal},
				Finalizers: fin,
				Observers:  []Observer{obs},
				Log:        log,
				Resolve:    fakeExec(&journal, &calls, tt.execErr),
			}

			err := seq.Run(context.Background(), tt.argv)
			require.Error(t, err)
			assert.Equal(t, tt.wantCode, handoff.ExitCode(err))
			assert.NotEqual(t, 0, handoff.ExitCode(err))
			assert.Equal(t, StateDelegationFailed, seq.State())
			assert.Len(t, obs.failures, 1)
			assert.Equal(t, 1, finalized, "finalizers run exactly once")
			assert.Equal(t, tt.wantExec, len(calls) == 1)
			assert.Contains(t, logs.String(), "Cannot hand off")
			// The setup steps were still attempted.
			assert.Equal(t, NameMigrate, journal[0])
		})
	}
}

func TestPlan(t *testing.T) {
	var journal []string
	seq := &Sequencer{
		Migrate: step.NewCommandStep(NameMigrate, []string{"python", "manage.py", "migrate", "--noinput"}, ""),
	}

	plan := seq.Plan([]string{"sh", "-c", "serve"})
	require.Len(t, plan, 3)

	assert.Equal(t, PolicyDiscard, plan[0].Policy)
	assert.Equal(t, "python manage.py migrate --noinput", plan[0].Description)
	assert.Equal(t, PolicySkip, plan[1].Policy)
	assert.Equal(t, PolicyExec, plan[2].Policy)
	assert.Equal(t, "sh -c serve", plan[2].Description)
	assert.NotEmpty(t, plan[2].Note)
	assert.Empty(t, journal, "planning must not run anything")

	missing := seq.Plan([]string{"definitely-not-a-real-binary-xyz"})
	assert.Contains(t, missing[2].Note, "not found")
}

func TestStateIsTerminal(t *testing.T) {
	assert.True(t, StateReplaced.IsTerminal())
	assert.True(t, StateDelegationFailed.IsTerminal())
	assert.False(t, StateAfterMigrate.IsTerminal())
}
