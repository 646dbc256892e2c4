// Package handoff replaces the entrypoint process with the container's
// real command.
package handoff

// There is no child process and no supervision.
// After Exec succeeds this program no longer exists.
// Whatever the delegated command exits with is the container's exit code.

import (
	"errors"
	"fmt"
	"io/fs"
	"os/exec"
	"syscall"

	"golang.org/x/sys/unix"
)

// Exit codes for delegation failures. 126 and 127 follow the shell.
const (
	ExitUsage         = 2
	ExitNotExecutable = 126
	ExitNotFound      = 127
)

var (
	ErrNoCommand     = errors.New("no command given")
	ErrNotFound      = errors.New("command not found")
	ErrNotExecutable = errors.New("command cannot be executed")
)

// DelegationError is a fatal failure of the terminal step.
type DelegationError struct {
	Command string
	Code    int
	Err     error
}

func (e *DelegationError) Error() string {
	if e.Command == "" {
		return e.Err.Error()
	}
	return fmt.Sprintf("%s: %v", e.Command, e.Err)
}

func (e *DelegationError) Unwrap() error { return e.Err }

// ExitCode maps an error returned by Resolve or Exec to a process exit code.
// A nil error maps to 0; errors of unknown origin map to 1.
func ExitCode(err error) int {
	if err == nil {
		return 0
	}
	var de *DelegationError
	if errors.As(err, &de) {
		return de.Code
	}
	return 1
}

// ExecFunc replaces the current process image. unix.Exec in production.
type ExecFunc func(argv0 string, argv []string, envv []string) error

// Target is a resolved command ready for delegation.
type Target struct {
	// Path is the resolved executable.
	Path string
	// Argv is forwarded exactly as received, Argv[0] included.
	Argv []string
	Env  []string

	execFn ExecFunc
}

// Resolve locates argv[0] the way a shell would: through PATH unless the
// name contains a slash. argv itself is never modified.
func Resolve(argv []string, env []string) (*Target, error) {
	if len(argv) == 0 {
		return nil, &DelegationError{Code: ExitUsage, Err: ErrNoCommand}
	}

	path, err := exec.LookPath(argv[0])
	if err != nil && !errors.Is(err, exec.ErrDot) {
		return nil, classifyLookup(argv[0], err)
	}

	return &Target{
		Path:   path,
		Argv:   append([]string(nil), argv...),
		Env:    env,
		execFn: unix.Exec,
	}, nil
}

// WithExec returns a copy of t that delegates through fn.
func (t *Target) WithExec(fn ExecFunc) *Target {
	cp := *t
	cp.execFn = fn
	return &cp
}

// Exec is the terminal delegation. It never returns on success; the
// process keeps its PID, open descriptors and standard streams.
// Any returned error is a *DelegationError.
func (t *Target) Exec() error {
	err := t.execFn(t.Path, t.Argv, t.Env)
	if err == nil {
		// Only reachable with a substitute ExecFunc.
		return nil
	}
	return classifyExec(t.Argv[0], err)
}

func classifyLookup(name string, err error) error {
	switch {
	case errors.Is(err, exec.ErrNotFound), errors.Is(err, fs.ErrNotExist):
		return &DelegationError{Command: name, Code: ExitNotFound, Err: fmt.Errorf("%w: %v", ErrNotFound, err)}
	case errors.Is(err, fs.ErrPermission):
		return &DelegationError{Command: name, Code: ExitNotExecutable, Err: fmt.Errorf("%w: %v", ErrNotExecutable, err)}
	default:
		return &DelegationError{Command: name, Code: ExitNotExecutable, Err: fmt.Errorf("%w: %v", ErrNotExecutable, err)}
	}
}

func classifyExec(name string, err error) error {
	var errno syscall.Errno
	if errors.As(err, &errno) && errno == syscall.ENOENT {
		return &DelegationError{Command: name, Code: ExitNotFound, Err: fmt.Errorf("%w: %v", ErrNotFound, err)}
	}
	return &DelegationError{Command: name, Code: ExitNotExecutable, Err: fmt.Errorf("%w: %v", ErrNotExecutable, err)}
}
