package step

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"
	"syscall"
)

// CommandStep runs an external tool with the entrypoint's own standard
// streams and environment.
type CommandStep struct {
	name string
	argv []string
	dir  string

	// Stdio defaults to the process's own streams when nil.
	Stdin  io.Reader
	Stdout io.Writer
	Stderr io.Writer
}

// NewCommandStep creates a step running argv[0] with argv[1:].
// dir is the working directory; empty means inherit.
func NewCommandStep(name string, argv []string, dir string) *CommandStep {
	return &CommandStep{
		name: name,
		argv: append([]string(nil), argv...),
		dir:  dir,
	}
}

func (s *CommandStep) Name() string { return s.name }

func (s *CommandStep) Describe() string {
	if len(s.argv) == 0 {
		return "(no command)"
	}
	return strings.Join(s.argv, " ")
}

// Run spawns the tool and waits for it. It never returns an error: every
// outcome, including failure to start, is expressed in the Result.
func (s *CommandStep) Run(ctx context.Context) Result {
	res := Begin(s.name, s.Describe())

	if len(s.argv) == 0 {
		res.ExitCode = -1
		res.Reason = ReasonStartFailed
		res.Error = "no command configured"
		return res.Finish()
	}

	cmd := exec.CommandContext(ctx, s.argv[0], s.argv[1:]...)
	cmd.Dir = s.dir
	cmd.Stdin = orReader(s.Stdin, os.Stdin)
	cmd.Stdout = orWriter(s.Stdout, os.Stdout)
	cmd.Stderr = orWriter(s.Stderr, os.Stderr)

	if err := cmd.Start(); err != nil {
		res.ExitCode = -1
		res.Reason = ReasonStartFailed
		res.Error = fmt.Sprintf("failed to start: %v", err)
		return res.Finish()
	}
	res.PID = cmd.Process.Pid

	err := cmd.Wait()
	if err == nil {
		res.Reason = ReasonSuccess
		return res.Finish()
	}

	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		if ws, ok := exitErr.Sys().(syscall.WaitStatus); ok {
			res.Reason, res.ExitCode, res.Signal = FromWaitStatus(ws)
		} else {
			res.Reason = ReasonError
			res.ExitCode = exitErr.ExitCode()
		}
		return res.Finish()
	}

	res.ExitCode = -1
	res.Reason = ReasonError
	res.Error = fmt.Sprintf("wait: %v", err)
	return res.Finish()
}

func orReader(r, def io.Reader) io.Reader {
	if r != nil {
		return r
	}
	return def
}

func orWriter(w, def io.Writer) io.Writer {
	if w != nil {
		return w
	}
	return def
}
