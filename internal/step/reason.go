package step

import (
	"fmt"
	"syscall"

	"golang.org/x/sys/unix"
)

// ExitReason describes why a step terminated
type ExitReason string

const (
	ReasonSuccess     ExitReason = "success"      // Exit code 0
	ReasonError       ExitReason = "error"        // Exit code != 0
	ReasonSignal      ExitReason = "signal"       // Killed by signal
	ReasonStartFailed ExitReason = "start_failed" // Never ran: not found, not executable, bad config
	ReasonSkipped     ExitReason = "skipped"      // Disabled in config
)

// FromWaitStatus classifies a finished process. Signalled processes get the
// shell's 128+N exit code so reports read the same as `sh` would print.
func FromWaitStatus(ws syscall.WaitStatus) (ExitReason, int, string) {
	if ws.Signaled() {
		sig := ws.Signal()
		return ReasonSignal, 128 + int(sig), SignalName(sig)
	}

	code := ws.ExitStatus()
	if code == 0 {
		return ReasonSuccess, 0, ""
	}
	return ReasonError, code, ""
}

// SignalName returns the signal name for a signal number
func SignalName(sig syscall.Signal) string {
	if name := unix.SignalName(sig); name != "" {
		return name
	}
	return fmt.Sprintf("SIG%d", int(sig))
}

// IsFailure reports whether the reason represents a step that did not succeed.
// Skipped steps are not failures.
func (r ExitReason) IsFailure() bool {
	return r == ReasonError || r == ReasonSignal || r == ReasonStartFailed
}
