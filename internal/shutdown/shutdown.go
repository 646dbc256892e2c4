// Package shutdown runs the entrypoint's own cleanup just before the
// process image is replaced.
package shutdown

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/psantana5/entrypoint/internal/logging"
)

// Func is a single cleanup function.
type Func func(context.Context) error

type named struct {
	name string
	fn   Func
}

// Manager holds cleanup functions that must run before the handoff.
// After exec nothing deferred in this process will ever run, so anything
// buffered (reports, metrics, spans) must be flushed here.
type Manager struct {
	mu      sync.Mutex
	funcs   []named
	timeout time.Duration
	once    sync.Once
	log     *logging.Logger
}

// New creates a new shutdown manager
func New(timeout time.Duration, log *logging.Logger) *Manager {
	if log == nil {
		log = logging.Nop()
	}
	return &Manager{
		timeout: timeout,
		log:     log,
	}
}

// Register adds a cleanup function.
// Functions are called in reverse order (LIFO)
func (m *Manager) Register(name string, fn Func) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.funcs = append(m.funcs, named{name: name, fn: fn})
}

// Run executes all registered functions once. Errors are logged and
// returned joined; none of them stops the remaining functions.
func (m *Manager) Run(ctx context.Context) error {
	var errs []error
	m.once.Do(func() {
		m.mu.Lock()
		defer m.mu.Unlock()

		ctx, cancel := context.WithTimeout(ctx, m.timeout)
		defer cancel()

		for i := len(m.funcs) - 1; i >= 0; i-- {
			f := m.funcs[i]
			if err := f.fn(ctx); err != nil {
				m.log.Warn(fmt.Sprintf("Cleanup %s failed: %v", f.name, err))
				errs = append(errs, fmt.Errorf("%s: %w", f.name, err))
			}
		}
	})
	return errors.Join(errs...)
}

// CloseResource creates a cleanup function for io.Closer
func CloseResource(closer interface{ Close() error }) Func {
	return func(ctx context.Context) error {
		return closer.Close()
	}
}
