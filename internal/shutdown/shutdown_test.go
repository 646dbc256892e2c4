package shutdown

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRunIsLIFO(t *testing.T) {
	m := New(time.Second, nil)
	var order []string

	m.Register("report", func(context.Context) error { order = append(order, "report"); return nil })
	m.Register("metrics", func(context.Context) error { order = append(order, "metrics"); return nil })
	m.Register("tracing", func(context.Context) error { order = append(order, "tracing"); return nil })

	require.NoError(t, m.Run(context.Background()))
	assert.Equal(t, []string{"tracing", "metrics", "report"}, order)
}

func TestRunContinuesPastErrors(t *testing.T) {
	m := New(time.Second, nil)
	ran := 0

	m.Register("first", func(context.Context) error { ran++; return nil })
	m.Register("broken", func(context.Context) error { ran++; return errors.New("disk full") })

	err := m.Run(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "broken: disk full")
	assert.Equal(t, 2, ran)
}

func TestRunOnlyOnce(t *testing.T) {
	m := New(time.Second, nil)
	calls := 0
	m.Register("x", func(context.Context) error { calls++; return nil })

	_ = m.Run(context.Background())
	_ = m.Run(context.Background())
	assert.Equal(t, 1, calls)
}

func TestRunAppliesTimeout(t *testing.T) {
	m := New(10*time.Millisecond, nil)
	m.Register("slow", func(ctx context.Context) error {
		<-ctx.Done()
		return ctx.Err()
	})

	err := m.Run(context.Background())
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

type closer struct{ closed bool }

func (c *closer) Close() error { c.closed = true; return nil }

func TestCloseResource(t *testing.T) {
	c := &closer{}
	require.NoError(t, CloseResource(c)(context.Background()))
	assert.True(t, c.closed)
}
