package report

import (
	"bytes"
	"fmt"
	"io"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/common/expfmt"
	"github.com/psantana5/entrypoint/internal/step"
)

// Metrics are boring gauges and counters, one sample per container start.
// They are written once as a textfile for node_exporter, never served:
// nothing in this process outlives the handoff.
type Metrics struct {
	registry *prometheus.Registry

	stepExitCode *prometheus.GaugeVec
	stepDuration *prometheus.GaugeVec
	stepsTotal   *prometheus.CounterVec
	state        *prometheus.GaugeVec
	startTime    prometheus.Gauge
}

// NewMetrics creates a metrics set on its own registry.
func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		stepExitCode: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "entrypoint_step_exit_code",
			Help: "Exit code of the last run of each setup step (-1 if it never started).",
		}, []string{"step"}),
		stepDuration: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "entrypoint_step_duration_seconds",
			Help: "Wall time of the last run of each setup step.",
		}, []string{"step"}),
		stepsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "entrypoint_steps_total",
			Help: "Setup steps by outcome.",
		}, []string{"step", "reason"}),
		state: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "entrypoint_state",
			Help: "Current bootstrap state (1 for the active state).",
		}, []string{"state"}),
		startTime: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "entrypoint_start_time_seconds",
			Help: "Unix time the entrypoint started.",
		}),
	}

	m.registry.MustRegister(m.stepExitCode, m.stepDuration, m.stepsTotal, m.state, m.startTime)
	m.startTime.Set(float64(time.Now().Unix()))
	return m
}

// Record updates all step series from a single result.
func (m *Metrics) Record(res step.Result) {
	m.stepExitCode.WithLabelValues(res.Name).Set(float64(res.ExitCode))
	m.stepDuration.WithLabelValues(res.Name).Set(res.Duration.Seconds())
	m.stepsTotal.WithLabelValues(res.Name, string(res.Reason)).Inc()
}

// SetState marks state as the only active state.
func (m *Metrics) SetState(state string) {
	m.state.Reset()
	m.state.WithLabelValues(state).Set(1)
}

// Encode writes the text exposition format to w.
func (m *Metrics) Encode(w io.Writer) error {
	families, err := m.registry.Gather()
	if err != nil {
		return fmt.Errorf("gathering metrics: %w", err)
	}

	enc := expfmt.NewEncoder(w, expfmt.NewFormat(expfmt.TypeTextPlain))
	for _, mf := range families {
		if err := enc.Encode(mf); err != nil {
			return fmt.Errorf("encoding %s: %w", mf.GetName(), err)
		}
	}
	return nil
}

// WriteTextfile atomically replaces path with the current metrics.
func (m *Metrics) WriteTextfile(path string) error {
	var buf bytes.Buffer
	if err := m.Encode(&buf); err != nil {
		return err
	}
	return writeAtomic(path, buf.Bytes())
}
