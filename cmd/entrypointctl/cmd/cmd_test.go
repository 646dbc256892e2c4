package cmd

import (
	"bytes"
	"encoding/json"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/psantana5/entrypoint/internal/handoff"
	"github.com/psantana5/entrypoint/internal/report"
	"github.com/psantana5/entrypoint/internal/sequencer"
	"github.com/psantana5/entrypoint/internal/step"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func samplePlan() []sequencer.PlanEntry {
	return []sequencer.PlanEntry{
		{Order: 1, Name: "migrate", Policy: sequencer.PolicyDiscard, Description: "python manage.py migrate --noinput"},
		{Order: 2, Name: "collectstatic", Policy: sequencer.PolicySkip, Description: "disabled"},
		{Order: 3, Name: "handoff", Policy: sequencer.PolicyExec, Description: "gunicorn app.wsgi", Note: "/usr/bin/gunicorn"},
	}
}

func TestWritePlan(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, writePlan(&buf, samplePlan(), "table"))
	out := buf.String()
	assert.Contains(t, out, "python manage.py migrate --noinput")
	assert.Contains(t, out, "/usr/bin/gunicorn")

	buf.Reset()
	require.NoError(t, writePlan(&buf, samplePlan(), "json"))
	var decoded []sequencer.PlanEntry
	require.NoError(t, json.Unmarshal(buf.Bytes(), &decoded))
	assert.Equal(t, samplePlan(), decoded)

	buf.Reset()
	require.NoError(t, writePlan(&buf, samplePlan(), "yaml"))
	decoded = nil
	require.NoError(t, yaml.Unmarshal(buf.Bytes(), &decoded))
	assert.Equal(t, samplePlan(), decoded)

	assert.Error(t, writePlan(&buf, samplePlan(), "xml"))
}

func TestWriteReport(t *testing.T) {
	run := report.NewRun([]string{"gunicorn", "app.wsgi"}, report.Host{Hostname: "web-1", CPUs: 2})
	run.AddStep(step.Result{Name: "migrate", ExitCode: 1, Reason: step.ReasonError, Duration: 2 * time.Second})
	run.AddStep(step.Skipped("collectstatic"))
	run.State = string(sequencer.StateReplaced)

	var buf bytes.Buffer
	require.NoError(t, writeReport(&buf, run, "table"))
	out := buf.String()
	assert.Contains(t, out, run.ID)
	assert.Contains(t, out, "gunicorn app.wsgi")
	assert.Contains(t, out, "replaced")
	assert.Contains(t, out, "1 of 2 setup steps failed")

	buf.Reset()
	require.NoError(t, writeReport(&buf, run, "json"))
	assert.Contains(t, buf.String(), `"state": "replaced"`)
}

func TestReportCommand(t *testing.T) {
	path := filepath.Join(t.TempDir(), "run.yaml")
	run := report.NewRun([]string{"serve"}, report.Host{})
	run.State = string(sequencer.StateDelegationFailed)
	run.Error = "serve: command not found"
	require.NoError(t, run.WriteFile(path))

	var buf bytes.Buffer
	rootCmd.SetOut(&buf)
	rootCmd.SetArgs([]string{"report", path, "-o", "table"})
	t.Cleanup(func() {
		rootCmd.SetOut(nil)
		rootCmd.SetArgs(nil)
	})

	require.NoError(t, rootCmd.Execute())
	assert.Contains(t, buf.String(), "delegation_failed")
	assert.Contains(t, buf.String(), "No steps recorded")
}

func TestDelegationExit(t *testing.T) {
	assert.NoError(t, delegationExit(nil))

	_, resolveErr := handoff.Resolve([]string{"definitely-not-a-real-binary-xyz"}, nil)
	err := delegationExit(resolveErr)

	var ee *exitError
	require.True(t, errors.As(err, &ee))
	assert.Equal(t, handoff.ExitNotFound, ee.code)
	assert.ErrorIs(t, err, handoff.ErrNotFound)
}
