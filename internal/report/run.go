package report

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/psantana5/entrypoint/internal/step"
	"gopkg.in/yaml.v3"
)

// Run is the record of one container start: what ran, how it ended, and
// what the process was about to become.
type Run struct {
	ID        string        `json:"id" yaml:"id"`
	StartedAt time.Time     `json:"started_at" yaml:"started_at"`
	Host      Host          `json:"host" yaml:"host"`
	Steps     []step.Result `json:"steps" yaml:"steps"`
	Command   []string      `json:"command" yaml:"command"`
	Resolved  string        `json:"resolved,omitempty" yaml:"resolved,omitempty"`
	State     string        `json:"state" yaml:"state"`
	Error     string        `json:"error,omitempty" yaml:"error,omitempty"`
}

// NewRun starts a run record for the given delegated command.
func NewRun(command []string, host Host) *Run {
	return &Run{
		ID:        uuid.NewString(),
		StartedAt: time.Now(),
		Host:      host,
		Steps:     []step.Result{},
		Command:   append([]string(nil), command...),
	}
}

// AddStep appends a finished step.
func (r *Run) AddStep(res step.Result) {
	r.Steps = append(r.Steps, res)
}

// Failed returns the steps that did not succeed.
func (r *Run) Failed() []step.Result {
	var out []step.Result
	for _, s := range r.Steps {
		if s.Reason.IsFailure() {
			out = append(out, s)
		}
	}
	return out
}

// WriteFile writes the run as YAML when path ends in .yaml or .yml and as
// JSON otherwise. The file is replaced atomically.
func (r *Run) WriteFile(path string) error {
	var (
		data []byte
		err  error
	)
	if isYAML(path) {
		data, err = yaml.Marshal(r)
	} else {
		data, err = json.MarshalIndent(r, "", "  ")
	}
	if err != nil {
		return fmt.Errorf("encoding report: %w", err)
	}
	return writeAtomic(path, data)
}

// ReadFile loads a run written by WriteFile.
func ReadFile(path string) (*Run, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading report %s: %w", path, err)
	}

	var r Run
	if isYAML(path) {
		err = yaml.Unmarshal(data, &r)
	} else {
		err = json.Unmarshal(data, &r)
	}
	if err != nil {
		return nil, fmt.Errorf("decoding report %s: %w", path, err)
	}
	return &r, nil
}

func isYAML(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	return ext == ".yaml" || ext == ".yml"
}

func writeAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating %s: %w", dir, err)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("writing %s: %w", tmpName, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("closing %s: %w", tmpName, err)
	}
	if err := os.Chmod(tmpName, 0o644); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("chmod %s: %w", tmpName, err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("renaming to %s: %w", path, err)
	}
	return nil
}
