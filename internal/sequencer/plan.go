package sequencer

import (
	"strings"

	"github.com/psantana5/entrypoint/internal/step"
)

// Policies shown in a plan.
const (
	PolicyDiscard = "discard"
	PolicySkip    = "skip"
	PolicyExec    = "exec"
)

// PlanEntry describes one stage without running it.
type PlanEntry struct {
	Order       int    `json:"order" yaml:"order"`
	Name        string `json:"name" yaml:"name"`
	Policy      string `json:"policy" yaml:"policy"`
	Description string `json:"description" yaml:"description"`
	Note        string `json:"note,omitempty" yaml:"note,omitempty"`
}

// Plan lists what Run would do for argv. The delegated command is resolved
// so a missing binary shows up before the container is started for real.
func (s *Sequencer) Plan(argv []string) []PlanEntry {
	entries := []PlanEntry{
		planStep(1, NameMigrate, s.Migrate),
		planStep(2, NameCollectStatic, s.CollectStatic),
	}

	last := PlanEntry{
		Order:       3,
		Name:        "handoff",
		Policy:      PolicyExec,
		Description: strings.Join(argv, " "),
	}
	if target, err := s.resolver()(argv, s.environ()); err != nil {
		last.Note = err.Error()
	} else {
		last.Note = target.Path
	}

	return append(entries, last)
}

func planStep(order int, name string, st step.Step) PlanEntry {
	if st == nil {
		return PlanEntry{Order: order, Name: name, Policy: PolicySkip, Description: "disabled"}
	}
	return PlanEntry{Order: order, Name: name, Policy: PolicyDiscard, Description: step.Describe(st)}
}
