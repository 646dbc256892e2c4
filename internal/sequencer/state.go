package sequencer

// State is a position in the bootstrap sequence.
type State string

const (
	StateStart              State = "start"
	StateAfterMigrate       State = "after_migrate"
	StateAfterCollectStatic State = "after_collectstatic"
	StateReplaced           State = "replaced"
	StateDelegationFailed   State = "delegation_failed"
)

// Setup step names.
const (
	NameMigrate       = "migrate"
	NameCollectStatic = "collectstatic"
)

// IsTerminal reports whether no further transition can follow s.
func (s State) IsTerminal() bool {
	return s == StateReplaced || s == StateDelegationFailed
}
