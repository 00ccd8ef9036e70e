// Package turn drives one campaign turn through its phase machine: context
// assembly, narrator proposal, mechanics, final narration, validation, and
// persistence.
package turn

import "fmt"

// Phase is one stage of the turn lifecycle.
type Phase string

const (
	PhaseInitialized       Phase = "INITIALIZED"
	PhaseContextBuilt      Phase = "CONTEXT_BUILT"
	PhaseProposalReceived  Phase = "PROPOSAL_RECEIVED"
	PhaseMechanicsExecuted Phase = "MECHANICS_EXECUTED"
	PhaseFinalResponse     Phase = "FINAL_RESPONSE"
	PhaseValidated         Phase = "VALIDATED"
	PhasePersisted         Phase = "PERSISTED"
	PhaseFailed            Phase = "FAILED"
)

// nextPhase encodes the single legal forward transition from each phase.
var nextPhase = map[Phase]Phase{
	PhaseInitialized:       PhaseContextBuilt,
	PhaseContextBuilt:      PhaseProposalReceived,
	PhaseProposalReceived:  PhaseMechanicsExecuted,
	PhaseMechanicsExecuted: PhaseFinalResponse,
	PhaseFinalResponse:     PhaseValidated,
	PhaseValidated:         PhasePersisted,
}

// Terminal reports whether the phase ends the turn.
func (p Phase) Terminal() bool {
	return p == PhasePersisted || p == PhaseFailed
}

// Machine enforces the linear turn lifecycle. Phases advance one step at a
// time; any non-terminal phase may transition to FAILED; terminal phases
// never transition.
type Machine struct {
	phase Phase
}

// NewMachine starts a machine in INITIALIZED.
func NewMachine() *Machine {
	return &Machine{phase: PhaseInitialized}
}

// Phase returns the current phase.
func (m *Machine) Phase() Phase {
	return m.phase
}

// Advance moves to the next phase, rejecting skips, repeats, and moves out
// of a terminal phase.
func (m *Machine) Advance(next Phase) error {
	if m.phase.Terminal() {
		return fmt.Errorf("turn already ended in %s", m.phase)
	}
	if nextPhase[m.phase] != next {
		return fmt.Errorf("illegal phase transition %s -> %s", m.phase, next)
	}
	m.phase = next
	return nil
}

// Fail moves any non-terminal phase to FAILED.
func (m *Machine) Fail() error {
	if m.phase.Terminal() {
		return fmt.Errorf("turn already ended in %s", m.phase)
	}
	m.phase = PhaseFailed
	return nil
}
