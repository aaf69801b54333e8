package workflow

import (
	"github.com/madgeek-arc/resource-catalogue/pkg/registry"
	"github.com/madgeek-arc/resource-catalogue/pkg/vocabulary"
)

// transition is one allowed status move. The from/to fields are roles
// within a kind's status set rather than literal vocabulary ids, so a
// single rule table serves every resource kind.
type transition struct {
	from statusRole
	to   statusRole
}

type statusRole int

const (
	rolePending statusRole = iota
	roleApproved
	roleRejected
)

// allowedTransitions is the status state machine shared by all kinds:
// onboarding approval and rejection, re-review of approved resources, and
// resubmission of rejected ones. There are no terminal states.
var allowedTransitions = []transition{
	{rolePending, roleApproved},
	{rolePending, roleRejected},
	{roleApproved, roleRejected},
	{roleRejected, rolePending},
}

// Machine validates status transitions for one resource kind against its
// vocabulary-backed status set.
type Machine struct {
	kind  registry.Kind
	set   vocabulary.StatusSet
	vocab *vocabulary.Registry
}

// NewMachine builds the state machine for a kind.
func NewMachine(kind registry.Kind, vocab *vocabulary.Registry) *Machine {
	return &Machine{kind: kind, set: vocabulary.StatusesFor(kind), vocab: vocab}
}

// StatusSet returns the kind's status set.
func (m *Machine) StatusSet() vocabulary.StatusSet { return m.set }

// ValidateStatus checks that id belongs to the kind's state vocabulary.
func (m *Machine) ValidateStatus(id string) error {
	if err := m.vocab.ValidateStatus(id, m.kind.StateType()); err != nil {
		return err
	}
	if !m.set.Contains(id) {
		return registry.Validationf("status %q is not a workflow status of kind %s", id, m.kind)
	}
	return nil
}

// ValidateTransition checks that moving from one status to another is
// legal. A same-status move is a no-op and allowed.
func (m *Machine) ValidateTransition(from, to string) error {
	if err := m.ValidateStatus(to); err != nil {
		return err
	}
	if from == to {
		return nil
	}
	fromRole, ok := m.role(from)
	if !ok {
		return registry.Validationf("current status %q is not a workflow status of kind %s", from, m.kind)
	}
	toRole, _ := m.role(to)
	for _, t := range allowedTransitions {
		if t.from == fromRole && t.to == toRole {
			return nil
		}
	}
	return registry.Conflictf("no transition defined from %q to %q", from, to)
}

func (m *Machine) role(id string) (statusRole, bool) {
	switch id {
	case m.set.Pending:
		return rolePending, true
	case m.set.Approved:
		return roleApproved, true
	case m.set.Rejected:
		return roleRejected, true
	}
	return 0, false
}
