package vocabulary

import (
	"fmt"

	"github.com/madgeek-arc/resource-catalogue/pkg/registry"
)

// StatusSet is the closed set of workflow statuses for one resource kind.
type StatusSet struct {
	Pending  string
	Approved string
	Rejected string
}

// Contains reports whether id is one of the set's statuses.
func (s StatusSet) Contains(id string) bool {
	return id == s.Pending || id == s.Approved || id == s.Rejected
}

// StatusesFor returns the status set of a kind. Provider and catalogue carry
// kind-specific status ids; every other kind shares the resource set.
func StatusesFor(k registry.Kind) StatusSet {
	switch k {
	case registry.KindProvider:
		return StatusSet{
			Pending:  "pending provider",
			Approved: "approved provider",
			Rejected: "rejected provider",
		}
	case registry.KindCatalogue:
		return StatusSet{
			Pending:  "pending catalogue",
			Approved: "approved catalogue",
			Rejected: "rejected catalogue",
		}
	default:
		return StatusSet{
			Pending:  "pending resource",
			Approved: "approved resource",
			Rejected: "rejected resource",
		}
	}
}

// TemplateStatuses is the status set for provider templates.
var TemplateStatuses = StatusSet{
	Pending:  "pending template",
	Approved: "approved template",
	Rejected: "rejected template",
}

// Defaults returns the built-in state vocabularies.
func Defaults() []Vocabulary {
	var terms []Vocabulary
	add := func(set StatusSet, typ string) {
		terms = append(terms,
			Vocabulary{ID: set.Pending, Name: set.Pending, Type: typ},
			Vocabulary{ID: set.Approved, Name: set.Approved, Type: typ},
			Vocabulary{ID: set.Rejected, Name: set.Rejected, Type: typ},
		)
	}
	add(StatusesFor(registry.KindProvider), registry.KindProvider.StateType())
	add(StatusesFor(registry.KindCatalogue), registry.KindCatalogue.StateType())
	add(StatusesFor(registry.KindService), registry.KindService.StateType())
	add(TemplateStatuses, registry.TemplateStateType)
	return terms
}

// ValidateKindStatuses verifies that every per-kind status set resolves to
// loaded vocabulary entries of the right type. Called once at startup.
func ValidateKindStatuses(r *Registry) error {
	for _, k := range registry.Kinds() {
		set := StatusesFor(k)
		for _, id := range []string{set.Pending, set.Approved, set.Rejected} {
			if err := r.ValidateStatus(id, k.StateType()); err != nil {
				return fmt.Errorf("kind %s: %w", k, err)
			}
		}
	}
	for _, id := range []string{TemplateStatuses.Pending, TemplateStatuses.Approved, TemplateStatuses.Rejected} {
		if err := r.ValidateStatus(id, registry.TemplateStateType); err != nil {
			return fmt.Errorf("template statuses: %w", err)
		}
	}
	return nil
}
