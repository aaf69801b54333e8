// Package vocabulary resolves status strings against a typed controlled
// vocabulary. Workflow statuses are not free-form enum literals: each one is
// a vocabulary entry whose type must match the resource kind's state type,
// and the per-kind status sets are checked against the loaded table at
// startup so that an inconsistent deployment fails fast.
package vocabulary

import (
	"fmt"

	"github.com/madgeek-arc/resource-catalogue/pkg/registry"
)

// Vocabulary is one controlled-vocabulary term.
type Vocabulary struct {
	ID       string            `json:"id"`
	Name     string            `json:"name"`
	Type     string            `json:"type"`
	ParentID string            `json:"parentId,omitempty"`
	Extras   map[string]string `json:"extras,omitempty"`
}

// Registry is an immutable, in-memory vocabulary table indexed by id and type.
type Registry struct {
	byID   map[string]Vocabulary
	byType map[string][]Vocabulary
}

// New builds a Registry from the given terms. Duplicate ids are rejected.
func New(terms []Vocabulary) (*Registry, error) {
	r := &Registry{
		byID:   make(map[string]Vocabulary, len(terms)),
		byType: make(map[string][]Vocabulary),
	}
	for _, v := range terms {
		if _, ok := r.byID[v.ID]; ok {
			return nil, fmt.Errorf("duplicate vocabulary id %q", v.ID)
		}
		r.byID[v.ID] = v
		r.byType[v.Type] = append(r.byType[v.Type], v)
	}
	return r, nil
}

// Get returns the term with the given id.
func (r *Registry) Get(id string) (Vocabulary, bool) {
	v, ok := r.byID[id]
	return v, ok
}

// GetOrErr returns the term with the given id or a NOT_FOUND error.
func (r *Registry) GetOrErr(id string) (Vocabulary, error) {
	v, ok := r.byID[id]
	if !ok {
		return Vocabulary{}, registry.NotFoundf("vocabulary %q not found", id)
	}
	return v, nil
}

// ByType returns every term of the given type.
func (r *Registry) ByType(t string) []Vocabulary {
	return r.byType[t]
}

// ValidateStatus checks that id is a known term of the expected state type.
func (r *Registry) ValidateStatus(id, stateType string) error {
	v, ok := r.byID[id]
	if !ok {
		return registry.Validationf("status %q is not a known vocabulary entry", id)
	}
	if v.Type != stateType {
		return registry.Validationf("status %q has vocabulary type %q, expected %q", id, v.Type, stateType)
	}
	return nil
}
