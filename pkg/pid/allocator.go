// Package pid allocates resource ids and persistent identifiers and
// enforces their uniqueness across the installation.
package pid

import (
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/madgeek-arc/resource-catalogue/pkg/registry"
	"github.com/madgeek-arc/resource-catalogue/pkg/store"
)

// pidPrefixes maps each kind to its PID namespace prefix.
var pidPrefixes = map[registry.Kind]string{
	registry.KindCatalogue:                      "cat",
	registry.KindProvider:                       "prv",
	registry.KindService:                        "srv",
	registry.KindTrainingResource:               "trn",
	registry.KindInteroperabilityRecord:         "gdl",
	registry.KindDatasource:                     "dts",
	registry.KindHelpdesk:                       "hdk",
	registry.KindMonitoring:                     "mon",
	registry.KindResourceInteroperabilityRecord: "rir",
	registry.KindConfigurationTemplateInstance:  "cti",
	registry.KindAdapter:                        "adp",
}

// Allocator generates resource ids and PIDs, checking collisions against
// the resource store.
type Allocator struct {
	store *store.ResourceStore
}

// NewAllocator creates an Allocator backed by the given store.
func NewAllocator(s *store.ResourceStore) *Allocator {
	return &Allocator{store: s}
}

// ResourceID derives a stable id for a new resource. Resources owned by a
// provider are namespaced under it ("provider.name-slug"); top-level
// resources use the slug alone. Falls back to a random suffix when the
// name yields an empty slug.
func ResourceID(owner, name string) string {
	s := slug(name)
	if s == "" {
		s = uuid.New().String()[:8]
	}
	if owner == "" {
		return s
	}
	return owner + "." + s
}

// NewPID generates a fresh PID for a kind, retrying on the unlikely event
// of a collision with an existing record.
func (a *Allocator) NewPID(kind registry.Kind) (string, error) {
	prefix, ok := pidPrefixes[kind]
	if !ok {
		return "", fmt.Errorf("no PID prefix registered for kind %s", kind)
	}
	for attempt := 0; attempt < 5; attempt++ {
		candidate := fmt.Sprintf("%s/%s", prefix, uuid.New().String()[:13])
		existing, err := a.store.FindByPID(candidate)
		if err != nil {
			return "", fmt.Errorf("check PID collision: %w", err)
		}
		if len(existing) == 0 {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("could not allocate a unique PID for kind %s", kind)
}

// ValidateUnique verifies that a caller-supplied PID is not carried by any
// stored record other than selfID. Public projections of the same resource
// keep its PID and are not collisions.
func (a *Allocator) ValidateUnique(pidValue, selfID string) error {
	if pidValue == "" {
		return registry.Validationf("resource carries no PID")
	}
	records, err := a.store.FindByPID(pidValue)
	if err != nil {
		return fmt.Errorf("check PID uniqueness: %w", err)
	}
	for _, rec := range records {
		if rec.ResourceID != selfID && !strings.HasSuffix(rec.ResourceID, "."+selfID) {
			return registry.Validationf("PID %q is already assigned to resource %q", pidValue, rec.ResourceID)
		}
	}
	return nil
}

// slug lowercases a name and collapses every non-alphanumeric run to a
// single underscore.
func slug(name string) string {
	var b strings.Builder
	lastUnderscore := true
	for _, r := range strings.ToLower(strings.TrimSpace(name)) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
			lastUnderscore = false
		default:
			if !lastUnderscore {
				b.WriteByte('_')
				lastUnderscore = true
			}
		}
	}
	return strings.TrimSuffix(b.String(), "_")
}
