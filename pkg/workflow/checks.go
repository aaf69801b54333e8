package workflow

import (
	"github.com/madgeek-arc/resource-catalogue/pkg/auth"
	"github.com/madgeek-arc/resource-catalogue/pkg/registry"
)

// BlockResourceDeletion rejects deletion of a published record: its public
// mirror must be removed first through the admin path.
func BlockResourceDeletion(published bool) error {
	if published {
		return registry.Validationf("the resource is published and cannot be deleted; remove its public projection first")
	}
	return nil
}

// BlockDirectMutation rejects any direct update of a published record.
func BlockDirectMutation(published bool) error {
	if published {
		return registry.Validationf("you cannot directly update a public resource")
	}
	return nil
}

// CheckCatalogueIDConsistency verifies that the catalogue declared on a
// payload matches the catalogue the operation targets. An empty declared
// catalogue is filled in by the caller, not rejected here.
func CheckCatalogueIDConsistency(declared, target string) error {
	if declared != "" && declared != target {
		return registry.Validationf("catalogue id mismatch: payload declares %q, operation targets %q", declared, target)
	}
	return nil
}

// CheckRelatedResourceIDsConsistency verifies that a sub-resource's
// declared relations reference known ids. The exists predicate resolves an
// id against the parent catalogue's records.
func CheckRelatedResourceIDsConsistency(relations []string, exists func(id string) bool) error {
	for _, id := range relations {
		if id == "" {
			continue
		}
		if !exists(id) {
			return registry.Validationf("related resource %q does not exist in the catalogue", id)
		}
	}
	return nil
}

// SuspensionValidation checks that toggling the suspended flag is legal.
// The suspended state of the owning provider constrains unsuspension: a
// resource cannot be unsuspended while its provider remains suspended,
// unless the caller is a catalogue admin acting on the provider itself.
func SuspensionValidation(u auth.User, currentlySuspended, target, providerSuspended bool) error {
	if target == currentlySuspended {
		// Idempotent: the second suspend (or unsuspend) is a no-op.
		return nil
	}
	if !target && providerSuspended && !u.IsAdmin() {
		return registry.Validationf("cannot unsuspend the resource while its provider is suspended")
	}
	return nil
}

// ActivationEntry builds the logging entry for an activate or deactivate
// transition.
func ActivationEntry(u auth.User, active bool) registry.LoggingInfo {
	action := registry.ActionDeactivated
	if active {
		action = registry.ActionActivated
	}
	return NewLoggingInfo(u, registry.LogUpdate, action, "")
}
