package workflow

import "github.com/madgeek-arc/resource-catalogue/pkg/registry"

// DetermineAuditState classifies a resource's audit standing from its
// logging list. The list is assumed sorted ascending by date.
//
// A resource is Valid when its most recent audit entry recorded a valid
// outcome. An invalid audit leaves the resource InvalidAndNotUpdated until
// an update entry dated after the audit appears, which moves it to
// InvalidAndUpdated. Resources with no audit entries are NotAudited.
func DetermineAuditState(list []registry.LoggingInfo) registry.AuditState {
	latestAudit := registry.LatestOf(list, registry.LogAudit)
	if latestAudit == nil {
		return registry.NotAudited
	}
	if latestAudit.ActionType == registry.ActionValid {
		return registry.Valid
	}

	// Latest audit is invalid: look for an update dated after it.
	for i := len(list) - 1; i >= 0; i-- {
		if list[i].Type == registry.LogAudit {
			break
		}
		if list[i].Type == registry.LogUpdate {
			return registry.InvalidAndUpdated
		}
	}
	return registry.InvalidAndNotUpdated
}
