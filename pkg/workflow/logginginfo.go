// Package workflow implements the shared mechanics of the resource
// lifecycle: audit-trail construction, audit-state determination, the
// status state machine, suspension and deletion legality checks, and
// cascade reporting.
package workflow

import (
	"strconv"
	"time"

	"github.com/madgeek-arc/resource-catalogue/pkg/auth"
	"github.com/madgeek-arc/resource-catalogue/pkg/registry"
)

// NowMillis returns the current time as an epoch-millis string, the date
// format carried by LoggingInfo entries and bundle metadata.
func NowMillis() string {
	return strconv.FormatInt(time.Now().UnixMilli(), 10)
}

// NewLoggingInfo builds an audit entry stamped with the current time and
// the acting user. A zero user is recorded as the system actor.
func NewLoggingInfo(u auth.User, t registry.LoggingType, a registry.ActionType, comment string) registry.LoggingInfo {
	if u.IsZero() {
		u = auth.System
	}
	return registry.LoggingInfo{
		Type:         t,
		ActionType:   a,
		Date:         NowMillis(),
		UserEmail:    u.Email,
		UserFullName: u.FullName,
		Comment:      comment,
	}
}

// EnsureLoggingInfo returns the bundle's logging list, synthesizing a
// single registration entry from its metadata when the list is empty.
// Legacy records predate the audit trail and carry only metadata.
func EnsureLoggingInfo[T registry.Payload](b *registry.Bundle[T]) []registry.LoggingInfo {
	if len(b.LoggingInfo) > 0 {
		return b.LoggingInfo
	}
	entry := registry.LoggingInfo{
		Type:       registry.LogOnboard,
		ActionType: registry.ActionRegistered,
		Date:       NowMillis(),
	}
	if b.Metadata != nil {
		entry.UserFullName = b.Metadata.RegisteredBy
		if b.Metadata.RegisteredAt != "" {
			entry.Date = b.Metadata.RegisteredAt
		}
	}
	return []registry.LoggingInfo{entry}
}

// Stamp appends an entry to the bundle's audit trail, restores the date
// ordering invariant, and refreshes the cached latest-entry pointers.
func Stamp[T registry.Payload](b *registry.Bundle[T], entry registry.LoggingInfo) {
	b.LoggingInfo = append(EnsureLoggingInfo(b), entry)
	registry.SortLoggingInfo(b.LoggingInfo)
	RefreshLatest(b)
}

// RefreshLatest recomputes the latest onboarding, update, and audit entry
// pointers from the (sorted) logging list.
func RefreshLatest[T registry.Payload](b *registry.Bundle[T]) {
	b.LatestOnboardingInfo = registry.LatestOf(b.LoggingInfo, registry.LogOnboard)
	b.LatestUpdateInfo = registry.LatestOf(b.LoggingInfo, registry.LogUpdate)
	b.LatestAuditInfo = registry.LatestOf(b.LoggingInfo, registry.LogAudit)
}
