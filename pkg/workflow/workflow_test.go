package workflow

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/madgeek-arc/resource-catalogue/pkg/auth"
	"github.com/madgeek-arc/resource-catalogue/pkg/registry"
	"github.com/madgeek-arc/resource-catalogue/pkg/vocabulary"
)

func entry(t registry.LoggingType, a registry.ActionType, date string) registry.LoggingInfo {
	return registry.LoggingInfo{Type: t, ActionType: a, Date: date}
}

func TestDetermineAuditState(t *testing.T) {
	tests := []struct {
		name string
		list []registry.LoggingInfo
		want registry.AuditState
	}{
		{
			name: "no audit entries",
			list: []registry.LoggingInfo{
				entry(registry.LogOnboard, registry.ActionRegistered, "100"),
				entry(registry.LogUpdate, registry.ActionUpdated, "200"),
			},
			want: registry.NotAudited,
		},
		{
			name: "latest audit valid",
			list: []registry.LoggingInfo{
				entry(registry.LogOnboard, registry.ActionRegistered, "100"),
				entry(registry.LogAudit, registry.ActionInvalid, "200"),
				entry(registry.LogAudit, registry.ActionValid, "300"),
			},
			want: registry.Valid,
		},
		{
			name: "invalid without later update",
			list: []registry.LoggingInfo{
				entry(registry.LogUpdate, registry.ActionUpdated, "100"),
				entry(registry.LogAudit, registry.ActionInvalid, "200"),
			},
			want: registry.InvalidAndNotUpdated,
		},
		{
			name: "invalid then updated",
			list: []registry.LoggingInfo{
				entry(registry.LogAudit, registry.ActionInvalid, "200"),
				entry(registry.LogUpdate, registry.ActionUpdated, "300"),
			},
			want: registry.InvalidAndUpdated,
		},
		{
			name: "empty list",
			list: nil,
			want: registry.NotAudited,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, DetermineAuditState(tt.list))
		})
	}
}

func TestStamp_KeepsOrderAndLatestPointers(t *testing.T) {
	b := &registry.Bundle[*registry.Service]{
		Payload: &registry.Service{},
		LoggingInfo: []registry.LoggingInfo{
			entry(registry.LogOnboard, registry.ActionRegistered, "100"),
			entry(registry.LogUpdate, registry.ActionUpdated, "300"),
		},
	}

	// A backdated entry must slot into position, not land at the end.
	Stamp(b, entry(registry.LogAudit, registry.ActionValid, "200"))

	require.Len(t, b.LoggingInfo, 3)
	assert.Equal(t, "100", b.LoggingInfo[0].Date)
	assert.Equal(t, "200", b.LoggingInfo[1].Date)
	assert.Equal(t, "300", b.LoggingInfo[2].Date)

	require.NotNil(t, b.LatestOnboardingInfo)
	assert.Equal(t, "100", b.LatestOnboardingInfo.Date)
	require.NotNil(t, b.LatestUpdateInfo)
	assert.Equal(t, "300", b.LatestUpdateInfo.Date)
	require.NotNil(t, b.LatestAuditInfo)
	assert.Equal(t, "200", b.LatestAuditInfo.Date)
}

func TestEnsureLoggingInfo_SynthesizesFromMetadata(t *testing.T) {
	b := &registry.Bundle[*registry.Service]{
		Payload: &registry.Service{},
		Metadata: &registry.Metadata{
			RegisteredBy: "Alice",
			RegisteredAt: "12345",
		},
	}
	list := EnsureLoggingInfo(b)
	require.Len(t, list, 1)
	assert.Equal(t, registry.LogOnboard, list[0].Type)
	assert.Equal(t, registry.ActionRegistered, list[0].ActionType)
	assert.Equal(t, "Alice", list[0].UserFullName)
	assert.Equal(t, "12345", list[0].Date)
}

func TestNewLoggingInfo_ZeroUserIsSystem(t *testing.T) {
	e := NewLoggingInfo(auth.User{}, registry.LogMove, registry.ActionMoved, "relocated")
	assert.Equal(t, auth.System.Email, e.UserEmail)
	assert.Equal(t, "relocated", e.Comment)
}

func newTestMachine(t *testing.T, kind registry.Kind) *Machine {
	t.Helper()
	vocab, err := vocabulary.New(vocabulary.Defaults())
	require.NoError(t, err)
	return NewMachine(kind, vocab)
}

func TestMachine_ValidateTransition(t *testing.T) {
	m := newTestMachine(t, registry.KindProvider)
	set := m.StatusSet()

	assert.NoError(t, m.ValidateTransition(set.Pending, set.Approved))
	assert.NoError(t, m.ValidateTransition(set.Pending, set.Rejected))
	assert.NoError(t, m.ValidateTransition(set.Approved, set.Rejected))
	assert.NoError(t, m.ValidateTransition(set.Rejected, set.Pending))

	// Same-status moves are no-ops.
	assert.NoError(t, m.ValidateTransition(set.Approved, set.Approved))

	err := m.ValidateTransition(set.Approved, set.Pending)
	assert.True(t, registry.IsCode(err, registry.CodeConflict), "got %v", err)

	err = m.ValidateTransition(set.Rejected, set.Approved)
	assert.True(t, registry.IsCode(err, registry.CodeConflict), "got %v", err)
}

func TestMachine_ValidateStatus(t *testing.T) {
	m := newTestMachine(t, registry.KindService)

	assert.NoError(t, m.ValidateStatus("approved resource"))

	// Known vocabulary entry of the wrong state type.
	err := m.ValidateStatus("approved provider")
	assert.True(t, registry.IsCode(err, registry.CodeValidation), "got %v", err)

	err = m.ValidateStatus("no such status")
	assert.True(t, registry.IsCode(err, registry.CodeValidation), "got %v", err)
}

func TestChecks(t *testing.T) {
	assert.Error(t, BlockResourceDeletion(true))
	assert.NoError(t, BlockResourceDeletion(false))

	assert.Error(t, BlockDirectMutation(true))
	assert.NoError(t, BlockDirectMutation(false))

	assert.NoError(t, CheckCatalogueIDConsistency("", "main"))
	assert.NoError(t, CheckCatalogueIDConsistency("main", "main"))
	assert.Error(t, CheckCatalogueIDConsistency("other", "main"))

	known := map[string]bool{"svc-1": true}
	exists := func(id string) bool { return known[id] }
	assert.NoError(t, CheckRelatedResourceIDsConsistency([]string{"svc-1", ""}, exists))
	assert.Error(t, CheckRelatedResourceIDsConsistency([]string{"svc-2"}, exists))
}

func TestSuspensionValidation(t *testing.T) {
	user := auth.User{Email: "bob@example.org"}
	admin := auth.User{Email: "root@example.org", Roles: []string{auth.RoleAdmin}}

	// Idempotent repeats pass regardless of provider state.
	assert.NoError(t, SuspensionValidation(user, true, true, true))

	// Unsuspending under a suspended provider needs an admin.
	assert.Error(t, SuspensionValidation(user, true, false, true))
	assert.NoError(t, SuspensionValidation(admin, true, false, true))

	// Suspending is always allowed.
	assert.NoError(t, SuspensionValidation(user, false, true, true))
}

func TestCascadeReport(t *testing.T) {
	r := &CascadeReport{}
	r.Ok("service", "svc-1", "suspend")
	assert.False(t, r.Failed())
	assert.Empty(t, r.Warnings())

	r.Fail("service", "svc-2", "suspend", assert.AnError)
	assert.True(t, r.Failed())
	require.Len(t, r.Warnings(), 1)
	assert.Contains(t, r.Warnings()[0], "svc-2")

	other := &CascadeReport{}
	other.Fail("helpdesk", "hd-1", "delete", assert.AnError)
	r.Merge(other)
	assert.Len(t, r.Warnings(), 2)
}
