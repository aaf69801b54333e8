package lifecycle

import (
	"context"

	"github.com/madgeek-arc/resource-catalogue/pkg/auth"
	"github.com/madgeek-arc/resource-catalogue/pkg/metrics"
	"github.com/madgeek-arc/resource-catalogue/pkg/registry"
	"github.com/madgeek-arc/resource-catalogue/pkg/workflow"
)

// Verify moves a record through the approval state machine. Approval may
// also activate the record; rejection always deactivates it. Side effects
// on related records run best-effort and surface on the report.
func (m *Manager[T]) Verify(ctx context.Context, id, status string, active bool) (*registry.Bundle[T], *workflow.CascadeReport, error) {
	user, _ := auth.UserFromContext(ctx)
	if !user.IsAdmin() {
		err := registry.AccessDeniedf("only administrators may verify a %s", m.kind)
		metrics.RecordOperation(string(m.kind), "verify", err)
		return nil, nil, err
	}
	b, report, err := m.verify(ctx, id, status, active, user)
	metrics.RecordOperation(string(m.kind), "verify", err)
	return b, report, err
}

func (m *Manager[T]) verify(ctx context.Context, id, status string, active bool, user auth.User) (*registry.Bundle[T], *workflow.CascadeReport, error) {
	b, err := m.Get(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	if err := m.machine.ValidateStatus(status); err != nil {
		return nil, nil, err
	}
	if err := m.machine.ValidateTransition(b.Status, status); err != nil {
		return nil, nil, err
	}

	oldStatus := b.Status
	b.Status = status
	workflow.EnsureLoggingInfo(b)
	switch status {
	case m.set.Approved:
		b.Active = active
		workflow.Stamp(b, workflow.NewLoggingInfo(user, registry.LogOnboard, registry.ActionApproved, ""))
	case m.set.Rejected:
		b.Active = false
		workflow.Stamp(b, workflow.NewLoggingInfo(user, registry.LogOnboard, registry.ActionRejected, ""))
	default:
		workflow.Stamp(b, workflow.NewLoggingInfo(user, registry.LogOnboard, registry.ActionRegistered, "resubmitted"))
	}
	b.EnsureMetadata().ModifiedBy = user.FullName
	b.Metadata.ModifiedAt = workflow.NowMillis()

	if err := m.save(b, false); err != nil {
		return nil, nil, err
	}

	report := &workflow.CascadeReport{}
	if m.projector != nil {
		switch {
		case b.Status == m.set.Approved && b.Active:
			if err := m.projector.CreatePublic(ctx, b); err != nil {
				report.Fail("public", id, "create", err)
			}
		case b.Status == m.set.Rejected:
			if err := m.projector.DeletePublic(ctx, b); err != nil {
				report.Fail("public", id, "delete", err)
			}
		}
	}
	m.hooks.OnVerify(ctx, b, status, report)

	m.recordHistory(b, "verify", user.Email, "verified", oldStatus, "")
	m.enqueueNotifications(ctx, b, "verified",
		"Resource review outcome: "+b.Payload.GetName(),
		"The "+string(m.kind)+" moved to status "+status+".")
	m.logger.Info("resource verified",
		"kind", m.kind, "resourceID", id, "from", oldStatus, "to", status, "active", b.Active)
	return b, report, nil
}

// Publish toggles the active flag. Activation requires the record to be
// approved and its owner to be approved and active; a conflicting state
// rejects the operation. The new flag cascades to dependent records.
func (m *Manager[T]) Publish(ctx context.Context, id string, active bool) (*registry.Bundle[T], *workflow.CascadeReport, error) {
	user, _ := auth.UserFromContext(ctx)
	if user.IsZero() {
		err := registry.AccessDeniedf("authentication required to publish a %s", m.kind)
		metrics.RecordOperation(string(m.kind), "publish", err)
		return nil, nil, err
	}
	b, report, err := m.publish(ctx, id, active, user)
	metrics.RecordOperation(string(m.kind), "publish", err)
	return b, report, err
}

func (m *Manager[T]) publish(ctx context.Context, id string, active bool, user auth.User) (*registry.Bundle[T], *workflow.CascadeReport, error) {
	b, err := m.Get(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	if b.Active == active {
		return b, &workflow.CascadeReport{}, nil
	}
	if active {
		if b.Status != m.set.Approved {
			return nil, nil, registry.Conflictf("cannot activate %s %q while its status is %q", m.kind, id, b.Status)
		}
		if m.owner != nil {
			state, err := m.owner(ctx, b.Payload)
			if err != nil {
				return nil, nil, err
			}
			if state != nil && state.Exists && (!state.Approved || !state.Active) {
				return nil, nil, registry.Conflictf("cannot activate %s %q: its owner is not approved and active", m.kind, id)
			}
		}
	}

	b.Active = active
	workflow.EnsureLoggingInfo(b)
	workflow.Stamp(b, workflow.ActivationEntry(user, active))
	b.EnsureMetadata().ModifiedBy = user.FullName
	b.Metadata.ModifiedAt = workflow.NowMillis()

	if err := m.save(b, false); err != nil {
		return nil, nil, err
	}

	report := &workflow.CascadeReport{}
	if m.cascader != nil {
		m.cascader.Activate(ctx, id, active, report)
	}
	if m.projector != nil && b.Status == m.set.Approved {
		if err := m.projector.UpdatePublic(ctx, b); err != nil {
			report.Fail("public", id, "update", err)
		}
	}

	outcome := "deactivated"
	if active {
		outcome = "activated"
	}
	m.recordHistory(b, "publish", user.Email, outcome, b.Status, "")
	m.logger.Info("resource "+outcome, "kind", m.kind, "resourceID", id, "cascadeFailures", len(report.Warnings()))
	return b, report, nil
}

// Suspend toggles the suspended flag. Suspending an already suspended
// record (or vice versa) is a no-op. The flag cascades to dependents.
func (m *Manager[T]) Suspend(ctx context.Context, id string, suspended bool) (*registry.Bundle[T], *workflow.CascadeReport, error) {
	user, _ := auth.UserFromContext(ctx)
	if user.IsZero() {
		err := registry.AccessDeniedf("authentication required to suspend a %s", m.kind)
		metrics.RecordOperation(string(m.kind), "suspend", err)
		return nil, nil, err
	}
	b, report, err := m.suspend(ctx, id, suspended, user)
	metrics.RecordOperation(string(m.kind), "suspend", err)
	return b, report, err
}

func (m *Manager[T]) suspend(ctx context.Context, id string, suspended bool, user auth.User) (*registry.Bundle[T], *workflow.CascadeReport, error) {
	b, err := m.Get(ctx, id)
	if err != nil {
		return nil, nil, err
	}

	ownerSuspended := false
	if m.owner != nil {
		state, err := m.owner(ctx, b.Payload)
		if err != nil {
			return nil, nil, err
		}
		if state != nil {
			ownerSuspended = state.Suspended
		}
	}
	if err := workflow.SuspensionValidation(user, b.Suspended, suspended, ownerSuspended); err != nil {
		return nil, nil, err
	}
	if b.Suspended == suspended {
		return b, &workflow.CascadeReport{}, nil
	}

	b.Suspended = suspended
	b.EnsureMetadata().ModifiedBy = user.FullName
	b.Metadata.ModifiedAt = workflow.NowMillis()

	if err := m.save(b, false); err != nil {
		return nil, nil, err
	}

	report := &workflow.CascadeReport{}
	if m.cascader != nil {
		m.cascader.Suspend(ctx, id, suspended, report)
	}
	if m.projector != nil && b.Status == m.set.Approved {
		if err := m.projector.UpdatePublic(ctx, b); err != nil {
			report.Fail("public", id, "update", err)
		}
	}

	outcome := "unsuspended"
	if suspended {
		outcome = "suspended"
	}
	m.recordHistory(b, "suspend", user.Email, outcome, b.Status, "")
	m.logger.Info("resource "+outcome, "kind", m.kind, "resourceID", id)
	return b, report, nil
}

// Audit records an administrator's audit verdict on a record. A verdict of
// invalid notifies the owner's administrators so the record gets fixed.
func (m *Manager[T]) Audit(ctx context.Context, id, comment string, action registry.ActionType) (*registry.Bundle[T], error) {
	user, _ := auth.UserFromContext(ctx)
	if !user.IsAdmin() {
		err := registry.AccessDeniedf("only administrators may audit a %s", m.kind)
		metrics.RecordOperation(string(m.kind), "audit", err)
		return nil, err
	}
	b, err := m.audit(ctx, id, comment, action, user)
	metrics.RecordOperation(string(m.kind), "audit", err)
	return b, err
}

func (m *Manager[T]) audit(ctx context.Context, id, comment string, action registry.ActionType, user auth.User) (*registry.Bundle[T], error) {
	if action != registry.ActionValid && action != registry.ActionInvalid {
		return nil, registry.Validationf("audit verdict must be %q or %q", registry.ActionValid, registry.ActionInvalid)
	}
	b, err := m.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	workflow.EnsureLoggingInfo(b)
	workflow.Stamp(b, workflow.NewLoggingInfo(user, registry.LogAudit, action, comment))
	b.AuditState = workflow.DetermineAuditState(b.LoggingInfo)
	b.EnsureMetadata().ModifiedBy = user.FullName
	b.Metadata.ModifiedAt = workflow.NowMillis()

	if err := m.save(b, false); err != nil {
		return nil, err
	}

	m.recordHistory(b, "audit", user.Email, string(action), b.Status, comment)
	if action == registry.ActionInvalid {
		m.enqueueNotifications(ctx, b, "audited",
			"Audit outcome for "+b.Payload.GetName(),
			"The "+string(m.kind)+" was audited and found invalid: "+comment)
	}
	m.logger.Info("resource audited", "kind", m.kind, "resourceID", id, "verdict", action)
	return b, nil
}
