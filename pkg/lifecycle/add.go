package lifecycle

import (
	"context"

	"github.com/madgeek-arc/resource-catalogue/pkg/auth"
	"github.com/madgeek-arc/resource-catalogue/pkg/metrics"
	"github.com/madgeek-arc/resource-catalogue/pkg/pid"
	"github.com/madgeek-arc/resource-catalogue/pkg/registry"
	"github.com/madgeek-arc/resource-catalogue/pkg/workflow"
)

// Add onboards a new resource. Resources bound to the home catalogue get
// a generated id and PID; resources registered under an external catalogue
// must arrive with both already assigned. The record starts pending and
// inactive unless the owning provider's template is already approved, in
// which case onboarding is auto-approved.
func (m *Manager[T]) Add(ctx context.Context, b *registry.Bundle[T], catalogueID string) (*registry.Bundle[T], error) {
	user, _ := auth.UserFromContext(ctx)
	if user.IsZero() {
		err := registry.AccessDeniedf("authentication required to register a %s", m.kind)
		metrics.RecordOperation(string(m.kind), "add", err)
		return nil, err
	}

	out, err := m.add(ctx, b, catalogueID, user)
	metrics.RecordOperation(string(m.kind), "add", err)
	return out, err
}

func (m *Manager[T]) add(ctx context.Context, b *registry.Bundle[T], catalogueID string, user auth.User) (*registry.Bundle[T], error) {
	if catalogueID == "" {
		catalogueID = m.homeCatalogue
	}
	if err := workflow.CheckCatalogueIDConsistency(b.Payload.GetCatalogueID(), catalogueID); err != nil {
		return nil, err
	}
	b.Payload.SetCatalogueID(catalogueID)

	external := catalogueID != m.homeCatalogue
	if external {
		// External onboarding trusts the source catalogue's identifiers.
		if b.Payload.GetID() == "" {
			return nil, registry.Validationf("%s registered under catalogue %q must carry its id", m.kind, catalogueID)
		}
		if b.PID() == "" {
			return nil, registry.Validationf("%s registered under catalogue %q must carry its PID", m.kind, catalogueID)
		}
		if err := m.allocator.ValidateUnique(b.PID(), b.Payload.GetID()); err != nil {
			return nil, err
		}
	} else {
		if b.Payload.GetID() == "" {
			owner := catalogueID
			if m.ownerIDOf != nil {
				if oid := m.ownerIDOf(b.Payload); oid != "" {
					owner = oid
				}
			}
			b.Payload.SetID(pid.ResourceID(owner, b.Payload.GetName()))
		}
		allocated, err := m.allocator.NewPID(m.kind)
		if err != nil {
			return nil, err
		}
		var alternatives []registry.AlternativeIdentifier
		if b.Identifiers != nil {
			alternatives = b.Identifiers.AlternativeIdentifiers
		}
		b.Identifiers = &registry.Identifiers{PID: allocated, AlternativeIdentifiers: alternatives}
	}
	b.ID = b.Payload.GetID()

	if m.exists(b.ID) {
		return nil, registry.AlreadyExistsf("%s %q already exists", m.kind, b.ID)
	}

	ownerState, err := m.resolveOwner(ctx, b)
	if err != nil {
		return nil, err
	}

	b.Status = m.set.Pending
	b.Active = false
	b.Suspended = false
	b.AuditState = registry.NotAudited
	b.MigrationStatus = nil
	var terms []string
	if b.Metadata != nil {
		terms = b.Metadata.Terms
	}
	b.Metadata = &registry.Metadata{
		RegisteredBy: user.FullName,
		RegisteredAt: workflow.NowMillis(),
		ModifiedBy:   user.FullName,
		ModifiedAt:   workflow.NowMillis(),
		Published:    false,
		Terms:        terms,
	}
	b.LoggingInfo = nil
	workflow.Stamp(b, workflow.NewLoggingInfo(user, registry.LogOnboard, registry.ActionRegistered, ""))

	// A provider with an approved template vouches for its resources:
	// onboarding is auto-approved and the record goes live immediately.
	if ownerState != nil && ownerState.TemplateApproved {
		b.Status = m.set.Approved
		b.Active = true
		workflow.Stamp(b, workflow.NewLoggingInfo(auth.System, registry.LogOnboard, registry.ActionApproved, "auto-approved"))
	}

	if err := m.hooks.Validate(ctx, b); err != nil {
		return nil, err
	}
	if err := m.save(b, true); err != nil {
		return nil, err
	}

	if b.Status == m.set.Approved && b.Active && m.projector != nil {
		if err := m.projector.CreatePublic(ctx, b); err != nil {
			m.logger.Error("failed to create public projection",
				"kind", m.kind, "resourceID", b.ID, "error", err)
		}
	}

	m.recordHistory(b, "add", user.Email, "registered", "", "")
	m.enqueueNotifications(ctx, b, "registered",
		"Resource registered: "+b.Payload.GetName(),
		"A new "+string(m.kind)+" was registered and awaits review.")
	m.logger.Info("resource registered",
		"kind", m.kind, "resourceID", b.ID, "catalogueID", catalogueID, "status", b.Status)
	return b, nil
}

// CompleteOnboarding promotes a record that just left the draft pool into
// the regular onboarding flow: it resets the workflow state and stamps the
// onboarding entry on top of the draft trail.
func (m *Manager[T]) CompleteOnboarding(ctx context.Context, b *registry.Bundle[T]) (*registry.Bundle[T], error) {
	user := auth.ActorOrSystem(ctx)

	ownerState, err := m.resolveOwner(ctx, b)
	if err != nil {
		return nil, err
	}

	if b.PID() == "" {
		allocated, err := m.allocator.NewPID(m.kind)
		if err != nil {
			return nil, err
		}
		if b.Identifiers == nil {
			b.Identifiers = &registry.Identifiers{}
		}
		b.Identifiers.PID = allocated
	}
	b.Status = m.set.Pending
	b.Active = false
	b.AuditState = registry.NotAudited
	b.EnsureMetadata().ModifiedBy = user.FullName
	b.Metadata.ModifiedAt = workflow.NowMillis()
	workflow.Stamp(b, workflow.NewLoggingInfo(user, registry.LogOnboard, registry.ActionRegistered, ""))

	if ownerState != nil && ownerState.TemplateApproved {
		b.Status = m.set.Approved
		b.Active = true
		workflow.Stamp(b, workflow.NewLoggingInfo(auth.System, registry.LogOnboard, registry.ActionApproved, "auto-approved"))
	}

	if err := m.hooks.Validate(ctx, b); err != nil {
		return nil, err
	}
	if err := m.save(b, false); err != nil {
		return nil, err
	}
	if b.Status == m.set.Approved && b.Active && m.projector != nil {
		if err := m.projector.CreatePublic(ctx, b); err != nil {
			m.logger.Error("failed to create public projection",
				"kind", m.kind, "resourceID", b.ID, "error", err)
		}
	}
	m.recordHistory(b, "transform", user.Email, "registered", "", "promoted from draft")
	return b, nil
}

// resolveOwner gates onboarding on the owner's standing when the kind has
// an owner. A missing or suspended owner rejects the operation outright.
func (m *Manager[T]) resolveOwner(ctx context.Context, b *registry.Bundle[T]) (*OwnerState, error) {
	if m.owner == nil {
		return nil, nil
	}
	state, err := m.owner(ctx, b.Payload)
	if err != nil {
		return nil, err
	}
	if state == nil {
		return nil, nil
	}
	if !state.Exists {
		return nil, registry.Validationf("owner of %s %q does not exist", m.kind, b.Payload.GetID())
	}
	if state.Suspended {
		return nil, registry.Conflictf("owner of %s %q is suspended", m.kind, b.Payload.GetID())
	}
	return state, nil
}
