package lifecycle

import (
	"context"

	"github.com/madgeek-arc/resource-catalogue/pkg/auth"
	"github.com/madgeek-arc/resource-catalogue/pkg/registry"
	"github.com/madgeek-arc/resource-catalogue/pkg/workflow"
)

// The Cascade* methods are entry points for cross-kind cascades. They skip
// the caller-facing gates (role checks, owner gating) because the primary
// mutation already passed them; they never cascade further themselves, the
// Cascader composing them decides how deep to go.

// CascadeSetActive flips the active flag on behalf of a cascade.
func (m *Manager[T]) CascadeSetActive(ctx context.Context, id string, active bool) error {
	b, err := m.Get(ctx, id)
	if err != nil {
		return err
	}
	if b.Active == active {
		return nil
	}
	b.Active = active
	workflow.EnsureLoggingInfo(b)
	workflow.Stamp(b, workflow.ActivationEntry(auth.System, active))
	if err := m.save(b, false); err != nil {
		return err
	}
	m.refreshPublic(ctx, b)
	return nil
}

// CascadeSetSuspended flips the suspended flag on behalf of a cascade.
func (m *Manager[T]) CascadeSetSuspended(ctx context.Context, id string, suspended bool) error {
	b, err := m.Get(ctx, id)
	if err != nil {
		return err
	}
	if b.Suspended == suspended {
		return nil
	}
	b.Suspended = suspended
	if err := m.save(b, false); err != nil {
		return err
	}
	m.refreshPublic(ctx, b)
	return nil
}

// CascadeDelete removes a record and its public projection on behalf of a
// cascade.
func (m *Manager[T]) CascadeDelete(ctx context.Context, id string) error {
	b, err := m.Get(ctx, id)
	if err != nil {
		return err
	}
	if m.projector != nil {
		if err := m.projector.DeletePublic(ctx, b); err != nil {
			m.logger.Error("failed to delete public projection",
				"kind", m.kind, "resourceID", id, "error", err)
		}
	}
	if err := m.store.Delete(m.kind.ResourceType(), id); err != nil {
		return err
	}
	m.cache.InvalidateResource(m.kind.ResourceType(), m.kind.PublicType(), id, b.Payload.GetCatalogueID())
	return nil
}

// SetTemplateStatus updates the template status carried by a bundle. Only
// provider bundles carry one; the value is validated against the template
// status vocabulary.
func (m *Manager[T]) SetTemplateStatus(ctx context.Context, id, status string) error {
	if err := m.vocab.ValidateStatus(status, registry.TemplateStateType); err != nil {
		return err
	}
	b, err := m.Get(ctx, id)
	if err != nil {
		return err
	}
	if b.TemplateStatus == status {
		return nil
	}
	b.TemplateStatus = status
	if err := m.save(b, false); err != nil {
		return err
	}
	m.logger.Info("template status changed", "kind", m.kind, "resourceID", id, "templateStatus", status)
	return nil
}

func (m *Manager[T]) refreshPublic(ctx context.Context, b *registry.Bundle[T]) {
	if m.projector == nil || b.Status != m.set.Approved {
		return
	}
	if err := m.projector.UpdatePublic(ctx, b); err != nil {
		m.logger.Error("failed to refresh public projection",
			"kind", m.kind, "resourceID", b.ID, "error", err)
	}
}
