package lifecycle

import (
	"context"

	"github.com/madgeek-arc/resource-catalogue/pkg/auth"
	"github.com/madgeek-arc/resource-catalogue/pkg/registry"
	"github.com/madgeek-arc/resource-catalogue/pkg/workflow"
)

// Move reassigns a record to another catalogue on behalf of a migration.
// The public projection is keyed by catalogue, so it is dropped under the
// old prefix and recreated under the new one. Gating belongs to the
// migration layer; Move only executes the rewrite.
func (m *Manager[T]) Move(ctx context.Context, id, targetCatalogue, comment string) (*registry.Bundle[T], error) {
	b, err := m.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	current := b.Payload.GetCatalogueID()
	if current == targetCatalogue {
		return b, nil
	}
	user := auth.ActorOrSystem(ctx)

	if m.projector != nil {
		if err := m.projector.DeletePublic(ctx, b); err != nil {
			m.logger.Error("failed to drop public projection before move",
				"kind", m.kind, "resourceID", id, "error", err)
		}
	}

	b.Payload.SetCatalogueID(targetCatalogue)
	b.MigrationStatus = &registry.MigrationStatus{
		CurrentCatalogue: current,
		TargetCatalogue:  targetCatalogue,
		Comment:          comment,
	}
	workflow.Stamp(b, workflow.NewLoggingInfo(user, registry.LogMove, registry.ActionMoved, comment))
	b.EnsureMetadata().ModifiedBy = user.FullName
	b.Metadata.ModifiedAt = workflow.NowMillis()

	if err := m.save(b, false); err != nil {
		return nil, err
	}
	// The old catalogue's cache key still holds the pre-move copy.
	m.cache.InvalidateResource(m.kind.ResourceType(), m.kind.PublicType(), id, current)

	if m.projector != nil && b.Status == m.set.Approved && b.Active {
		if err := m.projector.CreatePublic(ctx, b); err != nil {
			m.logger.Error("failed to recreate public projection after move",
				"kind", m.kind, "resourceID", id, "error", err)
		}
	}
	m.recordHistory(b, "move", user.Email, "moved", b.Status, comment)
	m.logger.Info("resource moved", "kind", m.kind, "resourceID", id, "from", current, "to", targetCatalogue)
	return b, nil
}

// Rewrite persists a payload mutation on behalf of a migration, stamping a
// move entry and refreshing the public projection in place.
func (m *Manager[T]) Rewrite(ctx context.Context, id string, mutate func(payload T), comment string) (*registry.Bundle[T], error) {
	b, err := m.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	user := auth.ActorOrSystem(ctx)

	mutate(b.Payload)
	workflow.EnsureLoggingInfo(b)
	workflow.Stamp(b, workflow.NewLoggingInfo(user, registry.LogMove, registry.ActionMoved, comment))
	b.EnsureMetadata().ModifiedBy = user.FullName
	b.Metadata.ModifiedAt = workflow.NowMillis()

	if err := m.save(b, false); err != nil {
		return nil, err
	}
	if m.projector != nil && b.Status == m.set.Approved && b.Active {
		if err := m.projector.UpdatePublic(ctx, b); err != nil {
			m.logger.Error("failed to refresh public projection after rewrite",
				"kind", m.kind, "resourceID", id, "error", err)
		}
	}
	m.recordHistory(b, "move", user.Email, "moved", b.Status, comment)
	return b, nil
}
