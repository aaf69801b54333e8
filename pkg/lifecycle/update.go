package lifecycle

import (
	"bytes"
	"context"
	"encoding/json"

	"github.com/madgeek-arc/resource-catalogue/pkg/auth"
	"github.com/madgeek-arc/resource-catalogue/pkg/metrics"
	"github.com/madgeek-arc/resource-catalogue/pkg/registry"
	"github.com/madgeek-arc/resource-catalogue/pkg/workflow"
)

// Update replaces the payload of an existing record. Workflow fields
// (status, active, suspended, identifiers, migration state) are carried
// over from the stored record regardless of what the caller sent. An
// update whose payload is byte-identical to the stored one is a no-op.
func (m *Manager[T]) Update(ctx context.Context, b *registry.Bundle[T], catalogueID, comment string) (*registry.Bundle[T], error) {
	user, _ := auth.UserFromContext(ctx)
	if user.IsZero() {
		err := registry.AccessDeniedf("authentication required to update a %s", m.kind)
		metrics.RecordOperation(string(m.kind), "update", err)
		return nil, err
	}
	out, err := m.update(ctx, b, catalogueID, comment, user)
	metrics.RecordOperation(string(m.kind), "update", err)
	return out, err
}

func (m *Manager[T]) update(ctx context.Context, b *registry.Bundle[T], catalogueID, comment string, user auth.User) (*registry.Bundle[T], error) {
	existing, err := m.Get(ctx, b.Payload.GetID())
	if err != nil {
		return nil, err
	}
	if err := workflow.BlockDirectMutation(existing.IsPublished()); err != nil {
		return nil, err
	}
	if catalogueID == "" {
		catalogueID = existing.Payload.GetCatalogueID()
	}
	if err := workflow.CheckCatalogueIDConsistency(b.Payload.GetCatalogueID(), catalogueID); err != nil {
		return nil, err
	}
	if catalogueID != existing.Payload.GetCatalogueID() && !user.IsAdmin() {
		return nil, registry.AccessDeniedf("only administrators may move a %s between catalogues", m.kind)
	}
	b.Payload.SetCatalogueID(catalogueID)

	newPayload, err := json.Marshal(b.Payload)
	if err != nil {
		return nil, err
	}
	oldPayload, err := json.Marshal(existing.Payload)
	if err != nil {
		return nil, err
	}
	if bytes.Equal(newPayload, oldPayload) {
		return existing, nil
	}

	// Callers cannot touch workflow state through update.
	b.ID = existing.ID
	b.Status = existing.Status
	b.Active = existing.Active
	b.Suspended = existing.Suspended
	b.AuditState = existing.AuditState
	b.Identifiers = existing.Identifiers
	b.MigrationStatus = existing.MigrationStatus
	b.TemplateStatus = existing.TemplateStatus
	b.LoggingInfo = existing.LoggingInfo
	b.Metadata = existing.Metadata
	b.EnsureMetadata().ModifiedBy = user.FullName
	b.Metadata.ModifiedAt = workflow.NowMillis()

	workflow.EnsureLoggingInfo(b)
	workflow.Stamp(b, workflow.NewLoggingInfo(user, registry.LogUpdate, registry.ActionUpdated, comment))
	b.AuditState = workflow.DetermineAuditState(b.LoggingInfo)

	oldStatus := b.Status
	// Updating a rejected record resubmits it for review.
	if b.Status == m.set.Rejected {
		b.Status = m.set.Pending
	}

	if err := m.hooks.Validate(ctx, b); err != nil {
		return nil, err
	}
	if err := m.save(b, false); err != nil {
		return nil, err
	}

	if b.Status == m.set.Approved && b.Active && m.projector != nil {
		if err := m.projector.UpdatePublic(ctx, b); err != nil {
			m.logger.Error("failed to refresh public projection",
				"kind", m.kind, "resourceID", b.ID, "error", err)
		}
	}

	m.recordHistory(b, "update", user.Email, "updated", oldStatus, comment)
	m.logger.Info("resource updated", "kind", m.kind, "resourceID", b.ID, "status", b.Status)
	return b, nil
}

// Delete removes a record, its public projection, and (best-effort) its
// dependent records. Public projections themselves cannot be deleted
// directly.
func (m *Manager[T]) Delete(ctx context.Context, id string) (*workflow.CascadeReport, error) {
	user, _ := auth.UserFromContext(ctx)
	if user.IsZero() {
		err := registry.AccessDeniedf("authentication required to delete a %s", m.kind)
		metrics.RecordOperation(string(m.kind), "delete", err)
		return nil, err
	}
	report, err := m.delete(ctx, id, user)
	metrics.RecordOperation(string(m.kind), "delete", err)
	return report, err
}

func (m *Manager[T]) delete(ctx context.Context, id string, user auth.User) (*workflow.CascadeReport, error) {
	b, err := m.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := workflow.BlockResourceDeletion(b.IsPublished()); err != nil {
		return nil, err
	}

	report := &workflow.CascadeReport{}
	if m.cascader != nil {
		m.cascader.Delete(ctx, id, report)
	}
	if m.projector != nil {
		if err := m.projector.DeletePublic(ctx, b); err != nil {
			report.Fail("public", id, "delete", err)
		}
	}
	if err := m.store.Delete(m.kind.ResourceType(), id); err != nil {
		return report, err
	}
	m.cache.InvalidateResource(m.kind.ResourceType(), m.kind.PublicType(), id, b.Payload.GetCatalogueID())

	m.recordHistory(b, "delete", user.Email, "deleted", b.Status, "")
	m.enqueueNotifications(ctx, b, "deleted",
		"Resource deleted: "+b.Payload.GetName(),
		"The "+string(m.kind)+" was removed from the catalogue.")
	m.logger.Info("resource deleted", "kind", m.kind, "resourceID", id, "cascadeFailures", len(report.Warnings()))
	return report, nil
}
