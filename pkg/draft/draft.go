// Package draft manages the pre-onboarding pool: resources saved under a
// draft resource type, invisible to the regular workflow until they are
// transformed into pending records.
package draft

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/madgeek-arc/resource-catalogue/pkg/auth"
	"github.com/madgeek-arc/resource-catalogue/pkg/cache"
	"github.com/madgeek-arc/resource-catalogue/pkg/lifecycle"
	"github.com/madgeek-arc/resource-catalogue/pkg/metrics"
	"github.com/madgeek-arc/resource-catalogue/pkg/pid"
	"github.com/madgeek-arc/resource-catalogue/pkg/registry"
	"github.com/madgeek-arc/resource-catalogue/pkg/store"
	"github.com/madgeek-arc/resource-catalogue/pkg/workflow"
)

// Manager keeps drafts of one kind and promotes them into the lifecycle.
type Manager[T registry.Payload] struct {
	kind      registry.Kind
	store     *store.ResourceStore
	cache     *cache.Manager
	lifecycle *lifecycle.Manager[T]
	logger    *slog.Logger
}

// NewManager builds a draft Manager on top of a kind's lifecycle manager.
func NewManager[T registry.Payload](s *store.ResourceStore, c *cache.Manager, lc *lifecycle.Manager[T], logger *slog.Logger) *Manager[T] {
	if logger == nil {
		logger = slog.Default()
	}
	return &Manager[T]{kind: lc.Kind(), store: s, cache: c, lifecycle: lc, logger: logger}
}

// Create stores a new draft. The draft gets an id immediately so the
// author can keep editing it, but no PID: identifiers are allocated when
// the draft enters onboarding.
func (m *Manager[T]) Create(ctx context.Context, b *registry.Bundle[T], catalogueID string) (*registry.Bundle[T], error) {
	user, _ := auth.UserFromContext(ctx)
	if user.IsZero() {
		err := registry.AccessDeniedf("authentication required to draft a %s", m.kind)
		metrics.RecordOperation(string(m.kind), "draft-create", err)
		return nil, err
	}
	if catalogueID == "" {
		catalogueID = m.lifecycle.HomeCatalogue()
	}
	if err := workflow.CheckCatalogueIDConsistency(b.Payload.GetCatalogueID(), catalogueID); err != nil {
		metrics.RecordOperation(string(m.kind), "draft-create", err)
		return nil, err
	}
	b.Payload.SetCatalogueID(catalogueID)
	if b.Payload.GetID() == "" {
		b.Payload.SetID(pid.ResourceID(catalogueID, b.Payload.GetName()))
	}
	b.ID = b.Payload.GetID()

	if taken, err := m.idTaken(b.ID); err != nil {
		metrics.RecordOperation(string(m.kind), "draft-create", err)
		return nil, err
	} else if taken {
		err := registry.AlreadyExistsf("%s %q already exists", m.kind, b.ID)
		metrics.RecordOperation(string(m.kind), "draft-create", err)
		return nil, err
	}

	b.Status = ""
	b.Active = false
	b.Suspended = false
	b.AuditState = registry.NotAudited
	b.Metadata = &registry.Metadata{
		RegisteredBy: user.FullName,
		RegisteredAt: workflow.NowMillis(),
		ModifiedBy:   user.FullName,
		ModifiedAt:   workflow.NowMillis(),
	}
	b.LoggingInfo = nil
	workflow.Stamp(b, workflow.NewLoggingInfo(user, registry.LogDraft, registry.ActionCreated, ""))

	err := m.save(b, true)
	metrics.RecordOperation(string(m.kind), "draft-create", err)
	if err != nil {
		return nil, err
	}
	m.logger.Info("draft created", "kind", m.kind, "resourceID", b.ID, "catalogueID", catalogueID)
	return b, nil
}

// Get loads a draft by id.
func (m *Manager[T]) Get(ctx context.Context, id string) (*registry.Bundle[T], error) {
	rec, err := m.store.Get(m.kind.DraftType(), id)
	if err != nil {
		return nil, err
	}
	if rec == nil {
		return nil, registry.NotFoundf("draft %s %q not found", m.kind, id)
	}
	var b registry.Bundle[T]
	if err := json.Unmarshal(rec.Payload, &b); err != nil {
		return nil, fmt.Errorf("decode draft %s %s: %w", m.kind, id, err)
	}
	return &b, nil
}

// List returns paginated drafts.
func (m *Manager[T]) List(ctx context.Context, opts store.ListOptions) ([]*registry.Bundle[T], string, int, error) {
	recs, nextToken, total, err := m.store.List(m.kind.DraftType(), opts)
	if err != nil {
		return nil, "", 0, err
	}
	bundles := make([]*registry.Bundle[T], 0, len(recs))
	for _, rec := range recs {
		var b registry.Bundle[T]
		if err := json.Unmarshal(rec.Payload, &b); err != nil {
			return nil, "", 0, fmt.Errorf("decode draft %s %s: %w", m.kind, rec.ResourceID, err)
		}
		bundles = append(bundles, &b)
	}
	return bundles, nextToken, total, nil
}

// Update replaces a draft's payload.
func (m *Manager[T]) Update(ctx context.Context, b *registry.Bundle[T]) (*registry.Bundle[T], error) {
	user, _ := auth.UserFromContext(ctx)
	if user.IsZero() {
		err := registry.AccessDeniedf("authentication required to update a draft %s", m.kind)
		metrics.RecordOperation(string(m.kind), "draft-update", err)
		return nil, err
	}
	existing, err := m.Get(ctx, b.Payload.GetID())
	if err != nil {
		metrics.RecordOperation(string(m.kind), "draft-update", err)
		return nil, err
	}
	b.ID = existing.ID
	b.Status = existing.Status
	b.Active = false
	b.LoggingInfo = existing.LoggingInfo
	b.Metadata = existing.Metadata
	b.EnsureMetadata().ModifiedBy = user.FullName
	b.Metadata.ModifiedAt = workflow.NowMillis()
	workflow.Stamp(b, workflow.NewLoggingInfo(user, registry.LogDraft, registry.ActionUpdated, ""))

	err = m.save(b, false)
	metrics.RecordOperation(string(m.kind), "draft-update", err)
	if err != nil {
		return nil, err
	}
	return b, nil
}

// Delete discards a draft.
func (m *Manager[T]) Delete(ctx context.Context, id string) error {
	user, _ := auth.UserFromContext(ctx)
	if user.IsZero() {
		err := registry.AccessDeniedf("authentication required to delete a draft %s", m.kind)
		metrics.RecordOperation(string(m.kind), "draft-delete", err)
		return err
	}
	if _, err := m.Get(ctx, id); err != nil {
		metrics.RecordOperation(string(m.kind), "draft-delete", err)
		return err
	}
	err := m.store.Delete(m.kind.DraftType(), id)
	metrics.RecordOperation(string(m.kind), "draft-delete", err)
	if err != nil {
		return err
	}
	m.cache.InvalidateResource(m.kind.DraftType(), m.kind.PublicType(), id, "")
	return nil
}

// Transform promotes a draft into the onboarding flow: the record changes
// resource type in place, keeping its draft audit trail, and enters the
// workflow as a pending record with freshly allocated identifiers.
func (m *Manager[T]) Transform(ctx context.Context, id string) (*registry.Bundle[T], error) {
	b, err := m.transform(ctx, id)
	metrics.RecordOperation(string(m.kind), "draft-transform", err)
	return b, err
}

func (m *Manager[T]) transform(ctx context.Context, id string) (*registry.Bundle[T], error) {
	user, _ := auth.UserFromContext(ctx)
	if user.IsZero() {
		return nil, registry.AccessDeniedf("authentication required to submit a draft %s", m.kind)
	}
	b, err := m.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if rec, err := m.store.Get(m.kind.ResourceType(), id); err != nil {
		return nil, err
	} else if rec != nil {
		return nil, registry.AlreadyExistsf("%s %q already exists", m.kind, id)
	}
	if err := m.store.ChangeResourceType(m.kind.DraftType(), id, m.kind.ResourceType()); err != nil {
		return nil, err
	}
	m.cache.InvalidateResource(m.kind.DraftType(), m.kind.PublicType(), id, b.Payload.GetCatalogueID())

	out, err := m.lifecycle.CompleteOnboarding(ctx, b)
	if err != nil {
		// Roll the record back into the draft pool so the author can fix it.
		if rbErr := m.store.ChangeResourceType(m.kind.ResourceType(), id, m.kind.DraftType()); rbErr != nil {
			m.logger.Error("failed to return record to draft pool",
				"kind", m.kind, "resourceID", id, "error", rbErr)
		}
		m.cache.InvalidateResource(m.kind.ResourceType(), m.kind.PublicType(), id, b.Payload.GetCatalogueID())
		return nil, err
	}
	m.logger.Info("draft transformed", "kind", m.kind, "resourceID", id, "status", out.Status)
	return out, nil
}

func (m *Manager[T]) save(b *registry.Bundle[T], isNew bool) error {
	payload, err := json.Marshal(b)
	if err != nil {
		return fmt.Errorf("encode draft %s bundle: %w", m.kind, err)
	}
	rec := &store.ResourceRecord{
		ResourceID:   b.ID,
		ResourceType: m.kind.DraftType(),
		CatalogueID:  b.Payload.GetCatalogueID(),
		Status:       b.Status,
		Active:       false,
		Suspended:    false,
		Published:    false,
		Payload:      payload,
	}
	if isNew {
		err = m.store.Add(rec)
	} else {
		err = m.store.Update(rec)
	}
	if err != nil {
		return err
	}
	m.cache.InvalidateResource(m.kind.DraftType(), m.kind.PublicType(), b.ID, b.Payload.GetCatalogueID())
	return nil
}

// idTaken checks both the draft pool and the live records for the id.
func (m *Manager[T]) idTaken(id string) (bool, error) {
	for _, resourceType := range []string{m.kind.DraftType(), m.kind.ResourceType()} {
		rec, err := m.store.Get(resourceType, id)
		if err != nil {
			return false, err
		}
		if rec != nil {
			return true, nil
		}
	}
	return false, nil
}
