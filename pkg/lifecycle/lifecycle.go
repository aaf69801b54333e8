// Package lifecycle implements the approval workflow shared by every
// resource kind. A single generic Manager drives add, update, delete,
// verify, publish, suspend, and audit; kind-specific behavior (validation,
// owner gating, cascades, public projection) is supplied through small
// strategy values at construction instead of inheritance.
package lifecycle

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/madgeek-arc/resource-catalogue/pkg/cache"
	"github.com/madgeek-arc/resource-catalogue/pkg/history"
	"github.com/madgeek-arc/resource-catalogue/pkg/notify"
	"github.com/madgeek-arc/resource-catalogue/pkg/pid"
	"github.com/madgeek-arc/resource-catalogue/pkg/registry"
	"github.com/madgeek-arc/resource-catalogue/pkg/store"
	"github.com/madgeek-arc/resource-catalogue/pkg/vocabulary"
	"github.com/madgeek-arc/resource-catalogue/pkg/workflow"
)

// Hooks is the kind-specific strategy consulted by the Manager.
type Hooks[T registry.Payload] interface {
	// Validate performs field-level and cross-reference validation of a
	// bundle before any state transition is committed.
	Validate(ctx context.Context, b *registry.Bundle[T]) error

	// OnVerify runs after a verify transition commits, propagating side
	// effects to related records (e.g. flipping the owning provider's
	// template status). Failures are recorded on the report, never
	// propagated.
	OnVerify(ctx context.Context, b *registry.Bundle[T], status string, report *workflow.CascadeReport)
}

// NopHooks is a Hooks implementation with no kind-specific behavior.
type NopHooks[T registry.Payload] struct{}

func (NopHooks[T]) Validate(ctx context.Context, b *registry.Bundle[T]) error { return nil }
func (NopHooks[T]) OnVerify(ctx context.Context, b *registry.Bundle[T], status string, report *workflow.CascadeReport) {
}

// OwnerState describes the workflow standing of the record owning a
// resource (its provider, or for providers their catalogue).
type OwnerState struct {
	Exists           bool
	Approved         bool
	Active           bool
	Suspended        bool
	TemplateApproved bool
	AdminEmails      []string
}

// OwnerResolver resolves the owner state for a payload. A nil resolver
// means the kind has no owner gate.
type OwnerResolver[T registry.Payload] func(ctx context.Context, payload T) (*OwnerState, error)

// Cascader propagates a committed state change to dependent records of
// other kinds. Implementations are best-effort: failures are recorded on
// the report and never abort the remaining steps.
type Cascader interface {
	Activate(ctx context.Context, resourceID string, active bool, report *workflow.CascadeReport)
	Suspend(ctx context.Context, resourceID string, suspended bool, report *workflow.CascadeReport)
	Delete(ctx context.Context, resourceID string, report *workflow.CascadeReport)
}

// Projector maintains the public projection of a resource.
type Projector[T registry.Payload] interface {
	CreatePublic(ctx context.Context, b *registry.Bundle[T]) error
	UpdatePublic(ctx context.Context, b *registry.Bundle[T]) error
	DeletePublic(ctx context.Context, b *registry.Bundle[T]) error
}

// Options assembles a Manager.
type Options[T registry.Payload] struct {
	Kind          registry.Kind
	HomeCatalogue string

	Store     *store.ResourceStore
	Vocab     *vocabulary.Registry
	Allocator *pid.Allocator
	History   *history.Store
	Outbox    *notify.OutboxStore
	Cache     *cache.Manager
	Logger    *slog.Logger

	Hooks     Hooks[T]
	Owner     OwnerResolver[T]
	OwnerIDOf func(payload T) string
	Cascader  Cascader
	Projector Projector[T]
}

// Manager drives the lifecycle of one resource kind.
type Manager[T registry.Payload] struct {
	kind          registry.Kind
	homeCatalogue string
	machine       *workflow.Machine
	set           vocabulary.StatusSet

	store     *store.ResourceStore
	vocab     *vocabulary.Registry
	allocator *pid.Allocator
	history   *history.Store
	outbox    *notify.OutboxStore
	cache     *cache.Manager
	logger    *slog.Logger

	hooks     Hooks[T]
	owner     OwnerResolver[T]
	ownerIDOf func(payload T) string
	cascader  Cascader
	projector Projector[T]
}

// NewManager builds a Manager for a kind.
func NewManager[T registry.Payload](opts Options[T]) *Manager[T] {
	if opts.HomeCatalogue == "" {
		opts.HomeCatalogue = "main"
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Hooks == nil {
		opts.Hooks = NopHooks[T]{}
	}
	return &Manager[T]{
		kind:          opts.Kind,
		homeCatalogue: opts.HomeCatalogue,
		machine:       workflow.NewMachine(opts.Kind, opts.Vocab),
		set:           vocabulary.StatusesFor(opts.Kind),
		store:         opts.Store,
		vocab:         opts.Vocab,
		allocator:     opts.Allocator,
		history:       opts.History,
		outbox:        opts.Outbox,
		cache:         opts.Cache,
		logger:        opts.Logger,
		hooks:         opts.Hooks,
		owner:         opts.Owner,
		ownerIDOf:     opts.OwnerIDOf,
		cascader:      opts.Cascader,
		projector:     opts.Projector,
	}
}

// Kind returns the kind this manager drives.
func (m *Manager[T]) Kind() registry.Kind { return m.kind }

// HomeCatalogue returns the id of the installation's own catalogue.
func (m *Manager[T]) HomeCatalogue() string { return m.homeCatalogue }

// StatusSet returns the kind's workflow status set.
func (m *Manager[T]) StatusSet() vocabulary.StatusSet { return m.set }

// Get loads a bundle by id, consulting the read cache first.
func (m *Manager[T]) Get(ctx context.Context, id string) (*registry.Bundle[T], error) {
	resourceType := m.kind.ResourceType()
	if payload, ok := m.cache.Get(resourceType, id); ok {
		return decodeBundle[T](payload)
	}
	rec, err := m.store.Get(resourceType, id)
	if err != nil {
		return nil, err
	}
	if rec == nil {
		return nil, registry.NotFoundf("%s %q not found", m.kind, id)
	}
	m.cache.Set(resourceType, id, rec.Payload)
	return decodeBundle[T](rec.Payload)
}

// List returns paginated bundles, the next page token, and the total count.
func (m *Manager[T]) List(ctx context.Context, opts store.ListOptions) ([]*registry.Bundle[T], string, int, error) {
	recs, nextToken, total, err := m.store.List(m.kind.ResourceType(), opts)
	if err != nil {
		return nil, "", 0, err
	}
	bundles := make([]*registry.Bundle[T], 0, len(recs))
	for _, rec := range recs {
		b, err := decodeBundle[T](rec.Payload)
		if err != nil {
			return nil, "", 0, fmt.Errorf("decode %s %s: %w", m.kind, rec.ResourceID, err)
		}
		bundles = append(bundles, b)
	}
	return bundles, nextToken, total, nil
}

// exists reports whether a record of this kind with the id is stored.
func (m *Manager[T]) exists(id string) bool {
	rec, err := m.store.Get(m.kind.ResourceType(), id)
	return err == nil && rec != nil
}

// save persists a bundle under the kind's resource type, refreshing the
// queryable columns and invalidating the record's cache keys.
func (m *Manager[T]) save(b *registry.Bundle[T], isNew bool) error {
	payload, err := json.Marshal(b)
	if err != nil {
		return fmt.Errorf("encode %s bundle: %w", m.kind, err)
	}
	rec := &store.ResourceRecord{
		ResourceID:   b.ID,
		ResourceType: m.kind.ResourceType(),
		CatalogueID:  b.Payload.GetCatalogueID(),
		Status:       b.Status,
		Active:       b.Active,
		Suspended:    b.Suspended,
		Published:    b.IsPublished(),
		PID:          b.PID(),
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
	m.cache.InvalidateResource(m.kind.ResourceType(), m.kind.PublicType(), b.ID, b.Payload.GetCatalogueID())
	return nil
}

// decodeBundle unmarshals a stored payload.
func decodeBundle[T registry.Payload](payload []byte) (*registry.Bundle[T], error) {
	var b registry.Bundle[T]
	if err := json.Unmarshal(payload, &b); err != nil {
		return nil, fmt.Errorf("decode bundle: %w", err)
	}
	return &b, nil
}

// recordHistory appends a history event for a committed operation.
// Best-effort: failures are logged, never propagated.
func (m *Manager[T]) recordHistory(b *registry.Bundle[T], action, actor, outcome, oldStatus, comment string) {
	if m.history == nil {
		return
	}
	err := m.history.Append(&history.Event{
		ID:          uuid.New().String(),
		ResourceID:  b.ID,
		CatalogueID: b.Payload.GetCatalogueID(),
		Kind:        string(m.kind),
		Action:      action,
		Actor:       actor,
		Outcome:     outcome,
		OldStatus:   oldStatus,
		NewStatus:   b.Status,
		Comment:     comment,
	})
	if err != nil {
		m.logger.Error("failed to append history event",
			"kind", m.kind, "resourceID", b.ID, "action", action, "error", err)
	}
}

// enqueueNotifications queues owner emails and a bus event for a committed
// operation. Best-effort: failures are logged, never propagated.
func (m *Manager[T]) enqueueNotifications(ctx context.Context, b *registry.Bundle[T], action, subject, body string) {
	if m.outbox == nil {
		return
	}
	if m.owner != nil {
		state, err := m.owner(ctx, b.Payload)
		if err == nil && state != nil {
			for _, email := range state.AdminEmails {
				m.enqueue(&notify.Dispatch{
					Kind:       notify.KindEmail,
					Recipient:  email,
					Subject:    subject,
					Body:       body,
					ResourceID: b.ID,
					Action:     action,
				})
			}
		}
	}
	m.enqueue(&notify.Dispatch{
		Kind:       notify.KindEvent,
		Recipient:  "registry." + string(m.kind),
		Body:       fmt.Sprintf(`{"id":%q,"action":%q,"status":%q}`, b.ID, action, b.Status),
		ResourceID: b.ID,
		Action:     action,
	})
}

func (m *Manager[T]) enqueue(d *notify.Dispatch) {
	if err := m.outbox.Enqueue(d); err != nil {
		m.logger.Error("failed to enqueue notification",
			"kind", m.kind, "resourceID", d.ResourceID, "action", d.Action, "error", err)
	}
}
