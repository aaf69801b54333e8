// Package public maintains the read-only public projection of approved,
// active resources. A public record is a copy of its source stored under
// the kind's public resource type, addressed by a catalogue-prefixed id,
// with its foreign keys rewritten to other public ids.
package public

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/madgeek-arc/resource-catalogue/pkg/cache"
	"github.com/madgeek-arc/resource-catalogue/pkg/registry"
	"github.com/madgeek-arc/resource-catalogue/pkg/store"
)

// ID derives the public id of a resource: its catalogue id joined to its
// own id with a dot.
func ID(catalogueID, resourceID string) string {
	return catalogueID + "." + resourceID
}

// Rewriter rewrites a payload's references to other resources into their
// public ids. publicID maps a source-side id to its public form.
type Rewriter[T registry.Payload] func(payload T, publicID func(id string) string)

// Synchronizer mirrors one kind into its public projection.
type Synchronizer[T registry.Payload] struct {
	kind    registry.Kind
	store   *store.ResourceStore
	cache   *cache.Manager
	rewrite Rewriter[T]
	logger  *slog.Logger
}

// NewSynchronizer builds a Synchronizer for a kind. rewrite may be nil for
// kinds whose payloads reference no other resources.
func NewSynchronizer[T registry.Payload](kind registry.Kind, s *store.ResourceStore, c *cache.Manager, rewrite Rewriter[T], logger *slog.Logger) *Synchronizer[T] {
	if logger == nil {
		logger = slog.Default()
	}
	return &Synchronizer[T]{kind: kind, store: s, cache: c, rewrite: rewrite, logger: logger}
}

// CreatePublic writes the public copy of a bundle, replacing an existing
// copy if one is already there.
func (s *Synchronizer[T]) CreatePublic(ctx context.Context, b *registry.Bundle[T]) error {
	return s.upsert(b)
}

// UpdatePublic refreshes the public copy of a bundle, creating it when the
// record went public before the projection existed.
func (s *Synchronizer[T]) UpdatePublic(ctx context.Context, b *registry.Bundle[T]) error {
	return s.upsert(b)
}

// DeletePublic removes the public copy. A missing copy is not an error.
func (s *Synchronizer[T]) DeletePublic(ctx context.Context, b *registry.Bundle[T]) error {
	catalogueID := b.Payload.GetCatalogueID()
	publicID := ID(catalogueID, b.ID)
	err := s.store.Delete(s.kind.PublicType(), publicID)
	if err != nil && !errors.Is(err, store.ErrResourceNotFound) {
		return err
	}
	s.cache.InvalidateResource(s.kind.PublicType(), s.kind.PublicType(), publicID, catalogueID)
	return nil
}

func (s *Synchronizer[T]) upsert(b *registry.Bundle[T]) error {
	pub, err := s.project(b)
	if err != nil {
		return err
	}
	payload, err := json.Marshal(pub)
	if err != nil {
		return fmt.Errorf("encode public %s bundle: %w", s.kind, err)
	}
	catalogueID := b.Payload.GetCatalogueID()
	rec := &store.ResourceRecord{
		ResourceID:   pub.ID,
		ResourceType: s.kind.PublicType(),
		CatalogueID:  catalogueID,
		Status:       pub.Status,
		Active:       pub.Active,
		Suspended:    pub.Suspended,
		Published:    true,
		PID:          pub.PID(),
		Payload:      payload,
	}
	existing, err := s.store.Get(s.kind.PublicType(), pub.ID)
	if err != nil {
		return err
	}
	if existing == nil {
		err = s.store.Add(rec)
	} else {
		err = s.store.Update(rec)
	}
	if err != nil {
		return err
	}
	s.cache.InvalidateResource(s.kind.PublicType(), s.kind.PublicType(), pub.ID, catalogueID)
	return nil
}

// project deep-copies the bundle through JSON and rewrites it into its
// public form.
func (s *Synchronizer[T]) project(b *registry.Bundle[T]) (*registry.Bundle[T], error) {
	raw, err := json.Marshal(b)
	if err != nil {
		return nil, err
	}
	var pub registry.Bundle[T]
	if err := json.Unmarshal(raw, &pub); err != nil {
		return nil, err
	}
	catalogueID := pub.Payload.GetCatalogueID()
	pub.Payload.SetID(ID(catalogueID, b.ID))
	pub.ID = pub.Payload.GetID()
	pub.EnsureMetadata().Published = true
	if s.rewrite != nil {
		s.rewrite(pub.Payload, func(id string) string {
			if id == "" {
				return id
			}
			return ID(catalogueID, id)
		})
	}
	return &pub, nil
}

// GetPublic loads a public record by its public id.
func (s *Synchronizer[T]) GetPublic(ctx context.Context, publicID string) (*registry.Bundle[T], error) {
	publicType := s.kind.PublicType()
	if payload, ok := s.cache.Get(publicType, publicID); ok {
		return decode[T](payload)
	}
	rec, err := s.store.Get(publicType, publicID)
	if err != nil {
		return nil, err
	}
	if rec == nil {
		return nil, registry.NotFoundf("public %s %q not found", s.kind, publicID)
	}
	s.cache.Set(publicType, publicID, rec.Payload)
	return decode[T](rec.Payload)
}

// ListPublic returns paginated public records.
func (s *Synchronizer[T]) ListPublic(ctx context.Context, opts store.ListOptions) ([]*registry.Bundle[T], string, int, error) {
	recs, nextToken, total, err := s.store.List(s.kind.PublicType(), opts)
	if err != nil {
		return nil, "", 0, err
	}
	bundles := make([]*registry.Bundle[T], 0, len(recs))
	for _, rec := range recs {
		b, err := decode[T](rec.Payload)
		if err != nil {
			return nil, "", 0, fmt.Errorf("decode public %s %s: %w", s.kind, rec.ResourceID, err)
		}
		bundles = append(bundles, b)
	}
	return bundles, nextToken, total, nil
}

func decode[T registry.Payload](payload []byte) (*registry.Bundle[T], error) {
	var b registry.Bundle[T]
	if err := json.Unmarshal(payload, &b); err != nil {
		return nil, fmt.Errorf("decode public bundle: %w", err)
	}
	return &b, nil
}
