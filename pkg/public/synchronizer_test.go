package public

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/madgeek-arc/resource-catalogue/pkg/registry"
	"github.com/madgeek-arc/resource-catalogue/pkg/store"
)

func newTestSynchronizer(t *testing.T) (*Synchronizer[*registry.Service], *store.ResourceStore) {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	s := store.NewResourceStore(db)
	require.NoError(t, s.AutoMigrate())
	rewrite := func(p *registry.Service, publicID func(id string) string) {
		p.ResourceOrganisation = publicID(p.ResourceOrganisation)
		for i, id := range p.RelatedResources {
			p.RelatedResources[i] = publicID(id)
		}
	}
	sync := NewSynchronizer(registry.KindService, s, nil, rewrite,
		slog.New(slog.NewTextHandler(io.Discard, nil)))
	return sync, s
}

func testBundle(id string) *registry.Bundle[*registry.Service] {
	return &registry.Bundle[*registry.Service]{
		ID:     id,
		Status: "approved resource",
		Active: true,
		Payload: &registry.Service{
			ResourceBase:         registry.ResourceBase{ID: id, Name: "Atlas Compute", CatalogueID: "main"},
			ResourceOrganisation: "main.acme",
			RelatedResources:     []string{"main.acme.other", ""},
		},
	}
}

func TestCreatePublicProjectsAndRewrites(t *testing.T) {
	sync, s := newTestSynchronizer(t)
	ctx := context.Background()
	src := testBundle("main.acme.svc")

	require.NoError(t, sync.CreatePublic(ctx, src))

	pub, err := sync.GetPublic(ctx, ID("main", "main.acme.svc"))
	require.NoError(t, err)
	assert.Equal(t, "main.main.acme.svc", pub.ID)
	assert.Equal(t, "main.main.acme.svc", pub.Payload.ID)
	assert.Equal(t, "main.main.acme", pub.Payload.ResourceOrganisation)
	assert.Equal(t, []string{"main.main.acme.other", ""}, pub.Payload.RelatedResources)
	require.NotNil(t, pub.Metadata)
	assert.True(t, pub.Metadata.Published)

	// The projection is a copy, not an alias of the source bundle.
	assert.Equal(t, "main.acme.svc", src.ID)
	assert.Equal(t, "main.acme", src.Payload.ResourceOrganisation)

	rec, err := s.Get(registry.KindService.PublicType(), "main.main.acme.svc")
	require.NoError(t, err)
	require.NotNil(t, rec)
	assert.True(t, rec.Published)
	assert.Equal(t, "main", rec.CatalogueID)
}

func TestUpdatePublicUpserts(t *testing.T) {
	sync, _ := newTestSynchronizer(t)
	ctx := context.Background()
	src := testBundle("main.acme.svc")

	// Update on a record with no projection yet creates one.
	require.NoError(t, sync.UpdatePublic(ctx, src))

	src.Payload.Name = "Atlas Compute v2"
	src.Active = false
	require.NoError(t, sync.UpdatePublic(ctx, src))

	pub, err := sync.GetPublic(ctx, "main.main.acme.svc")
	require.NoError(t, err)
	assert.Equal(t, "Atlas Compute v2", pub.Payload.Name)
	assert.False(t, pub.Active)
}

func TestDeletePublicTolerant(t *testing.T) {
	sync, s := newTestSynchronizer(t)
	ctx := context.Background()
	src := testBundle("main.acme.svc")

	// Deleting a projection that never existed is not an error.
	require.NoError(t, sync.DeletePublic(ctx, src))

	require.NoError(t, sync.CreatePublic(ctx, src))
	require.NoError(t, sync.DeletePublic(ctx, src))
	rec, err := s.Get(registry.KindService.PublicType(), "main.main.acme.svc")
	require.NoError(t, err)
	assert.Nil(t, rec)

	_, err = sync.GetPublic(ctx, "main.main.acme.svc")
	assert.True(t, registry.IsCode(err, registry.CodeNotFound))
}

func TestListPublic(t *testing.T) {
	sync, _ := newTestSynchronizer(t)
	ctx := context.Background()

	for _, id := range []string{"main.acme.a", "main.acme.b", "main.acme.c"} {
		b := testBundle(id)
		b.Payload.ID = id
		require.NoError(t, sync.CreatePublic(ctx, b))
	}

	page, next, total, err := sync.ListPublic(ctx, store.ListOptions{PageSize: 2})
	require.NoError(t, err)
	assert.Len(t, page, 2)
	assert.Equal(t, 3, total)
	require.NotEmpty(t, next)

	rest, next, _, err := sync.ListPublic(ctx, store.ListOptions{PageSize: 2, PageToken: next})
	require.NoError(t, err)
	assert.Len(t, rest, 1)
	assert.Empty(t, next)
}
