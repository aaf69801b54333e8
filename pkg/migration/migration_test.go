package migration

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

	"github.com/madgeek-arc/resource-catalogue/pkg/auth"
	"github.com/madgeek-arc/resource-catalogue/pkg/catalogue"
	"github.com/madgeek-arc/resource-catalogue/pkg/public"
	"github.com/madgeek-arc/resource-catalogue/pkg/registry"
	"github.com/madgeek-arc/resource-catalogue/pkg/vocabulary"
)

type fixture struct {
	r        *catalogue.Registry
	m        *Migrator
	ctx      context.Context
	provider string
	service  string
	dataset  string
	partner  string
}

// newFixture assembles a registry holding an approved provider with one
// approved service plus a datasource, and a second approved catalogue to
// migrate into.
func newFixture(t *testing.T) *fixture {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	discard := slog.New(slog.NewTextHandler(io.Discard, nil))
	r, err := catalogue.New(catalogue.Options{DB: db, Logger: discard})
	require.NoError(t, err)
	ctx := auth.WithUser(context.Background(), auth.User{
		Email:    "admin@registry.example",
		FullName: "Registry Admin",
		Roles:    []string{auth.RoleAdmin},
	})

	cat, err := r.Catalogues.Add(ctx, &registry.Bundle[*registry.Catalogue]{Payload: &registry.Catalogue{
		ResourceBase: registry.ResourceBase{Name: "Partner Catalogue"},
		Users:        []registry.User{{Email: "ops@partner.example"}},
	}}, "")
	require.NoError(t, err)
	catSet := vocabulary.StatusesFor(registry.KindCatalogue)
	_, _, err = r.Catalogues.Verify(ctx, cat.ID, catSet.Approved, true)
	require.NoError(t, err)

	prov, err := r.Providers.Add(ctx, &registry.Bundle[*registry.Provider]{Payload: &registry.Provider{
		ResourceBase: registry.ResourceBase{Name: "Acme Research"},
		Users:        []registry.User{{Email: "rep@acme.example"}},
	}}, "")
	require.NoError(t, err)
	provSet := vocabulary.StatusesFor(registry.KindProvider)
	_, _, err = r.Providers.Verify(ctx, prov.ID, provSet.Approved, true)
	require.NoError(t, err)

	svc, err := r.Services.Add(ctx, &registry.Bundle[*registry.Service]{Payload: &registry.Service{
		ResourceBase:         registry.ResourceBase{Name: "Atlas Compute"},
		ResourceOrganisation: prov.ID,
	}}, "")
	require.NoError(t, err)
	svcSet := vocabulary.StatusesFor(registry.KindService)
	_, _, err = r.Services.Verify(ctx, svc.ID, svcSet.Approved, true)
	require.NoError(t, err)

	ds, err := r.Datasources.Add(ctx, &registry.Bundle[*registry.Datasource]{Payload: &registry.Datasource{
		ResourceBase: registry.ResourceBase{Name: "Atlas Datasource"},
		ServiceID:    svc.ID,
	}}, "")
	require.NoError(t, err)

	return &fixture{
		r:        r,
		m:        New(r, nil, discard),
		ctx:      ctx,
		provider: prov.ID,
		service:  svc.ID,
		dataset:  ds.ID,
		partner:  cat.ID,
	}
}

func TestChangeProviderCatalogue(t *testing.T) {
	f := newFixture(t)

	prov, report, err := f.m.ChangeProviderCatalogue(f.ctx, f.provider, f.partner, "institutional reorg")
	require.NoError(t, err)
	assert.False(t, report.Failed())
	assert.Equal(t, f.partner, prov.Payload.CatalogueID)
	require.NotNil(t, prov.MigrationStatus)
	assert.Equal(t, "main", prov.MigrationStatus.CurrentCatalogue)
	assert.Equal(t, f.partner, prov.MigrationStatus.TargetCatalogue)

	// Everything the provider owns moved along.
	svc, err := f.r.Services.Get(f.ctx, f.service)
	require.NoError(t, err)
	assert.Equal(t, f.partner, svc.Payload.CatalogueID)
	ds, err := f.r.Datasources.Get(f.ctx, f.dataset)
	require.NoError(t, err)
	assert.Equal(t, f.partner, ds.Payload.CatalogueID)

	// The service's public mirror followed it to the new catalogue prefix.
	rec, err := f.r.Store.Get(registry.KindService.PublicType(), public.ID("main", f.service))
	require.NoError(t, err)
	assert.Nil(t, rec)
	rec, err = f.r.Store.Get(registry.KindService.PublicType(), public.ID(f.partner, f.service))
	require.NoError(t, err)
	assert.NotNil(t, rec)
}

func TestChangeProviderCatalogueRoundTrip(t *testing.T) {
	f := newFixture(t)

	_, _, err := f.m.ChangeProviderCatalogue(f.ctx, f.provider, f.partner, "out")
	require.NoError(t, err)
	// The home catalogue needs no catalogue record to be a valid target.
	prov, _, err := f.m.ChangeProviderCatalogue(f.ctx, f.provider, "main", "back")
	require.NoError(t, err)
	assert.Equal(t, "main", prov.Payload.CatalogueID)
	assert.Equal(t, f.partner, prov.MigrationStatus.CurrentCatalogue)

	svc, err := f.r.Services.Get(f.ctx, f.service)
	require.NoError(t, err)
	assert.Equal(t, "main", svc.Payload.CatalogueID)
}

func TestChangeProviderCatalogueGating(t *testing.T) {
	f := newFixture(t)

	t.Run("admin only", func(t *testing.T) {
		ctx := auth.WithUser(context.Background(), auth.User{Email: "rep@acme.example"})
		_, _, err := f.m.ChangeProviderCatalogue(ctx, f.provider, f.partner, "")
		assert.True(t, registry.IsCode(err, registry.CodeAccessDenied))
	})

	t.Run("target must exist", func(t *testing.T) {
		_, _, err := f.m.ChangeProviderCatalogue(f.ctx, f.provider, "no-such-catalogue", "")
		assert.True(t, registry.IsCode(err, registry.CodeValidation))
	})

	t.Run("target is required", func(t *testing.T) {
		_, _, err := f.m.ChangeProviderCatalogue(f.ctx, f.provider, "", "")
		assert.True(t, registry.IsCode(err, registry.CodeValidation))
	})

	t.Run("same catalogue is a no-op", func(t *testing.T) {
		prov, report, err := f.m.ChangeProviderCatalogue(f.ctx, f.provider, "main", "")
		require.NoError(t, err)
		assert.Empty(t, report.Warnings())
		assert.Nil(t, prov.MigrationStatus)
	})

	t.Run("unknown provider", func(t *testing.T) {
		_, _, err := f.m.ChangeProviderCatalogue(f.ctx, "main.ghost", f.partner, "")
		assert.True(t, registry.IsCode(err, registry.CodeNotFound))
	})
}

func TestChangeServiceProvider(t *testing.T) {
	f := newFixture(t)

	other, err := f.r.Providers.Add(f.ctx, &registry.Bundle[*registry.Provider]{Payload: &registry.Provider{
		ResourceBase: registry.ResourceBase{Name: "Beta Org"},
		Users:        []registry.User{{Email: "rep@beta.example"}},
	}}, "")
	require.NoError(t, err)

	svc, err := f.m.ChangeServiceProvider(f.ctx, f.service, other.ID, "handover")
	require.NoError(t, err)
	assert.Equal(t, other.ID, svc.Payload.ResourceOrganisation)

	// The reassignment is already in place, so repeating it changes nothing.
	again, err := f.m.ChangeServiceProvider(f.ctx, f.service, other.ID, "")
	require.NoError(t, err)
	assert.Equal(t, other.ID, again.Payload.ResourceOrganisation)

	t.Run("admin only", func(t *testing.T) {
		ctx := auth.WithUser(context.Background(), auth.User{Email: "rep@acme.example"})
		_, err := f.m.ChangeServiceProvider(ctx, f.service, f.provider, "")
		assert.True(t, registry.IsCode(err, registry.CodeAccessDenied))
	})

	t.Run("providers must share the catalogue", func(t *testing.T) {
		_, _, err := f.m.ChangeProviderCatalogue(f.ctx, f.provider, f.partner, "away")
		require.NoError(t, err)
		_, err = f.m.ChangeServiceProvider(f.ctx, f.service, f.provider, "")
		assert.True(t, registry.IsCode(err, registry.CodeValidation))
	})
}
