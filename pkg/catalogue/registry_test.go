package catalogue

import (
	"context"
	"io"
	"log/slog"
	"strings"
	"testing"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/madgeek-arc/resource-catalogue/pkg/auth"
	"github.com/madgeek-arc/resource-catalogue/pkg/public"
	"github.com/madgeek-arc/resource-catalogue/pkg/registry"
	"github.com/madgeek-arc/resource-catalogue/pkg/vocabulary"
)

func newTestRegistry(t *testing.T) *Registry {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	r, err := New(Options{DB: db, Logger: slog.New(slog.NewTextHandler(io.Discard, nil))})
	require.NoError(t, err)
	return r
}

func adminCtx() context.Context {
	return auth.WithUser(context.Background(), auth.User{
		Email:    "admin@registry.example",
		FullName: "Registry Admin",
		Roles:    []string{auth.RoleAdmin},
	})
}

func userCtx(email string) context.Context {
	return auth.WithUser(context.Background(), auth.User{Email: email, FullName: "Provider Rep"})
}

func testProvider(name string) *registry.Bundle[*registry.Provider] {
	return &registry.Bundle[*registry.Provider]{Payload: &registry.Provider{
		ResourceBase: registry.ResourceBase{Name: name},
		Users:        []registry.User{{Email: "rep@acme.example", Name: "Ada"}},
	}}
}

func testService(providerID, name string) *registry.Bundle[*registry.Service] {
	return &registry.Bundle[*registry.Service]{Payload: &registry.Service{
		ResourceBase:         registry.ResourceBase{Name: name},
		ResourceOrganisation: providerID,
	}}
}

// onboardProvider registers and approves a provider under the home
// catalogue, returning its id. The provider template stays pending.
func onboardProvider(t *testing.T, r *Registry, name string) string {
	t.Helper()
	ctx := adminCtx()
	b, err := r.Providers.Add(ctx, testProvider(name), "")
	require.NoError(t, err)
	set := vocabulary.StatusesFor(registry.KindProvider)
	_, _, err = r.Providers.Verify(ctx, b.ID, set.Approved, true)
	require.NoError(t, err)
	return b.ID
}

// onboardService registers a service and approves it if onboarding did not
// auto-approve it already.
func onboardService(t *testing.T, r *Registry, providerID, name string) string {
	t.Helper()
	ctx := adminCtx()
	set := vocabulary.StatusesFor(registry.KindService)
	b, err := r.Services.Add(ctx, testService(providerID, name), "")
	require.NoError(t, err)
	if b.Status != set.Approved {
		_, _, err = r.Services.Verify(ctx, b.ID, set.Approved, true)
		require.NoError(t, err)
	}
	return b.ID
}

func TestProviderOnboarding(t *testing.T) {
	r := newTestRegistry(t)
	ctx := adminCtx()
	set := vocabulary.StatusesFor(registry.KindProvider)

	b, err := r.Providers.Add(ctx, testProvider("Acme Research"), "")
	require.NoError(t, err)
	assert.Equal(t, "main.acme_research", b.ID)
	assert.Equal(t, set.Pending, b.Status)
	assert.False(t, b.Active)
	assert.False(t, b.Suspended)
	assert.Equal(t, registry.NotAudited, b.AuditState)
	assert.True(t, strings.HasPrefix(b.PID(), "prv/"))
	require.NotNil(t, b.Metadata)
	assert.Equal(t, "Registry Admin", b.Metadata.RegisteredBy)
	require.Len(t, b.LoggingInfo, 1)
	require.NotNil(t, b.LatestOnboardingInfo)
	assert.Equal(t, registry.ActionRegistered, b.LatestOnboardingInfo.ActionType)

	t.Run("requires authentication", func(t *testing.T) {
		_, err := r.Providers.Add(context.Background(), testProvider("Nobody"), "")
		assert.True(t, registry.IsCode(err, registry.CodeAccessDenied))
	})

	t.Run("rejects duplicate id", func(t *testing.T) {
		_, err := r.Providers.Add(ctx, testProvider("Acme Research"), "")
		assert.True(t, registry.IsCode(err, registry.CodeAlreadyExists))
	})

	t.Run("requires a user with an email", func(t *testing.T) {
		bad := &registry.Bundle[*registry.Provider]{Payload: &registry.Provider{
			ResourceBase: registry.ResourceBase{Name: "No Contacts"},
		}}
		_, err := r.Providers.Add(ctx, bad, "")
		assert.True(t, registry.IsCode(err, registry.CodeValidation))
	})
}

func TestVerifyTransitions(t *testing.T) {
	r := newTestRegistry(t)
	ctx := adminCtx()
	set := vocabulary.StatusesFor(registry.KindProvider)

	b, err := r.Providers.Add(ctx, testProvider("Acme Research"), "")
	require.NoError(t, err)
	id := b.ID

	t.Run("admin only", func(t *testing.T) {
		_, _, err := r.Providers.Verify(userCtx("rep@acme.example"), id, set.Approved, true)
		assert.True(t, registry.IsCode(err, registry.CodeAccessDenied))
	})

	t.Run("unknown status", func(t *testing.T) {
		_, _, err := r.Providers.Verify(ctx, id, "definitely not a status", false)
		assert.True(t, registry.IsCode(err, registry.CodeValidation))
	})

	b, report, err := r.Providers.Verify(ctx, id, set.Approved, true)
	require.NoError(t, err)
	assert.False(t, report.Failed())
	assert.Equal(t, set.Approved, b.Status)
	assert.True(t, b.Active)

	// Approval projects the record into the public mirror.
	pub, err := r.PublicProviders.GetPublic(ctx, public.ID("main", id))
	require.NoError(t, err)
	assert.Equal(t, public.ID("main", id), pub.ID)
	require.NotNil(t, pub.Metadata)
	assert.True(t, pub.Metadata.Published)

	// Rejection deactivates the record and drops the mirror.
	b, _, err = r.Providers.Verify(ctx, id, set.Rejected, true)
	require.NoError(t, err)
	assert.Equal(t, set.Rejected, b.Status)
	assert.False(t, b.Active)
	rec, err := r.Store.Get(registry.KindProvider.PublicType(), public.ID("main", id))
	require.NoError(t, err)
	assert.Nil(t, rec)

	t.Run("rejected cannot be approved directly", func(t *testing.T) {
		_, _, err := r.Providers.Verify(ctx, id, set.Approved, true)
		assert.True(t, registry.IsCode(err, registry.CodeConflict))
	})

	// The legal way back is through pending.
	_, _, err = r.Providers.Verify(ctx, id, set.Pending, false)
	require.NoError(t, err)
	b, _, err = r.Providers.Verify(ctx, id, set.Approved, true)
	require.NoError(t, err)
	assert.Equal(t, set.Approved, b.Status)
}

func TestProviderTemplateFlow(t *testing.T) {
	r := newTestRegistry(t)
	ctx := adminCtx()
	svcSet := vocabulary.StatusesFor(registry.KindService)

	provID := onboardProvider(t, r, "Acme Research")

	// The first service goes through a manual review.
	first, err := r.Services.Add(ctx, testService(provID, "Atlas Compute"), "")
	require.NoError(t, err)
	assert.Equal(t, svcSet.Pending, first.Status)
	assert.False(t, first.Active)

	_, report, err := r.Services.Verify(ctx, first.ID, svcSet.Approved, true)
	require.NoError(t, err)
	assert.False(t, report.Failed())

	prov, err := r.Providers.Get(ctx, provID)
	require.NoError(t, err)
	assert.Equal(t, vocabulary.TemplateStatuses.Approved, prov.TemplateStatus)

	// With the template approved, further services skip review entirely.
	second, err := r.Services.Add(ctx, testService(provID, "Atlas Storage"), "")
	require.NoError(t, err)
	assert.Equal(t, svcSet.Approved, second.Status)
	assert.True(t, second.Active)
	last := second.LoggingInfo[len(second.LoggingInfo)-1]
	assert.Equal(t, registry.ActionApproved, last.ActionType)

	_, err = r.PublicServices.GetPublic(ctx, public.ID("main", second.ID))
	require.NoError(t, err)
}

func TestRejectedServiceRejectsTemplate(t *testing.T) {
	r := newTestRegistry(t)
	ctx := adminCtx()
	svcSet := vocabulary.StatusesFor(registry.KindService)

	provID := onboardProvider(t, r, "Beta Org")
	svc, err := r.Services.Add(ctx, testService(provID, "Beta Portal"), "")
	require.NoError(t, err)

	_, _, err = r.Services.Verify(ctx, svc.ID, svcSet.Rejected, false)
	require.NoError(t, err)

	prov, err := r.Providers.Get(ctx, provID)
	require.NoError(t, err)
	assert.Equal(t, vocabulary.TemplateStatuses.Rejected, prov.TemplateStatus)
}

func TestRejectedProviderRejectsTemplate(t *testing.T) {
	r := newTestRegistry(t)
	ctx := adminCtx()
	set := vocabulary.StatusesFor(registry.KindProvider)

	b, err := r.Providers.Add(ctx, testProvider("Gamma Org"), "")
	require.NoError(t, err)
	_, report, err := r.Providers.Verify(ctx, b.ID, set.Rejected, false)
	require.NoError(t, err)
	assert.False(t, report.Failed())

	prov, err := r.Providers.Get(ctx, b.ID)
	require.NoError(t, err)
	assert.Equal(t, vocabulary.TemplateStatuses.Rejected, prov.TemplateStatus)
}

func TestPublishGating(t *testing.T) {
	r := newTestRegistry(t)
	ctx := adminCtx()
	svcSet := vocabulary.StatusesFor(registry.KindService)

	provID := onboardProvider(t, r, "Acme Research")
	svc, err := r.Services.Add(ctx, testService(provID, "Atlas Compute"), "")
	require.NoError(t, err)

	t.Run("pending record cannot be activated", func(t *testing.T) {
		_, _, err := r.Services.Publish(ctx, svc.ID, true)
		assert.True(t, registry.IsCode(err, registry.CodeConflict))
	})

	_, _, err = r.Services.Verify(ctx, svc.ID, svcSet.Approved, true)
	require.NoError(t, err)

	b, _, err := r.Services.Publish(ctx, svc.ID, false)
	require.NoError(t, err)
	assert.False(t, b.Active)

	// Repeating the same toggle is a no-op.
	b, report, err := r.Services.Publish(ctx, svc.ID, false)
	require.NoError(t, err)
	assert.False(t, b.Active)
	assert.Empty(t, report.Warnings())

	// A deactivated provider blocks activation of its services.
	_, _, err = r.Providers.Publish(ctx, provID, false)
	require.NoError(t, err)
	_, _, err = r.Services.Publish(ctx, svc.ID, true)
	assert.True(t, registry.IsCode(err, registry.CodeConflict))

	// Reactivating the provider cascades down to the service.
	_, report, err = r.Providers.Publish(ctx, provID, true)
	require.NoError(t, err)
	assert.False(t, report.Failed())
	b, err = r.Services.Get(ctx, svc.ID)
	require.NoError(t, err)
	assert.True(t, b.Active)
}

func TestSuspensionCascade(t *testing.T) {
	r := newTestRegistry(t)
	ctx := adminCtx()

	provID := onboardProvider(t, r, "Acme Research")
	svcID := onboardService(t, r, provID, "Atlas Compute")
	ds, err := r.Datasources.Add(ctx, &registry.Bundle[*registry.Datasource]{Payload: &registry.Datasource{
		ResourceBase: registry.ResourceBase{Name: "Atlas Datasource"},
		ServiceID:    svcID,
	}}, "")
	require.NoError(t, err)

	_, report, err := r.Providers.Suspend(ctx, provID, true)
	require.NoError(t, err)
	assert.False(t, report.Failed())

	svc, err := r.Services.Get(ctx, svcID)
	require.NoError(t, err)
	assert.True(t, svc.Suspended)
	dsb, err := r.Datasources.Get(ctx, ds.ID)
	require.NoError(t, err)
	assert.True(t, dsb.Suspended)

	t.Run("no onboarding under a suspended owner", func(t *testing.T) {
		_, err := r.Services.Add(ctx, testService(provID, "Atlas Archive"), "")
		assert.True(t, registry.IsCode(err, registry.CodeConflict))
	})

	t.Run("only admins unsuspend under a suspended owner", func(t *testing.T) {
		_, _, err := r.Services.Suspend(userCtx("rep@acme.example"), svcID, false)
		assert.True(t, registry.IsCode(err, registry.CodeValidation))
	})

	_, _, err = r.Providers.Suspend(ctx, provID, false)
	require.NoError(t, err)
	svc, err = r.Services.Get(ctx, svcID)
	require.NoError(t, err)
	assert.False(t, svc.Suspended)
}

func TestDeleteCascades(t *testing.T) {
	r := newTestRegistry(t)
	ctx := adminCtx()

	provID := onboardProvider(t, r, "Acme Research")
	svcID := onboardService(t, r, provID, "Atlas Compute")
	hd, err := r.Helpdesks.Add(ctx, &registry.Bundle[*registry.Helpdesk]{Payload: &registry.Helpdesk{
		ResourceBase: registry.ResourceBase{Name: "Atlas Helpdesk"},
		ServiceID:    svcID,
	}}, "")
	require.NoError(t, err)

	report, err := r.Providers.Delete(ctx, provID)
	require.NoError(t, err)
	assert.False(t, report.Failed())

	_, err = r.Providers.Get(ctx, provID)
	assert.True(t, registry.IsCode(err, registry.CodeNotFound))
	_, err = r.Services.Get(ctx, svcID)
	assert.True(t, registry.IsCode(err, registry.CodeNotFound))
	_, err = r.Helpdesks.Get(ctx, hd.ID)
	assert.True(t, registry.IsCode(err, registry.CodeNotFound))

	rec, err := r.Store.Get(registry.KindService.PublicType(), public.ID("main", svcID))
	require.NoError(t, err)
	assert.Nil(t, rec)
}

func TestAuditFlow(t *testing.T) {
	r := newTestRegistry(t)
	ctx := adminCtx()

	provID := onboardProvider(t, r, "Acme Research")
	svcID := onboardService(t, r, provID, "Atlas Compute")

	t.Run("admin only", func(t *testing.T) {
		_, err := r.Services.Audit(userCtx("rep@acme.example"), svcID, "looks off", registry.ActionInvalid)
		assert.True(t, registry.IsCode(err, registry.CodeAccessDenied))
	})

	t.Run("verdict must be valid or invalid", func(t *testing.T) {
		_, err := r.Services.Audit(ctx, svcID, "", registry.ActionUpdated)
		assert.True(t, registry.IsCode(err, registry.CodeValidation))
	})

	b, err := r.Services.Audit(ctx, svcID, "stale contact data", registry.ActionInvalid)
	require.NoError(t, err)
	assert.Equal(t, registry.InvalidAndNotUpdated, b.AuditState)
	require.NotNil(t, b.LatestAuditInfo)
	assert.Equal(t, "stale contact data", b.LatestAuditInfo.Comment)

	// Fixing the record flips the audit state to invalid-and-updated.
	b, err = r.Services.Get(ctx, svcID)
	require.NoError(t, err)
	b.Payload.Tagline = "now with fresh contacts"
	b, err = r.Services.Update(ctx, b, "", "refreshed contacts")
	require.NoError(t, err)
	assert.Equal(t, registry.InvalidAndUpdated, b.AuditState)

	b, err = r.Services.Audit(ctx, svcID, "", registry.ActionValid)
	require.NoError(t, err)
	assert.Equal(t, registry.Valid, b.AuditState)
}

func TestUpdateSemantics(t *testing.T) {
	r := newTestRegistry(t)
	ctx := adminCtx()
	svcSet := vocabulary.StatusesFor(registry.KindService)

	provID := onboardProvider(t, r, "Acme Research")
	svcID := onboardService(t, r, provID, "Atlas Compute")

	t.Run("identical payload is a no-op", func(t *testing.T) {
		before, err := r.Services.Get(ctx, svcID)
		require.NoError(t, err)
		after, err := r.Services.Update(ctx, before, "", "")
		require.NoError(t, err)
		assert.Len(t, after.LoggingInfo, len(before.LoggingInfo))
	})

	t.Run("workflow state cannot be smuggled in", func(t *testing.T) {
		b, err := r.Services.Get(ctx, svcID)
		require.NoError(t, err)
		b.Payload.Description = "a compute platform"
		b.Status = "made up status"
		b.Suspended = true
		out, err := r.Services.Update(ctx, b, "", "")
		require.NoError(t, err)
		assert.Equal(t, svcSet.Approved, out.Status)
		assert.False(t, out.Suspended)

		pub, err := r.PublicServices.GetPublic(ctx, public.ID("main", svcID))
		require.NoError(t, err)
		assert.Equal(t, "a compute platform", pub.Payload.Description)
	})

	t.Run("updating a rejected record resubmits it", func(t *testing.T) {
		rej, err := r.Services.Add(ctx, testService(provID, "Atlas Archive"), "")
		require.NoError(t, err)
		_, _, err = r.Services.Verify(ctx, rej.ID, svcSet.Rejected, false)
		require.NoError(t, err)
		rej, err = r.Services.Get(ctx, rej.ID)
		require.NoError(t, err)
		rej.Payload.Description = "second try"
		out, err := r.Services.Update(ctx, rej, "", "fixed the profile")
		require.NoError(t, err)
		assert.Equal(t, svcSet.Pending, out.Status)
	})

	t.Run("only admins move records between catalogues", func(t *testing.T) {
		b, err := r.Services.Get(ctx, svcID)
		require.NoError(t, err)
		b.Payload.SetCatalogueID("")
		_, err = r.Services.Update(userCtx("rep@acme.example"), b, "partner-cat", "")
		assert.True(t, registry.IsCode(err, registry.CodeAccessDenied))
	})
}

func TestExternalCatalogueOnboarding(t *testing.T) {
	r := newTestRegistry(t)
	ctx := adminCtx()
	catSet := vocabulary.StatusesFor(registry.KindCatalogue)

	cat, err := r.Catalogues.Add(ctx, &registry.Bundle[*registry.Catalogue]{Payload: &registry.Catalogue{
		ResourceBase: registry.ResourceBase{Name: "Partner Catalogue"},
		Users:        []registry.User{{Email: "ops@partner.example"}},
	}}, "")
	require.NoError(t, err)
	_, _, err = r.Catalogues.Verify(ctx, cat.ID, catSet.Approved, true)
	require.NoError(t, err)

	external := func(id, pid string) *registry.Bundle[*registry.Provider] {
		b := testProvider("Partner Org")
		b.Payload.ID = id
		if pid != "" {
			b.Identifiers = &registry.Identifiers{PID: pid}
		}
		return b
	}

	t.Run("external records must carry an id", func(t *testing.T) {
		_, err := r.Providers.Add(ctx, external("", "prv/partner-1"), cat.ID)
		assert.True(t, registry.IsCode(err, registry.CodeValidation))
	})

	t.Run("external records must carry a PID", func(t *testing.T) {
		_, err := r.Providers.Add(ctx, external("partner.org", ""), cat.ID)
		assert.True(t, registry.IsCode(err, registry.CodeValidation))
	})

	b, err := r.Providers.Add(ctx, external("partner.org", "prv/partner-1"), cat.ID)
	require.NoError(t, err)
	assert.Equal(t, "partner.org", b.ID)
	assert.Equal(t, "prv/partner-1", b.PID())
	assert.Equal(t, cat.ID, b.Payload.CatalogueID)

	t.Run("PIDs stay unique across records", func(t *testing.T) {
		_, err := r.Providers.Add(ctx, external("partner.other", "prv/partner-1"), cat.ID)
		assert.True(t, registry.IsCode(err, registry.CodeValidation))
	})
}

func TestGuidelineDetachment(t *testing.T) {
	r := newTestRegistry(t)
	ctx := adminCtx()

	provID := onboardProvider(t, r, "Acme Research")
	svcID := onboardService(t, r, provID, "Atlas Compute")

	guideline := func(name string) *registry.Bundle[*registry.InteroperabilityRecord] {
		return &registry.Bundle[*registry.InteroperabilityRecord]{Payload: &registry.InteroperabilityRecord{
			ResourceBase: registry.ResourceBase{Name: name},
			ProviderID:   provID,
			Creators:     []string{"Ada Lovelace"},
		}}
	}
	g1, err := r.InteroperabilityRecords.Add(ctx, guideline("FAIR Guideline"), "")
	require.NoError(t, err)
	g2, err := r.InteroperabilityRecords.Add(ctx, guideline("Metadata Guideline"), "")
	require.NoError(t, err)

	rir, err := r.ResourceInteroperabilityRecords.Add(ctx, &registry.Bundle[*registry.ResourceInteroperabilityRecord]{
		Payload: &registry.ResourceInteroperabilityRecord{
			ResourceBase:              registry.ResourceBase{Name: "Atlas Guidelines"},
			ResourceID:                svcID,
			InteroperabilityRecordIDs: []string{g1.ID, g2.ID},
		},
	}, "")
	require.NoError(t, err)

	// Deleting one guideline detaches it from the link record.
	_, err = r.InteroperabilityRecords.Delete(ctx, g1.ID)
	require.NoError(t, err)
	b, err := r.ResourceInteroperabilityRecords.Get(ctx, rir.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{g2.ID}, b.Payload.InteroperabilityRecordIDs)

	// Deleting the last one removes the now-empty link record.
	_, err = r.InteroperabilityRecords.Delete(ctx, g2.ID)
	require.NoError(t, err)
	_, err = r.ResourceInteroperabilityRecords.Get(ctx, rir.ID)
	assert.True(t, registry.IsCode(err, registry.CodeNotFound))
}

func TestExtensionUniqueness(t *testing.T) {
	r := newTestRegistry(t)
	ctx := adminCtx()

	provID := onboardProvider(t, r, "Acme Research")
	svcID := onboardService(t, r, provID, "Atlas Compute")

	_, err := r.Datasources.Add(ctx, &registry.Bundle[*registry.Datasource]{Payload: &registry.Datasource{
		ResourceBase: registry.ResourceBase{Name: "Primary"},
		ServiceID:    svcID,
	}}, "")
	require.NoError(t, err)

	_, err = r.Datasources.Add(ctx, &registry.Bundle[*registry.Datasource]{Payload: &registry.Datasource{
		ResourceBase: registry.ResourceBase{Name: "Secondary"},
		ServiceID:    svcID,
	}}, "")
	assert.True(t, registry.IsCode(err, registry.CodeConflict))
}

func TestAdapterLinkValidation(t *testing.T) {
	r := newTestRegistry(t)
	ctx := adminCtx()

	provID := onboardProvider(t, r, "Acme Research")
	svcID := onboardService(t, r, provID, "Atlas Compute")

	_, err := r.Adapters.Add(ctx, &registry.Bundle[*registry.Adapter]{Payload: &registry.Adapter{
		ResourceBase:   registry.ResourceBase{Name: "Broken Adapter"},
		LinkedResource: "no-such-resource",
	}}, "")
	assert.True(t, registry.IsCode(err, registry.CodeValidation))

	b, err := r.Adapters.Add(ctx, &registry.Bundle[*registry.Adapter]{Payload: &registry.Adapter{
		ResourceBase:   registry.ResourceBase{Name: "Atlas Adapter"},
		LinkedResource: svcID,
	}}, "")
	require.NoError(t, err)
	assert.Equal(t, vocabulary.StatusesFor(registry.KindAdapter).Pending, b.Status)
}
