// Package migration moves resources across catalogues and providers,
// rewriting every dependent record's references and republishing the
// affected public projections.
package migration

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/madgeek-arc/resource-catalogue/pkg/auth"
	"github.com/madgeek-arc/resource-catalogue/pkg/catalogue"
	"github.com/madgeek-arc/resource-catalogue/pkg/metrics"
	"github.com/madgeek-arc/resource-catalogue/pkg/notify"
	"github.com/madgeek-arc/resource-catalogue/pkg/registry"
	"github.com/madgeek-arc/resource-catalogue/pkg/store"
	"github.com/madgeek-arc/resource-catalogue/pkg/workflow"
)

// Migrator executes cross-catalogue and cross-provider moves.
type Migrator struct {
	r      *catalogue.Registry
	outbox *notify.OutboxStore
	logger *slog.Logger
}

// New builds a Migrator over the assembled registry.
func New(r *catalogue.Registry, outbox *notify.OutboxStore, logger *slog.Logger) *Migrator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Migrator{r: r, outbox: outbox, logger: logger}
}

// ChangeProviderCatalogue moves a provider and everything it owns into
// another catalogue. The provider move must succeed; dependent moves are
// best-effort and surface on the report.
func (m *Migrator) ChangeProviderCatalogue(ctx context.Context, providerID, targetCatalogue, comment string) (*registry.Bundle[*registry.Provider], *workflow.CascadeReport, error) {
	b, report, err := m.changeProviderCatalogue(ctx, providerID, targetCatalogue, comment)
	metrics.RecordOperation(string(registry.KindProvider), "migrate", err)
	return b, report, err
}

func (m *Migrator) changeProviderCatalogue(ctx context.Context, providerID, targetCatalogue, comment string) (*registry.Bundle[*registry.Provider], *workflow.CascadeReport, error) {
	user, _ := auth.UserFromContext(ctx)
	if !user.IsAdmin() {
		return nil, nil, registry.AccessDeniedf("only administrators may migrate a provider")
	}
	if targetCatalogue == "" {
		return nil, nil, registry.Validationf("target catalogue id is required")
	}
	if targetCatalogue != m.r.HomeCatalogue() && !m.catalogueExists(targetCatalogue) {
		return nil, nil, registry.Validationf("target catalogue %q does not exist", targetCatalogue)
	}

	prov, err := m.r.Providers.Get(ctx, providerID)
	if err != nil {
		return nil, nil, err
	}
	source := prov.Payload.CatalogueID
	if source == targetCatalogue {
		return prov, &workflow.CascadeReport{}, nil
	}

	prov, err = m.r.Providers.Move(ctx, providerID, targetCatalogue, comment)
	if err != nil {
		return nil, nil, err
	}

	report := &workflow.CascadeReport{}
	m.moveOwned(ctx, providerID, targetCatalogue, comment, report)

	m.r.Cache().InvalidateAll()
	m.emitEvent(providerID, source, targetCatalogue)
	m.logger.Info("provider migrated",
		"providerID", providerID, "from", source, "to", targetCatalogue, "warnings", len(report.Warnings()))
	return prov, report, nil
}

// moveOwned moves every resource owned by the provider into the target
// catalogue.
func (m *Migrator) moveOwned(ctx context.Context, providerID, targetCatalogue, comment string, report *workflow.CascadeReport) {
	services, err := all(ctx, m.r.Services.List)
	if err == nil {
		for _, svc := range services {
			if svc.Payload.ResourceOrganisation != providerID {
				continue
			}
			_, err := m.r.Services.Move(ctx, svc.ID, targetCatalogue, comment)
			step(report, registry.KindService, svc.ID, err)
			if err != nil {
				continue
			}
			m.moveServiceExtensions(ctx, svc.ID, targetCatalogue, comment, report)
		}
	}
	trainings, err := all(ctx, m.r.TrainingResources.List)
	if err == nil {
		for _, t := range trainings {
			if t.Payload.ResourceOrganisation == providerID {
				_, err := m.r.TrainingResources.Move(ctx, t.ID, targetCatalogue, comment)
				step(report, registry.KindTrainingResource, t.ID, err)
			}
		}
	}
	guidelines, err := all(ctx, m.r.InteroperabilityRecords.List)
	if err == nil {
		for _, g := range guidelines {
			if g.Payload.ProviderID == providerID {
				_, err := m.r.InteroperabilityRecords.Move(ctx, g.ID, targetCatalogue, comment)
				step(report, registry.KindInteroperabilityRecord, g.ID, err)
			}
		}
	}
}

func (m *Migrator) moveServiceExtensions(ctx context.Context, serviceID, targetCatalogue, comment string, report *workflow.CascadeReport) {
	if list, err := all(ctx, m.r.Datasources.List); err == nil {
		for _, d := range list {
			if d.Payload.ServiceID == serviceID {
				_, err := m.r.Datasources.Move(ctx, d.ID, targetCatalogue, comment)
				step(report, registry.KindDatasource, d.ID, err)
			}
		}
	}
	if list, err := all(ctx, m.r.Helpdesks.List); err == nil {
		for _, h := range list {
			if h.Payload.ServiceID == serviceID {
				_, err := m.r.Helpdesks.Move(ctx, h.ID, targetCatalogue, comment)
				step(report, registry.KindHelpdesk, h.ID, err)
			}
		}
	}
	if list, err := all(ctx, m.r.Monitorings.List); err == nil {
		for _, mo := range list {
			if mo.Payload.ServiceID == serviceID {
				_, err := m.r.Monitorings.Move(ctx, mo.ID, targetCatalogue, comment)
				step(report, registry.KindMonitoring, mo.ID, err)
			}
		}
	}
	if list, err := all(ctx, m.r.ResourceInteroperabilityRecords.List); err == nil {
		for _, rr := range list {
			if rr.Payload.ResourceID == serviceID {
				_, err := m.r.ResourceInteroperabilityRecords.Move(ctx, rr.ID, targetCatalogue, comment)
				step(report, registry.KindResourceInteroperabilityRecord, rr.ID, err)
			}
		}
	}
	if list, err := all(ctx, m.r.ConfigurationTemplateInstances.List); err == nil {
		for _, c := range list {
			if c.Payload.ResourceID == serviceID {
				_, err := m.r.ConfigurationTemplateInstances.Move(ctx, c.ID, targetCatalogue, comment)
				step(report, registry.KindConfigurationTemplateInstance, c.ID, err)
			}
		}
	}
}

// ChangeServiceProvider reassigns a service to another provider within the
// same catalogue.
func (m *Migrator) ChangeServiceProvider(ctx context.Context, serviceID, newProviderID, comment string) (*registry.Bundle[*registry.Service], error) {
	b, err := m.changeServiceProvider(ctx, serviceID, newProviderID, comment)
	metrics.RecordOperation(string(registry.KindService), "migrate", err)
	return b, err
}

func (m *Migrator) changeServiceProvider(ctx context.Context, serviceID, newProviderID, comment string) (*registry.Bundle[*registry.Service], error) {
	user, _ := auth.UserFromContext(ctx)
	if !user.IsAdmin() {
		return nil, registry.AccessDeniedf("only administrators may reassign a service")
	}
	svc, err := m.r.Services.Get(ctx, serviceID)
	if err != nil {
		return nil, err
	}
	if svc.Payload.ResourceOrganisation == newProviderID {
		return svc, nil
	}
	prov, err := m.r.Providers.Get(ctx, newProviderID)
	if err != nil {
		return nil, err
	}
	if prov.Payload.CatalogueID != svc.Payload.CatalogueID {
		return nil, registry.Validationf("service %q and provider %q belong to different catalogues", serviceID, newProviderID)
	}

	out, err := m.r.Services.Rewrite(ctx, serviceID, func(s *registry.Service) {
		s.ResourceOrganisation = newProviderID
	}, comment)
	if err != nil {
		return nil, err
	}
	m.emitEvent(serviceID, svc.Payload.ResourceOrganisation, newProviderID)
	m.logger.Info("service reassigned",
		"serviceID", serviceID, "from", svc.Payload.ResourceOrganisation, "to", newProviderID)
	return out, nil
}

func (m *Migrator) catalogueExists(id string) bool {
	rec, err := m.r.Store.Get(registry.KindCatalogue.ResourceType(), id)
	return err == nil && rec != nil
}

func (m *Migrator) emitEvent(resourceID, from, to string) {
	if m.outbox == nil {
		return
	}
	err := m.outbox.Enqueue(&notify.Dispatch{
		Kind:       notify.KindEvent,
		Recipient:  "registry.migration",
		Body:       fmt.Sprintf(`{"id":%q,"from":%q,"to":%q}`, resourceID, from, to),
		ResourceID: resourceID,
		Action:     "migrated",
	})
	if err != nil {
		m.logger.Error("failed to enqueue migration event", "resourceID", resourceID, "error", err)
	}
}

// all drains every page of a manager's listing.
func all[T registry.Payload](ctx context.Context, list func(context.Context, store.ListOptions) ([]*registry.Bundle[T], string, int, error)) ([]*registry.Bundle[T], error) {
	opts := store.ListOptions{PageSize: 100}
	var out []*registry.Bundle[T]
	for {
		page, next, _, err := list(ctx, opts)
		if err != nil {
			return nil, err
		}
		out = append(out, page...)
		if next == "" {
			return out, nil
		}
		opts.PageToken = next
	}
}

func step(report *workflow.CascadeReport, kind registry.Kind, id string, err error) {
	metrics.RecordCascadeStep("migration", err != nil)
	if err != nil {
		report.Fail("migration", id, "move "+string(kind), err)
		return
	}
	report.Ok("migration", id, "move "+string(kind))
}
