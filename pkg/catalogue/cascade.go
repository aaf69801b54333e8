package catalogue

import (
	"context"
	"encoding/json"

	"github.com/madgeek-arc/resource-catalogue/pkg/registry"
	"github.com/madgeek-arc/resource-catalogue/pkg/workflow"
)

// serviceCascade propagates service state changes to the service's
// extension records (datasource, helpdesk, monitoring, interoperability
// links, configuration template instances).
type serviceCascade struct{ r *Registry }

func (c serviceCascade) Activate(ctx context.Context, serviceID string, active bool, report *workflow.CascadeReport) {
	c.each(serviceID, func(kind registry.Kind, id string) {
		var err error
		switch kind {
		case registry.KindDatasource:
			err = c.r.Datasources.CascadeSetActive(ctx, id, active)
		case registry.KindHelpdesk:
			err = c.r.Helpdesks.CascadeSetActive(ctx, id, active)
		case registry.KindMonitoring:
			err = c.r.Monitorings.CascadeSetActive(ctx, id, active)
		case registry.KindResourceInteroperabilityRecord:
			err = c.r.ResourceInteroperabilityRecords.CascadeSetActive(ctx, id, active)
		case registry.KindConfigurationTemplateInstance:
			err = c.r.ConfigurationTemplateInstances.CascadeSetActive(ctx, id, active)
		}
		recordStep(report, string(kind), id, "set-active", err)
	})
}

func (c serviceCascade) Suspend(ctx context.Context, serviceID string, suspended bool, report *workflow.CascadeReport) {
	c.each(serviceID, func(kind registry.Kind, id string) {
		var err error
		switch kind {
		case registry.KindDatasource:
			err = c.r.Datasources.CascadeSetSuspended(ctx, id, suspended)
		case registry.KindHelpdesk:
			err = c.r.Helpdesks.CascadeSetSuspended(ctx, id, suspended)
		case registry.KindMonitoring:
			err = c.r.Monitorings.CascadeSetSuspended(ctx, id, suspended)
		case registry.KindResourceInteroperabilityRecord:
			err = c.r.ResourceInteroperabilityRecords.CascadeSetSuspended(ctx, id, suspended)
		case registry.KindConfigurationTemplateInstance:
			err = c.r.ConfigurationTemplateInstances.CascadeSetSuspended(ctx, id, suspended)
		}
		recordStep(report, string(kind), id, "set-suspended", err)
	})
}

func (c serviceCascade) Delete(ctx context.Context, serviceID string, report *workflow.CascadeReport) {
	c.each(serviceID, func(kind registry.Kind, id string) {
		var err error
		switch kind {
		case registry.KindDatasource:
			err = c.r.Datasources.CascadeDelete(ctx, id)
		case registry.KindHelpdesk:
			err = c.r.Helpdesks.CascadeDelete(ctx, id)
		case registry.KindMonitoring:
			err = c.r.Monitorings.CascadeDelete(ctx, id)
		case registry.KindResourceInteroperabilityRecord:
			err = c.r.ResourceInteroperabilityRecords.CascadeDelete(ctx, id)
		case registry.KindConfigurationTemplateInstance:
			err = c.r.ConfigurationTemplateInstances.CascadeDelete(ctx, id)
		}
		recordStep(report, string(kind), id, "delete", err)
	})
}

// each visits every extension record bound to a service. Walk errors are
// swallowed: cascades are best-effort and a broken page must not abort the
// primary mutation.
func (c serviceCascade) each(serviceID string, fn func(kind registry.Kind, id string)) {
	_ = forEach(c.r.Store, registry.KindDatasource.ResourceType(), func(b *registry.Bundle[*registry.Datasource]) error {
		if b.Payload.ServiceID == serviceID {
			fn(registry.KindDatasource, b.ID)
		}
		return nil
	})
	_ = forEach(c.r.Store, registry.KindHelpdesk.ResourceType(), func(b *registry.Bundle[*registry.Helpdesk]) error {
		if b.Payload.ServiceID == serviceID {
			fn(registry.KindHelpdesk, b.ID)
		}
		return nil
	})
	_ = forEach(c.r.Store, registry.KindMonitoring.ResourceType(), func(b *registry.Bundle[*registry.Monitoring]) error {
		if b.Payload.ServiceID == serviceID {
			fn(registry.KindMonitoring, b.ID)
		}
		return nil
	})
	_ = forEach(c.r.Store, registry.KindResourceInteroperabilityRecord.ResourceType(), func(b *registry.Bundle[*registry.ResourceInteroperabilityRecord]) error {
		if b.Payload.ResourceID == serviceID {
			fn(registry.KindResourceInteroperabilityRecord, b.ID)
		}
		return nil
	})
	_ = forEach(c.r.Store, registry.KindConfigurationTemplateInstance.ResourceType(), func(b *registry.Bundle[*registry.ConfigurationTemplateInstance]) error {
		if b.Payload.ResourceID == serviceID {
			fn(registry.KindConfigurationTemplateInstance, b.ID)
		}
		return nil
	})
}

// providerCascade propagates provider state changes to the provider's
// services (and through them to service extensions), training resources,
// and interoperability records.
type providerCascade struct{ r *Registry }

func (c providerCascade) Activate(ctx context.Context, providerID string, active bool, report *workflow.CascadeReport) {
	svc := serviceCascade{c.r}
	c.eachService(providerID, func(id string) {
		err := c.r.Services.CascadeSetActive(ctx, id, active)
		recordStep(report, string(registry.KindService), id, "set-active", err)
		if err == nil {
			svc.Activate(ctx, id, active, report)
		}
	})
	c.eachTrainingResource(providerID, func(id string) {
		err := c.r.TrainingResources.CascadeSetActive(ctx, id, active)
		recordStep(report, string(registry.KindTrainingResource), id, "set-active", err)
	})
	c.eachInteroperabilityRecord(providerID, func(id string) {
		err := c.r.InteroperabilityRecords.CascadeSetActive(ctx, id, active)
		recordStep(report, string(registry.KindInteroperabilityRecord), id, "set-active", err)
	})
}

func (c providerCascade) Suspend(ctx context.Context, providerID string, suspended bool, report *workflow.CascadeReport) {
	svc := serviceCascade{c.r}
	c.eachService(providerID, func(id string) {
		err := c.r.Services.CascadeSetSuspended(ctx, id, suspended)
		recordStep(report, string(registry.KindService), id, "set-suspended", err)
		if err == nil {
			svc.Suspend(ctx, id, suspended, report)
		}
	})
	c.eachTrainingResource(providerID, func(id string) {
		err := c.r.TrainingResources.CascadeSetSuspended(ctx, id, suspended)
		recordStep(report, string(registry.KindTrainingResource), id, "set-suspended", err)
	})
	c.eachInteroperabilityRecord(providerID, func(id string) {
		err := c.r.InteroperabilityRecords.CascadeSetSuspended(ctx, id, suspended)
		recordStep(report, string(registry.KindInteroperabilityRecord), id, "set-suspended", err)
	})
}

func (c providerCascade) Delete(ctx context.Context, providerID string, report *workflow.CascadeReport) {
	svc := serviceCascade{c.r}
	c.eachService(providerID, func(id string) {
		svc.Delete(ctx, id, report)
		err := c.r.Services.CascadeDelete(ctx, id)
		recordStep(report, string(registry.KindService), id, "delete", err)
	})
	c.eachTrainingResource(providerID, func(id string) {
		err := c.r.TrainingResources.CascadeDelete(ctx, id)
		recordStep(report, string(registry.KindTrainingResource), id, "delete", err)
	})
	c.eachInteroperabilityRecord(providerID, func(id string) {
		err := c.r.InteroperabilityRecords.CascadeDelete(ctx, id)
		recordStep(report, string(registry.KindInteroperabilityRecord), id, "delete", err)
	})
}

func (c providerCascade) eachService(providerID string, fn func(id string)) {
	_ = forEach(c.r.Store, registry.KindService.ResourceType(), func(b *registry.Bundle[*registry.Service]) error {
		if b.Payload.ResourceOrganisation == providerID {
			fn(b.ID)
		}
		return nil
	})
}

func (c providerCascade) eachTrainingResource(providerID string, fn func(id string)) {
	_ = forEach(c.r.Store, registry.KindTrainingResource.ResourceType(), func(b *registry.Bundle[*registry.TrainingResource]) error {
		if b.Payload.ResourceOrganisation == providerID {
			fn(b.ID)
		}
		return nil
	})
}

func (c providerCascade) eachInteroperabilityRecord(providerID string, fn func(id string)) {
	_ = forEach(c.r.Store, registry.KindInteroperabilityRecord.ResourceType(), func(b *registry.Bundle[*registry.InteroperabilityRecord]) error {
		if b.Payload.ProviderID == providerID {
			fn(b.ID)
		}
		return nil
	})
}

// catalogueCascade propagates catalogue state changes to every provider
// registered under the catalogue, and through them to their resources.
type catalogueCascade struct{ r *Registry }

func (c catalogueCascade) Activate(ctx context.Context, catalogueID string, active bool, report *workflow.CascadeReport) {
	prov := providerCascade{c.r}
	c.eachProvider(catalogueID, func(id string) {
		err := c.r.Providers.CascadeSetActive(ctx, id, active)
		recordStep(report, string(registry.KindProvider), id, "set-active", err)
		if err == nil {
			prov.Activate(ctx, id, active, report)
		}
	})
}

func (c catalogueCascade) Suspend(ctx context.Context, catalogueID string, suspended bool, report *workflow.CascadeReport) {
	prov := providerCascade{c.r}
	c.eachProvider(catalogueID, func(id string) {
		err := c.r.Providers.CascadeSetSuspended(ctx, id, suspended)
		recordStep(report, string(registry.KindProvider), id, "set-suspended", err)
		if err == nil {
			prov.Suspend(ctx, id, suspended, report)
		}
	})
}

func (c catalogueCascade) Delete(ctx context.Context, catalogueID string, report *workflow.CascadeReport) {
	prov := providerCascade{c.r}
	c.eachProvider(catalogueID, func(id string) {
		prov.Delete(ctx, id, report)
		err := c.r.Providers.CascadeDelete(ctx, id)
		recordStep(report, string(registry.KindProvider), id, "delete", err)
	})
}

func (c catalogueCascade) eachProvider(catalogueID string, fn func(id string)) {
	_ = forEach(c.r.Store, registry.KindProvider.ResourceType(), func(b *registry.Bundle[*registry.Provider]) error {
		if b.Payload.CatalogueID == catalogueID {
			fn(b.ID)
		}
		return nil
	})
}

// interoperabilityRecordCascade detaches a deleted guideline from the
// resource interoperability records referencing it. A record left with no
// guidelines is removed.
type interoperabilityRecordCascade struct{ r *Registry }

func (c interoperabilityRecordCascade) Activate(ctx context.Context, id string, active bool, report *workflow.CascadeReport) {
}

func (c interoperabilityRecordCascade) Suspend(ctx context.Context, id string, suspended bool, report *workflow.CascadeReport) {
}

func (c interoperabilityRecordCascade) Delete(ctx context.Context, guidelineID string, report *workflow.CascadeReport) {
	_ = forEach(c.r.Store, registry.KindResourceInteroperabilityRecord.ResourceType(), func(b *registry.Bundle[*registry.ResourceInteroperabilityRecord]) error {
		kept := b.Payload.InteroperabilityRecordIDs[:0:0]
		for _, id := range b.Payload.InteroperabilityRecordIDs {
			if id != guidelineID {
				kept = append(kept, id)
			}
		}
		if len(kept) == len(b.Payload.InteroperabilityRecordIDs) {
			return nil
		}
		var err error
		if len(kept) == 0 {
			err = c.r.ResourceInteroperabilityRecords.CascadeDelete(ctx, b.ID)
			recordStep(report, string(registry.KindResourceInteroperabilityRecord), b.ID, "delete", err)
			return nil
		}
		b.Payload.InteroperabilityRecordIDs = kept
		err = c.rewrite(b)
		recordStep(report, string(registry.KindResourceInteroperabilityRecord), b.ID, "detach-guideline", err)
		return nil
	})
}

func (c interoperabilityRecordCascade) rewrite(b *registry.Bundle[*registry.ResourceInteroperabilityRecord]) error {
	payload, err := json.Marshal(b)
	if err != nil {
		return err
	}
	rec, err := c.r.Store.Get(registry.KindResourceInteroperabilityRecord.ResourceType(), b.ID)
	if err != nil {
		return err
	}
	if rec == nil {
		return nil
	}
	rec.Payload = payload
	if err := c.r.Store.Update(rec); err != nil {
		return err
	}
	c.r.cache.InvalidateResource(registry.KindResourceInteroperabilityRecord.ResourceType(),
		registry.KindResourceInteroperabilityRecord.PublicType(), b.ID, b.Payload.CatalogueID)
	return nil
}
