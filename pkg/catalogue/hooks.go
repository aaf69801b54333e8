package catalogue

import (
	"context"
	"encoding/json"

	"github.com/madgeek-arc/resource-catalogue/pkg/metrics"
	"github.com/madgeek-arc/resource-catalogue/pkg/registry"
	"github.com/madgeek-arc/resource-catalogue/pkg/vocabulary"
	"github.com/madgeek-arc/resource-catalogue/pkg/workflow"
)

type catalogueHooks struct{ r *Registry }

func (h catalogueHooks) Validate(ctx context.Context, b *registry.Bundle[*registry.Catalogue]) error {
	if b.Payload.Name == "" {
		return registry.Validationf("catalogue name is required")
	}
	if len(userEmails(b.Payload.Users)) == 0 {
		return registry.Validationf("catalogue %q must declare at least one user with an email", b.Payload.ID)
	}
	return nil
}

func (h catalogueHooks) OnVerify(ctx context.Context, b *registry.Bundle[*registry.Catalogue], status string, report *workflow.CascadeReport) {
}

type providerHooks struct{ r *Registry }

func (h providerHooks) Validate(ctx context.Context, b *registry.Bundle[*registry.Provider]) error {
	if b.Payload.Name == "" {
		return registry.Validationf("provider name is required")
	}
	if len(userEmails(b.Payload.Users)) == 0 {
		return registry.Validationf("provider %q must declare at least one user with an email", b.Payload.ID)
	}
	return nil
}

func (h providerHooks) OnVerify(ctx context.Context, b *registry.Bundle[*registry.Provider], status string, report *workflow.CascadeReport) {
	// Rejecting a provider also rejects its not-yet-approved template.
	set := vocabulary.StatusesFor(registry.KindProvider)
	if status != set.Rejected {
		return
	}
	if b.TemplateStatus == "" || b.TemplateStatus == vocabulary.TemplateStatuses.Pending {
		err := h.r.Providers.SetTemplateStatus(ctx, b.ID, vocabulary.TemplateStatuses.Rejected)
		recordStep(report, "provider-template", b.ID, "reject-template", err)
	}
}

type serviceHooks struct{ r *Registry }

func (h serviceHooks) Validate(ctx context.Context, b *registry.Bundle[*registry.Service]) error {
	s := b.Payload
	if s.Name == "" {
		return registry.Validationf("service name is required")
	}
	if s.ResourceOrganisation == "" {
		return registry.Validationf("service %q must declare its resource organisation", s.ID)
	}
	prov, err := getBundle[*registry.Provider](h.r.Store, registry.KindProvider.ResourceType(), s.ResourceOrganisation)
	if err != nil {
		return err
	}
	if prov == nil {
		return registry.Validationf("resource organisation %q of service %q does not exist", s.ResourceOrganisation, s.ID)
	}
	if prov.Payload.CatalogueID != s.CatalogueID {
		return registry.Validationf("service %q and its resource organisation belong to different catalogues", s.ID)
	}
	relations := append(append([]string{}, s.RequiredResources...), s.RelatedResources...)
	return workflow.CheckRelatedResourceIDsConsistency(relations, func(id string) bool {
		return h.r.existsOfKind(registry.KindService, id) || id == s.ID
	})
}

func (h serviceHooks) OnVerify(ctx context.Context, b *registry.Bundle[*registry.Service], status string, report *workflow.CascadeReport) {
	// The first service decision under a provider settles the provider's
	// template: approval unlocks auto-approved onboarding for the rest.
	prov, err := getBundle[*registry.Provider](h.r.Store, registry.KindProvider.ResourceType(), b.Payload.ResourceOrganisation)
	if err != nil || prov == nil {
		return
	}
	if prov.TemplateStatus != "" && prov.TemplateStatus != vocabulary.TemplateStatuses.Pending {
		return
	}
	set := vocabulary.StatusesFor(registry.KindService)
	var target string
	switch status {
	case set.Approved:
		target = vocabulary.TemplateStatuses.Approved
	case set.Rejected:
		target = vocabulary.TemplateStatuses.Rejected
	default:
		return
	}
	err = h.r.Providers.SetTemplateStatus(ctx, prov.ID, target)
	recordStep(report, "provider-template", prov.ID, "set-template", err)
}

type trainingResourceHooks struct{ r *Registry }

func (h trainingResourceHooks) Validate(ctx context.Context, b *registry.Bundle[*registry.TrainingResource]) error {
	t := b.Payload
	if t.Name == "" {
		return registry.Validationf("training resource name is required")
	}
	if t.ResourceOrganisation == "" {
		return registry.Validationf("training resource %q must declare its resource organisation", t.ID)
	}
	if t.URL == "" {
		return registry.Validationf("training resource %q must declare its URL", t.ID)
	}
	return nil
}

func (h trainingResourceHooks) OnVerify(ctx context.Context, b *registry.Bundle[*registry.TrainingResource], status string, report *workflow.CascadeReport) {
}

type interoperabilityRecordHooks struct{ r *Registry }

func (h interoperabilityRecordHooks) Validate(ctx context.Context, b *registry.Bundle[*registry.InteroperabilityRecord]) error {
	g := b.Payload
	if g.Name == "" {
		return registry.Validationf("interoperability record title is required")
	}
	if g.ProviderID == "" {
		return registry.Validationf("interoperability record %q must declare its provider", g.ID)
	}
	if len(g.Creators) == 0 {
		return registry.Validationf("interoperability record %q must declare its creators", g.ID)
	}
	return nil
}

func (h interoperabilityRecordHooks) OnVerify(ctx context.Context, b *registry.Bundle[*registry.InteroperabilityRecord], status string, report *workflow.CascadeReport) {
}

type datasourceHooks struct{ r *Registry }

func (h datasourceHooks) Validate(ctx context.Context, b *registry.Bundle[*registry.Datasource]) error {
	d := b.Payload
	if d.ServiceID == "" {
		return registry.Validationf("datasource %q must declare its service", d.ID)
	}
	return uniqueExtension(h.r, registry.KindDatasource, d.ID, d.ServiceID,
		func(other *registry.Bundle[*registry.Datasource]) string { return other.Payload.ServiceID })
}

func (h datasourceHooks) OnVerify(ctx context.Context, b *registry.Bundle[*registry.Datasource], status string, report *workflow.CascadeReport) {
}

type helpdeskHooks struct{ r *Registry }

func (h helpdeskHooks) Validate(ctx context.Context, b *registry.Bundle[*registry.Helpdesk]) error {
	d := b.Payload
	if d.ServiceID == "" {
		return registry.Validationf("helpdesk %q must declare its service", d.ID)
	}
	return uniqueExtension(h.r, registry.KindHelpdesk, d.ID, d.ServiceID,
		func(other *registry.Bundle[*registry.Helpdesk]) string { return other.Payload.ServiceID })
}

func (h helpdeskHooks) OnVerify(ctx context.Context, b *registry.Bundle[*registry.Helpdesk], status string, report *workflow.CascadeReport) {
}

type monitoringHooks struct{ r *Registry }

func (h monitoringHooks) Validate(ctx context.Context, b *registry.Bundle[*registry.Monitoring]) error {
	m := b.Payload
	if m.ServiceID == "" {
		return registry.Validationf("monitoring %q must declare its service", m.ID)
	}
	if len(m.MonitoringGroups) == 0 {
		return registry.Validationf("monitoring %q must declare at least one monitoring group", m.ID)
	}
	return uniqueExtension(h.r, registry.KindMonitoring, m.ID, m.ServiceID,
		func(other *registry.Bundle[*registry.Monitoring]) string { return other.Payload.ServiceID })
}

func (h monitoringHooks) OnVerify(ctx context.Context, b *registry.Bundle[*registry.Monitoring], status string, report *workflow.CascadeReport) {
}

type rirHooks struct{ r *Registry }

func (h rirHooks) Validate(ctx context.Context, b *registry.Bundle[*registry.ResourceInteroperabilityRecord]) error {
	rr := b.Payload
	if rr.ResourceID == "" {
		return registry.Validationf("resource interoperability record %q must declare its resource", rr.ID)
	}
	if len(rr.InteroperabilityRecordIDs) == 0 {
		return registry.Validationf("resource interoperability record %q must reference at least one guideline", rr.ID)
	}
	if err := workflow.CheckRelatedResourceIDsConsistency(rr.InteroperabilityRecordIDs, func(id string) bool {
		return h.r.existsOfKind(registry.KindInteroperabilityRecord, id)
	}); err != nil {
		return err
	}
	return uniqueExtension(h.r, registry.KindResourceInteroperabilityRecord, rr.ID, rr.ResourceID,
		func(other *registry.Bundle[*registry.ResourceInteroperabilityRecord]) string { return other.Payload.ResourceID })
}

func (h rirHooks) OnVerify(ctx context.Context, b *registry.Bundle[*registry.ResourceInteroperabilityRecord], status string, report *workflow.CascadeReport) {
}

type ctiHooks struct{ r *Registry }

func (h ctiHooks) Validate(ctx context.Context, b *registry.Bundle[*registry.ConfigurationTemplateInstance]) error {
	c := b.Payload
	if c.ResourceID == "" {
		return registry.Validationf("configuration template instance %q must declare its resource", c.ID)
	}
	if c.ConfigurationTemplateID == "" {
		return registry.Validationf("configuration template instance %q must declare its template", c.ID)
	}
	if c.Payload != "" && !json.Valid([]byte(c.Payload)) {
		return registry.Validationf("configuration template instance %q carries a malformed payload document", c.ID)
	}
	return nil
}

func (h ctiHooks) OnVerify(ctx context.Context, b *registry.Bundle[*registry.ConfigurationTemplateInstance], status string, report *workflow.CascadeReport) {
}

type adapterHooks struct{ r *Registry }

func (h adapterHooks) Validate(ctx context.Context, b *registry.Bundle[*registry.Adapter]) error {
	a := b.Payload
	if a.Name == "" {
		return registry.Validationf("adapter name is required")
	}
	if a.LinkedResource != "" &&
		!h.r.existsOfKind(registry.KindService, a.LinkedResource) &&
		!h.r.existsOfKind(registry.KindInteroperabilityRecord, a.LinkedResource) {
		return registry.Validationf("adapter %q links to unknown resource %q", a.ID, a.LinkedResource)
	}
	return nil
}

func (h adapterHooks) OnVerify(ctx context.Context, b *registry.Bundle[*registry.Adapter], status string, report *workflow.CascadeReport) {
}

// uniqueExtension rejects a second extension record of the same kind bound
// to one service.
func uniqueExtension[T registry.Payload](r *Registry, kind registry.Kind, selfID, serviceID string, serviceOf func(*registry.Bundle[T]) string) error {
	var conflict string
	err := forEach(r.Store, kind.ResourceType(), func(b *registry.Bundle[T]) error {
		if b.ID != selfID && serviceOf(b) == serviceID {
			conflict = b.ID
		}
		return nil
	})
	if err != nil {
		return err
	}
	if conflict != "" {
		return registry.Conflictf("service %q already has a %s (%s)", serviceID, kind, conflict)
	}
	return nil
}

func recordStep(report *workflow.CascadeReport, cascade, resourceID, action string, err error) {
	metrics.RecordCascadeStep(cascade, err != nil)
	if err != nil {
		report.Fail(cascade, resourceID, action, err)
		return
	}
	report.Ok(cascade, resourceID, action)
}
