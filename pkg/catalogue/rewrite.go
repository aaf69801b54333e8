package catalogue

import "github.com/madgeek-arc/resource-catalogue/pkg/registry"

// The rewrite functions translate a payload's references to other
// resources into their public ids when the record is projected into the
// public side. References already carrying a catalogue prefix are left to
// the mapper, which prefixes unconditionally; public records always refer
// to other public records within the same catalogue.

func rewriteService(s *registry.Service, publicID func(string) string) {
	s.ResourceOrganisation = publicID(s.ResourceOrganisation)
	for i, id := range s.ResourceProviders {
		s.ResourceProviders[i] = publicID(id)
	}
	for i, id := range s.RequiredResources {
		s.RequiredResources[i] = publicID(id)
	}
	for i, id := range s.RelatedResources {
		s.RelatedResources[i] = publicID(id)
	}
}

func rewriteTrainingResource(t *registry.TrainingResource, publicID func(string) string) {
	t.ResourceOrganisation = publicID(t.ResourceOrganisation)
	for i, id := range t.ResourceProviders {
		t.ResourceProviders[i] = publicID(id)
	}
}

func rewriteInteroperabilityRecord(g *registry.InteroperabilityRecord, publicID func(string) string) {
	g.ProviderID = publicID(g.ProviderID)
}

func rewriteDatasource(d *registry.Datasource, publicID func(string) string) {
	d.ServiceID = publicID(d.ServiceID)
}

func rewriteHelpdesk(h *registry.Helpdesk, publicID func(string) string) {
	h.ServiceID = publicID(h.ServiceID)
}

func rewriteMonitoring(m *registry.Monitoring, publicID func(string) string) {
	m.ServiceID = publicID(m.ServiceID)
}

func rewriteRIR(r *registry.ResourceInteroperabilityRecord, publicID func(string) string) {
	r.ResourceID = publicID(r.ResourceID)
	for i, id := range r.InteroperabilityRecordIDs {
		r.InteroperabilityRecordIDs[i] = publicID(id)
	}
}

func rewriteCTI(c *registry.ConfigurationTemplateInstance, publicID func(string) string) {
	c.ResourceID = publicID(c.ResourceID)
}

func rewriteAdapter(a *registry.Adapter, publicID func(string) string) {
	a.LinkedResource = publicID(a.LinkedResource)
}
