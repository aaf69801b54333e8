// Package catalogue assembles the per-kind lifecycle managers into one
// registry: it wires each kind's validation, owner gating, cascades, and
// public projection, resolving cross-kind references through the shared
// resource store.
package catalogue

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"gorm.io/gorm"

	"github.com/madgeek-arc/resource-catalogue/pkg/cache"
	"github.com/madgeek-arc/resource-catalogue/pkg/history"
	"github.com/madgeek-arc/resource-catalogue/pkg/lifecycle"
	"github.com/madgeek-arc/resource-catalogue/pkg/notify"
	"github.com/madgeek-arc/resource-catalogue/pkg/pid"
	"github.com/madgeek-arc/resource-catalogue/pkg/public"
	"github.com/madgeek-arc/resource-catalogue/pkg/registry"
	"github.com/madgeek-arc/resource-catalogue/pkg/store"
	"github.com/madgeek-arc/resource-catalogue/pkg/vocabulary"
)

// Options configures the registry assembly.
type Options struct {
	DB            *gorm.DB
	HomeCatalogue string
	Vocab         *vocabulary.Registry
	Cache         *cache.Manager
	Outbox        *notify.OutboxStore
	Logger        *slog.Logger
}

// Registry holds one lifecycle manager per kind plus the public-side
// readers, all sharing a resource store.
type Registry struct {
	Store   *store.ResourceStore
	History *history.Store
	Vocab   *vocabulary.Registry

	home   string
	cache  *cache.Manager
	logger *slog.Logger

	Catalogues                      *lifecycle.Manager[*registry.Catalogue]
	Providers                       *lifecycle.Manager[*registry.Provider]
	Services                        *lifecycle.Manager[*registry.Service]
	TrainingResources               *lifecycle.Manager[*registry.TrainingResource]
	InteroperabilityRecords         *lifecycle.Manager[*registry.InteroperabilityRecord]
	Datasources                     *lifecycle.Manager[*registry.Datasource]
	Helpdesks                       *lifecycle.Manager[*registry.Helpdesk]
	Monitorings                     *lifecycle.Manager[*registry.Monitoring]
	ResourceInteroperabilityRecords *lifecycle.Manager[*registry.ResourceInteroperabilityRecord]
	ConfigurationTemplateInstances  *lifecycle.Manager[*registry.ConfigurationTemplateInstance]
	Adapters                        *lifecycle.Manager[*registry.Adapter]

	PublicCatalogues                      *public.Synchronizer[*registry.Catalogue]
	PublicProviders                       *public.Synchronizer[*registry.Provider]
	PublicServices                        *public.Synchronizer[*registry.Service]
	PublicTrainingResources               *public.Synchronizer[*registry.TrainingResource]
	PublicInteroperabilityRecords         *public.Synchronizer[*registry.InteroperabilityRecord]
	PublicDatasources                     *public.Synchronizer[*registry.Datasource]
	PublicHelpdesks                       *public.Synchronizer[*registry.Helpdesk]
	PublicMonitorings                     *public.Synchronizer[*registry.Monitoring]
	PublicResourceInteroperabilityRecords *public.Synchronizer[*registry.ResourceInteroperabilityRecord]
	PublicConfigurationTemplateInstances  *public.Synchronizer[*registry.ConfigurationTemplateInstance]
	PublicAdapters                        *public.Synchronizer[*registry.Adapter]
}

// New wires the registry. Status vocabularies are validated up front so a
// misconfigured vocabulary fails startup instead of surfacing per request.
func New(opts Options) (*Registry, error) {
	if opts.DB == nil {
		return nil, fmt.Errorf("catalogue: database handle is required")
	}
	if opts.Vocab == nil {
		v, err := vocabulary.New(vocabulary.Defaults())
		if err != nil {
			return nil, err
		}
		opts.Vocab = v
	}
	if err := vocabulary.ValidateKindStatuses(opts.Vocab); err != nil {
		return nil, err
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.HomeCatalogue == "" {
		opts.HomeCatalogue = "main"
	}

	r := &Registry{
		Store:   store.NewResourceStore(opts.DB),
		History: history.NewStore(opts.DB),
		Vocab:   opts.Vocab,
		home:    opts.HomeCatalogue,
		cache:   opts.Cache,
		logger:  opts.Logger,
	}
	if err := r.Store.AutoMigrate(); err != nil {
		return nil, err
	}
	if err := r.History.AutoMigrate(); err != nil {
		return nil, err
	}
	allocator := pid.NewAllocator(r.Store)

	r.PublicCatalogues = public.NewSynchronizer[*registry.Catalogue](registry.KindCatalogue, r.Store, r.cache, nil, r.logger)
	r.PublicProviders = public.NewSynchronizer[*registry.Provider](registry.KindProvider, r.Store, r.cache, nil, r.logger)
	r.PublicServices = public.NewSynchronizer(registry.KindService, r.Store, r.cache, rewriteService, r.logger)
	r.PublicTrainingResources = public.NewSynchronizer(registry.KindTrainingResource, r.Store, r.cache, rewriteTrainingResource, r.logger)
	r.PublicInteroperabilityRecords = public.NewSynchronizer(registry.KindInteroperabilityRecord, r.Store, r.cache, rewriteInteroperabilityRecord, r.logger)
	r.PublicDatasources = public.NewSynchronizer(registry.KindDatasource, r.Store, r.cache, rewriteDatasource, r.logger)
	r.PublicHelpdesks = public.NewSynchronizer(registry.KindHelpdesk, r.Store, r.cache, rewriteHelpdesk, r.logger)
	r.PublicMonitorings = public.NewSynchronizer(registry.KindMonitoring, r.Store, r.cache, rewriteMonitoring, r.logger)
	r.PublicResourceInteroperabilityRecords = public.NewSynchronizer(registry.KindResourceInteroperabilityRecord, r.Store, r.cache, rewriteRIR, r.logger)
	r.PublicConfigurationTemplateInstances = public.NewSynchronizer(registry.KindConfigurationTemplateInstance, r.Store, r.cache, rewriteCTI, r.logger)
	r.PublicAdapters = public.NewSynchronizer(registry.KindAdapter, r.Store, r.cache, rewriteAdapter, r.logger)

	r.Catalogues = lifecycle.NewManager(lifecycle.Options[*registry.Catalogue]{
		Kind: registry.KindCatalogue, HomeCatalogue: r.home,
		Store: r.Store, Vocab: r.Vocab, Allocator: allocator, History: r.History,
		Outbox: opts.Outbox, Cache: r.cache, Logger: r.logger,
		Hooks:     catalogueHooks{r},
		Cascader:  catalogueCascade{r},
		Projector: r.PublicCatalogues,
	})
	r.Providers = lifecycle.NewManager(lifecycle.Options[*registry.Provider]{
		Kind: registry.KindProvider, HomeCatalogue: r.home,
		Store: r.Store, Vocab: r.Vocab, Allocator: allocator, History: r.History,
		Outbox: opts.Outbox, Cache: r.cache, Logger: r.logger,
		Hooks:     providerHooks{r},
		Owner:     r.providerOwner,
		Cascader:  providerCascade{r},
		Projector: r.PublicProviders,
	})
	r.Services = lifecycle.NewManager(lifecycle.Options[*registry.Service]{
		Kind: registry.KindService, HomeCatalogue: r.home,
		Store: r.Store, Vocab: r.Vocab, Allocator: allocator, History: r.History,
		Outbox: opts.Outbox, Cache: r.cache, Logger: r.logger,
		Hooks:     serviceHooks{r},
		Owner:     r.serviceOwner,
		OwnerIDOf: func(p *registry.Service) string { return p.ResourceOrganisation },
		Cascader:  serviceCascade{r},
		Projector: r.PublicServices,
	})
	r.TrainingResources = lifecycle.NewManager(lifecycle.Options[*registry.TrainingResource]{
		Kind: registry.KindTrainingResource, HomeCatalogue: r.home,
		Store: r.Store, Vocab: r.Vocab, Allocator: allocator, History: r.History,
		Outbox: opts.Outbox, Cache: r.cache, Logger: r.logger,
		Hooks:     trainingResourceHooks{r},
		Owner:     r.trainingResourceOwner,
		OwnerIDOf: func(p *registry.TrainingResource) string { return p.ResourceOrganisation },
		Projector: r.PublicTrainingResources,
	})
	r.InteroperabilityRecords = lifecycle.NewManager(lifecycle.Options[*registry.InteroperabilityRecord]{
		Kind: registry.KindInteroperabilityRecord, HomeCatalogue: r.home,
		Store: r.Store, Vocab: r.Vocab, Allocator: allocator, History: r.History,
		Outbox: opts.Outbox, Cache: r.cache, Logger: r.logger,
		Hooks:     interoperabilityRecordHooks{r},
		Owner:     r.interoperabilityRecordOwner,
		OwnerIDOf: func(p *registry.InteroperabilityRecord) string { return p.ProviderID },
		Cascader:  interoperabilityRecordCascade{r},
		Projector: r.PublicInteroperabilityRecords,
	})
	r.Datasources = lifecycle.NewManager(lifecycle.Options[*registry.Datasource]{
		Kind: registry.KindDatasource, HomeCatalogue: r.home,
		Store: r.Store, Vocab: r.Vocab, Allocator: allocator, History: r.History,
		Outbox: opts.Outbox, Cache: r.cache, Logger: r.logger,
		Hooks:     datasourceHooks{r},
		Owner:     r.datasourceOwner,
		OwnerIDOf: func(p *registry.Datasource) string { return p.ServiceID },
		Projector: r.PublicDatasources,
	})
	r.Helpdesks = lifecycle.NewManager(lifecycle.Options[*registry.Helpdesk]{
		Kind: registry.KindHelpdesk, HomeCatalogue: r.home,
		Store: r.Store, Vocab: r.Vocab, Allocator: allocator, History: r.History,
		Outbox: opts.Outbox, Cache: r.cache, Logger: r.logger,
		Hooks:     helpdeskHooks{r},
		Owner:     r.helpdeskOwner,
		OwnerIDOf: func(p *registry.Helpdesk) string { return p.ServiceID },
		Projector: r.PublicHelpdesks,
	})
	r.Monitorings = lifecycle.NewManager(lifecycle.Options[*registry.Monitoring]{
		Kind: registry.KindMonitoring, HomeCatalogue: r.home,
		Store: r.Store, Vocab: r.Vocab, Allocator: allocator, History: r.History,
		Outbox: opts.Outbox, Cache: r.cache, Logger: r.logger,
		Hooks:     monitoringHooks{r},
		Owner:     r.monitoringOwner,
		OwnerIDOf: func(p *registry.Monitoring) string { return p.ServiceID },
		Projector: r.PublicMonitorings,
	})
	r.ResourceInteroperabilityRecords = lifecycle.NewManager(lifecycle.Options[*registry.ResourceInteroperabilityRecord]{
		Kind: registry.KindResourceInteroperabilityRecord, HomeCatalogue: r.home,
		Store: r.Store, Vocab: r.Vocab, Allocator: allocator, History: r.History,
		Outbox: opts.Outbox, Cache: r.cache, Logger: r.logger,
		Hooks:     rirHooks{r},
		Owner:     r.rirOwner,
		OwnerIDOf: func(p *registry.ResourceInteroperabilityRecord) string { return p.ResourceID },
		Projector: r.PublicResourceInteroperabilityRecords,
	})
	r.ConfigurationTemplateInstances = lifecycle.NewManager(lifecycle.Options[*registry.ConfigurationTemplateInstance]{
		Kind: registry.KindConfigurationTemplateInstance, HomeCatalogue: r.home,
		Store: r.Store, Vocab: r.Vocab, Allocator: allocator, History: r.History,
		Outbox: opts.Outbox, Cache: r.cache, Logger: r.logger,
		Hooks:     ctiHooks{r},
		Owner:     r.ctiOwner,
		OwnerIDOf: func(p *registry.ConfigurationTemplateInstance) string { return p.ResourceID },
		Projector: r.PublicConfigurationTemplateInstances,
	})
	r.Adapters = lifecycle.NewManager(lifecycle.Options[*registry.Adapter]{
		Kind: registry.KindAdapter, HomeCatalogue: r.home,
		Store: r.Store, Vocab: r.Vocab, Allocator: allocator, History: r.History,
		Outbox: opts.Outbox, Cache: r.cache, Logger: r.logger,
		Hooks:     adapterHooks{r},
		Projector: r.PublicAdapters,
	})
	return r, nil
}

// HomeCatalogue returns the id of the installation's own catalogue.
func (r *Registry) HomeCatalogue() string { return r.home }

// Cache returns the shared read cache.
func (r *Registry) Cache() *cache.Manager { return r.cache }

// getBundle loads and decodes a bundle of one type, or nil when missing.
func getBundle[T registry.Payload](s *store.ResourceStore, resourceType, id string) (*registry.Bundle[T], error) {
	rec, err := s.Get(resourceType, id)
	if err != nil || rec == nil {
		return nil, err
	}
	var b registry.Bundle[T]
	if err := json.Unmarshal(rec.Payload, &b); err != nil {
		return nil, fmt.Errorf("decode %s %s: %w", resourceType, id, err)
	}
	return &b, nil
}

// forEach walks every record of one resource type, a page at a time.
// Stops early when fn returns an error.
func forEach[T registry.Payload](s *store.ResourceStore, resourceType string, fn func(*registry.Bundle[T]) error) error {
	opts := store.ListOptions{PageSize: 100}
	for {
		recs, next, _, err := s.List(resourceType, opts)
		if err != nil {
			return err
		}
		for _, rec := range recs {
			var b registry.Bundle[T]
			if err := json.Unmarshal(rec.Payload, &b); err != nil {
				return fmt.Errorf("decode %s %s: %w", resourceType, rec.ResourceID, err)
			}
			if err := fn(&b); err != nil {
				return err
			}
		}
		if next == "" {
			return nil
		}
		opts.PageToken = next
	}
}

// catalogueState builds the owner view of a catalogue record.
func (r *Registry) catalogueState(id string) (*lifecycle.OwnerState, error) {
	b, err := getBundle[*registry.Catalogue](r.Store, registry.KindCatalogue.ResourceType(), id)
	if err != nil {
		return nil, err
	}
	// The home catalogue is implicit: it exists even before a catalogue
	// record describing it is registered.
	if b == nil {
		if id == r.home {
			return &lifecycle.OwnerState{Exists: true, Approved: true, Active: true}, nil
		}
		return &lifecycle.OwnerState{}, nil
	}
	set := vocabulary.StatusesFor(registry.KindCatalogue)
	return &lifecycle.OwnerState{
		Exists:      true,
		Approved:    b.Status == set.Approved,
		Active:      b.Active,
		Suspended:   b.Suspended,
		AdminEmails: userEmails(b.Payload.Users),
	}, nil
}

// providerState builds the owner view of a provider record.
func (r *Registry) providerState(id string) (*lifecycle.OwnerState, error) {
	b, err := getBundle[*registry.Provider](r.Store, registry.KindProvider.ResourceType(), id)
	if err != nil {
		return nil, err
	}
	if b == nil {
		return &lifecycle.OwnerState{}, nil
	}
	set := vocabulary.StatusesFor(registry.KindProvider)
	return &lifecycle.OwnerState{
		Exists:           true,
		Approved:         b.Status == set.Approved,
		Active:           b.Active,
		Suspended:        b.Suspended,
		TemplateApproved: b.TemplateStatus == vocabulary.TemplateStatuses.Approved,
		AdminEmails:      userEmails(b.Payload.Users),
	}, nil
}

// serviceState builds the owner view of a service record. Extension
// records notify the administrators of the service's provider.
func (r *Registry) serviceState(id string) (*lifecycle.OwnerState, error) {
	b, err := getBundle[*registry.Service](r.Store, registry.KindService.ResourceType(), id)
	if err != nil {
		return nil, err
	}
	if b == nil {
		return &lifecycle.OwnerState{}, nil
	}
	set := vocabulary.StatusesFor(registry.KindService)
	state := &lifecycle.OwnerState{
		Exists:    true,
		Approved:  b.Status == set.Approved,
		Active:    b.Active,
		Suspended: b.Suspended,
	}
	if prov, err := r.providerState(b.Payload.ResourceOrganisation); err == nil && prov.Exists {
		state.AdminEmails = prov.AdminEmails
	}
	return state, nil
}

func (r *Registry) providerOwner(ctx context.Context, p *registry.Provider) (*lifecycle.OwnerState, error) {
	state, err := r.catalogueState(p.CatalogueID)
	if err != nil {
		return nil, err
	}
	// Notifications about a provider go to the provider's own admins.
	if state.Exists {
		state.AdminEmails = userEmails(p.Users)
	}
	return state, nil
}

func (r *Registry) serviceOwner(ctx context.Context, p *registry.Service) (*lifecycle.OwnerState, error) {
	return r.providerState(p.ResourceOrganisation)
}

func (r *Registry) trainingResourceOwner(ctx context.Context, p *registry.TrainingResource) (*lifecycle.OwnerState, error) {
	return r.providerState(p.ResourceOrganisation)
}

func (r *Registry) interoperabilityRecordOwner(ctx context.Context, p *registry.InteroperabilityRecord) (*lifecycle.OwnerState, error) {
	return r.providerState(p.ProviderID)
}

func (r *Registry) datasourceOwner(ctx context.Context, p *registry.Datasource) (*lifecycle.OwnerState, error) {
	return r.serviceState(p.ServiceID)
}

func (r *Registry) helpdeskOwner(ctx context.Context, p *registry.Helpdesk) (*lifecycle.OwnerState, error) {
	return r.serviceState(p.ServiceID)
}

func (r *Registry) monitoringOwner(ctx context.Context, p *registry.Monitoring) (*lifecycle.OwnerState, error) {
	return r.serviceState(p.ServiceID)
}

func (r *Registry) rirOwner(ctx context.Context, p *registry.ResourceInteroperabilityRecord) (*lifecycle.OwnerState, error) {
	return r.serviceState(p.ResourceID)
}

func (r *Registry) ctiOwner(ctx context.Context, p *registry.ConfigurationTemplateInstance) (*lifecycle.OwnerState, error) {
	return r.serviceState(p.ResourceID)
}

// existsOfKind reports whether a record of the kind with the id is stored.
func (r *Registry) existsOfKind(kind registry.Kind, id string) bool {
	rec, err := r.Store.Get(kind.ResourceType(), id)
	return err == nil && rec != nil
}

func userEmails(users []registry.User) []string {
	emails := make([]string, 0, len(users))
	for _, u := range users {
		if u.Email != "" {
			emails = append(emails, u.Email)
		}
	}
	return emails
}
