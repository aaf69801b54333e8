// Package api exposes the catalogue over HTTP: one uniform route set per
// resource kind (lifecycle operations, drafts, public side, history) plus
// the migration endpoints and operational probes.
package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/madgeek-arc/resource-catalogue/pkg/catalogue"
	"github.com/madgeek-arc/resource-catalogue/pkg/draft"
	"github.com/madgeek-arc/resource-catalogue/pkg/history"
	"github.com/madgeek-arc/resource-catalogue/pkg/lifecycle"
	"github.com/madgeek-arc/resource-catalogue/pkg/migration"
	"github.com/madgeek-arc/resource-catalogue/pkg/public"
	"github.com/madgeek-arc/resource-catalogue/pkg/registry"
)

// Drafts bundles the per-kind draft managers the router mounts.
type Drafts struct {
	Catalogues                      *draft.Manager[*registry.Catalogue]
	Providers                       *draft.Manager[*registry.Provider]
	Services                        *draft.Manager[*registry.Service]
	TrainingResources               *draft.Manager[*registry.TrainingResource]
	InteroperabilityRecords         *draft.Manager[*registry.InteroperabilityRecord]
	Datasources                     *draft.Manager[*registry.Datasource]
	Helpdesks                       *draft.Manager[*registry.Helpdesk]
	Monitorings                     *draft.Manager[*registry.Monitoring]
	ResourceInteroperabilityRecords *draft.Manager[*registry.ResourceInteroperabilityRecord]
	ConfigurationTemplateInstances  *draft.Manager[*registry.ConfigurationTemplateInstance]
	Adapters                        *draft.Manager[*registry.Adapter]
}

// NewDrafts builds a draft manager per kind over the assembled registry.
func NewDrafts(r *catalogue.Registry) *Drafts {
	return &Drafts{
		Catalogues:                      draft.NewManager(r.Store, r.Cache(), r.Catalogues, nil),
		Providers:                       draft.NewManager(r.Store, r.Cache(), r.Providers, nil),
		Services:                        draft.NewManager(r.Store, r.Cache(), r.Services, nil),
		TrainingResources:               draft.NewManager(r.Store, r.Cache(), r.TrainingResources, nil),
		InteroperabilityRecords:         draft.NewManager(r.Store, r.Cache(), r.InteroperabilityRecords, nil),
		Datasources:                     draft.NewManager(r.Store, r.Cache(), r.Datasources, nil),
		Helpdesks:                       draft.NewManager(r.Store, r.Cache(), r.Helpdesks, nil),
		Monitorings:                     draft.NewManager(r.Store, r.Cache(), r.Monitorings, nil),
		ResourceInteroperabilityRecords: draft.NewManager(r.Store, r.Cache(), r.ResourceInteroperabilityRecords, nil),
		ConfigurationTemplateInstances:  draft.NewManager(r.Store, r.Cache(), r.ConfigurationTemplateInstances, nil),
		Adapters:                        draft.NewManager(r.Store, r.Cache(), r.Adapters, nil),
	}
}

// Options configures the router.
type Options struct {
	Registry *catalogue.Registry
	Drafts   *Drafts
	Migrator *migration.Migrator

	// Auth wraps the API routes with authentication. nil leaves them open
	// (useful behind a trusted gateway and in tests).
	Auth func(http.Handler) http.Handler

	// AllowedOrigins enables CORS for browser clients when non-empty.
	AllowedOrigins []string
}

// NewRouter assembles the full HTTP surface.
func NewRouter(opts Options) chi.Router {
	reg := opts.Registry
	drafts := opts.Drafts
	if drafts == nil {
		drafts = NewDrafts(reg)
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	if len(opts.AllowedOrigins) > 0 {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins:   opts.AllowedOrigins,
			AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
			AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
			AllowCredentials: true,
			MaxAge:           300,
		}))
	}

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		if opts.Auth != nil {
			r.Use(opts.Auth)
		}

		mountKind(r, "catalogues", reg.Catalogues, drafts.Catalogues, reg.PublicCatalogues, reg.History)
		mountKind(r, "providers", reg.Providers, drafts.Providers, reg.PublicProviders, reg.History)
		mountKind(r, "services", reg.Services, drafts.Services, reg.PublicServices, reg.History)
		mountKind(r, "training-resources", reg.TrainingResources, drafts.TrainingResources, reg.PublicTrainingResources, reg.History)
		mountKind(r, "interoperability-records", reg.InteroperabilityRecords, drafts.InteroperabilityRecords, reg.PublicInteroperabilityRecords, reg.History)
		mountKind(r, "datasources", reg.Datasources, drafts.Datasources, reg.PublicDatasources, reg.History)
		mountKind(r, "helpdesks", reg.Helpdesks, drafts.Helpdesks, reg.PublicHelpdesks, reg.History)
		mountKind(r, "monitorings", reg.Monitorings, drafts.Monitorings, reg.PublicMonitorings, reg.History)
		mountKind(r, "resource-interoperability-records", reg.ResourceInteroperabilityRecords, drafts.ResourceInteroperabilityRecords, reg.PublicResourceInteroperabilityRecords, reg.History)
		mountKind(r, "configuration-template-instances", reg.ConfigurationTemplateInstances, drafts.ConfigurationTemplateInstances, reg.PublicConfigurationTemplateInstances, reg.History)
		mountKind(r, "adapters", reg.Adapters, drafts.Adapters, reg.PublicAdapters, reg.History)

		if opts.Migrator != nil {
			r.Post("/migrations/providers/{id}/catalogue", migrateProviderHandler(opts.Migrator))
			r.Post("/migrations/services/{id}/provider", migrateServiceHandler(opts.Migrator))
		}
	})
	return r
}

// mountKind registers the uniform route set of one resource kind.
func mountKind[T registry.Payload](r chi.Router, path string, mgr *lifecycle.Manager[T], drafts *draft.Manager[T], pub *public.Synchronizer[T], hist *history.Store) {
	r.Route("/"+path, func(r chi.Router) {
		r.Post("/", addHandler(mgr))
		r.Get("/", listHandler(mgr))

		r.Route("/drafts", func(r chi.Router) {
			r.Post("/", createDraftHandler(drafts))
			r.Get("/", listDraftsHandler(drafts))
			r.Get("/{id}", getDraftHandler(drafts))
			r.Put("/{id}", updateDraftHandler(drafts))
			r.Delete("/{id}", deleteDraftHandler(drafts))
			r.Post("/{id}/transform", transformDraftHandler(drafts))
		})

		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", getHandler(mgr))
			r.Put("/", updateHandler(mgr))
			r.Delete("/", deleteHandler(mgr))
			r.Patch("/verify", verifyHandler(mgr))
			r.Patch("/publish", publishHandler(mgr))
			r.Patch("/suspend", suspendHandler(mgr))
			r.Patch("/audit", auditHandler(mgr))
			r.Get("/history", historyHandler(hist))
		})
	})

	r.Route("/public/"+path, func(r chi.Router) {
		r.Get("/", listPublicHandler(pub))
		r.Get("/{id}", getPublicHandler(pub))
	})
}

type migrateProviderRequest struct {
	TargetCatalogueID string `json:"targetCatalogueId"`
	Comment           string `json:"comment"`
}

func migrateProviderHandler(m *migration.Migrator) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req migrateProviderRequest
		if err := decodeInto(r, &req); err != nil {
			writeError(w, err)
			return
		}
		out, report, err := m.ChangeProviderCatalogue(r.Context(), chi.URLParam(r, "id"), req.TargetCatalogueID, req.Comment)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, bundleResponse{Bundle: out, Warnings: report.Warnings()})
	}
}

type migrateServiceRequest struct {
	ProviderID string `json:"providerId"`
	Comment    string `json:"comment"`
}

func migrateServiceHandler(m *migration.Migrator) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req migrateServiceRequest
		if err := decodeInto(r, &req); err != nil {
			writeError(w, err)
			return
		}
		out, err := m.ChangeServiceProvider(r.Context(), chi.URLParam(r, "id"), req.ProviderID, req.Comment)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, bundleResponse{Bundle: out})
	}
}
