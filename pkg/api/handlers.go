package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/madgeek-arc/resource-catalogue/pkg/draft"
	"github.com/madgeek-arc/resource-catalogue/pkg/history"
	"github.com/madgeek-arc/resource-catalogue/pkg/lifecycle"
	"github.com/madgeek-arc/resource-catalogue/pkg/public"
	"github.com/madgeek-arc/resource-catalogue/pkg/registry"
)

func addHandler[T registry.Payload](mgr *lifecycle.Manager[T]) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		b, err := decodeBundle[T](r)
		if err != nil {
			writeError(w, err)
			return
		}
		out, err := mgr.Add(r.Context(), b, r.URL.Query().Get("catalogue_id"))
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, bundleResponse{Bundle: out})
	}
}

func getHandler[T registry.Payload](mgr *lifecycle.Manager[T]) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		out, err := mgr.Get(r.Context(), chi.URLParam(r, "id"))
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, bundleResponse{Bundle: out})
	}
}

func listHandler[T registry.Payload](mgr *lifecycle.Manager[T]) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		opts, err := listQuery(r)
		if err != nil {
			writeError(w, err)
			return
		}
		items, next, total, err := mgr.List(r.Context(), opts)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, pageResponse{Items: items, NextPageToken: next, Total: total})
	}
}

func updateHandler[T registry.Payload](mgr *lifecycle.Manager[T]) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		b, err := decodeBundle[T](r)
		if err != nil {
			writeError(w, err)
			return
		}
		if got := b.Payload.GetID(); got != "" && got != chi.URLParam(r, "id") {
			writeBadRequest(w, "body and path disagree on the resource id")
			return
		}
		b.Payload.SetID(chi.URLParam(r, "id"))
		q := r.URL.Query()
		out, err := mgr.Update(r.Context(), b, q.Get("catalogue_id"), q.Get("comment"))
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, bundleResponse{Bundle: out})
	}
}

func deleteHandler[T registry.Payload](mgr *lifecycle.Manager[T]) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		report, err := mgr.Delete(r.Context(), chi.URLParam(r, "id"))
		if err != nil {
			writeError(w, err)
			return
		}
		warnings := report.Warnings()
		if len(warnings) == 0 {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		writeJSON(w, http.StatusOK, bundleResponse{Warnings: warnings})
	}
}

func verifyHandler[T registry.Payload](mgr *lifecycle.Manager[T]) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		status := r.URL.Query().Get("status")
		if status == "" {
			writeBadRequest(w, "query parameter \"status\" is required")
			return
		}
		active, err := boolQuery(r, "active", false)
		if err != nil {
			writeError(w, err)
			return
		}
		out, report, err := mgr.Verify(r.Context(), chi.URLParam(r, "id"), status, active)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, bundleResponse{Bundle: out, Warnings: report.Warnings()})
	}
}

func publishHandler[T registry.Payload](mgr *lifecycle.Manager[T]) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		active, err := boolQuery(r, "active", true)
		if err != nil {
			writeError(w, err)
			return
		}
		out, report, err := mgr.Publish(r.Context(), chi.URLParam(r, "id"), active)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, bundleResponse{Bundle: out, Warnings: report.Warnings()})
	}
}

func suspendHandler[T registry.Payload](mgr *lifecycle.Manager[T]) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		suspended, err := boolQuery(r, "suspend", true)
		if err != nil {
			writeError(w, err)
			return
		}
		out, report, err := mgr.Suspend(r.Context(), chi.URLParam(r, "id"), suspended)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, bundleResponse{Bundle: out, Warnings: report.Warnings()})
	}
}

type auditRequest struct {
	Action  registry.ActionType `json:"action"`
	Comment string              `json:"comment"`
}

func auditHandler[T registry.Payload](mgr *lifecycle.Manager[T]) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req auditRequest
		if err := decodeInto(r, &req); err != nil {
			writeError(w, err)
			return
		}
		out, err := mgr.Audit(r.Context(), chi.URLParam(r, "id"), req.Comment, req.Action)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, bundleResponse{Bundle: out})
	}
}

func historyHandler(hist *history.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		opts, err := listQuery(r)
		if err != nil {
			writeError(w, err)
			return
		}
		events, next, total, err := hist.ListByResource(chi.URLParam(r, "id"), opts.PageSize, opts.PageToken)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, pageResponse{Items: events, NextPageToken: next, Total: total})
	}
}

func createDraftHandler[T registry.Payload](drafts *draft.Manager[T]) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		b, err := decodeBundle[T](r)
		if err != nil {
			writeError(w, err)
			return
		}
		out, err := drafts.Create(r.Context(), b, r.URL.Query().Get("catalogue_id"))
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, bundleResponse{Bundle: out})
	}
}

func getDraftHandler[T registry.Payload](drafts *draft.Manager[T]) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		out, err := drafts.Get(r.Context(), chi.URLParam(r, "id"))
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, bundleResponse{Bundle: out})
	}
}

func listDraftsHandler[T registry.Payload](drafts *draft.Manager[T]) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		opts, err := listQuery(r)
		if err != nil {
			writeError(w, err)
			return
		}
		items, next, total, err := drafts.List(r.Context(), opts)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, pageResponse{Items: items, NextPageToken: next, Total: total})
	}
}

func updateDraftHandler[T registry.Payload](drafts *draft.Manager[T]) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		b, err := decodeBundle[T](r)
		if err != nil {
			writeError(w, err)
			return
		}
		b.Payload.SetID(chi.URLParam(r, "id"))
		out, err := drafts.Update(r.Context(), b)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, bundleResponse{Bundle: out})
	}
}

func deleteDraftHandler[T registry.Payload](drafts *draft.Manager[T]) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := drafts.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
			writeError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func transformDraftHandler[T registry.Payload](drafts *draft.Manager[T]) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		out, err := drafts.Transform(r.Context(), chi.URLParam(r, "id"))
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, bundleResponse{Bundle: out})
	}
}

func getPublicHandler[T registry.Payload](pub *public.Synchronizer[T]) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		out, err := pub.GetPublic(r.Context(), chi.URLParam(r, "id"))
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, bundleResponse{Bundle: out})
	}
}

func listPublicHandler[T registry.Payload](pub *public.Synchronizer[T]) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		opts, err := listQuery(r)
		if err != nil {
			writeError(w, err)
			return
		}
		items, next, total, err := pub.ListPublic(r.Context(), opts)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, pageResponse{Items: items, NextPageToken: next, Total: total})
	}
}
