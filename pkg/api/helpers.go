package api

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"reflect"
	"strconv"

	"github.com/madgeek-arc/resource-catalogue/pkg/registry"
	"github.com/madgeek-arc/resource-catalogue/pkg/store"
)

// bundleResponse is the envelope every mutating endpoint answers with:
// the committed bundle plus any cascade warnings.
type bundleResponse struct {
	Bundle   any      `json:"bundle"`
	Warnings []string `json:"warnings,omitempty"`
}

// pageResponse is the envelope of listing endpoints.
type pageResponse struct {
	Items         any    `json:"items"`
	NextPageToken string `json:"nextPageToken,omitempty"`
	Total         int    `json:"total"`
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

// writeError maps a domain error onto its HTTP status.
func writeError(w http.ResponseWriter, err error) {
	code := registry.CodeOf(err)
	status := http.StatusInternalServerError
	switch code {
	case registry.CodeNotFound:
		status = http.StatusNotFound
	case registry.CodeAlreadyExists, registry.CodeConflict:
		status = http.StatusConflict
	case registry.CodeValidation:
		status = http.StatusBadRequest
	case registry.CodeAccessDenied:
		status = http.StatusForbidden
	}
	if errors.Is(err, store.ErrResourceNotFound) {
		status = http.StatusNotFound
		code = registry.CodeNotFound
	}
	if errors.Is(err, store.ErrResourceExists) {
		status = http.StatusConflict
		code = registry.CodeAlreadyExists
	}
	if code == "" {
		code = "INTERNAL"
	}
	writeJSON(w, status, errorResponse{Code: string(code), Message: err.Error()})
}

func writeBadRequest(w http.ResponseWriter, message string) {
	writeJSON(w, http.StatusBadRequest, errorResponse{Code: string(registry.CodeValidation), Message: message})
}

// decodeBundle reads a bundle from the request body. A body holding just
// the payload object is accepted too and wrapped into a fresh bundle.
func decodeBundle[T registry.Payload](r *http.Request) (*registry.Bundle[T], error) {
	raw, err := io.ReadAll(r.Body)
	if err != nil {
		return nil, registry.Validationf("read request body: %v", err)
	}
	var b registry.Bundle[T]
	if err := json.Unmarshal(raw, &b); err == nil && !payloadMissing(b.Payload) {
		return &b, nil
	}
	var p T
	if err := json.Unmarshal(raw, &p); err != nil || payloadMissing(p) {
		return nil, registry.Validationf("request body must hold a bundle or a payload document")
	}
	return &registry.Bundle[T]{Payload: p}, nil
}

// decodeInto reads a plain JSON request body into dst.
func decodeInto(r *http.Request, dst any) error {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		return registry.Validationf("invalid request body: %v", err)
	}
	return nil
}

func payloadMissing[T registry.Payload](p T) bool {
	v := reflect.ValueOf(p)
	return !v.IsValid() || (v.Kind() == reflect.Pointer && v.IsNil())
}

// boolQuery parses a boolean query parameter, defaulting when absent.
func boolQuery(r *http.Request, name string, def bool) (bool, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return def, nil
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return false, registry.Validationf("query parameter %q must be a boolean", name)
	}
	return v, nil
}

// listQuery builds listing options from the request's query parameters.
func listQuery(r *http.Request) (store.ListOptions, error) {
	q := r.URL.Query()
	opts := store.ListOptions{
		CatalogueID: q.Get("catalogue_id"),
		Status:      q.Get("status"),
		PageToken:   q.Get("page_token"),
	}
	if raw := q.Get("page_size"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			return opts, registry.Validationf("query parameter %q must be a non-negative integer", "page_size")
		}
		opts.PageSize = n
	}
	for name, dst := range map[string]**bool{"active": &opts.Active, "suspended": &opts.Suspended} {
		if raw := q.Get(name); raw != "" {
			v, err := strconv.ParseBool(raw)
			if err != nil {
				return opts, registry.Validationf("query parameter %q must be a boolean", name)
			}
			*dst = &v
		}
	}
	return opts, nil
}
