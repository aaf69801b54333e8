package api

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/madgeek-arc/resource-catalogue/pkg/auth"
	"github.com/madgeek-arc/resource-catalogue/pkg/catalogue"
	"github.com/madgeek-arc/resource-catalogue/pkg/migration"
	"github.com/madgeek-arc/resource-catalogue/pkg/registry"
	"github.com/madgeek-arc/resource-catalogue/pkg/vocabulary"
)

func newTestServer(t *testing.T) (http.Handler, *catalogue.Registry) {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	discard := slog.New(slog.NewTextHandler(io.Discard, nil))
	reg, err := catalogue.New(catalogue.Options{DB: db, Logger: discard})
	require.NoError(t, err)
	mw, err := auth.Middleware(auth.Config{})
	require.NoError(t, err)
	router := NewRouter(Options{
		Registry: reg,
		Migrator: migration.New(reg, nil, discard),
		Auth:     mw,
	})
	return router, reg
}

// do issues a request, attaching the trusted-header admin identity unless
// asAnonymous is set.
func do(t *testing.T, h http.Handler, method, path string, body any, asAnonymous bool) *httptest.ResponseRecorder {
	t.Helper()
	var rd io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		rd = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, rd)
	if !asAnonymous {
		req.Header.Set("X-User-Email", "admin@registry.example")
		req.Header.Set("X-User-Name", "Registry Admin")
		req.Header.Set("X-User-Roles", auth.RoleAdmin)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

type providerEnvelope struct {
	Bundle   registry.Bundle[*registry.Provider] `json:"bundle"`
	Warnings []string                            `json:"warnings"`
}

func decodeProvider(t *testing.T, rec *httptest.ResponseRecorder) providerEnvelope {
	t.Helper()
	var env providerEnvelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	return env
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) errorResponse {
	t.Helper()
	var e errorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &e))
	return e
}

func providerBody(name string) map[string]any {
	return map[string]any{
		"name":  name,
		"users": []map[string]string{{"email": "rep@acme.example"}},
	}
}

func TestHealthz(t *testing.T) {
	router, _ := newTestServer(t)
	rec := do(t, router, http.MethodGet, "/healthz", nil, true)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}

func TestProviderEndpoints(t *testing.T) {
	router, _ := newTestServer(t)
	set := vocabulary.StatusesFor(registry.KindProvider)

	// A bare payload document is accepted in place of a full bundle.
	rec := do(t, router, http.MethodPost, "/api/v1/providers", providerBody("Acme Research"), false)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	env := decodeProvider(t, rec)
	assert.Equal(t, "main.acme_research", env.Bundle.ID)
	assert.Equal(t, set.Pending, env.Bundle.Status)
	id := env.Bundle.ID

	rec = do(t, router, http.MethodGet, "/api/v1/providers/"+id, nil, false)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Acme Research", decodeProvider(t, rec).Bundle.Payload.Name)

	rec = do(t, router, http.MethodGet, "/api/v1/providers?page_size=10", nil, false)
	require.Equal(t, http.StatusOK, rec.Code)
	var page struct {
		Items []registry.Bundle[*registry.Provider] `json:"items"`
		Total int                                   `json:"total"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &page))
	assert.Equal(t, 1, page.Total)
	require.Len(t, page.Items, 1)

	t.Run("body and path must agree on the id", func(t *testing.T) {
		body := providerBody("Acme Research")
		body["id"] = "main.someone_else"
		rec := do(t, router, http.MethodPut, "/api/v1/providers/"+id, body, false)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("anonymous writes are rejected", func(t *testing.T) {
		rec := do(t, router, http.MethodPost, "/api/v1/providers", providerBody("Anon Org"), true)
		assert.Equal(t, http.StatusForbidden, rec.Code)
		assert.Equal(t, string(registry.CodeAccessDenied), decodeError(t, rec).Code)
	})

	t.Run("duplicate registration conflicts", func(t *testing.T) {
		rec := do(t, router, http.MethodPost, "/api/v1/providers", providerBody("Acme Research"), false)
		assert.Equal(t, http.StatusConflict, rec.Code)
	})

	rec = do(t, router, http.MethodDelete, "/api/v1/providers/"+id, nil, false)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	rec = do(t, router, http.MethodGet, "/api/v1/providers/"+id, nil, false)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, string(registry.CodeNotFound), decodeError(t, rec).Code)
}

func TestVerifyAndPublishEndpoints(t *testing.T) {
	router, _ := newTestServer(t)
	set := vocabulary.StatusesFor(registry.KindProvider)

	rec := do(t, router, http.MethodPost, "/api/v1/providers", providerBody("Acme Research"), false)
	require.Equal(t, http.StatusCreated, rec.Code)
	id := decodeProvider(t, rec).Bundle.ID

	t.Run("status parameter is required", func(t *testing.T) {
		rec := do(t, router, http.MethodPatch, "/api/v1/providers/"+id+"/verify", nil, false)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	rec = do(t, router, http.MethodPatch,
		fmt.Sprintf("/api/v1/providers/%s/verify?status=%s&active=true", id, url.QueryEscape("approved provider")), nil, false)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	env := decodeProvider(t, rec)
	assert.Equal(t, set.Approved, env.Bundle.Status)
	assert.True(t, env.Bundle.Active)

	// Approved and active means publicly visible.
	rec = do(t, router, http.MethodGet, "/api/v1/public/providers/main."+id, nil, true)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "main."+id, decodeProvider(t, rec).Bundle.ID)

	rec = do(t, router, http.MethodPatch, "/api/v1/providers/"+id+"/publish?active=false", nil, false)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.False(t, decodeProvider(t, rec).Bundle.Active)

	rec = do(t, router, http.MethodPatch, "/api/v1/providers/"+id+"/suspend?suspend=true", nil, false)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, decodeProvider(t, rec).Bundle.Suspended)

	t.Run("illegal transition conflicts", func(t *testing.T) {
		rec := do(t, router, http.MethodPatch,
			fmt.Sprintf("/api/v1/providers/%s/verify?status=%s", id, url.QueryEscape("rejected provider")), nil, false)
		require.Equal(t, http.StatusOK, rec.Code)
		rec = do(t, router, http.MethodPatch,
			fmt.Sprintf("/api/v1/providers/%s/verify?status=%s&active=true", id, url.QueryEscape("approved provider")), nil, false)
		assert.Equal(t, http.StatusConflict, rec.Code)
	})
}

func TestAuditEndpoint(t *testing.T) {
	router, _ := newTestServer(t)

	rec := do(t, router, http.MethodPost, "/api/v1/providers", providerBody("Acme Research"), false)
	require.Equal(t, http.StatusCreated, rec.Code)
	id := decodeProvider(t, rec).Bundle.ID

	rec = do(t, router, http.MethodPatch, "/api/v1/providers/"+id+"/audit",
		map[string]string{"action": "invalid", "comment": "stale website"}, false)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	env := decodeProvider(t, rec)
	assert.Equal(t, registry.InvalidAndNotUpdated, env.Bundle.AuditState)

	t.Run("verdict must be valid or invalid", func(t *testing.T) {
		rec := do(t, router, http.MethodPatch, "/api/v1/providers/"+id+"/audit",
			map[string]string{"action": "updated"}, false)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestDraftEndpoints(t *testing.T) {
	router, _ := newTestServer(t)
	set := vocabulary.StatusesFor(registry.KindProvider)

	rec := do(t, router, http.MethodPost, "/api/v1/providers/drafts", providerBody("Acme Research"), false)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	id := decodeProvider(t, rec).Bundle.ID

	rec = do(t, router, http.MethodGet, "/api/v1/providers/drafts/"+id, nil, false)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, decodeProvider(t, rec).Bundle.Status)

	rec = do(t, router, http.MethodPost, "/api/v1/providers/drafts/"+id+"/transform", nil, false)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, set.Pending, decodeProvider(t, rec).Bundle.Status)

	// The record left the draft pool and entered the workflow.
	rec = do(t, router, http.MethodGet, "/api/v1/providers/drafts/"+id, nil, false)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	rec = do(t, router, http.MethodGet, "/api/v1/providers/"+id, nil, false)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestMigrationEndpoints(t *testing.T) {
	router, _ := newTestServer(t)

	// Target catalogue, approved.
	rec := do(t, router, http.MethodPost, "/api/v1/catalogues", map[string]any{
		"name":  "Partner Catalogue",
		"users": []map[string]string{{"email": "ops@partner.example"}},
	}, false)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var catEnv struct {
		Bundle registry.Bundle[*registry.Catalogue] `json:"bundle"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &catEnv))
	catID := catEnv.Bundle.ID
	rec = do(t, router, http.MethodPatch,
		fmt.Sprintf("/api/v1/catalogues/%s/verify?status=%s&active=true", catID, url.QueryEscape("approved catalogue")), nil, false)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = do(t, router, http.MethodPost, "/api/v1/providers", providerBody("Acme Research"), false)
	require.Equal(t, http.StatusCreated, rec.Code)
	provID := decodeProvider(t, rec).Bundle.ID

	rec = do(t, router, http.MethodPost, "/api/v1/migrations/providers/"+provID+"/catalogue",
		map[string]string{"targetCatalogueId": catID, "comment": "reorg"}, false)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	env := decodeProvider(t, rec)
	assert.Equal(t, catID, env.Bundle.Payload.CatalogueID)

	t.Run("unknown provider", func(t *testing.T) {
		rec := do(t, router, http.MethodPost, "/api/v1/migrations/providers/main.ghost/catalogue",
			map[string]string{"targetCatalogueId": catID}, false)
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})
}
