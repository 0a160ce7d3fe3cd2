package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"linklander/backend/internal/entity"
	"linklander/backend/internal/graph"
	"linklander/backend/internal/persistence"
	"linklander/backend/internal/search"
	apperrors "linklander/backend/pkg/errors"
)

type stubTitles struct {
	calls int
}

func (s *stubTitles) ResolveOrEmpty(ctx context.Context, rawURL string) string {
	s.calls++
	return "Resolved Title"
}

type testServer struct {
	router  *gin.Engine
	gateway *persistence.Gateway
	titles  *stubTitles
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)
	ctx := context.Background()

	store, err := graph.NewSQLite(ctx, filepath.Join(t.TempDir(), "api.db"), zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { store.Close(ctx) })

	gw := persistence.New(store, zap.NewNop(), persistence.Options{})
	require.NoError(t, gw.EnsureSchema(ctx))

	titles := &stubTitles{}
	router := NewRouter(Options{
		Gateway: gw,
		Search:  search.NewAdvanced(gw, zap.NewNop()),
		Titles:  titles,
		Logger:  zap.NewNop(),
	})
	return &testServer{router: router, gateway: gw, titles: titles}
}

func (s *testServer) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req, err := http.NewRequest(method, path, &buf)
	require.NoError(t, err)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &v))
	return v
}

func TestHealthEndpoint(t *testing.T) {
	s := newTestServer(t)

	w := s.do(t, http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "ok", decode[map[string]any](t, w)["status"])
}

func TestLinkLifecycle(t *testing.T) {
	s := newTestServer(t)

	w := s.do(t, http.MethodPost, "/api/links", map[string]string{"name": "Go", "url": "https://go.dev"})
	require.Equal(t, http.StatusCreated, w.Code)
	created := decode[entity.Link](t, w)
	assert.Equal(t, "Resolved Title", created.Title)
	assert.Equal(t, 1, s.titles.calls)

	w = s.do(t, http.MethodPost, "/api/links", map[string]string{"name": "Docs", "url": "https://pkg.go.dev", "title": "Given"})
	require.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, "Given", decode[entity.Link](t, w).Title)
	assert.Equal(t, 1, s.titles.calls)

	w = s.do(t, http.MethodGet, "/api/links/"+created.UUID, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, created, decode[entity.Link](t, w))

	w = s.do(t, http.MethodPatch, "/api/links/"+created.UUID, map[string]string{"name": "Golang"})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "Golang", decode[entity.Link](t, w).Name)

	w = s.do(t, http.MethodPut, "/api/links/"+created.UUID+"/score", map[string]float64{"score": 3})
	require.Equal(t, http.StatusOK, w.Code)

	w = s.do(t, http.MethodGet, "/api/links/"+created.UUID+"/visit", nil)
	require.Equal(t, http.StatusFound, w.Code)
	assert.Equal(t, "https://go.dev", w.Header().Get("Location"))

	w = s.do(t, http.MethodPost, "/api/links/update", map[string]string{"property": "CLICK_COUNT", "match": "Golang", "value": "Golang"})
	require.Equal(t, http.StatusOK, w.Code)

	link, err := s.gateway.GetLinkByUUID(context.Background(), created.UUID)
	require.NoError(t, err)
	assert.Equal(t, int64(2), link.Clicks)
	assert.Equal(t, 3.0, link.Score)

	w = s.do(t, http.MethodGet, "/api/links/search?field=URL&q=PKG", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decode[[]entity.Link](t, w), 1)

	w = s.do(t, http.MethodGet, "/api/links", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decode[[]entity.Link](t, w), 2)

	w = s.do(t, http.MethodDelete, "/api/links/"+created.UUID, nil)
	assert.Equal(t, http.StatusNoContent, w.Code)

	w = s.do(t, http.MethodDelete, "/api/links?property=NAME&value=doc&mode=SOFT", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, float64(1), decode[map[string]any](t, w)["deleted"])
}

func TestErrorMapping(t *testing.T) {
	s := newTestServer(t)
	_, err := s.gateway.AddTag(context.Background(), "dup", "first")
	require.NoError(t, err)

	tests := []struct {
		name   string
		method string
		path   string
		body   any
		want   int
	}{
		{"blank name", http.MethodPost, "/api/links", map[string]string{"name": " ", "url": "https://x.com"}, http.StatusBadRequest},
		{"malformed json", http.MethodPost, "/api/links", "not an object", http.StatusBadRequest},
		{"unknown link", http.MethodGet, "/api/links/" + entity.NewUUID(), nil, http.StatusNotFound},
		{"unknown visit", http.MethodGet, "/api/links/" + entity.NewUUID() + "/visit", nil, http.StatusNotFound},
		{"unsupported search field", http.MethodGet, "/api/links/search?field=TITLE&q=x", nil, http.StatusBadRequest},
		{"bad deletion mode", http.MethodDelete, "/api/links?property=NAME&value=x&mode=FUZZY", nil, http.StatusBadRequest},
		{"duplicate tag", http.MethodPost, "/api/tags", map[string]string{"name": "dup", "description": "second"}, http.StatusConflict},
		{"empty patch", http.MethodPatch, "/api/links/" + entity.NewUUID(), map[string]string{}, http.StatusBadRequest},
		{"missing score", http.MethodPut, "/api/links/x/score", map[string]string{}, http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := s.do(t, tt.method, tt.path, tt.body)
			assert.Equal(t, tt.want, w.Code, w.Body.String())
		})
	}
}

func TestStatusFor(t *testing.T) {
	assert.Equal(t, http.StatusBadRequest, statusFor(apperrors.NewValidation("name", "must not be blank")))
	assert.Equal(t, http.StatusBadRequest, statusFor(apperrors.NewUnsupportedField("link", "TITLE")))
	assert.Equal(t, http.StatusNotFound, statusFor(apperrors.NewNotFound("link", "uuid", "x")))
	assert.Equal(t, http.StatusConflict, statusFor(apperrors.NewConstraintViolation("tag", nil, nil)))
	assert.Equal(t, http.StatusInternalServerError, statusFor(apperrors.NewStorage("read", assert.AnError)))
	assert.Equal(t, http.StatusInternalServerError, statusFor(assert.AnError))
}

func TestTaggingAndSearch(t *testing.T) {
	s := newTestServer(t)
	ctx := context.Background()

	golang, err := s.gateway.AddLink(ctx, "golang", "https://go.dev", "Go")
	require.NoError(t, err)
	rust, err := s.gateway.AddLink(ctx, "rust", "https://rust-lang.org", "Rust")
	require.NoError(t, err)

	w := s.do(t, http.MethodPost, "/api/tags", map[string]string{"name": "language", "description": "programming languages"})
	require.Equal(t, http.StatusCreated, w.Code)
	lang := decode[entity.Tag](t, w)

	w = s.do(t, http.MethodPost, "/api/tags", map[string]string{"name": "compiled", "description": "native code"})
	require.Equal(t, http.StatusCreated, w.Code)
	compiled := decode[entity.Tag](t, w)

	w = s.do(t, http.MethodPost, "/api/links/"+golang+"/tags/"+lang.UUID, nil)
	require.Equal(t, http.StatusNoContent, w.Code)

	w = s.do(t, http.MethodPut, "/api/links/"+rust+"/tags", map[string][]string{"tags": {lang.UUID, compiled.UUID}})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decode[[]entity.Tag](t, w), 2)

	w = s.do(t, http.MethodGet, "/api/tags/search?q=LANG", nil)
	require.Equal(t, http.StatusOK, w.Code)
	groups := decode[[]persistence.TagLinks](t, w)
	require.Len(t, groups, 1)
	assert.Len(t, groups[0].Links, 2)

	w = s.do(t, http.MethodGet, "/api/search?q=rust+compiled", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var result struct {
		Count   int                `json:"count"`
		Results []search.SearchHit `json:"results"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &result))
	require.Equal(t, 1, result.Count)
	assert.Equal(t, rust, result.Results[0].Link.UUID)
	assert.Equal(t, 2.0, result.Results[0].Score)
	assert.Len(t, result.Results[0].Tags, 2)

	w = s.do(t, http.MethodGet, "/api/search", nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &result))
	assert.Equal(t, 2, result.Count)

	w = s.do(t, http.MethodDelete, "/api/links/"+golang+"/tags/"+lang.UUID, nil)
	require.Equal(t, http.StatusNoContent, w.Code)

	w = s.do(t, http.MethodGet, "/api/links/"+golang+"/tags", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, decode[[]entity.Tag](t, w))

	w = s.do(t, http.MethodPost, "/api/tags/click", map[string]string{"name": "compiled"})
	require.Equal(t, http.StatusOK, w.Code)

	w = s.do(t, http.MethodPost, "/api/tags/update", map[string]string{"property": "DESCRIPTION", "match": "compiled", "value": "ahead of time"})
	require.Equal(t, http.StatusOK, w.Code)

	w = s.do(t, http.MethodGet, "/api/tags/"+compiled.UUID, nil)
	require.Equal(t, http.StatusOK, w.Code)
	tag := decode[entity.Tag](t, w)
	assert.Equal(t, int64(1), tag.Clicks)
	assert.Equal(t, "ahead of time", tag.Description)

	w = s.do(t, http.MethodDelete, "/api/tags/"+compiled.UUID, nil)
	require.Equal(t, http.StatusNoContent, w.Code)

	w = s.do(t, http.MethodDelete, "/api/tags?value=lang&mode=SOFT", nil)
	require.Equal(t, http.StatusOK, w.Code)

	w = s.do(t, http.MethodGet, "/api/tags", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, decode[[]entity.Tag](t, w))
}

func TestPatchLink_RejectedFieldLeavesLinkUnchanged(t *testing.T) {
	s := newTestServer(t)
	ctx := context.Background()

	id, err := s.gateway.AddLink(ctx, "original", "https://original.com", "Original")
	require.NoError(t, err)

	w := s.do(t, http.MethodPatch, "/api/links/"+id, map[string]string{"name": "changed", "url": "   "})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	link, err := s.gateway.GetLinkByUUID(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "original", link.Name)
	assert.Equal(t, "https://original.com", link.URL)

	w = s.do(t, http.MethodPatch, "/api/links/"+id, map[string]string{"name": "changed", "url": "https://changed.com"})
	require.Equal(t, http.StatusOK, w.Code)
	patched := decode[entity.Link](t, w)
	assert.Equal(t, "changed", patched.Name)
	assert.Equal(t, "https://changed.com", patched.URL)
	assert.Equal(t, "Original", patched.Title)
}
