package server

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kie/assets/internal/config"
	"github.com/kie/assets/internal/journal"
	"github.com/kie/assets/internal/logger"
	"github.com/kie/assets/internal/storage"
	"github.com/kie/assets/internal/upload"
)

const (
	apiKey    = "s3cret"
	publicURL = "http://localhost:8080/assets"
	tinyPNG   = "iVBORw0KGgoAAAANSUhEUgAAAAEAAAABCAQAAAC1HAwCAAAAC0lEQVR42mNkYAAAAAYAAjCB0C8AAAAASUVORK5CYII="
)

type memJournal struct {
	mu      sync.Mutex
	entries []journal.Entry
}

func (m *memJournal) Record(ctx context.Context, rec upload.Record) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries = append([]journal.Entry{{
		URL: rec.URL, Pathname: rec.Pathname, ContentType: rec.ContentType,
		SizeBytes: rec.Size, Shape: string(rec.Shape), UploadedAt: rec.UploadedAt,
	}}, m.entries...)
	return nil
}

func (m *memJournal) Recent(ctx context.Context, limit int) ([]journal.Entry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if limit < len(m.entries) {
		return m.entries[:limit], nil
	}
	return m.entries, nil
}

func testConfig() *config.Config {
	return &config.Config{
		APIKey:             apiKey,
		APIKeyHeader:       "x-api-key",
		MaxUploadBytes:     1 << 20,
		StorageTimeout:     5 * time.Second,
		StoragePublicBase:  publicURL,
		CORSAllowedOrigins: []string{"*"},
	}
}

func newTestRouter(t *testing.T, j Journal) http.Handler {
	t.Helper()
	store, err := storage.NewFilesystemStorage(t.TempDir(), publicURL)
	require.NoError(t, err)
	deps := Deps{
		Config:   testConfig(),
		Log:      logger.Discard(),
		Store:    store,
		Registry: prometheus.NewRegistry(),
	}
	if j != nil {
		deps.Journal = j
	}
	h, err := NewRouter(deps)
	require.NoError(t, err)
	return h
}

func do(h http.Handler, req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func jsonUpload(path, body, key string) *http.Request {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if key != "" {
		req.Header.Set("x-api-key", key)
	}
	return req
}

func TestGateRunsBeforeBodyParsing(t *testing.T) {
	h := newTestRouter(t, nil)

	for _, key := range []string{"", "wrong"} {
		for _, path := range []string{"/upload", "/api/n8n/upload"} {
			rec := do(h, jsonUpload(path, `{"data": `, key))

			assert.Equal(t, http.StatusUnauthorized, rec.Code)
			assert.JSONEq(t, `{"error":"Unauthorized","kind":"Unauthorized"}`, rec.Body.String())
		}
	}
}

func TestGateGuardsFileLookup(t *testing.T) {
	h := newTestRouter(t, nil)

	rec := do(h, httptest.NewRequest(http.MethodGet, "/file", nil))

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestUploadThenLookupAndFetch(t *testing.T) {
	h := newTestRouter(t, nil)

	rec := do(h, jsonUpload("/upload", `{"data":"data:image/png;base64,`+tinyPNG+`","name":"pixel"}`, apiKey))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var res upload.Result
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &res))
	assert.True(t, res.Success)
	assert.True(t, strings.HasPrefix(res.URL, publicURL+"/pixel-"))
	assert.True(t, strings.HasSuffix(res.Pathname, ".png"))
	assert.Equal(t, "image/png", res.ContentType)

	lookup := httptest.NewRequest(http.MethodGet, "/file?url="+url.QueryEscape(res.URL), nil)
	lookup.Header.Set("x-api-key", apiKey)
	rec = do(h, lookup)
	require.Equal(t, http.StatusOK, rec.Code)
	var obj storage.Object
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &obj))
	assert.Equal(t, res.Pathname, obj.Pathname)
	assert.Equal(t, "image/png", obj.ContentType)

	rec = do(h, httptest.NewRequest(http.MethodGet, "/assets/"+res.Pathname, nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestMultipartJSONPassThroughStoresJSON(t *testing.T) {
	h := newTestRouter(t, nil)

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	fw, err := mw.CreateFormFile("file", "settings.json")
	require.NoError(t, err)
	_, _ = fw.Write([]byte(`{"unrelated": 1}`))
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/n8n/upload", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("x-api-key", apiKey)
	rec := do(h, req)

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var res upload.Result
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &res))
	assert.Equal(t, "application/json", res.ContentType)
	assert.True(t, strings.HasSuffix(res.Pathname, ".json"))
}

func TestUploadErrorStatuses(t *testing.T) {
	h := newTestRouter(t, nil)

	rec := do(h, jsonUpload("/upload", `{"data":"%%%not-base64%%%"}`, apiKey))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), `"kind":"DecodeError"`)

	req := httptest.NewRequest(http.MethodPost, "/upload", strings.NewReader("raw"))
	req.Header.Set("Content-Type", "image/png")
	req.Header.Set("x-api-key", apiKey)
	rec = do(h, req)
	assert.Equal(t, http.StatusUnsupportedMediaType, rec.Code)
	assert.Contains(t, rec.Body.String(), "image/png")
}

func TestFileLookupStatuses(t *testing.T) {
	h := newTestRouter(t, nil)

	tests := []struct {
		name  string
		query string
		want  int
	}{
		{"missing url", "", http.StatusBadRequest},
		{"unknown object", "?url=" + url.QueryEscape(publicURL+"/ghost.png"), http.StatusNotFound},
		{"foreign url", "?url=" + url.QueryEscape("https://example.com/x.png"), http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/api/n8n/file"+tt.query, nil)
			req.Header.Set("x-api-key", apiKey)
			assert.Equal(t, tt.want, do(h, req).Code)
		})
	}
}

func TestJournalRoute(t *testing.T) {
	j := &memJournal{}
	h := newTestRouter(t, j)

	require.Equal(t, http.StatusOK, do(h, jsonUpload("/upload", `{"data":"`+tinyPNG+`"}`, apiKey)).Code)

	req := httptest.NewRequest(http.MethodGet, "/uploads", nil)
	req.Header.Set("x-api-key", apiKey)
	rec := do(h, req)
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Uploads []journal.Entry `json:"uploads"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Len(t, body.Uploads, 1)
	assert.Equal(t, "json", body.Uploads[0].Shape)
}

func TestJournalRouteAbsentWithoutJournal(t *testing.T) {
	h := newTestRouter(t, nil)

	req := httptest.NewRequest(http.MethodGet, "/uploads", nil)
	req.Header.Set("x-api-key", apiKey)

	rec := do(h, req)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.JSONEq(t, `{"error":"route not found"}`, rec.Body.String())
}

func TestUngatedEndpoints(t *testing.T) {
	h := newTestRouter(t, nil)

	rec := do(h, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())

	rec = do(h, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}
