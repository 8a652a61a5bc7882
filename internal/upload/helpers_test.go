package upload

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/kie/assets/internal/logger"
	"github.com/kie/assets/internal/storage"
)

// 1x1 transparent PNG.
const tinyPNG = "iVBORw0KGgoAAAANSUhEUgAAAAEAAAABCAQAAAC1HAwCAAAAC0lEQVR42mNkYAAAAAYAAjCB0C8AAAAASUVORK5CYII="

var fixedNow = time.UnixMilli(1700000000123)

func pngBytes(t *testing.T) []byte {
	t.Helper()
	data, err := base64.StdEncoding.DecodeString(tinyPNG)
	require.NoError(t, err)
	return data
}

func testNormalizer(maxBytes int64) *Normalizer {
	n := NewNormalizer(maxBytes, logger.Discard())
	n.now = func() time.Time { return fixedNow }
	return n
}

func jsonRequest(body string) *http.Request {
	req := httptest.NewRequest(http.MethodPost, "/upload", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	return req
}

type part struct {
	field       string
	filename    string
	contentType string
	data        []byte
}

func multipartRequest(t *testing.T, parts ...part) *http.Request {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	for _, p := range parts {
		h := make(textproto.MIMEHeader)
		h.Set("Content-Disposition", fmt.Sprintf(`form-data; name=%q; filename=%q`, p.field, p.filename))
		if p.contentType != "" {
			h.Set("Content-Type", p.contentType)
		}
		w, err := mw.CreatePart(h)
		require.NoError(t, err)
		_, err = w.Write(p.data)
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/upload", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

type storedPut struct {
	name string
	data []byte
	opts storage.PutOptions
}

// fakeStore records puts in memory and serves Head from them.
type fakeStore struct {
	mu      sync.Mutex
	puts    []storedPut
	objects map[string]*storage.Object
	putErr  error
	headErr error
	block   bool
}

func newFakeStore() *fakeStore {
	return &fakeStore{objects: map[string]*storage.Object{}}
}

func (f *fakeStore) Put(ctx context.Context, name string, reader io.Reader, size int64, opts storage.PutOptions) (*storage.Object, error) {
	if f.block {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	if f.putErr != nil {
		return nil, f.putErr
	}
	data, err := io.ReadAll(reader)
	if err != nil {
		return nil, err
	}
	key := storage.ObjectKey(name, opts.AddRandomSuffix)
	obj := &storage.Object{
		URL:         "https://blob.test/" + key,
		DownloadURL: "https://blob.test/" + key + "?download=1",
		Pathname:    key,
		ContentType: opts.ContentType,
		Size:        int64(len(data)),
		UploadedAt:  fixedNow,
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	f.puts = append(f.puts, storedPut{name: name, data: data, opts: opts})
	f.objects[obj.URL] = obj
	return obj, nil
}

func (f *fakeStore) Head(ctx context.Context, url string) (*storage.Object, error) {
	if f.block {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	if f.headErr != nil {
		return nil, f.headErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	obj, ok := f.objects[url]
	if !ok {
		return nil, storage.ErrNotFound
	}
	return obj, nil
}

func (f *fakeStore) lastPut(t *testing.T) storedPut {
	t.Helper()
	f.mu.Lock()
	defer f.mu.Unlock()
	require.NotEmpty(t, f.puts, "expected a put")
	return f.puts[len(f.puts)-1]
}

func (f *fakeStore) putCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.puts)
}
