package upload

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/kie/assets/internal/storage"
)

// Result is the response body of a successful upload.
type Result struct {
	Success     bool      `json:"success" example:"true"`
	URL         string    `json:"url" example:"http://localhost:9000/assets/cat-d2k3m1l8ug0fsrc1e0ag.png"`
	DownloadURL string    `json:"downloadUrl" example:"http://localhost:9000/assets/cat-d2k3m1l8ug0fsrc1e0ag.png?download=1"`
	Pathname    string    `json:"pathname" example:"cat-d2k3m1l8ug0fsrc1e0ag.png"`
	ContentType string    `json:"contentType" example:"image/png"`
	UploadedAt  time.Time `json:"uploadedAt" example:"2026-10-19T12:00:00Z"`
}

// Record describes a stored object for the upload journal.
type Record struct {
	URL         string
	Pathname    string
	ContentType string
	Size        int64
	Shape       Shape
	UploadedAt  time.Time
}

// Recorder keeps an audit trail of stored objects.
type Recorder interface {
	Record(ctx context.Context, rec Record) error
}

// Observer receives one call per upload attempt.
type Observer interface {
	ObserveUpload(shape Shape, duration time.Duration, size int, err error)
}

type nopObserver struct{}

func (nopObserver) ObserveUpload(Shape, time.Duration, int, error) {}

// Options carries the Service's optional collaborators.
type Options struct {
	MaxBytes int64
	Timeout  time.Duration
	Recorder Recorder // nil disables the journal
	Observer Observer // nil disables metrics
}

// Service normalizes requests and stores the resulting payloads.
type Service struct {
	normalizer *Normalizer
	store      storage.Storage
	recorder   Recorder
	observer   Observer
	timeout    time.Duration
	now        func() time.Time
	log        *slog.Logger
}

// NewService creates a Service storing into store.
func NewService(store storage.Storage, log *slog.Logger, opts Options) *Service {
	observer := opts.Observer
	if observer == nil {
		observer = nopObserver{}
	}
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	maxBytes := opts.MaxBytes
	if maxBytes <= 0 {
		maxBytes = 10 << 20
	}
	return &Service{
		normalizer: NewNormalizer(maxBytes, log),
		store:      store,
		recorder:   opts.Recorder,
		observer:   observer,
		timeout:    timeout,
		now:        time.Now,
		log:        log,
	}
}

// Upload runs the whole pipeline for one request: normalize, store, relay.
func (s *Service) Upload(r *http.Request) (*Result, error) {
	start := time.Now()
	p, err := s.normalizer.Normalize(r)
	if err != nil {
		s.observer.ObserveUpload("", time.Since(start), 0, err)
		return nil, err
	}
	res, err := s.Store(r.Context(), p)
	s.observer.ObserveUpload(p.Shape, time.Since(start), len(p.Data), err)
	return res, err
}

// Store puts a normalized payload into storage. Failures are not retried.
func (s *Service) Store(ctx context.Context, p *Payload) (*Result, error) {
	putCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	obj, err := s.store.Put(putCtx, p.Filename, bytes.NewReader(p.Data), int64(len(p.Data)), storage.PutOptions{
		Public:          true,
		AddRandomSuffix: true,
		ContentType:     p.ContentType,
	})
	if err != nil {
		return nil, s.storageError(putCtx, err)
	}

	contentType := obj.ContentType
	if contentType == "" {
		contentType = p.ContentType
	}
	res := &Result{
		Success:     true,
		URL:         obj.URL,
		DownloadURL: obj.DownloadURL,
		Pathname:    obj.Pathname,
		ContentType: contentType,
		UploadedAt:  s.now().UTC(),
	}
	s.log.Info("upload stored",
		"pathname", res.Pathname,
		"content_type", res.ContentType,
		"size", humanize.Bytes(uint64(len(p.Data))),
		"shape", p.Shape)

	if s.recorder != nil {
		rec := Record{
			URL:         res.URL,
			Pathname:    res.Pathname,
			ContentType: res.ContentType,
			Size:        int64(len(p.Data)),
			Shape:       p.Shape,
			UploadedAt:  res.UploadedAt,
		}
		if err := s.recorder.Record(ctx, rec); err != nil {
			s.log.Warn("upload journal write failed", "pathname", res.Pathname, "error", err)
		}
	}
	return res, nil
}

// Lookup returns storage metadata for a URL previously issued by Store.
func (s *Service) Lookup(ctx context.Context, url string) (*storage.Object, error) {
	headCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	obj, err := s.store.Head(headCtx, url)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, wrapError(err, KindNotFound, "File not found or invalid URL")
	}
	if err != nil {
		return nil, s.storageError(headCtx, err)
	}
	return obj, nil
}

func (s *Service) storageError(ctx context.Context, err error) *Error {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return wrapError(err, KindStorageTimeout, "storage did not respond within "+s.timeout.String())
	}
	return wrapError(err, KindStorageError, err.Error())
}
