// Package storage defines the object storage collaborator used by the upload
// pipeline. The MinIO implementation works with any S3-compatible provider;
// the filesystem implementation is for local development.
package storage

import (
	"context"
	"errors"
	"io"
	"time"
)

// ErrNotFound is returned by Head when no object matches the URL, including
// URLs that do not belong to this store.
var ErrNotFound = errors.New("object not found")

// PutOptions controls how an object is written.
type PutOptions struct {
	Public          bool
	AddRandomSuffix bool
	ContentType     string
}

// Object is the storage-side view of a stored file.
type Object struct {
	URL                string    `json:"url"`
	DownloadURL        string    `json:"downloadUrl"`
	Pathname           string    `json:"pathname"`
	ContentType        string    `json:"contentType"`
	Size               int64     `json:"size"`
	UploadedAt         time.Time `json:"uploadedAt"`
	ContentDisposition string    `json:"contentDisposition,omitempty"`
	CacheControl       string    `json:"cacheControl,omitempty"`
}

// Storage is the interface for storing objects and reading their metadata.
type Storage interface {
	// Put writes size bytes from reader under a key derived from name.
	Put(ctx context.Context, name string, reader io.Reader, size int64, opts PutOptions) (*Object, error)
	// Head returns metadata for the object behind a public URL issued by Put.
	Head(ctx context.Context, url string) (*Object, error)
}
