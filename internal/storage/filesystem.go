package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/gabriel-vasile/mimetype"
)

// FilesystemStorage implements Storage by writing files to the local disk. It is
// intended for development and testing; pair it with FileServer so the issued
// URLs resolve.
type FilesystemStorage struct {
	baseDir    string
	publicBase string
}

// NewFilesystemStorage creates a store rooted at baseDir whose objects are
// reachable under publicBase.
func NewFilesystemStorage(baseDir, publicBase string) (*FilesystemStorage, error) {
	if baseDir == "" {
		baseDir = "data/assets"
	}
	if err := os.MkdirAll(baseDir, 0o755); err != nil {
		return nil, fmt.Errorf("create storage dir: %w", err)
	}
	return &FilesystemStorage{baseDir: baseDir, publicBase: strings.TrimRight(publicBase, "/")}, nil
}

func (s *FilesystemStorage) Put(ctx context.Context, name string, reader io.Reader, size int64, opts PutOptions) (*Object, error) {
	key := ObjectKey(name, opts.AddRandomSuffix)
	path := filepath.Join(s.baseDir, filepath.FromSlash(key))
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("ensure object dir: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("create object: %w", err)
	}
	written, err := io.Copy(f, reader)
	if err != nil {
		_ = f.Close()
		_ = os.Remove(path)
		return nil, fmt.Errorf("write object: %w", err)
	}
	if err := f.Close(); err != nil {
		return nil, fmt.Errorf("close object: %w", err)
	}
	if size >= 0 && written != size {
		_ = os.Remove(path)
		return nil, fmt.Errorf("write object: wrote %d of %d bytes", written, size)
	}
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("stat object: %w", err)
	}

	publicURL := joinURL(s.publicBase, key)
	return &Object{
		URL:                publicURL,
		DownloadURL:        downloadURL(publicURL),
		Pathname:           key,
		ContentType:        opts.ContentType,
		Size:               written,
		UploadedAt:         info.ModTime().UTC(),
		ContentDisposition: inlineDisposition(name),
		CacheControl:       cacheControl,
	}, nil
}

// Head stats the file behind url. The content type is sniffed from the file,
// since the filesystem keeps no metadata.
func (s *FilesystemStorage) Head(ctx context.Context, url string) (*Object, error) {
	key, ok := keyFromURL(s.publicBase, url)
	if !ok {
		return nil, ErrNotFound
	}
	path := filepath.Join(s.baseDir, filepath.FromSlash(key))
	info, err := os.Stat(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("stat object: %w", err)
	}
	if info.IsDir() {
		return nil, ErrNotFound
	}
	mt, err := mimetype.DetectFile(path)
	if err != nil {
		return nil, fmt.Errorf("detect content type: %w", err)
	}

	publicURL := joinURL(s.publicBase, key)
	return &Object{
		URL:                publicURL,
		DownloadURL:        downloadURL(publicURL),
		Pathname:           key,
		ContentType:        mimeEssence(mt.String()),
		Size:               info.Size(),
		UploadedAt:         info.ModTime().UTC(),
		ContentDisposition: inlineDisposition(key),
		CacheControl:       cacheControl,
	}, nil
}

// FileServer serves stored files, to be mounted at the path of publicBase.
func (s *FilesystemStorage) FileServer() http.Handler {
	return http.FileServer(http.Dir(s.baseDir))
}

func mimeEssence(mime string) string {
	if i := strings.Index(mime, ";"); i >= 0 {
		return strings.TrimSpace(mime[:i])
	}
	return mime
}
