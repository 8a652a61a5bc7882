package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// MinioOptions configures a MinioStorage.
type MinioOptions struct {
	Endpoint   string
	AccessKey  string
	SecretKey  string
	Bucket     string
	PublicBase string // browser-accessible base URL for the bucket
	UseSSL     bool
}

// MinioStorage implements Storage using a MinIO (or any S3-compatible) backend.
// The bucket carries a public-read policy, so every object is public.
type MinioStorage struct {
	client     *minio.Client
	bucket     string
	publicBase string
	log        *slog.Logger
}

// NewMinioStorage creates a MinIO client, ensures the bucket exists with a public-read
// policy, and returns a ready-to-use MinioStorage.
func NewMinioStorage(ctx context.Context, opts MinioOptions, log *slog.Logger) (*MinioStorage, error) {
	client, err := minio.New(opts.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(opts.AccessKey, opts.SecretKey, ""),
		Secure: opts.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("create minio client: %w", err)
	}

	exists, err := client.BucketExists(ctx, opts.Bucket)
	if err != nil {
		return nil, fmt.Errorf("check bucket existence: %w", err)
	}
	if !exists {
		if err := client.MakeBucket(ctx, opts.Bucket, minio.MakeBucketOptions{}); err != nil {
			return nil, fmt.Errorf("create bucket %q: %w", opts.Bucket, err)
		}
		log.Info("storage: created bucket", "bucket", opts.Bucket)
	}

	if err := client.SetBucketPolicy(ctx, opts.Bucket, publicReadPolicy(opts.Bucket)); err != nil {
		return nil, fmt.Errorf("set bucket policy: %w", err)
	}

	return &MinioStorage{
		client:     client,
		bucket:     opts.Bucket,
		publicBase: strings.TrimRight(opts.PublicBase, "/"),
		log:        log,
	}, nil
}

// Put streams reader to the bucket. size must be the exact byte count
// (pass -1 only if the size is genuinely unknown; MinIO will buffer it).
func (s *MinioStorage) Put(ctx context.Context, name string, reader io.Reader, size int64, opts PutOptions) (*Object, error) {
	if !opts.Public {
		s.log.Warn("storage: bucket is public-read, private put not honored", "name", name)
	}
	key := ObjectKey(name, opts.AddRandomSuffix)
	info, err := s.client.PutObject(ctx, s.bucket, key, reader, size, minio.PutObjectOptions{
		ContentType:        opts.ContentType,
		ContentDisposition: inlineDisposition(name),
		CacheControl:       cacheControl,
	})
	if err != nil {
		return nil, fmt.Errorf("put object %q: %w", key, err)
	}

	publicURL := s.PublicURL(key)
	return &Object{
		URL:                publicURL,
		DownloadURL:        downloadURL(publicURL),
		Pathname:           key,
		ContentType:        opts.ContentType,
		Size:               info.Size,
		UploadedAt:         info.LastModified,
		ContentDisposition: inlineDisposition(name),
		CacheControl:       cacheControl,
	}, nil
}

// Head stats the object behind url. URLs outside the public base are
// reported as ErrNotFound.
func (s *MinioStorage) Head(ctx context.Context, url string) (*Object, error) {
	key, ok := keyFromURL(s.publicBase, url)
	if !ok {
		return nil, ErrNotFound
	}
	info, err := s.client.StatObject(ctx, s.bucket, key, minio.StatObjectOptions{})
	if err != nil {
		if isNoSuchKey(err) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("stat object %q: %w", key, err)
	}

	publicURL := s.PublicURL(key)
	return &Object{
		URL:                publicURL,
		DownloadURL:        downloadURL(publicURL),
		Pathname:           key,
		ContentType:        info.ContentType,
		Size:               info.Size,
		UploadedAt:         info.LastModified,
		ContentDisposition: info.Metadata.Get("Content-Disposition"),
		CacheControl:       info.Metadata.Get("Cache-Control"),
	}, nil
}

// PublicURL returns the browser-accessible URL for the given key.
// For local MinIO: "http://localhost:9000/assets/cat-<token>.png"
func (s *MinioStorage) PublicURL(key string) string {
	return joinURL(s.publicBase, key)
}

func isNoSuchKey(err error) bool {
	resp := minio.ToErrorResponse(err)
	return resp.Code == "NoSuchKey" || resp.StatusCode == http.StatusNotFound
}

// publicReadPolicy returns an S3 bucket policy JSON that allows anonymous GET on all objects.
func publicReadPolicy(bucket string) string {
	policy := map[string]interface{}{
		"Version": "2012-10-17",
		"Statement": []map[string]interface{}{
			{
				"Effect":    "Allow",
				"Principal": "*",
				"Action":    "s3:GetObject",
				"Resource":  fmt.Sprintf("arn:aws:s3:::%s/*", bucket),
			},
		},
	}
	b, _ := json.Marshal(policy)
	return string(b)
}
