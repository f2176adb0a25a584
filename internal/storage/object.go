package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// ErrNotFound is returned by Get when no object exists at the requested key
// or version.
var ErrNotFound = errors.New("object not found")

// ObjectStore is the capability the storage core needs from an S3-compatible
// backend. Keeping it an interface allows swapping the backend and faking it
// in tests.
type ObjectStore interface {
	Put(ctx context.Context, key string, data io.Reader, size int64, contentType string) error
	Get(ctx context.Context, key, versionID string) (*Object, error)
	Copy(ctx context.Context, srcKey, dstKey string) error
	Delete(ctx context.Context, key string) error
	ListVersions(ctx context.Context, key string) ([]Version, error)
}

// Object is the content fetched from the store.
type Object struct {
	Data        []byte
	Size        int64
	ContentType string
}

// Version is one historical snapshot of the bytes at a key.
type Version struct {
	ID           string
	LastModified time.Time
	Size         int64
}

// MinioStore implements ObjectStore against MinIO/S3. The bucket has
// versioning enabled so overwrites preserve history.
type MinioStore struct {
	client *minio.Client
	bucket string
	region string
}

// Options configures the MinIO connection.
type Options struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	Region    string
	UseSSL    bool
}

// NewMinioStore creates a MinIO client.
func NewMinioStore(opts Options) (*MinioStore, error) {
	client, err := minio.New(opts.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(opts.AccessKey, opts.SecretKey, ""),
		Secure: opts.UseSSL,
		Region: opts.Region,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create MinIO client: %w", err)
	}
	return &MinioStore{client: client, bucket: opts.Bucket, region: opts.Region}, nil
}

// EnsureBucket creates the bucket if needed and turns on versioning.
func (s *MinioStore) EnsureBucket(ctx context.Context) error {
	exists, err := s.client.BucketExists(ctx, s.bucket)
	if err != nil {
		return fmt.Errorf("failed to check bucket %s: %w", s.bucket, err)
	}
	if !exists {
		if err := s.client.MakeBucket(ctx, s.bucket, minio.MakeBucketOptions{Region: s.region}); err != nil {
			return fmt.Errorf("failed to create bucket %s: %w", s.bucket, err)
		}
		slog.Info("created bucket", "bucket", s.bucket)
	}
	if err := s.client.EnableVersioning(ctx, s.bucket); err != nil {
		return fmt.Errorf("failed to enable versioning on %s: %w", s.bucket, err)
	}
	return nil
}

// Put uploads bytes under key. With versioning on, overwriting an existing
// key records a new version rather than destroying history.
func (s *MinioStore) Put(ctx context.Context, key string, data io.Reader, size int64, contentType string) error {
	_, err := s.client.PutObject(ctx, s.bucket, key, data, size, minio.PutObjectOptions{
		ContentType: contentType,
	})
	if err != nil {
		return fmt.Errorf("failed to put object %s: %w", key, err)
	}
	return nil
}

// Get fetches the current bytes at key, or a specific historical version
// when versionID is non-empty.
func (s *MinioStore) Get(ctx context.Context, key, versionID string) (*Object, error) {
	obj, err := s.client.GetObject(ctx, s.bucket, key, minio.GetObjectOptions{
		VersionID: versionID,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get object %s: %w", key, err)
	}
	defer obj.Close()

	data, err := io.ReadAll(obj)
	if err != nil {
		// The SDK defers the existence check until the first read.
		switch minio.ToErrorResponse(err).Code {
		case "NoSuchKey", "NoSuchVersion":
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to read object %s: %w", key, err)
	}
	stat, err := obj.Stat()
	if err != nil {
		return nil, fmt.Errorf("failed to stat object %s: %w", key, err)
	}
	return &Object{
		Data:        data,
		Size:        stat.Size,
		ContentType: stat.ContentType,
	}, nil
}

// Copy performs a server-side copy. No bytes travel through this process.
func (s *MinioStore) Copy(ctx context.Context, srcKey, dstKey string) error {
	_, err := s.client.CopyObject(ctx,
		minio.CopyDestOptions{Bucket: s.bucket, Object: dstKey},
		minio.CopySrcOptions{Bucket: s.bucket, Object: srcKey},
	)
	if err != nil {
		return fmt.Errorf("failed to copy object %s to %s: %w", srcKey, dstKey, err)
	}
	return nil
}

// Delete removes the object at key. On a versioned bucket this writes a
// delete marker; history remains until expired by bucket policy.
func (s *MinioStore) Delete(ctx context.Context, key string) error {
	if err := s.client.RemoveObject(ctx, s.bucket, key, minio.RemoveObjectOptions{}); err != nil {
		return fmt.Errorf("failed to delete object %s: %w", key, err)
	}
	return nil
}

// ListVersions returns all stored versions at key, newest first, skipping
// delete markers. The store is the source of truth; nothing is cached.
func (s *MinioStore) ListVersions(ctx context.Context, key string) ([]Version, error) {
	var versions []Version
	for info := range s.client.ListObjects(ctx, s.bucket, minio.ListObjectsOptions{
		Prefix:       key,
		WithVersions: true,
		Recursive:    true,
	}) {
		if info.Err != nil {
			return nil, fmt.Errorf("failed to list versions for %s: %w", key, info.Err)
		}
		if info.Key != key || info.IsDeleteMarker {
			continue
		}
		versions = append(versions, Version{
			ID:           info.VersionID,
			LastModified: info.LastModified,
			Size:         info.Size,
		})
	}
	sort.Slice(versions, func(i, j int) bool {
		return versions[i].LastModified.After(versions[j].LastModified)
	})
	return versions, nil
}
