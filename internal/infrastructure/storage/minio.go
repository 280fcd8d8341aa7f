package storage

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/hszk-dev/purestream/internal/domain/model"
	"github.com/hszk-dev/purestream/internal/domain/repository"
)

const objectPrefix = "media/"

// objectReader abstracts minio.Object for testability.
// *minio.Object satisfies this interface.
type objectReader interface {
	io.ReadCloser
	Stat() (minio.ObjectInfo, error)
}

// minioClient defines the interface for MinIO operations.
// This abstraction allows for easier unit testing with mocks.
type minioClient interface {
	BucketExists(ctx context.Context, bucketName string) (bool, error)
	PutObject(ctx context.Context, bucketName, objectName string, reader io.Reader, objectSize int64, opts minio.PutObjectOptions) (minio.UploadInfo, error)
	GetObject(ctx context.Context, bucketName, objectName string, opts minio.GetObjectOptions) (objectReader, error)
	StatObject(ctx context.Context, bucketName, objectName string, opts minio.StatObjectOptions) (minio.ObjectInfo, error)
	RemoveObject(ctx context.Context, bucketName, objectName string, opts minio.RemoveObjectOptions) error
	ListObjects(ctx context.Context, bucketName string, opts minio.ListObjectsOptions) <-chan minio.ObjectInfo
}

// minioClientAdapter wraps *minio.Client to implement minioClient interface.
// *minio.Client.GetObject returns *minio.Object while the interface returns objectReader.
type minioClientAdapter struct {
	client *minio.Client
}

func (a *minioClientAdapter) BucketExists(ctx context.Context, bucketName string) (bool, error) {
	return a.client.BucketExists(ctx, bucketName)
}

func (a *minioClientAdapter) PutObject(ctx context.Context, bucketName, objectName string, reader io.Reader, objectSize int64, opts minio.PutObjectOptions) (minio.UploadInfo, error) {
	return a.client.PutObject(ctx, bucketName, objectName, reader, objectSize, opts)
}

func (a *minioClientAdapter) GetObject(ctx context.Context, bucketName, objectName string, opts minio.GetObjectOptions) (objectReader, error) {
	return a.client.GetObject(ctx, bucketName, objectName, opts)
}

func (a *minioClientAdapter) StatObject(ctx context.Context, bucketName, objectName string, opts minio.StatObjectOptions) (minio.ObjectInfo, error) {
	return a.client.StatObject(ctx, bucketName, objectName, opts)
}

func (a *minioClientAdapter) RemoveObject(ctx context.Context, bucketName, objectName string, opts minio.RemoveObjectOptions) error {
	return a.client.RemoveObject(ctx, bucketName, objectName, opts)
}

func (a *minioClientAdapter) ListObjects(ctx context.Context, bucketName string, opts minio.ListObjectsOptions) <-chan minio.ObjectInfo {
	return a.client.ListObjects(ctx, bucketName, opts)
}

// ClientConfig holds configuration for the MinIO client.
type ClientConfig struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	UseSSL    bool
}

// MinioStore implements repository.BlobStore on a MinIO bucket.
// Entry sizes and insertion times come from object metadata.
type MinioStore struct {
	client minioClient
	bucket string
}

var _ repository.BlobStore = (*MinioStore)(nil)

// NewMinioStore creates a new MinIO backed blob store.
// It verifies the bucket exists during initialization to fail fast on misconfiguration.
func NewMinioStore(ctx context.Context, cfg ClientConfig) (*MinioStore, error) {
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create minio client: %w", err)
	}

	return newMinioStoreWithClient(ctx, &minioClientAdapter{client: client}, cfg.Bucket)
}

// newMinioStoreWithClient creates a MinioStore with a given minioClient implementation.
// This is used for dependency injection in tests.
func newMinioStoreWithClient(ctx context.Context, client minioClient, bucket string) (*MinioStore, error) {
	exists, err := client.BucketExists(ctx, bucket)
	if err != nil {
		return nil, fmt.Errorf("failed to check bucket existence: %w", err)
	}
	if !exists {
		return nil, fmt.Errorf("%w: %s", repository.ErrBucketNotFound, bucket)
	}

	return &MinioStore{client: client, bucket: bucket}, nil
}

func objectName(key string) string {
	return objectPrefix + key
}

// Get downloads the object stored under key.
func (s *MinioStore) Get(ctx context.Context, key string) (*model.CacheEntry, error) {
	obj, err := s.client.GetObject(ctx, s.bucket, objectName(key), minio.GetObjectOptions{})
	if err != nil {
		return nil, fmt.Errorf("failed to get object: %w", err)
	}
	defer func() { _ = obj.Close() }()

	// GetObject returns a lazy reader that doesn't fail until read.
	info, err := obj.Stat()
	if err != nil {
		if minio.ToErrorResponse(err).Code == "NoSuchKey" {
			return nil, repository.ErrBlobNotFound
		}
		return nil, fmt.Errorf("failed to stat object: %w", err)
	}

	payload, err := io.ReadAll(obj)
	if err != nil {
		return nil, fmt.Errorf("failed to read object: %w", err)
	}

	return &model.CacheEntry{
		Key:        key,
		Payload:    payload,
		Size:       int64(len(payload)),
		InsertedAt: info.LastModified,
	}, nil
}

// Stat issues a HEAD request for the object stored under key.
func (s *MinioStore) Stat(ctx context.Context, key string) (model.CacheEntryInfo, error) {
	info, err := s.client.StatObject(ctx, s.bucket, objectName(key), minio.StatObjectOptions{})
	if err != nil {
		if minio.ToErrorResponse(err).Code == "NoSuchKey" {
			return model.CacheEntryInfo{}, repository.ErrBlobNotFound
		}
		return model.CacheEntryInfo{}, fmt.Errorf("failed to stat object: %w", err)
	}
	return model.CacheEntryInfo{
		Key:        key,
		Size:       info.Size,
		InsertedAt: info.LastModified,
	}, nil
}

// Put uploads the entry payload, replacing any previous object.
func (s *MinioStore) Put(ctx context.Context, entry *model.CacheEntry) error {
	_, err := s.client.PutObject(ctx, s.bucket, objectName(entry.Key), bytes.NewReader(entry.Payload), int64(len(entry.Payload)), minio.PutObjectOptions{
		ContentType: "application/octet-stream",
	})
	if err != nil {
		return fmt.Errorf("failed to upload object: %w", err)
	}
	return nil
}

// Delete removes the object stored under key.
func (s *MinioStore) Delete(ctx context.Context, key string) error {
	if err := s.client.RemoveObject(ctx, s.bucket, objectName(key), minio.RemoveObjectOptions{}); err != nil {
		return fmt.Errorf("failed to delete object: %w", err)
	}
	return nil
}

// List walks every object under the media prefix.
func (s *MinioStore) List(ctx context.Context) ([]model.CacheEntryInfo, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var infos []model.CacheEntryInfo
	for obj := range s.client.ListObjects(ctx, s.bucket, minio.ListObjectsOptions{Prefix: objectPrefix, Recursive: true}) {
		if obj.Err != nil {
			return nil, fmt.Errorf("failed to list objects: %w", obj.Err)
		}
		infos = append(infos, model.CacheEntryInfo{
			Key:        strings.TrimPrefix(obj.Key, objectPrefix),
			Size:       obj.Size,
			InsertedAt: obj.LastModified,
		})
	}
	return infos, nil
}

// Ping verifies the MinIO connection is alive by checking bucket access.
func (s *MinioStore) Ping(ctx context.Context) error {
	if _, err := s.client.BucketExists(ctx, s.bucket); err != nil {
		return fmt.Errorf("failed to ping minio: %w", err)
	}
	return nil
}
