package service

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"time"

	"levelup_backend/internal/config"
	"levelup_backend/internal/util"
	"levelup_backend/pkg/logger"

	"github.com/aliyun/aliyun-oss-go-sdk/oss"
	"github.com/google/uuid"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"go.uber.org/zap"
)

// ArchiveStore keeps uploaded files, addressed by a slash separated key.
type ArchiveStore interface {
	Put(ctx context.Context, key string, data []byte, contentType string) error
	Remove(ctx context.Context, key string) error
	URL(key string) string
}

type DiskArchive struct {
	Root string
}

func (d *DiskArchive) Put(ctx context.Context, key string, data []byte, contentType string) error {
	dst := filepath.Join(d.Root, filepath.FromSlash(key))
	if err := os.MkdirAll(filepath.Dir(dst), 0755); err != nil {
		return err
	}
	return os.WriteFile(dst, data, 0644)
}

func (d *DiskArchive) Remove(ctx context.Context, key string) error {
	err := os.Remove(filepath.Join(d.Root, filepath.FromSlash(key)))
	if os.IsNotExist(err) {
		return nil
	}
	return err
}

func (d *DiskArchive) URL(key string) string {
	return "/uploads/" + key
}

type MinioArchive struct {
	Bucket string
	Client *minio.Client
}

func NewMinioArchive(cfg *config.StorageConfig) (*MinioArchive, error) {
	client, err := minio.New(cfg.MinioEndpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.MinioAccessID, cfg.MinioSecret, ""),
		Secure: false,
	})
	if err != nil {
		return nil, err
	}
	return &MinioArchive{Bucket: cfg.MinioBucket, Client: client}, nil
}

func (m *MinioArchive) Put(ctx context.Context, key string, data []byte, contentType string) error {
	_, err := m.Client.PutObject(ctx, m.Bucket, key, bytes.NewReader(data), int64(len(data)),
		minio.PutObjectOptions{ContentType: contentType})
	return err
}

func (m *MinioArchive) Remove(ctx context.Context, key string) error {
	return m.Client.RemoveObject(ctx, m.Bucket, key, minio.RemoveObjectOptions{})
}

func (m *MinioArchive) URL(key string) string {
	return "/" + m.Bucket + "/" + key
}

type OSSArchive struct {
	Endpoint string
	Bucket   *oss.Bucket
}

func NewOSSArchive(cfg *config.StorageConfig) (*OSSArchive, error) {
	client, err := oss.New(cfg.OSSEndpoint, cfg.OSSAccessKey, cfg.OSSSecretKey)
	if err != nil {
		return nil, err
	}
	bucket, err := client.Bucket(cfg.OSSBucket)
	if err != nil {
		return nil, err
	}
	return &OSSArchive{Endpoint: cfg.OSSEndpoint, Bucket: bucket}, nil
}

func (o *OSSArchive) Put(ctx context.Context, key string, data []byte, contentType string) error {
	return o.Bucket.PutObject(key, bytes.NewReader(data), oss.ContentType(contentType), oss.WithContext(ctx))
}

func (o *OSSArchive) Remove(ctx context.Context, key string) error {
	return o.Bucket.DeleteObject(key, oss.WithContext(ctx))
}

func (o *OSSArchive) URL(key string) string {
	return fmt.Sprintf("https://%s.%s/%s", o.Bucket.BucketName, o.Endpoint, key)
}

type StorageService struct {
	Store ArchiveStore
}

// NewStorageService picks the configured store and falls back to local disk when the remote
// client cannot be built.
func NewStorageService(cfg *config.StorageConfig) *StorageService {
	var (
		store ArchiveStore
		err   error
	)
	switch cfg.Type {
	case util.StorageMinio:
		store, err = NewMinioArchive(cfg)
	case util.StorageOSS:
		store, err = NewOSSArchive(cfg)
	}
	if err != nil {
		logger.Log.Warn("Storage provider unavailable, using local disk",
			zap.String("type", cfg.Type),
			zap.Error(err),
		)
		store = nil
	}
	if store == nil {
		store = &DiskArchive{Root: cfg.LocalPath}
	}
	return &StorageService{Store: store}
}

// ArchivedFile locates a stored upload.
type ArchivedFile struct {
	Key string `json:"key"`
	URL string `json:"url"`
}

// Archive stores data under <prefix>/<date>/<uuid><ext>.
func (s *StorageService) Archive(ctx context.Context, prefix, ext string, data []byte, contentType string) (*ArchivedFile, error) {
	key := path.Join(prefix, time.Now().Format(util.DateFormat), uuid.New().String()+ext)
	if err := s.Store.Put(ctx, key, data, contentType); err != nil {
		return nil, fmt.Errorf("archive %s: %w", key, err)
	}
	return &ArchivedFile{Key: key, URL: s.Store.URL(key)}, nil
}

func (s *StorageService) Remove(ctx context.Context, key string) error {
	return s.Store.Remove(ctx, key)
}
