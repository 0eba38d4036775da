// Package minio keeps family collections and raw document snapshots in an
// S3-compatible object store.
package minio

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/turtacn/FamilyScope/internal/config"
	"github.com/turtacn/FamilyScope/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/FamilyScope/pkg/errors"
)

var (
	ErrObjectNotFound    = errors.New(errors.ErrCodeNotFound, "object not found")
	ErrMinIOClientClosed = errors.New(errors.ErrCodeServiceUnavailable, "minio client is closed")
)

// DefaultBucket is used when the configuration names none.
const DefaultBucket = "famscope"

// ObjectInfo is the metadata returned with an object.
type ObjectInfo struct {
	Key          string
	ETag         string
	Size         int64
	ContentType  string
	LastModified time.Time
	UserMetadata map[string]string
}

// ObjectAPI is the object-store surface this package needs.  minioAPI adapts
// *minio.Client to it.
type ObjectAPI interface {
	BucketExists(ctx context.Context, bucket string) (bool, error)
	MakeBucket(ctx context.Context, bucket, region string) error
	Put(ctx context.Context, bucket, key string, data []byte, contentType string, meta map[string]string) (ObjectInfo, error)
	// Get returns ErrObjectNotFound when the key is absent.
	Get(ctx context.Context, bucket, key string) ([]byte, ObjectInfo, error)
	// Stat returns ErrObjectNotFound when the key is absent.
	Stat(ctx context.Context, bucket, key string) (ObjectInfo, error)
	Remove(ctx context.Context, bucket, key string) error
}

// Client is a bucket-scoped object store handle.
type Client struct {
	api    ObjectAPI
	bucket string
	region string
	logger logging.Logger
	mu     sync.RWMutex
	closed bool
}

// NewClient connects to the configured endpoint and creates the bucket when
// it does not exist.
func NewClient(cfg config.MinIOConfig, log logging.Logger) (*Client, error) {
	applyDefaults(&cfg)
	mc, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
		Region: cfg.Region,
	})
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeInternal, "failed to create minio client")
	}

	c := NewClientWithAPI(&minioAPI{client: mc}, cfg.Bucket, cfg.Region, log)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := c.EnsureBucket(ctx); err != nil {
		return nil, err
	}
	c.logger.Info("MinIO client connected", logging.String("endpoint", cfg.Endpoint),
		logging.String("bucket", cfg.Bucket), logging.Bool("ssl", cfg.UseSSL))
	return c, nil
}

// NewClientWithAPI builds a Client over an existing ObjectAPI.
func NewClientWithAPI(api ObjectAPI, bucket, region string, log logging.Logger) *Client {
	if log == nil {
		log = logging.NewNopLogger()
	}
	if bucket == "" {
		bucket = DefaultBucket
	}
	return &Client{api: api, bucket: bucket, region: region, logger: log.Named("minio")}
}

func applyDefaults(cfg *config.MinIOConfig) {
	if cfg.Region == "" {
		cfg.Region = "us-east-1"
	}
	if cfg.Bucket == "" {
		cfg.Bucket = DefaultBucket
	}
}

// Bucket returns the bucket every object lives in.
func (c *Client) Bucket() string { return c.bucket }

// EnsureBucket creates the bucket if missing.
func (c *Client) EnsureBucket(ctx context.Context) error {
	exists, err := c.api.BucketExists(ctx, c.bucket)
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeServiceUnavailable, "failed to check bucket existence")
	}
	if exists {
		return nil
	}
	if err := c.api.MakeBucket(ctx, c.bucket, c.region); err != nil {
		return errors.Wrap(err, errors.ErrCodeInternal, "failed to create bucket").WithDetail("bucket=" + c.bucket)
	}
	c.logger.Info("Created bucket", logging.String("bucket", c.bucket))
	return nil
}

// Ping checks that the bucket is reachable.
func (c *Client) Ping(ctx context.Context) error {
	if c.isClosed() {
		return ErrMinIOClientClosed
	}
	exists, err := c.api.BucketExists(ctx, c.bucket)
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeServiceUnavailable, "minio health check failed")
	}
	if !exists {
		return errors.New(errors.ErrCodeServiceUnavailable, "bucket missing").WithDetail("bucket=" + c.bucket)
	}
	return nil
}

// PutObject stores data under key.  It satisfies the document archive
// contract of the gpatents adapter.
func (c *Client) PutObject(ctx context.Context, key string, data []byte, contentType string) error {
	if c.isClosed() {
		return ErrMinIOClientClosed
	}
	if _, err := c.api.Put(ctx, c.bucket, key, data, contentType, nil); err != nil {
		return errors.Wrap(err, errors.ErrCodeInternal, "upload failed").WithDetail("key=" + key)
	}
	c.logger.Debug("object stored", logging.String("key", key), logging.Int("bytes", len(data)))
	return nil
}

// GetObject reads the object at key.
func (c *Client) GetObject(ctx context.Context, key string) ([]byte, error) {
	if c.isClosed() {
		return nil, ErrMinIOClientClosed
	}
	data, _, err := c.api.Get(ctx, c.bucket, key)
	return data, err
}

func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	return nil
}

func (c *Client) isClosed() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.closed
}

// ─────────────────────────────────────────────────────────────────────────────
// minio-go adapter
// ─────────────────────────────────────────────────────────────────────────────

type minioAPI struct {
	client *minio.Client
}

func (a *minioAPI) BucketExists(ctx context.Context, bucket string) (bool, error) {
	return a.client.BucketExists(ctx, bucket)
}

func (a *minioAPI) MakeBucket(ctx context.Context, bucket, region string) error {
	return a.client.MakeBucket(ctx, bucket, minio.MakeBucketOptions{Region: region})
}

func (a *minioAPI) Put(ctx context.Context, bucket, key string, data []byte, contentType string, meta map[string]string) (ObjectInfo, error) {
	info, err := a.client.PutObject(ctx, bucket, key, bytes.NewReader(data), int64(len(data)), minio.PutObjectOptions{
		ContentType:  contentType,
		UserMetadata: meta,
	})
	if err != nil {
		return ObjectInfo{}, err
	}
	return ObjectInfo{Key: key, ETag: info.ETag, Size: info.Size, ContentType: contentType,
		LastModified: info.LastModified, UserMetadata: meta}, nil
}

func (a *minioAPI) Get(ctx context.Context, bucket, key string) ([]byte, ObjectInfo, error) {
	obj, err := a.client.GetObject(ctx, bucket, key, minio.GetObjectOptions{})
	if err != nil {
		return nil, ObjectInfo{}, translate(err)
	}
	defer obj.Close()
	stat, err := obj.Stat()
	if err != nil {
		return nil, ObjectInfo{}, translate(err)
	}
	data, err := io.ReadAll(obj)
	if err != nil {
		return nil, ObjectInfo{}, translate(err)
	}
	return data, toInfo(stat), nil
}

func (a *minioAPI) Stat(ctx context.Context, bucket, key string) (ObjectInfo, error) {
	stat, err := a.client.StatObject(ctx, bucket, key, minio.StatObjectOptions{})
	if err != nil {
		return ObjectInfo{}, translate(err)
	}
	return toInfo(stat), nil
}

func (a *minioAPI) Remove(ctx context.Context, bucket, key string) error {
	return a.client.RemoveObject(ctx, bucket, key, minio.RemoveObjectOptions{})
}

func toInfo(s minio.ObjectInfo) ObjectInfo {
	meta := make(map[string]string, len(s.UserMetadata))
	for k, v := range s.UserMetadata {
		meta[k] = v
	}
	return ObjectInfo{Key: s.Key, ETag: s.ETag, Size: s.Size, ContentType: s.ContentType,
		LastModified: s.LastModified, UserMetadata: meta}
}

// translate maps a missing key to ErrObjectNotFound.
func translate(err error) error {
	resp := minio.ToErrorResponse(err)
	if resp.Code == "NoSuchKey" || resp.StatusCode == http.StatusNotFound {
		return ErrObjectNotFound
	}
	return err
}

//Personal.AI order the ending
