package objectstore

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"go.uber.org/zap"

	"biblioteca-server/internal/util"
)

// Client wraps an S3-compatible object store holding shelf images.
// Keys are namespaced by bookstore slug: <slug>/<fileName>.
type Client struct {
	mc     *minio.Client
	bucket string
	logger *zap.Logger
}

type Config struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	UseSSL    bool
}

// StoredImage describes one image in a bookstore folder with a
// time-limited download URL
type StoredImage struct {
	FileName      string `json:"fileName"`
	URL           string `json:"url"`
	BucketName    string `json:"bucketName"`
	BookstoreSlug string `json:"bookstoreSlug"`
}

// NewClient creates a new object store client
func NewClient(cfg Config) (*Client, error) {
	mc, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create object store client: %w", err)
	}

	return &Client{
		mc:     mc,
		bucket: cfg.Bucket,
		logger: util.GetLogger(),
	}, nil
}

// Bucket returns the configured bucket name
func (c *Client) Bucket() string {
	return c.bucket
}

// EnsureBucket creates the bucket if it does not exist yet
func (c *Client) EnsureBucket(ctx context.Context) error {
	exists, err := c.mc.BucketExists(ctx, c.bucket)
	if err != nil {
		return fmt.Errorf("failed to check bucket: %w", err)
	}
	if exists {
		return nil
	}

	c.logger.Info("Creating bucket", zap.String("bucket", c.bucket))
	if err := c.mc.MakeBucket(ctx, c.bucket, minio.MakeBucketOptions{}); err != nil {
		return fmt.Errorf("failed to create bucket: %w", err)
	}
	return nil
}

// Exists reports whether a key is already present in the bucket
func (c *Client) Exists(ctx context.Context, key string) (bool, error) {
	_, err := c.mc.StatObject(ctx, c.bucket, key, minio.StatObjectOptions{})
	if err != nil {
		resp := minio.ToErrorResponse(err)
		if resp.Code == "NoSuchKey" {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// Save uploads an object, refusing to overwrite an existing key
func (c *Client) Save(ctx context.Context, key string, reader io.Reader, size int64, contentType string) error {
	if err := c.EnsureBucket(ctx); err != nil {
		return err
	}

	exists, err := c.Exists(ctx, key)
	if err != nil {
		return fmt.Errorf("failed to check object: %w", err)
	}
	if exists {
		return fmt.Errorf("file already exists: %s", key)
	}

	_, err = c.mc.PutObject(ctx, c.bucket, key, reader, size, minio.PutObjectOptions{
		ContentType: contentType,
	})
	if err != nil {
		return fmt.Errorf("failed to upload object: %w", err)
	}
	return nil
}

// ListKeysUnderPrefix lists object keys under a bookstore prefix
func (c *Client) ListKeysUnderPrefix(ctx context.Context, prefix string) ([]string, error) {
	var keys []string

	for obj := range c.mc.ListObjects(ctx, c.bucket, minio.ListObjectsOptions{
		Prefix:    prefix,
		Recursive: true,
	}) {
		if obj.Err != nil {
			return nil, fmt.Errorf("failed to list objects: %w", obj.Err)
		}
		keys = append(keys, obj.Key)
	}
	return keys, nil
}

// PresignedDownloadURL issues a time-limited GET URL for an object
func (c *Client) PresignedDownloadURL(ctx context.Context, key string, ttl time.Duration) (string, error) {
	u, err := c.mc.PresignedGetObject(ctx, c.bucket, key, ttl, url.Values{})
	if err != nil {
		return "", fmt.Errorf("failed to presign object: %w", err)
	}
	return u.String(), nil
}

// ListBookstoreImages lists all images under a bookstore slug with
// presigned download URLs
func (c *Client) ListBookstoreImages(ctx context.Context, slug string, ttl time.Duration) ([]StoredImage, error) {
	keys, err := c.ListKeysUnderPrefix(ctx, slug+"/")
	if err != nil {
		return nil, err
	}

	images := make([]StoredImage, 0, len(keys))
	for _, key := range keys {
		u, err := c.PresignedDownloadURL(ctx, key, ttl)
		if err != nil {
			return nil, err
		}
		images = append(images, StoredImage{
			FileName:      key,
			URL:           u,
			BucketName:    c.bucket,
			BookstoreSlug: slug,
		})
	}
	return images, nil
}
