package objectstore

import (
	"context"
	"fmt"
	"net/url"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"sitelog/internal/config"
)

// Signer produces time-limited download URLs for stored objects.
type Signer interface {
	DownloadURL(ctx context.Context, key string) (string, error)
}

// Client signs object URLs against an S3-compatible endpoint.
type Client struct {
	api    *minio.Client
	bucket string
	ttl    time.Duration
}

// New builds an object store client from configuration. When storage is
// disabled a noop signer is returned.
func New(cfg *config.Config) (Signer, error) {
	if !cfg.Storage.Enabled {
		return Noop{}, nil
	}

	api, err := minio.New(cfg.Storage.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.Storage.AccessKey, cfg.Storage.SecretKey, ""),
		Secure: cfg.Storage.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("create object store client: %w", err)
	}

	ttl := time.Duration(cfg.Storage.URLTTL) * time.Second
	if ttl <= 0 {
		ttl = 15 * time.Minute
	}
	return &Client{api: api, bucket: cfg.Storage.Bucket, ttl: ttl}, nil
}

// DownloadURL returns a pre-signed GET URL for the object key.
func (c *Client) DownloadURL(ctx context.Context, key string) (string, error) {
	if key == "" {
		return "", fmt.Errorf("object key is required")
	}
	signed, err := c.api.PresignedGetObject(ctx, c.bucket, key, c.ttl, url.Values{})
	if err != nil {
		return "", fmt.Errorf("presign %s: %w", key, err)
	}
	return signed.String(), nil
}

// Noop is the signer used when object storage is disabled. It returns empty
// URLs so payload entries simply omit them.
type Noop struct{}

// DownloadURL implements Signer.
func (Noop) DownloadURL(context.Context, string) (string, error) {
	return "", nil
}
