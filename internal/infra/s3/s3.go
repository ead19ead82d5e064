package s3

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

type Config struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	UseSSL    bool
}

func NewClient(cfg Config) (*minio.Client, error) {
	if cfg.Endpoint == "" {
		return nil, fmt.Errorf("s3 endpoint is required")
	}

	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("create s3 client: %w", err)
	}

	return client, nil
}

// PhotoSigner turns stored photo object keys into short-lived GET URLs.
type PhotoSigner struct {
	client *minio.Client
	bucket string
	ttl    time.Duration
}

func NewPhotoSigner(client *minio.Client, bucket string, ttl time.Duration) *PhotoSigner {
	if ttl <= 0 {
		ttl = 15 * time.Minute
	}
	return &PhotoSigner{
		client: client,
		bucket: strings.TrimSpace(bucket),
		ttl:    ttl,
	}
}

// PresignGet signs a GET URL for the object key. An empty key or a missing
// client yields an empty URL so candidate cards degrade to no photo.
func (s *PhotoSigner) PresignGet(ctx context.Context, key string) (string, error) {
	if s.client == nil || key == "" {
		return "", nil
	}

	presigned, err := s.client.PresignedGetObject(ctx, s.bucket, key, s.ttl, url.Values{})
	if err != nil {
		return "", fmt.Errorf("presign get object: %w", err)
	}

	return presigned.String(), nil
}
