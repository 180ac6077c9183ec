package storage

import (
	"bytes"
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"io"
	"path"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/thehashton/alterun/internal/config"
)

// Uploader writes uploaded images to an S3-compatible bucket and derives
// their public URLs.
type Uploader struct {
	client        *s3.Client
	bucket        string
	publicBaseURL string
}

// NewUploader creates an Uploader from the storage configuration. A custom
// endpoint (e.g. a hosted storage provider or MinIO) is used when configured.
func NewUploader(ctx context.Context, cfg config.StorageConfig) (*Uploader, error) {
	opts := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRegion(cfg.Region),
	}
	if cfg.AccessKey != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, "")))
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load storage configuration: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true
		}
	})

	return &Uploader{
		client:        client,
		bucket:        cfg.Bucket,
		publicBaseURL: strings.TrimRight(cfg.PublicBaseURL, "/"),
	}, nil
}

// ObjectKey builds the bucket key for an uploaded file:
// <prefix>/<timestamp>-<random>.<ext>. The extension comes from the uploaded
// filename, lower-cased, defaulting to "jpg".
func ObjectKey(prefix, filename string) string {
	if prefix == "" {
		prefix = "codex"
	}
	ext := strings.ToLower(strings.TrimPrefix(path.Ext(filename), "."))
	if ext == "" {
		ext = "jpg"
	}
	return fmt.Sprintf("%s/%d-%s.%s", prefix, time.Now().UnixMilli(), randomSuffix(), ext)
}

// randomSuffix returns a short random string to keep concurrent uploads from
// colliding on the same timestamp.
func randomSuffix() string {
	b := make([]byte, 3)
	if _, err := rand.Read(b); err != nil {
		return "000000"
	}
	return hex.EncodeToString(b)
}

// Upload stores the file under a generated key and returns the public URL.
// There is no rollback: if the caller's follow-up database write fails, the
// stored object is orphaned.
func (u *Uploader) Upload(ctx context.Context, prefix, filename, contentType string, body io.Reader) (string, error) {
	data, err := io.ReadAll(body)
	if err != nil {
		return "", fmt.Errorf("failed to read upload body: %w", err)
	}

	key := ObjectKey(prefix, filename)
	_, err = u.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:       aws.String(u.bucket),
		Key:          aws.String(key),
		Body:         bytes.NewReader(data),
		ContentType:  aws.String(contentType),
		CacheControl: aws.String("max-age=3600"),
	})
	if err != nil {
		return "", fmt.Errorf("failed to upload object %s: %w", key, err)
	}
	return u.PublicURL(key), nil
}

// PublicURL derives the public URL for a stored object key. Keys that are
// already absolute URLs pass through unchanged; without a configured base
// URL, the key itself is returned.
func (u *Uploader) PublicURL(key string) string {
	if strings.HasPrefix(key, "http://") || strings.HasPrefix(key, "https://") {
		return key
	}
	if u.publicBaseURL == "" {
		return key
	}
	return u.publicBaseURL + "/" + key
}
