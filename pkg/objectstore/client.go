package objectstore

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	apperrors "github.com/goldhabermd/clinic-api/pkg/errors"
	"github.com/goldhabermd/clinic-api/pkg/logger"
	"github.com/goldhabermd/clinic-api/pkg/metrics"
	"go.uber.org/zap"
)

const backendLabel = "s3"

// API is the subset of the S3 client used here
type API interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
}

// Config describes an S3-compatible bucket
type Config struct {
	AccessKeyID     string
	SecretAccessKey string
	Bucket          string
	Endpoint        string
	Region          string
	// UsePathStyle is needed by most self-hosted S3 implementations (MinIO etc.)
	UsePathStyle bool
}

// Client talks to an S3-compatible object storage
type Client struct {
	api    API
	bucket string
}

// NewClient creates a client using static credentials
func NewClient(cfg Config) (*Client, error) {
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("object storage bucket is required")
	}
	if cfg.Region == "" {
		cfg.Region = "us-east-1"
	}

	opts := s3.Options{
		Region:       cfg.Region,
		UsePathStyle: cfg.UsePathStyle,
		Credentials: credentials.NewStaticCredentialsProvider(
			cfg.AccessKeyID,
			cfg.SecretAccessKey,
			"",
		),
	}
	if cfg.Endpoint != "" {
		opts.BaseEndpoint = aws.String(cfg.Endpoint)
	}

	logger.Info("Object storage client initialized",
		zap.String("bucket", cfg.Bucket),
		zap.String("endpoint", cfg.Endpoint),
		zap.String("region", cfg.Region),
	)

	return NewClientWithAPI(s3.New(opts), cfg.Bucket), nil
}

// NewClientWithAPI wraps an existing S3 API implementation
func NewClientWithAPI(api API, bucket string) *Client {
	return &Client{api: api, bucket: bucket}
}

// Bucket returns the configured bucket name
func (c *Client) Bucket() string {
	return c.bucket
}

// Put uploads data under key
func (c *Client) Put(ctx context.Context, key string, data []byte, contentType string) error {
	start := time.Now()
	operation := "putObject"

	input := &s3.PutObjectInput{
		Bucket:        aws.String(c.bucket),
		Key:           aws.String(key),
		Body:          bytes.NewReader(data),
		ContentLength: aws.Int64(int64(len(data))),
	}
	if contentType != "" {
		input.ContentType = aws.String(contentType)
	}

	_, err := c.api.PutObject(ctx, input)
	duration := metrics.MeasureDuration(start)

	if err != nil {
		observe(operation, "error", duration)
		logger.LogAPICall(ctx, "object_storage", operation, "error", duration,
			zap.Error(err),
			zap.String("key", key),
		)
		return fmt.Errorf("failed to upload object %s: %w", key, err)
	}

	observe(operation, "success", duration)
	metrics.StoredAttachmentBytes.Add(float64(len(data)))
	logger.LogAPICall(ctx, "object_storage", operation, "success", duration,
		zap.String("key", key),
		zap.Int("size_bytes", len(data)),
	)
	return nil
}

// Get opens the object under key. A missing key yields ErrNotFound.
func (c *Client) Get(ctx context.Context, key string) (io.ReadCloser, error) {
	start := time.Now()
	operation := "getObject"

	out, err := c.api.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(c.bucket),
		Key:    aws.String(key),
	})
	duration := metrics.MeasureDuration(start)

	if err != nil {
		var noKey *types.NoSuchKey
		if errors.As(err, &noKey) {
			observe(operation, "not_found", duration)
			return nil, apperrors.NotFoundError("object " + key)
		}
		observe(operation, "error", duration)
		logger.LogAPICall(ctx, "object_storage", operation, "error", duration,
			zap.Error(err),
			zap.String("key", key),
		)
		return nil, fmt.Errorf("failed to fetch object %s: %w", key, err)
	}

	observe(operation, "success", duration)
	return out.Body, nil
}

// Key joins key segments with "/", skipping empty ones
func Key(parts ...string) string {
	kept := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.Trim(p, "/")
		if p != "" {
			kept = append(kept, p)
		}
	}
	return strings.Join(kept, "/")
}

func observe(operation, status string, duration float64) {
	metrics.StorageRequestDuration.WithLabelValues(backendLabel, operation, status).Observe(duration)
	metrics.StorageRequestTotal.WithLabelValues(backendLabel, operation, status).Inc()
}
