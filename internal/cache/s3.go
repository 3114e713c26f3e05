package cache

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/penstream/broadcast/internal/config"
	"github.com/penstream/broadcast/internal/domain"
	"github.com/penstream/broadcast/internal/logger"
)

// StorageType defines the flavor of S3-compatible storage backing the
// durable tier when the "s3" backend is selected.
type StorageType string

const (
	StorageTypeR2           StorageType = "r2"
	StorageTypeS3           StorageType = "s3"
	StorageTypeS3Compatible StorageType = "s3compatible"
)

const s3KeyPrefix = "proxy/"

// S3 is a durable tier variant on S3-compatible object storage, for
// deployments where proxy instances share one cache. Entry metadata rides
// on the object; expiry is checked on read, like the database tier.
type S3 struct {
	client    *s3.Client
	bucket    string
	storeType StorageType
	ttl       time.Duration
}

// NewS3 creates the object-storage durable tier.
func NewS3(cfg *config.StorageConfig, ttl time.Duration) (*S3, error) {
	endpoint := normalizeEndpoint(cfg.Endpoint)

	storeType := StorageType(cfg.Type)
	if storeType == "" {
		storeType = detectStorageType(endpoint)
	}

	region := cfg.Region
	if region == "" {
		if storeType == StorageTypeR2 {
			region = "auto"
		} else {
			region = "us-east-1"
		}
	}

	scheme := "http"
	if cfg.UseSSL {
		scheme = "https"
	}
	endpointURL := fmt.Sprintf("%s://%s", scheme, endpoint)

	awsCfg, err := awsconfig.LoadDefaultConfig(context.Background(),
		awsconfig.WithRegion(region),
		awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			cfg.AccessKey,
			cfg.SecretKey,
			"",
		)),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.BaseEndpoint = aws.String(endpointURL)
		o.UsePathStyle = true // path-style for S3-compatible services
	})

	if ttl <= 0 {
		ttl = 300 * time.Second
	}
	return &S3{
		client:    client,
		bucket:    cfg.Bucket,
		storeType: storeType,
		ttl:       ttl,
	}, nil
}

// normalizeEndpoint removes protocol prefix and path from endpoint
func normalizeEndpoint(endpoint string) string {
	endpoint = strings.TrimPrefix(endpoint, "https://")
	endpoint = strings.TrimPrefix(endpoint, "http://")
	if idx := strings.Index(endpoint, "/"); idx != -1 {
		endpoint = endpoint[:idx]
	}
	return strings.TrimSuffix(endpoint, "/")
}

func detectStorageType(endpoint string) StorageType {
	endpoint = strings.ToLower(endpoint)
	switch {
	case strings.Contains(endpoint, "r2.cloudflarestorage.com"):
		return StorageTypeR2
	case strings.Contains(endpoint, "amazonaws.com"):
		return StorageTypeS3
	default:
		return StorageTypeS3Compatible
	}
}

// EnsureBucket creates the bucket if it doesn't exist.
func (s *S3) EnsureBucket(ctx context.Context) error {
	_, err := s.client.HeadBucket(ctx, &s3.HeadBucketInput{
		Bucket: aws.String(s.bucket),
	})
	if err == nil {
		return nil
	}

	// R2 doesn't support creating buckets via API
	if s.storeType == StorageTypeR2 {
		return fmt.Errorf("bucket %s does not exist, please create it in R2 dashboard", s.bucket)
	}

	_, err = s.client.CreateBucket(ctx, &s3.CreateBucketInput{
		Bucket: aws.String(s.bucket),
	})
	if err != nil {
		return fmt.Errorf("failed to create bucket: %w", err)
	}
	return nil
}

func (s *S3) Get(ctx context.Context, url string) (*domain.CacheEntry, bool) {
	key := s3KeyPrefix + domain.HashURL(url)
	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, false
	}
	defer out.Body.Close()

	insertedAt, err := time.Parse(time.RFC3339, out.Metadata["inserted-at"])
	if err != nil || time.Since(insertedAt) > s.ttl {
		// Lazy expiry, mirroring the database tier
		_, _ = s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
			Bucket: aws.String(s.bucket),
			Key:    aws.String(key),
		})
		return nil, false
	}

	body, err := io.ReadAll(out.Body)
	if err != nil {
		logger.CtxWarn(ctx, "Durable cache object read failed: %v", err)
		return nil, false
	}

	entry := &domain.CacheEntry{
		URLHash:     domain.HashURL(url),
		URL:         url,
		Body:        body,
		ContentType: aws.ToString(out.ContentType),
		SizeBytes:   int64(len(body)),
		InsertedAt:  insertedAt,
	}
	entry.Width, _ = strconv.Atoi(out.Metadata["width"])
	entry.Height, _ = strconv.Atoi(out.Metadata["height"])
	return entry, true
}

func (s *S3) Set(ctx context.Context, entry *domain.CacheEntry) error {
	key := s3KeyPrefix + entry.URLHash
	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(s.bucket),
		Key:           aws.String(key),
		Body:          bytes.NewReader(entry.Body),
		ContentLength: aws.Int64(entry.SizeBytes),
		ContentType:   aws.String(entry.ContentType),
		Metadata: map[string]string{
			"original-url": entry.URL,
			"inserted-at":  entry.InsertedAt.UTC().Format(time.RFC3339),
			"width":        strconv.Itoa(entry.Width),
			"height":       strconv.Itoa(entry.Height),
		},
	})
	if err != nil {
		return fmt.Errorf("failed to upload cache object: %w", err)
	}
	return nil
}
