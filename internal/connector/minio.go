package connector

import (
	"context"
	"fmt"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"go.uber.org/zap"
)

const minioPageSize = 1000

type MinioConnectorConfig struct {
	Endpoint  string
	Region    string
	AccessKey string
	SecretKey string
	Secure    bool
}

type minioAPI interface {
	ListBuckets(ctx context.Context) ([]minio.BucketInfo, error)
	ListObjects(ctx context.Context, bucket string, opts minio.ListObjectsOptions) <-chan minio.ObjectInfo
}

// MinioConnector lists S3-compatible storage through minio-go. The client
// streams objects one by one; they are cut into pages of minioPageSize.
type MinioConnector struct {
	client minioAPI
	lg     *zap.Logger
}

func NewMinioConnector(cfg MinioConnectorConfig, lg *zap.Logger) (*MinioConnector, error) {
	if cfg.Endpoint == "" {
		return nil, fmt.Errorf("minio endpoint must be provided")
	}

	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.Secure,
		Region: cfg.Region,
	})
	if err != nil {
		return nil, fmt.Errorf("create minio client: %w", err)
	}

	return newMinioConnector(client, lg), nil
}

func newMinioConnector(client minioAPI, lg *zap.Logger) *MinioConnector {
	if lg == nil {
		lg = zap.NewNop()
	}
	return &MinioConnector{client: client, lg: lg}
}

func (c *MinioConnector) ListContainers(ctx context.Context) ([]string, error) {
	buckets, err := c.client.ListBuckets(ctx)
	if err != nil {
		return nil, fmt.Errorf("list buckets: %w", err)
	}

	names := make([]string, 0, len(buckets))
	for _, b := range buckets {
		names = append(names, b.Name)
	}

	return names, nil
}

func (c *MinioConnector) ListObjects(ctx context.Context, container string, fn PageFunc) error {
	// Cancelling stops the client's listing goroutine when we return early.
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	page := make([]Object, 0, minioPageSize)
	for info := range c.client.ListObjects(ctx, container, minio.ListObjectsOptions{Recursive: true}) {
		if info.Err != nil {
			if len(page) > 0 {
				if err := fn(page); err != nil {
					return err
				}
			}
			return fmt.Errorf("list objects in %s: %w", container, info.Err)
		}

		page = append(page, Object{
			Container:    container,
			Key:          info.Key,
			LastModified: info.LastModified,
		})
		if len(page) == minioPageSize {
			if err := fn(page); err != nil {
				return err
			}
			page = make([]Object, 0, minioPageSize)
		}
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	if len(page) > 0 {
		return fn(page)
	}

	return nil
}
