package connector

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"go.uber.org/zap"
)

// ListBuckets needs a signing region even though it is global.
const defaultS3Region = "us-east-1"

type S3ConnectorConfig struct {
	Region    string
	Endpoint  string
	AccessKey string
	SecretKey string
	PathStyle bool
}

// S3API is the subset of the S3 client used for listing.
type S3API interface {
	ListBuckets(ctx context.Context, params *s3.ListBucketsInput, optFns ...func(*s3.Options)) (*s3.ListBucketsOutput, error)
	s3.ListObjectsV2APIClient
}

type S3Connector struct {
	client S3API
	lg     *zap.Logger
}

// NewS3Connector builds a client from the default AWS credential chain,
// overridden by static keys and a custom endpoint when they are set.
func NewS3Connector(ctx context.Context, cfg S3ConnectorConfig, lg *zap.Logger) (*S3Connector, error) {
	opts := []func(*config.LoadOptions) error{
		config.WithRetryMaxAttempts(3),
		config.WithRetryMode(aws.RetryModeStandard),
	}
	if cfg.Region != "" {
		opts = append(opts, config.WithRegion(cfg.Region))
	}
	if cfg.AccessKey != "" && cfg.SecretKey != "" {
		opts = append(opts, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, ""),
		))
	}

	awsCfg, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}
	if awsCfg.Region == "" {
		awsCfg.Region = defaultS3Region
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
		o.UsePathStyle = cfg.PathStyle || cfg.Endpoint != ""
	})

	return NewS3ConnectorWithClient(client, lg), nil
}

func NewS3ConnectorWithClient(client S3API, lg *zap.Logger) *S3Connector {
	if lg == nil {
		lg = zap.NewNop()
	}
	return &S3Connector{client: client, lg: lg}
}

func (c *S3Connector) ListContainers(ctx context.Context) ([]string, error) {
	out, err := c.client.ListBuckets(ctx, &s3.ListBucketsInput{})
	if err != nil {
		return nil, fmt.Errorf("list buckets: %w", err)
	}

	buckets := make([]string, 0, len(out.Buckets))
	for _, b := range out.Buckets {
		buckets = append(buckets, aws.ToString(b.Name))
	}

	return buckets, nil
}

func (c *S3Connector) ListObjects(ctx context.Context, container string, fn PageFunc) error {
	paginator := s3.NewListObjectsV2Paginator(c.client, &s3.ListObjectsV2Input{
		Bucket: aws.String(container),
	})

	pages := 0
	for paginator.HasMorePages() {
		out, err := paginator.NextPage(ctx)
		if err != nil {
			return fmt.Errorf("list objects in %s: %w", container, err)
		}
		pages++

		if len(out.Contents) == 0 {
			continue
		}

		page := make([]Object, 0, len(out.Contents))
		for _, obj := range out.Contents {
			page = append(page, Object{
				Container:    container,
				Key:          aws.ToString(obj.Key),
				LastModified: aws.ToTime(obj.LastModified),
			})
		}
		if err := fn(page); err != nil {
			return err
		}
	}

	c.lg.Debug("bucket listed", zap.String("bucket", container), zap.Int("pages", pages))

	return nil
}
