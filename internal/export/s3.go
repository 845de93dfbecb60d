package export

import (
	"context"
	"fmt"
	"io"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// ObjectPutter stores one object.
type ObjectPutter interface {
	PutObject(ctx context.Context, bucket, key, contentType string, body io.Reader) error
}

// S3Config selects the S3-compatible backend. Credentials come from the
// default AWS chain (environment, shared config, instance role).
type S3Config struct {
	Region    string
	Endpoint  string // optional, e.g. a MinIO URL
	PathStyle bool
}

// S3Store writes objects to AWS S3 or a compatible service.
type S3Store struct {
	client *s3.Client
}

// NewS3Store builds an S3 client from cfg.
func NewS3Store(ctx context.Context, cfg S3Config) (*S3Store, error) {
	region := cfg.Region
	if region == "" {
		region = "us-east-1"
	}
	awsCfg, err := config.LoadDefaultConfig(ctx, config.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}
	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.UsePathStyle = cfg.PathStyle
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
	})
	return &S3Store{client: client}, nil
}

// PutObject uploads body to bucket/key.
func (s *S3Store) PutObject(ctx context.Context, bucket, key, contentType string, body io.Reader) error {
	input := &s3.PutObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
		Body:   body,
	}
	if contentType != "" {
		input.ContentType = aws.String(contentType)
	}
	if _, err := s.client.PutObject(ctx, input); err != nil {
		return fmt.Errorf("put s3://%s/%s: %w", bucket, key, err)
	}
	return nil
}
