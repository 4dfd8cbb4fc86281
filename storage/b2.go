// Package storage uploads product images to a Backblaze B2 bucket over its
// S3-compatible API and hands back publicly resolvable URLs. Nothing on the
// checkout path depends on it.
package storage

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/rs/zerolog"

	"github.com/kimthedrew/legit-collections/config"
)

// Uploader stores a named byte stream and returns its public URL.
type Uploader interface {
	Upload(ctx context.Context, filename, contentType string, data []byte) (string, error)
}

type B2Uploader struct {
	client   *s3.Client
	bucket   string
	endpoint string
	logger   zerolog.Logger
}

func NewB2Uploader(ctx context.Context, cfg config.StorageConfig, logger zerolog.Logger) (*B2Uploader, error) {
	logger = logger.With().Str("component", "b2-storage").Logger()

	if cfg.KeyID == "" || cfg.AppKey == "" || cfg.Bucket == "" {
		return nil, fmt.Errorf("object storage credentials missing")
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithRegion(cfg.Region),
		awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.KeyID, cfg.AppKey, ""),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to load storage configuration: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.BaseEndpoint = aws.String(cfg.EndpointURL)
		o.UsePathStyle = true
	})

	logger.Info().Str("bucket", cfg.Bucket).Str("endpoint", cfg.EndpointURL).Msg("object storage initialised")

	return &B2Uploader{
		client:   client,
		bucket:   cfg.Bucket,
		endpoint: strings.TrimRight(cfg.EndpointURL, "/"),
		logger:   logger,
	}, nil
}

func (u *B2Uploader) Upload(ctx context.Context, filename, contentType string, data []byte) (string, error) {
	_, err := u.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(u.bucket),
		Key:         aws.String(filename),
		Body:        bytes.NewReader(data),
		ContentType: aws.String(contentType),
	})
	if err != nil {
		u.logger.Error().Err(err).Str("key", filename).Msg("upload failed")
		return "", fmt.Errorf("failed to upload %s: %w", filename, err)
	}

	url := fmt.Sprintf("%s/%s/%s", u.endpoint, u.bucket, filename)
	u.logger.Info().Str("key", filename).Str("url", url).Msg("file uploaded")
	return url, nil
}
