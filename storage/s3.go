package storage

import (
	"bytes"
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"go.uber.org/zap"

	"journal-index/config"
)

// ArchiveClient legt rohe Harvest-Seiten in einem S3-kompatiblen Bucket ab.
type ArchiveClient struct {
	client *s3.Client
	bucket string
	logger *zap.Logger
}

// NewArchiveClient erzeugt einen ArchiveClient für den konfigurierten
// S3-kompatiblen Endpunkt.
func NewArchiveClient(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*ArchiveClient, error) {
	resolver := aws.EndpointResolverWithOptionsFunc(
		func(service, region string, options ...interface{}) (aws.Endpoint, error) {
			return aws.Endpoint{
				URL:           cfg.ArchiveS3URL,
				SigningRegion: cfg.ArchiveS3Region,
			}, nil
		})

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithRegion(cfg.ArchiveS3Region),
		awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.ArchiveS3Key, cfg.ArchiveS3Secret, "")),
		awsconfig.WithEndpointResolverWithOptions(resolver),
	)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.UsePathStyle = true
	})
	return &ArchiveClient{client: client, bucket: cfg.ArchiveS3Bucket, logger: logger}, nil
}

// Archive lädt eine rohe Seite unter dem gegebenen Key in den Bucket.
func (c *ArchiveClient) Archive(ctx context.Context, key string, data []byte) error {
	_, err := c.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket: aws.String(c.bucket),
		Key:    aws.String(key),
		Body:   bytes.NewReader(data),
	})
	if err != nil {
		return fmt.Errorf("put object %s: %w", key, err)
	}
	c.logger.Debug("page archived", zap.String("key", key), zap.Int("bytes", len(data)))
	return nil
}
