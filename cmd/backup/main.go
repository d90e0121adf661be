package main

import (
	"bytes"
	"compress/gzip"
	"context"
	"fmt"
	"os/exec"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"go.uber.org/zap"
)

// BackupConfig ist die eigenständige Konfiguration des Backup-Tools.
type BackupConfig struct {
	DBHost     string `envconfig:"DB_HOST" required:"true"`
	DBPort     int    `envconfig:"DB_PORT" default:"5432"`
	DBUser     string `envconfig:"DB_USER" required:"true"`
	DBPassword string `envconfig:"DB_PASSWORD" required:"true"`
	DBName     string `envconfig:"DB_NAME" required:"true"`

	S3Key    string `envconfig:"BACKUP_S3_KEY" required:"true"`
	S3Secret string `envconfig:"BACKUP_S3_SECRET" required:"true"`
	S3URL    string `envconfig:"BACKUP_S3_URL" required:"true"`
	S3Region string `envconfig:"BACKUP_S3_REGION" default:"eu-central-1"`
	S3Bucket string `envconfig:"BACKUP_S3_BUCKET" required:"true"`

	Prefix        string `envconfig:"BACKUP_PREFIX" default:"backups/"`
	RetentionDays int    `envconfig:"BACKUP_RETENTION_DAYS" default:"14"`
}

func main() {
	logger, _ := zap.NewProduction()
	defer logger.Sync()

	_ = godotenv.Load()
	var cfg BackupConfig
	if err := envconfig.Process("", &cfg); err != nil {
		logger.Fatal("failed to load config", zap.Error(err))
	}

	ctx := context.Background()
	client, err := newS3Client(ctx, &cfg)
	if err != nil {
		logger.Fatal("s3 client init failed", zap.Error(err))
	}

	dump, err := dumpDatabase(ctx, &cfg)
	if err != nil {
		logger.Fatal("pg_dump failed", zap.Error(err))
	}

	key := fmt.Sprintf("%s%s-%s.sql.gz", cfg.Prefix, cfg.DBName, time.Now().UTC().Format("2006-01-02T15-04-05"))
	if _, err := client.PutObject(ctx, &s3.PutObjectInput{
		Bucket: aws.String(cfg.S3Bucket),
		Key:    aws.String(key),
		Body:   bytes.NewReader(dump),
	}); err != nil {
		logger.Fatal("upload failed", zap.String("key", key), zap.Error(err))
	}
	logger.Info("backup uploaded", zap.String("key", key), zap.Int("bytes", len(dump)))

	if err := rotate(ctx, client, &cfg, logger); err != nil {
		logger.Error("rotation failed", zap.Error(err))
	}
}

func newS3Client(ctx context.Context, cfg *BackupConfig) (*s3.Client, error) {
	resolver := aws.EndpointResolverWithOptionsFunc(
		func(service, region string, options ...interface{}) (aws.Endpoint, error) {
			return aws.Endpoint{URL: cfg.S3URL, SigningRegion: cfg.S3Region}, nil
		})

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithRegion(cfg.S3Region),
		awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.S3Key, cfg.S3Secret, "")),
		awsconfig.WithEndpointResolverWithOptions(resolver),
	)
	if err != nil {
		return nil, err
	}
	return s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.UsePathStyle = true
	}), nil
}

// dumpDatabase führt pg_dump aus und komprimiert die Ausgabe mit gzip.
func dumpDatabase(ctx context.Context, cfg *BackupConfig) ([]byte, error) {
	cmd := exec.CommandContext(ctx, "pg_dump",
		"--host", cfg.DBHost,
		"--port", fmt.Sprint(cfg.DBPort),
		"--username", cfg.DBUser,
		"--dbname", cfg.DBName,
		"--no-password",
	)
	cmd.Env = append(cmd.Environ(), "PGPASSWORD="+cfg.DBPassword)

	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	out, err := cmd.Output()
	if err != nil {
		return nil, fmt.Errorf("pg_dump: %w: %s", err, stderr.String())
	}

	var buf bytes.Buffer
	gz := gzip.NewWriter(&buf)
	if _, err := gz.Write(out); err != nil {
		return nil, err
	}
	if err := gz.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// rotate löscht Backups, die älter als die Aufbewahrungsfrist sind.
func rotate(ctx context.Context, client *s3.Client, cfg *BackupConfig, logger *zap.Logger) error {
	cutoff := time.Now().AddDate(0, 0, -cfg.RetentionDays)

	out, err := client.ListObjectsV2(ctx, &s3.ListObjectsV2Input{
		Bucket: aws.String(cfg.S3Bucket),
		Prefix: aws.String(cfg.Prefix),
	})
	if err != nil {
		return err
	}

	for _, obj := range out.Contents {
		if obj.LastModified == nil || obj.LastModified.After(cutoff) {
			continue
		}
		if _, err := client.DeleteObject(ctx, &s3.DeleteObjectInput{
			Bucket: aws.String(cfg.S3Bucket),
			Key:    obj.Key,
		}); err != nil {
			return err
		}
		logger.Info("old backup deleted", zap.String("key", aws.ToString(obj.Key)))
	}
	return nil
}
