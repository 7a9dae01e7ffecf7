package storage

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"

	"github.com/vidtube/vidtube/internal/logging"
	sc "github.com/vidtube/vidtube/internal/server/config"
)

var (
	loadDefaultAWSConfig = config.LoadDefaultConfig

	newS3ClientFromConfig = func(cfg aws.Config, optFns ...func(*s3.Options)) *s3.Client {
		return s3.NewFromConfig(cfg, optFns...)
	}

	putObject = func(c *s3.Client, ctx context.Context, in *s3.PutObjectInput) (*s3.PutObjectOutput, error) {
		return c.PutObject(ctx, in)
	}
	deleteObject = func(c *s3.Client, ctx context.Context, in *s3.DeleteObjectInput) (*s3.DeleteObjectOutput, error) {
		return c.DeleteObject(ctx, in)
	}
)

// S3Store stores media assets in an S3-compatible bucket (MinIO in dev).
type S3Store struct {
	config *sc.Config
	logger logging.Logger
}

// NewS3Store constructs an S3-backed AssetStore from server configuration.
func NewS3Store(cfg *sc.Config, logger logging.Logger) *S3Store {
	return &S3Store{config: cfg, logger: logger.With("module", "s3_store")}
}

// randomStorageKey spreads objects over date-based prefixes; the extension
// of the staged file is kept so the object remains recognizable.
func randomStorageKey(localPath string) string {
	d := time.Now()
	return fmt.Sprintf("media/%d/%d/%d/%v%s", d.Year(), int(d.Month()), d.Day(), uuid.New(), filepath.Ext(localPath))
}

func (s *S3Store) getClient(ctx context.Context) (*s3.Client, error) {
	cfg, err := loadDefaultAWSConfig(ctx,
		config.WithRegion(s.config.S3Region),
		config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			s.config.S3RootUser,     // MINIO_ROOT_USER
			s.config.S3RootPassword, // MINIO_ROOT_PASSWORD
			"",
		)))
	if err != nil {
		return nil, err
	}

	client := newS3ClientFromConfig(cfg, func(o *s3.Options) {
		o.BaseEndpoint = aws.String(s.config.S3BaseEndpoint)
		o.UsePathStyle = true
	})

	return client, nil
}

// Upload pushes the staged file at localPath into the bucket and returns
// its URL plus the object key as the delete handle. The staged file is
// removed afterwards whether or not the upload succeeded, mirroring the
// temp-dir contract of the multipart middleware.
func (s *S3Store) Upload(ctx context.Context, localPath string) (*Asset, error) {
	defer s.removeLocal(ctx, localPath)

	file, err := os.Open(localPath)
	if err != nil {
		return nil, fmt.Errorf("opening staged file: %w", err)
	}
	defer file.Close()

	client, err := s.getClient(ctx)
	if err != nil {
		return nil, err
	}

	bucket := s.config.S3Bucket
	key := randomStorageKey(localPath)

	if _, err := putObject(client, ctx, &s3.PutObjectInput{
		Bucket: &bucket,
		Key:    &key,
		Body:   file,
	}); err != nil {
		return nil, err
	}

	return &Asset{
		URL:          s.objectURL(key),
		DeleteHandle: key,
	}, nil
}

// Delete removes a previously uploaded object by its delete handle.
func (s *S3Store) Delete(ctx context.Context, deleteHandle string) error {
	client, err := s.getClient(ctx)
	if err != nil {
		return err
	}

	bucket := s.config.S3Bucket
	if _, err := deleteObject(client, ctx, &s3.DeleteObjectInput{
		Bucket: &bucket,
		Key:    &deleteHandle,
	}); err != nil {
		return err
	}
	return nil
}

func (s *S3Store) objectURL(key string) string {
	return fmt.Sprintf("%s/%s/%s", strings.TrimRight(s.config.S3BaseEndpoint, "/"), s.config.S3Bucket, key)
}

func (s *S3Store) removeLocal(ctx context.Context, localPath string) {
	if err := os.Remove(localPath); err != nil && !os.IsNotExist(err) {
		s.logger.Warn(ctx, "failed to remove staged file", "path", localPath, "error", err.Error())
	}
}
