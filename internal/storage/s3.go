package storage

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	s3types "github.com/aws/aws-sdk-go-v2/service/s3/types"

	colerrors "github.com/colport/colport/internal/errors"
)

// S3Store implements ArtifactStore for AWS S3 and S3-compatible stores.
type S3Store struct {
	client *s3.Client
	bucket string
}

// S3Options holds S3 store configuration.
type S3Options struct {
	// Region is the AWS region for the bucket.
	Region string
	// Endpoint is an optional custom endpoint (for MinIO, LocalStack, etc.).
	Endpoint string
	// UsePathStyle enables path-style addressing (required for MinIO).
	UsePathStyle bool
}

// NewS3Store creates a new S3 artifact store.
func NewS3Store(ctx context.Context, bucket string, opts S3Options) (*S3Store, error) {
	var loadOpts []func(*awsconfig.LoadOptions) error
	if opts.Region != "" {
		loadOpts = append(loadOpts, awsconfig.WithRegion(opts.Region))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, colerrors.NewStorageError(colerrors.CodeUploadFailed,
			"failed to load AWS config", err)
	}

	var s3Opts []func(*s3.Options)
	if opts.Endpoint != "" {
		s3Opts = append(s3Opts, func(o *s3.Options) {
			o.BaseEndpoint = aws.String(opts.Endpoint)
		})
	}
	if opts.UsePathStyle {
		s3Opts = append(s3Opts, func(o *s3.Options) {
			o.UsePathStyle = true
		})
	}

	return &S3Store{
		client: s3.NewFromConfig(awsCfg, s3Opts...),
		bucket: bucket,
	}, nil
}

// NewS3StoreWithClient creates an S3 store with a pre-configured client.
func NewS3StoreWithClient(client *s3.Client, bucket string) *S3Store {
	return &S3Store{client: client, bucket: bucket}
}

// Put uploads a local artifact to S3.
func (s *S3Store) Put(ctx context.Context, localPath, objectPath string) error {
	file, err := os.Open(localPath)
	if err != nil {
		return colerrors.NewStorageError(colerrors.CodeUploadFailed,
			fmt.Sprintf("failed to open %s", localPath), err)
	}
	defer file.Close()

	_, err = s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(objectPath),
		Body:   file,
	})
	if err != nil {
		return colerrors.NewStorageError(colerrors.CodeUploadFailed,
			fmt.Sprintf("failed to upload %s", objectPath), err)
	}
	return nil
}

// Fetch downloads an artifact from S3 to a local path.
func (s *S3Store) Fetch(ctx context.Context, objectPath, localPath string) error {
	resp, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(objectPath),
	})
	if err != nil {
		var noKey *s3types.NoSuchKey
		if errors.As(err, &noKey) {
			return colerrors.NewStorageError(colerrors.CodeObjectNotFound,
				fmt.Sprintf("artifact %s not found", objectPath), err)
		}
		return colerrors.NewStorageError(colerrors.CodeDownloadFailed,
			fmt.Sprintf("failed to download %s", objectPath), err)
	}
	defer resp.Body.Close()

	if err := os.MkdirAll(filepath.Dir(localPath), 0755); err != nil {
		return colerrors.NewStorageError(colerrors.CodeDownloadFailed,
			fmt.Sprintf("failed to create parent for %s", localPath), err)
	}

	dst, err := os.Create(localPath)
	if err != nil {
		return colerrors.NewStorageError(colerrors.CodeDownloadFailed,
			fmt.Sprintf("failed to create %s", localPath), err)
	}
	defer dst.Close()

	if _, err := dst.ReadFrom(resp.Body); err != nil {
		return colerrors.NewStorageError(colerrors.CodeDownloadFailed,
			fmt.Sprintf("failed to write %s", localPath), err)
	}
	return dst.Close()
}

// Exists reports whether an artifact exists in S3.
func (s *S3Store) Exists(ctx context.Context, objectPath string) (bool, error) {
	_, err := s.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(objectPath),
	})
	if err != nil {
		var notFound *s3types.NotFound
		if errors.As(err, &notFound) {
			return false, nil
		}
		return false, colerrors.NewStorageError(colerrors.CodeDownloadFailed,
			fmt.Sprintf("failed to head %s", objectPath), err)
	}
	return true, nil
}

// Delete removes an artifact from S3. S3 deletes are idempotent.
func (s *S3Store) Delete(ctx context.Context, objectPath string) error {
	_, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(objectPath),
	})
	if err != nil {
		return colerrors.NewStorageError(colerrors.CodeDeleteFailed,
			fmt.Sprintf("failed to delete %s", objectPath), err)
	}
	return nil
}

// List returns all artifact paths under the given prefix.
func (s *S3Store) List(ctx context.Context, prefix string) ([]string, error) {
	var objects []string

	paginator := s3.NewListObjectsV2Paginator(s.client, &s3.ListObjectsV2Input{
		Bucket: aws.String(s.bucket),
		Prefix: aws.String(prefix),
	})
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, colerrors.NewStorageError(colerrors.CodeDownloadFailed,
				fmt.Sprintf("failed to list %s", prefix), err)
		}
		for _, obj := range page.Contents {
			objects = append(objects, aws.ToString(obj.Key))
		}
	}

	return objects, nil
}
