// Package s3 implements storage.ObjectStore on S3-compatible object storage
// (MinIO in local runs, any S3 API in production). The client uses static
// credentials and path-style addressing, which MinIO requires.
package s3

import (
	"bytes"
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/credentials"
	awss3 "github.com/aws/aws-sdk-go-v2/service/s3"
)

// Options configures the S3 client.
type Options struct {
	Endpoint  string // e.g. "http://localhost:9000"
	Region    string
	KeyID     string
	Secret    string
	PathStyle bool
}

// Store writes artifacts into a single bucket.
type Store struct {
	client *awss3.Client
	bucket string
}

// New builds a Store for bucket using opts. An empty endpoint falls through
// to the SDK's default AWS resolution.
func New(bucket string, opts Options) *Store {
	o := awss3.Options{
		Region: opts.Region,
		Credentials: credentials.NewStaticCredentialsProvider(
			opts.KeyID, opts.Secret, "",
		),
		UsePathStyle: opts.PathStyle,
	}
	if opts.Endpoint != "" {
		o.BaseEndpoint = aws.String(opts.Endpoint)
	}
	return &Store{
		client: awss3.New(o),
		bucket: bucket,
	}
}

// Put uploads data under key.
func (s *Store) Put(ctx context.Context, key string, data []byte, contentType string) error {
	_, err := s.client.PutObject(ctx, &awss3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(data),
		ContentType: aws.String(contentType),
	})
	if err != nil {
		return fmt.Errorf("s3: put s3://%s/%s: %w", s.bucket, key, err)
	}
	return nil
}

// EnsureBucket creates the bucket if it does not exist yet. MinIO starts
// empty, so local runs need this before the first Put.
func (s *Store) EnsureBucket(ctx context.Context) error {
	_, err := s.client.HeadBucket(ctx, &awss3.HeadBucketInput{
		Bucket: aws.String(s.bucket),
	})
	if err == nil {
		return nil
	}
	_, err = s.client.CreateBucket(ctx, &awss3.CreateBucketInput{
		Bucket: aws.String(s.bucket),
	})
	if err != nil {
		return fmt.Errorf("s3: create bucket %s: %w", s.bucket, err)
	}
	return nil
}
