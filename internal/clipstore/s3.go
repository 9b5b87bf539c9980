// Package clipstore publishes answer clips to S3 so they can be linked from
// outside the host that cut them.
package clipstore

import (
	"context"
	"fmt"
	"os"
	"path"
	"path/filepath"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"
)

// Options configures the S3 client. Region and credentials fall back to the
// standard AWS config chain.
type Options struct {
	Bucket       string
	Prefix       string
	Region       string
	UsePathStyle bool
}

// Publisher uploads clips to one bucket.
type Publisher struct {
	client *s3.Client
	bucket string
	prefix string
}

// New creates a Publisher using the default AWS configuration chain.
func New(ctx context.Context, opts Options) (*Publisher, error) {
	if opts.Bucket == "" {
		return nil, fmt.Errorf("clip bucket not configured")
	}

	var loadOpts []func(*config.LoadOptions) error
	if opts.Region != "" {
		loadOpts = append(loadOpts, config.WithRegion(opts.Region))
	}

	awsCfg, err := config.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.UsePathStyle = opts.UsePathStyle
	})
	return &Publisher{client: client, bucket: opts.Bucket, prefix: opts.Prefix}, nil
}

// ObjectKey returns the key a clip is stored under.
func ObjectKey(prefix, id string) string {
	return path.Join(prefix, id+".mp4")
}

// Publish uploads the clip at localPath and returns its s3:// URI.
func (p *Publisher) Publish(ctx context.Context, localPath string) (string, error) {
	f, err := os.Open(localPath)
	if err != nil {
		return "", fmt.Errorf("open clip: %w", err)
	}
	defer f.Close()

	key := ObjectKey(p.prefix, uuid.NewString())
	_, err = p.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(p.bucket),
		Key:         aws.String(key),
		Body:        f,
		ContentType: aws.String("video/mp4"),
	})
	if err != nil {
		return "", fmt.Errorf("upload %s to s3://%s/%s: %w", filepath.Base(localPath), p.bucket, key, err)
	}

	return fmt.Sprintf("s3://%s/%s", p.bucket, key), nil
}
