package sync

import (
	"bytes"
	"context"
	"fmt"
	"strconv"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// S3Config locates the backup object.
type S3Config struct {
	Bucket string
	Key    string
	Region string
	// Endpoint switches to path-style addressing against a custom endpoint
	// (MinIO and similar) when set.
	Endpoint string
}

// objectPutter is the part of *s3.Client the destination uses.
type objectPutter interface {
	PutObject(ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// S3Destination uploads backups to a single object in an S3-compatible bucket.
type S3Destination struct {
	client objectPutter
	bucket string
	key    string
}

// NewS3Destination loads AWS credentials from the environment and returns a
// destination for cfg.
func NewS3Destination(ctx context.Context, cfg S3Config) (*S3Destination, error) {
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(cfg.Region))
	if err != nil {
		return nil, fmt.Errorf("load AWS config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true
		}
	})
	return &S3Destination{client: client, bucket: cfg.Bucket, key: cfg.Key}, nil
}

func (d *S3Destination) Name() string { return "s3://" + d.bucket + "/" + d.key }

// Write replaces the backup object. The geotification count and record
// digest travel as object metadata.
func (d *S3Destination) Write(ctx context.Context, b *Backup) error {
	_, err := d.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(d.bucket),
		Key:         aws.String(d.key),
		Body:        bytes.NewReader(b.Data),
		ContentType: aws.String("application/x-ndjson"),
		Metadata: map[string]string{
			"geotification-count": strconv.Itoa(b.Count),
			"records-sha256":      b.Digest,
		},
	})
	if err != nil {
		return fmt.Errorf("s3 put object: %w", err)
	}
	return nil
}
