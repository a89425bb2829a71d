package rejects

import (
	"bytes"
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/alfredjeanlab/pushdump/internal/objstore"
)

// S3Destination writes JSONL data to an S3-compatible bucket.
type S3Destination struct {
	client *s3.Client
	bucket string
	key    string
}

// NewS3Destination creates an S3 destination for bucket/key.
func NewS3Destination(ctx context.Context, bucket, key string, opts objstore.Options) (*S3Destination, error) {
	client, err := objstore.NewClient(ctx, opts)
	if err != nil {
		return nil, err
	}
	return &S3Destination{
		client: client,
		bucket: bucket,
		key:    key,
	}, nil
}

// Part returns a destination for a sibling key in the same bucket.
func (d *S3Destination) Part(suffix string) Destination {
	return &S3Destination{client: d.client, bucket: d.bucket, key: partName(d.key, suffix)}
}

// Write uploads data to S3 as the configured object key.
func (d *S3Destination) Write(ctx context.Context, data []byte) error {
	contentType := "application/x-ndjson"
	_, err := d.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(d.bucket),
		Key:         aws.String(d.key),
		Body:        bytes.NewReader(data),
		ContentType: &contentType,
	})
	if err != nil {
		return fmt.Errorf("s3 put object: %w", err)
	}
	return nil
}
