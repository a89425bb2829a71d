// Package objstore builds S3 clients and parses s3:// locations.
package objstore

import (
	"context"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// Scheme is the URL prefix that marks an object-store location.
const Scheme = "s3://"

// Options configures the S3 client.
type Options struct {
	Region   string
	Endpoint string
}

// NewClient creates an S3 client. If Endpoint is non-empty, path-style
// addressing is enabled (for MinIO and similar).
func NewClient(ctx context.Context, opts Options) (*s3.Client, error) {
	var loadOpts []func(*awsconfig.LoadOptions) error
	if opts.Region != "" {
		loadOpts = append(loadOpts, awsconfig.WithRegion(opts.Region))
	}

	cfg, err := awsconfig.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("load AWS config: %w", err)
	}

	var s3opts []func(*s3.Options)
	if opts.Endpoint != "" {
		s3opts = append(s3opts, func(o *s3.Options) {
			o.BaseEndpoint = aws.String(opts.Endpoint)
			o.UsePathStyle = true
		})
	}

	return s3.NewFromConfig(cfg, s3opts...), nil
}

// IsURL reports whether location names an object in a bucket.
func IsURL(location string) bool {
	return strings.HasPrefix(location, Scheme)
}

// ParseURL splits s3://bucket/key into bucket and key.
func ParseURL(location string) (bucket, key string, err error) {
	rest, ok := strings.CutPrefix(location, Scheme)
	if !ok {
		return "", "", fmt.Errorf("not an s3 url: %q", location)
	}
	bucket, key, _ = strings.Cut(rest, "/")
	if bucket == "" || key == "" {
		return "", "", fmt.Errorf("s3 url %q must name a bucket and a key", location)
	}
	return bucket, key, nil
}
