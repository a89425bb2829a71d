// Package source opens dump files for reading, whether they live on disk,
// arrive on stdin or sit in an S3 bucket, and undoes their compression.
package source

import (
	"context"
	"fmt"
	"io"
	"os"
	"path"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/klauspost/compress/zstd"
	"github.com/ulikunitz/xz"

	"github.com/alfredjeanlab/pushdump/internal/model"
	"github.com/alfredjeanlab/pushdump/internal/objstore"
)

// Stdin is the location that reads from standard input.
const Stdin = "-"

// zstdMaxWindow is the largest window Reddit dump archives are written with.
const zstdMaxWindow = 1 << 31

// Options configures how locations are opened.
type Options struct {
	S3 objstore.Options
	// Compression overrides detection by extension: "zst", "xz" or "none".
	Compression string
}

// Open returns a reader over the decompressed contents of location.
func Open(ctx context.Context, location string, opts Options) (io.ReadCloser, error) {
	raw, err := openRaw(ctx, location, opts)
	if err != nil {
		return nil, err
	}
	compression := opts.Compression
	if compression == "" {
		compression = compressionFromName(location)
	}
	rc, err := decompress(raw, compression)
	if err != nil {
		raw.Close()
		return nil, fmt.Errorf("open %s: %w", location, err)
	}
	return rc, nil
}

func openRaw(ctx context.Context, location string, opts Options) (io.ReadCloser, error) {
	switch {
	case location == Stdin:
		return io.NopCloser(os.Stdin), nil
	case objstore.IsURL(location):
		bucket, key, err := objstore.ParseURL(location)
		if err != nil {
			return nil, err
		}
		client, err := objstore.NewClient(ctx, opts.S3)
		if err != nil {
			return nil, err
		}
		out, err := client.GetObject(ctx, &s3.GetObjectInput{
			Bucket: aws.String(bucket),
			Key:    aws.String(key),
		})
		if err != nil {
			return nil, fmt.Errorf("s3 get object: %w", err)
		}
		return out.Body, nil
	default:
		f, err := os.Open(location)
		if err != nil {
			return nil, fmt.Errorf("open dump: %w", err)
		}
		return f, nil
	}
}

func compressionFromName(name string) string {
	switch path.Ext(name) {
	case ".zst", ".zstd":
		return "zst"
	case ".xz":
		return "xz"
	default:
		return "none"
	}
}

// decompress wraps raw so that closing the result closes raw as well.
func decompress(raw io.ReadCloser, compression string) (io.ReadCloser, error) {
	switch compression {
	case "none":
		return raw, nil
	case "zst":
		dec, err := zstd.NewReader(raw, zstd.WithDecoderMaxWindow(zstdMaxWindow))
		if err != nil {
			return nil, fmt.Errorf("zstd reader: %w", err)
		}
		return &stackedReader{Reader: dec, close: func() error {
			dec.Close()
			return raw.Close()
		}}, nil
	case "xz":
		dec, err := xz.NewReader(raw)
		if err != nil {
			return nil, fmt.Errorf("xz reader: %w", err)
		}
		return &stackedReader{Reader: dec, close: raw.Close}, nil
	default:
		return nil, fmt.Errorf("unknown compression %q", compression)
	}
}

type stackedReader struct {
	io.Reader
	close func() error
}

func (r *stackedReader) Close() error { return r.close() }

// KindFromName infers the record kind from a dump's file name. Pushshift
// names comment dumps RC_YYYY-MM and submission dumps RS_YYYY-MM.
func KindFromName(name string) (model.RecordKind, bool) {
	base := strings.ToLower(path.Base(name))
	switch {
	case strings.HasPrefix(base, "rc_"), strings.Contains(base, "comments"):
		return model.KindComment, true
	case strings.HasPrefix(base, "rs_"), strings.Contains(base, "submissions"):
		return model.KindSubmission, true
	default:
		return "", false
	}
}
