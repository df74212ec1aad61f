// Package s3 provides an S3-backed bulk metadata provider for
// object-store remotes.
package s3

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/annexport/annexport/internal/logger"
	"github.com/annexport/annexport/pkg/remote"
)

// Config holds configuration for the S3 metadata provider.
type Config struct {
	// Region is the AWS region (optional, uses SDK default if empty).
	Region string

	// Endpoint is the S3 endpoint URL (optional, for S3-compatible
	// services).
	Endpoint string

	// ForcePathStyle forces path-style addressing (required for
	// Localstack/MinIO).
	ForcePathStyle bool
}

// Provider answers bulk metadata queries for s3:// URLs using
// HeadObject: the size comes from Content-Length, the MD5 digest from
// the ETag of non-multipart uploads.
type Provider struct {
	client *s3.Client
}

// New creates a Provider with an existing client.
func New(client *s3.Client) *Provider {
	return &Provider{client: client}
}

// NewFromConfig creates a Provider by building an S3 client from
// config. This is the preferred constructor when you don't have an
// existing S3 client.
func NewFromConfig(ctx context.Context, config Config) (*Provider, error) {
	var opts []func(*awsconfig.LoadOptions) error
	if config.Region != "" {
		opts = append(opts, awsconfig.WithRegion(config.Region))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	var s3Opts []func(*s3.Options)
	if config.Endpoint != "" {
		s3Opts = append(s3Opts, func(o *s3.Options) {
			o.BaseEndpoint = aws.String(config.Endpoint)
		})
	}
	if config.ForcePathStyle {
		s3Opts = append(s3Opts, func(o *s3.Options) {
			o.UsePathStyle = true
		})
	}

	return New(s3.NewFromConfig(awsCfg, s3Opts...)), nil
}

// GetMetadata describes every URL and returns size and MD5 digest for
// the objects that could be resolved. With ignoreErrors set, failed
// lookups and objects without a usable digest (multipart ETags) are
// skipped; otherwise the first failure aborts.
func (p *Provider) GetMetadata(ctx context.Context, urls []string, ignoreErrors bool) (map[string]remote.ObjectMetadata, error) {
	result := make(map[string]remote.ObjectMetadata, len(urls))

	for _, rawURL := range urls {
		bucket, key, err := splitObjectURL(rawURL)
		if err != nil {
			if ignoreErrors {
				logger.Warn("skipping malformed object url", logger.KeyURL, rawURL)
				continue
			}
			return nil, err
		}

		head, err := p.client.HeadObject(ctx, &s3.HeadObjectInput{
			Bucket: aws.String(bucket),
			Key:    aws.String(key),
		})
		if err != nil {
			if ignoreErrors {
				logger.Warn("object metadata lookup failed",
					logger.KeyURL, rawURL, logger.KeyError, err)
				continue
			}
			return nil, fmt.Errorf("head object %s: %w", rawURL, err)
		}

		digest, ok := digestFromETag(aws.ToString(head.ETag))
		if !ok {
			if ignoreErrors {
				logger.Warn("object has no usable md5 etag", logger.KeyURL, rawURL)
				continue
			}
			return nil, fmt.Errorf("object %s has no usable md5 etag", rawURL)
		}

		result[rawURL] = remote.ObjectMetadata{
			Size:   aws.ToInt64(head.ContentLength),
			Digest: digest,
		}
	}

	return result, nil
}

// splitObjectURL splits s3://bucket/key into its parts.
func splitObjectURL(rawURL string) (bucket, key string, err error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", "", fmt.Errorf("parsing %s: %w", rawURL, err)
	}
	if u.Scheme != "s3" || u.Host == "" || u.Path == "" || u.Path == "/" {
		return "", "", fmt.Errorf("not an s3 object url: %s", rawURL)
	}
	return u.Host, strings.TrimPrefix(u.Path, "/"), nil
}

// digestFromETag extracts the MD5 digest from an S3 ETag. Multipart
// uploads carry a composite ETag ("<hex>-<parts>") which is not an MD5
// of the content; those report no digest.
func digestFromETag(etag string) (string, bool) {
	etag = strings.Trim(etag, `"`)
	if len(etag) != 32 {
		return "", false
	}
	for _, c := range etag {
		if (c < '0' || c > '9') && (c < 'a' || c > 'f') && (c < 'A' || c > 'F') {
			return "", false
		}
	}
	return strings.ToLower(etag), true
}
