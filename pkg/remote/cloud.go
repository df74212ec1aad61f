package remote

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/annexport/annexport/internal/logger"
	"github.com/annexport/annexport/pkg/annex"
)

// ExternalTypeS3 is the externaltype tag of S3-backed special remotes.
const ExternalTypeS3 = "s3uri"

// ObjectMetadata is what the bulk metadata provider reports for one
// object: its size and MD5 digest.
type ObjectMetadata struct {
	Size   int64
	Digest string
}

// MetadataProvider performs bulk metadata lookups for object-storage
// URLs. With ignoreErrors set, objects that cannot be described are
// simply absent from the result instead of failing the batch.
type MetadataProvider interface {
	GetMetadata(ctx context.Context, urls []string, ignoreErrors bool) (map[string]ObjectMetadata, error)
}

// CloudRemote serves files stored in an object store, recognized by
// their URL scheme. All unresolved URLs of the scheme are looked up in
// one bulk metadata query.
type CloudRemote struct {
	name     string
	uuid     string
	scheme   string
	provider MetadataProvider
}

// NewCloudRemote creates a CloudRemote for the given URL scheme backed
// by the given metadata provider.
func NewCloudRemote(name, uuid, scheme string, provider MetadataProvider) *CloudRemote {
	return &CloudRemote{name: name, uuid: uuid, scheme: scheme, provider: provider}
}

// S3Factory returns a Factory for s3uri remotes backed by provider.
func S3Factory(provider MetadataProvider) Factory {
	return func(name, uuid string) Remote {
		return NewCloudRemote(name, uuid, "s3", provider)
	}
}

func (r *CloudRemote) Name() string { return r.name }
func (r *CloudRemote) UUID() string { return r.uuid }

// HandlesURL reports whether rawURL has this remote's scheme.
func (r *CloudRemote) HandlesURL(rawURL string) bool {
	u, err := url.Parse(rawURL)
	return err == nil && u.Scheme == r.scheme && u.Host != ""
}

// CanonicalizeURL validates the URL; object-store URLs are already
// canonical.
func (r *CloudRemote) CanonicalizeURL(rawURL string) (string, error) {
	if !r.HandlesURL(rawURL) {
		return "", fmt.Errorf("url not handled by remote %s: %s", r.name, rawURL)
	}
	return rawURL, nil
}

// GatherFileStats bulk-queries object metadata for every unresolved URL
// of this remote's scheme, constructs keys from the reported size and
// digest, and schedules registration of each new key. Objects the
// provider could not describe are left unresolved.
func (r *CloudRemote) GatherFileStats(ctx context.Context, tool *annex.Tool, stats map[string]*FileStat) error {
	var pending []string
	for _, rawURL := range sortedURLs(stats) {
		fs := stats[rawURL]
		if fs.HasKey() || !r.HandlesURL(rawURL) {
			continue
		}
		pending = append(pending, rawURL)
	}
	if len(pending) == 0 {
		return nil
	}

	logger.Debug("querying object metadata",
		logger.KeyRemote, r.name, logger.KeyCount, len(pending))

	metadata, err := r.provider.GetMetadata(ctx, pending, true)
	if err != nil {
		return fmt.Errorf("bulk metadata query for remote %s: %w", r.name, err)
	}

	for _, rawURL := range pending {
		meta, ok := metadata[rawURL]
		if !ok {
			continue // left unresolved
		}
		fs := stats[rawURL]
		fs.Size = meta.Size
		fs.Digest = strings.ToLower(meta.Digest)

		key, err := annex.ConstructKey(annex.BackendMD5E, uint64(meta.Size), fs.Digest, rawURL)
		if err != nil {
			return err
		}
		if err := fs.SetKey(key.String()); err != nil {
			return fmt.Errorf("%s: %w", rawURL, err)
		}
		if err := tool.RegisterKeyInRemoteAtURL(ctx, key.String(), rawURL, r.uuid); err != nil {
			return err
		}
	}
	return nil
}
