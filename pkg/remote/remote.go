// Package remote models the pluggable backends a file URL can live in.
// Each remote recognizes URLs of its kind, canonicalizes them, and
// derives content keys for them, issuing any store-mutating calls
// through the annex tool's batching layer.
package remote

import (
	"context"
	"sort"
	"strings"

	"github.com/annexport/annexport/internal/logger"
	"github.com/annexport/annexport/pkg/annex"
)

// Remote is one configured backend, identified by its git remote name
// and annex uuid. Implementations must be idempotent: gathering twice
// over the same map yields the same keys and no duplicate
// registrations.
type Remote interface {
	// Name returns the git remote name.
	Name() string

	// UUID returns the annex uuid identifying the remote.
	UUID() string

	// HandlesURL reports whether this remote recognizes the URL.
	HandlesURL(url string) bool

	// CanonicalizeURL returns the standard form of a URL this remote
	// handles, e.g. an absolute path becomes file:///absolute/path.
	CanonicalizeURL(url string) (string, error)

	// GatherFileStats fills in content keys (and related attributes)
	// for the URLs it handles, mutating stats in place. URLs that
	// already carry a key, or that the remote does not handle, are
	// skipped. Registration calls are deferred through tool.
	GatherFileStats(ctx context.Context, tool *annex.Tool, stats map[string]*FileStat) error
}

// Factory builds a Remote from its discovered git config entry.
type Factory func(name, uuid string) Remote

// git config keys describing external special remotes
const (
	configRemotePrefix     = "remote."
	configExternalTypeSfx  = ".annex-externaltype"
	configRemoteUUIDSuffix = ".annex-uuid"
)

// Discover scans the repository's git configuration for external
// special remotes and instantiates one Remote per entry whose
// externaltype has a registered factory. The scan is read-only and
// happens once per import; results are ordered by remote name.
func Discover(ctx context.Context, tool *annex.Tool, factories map[string]Factory) ([]Remote, error) {
	cfg, err := tool.GitConfig(ctx)
	if err != nil {
		return nil, err
	}

	var remotes []Remote
	for key, externalType := range cfg {
		if !strings.HasPrefix(key, configRemotePrefix) || !strings.HasSuffix(key, configExternalTypeSfx) {
			continue
		}
		factory, ok := factories[externalType]
		if !ok {
			continue
		}
		name := strings.TrimSuffix(strings.TrimPrefix(key, configRemotePrefix), configExternalTypeSfx)
		uuid := cfg[configRemotePrefix+name+configRemoteUUIDSuffix]
		if uuid == "" {
			logger.Warn("external remote has no uuid, skipping",
				logger.KeyRemote, name,
				logger.KeyRemoteType, externalType)
			continue
		}
		remotes = append(remotes, factory(name, uuid))
	}

	sort.Slice(remotes, func(i, j int) bool { return remotes[i].Name() < remotes[j].Name() })

	logger.Debug("discovered external remotes", logger.KeyCount, len(remotes))
	return remotes, nil
}

// sortedURLs returns the map's URLs in deterministic order.
func sortedURLs(stats map[string]*FileStat) []string {
	urls := make([]string, 0, len(stats))
	for u := range stats {
		urls = append(urls, u)
	}
	sort.Strings(urls)
	return urls
}
