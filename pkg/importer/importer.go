// Package importer orchestrates imports: given a set of URLs it builds
// a per-URL attribute map, asks every configured remote to resolve
// content keys, validates completeness, and optionally double-checks
// that every key ended up known to the store.
package importer

import (
	"context"
	"sort"
	"time"

	"github.com/annexport/annexport/internal/logger"
	"github.com/annexport/annexport/internal/metrics"
	"github.com/annexport/annexport/pkg/annex"
	"github.com/annexport/annexport/pkg/remote"
)

// presentSentinel is what checkpresentkey prints for a key the store
// knows to be present somewhere.
const presentSentinel = "1"

// Options adjusts one ImportURLs run.
type Options struct {
	// Existing seeds the result map, letting callers accumulate
	// attributes across imports and avoid recomputing digests they
	// already have. Nil starts fresh.
	Existing map[string]*remote.FileStat

	// IgnoreUnresolvable leaves URLs no remote could resolve without
	// a key instead of failing the import.
	IgnoreUnresolvable bool

	// SkipPresenceCheck disables the post-import verification that
	// every resolved key is known to the store.
	SkipPresenceCheck bool
}

// Coordinator runs imports against one annex tool with a fixed set of
// remote factories.
type Coordinator struct {
	tool      *annex.Tool
	factories map[string]remote.Factory
}

// New creates a Coordinator. The factories map external remote type
// tags (ldir, s3uri) to their constructors; remotes themselves are
// discovered from git configuration at the start of every import.
func New(tool *annex.Tool, factories map[string]remote.Factory) *Coordinator {
	return &Coordinator{tool: tool, factories: factories}
}

// ImportURLs makes every URL's content known to the store and returns
// the per-URL attribute map; each resolved entry carries at least a
// content key.
//
// The whole run executes inside one batching scope, so the many
// registration and verification calls collapse into a handful of
// physical tool invocations. Re-running with an unchanged URL set
// yields identical keys and no duplicate registrations.
func (c *Coordinator) ImportURLs(ctx context.Context, urls []string, opts Options) (map[string]*remote.FileStat, error) {
	start := time.Now()

	stats := opts.Existing
	if stats == nil {
		stats = make(map[string]*remote.FileStat)
	}

	unique := dedupeSorted(urls)
	for _, u := range unique {
		if _, ok := stats[u]; !ok {
			stats[u] = remote.NewFileStat()
		}
	}

	remotes, err := remote.Discover(ctx, c.tool, c.factories)
	if err != nil {
		return nil, err
	}

	var missing []string
	err = c.tool.WithBatch(ctx, func(bt *annex.Tool) error {
		for _, rm := range remotes {
			if err := rm.GatherFileStats(ctx, bt, stats); err != nil {
				return err
			}
		}

		for _, u := range unique {
			fs := stats[u]
			if !fs.HasKey() {
				if !opts.IgnoreUnresolvable {
					return annex.NewUnresolvedURLError(u)
				}
				logger.Warn("url left unresolved", logger.KeyURL, u)
				continue
			}
			if opts.SkipPresenceCheck {
				continue
			}
			key := fs.Key
			if err := bt.CheckPresentKeyTo(ctx, key, func(out string) {
				if out != presentSentinel {
					missing = append(missing, key)
				}
			}); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	if len(missing) > 0 {
		return nil, annex.NewKeyNotPresentError(missing[0])
	}

	resolved := 0
	for _, u := range unique {
		if stats[u].HasKey() {
			resolved++
		}
	}
	metrics.RecordImport(time.Since(start).Seconds(), resolved)
	logger.Info("import finished",
		logger.KeyCount, len(unique),
		"resolved", resolved,
		logger.KeyDurationMs, logger.Duration(start))

	return stats, nil
}

// dedupeSorted returns the unique URLs in sorted order.
func dedupeSorted(urls []string) []string {
	seen := make(map[string]struct{}, len(urls))
	unique := make([]string, 0, len(urls))
	for _, u := range urls {
		if _, ok := seen[u]; ok {
			continue
		}
		seen[u] = struct{}{}
		unique = append(unique, u)
	}
	sort.Strings(unique)
	return unique
}
