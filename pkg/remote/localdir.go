package remote

import (
	"context"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/annexport/annexport/internal/logger"
	"github.com/annexport/annexport/pkg/annex"
)

// ExternalTypeLocalDir is the externaltype tag of directory-backed
// special remotes.
const ExternalTypeLocalDir = "ldir"

// LocalDirRemote serves files stored in a local directory. It handles
// file:// URLs and plain absolute paths.
type LocalDirRemote struct {
	name string
	uuid string
}

// NewLocalDirRemote creates a LocalDirRemote with the given identity.
func NewLocalDirRemote(name, uuid string) *LocalDirRemote {
	return &LocalDirRemote{name: name, uuid: uuid}
}

// LocalDirFactory is the Factory for ldir remotes.
func LocalDirFactory(name, uuid string) Remote {
	return NewLocalDirRemote(name, uuid)
}

func (r *LocalDirRemote) Name() string { return r.name }
func (r *LocalDirRemote) UUID() string { return r.uuid }

// HandlesURL reports whether rawURL is a file:// URL without an
// authority, or an absolute path.
func (r *LocalDirRemote) HandlesURL(rawURL string) bool {
	if filepath.IsAbs(rawURL) {
		return true
	}
	u, err := url.Parse(rawURL)
	return err == nil && u.Scheme == "file" && u.Host == ""
}

// CanonicalizeURL turns an absolute path into a file:// URL; file://
// URLs pass through unchanged.
func (r *LocalDirRemote) CanonicalizeURL(rawURL string) (string, error) {
	if !r.HandlesURL(rawURL) {
		return "", fmt.Errorf("url not handled by remote %s: %s", r.name, rawURL)
	}
	if filepath.IsAbs(rawURL) {
		return "file://" + rawURL, nil
	}
	return rawURL, nil
}

// filePath extracts the filesystem path from a canonical file:// URL.
func (r *LocalDirRemote) filePath(canonURL string) (string, error) {
	u, err := url.Parse(canonURL)
	if err != nil {
		return "", fmt.Errorf("parsing %s: %w", canonURL, err)
	}
	if !filepath.IsAbs(u.Path) {
		return "", fmt.Errorf("not an absolute path: %s", canonURL)
	}
	return u.Path, nil
}

// GatherFileStats resolves content keys for local file URLs.
//
// Files that are already links into the annex yield their key straight
// from the link, even when the content is absent locally (fast path, no
// hashing). Untracked ordinary files get their size from stat and their
// key from the store's calckey primitive, batched alongside the other
// pending lookups. Keys discovered or computed for files outside the
// repository root are then registered as obtainable from this remote.
func (r *LocalDirRemote) GatherFileStats(ctx context.Context, tool *annex.Tool, stats map[string]*FileStat) error {
	repoRoot, err := tool.RepoRoot(ctx)
	if err != nil {
		return err
	}

	type resolved struct {
		url   string
		canon string
	}
	var outsideRepo []resolved
	var conflicts []error

	err = tool.WithBatch(ctx, func(bt *annex.Tool) error {
		for _, rawURL := range sortedURLs(stats) {
			fs := stats[rawURL]
			if fs.HasKey() || !r.HandlesURL(rawURL) {
				continue
			}

			canon, err := r.CanonicalizeURL(rawURL)
			if err != nil {
				return err
			}
			path, err := r.filePath(canon)
			if err != nil {
				return err
			}

			if annex.IsTracked(path) {
				key, err := annex.KeyOf(path)
				if err != nil {
					return err
				}
				if err := fs.SetKey(key); err != nil {
					return fmt.Errorf("%s: %w", rawURL, err)
				}
				if !isWithin(repoRoot, path) {
					outsideRepo = append(outsideRepo, resolved{rawURL, canon})
				}
				logger.Debug("key from annex link",
					logger.KeyURL, rawURL, logger.KeyContentKey, key)
				continue
			}

			info, err := os.Stat(path)
			if err != nil || !info.Mode().IsRegular() {
				continue // neither annexed nor an ordinary file
			}

			fs.Size = info.Size()
			if fs.Digest != "" {
				key, err := annex.ConstructKey(annex.BackendMD5E, uint64(fs.Size), fs.Digest, filepath.Base(path))
				if err != nil {
					return err
				}
				if err := fs.SetKey(key.String()); err != nil {
					return fmt.Errorf("%s: %w", rawURL, err)
				}
			} else {
				target := fs
				u := rawURL
				if err := bt.CalcKeyTo(ctx, path, func(key string) {
					if err := target.SetKey(key); err != nil {
						conflicts = append(conflicts, fmt.Errorf("%s: %w", u, err))
					}
				}); err != nil {
					return err
				}
			}
			if !isWithin(repoRoot, path) {
				outsideRepo = append(outsideRepo, resolved{rawURL, canon})
			}
		}
		return nil
	})
	if err != nil {
		return err
	}
	if len(conflicts) > 0 {
		return conflicts[0]
	}

	for _, res := range outsideRepo {
		key := stats[res.url].Key
		if key == "" {
			continue
		}
		if err := tool.RegisterKeyInRemoteAtURL(ctx, key, res.canon, r.uuid); err != nil {
			return err
		}
	}
	return nil
}

// isWithin reports whether path lies under root.
func isWithin(root, path string) bool {
	root = filepath.Clean(root)
	path = filepath.Clean(path)
	return path == root || strings.HasPrefix(path, root+string(filepath.Separator))
}
