package annex

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/annexport/annexport/internal/logger"
)

// objectsMarker identifies symlink targets that point into the annex
// object store.
const objectsMarker = ".git/annex/objects/"

// ResolveIntoStore follows the symlink chain starting at path until it
// finds the link that points directly into the annex object store.
//
// It returns the path of that link and its raw target. If path is not a
// symlink, or the chain ends without reaching the store, the original
// path and an empty target are returned. A cyclic chain is reported at
// warning level and treated the same way; it never loops.
func ResolveIntoStore(path string) (terminal string, target string) {
	terminal = path
	cur := path
	seen := make(map[string]struct{})

	for isSymlink(cur) {
		abs, err := filepath.Abs(cur)
		if err != nil {
			return terminal, ""
		}
		if _, ok := seen[abs]; ok {
			logger.Warn("circular symlink chain", logger.KeyPath, abs)
			return terminal, ""
		}
		seen[abs] = struct{}{}

		linkTarget, err := os.Readlink(cur)
		if err != nil {
			return terminal, ""
		}
		if strings.Contains(linkTarget, objectsMarker) {
			return cur, linkTarget
		}
		if filepath.IsAbs(linkTarget) {
			cur = linkTarget
		} else {
			cur = filepath.Join(filepath.Dir(cur), linkTarget)
		}
	}

	return terminal, ""
}

// IsTracked reports whether path is a file controlled by the annex.
// The content is not required to be present locally, only the link.
func IsTracked(path string) bool {
	info, err := os.Lstat(path)
	if err != nil || info.IsDir() {
		return false
	}
	_, target := ResolveIntoStore(path)
	return target != ""
}

// IsPresent reports whether path (possibly at the end of a chain of
// symlinks) is an annexed file whose content exists locally.
func IsPresent(path string) bool {
	if !IsTracked(path) {
		return false
	}
	info, err := os.Stat(path)
	return err == nil && info.Mode().IsRegular()
}

// KeyOf returns the content key of an annexed file, read from the
// working-copy symlink rather than the index. Fails with a NotTracked
// error when path does not resolve into the store.
func KeyOf(path string) (string, error) {
	_, target := ResolveIntoStore(path)
	if target == "" {
		abs, err := filepath.Abs(path)
		if err != nil {
			abs = path
		}
		return "", NewNotTrackedError(abs)
	}
	return filepath.Base(target), nil
}

func isSymlink(path string) bool {
	info, err := os.Lstat(path)
	return err == nil && info.Mode()&os.ModeSymlink != 0
}
