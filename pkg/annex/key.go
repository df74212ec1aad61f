package annex

import (
	"fmt"
	"path"
	"strconv"
	"strings"
)

// BackendMD5E is the hash-based key backend this wrapper can construct
// keys for: MD5 digest plus the file's extension chain.
const BackendMD5E = "MD5E"

// DefaultMaxExtensionLength is the longest extension (excluding the dot)
// that is still folded into a key's name suffix. Matches the git-annex
// annex.maxextensionlength default.
const DefaultMaxExtensionLength = 5

// Key holds the attributes of a git-annex content key.
//
// The canonical string form is {backend}-s{size}--{digest}{suffix},
// e.g. MD5E-s1048576--3f2504e04f8964e07fc91d719eb1ba3a.fasta.gz.
type Key struct {
	// Backend is the key backend tag (currently only MD5E is constructed)
	Backend string

	// Size is the content size in bytes
	Size uint64

	// Digest is the content digest as lower-case hex
	Digest string

	// Suffix is the original file's extension chain, including dots
	Suffix string
}

// String renders the canonical key string.
func (k Key) String() string {
	return fmt.Sprintf("%s-s%d--%s%s", k.Backend, k.Size, k.Digest, k.Suffix)
}

// ConstructKey builds a content key from raw attributes. Only the MD5E
// backend is supported; anything else fails with an UnsupportedBackend
// error. The digest is lower-cased, and the suffix is derived from
// fileName by folding in trailing extensions no longer than
// DefaultMaxExtensionLength each.
func ConstructKey(backend string, size uint64, digest, fileName string) (Key, error) {
	if backend != BackendMD5E {
		return Key{}, NewUnsupportedBackendError(backend)
	}
	return Key{
		Backend: backend,
		Size:    size,
		Digest:  strings.ToLower(digest),
		Suffix:  keySuffix(fileName, DefaultMaxExtensionLength),
	}, nil
}

// ParseKey is the inverse of ConstructKey: it splits a key string back
// into its attributes without shelling out to `git annex examinekey`.
//
// The last "--" separates the name component from the {backend}-s{size}
// prefix. For MD5-family backends the first 32 characters of the name
// component are the digest and the rest is the suffix.
func ParseKey(s string) (Key, error) {
	sep := strings.LastIndex(s, "--")
	if sep < 0 {
		return Key{}, NewMalformedKeyError(s)
	}
	prefix, name := s[:sep], s[sep+2:]

	parts := strings.Split(prefix, "-")
	if parts[0] == "" {
		return Key{}, NewMalformedKeyError(s)
	}

	key := Key{Backend: parts[0]}
	for _, part := range parts[1:] {
		if strings.HasPrefix(part, "s") {
			size, err := strconv.ParseUint(part[1:], 10, 64)
			if err != nil {
				return Key{}, NewMalformedKeyError(s)
			}
			key.Size = size
			break
		}
	}

	if strings.HasPrefix(key.Backend, "MD5") {
		if len(name) < 32 {
			return Key{}, NewMalformedKeyError(s)
		}
		key.Digest = name[:32]
		key.Suffix = name[32:]
	} else {
		key.Suffix = name
	}

	return key, nil
}

// keySuffix determines the trailing extension chain of fileName that the
// key includes after the digest. Extensions are folded in right to left
// while each one (excluding its dot) is no longer than maxExtLen; the
// first longer extension stops the walk.
func keySuffix(fileName string, maxExtLen int) string {
	name := path.Base(fileName)
	suffix := ""
	for {
		ext := path.Ext(name)
		if ext == "" || ext == name || len(ext) > maxExtLen+1 {
			break
		}
		suffix = ext + suffix
		name = strings.TrimSuffix(name, ext)
	}
	return suffix
}
