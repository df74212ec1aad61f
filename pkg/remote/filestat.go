package remote

import "fmt"

// FileStat accumulates the attributes of one URL during an import.
// Remotes fill in size, digest, and finally the content key. Once the
// key is set the record is effectively read-only: later writers must
// agree with the stored value, never overwrite it.
type FileStat struct {
	// Size is the content size in bytes, -1 while unknown
	Size int64

	// Digest is the content digest as lower-case hex, empty while
	// unknown
	Digest string

	// Key is the resolved content key, empty while unresolved
	Key string
}

// NewFileStat returns an empty record.
func NewFileStat() *FileStat {
	return &FileStat{Size: -1}
}

// HasKey reports whether a content key has been resolved.
func (fs *FileStat) HasKey() bool {
	return fs.Key != ""
}

// HasSize reports whether the size is known.
func (fs *FileStat) HasSize() bool {
	return fs.Size >= 0
}

// SetKey records the resolved content key. Setting the same key again
// is a no-op; a different key is a consistency violation and fails.
func (fs *FileStat) SetKey(key string) error {
	if fs.Key != "" && fs.Key != key {
		return fmt.Errorf("conflicting content keys: %s vs %s", fs.Key, key)
	}
	fs.Key = key
	return nil
}
