package annex

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testKey = "MD5E-s5--d41d8cd98f00b204e9800998ecf8427e.txt"

// makeAnnexedFile creates a symlink at linkPath whose target points into
// a .git/annex/objects tree under repoDir. When present is true the
// object file exists with some content.
func makeAnnexedFile(t *testing.T, repoDir, linkPath, key string, present bool) {
	t.Helper()

	objDir := filepath.Join(repoDir, ".git", "annex", "objects", "Xx", "Yy", key)
	require.NoError(t, os.MkdirAll(objDir, 0o755))

	objPath := filepath.Join(objDir, key)
	if present {
		require.NoError(t, os.WriteFile(objPath, []byte("hello"), 0o444))
	}

	rel, err := filepath.Rel(filepath.Dir(linkPath), objPath)
	require.NoError(t, err)
	require.NoError(t, os.Symlink(rel, linkPath))
}

func TestResolveIntoStore_DirectLink(t *testing.T) {
	repo := t.TempDir()
	link := filepath.Join(repo, "data.txt")
	makeAnnexedFile(t, repo, link, testKey, true)

	terminal, target := ResolveIntoStore(link)
	assert.Equal(t, link, terminal)
	assert.Contains(t, target, ".git/annex/objects/")
	assert.Equal(t, testKey, filepath.Base(target))
}

func TestResolveIntoStore_Chain(t *testing.T) {
	repo := t.TempDir()
	inner := filepath.Join(repo, "inner.txt")
	makeAnnexedFile(t, repo, inner, testKey, false)

	// alias -> alias2 -> inner -> store
	alias2 := filepath.Join(repo, "alias2.txt")
	require.NoError(t, os.Symlink("inner.txt", alias2))
	alias := filepath.Join(repo, "alias.txt")
	require.NoError(t, os.Symlink("alias2.txt", alias))

	terminal, target := ResolveIntoStore(alias)
	assert.Equal(t, inner, terminal)
	assert.Equal(t, testKey, filepath.Base(target))
}

func TestResolveIntoStore_NotASymlink(t *testing.T) {
	dir := t.TempDir()
	plain := filepath.Join(dir, "plain.txt")
	require.NoError(t, os.WriteFile(plain, []byte("x"), 0o644))

	terminal, target := ResolveIntoStore(plain)
	assert.Equal(t, plain, terminal)
	assert.Empty(t, target)
}

func TestResolveIntoStore_BrokenChain(t *testing.T) {
	dir := t.TempDir()
	dangling := filepath.Join(dir, "dangling")
	require.NoError(t, os.Symlink("nowhere", dangling))

	_, target := ResolveIntoStore(dangling)
	assert.Empty(t, target)
}

func TestResolveIntoStore_Cycle(t *testing.T) {
	dir := t.TempDir()
	a := filepath.Join(dir, "a")
	b := filepath.Join(dir, "b")
	require.NoError(t, os.Symlink("b", a))
	require.NoError(t, os.Symlink("a", b))

	// must terminate and report no target
	_, target := ResolveIntoStore(a)
	assert.Empty(t, target)
}

func TestIsTracked(t *testing.T) {
	repo := t.TempDir()

	tracked := filepath.Join(repo, "tracked.txt")
	makeAnnexedFile(t, repo, tracked, testKey, false)
	assert.True(t, IsTracked(tracked))

	plain := filepath.Join(repo, "plain.txt")
	require.NoError(t, os.WriteFile(plain, []byte("x"), 0o644))
	assert.False(t, IsTracked(plain))

	assert.False(t, IsTracked(repo), "directories are never tracked")
	assert.False(t, IsTracked(filepath.Join(repo, "missing.txt")))
}

func TestIsPresent(t *testing.T) {
	repo := t.TempDir()

	present := filepath.Join(repo, "present.txt")
	makeAnnexedFile(t, repo, present, testKey, true)
	assert.True(t, IsPresent(present))

	absent := filepath.Join(repo, "absent.txt")
	makeAnnexedFile(t, repo, absent, "MD5E-s9--0123456789abcdef0123456789abcdef.txt", false)
	assert.False(t, IsPresent(absent))
}

func TestKeyOf(t *testing.T) {
	repo := t.TempDir()

	tracked := filepath.Join(repo, "tracked.txt")
	makeAnnexedFile(t, repo, tracked, testKey, false)

	key, err := KeyOf(tracked)
	require.NoError(t, err)
	assert.Equal(t, testKey, key)

	plain := filepath.Join(repo, "plain.txt")
	require.NoError(t, os.WriteFile(plain, []byte("x"), 0o644))
	_, err = KeyOf(plain)
	require.Error(t, err)
	assert.True(t, IsCode(err, ErrNotTracked))
}
