package remote

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/annexport/annexport/pkg/annex"
)

// fakeProvider serves metadata from a map and records the queried URLs.
type fakeProvider struct {
	objects map[string]ObjectMetadata
	queried [][]string
}

func (p *fakeProvider) GetMetadata(ctx context.Context, urls []string, ignoreErrors bool) (map[string]ObjectMetadata, error) {
	p.queried = append(p.queried, urls)
	result := make(map[string]ObjectMetadata)
	for _, u := range urls {
		if meta, ok := p.objects[u]; ok {
			result[u] = meta
		}
	}
	return result, nil
}

func TestCloudRemote_HandlesURL(t *testing.T) {
	r := NewCloudRemote("cloud", "uuid-2", "s3", &fakeProvider{})

	assert.True(t, r.HandlesURL("s3://bucket/path/to/object.fasta.gz"))
	assert.False(t, r.HandlesURL("file:///data/f.txt"))
	assert.False(t, r.HandlesURL("/data/f.txt"))
	assert.False(t, r.HandlesURL("s3://"), "bucketless URL is not an object")
}

func TestCloudRemote_GatherFileStats(t *testing.T) {
	ctx := context.Background()
	provider := &fakeProvider{objects: map[string]ObjectMetadata{
		"s3://bucket/reads.fasta.gz": {Size: 2048, Digest: "3F2504E04F8964E07FC91D719EB1BA3A"},
		"s3://bucket/notes.txt":      {Size: 10, Digest: "d41d8cd98f00b204e9800998ecf8427e"},
	}}
	runner := &scriptedRunner{}
	tool := annex.NewWithRunner(annex.Config{RepoDir: t.TempDir()}, runner)
	r := NewCloudRemote("cloud", "uuid-2", "s3", provider)

	stats := map[string]*FileStat{
		"s3://bucket/reads.fasta.gz": NewFileStat(),
		"s3://bucket/notes.txt":      NewFileStat(),
		"s3://bucket/gone.bin":       NewFileStat(),
		"/local/file.txt":            NewFileStat(),
	}

	err := tool.WithBatch(ctx, func(bt *annex.Tool) error {
		return r.GatherFileStats(ctx, bt, stats)
	})
	require.NoError(t, err)

	// One bulk query covering only this remote's unresolved URLs.
	require.Len(t, provider.queried, 1)
	assert.Equal(t, []string{
		"s3://bucket/gone.bin",
		"s3://bucket/notes.txt",
		"s3://bucket/reads.fasta.gz",
	}, provider.queried[0])

	reads := stats["s3://bucket/reads.fasta.gz"]
	assert.Equal(t, "MD5E-s2048--3f2504e04f8964e07fc91d719eb1ba3a.fasta.gz", reads.Key)
	assert.Equal(t, int64(2048), reads.Size)
	assert.Equal(t, "3f2504e04f8964e07fc91d719eb1ba3a", reads.Digest, "digest is lowered")

	assert.Equal(t, "MD5E-s10--d41d8cd98f00b204e9800998ecf8427e.txt", stats["s3://bucket/notes.txt"].Key)

	// Objects the provider could not describe stay unresolved.
	assert.False(t, stats["s3://bucket/gone.bin"].HasKey())
	// Foreign URLs are not touched.
	assert.False(t, stats["/local/file.txt"].HasKey())

	// Every resolved object gets registered against this remote.
	assert.Contains(t, runner.stdinOf("registerurl"), "s3://bucket/reads.fasta.gz")
	assert.Contains(t, runner.stdinOf("registerurl"), "s3://bucket/notes.txt")
	assert.NotContains(t, runner.stdinOf("registerurl"), "gone.bin")
	assert.Contains(t, runner.stdinOf("setpresentkey"), "uuid-2 1")
}

func TestCloudRemote_GatherFileStats_NothingPending(t *testing.T) {
	ctx := context.Background()
	provider := &fakeProvider{}
	runner := &scriptedRunner{}
	tool := annex.NewWithRunner(annex.Config{RepoDir: t.TempDir()}, runner)
	r := NewCloudRemote("cloud", "uuid-2", "s3", provider)

	resolved := NewFileStat()
	require.NoError(t, resolved.SetKey("MD5E-s1--d41d8cd98f00b204e9800998ecf8427e"))
	stats := map[string]*FileStat{"s3://bucket/done.bin": resolved}

	err := tool.WithBatch(ctx, func(bt *annex.Tool) error {
		return r.GatherFileStats(ctx, bt, stats)
	})
	require.NoError(t, err)
	assert.Empty(t, provider.queried, "no bulk query when every URL is resolved")
	assert.Empty(t, runner.runs)
}
