package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecordBeforeInitIsNoop(t *testing.T) {
	if IsEnabled() {
		t.Skip("registry already initialized by another test")
	}

	// Must not panic while the registry is absent.
	assert.False(t, IsEnabled())
	assert.Nil(t, Registry())
	RecordBatchGroup("git-annex", 10)
	RecordProcessFailure("git-annex")
	RecordImport(1.5, 3)
}

func TestInitAndRecord(t *testing.T) {
	Init()
	require.True(t, IsEnabled())
	require.NotNil(t, Registry())

	// Init is idempotent.
	reg := Registry()
	Init()
	assert.Same(t, reg, Registry())

	RecordBatchGroup("git-annex", 3)
	RecordBatchGroup("git-annex", 2)
	RecordProcessFailure("git")
	RecordImport(0.2, 5)

	assert.Equal(t, 2.0, testutil.ToFloat64(batchGroups.WithLabelValues("git-annex")))
	assert.Equal(t, 5.0, testutil.ToFloat64(batchedCalls.WithLabelValues("git-annex")))
	assert.Equal(t, 1.0, testutil.ToFloat64(processFailures.WithLabelValues("git")))
	assert.Equal(t, 5.0, testutil.ToFloat64(importedURLs))
}
