package buildcache

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

func openCache(t *testing.T) *Cache {
	t.Helper()
	c, err := Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })
	return c
}

func TestPageHashLifecycle(t *testing.T) {
	c := openCache(t)
	ctx := context.Background()

	ok, err := c.UpToDate(ctx, "posts/a.md", "hash1")
	require.NoError(t, err)
	require.False(t, ok, "unknown path must not be up to date")

	require.NoError(t, c.RecordPage(ctx, "posts/a.md", "hash1", "posts/a/index.html"))

	ok, err = c.UpToDate(ctx, "posts/a.md", "hash1")
	require.NoError(t, err)
	require.True(t, ok)

	ok, err = c.UpToDate(ctx, "posts/a.md", "hash2")
	require.NoError(t, err)
	require.False(t, ok, "changed content must invalidate")

	// Upsert replaces the stored hash.
	require.NoError(t, c.RecordPage(ctx, "posts/a.md", "hash2", "posts/a/index.html"))
	ok, err = c.UpToDate(ctx, "posts/a.md", "hash2")
	require.NoError(t, err)
	require.True(t, ok)
}

func TestForgetMissing(t *testing.T) {
	c := openCache(t)
	ctx := context.Background()

	require.NoError(t, c.RecordPage(ctx, "posts/keep.md", "h", "posts/keep/index.html"))
	require.NoError(t, c.RecordPage(ctx, "posts/gone.md", "h", "posts/gone/index.html"))

	require.NoError(t, c.ForgetMissing(ctx, map[string]bool{"posts/keep.md": true}))

	ok, err := c.UpToDate(ctx, "posts/keep.md", "h")
	require.NoError(t, err)
	require.True(t, ok)

	ok, err = c.UpToDate(ctx, "posts/gone.md", "h")
	require.NoError(t, err)
	require.False(t, ok)
}

func TestBuildHistory(t *testing.T) {
	c := openCache(t)
	ctx := context.Background()

	base := time.Date(2026, 4, 1, 12, 0, 0, 0, time.UTC)
	for i := 0; i < 3; i++ {
		rec := BuildRecord{
			ID:        uuid.NewString(),
			StartedAt: base.Add(time.Duration(i) * time.Minute),
			Duration:  (250 + time.Duration(i)) * time.Millisecond,
			Pages:     10 + i,
			Outcome:   "success",
		}
		require.NoError(t, c.RecordBuild(ctx, rec))
	}

	builds, err := c.RecentBuilds(ctx, 2)
	require.NoError(t, err)
	require.Len(t, builds, 2)
	require.True(t, builds[0].StartedAt.After(builds[1].StartedAt))
	require.Equal(t, 12, builds[0].Pages)
	require.Equal(t, "success", builds[0].Outcome)
}

func TestOpenOnDisk(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cache.db")

	c, err := Open(path)
	require.NoError(t, err)
	require.NoError(t, c.RecordPage(context.Background(), "a.md", "h", "a/index.html"))
	require.NoError(t, c.Close())

	// Reopen and confirm persistence.
	c, err = Open(path)
	require.NoError(t, err)
	defer c.Close()
	ok, err := c.UpToDate(context.Background(), "a.md", "h")
	require.NoError(t, err)
	require.True(t, ok)
}
