package storage

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/raine/estate-pricer/internal/item"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	store, err := NewSQLiteStore(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func TestVisionCache(t *testing.T) {
	store := newTestStore(t)

	entry, err := store.GetVisionCache("missing")
	require.NoError(t, err)
	assert.Nil(t, entry)

	require.NoError(t, store.SetVisionCache("abc", &VisionCacheEntry{
		Model:        "gemini-3-flash-preview",
		Text:         `[{"name":"Pyrex bowl"}]`,
		InputTokens:  1200,
		OutputTokens: 80,
	}))

	entry, err = store.GetVisionCache("abc")
	require.NoError(t, err)
	require.NotNil(t, entry)
	assert.Equal(t, `[{"name":"Pyrex bowl"}]`, entry.Text)
	assert.Equal(t, int64(1200), entry.InputTokens)

	require.NoError(t, store.SetVisionCache("abc", &VisionCacheEntry{Model: "m", Text: "[]"}))
	entry, err = store.GetVisionCache("abc")
	require.NoError(t, err)
	assert.Equal(t, "[]", entry.Text)
}

func TestCompsCache(t *testing.T) {
	store := newTestStore(t)

	comps := item.Comps{
		Count:        2,
		TotalResults: 40,
		Median:       25,
		Low:          20,
		High:         30,
		RecentSales:  []item.Sale{{Title: "Pyrex 401", Price: 20, Currency: "USD"}},
	}
	require.NoError(t, store.SetCompsCache("pyrex|0|0", comps))

	got, err := store.GetCompsCache("pyrex|0|0", time.Hour)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, comps, got.Comps)

	got, err = store.GetCompsCache("other", time.Hour)
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestCompsCache_ExpiredAndPruned(t *testing.T) {
	store := newTestStore(t)

	_, err := store.db.Exec(
		"INSERT INTO comps_cache (cache_key, comps_json, queried_at) VALUES (?, ?, ?)",
		"old", `{"count":1}`, time.Now().Add(-48*time.Hour).Unix(),
	)
	require.NoError(t, err)

	got, err := store.GetCompsCache("old", 24*time.Hour)
	require.NoError(t, err)
	assert.Nil(t, got)

	pruned, err := store.PruneCompsCache(24 * time.Hour)
	require.NoError(t, err)
	assert.Equal(t, int64(1), pruned)
}

func TestInMemoryStore(t *testing.T) {
	store, err := NewSQLiteStore(":memory:")
	require.NoError(t, err)
	defer store.Close()

	require.NoError(t, store.SetVisionCache("k", &VisionCacheEntry{Model: "m", Text: "[]"}))
	entry, err := store.GetVisionCache("k")
	require.NoError(t, err)
	require.NotNil(t, entry)
}
