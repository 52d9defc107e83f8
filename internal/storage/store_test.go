package storage

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	store, err := NewSQLiteStore(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func TestVisionCache(t *testing.T) {
	store := newTestStore(t)

	entry, err := store.GetVisionCache("abc")
	require.NoError(t, err)
	assert.Nil(t, entry)

	require.NoError(t, store.SetVisionCache("abc", &VisionCacheEntry{Model: "gemini-2.5-flash", Response: `[{"Proje":"A"}]`}))
	entry, err = store.GetVisionCache("abc")
	require.NoError(t, err)
	require.NotNil(t, entry)
	assert.Equal(t, "gemini-2.5-flash", entry.Model)
	assert.Equal(t, `[{"Proje":"A"}]`, entry.Response)
	assert.False(t, entry.CreatedAt.IsZero())

	require.NoError(t, store.SetVisionCache("abc", &VisionCacheEntry{Model: "gemini-2.5-pro", Response: `[]`}))
	entry, err = store.GetVisionCache("abc")
	require.NoError(t, err)
	assert.Equal(t, "gemini-2.5-pro", entry.Model)
	assert.Equal(t, `[]`, entry.Response)
}

func TestPruneVisionCache(t *testing.T) {
	store := newTestStore(t)

	require.NoError(t, store.SetVisionCache("fresh", &VisionCacheEntry{Model: "m", Response: "[]"}))
	_, err := store.db.Exec(
		"INSERT INTO vision_cache (image_hash, model, response, created_at) VALUES (?, ?, ?, datetime('now', '-10 days'))",
		"old", "m", "[]",
	)
	require.NoError(t, err)

	n, err := store.PruneVisionCache(7 * 24 * time.Hour)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	entry, err := store.GetVisionCache("old")
	require.NoError(t, err)
	assert.Nil(t, entry)

	entry, err = store.GetVisionCache("fresh")
	require.NoError(t, err)
	assert.NotNil(t, entry)
}

func TestAllowedUsers(t *testing.T) {
	store := newTestStore(t)

	allowed, err := store.IsUserAllowed(42)
	require.NoError(t, err)
	assert.False(t, allowed)

	require.NoError(t, store.AddAllowedUser(42, 1))
	require.NoError(t, store.AddAllowedUser(43, 1))
	require.NoError(t, store.AddAllowedUser(42, 2))

	allowed, err = store.IsUserAllowed(42)
	require.NoError(t, err)
	assert.True(t, allowed)

	users, err := store.GetAllowedUsers()
	require.NoError(t, err)
	require.Len(t, users, 2)

	require.NoError(t, store.RemoveAllowedUser(42))
	allowed, err = store.IsUserAllowed(42)
	require.NoError(t, err)
	assert.False(t, allowed)

	users, err = store.GetAllowedUsers()
	require.NoError(t, err)
	require.Len(t, users, 1)
	assert.Equal(t, int64(43), users[0].TelegramID)
	assert.Equal(t, int64(1), users[0].AddedBy)
}
