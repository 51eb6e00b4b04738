package session

import (
	"context"
	"sort"
	"testing"
	"time"

	"github.com/Hemant-14942/CodeArena/internal/repository/memory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKeys(t *testing.T) {
	assert.Equal(t, "refresh:u1:s1", RefreshKey("u1", "s1"))
	assert.Equal(t, "user_sessions:u1", IndexKey("u1"))
}

func TestManager_SaveGetDelete(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	m := NewManager(store, ManagerConfig{})

	require.NoError(t, m.SaveSession(ctx, "u1", "s1", "h1", time.Hour))

	hash, found, err := m.GetSessionHash(ctx, "u1", "s1")
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, "h1", hash)

	members, err := store.SMembers(ctx, IndexKey("u1"))
	require.NoError(t, err)
	assert.Equal(t, []string{"s1"}, members)

	require.NoError(t, m.DeleteSession(ctx, "u1", "s1"))
	_, found, err = m.GetSessionHash(ctx, "u1", "s1")
	require.NoError(t, err)
	assert.False(t, found)

	members, err = store.SMembers(ctx, IndexKey("u1"))
	require.NoError(t, err)
	assert.Empty(t, members)

	assert.NoError(t, m.DeleteSession(ctx, "u1", "s1"), "deleting twice is fine")
}

func TestManager_SaveRejectsBadInput(t *testing.T) {
	m := NewManager(memory.New(), ManagerConfig{})
	ctx := context.Background()

	assert.ErrorIs(t, m.SaveSession(ctx, "", "s1", "h", time.Hour), ErrInvalidSessionKey)
	assert.ErrorIs(t, m.SaveSession(ctx, "u1", "a:b", "h", time.Hour), ErrInvalidSessionKey)
	assert.Error(t, m.SaveSession(ctx, "u1", "s1", "", time.Hour))
	assert.Error(t, m.SaveSession(ctx, "u1", "s1", "h", 0))
}

func TestManager_RecordExpires(t *testing.T) {
	ctx := context.Background()
	m := NewManager(memory.New(), ManagerConfig{})

	require.NoError(t, m.SaveSession(ctx, "u1", "s1", "h1", 20*time.Millisecond))
	time.Sleep(40 * time.Millisecond)

	_, found, err := m.GetSessionHash(ctx, "u1", "s1")
	require.NoError(t, err)
	assert.False(t, found)
}

func TestManager_DeleteAllIsScopedToUser(t *testing.T) {
	ctx := context.Background()
	m := NewManager(memory.New(), ManagerConfig{})

	require.NoError(t, m.SaveSession(ctx, "u1", "s1", "h", time.Hour))
	require.NoError(t, m.SaveSession(ctx, "u1", "s2", "h", time.Hour))
	require.NoError(t, m.SaveSession(ctx, "u2", "s3", "h", time.Hour))

	require.NoError(t, m.DeleteAllSessions(ctx, "u1"))

	for _, sid := range []string{"s1", "s2"} {
		_, found, err := m.GetSessionHash(ctx, "u1", sid)
		require.NoError(t, err)
		assert.False(t, found)
	}
	_, found, err := m.GetSessionHash(ctx, "u2", "s3")
	require.NoError(t, err)
	assert.True(t, found)

	require.NoError(t, m.DeleteAllSessions(ctx, "nobody"))
}

func TestManager_ListAndPruneOrphans(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	m := NewManager(store, ManagerConfig{})

	require.NoError(t, m.SaveSession(ctx, "u1", "live", "h", time.Hour))
	// An index entry whose record never landed.
	require.NoError(t, store.SAdd(ctx, IndexKey("u1"), "orphan"))
	require.NoError(t, store.SAdd(ctx, IndexKey("u2"), "orphan2"))

	ids, err := m.ListSessions(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, []string{"live"}, ids)

	n, err := m.PruneAll(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	members, err := store.SMembers(ctx, IndexKey("u1"))
	require.NoError(t, err)
	sort.Strings(members)
	assert.Equal(t, []string{"live"}, members)

	n, err = m.PruneOrphans(ctx, "u1")
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestManager_StoreFailuresAreNotAbsence(t *testing.T) {
	ctx := context.Background()
	store := newFlakyStore()
	m := NewManager(store, ManagerConfig{})

	require.NoError(t, m.SaveSession(ctx, "u1", "s1", "h", time.Hour))
	store.breakOp("get")

	_, found, err := m.GetSessionHash(ctx, "u1", "s1")
	assert.ErrorIs(t, err, ErrStoreUnavailable)
	assert.False(t, found)

	store.heal()
	store.breakOp("set")
	assert.ErrorIs(t, m.SaveSession(ctx, "u1", "s2", "h", time.Hour), ErrStoreUnavailable)

	store.heal()
	store.breakOp("smembers")
	assert.ErrorIs(t, m.DeleteAllSessions(ctx, "u1"), ErrStoreUnavailable)
	_, err = m.ListSessions(ctx, "u1")
	assert.ErrorIs(t, err, ErrStoreUnavailable)
}

func TestManager_IndexWriteFailureLeavesOnlyRecord(t *testing.T) {
	ctx := context.Background()
	store := newFlakyStore()
	m := NewManager(store, ManagerConfig{})

	store.breakOp("sadd")
	assert.ErrorIs(t, m.SaveSession(ctx, "u1", "s1", "h", time.Hour), ErrStoreUnavailable)
	store.heal()

	// The record exists but is unindexed; it still expires by TTL and a
	// lookup by id still finds it.
	_, found, err := m.GetSessionHash(ctx, "u1", "s1")
	require.NoError(t, err)
	assert.True(t, found)

	ids, err := m.ListSessions(ctx, "u1")
	require.NoError(t, err)
	assert.Empty(t, ids)
}

func TestManager_DeleteSessionToleratesIndexFailure(t *testing.T) {
	ctx := context.Background()
	store := newFlakyStore()
	m := NewManager(store, ManagerConfig{})

	require.NoError(t, m.SaveSession(ctx, "u1", "s1", "h", time.Hour))
	store.breakOp("srem")
	require.NoError(t, m.DeleteSession(ctx, "u1", "s1"))
	store.heal()

	_, found, err := m.GetSessionHash(ctx, "u1", "s1")
	require.NoError(t, err)
	assert.False(t, found)

	store.breakOp("del")
	require.NoError(t, m.SaveSession(ctx, "u1", "s2", "h", time.Hour))
	assert.ErrorIs(t, m.DeleteSession(ctx, "u1", "s2"), ErrStoreUnavailable)
}

func TestManager_PruneAllScanHasItsOwnDeadline(t *testing.T) {
	ctx := context.Background()
	store := newFlakyStore()
	require.NoError(t, store.SAdd(ctx, IndexKey("u1"), "orphan"))
	store.scanDelay = 100 * time.Millisecond

	m := NewManager(store, ManagerConfig{Timeout: 20 * time.Millisecond, ScanTimeout: 2 * time.Second})
	n, err := m.PruneAll(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	require.NoError(t, store.SAdd(ctx, IndexKey("u1"), "orphan"))
	m = NewManager(store, ManagerConfig{Timeout: 20 * time.Millisecond, ScanTimeout: 40 * time.Millisecond})
	_, err = m.PruneAll(ctx)
	assert.ErrorIs(t, err, ErrStoreUnavailable)
}
