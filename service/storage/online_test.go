package storage

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

func newStore(t *testing.T, node string) (*OnlineStore, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return NewOnlineStore(rdb, OnlineConfig{NodeID: node, TTL: time.Minute}), mr
}

func TestOnlineStore_AddRemove(t *testing.T) {
	ctx := context.Background()
	s, _ := newStore(t, "n1")

	require.NoError(t, s.Add(ctx, "alice", "c1"))
	require.NoError(t, s.Add(ctx, "alice", "c2"))
	require.NoError(t, s.Add(ctx, "bob", "c3"))
	online, err := s.Online(ctx)
	require.NoError(t, err)
	require.Equal(t, []string{"alice", "bob"}, online)

	require.NoError(t, s.Remove(ctx, "alice", "c1"))
	online, _ = s.Online(ctx)
	require.Equal(t, []string{"alice", "bob"}, online, "alice still has c2")

	require.NoError(t, s.Remove(ctx, "alice", "c2"))
	require.NoError(t, s.Remove(ctx, "alice", "c2"), "idempotent")
	online, _ = s.Online(ctx)
	require.Equal(t, []string{"bob"}, online)
}

func TestOnlineStore_SharedAcrossNodes(t *testing.T) {
	ctx := context.Background()
	a, mr := newStore(t, "n1")
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer rdb.Close()
	b := NewOnlineStore(rdb, OnlineConfig{NodeID: "n2", TTL: time.Minute})

	require.NoError(t, a.Add(ctx, "alice", "c1"))
	require.NoError(t, b.Add(ctx, "alice", "c1")) // same conn id on another node is distinct
	require.NoError(t, a.Remove(ctx, "alice", "c1"))

	online, err := b.Online(ctx)
	require.NoError(t, err)
	require.Equal(t, []string{"alice"}, online)
}

func TestOnlineStore_ExpiredConnectionsSwept(t *testing.T) {
	ctx := context.Background()
	s, _ := newStore(t, "n1")
	require.NoError(t, s.Add(ctx, "ghost", "c1"))

	s.now = func() time.Time { return time.Now().Add(2 * time.Minute) }
	online, err := s.Online(ctx)
	require.NoError(t, err)
	require.Empty(t, online)
}
