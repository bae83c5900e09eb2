package message

import (
	"context"
	"testing"
	"time"

	chatmodel "github.com/Anuragsahu418/EDUCHAT/module/chat/model"
	"github.com/Anuragsahu418/EDUCHAT/tools/errs"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
)

var t0 = time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)

func direct(id, from, to string, at time.Duration) *chatmodel.Message {
	return &chatmodel.Message{ID: id, SenderID: from, ReceiverID: to, Text: id, CreatedAt: t0.Add(at), Status: chatmodel.StatusSent}
}

func seeded(t *testing.T, msgs ...*chatmodel.Message) *MemStore {
	t.Helper()
	s := NewMemStore()
	for _, m := range msgs {
		require.NoError(t, s.Save(context.Background(), m))
	}
	return s
}

func TestMemStore_FindByConversation_OrderAndHidden(t *testing.T) {
	ctx := context.Background()
	s := seeded(t,
		direct("m2", "b", "a", 2*time.Second),
		direct("m1", "a", "b", time.Second),
		direct("m3", "a", "c", 3*time.Second),
		&chatmodel.Message{ID: "g1", SenderID: "a", GroupID: "g", CreatedAt: t0},
	)

	got, err := s.FindByConversation(ctx, chatmodel.Direct("b", "a"), "a")
	require.NoError(t, err)
	require.Equal(t, []string{"m1", "m2"}, ids(got))

	require.NoError(t, s.AddDeletedFor(ctx, "m1", []string{"a"}))
	got, _ = s.FindByConversation(ctx, chatmodel.Direct("a", "b"), "a")
	require.Equal(t, []string{"m2"}, ids(got))
	got, _ = s.FindByConversation(ctx, chatmodel.Direct("a", "b"), "b")
	require.Equal(t, []string{"m1", "m2"}, ids(got))

	got, _ = s.FindByConversation(ctx, chatmodel.GroupKey("g"), "x")
	require.Equal(t, []string{"g1"}, ids(got))
}

func TestMemStore_AddDeletedFor_SetUnion(t *testing.T) {
	ctx := context.Background()
	s := seeded(t, direct("m1", "a", "b", 0))
	require.NoError(t, s.AddDeletedFor(ctx, "m1", []string{"a"}))
	require.NoError(t, s.AddDeletedFor(ctx, "m1", []string{"a", "b"}))

	got, err := s.FindByIDs(ctx, []string{"m1"})
	require.NoError(t, err)
	require.ElementsMatch(t, []string{"a", "b"}, got[0].DeletedFor)

	err = s.AddDeletedFor(ctx, "nope", []string{"a"})
	require.ErrorIs(t, err, errs.ErrNotFound)
}

func TestMemStore_MarkRead_Monotonic(t *testing.T) {
	ctx := context.Background()
	s := seeded(t, direct("m1", "a", "b", 0))

	m, ok, err := s.MarkRead(ctx, "m1")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, chatmodel.StatusRead, m.Status)

	_, ok, err = s.MarkRead(ctx, "m1")
	require.NoError(t, err)
	require.False(t, ok)

	_, ok, err = s.MarkRead(ctx, "missing")
	require.NoError(t, err)
	require.False(t, ok)
}

func TestMemStore_DeleteDirect_Idempotent(t *testing.T) {
	ctx := context.Background()
	s := seeded(t,
		direct("m1", "a", "b", 0),
		direct("m2", "b", "a", time.Second),
		direct("m3", "a", "c", 0),
	)
	n, err := s.DeleteDirect(ctx, "b", "a")
	require.NoError(t, err)
	require.EqualValues(t, 2, n)

	n, err = s.DeleteDirect(ctx, "a", "b")
	require.NoError(t, err)
	require.Zero(t, n)

	left, _ := s.FindByIDs(ctx, []string{"m1", "m2", "m3"})
	require.Equal(t, []string{"m3"}, ids(left))
}

func TestMemStore_ReturnsCopies(t *testing.T) {
	ctx := context.Background()
	s := seeded(t, direct("m1", "a", "b", 0))
	got, _ := s.FindByIDs(ctx, []string{"m1"})
	got[0].DeletedFor = append(got[0].DeletedFor, "zzz")

	again, _ := s.FindByIDs(ctx, []string{"m1"})
	require.Empty(t, again[0].DeletedFor)
}

func TestMemStore_DuplicateID(t *testing.T) {
	s := seeded(t, direct("m1", "a", "b", 0))
	err := s.Save(context.Background(), direct("m1", "a", "b", 0))
	require.ErrorIs(t, err, errs.ErrDuplicate)
}

func TestMongoFilters(t *testing.T) {
	require.Equal(t, bson.M{"_id": "x", "status": bson.M{"$ne": chatmodel.StatusRead}}, unreadFilter("x"))
	require.Equal(t, bson.M{"convKey": "dm:a:b", "deletedFor": bson.M{"$ne": "a"}},
		conversationFilter(chatmodel.Direct("b", "a"), "a"))
	require.Equal(t, bson.M{"$addToSet": bson.M{"deletedFor": bson.M{"$each": []string{"u"}}}},
		addDeletedForUpdate([]string{"u"}))
	or := directPairFilter("a", "b")["$or"].(bson.A)
	require.Len(t, or, 2)
}

func ids(ms []*chatmodel.Message) []string {
	out := make([]string, 0, len(ms))
	for _, m := range ms {
		out = append(out, m.ID)
	}
	return out
}
