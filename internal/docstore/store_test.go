package docstore

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"helpdesk-be/internal/pkg/logger"
	"helpdesk-be/internal/repository/memory"
	"helpdesk-be/pkg/changefeed"
	"helpdesk-be/pkg/store"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func newStore(t *testing.T) *Store {
	t.Helper()
	log := logger.NewNopLogger()
	feed := changefeed.NewLocalFeed(log)
	t.Cleanup(func() { _ = feed.Close() })
	return NewStore(memory.NewRepositoryFactory(memory.NewDatabase()), feed, log)
}

func nextDoc(t *testing.T, ch <-chan store.DocumentSnapshot) store.DocumentSnapshot {
	t.Helper()
	select {
	case snap, ok := <-ch:
		require.True(t, ok, "subscription closed")
		return snap
	case <-time.After(2 * time.Second):
		t.Fatal("no snapshot delivered")
	}
	return store.DocumentSnapshot{}
}

func nextCollection(t *testing.T, ch <-chan store.CollectionSnapshot) store.CollectionSnapshot {
	t.Helper()
	select {
	case snap, ok := <-ch:
		require.True(t, ok, "subscription closed")
		return snap
	case <-time.After(2 * time.Second):
		t.Fatal("no snapshot delivered")
	}
	return store.CollectionSnapshot{}
}

func TestStore_DocumentSubscriptionDeliversWholeSnapshots(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()

	snaps, unsubscribe, err := s.SubscribeDocument(ctx, "widgetConfig", "main")
	require.NoError(t, err)
	defer unsubscribe()

	first := nextDoc(t, snaps)
	assert.False(t, first.Exists)

	require.NoError(t, s.SetDocument(ctx, "widgetConfig", "main", json.RawMessage(`{"organizationName":"Ward 4"}`), true))
	snap := nextDoc(t, snaps)
	assert.True(t, snap.Exists)
	assert.Equal(t, int64(1), snap.Document.Revision)

	require.NoError(t, s.SetDocument(ctx, "widgetConfig", "main", json.RawMessage(`{"welcomeMessage":"Namaste"}`), true))
	snap = nextDoc(t, snaps)
	assert.Equal(t, int64(2), snap.Document.Revision)
	assert.JSONEq(t, `{"organizationName":"Ward 4","welcomeMessage":"Namaste"}`, string(snap.Document.Data))
}

func TestStore_DocumentSubscriptionIsMonotonic(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()

	id, err := s.CreateDocument(ctx, "chats", json.RawMessage(`{"status":"active","messages":[]}`))
	require.NoError(t, err)

	snaps, unsubscribe, err := s.SubscribeDocument(ctx, "chats", id)
	require.NoError(t, err)
	defer unsubscribe()
	assert.Equal(t, int64(1), nextDoc(t, snaps).Document.Revision)

	const sends = 10
	for i := 0; i < sends; i++ {
		require.NoError(t, s.AppendToField(ctx, "chats", id, "messages", map[string]string{"text": "same"}))
	}

	var last int64 = 1
	for last < sends+1 {
		snap := nextDoc(t, snaps)
		assert.Greater(t, snap.Document.Revision, last)
		last = snap.Document.Revision
	}

	var body struct {
		Messages []map[string]string `json:"messages"`
	}
	doc, err := s.GetDocument(ctx, "chats", id)
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(doc.Data, &body))
	assert.Len(t, body.Messages, sends, "identical appends are all kept")
}

func TestStore_DocumentSubscriptionIgnoresOtherDocuments(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()

	a, err := s.CreateDocument(ctx, "chats", json.RawMessage(`{"status":"active"}`))
	require.NoError(t, err)
	b, err := s.CreateDocument(ctx, "chats", json.RawMessage(`{"status":"active"}`))
	require.NoError(t, err)

	snaps, unsubscribe, err := s.SubscribeDocument(ctx, "chats", a)
	require.NoError(t, err)
	defer unsubscribe()
	nextDoc(t, snaps)

	require.NoError(t, s.UpdateField(ctx, "chats", b, "status", "ended"))
	select {
	case snap := <-snaps:
		t.Fatalf("unexpected snapshot %+v", snap)
	case <-time.After(100 * time.Millisecond):
	}
}

func TestStore_UnsubscribeClosesAndIsIdempotent(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()

	snaps, unsubscribe, err := s.SubscribeDocument(ctx, "knowledgeBase", "main")
	require.NoError(t, err)

	// never read: unsubscribe must not block on a full channel
	require.NoError(t, s.SetDocument(ctx, "knowledgeBase", "main", json.RawMessage(`{"tree":[]}`), false))
	time.Sleep(20 * time.Millisecond)

	unsubscribe()
	unsubscribe()

	for range snaps {
	}
}

func TestStore_ParentContextReleasesSubscription(t *testing.T) {
	s := newStore(t)
	ctx, cancel := context.WithCancel(context.Background())

	snaps, unsubscribe, err := s.SubscribeCollection(ctx, "chats")
	require.NoError(t, err)
	nextCollection(t, snaps)

	cancel()
	unsubscribe()
	_, ok := <-snaps
	assert.False(t, ok)
}

func TestStore_CollectionSubscription(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()

	snaps, unsubscribe, err := s.SubscribeCollection(ctx, "chats")
	require.NoError(t, err)
	defer unsubscribe()
	assert.Empty(t, nextCollection(t, snaps).Documents)

	id, err := s.CreateDocument(ctx, "chats", json.RawMessage(`{"status":"active"}`))
	require.NoError(t, err)

	snap := nextCollection(t, snaps)
	require.Len(t, snap.Documents, 1)
	assert.Equal(t, id, snap.Documents[0].ID)

	require.NoError(t, s.UpdateField(ctx, "chats", id, "status", "ended"))
	snap = nextCollection(t, snaps)
	assert.JSONEq(t, `{"status":"ended"}`, string(snap.Documents[0].Data))
}

func TestStore_SessionWrites(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()

	_, err := s.GetDocument(ctx, "chats", "missing")
	assert.ErrorIs(t, err, store.ErrNotFound)

	_, err = s.CreateDocument(ctx, "chats", json.RawMessage(`[]`))
	assert.Error(t, err)

	id, err := s.CreateDocument(ctx, "chats", json.RawMessage(`{"status":"active"}`))
	require.NoError(t, err)

	active := store.FieldEquals("status", "active")
	require.NoError(t, s.UpdateField(ctx, "chats", id, "status", "ended", active))

	err = s.AppendToField(ctx, "chats", id, "messages", map[string]string{"text": "late"}, active)
	assert.ErrorIs(t, err, store.ErrPreconditionFailed)

	err = s.UpdateField(ctx, "chats", "missing", "status", "ended")
	assert.ErrorIs(t, err, store.ErrNotFound)

	require.NoError(t, s.CreateDocumentWithID(ctx, "operators", "a@x.com", json.RawMessage(`{"name":"A"}`)))
	assert.Error(t, s.CreateDocumentWithID(ctx, "operators", "a@x.com", json.RawMessage(`{"name":"B"}`)))
}

func TestStore_MutateDocument(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()

	err := s.MutateDocument(ctx, "knowledgeBase", "main", func(current json.RawMessage) (json.RawMessage, error) {
		assert.Nil(t, current)
		return json.RawMessage(`{"tree":[{"id":"cat1"}]}`), nil
	})
	require.NoError(t, err)

	boom := errors.New("boom")
	err = s.MutateDocument(ctx, "knowledgeBase", "main", func(current json.RawMessage) (json.RawMessage, error) {
		assert.JSONEq(t, `{"tree":[{"id":"cat1"}]}`, string(current))
		return nil, boom
	})
	assert.ErrorIs(t, err, boom)

	doc, err := s.GetDocument(ctx, "knowledgeBase", "main")
	require.NoError(t, err)
	assert.Equal(t, int64(1), doc.Revision)
}
