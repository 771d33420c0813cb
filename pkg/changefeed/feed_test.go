package changefeed

import (
	"context"
	"testing"
	"time"

	"helpdesk-be/internal/pkg/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func TestFeed_PublishReachesCollectionSubscribers(t *testing.T) {
	f := NewLocalFeed(logger.NewNopLogger())
	defer f.Close()

	ctx, cancel := context.WithCancel(context.Background())
	chats, err := f.Subscribe(ctx, "chats")
	require.NoError(t, err)
	content, err := f.Subscribe(ctx, "knowledgeBase")
	require.NoError(t, err)

	require.NoError(t, f.Publish(ctx, Change{Collection: "chats", ID: "s1", Revision: 2}))

	select {
	case c := <-chats:
		assert.Equal(t, "s1", c.ID)
		assert.Equal(t, int64(2), c.Revision)
		assert.Equal(t, f.Origin(), c.Origin)
	case <-time.After(time.Second):
		t.Fatal("change not delivered")
	}

	select {
	case c := <-content:
		t.Fatalf("unexpected change on another collection: %+v", c)
	case <-time.After(50 * time.Millisecond):
	}

	cancel()
	for range chats {
	}
	for range content {
	}
}

func TestFeed_RunWithoutRedisStopsOnCancel(t *testing.T) {
	f := NewLocalFeed(logger.NewNopLogger())
	defer f.Close()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- f.Run(ctx) }()

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("Run did not return")
	}
}
