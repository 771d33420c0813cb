package service

import (
	"context"
	"sync"
	"testing"

	"helpdesk-be/internal/config"
	"helpdesk-be/internal/docstore"
	"helpdesk-be/internal/pkg/logger"
	"helpdesk-be/internal/repository/memory"
	"helpdesk-be/pkg/changefeed"
	"helpdesk-be/pkg/events"
)

var testContent = config.ContentConfig{
	TreeCollection:     "knowledgeBase",
	TreeDocument:       "main",
	BrandingCollection: "widgetConfig",
	BrandingDocument:   "main",
	SessionCollection:  "chats",
	OperatorCollection: "operators",
	DefaultLanguage:    "np",
}

type recordingSink struct {
	mu     sync.Mutex
	events []events.Event
}

func (s *recordingSink) Publish(ctx context.Context, event events.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, event)
	return nil
}

func (s *recordingSink) ofType(eventType string) []events.Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []events.Event
	for _, e := range s.events {
		if e.EventType() == eventType {
			out = append(out, e)
		}
	}
	return out
}

func newTestStore(t *testing.T) *docstore.Store {
	t.Helper()
	log := logger.NewNopLogger()
	feed := changefeed.NewLocalFeed(log)
	t.Cleanup(func() { _ = feed.Close() })
	return docstore.NewStore(memory.NewRepositoryFactory(memory.NewDatabase()), feed, log)
}
