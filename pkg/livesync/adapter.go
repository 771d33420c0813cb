// Package livesync turns store subscriptions into "replace your local copy"
// events for a surface loop. Each subscription is served by one task
// goroutine; the adapter guarantees that every task it started has exited
// once the matching Unwatch, rebind or Close call returns.
package livesync

import (
	"context"
	"errors"
	"sync"

	"helpdesk-be/internal/pkg/logger"
	"helpdesk-be/pkg/apperr"
	"helpdesk-be/pkg/chat"
	"helpdesk-be/pkg/knowledge"
	"helpdesk-be/pkg/store"
)

var ErrClosed = errors.New("live sync adapter is closed")

type EventKind string

const (
	TreeReplaced     EventKind = "tree_replaced"
	BrandingReplaced EventKind = "branding_replaced"
	SessionReplaced  EventKind = "session_replaced"
	SessionsReplaced EventKind = "sessions_replaced"
)

// Event carries one whole snapshot, already decoded. Only the fields of its
// Kind are set.
type Event struct {
	Kind EventKind

	Tree    knowledge.Tree
	TreeErr error

	Branding knowledge.Branding

	// SessionID names the binding that produced a SessionReplaced event so
	// the consumer can drop events of a binding it already left.
	SessionID  string
	Session    *chat.Session
	SessionErr error

	Sessions []chat.Session
}

// Documents names where the adapter looks for its inputs.
type Documents struct {
	TreeCollection     string
	TreeDocument       string
	BrandingCollection string
	BrandingDocument   string
	SessionCollection  string
}

type subscription struct {
	cancel      context.CancelFunc
	unsubscribe store.Unsubscribe
	done        chan struct{}
}

func (s *subscription) release() {
	s.cancel()
	<-s.done
	s.unsubscribe()
}

type Adapter struct {
	content  store.Subscriber
	sessions store.Subscriber
	docs     Documents
	logger   logger.ILogger

	events chan Event

	mu          sync.Mutex
	closed      bool
	contentSubs []*subscription
	boundID     string
	sessionSub  *subscription
	listSub     *subscription
}

func New(content, sessions store.Subscriber, docs Documents, log logger.ILogger) *Adapter {
	return &Adapter{
		content:  content,
		sessions: sessions,
		docs:     docs,
		logger:   log,
		events:   make(chan Event, 16),
	}
}

// Events is closed by Close.
func (a *Adapter) Events() <-chan Event {
	return a.events
}

// startDocument runs decode for every snapshot of one document until the
// subscription is released.
func (a *Adapter) startDocument(ctx context.Context, src store.Subscriber, collection, id string, decode func(store.DocumentSnapshot) Event) (*subscription, error) {
	taskCtx, cancel := context.WithCancel(ctx)
	snaps, unsubscribe, err := src.SubscribeDocument(taskCtx, collection, id)
	if err != nil {
		cancel()
		return nil, err
	}

	sub := &subscription{cancel: cancel, unsubscribe: unsubscribe, done: make(chan struct{})}
	go func() {
		defer close(sub.done)
		for {
			select {
			case <-taskCtx.Done():
				return
			case snap, ok := <-snaps:
				if !ok {
					return
				}
				if !a.deliver(taskCtx, decode(snap)) {
					return
				}
			}
		}
	}()
	return sub, nil
}

func (a *Adapter) deliver(ctx context.Context, ev Event) bool {
	select {
	case a.events <- ev:
		return true
	case <-ctx.Done():
		return false
	}
}

// WatchContent subscribes to the tree and branding documents. Watching twice
// is a no-op.
func (a *Adapter) WatchContent(ctx context.Context) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.closed {
		return ErrClosed
	}
	if a.contentSubs != nil {
		return nil
	}

	tree, err := a.startDocument(ctx, a.content, a.docs.TreeCollection, a.docs.TreeDocument, a.decodeTree)
	if err != nil {
		return err
	}
	branding, err := a.startDocument(ctx, a.content, a.docs.BrandingCollection, a.docs.BrandingDocument, a.decodeBranding)
	if err != nil {
		tree.release()
		return err
	}
	a.contentSubs = []*subscription{tree, branding}
	return nil
}

func (a *Adapter) UnwatchContent() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.releaseContent()
}

func (a *Adapter) releaseContent() {
	for _, sub := range a.contentSubs {
		sub.release()
	}
	a.contentSubs = nil
}

// BindSession follows one chat session. Binding a different id releases the
// previous subscription before the new one starts; binding "" only
// releases.
func (a *Adapter) BindSession(ctx context.Context, id string) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.closed {
		return ErrClosed
	}
	if id == a.boundID && (id == "" || a.sessionSub != nil) {
		return nil
	}

	a.releaseSession()
	if id == "" {
		return nil
	}

	sub, err := a.startDocument(ctx, a.sessions, a.docs.SessionCollection, id, func(snap store.DocumentSnapshot) Event {
		return a.decodeSession(id, snap)
	})
	if err != nil {
		return err
	}
	a.boundID = id
	a.sessionSub = sub
	return nil
}

func (a *Adapter) BoundSession() string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.boundID
}

func (a *Adapter) releaseSession() {
	if a.sessionSub != nil {
		a.sessionSub.release()
		a.sessionSub = nil
	}
	a.boundID = ""
}

// WatchSessions subscribes to the whole session collection for the operator
// console.
func (a *Adapter) WatchSessions(ctx context.Context) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.closed {
		return ErrClosed
	}
	if a.listSub != nil {
		return nil
	}

	taskCtx, cancel := context.WithCancel(ctx)
	snaps, unsubscribe, err := a.sessions.SubscribeCollection(taskCtx, a.docs.SessionCollection)
	if err != nil {
		cancel()
		return err
	}

	sub := &subscription{cancel: cancel, unsubscribe: unsubscribe, done: make(chan struct{})}
	go func() {
		defer close(sub.done)
		for {
			select {
			case <-taskCtx.Done():
				return
			case snap, ok := <-snaps:
				if !ok {
					return
				}
				if !a.deliver(taskCtx, a.decodeSessions(snap)) {
					return
				}
			}
		}
	}()
	a.listSub = sub
	return nil
}

func (a *Adapter) UnwatchSessions() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.releaseSessions()
}

func (a *Adapter) releaseSessions() {
	if a.listSub != nil {
		a.listSub.release()
		a.listSub = nil
	}
}

// Close releases every subscription and closes the event channel.
func (a *Adapter) Close() {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.closed {
		return
	}
	a.releaseContent()
	a.releaseSession()
	a.releaseSessions()
	a.closed = true
	close(a.events)
}

func (a *Adapter) decodeTree(snap store.DocumentSnapshot) Event {
	ev := Event{Kind: TreeReplaced}
	if !snap.Exists {
		ev.TreeErr = apperr.NotFound(snap.Collection, snap.ID)
		return ev
	}
	tree, issues, err := knowledge.DecodeTree(snap.Document.Data)
	for _, issue := range issues {
		a.logger.Warn("LiveSync", "Malformed knowledge node", map[string]interface{}{"issue": issue.Error()})
	}
	ev.Tree, ev.TreeErr = tree, err
	return ev
}

func (a *Adapter) decodeBranding(snap store.DocumentSnapshot) Event {
	ev := Event{Kind: BrandingReplaced, Branding: knowledge.DefaultBranding()}
	if !snap.Exists {
		return ev
	}
	branding, err := knowledge.DecodeBranding(snap.Document.Data)
	if err != nil {
		a.logger.Warn("LiveSync", "Unreadable branding document, using defaults", map[string]interface{}{"error": err.Error()})
	}
	ev.Branding = branding
	return ev
}

func (a *Adapter) decodeSession(id string, snap store.DocumentSnapshot) Event {
	ev := Event{Kind: SessionReplaced, SessionID: id}
	if !snap.Exists {
		ev.SessionErr = apperr.NotFound(snap.Collection, id)
		return ev
	}
	s, err := chat.Decode(id, snap.Document.Data, snap.Document.CreatedAt, snap.Document.Revision)
	if err != nil {
		ev.SessionErr = err
		return ev
	}
	ev.Session = &s
	return ev
}

func (a *Adapter) decodeSessions(snap store.CollectionSnapshot) Event {
	sessions := make([]chat.Session, 0, len(snap.Documents))
	for _, doc := range snap.Documents {
		s, err := chat.Decode(doc.ID, doc.Data, doc.CreatedAt, doc.Revision)
		if err != nil {
			a.logger.Warn("LiveSync", "Skipping unreadable session", map[string]interface{}{"id": doc.ID, "error": err.Error()})
			continue
		}
		sessions = append(sessions, s)
	}
	return Event{Kind: SessionsReplaced, Sessions: sessions}
}
