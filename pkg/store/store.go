package store

import (
	"context"
	"encoding/json"
)

// Subscriber delivers whole snapshots. The first snapshot is the state at
// subscription time; every later one supersedes it. Snapshots of one
// document arrive in revision order.
type Subscriber interface {
	SubscribeDocument(ctx context.Context, collection, id string) (<-chan DocumentSnapshot, Unsubscribe, error)
	SubscribeCollection(ctx context.Context, collection string) (<-chan CollectionSnapshot, Unsubscribe, error)
}

type ContentStore interface {
	Subscriber
	GetDocument(ctx context.Context, collection, id string) (*Document, error)
	// SetDocument replaces the body, or with merge overlays the given
	// top-level fields on the stored body. The document is created if absent.
	SetDocument(ctx context.Context, collection, id string, data json.RawMessage, merge bool) error
	// MutateDocument runs a read-modify-write in one transaction. fn receives
	// nil when the document does not exist yet.
	MutateDocument(ctx context.Context, collection, id string, fn func(current json.RawMessage) (json.RawMessage, error)) error
}

type SessionStore interface {
	Subscriber
	GetDocument(ctx context.Context, collection, id string) (*Document, error)
	// ListDocuments returns the collection in creation order.
	ListDocuments(ctx context.Context, collection string) ([]Document, error)
	CreateDocument(ctx context.Context, collection string, data json.RawMessage) (string, error)
	// AppendToField appends value to the array field atomically. Concurrent
	// appends all survive.
	AppendToField(ctx context.Context, collection, id, field string, value any, preconds ...Precondition) error
	UpdateField(ctx context.Context, collection, id, field string, value any, preconds ...Precondition) error
}
