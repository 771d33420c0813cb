package docstore

import (
	"context"
	"sync"

	"helpdesk-be/pkg/changefeed"
	"helpdesk-be/pkg/store"
)

// subscribe starts the goroutine behind one subscription. The feed is
// subscribed before the first read, so no write can fall between the
// initial snapshot and the change stream.
func (s *Store) subscribe(ctx context.Context, collection string, run func(ctx context.Context, changes <-chan changefeed.Change)) (store.Unsubscribe, error) {
	subCtx, cancel := context.WithCancel(ctx)
	changes, err := s.feed.Subscribe(subCtx, collection)
	if err != nil {
		cancel()
		return nil, err
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		run(subCtx, changes)
	}()

	var once sync.Once
	return func() {
		once.Do(cancel)
		<-done
	}, nil
}

func (s *Store) SubscribeDocument(ctx context.Context, collection, id string) (<-chan store.DocumentSnapshot, store.Unsubscribe, error) {
	out := make(chan store.DocumentSnapshot, 1)

	unsubscribe, err := s.subscribe(ctx, collection, func(ctx context.Context, changes <-chan changefeed.Change) {
		defer close(out)

		var (
			delivered bool
			last      store.DocumentSnapshot
		)
		emit := func() bool {
			snap, err := s.readSnapshot(ctx, collection, id)
			if err != nil {
				if ctx.Err() == nil {
					s.logger.Warn("DocStore", "Snapshot read failed", map[string]interface{}{
						"collection": collection,
						"id":         id,
						"error":      err.Error(),
					})
				}
				return ctx.Err() == nil
			}
			// Reads are sequential here, so an equal or older revision is a
			// stale notification.
			if delivered && snap.Exists == last.Exists && snap.Document.Revision <= last.Document.Revision {
				return true
			}
			select {
			case out <- snap:
				delivered, last = true, snap
				return true
			case <-ctx.Done():
				return false
			}
		}

		if !emit() {
			return
		}
		for {
			select {
			case <-ctx.Done():
				return
			case change, ok := <-changes:
				if !ok {
					return
				}
				if change.ID != id {
					continue
				}
				if !emit() {
					return
				}
			}
		}
	})
	if err != nil {
		return nil, nil, err
	}
	return out, unsubscribe, nil
}

func (s *Store) readSnapshot(ctx context.Context, collection, id string) (store.DocumentSnapshot, error) {
	uow := s.uowFactory.NewUnitOfWork(ctx)
	found, err := uow.DocumentRepository().FindOne(ctx, collection, id)
	if err != nil {
		return store.DocumentSnapshot{}, err
	}
	snap := store.DocumentSnapshot{Collection: collection, ID: id}
	if found != nil {
		snap.Exists = true
		snap.Document = toDocument(found)
	}
	return snap, nil
}

type revisionKey struct {
	id       string
	revision int64
}

func fingerprint(docs []store.Document) []revisionKey {
	keys := make([]revisionKey, len(docs))
	for i, d := range docs {
		keys[i] = revisionKey{d.ID, d.Revision}
	}
	return keys
}

func sameFingerprint(a, b []revisionKey) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func (s *Store) SubscribeCollection(ctx context.Context, collection string) (<-chan store.CollectionSnapshot, store.Unsubscribe, error) {
	out := make(chan store.CollectionSnapshot, 1)

	unsubscribe, err := s.subscribe(ctx, collection, func(ctx context.Context, changes <-chan changefeed.Change) {
		defer close(out)

		var last []revisionKey
		emit := func() bool {
			docs, err := s.ListDocuments(ctx, collection)
			if err != nil {
				if ctx.Err() == nil {
					s.logger.Warn("DocStore", "Collection read failed", map[string]interface{}{
						"collection": collection,
						"error":      err.Error(),
					})
				}
				return ctx.Err() == nil
			}
			keys := fingerprint(docs)
			if last != nil && sameFingerprint(keys, last) {
				return true
			}
			select {
			case out <- store.CollectionSnapshot{Collection: collection, Documents: docs}:
				last = keys
				return true
			case <-ctx.Done():
				return false
			}
		}

		if !emit() {
			return
		}
		for {
			select {
			case <-ctx.Done():
				return
			case _, ok := <-changes:
				if !ok {
					return
				}
				// One re-list covers every change already queued.
			drain:
				for {
					select {
					case _, ok := <-changes:
						if !ok {
							return
						}
					default:
						break drain
					}
				}
				if !emit() {
					return
				}
			}
		}
	})
	if err != nil {
		return nil, nil, err
	}
	return out, unsubscribe, nil
}
