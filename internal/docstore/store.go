// Package docstore implements the content and session store contracts on
// top of the document repository and the change feed. Writes go through a
// unit of work and then announce themselves on the feed; subscriptions
// re-read the document for every announcement and deliver whole snapshots.
package docstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"helpdesk-be/internal/entity"
	"helpdesk-be/internal/pkg/logger"
	"helpdesk-be/internal/repository/unitofwork"
	"helpdesk-be/pkg/changefeed"
	"helpdesk-be/pkg/store"

	"github.com/google/uuid"
)

var (
	_ store.ContentStore = (*Store)(nil)
	_ store.SessionStore = (*Store)(nil)
)

var errNotObject = errors.New("document body must be a JSON object")

type Store struct {
	uowFactory unitofwork.RepositoryFactory
	feed       *changefeed.Feed
	logger     logger.ILogger
}

func NewStore(uowFactory unitofwork.RepositoryFactory, feed *changefeed.Feed, log logger.ILogger) *Store {
	return &Store{
		uowFactory: uowFactory,
		feed:       feed,
		logger:     log,
	}
}

func toDocument(e *entity.Document) store.Document {
	doc := store.Document{
		Collection: e.Collection,
		ID:         e.Id,
		Data:       e.Data,
		Revision:   e.Revision,
		CreatedAt:  e.CreatedAt,
	}
	if e.UpdatedAt != nil {
		doc.UpdatedAt = *e.UpdatedAt
	}
	return doc
}

func isObject(data json.RawMessage) bool {
	var fields map[string]json.RawMessage
	return json.Unmarshal(data, &fields) == nil && fields != nil
}

// announce publishes a committed write. The write already happened, so a
// feed failure is logged rather than returned.
func (s *Store) announce(ctx context.Context, collection, id string, revision int64) {
	err := s.feed.Publish(ctx, changefeed.Change{Collection: collection, ID: id, Revision: revision})
	if err != nil {
		s.logger.Error("DocStore", "Failed to publish change", map[string]interface{}{
			"collection": collection,
			"id":         id,
			"error":      err,
		})
	}
}

func (s *Store) GetDocument(ctx context.Context, collection, id string) (*store.Document, error) {
	uow := s.uowFactory.NewUnitOfWork(ctx)
	found, err := uow.DocumentRepository().FindOne(ctx, collection, id)
	if err != nil {
		return nil, fmt.Errorf("get %s/%s: %w", collection, id, err)
	}
	if found == nil {
		return nil, store.ErrNotFound
	}
	doc := toDocument(found)
	return &doc, nil
}

// ListDocuments returns the collection in creation order.
func (s *Store) ListDocuments(ctx context.Context, collection string) ([]store.Document, error) {
	uow := s.uowFactory.NewUnitOfWork(ctx)
	found, err := uow.DocumentRepository().FindAll(ctx, collection)
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", collection, err)
	}
	docs := make([]store.Document, 0, len(found))
	for _, e := range found {
		docs = append(docs, toDocument(e))
	}
	return docs, nil
}

func (s *Store) SetDocument(ctx context.Context, collection, id string, data json.RawMessage, merge bool) error {
	if !isObject(data) {
		return errNotObject
	}
	uow := s.uowFactory.NewUnitOfWork(ctx)
	doc := &entity.Document{Collection: collection, Id: id, Data: data}
	if err := uow.DocumentRepository().Set(ctx, doc, merge); err != nil {
		return fmt.Errorf("set %s/%s: %w", collection, id, err)
	}
	s.announce(ctx, collection, id, doc.Revision)
	return nil
}

func (s *Store) MutateDocument(ctx context.Context, collection, id string, fn func(current json.RawMessage) (json.RawMessage, error)) (err error) {
	uow := s.uowFactory.NewUnitOfWork(ctx)
	if err := uow.Begin(ctx); err != nil {
		return fmt.Errorf("begin mutate %s/%s: %w", collection, id, err)
	}
	defer func() {
		if err != nil {
			_ = uow.Rollback()
		}
	}()

	repo := uow.DocumentRepository()
	current, err := repo.FindOneForUpdate(ctx, collection, id)
	if err != nil {
		return fmt.Errorf("lock %s/%s: %w", collection, id, err)
	}
	var body json.RawMessage
	if current != nil {
		body = current.Data
	}

	next, err := fn(body)
	if err != nil {
		return err
	}
	if !isObject(next) {
		return errNotObject
	}

	doc := &entity.Document{Collection: collection, Id: id, Data: next}
	if err := repo.Set(ctx, doc, false); err != nil {
		return fmt.Errorf("mutate %s/%s: %w", collection, id, err)
	}
	if err := uow.Commit(); err != nil {
		return fmt.Errorf("commit %s/%s: %w", collection, id, err)
	}
	s.announce(ctx, collection, id, doc.Revision)
	return nil
}

func (s *Store) CreateDocument(ctx context.Context, collection string, data json.RawMessage) (string, error) {
	return s.createWithID(ctx, collection, uuid.NewString(), data)
}

// CreateDocumentWithID creates a document under a caller chosen id. It fails
// when the id is taken.
func (s *Store) CreateDocumentWithID(ctx context.Context, collection, id string, data json.RawMessage) error {
	_, err := s.createWithID(ctx, collection, id, data)
	return err
}

func (s *Store) createWithID(ctx context.Context, collection, id string, data json.RawMessage) (string, error) {
	if !isObject(data) {
		return "", errNotObject
	}
	uow := s.uowFactory.NewUnitOfWork(ctx)
	doc := &entity.Document{Collection: collection, Id: id, Data: data}
	if err := uow.DocumentRepository().Create(ctx, doc); err != nil {
		return "", fmt.Errorf("create in %s: %w", collection, err)
	}
	s.announce(ctx, collection, doc.Id, doc.Revision)
	return doc.Id, nil
}

func (s *Store) AppendToField(ctx context.Context, collection, id, field string, value any, preconds ...store.Precondition) error {
	encoded, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("encode %s value: %w", field, err)
	}
	uow := s.uowFactory.NewUnitOfWork(ctx)
	revision, err := uow.DocumentRepository().AppendToField(ctx, collection, id, field, encoded, preconds...)
	if err != nil {
		return fmt.Errorf("append to %s/%s.%s: %w", collection, id, field, err)
	}
	s.announce(ctx, collection, id, revision)
	return nil
}

func (s *Store) UpdateField(ctx context.Context, collection, id, field string, value any, preconds ...store.Precondition) error {
	encoded, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("encode %s value: %w", field, err)
	}
	uow := s.uowFactory.NewUnitOfWork(ctx)
	revision, err := uow.DocumentRepository().UpdateField(ctx, collection, id, field, encoded, preconds...)
	if err != nil {
		return fmt.Errorf("update %s/%s.%s: %w", collection, id, field, err)
	}
	s.announce(ctx, collection, id, revision)
	return nil
}
