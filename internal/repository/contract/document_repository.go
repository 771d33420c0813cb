package contract

import (
	"context"
	"encoding/json"

	"helpdesk-be/internal/entity"
	"helpdesk-be/pkg/store"
)

// DocumentRepository stores JSON documents keyed by (collection, id). Every
// accepted write bumps Revision by one. Lookups of an absent document return
// (nil, nil); field writes against one return store.ErrNotFound.
type DocumentRepository interface {
	FindOne(ctx context.Context, collection, id string) (*entity.Document, error)
	// FindOneForUpdate locks the row until the surrounding transaction ends.
	FindOneForUpdate(ctx context.Context, collection, id string) (*entity.Document, error)
	FindAll(ctx context.Context, collection string) ([]*entity.Document, error)
	Count(ctx context.Context, collection string) (int64, error)

	Create(ctx context.Context, doc *entity.Document) error
	// Set upserts doc. With merge the top-level fields of doc.Data are laid
	// over the stored body. doc is refreshed with the stored row.
	Set(ctx context.Context, doc *entity.Document, merge bool) error
	// AppendToField appends value as one element of the array field and
	// returns the new revision.
	AppendToField(ctx context.Context, collection, id, field string, value json.RawMessage, preconds ...store.Precondition) (int64, error)
	UpdateField(ctx context.Context, collection, id, field string, value json.RawMessage, preconds ...store.Precondition) (int64, error)
}
