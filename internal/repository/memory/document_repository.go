package memory

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"

	"helpdesk-be/internal/entity"
	"helpdesk-be/pkg/store"

	"github.com/patrickmn/go-cache"
)

// DocumentRepository mirrors the Postgres repository on top of go-cache.
// Items are stored as private copies so callers never alias cached state.
type DocumentRepository struct {
	db  *Database
	uow *unitOfWork
}

func clone(d *entity.Document) *entity.Document {
	if d == nil {
		return nil
	}
	out := *d
	out.Data = append(json.RawMessage(nil), d.Data...)
	if d.UpdatedAt != nil {
		t := *d.UpdatedAt
		out.UpdatedAt = &t
	}
	return &out
}

// write runs fn with the item lock held. Outside a transaction it also
// takes the transaction lock so it cannot interleave with one.
func (r *DocumentRepository) write(fn func() error) error {
	if r.uow == nil || !r.uow.inTx {
		r.db.txMu.Lock()
		defer r.db.txMu.Unlock()
	}
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	return fn()
}

func (r *DocumentRepository) get(collection, id string) *entity.Document {
	if x, found := r.db.cache.Get(key(collection, id)); found {
		return clone(x.(*entity.Document))
	}
	return nil
}

func (r *DocumentRepository) put(doc *entity.Document) {
	k := key(doc.Collection, doc.Id)
	if r.uow != nil && r.uow.inTx {
		if _, recorded := r.uow.undo[k]; !recorded {
			r.uow.undo[k] = r.get(doc.Collection, doc.Id)
		}
	}
	r.db.cache.Set(k, clone(doc), cache.NoExpiration)
}

func (r *DocumentRepository) FindOne(ctx context.Context, collection, id string) (*entity.Document, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	return r.get(collection, id), nil
}

func (r *DocumentRepository) FindOneForUpdate(ctx context.Context, collection, id string) (*entity.Document, error) {
	return r.FindOne(ctx, collection, id)
}

func (r *DocumentRepository) FindAll(ctx context.Context, collection string) ([]*entity.Document, error) {
	prefix := collection + "/"

	r.db.mu.Lock()
	docs := make([]*entity.Document, 0)
	for k, item := range r.db.cache.Items() {
		if strings.HasPrefix(k, prefix) {
			docs = append(docs, clone(item.Object.(*entity.Document)))
		}
	}
	r.db.mu.Unlock()

	sort.Slice(docs, func(i, j int) bool {
		if !docs[i].CreatedAt.Equal(docs[j].CreatedAt) {
			return docs[i].CreatedAt.Before(docs[j].CreatedAt)
		}
		return docs[i].Id < docs[j].Id
	})
	return docs, nil
}

func (r *DocumentRepository) Count(ctx context.Context, collection string) (int64, error) {
	docs, err := r.FindAll(ctx, collection)
	return int64(len(docs)), err
}

func (r *DocumentRepository) Create(ctx context.Context, doc *entity.Document) error {
	return r.write(func() error {
		if r.get(doc.Collection, doc.Id) != nil {
			return fmt.Errorf("document %s/%s already exists", doc.Collection, doc.Id)
		}
		now := time.Now()
		doc.Revision = 1
		if doc.CreatedAt.IsZero() {
			doc.CreatedAt = now
		}
		doc.UpdatedAt = &now
		if len(doc.Data) == 0 {
			doc.Data = json.RawMessage("{}")
		}
		r.put(doc)
		return nil
	})
}

func (r *DocumentRepository) Set(ctx context.Context, doc *entity.Document, merge bool) error {
	return r.write(func() error {
		now := time.Now()
		data := doc.Data
		if len(data) == 0 {
			data = json.RawMessage("{}")
		}

		existing := r.get(doc.Collection, doc.Id)
		if existing == nil {
			doc.Revision = 1
			doc.CreatedAt = now
		} else {
			if merge {
				merged, err := mergeObjects(existing.Data, data)
				if err != nil {
					return err
				}
				data = merged
			}
			doc.Revision = existing.Revision + 1
			doc.CreatedAt = existing.CreatedAt
		}
		doc.Data = data
		doc.UpdatedAt = &now
		r.put(doc)
		return nil
	})
}

func (r *DocumentRepository) AppendToField(ctx context.Context, collection, id, field string, value json.RawMessage, preconds ...store.Precondition) (int64, error) {
	return r.updateBody(collection, id, preconds, func(body map[string]json.RawMessage) error {
		var items []json.RawMessage
		if raw, ok := body[field]; ok && string(raw) != "null" {
			if err := json.Unmarshal(raw, &items); err != nil {
				return fmt.Errorf("field %q is not an array: %w", field, err)
			}
		}
		items = append(items, value)
		encoded, err := json.Marshal(items)
		if err != nil {
			return err
		}
		body[field] = encoded
		return nil
	})
}

func (r *DocumentRepository) UpdateField(ctx context.Context, collection, id, field string, value json.RawMessage, preconds ...store.Precondition) (int64, error) {
	return r.updateBody(collection, id, preconds, func(body map[string]json.RawMessage) error {
		body[field] = value
		return nil
	})
}

func (r *DocumentRepository) updateBody(collection, id string, preconds []store.Precondition, fn func(map[string]json.RawMessage) error) (int64, error) {
	var revision int64
	err := r.write(func() error {
		doc := r.get(collection, id)
		if doc == nil {
			return store.ErrNotFound
		}
		body, err := decodeObject(doc.Data)
		if err != nil {
			return err
		}
		if !preconditionsHold(body, preconds) {
			return store.ErrPreconditionFailed
		}
		if err := fn(body); err != nil {
			return err
		}
		encoded, err := json.Marshal(body)
		if err != nil {
			return err
		}

		now := time.Now()
		doc.Data = encoded
		doc.Revision++
		doc.UpdatedAt = &now
		r.put(doc)
		revision = doc.Revision
		return nil
	})
	return revision, err
}

func decodeObject(data json.RawMessage) (map[string]json.RawMessage, error) {
	body := make(map[string]json.RawMessage)
	if len(data) == 0 {
		return body, nil
	}
	if err := json.Unmarshal(data, &body); err != nil {
		return nil, fmt.Errorf("document body is not an object: %w", err)
	}
	if body == nil {
		body = make(map[string]json.RawMessage)
	}
	return body, nil
}

func mergeObjects(base, overlay json.RawMessage) (json.RawMessage, error) {
	merged, err := decodeObject(base)
	if err != nil {
		return nil, err
	}
	top, err := decodeObject(overlay)
	if err != nil {
		return nil, err
	}
	for k, v := range top {
		merged[k] = v
	}
	return json.Marshal(merged)
}

// preconditionsHold compares string fields the way Postgres data->>field
// does: an absent or non-string field never matches.
func preconditionsHold(body map[string]json.RawMessage, preconds []store.Precondition) bool {
	for _, p := range preconds {
		raw, ok := body[p.Field]
		if !ok {
			return false
		}
		var s string
		if err := json.Unmarshal(raw, &s); err != nil || s != p.Equals {
			return false
		}
	}
	return true
}
