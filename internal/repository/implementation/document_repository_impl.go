package implementation

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"helpdesk-be/internal/entity"
	"helpdesk-be/internal/mapper"
	"helpdesk-be/internal/model"
	"helpdesk-be/internal/repository/contract"
	"helpdesk-be/internal/repository/specification"
	"helpdesk-be/pkg/store"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type DocumentRepositoryImpl struct {
	db     *gorm.DB
	mapper *mapper.DocumentMapper
}

func NewDocumentRepository(db *gorm.DB) contract.DocumentRepository {
	return &DocumentRepositoryImpl{
		db:     db,
		mapper: mapper.NewDocumentMapper(),
	}
}

func (r *DocumentRepositoryImpl) applySpecifications(db *gorm.DB, specs ...specification.Specification) *gorm.DB {
	for _, spec := range specs {
		db = spec.Apply(db)
	}
	return db
}

func (r *DocumentRepositoryImpl) findOne(db *gorm.DB, collection, id string) (*entity.Document, error) {
	var m model.Document
	query := r.applySpecifications(db, specification.ByDocument{Collection: collection, ID: id})
	if err := query.First(&m).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return r.mapper.ToEntity(&m), nil
}

func (r *DocumentRepositoryImpl) FindOne(ctx context.Context, collection, id string) (*entity.Document, error) {
	return r.findOne(r.db.WithContext(ctx), collection, id)
}

func (r *DocumentRepositoryImpl) FindOneForUpdate(ctx context.Context, collection, id string) (*entity.Document, error) {
	return r.findOne(r.db.WithContext(ctx).Clauses(clause.Locking{Strength: "UPDATE"}), collection, id)
}

func (r *DocumentRepositoryImpl) FindAll(ctx context.Context, collection string) ([]*entity.Document, error) {
	var models []*model.Document
	query := r.applySpecifications(r.db.WithContext(ctx),
		specification.ByCollection{Collection: collection},
		specification.OrderBy{Field: "created_at"},
		specification.OrderBy{Field: "id"},
	)
	if err := query.Find(&models).Error; err != nil {
		return nil, err
	}
	return r.mapper.ToEntities(models), nil
}

func (r *DocumentRepositoryImpl) Count(ctx context.Context, collection string) (int64, error) {
	var count int64
	query := r.applySpecifications(r.db.WithContext(ctx).Model(&model.Document{}), specification.ByCollection{Collection: collection})
	if err := query.Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

func (r *DocumentRepositoryImpl) Create(ctx context.Context, doc *entity.Document) error {
	m := r.mapper.ToModel(doc)
	m.Revision = 1
	if err := r.db.WithContext(ctx).Create(m).Error; err != nil {
		return err
	}
	*doc = *r.mapper.ToEntity(m)
	return nil
}

func (r *DocumentRepositoryImpl) Set(ctx context.Context, doc *entity.Document, merge bool) error {
	m := r.mapper.ToModel(doc)
	m.Revision = 1

	data := gorm.Expr("EXCLUDED.data")
	if merge {
		data = gorm.Expr("documents.data || EXCLUDED.data")
	}
	upsert := clause.OnConflict{
		Columns: []clause.Column{{Name: "collection"}, {Name: "id"}},
		DoUpdates: clause.Assignments(map[string]interface{}{
			"data":       data,
			"revision":   gorm.Expr("documents.revision + 1"),
			"updated_at": gorm.Expr("EXCLUDED.updated_at"),
		}),
	}

	if err := r.db.WithContext(ctx).Clauses(upsert, clause.Returning{}).Create(m).Error; err != nil {
		return err
	}
	*doc = *r.mapper.ToEntity(m)
	return nil
}

func (r *DocumentRepositoryImpl) AppendToField(ctx context.Context, collection, id, field string, value json.RawMessage, preconds ...store.Precondition) (int64, error) {
	return r.updateData(ctx, collection, id,
		gorm.Expr("jsonb_set(data, ?::text[], coalesce(data->?, '[]'::jsonb) || jsonb_build_array(?::jsonb), true)",
			jsonPath(field), field, string(value)),
		preconds)
}

func (r *DocumentRepositoryImpl) UpdateField(ctx context.Context, collection, id, field string, value json.RawMessage, preconds ...store.Precondition) (int64, error) {
	return r.updateData(ctx, collection, id,
		gorm.Expr("jsonb_set(data, ?::text[], ?::jsonb, true)", jsonPath(field), string(value)),
		preconds)
}

// updateData applies one single-statement change to the body, so concurrent
// writers never overwrite each other. A zero row count is resolved into
// not-found or a failed precondition.
func (r *DocumentRepositoryImpl) updateData(ctx context.Context, collection, id string, data clause.Expr, preconds []store.Precondition) (int64, error) {
	specs := []specification.Specification{specification.ByDocument{Collection: collection, ID: id}}
	for _, p := range preconds {
		specs = append(specs, specification.DataFieldEquals{Field: p.Field, Value: p.Equals})
	}

	var m model.Document
	query := r.applySpecifications(r.db.WithContext(ctx).Model(&m), specs...)
	result := query.Clauses(clause.Returning{Columns: []clause.Column{{Name: "revision"}}}).
		Updates(map[string]interface{}{
			"data":       data,
			"revision":   gorm.Expr("revision + 1"),
			"updated_at": time.Now(),
		})
	if result.Error != nil {
		return 0, result.Error
	}
	if result.RowsAffected > 0 {
		return m.Revision, nil
	}

	existing, err := r.FindOne(ctx, collection, id)
	if err != nil {
		return 0, err
	}
	if existing == nil {
		return 0, store.ErrNotFound
	}
	return 0, store.ErrPreconditionFailed
}

func jsonPath(field string) string {
	return "{" + field + "}"
}
