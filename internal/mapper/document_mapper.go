package mapper

import (
	"encoding/json"
	"time"

	"helpdesk-be/internal/entity"
	"helpdesk-be/internal/model"

	"gorm.io/datatypes"
)

type DocumentMapper struct{}

func NewDocumentMapper() *DocumentMapper {
	return &DocumentMapper{}
}

func (m *DocumentMapper) ToEntity(d *model.Document) *entity.Document {
	if d == nil {
		return nil
	}

	var updatedAt *time.Time
	if !d.UpdatedAt.IsZero() {
		t := d.UpdatedAt
		updatedAt = &t
	}

	return &entity.Document{
		Collection: d.Collection,
		Id:         d.Id,
		Data:       json.RawMessage(d.Data),
		Revision:   d.Revision,
		CreatedAt:  d.CreatedAt,
		UpdatedAt:  updatedAt,
	}
}

func (m *DocumentMapper) ToModel(d *entity.Document) *model.Document {
	if d == nil {
		return nil
	}

	var updatedAt time.Time
	if d.UpdatedAt != nil {
		updatedAt = *d.UpdatedAt
	}

	data := datatypes.JSON(d.Data)
	if len(data) == 0 {
		data = datatypes.JSON("{}")
	}

	return &model.Document{
		Collection: d.Collection,
		Id:         d.Id,
		Data:       data,
		Revision:   d.Revision,
		CreatedAt:  d.CreatedAt,
		UpdatedAt:  updatedAt,
	}
}

func (m *DocumentMapper) ToEntities(models []*model.Document) []*entity.Document {
	entities := make([]*entity.Document, len(models))
	for i, d := range models {
		entities[i] = m.ToEntity(d)
	}
	return entities
}
