package specification

import "gorm.io/gorm"

type ByCollection struct {
	Collection string
}

func (s ByCollection) Apply(db *gorm.DB) *gorm.DB {
	return db.Where("collection = ?", s.Collection)
}

// ByDocument addresses one document by its composite key.
type ByDocument struct {
	Collection string
	ID         string
}

func (s ByDocument) Apply(db *gorm.DB) *gorm.DB {
	return db.Where("collection = ? AND id = ?", s.Collection, s.ID)
}

// DataFieldEquals matches a top-level string field of the JSON body.
type DataFieldEquals struct {
	Field string
	Value string
}

func (s DataFieldEquals) Apply(db *gorm.DB) *gorm.DB {
	return db.Where("data->>? = ?", s.Field, s.Value)
}
