package entity

import (
	"encoding/json"
	"time"
)

type Document struct {
	Collection string
	Id         string
	Data       json.RawMessage
	Revision   int64
	CreatedAt  time.Time
	UpdatedAt  *time.Time
}
