// Package store defines the document store contracts the help desk core
// depends on. The Content Store holds the knowledge tree and branding
// documents; the Session Store holds one document per chat session. Both are
// served by the same implementation, see internal/docstore.
package store

import (
	"encoding/json"
	"errors"
	"time"
)

var ErrNotFound = errors.New("document not found")

// Document is one stored record. Data is the JSON body; Revision grows by one
// with every accepted write.
type Document struct {
	Collection string          `json:"collection"`
	ID         string          `json:"id"`
	Data       json.RawMessage `json:"data"`
	Revision   int64           `json:"revision"`
	CreatedAt  time.Time       `json:"createdAt"`
	UpdatedAt  time.Time       `json:"updatedAt"`
}

// DocumentSnapshot is the full current state of one document as delivered to
// a subscriber. Exists is false when the document is absent.
type DocumentSnapshot struct {
	Collection string
	ID         string
	Exists     bool
	Document   Document
}

// CollectionSnapshot is every document of a collection at one point in time.
type CollectionSnapshot struct {
	Collection string
	Documents  []Document
}

// Unsubscribe releases a subscription. It blocks until the subscription's
// goroutine has exited and its channel is closed; calling it more than once
// is safe.
type Unsubscribe func()

// Precondition makes a write conditional on a top-level string field of the
// stored body. A write whose preconditions do not hold fails with
// ErrPreconditionFailed and changes nothing.
type Precondition struct {
	Field  string
	Equals string
}

var ErrPreconditionFailed = errors.New("document precondition failed")

func FieldEquals(field, value string) Precondition {
	return Precondition{Field: field, Equals: value}
}
