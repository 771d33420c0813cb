// Package apperr holds the error taxonomy shared by the navigation engine,
// the session lifecycle and the HTTP layer.
package apperr

import (
	"errors"
	"fmt"
)

// NotFoundError reports an expected document that is absent.
type NotFoundError struct {
	Collection string
	ID         string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("document %s/%s not found", e.Collection, e.ID)
}

// ValidationError is raised before any store call when required input is
// missing or malformed. It is always recoverable by correcting the input.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Reason
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Reason)
}

// StoreWriteFailure wraps a write the store rejected. It is reported to the
// initiator and never retried.
type StoreWriteFailure struct {
	Op  string
	Err error
}

func (e *StoreWriteFailure) Error() string {
	return fmt.Sprintf("store write %s failed: %v", e.Op, e.Err)
}

func (e *StoreWriteFailure) Unwrap() error { return e.Err }

// MalformedContentError describes a knowledge node that carries no single
// recognizable kind. It is reported, not raised: the node is treated as an
// empty branch.
type MalformedContentError struct {
	NodeID string
	Reason string
}

func (e *MalformedContentError) Error() string {
	return fmt.Sprintf("malformed node %q: %s", e.NodeID, e.Reason)
}

var (
	ErrSessionEnded      = errors.New("chat session has ended")
	ErrInvalidTransition = errors.New("operation not allowed in current view")
	ErrNotSelectable     = errors.New("node is not selectable from current view")
	ErrUnauthorized      = errors.New("unauthorized")
)

func NotFound(collection, id string) error {
	return &NotFoundError{Collection: collection, ID: id}
}

func Invalid(field, reason string) error {
	return &ValidationError{Field: field, Reason: reason}
}

func WriteFailed(op string, err error) error {
	return &StoreWriteFailure{Op: op, Err: err}
}

func IsNotFound(err error) bool {
	var nf *NotFoundError
	return errors.As(err, &nf)
}

func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

func IsWriteFailure(err error) bool {
	var wf *StoreWriteFailure
	return errors.As(err, &wf)
}
