package errors

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound      = errors.New("not found")
	ErrUnauthorized  = errors.New("unauthorized")
	ErrForbidden     = errors.New("forbidden")
	ErrInvalid       = errors.New("invalid")
	ErrConflict      = errors.New("conflict")
	ErrTooMany       = errors.New("too many requests")
	ErrInternal      = errors.New("internal")
	ErrEmptyDocument = errors.New("document has no extractable text")
)

const (
	ConflictNameExists    = "name_exists"
	ConflictDuplicateFile = "duplicate_file"
)

// ConflictError reports an upload collision and carries the identity of the
// existing document so the caller can re-issue the request with overwrite set.
type ConflictError struct {
	Code         string
	DocumentID   string
	OriginalName string
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("%s: document %s (%s)", e.Code, e.DocumentID, e.OriginalName)
}

func (e *ConflictError) Is(target error) bool {
	return target == ErrConflict
}

func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

func IsConflict(err error) bool {
	return errors.Is(err, ErrConflict)
}
