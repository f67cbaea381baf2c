package persistence

import "errors"

var (
	// ErrNotFound is returned when the requested record does not exist.
	ErrNotFound = errors.New("persistence: not found")

	// ErrDuplicate is returned when a record with the same unique key
	// already exists.
	ErrDuplicate = errors.New("persistence: duplicate record")

	// ErrForeignKeyViolation is returned when a referenced record is
	// missing or still referenced.
	ErrForeignKeyViolation = errors.New("persistence: foreign key violation")

	// ErrConstraintViolation is returned when a record fails a storage
	// constraint check.
	ErrConstraintViolation = errors.New("persistence: constraint violation")
)
