package usecase

import "errors"

var (
	// ErrNotFound is returned when the requested record does not exist.
	ErrNotFound = errors.New("not found")
	// ErrAlreadyExists is returned on a unique-constraint violation.
	ErrAlreadyExists = errors.New("already exists")
	// ErrAuthorNotFound is returned when a book references an author
	// that does not exist (FK violation or failed existence check).
	ErrAuthorNotFound = errors.New("author not found")
	// ErrConflict is returned on any other constraint violation, e.g.
	// deleting an author that still has books.
	ErrConflict = errors.New("constraint conflict")
)
