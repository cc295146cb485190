package chat

import (
	"github.com/pkg/errors"
)

// Sentinel errors returned (wrapped) by Repository. Callers match them with
// errors.Is; the HTTP layer maps them to status codes.
var (
	ErrInvalid  = errors.New("invalid request")
	ErrNotFound = errors.New("not found")
	ErrConflict = errors.New("already exists")
)

func invalidf(format string, args ...any) error {
	return errors.Wrapf(ErrInvalid, format, args...)
}

func notFoundf(format string, args ...any) error {
	return errors.Wrapf(ErrNotFound, format, args...)
}

func conflictf(format string, args ...any) error {
	return errors.Wrapf(ErrConflict, format, args...)
}
