// Package service implements the portal's business operations. Each
// exported method runs as one database transaction.
package service

import (
	"errors"
	"fmt"
	"time"

	"parish-portal/internal/model"
	"parish-portal/internal/repository"
)

// Error categories. Handlers map them to HTTP statuses with errors.Is.
var (
	ErrNotFound        = errors.New("not found")
	ErrConflict        = errors.New("conflict")
	ErrInvalidArgument = errors.New("invalid argument")
	ErrForbidden       = errors.New("forbidden")

	// ErrInsufficientPoints is a conflict: the balance cannot cover a wager.
	ErrInsufficientPoints error = &Error{Kind: ErrConflict, Message: "insufficient points"}
)

// Error carries a client-facing message and one of the category sentinels.
type Error struct {
	Kind    error
	Message string
}

func (e *Error) Error() string { return e.Message }
func (e *Error) Unwrap() error { return e.Kind }

func newError(kind error, format string, args ...any) error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

func notFound(format string, args ...any) error  { return newError(ErrNotFound, format, args...) }
func conflict(format string, args ...any) error  { return newError(ErrConflict, format, args...) }
func invalid(format string, args ...any) error   { return newError(ErrInvalidArgument, format, args...) }
func forbidden(format string, args ...any) error { return newError(ErrForbidden, format, args...) }

// fromRepo maps repository sentinels onto the service categories and
// passes everything else through.
func fromRepo(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, repository.ErrInsufficientPoints):
		return ErrInsufficientPoints
	case errors.Is(err, repository.ErrNotFound):
		return notFound("%s", err.Error())
	default:
		return err
	}
}

// Clock returns the current instant.
type Clock func() time.Time

// civilToday returns today's date in loc as stored in DATE columns.
func civilToday(now Clock, loc *time.Location) time.Time {
	return model.DateOf(now().In(loc))
}
