package domain

import (
	"context"
	"errors"
	"fmt"
)

var (
	ErrInvalidArgument = errors.New("invalid argument")
	ErrUnavailable     = errors.New("upstream unavailable")
	ErrNotFound        = errors.New("not found")
	ErrInternal        = errors.New("internal error")

	ErrVotingClosed = errors.New("voting is closed for this jornada")
	ErrUnknownMatch = errors.New("match is not part of the published jornada")
)

// ErrorKind is the coarse classification exposed to callers of manual entry points.
type ErrorKind string

const (
	KindInvalidArgument ErrorKind = "invalid_argument"
	KindUnavailable     ErrorKind = "unavailable"
	KindNotFound        ErrorKind = "not_found"
	KindFailedPrecond   ErrorKind = "failed_precondition"
	KindInternal        ErrorKind = "internal"
)

func Classify(err error) ErrorKind {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrInvalidArgument), errors.Is(err, ErrUnknownMatch):
		return KindInvalidArgument
	case errors.Is(err, ErrUnavailable), errors.Is(err, context.DeadlineExceeded):
		return KindUnavailable
	case errors.Is(err, ErrNotFound):
		return KindNotFound
	case errors.Is(err, ErrVotingClosed):
		return KindFailedPrecond
	default:
		return KindInternal
	}
}

var kindSentinels = map[ErrorKind]error{
	KindInvalidArgument: ErrInvalidArgument,
	KindUnavailable:     ErrUnavailable,
	KindNotFound:        ErrNotFound,
	KindFailedPrecond:   ErrVotingClosed,
	KindInternal:        ErrInternal,
}

// Canonical wraps err so that errors.Is matches the sentinel of its kind.
func Canonical(err error) error {
	if err == nil {
		return nil
	}
	sentinel := kindSentinels[Classify(err)]
	if errors.Is(err, sentinel) {
		return err
	}
	return fmt.Errorf("%w: %w", sentinel, err)
}
