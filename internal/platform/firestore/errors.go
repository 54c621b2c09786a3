package firestore

import (
	"context"
	"errors"
	"fmt"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// Error classifies Firestore failures; it satisfies repositories.RepositoryError.
type Error struct {
	op   string
	err  error
	kind errorKind
}

type errorKind int

const (
	kindUnknown errorKind = iota
	kindNotFound
	kindConflict
	kindUnavailable
)

func (e *Error) Error() string {
	if e.op != "" {
		return fmt.Sprintf("%s: %v", e.op, e.err)
	}
	return e.err.Error()
}

func (e *Error) Unwrap() error { return e.err }

// IsNotFound reports whether the document was missing.
func (e *Error) IsNotFound() bool { return e != nil && e.kind == kindNotFound }

// IsConflict reports a precondition or contention failure.
func (e *Error) IsConflict() bool { return e != nil && e.kind == kindConflict }

// IsUnavailable reports a transient backend failure.
func (e *Error) IsUnavailable() bool { return e != nil && e.kind == kindUnavailable }

// NotFound builds a not-found error for op without a gRPC status.
func NotFound(op string, err error) error {
	return &Error{op: op, err: err, kind: kindNotFound}
}

// Conflict builds a conflict error for op without a gRPC status.
func Conflict(op string, err error) error {
	return &Error{op: op, err: err, kind: kindConflict}
}

// IsNotFoundCode reports whether err carries the gRPC NotFound code.
func IsNotFoundCode(err error) bool {
	return status.Code(err) == codes.NotFound
}

// WrapError attaches op and classifies err by gRPC code. Context errors pass through unchanged.
func WrapError(op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}

	var existing *Error
	if errors.As(err, &existing) {
		return err
	}

	e := &Error{op: op, err: err}
	switch status.Code(err) {
	case codes.Canceled:
		return context.Canceled
	case codes.NotFound:
		e.kind = kindNotFound
	case codes.AlreadyExists, codes.FailedPrecondition, codes.Aborted:
		e.kind = kindConflict
	case codes.Unavailable, codes.ResourceExhausted, codes.Internal, codes.DeadlineExceeded:
		e.kind = kindUnavailable
	}
	return e
}
