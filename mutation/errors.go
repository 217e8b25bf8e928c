package mutation

import (
	"context"
	"errors"
	"fmt"
)

// ErrPrecondition is matched by errors.Is for every error of KindPrecondition.
var ErrPrecondition = errors.New("precondition failed")

// ErrorKind classifies why a mutation failed.
type ErrorKind int

const (
	// KindTransport means the request never got a response from the server.
	KindTransport ErrorKind = iota + 1
	// KindRejected means the server answered with an error status.
	KindRejected
	// KindPrecondition means the mutation was refused locally before any
	// state change or network call.
	KindPrecondition
)

func (k ErrorKind) String() string {
	switch k {
	case KindTransport:
		return "transport"
	case KindRejected:
		return "rejected"
	case KindPrecondition:
		return "precondition"
	default:
		return "unknown"
	}
}

// Error is returned for every failed mutation. For remote failures the local
// state has already been rolled back by the time the caller sees it.
type Error struct {
	Intent Intent
	Kind   ErrorKind
	Err    error
}

func (e *Error) Error() string {
	return fmt.Sprintf("mutation %s: %s: %v", e.Intent, e.Kind, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

func (e *Error) Is(target error) bool {
	return target == ErrPrecondition && e.Kind == KindPrecondition
}

// StatusCode returns the HTTP status of a rejected mutation, or 0.
func (e *Error) StatusCode() int {
	var sc statusCoder
	if errors.As(e.Err, &sc) {
		return sc.StatusCode()
	}
	return 0
}

type statusCoder interface {
	StatusCode() int
}

func precondition(intent Intent, err error) *Error {
	return &Error{Intent: intent, Kind: KindPrecondition, Err: err}
}

func classify(intent Intent, err error) *Error {
	var sc statusCoder
	if errors.As(err, &sc) && sc.StatusCode() > 0 && !errors.Is(err, context.DeadlineExceeded) {
		return &Error{Intent: intent, Kind: KindRejected, Err: err}
	}
	return &Error{Intent: intent, Kind: KindTransport, Err: err}
}
