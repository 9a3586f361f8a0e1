package domain

import (
	"errors"
	"fmt"
)

type ErrorKind int

const (
	KindInvalidRequest ErrorKind = iota + 1
	KindNetwork
	KindUpstream
)

func (k ErrorKind) String() string {
	switch k {
	case KindInvalidRequest:
		return "invalid_request"
	case KindNetwork:
		return "network_error"
	case KindUpstream:
		return "upstream_error"
	default:
		return "unknown"
	}
}

// Sentinels for errors.Is against a *FetchError of the same kind.
var (
	ErrInvalidRequest = errors.New("invalid request")
	ErrNetwork        = errors.New("network error")
	ErrUpstream       = errors.New("upstream error")
)

// FetchError is the classified failure of a price fetch.
type FetchError struct {
	Kind ErrorKind
	Op   string
	Err  error
}

func (e *FetchError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: %s", e.Op, e.Kind)
	}
	return fmt.Sprintf("%s: %s: %v", e.Op, e.Kind, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

func (e *FetchError) Is(target error) bool {
	switch target {
	case ErrInvalidRequest:
		return e.Kind == KindInvalidRequest
	case ErrNetwork:
		return e.Kind == KindNetwork
	case ErrUpstream:
		return e.Kind == KindUpstream
	}
	return false
}

// Retriable reports whether the next scheduled poll may succeed.
func (e *FetchError) Retriable() bool {
	return e.Kind == KindNetwork || e.Kind == KindUpstream
}

func InvalidRequest(op string, err error) error {
	return &FetchError{Kind: KindInvalidRequest, Op: op, Err: err}
}

func NetworkError(op string, err error) error {
	return &FetchError{Kind: KindNetwork, Op: op, Err: err}
}

func UpstreamError(op string, err error) error {
	return &FetchError{Kind: KindUpstream, Op: op, Err: err}
}

// KindOf returns the kind of the first FetchError in err's chain, or 0.
func KindOf(err error) ErrorKind {
	var fe *FetchError
	if errors.As(err, &fe) {
		return fe.Kind
	}
	return 0
}
