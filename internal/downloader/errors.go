package downloader

import (
	"errors"
	"fmt"
)

// ErrorKind tells the probe loop how to react to a failure.
type ErrorKind int

const (
	// KindSoft failures skip to the next candidate.
	KindSoft ErrorKind = iota
	// KindHard failures abort the whole probe pass.
	KindHard
	// KindFatal failures stop the process at startup.
	KindFatal
)

func (k ErrorKind) String() string {
	switch k {
	case KindSoft:
		return "soft"
	case KindHard:
		return "hard"
	case KindFatal:
		return "fatal"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

var (
	// ErrNotFound is reported when no candidate resolved.
	ErrNotFound = errors.New("no candidate resolved")
	// ErrCandidateMissing marks a 404 for a single candidate.
	ErrCandidateMissing = errors.New("candidate not found")
	// ErrUnexpectedStatus marks a non-2xx, non-404 response.
	ErrUnexpectedStatus = errors.New("unexpected status")
)

// Error carries the kind of a failure alongside the operation that produced it.
type Error struct {
	Kind ErrorKind
	Op   string
	URL  string
	Err  error
}

func (e *Error) Error() string {
	if e.URL == "" {
		return fmt.Sprintf("%s (%s): %v", e.Op, e.Kind, e.Err)
	}
	return fmt.Sprintf("%s %s (%s): %v", e.Op, e.URL, e.Kind, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// KindOf returns the kind attached to err. Untagged errors are soft.
func KindOf(err error) ErrorKind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindSoft
}

func softError(op, url string, err error) error {
	return &Error{Kind: KindSoft, Op: op, URL: url, Err: err}
}

func hardError(op, url string, err error) error {
	return &Error{Kind: KindHard, Op: op, URL: url, Err: err}
}

// Fatal tags a startup failure.
func Fatal(op string, err error) error {
	return &Error{Kind: KindFatal, Op: op, Err: err}
}
