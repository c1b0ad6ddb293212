// Package rserr gives the error kinds described by the design a typed home
// so callers can discriminate with errors.As instead of string matching,
// while keeping message formatting in the plain fmt.Errorf style used
// throughout this codebase.
package rserr

import "fmt"

// Kind classifies a failure the way the rest of the system needs to react to it.
type Kind int

const (
	// KindIo is the catch-all for filesystem failures not covered by a more
	// specific kind below.
	KindIo Kind = iota
	KindNotFound
	KindInvalidFormat
	KindCycle
	KindHostConflict
	KindAlreadyExists
	KindAlreadyGuarded
	KindExternalCommand
	KindConfig
)

func (k Kind) String() string {
	switch k {
	case KindNotFound:
		return "not_found"
	case KindInvalidFormat:
		return "invalid_format"
	case KindCycle:
		return "cycle"
	case KindHostConflict:
		return "host_conflict"
	case KindAlreadyExists:
		return "already_exists"
	case KindAlreadyGuarded:
		return "already_guarded"
	case KindExternalCommand:
		return "external_command"
	case KindConfig:
		return "config"
	default:
		return "io"
	}
}

// Error wraps a cause with a Kind and the "action: path" context the design
// requires every propagated error to carry.
type Error struct {
	Kind   Kind
	Action string
	Path   string
	Err    error
}

func (e *Error) Error() string {
	switch {
	case e.Action != "" && e.Path != "":
		return fmt.Sprintf("%s %s: %v", e.Action, e.Path, e.Err)
	case e.Action != "":
		return fmt.Sprintf("%s: %v", e.Action, e.Err)
	default:
		return e.Err.Error()
	}
}

func (e *Error) Unwrap() error { return e.Err }

// New builds an Error of the given kind, wrapping err. When err is itself an
// *Error, the new Error still carries kind, and Is reports this outer kind.
func New(kind Kind, action, path string, err error) *Error {
	return &Error{Kind: kind, Action: action, Path: path, Err: err}
}

func NotFound(action, path string, err error) *Error {
	return New(KindNotFound, action, path, err)
}

func InvalidFormat(action, path string, err error) *Error {
	return New(KindInvalidFormat, action, path, err)
}

func Cycle(action, path string, err error) *Error {
	return New(KindCycle, action, path, err)
}

func HostConflict(action, path string, err error) *Error {
	return New(KindHostConflict, action, path, err)
}

func AlreadyExists(action, path string, err error) *Error {
	return New(KindAlreadyExists, action, path, err)
}

func AlreadyGuarded(action, path string, err error) *Error {
	return New(KindAlreadyGuarded, action, path, err)
}

func ExternalCommand(action, path string, err error) *Error {
	return New(KindExternalCommand, action, path, err)
}

func Config(action, path string, err error) *Error {
	return New(KindConfig, action, path, err)
}

func Io(action, path string, err error) *Error {
	return New(KindIo, action, path, err)
}

// Is reports whether err is an *Error of the given kind.
func Is(err error, kind Kind) bool {
	var e *Error
	if !asError(err, &e) {
		return false
	}
	return e.Kind == kind
}

func asError(err error, target **Error) bool {
	for err != nil {
		if e, ok := err.(*Error); ok {
			*target = e
			return true
		}
		u, ok := err.(interface{ Unwrap() error })
		if !ok {
			return false
		}
		err = u.Unwrap()
	}
	return false
}
