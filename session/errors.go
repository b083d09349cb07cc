package session

import (
	"errors"
	"fmt"
)

// Error kinds. Match them with errors.Is.
var (
	// ErrConnectivity means the backend could not run the operation. Callers
	// must treat the store as unavailable, not as "no session".
	ErrConnectivity = errors.New("session store unavailable")
	// ErrSerialization means a session could not be encoded; nothing was written.
	ErrSerialization = errors.New("session serialization failed")
	// ErrCorruption means a persisted session could not be decoded.
	ErrCorruption = errors.New("session data corrupt")
	// ErrInvalidID means a session id is not usable as a primary key.
	ErrInvalidID = errors.New("invalid session id")
	// ErrInvalidCookie means a cookie value is not a well-formed session cookie.
	ErrInvalidCookie = errors.New("invalid session cookie value")
)

var (
	errEmptyID  = errors.New("id is empty")
	errLongID   = fmt.Errorf("id is longer than %d bytes", MaxIDLength)
	errBadUTF8  = errors.New("id is not valid UTF-8")
	errNULByte  = errors.New("id contains a NUL byte")
	errIDChange = errors.New("stored id does not match the requested id")

	errNilSession = errors.New("nil session")
)

// Error is returned by Store implementations.
type Error struct {
	Op   string // load, store, destroy, clear
	ID   string // session id, when known
	Kind error  // one of the Err* kinds above
	Err  error  // underlying cause, may be nil
}

func (e *Error) Error() string {
	msg := "session " + e.Op
	if e.ID != "" {
		msg += " " + e.ID
	}
	msg += ": " + e.Kind.Error()
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Unwrap exposes both the kind and the cause to errors.Is and errors.As.
func (e *Error) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

// Connectivity wraps a backend failure.
func Connectivity(op, id string, err error) error {
	return &Error{Op: op, ID: id, Kind: ErrConnectivity, Err: err}
}

// Serialization wraps an encoding failure.
func Serialization(op, id string, err error) error {
	return &Error{Op: op, ID: id, Kind: ErrSerialization, Err: err}
}

// Corruption wraps a decoding failure.
func Corruption(op, id string, err error) error {
	return &Error{Op: op, ID: id, Kind: ErrCorruption, Err: err}
}
