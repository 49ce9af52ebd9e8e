package transport

import (
	"errors"
	"fmt"
)

// Kind classifies an entry in the error list
type Kind int

const (
	// AddressError means the sender address could not be parsed
	AddressError Kind = iota
	// ConnectionError means the socket could not be opened or used
	ConnectionError
	// ProtocolError means a checked command got an unexpected reply code
	ProtocolError
	// NoRecipientError means a send was attempted with an empty "to" set
	NoRecipientError
	// AttachmentError means an attachment could not be registered or read
	AttachmentError
)

func (k Kind) String() string {
	switch k {
	case AddressError:
		return "AddressError"
	case ConnectionError:
		return "ConnectionError"
	case ProtocolError:
		return "ProtocolError"
	case NoRecipientError:
		return "NoRecipientError"
	case AttachmentError:
		return "AttachmentError"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// Error is a single entry in the error list. Its message is the
// human-readable string callers see in Diagnostics.Errors.
type Error struct {
	Kind Kind
	Msg  string
}

func (e *Error) Error() string {
	return e.Msg
}

// IsKind reports whether err, or any error it wraps or joins, is an *Error
// of kind k.
func IsKind(err error, k Kind) bool {
	switch e := err.(type) {
	case nil:
		return false
	case *Error:
		return e.Kind == k
	case interface{ Unwrap() []error }:
		for _, w := range e.Unwrap() {
			if IsKind(w, k) {
				return true
			}
		}
	case interface{ Unwrap() error }:
		return IsKind(e.Unwrap(), k)
	}
	return false
}

// Diagnostics accumulates errors and, when debugging, a trace of the
// conversation with the server. The zero value is ready to use. Not safe
// for concurrent use, same as the Conn that owns it.
type Diagnostics struct {
	errs  []error
	trace []string
}

// Append records an error of kind k. Empty messages are ignored.
func (d *Diagnostics) Append(k Kind, msg string) {
	if msg == "" {
		return
	}
	d.errs = append(d.errs, &Error{Kind: k, Msg: msg})
}

// Appendf is Append with fmt.Sprintf formatting
func (d *Diagnostics) Appendf(k Kind, format string, args ...interface{}) {
	d.Append(k, fmt.Sprintf(format, args...))
}

// Failed reports whether any error has been recorded. Every protocol
// operation checks this first and becomes a no-op once it is true.
func (d *Diagnostics) Failed() bool {
	return len(d.errs) > 0
}

// Errors returns the error list as strings, in the order they were
// recorded. An empty list means success.
func (d *Diagnostics) Errors() []string {
	s := make([]string, len(d.errs))
	for i, e := range d.errs {
		s[i] = e.Error()
	}
	return s
}

// Err joins the error list into a single error, or returns nil if the list
// is empty.
func (d *Diagnostics) Err() error {
	return errors.Join(d.errs...)
}

// Trace appends msg to the trace list
func (d *Diagnostics) Trace(msg string) {
	if msg == "" {
		return
	}
	d.trace = append(d.trace, msg)
}

// Log returns a copy of the trace list
func (d *Diagnostics) Log() []string {
	l := make([]string, len(d.trace))
	copy(l, d.trace)
	return l
}
