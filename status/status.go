// Package status defines the closed set of error conditions shared by the
// ogg, opus, editor and cli packages. Every failure is reported as an *Error
// carrying one of the codes below and a message attached at its point of
// origin, so callers can branch on the code without parsing messages.
package status

import (
	"errors"
	"fmt"
)

type Code int

const (
	OK Code = iota

	// Generic.
	IntOverflow
	StandardError

	// Ogg container.
	EndOfStream
	EndOfPage
	StreamNotReady
	FramingError

	// OpusTags packet. The cut family means the packet ended in the middle
	// of the named field.
	BadMagicNumber
	CutMagicNumber
	CutVendorLength
	CutVendorData
	CutCommentCount
	CutCommentLength
	CutCommentData

	// Command line.
	BadArguments
	FatalError
)

func (c Code) String() string {
	switch c {
	case OK:
		return "ok"
	case IntOverflow:
		return "int overflow"
	case StandardError:
		return "standard error"
	case EndOfStream:
		return "end of stream"
	case EndOfPage:
		return "end of page"
	case StreamNotReady:
		return "stream not ready"
	case FramingError:
		return "framing error"
	case BadMagicNumber:
		return "bad magic number"
	case CutMagicNumber:
		return "cut magic number"
	case CutVendorLength:
		return "cut vendor length"
	case CutVendorData:
		return "cut vendor data"
	case CutCommentCount:
		return "cut comment count"
	case CutCommentLength:
		return "cut comment length"
	case CutCommentData:
		return "cut comment data"
	case BadArguments:
		return "bad arguments"
	case FatalError:
		return "fatal error"
	default:
		return fmt.Sprintf("code(%d)", int(c))
	}
}

// Error pairs a Code with a human-readable message, and optionally wraps the
// lower-level error that caused it.
type Error struct {
	Code    Code
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Message == "" {
		return e.Code.String()
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Err }

// New builds an *Error with a formatted message.
func New(code Code, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// Wrap builds an *Error around a lower-level failure. The cause is preserved
// for errors.Is/errors.As and appended to the message.
func Wrap(code Code, err error, format string, args ...any) *Error {
	msg := fmt.Sprintf(format, args...)
	if err != nil {
		msg = fmt.Sprintf("%s: %s", msg, err)
	}
	return &Error{Code: code, Message: msg, Err: err}
}

// CodeOf extracts the Code from an error chain. A nil error is OK; an error
// with no *Error in its chain is a StandardError.
func CodeOf(err error) Code {
	if err == nil {
		return OK
	}
	var se *Error
	if errors.As(err, &se) {
		return se.Code
	}
	return StandardError
}
