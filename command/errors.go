package command

import (
	"errors"

	"github.com/mickamy/kvstored/storage"
)

// Kind tags the category of a command-level Error, mirroring the error
// kinds spec.md §7 enumerates. The command package's Error values are
// mapped to wire error text without any string matching on messages.
type Kind int

const (
	KindWrongType Kind = iota
	KindSyntax
	KindNotInteger
	KindNotFloat
	KindOverflow
	KindInvalidStreamID
	KindTimeInPast
	KindNoSuchCommand
)

func (k Kind) String() string {
	switch k {
	case KindWrongType:
		return "WrongType"
	case KindSyntax:
		return "SyntaxError"
	case KindNotInteger:
		return "NotAnInteger"
	case KindNotFloat:
		return "NotAFloat"
	case KindOverflow:
		return "Overflow"
	case KindInvalidStreamID:
		return "InvalidStreamId"
	case KindTimeInPast:
		return "TimeInPast"
	case KindNoSuchCommand:
		return "NoSuchCommand"
	}
	return "Unknown"
}

// Error is a command-level failure that the dispatcher converts into a
// wire error reply rather than propagating as a connection-ending I/O
// error.
type Error struct {
	Kind Kind
	Text string // full wire error text, e.g. "ERR value is not an integer or out of range"
}

func (e *Error) Error() string { return e.Text }

func newError(kind Kind, text string) *Error {
	return &Error{Kind: kind, Text: text}
}

// ErrSyntax is returned for malformed argument lists.
var ErrSyntax = newError(KindSyntax, "ERR syntax error")

// errUnknownCommand reports an unrecognized command keyword.
func errUnknownCommand(name string) error {
	return newError(KindNoSuchCommand, "ERR unknown command '"+name+"'")
}

// errWrongArity reports a command called with the wrong number of
// arguments.
func errWrongArity(name string) error {
	return newError(KindSyntax, "ERR wrong number of arguments for '"+name+"' command")
}

var errTimeInPast = newError(KindTimeInPast, "ERR time is in the past")

// wireText returns the text to send in a "-<text>\r\n" error reply for
// err, translating storage's sentinel errors the same way a *Error's Text
// is used verbatim.
func wireText(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Text
	}
	if errors.Is(err, storage.ErrWrongType) {
		return storage.ErrWrongType.Error()
	}
	if errors.Is(err, storage.ErrNotInteger) {
		return storage.ErrNotInteger.Error()
	}
	if errors.Is(err, storage.ErrNotFloat) {
		return storage.ErrNotFloat.Error()
	}
	if errors.Is(err, storage.ErrOverflow) {
		return storage.ErrOverflow.Error()
	}
	return "ERR " + err.Error()
}
