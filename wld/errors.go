package wld

import (
	"fmt"

	"github.com/pkg/errors"

	"badc0de.net/pkg/go-terramap/bincursor"
)

// ErrorKind classifies a decode failure. The set is closed; callers should
// switch on it rather than inspect error text.
//
// Implementation detail: iota is not used primarily for easier referencing in
// case of an error.
type ErrorKind uint8

const (
	// InvalidData means the input is structurally nonsensical: an empty
	// buffer, a negative count, non-positive or excessive dimensions.
	InvalidData ErrorKind = 1
	// UnsupportedVersion means the file format version is outside the range
	// the decoder was configured to accept.
	UnsupportedVersion ErrorKind = 2
	// CorruptedData means the data ran out before the grammar was satisfied,
	// or a post-decode invariant did not hold. Position is always set.
	CorruptedData ErrorKind = 3
	// InvalidFormat means a fixed marker held an unexpected value.
	InvalidFormat ErrorKind = 4
)

func (k ErrorKind) String() string {
	switch k {
	case InvalidData:
		return "invalid data"
	case UnsupportedVersion:
		return "unsupported version"
	case CorruptedData:
		return "corrupted data"
	case InvalidFormat:
		return "invalid format"
	default:
		return fmt.Sprintf("unknown error kind %d", int(k))
	}
}

// DecodeError is the only error type returned by Decode. Which payload fields
// are meaningful depends on Kind.
type DecodeError struct {
	Kind  ErrorKind
	Stage Stage

	Message  string // InvalidData, CorruptedData
	Position int    // CorruptedData: cursor offset where the problem was detected
	Version  int32  // UnsupportedVersion
	Expected string // InvalidFormat
	Found    string // InvalidFormat

	cause error
}

// Error formats the error. This is the only place a DecodeError becomes text.
func (e *DecodeError) Error() string {
	var s string
	switch e.Kind {
	case InvalidData:
		s = fmt.Sprintf("invalid data: %s", e.Message)
	case UnsupportedVersion:
		s = fmt.Sprintf("unsupported version %d", e.Version)
	case CorruptedData:
		s = fmt.Sprintf("corrupted data at offset %d: %s", e.Position, e.Message)
	case InvalidFormat:
		s = fmt.Sprintf("invalid format: expected %s, found %s", e.Expected, e.Found)
	default:
		s = e.Kind.String()
	}
	if e.Stage != StageStart {
		s = fmt.Sprintf("wld %s: %s", e.Stage, s)
	} else {
		s = "wld: " + s
	}
	return s
}

// Cause returns the underlying error, if any, for github.com/pkg/errors.
func (e *DecodeError) Cause() error { return e.cause }

// Unwrap returns the underlying error, if any.
func (e *DecodeError) Unwrap() error { return e.cause }

// KindOf returns the kind of a *DecodeError found in err's chain, and false if
// there is none.
func KindOf(err error) (ErrorKind, bool) {
	var de *DecodeError
	if errors.As(err, &de) {
		return de.Kind, true
	}
	return 0, false
}

// IsKind reports whether err's chain contains a *DecodeError of kind k.
func IsKind(err error, k ErrorKind) bool {
	got, ok := KindOf(err)
	return ok && got == k
}

func invalidData(stage Stage, format string, args ...interface{}) *DecodeError {
	return &DecodeError{Kind: InvalidData, Stage: stage, Message: fmt.Sprintf(format, args...)}
}

func corrupted(stage Stage, pos int, format string, args ...interface{}) *DecodeError {
	return &DecodeError{Kind: CorruptedData, Stage: stage, Position: pos, Message: fmt.Sprintf(format, args...)}
}

// truncated converts a cursor failure while reading field into CorruptedData.
// Errors that are not cursor overruns are still reported as CorruptedData at
// the given position so the caller only ever sees the closed set.
func truncated(stage Stage, pos int, field string, err error) *DecodeError {
	var oob *bincursor.OutOfBoundsError
	if errors.As(err, &oob) {
		pos = oob.Position
	}
	de := corrupted(stage, pos, "error reading %s: %v", field, err)
	de.cause = err
	return de
}
