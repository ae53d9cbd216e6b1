package mcg

import (
	"errors"
	"fmt"
	"strings"
)

// ErrFormat matches every *FormatError via errors.Is.
var ErrFormat = errors.New("mcg format error")

// FormatError reports a document that cannot be decoded: missing or
// unsupported version, a structurally malformed field, or a callee
// reference that names no declared node.
type FormatError struct {
	Field   string // offending location, e.g. `_CG["main"].hasBody`
	Version string // schema version in effect, if known
	Msg     string
	Err     error
}

func (e *FormatError) Error() string {
	var b strings.Builder
	b.WriteString("mcg format")
	if e.Version != "" {
		fmt.Fprintf(&b, " (version %s)", e.Version)
	}
	if e.Field != "" {
		fmt.Fprintf(&b, ": field %s", e.Field)
	}
	b.WriteString(": ")
	b.WriteString(e.Msg)
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

func (e *FormatError) Unwrap() error { return e.Err }

func (e *FormatError) Is(target error) bool { return target == ErrFormat }

func formatErrorf(field, format string, args ...any) *FormatError {
	return &FormatError{Field: field, Msg: fmt.Sprintf(format, args...)}
}

// withVersion stamps the version onto a FormatError that has none yet.
func withVersion(err error, version string) error {
	var fe *FormatError
	if errors.As(err, &fe) && fe.Version == "" {
		fe.Version = version
	}
	return err
}
