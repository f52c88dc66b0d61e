package ico

import (
	"errors"
	"fmt"
)

var (
	// ErrArgument is matched by every *ArgumentError through errors.Is.
	ErrArgument = errors.New("ico: invalid argument")
	// ErrFormat is matched by every *FormatError through errors.Is.
	ErrFormat = errors.New("ico: invalid format")
)

// ArgumentError reports a misuse of the API by the caller: a nil sink or source,
// a sink which cannot seek, or a container too large for the file format.
type ArgumentError struct {
	Op  string
	Msg string
}

func (e *ArgumentError) Error() string {
	return fmt.Sprintf("ico: %s: %s", e.Op, e.Msg)
}

// Is makes errors.Is(err, ErrArgument) report true.
func (e *ArgumentError) Is(target error) bool {
	return target == ErrArgument
}

// FormatError reports a structural problem found while parsing an icon file.
// Offset is the byte position (from the file start) where the problem was detected.
type FormatError struct {
	Offset int64
	Msg    string
}

func (e *FormatError) Error() string {
	return fmt.Sprintf("ico: malformed file at offset %d: %s", e.Offset, e.Msg)
}

// Is makes errors.Is(err, ErrFormat) report true.
func (e *FormatError) Is(target error) bool {
	return target == ErrFormat
}

func argumentError(op, format string, args ...any) error {
	return &ArgumentError{Op: op, Msg: fmt.Sprintf(format, args...)}
}

func formatError(offset int64, format string, args ...any) error {
	return &FormatError{Offset: offset, Msg: fmt.Sprintf(format, args...)}
}
