package codec

import (
	"errors"
	"fmt"
)

// ErrFormat is matched by every FormatError.
var ErrFormat = errors.New("malformed binary data")

// FormatError reports a truncated or malformed field.
type FormatError struct {
	Field  string // what was being read
	Offset int    // cursor position when the read started
	Need   int    // bytes required
	Have   int    // bytes available
	Reason string // set for malformed (not truncated) values
}

func (e *FormatError) Error() string {
	if e.Reason != "" {
		return fmt.Sprintf("%v: %s at offset %d: %s", ErrFormat, e.Field, e.Offset, e.Reason)
	}
	return fmt.Sprintf("%v: reading %s at offset %d: need %d bytes, have %d",
		ErrFormat, e.Field, e.Offset, e.Need, e.Have)
}

// Is reports whether target is ErrFormat.
func (e *FormatError) Is(target error) bool {
	return target == ErrFormat
}
