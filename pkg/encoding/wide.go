// Package encoding provides text encoding utilities for the client's data formats.
package encoding

import (
	"bytes"
	"strings"

	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

// utf16LE is the wide-string encoding used by region, set and tabular containers.
var utf16LE = unicode.UTF16(unicode.LittleEndian, unicode.IgnoreBOM)

// UTF16LEToString converts UTF-16LE encoded bytes to a UTF-8 string.
// Returns the bytes as-is if conversion fails.
func UTF16LEToString(data []byte) string {
	result, _, err := transform.Bytes(utf16LE.NewDecoder(), data)
	if err != nil {
		return string(data)
	}
	return string(result)
}

// StringToUTF16LE converts a UTF-8 string to UTF-16LE encoded bytes.
func StringToUTF16LE(s string) ([]byte, error) {
	result, _, err := transform.Bytes(utf16LE.NewEncoder(), []byte(s))
	if err != nil {
		return nil, err
	}
	return result, nil
}

// DecodeText converts a text file to UTF-8. A UTF-8 or UTF-16 byte order
// mark selects the encoding; without one the data is taken as UTF-8.
func DecodeText(data []byte) string {
	result, _, err := transform.Bytes(unicode.BOMOverride(unicode.UTF8.NewDecoder()), data)
	if err != nil {
		return string(data)
	}
	return string(result)
}

// HasBOM reports whether data starts with a UTF-8 or UTF-16 byte order mark.
func HasBOM(data []byte) bool {
	return bytes.HasPrefix(data, []byte{0xEF, 0xBB, 0xBF}) ||
		bytes.HasPrefix(data, []byte{0xFF, 0xFE}) ||
		bytes.HasPrefix(data, []byte{0xFE, 0xFF})
}

// NormalizePath normalizes a data path for case-insensitive lookup.
// The client mixes backslashes and mixed-case names in its references.
func NormalizePath(path string) string {
	path = strings.ReplaceAll(path, "\\", "/")
	return strings.ToLower(path)
}

// TrimNullString removes everything from the first null byte and converts to string.
func TrimNullString(data []byte) string {
	if idx := bytes.IndexByte(data, 0); idx >= 0 {
		data = data[:idx]
	}
	return string(data)
}

// StringToFixed converts s to a null-padded byte array of the given size.
// Strings longer than size-1 are truncated so a terminator always remains.
func StringToFixed(s string, size int) []byte {
	result := make([]byte, size)
	if size == 0 {
		return result
	}
	b := []byte(s)
	if len(b) > size-1 {
		b = b[:size-1]
	}
	copy(result, b)
	return result
}
