package models

import (
	"errors"
	"fmt"
	"strconv"
)

// MaxColumns is the widest sheet a spreadsheet application can produce
// (column XFD).
const MaxColumns = 16384

// MaxRows is the tallest sheet a spreadsheet application can produce.
const MaxRows = 1048576

// ErrInvalidRef reports a malformed A1-style reference.
var ErrInvalidRef = errors.New("invalid cell reference")

// ColumnName converts a 0-based column index to letters: 0 is "A", 26 "AA".
func ColumnName(col int) string {
	if col < 0 {
		return ""
	}
	var buf [8]byte
	i := len(buf)
	for n := col + 1; n > 0; n = (n - 1) / 26 {
		i--
		buf[i] = byte('A' + (n-1)%26)
	}
	return string(buf[i:])
}

// ColumnIndex converts column letters (any case) to a 0-based index.
func ColumnIndex(letters string) (int, error) {
	if letters == "" {
		return 0, fmt.Errorf("%w: empty column", ErrInvalidRef)
	}
	n := 0
	for i := 0; i < len(letters); i++ {
		c := letters[i]
		switch {
		case 'A' <= c && c <= 'Z':
			n = n*26 + int(c-'A') + 1
		case 'a' <= c && c <= 'z':
			n = n*26 + int(c-'a') + 1
		default:
			return 0, fmt.Errorf("%w: column %q", ErrInvalidRef, letters)
		}
		if n > MaxColumns {
			return 0, fmt.Errorf("%w: column %q beyond %d", ErrInvalidRef, letters, MaxColumns)
		}
	}
	return n - 1, nil
}

// ParseRef splits an A1-style reference such as "B12" or "$B$12" into a
// 0-based column and a 1-based row.
func ParseRef(ref string) (col, row int, err error) {
	s := ref
	if len(s) > 0 && s[0] == '$' {
		s = s[1:]
	}
	i := 0
	for i < len(s) && (('A' <= s[i] && s[i] <= 'Z') || ('a' <= s[i] && s[i] <= 'z')) {
		i++
	}
	if i == 0 {
		return 0, 0, fmt.Errorf("%w: %q", ErrInvalidRef, ref)
	}
	if col, err = ColumnIndex(s[:i]); err != nil {
		return 0, 0, err
	}
	digits := s[i:]
	if len(digits) > 0 && digits[0] == '$' {
		digits = digits[1:]
	}
	row, err = strconv.Atoi(digits)
	if err != nil || row < 1 || row > MaxRows || digits[0] == '+' {
		return 0, 0, fmt.Errorf("%w: %q", ErrInvalidRef, ref)
	}
	return col, row, nil
}

// Ref formats a 0-based column and 1-based row as an A1-style reference.
func Ref(col, row int) string {
	return ColumnName(col) + strconv.Itoa(row)
}
