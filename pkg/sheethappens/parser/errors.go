package parser

import "errors"

// ErrIndexOutOfRange reports a shared string reference beyond the table.
var ErrIndexOutOfRange = errors.New("shared string index out of range")

// ErrMissingPart reports a sheet whose relationship or archive entry
// cannot be resolved.
var ErrMissingPart = errors.New("missing part")
