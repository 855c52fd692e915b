package sheethappens

import (
	"errors"
	"fmt"

	"github.com/ukaji3/sheethappens-go/pkg/sheethappens/archive"
	"github.com/ukaji3/sheethappens-go/pkg/sheethappens/parser"
	"github.com/ukaji3/sheethappens-go/pkg/sheethappens/xmlcursor"
)

var (
	// ErrCorruptArchive indicates a malformed container or an entry whose
	// content does not match its recorded size or checksum.
	ErrCorruptArchive = archive.ErrCorrupt
	// ErrUnsupportedCompression indicates an entry that is neither stored
	// nor deflated, or is encrypted.
	ErrUnsupportedCompression = archive.ErrUnsupportedCompression
	// ErrNotFound indicates a missing archive entry.
	ErrNotFound = archive.ErrNotFound
	// ErrMalformedXML indicates unparseable markup in a part.
	ErrMalformedXML = xmlcursor.ErrMalformed
	// ErrMissingPart indicates a declared sheet without a resolvable part.
	ErrMissingPart = parser.ErrMissingPart
	// ErrIndexOutOfRange indicates a shared string reference beyond the
	// table. It is reported on the cell, not returned by the reader.
	ErrIndexOutOfRange = parser.ErrIndexOutOfRange
)

// ErrSheetNotFound indicates an unknown sheet name or position.
var ErrSheetNotFound = errors.New("sheet not found")

// PartError reports a failure while reading one part of the package.
type PartError struct {
	// Sheet is the sheet the part belongs to, or "" for workbook parts.
	Sheet string
	// Part is the package path of the part.
	Part string
	Err  error
}

func (e *PartError) Error() string {
	if e.Sheet == "" {
		return fmt.Sprintf("%s: %v", e.Part, e.Err)
	}
	return fmt.Sprintf("sheet %q (%s): %v", e.Sheet, e.Part, e.Err)
}

func (e *PartError) Unwrap() error {
	return e.Err
}

func partError(sheet, part string, err error) error {
	var pe *PartError
	if errors.As(err, &pe) {
		return err
	}
	return &PartError{Sheet: sheet, Part: part, Err: err}
}
