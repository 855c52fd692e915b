package sheethappens

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"iter"
	"log/slog"
	"path/filepath"
	"strconv"

	"github.com/ukaji3/sheethappens-go/pkg/sheethappens/archive"
	"github.com/ukaji3/sheethappens-go/pkg/sheethappens/models"
	"github.com/ukaji3/sheethappens-go/pkg/sheethappens/parser"
)

// Visibility is the display state of a sheet.
type Visibility = parser.Visibility

// Sheet visibility states.
const (
	Visible    = parser.Visible
	Hidden     = parser.Hidden
	VeryHidden = parser.VeryHidden
)

// Book is an opened workbook. The manifest, shared strings and styles are
// parsed once by Open and never modified, so a Book may be read from
// several goroutines. Sheet rows are streamed from the package on demand.
type Book struct {
	zr       *archive.Reader
	name     string
	manifest *parser.Manifest
	res      parser.Resolver
	opts     Options
	log      *slog.Logger
	sheets   []*Sheet
}

// Open opens the workbook at path. The caller must Close the Book.
func Open(path string, opts ...Option) (*Book, error) {
	zr, err := archive.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	b, err := newBook(zr, filepath.Base(path), buildOptions(opts))
	if err != nil {
		zr.Close()
		return nil, err
	}
	return b, nil
}

// OpenReader opens a workbook of size bytes read through r.
func OpenReader(r io.ReaderAt, size int64, opts ...Option) (*Book, error) {
	zr, err := archive.NewReader(r, size)
	if err != nil {
		return nil, err
	}
	return newBook(zr, "", buildOptions(opts))
}

// OpenBytes opens a workbook held in memory.
func OpenBytes(data []byte, opts ...Option) (*Book, error) {
	return OpenReader(bytes.NewReader(data), int64(len(data)), opts...)
}

func newBook(zr *archive.Reader, name string, opts Options) (*Book, error) {
	b := &Book{zr: zr, name: name, opts: opts, log: opts.logger()}

	wbPart := parser.DefaultWorkbookPart
	if zr.Has(parser.PackageRelsPart) {
		err := b.withPart("", parser.PackageRelsPart, func(r io.Reader) (err error) {
			wbPart, err = parser.WorkbookPart(r)
			return err
		})
		if err != nil {
			return nil, err
		}
	}

	wb, err := zr.ReadEntry(wbPart)
	if err != nil {
		return nil, partError("", wbPart, err)
	}
	var rels io.Reader
	relsPart := parser.RelsPartFor(wbPart)
	if zr.Has(relsPart) {
		data, err := zr.ReadEntry(relsPart)
		if err != nil {
			return nil, partError("", relsPart, err)
		}
		rels = bytes.NewReader(data)
	}
	if b.manifest, err = parser.ParseManifest(bytes.NewReader(wb), rels, wbPart); err != nil {
		return nil, partError("", wbPart, err)
	}
	b.res.Epoch = b.manifest.Epoch

	if part := b.manifest.SharedStringsPart; zr.Has(part) {
		err := b.withPart("", part, func(r io.Reader) (err error) {
			b.res.Strings, err = parser.ParseSharedStrings(r)
			return err
		})
		if err != nil {
			return nil, err
		}
	}
	if part := b.manifest.StylesPart; zr.Has(part) {
		err := b.withPart("", part, func(r io.Reader) (err error) {
			b.res.Styles, err = parser.ParseStyles(r)
			return err
		})
		if err != nil {
			return nil, err
		}
	}

	for _, info := range b.manifest.Sheets {
		b.sheets = append(b.sheets, &Sheet{book: b, info: info})
	}
	b.log.Debug("workbook opened",
		"book", name,
		"entries", len(zr.Entries()),
		"sheets", len(b.sheets),
		"epoch", b.manifest.Epoch,
		"shared_strings", b.res.Strings.Len(),
		"styles", b.res.Styles.Len())
	return b, nil
}

// withPart streams the named entry through fn, wrapping any failure in a
// PartError.
func (b *Book) withPart(sheet, part string, fn func(io.Reader) error) error {
	rc, err := b.zr.OpenEntry(part)
	if err != nil {
		return partError(sheet, part, err)
	}
	defer rc.Close()
	if err := fn(rc); err != nil {
		return partError(sheet, part, err)
	}
	return nil
}

// Close releases the underlying file.
func (b *Book) Close() error {
	return b.zr.Close()
}

// Name returns the file name the workbook was opened from, if any.
func (b *Book) Name() string { return b.name }

// Epoch returns the workbook's serial date origin.
func (b *Book) Epoch() models.DateEpoch { return b.manifest.Epoch }

// SheetNames returns the sheet names in workbook order, hidden sheets
// included.
func (b *Book) SheetNames() []string {
	names := make([]string, len(b.sheets))
	for i, s := range b.sheets {
		names[i] = s.info.Name
	}
	return names
}

// Sheets returns every sheet in workbook order.
func (b *Book) Sheets() []*Sheet {
	return append([]*Sheet(nil), b.sheets...)
}

// Sheet returns the sheet called name.
func (b *Book) Sheet(name string) (*Sheet, error) {
	info, ok := b.manifest.SheetByName(name)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrSheetNotFound, name)
	}
	return b.sheets[info.Position-1], nil
}

// SheetAt returns the sheet at the 1-based position pos.
func (b *Book) SheetAt(pos int) (*Sheet, error) {
	if pos < 1 || pos > len(b.sheets) {
		return nil, fmt.Errorf("%w: position %d of %d", ErrSheetNotFound, pos, len(b.sheets))
	}
	return b.sheets[pos-1], nil
}

// Find returns the sheet called ref or, when no sheet has that name and
// ref is a number, the sheet at that 1-based position.
func (b *Book) Find(ref string) (*Sheet, error) {
	s, err := b.Sheet(ref)
	if err == nil {
		return s, nil
	}
	if pos, perr := strconv.Atoi(ref); perr == nil {
		return b.SheetAt(pos)
	}
	return nil, err
}

// Sheet is one worksheet of a Book.
type Sheet struct {
	book *Book
	info parser.SheetInfo
}

// Name returns the sheet's display name.
func (s *Sheet) Name() string { return s.info.Name }

// Position returns the sheet's 1-based position in the workbook.
func (s *Sheet) Position() int { return s.info.Position }

// Visibility returns the sheet's display state.
func (s *Sheet) Visibility() Visibility { return s.info.Visibility }

// Part returns the package path of the sheet's data, or "" when the
// workbook relationships do not name one.
func (s *Sheet) Part() string { return s.info.Part }

// Entry returns the archive entry holding the sheet's data.
func (s *Sheet) Entry() (archive.Entry, bool) {
	if s.info.Part == "" {
		return archive.Entry{}, false
	}
	return s.book.zr.Lookup(s.info.Part)
}

// Rows starts a new pass over the sheet. Each call streams the part again;
// the caller must Close the returned reader.
func (s *Sheet) Rows() (*RowReader, error) {
	part, err := s.book.manifest.PartFor(s.info, s.book.zr.Has)
	if err != nil {
		return nil, partError(s.info.Name, s.info.Part, err)
	}

	var width int
	err = s.book.withPart(s.info.Name, part, func(r io.Reader) (err error) {
		width, err = parser.ScanWidth(r)
		return err
	})
	if err != nil {
		return nil, err
	}

	rc, err := s.book.zr.OpenEntry(part)
	if err != nil {
		return nil, partError(s.info.Name, part, err)
	}
	rr := parser.NewRowReader(rc, s.book.res, width, parser.RowOptions{
		KeepEmptyRows: s.book.opts.ShouldKeepEmptyRows(),
		Logger:        s.book.log.With("sheet", s.info.Name),
	})
	return &RowReader{rr: rr, sheet: s.info.Name, part: part}, nil
}

// All iterates over the sheet's rows. Iteration stops at the first error,
// which is yielded with a zero Row.
func (s *Sheet) All() iter.Seq2[models.Row, error] {
	return func(yield func(models.Row, error) bool) {
		rr, err := s.Rows()
		if err != nil {
			yield(models.Row{}, err)
			return
		}
		defer rr.Close()
		for {
			row, err := rr.Next()
			if errors.Is(err, io.EOF) {
				return
			}
			if err != nil {
				yield(models.Row{}, err)
				return
			}
			if !yield(row, nil) {
				return
			}
		}
	}
}

// ReadAll returns every row of the sheet.
func (s *Sheet) ReadAll() ([]models.Row, error) {
	rows, _, err := s.readRows()
	return rows, err
}

// RowReader streams the rows of one pass over a sheet.
type RowReader struct {
	rr          *parser.RowReader
	sheet, part string
}

// Next returns the next row, or io.EOF after the last one.
func (r *RowReader) Next() (models.Row, error) {
	row, err := r.rr.Next()
	if err != nil && !errors.Is(err, io.EOF) {
		return row, partError(r.sheet, r.part, err)
	}
	return row, err
}

// Width returns the number of cells in every row.
func (r *RowReader) Width() int { return r.rr.Width() }

// Close stops the pass and releases the part reader.
func (r *RowReader) Close() error { return r.rr.Close() }
