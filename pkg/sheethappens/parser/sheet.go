package parser

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strconv"

	"github.com/ukaji3/sheethappens-go/pkg/sheethappens/models"
	"github.com/ukaji3/sheethappens-go/pkg/sheethappens/xmlcursor"
)

// RowOptions tunes a RowReader.
type RowOptions struct {
	// KeepEmptyRows emits an all-null row for every row number skipped by
	// the part, so that Row.Num always increases by one.
	KeepEmptyRows bool
	// Logger receives a debug record for every cell that fails to resolve.
	Logger *slog.Logger
}

// ScanWidth streams a sheet part and returns the number of columns needed
// to hold its widest row: the largest column index of any cell plus one.
// Reading stops at the end of <sheetData>.
func ScanWidth(r io.Reader) (int, error) {
	c := xmlcursor.New(r)
	width, col := 0, -1
	inData := false
	for {
		tok, err := c.Next()
		if err != nil {
			return 0, err
		}
		switch {
		case tok.Kind == xmlcursor.EOF, tok.Is(xmlcursor.EndElement, "sheetData"):
			return width, nil
		case tok.Is(xmlcursor.StartElement, "sheetData"):
			inData = true
		case !inData:
		case tok.Is(xmlcursor.StartElement, "row"):
			col = -1
		case tok.Is(xmlcursor.StartElement, "c"):
			col = cellColumn(tok, col)
			if col+1 > width {
				width = col + 1
			}
			if err := c.Skip(); err != nil {
				return 0, err
			}
		}
	}
}

// cellColumn returns the 0-based column of a <c> element, following prev
// when the element has no usable reference.
func cellColumn(tok xmlcursor.Token, prev int) int {
	if ref, ok := tok.AttrLocal("r"); ok {
		if col, _, err := models.ParseRef(ref); err == nil {
			return col
		}
	}
	return prev + 1
}

// RowReader produces the rows of one sheet part in document order. Every
// row has exactly the width given to NewRowReader; missing cells are Null.
type RowReader struct {
	src   io.ReadCloser
	c     *xmlcursor.Cursor
	res   Resolver
	width int
	opts  RowOptions

	inData  bool
	lastNum int
	pending *models.Row
	done    bool
	err     error
}

// NewRowReader reads rows from a sheet part. width is normally the result
// of ScanWidth over the same part. Closing the RowReader closes src.
func NewRowReader(src io.ReadCloser, res Resolver, width int, opts RowOptions) *RowReader {
	return &RowReader{
		src:   src,
		c:     xmlcursor.New(src),
		res:   res,
		width: width,
		opts:  opts,
	}
}

// Width returns the number of cells in every row.
func (rr *RowReader) Width() int { return rr.width }

// Close releases the underlying part reader.
func (rr *RowReader) Close() error {
	rr.done = true
	if rr.src == nil {
		return nil
	}
	err := rr.src.Close()
	rr.src = nil
	return err
}

// Next returns the next row, or io.EOF after the last one. Any other error
// ends the iteration and is returned again by later calls.
func (rr *RowReader) Next() (models.Row, error) {
	if rr.err != nil {
		return models.Row{}, rr.err
	}
	if rr.pending != nil {
		if rr.opts.KeepEmptyRows && rr.lastNum+1 < rr.pending.Num {
			return rr.emit(rr.emptyRow(rr.lastNum + 1)), nil
		}
		row := *rr.pending
		rr.pending = nil
		return rr.emit(row), nil
	}
	if rr.done {
		return models.Row{}, io.EOF
	}

	row, err := rr.readRow()
	if err != nil {
		if !errors.Is(err, io.EOF) {
			rr.err = err
		}
		return models.Row{}, err
	}
	if rr.opts.KeepEmptyRows && rr.lastNum+1 < row.Num {
		rr.pending = &row
		return rr.emit(rr.emptyRow(rr.lastNum + 1)), nil
	}
	return rr.emit(row), nil
}

func (rr *RowReader) emit(row models.Row) models.Row {
	if row.Num > rr.lastNum {
		rr.lastNum = row.Num
	}
	return row
}

func (rr *RowReader) emptyRow(num int) models.Row {
	row := models.Row{Num: num, Cells: make([]models.Cell, rr.width)}
	for i := range row.Cells {
		row.Cells[i].Col = i
	}
	return row
}

// readRow advances to the next <row> of <sheetData> and reads it.
func (rr *RowReader) readRow() (models.Row, error) {
	for {
		tok, err := rr.c.Next()
		if err != nil {
			return models.Row{}, err
		}
		switch tok.Kind {
		case xmlcursor.EOF:
			rr.done = true
			return models.Row{}, io.EOF
		case xmlcursor.EndElement:
			if tok.Local() == "sheetData" {
				// Nothing after the cell data is needed.
				rr.done = true
				return models.Row{}, io.EOF
			}
		case xmlcursor.StartElement:
			switch name := tok.Local(); {
			case name == "sheetData":
				rr.inData = true
			case name == "row" && rr.inData:
				return rr.parseRow(tok)
			case name != "worksheet":
				if err := rr.c.Skip(); err != nil {
					return models.Row{}, err
				}
			}
		}
	}
}

func (rr *RowReader) parseRow(start xmlcursor.Token) (models.Row, error) {
	num := rr.lastNum + 1
	if v, ok := start.AttrLocal("r"); ok {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			num = n
		}
	}
	row := rr.emptyRow(num)
	col := -1
	for {
		tok, err := rr.c.Next()
		if err != nil {
			return models.Row{}, err
		}
		switch tok.Kind {
		case xmlcursor.EndElement:
			return row, nil
		case xmlcursor.StartElement:
			if tok.Local() != "c" {
				if err := rr.c.Skip(); err != nil {
					return models.Row{}, err
				}
				continue
			}
			col = cellColumn(tok, col)
			cell, err := rr.parseCell(tok, col, num)
			if err != nil {
				return models.Row{}, err
			}
			for col >= len(row.Cells) {
				row.Cells = append(row.Cells, models.Cell{Col: len(row.Cells)})
			}
			row.Cells[col] = cell
			if cell.Err != nil && rr.opts.Logger != nil {
				rr.opts.Logger.Debug("cell not resolved", "cell", models.Ref(col, num), "error", cell.Err)
			}
		}
	}
}

func (rr *RowReader) parseCell(start xmlcursor.Token, col, num int) (models.Cell, error) {
	cell := models.Cell{Col: col}
	cell.Type, _ = start.AttrLocal("t")
	if v, ok := start.AttrLocal("s"); ok {
		cell.Style, _ = strconv.Atoi(v)
	}

	var raw, inline string
	var hasValue, hasInline bool
	for {
		tok, err := rr.c.Next()
		if err != nil {
			return cell, err
		}
		if tok.Kind == xmlcursor.EndElement {
			break
		}
		if tok.Kind != xmlcursor.StartElement {
			continue
		}
		switch tok.Local() {
		case "v":
			if raw, err = rr.c.ReadText(); err != nil {
				return cell, err
			}
			hasValue = true
		case "is":
			if inline, err = readStringItem(rr.c); err != nil {
				return cell, err
			}
			hasInline = true
		default:
			// Formulas are not evaluated; only the cached <v> matters.
			if err := rr.c.Skip(); err != nil {
				return cell, err
			}
		}
	}
	if hasInline && (cell.Type == TypeInlineString || !hasValue) {
		raw, hasValue = inline, true
	}

	v, kind, err := rr.res.Resolve(cell.Type, cell.Style, raw, hasValue)
	cell.Value, cell.Kind = v, kind
	if err != nil {
		cell.Err = fmt.Errorf("cell %s: %w", models.Ref(col, num), err)
	}
	return cell, nil
}
