// Package models defines the row-oriented data extracted from a workbook.
package models

import (
	"bytes"
	"strconv"
	"strings"
)

// Cell is one resolved cell of a row.
type Cell struct {
	// Col is the 0-based column index.
	Col int
	// Value is the resolved value.
	Value Value
	// Style is the cell format index from the s attribute.
	Style int
	// Type is the raw t attribute ("" when absent).
	Type string
	// Kind is the value kind derived from Style.
	Kind ValueKind
	// Err is set when the cell could not be resolved, for example an
	// out-of-range shared string index. Value is Null in that case.
	Err error
}

// Ref returns the A1-style reference of the cell in row.
func (c Cell) Ref(row int) string {
	return Ref(c.Col, row)
}

// Row is an ordered, gap-free sequence of cells.
type Row struct {
	// Num is the 1-based row number in the sheet.
	Num int
	// Cells holds one cell per column from A up to the sheet width.
	Cells []Cell
}

// Len returns the number of cells.
func (r Row) Len() int { return len(r.Cells) }

// Values returns the cell values in column order.
func (r Row) Values() []Value {
	vals := make([]Value, len(r.Cells))
	for i, c := range r.Cells {
		vals[i] = c.Value
	}
	return vals
}

// At returns the value at the 0-based column, or Null when out of range.
func (r Row) At(col int) Value {
	if col < 0 || col >= len(r.Cells) {
		return Null
	}
	return r.Cells[col].Value
}

// Col returns the value in the column named by letters ("A", "AB").
func (r Row) Col(letters string) Value {
	col, err := ColumnIndex(letters)
	if err != nil {
		return Null
	}
	return r.At(col)
}

// Empty reports whether every cell is Null.
func (r Row) Empty() bool {
	for _, c := range r.Cells {
		if !c.Value.IsNull() {
			return false
		}
	}
	return true
}

// Errors returns the resolution errors of the row's cells.
func (r Row) Errors() []error {
	var errs []error
	for _, c := range r.Cells {
		if c.Err != nil {
			errs = append(errs, c.Err)
		}
	}
	return errs
}

// Field is one named value of a Record.
type Field struct {
	Name  string
	Value Value
}

// Record is a row projected onto field names, in column order.
type Record []Field

// Get returns the value of the named field.
func (rec Record) Get(name string) (Value, bool) {
	for _, f := range rec {
		if f.Name == name {
			return f.Value, true
		}
	}
	return Null, false
}

// Map returns the record as plain Go values keyed by field name.
func (rec Record) Map() map[string]any {
	m := make(map[string]any, len(rec))
	for _, f := range rec {
		m[f.Name] = f.Value.Interface()
	}
	return m
}

// MarshalJSON encodes the record as an object whose keys keep column order.
func (rec Record) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, f := range rec {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := marshalString(f.Name)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		val, err := f.Value.MarshalJSON()
		if err != nil {
			return nil, err
		}
		buf.Write(val)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// FieldNames derives record field names from a header row. Blank headers
// take the column letter and repeated names get a numeric suffix, so the
// result is unique and has one name per header cell.
func FieldNames(header Row) []string {
	names := make([]string, len(header.Cells))
	seen := make(map[string]int, len(header.Cells))
	for i, c := range header.Cells {
		name := strings.TrimSpace(c.Value.String())
		if name == "" {
			name = ColumnName(i)
		}
		if n := seen[name]; n > 0 {
			for {
				n++
				next := name + "_" + strconv.Itoa(n)
				if seen[next] == 0 {
					seen[name] = n
					name = next
					break
				}
			}
		}
		seen[name]++
		names[i] = name
	}
	return names
}

// AsRecord projects r onto the field names of header. Cells beyond the
// header width are named by their column letter.
func (r Row) AsRecord(header Row) Record {
	return r.Project(FieldNames(header))
}

// Project names r's cells with names computed once by FieldNames.
func (r Row) Project(names []string) Record {
	rec := make(Record, len(r.Cells))
	for i, c := range r.Cells {
		name := ""
		if i < len(names) {
			name = names[i]
		} else {
			name = ColumnName(i)
		}
		rec[i] = Field{Name: name, Value: c.Value}
	}
	return rec
}
