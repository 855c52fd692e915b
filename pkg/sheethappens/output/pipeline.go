package output

import (
	"strings"

	"github.com/ukaji3/sheethappens-go/pkg/sheethappens/models"
)

// Sanitize trims s and joins its non-blank lines with single spaces.
func Sanitize(s string) string {
	var parts []string
	for line := range strings.Lines(s) {
		if line = strings.TrimSpace(line); line != "" {
			parts = append(parts, line)
		}
	}
	return strings.Join(parts, " ")
}

// value applies the error policy and sanitizing to v.
func (c Config) value(v models.Value) models.Value {
	switch v.Tag() {
	case models.ErrorTag:
		if c.Errors == ErrorsAsNull {
			return models.Null
		}
	case models.StringTag:
		if c.Sanitize {
			s, _ := v.Str()
			return models.StringValue(Sanitize(s))
		}
	}
	return v
}

func (c Config) row(row models.Row) models.Row {
	if !c.Sanitize && c.Errors != ErrorsAsNull {
		return row
	}
	cells := make([]models.Cell, len(row.Cells))
	for i, cell := range row.Cells {
		cell.Value = c.value(cell.Value)
		cells[i] = cell
	}
	return models.Row{Num: row.Num, Cells: cells}
}

// scan streams src through the cell policy. Unless NoHeader is set the
// first row is passed to header (which may be nil) and names the fields of
// the data rows; the remaining rows that survive IgnoreEmpty and Filter go
// to emit with those names.
func (c Config) scan(src Source, header func(models.Row) error, emit func(models.Row, []string) error) error {
	var names []string
	first := !c.NoHeader
	for row, err := range src.All() {
		if err != nil {
			return err
		}
		row = c.row(row)
		if first {
			first = false
			names = models.FieldNames(row)
			if header != nil {
				if err := header(row); err != nil {
					return err
				}
			}
			continue
		}
		if c.IgnoreEmpty && row.Empty() {
			continue
		}
		if c.Filter != nil {
			ok, err := c.Filter.Match(row, names)
			if err != nil {
				return err
			}
			if !ok {
				continue
			}
		}
		if err := emit(row, names); err != nil {
			return err
		}
	}
	return nil
}
