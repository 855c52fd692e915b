package models

// CellRow is the sparse form of a row used by workbook dumps: only non-null
// cells are kept, keyed by column letter.
type CellRow struct {
	// R is the row number (1-based).
	R int `json:"r"`
	// C maps column letters to cell values.
	C map[string]Value `json:"c"`
}

// SparseRow converts a positional row, or returns false when it has no
// non-null cells.
func SparseRow(row Row) (CellRow, bool) {
	cr := CellRow{R: row.Num}
	for _, c := range row.Cells {
		if c.Value.IsNull() {
			continue
		}
		if cr.C == nil {
			cr.C = make(map[string]Value)
		}
		cr.C[ColumnName(c.Col)] = c.Value
	}
	return cr, cr.C != nil
}

// SheetData is the extracted content of one sheet.
type SheetData struct {
	// Name is the sheet display name.
	Name string `json:"name"`
	// Position is the 1-based position in the workbook.
	Position int `json:"position"`
	// Visibility is "visible", "hidden" or "veryHidden".
	Visibility string `json:"visibility"`
	// Width is the number of columns of every row.
	Width int `json:"width"`
	// Rows contains the non-empty rows.
	Rows []CellRow `json:"rows,omitempty"`
	// TableCandidates contains cell ranges likely representing tables.
	TableCandidates []string `json:"table_candidates,omitempty"`
	// PrintAreas contains user-defined print areas.
	PrintAreas []PrintArea `json:"print_areas,omitempty"`
	// Error describes why the sheet could not be read.
	Error string `json:"error,omitempty"`
}
