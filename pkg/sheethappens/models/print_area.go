package models

// PrintArea represents cell coordinate bounds for a print area.
type PrintArea struct {
	// R1 is the start row (1-based).
	R1 int `json:"r1"`
	// C1 is the start column (1-based).
	C1 int `json:"c1"`
	// R2 is the end row (1-based, inclusive).
	R2 int `json:"r2"`
	// C2 is the end column (1-based, inclusive).
	C2 int `json:"c2"`
}

// Contains reports whether the 1-based row and column lie inside the area.
func (a PrintArea) Contains(row, col int) bool {
	return row >= a.R1 && row <= a.R2 && col >= a.C1 && col <= a.C2
}

// PrintAreaView represents a slice of a sheet restricted to a print area.
type PrintAreaView struct {
	// BookName is the workbook name owning the area.
	BookName string `json:"book_name"`
	// SheetName is the sheet name owning the area.
	SheetName string `json:"sheet_name"`
	// Area is the print area bounds.
	Area PrintArea `json:"area"`
	// Rows contains the cells within the area bounds.
	Rows []CellRow `json:"rows,omitempty"`
}

// NewPrintAreaView keeps the cells of sheet that fall inside area.
func NewPrintAreaView(bookName string, sheet SheetData, area PrintArea) PrintAreaView {
	view := PrintAreaView{BookName: bookName, SheetName: sheet.Name, Area: area}
	for _, row := range sheet.Rows {
		if row.R < area.R1 || row.R > area.R2 {
			continue
		}
		cr := CellRow{R: row.R}
		for letters, v := range row.C {
			col, err := ColumnIndex(letters)
			if err != nil || !area.Contains(row.R, col+1) {
				continue
			}
			if cr.C == nil {
				cr.C = make(map[string]Value)
			}
			cr.C[letters] = v
		}
		if cr.C != nil {
			view.Rows = append(view.Rows, cr)
		}
	}
	return view
}
