package models

// WorkbookData is the whole-workbook dump.
type WorkbookData struct {
	// BookName is the workbook file name (no path).
	BookName string `json:"book_name"`
	// Epoch is the serial date origin, "1900" or "1904".
	Epoch string `json:"epoch"`
	// Sheets holds the sheets in workbook order.
	Sheets []SheetData `json:"sheets"`
}

// Sheet returns the sheet called name.
func (wb *WorkbookData) Sheet(name string) (*SheetData, bool) {
	for i := range wb.Sheets {
		if wb.Sheets[i].Name == name {
			return &wb.Sheets[i], true
		}
	}
	return nil, false
}
