package sheethappens

import (
	"errors"
	"io"

	"github.com/ukaji3/sheethappens-go/pkg/sheethappens/models"
	"github.com/ukaji3/sheethappens-go/pkg/sheethappens/parser"
)

// Extract reads every sheet of the workbook at path into memory.
//
// A sheet that cannot be read does not fail the extraction; its error is
// recorded in SheetData.Error and the remaining sheets are still read.
func Extract(path string, opts ...Option) (*models.WorkbookData, error) {
	b, err := Open(path, opts...)
	if err != nil {
		return nil, err
	}
	defer b.Close()
	return b.Extract(), nil
}

// Extract reads every sheet of b into memory.
func (b *Book) Extract() *models.WorkbookData {
	wb := &models.WorkbookData{
		BookName: b.name,
		Epoch:    b.Epoch().String(),
		Sheets:   make([]models.SheetData, 0, len(b.sheets)),
	}

	var areas map[string][]models.PrintArea
	if b.opts.ShouldIncludePrintAreas() {
		areas = b.manifest.PrintAreas()
	}

	for _, s := range b.sheets {
		sd := models.SheetData{
			Name:       s.Name(),
			Position:   s.Position(),
			Visibility: string(s.Visibility()),
			PrintAreas: areas[s.Name()],
		}
		rows, width, err := s.readRows()
		if err != nil {
			b.log.Warn("sheet skipped", "sheet", s.Name(), "error", err)
			sd.Error = err.Error()
			wb.Sheets = append(wb.Sheets, sd)
			continue
		}
		sd.Width = width
		for _, row := range rows {
			if cr, ok := models.SparseRow(row); ok {
				sd.Rows = append(sd.Rows, cr)
			}
		}
		if b.opts.ShouldIncludeTables() {
			sd.TableCandidates = parser.DetectTables(rows, parser.DefaultTableParams())
		}
		wb.Sheets = append(wb.Sheets, sd)
	}
	return wb
}

func (s *Sheet) readRows() ([]models.Row, int, error) {
	rr, err := s.Rows()
	if err != nil {
		return nil, 0, err
	}
	defer rr.Close()

	var rows []models.Row
	for {
		row, err := rr.Next()
		if errors.Is(err, io.EOF) {
			return rows, rr.Width(), nil
		}
		if err != nil {
			return nil, 0, err
		}
		rows = append(rows, row)
	}
}
