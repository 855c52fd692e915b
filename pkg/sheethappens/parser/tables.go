package parser

import (
	"github.com/ukaji3/sheethappens-go/pkg/sheethappens/models"
)

// TableDetectionParams holds parameters for table detection.
type TableDetectionParams struct {
	DensityMin       float64
	MinNonemptyCells int
}

// DefaultTableParams returns default table detection parameters.
func DefaultTableParams() TableDetectionParams {
	return TableDetectionParams{
		DensityMin:       0.04,
		MinNonemptyCells: 3,
	}
}

// DetectTables returns cell ranges (e.g. "A1:D10") likely to hold tables.
// Blocks of non-empty rows separated by empty rows are considered
// separately; a block qualifies when it has enough non-null cells and they
// fill enough of its bounding box.
func DetectTables(rows []models.Row, params TableDetectionParams) []string {
	var ranges []string
	start := -1
	flush := func(end int) {
		if start < 0 {
			return
		}
		if r, ok := detectBlock(rows[start:end], params); ok {
			ranges = append(ranges, r)
		}
		start = -1
	}
	for i, row := range rows {
		if row.Empty() {
			flush(i)
			continue
		}
		if start < 0 {
			start = i
		}
	}
	flush(len(rows))
	return ranges
}

func detectBlock(rows []models.Row, params TableDetectionParams) (string, bool) {
	minRow, maxRow, minCol, maxCol := findDataBounds(rows)
	if minRow < 0 {
		return "", false
	}

	nonEmpty := countNonEmptyCells(rows, minCol, maxCol)
	if nonEmpty < params.MinNonemptyCells {
		return "", false
	}
	total := (maxRow - minRow + 1) * (maxCol - minCol + 1)
	if float64(nonEmpty)/float64(total) < params.DensityMin {
		return "", false
	}
	return models.Ref(minCol, minRow) + ":" + models.Ref(maxCol, maxRow), true
}

// findDataBounds finds the bounding box of non-null cells as 1-based rows
// and 0-based columns.
func findDataBounds(rows []models.Row) (minRow, maxRow, minCol, maxCol int) {
	minRow, maxRow = -1, -1
	minCol, maxCol = -1, -1

	for _, row := range rows {
		for _, cell := range row.Cells {
			if cell.Value.IsNull() {
				continue
			}
			if minRow < 0 || row.Num < minRow {
				minRow = row.Num
			}
			if row.Num > maxRow {
				maxRow = row.Num
			}
			if minCol < 0 || cell.Col < minCol {
				minCol = cell.Col
			}
			if cell.Col > maxCol {
				maxCol = cell.Col
			}
		}
	}
	return
}

func countNonEmptyCells(rows []models.Row, minCol, maxCol int) int {
	count := 0
	for _, row := range rows {
		for col := minCol; col <= maxCol && col < len(row.Cells); col++ {
			if !row.Cells[col].Value.IsNull() {
				count++
			}
		}
	}
	return count
}
