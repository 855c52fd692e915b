package parser

import (
	"strings"

	"github.com/ukaji3/sheethappens-go/pkg/sheethappens/models"
)

const printAreaName = "_xlnm.Print_Area"

// PrintAreas collects the print areas defined in the manifest, keyed by
// sheet name. A sheet-scoped name belongs to the sheet at its local
// position; otherwise the sheet named in the reference is used.
func (m *Manifest) PrintAreas() map[string][]models.PrintArea {
	result := make(map[string][]models.PrintArea)
	for _, dn := range m.DefinedNames {
		if !strings.EqualFold(dn.Name, printAreaName) {
			continue
		}
		sheetName, areas := parsePrintAreaReference(dn.RefersTo)
		if dn.LocalSheetID >= 0 && dn.LocalSheetID < len(m.Sheets) {
			sheetName = m.Sheets[dn.LocalSheetID].Name
		}
		if sheetName != "" && len(areas) > 0 {
			result[sheetName] = append(result[sheetName], areas...)
		}
	}
	return result
}

// parsePrintAreaReference parses a print area reference string such as
// 'Sheet Name'!$A$1:$D$10,'Sheet Name'!$F$1:$G$4.
func parsePrintAreaReference(ref string) (string, []models.PrintArea) {
	var areas []models.PrintArea
	var sheetName string
	for _, part := range splitReferences(ref) {
		idx := strings.LastIndex(part, "!")
		if idx < 0 {
			continue
		}
		sheet := part[:idx]
		if len(sheet) >= 2 && sheet[0] == '\'' && sheet[len(sheet)-1] == '\'' {
			sheet = strings.ReplaceAll(sheet[1:len(sheet)-1], "''", "'")
		}
		if sheetName == "" {
			sheetName = sheet
		}
		if area, ok := parseRangeToArea(part[idx+1:]); ok {
			areas = append(areas, area)
		}
	}
	return sheetName, areas
}

// splitReferences splits a comma separated reference list, leaving commas
// inside quoted sheet names alone.
func splitReferences(ref string) []string {
	var parts []string
	quoted := false
	start := 0
	for i := 0; i < len(ref); i++ {
		switch ref[i] {
		case '\'':
			quoted = !quoted
		case ',':
			if !quoted {
				parts = append(parts, strings.TrimSpace(ref[start:i]))
				start = i + 1
			}
		}
	}
	return append(parts, strings.TrimSpace(ref[start:]))
}

// parseRangeToArea parses a range like $A$1:$D$10. A single cell yields a
// one-cell area.
func parseRangeToArea(rangeStr string) (models.PrintArea, bool) {
	rangeStr = strings.ReplaceAll(rangeStr, "$", "")
	first, last, found := strings.Cut(rangeStr, ":")
	if !found {
		last = first
	}
	c1, r1, err := models.ParseRef(first)
	if err != nil {
		return models.PrintArea{}, false
	}
	c2, r2, err := models.ParseRef(last)
	if err != nil {
		return models.PrintArea{}, false
	}
	return models.PrintArea{R1: r1, C1: c1 + 1, R2: r2, C2: c2 + 1}, true
}
