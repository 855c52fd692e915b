package parser

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/ukaji3/sheethappens-go/pkg/sheethappens/models"
)

func TestParsePrintAreaReference(t *testing.T) {
	tests := []struct {
		ref   string
		sheet string
		areas []models.PrintArea
	}{
		{"Sheet1!$A$1:$D$10", "Sheet1", []models.PrintArea{{R1: 1, C1: 1, R2: 10, C2: 4}}},
		{"'My Sheet'!$B$2:$C$3", "My Sheet", []models.PrintArea{{R1: 2, C1: 2, R2: 3, C2: 3}}},
		{"'a,b'!$A$1:$A$2,'a,b'!$C$5", "a,b", []models.PrintArea{{R1: 1, C1: 1, R2: 2, C2: 1}, {R1: 5, C1: 3, R2: 5, C2: 3}}},
		{"'It''s'!A1:B2", "It's", []models.PrintArea{{R1: 1, C1: 1, R2: 2, C2: 2}}},
		{"Sheet1!$A:$D", "Sheet1", nil},
		{"#REF!", "#REF", nil},
	}
	for _, tt := range tests {
		sheet, areas := parsePrintAreaReference(tt.ref)
		assert.Equal(t, tt.sheet, sheet, tt.ref)
		assert.Equal(t, tt.areas, areas, tt.ref)
	}
}

func TestManifestPrintAreas(t *testing.T) {
	m := &Manifest{
		Sheets: []SheetInfo{{Name: "One"}, {Name: "Two"}},
		DefinedNames: []DefinedName{
			{Name: "_xlnm.Print_Area", LocalSheetID: 1, RefersTo: "Two!$A$1:$B$2"},
			{Name: "_XLNM.PRINT_AREA", LocalSheetID: -1, RefersTo: "One!$C$3:$D$4"},
			{Name: "_xlnm.Print_Titles", LocalSheetID: 0, RefersTo: "One!$1:$1"},
			{Name: "Other", LocalSheetID: -1, RefersTo: "One!$A$1"},
		},
	}
	assert.Equal(t, map[string][]models.PrintArea{
		"Two": {{R1: 1, C1: 1, R2: 2, C2: 2}},
		"One": {{R1: 3, C1: 3, R2: 4, C2: 4}},
	}, m.PrintAreas())
}
