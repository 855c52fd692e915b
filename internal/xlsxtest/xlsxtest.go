// Package xlsxtest assembles small spreadsheet packages for tests.
package xlsxtest

import (
	"archive/zip"
	"bytes"
	"fmt"
	"html"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// Part is one named entry of a package.
type Part struct {
	Name string
	Body string
	// Store disables compression for this part.
	Store bool
}

// Zip returns a ZIP container holding parts in the given order.
func Zip(t testing.TB, parts ...Part) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for _, p := range parts {
		method := zip.Deflate
		if p.Store {
			method = zip.Store
		}
		w, err := zw.CreateHeader(&zip.FileHeader{Name: p.Name, Method: method})
		if err != nil {
			t.Fatalf("create %s: %v", p.Name, err)
		}
		if _, err := w.Write([]byte(p.Body)); err != nil {
			t.Fatalf("write %s: %v", p.Name, err)
		}
	}
	if err := zw.Close(); err != nil {
		t.Fatalf("close zip: %v", err)
	}
	return buf.Bytes()
}

// WriteFile stores data as name inside a fresh temporary directory and
// returns the full path.
func WriteFile(t testing.TB, name string, data []byte) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
	return path
}

// Sheet describes one worksheet of a Workbook.
type Sheet struct {
	Name string
	// State is "", "hidden" or "veryHidden".
	State string
	// Rows is the inner XML of <sheetData>.
	Rows string
	// Dimension is written as <dimension ref=...> when set.
	Dimension string
	// NoPart declares the sheet in the workbook without writing its part.
	NoPart bool
	// NoRel declares the sheet without a workbook relationship.
	NoRel bool
}

// Workbook is a minimal spreadsheet package description.
type Workbook struct {
	Sheets []Sheet
	// SharedStrings is the inner XML of <sst>; see SST.
	SharedStrings string
	// Styles is the complete styles part; empty omits it.
	Styles string
	// DefinedNames is the inner XML of <definedNames>.
	DefinedNames string
	Date1904     bool
}

const (
	nsMain = "http://schemas.openxmlformats.org/spreadsheetml/2006/main"
	nsRel  = "http://schemas.openxmlformats.org/officeDocument/2006/relationships"
	nsPkg  = "http://schemas.openxmlformats.org/package/2006/relationships"
)

// Parts renders the package parts in the order a spreadsheet application
// writes them.
func (w Workbook) Parts() []Part {
	var wb, rels strings.Builder
	wb.WriteString(`<?xml version="1.0" encoding="UTF-8" standalone="yes"?>` + "\n")
	fmt.Fprintf(&wb, `<workbook xmlns="%s" xmlns:r="%s">`, nsMain, nsRel)
	if w.Date1904 {
		wb.WriteString(`<workbookPr date1904="1"/>`)
	} else {
		wb.WriteString(`<workbookPr defaultThemeVersion="124226"/>`)
	}
	wb.WriteString(`<sheets>`)
	fmt.Fprintf(&rels, `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>`+"\n"+`<Relationships xmlns="%s">`, nsPkg)

	var sheets []Part
	for i, s := range w.Sheets {
		n := i + 1
		fmt.Fprintf(&wb, `<sheet name="%s" sheetId="%d"`, html.EscapeString(s.Name), n)
		if s.State != "" {
			fmt.Fprintf(&wb, ` state="%s"`, s.State)
		}
		fmt.Fprintf(&wb, ` r:id="rId%d"/>`, n)
		if !s.NoRel {
			fmt.Fprintf(&rels, `<Relationship Id="rId%d" Type="%s/worksheet" Target="worksheets/sheet%d.xml"/>`, n, nsRel, n)
		}
		if s.NoPart {
			continue
		}
		var body strings.Builder
		fmt.Fprintf(&body, `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>`+"\n"+`<worksheet xmlns="%s" xmlns:r="%s">`, nsMain, nsRel)
		if s.Dimension != "" {
			fmt.Fprintf(&body, `<dimension ref="%s"/>`, s.Dimension)
		}
		fmt.Fprintf(&body, `<sheetData>%s</sheetData></worksheet>`, s.Rows)
		sheets = append(sheets, Part{Name: fmt.Sprintf("xl/worksheets/sheet%d.xml", n), Body: body.String()})
	}
	wb.WriteString(`</sheets>`)
	if w.DefinedNames != "" {
		fmt.Fprintf(&wb, `<definedNames>%s</definedNames>`, w.DefinedNames)
	}
	wb.WriteString(`</workbook>`)

	next := len(w.Sheets) + 1
	if w.SharedStrings != "" {
		fmt.Fprintf(&rels, `<Relationship Id="rId%d" Type="%s/sharedStrings" Target="sharedStrings.xml"/>`, next, nsRel)
		next++
	}
	if w.Styles != "" {
		fmt.Fprintf(&rels, `<Relationship Id="rId%d" Type="%s/styles" Target="styles.xml"/>`, next, nsRel)
	}
	rels.WriteString(`</Relationships>`)

	parts := []Part{
		{Name: "[Content_Types].xml", Body: `<?xml version="1.0" encoding="UTF-8"?><Types xmlns="http://schemas.openxmlformats.org/package/2006/content-types"/>`},
		{Name: "_rels/.rels", Body: fmt.Sprintf(`<?xml version="1.0" encoding="UTF-8"?><Relationships xmlns="%s"><Relationship Id="rId1" Type="%s/officeDocument" Target="xl/workbook.xml"/></Relationships>`, nsPkg, nsRel)},
		{Name: "xl/workbook.xml", Body: wb.String()},
		{Name: "xl/_rels/workbook.xml.rels", Body: rels.String()},
	}
	parts = append(parts, sheets...)
	if w.SharedStrings != "" {
		parts = append(parts, Part{Name: "xl/sharedStrings.xml", Body: fmt.Sprintf(`<?xml version="1.0" encoding="UTF-8"?><sst xmlns="%s">%s</sst>`, nsMain, w.SharedStrings)})
	}
	if w.Styles != "" {
		parts = append(parts, Part{Name: "xl/styles.xml", Body: w.Styles})
	}
	return parts
}

// Bytes renders the workbook as a ZIP container.
func (w Workbook) Bytes(t testing.TB) []byte {
	t.Helper()
	return Zip(t, w.Parts()...)
}

// SST renders plain shared strings as <si> items with preserved spacing.
func SST(items ...string) string {
	var sb strings.Builder
	for _, s := range items {
		fmt.Fprintf(&sb, `<si><t xml:space="preserve">%s</t></si>`, html.EscapeString(s))
	}
	return sb.String()
}

// Styles renders a styles part from custom number formats (id to code) and
// the numFmtId of each cellXfs record.
func Styles(numFmts map[int]string, xfs ...int) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, `<?xml version="1.0" encoding="UTF-8"?><styleSheet xmlns="%s">`, nsMain)
	if len(numFmts) > 0 {
		fmt.Fprintf(&sb, `<numFmts count="%d">`, len(numFmts))
		for id, code := range numFmts {
			fmt.Fprintf(&sb, `<numFmt numFmtId="%d" formatCode="%s"/>`, id, html.EscapeString(code))
		}
		sb.WriteString(`</numFmts>`)
	}
	sb.WriteString(`<cellStyleXfs count="1"><xf numFmtId="14" fontId="0"/></cellStyleXfs>`)
	fmt.Fprintf(&sb, `<cellXfs count="%d">`, len(xfs))
	for _, id := range xfs {
		fmt.Fprintf(&sb, `<xf numFmtId="%d" fontId="0" fillId="0" borderId="0" xfId="0" applyNumberFormat="1"/>`, id)
	}
	sb.WriteString(`</cellXfs></styleSheet>`)
	return sb.String()
}
