package parser

import (
	"fmt"
	"io"
	"path"
	"strconv"
	"strings"

	"github.com/ukaji3/sheethappens-go/pkg/sheethappens/models"
	"github.com/ukaji3/sheethappens-go/pkg/sheethappens/xmlcursor"
)

// Well-known part locations, used when relationships do not name them.
const (
	DefaultWorkbookPart      = "xl/workbook.xml"
	DefaultSharedStringsPart = "xl/sharedStrings.xml"
	DefaultStylesPart        = "xl/styles.xml"
	PackageRelsPart          = "_rels/.rels"
)

// Relationship type suffixes. Both the transitional and strict namespaces
// end the same way.
const (
	relOfficeDocument = "/officeDocument"
	relWorksheet      = "/worksheet"
	relSharedStrings  = "/sharedStrings"
	relStyles         = "/styles"
)

// Visibility is the display state of a sheet.
type Visibility string

const (
	Visible    Visibility = "visible"
	Hidden     Visibility = "hidden"
	VeryHidden Visibility = "veryHidden"
)

// SheetInfo is one sheet declared by the workbook.
type SheetInfo struct {
	// Name is the display name.
	Name string
	// Position is the 1-based position in the workbook.
	Position int
	// SheetID is the sheetId attribute.
	SheetID int
	// RelID is the relationship id naming the sheet's part.
	RelID string
	// Part is the package path of the sheet's part, or "" when the
	// relationship could not be resolved.
	Part string
	// Visibility is the sheet's display state.
	Visibility Visibility
}

// DefinedName is a workbook or sheet scoped name.
type DefinedName struct {
	Name string
	// LocalSheetID is the 0-based sheet position the name is scoped to, or
	// -1 for workbook scope.
	LocalSheetID int
	RefersTo     string
}

// Relationship is one entry of a relationships part.
type Relationship struct {
	ID       string
	Type     string
	Target   string
	External bool
}

// Manifest is the parsed workbook part together with its relationships.
type Manifest struct {
	// Sheets lists the declared sheets in workbook order.
	Sheets []SheetInfo
	// Epoch is the serial date origin of the workbook.
	Epoch models.DateEpoch
	// DefinedNames lists the workbook's defined names.
	DefinedNames []DefinedName
	// SharedStringsPart and StylesPart are the package paths of the shared
	// strings and styles parts.
	SharedStringsPart string
	StylesPart        string
}

// ParseManifest reads the workbook part and its relationships. workbookPath
// is the package path of the workbook part, against which relationship
// targets are resolved.
func ParseManifest(workbookXML, relsXML io.Reader, workbookPath string) (*Manifest, error) {
	m := &Manifest{
		SharedStringsPart: DefaultSharedStringsPart,
		StylesPart:        DefaultStylesPart,
	}
	if err := m.parseWorkbook(workbookXML); err != nil {
		return nil, fmt.Errorf("workbook: %w", err)
	}

	targets := map[string]string{}
	if relsXML != nil {
		rels, err := ParseRelationships(relsXML)
		if err != nil {
			return nil, fmt.Errorf("workbook relationships: %w", err)
		}
		base := path.Dir(workbookPath)
		for _, rel := range rels {
			if rel.External {
				continue
			}
			target := ResolveTarget(base, rel.Target)
			targets[rel.ID] = target
			switch {
			case strings.HasSuffix(rel.Type, relSharedStrings):
				m.SharedStringsPart = target
			case strings.HasSuffix(rel.Type, relStyles):
				m.StylesPart = target
			}
		}
	}
	for i := range m.Sheets {
		m.Sheets[i].Part = targets[m.Sheets[i].RelID]
	}
	return m, nil
}

func (m *Manifest) parseWorkbook(r io.Reader) error {
	c := xmlcursor.New(r)
	for {
		tok, err := c.Next()
		if err != nil {
			return err
		}
		if tok.Kind == xmlcursor.EOF {
			return nil
		}
		if tok.Kind != xmlcursor.StartElement {
			continue
		}
		switch tok.Local() {
		case "workbookPr":
			if parseBool(attrOr(tok, "date1904", "")) {
				m.Epoch = models.Epoch1904
			}
		case "sheet":
			info := SheetInfo{
				Name:       attrOr(tok, "name", ""),
				Position:   len(m.Sheets) + 1,
				RelID:      attrOr(tok, "id", ""),
				Visibility: Visibility(attrOr(tok, "state", string(Visible))),
			}
			info.SheetID, _ = strconv.Atoi(attrOr(tok, "sheetId", ""))
			m.Sheets = append(m.Sheets, info)
		case "definedName":
			dn := DefinedName{Name: attrOr(tok, "name", ""), LocalSheetID: -1}
			if v, ok := tok.AttrLocal("localSheetId"); ok {
				if n, err := strconv.Atoi(v); err == nil {
					dn.LocalSheetID = n
				}
			}
			if dn.RefersTo, err = c.ReadText(); err != nil {
				return err
			}
			m.DefinedNames = append(m.DefinedNames, dn)
		}
	}
}

// ParseRelationships reads a relationships part.
func ParseRelationships(r io.Reader) ([]Relationship, error) {
	c := xmlcursor.New(r)
	var rels []Relationship
	for {
		tok, err := c.Next()
		if err != nil {
			return nil, err
		}
		if tok.Kind == xmlcursor.EOF {
			return rels, nil
		}
		if tok.Is(xmlcursor.StartElement, "Relationship") {
			rels = append(rels, Relationship{
				ID:       attrOr(tok, "Id", ""),
				Type:     attrOr(tok, "Type", ""),
				Target:   attrOr(tok, "Target", ""),
				External: strings.EqualFold(attrOr(tok, "TargetMode", ""), "External"),
			})
		}
	}
}

// WorkbookPart finds the workbook part named by the package relationships,
// falling back to the conventional location.
func WorkbookPart(packageRels io.Reader) (string, error) {
	if packageRels == nil {
		return DefaultWorkbookPart, nil
	}
	rels, err := ParseRelationships(packageRels)
	if err != nil {
		return "", fmt.Errorf("package relationships: %w", err)
	}
	for _, rel := range rels {
		if !rel.External && strings.HasSuffix(rel.Type, relOfficeDocument) {
			return ResolveTarget("", rel.Target), nil
		}
	}
	return DefaultWorkbookPart, nil
}

// RelsPartFor returns the relationships part belonging to a part:
// xl/workbook.xml has xl/_rels/workbook.xml.rels.
func RelsPartFor(part string) string {
	dir, file := path.Split(part)
	return dir + "_rels/" + file + ".rels"
}

// ResolveTarget turns a relationship target into a package path. Relative
// targets are resolved against baseDir; absolute ones are rooted at the
// package.
func ResolveTarget(baseDir, target string) string {
	target = strings.ReplaceAll(target, "\\", "/")
	if strings.HasPrefix(target, "/") {
		return strings.TrimPrefix(path.Clean(target), "/")
	}
	p := path.Clean(path.Join(baseDir, target))
	for strings.HasPrefix(p, "../") {
		p = strings.TrimPrefix(p, "../")
	}
	if p == "." || p == ".." {
		return ""
	}
	return p
}

// PartFor returns the package path of sheet's part. It fails with
// ErrMissingPart when the sheet has no resolvable relationship or the
// package has no such entry.
func (m *Manifest) PartFor(sheet SheetInfo, exists func(string) bool) (string, error) {
	if sheet.Part == "" {
		return "", fmt.Errorf("%w: sheet %q has no relationship %q", ErrMissingPart, sheet.Name, sheet.RelID)
	}
	if exists != nil && !exists(sheet.Part) {
		return "", fmt.Errorf("%w: sheet %q part %s", ErrMissingPart, sheet.Name, sheet.Part)
	}
	return sheet.Part, nil
}

// SheetByName returns the sheet called name.
func (m *Manifest) SheetByName(name string) (SheetInfo, bool) {
	for _, s := range m.Sheets {
		if s.Name == name {
			return s, true
		}
	}
	return SheetInfo{}, false
}

func parseBool(s string) bool {
	return s == "1" || strings.EqualFold(s, "true")
}
