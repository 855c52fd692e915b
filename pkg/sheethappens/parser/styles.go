package parser

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/ukaji3/sheethappens-go/pkg/sheethappens/models"
	"github.com/ukaji3/sheethappens-go/pkg/sheethappens/xmlcursor"
)

// builtinFormats holds the format codes implied by the built-in number
// format ids. Locale-dependent ids without a fixed code are absent.
var builtinFormats = map[int]string{
	0:  "General",
	1:  "0",
	2:  "0.00",
	3:  "#,##0",
	4:  "#,##0.00",
	5:  `"$"#,##0_);\("$"#,##0\)`,
	6:  `"$"#,##0_);[Red]\("$"#,##0\)`,
	7:  `"$"#,##0.00_);\("$"#,##0.00\)`,
	8:  `"$"#,##0.00_);[Red]\("$"#,##0.00\)`,
	9:  "0%",
	10: "0.00%",
	11: "0.00E+00",
	12: "# ?/?",
	13: "# ??/??",
	14: "mm-dd-yy",
	15: "d-mmm-yy",
	16: "d-mmm",
	17: "mmm-yy",
	18: "h:mm AM/PM",
	19: "h:mm:ss AM/PM",
	20: "h:mm",
	21: "h:mm:ss",
	22: "m/d/yy h:mm",
	37: "#,##0 ;(#,##0)",
	38: "#,##0 ;[Red](#,##0)",
	39: "#,##0.00;(#,##0.00)",
	40: "#,##0.00;[Red](#,##0.00)",
	41: `_(* #,##0_);_(* \(#,##0\);_(* "-"_);_(@_)`,
	42: `_("$"* #,##0_);_("$"* \(#,##0\);_("$"* "-"_);_(@_)`,
	43: `_(* #,##0.00_);_(* \(#,##0.00\);_(* "-"??_);_(@_)`,
	44: `_("$"* #,##0.00_);_("$"* \(#,##0.00\);_("$"* "-"??_);_(@_)`,
	45: "mm:ss",
	46: "[h]:mm:ss",
	47: "mmss.0",
	48: "##0.0E+0",
	49: "@",
}

// builtinKind classifies a built-in number format id. ok is false for ids
// outside the fixed table, which are then classified by their code.
func builtinKind(id int) (kind models.ValueKind, ok bool) {
	switch {
	case id == 0:
		return models.General, true
	case id == 1 || id == 3 || id == 5 || id == 6 || id == 37 || id == 38 || id == 41 || id == 42:
		return models.Integer, true
	case id == 2 || id == 4 || id == 7 || id == 8 || (id >= 11 && id <= 13) || id == 39 || id == 40 || id == 43 || id == 44 || id == 48:
		return models.Number, true
	case id == 9 || id == 10:
		return models.Percentage, true
	case id >= 14 && id <= 17:
		return models.Date, true
	case (id >= 18 && id <= 21) || (id >= 45 && id <= 47):
		return models.Time, true
	case id == 22:
		return models.DateTime, true
	case (id >= 27 && id <= 36) || (id >= 50 && id <= 58):
		// Locale-specific East Asian date formats.
		return models.Date, true
	case id == 49:
		return models.Text, true
	}
	return models.General, false
}

// ClassifyFormat derives a value kind from a number format code. Quoted
// literals, escaped characters and bracketed sections such as colours,
// locales and elapsed-time markers are ignored; what remains is classified
// by whether date/time letters or digit placeholders dominate.
func ClassifyFormat(code string) models.ValueKind {
	switch strings.ToLower(strings.TrimSpace(code)) {
	case "", "general":
		return models.General
	case "@":
		return models.Text
	}

	reduced := reduceFormat(code)
	var dates, nums int
	var hasY, hasM, hasD, hasH, hasS, hasPct, hasFrac, hasText bool
	for i := 0; i < len(reduced); i++ {
		switch reduced[i] {
		case 'E', 'e':
			if i > 0 && isDigitPlaceholder(reduced[i-1]) {
				// Scientific notation exponent.
				hasFrac = true
			}
		case 'y', 'Y':
			hasY = true
			dates++
		case 'm', 'M':
			hasM = true
			dates++
		case 'd', 'D':
			hasD = true
			dates++
		case 'h', 'H':
			hasH = true
			dates++
		case 's', 'S':
			hasS = true
			dates++
		case '0', '#', '?':
			nums++
		case '.':
			hasFrac = true
		case '%':
			hasPct = true
		case '@':
			hasText = true
		}
	}

	switch {
	case dates > 0 && dates > nums:
		hasTime := hasH || hasS
		hasDate := hasY || hasD || (hasM && !hasTime)
		switch {
		case hasDate && hasTime:
			return models.DateTime
		case hasTime:
			return models.Time
		default:
			return models.Date
		}
	case nums > 0:
		switch {
		case hasPct:
			return models.Percentage
		case hasFrac:
			return models.Number
		default:
			return models.Integer
		}
	case hasText:
		return models.Text
	}
	return models.General
}

func isDigitPlaceholder(c byte) bool { return c == '0' || c == '#' || c == '?' }

// reduceFormat drops quoted text, characters escaped by \ _ and *,
// [bracketed] sections and the General keyword from a format code.
func reduceFormat(code string) string {
	var sb strings.Builder
	for i := 0; i < len(code); i++ {
		if len(code)-i >= len("general") && strings.EqualFold(code[i:i+len("general")], "general") {
			i += len("general") - 1
			continue
		}
		switch c := code[i]; c {
		case '"':
			for i++; i < len(code) && code[i] != '"'; i++ {
			}
		case '\\', '_', '*':
			i++
		case '[':
			for i++; i < len(code) && code[i] != ']'; i++ {
			}
		case '$', '-', '+', '/', '(', ')', ':', ' ', ',':
		default:
			sb.WriteByte(c)
		}
	}
	return sb.String()
}

// Styles maps cell format indices to value kinds.
type Styles struct {
	// formats holds custom format codes by number format id.
	formats map[int]string
	// numFmts holds the number format id of each cell format.
	numFmts []int
	kinds   []models.ValueKind
}

// NewStyles builds a registry from custom format codes and the number
// format id of each cell format, in style index order.
func NewStyles(formats map[int]string, numFmtIDs ...int) *Styles {
	s := &Styles{formats: formats, numFmts: numFmtIDs}
	if s.formats == nil {
		s.formats = map[int]string{}
	}
	s.kinds = make([]models.ValueKind, len(numFmtIDs))
	for i, id := range numFmtIDs {
		s.kinds[i] = s.kindOfFormat(id)
	}
	return s
}

// ParseStyles reads the <numFmts> and <cellXfs> sections of a styles part.
// Cell style records (<cellStyleXfs>) are not referenced by cells and are
// ignored.
func ParseStyles(r io.Reader) (*Styles, error) {
	c := xmlcursor.New(r)
	formats := map[int]string{}
	var xfs []int
	for {
		tok, err := c.Next()
		if err != nil {
			return nil, fmt.Errorf("styles: %w", err)
		}
		if tok.Kind == xmlcursor.EOF {
			break
		}
		if tok.Kind != xmlcursor.StartElement {
			continue
		}
		switch tok.Local() {
		case "numFmt":
			id, err := strconv.Atoi(attrOr(tok, "numFmtId", ""))
			if err != nil {
				return nil, fmt.Errorf("styles: %w: numFmt id %q", xmlcursor.ErrMalformed, attrOr(tok, "numFmtId", ""))
			}
			formats[id] = attrOr(tok, "formatCode", "")
		case "cellXfs":
			if xfs, err = readCellFormats(c); err != nil {
				return nil, fmt.Errorf("styles: %w", err)
			}
		case "cellStyleXfs", "dxfs", "fonts", "fills", "borders", "colors", "extLst":
			if err := c.Skip(); err != nil {
				return nil, fmt.Errorf("styles: %w", err)
			}
		}
	}
	return NewStyles(formats, xfs...), nil
}

// readCellFormats reads the <xf> children of the <cellXfs> element just
// opened. A missing or unparseable numFmtId counts as 0.
func readCellFormats(c *xmlcursor.Cursor) ([]int, error) {
	var ids []int
	for {
		tok, err := c.Next()
		if err != nil {
			return nil, err
		}
		switch tok.Kind {
		case xmlcursor.EndElement:
			return ids, nil
		case xmlcursor.StartElement:
			id := 0
			if tok.Local() == "xf" {
				id, _ = strconv.Atoi(attrOr(tok, "numFmtId", "0"))
				ids = append(ids, id)
			}
			if err := c.Skip(); err != nil {
				return nil, err
			}
		}
	}
}

// kindOfFormat classifies a number format id. The fixed date and time ids
// keep their built-in kind even when a custom code redefines them.
func (s *Styles) kindOfFormat(id int) models.ValueKind {
	if kind, ok := builtinKind(id); ok && (id >= 14 && id <= 22 || id >= 45 && id <= 47) {
		return kind
	}
	if code, ok := s.formats[id]; ok {
		return ClassifyFormat(code)
	}
	if kind, ok := builtinKind(id); ok {
		return kind
	}
	return models.General
}

// Len returns the number of cell formats.
func (s *Styles) Len() int {
	if s == nil {
		return 0
	}
	return len(s.kinds)
}

// KindOf returns the value kind of a style index, or General when the index
// is unknown.
func (s *Styles) KindOf(style int) models.ValueKind {
	if style < 0 || style >= s.Len() {
		return models.General
	}
	return s.kinds[style]
}

// NumFmtID returns the number format id of a style index.
func (s *Styles) NumFmtID(style int) int {
	if style < 0 || style >= s.Len() {
		return 0
	}
	return s.numFmts[style]
}

// FormatCode returns the number format code of a style index: the custom
// code when one is defined, else the built-in code, else "General".
func (s *Styles) FormatCode(style int) string {
	id := s.NumFmtID(style)
	if s != nil {
		if code, ok := s.formats[id]; ok {
			return code
		}
	}
	if code, ok := builtinFormats[id]; ok {
		return code
	}
	return "General"
}
