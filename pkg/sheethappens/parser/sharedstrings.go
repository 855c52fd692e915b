package parser

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/ukaji3/sheethappens-go/pkg/sheethappens/xmlcursor"
)

// SharedStrings is the workbook's immutable table of deduplicated strings.
type SharedStrings struct {
	items []string
}

// NewSharedStrings returns a table holding items.
func NewSharedStrings(items ...string) *SharedStrings {
	return &SharedStrings{items: items}
}

// ParseSharedStrings reads a shared strings part. Each <si> item yields one
// string: its plain <t> text or the concatenation of its rich text runs.
// Phonetic runs are left out and no whitespace is collapsed.
func ParseSharedStrings(r io.Reader) (*SharedStrings, error) {
	c := xmlcursor.New(r)
	sst := &SharedStrings{}
	for {
		tok, err := c.Next()
		if err != nil {
			return nil, fmt.Errorf("shared strings: %w", err)
		}
		switch {
		case tok.Kind == xmlcursor.EOF:
			return sst, nil
		case tok.Is(xmlcursor.StartElement, "sst"):
			if n, err := strconv.Atoi(attrOr(tok, "uniqueCount", "")); err == nil && n > 0 && n < 1<<20 {
				sst.items = make([]string, 0, n)
			}
		case tok.Is(xmlcursor.StartElement, "si"):
			s, err := readStringItem(c)
			if err != nil {
				return nil, fmt.Errorf("shared strings item %d: %w", len(sst.items), err)
			}
			sst.items = append(sst.items, s)
		}
	}
}

// readStringItem collects the text of the <si> or <is> element just opened.
func readStringItem(c *xmlcursor.Cursor) (string, error) {
	var sb strings.Builder
	for depth := 1; depth > 0; {
		tok, err := c.Next()
		if err != nil {
			return "", err
		}
		switch tok.Kind {
		case xmlcursor.StartElement:
			switch tok.Local() {
			case "t":
				text, err := c.ReadText()
				if err != nil {
					return "", err
				}
				sb.WriteString(text)
			case "rPh", "phoneticPr":
				if err := c.Skip(); err != nil {
					return "", err
				}
			default:
				depth++
			}
		case xmlcursor.EndElement:
			depth--
		case xmlcursor.EOF:
			return "", fmt.Errorf("%w: unterminated string item", xmlcursor.ErrMalformed)
		}
	}
	return decodeEscapes(sb.String()), nil
}

// Len returns the number of strings.
func (s *SharedStrings) Len() int {
	if s == nil {
		return 0
	}
	return len(s.items)
}

// Get returns the string at index i.
func (s *SharedStrings) Get(i int) (string, error) {
	if i < 0 || i >= s.Len() {
		return "", fmt.Errorf("%w: %d of %d", ErrIndexOutOfRange, i, s.Len())
	}
	return s.items[i], nil
}

// decodeEscapes replaces _xHHHH_ sequences, used for characters that XML
// cannot carry, with the character they name.
func decodeEscapes(s string) string {
	if !strings.Contains(s, "_x") {
		return s
	}
	var sb strings.Builder
	sb.Grow(len(s))
	for i := 0; i < len(s); {
		if i+7 <= len(s) && s[i] == '_' && s[i+1] == 'x' && s[i+6] == '_' {
			if n, err := strconv.ParseUint(s[i+2:i+6], 16, 16); err == nil {
				sb.WriteRune(rune(n))
				i += 7
				continue
			}
		}
		sb.WriteByte(s[i])
		i++
	}
	return sb.String()
}

func attrOr(tok xmlcursor.Token, local, def string) string {
	if v, ok := tok.AttrLocal(local); ok {
		return v
	}
	return def
}
