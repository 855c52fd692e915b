// Package xmlcursor is a forward-only XML tokenizer for the parts of a
// spreadsheet package.
//
// It understands elements, attributes, character data, CDATA sections and
// the predefined and numeric character references. Processing instructions,
// comments and document type declarations are skipped. Names are returned
// exactly as written: a prefixed name such as "x:row" is an opaque literal
// and no namespace resolution takes place.
package xmlcursor

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"unicode/utf8"
)

// ErrMalformed is matched (with errors.Is) by every syntax error the
// cursor reports.
var ErrMalformed = errors.New("malformed xml")

// SyntaxError describes a markup error at a byte offset of the input.
type SyntaxError struct {
	Offset int64
	Msg    string
}

func (e *SyntaxError) Error() string {
	return fmt.Sprintf("xml syntax error at offset %d: %s", e.Offset, e.Msg)
}

func (e *SyntaxError) Unwrap() error { return ErrMalformed }

// Kind identifies the type of a Token.
type Kind uint8

const (
	EOF Kind = iota
	StartElement
	EndElement
	Text
)

func (k Kind) String() string {
	switch k {
	case EOF:
		return "EOF"
	case StartElement:
		return "StartElement"
	case EndElement:
		return "EndElement"
	case Text:
		return "Text"
	}
	return "Kind(" + strconv.Itoa(int(k)) + ")"
}

// Attr is a single attribute of a start element.
type Attr struct {
	Name  string
	Value string
}

// Token is one item of the XML stream.
type Token struct {
	Kind Kind
	// Name is set for StartElement and EndElement.
	Name string
	// Attrs is set for StartElement.
	Attrs []Attr
	// Text holds decoded character data for Text tokens.
	Text string
}

// Attr returns the value of the attribute with the given literal name.
func (t Token) Attr(name string) (string, bool) {
	for _, a := range t.Attrs {
		if a.Name == name {
			return a.Value, true
		}
	}
	return "", false
}

// AttrLocal returns the value of the first attribute whose local name
// (the part after any prefix) is local.
func (t Token) AttrLocal(local string) (string, bool) {
	for _, a := range t.Attrs {
		if LocalName(a.Name) == local {
			return a.Value, true
		}
	}
	return "", false
}

// Local returns the local part of the token's name.
func (t Token) Local() string { return LocalName(t.Name) }

// Is reports whether t is of kind k and its local name is local.
func (t Token) Is(k Kind, local string) bool {
	return t.Kind == k && LocalName(t.Name) == local
}

// LocalName strips a "prefix:" from name.
func LocalName(name string) string {
	if i := strings.IndexByte(name, ':'); i >= 0 {
		return name[i+1:]
	}
	return name
}

// Cursor tokenizes an XML document in a single forward pass.
type Cursor struct {
	r     *bufio.Reader
	off   int64
	stack []string
	// A self-closing element leaves its synthetic end tag pending.
	pending bool
	err     error
	sb      strings.Builder
}

// New returns a Cursor reading from r.
func New(r io.Reader) *Cursor {
	br, ok := r.(*bufio.Reader)
	if !ok {
		br = bufio.NewReaderSize(r, 64<<10)
	}
	return &Cursor{r: br}
}

// FromBytes returns a Cursor over b.
func FromBytes(b []byte) *Cursor { return New(bytes.NewReader(b)) }

// Depth is the number of currently open elements.
func (c *Cursor) Depth() int { return len(c.stack) }

// Next returns the next token. At the end of a well-formed document it
// returns a Token of kind EOF, and keeps doing so on further calls.
func (c *Cursor) Next() (Token, error) {
	if c.err != nil {
		return Token{}, c.err
	}
	if c.pending {
		c.pending = false
		name := c.stack[len(c.stack)-1]
		c.stack = c.stack[:len(c.stack)-1]
		return Token{Kind: EndElement, Name: name}, nil
	}
	for {
		b, err := c.readByte()
		if errors.Is(err, io.EOF) {
			if len(c.stack) > 0 {
				return c.fail("unexpected end of input inside <%s>", c.stack[len(c.stack)-1])
			}
			return Token{Kind: EOF}, nil
		}
		if err != nil {
			c.err = err
			return Token{}, err
		}
		if b == '<' {
			tok, ok, err := c.markup()
			if err != nil {
				return Token{}, err
			}
			if ok {
				return tok, nil
			}
			continue
		}
		c.unreadByte()
		text, err := c.text()
		if err != nil {
			return Token{}, err
		}
		if len(c.stack) == 0 && strings.TrimSpace(text) == "" {
			continue
		}
		return Token{Kind: Text, Text: text}, nil
	}
}

// Skip consumes tokens up to and including the end of the element whose
// start was returned last.
func (c *Cursor) Skip() error {
	for depth := 1; depth > 0; {
		tok, err := c.Next()
		if err != nil {
			return err
		}
		switch tok.Kind {
		case StartElement:
			depth++
		case EndElement:
			depth--
		case EOF:
			_, err := c.fail("unexpected end of input while skipping element")
			return err
		}
	}
	return nil
}

// ReadText consumes tokens up to and including the end of the element whose
// start was returned last and returns all character data found inside it.
func (c *Cursor) ReadText() (string, error) {
	var sb strings.Builder
	for depth := 1; depth > 0; {
		tok, err := c.Next()
		if err != nil {
			return sb.String(), err
		}
		switch tok.Kind {
		case Text:
			sb.WriteString(tok.Text)
		case StartElement:
			depth++
		case EndElement:
			depth--
		case EOF:
			_, err := c.fail("unexpected end of input while reading text")
			return sb.String(), err
		}
	}
	return sb.String(), nil
}

func (c *Cursor) fail(format string, args ...any) (Token, error) {
	c.err = &SyntaxError{Offset: c.off, Msg: fmt.Sprintf(format, args...)}
	return Token{}, c.err
}

func (c *Cursor) readByte() (byte, error) {
	b, err := c.r.ReadByte()
	if err == nil {
		c.off++
	}
	return b, err
}

func (c *Cursor) unreadByte() {
	if c.r.UnreadByte() == nil {
		c.off--
	}
}

// mustByte reads a byte, turning end of input into a syntax error.
func (c *Cursor) mustByte(what string) (byte, error) {
	b, err := c.readByte()
	if errors.Is(err, io.EOF) {
		_, err = c.fail("unexpected end of input in %s", what)
		return 0, err
	}
	if err != nil {
		c.err = err
	}
	return b, err
}

// markup handles everything after a '<'. ok is false for constructs that
// produce no token.
func (c *Cursor) markup() (tok Token, ok bool, err error) {
	b, err := c.mustByte("markup")
	if err != nil {
		return Token{}, false, err
	}
	switch b {
	case '?':
		return Token{}, false, c.skipUntil("?>", "processing instruction")
	case '!':
		return c.bang()
	case '/':
		tok, err := c.endTag()
		return tok, err == nil, err
	default:
		c.unreadByte()
		tok, err := c.startTag()
		return tok, err == nil, err
	}
}

func (c *Cursor) bang() (Token, bool, error) {
	b, err := c.mustByte("declaration")
	if err != nil {
		return Token{}, false, err
	}
	switch b {
	case '-':
		if b, err = c.mustByte("comment"); err != nil {
			return Token{}, false, err
		}
		if b != '-' {
			_, err := c.fail("invalid comment start")
			return Token{}, false, err
		}
		return Token{}, false, c.skipUntil("-->", "comment")
	case '[':
		for _, want := range []byte("CDATA[") {
			if b, err = c.mustByte("CDATA section"); err != nil {
				return Token{}, false, err
			}
			if b != want {
				_, err := c.fail("invalid CDATA section start")
				return Token{}, false, err
			}
		}
		text, err := c.readUntil("]]>", "CDATA section")
		if err != nil {
			return Token{}, false, err
		}
		return Token{Kind: Text, Text: text}, true, nil
	default:
		// <!DOCTYPE ...> with an optional internal subset in brackets.
		depth := 0
		for {
			if b, err = c.mustByte("declaration"); err != nil {
				return Token{}, false, err
			}
			switch b {
			case '[':
				depth++
			case ']':
				depth--
			case '>':
				if depth <= 0 {
					return Token{}, false, nil
				}
			}
		}
	}
}

func (c *Cursor) skipUntil(end, what string) error {
	_, err := c.readUntil(end, what)
	return err
}

func (c *Cursor) readUntil(end, what string) (string, error) {
	c.sb.Reset()
	for {
		b, err := c.mustByte(what)
		if err != nil {
			return "", err
		}
		c.sb.WriteByte(b)
		if s := c.sb.String(); strings.HasSuffix(s, end) {
			return s[:len(s)-len(end)], nil
		}
	}
}

func (c *Cursor) startTag() (Token, error) {
	name, err := c.name("element name")
	if err != nil {
		return Token{}, err
	}
	tok := Token{Kind: StartElement, Name: name}
	for {
		b, err := c.skipSpace("start tag")
		if err != nil {
			return Token{}, err
		}
		switch b {
		case '>':
			c.stack = append(c.stack, name)
			return tok, nil
		case '/':
			if b, err = c.mustByte("start tag"); err != nil {
				return Token{}, err
			}
			if b != '>' {
				return c.fail("expected '>' after '/' in <%s>", name)
			}
			c.stack = append(c.stack, name)
			c.pending = true
			return tok, nil
		}
		c.unreadByte()
		attr, err := c.attr(name)
		if err != nil {
			return Token{}, err
		}
		tok.Attrs = append(tok.Attrs, attr)
	}
}

func (c *Cursor) attr(elem string) (Attr, error) {
	name, err := c.name("attribute name")
	if err != nil {
		return Attr{}, err
	}
	b, err := c.skipSpace("attribute")
	if err != nil {
		return Attr{}, err
	}
	if b != '=' {
		_, err := c.fail("attribute %s of <%s> has no value", name, elem)
		return Attr{}, err
	}
	quote, err := c.skipSpace("attribute")
	if err != nil {
		return Attr{}, err
	}
	if quote != '"' && quote != '\'' {
		_, err := c.fail("unquoted value for attribute %s of <%s>", name, elem)
		return Attr{}, err
	}
	var sb strings.Builder
	for {
		b, err := c.mustByte("attribute value")
		if err != nil {
			return Attr{}, err
		}
		switch b {
		case quote:
			return Attr{Name: name, Value: sb.String()}, nil
		case '<':
			_, err := c.fail("'<' in value of attribute %s", name)
			return Attr{}, err
		case '&':
			if err := c.entity(&sb); err != nil {
				return Attr{}, err
			}
		default:
			sb.WriteByte(b)
		}
	}
}

func (c *Cursor) endTag() (Token, error) {
	name, err := c.name("end tag")
	if err != nil {
		return Token{}, err
	}
	b, err := c.skipSpace("end tag")
	if err != nil {
		return Token{}, err
	}
	if b != '>' {
		return c.fail("unexpected %q in </%s>", b, name)
	}
	if len(c.stack) == 0 {
		return c.fail("unexpected end tag </%s>", name)
	}
	if open := c.stack[len(c.stack)-1]; open != name {
		return c.fail("end tag </%s> does not match <%s>", name, open)
	}
	c.stack = c.stack[:len(c.stack)-1]
	return Token{Kind: EndElement, Name: name}, nil
}

func (c *Cursor) name(what string) (string, error) {
	c.sb.Reset()
	for {
		b, err := c.mustByte(what)
		if err != nil {
			return "", err
		}
		if isSpace(b) || b == '/' || b == '>' || b == '=' {
			c.unreadByte()
			break
		}
		if b == '<' || b == '"' || b == '\'' || b == '&' {
			_, err := c.fail("invalid character %q in %s", b, what)
			return "", err
		}
		c.sb.WriteByte(b)
	}
	if c.sb.Len() == 0 {
		_, err := c.fail("empty %s", what)
		return "", err
	}
	return c.sb.String(), nil
}

func (c *Cursor) skipSpace(what string) (byte, error) {
	for {
		b, err := c.mustByte(what)
		if err != nil || !isSpace(b) {
			return b, err
		}
	}
}

func (c *Cursor) text() (string, error) {
	var sb strings.Builder
	for {
		b, err := c.readByte()
		if errors.Is(err, io.EOF) {
			return sb.String(), nil
		}
		if err != nil {
			c.err = err
			return "", err
		}
		switch b {
		case '<':
			c.unreadByte()
			return sb.String(), nil
		case '&':
			if err := c.entity(&sb); err != nil {
				return "", err
			}
		default:
			sb.WriteByte(b)
		}
	}
}

const maxEntityLen = 12

// entity decodes a reference whose '&' has been consumed.
func (c *Cursor) entity(sb *strings.Builder) error {
	var ref []byte
	for {
		b, err := c.mustByte("entity reference")
		if err != nil {
			return err
		}
		if b == ';' {
			break
		}
		if len(ref) >= maxEntityLen || isSpace(b) || b == '<' || b == '&' {
			_, err := c.fail("unterminated entity reference &%s", ref)
			return err
		}
		ref = append(ref, b)
	}
	switch s := string(ref); s {
	case "amp":
		sb.WriteByte('&')
	case "lt":
		sb.WriteByte('<')
	case "gt":
		sb.WriteByte('>')
	case "quot":
		sb.WriteByte('"')
	case "apos":
		sb.WriteByte('\'')
	default:
		if len(s) < 2 || s[0] != '#' {
			_, err := c.fail("unknown entity &%s;", s)
			return err
		}
		var n uint64
		var err error
		if s[1] == 'x' {
			n, err = strconv.ParseUint(s[2:], 16, 32)
		} else {
			n, err = strconv.ParseUint(s[1:], 10, 32)
		}
		if err != nil || n == 0 || !utf8.ValidRune(rune(n)) {
			_, err := c.fail("invalid character reference &%s;", s)
			return err
		}
		sb.WriteRune(rune(n))
	}
	return nil
}

func isSpace(b byte) bool {
	return b == ' ' || b == '\t' || b == '\n' || b == '\r'
}
