package parser

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/ukaji3/sheethappens-go/pkg/sheethappens/models"
)

// Cell type attribute values.
const (
	TypeSharedString = "s"
	TypeString       = "str"
	TypeInlineString = "inlineStr"
	TypeBool         = "b"
	TypeError        = "e"
	TypeNumber       = "n"
	TypeDate         = "d"
)

// Resolver turns the raw content of a cell into a typed value. It holds no
// mutable state, so one Resolver serves any number of sheets and goroutines.
type Resolver struct {
	Strings *SharedStrings
	Styles  *Styles
	Epoch   models.DateEpoch
}

// Resolve applies the cell decision table. typ is the t attribute ("" when
// absent), style the s attribute, raw the text of <v> (or of <is> for
// inline strings) and present whether that element existed at all.
//
// The returned kind is the style's value kind. A returned error describes a
// cell that could not be resolved; the value is Null in that case.
func (r Resolver) Resolve(typ string, style int, raw string, present bool) (models.Value, models.ValueKind, error) {
	kind := r.Styles.KindOf(style)
	if !present {
		return models.Null, kind, nil
	}
	switch typ {
	case TypeSharedString:
		i, err := strconv.Atoi(strings.TrimSpace(raw))
		if err != nil {
			return models.Null, kind, fmt.Errorf("shared string index %q: %w", raw, err)
		}
		s, err := r.Strings.Get(i)
		if err != nil {
			return models.Null, kind, err
		}
		return models.StringValue(s), kind, nil
	case TypeString, TypeInlineString:
		return models.StringValue(raw), kind, nil
	case TypeBool:
		switch strings.TrimSpace(raw) {
		case "1", "true", "TRUE":
			return models.BoolValue(true), kind, nil
		case "0", "false", "FALSE":
			return models.BoolValue(false), kind, nil
		}
		return models.Null, kind, fmt.Errorf("invalid boolean %q", raw)
	case TypeError:
		return models.ErrorValue(raw), kind, nil
	case TypeDate:
		return r.resolveISO(raw, kind)
	case TypeNumber, "":
		return r.resolveNumber(raw, kind)
	}
	return models.Null, kind, fmt.Errorf("unknown cell type %q", typ)
}

func (r Resolver) resolveNumber(raw string, kind models.ValueKind) (models.Value, models.ValueKind, error) {
	if kind == models.Text {
		return models.StringValue(raw), kind, nil
	}
	s := strings.TrimSpace(raw)
	if s == "" {
		return models.Null, kind, nil
	}
	if !kind.IsTemporal() {
		return parseNumber(s, kind)
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return models.Null, kind, fmt.Errorf("invalid number %q", raw)
	}
	t, err := SerialToTime(f, r.Epoch)
	if err != nil {
		// Not representable as a date; keep the number.
		return models.NumberValue(f), kind, nil
	}
	switch kind {
	case models.Date:
		return models.DateValue(t), kind, nil
	case models.Time:
		return models.TimeValue(t), kind, nil
	}
	return models.DateTimeValue(t), kind, nil
}

// parseNumber keeps integral literals as integers and everything else as
// floats.
func parseNumber(s string, kind models.ValueKind) (models.Value, models.ValueKind, error) {
	if i, err := strconv.ParseInt(s, 10, 64); err == nil && i >= -maxExactInt && i <= maxExactInt {
		return models.IntegerValue(i), kind, nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return models.Null, kind, fmt.Errorf("invalid number %q", s)
	}
	return models.NumberValue(f), kind, nil
}

const maxExactInt = 1 << 53

func (r Resolver) resolveISO(raw string, kind models.ValueKind) (models.Value, models.ValueKind, error) {
	t, hasDate, hasClock, err := parseISO(raw)
	if err != nil {
		return models.Null, kind, err
	}
	switch {
	case !hasDate:
		return models.TimeValue(t), kind, nil
	case kind == models.Date || !hasClock:
		return models.DateValue(t), kind, nil
	case kind == models.Time:
		return models.TimeValue(t), kind, nil
	}
	return models.DateTimeValue(t), kind, nil
}
