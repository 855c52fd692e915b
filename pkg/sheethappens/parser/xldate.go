package parser

import (
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/ukaji3/sheethappens-go/pkg/sheethappens/models"
)

var (
	epoch1904 = time.Date(1904, 1, 1, 0, 0, 0, 0, time.UTC)
	// Serials below 60 predate the phantom 1900-02-29 and count from here.
	epoch1900 = time.Date(1899, 12, 31, 0, 0, 0, 0, time.UTC)
	// Later serials count from one day earlier to absorb the phantom day.
	epoch1900Leap = time.Date(1899, 12, 30, 0, 0, 0, 0, time.UTC)
)

// Serials at or beyond these values fall in the year 10000.
const (
	serialTooLarge1900 = 2958466
	serialTooLarge1904 = 2958466 - 1462
)

var errSerialRange = errors.New("serial date out of range")

// SerialToTime converts a serial day count to a UTC time. The fraction is
// rounded to the millisecond.
func SerialToTime(serial float64, epoch models.DateEpoch) (time.Time, error) {
	if math.IsNaN(serial) || serial < 0 {
		return time.Time{}, fmt.Errorf("%w: %v", errSerialRange, serial)
	}
	origin, limit := epoch1900Leap, float64(serialTooLarge1900)
	switch {
	case epoch == models.Epoch1904:
		origin, limit = epoch1904, serialTooLarge1904
	case serial < 60:
		origin = epoch1900
	}
	if serial >= limit {
		return time.Time{}, fmt.Errorf("%w: %v", errSerialRange, serial)
	}

	days := math.Floor(serial)
	ms := math.Round((serial - days) * 86400000)
	return origin.AddDate(0, 0, int(days)).Add(time.Duration(ms) * time.Millisecond), nil
}

// isoLayouts are the forms a t="d" cell may take.
var isoLayouts = []string{
	"2006-01-02T15:04:05.999999999Z07:00",
	"2006-01-02T15:04:05.999999999",
	"2006-01-02T15:04",
	"2006-01-02",
	"15:04:05.999999999",
	"15:04",
}

// parseISO parses the content of a t="d" cell. It reports whether the text
// carried a calendar day and a clock.
func parseISO(s string) (t time.Time, hasDate, hasClock bool, err error) {
	s = strings.TrimSpace(s)
	for _, layout := range isoLayouts {
		if t, err = time.Parse(layout, s); err == nil {
			return t.UTC(), strings.HasPrefix(layout, "2006"), strings.Contains(layout, "15"), nil
		}
	}
	return time.Time{}, false, false, fmt.Errorf("invalid ISO-8601 date %q", s)
}
