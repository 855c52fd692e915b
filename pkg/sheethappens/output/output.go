// Package output writes sheets as CSV, JSON or YAML.
//
// Writers register themselves by format name from init functions; a binary
// built without a writer simply lacks that format.
package output

import (
	"errors"
	"fmt"
	"io"
	"iter"
	"slices"
	"sync"

	"github.com/ukaji3/sheethappens-go/pkg/sheethappens/models"
)

// Source is a sheet as writers see it. *sheethappens.Sheet implements it.
type Source interface {
	Name() string
	All() iter.Seq2[models.Row, error]
}

// Writer renders one sheet to w.
type Writer interface {
	WriteSheet(w io.Writer, sheet Source) error
	// Ext is the file name extension of the format, without a dot.
	Ext() string
}

// Factory creates a Writer for cfg.
type Factory func(cfg Config) (Writer, error)

// ErrorPolicy selects how formula error cells are written.
type ErrorPolicy string

const (
	// ErrorsAsToken writes the error token, such as #DIV/0!.
	ErrorsAsToken ErrorPolicy = "token"
	// ErrorsAsNull writes error cells as empty.
	ErrorsAsNull ErrorPolicy = "null"
)

// ParseErrorPolicy accepts "token", "null" or "" (token).
func ParseErrorPolicy(s string) (ErrorPolicy, error) {
	switch p := ErrorPolicy(s); p {
	case "":
		return ErrorsAsToken, nil
	case ErrorsAsToken, ErrorsAsNull:
		return p, nil
	}
	return "", fmt.Errorf("unknown error policy %q (want token or null)", s)
}

// Config holds the options shared by every writer.
type Config struct {
	// NoHeader writes arrays of rows instead of records keyed by the first
	// row. CSV output is unaffected except for filter field names.
	NoHeader bool
	// Sanitize trims string values and joins their lines with spaces.
	Sanitize bool
	// Errors is the error cell policy; "" means ErrorsAsToken.
	Errors ErrorPolicy
	// IgnoreEmpty drops data rows without any non-null cell.
	IgnoreEmpty bool
	// Filter keeps only the data rows it matches. Nil keeps all.
	Filter *Filter

	// Delimiter separates CSV fields; 0 means ','.
	Delimiter rune
	// Encoding is the CSV charset name; "" means UTF-8.
	Encoding string
}

var (
	mu        sync.RWMutex
	factories = make(map[string]Factory)
)

// ErrUnknownFormat is returned by New for an unregistered format.
var ErrUnknownFormat = errors.New("unknown output format")

// Register makes a format available by name. It panics if the name is
// already taken.
func Register(name string, f Factory) {
	mu.Lock()
	defer mu.Unlock()
	if f == nil {
		panic("output: Register factory is nil")
	}
	if _, dup := factories[name]; dup {
		panic("output: Register called twice for " + name)
	}
	factories[name] = f
}

// Lookup returns the factory registered for name.
func Lookup(name string) (Factory, bool) {
	mu.RLock()
	defer mu.RUnlock()
	f, ok := factories[name]
	return f, ok
}

// Names returns the registered format names, sorted.
func Names() []string {
	mu.RLock()
	defer mu.RUnlock()
	names := make([]string, 0, len(factories))
	for name := range factories {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// New creates a writer for the named format.
func New(name string, cfg Config) (Writer, error) {
	f, ok := Lookup(name)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownFormat, name)
	}
	return f(cfg)
}
