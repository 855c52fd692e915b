// Package sheethappens reads spreadsheet documents in the open XML package
// format and exposes their sheets as streams of typed rows.
package sheethappens

import "log/slog"

// Options configures how a workbook is opened.
type Options struct {
	// Logger receives debug records about the package and unresolved
	// cells. Nil discards them.
	Logger *slog.Logger
	// KeepEmptyRows emits an all-null row for every row number a sheet
	// skips. If nil, skipped rows are omitted.
	KeepEmptyRows *bool
	// IncludeTables adds table candidates to Extract output.
	// If nil, defaults to true.
	IncludeTables *bool
	// IncludePrintAreas adds print areas to Extract output.
	// If nil, defaults to true.
	IncludePrintAreas *bool
}

// Option changes Options.
type Option func(*Options)

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(o *Options) { o.Logger = l }
}

// WithKeepEmptyRows sets KeepEmptyRows.
func WithKeepEmptyRows(keep bool) Option {
	return func(o *Options) { o.KeepEmptyRows = &keep }
}

// WithTables sets IncludeTables.
func WithTables(include bool) Option {
	return func(o *Options) { o.IncludeTables = &include }
}

// WithPrintAreas sets IncludePrintAreas.
func WithPrintAreas(include bool) Option {
	return func(o *Options) { o.IncludePrintAreas = &include }
}

// DefaultOptions returns default options.
func DefaultOptions() Options {
	return Options{}
}

func buildOptions(opts []Option) Options {
	o := DefaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// ShouldKeepEmptyRows returns whether skipped rows are filled in.
func (o Options) ShouldKeepEmptyRows() bool {
	return o.KeepEmptyRows != nil && *o.KeepEmptyRows
}

// ShouldIncludeTables returns whether to detect table candidates.
func (o Options) ShouldIncludeTables() bool {
	if o.IncludeTables != nil {
		return *o.IncludeTables
	}
	return true
}

// ShouldIncludePrintAreas returns whether to include print areas.
func (o Options) ShouldIncludePrintAreas() bool {
	if o.IncludePrintAreas != nil {
		return *o.IncludePrintAreas
	}
	return true
}

func (o Options) logger() *slog.Logger {
	if o.Logger != nil {
		return o.Logger
	}
	return slog.New(slog.DiscardHandler)
}
