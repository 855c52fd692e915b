// Package main provides the CLI entry point for sheethappens.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"regexp"
	"syscall"

	"github.com/UNO-SOFT/zlog/v2"
	"github.com/peterbourgon/ff/v3"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/ukaji3/sheethappens-go/pkg/sheethappens"
	"github.com/ukaji3/sheethappens-go/pkg/sheethappens/output"
)

// EnvPrefix prefixes the environment variables that set flag defaults,
// e.g. SHEETHAPPENS_SKIP_HIDDEN=1.
const EnvPrefix = "SHEETHAPPENS"

var (
	verbose zlog.VerboseVar
	logger  = zlog.NewLogger(zlog.MaybeConsoleHandler(&verbose, os.Stderr)).SLog()
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	rootCmd, err := newRootCmd(os.Stdout)
	if err != nil {
		slog.Error("MAIN", "error", err)
		os.Exit(2)
	}
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

// converter holds the flags of the convert command.
type converter struct {
	formats     map[string]*bool
	outDir      string
	sheets      []string
	include     string
	exclude     string
	skipHidden  bool
	noHeader    bool
	sanitize    bool
	errors      string
	delimiter   string
	encoding    string
	ignoreEmpty bool
	keepEmpty   bool
	where       string

	stdout  io.Writer
	written int
}

func newRootCmd(stdout io.Writer) (*cobra.Command, error) {
	c := &converter{stdout: stdout, formats: make(map[string]*bool)}

	rootCmd := &cobra.Command{
		Use:   "sheethappens [flags] input.xlsx...",
		Short: "Convert spreadsheet sheets to CSV, JSON or YAML",
		Long: `sheethappens writes every sheet of each input workbook to its own file,
named <input stem>.<sheet position>.<ext> next to the input or in --output.

Flags can also be set from SHEETHAPPENS_* environment variables, for example
SHEETHAPPENS_SKIP_HIDDEN=1.`,
		Args:          cobra.MinimumNArgs(1),
		SilenceUsage: true,
		RunE:         c.run,
	}
	rootCmd.SetOut(stdout)

	fs := flag.NewFlagSet("sheethappens", flag.ContinueOnError)
	fs.Var(&verbose, "v", "logging verbosity")
	for _, name := range output.Names() {
		c.formats[name] = fs.Bool(name, false, "write "+name+" (default csv when no format is given)")
	}
	fs.StringVar(&c.outDir, "output", "", `output directory, "-" for standard output (default: next to the input)`)
	fs.StringVar(&c.include, "include", "", "only sheets whose name matches this regexp")
	fs.StringVar(&c.exclude, "exclude", "", "skip sheets whose name matches this regexp")
	fs.BoolVar(&c.skipHidden, "skip-hidden", false, "skip hidden sheets")
	fs.BoolVar(&c.noHeader, "no-header", false, "write rows as arrays instead of records keyed by the first row")
	fs.BoolVar(&c.sanitize, "sanitize", false, "trim strings and join their lines with spaces")
	fs.StringVar(&c.errors, "errors", string(output.ErrorsAsToken), "formula error cells: token or null")
	fs.StringVar(&c.delimiter, "delimiter", ",", `CSV field delimiter ("tab" for a tab)`)
	fs.StringVar(&c.encoding, "encoding", "utf-8", "CSV charset")
	fs.BoolVar(&c.ignoreEmpty, "ignore-empty", false, "skip rows without any value")
	fs.BoolVar(&c.keepEmpty, "keep-empty-rows", false, "write an empty row for every row number a sheet skips")
	fs.StringVar(&c.where, "where", "", "keep only rows matching this expression, e.g. 'qty > 0'")

	// The environment sets the defaults; cobra applies the command line on
	// top of them.
	if err := ff.Parse(fs, []string{}, ff.WithEnvVarPrefix(EnvPrefix)); err != nil {
		return nil, fmt.Errorf("environment: %w", err)
	}
	fs.VisitAll(func(gf *flag.Flag) {
		pf := pflag.PFlagFromGoFlag(gf)
		switch gf.Name {
		case "v":
			rootCmd.PersistentFlags().AddFlag(pf)
			return
		case "output":
			pf.Shorthand = "o"
		}
		rootCmd.Flags().AddFlag(pf)
	})
	rootCmd.Flags().StringArrayVarP(&c.sheets, "sheet", "s", nil, "sheet name or 1-based position (repeatable; default all)")

	rootCmd.AddCommand(newSheetsCmd(), newDumpCmd())
	return rootCmd, nil
}

func (c *converter) run(cmd *cobra.Command, args []string) error {
	cfg, err := c.config()
	if err != nil {
		return err
	}
	var writers []output.Writer
	for _, name := range output.Names() {
		if *c.formats[name] {
			w, err := output.New(name, cfg)
			if err != nil {
				return err
			}
			writers = append(writers, w)
		}
	}
	if len(writers) == 0 {
		w, err := output.New("csv", cfg)
		if err != nil {
			return err
		}
		writers = append(writers, w)
	}

	var errs []error
	for _, path := range args {
		if err := cmd.Context().Err(); err != nil {
			return err
		}
		if err := c.convertFile(cmd.Context(), path, writers); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", path, err))
		}
	}
	return errors.Join(errs...)
}

func (c *converter) config() (output.Config, error) {
	cfg := output.Config{
		NoHeader:    c.noHeader,
		Sanitize:    c.sanitize,
		IgnoreEmpty: c.ignoreEmpty,
		Encoding:    c.encoding,
	}
	var err error
	if cfg.Errors, err = output.ParseErrorPolicy(c.errors); err != nil {
		return cfg, err
	}
	if cfg.Delimiter, err = parseDelimiter(c.delimiter); err != nil {
		return cfg, err
	}
	if c.where != "" {
		if cfg.Filter, err = output.NewFilter(c.where); err != nil {
			return cfg, err
		}
	}
	return cfg, nil
}

func parseDelimiter(s string) (rune, error) {
	switch s {
	case "tab", `\t`:
		return '\t', nil
	}
	r := []rune(s)
	if len(r) != 1 {
		return 0, fmt.Errorf("delimiter %q must be a single character", s)
	}
	return r[0], nil
}

func (c *converter) convertFile(ctx context.Context, path string, writers []output.Writer) error {
	b, err := sheethappens.Open(path,
		sheethappens.WithLogger(logger),
		sheethappens.WithKeepEmptyRows(c.keepEmpty))
	if err != nil {
		return err
	}
	defer b.Close()

	sheets, err := c.selectSheets(b)
	if err != nil {
		return err
	}
	logger.Info("converting", "book", path, "sheets", len(sheets), "of", len(b.SheetNames()))

	var errs []error
	for _, s := range sheets {
		if err := ctx.Err(); err != nil {
			return err
		}
		for _, w := range writers {
			if err := c.writeSheet(path, s, w); err != nil {
				errs = append(errs, err)
				break
			}
		}
	}
	return errors.Join(errs...)
}

// selectSheets returns the sheets named by --sheet (all when none is
// given) that pass --include, --exclude and --skip-hidden.
func (c *converter) selectSheets(b *sheethappens.Book) ([]*sheethappens.Sheet, error) {
	var include, exclude *regexp.Regexp
	var err error
	if c.include != "" {
		if include, err = regexp.Compile(c.include); err != nil {
			return nil, fmt.Errorf("include: %w", err)
		}
	}
	if c.exclude != "" {
		if exclude, err = regexp.Compile(c.exclude); err != nil {
			return nil, fmt.Errorf("exclude: %w", err)
		}
	}

	candidates := b.Sheets()
	if len(c.sheets) > 0 {
		candidates = nil
		seen := make(map[int]bool)
		for _, ref := range c.sheets {
			s, err := b.Find(ref)
			if err != nil {
				return nil, err
			}
			if !seen[s.Position()] {
				seen[s.Position()] = true
				candidates = append(candidates, s)
			}
		}
	}

	var selected []*sheethappens.Sheet
	for _, s := range candidates {
		switch {
		case c.skipHidden && s.Visibility() != sheethappens.Visible,
			include != nil && !include.MatchString(s.Name()),
			exclude != nil && exclude.MatchString(s.Name()):
			logger.Debug("sheet skipped", "sheet", s.Name(), "visibility", s.Visibility())
			continue
		}
		selected = append(selected, s)
	}
	return selected, nil
}

func (c *converter) writeSheet(input string, s *sheethappens.Sheet, w output.Writer) error {
	if c.outDir == output.Stdout {
		if c.written > 0 {
			if _, err := io.WriteString(c.stdout, output.Delimiter(s.Name(), s.Position())); err != nil {
				return err
			}
		}
		c.written++
		return w.WriteSheet(c.stdout, s)
	}

	if c.outDir != "" {
		if err := os.MkdirAll(c.outDir, 0o755); err != nil {
			return err
		}
	}
	path := output.Path(input, c.outDir, s.Position(), w.Ext())
	fh, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := w.WriteSheet(fh, s); err != nil {
		fh.Close()
		return fmt.Errorf("write %s: %w", path, err)
	}
	if err := fh.Close(); err != nil {
		return err
	}
	c.written++
	logger.Info("sheet written", "sheet", s.Name(), "path", path)
	return nil
}
