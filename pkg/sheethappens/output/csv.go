package output

import (
	"bufio"
	"encoding/csv"
	"fmt"
	"io"
	"strings"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/htmlindex"

	"github.com/ukaji3/sheethappens-go/pkg/sheethappens/models"
)

func init() {
	Register("csv", newCSV)
}

// GetEncoding returns the charset called name, or nil for UTF-8.
func GetEncoding(name string) (encoding.Encoding, error) {
	name = strings.ToLower(name)
	if name == "" || name == "utf-8" || name == "utf8" {
		return nil, nil
	}
	enc, err := htmlindex.Get(name)
	if err != nil {
		return nil, fmt.Errorf("charset %q: %w", name, err)
	}
	return enc, nil
}

type csvWriter struct {
	cfg   Config
	comma rune
	enc   encoding.Encoding
}

func newCSV(cfg Config) (Writer, error) {
	w := &csvWriter{cfg: cfg, comma: cfg.Delimiter}
	if w.comma == 0 {
		w.comma = ','
	}
	if w.comma == '"' || w.comma == '\r' || w.comma == '\n' {
		return nil, fmt.Errorf("invalid CSV delimiter %q", w.comma)
	}
	var err error
	if w.enc, err = GetEncoding(cfg.Encoding); err != nil {
		return nil, err
	}
	return w, nil
}

func (w *csvWriter) Ext() string { return "csv" }

// WriteSheet writes every row, the header included, one record per line.
// Null cells are empty fields.
func (w *csvWriter) WriteSheet(out io.Writer, sheet Source) error {
	bw := bufio.NewWriter(out)
	dst := io.Writer(bw)
	var closer io.Closer
	if w.enc != nil {
		dst = w.enc.NewEncoder().Writer(bw)
		closer, _ = dst.(io.Closer)
	}
	cw := csv.NewWriter(dst)
	cw.Comma = w.comma

	var record []string
	write := func(row models.Row) error {
		record = record[:0]
		for _, c := range row.Cells {
			record = append(record, c.Value.String())
		}
		return cw.Write(record)
	}
	err := w.cfg.scan(sheet, write, func(row models.Row, _ []string) error {
		return write(row)
	})
	if err != nil {
		return err
	}

	cw.Flush()
	if err := cw.Error(); err != nil {
		return err
	}
	if closer != nil {
		if err := closer.Close(); err != nil {
			return err
		}
	}
	return bw.Flush()
}
