package output

import (
	"bufio"
	"bytes"
	"encoding/json"
	"io"

	"github.com/ukaji3/sheethappens-go/pkg/sheethappens/models"
)

func init() {
	Register("json", newJSON)
}

const jsonIndent = "    "

type jsonWriter struct {
	cfg Config
}

func newJSON(cfg Config) (Writer, error) {
	return &jsonWriter{cfg: cfg}, nil
}

func (w *jsonWriter) Ext() string { return "json" }

// WriteSheet writes a JSON array with one element per data row: an object
// keyed by the header, or with NoHeader an array of values. Rows are
// encoded as they are read.
func (w *jsonWriter) WriteSheet(out io.Writer, sheet Source) error {
	bw := bufio.NewWriter(out)
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent(jsonIndent, jsonIndent)

	n := 0
	err := w.cfg.scan(sheet, nil, func(row models.Row, names []string) error {
		buf.Reset()
		var item any = row.Values()
		if !w.cfg.NoHeader {
			item = row.Project(names)
		}
		if err := enc.Encode(item); err != nil {
			return err
		}
		if n == 0 {
			bw.WriteString("[\n" + jsonIndent)
		} else {
			bw.WriteString(",\n" + jsonIndent)
		}
		n++
		_, err := bw.Write(bytes.TrimSuffix(buf.Bytes(), []byte("\n")))
		return err
	})
	if err != nil {
		return err
	}

	if n == 0 {
		bw.WriteString("[]\n")
	} else {
		bw.WriteString("\n]\n")
	}
	return bw.Flush()
}
