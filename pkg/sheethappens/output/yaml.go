//go:build !noyaml

package output

import (
	"bufio"
	"io"
	"math"
	"strconv"

	"gopkg.in/yaml.v3"

	"github.com/ukaji3/sheethappens-go/pkg/sheethappens/models"
)

func init() {
	Register("yaml", newYAML)
}

type yamlWriter struct {
	cfg Config
}

func newYAML(cfg Config) (Writer, error) {
	return &yamlWriter{cfg: cfg}, nil
}

func (w *yamlWriter) Ext() string { return "yaml" }

// WriteSheet writes a YAML sequence with one item per data row, shaped
// like the JSON output. Each item is encoded as soon as its row is read.
func (w *yamlWriter) WriteSheet(out io.Writer, sheet Source) error {
	bw := bufio.NewWriter(out)
	n := 0
	err := w.cfg.scan(sheet, nil, func(row models.Row, names []string) error {
		var item *yaml.Node
		if w.cfg.NoHeader {
			item = &yaml.Node{Kind: yaml.SequenceNode, Style: yaml.FlowStyle}
			for _, c := range row.Cells {
				item.Content = append(item.Content, scalarNode(c.Value))
			}
		} else {
			item = &yaml.Node{Kind: yaml.MappingNode}
			for _, f := range row.Project(names) {
				item.Content = append(item.Content,
					&yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: f.Name},
					scalarNode(f.Value))
			}
		}
		n++
		enc := yaml.NewEncoder(bw)
		enc.SetIndent(2)
		if err := enc.Encode(&yaml.Node{Kind: yaml.SequenceNode, Content: []*yaml.Node{item}}); err != nil {
			return err
		}
		return enc.Close()
	})
	if err != nil {
		return err
	}
	if n == 0 {
		bw.WriteString("[]\n")
	}
	return bw.Flush()
}

// scalarNode tags v with the YAML type matching its tag, so strings that
// look like numbers stay quoted. Dates are timestamps; date-times and times
// keep the text the other writers use.
func scalarNode(v models.Value) *yaml.Node {
	n := &yaml.Node{Kind: yaml.ScalarNode, Value: v.String()}
	switch v.Tag() {
	case models.NullTag:
		n.Tag, n.Value = "!!null", "null"
	case models.IntegerTag:
		n.Tag = "!!int"
	case models.FloatTag:
		n.Tag = "!!float"
		f, _ := v.Float()
		switch {
		case math.IsNaN(f):
			n.Value = ".nan"
		case math.IsInf(f, 1):
			n.Value = ".inf"
		case math.IsInf(f, -1):
			n.Value = "-.inf"
		case f == math.Trunc(f):
			n.Value = strconv.FormatFloat(f, 'f', 1, 64)
		}
	case models.BoolTag:
		n.Tag = "!!bool"
	case models.DateTag:
		n.Tag = "!!timestamp"
	default:
		n.Tag = "!!str"
		if isYAML11Bool(n.Value) {
			n.Style = yaml.DoubleQuotedStyle
		}
	}
	return n
}

// isYAML11Bool reports whether a plain scalar s would load as a boolean
// under YAML 1.1 rules.
func isYAML11Bool(s string) bool {
	switch s {
	case "y", "Y", "yes", "Yes", "YES", "n", "N", "no", "No", "NO",
		"true", "True", "TRUE", "false", "False", "FALSE",
		"on", "On", "ON", "off", "Off", "OFF":
		return true
	}
	return false
}
