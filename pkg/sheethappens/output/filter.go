package output

import (
	"fmt"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"

	"github.com/ukaji3/sheethappens-go/pkg/sheethappens/models"
)

// RowNumberVar names the row number inside filter expressions.
const RowNumberVar = "_row"

// Filter is a compiled boolean expression over a record. Fields are
// variables named after the header (column letters without one); names
// that are not identifiers are reachable as $env["Unit price"].
type Filter struct {
	src  string
	prog *vm.Program
}

// NewFilter compiles src.
func NewFilter(src string) (*Filter, error) {
	prog, err := expr.Compile(src, expr.AllowUndefinedVariables())
	if err != nil {
		return nil, fmt.Errorf("compile filter %q: %w", src, err)
	}
	return &Filter{src: src, prog: prog}, nil
}

func (f *Filter) String() string { return f.src }

// Match evaluates the filter on row named by names. A nil result is false.
func (f *Filter) Match(row models.Row, names []string) (bool, error) {
	env := row.Project(names).Map()
	env[RowNumberVar] = row.Num
	result, err := expr.Run(f.prog, env)
	if err != nil {
		return false, fmt.Errorf("row %d: evaluate filter %q: %w", row.Num, f.src, err)
	}
	if result == nil {
		return false, nil
	}
	b, ok := result.(bool)
	if !ok {
		return false, fmt.Errorf("row %d: filter %q evaluated to %T, expected bool", row.Num, f.src, result)
	}
	return b, nil
}
