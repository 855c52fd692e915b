package output

import (
	"path/filepath"
	"strconv"
	"strings"
)

// Stdout is the output directory that selects standard output.
const Stdout = "-"

// Path names the output file of the sheet at position pos of input:
// <dir>/<input stem>.<pos>.<ext>. An empty dir means the directory of
// input.
func Path(input, dir string, pos int, ext string) string {
	base := filepath.Base(input)
	stem := strings.TrimSuffix(base, filepath.Ext(base))
	if dir == "" {
		dir = filepath.Dir(input)
	}
	return filepath.Join(dir, stem+"."+strconv.Itoa(pos)+"."+ext)
}

// Delimiter is the line written between sheets on standard output.
func Delimiter(sheet string, pos int) string {
	return "--- " + strconv.Itoa(pos) + ": " + sheet + " ---\n"
}
