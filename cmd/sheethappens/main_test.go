package main

import (
	"bytes"
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ukaji3/sheethappens-go/internal/xlsxtest"
	"github.com/ukaji3/sheethappens-go/pkg/sheethappens"
)

func writeBook(t *testing.T) string {
	t.Helper()
	w := xlsxtest.Workbook{
		Sheets: []xlsxtest.Sheet{
			{Name: "Data", Rows: `<row r="1"><c r="A1" t="s"><v>0</v></c><c r="B1" t="s"><v>1</v></c></row>` +
				`<row r="2"><c r="A2" t="str"><v>bolt</v></c><c r="B2"><v>12</v></c></row>` +
				`<row r="3"><c r="A3" t="str"><v>nut</v></c><c r="B3"><v>3</v></c></row>`},
			{Name: "Secret", State: "hidden", Rows: `<row r="1"><c r="A1" t="str"><v>x</v></c></row>`},
			{Name: "Notes"},
		},
		SharedStrings: xlsxtest.SST("name", "qty"),
		DefinedNames:  `<definedName name="_xlnm.Print_Area" localSheetId="0">Data!$A$1:$A$2</definedName>`,
	}
	return xlsxtest.WriteFile(t, "book.xlsx", w.Bytes(t))
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	cmd, err := newRootCmd(&out)
	require.NoError(t, err)
	cmd.SetArgs(args)
	cmd.SetErr(io.Discard)
	err = cmd.Execute()
	return out.String(), err
}

func readFile(t *testing.T, path string) string {
	t.Helper()
	b, err := os.ReadFile(path)
	require.NoError(t, err)
	return string(b)
}

func TestConvertDefaultCSV(t *testing.T) {
	book := writeBook(t)
	_, err := execute(t, book)
	require.NoError(t, err)

	dir := filepath.Dir(book)
	assert.Equal(t, "name,qty\nbolt,12\nnut,3\n", readFile(t, filepath.Join(dir, "book.1.csv")))
	assert.Equal(t, "x\n", readFile(t, filepath.Join(dir, "book.2.csv")))
	assert.Empty(t, readFile(t, filepath.Join(dir, "book.3.csv")))
}

func TestConvertStdout(t *testing.T) {
	book := writeBook(t)
	out, err := execute(t, "--json", "-o", "-", "-s", "Data", "--where", "qty > 5", book)
	require.NoError(t, err)
	assert.Equal(t, `[
    {
        "name": "bolt",
        "qty": 12
    }
]
`, out)

	out, err = execute(t, "-o", "-", "-s", "Data", "-s", "2", "-s", "Data", book)
	require.NoError(t, err)
	assert.Equal(t, "name,qty\nbolt,12\nnut,3\n--- 2: Secret ---\nx\n", out)
}

func TestConvertSelection(t *testing.T) {
	book := writeBook(t)
	dir := filepath.Join(t.TempDir(), "out")

	_, err := execute(t, "--skip-hidden", "--exclude", "^N", "--yaml", "--csv", "-o", dir, book)
	require.NoError(t, err)
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	var names []string
	for _, e := range entries {
		names = append(names, e.Name())
	}
	assert.Equal(t, []string{"book.1.csv", "book.1.yaml"}, names)
	assert.Contains(t, readFile(t, filepath.Join(dir, "book.1.yaml")), "name: bolt")
}

func TestConvertEnvironment(t *testing.T) {
	book := writeBook(t)
	t.Setenv("SHEETHAPPENS_NO_HEADER", "true")
	t.Setenv("SHEETHAPPENS_JSON", "1")
	t.Setenv("SHEETHAPPENS_OUTPUT", "-")

	out, err := execute(t, "-s", "Data", book)
	require.NoError(t, err)
	var rows [][]any
	require.NoError(t, json.Unmarshal([]byte(out), &rows))
	assert.Equal(t, [][]any{{"name", "qty"}, {"bolt", float64(12)}, {"nut", float64(3)}}, rows)

	// The command line wins over the environment.
	out, err = execute(t, "-s", "Data", "--no-header=false", book)
	require.NoError(t, err)
	assert.Contains(t, out, `"name": "nut"`)
}

func TestConvertErrors(t *testing.T) {
	book := writeBook(t)

	_, err := execute(t, "-s", "Missing", book)
	assert.ErrorIs(t, err, sheethappens.ErrSheetNotFound)

	_, err = execute(t, "--errors", "drop", book)
	assert.Error(t, err)
	_, err = execute(t, "--delimiter", ";;", book)
	assert.Error(t, err)
	_, err = execute(t, "--where", "qty >", book)
	assert.Error(t, err)
	_, err = execute(t, "--include", "(", book)
	assert.Error(t, err)

	_, err = execute(t, filepath.Join(t.TempDir(), "missing.xlsx"))
	assert.Error(t, err)

	bad := xlsxtest.WriteFile(t, "bad.xlsx", []byte("not a zip file at all, really"))
	_, err = execute(t, "-o", "-", bad)
	assert.ErrorIs(t, err, sheethappens.ErrCorruptArchive)

	_, err = execute(t)
	assert.Error(t, err)
}

func TestParseDelimiter(t *testing.T) {
	for in, want := range map[string]rune{",": ',', ";": ';', "tab": '\t', `\t`: '\t', "|": '|'} {
		got, err := parseDelimiter(in)
		require.NoError(t, err)
		assert.Equal(t, want, got, in)
	}
	_, err := parseDelimiter("")
	assert.Error(t, err)
}

func TestSheetsCommand(t *testing.T) {
	out, err := execute(t, "sheets", writeBook(t))
	require.NoError(t, err)

	lines := bytes.Split(bytes.TrimSpace([]byte(out)), []byte("\n"))
	require.Len(t, lines, 4)
	assert.Contains(t, string(lines[0]), "VISIBILITY")
	assert.Regexp(t, `^2\s+Secret\s+hidden\s+xl/worksheets/sheet2\.xml\s+\d+ B$`, string(lines[2]))
}

func TestDumpCommand(t *testing.T) {
	book := writeBook(t)
	out, err := execute(t, "dump", book)
	require.NoError(t, err)

	var wb struct {
		BookName string `json:"book_name"`
		Sheets   []struct {
			Name            string           `json:"name"`
			Visibility      string           `json:"visibility"`
			Rows            []map[string]any `json:"rows"`
			TableCandidates []string         `json:"table_candidates"`
		} `json:"sheets"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &wb))
	assert.Equal(t, "book.xlsx", wb.BookName)
	require.Len(t, wb.Sheets, 3)
	assert.Equal(t, "hidden", wb.Sheets[1].Visibility)
	assert.Len(t, wb.Sheets[0].Rows, 3)
	assert.Equal(t, []string{"A1:B3"}, wb.Sheets[0].TableCandidates)

	sheetsDir := filepath.Join(t.TempDir(), "sheets")
	areasDir := filepath.Join(t.TempDir(), "areas")
	out, err = execute(t, "dump", "--pretty", "--sheets-dir", sheetsDir, "--print-areas-dir", areasDir, book)
	require.NoError(t, err)
	assert.Empty(t, out)
	assert.Contains(t, readFile(t, filepath.Join(sheetsDir, "Secret.json")), `"name": "Secret"`)
	area := readFile(t, filepath.Join(areasDir, "Data_area1.json"))
	assert.Contains(t, area, `"bolt"`)
	assert.NotContains(t, area, `"qty"`)

	path := filepath.Join(t.TempDir(), "dump.json")
	_, err = execute(t, "dump", "-o", path, "--no-tables", book)
	require.NoError(t, err)
	assert.NotContains(t, readFile(t, path), "table_candidates")
}
