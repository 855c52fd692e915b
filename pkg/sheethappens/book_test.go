package sheethappens

import (
	"bytes"
	"errors"
	"log/slog"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/ukaji3/sheethappens-go/internal/xlsxtest"
	"github.com/ukaji3/sheethappens-go/pkg/sheethappens/models"
)

func fixture() xlsxtest.Workbook {
	return xlsxtest.Workbook{
		Sheets: []xlsxtest.Sheet{
			{Name: "Data", Rows: `<row r="1"><c r="A1" t="s"><v>0</v></c><c r="B1" t="s"><v>1</v></c></row>` +
				`<row r="2"><c r="A2"><v>1</v></c><c r="B2" s="1"><v>45366</v></c></row>` +
				`<row r="3"><c r="A3"><v>2.5</v></c><c r="B3" t="e"><f>1/0</f><v>#DIV/0!</v></c></row>`},
			{Name: "Secret", State: "hidden", Rows: `<row r="1"><c r="A1" t="b"><v>1</v></c></row>`},
			{Name: "Empty"},
		},
		SharedStrings: xlsxtest.SST("name", "when"),
		Styles:        xlsxtest.Styles(nil, 0, 14),
		DefinedNames:  `<definedName name="_xlnm.Print_Area" localSheetId="0">Data!$A$1:$B$2</definedName>`,
	}
}

func openFixture(t *testing.T, w xlsxtest.Workbook, opts ...Option) *Book {
	t.Helper()
	b, err := OpenBytes(w.Bytes(t), opts...)
	require.NoError(t, err)
	t.Cleanup(func() { b.Close() })
	return b
}

func TestOpenSheets(t *testing.T) {
	b := openFixture(t, fixture())

	assert.Equal(t, []string{"Data", "Secret", "Empty"}, b.SheetNames())
	assert.Len(t, b.Sheets(), 3)
	assert.Equal(t, models.Epoch1900, b.Epoch())

	s, err := b.Sheet("Secret")
	require.NoError(t, err)
	assert.Equal(t, 2, s.Position())
	assert.Equal(t, Hidden, s.Visibility())
	assert.Equal(t, "xl/worksheets/sheet2.xml", s.Part())

	e, ok := s.Entry()
	require.True(t, ok)
	assert.Positive(t, e.UncompressedSize)

	s, err = b.SheetAt(3)
	require.NoError(t, err)
	assert.Equal(t, "Empty", s.Name())

	_, err = b.Sheet("Nope")
	assert.ErrorIs(t, err, ErrSheetNotFound)
	_, err = b.SheetAt(0)
	assert.ErrorIs(t, err, ErrSheetNotFound)
	_, err = b.SheetAt(4)
	assert.ErrorIs(t, err, ErrSheetNotFound)
}

func TestFind(t *testing.T) {
	w := fixture()
	w.Sheets[2].Name = "1"
	b := openFixture(t, w)

	s, err := b.Find("Secret")
	require.NoError(t, err)
	assert.Equal(t, "Secret", s.Name())

	// A sheet named "1" wins over position 1.
	s, err = b.Find("1")
	require.NoError(t, err)
	assert.Equal(t, 3, s.Position())

	s, err = b.Find("2")
	require.NoError(t, err)
	assert.Equal(t, "Secret", s.Name())

	_, err = b.Find("9")
	assert.ErrorIs(t, err, ErrSheetNotFound)
	_, err = b.Find("Other")
	assert.ErrorIs(t, err, ErrSheetNotFound)
}

func TestSheetRows(t *testing.T) {
	b := openFixture(t, fixture())
	s, err := b.Sheet("Data")
	require.NoError(t, err)

	rows, err := s.ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 3)

	assert.Equal(t, []models.Value{models.StringValue("name"), models.StringValue("when")}, rows[0].Values())
	assert.Equal(t, models.IntegerValue(1), rows[1].At(0))
	assert.Equal(t, models.DateValue(time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC)), rows[1].At(1))
	assert.Equal(t, models.Date, rows[1].Cells[1].Kind)

	// A row holding an error cell is still emitted.
	assert.Equal(t, 3, rows[2].Num)
	assert.Equal(t, models.FloatValue(2.5), rows[2].At(0))
	assert.Equal(t, models.ErrorValue("#DIV/0!"), rows[2].At(1))
	assert.Empty(t, rows[2].Errors())
}

func TestSheetRowsWidth(t *testing.T) {
	b := openFixture(t, fixture())
	s, err := b.Sheet("Data")
	require.NoError(t, err)

	rr, err := s.Rows()
	require.NoError(t, err)
	defer rr.Close()
	assert.Equal(t, 2, rr.Width())

	s, err = b.Sheet("Empty")
	require.NoError(t, err)
	rows, err := s.ReadAll()
	require.NoError(t, err)
	assert.Empty(t, rows)
}

func TestSheetIterationIsRepeatable(t *testing.T) {
	b := openFixture(t, fixture())
	s, err := b.SheetAt(1)
	require.NoError(t, err)

	first, err := s.ReadAll()
	require.NoError(t, err)
	var second []models.Row
	for row, err := range s.All() {
		require.NoError(t, err)
		second = append(second, row)
	}
	assert.Equal(t, first, second)

	n := 0
	for range s.All() {
		n++
		break
	}
	assert.Equal(t, 1, n)
}

func TestKeepEmptyRows(t *testing.T) {
	w := xlsxtest.Workbook{Sheets: []xlsxtest.Sheet{
		{Name: "Gaps", Rows: `<row r="2"><c r="A2"><v>1</v></c></row><row r="4"><c r="A4"><v>2</v></c></row>`},
	}}

	rows, err := openFixture(t, w).Sheets()[0].ReadAll()
	require.NoError(t, err)
	assert.Len(t, rows, 2)

	rows, err = openFixture(t, w, WithKeepEmptyRows(true)).Sheets()[0].ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 4)
	assert.True(t, rows[0].Empty())
	assert.True(t, rows[2].Empty())
}

func TestMissingPartIsScopedToSheet(t *testing.T) {
	w := fixture()
	w.Sheets[1].NoPart = true
	w.Sheets[2].NoRel = true
	b := openFixture(t, w)

	for _, name := range []string{"Secret", "Empty"} {
		s, err := b.Sheet(name)
		require.NoError(t, err)
		_, err = s.Rows()
		assert.ErrorIs(t, err, ErrMissingPart, name)
		var pe *PartError
		require.True(t, errors.As(err, &pe), name)
		assert.Equal(t, name, pe.Sheet)
	}

	rows, err := b.Sheets()[0].ReadAll()
	require.NoError(t, err)
	assert.Len(t, rows, 3)
}

func TestMalformedSheet(t *testing.T) {
	w := fixture()
	w.Sheets[0].Rows = `<row r="1"><c r="A1"><v>1</v></c></row><row r="2"><c r="A2"><v>&bogus;</v></c></row>`
	b := openFixture(t, w)

	var got []models.Row
	var iterErr error
	for row, err := range b.Sheets()[0].All() {
		if err != nil {
			iterErr = err
			break
		}
		got = append(got, row)
	}
	// The width pass reads the whole part, so nothing is yielded.
	assert.Empty(t, got)
	assert.ErrorIs(t, iterErr, ErrMalformedXML)
	var pe *PartError
	require.True(t, errors.As(iterErr, &pe))
	assert.Equal(t, "xl/worksheets/sheet1.xml", pe.Part)
}

func TestOpenErrors(t *testing.T) {
	data := fixture().Bytes(t)

	_, err := OpenBytes(data[:len(data)-10])
	assert.ErrorIs(t, err, ErrCorruptArchive)

	_, err = OpenBytes([]byte("not a zip"))
	assert.ErrorIs(t, err, ErrCorruptArchive)

	_, err = Open(filepath.Join(t.TempDir(), "missing.xlsx"))
	assert.Error(t, err)

	_, err = OpenBytes(xlsxtest.Zip(t, xlsxtest.Part{Name: "docProps/app.xml", Body: "<Properties/>"}))
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestOpenMalformedSharedStrings(t *testing.T) {
	parts := fixture().Parts()
	for i, p := range parts {
		if p.Name == "xl/sharedStrings.xml" {
			parts[i].Body = `<sst><si><t>open`
		}
	}
	_, err := OpenBytes(xlsxtest.Zip(t, parts...))
	assert.ErrorIs(t, err, ErrMalformedXML)
	var pe *PartError
	require.True(t, errors.As(err, &pe))
	assert.Equal(t, "xl/sharedStrings.xml", pe.Part)
	assert.Empty(t, pe.Sheet)
}

func TestOpenWithoutPackageRelationships(t *testing.T) {
	var parts []xlsxtest.Part
	for _, p := range fixture().Parts() {
		if p.Name != "_rels/.rels" {
			parts = append(parts, p)
		}
	}
	b, err := OpenBytes(xlsxtest.Zip(t, parts...))
	require.NoError(t, err)
	defer b.Close()
	assert.Len(t, b.SheetNames(), 3)
}

func TestOpenWithoutSharedStringsOrStyles(t *testing.T) {
	w := xlsxtest.Workbook{Sheets: []xlsxtest.Sheet{
		{Name: "S", Rows: `<row r="1"><c r="A1" s="3"><v>44197</v></c><c r="B1" t="s"><v>0</v></c></row>`},
	}}
	rows, err := openFixture(t, w).Sheets()[0].ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, models.IntegerValue(44197), rows[0].At(0))
	assert.True(t, rows[0].At(1).IsNull())
	assert.ErrorIs(t, rows[0].Cells[1].Err, ErrIndexOutOfRange)
}

func TestDate1904(t *testing.T) {
	w := xlsxtest.Workbook{
		Date1904: true,
		Styles:   xlsxtest.Styles(nil, 14),
		Sheets:   []xlsxtest.Sheet{{Name: "S", Rows: `<row r="1"><c r="A1" s="0"><v>0</v></c></row>`}},
	}
	b := openFixture(t, w)
	assert.Equal(t, models.Epoch1904, b.Epoch())

	rows, err := b.Sheets()[0].ReadAll()
	require.NoError(t, err)
	assert.Equal(t, models.DateValue(time.Date(1904, 1, 1, 0, 0, 0, 0, time.UTC)), rows[0].At(0))
}

func TestOpenLogs(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	openFixture(t, fixture(), WithLogger(logger))

	assert.Contains(t, buf.String(), "workbook opened")
	assert.Contains(t, buf.String(), "sheets=3")
}

func TestOpenExcelizeWorkbook(t *testing.T) {
	f := excelize.NewFile()
	defer f.Close()

	require.NoError(t, f.SetCellValue("Sheet1", "A1", "Header1"))
	require.NoError(t, f.SetCellValue("Sheet1", "B1", "Header2"))
	require.NoError(t, f.SetCellValue("Sheet1", "A2", 100))
	require.NoError(t, f.SetCellValue("Sheet1", "B2", 200.5))
	require.NoError(t, f.SetCellValue("Sheet1", "A3", true))
	require.NoError(t, f.SetCellValue("Sheet1", "C3", "Text"))
	_, err := f.NewSheet("Hidden")
	require.NoError(t, err)
	require.NoError(t, f.SetCellValue("Hidden", "A1", "x"))
	require.NoError(t, f.SetSheetVisible("Hidden", false))

	path := filepath.Join(t.TempDir(), "test.xlsx")
	require.NoError(t, f.SaveAs(path))

	b, err := Open(path)
	require.NoError(t, err)
	defer b.Close()
	assert.Equal(t, "test.xlsx", b.Name())
	assert.Equal(t, []string{"Sheet1", "Hidden"}, b.SheetNames())

	s, err := b.Sheet("Hidden")
	require.NoError(t, err)
	assert.Equal(t, Hidden, s.Visibility())

	rows, err := b.Sheets()[0].ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, []models.Value{models.StringValue("Header1"), models.StringValue("Header2"), models.Null}, rows[0].Values())
	assert.Equal(t, models.IntegerValue(100), rows[1].At(0))
	assert.Equal(t, models.FloatValue(200.5), rows[1].At(1))
	assert.Equal(t, models.BoolValue(true), rows[2].At(0))
	assert.Equal(t, models.StringValue("Text"), rows[2].At(2))
}
