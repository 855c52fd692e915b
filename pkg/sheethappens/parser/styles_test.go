package parser

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ukaji3/sheethappens-go/internal/xlsxtest"
	"github.com/ukaji3/sheethappens-go/pkg/sheethappens/models"
)

func TestBuiltinKinds(t *testing.T) {
	want := map[int]models.ValueKind{
		0: models.General, 1: models.Integer, 2: models.Number, 3: models.Integer, 4: models.Number,
		5: models.Integer, 6: models.Integer, 7: models.Number, 8: models.Number,
		9: models.Percentage, 10: models.Percentage,
		11: models.Number, 12: models.Number, 13: models.Number,
		14: models.Date, 15: models.Date, 16: models.Date, 17: models.Date,
		18: models.Time, 19: models.Time, 20: models.Time, 21: models.Time,
		22: models.DateTime,
		27: models.Date, 30: models.Date, 36: models.Date,
		37: models.Integer, 38: models.Integer,
		39: models.Number, 40: models.Number, 41: models.Integer, 42: models.Integer, 43: models.Number, 44: models.Number,
		45: models.Time, 46: models.Time, 47: models.Time,
		48: models.Number, 49: models.Text,
		50: models.Date, 57: models.Date, 58: models.Date,
	}
	for id, kind := range want {
		got, ok := builtinKind(id)
		assert.True(t, ok, "id %d", id)
		assert.Equal(t, kind, got, "id %d", id)
	}
	for _, id := range []int{23, 24, 25, 26, 59, 100, 163} {
		_, ok := builtinKind(id)
		assert.False(t, ok, "id %d", id)
	}
}

// The code of every built-in with a fixed code classifies the same way as
// the id itself.
func TestBuiltinCodesAgreeWithTable(t *testing.T) {
	for id, code := range builtinFormats {
		want, _ := builtinKind(id)
		got := ClassifyFormat(code)
		if id == 12 || id == 13 {
			// Fractions have no decimal point in their code.
			continue
		}
		assert.Equal(t, want, got, "id %d code %q", id, code)
	}
}

func TestClassifyFormat(t *testing.T) {
	tests := []struct {
		code string
		want models.ValueKind
	}{
		{"General", models.General},
		{"", models.General},
		{"@", models.Text},
		{"yyyy-mm-dd", models.Date},
		{"[$-409]dddd, mmmm dd, yyyy", models.Date},
		{`d "de" mmmm "de" yyyy`, models.Date},
		{"mmm", models.Date},
		{"yyyy-mm-dd hh:mm:ss", models.DateTime},
		{"yyyy-mm-dd hh:mm:ss.000", models.DateTime},
		{"m/d/yy h:mm AM/PM", models.DateTime},
		{"hh:mm", models.Time},
		{"[h]:mm:ss", models.Time},
		{"mm:ss.0", models.Time},
		{"h:mm AM/PM", models.Time},
		{"0", models.Integer},
		{"#,##0", models.Integer},
		{`#,##0" days"`, models.Integer},
		{"0.000", models.Number},
		{`"$"#,##0.00;[Red]\-"$"#,##0.00`, models.Number},
		{"0.00E+00", models.Number},
		{"0%", models.Percentage},
		{"0.0%", models.Percentage},
		{`0.00\ "hrs"`, models.Number},
		{`[Red]"text only"`, models.General},
		{`;;;@`, models.Text},
		{`General" kg"`, models.General},
		{`General;-General`, models.General},
		{`General\ "pcs"`, models.General},
		{`0.0 "each"`, models.Number},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, ClassifyFormat(tt.code), "%q", tt.code)
	}
}

func TestParseStyles(t *testing.T) {
	src := xlsxtest.Styles(map[int]string{
		164: "yyyy-mm-dd",
		165: "0.0%",
		166: "hh:mm",
	}, 0, 14, 164, 165, 166, 4, 22, 49)
	st, err := ParseStyles(strings.NewReader(src))
	require.NoError(t, err)

	assert.Equal(t, 8, st.Len())
	want := []models.ValueKind{
		models.General, models.Date, models.Date, models.Percentage,
		models.Time, models.Number, models.DateTime, models.Text,
	}
	for i, kind := range want {
		assert.Equal(t, kind, st.KindOf(i), "style %d", i)
	}
	assert.Equal(t, models.General, st.KindOf(8))
	assert.Equal(t, models.General, st.KindOf(-1))

	assert.Equal(t, "yyyy-mm-dd", st.FormatCode(2))
	assert.Equal(t, "mm-dd-yy", st.FormatCode(1))
	assert.Equal(t, "General", st.FormatCode(99))
	assert.Equal(t, 165, st.NumFmtID(3))
}

func TestBuiltinDateFormatsWinOverCustomCodes(t *testing.T) {
	st := NewStyles(map[int]string{14: "0.00", 21: "@", 164: "0.00"}, 14, 21, 164)
	assert.Equal(t, models.Date, st.KindOf(0))
	assert.Equal(t, models.Time, st.KindOf(1))
	assert.Equal(t, models.Number, st.KindOf(2))
	assert.Equal(t, "0.00", st.FormatCode(0))
}

func TestParseStylesIgnoresNonCellFormats(t *testing.T) {
	src := `<styleSheet>
  <numFmts count="1"><numFmt numFmtId="164" formatCode="0.00"/></numFmts>
  <cellStyleXfs count="1"><xf numFmtId="14"/></cellStyleXfs>
  <cellXfs count="2">
    <xf numFmtId="0" applyNumberFormat="1"><alignment horizontal="left"/></xf>
    <xf/>
  </cellXfs>
  <dxfs count="1"><dxf><numFmt numFmtId="164" formatCode="yyyy"/></dxf></dxfs>
</styleSheet>`
	st, err := ParseStyles(strings.NewReader(src))
	require.NoError(t, err)
	assert.Equal(t, 2, st.Len())
	assert.Equal(t, models.General, st.KindOf(0))
	assert.Equal(t, models.General, st.KindOf(1))
	assert.Equal(t, "0.00", st.formats[164])
}

func TestParseStylesMalformed(t *testing.T) {
	_, err := ParseStyles(strings.NewReader(`<styleSheet><cellXfs><xf></cellXfs></styleSheet>`))
	assert.Error(t, err)

	_, err = ParseStyles(strings.NewReader(`<styleSheet><numFmts><numFmt numFmtId="x" formatCode="0"/></numFmts></styleSheet>`))
	assert.Error(t, err)
}

func TestNilStyles(t *testing.T) {
	var st *Styles
	assert.Equal(t, models.General, st.KindOf(3))
	assert.Equal(t, "General", st.FormatCode(3))
}
