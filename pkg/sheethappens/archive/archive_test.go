package archive

import (
	"archive/zip"
	"bytes"
	"encoding/binary"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ukaji3/sheethappens-go/internal/xlsxtest"
)

func testArchive(t *testing.T) []byte {
	return xlsxtest.Zip(t,
		xlsxtest.Part{Name: "xl/workbook.xml", Body: "<workbook/>"},
		xlsxtest.Part{Name: "xl/worksheets/sheet1.xml", Body: strings.Repeat("<row/>", 1000)},
		xlsxtest.Part{Name: "docProps/app.xml", Body: "stored", Store: true},
	)
}

func TestReadEntries(t *testing.T) {
	z, err := FromBytes(testArchive(t))
	require.NoError(t, err)

	entries := z.Entries()
	require.Len(t, entries, 3)
	assert.Equal(t, "xl/workbook.xml", entries[0].Name)
	assert.Equal(t, Deflate, entries[0].Method)
	assert.Equal(t, Store, entries[2].Method)
	assert.EqualValues(t, 6000, entries[1].UncompressedSize)
	assert.Less(t, entries[1].CompressedSize, entries[1].UncompressedSize)

	b, err := z.ReadEntry("xl/workbook.xml")
	require.NoError(t, err)
	assert.Equal(t, "<workbook/>", string(b))

	b, err = z.ReadEntry("docProps/app.xml")
	require.NoError(t, err)
	assert.Equal(t, "stored", string(b))

	rc, err := z.OpenEntry("xl/worksheets/sheet1.xml")
	require.NoError(t, err)
	b, err = io.ReadAll(rc)
	require.NoError(t, err)
	require.NoError(t, rc.Close())
	assert.Len(t, b, 6000)
}

func TestOpenFile(t *testing.T) {
	path := xlsxtest.WriteFile(t, "book.xlsx", testArchive(t))
	z, err := Open(path)
	require.NoError(t, err)
	defer z.Close()

	assert.True(t, z.Has("xl/workbook.xml"))
	assert.False(t, z.Has("xl/styles.xml"))
}

func TestLookupFallback(t *testing.T) {
	z, err := FromBytes(xlsxtest.Zip(t,
		xlsxtest.Part{Name: `XL\SharedStrings.xml`, Body: "a"},
		xlsxtest.Part{Name: "xl/styles.xml", Body: "exact"},
		xlsxtest.Part{Name: "XL/STYLES.XML", Body: "upper"},
	))
	require.NoError(t, err)

	b, err := z.ReadEntry("xl/sharedStrings.xml")
	require.NoError(t, err)
	assert.Equal(t, "a", string(b))

	b, err = z.ReadEntry("XL/STYLES.XML")
	require.NoError(t, err)
	assert.Equal(t, "upper", string(b))

	e, ok := z.Lookup("Xl/Styles.xml")
	require.True(t, ok)
	assert.Equal(t, "xl/styles.xml", e.Name)
}

func TestNotFound(t *testing.T) {
	z, err := FromBytes(testArchive(t))
	require.NoError(t, err)

	_, err = z.ReadEntry("xl/sharedStrings.xml")
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = z.OpenEntry("nope")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestTruncatedEndRecord(t *testing.T) {
	data := testArchive(t)
	for _, cut := range []int{1, 10, 21, 22, len(data) / 2} {
		_, err := FromBytes(data[:len(data)-cut])
		assert.ErrorIs(t, err, ErrCorrupt, "cut %d", cut)
	}
	_, err := FromBytes([]byte("PK"))
	assert.ErrorIs(t, err, ErrCorrupt)
	_, err = FromBytes(bytes.Repeat([]byte{0}, 100))
	assert.ErrorIs(t, err, ErrCorrupt)
}

// centralHeader returns the offset of the only central directory header.
func centralHeader(t *testing.T, data []byte) int {
	i := bytes.LastIndex(data, []byte("PK\x01\x02"))
	require.Greater(t, i, 0)
	return i
}

func TestBadLocalSignature(t *testing.T) {
	data := xlsxtest.Zip(t, xlsxtest.Part{Name: "a.xml", Body: "<a/>"})
	data[0] = 'X'

	z, err := FromBytes(data)
	require.NoError(t, err)
	_, err = z.ReadEntry("a.xml")
	assert.ErrorIs(t, err, ErrCorrupt)
}

func TestUnsupportedCompression(t *testing.T) {
	data := xlsxtest.Zip(t, xlsxtest.Part{Name: "a.xml", Body: "<a/>", Store: true})
	binary.LittleEndian.PutUint16(data[centralHeader(t, data)+10:], 12) // bzip2

	z, err := FromBytes(data)
	require.NoError(t, err)
	_, err = z.ReadEntry("a.xml")
	assert.ErrorIs(t, err, ErrUnsupportedCompression)
}

func TestEncryptedEntry(t *testing.T) {
	data := xlsxtest.Zip(t, xlsxtest.Part{Name: "a.xml", Body: "<a/>"})
	at := centralHeader(t, data) + 8
	binary.LittleEndian.PutUint16(data[at:], binary.LittleEndian.Uint16(data[at:])|flagEncrypted)

	z, err := FromBytes(data)
	require.NoError(t, err)
	_, err = z.ReadEntry("a.xml")
	assert.ErrorIs(t, err, ErrUnsupportedCompression)
}

func TestSizeMismatch(t *testing.T) {
	for _, tt := range []struct {
		name  string
		store bool
		size  uint32
	}{
		{"deflate short", false, 100},
		{"deflate long", false, 2},
		{"stored long", true, 2},
	} {
		t.Run(tt.name, func(t *testing.T) {
			data := xlsxtest.Zip(t, xlsxtest.Part{Name: "a.xml", Body: "<a>body</a>", Store: tt.store})
			binary.LittleEndian.PutUint32(data[centralHeader(t, data)+24:], tt.size)

			z, err := FromBytes(data)
			require.NoError(t, err)
			_, err = z.ReadEntry("a.xml")
			assert.ErrorIs(t, err, ErrCorrupt)
		})
	}
}

func TestChecksumMismatch(t *testing.T) {
	data := xlsxtest.Zip(t, xlsxtest.Part{Name: "a.xml", Body: "<a>body</a>"})
	binary.LittleEndian.PutUint32(data[centralHeader(t, data)+16:], 0xdeadbeef)

	z, err := FromBytes(data)
	require.NoError(t, err)
	_, err = z.ReadEntry("a.xml")
	assert.ErrorIs(t, err, ErrCorrupt)
}

func TestDuplicateNames(t *testing.T) {
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for i := 0; i < 2; i++ {
		w, err := zw.Create("a.xml")
		require.NoError(t, err)
		_, err = w.Write([]byte("x"))
		require.NoError(t, err)
	}
	require.NoError(t, zw.Close())

	_, err := FromBytes(buf.Bytes())
	assert.ErrorIs(t, err, ErrCorrupt)
}

func TestStreamedLocalHeaders(t *testing.T) {
	// zip.Writer.Create writes data descriptors with zeroed local sizes;
	// the central directory must be used instead.
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	w, err := zw.Create("xl/workbook.xml")
	require.NoError(t, err)
	_, err = w.Write([]byte("<workbook/>"))
	require.NoError(t, err)
	require.NoError(t, zw.Close())

	z, err := FromBytes(buf.Bytes())
	require.NoError(t, err)
	b, err := z.ReadEntry("xl/workbook.xml")
	require.NoError(t, err)
	assert.Equal(t, "<workbook/>", string(b))
}

func TestCommentAfterEndRecord(t *testing.T) {
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	require.NoError(t, zw.SetComment(strings.Repeat("c", 300)))
	w, err := zw.Create("a.xml")
	require.NoError(t, err)
	_, err = w.Write([]byte("<a/>"))
	require.NoError(t, err)
	require.NoError(t, zw.Close())

	z, err := FromBytes(buf.Bytes())
	require.NoError(t, err)
	assert.True(t, z.Has("a.xml"))
}

func TestReaderErrorsAreSticky(t *testing.T) {
	data := xlsxtest.Zip(t, xlsxtest.Part{Name: "a.xml", Body: "<a>body</a>", Store: true})
	binary.LittleEndian.PutUint32(data[centralHeader(t, data)+24:], 3)

	z, err := FromBytes(data)
	require.NoError(t, err)
	rc, err := z.OpenEntry("a.xml")
	require.NoError(t, err)
	defer rc.Close()

	_, err = io.ReadAll(rc)
	require.Error(t, err)
	_, again := rc.Read(make([]byte, 8))
	assert.True(t, errors.Is(again, ErrCorrupt))
}
