// Package archive reads ZIP containers through their central directory.
//
// Entries are located from the end-of-central-directory record and are only
// decompressed when opened. The central directory is authoritative: sizes in
// local file headers are ignored, so archives written in streaming mode (or
// with damaged local size fields) still read correctly.
package archive

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
)

// ErrCorrupt indicates a malformed container: the end-of-central-directory
// record cannot be found, a header signature mismatches, or an entry
// decompresses to a size or checksum other than the one declared.
var ErrCorrupt = errors.New("corrupt archive")

// ErrNotFound indicates that no entry has the requested name.
var ErrNotFound = errors.New("entry not found")

// ErrUnsupportedCompression indicates an entry that is neither stored nor
// deflated, or that is encrypted.
var ErrUnsupportedCompression = errors.New("unsupported compression")

// Compression methods understood by the reader.
const (
	Store   uint16 = 0
	Deflate uint16 = 8
)

const (
	sigLocal        = 0x04034b50
	sigCentral      = 0x02014b50
	sigEnd          = 0x06054b50
	sigEnd64        = 0x06064b50
	sigEnd64Locator = 0x07064b50

	lenLocal        = 30
	lenCentral      = 46
	lenEnd          = 22
	lenEnd64        = 56
	lenEnd64Locator = 20

	// The record may be followed by a comment of at most this many bytes,
	// which bounds the trailing window searched for its signature.
	maxCommentLen = 1<<16 - 1

	flagEncrypted = 0x1
	zip64ExtraID  = 0x0001

	readHintLimit = 64 << 20
)

// Entry describes one named member of the archive as recorded in the
// central directory.
type Entry struct {
	// Name is the path of the entry within the package.
	Name string
	// Method is the compression method (Store or Deflate for readable entries).
	Method uint16
	// Flags is the general purpose bit flag.
	Flags uint16
	// CRC32 is the checksum of the uncompressed content.
	CRC32 uint32
	// CompressedSize is the size of the entry data within the container.
	CompressedSize uint64
	// UncompressedSize is the size of the entry once decompressed.
	UncompressedSize uint64
	// Offset is the byte offset of the entry's local file header.
	Offset int64
}

// Encrypted reports whether the entry is protected by traditional or strong
// encryption.
func (e Entry) Encrypted() bool { return e.Flags&flagEncrypted != 0 }

// Reader provides random access to the entries of a ZIP container.
// It is safe for concurrent use once constructed: every OpenEntry call
// reads through its own section of the underlying io.ReaderAt.
type Reader struct {
	r       io.ReaderAt
	size    int64
	closer  io.Closer
	entries []*Entry
	byName  map[string]*Entry
	folded  map[string]*Entry
}

// Open opens the archive at path. The caller must Close the returned Reader.
func Open(path string) (*Reader, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	fi, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, err
	}
	z, err := NewReader(f, fi.Size())
	if err != nil {
		f.Close()
		return nil, err
	}
	z.closer = f
	return z, nil
}

// FromBytes reads an archive held in memory.
func FromBytes(b []byte) (*Reader, error) {
	return NewReader(bytes.NewReader(b), int64(len(b)))
}

// NewReader reads the central directory of the size-byte container r.
func NewReader(r io.ReaderAt, size int64) (*Reader, error) {
	z := &Reader{r: r, size: size}
	if err := z.readDirectory(); err != nil {
		return nil, err
	}
	return z, nil
}

// Close releases the underlying file when the Reader was created by Open.
func (z *Reader) Close() error {
	if z == nil || z.closer == nil {
		return nil
	}
	return z.closer.Close()
}

// Entries returns the entries in central directory order.
func (z *Reader) Entries() []Entry {
	out := make([]Entry, len(z.entries))
	for i, e := range z.entries {
		out[i] = *e
	}
	return out
}

// Lookup returns the entry called name. An exact match wins; otherwise the
// name is compared case-insensitively with backslashes treated as slashes,
// which some third party producers emit.
func (z *Reader) Lookup(name string) (Entry, bool) {
	e := z.lookup(name)
	if e == nil {
		return Entry{}, false
	}
	return *e, true
}

// Has reports whether the archive contains an entry called name.
func (z *Reader) Has(name string) bool { return z.lookup(name) != nil }

func (z *Reader) lookup(name string) *Entry {
	if e, ok := z.byName[name]; ok {
		return e
	}
	return z.folded[foldName(name)]
}

func foldName(name string) string {
	return strings.ToLower(strings.ReplaceAll(name, "\\", "/"))
}

// OpenEntry returns a reader over the decompressed content of the named
// entry. The returned reader fails with ErrCorrupt if the content does not
// match the size or checksum recorded in the central directory.
func (z *Reader) OpenEntry(name string) (io.ReadCloser, error) {
	e := z.lookup(name)
	if e == nil {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, name)
	}
	return z.open(e)
}

// ReadEntry returns the whole decompressed content of the named entry.
func (z *Reader) ReadEntry(name string) ([]byte, error) {
	e := z.lookup(name)
	if e == nil {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, name)
	}
	rc, err := z.open(e)
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	hint := e.UncompressedSize
	if hint > readHintLimit {
		hint = readHintLimit
	}
	buf := bytes.NewBuffer(make([]byte, 0, int(hint)))
	if _, err := io.Copy(buf, rc); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func corruptf(format string, args ...any) error {
	return fmt.Errorf("%w: "+format, append([]any{ErrCorrupt}, args...)...)
}

// readDirectory locates the end-of-central-directory record and loads every
// central directory file header.
func (z *Reader) readDirectory() error {
	dirOffset, dirSize, count, err := z.findEnd()
	if err != nil {
		return err
	}
	if dirOffset < 0 || dirSize < 0 || dirOffset+dirSize > z.size {
		return corruptf("central directory [%d, +%d) outside %d byte container", dirOffset, dirSize, z.size)
	}
	if count > uint64(dirSize)/lenCentral {
		return corruptf("%d entries cannot fit in a %d byte central directory", count, dirSize)
	}
	dir := make([]byte, dirSize)
	if _, err := z.r.ReadAt(dir, dirOffset); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("read central directory: %w", err)
	}

	z.entries = make([]*Entry, 0, count)
	z.byName = make(map[string]*Entry, count)
	z.folded = make(map[string]*Entry, count)
	b := readBuf(dir)
	for i := uint64(0); i < count; i++ {
		e, err := readCentral(&b)
		if err != nil {
			return fmt.Errorf("central directory entry %d: %w", i, err)
		}
		if e.Offset+lenLocal > z.size {
			return corruptf("%s: local header offset %d beyond end of container", e.Name, e.Offset)
		}
		if _, dup := z.byName[e.Name]; dup {
			return corruptf("duplicate entry %s", e.Name)
		}
		z.entries = append(z.entries, e)
		z.byName[e.Name] = e
		if _, ok := z.folded[foldName(e.Name)]; !ok {
			z.folded[foldName(e.Name)] = e
		}
	}
	return nil
}

func (z *Reader) findEnd() (dirOffset, dirSize int64, count uint64, err error) {
	if z.size < lenEnd {
		return 0, 0, 0, corruptf("%d bytes is too small for a ZIP container", z.size)
	}
	window := int64(lenEnd + maxCommentLen)
	if window > z.size {
		window = z.size
	}
	buf := make([]byte, window)
	if _, err := z.r.ReadAt(buf, z.size-window); err != nil && !errors.Is(err, io.EOF) {
		return 0, 0, 0, fmt.Errorf("read end of central directory: %w", err)
	}
	pos := findSignature(buf)
	if pos < 0 {
		return 0, 0, 0, corruptf("end of central directory record not found")
	}
	endAt := z.size - window + int64(pos)

	b := readBuf(buf[pos+4:])
	b.uint16() // number of this disk
	b.uint16() // disk with the central directory
	b.uint16() // entries on this disk
	n := uint64(b.uint16())
	size := uint64(b.uint32())
	off := uint64(b.uint32())

	if n == 0xffff || size == 0xffffffff || off == 0xffffffff {
		n64, size64, off64, ok, err := z.readEnd64(endAt)
		if err != nil {
			return 0, 0, 0, err
		}
		if ok {
			n, size, off = n64, size64, off64
		}
	}
	if off > uint64(z.size) || size > uint64(z.size) {
		return 0, 0, 0, corruptf("central directory offset %d size %d exceed container", off, size)
	}
	return int64(off), int64(size), n, nil
}

// findSignature scans backwards for an end-of-central-directory signature
// followed by a complete fixed-size record and its declared comment.
func findSignature(buf []byte) int {
	for i := len(buf) - lenEnd; i >= 0; i-- {
		if buf[i] != 'P' || buf[i+1] != 'K' || buf[i+2] != 0x05 || buf[i+3] != 0x06 {
			continue
		}
		commentLen := int(buf[i+lenEnd-2]) | int(buf[i+lenEnd-1])<<8
		if i+lenEnd+commentLen <= len(buf) {
			return i
		}
	}
	return -1
}

func (z *Reader) readEnd64(endAt int64) (count, size, offset uint64, ok bool, err error) {
	locAt := endAt - lenEnd64Locator
	if locAt < 0 {
		return 0, 0, 0, false, nil
	}
	var loc [lenEnd64Locator]byte
	if _, err := z.r.ReadAt(loc[:], locAt); err != nil {
		return 0, 0, 0, false, fmt.Errorf("read zip64 locator: %w", err)
	}
	b := readBuf(loc[:])
	if b.uint32() != sigEnd64Locator {
		return 0, 0, 0, false, nil
	}
	b.uint32() // disk with the zip64 record
	recAt := b.uint64()
	if recAt > uint64(z.size-lenEnd64) {
		return 0, 0, 0, false, corruptf("zip64 end record offset %d beyond container", recAt)
	}
	var rec [lenEnd64]byte
	if _, err := z.r.ReadAt(rec[:], int64(recAt)); err != nil {
		return 0, 0, 0, false, fmt.Errorf("read zip64 end record: %w", err)
	}
	b = readBuf(rec[:])
	if b.uint32() != sigEnd64 {
		return 0, 0, 0, false, corruptf("bad zip64 end record signature")
	}
	b.uint64() // record size
	b.uint16() // version made by
	b.uint16() // version needed
	b.uint32() // this disk
	b.uint32() // directory disk
	b.uint64() // entries on this disk
	count = b.uint64()
	size = b.uint64()
	offset = b.uint64()
	return count, size, offset, true, nil
}

func readCentral(b *readBuf) (*Entry, error) {
	if len(*b) < lenCentral {
		return nil, corruptf("truncated central directory header")
	}
	if sig := b.uint32(); sig != sigCentral {
		return nil, corruptf("bad central directory signature %#08x", sig)
	}
	b.uint16() // version made by
	b.uint16() // version needed
	e := &Entry{}
	e.Flags = b.uint16()
	e.Method = b.uint16()
	b.uint16() // modified time
	b.uint16() // modified date
	e.CRC32 = b.uint32()
	csize := uint64(b.uint32())
	usize := uint64(b.uint32())
	nameLen := int(b.uint16())
	extraLen := int(b.uint16())
	commentLen := int(b.uint16())
	b.uint16() // disk number start
	b.uint16() // internal attributes
	b.uint32() // external attributes
	offset := uint64(b.uint32())
	if len(*b) < nameLen+extraLen+commentLen {
		return nil, corruptf("truncated central directory header")
	}
	e.Name = string(b.sub(nameLen))
	extra := b.sub(extraLen)
	b.sub(commentLen)

	needU, needC, needO := usize == 0xffffffff, csize == 0xffffffff, offset == 0xffffffff
	for len(extra) >= 4 && (needU || needC || needO) {
		id := extra.uint16()
		n := int(extra.uint16())
		if len(extra) < n {
			break
		}
		field := extra.sub(n)
		if id != zip64ExtraID {
			continue
		}
		if needU && len(field) >= 8 {
			usize, needU = field.uint64(), false
		}
		if needC && len(field) >= 8 {
			csize, needC = field.uint64(), false
		}
		if needO && len(field) >= 8 {
			offset, needO = field.uint64(), false
		}
	}
	if needU || needC || needO {
		return nil, corruptf("%s: missing zip64 extra field", e.Name)
	}
	if offset > 1<<62 {
		return nil, corruptf("%s: local header offset %d out of range", e.Name, offset)
	}
	e.CompressedSize = csize
	e.UncompressedSize = usize
	e.Offset = int64(offset)
	return e, nil
}

type readBuf []byte

func (b *readBuf) uint16() uint16 {
	v := uint16((*b)[0]) | uint16((*b)[1])<<8
	*b = (*b)[2:]
	return v
}

func (b *readBuf) uint32() uint32 {
	v := uint32((*b)[0]) | uint32((*b)[1])<<8 | uint32((*b)[2])<<16 | uint32((*b)[3])<<24
	*b = (*b)[4:]
	return v
}

func (b *readBuf) uint64() uint64 {
	lo := uint64(b.uint32())
	hi := uint64(b.uint32())
	return lo | hi<<32
}

func (b *readBuf) sub(n int) readBuf {
	v := (*b)[:n]
	*b = (*b)[n:]
	return v
}
