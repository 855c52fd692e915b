package archive

import (
	"errors"
	"fmt"
	"hash"
	"hash/crc32"
	"io"

	"github.com/klauspost/compress/flate"
)

func (z *Reader) open(e *Entry) (io.ReadCloser, error) {
	if e.Encrypted() {
		return nil, fmt.Errorf("%w: %s is encrypted", ErrUnsupportedCompression, e.Name)
	}
	if e.Method != Store && e.Method != Deflate {
		return nil, fmt.Errorf("%w: method %d for %s", ErrUnsupportedCompression, e.Method, e.Name)
	}

	var hdr [lenLocal]byte
	if _, err := z.r.ReadAt(hdr[:], e.Offset); err != nil {
		return nil, corruptf("%s: read local header: %v", e.Name, err)
	}
	b := readBuf(hdr[:])
	if sig := b.uint32(); sig != sigLocal {
		return nil, corruptf("%s: bad local header signature %#08x", e.Name, sig)
	}
	b = b[22:]
	nameLen := int64(b.uint16())
	extraLen := int64(b.uint16())

	dataAt := e.Offset + lenLocal + nameLen + extraLen
	if e.CompressedSize > uint64(z.size) || dataAt+int64(e.CompressedSize) > z.size {
		return nil, corruptf("%s: %d compressed bytes at %d exceed container", e.Name, e.CompressedSize, dataAt)
	}
	sr := io.NewSectionReader(z.r, dataAt, int64(e.CompressedSize))

	var rc io.ReadCloser
	switch e.Method {
	case Store:
		rc = io.NopCloser(sr)
	case Deflate:
		rc = flate.NewReader(sr)
	}
	return &checkedReader{rc: rc, entry: e, hash: crc32.NewIEEE()}, nil
}

// checkedReader verifies the decompressed length and checksum of an entry
// against its central directory record as the content is consumed.
type checkedReader struct {
	rc    io.ReadCloser
	entry *Entry
	hash  hash.Hash32
	n     uint64
	err   error
}

func (r *checkedReader) Read(p []byte) (int, error) {
	if r.err != nil {
		return 0, r.err
	}
	n, err := r.rc.Read(p)
	r.hash.Write(p[:n])
	r.n += uint64(n)
	if r.n > r.entry.UncompressedSize {
		r.err = corruptf("%s: content exceeds declared size %d", r.entry.Name, r.entry.UncompressedSize)
		return n, r.err
	}
	switch {
	case err == nil:
		return n, nil
	case errors.Is(err, io.EOF):
		if r.n != r.entry.UncompressedSize {
			err = corruptf("%s: decompressed %d bytes, want %d", r.entry.Name, r.n, r.entry.UncompressedSize)
		} else if r.entry.CRC32 != 0 && r.hash.Sum32() != r.entry.CRC32 {
			err = corruptf("%s: checksum mismatch", r.entry.Name)
		}
	default:
		err = corruptf("%s: %v", r.entry.Name, err)
	}
	r.err = err
	return n, err
}

func (r *checkedReader) Close() error { return r.rc.Close() }
