package core

// streaming.go wraps raw upload bytes for CSV parsing without loading the
// whole file:
//
//   - CountingReader: tracks bytes read and enforces MaxFileSize
//   - the source encoding is decoded to UTF-8; a UTF-8 BOM is stripped and
//     invalid sequences become U+FFFD
//
// Use WrapForStreaming to apply both in the correct order.

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/htmlindex"
	"golang.org/x/text/encoding/unicode"
)

// MaxFileSize is the maximum accepted input size (100MB).
var MaxFileSize int64 = 100 * 1024 * 1024

// ErrFileTooLarge is returned once more than the configured limit was read.
var ErrFileTooLarge = errors.New("file too large")

// CountingReader wraps an io.Reader to track bytes read.
type CountingReader struct {
	reader    io.Reader
	BytesRead int64
	Limit     int64 // 0 disables the limit
}

// NewCountingReader creates a counting reader with an optional byte limit.
func NewCountingReader(r io.Reader, limit int64) *CountingReader {
	return &CountingReader{reader: r, Limit: limit}
}

// Read implements io.Reader.
func (r *CountingReader) Read(p []byte) (int, error) {
	n, err := r.reader.Read(p)
	r.BytesRead += int64(n)
	if r.Limit > 0 && r.BytesRead > r.Limit {
		return n, fmt.Errorf("%w: more than %d bytes", ErrFileTooLarge, r.Limit)
	}
	return n, err
}

// LookupEncoding resolves an encoding label. "" and "utf-8" select UTF-8
// with BOM stripping; "latin1" and "iso-8859-1" select ISO 8859-1 exactly;
// other WHATWG labels such as "windows-1252" go through htmlindex.
func LookupEncoding(name string) (encoding.Encoding, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "utf-8", "utf8":
		return unicode.UTF8BOM, nil
	case "latin1", "latin-1", "iso-8859-1", "iso8859-1":
		return charmap.ISO8859_1, nil
	case "cp1252", "windows-1252":
		return charmap.Windows1252, nil
	}

	enc, err := htmlindex.Get(name)
	if err != nil {
		return nil, fmt.Errorf("encoding error: unsupported encoding %q", name)
	}
	return enc, nil
}

// WrapForStreaming counts raw bytes (enforcing limit) and decodes them to
// UTF-8.
//
// The order matters: the limit applies to the bytes on the wire, before
// decoding can expand them.
func WrapForStreaming(r io.Reader, enc encoding.Encoding, limit int64) (io.Reader, *CountingReader) {
	counter := NewCountingReader(r, limit)
	if enc == nil {
		enc = unicode.UTF8BOM
	}
	return enc.NewDecoder().Reader(counter), counter
}
