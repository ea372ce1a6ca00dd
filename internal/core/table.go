package core

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/adelakul/retail-pulse/internal/coerce"
)

// MaxHeaderSearchRows is the maximum number of leading blank rows skipped
// while looking for the header.
var MaxHeaderSearchRows = 20

// ReadOptions configure ReadTable.
type ReadOptions struct {
	// Encoding of the source bytes; see LookupEncoding.
	Encoding string
	// MaxBytes caps the raw input size. Zero selects MaxFileSize, negative
	// disables the cap.
	MaxBytes int64
}

// ReadTableFile reads a CSV file into a Table named after the file.
func ReadTableFile(path string, opts ReadOptions) (*Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	return ReadTable(f, filepath.Base(path), opts)
}

// ReadTable parses CSV from r. The first non-blank row is the header; rows
// may be ragged.
func ReadTable(r io.Reader, name string, opts ReadOptions) (*Table, error) {
	enc, err := LookupEncoding(opts.Encoding)
	if err != nil {
		return nil, err
	}

	limit := opts.MaxBytes
	if limit == 0 {
		limit = MaxFileSize
	}
	if limit < 0 {
		limit = 0
	}
	decoded, _ := WrapForStreaming(r, enc, limit)

	cr := csv.NewReader(decoded)
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true

	t := &Table{Name: name}
	searched := 0
	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			if errors.Is(err, ErrFileTooLarge) {
				return nil, err
			}
			return nil, fmt.Errorf("invalid csv: %w", err)
		}

		if t.Columns == nil {
			if coerce.IsEmptyRow(rec) {
				searched++
				if searched >= MaxHeaderSearchRows {
					return nil, fmt.Errorf("invalid csv: no header in the first %d rows", MaxHeaderSearchRows)
				}
				continue
			}
			t.Columns = cleanHeader(rec)
			continue
		}

		line, _ := cr.FieldPos(0)
		t.Rows = append(t.Rows, rec)
		t.Lines = append(t.Lines, line)
	}

	if t.Columns == nil {
		return nil, errors.New("empty file")
	}
	return t, nil
}

func cleanHeader(rec []string) []string {
	out := make([]string, len(rec))
	for i, h := range rec {
		out[i] = coerce.CleanCell(h)
	}
	return out
}
