package core

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// FailedFileName returns "<name> - failed.csv" for a source file name.
func FailedFileName(name string) string {
	base := filepath.Base(name)
	if base == "." || base == string(filepath.Separator) || base == "" {
		base = "input"
	}
	return fmt.Sprintf("%s - failed.csv", strings.TrimSuffix(base, filepath.Ext(base)))
}

// WriteFailedRows writes rejected rows to dir, one line per row: the reason,
// the source line, then the original cells under the original header. It
// returns the written path, or "" when there is nothing to write. A file
// that could not be written completely is removed.
func WriteFailedRows(dir, name string, header []string, rows []FailedRow) (string, error) {
	if len(rows) == 0 {
		return "", nil
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create failed-rows directory: %w", err)
	}

	path := filepath.Join(dir, FailedFileName(name))
	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("failed writing failure file: %w", err)
	}

	if err := writeFailedCSV(f, header, rows); err != nil {
		_ = f.Close()
		_ = os.Remove(path)
		return "", fmt.Errorf("failed writing failure file: %w", err)
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(path)
		return "", fmt.Errorf("failed writing failure file: %w", err)
	}
	return path, nil
}

func writeFailedCSV(out io.Writer, header []string, rows []FailedRow) error {
	w := csv.NewWriter(out)
	if err := w.Write(append([]string{"reason", "line"}, header...)); err != nil {
		return err
	}
	for _, r := range rows {
		if err := w.Write(rowFailed(r)); err != nil {
			return err
		}
	}
	w.Flush()
	return w.Error()
}

func rowFailed(r FailedRow) []string {
	return append([]string{r.Reason, strconv.Itoa(r.LineNumber)}, r.Data...)
}
