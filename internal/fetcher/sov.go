// Package fetcher reads statement-of-values spreadsheets and JSON input
// files.
package fetcher

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/rotisserie/eris"
)

// SOVOptions configures ReadSOV.
type SOVOptions struct {
	SheetName  string
	SheetIndex int
	// HeaderRow is the 1-based header row. 0 picks the first row with at
	// least two non-blank cells.
	HeaderRow int
}

// ReadSOV reads a statement of values (.xlsx or .csv) into one map per data
// row keyed by header text. Blank rows are skipped and duplicate headers
// get a numeric suffix ("Value", "Value 2").
func ReadSOV(path string, opts SOVOptions) ([]map[string]string, error) {
	var rows [][]string
	var err error
	switch strings.ToLower(filepath.Ext(path)) {
	case ".xlsx":
		rows, err = ReadXLSX(path, XLSXOptions{SheetName: opts.SheetName, SheetIndex: opts.SheetIndex})
	case ".csv":
		f, ferr := os.Open(path)
		if ferr != nil {
			return nil, eris.Wrap(ferr, "sov: open file")
		}
		defer f.Close() //nolint:errcheck
		rows, err = ReadCSV(f, CSVOptions{})
	default:
		return nil, eris.Errorf("sov: unsupported file type %q", filepath.Ext(path))
	}
	if err != nil {
		return nil, eris.Wrapf(err, "sov: read %s", path)
	}
	return RowsToRecords(rows, opts.HeaderRow)
}

// RowsToRecords turns a header row and the rows under it into maps.
func RowsToRecords(rows [][]string, headerRow int) ([]map[string]string, error) {
	hdr := headerRow - 1
	if headerRow <= 0 {
		hdr = findHeader(rows)
	}
	if hdr < 0 || hdr >= len(rows) {
		return nil, eris.New("sov: no header row found")
	}
	headers := uniqueHeaders(rows[hdr])

	var out []map[string]string
	for _, row := range rows[hdr+1:] {
		rec := make(map[string]string, len(headers))
		for i, cell := range row {
			if i >= len(headers) || headers[i] == "" || cell == "" {
				continue
			}
			rec[headers[i]] = cell
		}
		if len(rec) > 0 {
			out = append(out, rec)
		}
	}
	return out, nil
}

func findHeader(rows [][]string) int {
	for i, row := range rows {
		n := 0
		for _, c := range row {
			if strings.TrimSpace(c) != "" {
				n++
			}
		}
		if n >= 2 {
			return i
		}
	}
	return -1
}

func uniqueHeaders(row []string) []string {
	seen := map[string]int{}
	out := make([]string, len(row))
	for i, h := range row {
		h = strings.TrimSpace(h)
		if h == "" {
			continue
		}
		seen[h]++
		if n := seen[h]; n > 1 {
			h += " " + strconv.Itoa(n)
		}
		out[i] = h
	}
	return out
}
