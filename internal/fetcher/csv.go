package fetcher

import (
	"encoding/csv"
	"io"
	"strings"

	"github.com/rotisserie/eris"
)

// CSVOptions configures the CSV parser.
type CSVOptions struct {
	Delimiter rune // default ','
	Comment   rune // 0 = none
	SkipRows  int
}

// ReadCSV reads every record from r, trimming fields. Rows may have
// differing lengths.
func ReadCSV(r io.Reader, opts CSVOptions) ([][]string, error) {
	reader := csv.NewReader(r)
	if opts.Delimiter != 0 {
		reader.Comma = opts.Delimiter
	}
	reader.Comment = opts.Comment
	reader.LazyQuotes = true
	reader.FieldsPerRecord = -1

	var rows [][]string
	for i := 0; ; i++ {
		record, err := reader.Read()
		if err == io.EOF {
			return rows, nil
		}
		if err != nil {
			return nil, eris.Wrap(err, "csv: read row")
		}
		if i < opts.SkipRows {
			continue
		}
		for j, field := range record {
			record[j] = strings.TrimSpace(field)
		}
		rows = append(rows, record)
	}
}
