package property

import (
	"strings"
)

// DefaultState is assumed when a property names no state.
const DefaultState = "IL"

// Options tune Collect.
type Options struct {
	DefaultState string
	// Extra records, such as rows from a statement of values, merged in as
	// standard records after the document's own.
	Extra []Raw
}

// Collect discovers, merges and normalizes every property in doc. An empty
// result means the document carries no property data.
func Collect(doc any, opts Options) []Record {
	d := Discover(doc)
	standard := normalizeAll(d.Standard, SectionStandard)
	standard = append(standard, normalizeAll(opts.Extra, SectionSOV)...)
	advanced := normalizeAll(d.Advanced, SectionAdvanced)

	records := Merge(standard, advanced)

	def := opts.DefaultState
	if def == "" {
		def = DefaultState
	}
	for i := range records {
		if records[i].State == "" {
			records[i].State = ExtractState("", records[i].Address, def)
		}
	}
	return records
}

func normalizeAll(raws []Raw, section Section) []Record {
	out := make([]Record, 0, len(raws))
	for _, r := range raws {
		out = append(out, r.Normalize(section))
	}
	return out
}

// FromSOV turns statement-of-values rows keyed by header into raw records.
// Headers are matched case-insensitively with spaces, dashes and dots
// folded to underscores, so "Square Feet" reaches the square_feet alias.
func FromSOV(rows []map[string]string) []Raw {
	out := make([]Raw, 0, len(rows))
	for _, row := range rows {
		r := make(Raw, len(row))
		for k, v := range row {
			if strings.TrimSpace(v) == "" {
				continue
			}
			r[HeaderKey(k)] = v
		}
		if len(r) > 0 {
			out = append(out, r)
		}
	}
	return out
}

var headerReplacer = strings.NewReplacer(" ", "_", "-", "_", ".", "", "#", "number", "/", "_")

// HeaderKey folds a spreadsheet header to an alias key.
func HeaderKey(h string) string {
	k := headerReplacer.Replace(strings.ToLower(strings.TrimSpace(h)))
	for strings.Contains(k, "__") {
		k = strings.ReplaceAll(k, "__", "_")
	}
	return strings.Trim(k, "_")
}
