package property

import (
	"fmt"
	"math"
)

// Policy decides how two values of the same field combine.
type Policy int

const (
	// FirstWins keeps the first non-empty value.
	FirstWins Policy = iota
	// MaxWins keeps the larger value.
	MaxWins
)

// MergePolicy returns the policy for a canonical field. Monetary and area
// fields keep the maximum; everything else keeps the first non-empty value.
func MergePolicy(field string) Policy {
	switch field {
	case "building_value", "square_footage", "content_value", "business_income_value":
		return MaxWins
	}
	return FirstWins
}

func firstWins(string) Policy { return FirstWins }

// Combine fills a with b field by field under policy. a's values take
// precedence for first-wins fields.
func Combine(a, b Record, policy func(field string) Policy) Record {
	out := a
	out.ID = pickString(a.ID, b.ID)
	out.LocationDocumentID = pickString(a.LocationDocumentID, b.LocationDocumentID)
	out.LocationID = pickString(a.LocationID, b.LocationID)
	out.Address = pickAddress(a.Address, b.Address)
	out.City = pickString(a.City, b.City)
	out.PostalCode = pickString(a.PostalCode, b.PostalCode)
	out.State = pickString(a.State, b.State)
	out.BuildingValue = pickFloat(policy("building_value"), a.BuildingValue, b.BuildingValue)
	out.SquareFootage = pickFloat(policy("square_footage"), a.SquareFootage, b.SquareFootage)
	out.ContentValue = pickFloat(policy("content_value"), a.ContentValue, b.ContentValue)
	out.BusinessIncomeValue = pickFloat(policy("business_income_value"), a.BusinessIncomeValue, b.BusinessIncomeValue)
	out.YearBuilt = pickInt(policy("year_built"), a.YearBuilt, b.YearBuilt)
	out.ConstructionType = pickString(a.ConstructionType, b.ConstructionType)
	out.Occupancy = pickString(a.Occupancy, b.Occupancy)
	out.RoofAge = pickInt(policy("roof_age"), a.RoofAge, b.RoofAge)
	out.RoofYear = pickInt(policy("roof_year"), a.RoofYear, b.RoofYear)
	out.RoofType = pickString(a.RoofType, b.RoofType)
	if out.Sprinklered == nil {
		out.Sprinklered = b.Sprinklered
	}
	out.Sections = unionSections(a.Sections, b.Sections)
	return out
}

func pickString(a, b string) string {
	if a != "" {
		return a
	}
	return b
}

func pickAddress(a, b string) string {
	if a != "" && a != UnknownAddress {
		return a
	}
	if b != "" {
		return b
	}
	return a
}

func pickFloat(p Policy, a, b float64) float64 {
	if p == MaxWins {
		return math.Max(a, b)
	}
	if a != 0 {
		return a
	}
	return b
}

func pickInt(p Policy, a, b int) int {
	if p == MaxWins {
		return max(a, b)
	}
	if a != 0 {
		return a
	}
	return b
}

func unionSections(a, b []Section) []Section {
	out := append([]Section(nil), a...)
	for _, s := range b {
		found := false
		for _, have := range out {
			if have == s {
				found = true
				break
			}
		}
		if !found {
			out = append(out, s)
		}
	}
	return out
}

// MatchKind records how an advanced record was paired.
type MatchKind string

const (
	MatchDocumentID MatchKind = "location_document_id"
	MatchLocationID MatchKind = "location_id"
	MatchAddress    MatchKind = "address"
	MatchFuzzy      MatchKind = "fuzzy_address"
	MatchPosition   MatchKind = "position"
	MatchNone       MatchKind = "none"
)

// Merge correlates standard and advanced records into canonical records.
//
// Each advanced record is paired with a standard record by, in order: a
// shared location document id, a shared location id, an equal normalized
// address, more than one shared address word, or its position when both
// lists have the same length and that standard slot has no advanced data
// yet. Unpaired advanced records become properties of their own. Paired
// records are filled first-non-empty with standard values winning, then
// records sharing a final address are folded together under MergePolicy.
func Merge(standard, advanced []Record) []Record {
	out := make([]Record, len(standard))
	copy(out, standard)
	paired := make([]bool, len(standard))
	positional := len(standard) == len(advanced)

	for j, adv := range advanced {
		i, _ := matchStandard(adv, out[:len(standard)], paired, j, positional)
		if i < 0 {
			out = append(out, adv)
			continue
		}
		out[i] = Combine(out[i], adv, firstWins)
		paired[i] = true
	}

	out = dedupeByAddress(out)
	assignIDs(out)
	return out
}

func matchStandard(adv Record, std []Record, paired []bool, pos int, positional bool) (int, MatchKind) {
	if adv.LocationDocumentID != "" {
		for i, s := range std {
			if s.LocationDocumentID == adv.LocationDocumentID {
				return i, MatchDocumentID
			}
		}
	}
	if adv.LocationID != "" {
		for i, s := range std {
			if s.LocationID == adv.LocationID {
				return i, MatchLocationID
			}
		}
	}
	if key := NormalizeAddress(adv.Address); adv.HasAddress() && key != "" {
		for i, s := range std {
			if s.HasAddress() && NormalizeAddress(s.Address) == key {
				return i, MatchAddress
			}
		}

		best, bestShared := -1, 1
		for i, s := range std {
			if !s.HasAddress() {
				continue
			}
			if n := sharedTokens(adv.Address, s.Address); n > bestShared {
				best, bestShared = i, n
			}
		}
		if best >= 0 {
			return best, MatchFuzzy
		}
	}
	if positional && pos < len(std) && !paired[pos] {
		return pos, MatchPosition
	}
	return -1, MatchNone
}

// dedupeByAddress folds records with the same normalized address,
// keeping first-seen order. Records without an address are left alone.
func dedupeByAddress(records []Record) []Record {
	index := make(map[string]int, len(records))
	out := make([]Record, 0, len(records))
	for _, r := range records {
		if !r.HasAddress() {
			out = append(out, r)
			continue
		}
		key := NormalizeAddress(r.Address)
		if key == "" {
			out = append(out, r)
			continue
		}
		if i, ok := index[key]; ok {
			out[i] = Combine(out[i], r, MergePolicy)
			continue
		}
		index[key] = len(out)
		out = append(out, r)
	}
	return out
}

func assignIDs(records []Record) {
	for i := range records {
		if records[i].ID == "" {
			records[i].ID = fmt.Sprintf("PROP_%d", i+1)
		}
	}
}
