package completeness

import "math"

// Presence answers whether a named field counts as present.
type Presence interface {
	IsPresent(name string) bool
}

// PresenceSet is a Presence backed by a set of names.
type PresenceSet map[string]bool

// IsPresent implements Presence.
func (p PresenceSet) IsPresent(name string) bool { return p[name] }

// Result is the completeness of one category, or of all categories together.
type Result struct {
	Percentage float64  `json:"percentage"`
	Present    int      `json:"present_count"`
	Total      int      `json:"total_required"`
	Missing    []string `json:"missing_elements"`
}

// CategoryResult pairs a category with its result.
type CategoryResult struct {
	Category Category `json:"category"`
	Result
}

// Report holds per-category results in requirement order plus the
// aggregate across every slot.
type Report struct {
	Categories []CategoryResult `json:"categories"`
	Aggregate  Result           `json:"aggregate"`
}

// Category returns the result for c.
func (r Report) Category(c Category) (Result, bool) {
	for _, cr := range r.Categories {
		if cr.Category == c {
			return cr.Result, true
		}
	}
	return Result{}, false
}

// Percentage returns c's percentage, or 100 when c is not part of the
// report.
func (r Report) Percentage(c Category) float64 {
	res, ok := r.Category(c)
	if !ok {
		return 100
	}
	return res.Percentage
}

// MissingByCategory returns each category's missing list keyed by category.
func (r Report) MissingByCategory() map[Category][]string {
	out := make(map[Category][]string, len(r.Categories))
	for _, cr := range r.Categories {
		out[cr.Category] = cr.Missing
	}
	return out
}

// Aggregate scores fields against rs.
//
// A category with no required fields is 100% complete. The aggregate
// counts slots, not distinct fields: a field required by two categories
// contributes two to the total and, when present, two to the count.
func Aggregate(fields Presence, rs RequirementSet) Report {
	rep := Report{Categories: make([]CategoryResult, 0, len(rs))}
	var present, total int
	var missing []string
	seen := make(map[string]bool)

	for _, req := range rs {
		res := Evaluate(fields, req.Fields)
		rep.Categories = append(rep.Categories, CategoryResult{Category: req.Category, Result: res})
		present += res.Present
		total += res.Total
		for _, m := range res.Missing {
			if !seen[m] {
				seen[m] = true
				missing = append(missing, m)
			}
		}
	}

	rep.Aggregate = Result{
		Percentage: percentage(present, total),
		Present:    present,
		Total:      total,
		Missing:    nonNil(missing),
	}
	return rep
}

// Evaluate scores one list of required fields.
func Evaluate(fields Presence, required []string) Result {
	res := Result{Total: len(required), Missing: []string{}}
	for _, name := range required {
		if fields != nil && fields.IsPresent(name) {
			res.Present++
			continue
		}
		res.Missing = append(res.Missing, name)
	}
	res.Percentage = percentage(res.Present, res.Total)
	return res
}

func percentage(present, total int) float64 {
	if total == 0 {
		return 100
	}
	return Round2(float64(present) / float64(total) * 100)
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

// Round2 rounds half away from zero to two decimals.
func Round2(v float64) float64 {
	return math.Round(v*100) / 100
}
