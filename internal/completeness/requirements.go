// Package completeness measures how many required fields a submission
// carries, per business checkpoint and in aggregate.
package completeness

import (
	"github.com/rotisserie/eris"
)

// Category tags a checkpoint's requirement list.
type Category string

const (
	Triage    Category = "T"
	Appetite  Category = "A"
	Clearance Category = "C"

	// Required places a field in every other category.
	Required Category = "Required"
)

// Label returns the long name of the category.
func (c Category) Label() string {
	switch c {
	case Triage:
		return "triage"
	case Appetite:
		return "appetite"
	case Clearance:
		return "clearance"
	case Required:
		return "required"
	}
	return string(c)
}

// ParseCategory accepts a tag ("T") or a label ("triage").
func ParseCategory(s string) (Category, error) {
	switch s {
	case "T", "triage":
		return Triage, nil
	case "A", "appetite":
		return Appetite, nil
	case "C", "clearance":
		return Clearance, nil
	case "Required", "required":
		return Required, nil
	}
	return "", eris.Errorf("completeness: unknown category %q", s)
}

// Requirement lists the fields one category needs, in declaration order.
type Requirement struct {
	Category Category `yaml:"category" json:"category"`
	Fields   []string `yaml:"fields" json:"fields"`
}

// RequirementSet is an ordered list of category requirements.
type RequirementSet []Requirement

// NewRequirementSet builds a set from per-category lists, in the given
// category order. Duplicate fields within a category are dropped and
// Required fields are expanded into every category; with no other
// category, Required stands as its own.
func NewRequirementSet(reqs ...Requirement) RequirementSet {
	rs := RequirementSet(reqs)
	return rs.normalize()
}

// FromFieldCategories builds a set from a field → categories table.
// order fixes field order; cats fixes category order.
func FromFieldCategories(order []string, table map[string][]Category, cats []Category) RequirementSet {
	byCat := make(map[Category][]string, len(cats))
	for _, field := range order {
		for _, c := range table[field] {
			if c == Required {
				for _, all := range cats {
					byCat[all] = append(byCat[all], field)
				}
				continue
			}
			byCat[c] = append(byCat[c], field)
		}
	}
	reqs := make([]Requirement, 0, len(cats))
	for _, c := range cats {
		reqs = append(reqs, Requirement{Category: c, Fields: byCat[c]})
	}
	return NewRequirementSet(reqs...)
}

func (rs RequirementSet) normalize() RequirementSet {
	var required []string
	var out RequirementSet
	for _, r := range rs {
		if r.Category == Required {
			required = append(required, r.Fields...)
			continue
		}
		out = append(out, Requirement{Category: r.Category, Fields: append([]string(nil), r.Fields...)})
	}
	if len(out) == 0 && len(required) > 0 {
		return RequirementSet{{Category: Required, Fields: dedupe(required)}}
	}
	for i := range out {
		out[i].Fields = dedupe(append(out[i].Fields, required...))
	}
	return out
}

func dedupe(fields []string) []string {
	seen := make(map[string]bool, len(fields))
	out := make([]string, 0, len(fields))
	for _, f := range fields {
		if seen[f] {
			continue
		}
		seen[f] = true
		out = append(out, f)
	}
	return out
}

// Categories returns the category tags in order.
func (rs RequirementSet) Categories() []Category {
	out := make([]Category, len(rs))
	for i, r := range rs {
		out[i] = r.Category
	}
	return out
}

// Fields returns the fields required by c.
func (rs RequirementSet) Fields(c Category) []string {
	for _, r := range rs {
		if r.Category == c {
			return r.Fields
		}
	}
	return nil
}

// Replace returns a copy with c's list replaced, appending c if absent.
func (rs RequirementSet) Replace(c Category, fields []string) RequirementSet {
	out := make(RequirementSet, 0, len(rs)+1)
	replaced := false
	for _, r := range rs {
		if r.Category == c {
			out = append(out, Requirement{Category: c, Fields: fields})
			replaced = true
			continue
		}
		out = append(out, r)
	}
	if !replaced {
		out = append(out, Requirement{Category: c, Fields: fields})
	}
	return out.normalize()
}

// Override replaces each category o declares. A nil list leaves the
// category unchanged; an empty list clears it.
func (rs RequirementSet) Override(o RequirementSet) RequirementSet {
	out := rs
	for _, r := range o {
		if r.Fields == nil {
			continue
		}
		out = out.Replace(r.Category, r.Fields)
	}
	return out
}

// AllFields returns every distinct required field in declaration order.
func (rs RequirementSet) AllFields() []string {
	var all []string
	for _, r := range rs {
		all = append(all, r.Fields...)
	}
	return dedupe(all)
}
