// Package recommend turns missing-field lists and quality signals into
// short, ordered next-step messages.
package recommend

import (
	"fmt"
	"sort"
	"strings"

	"github.com/sells-group/intake-cli/internal/completeness"
)

// DefaultMaxSteps caps the number of next steps returned.
const DefaultMaxSteps = 3

// ProceedMessage is returned when nothing is missing.
const ProceedMessage = "All required data is present. Proceed with underwriting review."

// Priority is the fixed order categories are reported in. Appetite comes
// first because it gates the earliest go/no-go decision.
var Priority = []completeness.Category{
	completeness.Appetite,
	completeness.Triage,
	completeness.Clearance,
}

var templates = map[completeness.Category]string{
	completeness.Appetite:  "Obtain missing appetite data: %s",
	completeness.Triage:    "Complete triage information: %s",
	completeness.Clearance: "Provide clearance details: %s",
}

// NextSteps returns at most limit messages, one per category with missing
// fields, in Priority order. Categories outside Priority follow in tag
// order. limit <= 0 uses DefaultMaxSteps.
func NextSteps(missing map[completeness.Category][]string, limit int) []string {
	if limit <= 0 {
		limit = DefaultMaxSteps
	}

	order := append([]completeness.Category(nil), Priority...)
	var extra []completeness.Category
	for c := range missing {
		if !inPriority(c) {
			extra = append(extra, c)
		}
	}
	sort.Slice(extra, func(i, j int) bool { return extra[i] < extra[j] })
	order = append(order, extra...)

	var steps []string
	for _, c := range order {
		fields := missing[c]
		if len(fields) == 0 {
			continue
		}
		steps = append(steps, message(c, fields))
		if len(steps) == limit {
			break
		}
	}
	if len(steps) == 0 {
		return []string{ProceedMessage}
	}
	return steps
}

func inPriority(c completeness.Category) bool {
	for _, p := range Priority {
		if p == c {
			return true
		}
	}
	return false
}

func message(c completeness.Category, fields []string) string {
	tmpl, ok := templates[c]
	if !ok {
		tmpl = "Provide missing " + c.Label() + " data: %s"
	}
	return fmt.Sprintf(tmpl, strings.Join(fields, ", "))
}
