package property

import (
	"regexp"
	"sort"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// foldAccents strips combining marks so "Café" and "Cafe" compare equal.
func foldAccents(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, s)
	if err != nil {
		return s
	}
	return out
}

// NormalizeAddress lowercases s and drops everything but letters and
// digits, after folding accents.
func NormalizeAddress(s string) string {
	var b strings.Builder
	for _, r := range foldAccents(s) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(unicode.ToLower(r))
		}
	}
	return b.String()
}

// addressTokens splits s into lowercase alphanumeric words.
func addressTokens(s string) map[string]bool {
	words := strings.FieldsFunc(strings.ToLower(foldAccents(s)), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	out := make(map[string]bool, len(words))
	for _, w := range words {
		out[w] = true
	}
	return out
}

// sharedTokens counts the words a and b have in common.
func sharedTokens(a, b string) int {
	ta, tb := addressTokens(a), addressTokens(b)
	n := 0
	for w := range ta {
		if tb[w] {
			n++
		}
	}
	return n
}

// StateNames maps upper-case state names to postal codes.
var StateNames = map[string]string{
	"ALABAMA": "AL", "ALASKA": "AK", "ARIZONA": "AZ", "ARKANSAS": "AR",
	"CALIFORNIA": "CA", "COLORADO": "CO", "CONNECTICUT": "CT", "DELAWARE": "DE",
	"FLORIDA": "FL", "GEORGIA": "GA", "HAWAII": "HI", "IDAHO": "ID",
	"ILLINOIS": "IL", "INDIANA": "IN", "IOWA": "IA", "KANSAS": "KS",
	"KENTUCKY": "KY", "LOUISIANA": "LA", "MAINE": "ME", "MARYLAND": "MD",
	"MASSACHUSETTS": "MA", "MICHIGAN": "MI", "MINNESOTA": "MN", "MISSISSIPPI": "MS",
	"MISSOURI": "MO", "MONTANA": "MT", "NEBRASKA": "NE", "NEVADA": "NV",
	"NEW HAMPSHIRE": "NH", "NEW JERSEY": "NJ", "NEW MEXICO": "NM", "NEW YORK": "NY",
	"NORTH CAROLINA": "NC", "NORTH DAKOTA": "ND", "OHIO": "OH", "OKLAHOMA": "OK",
	"OREGON": "OR", "PENNSYLVANIA": "PA", "RHODE ISLAND": "RI", "SOUTH CAROLINA": "SC",
	"SOUTH DAKOTA": "SD", "TENNESSEE": "TN", "TEXAS": "TX", "UTAH": "UT",
	"VERMONT": "VT", "VIRGINIA": "VA", "WASHINGTON": "WA", "WEST VIRGINIA": "WV",
	"WISCONSIN": "WI", "WYOMING": "WY", "DISTRICT OF COLUMBIA": "DC",
}

var stateCodes = func() map[string]bool {
	m := make(map[string]bool, len(StateNames))
	for _, code := range StateNames {
		m[code] = true
	}
	return m
}()

// stateNamesByLength lists names longest first so "WEST VIRGINIA" wins
// over "VIRGINIA".
var stateNamesByLength = func() []string {
	names := make([]string, 0, len(StateNames))
	for n := range StateNames {
		names = append(names, n)
	}
	sort.Slice(names, func(i, j int) bool {
		if len(names[i]) != len(names[j]) {
			return len(names[i]) > len(names[j])
		}
		return names[i] < names[j]
	})
	return names
}()

var stateCodePattern = regexp.MustCompile(`[,\s]([A-Z]{2})[,\s]`)

// ExtractState resolves a two-letter state code from an explicit value,
// then from a code or state name inside address, then falls back to def.
func ExtractState(explicit, address, def string) string {
	s := strings.ToUpper(strings.TrimSpace(explicit))
	if len(s) == 2 && stateCodes[s] {
		return s
	}
	if code, ok := StateNames[s]; ok {
		return code
	}

	if address != "" && address != UnknownAddress {
		for _, m := range stateCodePattern.FindAllStringSubmatch(" "+address+" ", -1) {
			if stateCodes[m[1]] {
				return m[1]
			}
		}
		upper := strings.ToUpper(address)
		for _, name := range stateNamesByLength {
			if strings.Contains(upper, name) {
				return StateNames[name]
			}
		}
	}
	return strings.ToUpper(def)
}
