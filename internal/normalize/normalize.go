// Package normalize canonicalizes identifiers and numeric values coming from
// spreadsheet exports. Exported files routinely wrap IDs in quotes, coerce
// integers to floats ("1049072.0") and pad values with stray whitespace, so
// every join key passes through here before it is compared to anything.
package normalize

import (
	"math"
	"strconv"
	"strings"
)

// Strictness selects how far ID normalization goes. The two levels are not
// interchangeable: Moderate preserves internal periods so genuine decimal
// reference numbers survive, Aggressive strips them for best-effort matching
// against systems with inconsistent formatting. Callers must pick explicitly.
type Strictness int

const (
	// Moderate trims quotes, whitespace and a trailing ".0" but keeps
	// internal periods intact.
	Moderate Strictness = iota
	// Aggressive additionally removes every period and all remaining
	// whitespace. Only safe for keys known to never be decimal-valued.
	Aggressive
)

// ID canonicalizes a raw identifier. The second return is false when the
// input is blank, "nan" or normalizes to nothing.
func ID(raw string, strictness Strictness) (string, bool) {
	s := strings.TrimSpace(raw)
	if s == "" || strings.EqualFold(s, "nan") {
		return "", false
	}

	s = strings.Trim(s, `'"`)
	for _, cut := range []string{"\t", "\n", "\r", " "} {
		s = strings.ReplaceAll(s, cut, "")
	}

	if strictness == Aggressive {
		hadDecimalZero := strings.Contains(raw, ".0")
		s = strings.ReplaceAll(s, ".", "")
		// "123.0" becomes "1230" once the period is gone; drop the tail
		// zero only when the original actually carried a ".0".
		if hadDecimalZero && len(s) > 1 && strings.HasSuffix(s, "0") {
			s = s[:len(s)-1]
		}
	} else {
		s = strings.TrimSuffix(s, ".0")
	}

	if s == "" || strings.EqualFold(s, "nan") {
		return "", false
	}
	return s, true
}

// garbageTokens are placeholder literals that external providers emit instead
// of leaving a cell empty. They clean to absent, never to zero.
var garbageTokens = map[string]struct{}{
	"XXXXXXXXXX": {}, "XXXXXXX": {}, "XXXXX": {}, "XXX": {},
	"N/A": {}, "n/a": {}, "NA": {}, "na": {},
	"-": {}, "--": {}, "---": {},
	"#N/A": {}, "#VALUE!": {}, "#REF!": {},
	"null": {}, "NULL": {}, "Null": {},
}

// Number parses a monetary or numeric cell. Currency symbols and thousands
// separators are stripped first; garbage placeholder tokens and non-finite
// results report ok=false so the caller stores null rather than zero.
func Number(raw string) (float64, bool) {
	s := strings.TrimSpace(raw)
	if s == "" || strings.EqualFold(s, "nan") || strings.EqualFold(s, "none") {
		return 0, false
	}
	if _, garbage := garbageTokens[s]; garbage {
		return 0, false
	}

	s = strings.NewReplacer("$", "", ",", "", " ", "").Replace(s)
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, false
	}
	return v, true
}
