// Package normalize implements the canonical forms and similarity measures
// used for scoring: whitespace-free uppercase text, eight-digit dates and
// zero-padded account numbers.
package normalize

import (
	"strings"
	"time"

	"github.com/agnivade/levenshtein"
)

// AccountWidth is the fixed width account numbers are left-padded to before
// comparison, so that "123" and "0000000000000123" compare equal.
const AccountWidth = 16

// Text canonicalizes free text: strip all whitespace, uppercase.
func Text(s string) string {
	return strings.ToUpper(strings.Join(strings.Fields(s), ""))
}

// TextSimilarity scores two strings in [0,1] on their normalized forms using
// a Levenshtein ratio. Empty normalized input on either side scores 0.
func TextSimilarity(a, b string) float64 {
	na, nb := Text(a), Text(b)
	if na == "" || nb == "" {
		return 0
	}
	if na == nb {
		return 1
	}
	dist := levenshtein.ComputeDistance(na, nb)
	la, lb := len([]rune(na)), len([]rune(nb))
	max := la
	if lb > max {
		max = lb
	}
	return 1 - float64(dist)/float64(max)
}

// dateLayouts is tried in order; the first layout that parses wins, which
// makes ambiguous inputs like "01-02-2020" resolve deterministically
// (day-month before month-day).
var dateLayouts = []string{
	"2006-1-2 15:04:05",
	"2006-1-2",
	"2/1/2006",
	"1/2/2006",
	"2006/1/2",
	"20060102",
	"2-1-2006",
	"1-2-2006",
	"Jan 2, 2006",
	"2 Jan 2006",
	"January 2, 2006",
	"2 January 2006",
	"2006.1.2",
	"2.1.2006",
	"1.2.2006",
	"2006/1/2 15:04:05",
	"2-Jan-2006",
	"2-January-2006",
	"2006-Jan-2",
	"2006-January-2",
}

// StandardizeDate parses a date in any supported layout and returns it as
// YYYYMMDD. The second return is false when no layout matches.
func StandardizeDate(s string) (string, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return "", false
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.Format("20060102"), true
		}
	}
	return "", false
}

// DateSimilarity scores two date strings: both standardize and are equal
// yields 1, both standardize and differ yields the text similarity of the
// standardized forms. A value that fails to standardize scores 0; malformed
// dates never contribute to a match.
func DateSimilarity(a, b string) float64 {
	sa, oka := StandardizeDate(a)
	sb, okb := StandardizeDate(b)
	if !oka || !okb {
		return 0
	}
	if sa == sb {
		return 1
	}
	return TextSimilarity(sa, sb)
}

// ZeroPadAccount strips whitespace and left-pads the value with zeros to
// width. Values already at or beyond the width pass through unchanged.
func ZeroPadAccount(s string, width int) string {
	s = strings.Join(strings.Fields(s), "")
	if len(s) >= width {
		return s
	}
	return strings.Repeat("0", width-len(s)) + s
}
