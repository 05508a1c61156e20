package infobot

import (
	"slices"
	"unicode"
)

// DocMatch is a DocEntry which matched a fuzzy query. Span is the number
// of runes covered by the leftmost match, and Start is the rune offset
// where it begins.
type DocMatch struct {
	DocEntry
	Span  int `json:"span"`
	Start int `json:"start"`
}

// FuzzySearch returns the candidates whose keys contain every rune of
// query, in order, ignoring case. Results are ordered by the length of
// the matched span, then by where the match starts, then by the order
// of candidates. At most limit results are returned, unless limit is
// zero or negative.
//
// An empty query matches every candidate, in their original order.
func FuzzySearch(query string, candidates []DocEntry, limit int) []DocMatch {
	q := foldRunes(query)

	matches := make([]DocMatch, 0, min(len(candidates), 64))
	for _, c := range candidates {
		start, span, ok := subsequenceMatch(q, foldRunes(c.Key))
		if !ok {
			continue
		}
		matches = append(
			matches,
			DocMatch{DocEntry: c, Span: span, Start: start},
		)
	}

	slices.SortStableFunc(
		matches, func(a, b DocMatch) int {
			if a.Span != b.Span {
				return a.Span - b.Span
			}
			return a.Start - b.Start
		},
	)

	if limit > 0 && len(matches) > limit {
		matches = matches[:limit]
	}
	return matches
}

// subsequenceMatch finds the leftmost match of q as an ordered subsequence
// of s, returning its start offset and span. For the leftmost start, the
// shortest span is found by taking each following rune at its first
// occurrence.
func subsequenceMatch(q, s []rune) (start int, span int, ok bool) {
	if len(q) == 0 {
		return 0, 0, true
	}

	start = slices.Index(s, q[0])
	if start == -1 {
		return 0, 0, false
	}

	pos := start + 1
	for _, r := range q[1:] {
		i := slices.Index(s[pos:], r)
		if i == -1 {
			return 0, 0, false
		}
		pos += i + 1
	}
	return start, pos - start, true
}

func foldRunes(s string) []rune {
	r := []rune(s)
	for i, c := range r {
		r[i] = unicode.ToLower(c)
	}
	return r
}
