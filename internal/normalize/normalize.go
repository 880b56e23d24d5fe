// Package normalize provides query normalization for the suggestion
// pipeline: lower-cased, whitespace-folded query text, tokenization that
// respects quoting, and the word-mismatch extent used by the bag-of-words
// retriever.
package normalize

import (
	"strings"

	"github.com/google/shlex"
)

// Query normalizes raw user input: lower-cased, leading/trailing whitespace
// trimmed, interior whitespace runs folded to single spaces. The result is
// deterministic and is the lookup key for every retrieval index.
func Query(raw string) string {
	return strings.Join(strings.Fields(strings.ToLower(raw)), " ")
}

// LastWordComplete reports whether the raw input ended in whitespace, i.e.
// the user finished typing the last word.
func LastWordComplete(raw string) bool {
	if raw == "" {
		return false
	}
	return raw != strings.TrimRight(raw, " \t")
}

// Tokens splits a normalized query into word tokens. Quoted phrases stay
// single tokens; malformed quoting falls back to whitespace splitting.
func Tokens(normalized string) []string {
	tokens, err := shlex.Split(normalized)
	if err != nil || len(tokens) == 0 {
		return strings.Fields(normalized)
	}
	return tokens
}

// WordMismatchExtent measures how badly a candidate's normalized text fails
// to contain the query tokens in order.
//
//   - 0 means every token appears, in order, as a full word of the candidate.
//   - -1 means no token overlaps the candidate at all.
//   - Otherwise the extent grows with each token that is missing (weighted by
//     token length times candidate length) and with leftover characters of
//     words matched only by prefix.
//
// The extent never exceeds len(query) * len(candidate), so callers can
// normalize it against that product.
func WordMismatchExtent(candidate string, tokens []string) float64 {
	words := strings.Fields(candidate)
	if len(words) == 0 || len(tokens) == 0 {
		return -1
	}

	mismatch := 0.0
	matched := 0
	wi := 0
	for _, tok := range tokens {
		found := false
		for scan := wi; scan < len(words); scan++ {
			if strings.HasPrefix(words[scan], tok) {
				// Prefix-only matches cost the leftover characters.
				mismatch += float64(len(words[scan]) - len(tok))
				wi = scan + 1
				found = true
				break
			}
		}
		if found {
			matched++
			continue
		}
		// Token absent: full-weight miss. The scan position is left where
		// it was so later tokens can still match in order.
		mismatch += float64(len(tok) * len(candidate))
	}

	if matched == 0 {
		return -1
	}
	return mismatch
}
