package normalize

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestQuery(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want string
	}{
		{"empty", "", ""},
		{"whitespace only", "   \t ", ""},
		{"lowercases", "New York", "new york"},
		{"trims and folds", "  san   francisco  ", "san francisco"},
		{"tabs folded", "pool\tlondon", "pool london"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Query(tt.raw))
		})
	}
}

func TestLastWordComplete(t *testing.T) {
	assert.False(t, LastWordComplete(""))
	assert.False(t, LastWordComplete("new y"))
	assert.True(t, LastWordComplete("new york "))
	assert.True(t, LastWordComplete("new york\t"))
}

func TestTokens(t *testing.T) {
	assert.Equal(t, []string{"new", "york"}, Tokens("new york"))
	assert.Equal(t, []string{"new york", "hotel"}, Tokens(`"new york" hotel`))
	// Malformed quoting falls back to whitespace splitting.
	assert.Equal(t, []string{`"new`, "york"}, Tokens(`"new york`))
	assert.Empty(t, Tokens(""))
}

func TestWordMismatchExtent(t *testing.T) {
	tests := []struct {
		name      string
		candidate string
		tokens    []string
		want      float64
	}{
		{"exact full-word match", "new york", []string{"new", "york"}, 0},
		{"prefix match costs leftover", "new york", []string{"new", "yo"}, 2},
		{"no overlap", "london", []string{"paris"}, -1},
		{"empty candidate", "", []string{"x"}, -1},
		{"missing token weighted", "new york", []string{"new", "zzz"}, float64(3 * len("new york"))},
		{"order respected", "york new", []string{"new", "york"}, float64(4 * len("york new"))},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, WordMismatchExtent(tt.candidate, tt.tokens))
		})
	}
}

func TestWordMismatchExtent_Bounded(t *testing.T) {
	// The extent never exceeds len(query)*len(candidate) for single-token
	// queries, which callers use as the normalisation denominator.
	candidate := "some long candidate text"
	tokens := []string{"zzzz"}
	extent := WordMismatchExtent(candidate, tokens)
	assert.Equal(t, -1.0, extent, "no overlap at all reads as -1")

	tokens = []string{"some", "zzzz"}
	extent = WordMismatchExtent(candidate, tokens)
	assert.LessOrEqual(t, extent, float64(len("some zzzz")*len(candidate)))
}
