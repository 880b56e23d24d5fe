package model

import (
	"sort"
	"strings"
)

// AlgoType is a bitmask recording every retrieval algorithm that contributed
// to a completion. Bits accumulate (bitwise OR) across merges.
type AlgoType int

// Algorithm type bits.
const (
	AlgoPrefix    AlgoType = 1 << 0
	AlgoMidstring AlgoType = 1 << 2
	AlgoBow       AlgoType = 1 << 3
	AlgoAltNames  AlgoType = 1 << 4
	AlgoSynonyms  AlgoType = 1 << 5
	AlgoSpell     AlgoType = 1 << 6
	AlgoTemplate  AlgoType = 1 << 7
	AlgoAttribute AlgoType = 1 << 8
)

var algoTypeNames = map[AlgoType]string{
	AlgoPrefix:    "prefix",
	AlgoMidstring: "midstring",
	AlgoBow:       "bow",
	AlgoAltNames:  "alt-names",
	AlgoSynonyms:  "synonyms",
	AlgoSpell:     "spell",
	AlgoTemplate:  "template",
	AlgoAttribute: "attribute",
}

// String renders the set bits as a stable "|"-joined list, e.g. "prefix|bow".
func (a AlgoType) String() string {
	if a == 0 {
		return "none"
	}
	var bits []AlgoType
	for bit := range algoTypeNames {
		if a&bit != 0 {
			bits = append(bits, bit)
		}
	}
	sort.Slice(bits, func(i, j int) bool { return bits[i] < bits[j] })
	names := make([]string, len(bits))
	for i, bit := range bits {
		names[i] = algoTypeNames[bit]
	}
	return strings.Join(names, "|")
}

// Completion is the per-request working record for one candidate suggestion.
// Score starts from IndexScore (or the record's BaseScore once resolved) and
// is mutated by mergers and rescorers as the request progresses.
type Completion struct {
	SuggestionID SuggestionID        `json:"suggestion_id"`
	IndexScore   float64             `json:"index_score,omitempty"`
	Score        float64             `json:"score"`
	AlgoType     AlgoType            `json:"algo_type"`
	Suggestion   *CompleteSuggestion `json:"suggestion,omitempty"`
	ParentID     SuggestionID        `json:"parent_id,omitempty"`
	DebugInfo    []string            `json:"debug_info,omitempty"`
}

// AddDebug appends a trace line to the completion's debug info.
func (c *Completion) AddDebug(line string) {
	c.DebugInfo = append(c.DebugInfo, line)
}

// Clone returns a shallow copy sharing the CompleteSuggestion reference but
// owning its own debug trace.
func (c *Completion) Clone() *Completion {
	cp := *c
	cp.DebugInfo = append([]string(nil), c.DebugInfo...)
	return &cp
}
