/*
Package confidence implements the deterministic self-assessment scorer.

Score is a pure function over a (prompt, response) pair: a handful of
independently weighted lexical signals push a base score up or down, the
result is clamped to [0,1] and bucketed into a label. Identical input
always yields identical output, which the rule generator's determinism
guarantee depends on.
*/
package confidence

import (
	"fmt"
	"strings"

	"github.com/khanglvm/evomemory/internal/search"
)

const (
	// baseScore is the starting point before any signal fires.
	baseScore = 0.7

	// uncertaintyPenalty is subtracted per hedging phrase found.
	uncertaintyPenalty = 0.15

	// certaintyBonus is added per certainty phrase found.
	certaintyBonus = 0.10

	// shortResponsePenalty is subtracted when the response is
	// suspiciously terse.
	shortResponsePenalty = 0.20

	// repetitionPenalty is subtracted when a trigram repeats at or above
	// repeatThreshold (hallucination signal).
	repetitionPenalty = 0.15

	// lowOverlapPenalty is subtracted when the response barely touches
	// the prompt's vocabulary.
	lowOverlapPenalty = 0.10

	// repeatNGram is the n-gram size used by the repetition check.
	repeatNGram = 3

	// repeatThreshold is the trigram frequency that counts as repetition.
	repeatThreshold = 3

	// overlapThreshold is the minimum input/output token overlap ratio.
	overlapThreshold = 0.10
)

// The assistant is bilingual, so both Italian and English phrasing is
// checked. Matching is on the lowercased raw text.
var uncertaintyPhrases = []string{
	"non sono sicuro",
	"non sono sicura",
	"non so",
	"forse",
	"probabilmente",
	"potrebbe essere",
	"possibilmente",
	"i'm not sure",
	"i don't know",
	"maybe",
	"probably",
	"might be",
	"could be",
}

var certaintyPhrases = []string{
	"sicuramente",
	"certamente",
	"confermo",
	"definitivamente",
	"certainly",
	"definitely",
	"clearly",
	"obviously",
}

// Config holds the tunable parts of the scorer. Only the bucket
// boundaries and the terseness cutoff are configuration; signal weights
// are fixed.
type Config struct {
	// LowBelow is the upper bound (exclusive) of the "low" label bucket.
	LowBelow float64 `json:"low_below"`

	// HighAtLeast is the lower bound (inclusive) of the "high" bucket.
	HighAtLeast float64 `json:"high_at_least"`

	// MinResponseTokens is the token count below which a response is
	// considered suspiciously terse.
	MinResponseTokens int `json:"min_response_tokens"`
}

// DefaultConfig returns the standard bucket boundaries.
func DefaultConfig() Config {
	return Config{
		LowBelow:          0.4,
		HighAtLeast:       0.7,
		MinResponseTokens: 4,
	}
}

// Assessment is the scorer's verdict on one response.
type Assessment struct {
	// Confidence is the self-assessment score in [0,1].
	Confidence float64 `json:"confidence"`

	// Label is the bucket name: "low", "medium" or "high".
	Label string `json:"label"`

	// Reasoning enumerates the signals that fired.
	Reasoning string `json:"reasoning"`
}

// Score assesses a response with the default configuration.
func Score(inputText, outputText string) Assessment {
	return ScoreWith(DefaultConfig(), inputText, outputText)
}

// ScoreWith assesses a response: each signal contributes a delta to the
// base score, the sum is clamped to [0,1] and bucketed. Pure and
// side-effect free.
func ScoreWith(cfg Config, inputText, outputText string) Assessment {
	confidence := baseScore
	var reasons []string

	lowered := strings.ToLower(outputText)
	outTokens := strings.Fields(search.Normalize(outputText))
	inTokens := strings.Fields(search.Normalize(inputText))

	if n := countPhrases(lowered, uncertaintyPhrases); n > 0 {
		confidence -= uncertaintyPenalty * float64(n)
		reasons = append(reasons, fmt.Sprintf("hedging language (%d)", n))
	}

	if n := countPhrases(lowered, certaintyPhrases); n > 0 {
		confidence += certaintyBonus * float64(n)
		reasons = append(reasons, fmt.Sprintf("certainty language (%d)", n))
	}

	if len(outTokens) < cfg.MinResponseTokens {
		confidence -= shortResponsePenalty
		reasons = append(reasons, "terse response")
	}

	if hasRepeatedNGram(outTokens, repeatNGram, repeatThreshold) {
		confidence -= repetitionPenalty
		reasons = append(reasons, "repeated phrasing")
	}

	if len(inTokens) > 0 && overlapRatio(inTokens, outTokens) < overlapThreshold {
		confidence -= lowOverlapPenalty
		reasons = append(reasons, "low prompt overlap")
	}

	if confidence < 0 {
		confidence = 0
	}
	if confidence > 1 {
		confidence = 1
	}

	reasoning := "no signals fired"
	if len(reasons) > 0 {
		reasoning = strings.Join(reasons, "; ")
	}

	return Assessment{
		Confidence: confidence,
		Label:      Label(cfg, confidence),
		Reasoning:  reasoning,
	}
}

// Label buckets a confidence value using the configured boundaries.
func Label(cfg Config, confidence float64) string {
	switch {
	case confidence < cfg.LowBelow:
		return "low"
	case confidence < cfg.HighAtLeast:
		return "medium"
	default:
		return "high"
	}
}

// countPhrases counts non-overlapping occurrences of every phrase.
// Matched text is consumed so that a longer phrase ("non sono sicuro")
// is not double counted by a shorter one it contains ("non so"); the
// phrase lists are ordered longest-variant first.
func countPhrases(lowered string, phrases []string) int {
	total := 0
	remaining := lowered
	for _, phrase := range phrases {
		if n := strings.Count(remaining, phrase); n > 0 {
			total += n
			remaining = strings.ReplaceAll(remaining, phrase, " ")
		}
	}
	return total
}

// hasRepeatedNGram reports whether any n-gram of tokens occurs at least
// threshold times.
func hasRepeatedNGram(tokens []string, n, threshold int) bool {
	if len(tokens) < n*threshold {
		return false
	}

	counts := make(map[string]int)
	for i := 0; i+n <= len(tokens); i++ {
		gram := strings.Join(tokens[i:i+n], " ")
		counts[gram]++
		if counts[gram] >= threshold {
			return true
		}
	}

	return false
}

// overlapRatio is |input ∩ output| / |input|, on unique tokens.
func overlapRatio(inTokens, outTokens []string) float64 {
	inSet := make(map[string]bool, len(inTokens))
	for _, t := range inTokens {
		inSet[t] = true
	}

	outSet := make(map[string]bool, len(outTokens))
	for _, t := range outTokens {
		outSet[t] = true
	}

	shared := 0
	for t := range inSet {
		if outSet[t] {
			shared++
		}
	}

	return float64(shared) / float64(len(inSet))
}
