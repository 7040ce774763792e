package confidence

import (
	"math"
	"testing"
)

func almostEqual(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

func TestScoreIsDeterministic(t *testing.T) {
	input := "come si accende il led"
	output := "non sono sicuro forse devi usare gpio write"

	first := Score(input, output)
	for i := 0; i < 5; i++ {
		got := Score(input, output)
		if got != first {
			t.Fatalf("run %d differed: %+v vs %+v", i, got, first)
		}
	}
}

func TestScoreNoSignals(t *testing.T) {
	got := Score(
		"come si accende il led",
		"usa gpio write 17 high per accendere il led rosso",
	)

	if !almostEqual(got.Confidence, 0.7) {
		t.Errorf("expected base confidence 0.7, got %f", got.Confidence)
	}
	if got.Reasoning != "no signals fired" {
		t.Errorf("unexpected reasoning: %q", got.Reasoning)
	}
}

func TestScoreHedgingLanguage(t *testing.T) {
	// "non sono sicuro" and "forse" are two distinct hedges; the longer
	// phrase must not be double counted by "non so" inside it.
	got := Score(
		"come si accende il led",
		"non sono sicuro forse devi usare il comando gpio per il led",
	)

	if !almostEqual(got.Confidence, 0.7-2*0.15) {
		t.Errorf("expected confidence 0.40, got %f", got.Confidence)
	}
	if got.Reasoning != "hedging language (2)" {
		t.Errorf("unexpected reasoning: %q", got.Reasoning)
	}
}

func TestScoreCertaintyLanguage(t *testing.T) {
	got := Score(
		"come si accende il led",
		"sicuramente devi usare gpio write per accendere il led",
	)

	if !almostEqual(got.Confidence, 0.8) {
		t.Errorf("expected confidence 0.80, got %f", got.Confidence)
	}
	if got.Label != "high" {
		t.Errorf("expected high label, got %q", got.Label)
	}
	if got.Reasoning != "certainty language (1)" {
		t.Errorf("unexpected reasoning: %q", got.Reasoning)
	}
}

func TestScoreTerseResponse(t *testing.T) {
	got := Score("si accende", "si")

	if !almostEqual(got.Confidence, 0.5) {
		t.Errorf("expected confidence 0.50, got %f", got.Confidence)
	}
	if got.Reasoning != "terse response" {
		t.Errorf("unexpected reasoning: %q", got.Reasoning)
	}
}

func TestScoreRepeatedPhrasing(t *testing.T) {
	got := Score(
		"test del sensore",
		"test uno due test uno due test uno due",
	)

	if !almostEqual(got.Confidence, 0.7-0.15) {
		t.Errorf("expected confidence 0.55, got %f", got.Confidence)
	}
	if got.Reasoning != "repeated phrasing" {
		t.Errorf("unexpected reasoning: %q", got.Reasoning)
	}
}

func TestScoreLowPromptOverlap(t *testing.T) {
	got := Score(
		"come si accende il led",
		"quarantadue risposte pronte subito ecco",
	)

	if !almostEqual(got.Confidence, 0.6) {
		t.Errorf("expected confidence 0.60, got %f", got.Confidence)
	}
	if got.Reasoning != "low prompt overlap" {
		t.Errorf("unexpected reasoning: %q", got.Reasoning)
	}
}

func TestScoreClampedToRange(t *testing.T) {
	// Five hedges plus one more push the raw score below zero.
	low := Score("forse", "forse forse forse forse forse non so")
	if low.Confidence != 0 {
		t.Errorf("expected clamp to 0, got %f", low.Confidence)
	}
	if low.Label != "low" {
		t.Errorf("expected low label, got %q", low.Label)
	}

	high := Score("sicuramente",
		"sicuramente certamente confermo definitivamente certainly definitely clearly obviously")
	if high.Confidence != 1 {
		t.Errorf("expected clamp to 1, got %f", high.Confidence)
	}
	if high.Label != "high" {
		t.Errorf("expected high label, got %q", high.Label)
	}
}

func TestLabelBuckets(t *testing.T) {
	cfg := DefaultConfig()

	tests := []struct {
		confidence float64
		want       string
	}{
		{0.0, "low"},
		{0.39, "low"},
		{0.4, "medium"},
		{0.69, "medium"},
		{0.7, "high"},
		{1.0, "high"},
	}

	for _, tt := range tests {
		if got := Label(cfg, tt.confidence); got != tt.want {
			t.Errorf("Label(%.2f) = %q, want %q", tt.confidence, got, tt.want)
		}
	}
}

func TestScoreWithCustomTersenessCutoff(t *testing.T) {
	cfg := DefaultConfig()
	cfg.MinResponseTokens = 2

	got := ScoreWith(cfg, "si accende", "si")
	if got.Reasoning != "terse response" {
		t.Errorf("unexpected reasoning: %q", got.Reasoning)
	}

	cfg.MinResponseTokens = 1
	got = ScoreWith(cfg, "si accende", "si")
	if got.Reasoning != "no signals fired" {
		t.Errorf("expected terse signal off below cutoff, got %q", got.Reasoning)
	}
}
