package search

import (
	"reflect"
	"testing"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"lowercase", "Come Si ACCENDE", "come si accende"},
		{"punctuation stripped", "gpio.write(17, HIGH)!", "gpio write 17 high"},
		{"whitespace collapsed", "  led \t rosso \n ", "led rosso"},
		{"empty", "", ""},
		{"only punctuation", "?!...", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Normalize(tt.input)
			if got != tt.want {
				t.Errorf("Normalize(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestTokenizeDropsStopwords(t *testing.T) {
	tokens := Tokenize("come si accende il led")

	want := []string{"accende", "led"}
	if !reflect.DeepEqual(tokens, want) {
		t.Errorf("expected tokens %v, got %v", want, tokens)
	}
}

func TestTokenizeAllStopwords(t *testing.T) {
	tokens := Tokenize("il lo la the a an")

	if len(tokens) != 0 {
		t.Errorf("expected no tokens for all-stopword text, got %v", tokens)
	}
}

func TestNormalizedHashEquivalence(t *testing.T) {
	// Case, punctuation and spacing differences must hash equal.
	a := NormalizedHash("Come si accende il LED?")
	b := NormalizedHash("come   si accende il led")

	if a != b {
		t.Error("expected equal hashes for texts differing only in case/punctuation/spacing")
	}

	c := NormalizedHash("come si spegne il led")
	if a == c {
		t.Error("expected different hashes for different texts")
	}
}
