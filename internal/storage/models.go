/*
Package storage implements the durable EvoMemory store on SQLite.

This file contains the entity models: neurons (one interaction record
each), meta-neurons (compressed clusters of duplicates), synthesized
rules with their tagged trigger patterns, and the skill registry.

The store uses modernc.org/sqlite (a pure Go, CGo-free implementation).
*/
package storage

import (
	"fmt"
	"strings"
	"time"
)

// Mood is the derived categorical state of a neuron.
type Mood string

const (
	MoodPositive Mood = "positive"
	MoodNeutral  Mood = "neutral"
	MoodNegative Mood = "negative"
)

// DeriveMood computes a neuron's mood. Feedback sign wins; with neutral
// feedback the confidence buckets decide.
func DeriveMood(confidence float64, feedback int, lowBelow, highAtLeast float64) Mood {
	switch {
	case feedback > 0:
		return MoodPositive
	case feedback < 0:
		return MoodNegative
	case confidence >= highAtLeast:
		return MoodPositive
	case confidence < lowBelow:
		return MoodNegative
	default:
		return MoodNeutral
	}
}

// Neuron is one persisted interaction record. All fields except
// UserFeedback and Mood are immutable after creation.
type Neuron struct {
	// ID is assigned at persist time, unique and strictly increasing.
	ID int64 `json:"id"`

	// InputText is the user's prompt.
	InputText string `json:"input_text"`

	// OutputText is the model's response.
	OutputText string `json:"output_text"`

	// Confidence is the self-assessment score, always in [0,1].
	Confidence float64 `json:"confidence"`

	// Mood summarizes confidence and feedback.
	Mood Mood `json:"mood"`

	// UserFeedback is -1, 0 or +1; the only mutable field besides Mood.
	UserFeedback int `json:"user_feedback"`

	// ContextHash is the normalized hash of InputText, used by hybrid
	// retrieval to spot exact repeats of a prior question.
	ContextHash string `json:"context_hash"`

	// SkillID optionally tags the neuron with a registered skill.
	SkillID string `json:"skill_id,omitempty"`

	// CreatedAt is set at persist time and never changes.
	CreatedAt time.Time `json:"created_at"`
}

// MetaNeuron is a compressed cluster of similar neurons.
type MetaNeuron struct {
	ID int64 `json:"id"`

	// RepresentativeText is the input text of the newest cluster member.
	RepresentativeText string `json:"representative_text"`

	// MemberIDs is the non-empty set of clustered neuron ids.
	MemberIDs []int64 `json:"member_ids"`

	// SupportCount equals len(MemberIDs).
	SupportCount int `json:"support_count"`

	// ContextHash is the shared hash the cluster was grouped on.
	ContextHash string `json:"context_hash"`

	CreatedAt time.Time `json:"created_at"`
}

// Skill is a named domain tag. Skills are created explicitly, never
// inferred. Disabling a skill excludes its neurons from rule generation
// but does not delete them.
type Skill struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Enabled     bool   `json:"enabled"`
}

// Rule is a synthesized heuristic mined from neuron statistics.
type Rule struct {
	ID int64 `json:"id"`

	// Text is the human-readable description.
	Text string `json:"text"`

	// Trigger is the condition under which the rule applies.
	Trigger TriggerPattern `json:"-"`

	// ConfidenceThreshold is the numeric parameter of the rule.
	ConfidenceThreshold float64 `json:"confidence_threshold"`

	// Priority orders evaluation; higher is evaluated first.
	Priority int `json:"priority"`

	// SourceNeuronIDs is the provenance; never empty.
	SourceNeuronIDs []int64 `json:"source_neuron_ids"`

	CreatedAt time.Time `json:"created_at"`
}

// Trigger kinds, persisted in the trigger_kind column.
const (
	TriggerSkillMatch             = "skill_match"
	TriggerNegativeFeedbackStreak = "negative_feedback_streak"
	TriggerLowConfidenceTopic     = "low_confidence_topic"
)

// TriggerPattern is a closed tagged variant: exactly one of SkillMatch,
// NegativeFeedbackStreak or LowConfidenceTopic, each with its own
// matcher.
type TriggerPattern interface {
	// Kind returns the variant tag.
	Kind() string

	// Key identifies the trigger for deduplication; two rules with the
	// same key describe the same condition.
	Key() string

	// Matches reports whether the trigger condition applies to a neuron.
	Matches(n *Neuron) bool
}

// SkillMatch fires for every neuron tagged with the skill. Used by
// "trust" rules that raise the effective confidence floor.
type SkillMatch struct {
	SkillID string
}

func (t SkillMatch) Kind() string { return TriggerSkillMatch }

func (t SkillMatch) Key() string { return "skill:" + t.SkillID }

func (t SkillMatch) Matches(n *Neuron) bool { return n.SkillID == t.SkillID }

// NegativeFeedbackStreak fires for negatively-rated neurons of a skill
// that accumulated Count consecutive negative ratings. Used by "caution"
// rules.
type NegativeFeedbackStreak struct {
	SkillID string
	Count   int
}

func (t NegativeFeedbackStreak) Kind() string { return TriggerNegativeFeedbackStreak }

func (t NegativeFeedbackStreak) Key() string { return "negative_streak:" + t.SkillID }

func (t NegativeFeedbackStreak) Matches(n *Neuron) bool {
	return n.SkillID == t.SkillID && n.UserFeedback < 0
}

// LowConfidenceTopic fires for low-confidence neurons whose input
// mentions the topic. Used by "clarify" rules.
type LowConfidenceTopic struct {
	Topic     string
	Threshold float64
}

func (t LowConfidenceTopic) Kind() string { return TriggerLowConfidenceTopic }

func (t LowConfidenceTopic) Key() string { return "topic:" + t.Topic }

func (t LowConfidenceTopic) Matches(n *Neuron) bool {
	if n.Confidence >= t.Threshold {
		return false
	}
	for _, word := range strings.Fields(strings.ToLower(n.InputText)) {
		if strings.Trim(word, ".,;:!?'\"()") == t.Topic {
			return true
		}
	}
	return false
}

// decodeTrigger rebuilds a TriggerPattern from its persisted columns.
func decodeTrigger(kind, param string, count int, threshold float64) (TriggerPattern, error) {
	switch kind {
	case TriggerSkillMatch:
		return SkillMatch{SkillID: param}, nil
	case TriggerNegativeFeedbackStreak:
		return NegativeFeedbackStreak{SkillID: param, Count: count}, nil
	case TriggerLowConfidenceTopic:
		return LowConfidenceTopic{Topic: param, Threshold: threshold}, nil
	default:
		return nil, fmt.Errorf("unknown trigger kind: %q", kind)
	}
}

// encodeTrigger flattens a TriggerPattern into its persisted columns.
func encodeTrigger(t TriggerPattern) (kind, param string, count int, threshold float64) {
	switch v := t.(type) {
	case SkillMatch:
		return v.Kind(), v.SkillID, 0, 0
	case NegativeFeedbackStreak:
		return v.Kind(), v.SkillID, v.Count, 0
	case LowConfidenceTopic:
		return v.Kind(), v.Topic, 0, v.Threshold
	default:
		return "", "", 0, 0
	}
}

// Stats summarizes the store for callers.
type Stats struct {
	// TotalNeurons is the neuron count.
	TotalNeurons int `json:"total_neurons"`

	// AvgConfidence is the mean confidence across all neurons, 0 when
	// the store is empty.
	AvgConfidence float64 `json:"avg_confidence"`

	// ByMood counts neurons per mood.
	ByMood map[Mood]int `json:"by_mood"`

	// MetaNeurons is the compressed cluster count.
	MetaNeurons int `json:"meta_neurons"`

	// Rules is the synthesized rule count.
	Rules int `json:"rules"`

	// Skills is the enabled skill count.
	Skills int `json:"skills"`
}
