/*
Package evolve implements auto-evolution: the periodic rule synthesis
process that mines the neuron store for statistically notable patterns
and persists reusable heuristics.

A generation cycle is single-flight (a trigger while one runs is a
no-op, not queued), reads one consistent window of recent neurons, and
commits its whole rule set atomically. Failures are logged and retried
only on the next natural threshold crossing.
*/
package evolve

import (
	"fmt"
	"log"
	"math"
	"sort"
	"sync"

	"github.com/khanglvm/evomemory/internal/search"
	"github.com/khanglvm/evomemory/internal/storage"
)

// Config holds the rule generation thresholds.
type Config struct {
	// Interval triggers a cycle every time the neuron total crosses a
	// multiple of it.
	Interval int `json:"interval"`

	// ScanWindow is how many recent neurons one cycle analyzes.
	ScanWindow int `json:"scan_window"`

	// MinSupport is the minimum neuron count behind a trust rule.
	MinSupport int `json:"min_support"`

	// HighConfidence is the average confidence a skill must exceed for a
	// trust rule.
	HighConfidence float64 `json:"high_confidence"`

	// LowConfidence bounds the neurons mined for clarify rules and is
	// the threshold carried by their trigger.
	LowConfidence float64 `json:"low_confidence"`

	// NegativeStreak is the consecutive negative-feedback count that
	// produces a caution rule.
	NegativeStreak int `json:"negative_streak"`

	// TopicMinCount is the minimum number of low-confidence neurons that
	// must mention a keyword before it becomes a clarify topic.
	TopicMinCount int `json:"topic_min_count"`

	// CautionCeiling is the confidence ceiling carried by caution rules.
	CautionCeiling float64 `json:"caution_ceiling"`

	// MaterialDelta is the minimum threshold change that replaces an
	// existing rule with the same trigger; smaller changes are no-ops.
	MaterialDelta float64 `json:"material_delta"`
}

// DefaultConfig returns the standard generation thresholds.
func DefaultConfig() Config {
	return Config{
		Interval:       100,
		ScanWindow:     200,
		MinSupport:     5,
		HighConfidence: 0.85,
		LowConfidence:  0.4,
		NegativeStreak: 3,
		TopicMinCount:  3,
		CautionCeiling: 0.4,
		MaterialDelta:  0.05,
	}
}

// GenerationError reports an aborted generation cycle. It is local to
// the background job: logged, never retried in a tight loop.
type GenerationError struct {
	Stage string
	Err   error
}

func (e *GenerationError) Error() string {
	return fmt.Sprintf("rule generation failed during %s: %v", e.Stage, e.Err)
}

func (e *GenerationError) Unwrap() error { return e.Err }

// Report summarizes one generation cycle.
type Report struct {
	// NeuronsScanned is the size of the analyzed window.
	NeuronsScanned int `json:"neurons_scanned"`

	// Candidates is how many rules the cycle derived before dedup.
	Candidates int `json:"candidates"`

	// Committed is how many rules were written.
	Committed int `json:"committed"`

	// Replaced is how many existing rules were superseded.
	Replaced int `json:"replaced"`

	// Skipped is how many candidates matched an existing rule without a
	// material parameter change.
	Skipped int `json:"skipped"`
}

// Generator mines the store for rules. One instance runs at most one
// cycle at a time.
type Generator struct {
	store        storage.Store
	cfg          Config
	snapshotPath string

	mu       sync.Mutex
	inFlight bool
}

// NewGenerator creates a rule generator writing its snapshot to
// snapshotPath after every successful cycle.
func NewGenerator(store storage.Store, cfg Config, snapshotPath string) *Generator {
	return &Generator{
		store:        store,
		cfg:          cfg,
		snapshotPath: snapshotPath,
	}
}

// MaybeTrigger starts a background cycle when the neuron total crosses a
// multiple of the configured interval. Returns whether a cycle was
// started.
func (g *Generator) MaybeTrigger(total int) bool {
	if g.cfg.Interval <= 0 || total <= 0 || total%g.cfg.Interval != 0 {
		return false
	}

	go func() {
		if _, err := g.Run(); err != nil {
			log.Printf("Warning: %v", err)
		}
	}()

	return true
}

// Run executes one generation cycle synchronously. If a cycle is already
// in progress the call is a no-op and returns (nil, nil). The cycle's
// rule set commits atomically; on success the snapshot file is rewritten
// wholesale.
func (g *Generator) Run() (*Report, error) {
	g.mu.Lock()
	if g.inFlight {
		g.mu.Unlock()
		return nil, nil
	}
	g.inFlight = true
	g.mu.Unlock()

	defer func() {
		g.mu.Lock()
		g.inFlight = false
		g.mu.Unlock()
	}()

	neurons, err := g.scanWindow()
	if err != nil {
		return nil, &GenerationError{Stage: "scan", Err: err}
	}

	candidates := g.deriveRules(neurons)

	existing, err := g.store.ListRules()
	if err != nil {
		return nil, &GenerationError{Stage: "dedup", Err: err}
	}

	byKey := make(map[string]*storage.Rule, len(existing))
	for _, r := range existing {
		if _, ok := byKey[r.Trigger.Key()]; !ok {
			byKey[r.Trigger.Key()] = r
		}
	}

	report := &Report{
		NeuronsScanned: len(neurons),
		Candidates:     len(candidates),
	}

	var add []*storage.Rule
	var replaceIDs []int64

	for _, cand := range candidates {
		prev, ok := byKey[cand.Trigger.Key()]
		if !ok {
			add = append(add, cand)
			continue
		}

		if math.Abs(cand.ConfidenceThreshold-prev.ConfidenceThreshold) >= g.cfg.MaterialDelta {
			add = append(add, cand)
			replaceIDs = append(replaceIDs, prev.ID)
			report.Replaced++
		} else {
			report.Skipped++
		}
	}

	if err := g.store.CommitRuleCycle(add, replaceIDs); err != nil {
		return nil, &GenerationError{Stage: "commit", Err: err}
	}
	report.Committed = len(add)

	rules, err := g.store.ListRules()
	if err != nil {
		return nil, &GenerationError{Stage: "snapshot", Err: err}
	}
	if err := WriteSnapshot(g.snapshotPath, rules); err != nil {
		return nil, &GenerationError{Stage: "snapshot", Err: err}
	}

	return report, nil
}

// scanWindow loads the cycle's consistent window of recent neurons,
// excluding those tagged with a disabled skill.
func (g *Generator) scanWindow() ([]*storage.Neuron, error) {
	neurons, err := g.store.ListRecent(g.cfg.ScanWindow, "")
	if err != nil {
		return nil, err
	}

	skills, err := g.store.ListSkills()
	if err != nil {
		return nil, err
	}

	disabled := make(map[string]bool)
	for _, skill := range skills {
		if !skill.Enabled {
			disabled[skill.ID] = true
		}
	}

	kept := neurons[:0]
	for _, n := range neurons {
		if n.SkillID != "" && disabled[n.SkillID] {
			continue
		}
		kept = append(kept, n)
	}

	return kept, nil
}

// deriveRules turns the scanned window into candidate rules. Iteration
// is sorted throughout so two runs over the same window produce the same
// candidates in the same order.
func (g *Generator) deriveRules(neurons []*storage.Neuron) []*storage.Rule {
	var candidates []*storage.Rule

	bySkill := make(map[string][]*storage.Neuron)
	for _, n := range neurons {
		if n.SkillID != "" {
			bySkill[n.SkillID] = append(bySkill[n.SkillID], n)
		}
	}

	skillIDs := make([]string, 0, len(bySkill))
	for id := range bySkill {
		skillIDs = append(skillIDs, id)
	}
	sort.Strings(skillIDs)

	// Trust rules: a skill with enough well-rated history gets a raised
	// confidence floor.
	for _, skillID := range skillIDs {
		members := bySkill[skillID]
		if len(members) < g.cfg.MinSupport {
			continue
		}

		sum := 0.0
		for _, n := range members {
			sum += n.Confidence
		}
		avg := sum / float64(len(members))

		if avg > g.cfg.HighConfidence {
			candidates = append(candidates, &storage.Rule{
				Text:                fmt.Sprintf("Use high confidence for %s tasks", skillID),
				Trigger:             storage.SkillMatch{SkillID: skillID},
				ConfidenceThreshold: avg,
				Priority:            2,
				SourceNeuronIDs:     neuronIDs(members),
			})
		}
	}

	// Caution rules: a run of consecutive negative ratings lowers the
	// ceiling and asks for confirmation. Members are newest first, so
	// the streak is counted from the head.
	for _, skillID := range skillIDs {
		members := bySkill[skillID]

		streak := 0
		for _, n := range members {
			if n.UserFeedback >= 0 {
				break
			}
			streak++
		}

		if streak >= g.cfg.NegativeStreak {
			candidates = append(candidates, &storage.Rule{
				Text:                fmt.Sprintf("Ask for confirmation on %s tasks after repeated negative feedback", skillID),
				Trigger:             storage.NegativeFeedbackStreak{SkillID: skillID, Count: streak},
				ConfidenceThreshold: g.cfg.CautionCeiling,
				Priority:            3,
				SourceNeuronIDs:     neuronIDs(members[:streak]),
			})
		}
	}

	// Clarify rules: keywords that keep showing up in low-confidence
	// prompts become clarification topics.
	candidates = append(candidates, g.deriveTopicRules(neurons)...)

	return candidates
}

// deriveTopicRules mines clarify rules from low-confidence neurons. At
// most two topics per cycle, ranked by how many neurons mention them.
func (g *Generator) deriveTopicRules(neurons []*storage.Neuron) []*storage.Rule {
	var low []*storage.Neuron
	for _, n := range neurons {
		if n.Confidence < g.cfg.LowConfidence {
			low = append(low, n)
		}
	}

	counts := make(map[string]int)
	mentions := make(map[string][]int64)
	for _, n := range low {
		seen := make(map[string]bool)
		for _, token := range search.Tokenize(n.InputText) {
			if len([]rune(token)) <= 3 || seen[token] {
				continue
			}
			seen[token] = true
			counts[token]++
			mentions[token] = append(mentions[token], n.ID)
		}
	}

	topics := make([]string, 0, len(counts))
	for topic, count := range counts {
		if count >= g.cfg.TopicMinCount {
			topics = append(topics, topic)
		}
	}

	sort.Slice(topics, func(i, j int) bool {
		if counts[topics[i]] != counts[topics[j]] {
			return counts[topics[i]] > counts[topics[j]]
		}
		return topics[i] < topics[j]
	})

	if len(topics) > 2 {
		topics = topics[:2]
	}

	var rules []*storage.Rule
	for _, topic := range topics {
		rules = append(rules, &storage.Rule{
			Text:                fmt.Sprintf("Ask clarification for %q requests (low confidence pattern)", topic),
			Trigger:             storage.LowConfidenceTopic{Topic: topic, Threshold: g.cfg.LowConfidence},
			ConfidenceThreshold: g.cfg.LowConfidence,
			Priority:            2,
			SourceNeuronIDs:     mentions[topic],
		})
	}

	return rules
}

func neuronIDs(neurons []*storage.Neuron) []int64 {
	ids := make([]int64, len(neurons))
	for i, n := range neurons {
		ids[i] = n.ID
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}
