package evolve

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/khanglvm/evomemory/internal/storage"
)

// snapshotVersion is the schema version of the exported file.
const snapshotVersion = 1

// SnapshotRule is one exported heuristic.
type SnapshotRule struct {
	RuleID              int64   `json:"rule_id"`
	Text                string  `json:"text"`
	TriggerPattern      string  `json:"trigger_pattern"`
	ConfidenceThreshold float64 `json:"confidence_threshold"`
	Priority            int     `json:"priority"`
}

// Snapshot is the versioned rule export (instinct.json). It is
// regenerated wholesale on every successful generation cycle, never
// incrementally patched.
type Snapshot struct {
	Version     int            `json:"version"`
	GeneratedAt time.Time      `json:"generated_at"`
	RuleCount   int            `json:"rule_count"`
	Rules       []SnapshotRule `json:"rules"`
}

// WriteSnapshot rewrites the snapshot file from the full rule set,
// ordered by priority (desc) then id as the store lists them.
func WriteSnapshot(path string, rules []*storage.Rule) error {
	snapshot := Snapshot{
		Version:     snapshotVersion,
		GeneratedAt: time.Now().UTC(),
		RuleCount:   len(rules),
		Rules:       make([]SnapshotRule, 0, len(rules)),
	}

	for _, r := range rules {
		snapshot.Rules = append(snapshot.Rules, SnapshotRule{
			RuleID:              r.ID,
			Text:                r.Text,
			TriggerPattern:      r.Trigger.Key(),
			ConfidenceThreshold: r.ConfidenceThreshold,
			Priority:            r.Priority,
		})
	}

	data, err := json.MarshalIndent(snapshot, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal snapshot: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create snapshot directory: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write snapshot: %w", err)
	}

	return nil
}

// ReadSnapshot loads a previously exported snapshot.
func ReadSnapshot(path string) (*Snapshot, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read snapshot: %w", err)
	}

	var snapshot Snapshot
	if err := json.Unmarshal(data, &snapshot); err != nil {
		return nil, fmt.Errorf("failed to parse snapshot: %w", err)
	}

	return &snapshot, nil
}
