package storage

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"
)

// ListRules returns all rules ordered by priority (desc) then id,
// provenance included.
func (s *SQLiteStore) ListRules() ([]*Rule, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.db == nil {
		return nil, &StorageError{Op: "list rules", Err: fmt.Errorf("store is closed")}
	}

	rows, err := s.db.Query(`
		SELECT id, text, trigger_kind, trigger_param, trigger_count, trigger_threshold,
		       confidence_threshold, priority, created_at
		FROM rules
		ORDER BY priority DESC, id ASC
	`)
	if err != nil {
		return nil, &StorageError{Op: "list rules", Err: err}
	}
	defer rows.Close()

	var rules []*Rule
	for rows.Next() {
		var r Rule
		var kind, param, createdAt string
		var count int
		var threshold float64

		if err := rows.Scan(&r.ID, &r.Text, &kind, &param, &count, &threshold,
			&r.ConfidenceThreshold, &r.Priority, &createdAt); err != nil {
			return nil, &StorageError{Op: "list rules", Err: err}
		}

		r.Trigger, err = decodeTrigger(kind, param, count, threshold)
		if err != nil {
			return nil, &StorageError{Op: "list rules", Err: err}
		}

		r.CreatedAt, err = parseTime(createdAt)
		if err != nil {
			return nil, &StorageError{Op: "list rules", Err: err}
		}

		rules = append(rules, &r)
	}
	if err := rows.Err(); err != nil {
		return nil, &StorageError{Op: "list rules", Err: err}
	}

	for _, r := range rules {
		sources, err := s.ruleSources(r.ID)
		if err != nil {
			return nil, &StorageError{Op: "list rules", Err: err}
		}
		r.SourceNeuronIDs = sources
	}

	return rules, nil
}

// ruleSources loads the provenance ids for a rule. Callers must hold mu.
func (s *SQLiteStore) ruleSources(ruleID int64) ([]int64, error) {
	rows, err := s.db.Query("SELECT neuron_id FROM rule_sources WHERE rule_id = ?", ruleID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}

	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids, rows.Err()
}

// CommitRuleCycle atomically applies one generation cycle: the listed
// rule ids are deleted (replaced rules) and the new rules inserted with
// their provenance. Either the full cycle commits or none of it does.
// A rule with no provenance is rejected before anything is written.
func (s *SQLiteStore) CommitRuleCycle(add []*Rule, replaceIDs []int64) error {
	for _, r := range add {
		if len(r.SourceNeuronIDs) == 0 {
			return &ValidationError{Field: "source_neuron_ids", Message: "a rule must cite at least one neuron"}
		}
		if r.Trigger == nil {
			return &ValidationError{Field: "trigger_pattern", Message: "a rule must carry a trigger"}
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.writeGuard("commit rule cycle"); err != nil {
		return err
	}

	tx, err := s.db.Begin()
	if err != nil {
		return s.fail("commit rule cycle", err)
	}
	defer tx.Rollback()

	if len(replaceIDs) > 0 {
		placeholders := strings.TrimSuffix(strings.Repeat("?,", len(replaceIDs)), ",")
		args := make([]interface{}, len(replaceIDs))
		for i, id := range replaceIDs {
			args[i] = id
		}

		if _, err := tx.Exec("DELETE FROM rule_sources WHERE rule_id IN ("+placeholders+")", args...); err != nil {
			return s.fail("commit rule cycle", err)
		}
		if _, err := tx.Exec("DELETE FROM rules WHERE id IN ("+placeholders+")", args...); err != nil {
			return s.fail("commit rule cycle", err)
		}
	}

	for _, r := range add {
		if r.CreatedAt.IsZero() {
			r.CreatedAt = time.Now().UTC()
		}

		kind, param, count, threshold := encodeTrigger(r.Trigger)

		result, err := tx.Exec(`
			INSERT INTO rules (text, trigger_kind, trigger_param, trigger_count, trigger_threshold,
			                   confidence_threshold, priority, created_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		`, r.Text, kind, param, count, threshold, r.ConfidenceThreshold, r.Priority, formatTime(r.CreatedAt))
		if err != nil {
			return s.fail("commit rule cycle", err)
		}

		r.ID, err = result.LastInsertId()
		if err != nil {
			return s.fail("commit rule cycle", err)
		}

		for _, neuronID := range r.SourceNeuronIDs {
			if _, err := tx.Exec(
				"INSERT INTO rule_sources (rule_id, neuron_id) VALUES (?, ?)",
				r.ID, neuronID,
			); err != nil {
				return s.fail("commit rule cycle", err)
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return s.fail("commit rule cycle", err)
	}

	return nil
}

// GetRule retrieves a rule by id.
func (s *SQLiteStore) GetRule(id int64) (*Rule, error) {
	rules, err := s.ListRules()
	if err != nil {
		return nil, err
	}

	for _, r := range rules {
		if r.ID == id {
			return r, nil
		}
	}

	return nil, &NotFoundError{Entity: "rule", ID: strconv.FormatInt(id, 10)}
}
