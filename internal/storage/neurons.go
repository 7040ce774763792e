package storage

import (
	"database/sql"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/khanglvm/evomemory/internal/search"
)

// timeLayout is RFC3339 with fixed-width nanoseconds so that stored UTC
// timestamps compare lexicographically in chronological order.
const timeLayout = "2006-01-02T15:04:05.000000000Z"

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func parseTime(s string) (time.Time, error) {
	return time.Parse(timeLayout, s)
}

// SaveNeuron validates and persists a neuron, returning its assigned id.
// The write is durable before the call returns. Mood and context hash
// are derived here when unset.
func (s *SQLiteStore) SaveNeuron(n *Neuron) (int64, error) {
	if n.Confidence < 0 || n.Confidence > 1 {
		return 0, &ValidationError{Field: "confidence", Message: fmt.Sprintf("must be in [0,1], got %g", n.Confidence)}
	}
	if strings.TrimSpace(n.InputText) == "" {
		return 0, &ValidationError{Field: "input_text", Message: "must not be empty"}
	}
	if strings.TrimSpace(n.OutputText) == "" {
		return 0, &ValidationError{Field: "output_text", Message: "must not be empty"}
	}
	if n.UserFeedback < -1 || n.UserFeedback > 1 {
		return 0, &ValidationError{Field: "user_feedback", Message: "must be -1, 0 or +1"}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.writeGuard("save neuron"); err != nil {
		return 0, err
	}

	if n.ContextHash == "" {
		n.ContextHash = search.NormalizedHash(n.InputText)
	}
	if n.Mood == "" {
		n.Mood = DeriveMood(n.Confidence, n.UserFeedback, s.moodLowBelow, s.moodHighAtLeast)
	}
	if n.CreatedAt.IsZero() {
		n.CreatedAt = time.Now().UTC()
	}

	var skillID sql.NullString
	if n.SkillID != "" {
		skillID = sql.NullString{String: n.SkillID, Valid: true}
	}

	result, err := s.db.Exec(`
		INSERT INTO neurons (input_text, output_text, confidence, mood, user_feedback, context_hash, skill_id, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`,
		n.InputText,
		n.OutputText,
		n.Confidence,
		string(n.Mood),
		n.UserFeedback,
		n.ContextHash,
		skillID,
		formatTime(n.CreatedAt),
	)
	if err != nil {
		return 0, s.fail("save neuron", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return 0, s.fail("save neuron", err)
	}

	n.ID = id
	return id, nil
}

// GetNeuron retrieves a neuron by id.
func (s *SQLiteStore) GetNeuron(id int64) (*Neuron, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.db == nil {
		return nil, &StorageError{Op: "get neuron", Err: fmt.Errorf("store is closed")}
	}

	row := s.db.QueryRow(`
		SELECT id, input_text, output_text, confidence, mood, user_feedback, context_hash, skill_id, created_at
		FROM neurons WHERE id = ?
	`, id)

	n, err := scanNeuron(row)
	if err == sql.ErrNoRows {
		return nil, &NotFoundError{Entity: "neuron", ID: strconv.FormatInt(id, 10)}
	}
	if err != nil {
		return nil, &StorageError{Op: "get neuron", Err: err}
	}

	return n, nil
}

// ListRecent returns up to limit neurons, newest first, optionally
// filtered by skill. limit <= 0 returns everything.
func (s *SQLiteStore) ListRecent(limit int, skillID string) ([]*Neuron, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.db == nil {
		return nil, &StorageError{Op: "list neurons", Err: fmt.Errorf("store is closed")}
	}

	query := `
		SELECT id, input_text, output_text, confidence, mood, user_feedback, context_hash, skill_id, created_at
		FROM neurons
	`
	var args []interface{}

	if skillID != "" {
		query += " WHERE skill_id = ?"
		args = append(args, skillID)
	}
	query += " ORDER BY created_at DESC, id DESC"

	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, &StorageError{Op: "list neurons", Err: err}
	}
	defer rows.Close()

	var neurons []*Neuron
	for rows.Next() {
		n, err := scanNeuron(rows)
		if err != nil {
			return nil, &StorageError{Op: "list neurons", Err: err}
		}
		neurons = append(neurons, n)
	}

	return neurons, rows.Err()
}

// CountNeurons returns the total neuron count.
func (s *SQLiteStore) CountNeurons() (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.db == nil {
		return 0, &StorageError{Op: "count neurons", Err: fmt.Errorf("store is closed")}
	}

	var count int
	if err := s.db.QueryRow("SELECT COUNT(*) FROM neurons").Scan(&count); err != nil {
		return 0, &StorageError{Op: "count neurons", Err: err}
	}

	return count, nil
}

// UpdateFeedback mutates only user_feedback and the derived mood.
func (s *SQLiteStore) UpdateFeedback(id int64, feedback int) error {
	if feedback < -1 || feedback > 1 {
		return &ValidationError{Field: "user_feedback", Message: "must be -1, 0 or +1"}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.writeGuard("update feedback"); err != nil {
		return err
	}

	var confidence float64
	err := s.db.QueryRow("SELECT confidence FROM neurons WHERE id = ?", id).Scan(&confidence)
	if err == sql.ErrNoRows {
		return &NotFoundError{Entity: "neuron", ID: strconv.FormatInt(id, 10)}
	}
	if err != nil {
		return s.fail("update feedback", err)
	}

	mood := DeriveMood(confidence, feedback, s.moodLowBelow, s.moodHighAtLeast)

	_, err = s.db.Exec(
		"UPDATE neurons SET user_feedback = ?, mood = ? WHERE id = ?",
		feedback, string(mood), id,
	)
	if err != nil {
		return s.fail("update feedback", err)
	}

	return nil
}

// Prune deletes neurons strictly older than maxAge with confidence below
// the threshold. Neurons cited as rule provenance are never deleted, so
// pruning and provenance stay consistent. Returns the deleted ids.
func (s *SQLiteStore) Prune(maxAge time.Duration, confidenceBelow float64) ([]int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.writeGuard("prune"); err != nil {
		return nil, err
	}

	cutoff := formatTime(time.Now().Add(-maxAge))

	rows, err := s.db.Query(`
		SELECT id FROM neurons
		WHERE created_at < ? AND confidence < ?
		AND id NOT IN (SELECT neuron_id FROM rule_sources)
	`, cutoff, confidenceBelow)
	if err != nil {
		return nil, s.fail("prune", err)
	}

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			rows.Close()
			return nil, s.fail("prune", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, s.fail("prune", err)
	}
	rows.Close()

	if len(ids) == 0 {
		return nil, nil
	}

	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(ids)), ",")
	args := make([]interface{}, len(ids))
	for i, id := range ids {
		args[i] = id
	}

	if _, err := s.db.Exec("DELETE FROM neurons WHERE id IN ("+placeholders+")", args...); err != nil {
		return nil, s.fail("prune", err)
	}

	return ids, nil
}

// Stats summarizes the store: totals, average confidence and mood
// distribution.
func (s *SQLiteStore) Stats() (*Stats, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.db == nil {
		return nil, &StorageError{Op: "stats", Err: fmt.Errorf("store is closed")}
	}

	stats := &Stats{ByMood: make(map[Mood]int)}

	err := s.db.QueryRow(
		"SELECT COUNT(*), COALESCE(AVG(confidence), 0) FROM neurons",
	).Scan(&stats.TotalNeurons, &stats.AvgConfidence)
	if err != nil {
		return nil, &StorageError{Op: "stats", Err: err}
	}

	rows, err := s.db.Query("SELECT mood, COUNT(*) FROM neurons GROUP BY mood")
	if err != nil {
		return nil, &StorageError{Op: "stats", Err: err}
	}
	defer rows.Close()

	for rows.Next() {
		var mood string
		var count int
		if err := rows.Scan(&mood, &count); err != nil {
			return nil, &StorageError{Op: "stats", Err: err}
		}
		stats.ByMood[Mood(mood)] = count
	}
	if err := rows.Err(); err != nil {
		return nil, &StorageError{Op: "stats", Err: err}
	}

	if err := s.db.QueryRow("SELECT COUNT(*) FROM meta_neurons").Scan(&stats.MetaNeurons); err != nil {
		return nil, &StorageError{Op: "stats", Err: err}
	}
	if err := s.db.QueryRow("SELECT COUNT(*) FROM rules").Scan(&stats.Rules); err != nil {
		return nil, &StorageError{Op: "stats", Err: err}
	}
	if err := s.db.QueryRow("SELECT COUNT(*) FROM skills WHERE enabled = 1").Scan(&stats.Skills); err != nil {
		return nil, &StorageError{Op: "stats", Err: err}
	}

	return stats, nil
}

// rowScanner abstracts sql.Row and sql.Rows for scanNeuron.
type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanNeuron(row rowScanner) (*Neuron, error) {
	var n Neuron
	var mood, createdAt string
	var skillID sql.NullString

	err := row.Scan(
		&n.ID,
		&n.InputText,
		&n.OutputText,
		&n.Confidence,
		&mood,
		&n.UserFeedback,
		&n.ContextHash,
		&skillID,
		&createdAt,
	)
	if err != nil {
		return nil, err
	}

	n.Mood = Mood(mood)
	n.SkillID = skillID.String

	n.CreatedAt, err = parseTime(createdAt)
	if err != nil {
		return nil, fmt.Errorf("failed to parse created_at: %w", err)
	}

	return &n, nil
}
