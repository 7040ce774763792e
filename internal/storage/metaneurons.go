package storage

import (
	"encoding/json"
	"fmt"
	"time"
)

// Compress clusters low-value duplicate neurons into meta-neurons.
//
// Neurons sharing a context hash form a cluster candidate; a cluster is
// compressed when it has at least minClusterSize members and its average
// confidence is below confidenceBelow. The newest member's input text
// becomes the representative. Members are kept: a meta-neuron is a
// summary, not a replacement. Re-running is idempotent per hash: an
// existing cluster is refreshed in place. Returns the number of clusters
// written.
func (s *SQLiteStore) Compress(minClusterSize int, confidenceBelow float64) (int, error) {
	if minClusterSize < 2 {
		return 0, &ValidationError{Field: "min_cluster_size", Message: "must be at least 2"}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.writeGuard("compress"); err != nil {
		return 0, err
	}

	rows, err := s.db.Query(`
		SELECT context_hash, COUNT(*) AS members, AVG(confidence) AS avg_conf
		FROM neurons
		GROUP BY context_hash
		HAVING members >= ? AND avg_conf < ?
		ORDER BY context_hash
	`, minClusterSize, confidenceBelow)
	if err != nil {
		return 0, s.fail("compress", err)
	}

	type cluster struct {
		hash string
	}
	var clusters []cluster
	for rows.Next() {
		var c cluster
		var members int
		var avg float64
		if err := rows.Scan(&c.hash, &members, &avg); err != nil {
			rows.Close()
			return 0, s.fail("compress", err)
		}
		clusters = append(clusters, c)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return 0, s.fail("compress", err)
	}
	rows.Close()

	written := 0
	for _, c := range clusters {
		memberRows, err := s.db.Query(`
			SELECT id, input_text FROM neurons
			WHERE context_hash = ?
			ORDER BY created_at DESC, id DESC
		`, c.hash)
		if err != nil {
			return written, s.fail("compress", err)
		}

		var memberIDs []int64
		var representative string
		for memberRows.Next() {
			var id int64
			var input string
			if err := memberRows.Scan(&id, &input); err != nil {
				memberRows.Close()
				return written, s.fail("compress", err)
			}
			if representative == "" {
				representative = input
			}
			memberIDs = append(memberIDs, id)
		}
		if err := memberRows.Err(); err != nil {
			memberRows.Close()
			return written, s.fail("compress", err)
		}
		memberRows.Close()

		if len(memberIDs) < minClusterSize {
			continue
		}

		encoded, err := json.Marshal(memberIDs)
		if err != nil {
			return written, s.fail("compress", err)
		}

		_, err = s.db.Exec(`
			INSERT INTO meta_neurons (representative_text, member_ids, support_count, context_hash, created_at)
			VALUES (?, ?, ?, ?, ?)
			ON CONFLICT(context_hash) DO UPDATE SET
				representative_text = excluded.representative_text,
				member_ids = excluded.member_ids,
				support_count = excluded.support_count
		`, representative, string(encoded), len(memberIDs), c.hash, formatTime(time.Now()))
		if err != nil {
			return written, s.fail("compress", err)
		}

		written++
	}

	return written, nil
}

// ListMetaNeurons returns all compressed clusters, newest first.
func (s *SQLiteStore) ListMetaNeurons() ([]*MetaNeuron, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.db == nil {
		return nil, &StorageError{Op: "list meta neurons", Err: fmt.Errorf("store is closed")}
	}

	rows, err := s.db.Query(`
		SELECT id, representative_text, member_ids, support_count, context_hash, created_at
		FROM meta_neurons
		ORDER BY created_at DESC, id DESC
	`)
	if err != nil {
		return nil, &StorageError{Op: "list meta neurons", Err: err}
	}
	defer rows.Close()

	var metas []*MetaNeuron
	for rows.Next() {
		var m MetaNeuron
		var encoded, createdAt string

		if err := rows.Scan(&m.ID, &m.RepresentativeText, &encoded, &m.SupportCount, &m.ContextHash, &createdAt); err != nil {
			return nil, &StorageError{Op: "list meta neurons", Err: err}
		}
		if err := json.Unmarshal([]byte(encoded), &m.MemberIDs); err != nil {
			return nil, &StorageError{Op: "list meta neurons", Err: err}
		}

		m.CreatedAt, err = parseTime(createdAt)
		if err != nil {
			return nil, &StorageError{Op: "list meta neurons", Err: err}
		}

		metas = append(metas, &m)
	}

	return metas, rows.Err()
}
