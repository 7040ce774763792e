package storage

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	_ "modernc.org/sqlite"
)

// Store defines the persistence operations the rest of the subsystem
// relies on. Callers only ever see plain scalars and the entity shapes
// from models.go, never database/sql types.
type Store interface {
	// SaveNeuron persists a neuron durably and returns its new id.
	SaveNeuron(n *Neuron) (int64, error)

	// GetNeuron retrieves a neuron by id.
	GetNeuron(id int64) (*Neuron, error)

	// ListRecent returns up to limit neurons, newest first, optionally
	// filtered by skill. limit <= 0 means no limit.
	ListRecent(limit int, skillID string) ([]*Neuron, error)

	// CountNeurons returns the total neuron count.
	CountNeurons() (int, error)

	// UpdateFeedback mutates only user_feedback (and the derived mood).
	UpdateFeedback(id int64, feedback int) error

	// Prune deletes neurons strictly older than maxAge with confidence
	// below the threshold, except rule provenance. Returns the count
	// deleted and their ids.
	Prune(maxAge time.Duration, confidenceBelow float64) ([]int64, error)

	// Stats summarizes the store.
	Stats() (*Stats, error)

	// Compress clusters low-confidence duplicate neurons into
	// meta-neurons and returns how many clusters were created.
	Compress(minClusterSize int, confidenceBelow float64) (int, error)

	// ListMetaNeurons returns all compressed clusters, newest first.
	ListMetaNeurons() ([]*MetaNeuron, error)

	// ListRules returns all rules ordered by priority (desc) then id.
	ListRules() ([]*Rule, error)

	// CommitRuleCycle atomically replaces the listed rule ids and
	// inserts the new rules. Either the whole cycle commits or none of
	// it does.
	CommitRuleCycle(add []*Rule, replaceIDs []int64) error

	// CreateSkill registers a skill.
	CreateSkill(s *Skill) error

	// GetSkill retrieves a skill by id.
	GetSkill(id string) (*Skill, error)

	// ListSkills returns all registered skills ordered by id.
	ListSkills() ([]*Skill, error)

	// SetSkillEnabled toggles a skill. Disabled skills are excluded
	// from rule generation scans.
	SetSkillEnabled(id string, enabled bool) error

	// Ping verifies the underlying storage is healthy and re-arms
	// writes after a StorageError.
	Ping() error

	// Close closes the database connection.
	Close() error
}

// SQLiteStore implements Store on a single SQLite database file.
//
// One writer at a time is serialized through mu; reads share the same
// mutex so a reader never observes a half-applied write. After a failed
// durable write the store marks itself unhealthy and refuses new writes
// until Ping succeeds.
type SQLiteStore struct {
	db      *sql.DB
	dbPath  string
	mu      sync.Mutex
	healthy bool

	moodLowBelow    float64
	moodHighAtLeast float64
}

// Confidence bucket boundaries used when deriving mood at write time.
// They mirror the scorer's default label buckets; the facade overrides
// them from config via SetMoodBuckets.
const (
	defaultLowBelow    = 0.4
	defaultHighAtLeast = 0.7
)

// Open creates or opens the database at dbPath and runs migrations.
func Open(dbPath string) (*SQLiteStore, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("failed to create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	// Single connection: the modernc driver serializes per connection,
	// and the store serializes writers itself.
	db.SetMaxOpenConns(1)

	s := &SQLiteStore{
		db:              db,
		dbPath:          dbPath,
		healthy:         true,
		moodLowBelow:    defaultLowBelow,
		moodHighAtLeast: defaultHighAtLeast,
	}

	if err := s.runMigrations(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return s, nil
}

// SetMoodBuckets overrides the confidence bucket boundaries used when
// deriving mood.
func (s *SQLiteStore) SetMoodBuckets(lowBelow, highAtLeast float64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.moodLowBelow = lowBelow
	s.moodHighAtLeast = highAtLeast
}

// Ping checks the connection and, on success, re-arms writes after a
// previous storage failure.
func (s *SQLiteStore) Ping() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.db == nil {
		return &StorageError{Op: "ping", Err: fmt.Errorf("store is closed")}
	}

	if err := s.db.Ping(); err != nil {
		s.healthy = false
		return &StorageError{Op: "ping", Err: err}
	}

	s.healthy = true
	return nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.db == nil {
		return nil
	}

	if err := s.db.Close(); err != nil {
		return fmt.Errorf("failed to close database: %w", err)
	}

	s.db = nil
	s.healthy = false
	return nil
}

// writeGuard rejects writes while the store is unhealthy. Callers must
// hold mu.
func (s *SQLiteStore) writeGuard(op string) error {
	if s.db == nil {
		return &StorageError{Op: op, Err: fmt.Errorf("store is closed")}
	}
	if !s.healthy {
		return &StorageError{Op: op, Err: fmt.Errorf("store unhealthy, run a health check first")}
	}
	return nil
}

// fail marks the store unhealthy and wraps the error. Callers must hold
// mu.
func (s *SQLiteStore) fail(op string, err error) error {
	s.healthy = false
	return &StorageError{Op: op, Err: err}
}
