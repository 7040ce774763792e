package storage

import (
	"database/sql"
	"fmt"
	"strings"
)

// CreateSkill registers a named domain tag. Skills are created
// explicitly, never inferred from neurons.
func (s *SQLiteStore) CreateSkill(skill *Skill) error {
	if strings.TrimSpace(skill.ID) == "" {
		return &ValidationError{Field: "skill_id", Message: "must not be empty"}
	}
	if strings.TrimSpace(skill.Name) == "" {
		return &ValidationError{Field: "name", Message: "must not be empty"}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.writeGuard("create skill"); err != nil {
		return err
	}

	enabled := 0
	if skill.Enabled {
		enabled = 1
	}

	_, err := s.db.Exec(
		"INSERT INTO skills (id, name, description, enabled) VALUES (?, ?, ?, ?)",
		skill.ID, skill.Name, skill.Description, enabled,
	)
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE") {
			return &ValidationError{Field: "skill_id", Message: fmt.Sprintf("skill %q already exists", skill.ID)}
		}
		return s.fail("create skill", err)
	}

	return nil
}

// GetSkill retrieves a skill by id.
func (s *SQLiteStore) GetSkill(id string) (*Skill, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.db == nil {
		return nil, &StorageError{Op: "get skill", Err: fmt.Errorf("store is closed")}
	}

	var skill Skill
	var enabled int

	err := s.db.QueryRow(
		"SELECT id, name, description, enabled FROM skills WHERE id = ?", id,
	).Scan(&skill.ID, &skill.Name, &skill.Description, &enabled)
	if err == sql.ErrNoRows {
		return nil, &NotFoundError{Entity: "skill", ID: id}
	}
	if err != nil {
		return nil, &StorageError{Op: "get skill", Err: err}
	}

	skill.Enabled = enabled == 1
	return &skill, nil
}

// ListSkills returns all registered skills ordered by id.
func (s *SQLiteStore) ListSkills() ([]*Skill, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.db == nil {
		return nil, &StorageError{Op: "list skills", Err: fmt.Errorf("store is closed")}
	}

	rows, err := s.db.Query("SELECT id, name, description, enabled FROM skills ORDER BY id ASC")
	if err != nil {
		return nil, &StorageError{Op: "list skills", Err: err}
	}
	defer rows.Close()

	var skills []*Skill
	for rows.Next() {
		var skill Skill
		var enabled int
		if err := rows.Scan(&skill.ID, &skill.Name, &skill.Description, &enabled); err != nil {
			return nil, &StorageError{Op: "list skills", Err: err}
		}
		skill.Enabled = enabled == 1
		skills = append(skills, &skill)
	}

	return skills, rows.Err()
}

// SetSkillEnabled toggles a skill. Disabling excludes the skill's
// neurons from future rule generation scans without deleting them.
func (s *SQLiteStore) SetSkillEnabled(id string, enabled bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.writeGuard("set skill enabled"); err != nil {
		return err
	}

	value := 0
	if enabled {
		value = 1
	}

	result, err := s.db.Exec("UPDATE skills SET enabled = ? WHERE id = ?", value, id)
	if err != nil {
		return s.fail("set skill enabled", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return s.fail("set skill enabled", err)
	}
	if affected == 0 {
		return &NotFoundError{Entity: "skill", ID: id}
	}

	return nil
}
