package store

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Landmark is one normalized hand point.
type Landmark struct {
	X, Y, Z float64
}

// Template is a stored static gesture.
type Template struct {
	ID        string
	Name      string
	Tolerance float64
	Builtin   bool
	Landmarks []Landmark
	CreatedAt time.Time
}

// TemplateRepository provides CRUD operations for gesture templates.
type TemplateRepository struct {
	db *sql.DB
}

// Templates returns the template repository for this store.
func (s *Store) Templates() *TemplateRepository {
	return &TemplateRepository{db: s.db}
}

// Create inserts a template and its landmarks in one transaction. An empty
// ID is filled with a new UUID.
func (r *TemplateRepository) Create(t *Template) error {
	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	t.CreatedAt = time.Now()

	tx, err := r.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	_, err = tx.Exec(
		`INSERT INTO templates (id, name, tolerance, builtin, created_at) VALUES (?, ?, ?, ?, ?)`,
		t.ID, t.Name, t.Tolerance, t.Builtin, t.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert template %s: %w", t.Name, err)
	}

	for i, l := range t.Landmarks {
		_, err := tx.Exec(
			`INSERT INTO template_landmarks (template_id, landmark_index, x, y, z) VALUES (?, ?, ?, ?, ?)`,
			t.ID, i, l.X, l.Y, l.Z,
		)
		if err != nil {
			return fmt.Errorf("insert landmark %d of %s: %w", i, t.Name, err)
		}
	}

	return tx.Commit()
}

// GetByID retrieves a template with its landmarks.
func (r *TemplateRepository) GetByID(id string) (*Template, error) {
	return r.getOne(`SELECT id, name, tolerance, builtin, created_at FROM templates WHERE id = ?`, id)
}

// GetByName retrieves a template with its landmarks.
func (r *TemplateRepository) GetByName(name string) (*Template, error) {
	return r.getOne(`SELECT id, name, tolerance, builtin, created_at FROM templates WHERE name = ?`, name)
}

func (r *TemplateRepository) getOne(query string, arg any) (*Template, error) {
	t := &Template{}
	err := r.db.QueryRow(query, arg).Scan(&t.ID, &t.Name, &t.Tolerance, &t.Builtin, &t.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	landmarks, err := r.landmarks(t.ID)
	if err != nil {
		return nil, err
	}
	t.Landmarks = landmarks
	return t, nil
}

// List retrieves all templates with their landmarks, oldest first.
func (r *TemplateRepository) List() ([]*Template, error) {
	rows, err := r.db.Query(
		`SELECT id, name, tolerance, builtin, created_at FROM templates ORDER BY created_at, name`,
	)
	if err != nil {
		return nil, err
	}

	var templates []*Template
	for rows.Next() {
		t := &Template{}
		if err := rows.Scan(&t.ID, &t.Name, &t.Tolerance, &t.Builtin, &t.CreatedAt); err != nil {
			rows.Close()
			return nil, err
		}
		templates = append(templates, t)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, err
	}
	rows.Close()

	// Landmarks are loaded after the cursor closes; the store holds a
	// single connection.
	for _, t := range templates {
		if t.Landmarks, err = r.landmarks(t.ID); err != nil {
			return nil, err
		}
	}

	return templates, nil
}

func (r *TemplateRepository) landmarks(id string) ([]Landmark, error) {
	rows, err := r.db.Query(
		`SELECT x, y, z FROM template_landmarks WHERE template_id = ? ORDER BY landmark_index`,
		id,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Landmark
	for rows.Next() {
		var l Landmark
		if err := rows.Scan(&l.X, &l.Y, &l.Z); err != nil {
			return nil, err
		}
		out = append(out, l)
	}
	return out, rows.Err()
}

// Delete removes a template by ID.
func (r *TemplateRepository) Delete(id string) error {
	result, err := r.db.Exec(`DELETE FROM templates WHERE id = ?`, id)
	if err != nil {
		return err
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// Count returns the number of stored templates.
func (r *TemplateRepository) Count() (int, error) {
	var n int
	err := r.db.QueryRow(`SELECT COUNT(*) FROM templates`).Scan(&n)
	return n, err
}

// Seed inserts defaults when the table is empty and reports how many were
// added.
func (r *TemplateRepository) Seed(defaults []Template) (int, error) {
	n, err := r.Count()
	if err != nil {
		return 0, err
	}
	if n > 0 {
		return 0, nil
	}

	for i := range defaults {
		t := defaults[i]
		t.Builtin = true
		if err := r.Create(&t); err != nil {
			return i, err
		}
	}
	return len(defaults), nil
}
