package profile

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/nerrad567/gray-logic-remote/internal/infrastructure/database"
)

// Repository defines the interface for profile persistence operations.
type Repository interface {
	List(ctx context.Context) ([]Profile, error)
	GetByID(ctx context.Context, id string) (*Profile, error)
	GetActive(ctx context.Context) (*Profile, error)
	SetActive(ctx context.Context, id string) error
	Create(ctx context.Context, p *Profile) error
	Update(ctx context.Context, p *Profile) error
	Delete(ctx context.Context, id string) error
	Count(ctx context.Context) (int, error)
}

// SQLiteRepository implements Repository using SQLite.
type SQLiteRepository struct {
	db *sql.DB
}

// NewSQLiteRepository creates a new SQLite-backed profile repository.
func NewSQLiteRepository(db *sql.DB) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

const selectColumns = `SELECT id, name, internal_url, external_url, token,
	prefer_external, is_active, created_at, updated_at FROM profiles`

// List returns all profiles ordered by name.
func (r *SQLiteRepository) List(ctx context.Context) ([]Profile, error) {
	rows, err := r.db.QueryContext(ctx, selectColumns+" ORDER BY name COLLATE NOCASE, id")
	if err != nil {
		return nil, fmt.Errorf("querying profiles: %w", err)
	}
	defer rows.Close()

	var profiles []Profile
	for rows.Next() {
		p, err := scanProfile(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning profile row: %w", err)
		}
		profiles = append(profiles, *p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating profile rows: %w", err)
	}
	return profiles, nil
}

// GetByID returns a single profile.
// Returns ErrProfileNotFound if the ID does not exist.
func (r *SQLiteRepository) GetByID(ctx context.Context, id string) (*Profile, error) {
	p, err := scanProfile(r.db.QueryRowContext(ctx, selectColumns+" WHERE id = ?", id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrProfileNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("getting profile %s: %w", id, err)
	}
	return p, nil
}

// GetActive returns the active profile.
// Returns ErrNoActiveProfile when none is active.
func (r *SQLiteRepository) GetActive(ctx context.Context) (*Profile, error) {
	p, err := scanProfile(r.db.QueryRowContext(ctx, selectColumns+" WHERE is_active = 1 LIMIT 1"))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNoActiveProfile
	}
	if err != nil {
		return nil, fmt.Errorf("getting active profile: %w", err)
	}
	return p, nil
}

// SetActive makes id the only active profile. Calling it again for the
// already-active profile is a no-op in effect.
// Returns ErrProfileNotFound (and changes nothing) if the ID does not exist.
func (r *SQLiteRepository) SetActive(ctx context.Context, id string) error {
	return database.InTx(ctx, r.db, func(tx *sql.Tx) error {
		return setActiveTx(ctx, tx, id)
	})
}

func setActiveTx(ctx context.Context, tx *sql.Tx, id string) error {
	if _, err := tx.ExecContext(ctx, "UPDATE profiles SET is_active = 0 WHERE is_active = 1"); err != nil {
		return fmt.Errorf("clearing active profile: %w", err)
	}
	result, err := tx.ExecContext(ctx, "UPDATE profiles SET is_active = 1 WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("activating profile %s: %w", id, err)
	}
	n, _ := result.RowsAffected() //nolint:errcheck // SQLite always supports RowsAffected
	if n == 0 {
		return ErrProfileNotFound
	}
	return nil
}

// Create validates and inserts p, assigning an ID when empty. If
// p.Active is set the new profile also becomes the only active one.
func (r *SQLiteRepository) Create(ctx context.Context, p *Profile) error {
	if err := p.Validate(); err != nil {
		return err
	}
	if p.ID == "" {
		p.ID = GenerateID()
	}
	p.Name = strings.TrimSpace(p.Name)
	now := time.Now().UTC().Truncate(time.Second)

	err := database.InTx(ctx, r.db, func(tx *sql.Tx) error {
		const query = `INSERT INTO profiles (id, name, internal_url, external_url, token,
			prefer_external, is_active, created_at, updated_at)
			VALUES (?, ?, ?, ?, ?, ?, 0, ?, ?)`
		_, err := tx.ExecContext(ctx, query,
			p.ID, p.Name, p.InternalURL, p.ExternalURL, p.Token,
			boolToInt(p.PreferExternal), formatTime(now), formatTime(now))
		if err != nil {
			return fmt.Errorf("inserting profile %s: %w", p.ID, err)
		}
		if p.Active {
			return setActiveTx(ctx, tx, p.ID)
		}
		return nil
	})
	if err != nil {
		return err
	}

	p.CreatedAt, p.UpdatedAt = now, now
	return nil
}

// Update writes the editable fields of p. The active flag is not
// touched here; use SetActive.
func (r *SQLiteRepository) Update(ctx context.Context, p *Profile) error {
	if err := p.Validate(); err != nil {
		return err
	}
	p.Name = strings.TrimSpace(p.Name)
	now := time.Now().UTC().Truncate(time.Second)

	const query = `UPDATE profiles SET name = ?, internal_url = ?, external_url = ?,
		token = ?, prefer_external = ?, updated_at = ?
		WHERE id = ?`
	result, err := r.db.ExecContext(ctx, query,
		p.Name, p.InternalURL, p.ExternalURL, p.Token, boolToInt(p.PreferExternal), formatTime(now), p.ID)
	if err != nil {
		return fmt.Errorf("updating profile %s: %w", p.ID, err)
	}
	n, _ := result.RowsAffected() //nolint:errcheck // SQLite always supports RowsAffected
	if n == 0 {
		return ErrProfileNotFound
	}
	p.UpdatedAt = now
	return nil
}

// Delete removes a profile. Its tabs, tab assignments and selected
// entities go with it (ON DELETE CASCADE).
// Returns ErrProfileNotFound if the ID does not exist.
func (r *SQLiteRepository) Delete(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, "DELETE FROM profiles WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("deleting profile %s: %w", id, err)
	}
	n, _ := result.RowsAffected() //nolint:errcheck // SQLite always supports RowsAffected
	if n == 0 {
		return ErrProfileNotFound
	}
	return nil
}

// Count returns the number of stored profiles.
func (r *SQLiteRepository) Count(ctx context.Context) (int, error) {
	var n int
	if err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM profiles").Scan(&n); err != nil {
		return 0, fmt.Errorf("counting profiles: %w", err)
	}
	return n, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanProfile(row scanner) (*Profile, error) {
	var p Profile
	var preferExternal, active int
	var createdAt, updatedAt string

	err := row.Scan(&p.ID, &p.Name, &p.InternalURL, &p.ExternalURL, &p.Token,
		&preferExternal, &active, &createdAt, &updatedAt)
	if err != nil {
		return nil, err
	}
	p.PreferExternal = preferExternal != 0
	p.Active = active != 0
	p.CreatedAt = parseTime(createdAt)
	p.UpdatedAt = parseTime(updatedAt)
	return &p, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}

// parseTime parses the RFC3339 timestamps this package writes.
func parseTime(s string) time.Time {
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}
	}
	return t
}
