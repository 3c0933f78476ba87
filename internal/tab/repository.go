package tab

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/mattn/go-sqlite3"

	"github.com/nerrad567/gray-logic-remote/internal/infrastructure/database"
)

// Repository defines the interface for tab persistence operations.
type Repository interface {
	ListForProfile(ctx context.Context, profileID string) ([]Tab, error)
	ListWithEntities(ctx context.Context, profileID string) ([]WithEntities, error)
	GetByID(ctx context.Context, id string) (*Tab, error)
	EntityIDs(ctx context.Context, tabID string) ([]string, error)
	TabsForEntity(ctx context.Context, profileID, entityID string) ([]Tab, error)
	Create(ctx context.Context, t *Tab) error
	Update(ctx context.Context, t *Tab) error
	Delete(ctx context.Context, id string) error
	Assign(ctx context.Context, tabID, entityID string) error
	Unassign(ctx context.Context, tabID, entityID string) error
}

// SQLiteRepository implements Repository using SQLite.
type SQLiteRepository struct {
	db *sql.DB
}

// NewSQLiteRepository creates a new SQLite-backed tab repository.
func NewSQLiteRepository(db *sql.DB) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

const selectColumns = `SELECT id, profile_id, name, sort_order, created_at FROM tabs`

// ListForProfile returns a profile's tabs by sort order.
func (r *SQLiteRepository) ListForProfile(ctx context.Context, profileID string) ([]Tab, error) {
	return r.query(ctx, selectColumns+" WHERE profile_id = ? ORDER BY sort_order, name", profileID)
}

// TabsForEntity returns the profile's tabs that contain entityID.
func (r *SQLiteRepository) TabsForEntity(ctx context.Context, profileID, entityID string) ([]Tab, error) {
	const query = `SELECT t.id, t.profile_id, t.name, t.sort_order, t.created_at
		FROM tabs t JOIN tab_entities te ON te.tab_id = t.id
		WHERE t.profile_id = ? AND te.entity_id = ?
		ORDER BY t.sort_order, t.name`
	return r.query(ctx, query, profileID, entityID)
}

// ListWithEntities returns a profile's tabs with their assignments in one pass.
func (r *SQLiteRepository) ListWithEntities(ctx context.Context, profileID string) ([]WithEntities, error) {
	tabs, err := r.ListForProfile(ctx, profileID)
	if err != nil {
		return nil, err
	}

	const query = `SELECT te.tab_id, te.entity_id FROM tab_entities te
		JOIN tabs t ON t.id = te.tab_id
		WHERE t.profile_id = ? ORDER BY te.entity_id`
	rows, err := r.db.QueryContext(ctx, query, profileID)
	if err != nil {
		return nil, fmt.Errorf("querying tab assignments: %w", err)
	}
	defer rows.Close()

	byTab := make(map[string][]string, len(tabs))
	for rows.Next() {
		var tabID, entityID string
		if err := rows.Scan(&tabID, &entityID); err != nil {
			return nil, fmt.Errorf("scanning tab assignment: %w", err)
		}
		byTab[tabID] = append(byTab[tabID], entityID)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating tab assignments: %w", err)
	}

	out := make([]WithEntities, len(tabs))
	for i, t := range tabs {
		out[i] = WithEntities{Tab: t, EntityIDs: byTab[t.ID]}
	}
	return out, nil
}

// GetByID returns a single tab.
// Returns ErrTabNotFound if the ID does not exist.
func (r *SQLiteRepository) GetByID(ctx context.Context, id string) (*Tab, error) {
	t, err := scanTab(r.db.QueryRowContext(ctx, selectColumns+" WHERE id = ?", id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrTabNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("getting tab %s: %w", id, err)
	}
	return t, nil
}

// EntityIDs returns the entity ids assigned to a tab, sorted.
func (r *SQLiteRepository) EntityIDs(ctx context.Context, tabID string) ([]string, error) {
	rows, err := r.db.QueryContext(ctx,
		"SELECT entity_id FROM tab_entities WHERE tab_id = ? ORDER BY entity_id", tabID)
	if err != nil {
		return nil, fmt.Errorf("querying entities for tab %s: %w", tabID, err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scanning tab entity: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating tab entities: %w", err)
	}
	return ids, nil
}

// Create inserts a tab at the end of the profile's tab strip
// (sort order = current max + 1), assigning an ID when empty.
func (r *SQLiteRepository) Create(ctx context.Context, t *Tab) error {
	if err := ValidateName(t.Name); err != nil {
		return err
	}
	if t.ID == "" {
		t.ID = GenerateID()
	}
	t.Name = strings.TrimSpace(t.Name)
	now := time.Now().UTC().Truncate(time.Second)

	const query = `INSERT INTO tabs (id, profile_id, name, sort_order, created_at)
		SELECT ?, ?, ?, COALESCE(MAX(sort_order), -1) + 1, ? FROM tabs WHERE profile_id = ?`
	_, err := r.db.ExecContext(ctx, query, t.ID, t.ProfileID, t.Name, now.Format(time.RFC3339), t.ProfileID)
	if err != nil {
		return mapConstraint(fmt.Errorf("inserting tab %q: %w", t.Name, err))
	}

	if err := r.db.QueryRowContext(ctx, "SELECT sort_order FROM tabs WHERE id = ?", t.ID).Scan(&t.SortOrder); err != nil {
		return fmt.Errorf("reading tab sort order: %w", err)
	}
	t.CreatedAt = now
	return nil
}

// Update renames and/or reorders a tab.
// Returns ErrTabNotFound if the ID does not exist.
func (r *SQLiteRepository) Update(ctx context.Context, t *Tab) error {
	if err := ValidateName(t.Name); err != nil {
		return err
	}
	t.Name = strings.TrimSpace(t.Name)

	result, err := r.db.ExecContext(ctx,
		"UPDATE tabs SET name = ?, sort_order = ? WHERE id = ?", t.Name, t.SortOrder, t.ID)
	if err != nil {
		return mapConstraint(fmt.Errorf("updating tab %s: %w", t.ID, err))
	}
	n, _ := result.RowsAffected() //nolint:errcheck // SQLite always supports RowsAffected
	if n == 0 {
		return ErrTabNotFound
	}
	return nil
}

// Delete removes a tab and all of its assignments in one transaction.
// Returns ErrTabNotFound if the ID does not exist.
func (r *SQLiteRepository) Delete(ctx context.Context, id string) error {
	return database.InTx(ctx, r.db, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, "DELETE FROM tab_entities WHERE tab_id = ?", id); err != nil {
			return fmt.Errorf("deleting assignments for tab %s: %w", id, err)
		}
		result, err := tx.ExecContext(ctx, "DELETE FROM tabs WHERE id = ?", id)
		if err != nil {
			return fmt.Errorf("deleting tab %s: %w", id, err)
		}
		n, _ := result.RowsAffected() //nolint:errcheck // SQLite always supports RowsAffected
		if n == 0 {
			return ErrTabNotFound
		}
		return nil
	})
}

// Assign adds entityID to a tab. Assigning twice is a no-op.
// Returns ErrTabNotFound if the tab does not exist.
func (r *SQLiteRepository) Assign(ctx context.Context, tabID, entityID string) error {
	if strings.TrimSpace(entityID) == "" {
		return fmt.Errorf("tab: entity id is required")
	}
	_, err := r.db.ExecContext(ctx,
		"INSERT OR IGNORE INTO tab_entities (tab_id, entity_id) VALUES (?, ?)", tabID, entityID)
	if err != nil {
		if constraintCode(err) == sqlite3.ErrConstraintForeignKey {
			return ErrTabNotFound
		}
		return fmt.Errorf("assigning %s to tab %s: %w", entityID, tabID, err)
	}
	return nil
}

// Unassign removes entityID from a tab. Removing an absent assignment is not an error.
func (r *SQLiteRepository) Unassign(ctx context.Context, tabID, entityID string) error {
	if _, err := r.db.ExecContext(ctx,
		"DELETE FROM tab_entities WHERE tab_id = ? AND entity_id = ?", tabID, entityID); err != nil {
		return fmt.Errorf("unassigning %s from tab %s: %w", entityID, tabID, err)
	}
	return nil
}

func (r *SQLiteRepository) query(ctx context.Context, query string, args ...any) ([]Tab, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying tabs: %w", err)
	}
	defer rows.Close()

	var tabs []Tab
	for rows.Next() {
		t, err := scanTab(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning tab row: %w", err)
		}
		tabs = append(tabs, *t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating tab rows: %w", err)
	}
	return tabs, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanTab(row scanner) (*Tab, error) {
	var t Tab
	var createdAt string
	if err := row.Scan(&t.ID, &t.ProfileID, &t.Name, &t.SortOrder, &createdAt); err != nil {
		return nil, err
	}
	if ts, err := time.Parse(time.RFC3339, createdAt); err == nil {
		t.CreatedAt = ts
	}
	return &t, nil
}

// mapConstraint turns SQLite constraint violations on tabs into package sentinels.
func mapConstraint(err error) error {
	switch constraintCode(err) {
	case sqlite3.ErrConstraintUnique, sqlite3.ErrConstraintPrimaryKey:
		return fmt.Errorf("%w: %w", ErrDuplicateName, err)
	case sqlite3.ErrConstraintForeignKey:
		return fmt.Errorf("%w: %w", ErrProfileNotFound, err)
	default:
		return err
	}
}

func constraintCode(err error) sqlite3.ErrNoExtended {
	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) {
		return sqliteErr.ExtendedCode
	}
	return 0
}
