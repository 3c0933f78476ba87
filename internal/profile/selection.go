package profile

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/nerrad567/gray-logic-remote/internal/infrastructure/database"
)

// SelectionRepository persists the entities chosen for each profile.
type SelectionRepository interface {
	ListSelected(ctx context.Context, profileID string) ([]SelectedEntity, error)
	Select(ctx context.Context, profileID, entityID string) (*SelectedEntity, error)
	Deselect(ctx context.Context, profileID, entityID string) error
	Reorder(ctx context.Context, profileID string, entityIDs []string) error
}

// SQLiteSelectionRepository implements SelectionRepository using SQLite.
type SQLiteSelectionRepository struct {
	db *sql.DB
}

// NewSQLiteSelectionRepository creates a new SQLite-backed selection repository.
func NewSQLiteSelectionRepository(db *sql.DB) *SQLiteSelectionRepository {
	return &SQLiteSelectionRepository{db: db}
}

// ListSelected returns a profile's selected entities in display order.
func (r *SQLiteSelectionRepository) ListSelected(ctx context.Context, profileID string) ([]SelectedEntity, error) {
	const query = `SELECT profile_id, entity_id, display_order FROM selected_entities
		WHERE profile_id = ? ORDER BY display_order, entity_id`
	rows, err := r.db.QueryContext(ctx, query, profileID)
	if err != nil {
		return nil, fmt.Errorf("querying selected entities: %w", err)
	}
	defer rows.Close()

	var out []SelectedEntity
	for rows.Next() {
		var s SelectedEntity
		if err := rows.Scan(&s.ProfileID, &s.EntityID, &s.DisplayOrder); err != nil {
			return nil, fmt.Errorf("scanning selected entity: %w", err)
		}
		out = append(out, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating selected entities: %w", err)
	}
	return out, nil
}

// Select appends entityID to the profile's selection with the next
// display order. Selecting an already-selected entity returns the
// existing row unchanged.
// Returns ErrProfileNotFound if the profile does not exist.
func (r *SQLiteSelectionRepository) Select(ctx context.Context, profileID, entityID string) (*SelectedEntity, error) {
	if err := ValidateEntityID(entityID); err != nil {
		return nil, err
	}

	var sel SelectedEntity
	err := database.InTx(ctx, r.db, func(tx *sql.Tx) error {
		var exists int
		if err := tx.QueryRowContext(ctx, "SELECT COUNT(*) FROM profiles WHERE id = ?", profileID).Scan(&exists); err != nil {
			return fmt.Errorf("checking profile %s: %w", profileID, err)
		}
		if exists == 0 {
			return ErrProfileNotFound
		}

		const insert = `INSERT OR IGNORE INTO selected_entities (profile_id, entity_id, display_order)
			SELECT ?, ?, COALESCE(MAX(display_order), -1) + 1 FROM selected_entities WHERE profile_id = ?`
		if _, err := tx.ExecContext(ctx, insert, profileID, entityID, profileID); err != nil {
			return fmt.Errorf("selecting %s: %w", entityID, err)
		}

		return tx.QueryRowContext(ctx,
			"SELECT profile_id, entity_id, display_order FROM selected_entities WHERE profile_id = ? AND entity_id = ?",
			profileID, entityID).Scan(&sel.ProfileID, &sel.EntityID, &sel.DisplayOrder)
	})
	if err != nil {
		return nil, err
	}
	return &sel, nil
}

// Deselect removes entityID from the selection. Removing an entity that
// is not selected is not an error.
func (r *SQLiteSelectionRepository) Deselect(ctx context.Context, profileID, entityID string) error {
	_, err := r.db.ExecContext(ctx,
		"DELETE FROM selected_entities WHERE profile_id = ? AND entity_id = ?", profileID, entityID)
	if err != nil {
		return fmt.Errorf("deselecting %s: %w", entityID, err)
	}
	return nil
}

// Reorder assigns display orders following entityIDs. Selected entities
// not listed keep their relative order after the listed ones.
func (r *SQLiteSelectionRepository) Reorder(ctx context.Context, profileID string, entityIDs []string) error {
	current, err := r.ListSelected(ctx, profileID)
	if err != nil {
		return err
	}

	listed := make(map[string]bool, len(entityIDs))
	order := make([]string, 0, len(current))
	selected := make(map[string]bool, len(current))
	for _, s := range current {
		selected[s.EntityID] = true
	}
	for _, id := range entityIDs {
		if selected[id] && !listed[id] {
			listed[id] = true
			order = append(order, id)
		}
	}
	for _, s := range current {
		if !listed[s.EntityID] {
			order = append(order, s.EntityID)
		}
	}

	return database.InTx(ctx, r.db, func(tx *sql.Tx) error {
		for i, id := range order {
			if _, err := tx.ExecContext(ctx,
				"UPDATE selected_entities SET display_order = ? WHERE profile_id = ? AND entity_id = ?",
				i, profileID, id); err != nil {
				return fmt.Errorf("reordering %s: %w", id, err)
			}
		}
		return nil
	})
}
