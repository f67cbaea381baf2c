package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/example/family-planner/internal/persistence"
)

// PreferenceRepository implements persistence.PreferenceRepository using
// SQLite. Documents are stored as opaque JSON text.
type PreferenceRepository struct {
	pool   *ConnectionPool
	helper *QueryHelper
	mapper *ErrorMapper
}

// NewPreferenceRepository creates a new SQLite preference repository.
func NewPreferenceRepository(pool *ConnectionPool) *PreferenceRepository {
	return &PreferenceRepository{
		pool:   pool,
		helper: NewQueryHelper(pool),
		mapper: NewErrorMapper(),
	}
}

// SavePreference inserts or replaces the preference document for a member
// (or the group document under GroupPreferenceScope).
func (r *PreferenceRepository) SavePreference(ctx context.Context, pref persistence.Preference) (persistence.Preference, error) {
	if len(pref.Document) == 0 {
		return persistence.Preference{}, persistence.ErrConstraintViolation
	}

	now := time.Now().UTC()
	pref.UpdatedAt = now
	if pref.CreatedAt.IsZero() {
		pref.CreatedAt = now
	}

	query := `
		INSERT INTO preferences (member_id, document, created_at, updated_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(member_id) DO UPDATE SET document = excluded.document, updated_at = excluded.updated_at
	`
	_, err := r.helper.Exec(ctx, query,
		pref.MemberID,
		string(pref.Document),
		pref.CreatedAt.Format(time.RFC3339),
		pref.UpdatedAt.Format(time.RFC3339),
	)
	if err != nil {
		return persistence.Preference{}, r.mapper.MapError(err)
	}
	return r.GetPreference(ctx, pref.MemberID)
}

// GetPreference retrieves the stored preference document for a member.
func (r *PreferenceRepository) GetPreference(ctx context.Context, memberID string) (persistence.Preference, error) {
	row := r.helper.QueryRow(ctx,
		`SELECT member_id, document, created_at, updated_at FROM preferences WHERE member_id = ?`, memberID)
	pref, err := scanPreference(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return persistence.Preference{}, persistence.ErrNotFound
		}
		return persistence.Preference{}, r.mapper.MapError(err)
	}
	return pref, nil
}

// ListPreferences returns every stored preference document, group scope
// included.
func (r *PreferenceRepository) ListPreferences(ctx context.Context) ([]persistence.Preference, error) {
	rows, err := r.helper.Query(ctx,
		`SELECT member_id, document, created_at, updated_at FROM preferences ORDER BY member_id ASC`)
	if err != nil {
		return nil, r.mapper.MapError(err)
	}
	defer rows.Close()

	var prefs []persistence.Preference
	for rows.Next() {
		pref, err := scanPreference(rows)
		if err != nil {
			return nil, r.mapper.MapError(err)
		}
		prefs = append(prefs, pref)
	}
	if err := rows.Err(); err != nil {
		return nil, r.mapper.MapError(err)
	}
	return prefs, nil
}

// DeletePreference removes the stored document for a member.
func (r *PreferenceRepository) DeletePreference(ctx context.Context, memberID string) error {
	result, err := r.helper.Exec(ctx, `DELETE FROM preferences WHERE member_id = ?`, memberID)
	if err != nil {
		return r.mapper.MapError(err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if affected == 0 {
		return persistence.ErrNotFound
	}
	return nil
}

func scanPreference(row rowScanner) (persistence.Preference, error) {
	var pref persistence.Preference
	var document, createdAt, updatedAt string
	if err := row.Scan(&pref.MemberID, &document, &createdAt, &updatedAt); err != nil {
		return persistence.Preference{}, err
	}
	pref.Document = []byte(document)

	var err error
	if pref.CreatedAt, err = time.Parse(time.RFC3339, createdAt); err != nil {
		return persistence.Preference{}, fmt.Errorf("failed to parse created_at: %w", err)
	}
	if pref.UpdatedAt, err = time.Parse(time.RFC3339, updatedAt); err != nil {
		return persistence.Preference{}, fmt.Errorf("failed to parse updated_at: %w", err)
	}
	return pref, nil
}
