package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/example/family-planner/internal/persistence"
)

// MemberRepository implements persistence.MemberRepository using SQLite.
type MemberRepository struct {
	pool   *ConnectionPool
	helper *QueryHelper
	mapper *ErrorMapper
}

// NewMemberRepository creates a new SQLite member repository.
func NewMemberRepository(pool *ConnectionPool) *MemberRepository {
	return &MemberRepository{
		pool:   pool,
		helper: NewQueryHelper(pool),
		mapper: NewErrorMapper(),
	}
}

const memberColumns = "id, email, display_name, password_hash, is_parent, time_zone, created_at, updated_at"

// CreateMember inserts a new member.
func (r *MemberRepository) CreateMember(ctx context.Context, member persistence.Member) error {
	if member.ID == "" || member.PasswordHash == "" {
		return persistence.ErrConstraintViolation
	}

	now := time.Now().UTC()
	if member.CreatedAt.IsZero() {
		member.CreatedAt = now
	}
	member.UpdatedAt = member.CreatedAt

	query := `
		INSERT INTO members (` + memberColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`
	_, err := r.helper.Exec(ctx, query,
		member.ID,
		normalizeEmail(member.Email),
		member.DisplayName,
		member.PasswordHash,
		member.IsParent,
		member.TimeZone,
		member.CreatedAt.Format(time.RFC3339),
		member.UpdatedAt.Format(time.RFC3339),
	)
	return r.mapper.MapError(err)
}

// UpdateMember updates an existing member.
func (r *MemberRepository) UpdateMember(ctx context.Context, member persistence.Member) error {
	if member.ID == "" || member.PasswordHash == "" {
		return persistence.ErrConstraintViolation
	}

	member.UpdatedAt = time.Now().UTC()

	query := `
		UPDATE members
		SET email = ?, display_name = ?, password_hash = ?, is_parent = ?, time_zone = ?, updated_at = ?
		WHERE id = ?
	`
	result, err := r.helper.Exec(ctx, query,
		normalizeEmail(member.Email),
		member.DisplayName,
		member.PasswordHash,
		member.IsParent,
		member.TimeZone,
		member.UpdatedAt.Format(time.RFC3339),
		member.ID,
	)
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

// GetMember retrieves a member by ID.
func (r *MemberRepository) GetMember(ctx context.Context, id string) (persistence.Member, error) {
	if id == "" {
		return persistence.Member{}, persistence.ErrNotFound
	}
	row := r.helper.QueryRow(ctx, `SELECT `+memberColumns+` FROM members WHERE id = ?`, id)
	return scanMember(row)
}

// GetMemberByEmail retrieves a member by email address.
func (r *MemberRepository) GetMemberByEmail(ctx context.Context, email string) (persistence.Member, error) {
	normalized := normalizeEmail(email)
	if normalized == "" {
		return persistence.Member{}, persistence.ErrNotFound
	}
	row := r.helper.QueryRow(ctx, `SELECT `+memberColumns+` FROM members WHERE email = ?`, normalized)
	return scanMember(row)
}

// ListMembers returns all members ordered by creation timestamp then ID.
func (r *MemberRepository) ListMembers(ctx context.Context) ([]persistence.Member, error) {
	rows, err := r.helper.Query(ctx, `SELECT `+memberColumns+` FROM members ORDER BY created_at ASC, id ASC`)
	if err != nil {
		return nil, r.mapper.MapError(err)
	}
	defer rows.Close()

	var members []persistence.Member
	for rows.Next() {
		member, err := scanMemberRow(rows)
		if err != nil {
			return nil, err
		}
		members = append(members, member)
	}
	if err := rows.Err(); err != nil {
		return nil, r.mapper.MapError(err)
	}
	return members, nil
}

// DeleteMember removes a member, detaching them from events they participate
// in. Members that created events cannot be removed.
func (r *MemberRepository) DeleteMember(ctx context.Context, id string) error {
	if id == "" {
		return persistence.ErrNotFound
	}

	return r.pool.WithTransaction(ctx, func(tx *sql.Tx) error {
		var created int
		if err := r.helper.QueryRowTx(tx, `SELECT COUNT(*) FROM events WHERE creator_id = ?`, id).Scan(&created); err != nil {
			return r.mapper.MapError(err)
		}
		if created > 0 {
			return persistence.ErrForeignKeyViolation
		}

		if _, err := r.helper.ExecTx(tx, `DELETE FROM event_participants WHERE member_id = ?`, id); err != nil {
			return r.mapper.MapError(err)
		}
		if _, err := r.helper.ExecTx(tx, `DELETE FROM sessions WHERE member_id = ?`, id); err != nil {
			return r.mapper.MapError(err)
		}
		if _, err := r.helper.ExecTx(tx, `DELETE FROM preferences WHERE member_id = ?`, id); err != nil {
			return r.mapper.MapError(err)
		}

		result, err := r.helper.ExecTx(tx, `DELETE FROM members WHERE id = ?`, id)
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
	})
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanMember(row rowScanner) (persistence.Member, error) {
	member, err := scanMemberRow(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return persistence.Member{}, persistence.ErrNotFound
		}
		return persistence.Member{}, err
	}
	return member, nil
}

func scanMemberRow(row rowScanner) (persistence.Member, error) {
	var member persistence.Member
	var createdAt, updatedAt string
	err := row.Scan(
		&member.ID,
		&member.Email,
		&member.DisplayName,
		&member.PasswordHash,
		&member.IsParent,
		&member.TimeZone,
		&createdAt,
		&updatedAt,
	)
	if err != nil {
		return persistence.Member{}, err
	}
	if member.CreatedAt, err = time.Parse(time.RFC3339, createdAt); err != nil {
		return persistence.Member{}, fmt.Errorf("failed to parse created_at: %w", err)
	}
	if member.UpdatedAt, err = time.Parse(time.RFC3339, updatedAt); err != nil {
		return persistence.Member{}, fmt.Errorf("failed to parse updated_at: %w", err)
	}
	return member, nil
}

// normalizeEmail normalizes email addresses for consistent storage and lookup.
func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
