package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/example/family-planner/internal/persistence"
)

// EventRepository implements persistence.EventRepository using SQLite.
type EventRepository struct {
	pool   *ConnectionPool
	helper *QueryHelper
	mapper *ErrorMapper
}

// NewEventRepository creates a new SQLite event repository.
func NewEventRepository(pool *ConnectionPool) *EventRepository {
	return &EventRepository{
		pool:   pool,
		helper: NewQueryHelper(pool),
		mapper: NewErrorMapper(),
	}
}

const eventColumns = "id, title, starts_at, ends_at, creator_id, status, notes, location, suggestion_id, created_at, updated_at"

// CreateEvent inserts an event and its participant rows in one transaction.
func (r *EventRepository) CreateEvent(ctx context.Context, event persistence.Event) error {
	if event.ID == "" || event.CreatorID == "" {
		return persistence.ErrConstraintViolation
	}

	now := time.Now().UTC()
	if event.CreatedAt.IsZero() {
		event.CreatedAt = now
	}
	event.UpdatedAt = event.CreatedAt
	participants := uniqueStrings(event.Participants)

	return r.pool.WithTransaction(ctx, func(tx *sql.Tx) error {
		query := `
			INSERT INTO events (` + eventColumns + `)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		`
		_, err := r.helper.ExecTx(tx, query,
			event.ID,
			event.Title,
			event.Start.UTC().Format(time.RFC3339),
			event.End.UTC().Format(time.RFC3339),
			event.CreatorID,
			event.Status,
			nullableString(event.Notes),
			nullableString(event.Location),
			nullableString(event.SuggestionID),
			event.CreatedAt.Format(time.RFC3339),
			event.UpdatedAt.Format(time.RFC3339),
		)
		if err != nil {
			return r.mapper.MapError(err)
		}
		return r.insertParticipants(tx, event.ID, participants)
	})
}

// UpdateEvent rewrites an event and replaces its participant rows. Creator
// and creation timestamp are immutable.
func (r *EventRepository) UpdateEvent(ctx context.Context, event persistence.Event) error {
	if event.ID == "" {
		return persistence.ErrConstraintViolation
	}

	event.UpdatedAt = time.Now().UTC()
	participants := uniqueStrings(event.Participants)

	return r.pool.WithTransaction(ctx, func(tx *sql.Tx) error {
		query := `
			UPDATE events
			SET title = ?, starts_at = ?, ends_at = ?, status = ?, notes = ?, location = ?, suggestion_id = ?, updated_at = ?
			WHERE id = ?
		`
		result, err := r.helper.ExecTx(tx, query,
			event.Title,
			event.Start.UTC().Format(time.RFC3339),
			event.End.UTC().Format(time.RFC3339),
			event.Status,
			nullableString(event.Notes),
			nullableString(event.Location),
			nullableString(event.SuggestionID),
			event.UpdatedAt.Format(time.RFC3339),
			event.ID,
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

		if _, err := r.helper.ExecTx(tx, `DELETE FROM event_participants WHERE event_id = ?`, event.ID); err != nil {
			return r.mapper.MapError(err)
		}
		return r.insertParticipants(tx, event.ID, participants)
	})
}

// GetEvent retrieves an event with its participants.
func (r *EventRepository) GetEvent(ctx context.Context, id string) (persistence.Event, error) {
	if id == "" {
		return persistence.Event{}, persistence.ErrNotFound
	}

	row := r.helper.QueryRow(ctx, `SELECT `+eventColumns+` FROM events WHERE id = ?`, id)
	event, err := scanEvent(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return persistence.Event{}, persistence.ErrNotFound
		}
		return persistence.Event{}, r.mapper.MapError(err)
	}

	if event.Participants, err = r.loadParticipants(ctx, id); err != nil {
		return persistence.Event{}, err
	}
	return event, nil
}

// ListEvents returns events matching the filter ordered by start time.
func (r *EventRepository) ListEvents(ctx context.Context, filter persistence.EventFilter) ([]persistence.Event, error) {
	var (
		conditions []string
		args       []any
	)

	if filter.StartsAfter != nil {
		conditions = append(conditions, "e.ends_at > ?")
		args = append(args, filter.StartsAfter.UTC().Format(time.RFC3339))
	}
	if filter.EndsBefore != nil {
		conditions = append(conditions, "e.starts_at < ?")
		args = append(args, filter.EndsBefore.UTC().Format(time.RFC3339))
	}
	if len(filter.Statuses) > 0 {
		conditions = append(conditions, "e.status IN ("+placeholders(len(filter.Statuses))+")")
		for _, status := range filter.Statuses {
			args = append(args, status)
		}
	}
	if len(filter.ParticipantIDs) > 0 {
		conditions = append(conditions, `EXISTS (
			SELECT 1 FROM event_participants ep
			WHERE ep.event_id = e.id AND ep.member_id IN (`+placeholders(len(filter.ParticipantIDs))+`)
		)`)
		for _, id := range filter.ParticipantIDs {
			args = append(args, id)
		}
	}

	query := `SELECT ` + prefixColumns("e", eventColumns) + ` FROM events e`
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	query += " ORDER BY e.starts_at ASC, e.id ASC"

	rows, err := r.helper.Query(ctx, query, args...)
	if err != nil {
		return nil, r.mapper.MapError(err)
	}
	defer rows.Close()

	var events []persistence.Event
	for rows.Next() {
		event, err := scanEvent(rows)
		if err != nil {
			return nil, r.mapper.MapError(err)
		}
		events = append(events, event)
	}
	if err := rows.Err(); err != nil {
		return nil, r.mapper.MapError(err)
	}

	for i := range events {
		if events[i].Participants, err = r.loadParticipants(ctx, events[i].ID); err != nil {
			return nil, err
		}
	}
	return events, nil
}

// DeleteEvent removes an event; participant rows cascade.
func (r *EventRepository) DeleteEvent(ctx context.Context, id string) error {
	if id == "" {
		return persistence.ErrNotFound
	}

	result, err := r.helper.Exec(ctx, `DELETE FROM events WHERE id = ?`, id)
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

func (r *EventRepository) insertParticipants(tx *sql.Tx, eventID string, participants []string) error {
	for _, memberID := range participants {
		if _, err := r.helper.ExecTx(tx,
			`INSERT INTO event_participants (event_id, member_id) VALUES (?, ?)`,
			eventID, memberID,
		); err != nil {
			return r.mapper.MapError(err)
		}
	}
	return nil
}

func (r *EventRepository) loadParticipants(ctx context.Context, eventID string) ([]string, error) {
	rows, err := r.helper.Query(ctx,
		`SELECT member_id FROM event_participants WHERE event_id = ?`, eventID)
	if err != nil {
		return nil, r.mapper.MapError(err)
	}
	defer rows.Close()

	var participants []string
	for rows.Next() {
		var memberID string
		if err := rows.Scan(&memberID); err != nil {
			return nil, r.mapper.MapError(err)
		}
		participants = append(participants, memberID)
	}
	if err := rows.Err(); err != nil {
		return nil, r.mapper.MapError(err)
	}
	sort.Strings(participants)
	return participants, nil
}

func scanEvent(row rowScanner) (persistence.Event, error) {
	var event persistence.Event
	var startsAt, endsAt, createdAt, updatedAt string
	var notes, location, suggestionID sql.NullString

	err := row.Scan(
		&event.ID,
		&event.Title,
		&startsAt,
		&endsAt,
		&event.CreatorID,
		&event.Status,
		&notes,
		&location,
		&suggestionID,
		&createdAt,
		&updatedAt,
	)
	if err != nil {
		return persistence.Event{}, err
	}

	if event.Start, err = time.Parse(time.RFC3339, startsAt); err != nil {
		return persistence.Event{}, fmt.Errorf("failed to parse starts_at: %w", err)
	}
	if event.End, err = time.Parse(time.RFC3339, endsAt); err != nil {
		return persistence.Event{}, fmt.Errorf("failed to parse ends_at: %w", err)
	}
	if event.CreatedAt, err = time.Parse(time.RFC3339, createdAt); err != nil {
		return persistence.Event{}, fmt.Errorf("failed to parse created_at: %w", err)
	}
	if event.UpdatedAt, err = time.Parse(time.RFC3339, updatedAt); err != nil {
		return persistence.Event{}, fmt.Errorf("failed to parse updated_at: %w", err)
	}
	event.Notes = stringPtrFromNull(notes)
	event.Location = stringPtrFromNull(location)
	event.SuggestionID = stringPtrFromNull(suggestionID)
	return event, nil
}

func nullableString(value *string) sql.NullString {
	if value == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *value, Valid: true}
}

func stringPtrFromNull(value sql.NullString) *string {
	if !value.Valid {
		return nil
	}
	copied := value.String
	return &copied
}

func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?, ", n), ", ")
}

func prefixColumns(alias, columns string) string {
	parts := strings.Split(columns, ", ")
	for i, part := range parts {
		parts[i] = alias + "." + part
	}
	return strings.Join(parts, ", ")
}

func uniqueStrings(values []string) []string {
	seen := make(map[string]struct{}, len(values))
	result := make([]string, 0, len(values))
	for _, value := range values {
		if _, ok := seen[value]; ok {
			continue
		}
		seen[value] = struct{}{}
		result = append(result, value)
	}
	return result
}
