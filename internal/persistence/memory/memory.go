// Package memory provides a map-backed persistence implementation used by
// tests and local development. It mirrors the SQLite repositories' semantics,
// including uniqueness and referential checks.
package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/example/family-planner/internal/persistence"
)

// Storage implements every persistence repository interface in memory.
type Storage struct {
	mu          sync.RWMutex
	members     map[string]persistence.Member
	events      map[string]persistence.Event
	preferences map[string]persistence.Preference
	sessions    map[string]persistence.Session // keyed by token
}

// NewStorage returns an empty in-memory storage.
func NewStorage() *Storage {
	return &Storage{
		members:     make(map[string]persistence.Member),
		events:      make(map[string]persistence.Event),
		preferences: make(map[string]persistence.Preference),
		sessions:    make(map[string]persistence.Session),
	}
}

// --- MemberRepository implementation ---

// CreateMember stores a new member.
func (s *Storage) CreateMember(ctx context.Context, member persistence.Member) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.members[member.ID]; ok {
		return persistence.ErrDuplicate
	}
	if err := s.ensureUniqueEmailLocked(member.ID, member.Email); err != nil {
		return err
	}
	s.members[member.ID] = cloneMember(member)
	return nil
}

// UpdateMember updates an existing member.
func (s *Storage) UpdateMember(ctx context.Context, member persistence.Member) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.members[member.ID]; !ok {
		return persistence.ErrNotFound
	}
	if err := s.ensureUniqueEmailLocked(member.ID, member.Email); err != nil {
		return err
	}
	s.members[member.ID] = cloneMember(member)
	return nil
}

// GetMember retrieves a member by ID.
func (s *Storage) GetMember(ctx context.Context, id string) (persistence.Member, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	member, ok := s.members[id]
	if !ok {
		return persistence.Member{}, persistence.ErrNotFound
	}
	return cloneMember(member), nil
}

// GetMemberByEmail retrieves a member by email address.
func (s *Storage) GetMemberByEmail(ctx context.Context, email string) (persistence.Member, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	lower := strings.ToLower(strings.TrimSpace(email))
	for _, member := range s.members {
		if strings.ToLower(member.Email) == lower {
			return cloneMember(member), nil
		}
	}
	return persistence.Member{}, persistence.ErrNotFound
}

// ListMembers returns all members ordered by CreatedAt then ID.
func (s *Storage) ListMembers(ctx context.Context) ([]persistence.Member, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	members := make([]persistence.Member, 0, len(s.members))
	for _, member := range s.members {
		members = append(members, cloneMember(member))
	}
	sort.Slice(members, func(i, j int) bool {
		if members[i].CreatedAt.Equal(members[j].CreatedAt) {
			return members[i].ID < members[j].ID
		}
		return members[i].CreatedAt.Before(members[j].CreatedAt)
	})
	return members, nil
}

// DeleteMember removes a member, detaching them from events they participate
// in. Members with created events cannot be removed.
func (s *Storage) DeleteMember(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.members[id]; !ok {
		return persistence.ErrNotFound
	}
	for _, event := range s.events {
		if event.CreatorID == id {
			return persistence.ErrForeignKeyViolation
		}
	}

	delete(s.members, id)
	delete(s.preferences, id)

	for eventID, event := range s.events {
		trimmed := removeString(event.Participants, id)
		if len(trimmed) != len(event.Participants) {
			event.Participants = trimmed
			s.events[eventID] = event
		}
	}
	for token, session := range s.sessions {
		if session.MemberID == id {
			delete(s.sessions, token)
		}
	}
	return nil
}

func (s *Storage) ensureUniqueEmailLocked(id, email string) error {
	lower := strings.ToLower(strings.TrimSpace(email))
	for existingID, member := range s.members {
		if existingID == id {
			continue
		}
		if strings.ToLower(member.Email) == lower {
			return persistence.ErrDuplicate
		}
	}
	return nil
}

// --- EventRepository implementation ---

// CreateEvent stores a new event with its participants.
func (s *Storage) CreateEvent(ctx context.Context, event persistence.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.events[event.ID]; ok {
		return persistence.ErrDuplicate
	}
	if _, ok := s.members[event.CreatorID]; !ok {
		return persistence.ErrForeignKeyViolation
	}
	for _, participant := range event.Participants {
		if _, ok := s.members[participant]; !ok {
			return persistence.ErrForeignKeyViolation
		}
	}

	event.Participants = uniqueStrings(event.Participants)
	s.events[event.ID] = cloneEvent(event)
	return nil
}

// UpdateEvent updates an existing event and its participants. Creator and
// creation timestamp are immutable.
func (s *Storage) UpdateEvent(ctx context.Context, event persistence.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.events[event.ID]
	if !ok {
		return persistence.ErrNotFound
	}
	for _, participant := range event.Participants {
		if _, ok := s.members[participant]; !ok {
			return persistence.ErrForeignKeyViolation
		}
	}

	event.Participants = uniqueStrings(event.Participants)
	event.CreatorID = existing.CreatorID
	event.CreatedAt = existing.CreatedAt
	s.events[event.ID] = cloneEvent(event)
	return nil
}

// GetEvent retrieves an event by ID.
func (s *Storage) GetEvent(ctx context.Context, id string) (persistence.Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	event, ok := s.events[id]
	if !ok {
		return persistence.Event{}, persistence.ErrNotFound
	}
	return cloneEvent(event), nil
}

// ListEvents returns events matching the filter ordered by start time.
func (s *Storage) ListEvents(ctx context.Context, filter persistence.EventFilter) ([]persistence.Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	events := make([]persistence.Event, 0)
	for _, event := range s.events {
		if !matchesEventFilter(event, filter) {
			continue
		}
		events = append(events, cloneEvent(event))
	}
	sort.Slice(events, func(i, j int) bool {
		if events[i].Start.Equal(events[j].Start) {
			return events[i].ID < events[j].ID
		}
		return events[i].Start.Before(events[j].Start)
	})
	return events, nil
}

// DeleteEvent removes an event by ID.
func (s *Storage) DeleteEvent(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.events[id]; !ok {
		return persistence.ErrNotFound
	}
	delete(s.events, id)
	return nil
}

// --- PreferenceRepository implementation ---

// SavePreference inserts or replaces a preference document.
func (s *Storage) SavePreference(ctx context.Context, pref persistence.Preference) (persistence.Preference, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(pref.Document) == 0 {
		return persistence.Preference{}, persistence.ErrConstraintViolation
	}

	now := time.Now().UTC()
	if existing, ok := s.preferences[pref.MemberID]; ok {
		pref.CreatedAt = existing.CreatedAt
	} else if pref.CreatedAt.IsZero() {
		pref.CreatedAt = now
	}
	pref.UpdatedAt = now

	s.preferences[pref.MemberID] = clonePreference(pref)
	return clonePreference(pref), nil
}

// GetPreference retrieves the stored document for a member.
func (s *Storage) GetPreference(ctx context.Context, memberID string) (persistence.Preference, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	pref, ok := s.preferences[memberID]
	if !ok {
		return persistence.Preference{}, persistence.ErrNotFound
	}
	return clonePreference(pref), nil
}

// ListPreferences returns every stored document ordered by member ID.
func (s *Storage) ListPreferences(ctx context.Context) ([]persistence.Preference, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	prefs := make([]persistence.Preference, 0, len(s.preferences))
	for _, pref := range s.preferences {
		prefs = append(prefs, clonePreference(pref))
	}
	sort.Slice(prefs, func(i, j int) bool { return prefs[i].MemberID < prefs[j].MemberID })
	return prefs, nil
}

// DeletePreference removes the stored document for a member.
func (s *Storage) DeletePreference(ctx context.Context, memberID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.preferences[memberID]; !ok {
		return persistence.ErrNotFound
	}
	delete(s.preferences, memberID)
	return nil
}

// --- SessionRepository implementation ---

// CreateSession stores a new session token.
func (s *Storage) CreateSession(ctx context.Context, session persistence.Session) (persistence.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	token := strings.TrimSpace(session.Token)
	if session.ID == "" || session.MemberID == "" || token == "" {
		return persistence.Session{}, persistence.ErrConstraintViolation
	}
	if _, ok := s.sessions[token]; ok {
		return persistence.Session{}, persistence.ErrDuplicate
	}
	if _, ok := s.members[session.MemberID]; !ok {
		return persistence.Session{}, persistence.ErrForeignKeyViolation
	}

	now := time.Now().UTC()
	session.Token = token
	session.CreatedAt = now
	session.UpdatedAt = now
	s.sessions[token] = cloneSession(session)
	return cloneSession(session), nil
}

// GetSession retrieves a session by its token value.
func (s *Storage) GetSession(ctx context.Context, token string) (persistence.Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	session, ok := s.sessions[strings.TrimSpace(token)]
	if !ok {
		return persistence.Session{}, persistence.ErrNotFound
	}
	return cloneSession(session), nil
}

// RevokeSession marks a session revoked at the supplied instant.
func (s *Storage) RevokeSession(ctx context.Context, token string, revokedAt time.Time) (persistence.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := strings.TrimSpace(token)
	session, ok := s.sessions[key]
	if !ok {
		return persistence.Session{}, persistence.ErrNotFound
	}
	if session.RevokedAt == nil {
		at := revokedAt.UTC()
		session.RevokedAt = &at
		session.UpdatedAt = time.Now().UTC()
		s.sessions[key] = session
	}
	return cloneSession(session), nil
}

// DeleteExpiredSessions removes sessions whose expiry is at or before the
// reference instant.
func (s *Storage) DeleteExpiredSessions(ctx context.Context, reference time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for token, session := range s.sessions {
		if !session.ExpiresAt.After(reference) {
			delete(s.sessions, token)
		}
	}
	return nil
}

// --- Helpers ---

func cloneMember(member persistence.Member) persistence.Member {
	return member
}

func cloneEvent(event persistence.Event) persistence.Event {
	cloned := event
	cloned.Notes = copyStringPtr(event.Notes)
	cloned.Location = copyStringPtr(event.Location)
	cloned.SuggestionID = copyStringPtr(event.SuggestionID)
	cloned.Participants = append([]string(nil), event.Participants...)
	return cloned
}

func clonePreference(pref persistence.Preference) persistence.Preference {
	cloned := pref
	cloned.Document = append([]byte(nil), pref.Document...)
	return cloned
}

func cloneSession(session persistence.Session) persistence.Session {
	cloned := session
	if session.RevokedAt != nil {
		at := *session.RevokedAt
		cloned.RevokedAt = &at
	}
	return cloned
}

func copyStringPtr(value *string) *string {
	if value == nil {
		return nil
	}
	copied := *value
	return &copied
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

func removeString(values []string, target string) []string {
	result := make([]string, 0, len(values))
	for _, value := range values {
		if value == target {
			continue
		}
		result = append(result, value)
	}
	return result
}

func matchesEventFilter(event persistence.Event, filter persistence.EventFilter) bool {
	if filter.StartsAfter != nil && !event.End.After(*filter.StartsAfter) {
		return false
	}
	if filter.EndsBefore != nil && !event.Start.Before(*filter.EndsBefore) {
		return false
	}
	if len(filter.Statuses) > 0 && !containsString(filter.Statuses, event.Status) {
		return false
	}
	if len(filter.ParticipantIDs) > 0 && !intersects(event.Participants, filter.ParticipantIDs) {
		return false
	}
	return true
}

func containsString(values []string, target string) bool {
	for _, value := range values {
		if value == target {
			return true
		}
	}
	return false
}

func intersects(values, targets []string) bool {
	set := make(map[string]struct{}, len(values))
	for _, value := range values {
		set[value] = struct{}{}
	}
	for _, target := range targets {
		if _, ok := set[target]; ok {
			return true
		}
	}
	return false
}
