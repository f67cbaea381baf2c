package persistence

import (
	"context"
	"time"
)

// MemberRepository exposes CRUD operations for family members.
type MemberRepository interface {
	CreateMember(ctx context.Context, member Member) error
	UpdateMember(ctx context.Context, member Member) error
	GetMember(ctx context.Context, id string) (Member, error)
	GetMemberByEmail(ctx context.Context, email string) (Member, error)
	ListMembers(ctx context.Context) ([]Member, error)
	DeleteMember(ctx context.Context, id string) error
}

// EventFilter narrows event queries. Zero fields mean no restriction.
type EventFilter struct {
	ParticipantIDs []string
	StartsAfter    *time.Time
	EndsBefore     *time.Time
	Statuses       []string
}

// EventRepository stores calendar events and their participants.
type EventRepository interface {
	CreateEvent(ctx context.Context, event Event) error
	UpdateEvent(ctx context.Context, event Event) error
	GetEvent(ctx context.Context, id string) (Event, error)
	ListEvents(ctx context.Context, filter EventFilter) ([]Event, error)
	DeleteEvent(ctx context.Context, id string) error
}

// PreferenceRepository stores preference documents keyed by member, with the
// group-wide document under GroupPreferenceScope.
type PreferenceRepository interface {
	SavePreference(ctx context.Context, pref Preference) (Preference, error)
	GetPreference(ctx context.Context, memberID string) (Preference, error)
	ListPreferences(ctx context.Context) ([]Preference, error)
	DeletePreference(ctx context.Context, memberID string) error
}

// SessionRepository stores authentication session state.
type SessionRepository interface {
	CreateSession(ctx context.Context, session Session) (Session, error)
	GetSession(ctx context.Context, token string) (Session, error)
	RevokeSession(ctx context.Context, token string, revokedAt time.Time) (Session, error)
	DeleteExpiredSessions(ctx context.Context, reference time.Time) error
}
