package application

import (
	"time"

	"github.com/example/family-planner/internal/prefs"
)

// Principal represents the authenticated family member invoking a service method.
type Principal struct {
	MemberID string
	IsParent bool
}

// MemberInput captures caller provided member attributes. Password is only
// consulted on create, or on update when non-empty.
type MemberInput struct {
	Email       string
	DisplayName string
	Password    string
	IsParent    bool
	TimeZone    string
}

// Member represents a family member account exposed by the application services.
type Member struct {
	ID          string
	Email       string
	DisplayName string
	IsParent    bool
	TimeZone    string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// CreateMemberParams wraps the data required to create a member.
type CreateMemberParams struct {
	Principal Principal
	Input     MemberInput
}

// UpdateMemberParams wraps the data required to update an existing member.
type UpdateMemberParams struct {
	Principal Principal
	MemberID  string
	Input     MemberInput
}

// EventStatus identifies the lifecycle state of a family event.
type EventStatus string

const (
	// EventStatusConfirmed marks an event that is going ahead.
	EventStatusConfirmed EventStatus = "confirmed"
	// EventStatusPending marks a tentatively held slot, typically accepted from a suggestion.
	EventStatusPending EventStatus = "pending"
)

// EventInput captures caller provided event fields. An empty participant list
// means the event involves the whole family.
type EventInput struct {
	Title          string
	Start          time.Time
	End            time.Time
	ParticipantIDs []string
	Status         EventStatus
	Notes          *string
	Location       *string
	SuggestionID   *string
}

// Event represents a persisted family event.
type Event struct {
	ID             string
	Title          string
	Start          time.Time
	End            time.Time
	CreatorID      string
	ParticipantIDs []string
	Status         EventStatus
	Notes          *string
	Location       *string
	SuggestionID   *string
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// ConflictWarning describes an overlap between events that share a participant,
// or between an event and a whole-family event. Warnings are advisory; the
// write still goes through.
type ConflictWarning struct {
	EventID       string
	WithEventID   string
	ParticipantID string
}

// CreateEventParams wraps the data required to create an event.
type CreateEventParams struct {
	Principal Principal
	Input     EventInput
}

// UpdateEventParams wraps the data required to update an existing event.
type UpdateEventParams struct {
	Principal Principal
	EventID   string
	Input     EventInput
}

// ListPeriod identifies the range preset requested for event listings.
type ListPeriod string

const (
	// ListPeriodNone indicates no preset; caller supplied explicit bounds.
	ListPeriodNone ListPeriod = ""
	// ListPeriodDay constrains results to a single day.
	ListPeriodDay ListPeriod = "day"
	// ListPeriodWeek constrains results to the Monday-start week containing the reference time.
	ListPeriodWeek ListPeriod = "week"
	// ListPeriodMonth constrains results to the month containing the reference time.
	ListPeriodMonth ListPeriod = "month"
)

// ListEventsParams wraps the data required to list events.
type ListEventsParams struct {
	Principal       Principal
	ParticipantIDs  []string
	Statuses        []EventStatus
	StartsAfter     *time.Time
	EndsBefore      *time.Time
	Period          ListPeriod
	PeriodReference time.Time
}

// MemberCredentials models the authentication attributes persisted for a member.
type MemberCredentials struct {
	Member       Member
	PasswordHash string
}

// Session represents an authenticated session issued to a member.
type Session struct {
	ID          string
	MemberID    string
	Token       string
	Fingerprint string
	ExpiresAt   time.Time
	CreatedAt   time.Time
	UpdatedAt   time.Time
	RevokedAt   *time.Time
}

// AuthenticateParams captures the data required to authenticate a member.
type AuthenticateParams struct {
	Email       string
	Password    string
	Fingerprint string
}

// AuthenticateResult captures the outcome of a successful authentication attempt.
type AuthenticateResult struct {
	Member  Member
	Session Session
}

// RefreshSessionParams captures the data required to refresh an existing session.
type RefreshSessionParams struct {
	Token       string
	Fingerprint string
}

// RefreshSessionResult captures the outcome of rotating a session token.
type RefreshSessionResult struct {
	Session Session
}

// Preference is one stored scheduling preference document. MemberID is empty
// for the shared group document.
type Preference struct {
	MemberID  string
	Document  prefs.Record
	CreatedAt time.Time
	UpdatedAt time.Time
}

// SaveMemberPreferenceParams wraps the data required to save a member's preference document.
type SaveMemberPreferenceParams struct {
	Principal Principal
	MemberID  string
	Document  prefs.Record
}

// SaveGroupPreferenceParams wraps the data required to save the shared group preference document.
type SaveGroupPreferenceParams struct {
	Principal Principal
	Document  prefs.Record
}
