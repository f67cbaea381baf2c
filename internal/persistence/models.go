package persistence

import "time"

// Member represents a family member account.
type Member struct {
	ID           string
	Email        string
	DisplayName  string
	PasswordHash string
	IsParent     bool
	TimeZone     string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Event statuses. Pending events still block the shared calendar so the
// suggestion engine never proposes a slot under a tentative plan.
const (
	EventStatusConfirmed = "confirmed"
	EventStatusPending   = "pending"
)

// Event represents a calendar entry stored in persistence.
type Event struct {
	ID           string
	Title        string
	Start        time.Time
	End          time.Time
	CreatorID    string
	Status       string
	Notes        *string
	Location     *string
	Participants []string
	SuggestionID *string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// GroupPreferenceScope is the member ID under which the group-wide
// preference document is stored.
const GroupPreferenceScope = ""

// Preference holds one preference document, either for a single member or,
// under GroupPreferenceScope, for the whole group. The document is the raw
// JSON preference record; interpretation happens in the application layer.
type Preference struct {
	MemberID  string
	Document  []byte
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Session represents an authentication session persisted for a member.
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
