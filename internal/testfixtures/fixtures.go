package testfixtures

import (
	"encoding/json"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/example/family-planner/internal/application"
	"github.com/example/family-planner/internal/persistence"
	"github.com/example/family-planner/internal/prefs"
	"github.com/example/family-planner/internal/scheduler"
)

var (
	memberCounter     uint64
	eventCounter      uint64
	sessionCounter    uint64
	preferenceCounter uint64
)

var referenceTime = time.Date(2026, time.September, 1, 15, 4, 5, 0, time.UTC)

// ReferenceTime returns the canonical baseline timestamp used by fixtures.
func ReferenceTime() time.Time {
	return referenceTime
}

// ---------------------------- Member fixtures ----------------------------

// MemberFixture represents a deterministic family member record that can be
// materialised for application or persistence tests.
type MemberFixture struct {
	ID           string
	Email        string
	DisplayName  string
	PasswordHash string
	IsParent     bool
	TimeZone     string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// MemberOption configures the generated member fixture.
type MemberOption func(*MemberFixture)

// NewMemberFixture returns a deterministic member fixture with optional overrides.
func NewMemberFixture(opts ...MemberOption) MemberFixture {
	idx := atomic.AddUint64(&memberCounter, 1)
	id := fmt.Sprintf("member-%03d", idx)
	created := referenceTime.Add(time.Duration(idx) * time.Minute)
	fixture := MemberFixture{
		ID:           id,
		Email:        fmt.Sprintf("%s@example.com", id),
		DisplayName:  fmt.Sprintf("Member %03d", idx),
		PasswordHash: fmt.Sprintf("hash-%03d", idx),
		IsParent:     false,
		CreatedAt:    created,
		UpdatedAt:    created,
	}
	for _, opt := range opts {
		opt(&fixture)
	}
	return fixture
}

// WithMemberID overrides the generated member ID.
func WithMemberID(id string) MemberOption {
	return func(f *MemberFixture) {
		f.ID = id
	}
}

// WithMemberEmail overrides the generated email address.
func WithMemberEmail(email string) MemberOption {
	return func(f *MemberFixture) {
		f.Email = email
	}
}

// WithMemberDisplayName overrides the generated display name.
func WithMemberDisplayName(name string) MemberOption {
	return func(f *MemberFixture) {
		f.DisplayName = name
	}
}

// WithMemberPasswordHash overrides the generated password hash.
func WithMemberPasswordHash(hash string) MemberOption {
	return func(f *MemberFixture) {
		f.PasswordHash = hash
	}
}

// WithMemberParent sets the parent flag on the generated fixture.
func WithMemberParent(isParent bool) MemberOption {
	return func(f *MemberFixture) {
		f.IsParent = isParent
	}
}

// WithMemberTimeZone sets the IANA time zone on the fixture.
func WithMemberTimeZone(tz string) MemberOption {
	return func(f *MemberFixture) {
		f.TimeZone = tz
	}
}

// WithMemberTimestamps sets both created and updated timestamps on the fixture.
func WithMemberTimestamps(created, updated time.Time) MemberOption {
	return func(f *MemberFixture) {
		f.CreatedAt = created
		f.UpdatedAt = updated
	}
}

// Application returns the fixture as an application.Member value.
func (f MemberFixture) Application() application.Member {
	return application.Member{
		ID:          f.ID,
		Email:       f.Email,
		DisplayName: f.DisplayName,
		IsParent:    f.IsParent,
		TimeZone:    f.TimeZone,
		CreatedAt:   f.CreatedAt,
		UpdatedAt:   f.UpdatedAt,
	}
}

// Credentials returns the fixture as application.MemberCredentials.
func (f MemberFixture) Credentials() application.MemberCredentials {
	return application.MemberCredentials{
		Member:       f.Application(),
		PasswordHash: f.PasswordHash,
	}
}

// Principal returns an application.Principal derived from the fixture.
func (f MemberFixture) Principal() application.Principal {
	return application.Principal{MemberID: f.ID, IsParent: f.IsParent}
}

// Persistence returns the fixture as a persistence.Member value.
func (f MemberFixture) Persistence() persistence.Member {
	return persistence.Member{
		ID:           f.ID,
		Email:        f.Email,
		DisplayName:  f.DisplayName,
		PasswordHash: f.PasswordHash,
		IsParent:     f.IsParent,
		TimeZone:     f.TimeZone,
		CreatedAt:    f.CreatedAt,
		UpdatedAt:    f.UpdatedAt,
	}
}

// Input returns the fixture as an application.MemberInput.
func (f MemberFixture) Input() application.MemberInput {
	return application.MemberInput{
		Email:       f.Email,
		DisplayName: f.DisplayName,
		IsParent:    f.IsParent,
		TimeZone:    f.TimeZone,
	}
}

// ----------------------------- Event fixtures ----------------------------

// EventFixture represents a deterministic calendar event record.
type EventFixture struct {
	ID             string
	Title          string
	Start          time.Time
	End            time.Time
	CreatorID      string
	ParticipantIDs []string
	Status         application.EventStatus
	Notes          *string
	Location       *string
	SuggestionID   *string
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// EventOption configures the generated event fixture.
type EventOption func(*EventFixture)

// NewEventFixture returns a deterministic event fixture with optional overrides.
func NewEventFixture(opts ...EventOption) EventFixture {
	idx := atomic.AddUint64(&eventCounter, 1)
	id := fmt.Sprintf("event-%03d", idx)
	start := referenceTime.Add(time.Duration(idx) * time.Hour)
	end := start.Add(time.Hour)
	creator := fmt.Sprintf("member-%03d", idx)
	fixture := EventFixture{
		ID:             id,
		Title:          fmt.Sprintf("Event %03d", idx),
		Start:          start,
		End:            end,
		CreatorID:      creator,
		ParticipantIDs: []string{creator},
		Status:         application.EventStatusConfirmed,
		CreatedAt:      referenceTime,
		UpdatedAt:      referenceTime,
	}
	for _, opt := range opts {
		opt(&fixture)
	}
	return fixture
}

// WithEventID overrides the event ID.
func WithEventID(id string) EventOption {
	return func(f *EventFixture) {
		f.ID = id
	}
}

// WithEventTitle overrides the title.
func WithEventTitle(title string) EventOption {
	return func(f *EventFixture) {
		f.Title = title
	}
}

// WithEventCreator sets the creator ID.
func WithEventCreator(id string) EventOption {
	return func(f *EventFixture) {
		f.CreatorID = id
	}
}

// WithEventStartEnd sets the start and end times.
func WithEventStartEnd(start, end time.Time) EventOption {
	return func(f *EventFixture) {
		f.Start = start
		f.End = end
	}
}

// WithEventParticipants sets the participant IDs. Passing none marks the
// event as involving the whole family.
func WithEventParticipants(participants ...string) EventOption {
	return func(f *EventFixture) {
		f.ParticipantIDs = append([]string(nil), participants...)
	}
}

// WithEventStatus sets the lifecycle status.
func WithEventStatus(status application.EventStatus) EventOption {
	return func(f *EventFixture) {
		f.Status = status
	}
}

// WithEventNotes sets the notes field.
func WithEventNotes(notes string) EventOption {
	return func(f *EventFixture) {
		value := notes
		f.Notes = &value
	}
}

// WithEventLocation sets the location field.
func WithEventLocation(location string) EventOption {
	return func(f *EventFixture) {
		value := location
		f.Location = &value
	}
}

// WithEventSuggestionID records the engine slot the event was accepted from.
func WithEventSuggestionID(id string) EventOption {
	return func(f *EventFixture) {
		value := id
		f.SuggestionID = &value
	}
}

// WithEventTimestamps sets both created and updated timestamps.
func WithEventTimestamps(created, updated time.Time) EventOption {
	return func(f *EventFixture) {
		f.CreatedAt = created
		f.UpdatedAt = updated
	}
}

// Application returns the fixture as an application.Event value.
func (f EventFixture) Application() application.Event {
	return application.Event{
		ID:             f.ID,
		Title:          f.Title,
		Start:          f.Start,
		End:            f.End,
		CreatorID:      f.CreatorID,
		ParticipantIDs: append([]string(nil), f.ParticipantIDs...),
		Status:         f.Status,
		Notes:          copyStringPtr(f.Notes),
		Location:       copyStringPtr(f.Location),
		SuggestionID:   copyStringPtr(f.SuggestionID),
		CreatedAt:      f.CreatedAt,
		UpdatedAt:      f.UpdatedAt,
	}
}

// Persistence returns the fixture as a persistence.Event value.
func (f EventFixture) Persistence() persistence.Event {
	return persistence.Event{
		ID:           f.ID,
		Title:        f.Title,
		Start:        f.Start,
		End:          f.End,
		CreatorID:    f.CreatorID,
		Status:       string(f.Status),
		Notes:        copyStringPtr(f.Notes),
		Location:     copyStringPtr(f.Location),
		Participants: append([]string(nil), f.ParticipantIDs...),
		SuggestionID: copyStringPtr(f.SuggestionID),
		CreatedAt:    f.CreatedAt,
		UpdatedAt:    f.UpdatedAt,
	}
}

// Scheduler returns the fixture as a scheduler.Event for conflict detection.
func (f EventFixture) Scheduler() scheduler.Event {
	return scheduler.Event{
		ID:           f.ID,
		Participants: append([]string(nil), f.ParticipantIDs...),
		Start:        f.Start,
		End:          f.End,
	}
}

// Input returns the fixture as an application.EventInput.
func (f EventFixture) Input() application.EventInput {
	return application.EventInput{
		Title:          f.Title,
		Start:          f.Start,
		End:            f.End,
		ParticipantIDs: append([]string(nil), f.ParticipantIDs...),
		Status:         f.Status,
		Notes:          copyStringPtr(f.Notes),
		Location:       copyStringPtr(f.Location),
		SuggestionID:   copyStringPtr(f.SuggestionID),
	}
}

// ---------------------------- Session fixtures ---------------------------

// SessionFixture represents a deterministic authentication session.
type SessionFixture struct {
	ID          string
	MemberID    string
	Token       string
	Fingerprint string
	ExpiresAt   time.Time
	CreatedAt   time.Time
	UpdatedAt   time.Time
	RevokedAt   *time.Time
}

// SessionOption configures the generated session fixture.
type SessionOption func(*SessionFixture)

// NewSessionFixture returns a deterministic session fixture with optional overrides.
func NewSessionFixture(opts ...SessionOption) SessionFixture {
	idx := atomic.AddUint64(&sessionCounter, 1)
	id := fmt.Sprintf("session-%03d", idx)
	fixture := SessionFixture{
		ID:        id,
		MemberID:  fmt.Sprintf("member-%03d", idx),
		Token:     fmt.Sprintf("token-%03d", idx),
		ExpiresAt: referenceTime.Add(24 * time.Hour),
		CreatedAt: referenceTime,
		UpdatedAt: referenceTime,
	}
	for _, opt := range opts {
		opt(&fixture)
	}
	return fixture
}

// WithSessionID overrides the session ID.
func WithSessionID(id string) SessionOption {
	return func(f *SessionFixture) {
		f.ID = id
	}
}

// WithSessionMember sets the owning member ID.
func WithSessionMember(memberID string) SessionOption {
	return func(f *SessionFixture) {
		f.MemberID = memberID
	}
}

// WithSessionToken overrides the generated token.
func WithSessionToken(token string) SessionOption {
	return func(f *SessionFixture) {
		f.Token = token
	}
}

// WithSessionFingerprint sets the device fingerprint.
func WithSessionFingerprint(fingerprint string) SessionOption {
	return func(f *SessionFixture) {
		f.Fingerprint = fingerprint
	}
}

// WithSessionExpiry sets the expiry instant.
func WithSessionExpiry(expiresAt time.Time) SessionOption {
	return func(f *SessionFixture) {
		f.ExpiresAt = expiresAt
	}
}

// WithSessionRevokedAt marks the session as revoked at the given instant.
func WithSessionRevokedAt(revokedAt time.Time) SessionOption {
	return func(f *SessionFixture) {
		value := revokedAt
		f.RevokedAt = &value
	}
}

// Application returns the fixture as an application.Session value.
func (f SessionFixture) Application() application.Session {
	return application.Session{
		ID:          f.ID,
		MemberID:    f.MemberID,
		Token:       f.Token,
		Fingerprint: f.Fingerprint,
		ExpiresAt:   f.ExpiresAt,
		CreatedAt:   f.CreatedAt,
		UpdatedAt:   f.UpdatedAt,
		RevokedAt:   copyTimePtr(f.RevokedAt),
	}
}

// Persistence returns the fixture as a persistence.Session value.
func (f SessionFixture) Persistence() persistence.Session {
	return persistence.Session{
		ID:          f.ID,
		MemberID:    f.MemberID,
		Token:       f.Token,
		Fingerprint: f.Fingerprint,
		ExpiresAt:   f.ExpiresAt,
		CreatedAt:   f.CreatedAt,
		UpdatedAt:   f.UpdatedAt,
		RevokedAt:   copyTimePtr(f.RevokedAt),
	}
}

// -------------------------- Preference fixtures --------------------------

// PreferenceFixture represents a deterministic preference document. An empty
// MemberID denotes the shared group document.
type PreferenceFixture struct {
	MemberID  string
	Document  prefs.Record
	CreatedAt time.Time
	UpdatedAt time.Time
}

// PreferenceOption configures the generated preference fixture.
type PreferenceOption func(*PreferenceFixture)

// NewPreferenceFixture returns a deterministic preference fixture with
// optional overrides.
func NewPreferenceFixture(opts ...PreferenceOption) PreferenceFixture {
	idx := atomic.AddUint64(&preferenceCounter, 1)
	fixture := PreferenceFixture{
		MemberID:  fmt.Sprintf("member-%03d", idx),
		CreatedAt: referenceTime,
		UpdatedAt: referenceTime,
	}
	for _, opt := range opts {
		opt(&fixture)
	}
	return fixture
}

// WithPreferenceMember sets the owning member ID.
func WithPreferenceMember(memberID string) PreferenceOption {
	return func(f *PreferenceFixture) {
		f.MemberID = memberID
	}
}

// ForGroup scopes the fixture to the shared group document.
func ForGroup() PreferenceOption {
	return func(f *PreferenceFixture) {
		f.MemberID = persistence.GroupPreferenceScope
	}
}

// WithPreferenceDocument sets the preference record.
func WithPreferenceDocument(document prefs.Record) PreferenceOption {
	return func(f *PreferenceFixture) {
		f.Document = document
	}
}

// Application returns the fixture as an application.Preference value.
func (f PreferenceFixture) Application() application.Preference {
	return application.Preference{
		MemberID:  f.MemberID,
		Document:  f.Document,
		CreatedAt: f.CreatedAt,
		UpdatedAt: f.UpdatedAt,
	}
}

// Persistence returns the fixture as a persistence.Preference value with the
// document serialised to JSON.
func (f PreferenceFixture) Persistence() persistence.Preference {
	raw, err := json.Marshal(f.Document)
	if err != nil {
		panic(fmt.Sprintf("testfixtures: failed to marshal preference document: %v", err))
	}
	return persistence.Preference{
		MemberID:  f.MemberID,
		Document:  raw,
		CreatedAt: f.CreatedAt,
		UpdatedAt: f.UpdatedAt,
	}
}

func copyStringPtr(value *string) *string {
	if value == nil {
		return nil
	}
	copied := *value
	return &copied
}

func copyTimePtr(value *time.Time) *time.Time {
	if value == nil {
		return nil
	}
	copied := *value
	return &copied
}
