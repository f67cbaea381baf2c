package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/example/family-planner/internal/persistence"
)

func seedMember(t *testing.T, s *Storage, id, email string) {
	t.Helper()
	err := s.CreateMember(context.Background(), persistence.Member{
		ID:           id,
		Email:        email,
		DisplayName:  "Member " + id,
		PasswordHash: "hash",
		CreatedAt:    time.Now().UTC(),
	})
	if err != nil {
		t.Fatalf("CreateMember(%s) failed: %v", id, err)
	}
}

func TestStorageMembers(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	s := NewStorage()

	seedMember(t, s, "member-1", "alice@example.com")
	if err := s.CreateMember(ctx, persistence.Member{ID: "member-2", Email: "ALICE@example.com", PasswordHash: "hash"}); !errors.Is(err, persistence.ErrDuplicate) {
		t.Fatalf("expected ErrDuplicate, got %v", err)
	}

	fetched, err := s.GetMemberByEmail(ctx, "Alice@Example.Com")
	if err != nil || fetched.ID != "member-1" {
		t.Fatalf("GetMemberByEmail: %+v, %v", fetched, err)
	}

	if err := s.DeleteMember(ctx, "member-1"); err != nil {
		t.Fatalf("DeleteMember failed: %v", err)
	}
	if _, err := s.GetMember(ctx, "member-1"); !errors.Is(err, persistence.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestStorageEvents(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	s := NewStorage()
	seedMember(t, s, "member-1", "alice@example.com")
	seedMember(t, s, "member-2", "bob@example.com")

	base := time.Date(2026, 9, 7, 18, 0, 0, 0, time.UTC)
	event := persistence.Event{
		ID:           "event-1",
		Title:        "Dinner",
		Start:        base,
		End:          base.Add(time.Hour),
		CreatorID:    "member-1",
		Status:       persistence.EventStatusPending,
		Participants: []string{"member-1", "member-2", "member-1"},
	}
	if err := s.CreateEvent(ctx, event); err != nil {
		t.Fatalf("CreateEvent failed: %v", err)
	}

	fetched, err := s.GetEvent(ctx, "event-1")
	if err != nil {
		t.Fatalf("GetEvent failed: %v", err)
	}
	if len(fetched.Participants) != 2 {
		t.Fatalf("participants not deduplicated: %v", fetched.Participants)
	}

	// Creator is immutable on update.
	fetched.CreatorID = "member-2"
	fetched.Status = persistence.EventStatusConfirmed
	if err := s.UpdateEvent(ctx, fetched); err != nil {
		t.Fatalf("UpdateEvent failed: %v", err)
	}
	updated, _ := s.GetEvent(ctx, "event-1")
	if updated.CreatorID != "member-1" {
		t.Fatalf("creator changed: %s", updated.CreatorID)
	}

	// Deleting a participant detaches them from the event.
	if err := s.DeleteMember(ctx, "member-2"); err != nil {
		t.Fatalf("DeleteMember failed: %v", err)
	}
	detached, _ := s.GetEvent(ctx, "event-1")
	if len(detached.Participants) != 1 || detached.Participants[0] != "member-1" {
		t.Fatalf("participant not detached: %v", detached.Participants)
	}

	windowEnd := base.Add(30 * time.Minute)
	listed, err := s.ListEvents(ctx, persistence.EventFilter{
		ParticipantIDs: []string{"member-1"},
		EndsBefore:     &windowEnd,
		Statuses:       []string{persistence.EventStatusConfirmed},
	})
	if err != nil || len(listed) != 1 {
		t.Fatalf("ListEvents: %v, %v", listed, err)
	}
}

func TestStoragePreferencesAndSessions(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	s := NewStorage()
	seedMember(t, s, "member-1", "alice@example.com")

	if _, err := s.SavePreference(ctx, persistence.Preference{MemberID: "member-1", Document: []byte(`{}`)}); err != nil {
		t.Fatalf("SavePreference failed: %v", err)
	}
	replacement := []byte(`{"slotStepMinutes":30}`)
	if _, err := s.SavePreference(ctx, persistence.Preference{MemberID: "member-1", Document: replacement}); err != nil {
		t.Fatalf("SavePreference replace failed: %v", err)
	}
	fetched, err := s.GetPreference(ctx, "member-1")
	if err != nil || string(fetched.Document) != string(replacement) {
		t.Fatalf("GetPreference: %s, %v", fetched.Document, err)
	}

	session, err := s.CreateSession(ctx, persistence.Session{
		ID:        "session-1",
		MemberID:  "member-1",
		Token:     "token-1",
		ExpiresAt: time.Now().Add(time.Hour),
	})
	if err != nil {
		t.Fatalf("CreateSession failed: %v", err)
	}
	revoked, err := s.RevokeSession(ctx, session.Token, time.Now())
	if err != nil || revoked.RevokedAt == nil {
		t.Fatalf("RevokeSession: %+v, %v", revoked, err)
	}

	if err := s.DeleteExpiredSessions(ctx, time.Now().Add(2*time.Hour)); err != nil {
		t.Fatalf("DeleteExpiredSessions failed: %v", err)
	}
	if _, err := s.GetSession(ctx, "token-1"); !errors.Is(err, persistence.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}
