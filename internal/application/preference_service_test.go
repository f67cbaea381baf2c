package application

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/example/family-planner/internal/persistence"
	"github.com/example/family-planner/internal/prefs"
)

func intRef(v int) *int { return &v }

func TestPreferenceService_SaveMemberPreferences(t *testing.T) {
	t.Parallel()

	doc := prefs.Record{
		AllowedWeekdays:    []string{"mon", "wed"},
		TimeWindows:        []any{"17:00-20:00"},
		MinDurationMinutes: intRef(30),
		MaxDurationMinutes: intRef(120),
		TimeZone:           "Europe/Berlin",
	}

	t.Run("members may save their own document", func(t *testing.T) {
		t.Parallel()

		repo := newPreferenceRepositoryStub()
		now := time.Date(2026, time.September, 1, 8, 0, 0, 0, time.UTC)
		svc := NewPreferenceService(repo, &memberDirectoryStub{}, func() time.Time { return now })

		saved, err := svc.SaveMemberPreferences(context.Background(), SaveMemberPreferenceParams{
			Principal: Principal{MemberID: "kid-1"},
			MemberID:  "kid-1",
			Document:  doc,
		})
		if err != nil {
			t.Fatalf("SaveMemberPreferences failed: %v", err)
		}
		if saved.MemberID != "kid-1" || !saved.UpdatedAt.Equal(now) {
			t.Fatalf("unexpected result %#v", saved)
		}
	})

	t.Run("members may not save for others", func(t *testing.T) {
		t.Parallel()

		svc := NewPreferenceService(newPreferenceRepositoryStub(), &memberDirectoryStub{}, nil)
		_, err := svc.SaveMemberPreferences(context.Background(), SaveMemberPreferenceParams{
			Principal: Principal{MemberID: "kid-1"},
			MemberID:  "kid-2",
			Document:  doc,
		})
		if !errors.Is(err, ErrUnauthorized) {
			t.Fatalf("expected ErrUnauthorized, got %v", err)
		}
	})

	t.Run("parents may save for anyone", func(t *testing.T) {
		t.Parallel()

		repo := newPreferenceRepositoryStub()
		svc := NewPreferenceService(repo, &memberDirectoryStub{}, nil)

		if _, err := svc.SaveMemberPreferences(context.Background(), SaveMemberPreferenceParams{
			Principal: Principal{MemberID: "parent-1", IsParent: true},
			MemberID:  "kid-2",
			Document:  doc,
		}); err != nil {
			t.Fatalf("SaveMemberPreferences failed: %v", err)
		}
		if _, ok := repo.stored["kid-2"]; !ok {
			t.Fatalf("expected document persisted")
		}
	})

	t.Run("rejects documents with invalid fields", func(t *testing.T) {
		t.Parallel()

		svc := NewPreferenceService(newPreferenceRepositoryStub(), &memberDirectoryStub{}, nil)
		_, err := svc.SaveMemberPreferences(context.Background(), SaveMemberPreferenceParams{
			Principal: Principal{MemberID: "kid-1"},
			MemberID:  "kid-1",
			Document: prefs.Record{
				AllowedWeekdays:    []string{"smonday"},
				MinDurationMinutes: intRef(120),
				MaxDurationMinutes: intRef(60),
				TimeZone:           "Nowhere/Qwerty",
			},
		})

		var vErr *ValidationError
		if !errors.As(err, &vErr) {
			t.Fatalf("expected ValidationError, got %v", err)
		}
		for _, field := range []string{"allowed_weekdays", "duration", "time_zone"} {
			if _, ok := vErr.FieldErrors[field]; !ok {
				t.Fatalf("expected %s error, got %#v", field, vErr.FieldErrors)
			}
		}
	})

	t.Run("rejects unknown members", func(t *testing.T) {
		t.Parallel()

		svc := NewPreferenceService(newPreferenceRepositoryStub(), &memberDirectoryStub{missing: []string{"ghost"}}, nil)
		_, err := svc.SaveMemberPreferences(context.Background(), SaveMemberPreferenceParams{
			Principal: Principal{MemberID: "parent-1", IsParent: true},
			MemberID:  "ghost",
			Document:  doc,
		})
		if !errors.Is(err, ErrNotFound) {
			t.Fatalf("expected ErrNotFound, got %v", err)
		}
	})
}

func TestPreferenceService_GroupPreferences(t *testing.T) {
	t.Parallel()

	doc := prefs.Record{PreferredDurationMinutes: intRef(90)}

	t.Run("only parents may change group defaults", func(t *testing.T) {
		t.Parallel()

		svc := NewPreferenceService(newPreferenceRepositoryStub(), &memberDirectoryStub{}, nil)
		_, err := svc.SaveGroupPreferences(context.Background(), SaveGroupPreferenceParams{
			Principal: Principal{MemberID: "kid-1"},
			Document:  doc,
		})
		if !errors.Is(err, ErrUnauthorized) {
			t.Fatalf("expected ErrUnauthorized, got %v", err)
		}
	})

	t.Run("stores under the group scope", func(t *testing.T) {
		t.Parallel()

		repo := newPreferenceRepositoryStub()
		svc := NewPreferenceService(repo, &memberDirectoryStub{}, nil)

		if _, err := svc.SaveGroupPreferences(context.Background(), SaveGroupPreferenceParams{
			Principal: Principal{MemberID: "parent-1", IsParent: true},
			Document:  doc,
		}); err != nil {
			t.Fatalf("SaveGroupPreferences failed: %v", err)
		}
		if _, ok := repo.stored[persistence.GroupPreferenceScope]; !ok {
			t.Fatalf("expected group document persisted")
		}
	})

	t.Run("missing group document reads as empty record", func(t *testing.T) {
		t.Parallel()

		svc := NewPreferenceService(newPreferenceRepositoryStub(), &memberDirectoryStub{}, nil)
		preference, err := svc.GetGroupPreferences(context.Background(), Principal{MemberID: "kid-1"})
		if err != nil {
			t.Fatalf("GetGroupPreferences failed: %v", err)
		}
		if preference.Document.PreferredDurationMinutes != nil {
			t.Fatalf("expected empty record, got %#v", preference.Document)
		}
	})
}

func TestPreferenceService_DeleteMemberPreferences(t *testing.T) {
	t.Parallel()

	t.Run("members may clear their own document", func(t *testing.T) {
		t.Parallel()

		repo := newPreferenceRepositoryStub()
		repo.stored["kid-1"] = Preference{MemberID: "kid-1"}
		svc := NewPreferenceService(repo, &memberDirectoryStub{}, nil)

		if err := svc.DeleteMemberPreferences(context.Background(), Principal{MemberID: "kid-1"}, "kid-1"); err != nil {
			t.Fatalf("DeleteMemberPreferences failed: %v", err)
		}
		if _, ok := repo.stored["kid-1"]; ok {
			t.Fatalf("expected document removed")
		}
	})

	t.Run("maps missing documents to ErrNotFound", func(t *testing.T) {
		t.Parallel()

		svc := NewPreferenceService(newPreferenceRepositoryStub(), &memberDirectoryStub{}, nil)
		if err := svc.DeleteMemberPreferences(context.Background(), Principal{MemberID: "kid-1"}, "kid-1"); !errors.Is(err, ErrNotFound) {
			t.Fatalf("expected ErrNotFound, got %v", err)
		}
	})
}

// preferenceRepositoryStub implements PreferenceRepository in memory for tests.
type preferenceRepositoryStub struct {
	stored map[string]Preference

	saveErr error
}

func newPreferenceRepositoryStub() *preferenceRepositoryStub {
	return &preferenceRepositoryStub{stored: make(map[string]Preference)}
}

func (p *preferenceRepositoryStub) SavePreference(ctx context.Context, preference Preference) (Preference, error) {
	if p.saveErr != nil {
		return Preference{}, p.saveErr
	}
	p.stored[preference.MemberID] = preference
	return preference, nil
}

func (p *preferenceRepositoryStub) GetPreference(ctx context.Context, memberID string) (Preference, error) {
	preference, ok := p.stored[memberID]
	if !ok {
		return Preference{}, persistence.ErrNotFound
	}
	return preference, nil
}

func (p *preferenceRepositoryStub) ListPreferences(ctx context.Context) ([]Preference, error) {
	out := make([]Preference, 0, len(p.stored))
	for _, preference := range p.stored {
		out = append(out, preference)
	}
	return out, nil
}

func (p *preferenceRepositoryStub) DeletePreference(ctx context.Context, memberID string) error {
	if _, ok := p.stored[memberID]; !ok {
		return persistence.ErrNotFound
	}
	delete(p.stored, memberID)
	return nil
}
