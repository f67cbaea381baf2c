package application

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/example/family-planner/internal/persistence"
)

func TestMemberService_CreateMember(t *testing.T) {
	t.Parallel()

	parent := Principal{MemberID: "parent-1", IsParent: true}
	child := Principal{MemberID: "kid-1"}

	validInput := MemberInput{
		Email:       " Dana@Example.com ",
		DisplayName: " Dana ",
		Password:    "correct horse",
		IsParent:    true,
		TimeZone:    "Europe/Berlin",
	}

	t.Run("requires a parent principal", func(t *testing.T) {
		t.Parallel()

		svc := NewMemberService(newMemberRepositoryStub(), plainHasher, nil, nil)
		_, err := svc.CreateMember(context.Background(), CreateMemberParams{Principal: child, Input: validInput})
		if !errors.Is(err, ErrUnauthorized) {
			t.Fatalf("expected ErrUnauthorized, got %v", err)
		}
	})

	t.Run("normalizes and persists valid input", func(t *testing.T) {
		t.Parallel()

		now := time.Date(2026, time.September, 1, 8, 0, 0, 0, time.UTC)
		repo := newMemberRepositoryStub()
		svc := NewMemberService(repo, plainHasher, func() string { return "member-9" }, func() time.Time { return now })

		created, err := svc.CreateMember(context.Background(), CreateMemberParams{Principal: parent, Input: validInput})
		if err != nil {
			t.Fatalf("CreateMember failed: %v", err)
		}

		if created.ID != "member-9" || created.Email != "dana@example.com" || created.DisplayName != "Dana" {
			t.Fatalf("unexpected member %#v", created)
		}
		if !created.CreatedAt.Equal(now) || !created.UpdatedAt.Equal(now) {
			t.Fatalf("expected timestamps from clock, got %#v", created)
		}
		if repo.hashes["member-9"] != "hashed:correct horse" {
			t.Fatalf("expected hashed password to reach the repository, got %q", repo.hashes["member-9"])
		}
	})

	t.Run("rejects invalid input field by field", func(t *testing.T) {
		t.Parallel()

		svc := NewMemberService(newMemberRepositoryStub(), plainHasher, nil, nil)
		_, err := svc.CreateMember(context.Background(), CreateMemberParams{
			Principal: parent,
			Input:     MemberInput{Email: "not-an-email", Password: "short", TimeZone: "Mars/Olympus"},
		})

		var vErr *ValidationError
		if !errors.As(err, &vErr) {
			t.Fatalf("expected ValidationError, got %v", err)
		}
		for _, field := range []string{"email", "display_name", "password", "time_zone"} {
			if _, ok := vErr.FieldErrors[field]; !ok {
				t.Fatalf("expected %s error, got %#v", field, vErr.FieldErrors)
			}
		}
	})

	t.Run("maps duplicate emails to ErrAlreadyExists", func(t *testing.T) {
		t.Parallel()

		repo := newMemberRepositoryStub()
		repo.createErr = persistence.ErrDuplicate
		svc := NewMemberService(repo, plainHasher, nil, nil)

		_, err := svc.CreateMember(context.Background(), CreateMemberParams{Principal: parent, Input: validInput})
		if !errors.Is(err, ErrAlreadyExists) {
			t.Fatalf("expected ErrAlreadyExists, got %v", err)
		}
	})
}

func TestMemberService_UpdateMember(t *testing.T) {
	t.Parallel()

	t.Run("allows members to edit their own profile", func(t *testing.T) {
		t.Parallel()

		repo := newMemberRepositoryStub()
		repo.seed(Member{ID: "kid-1", Email: "kid@example.com", DisplayName: "Kid"})
		svc := NewMemberService(repo, plainHasher, nil, nil)

		updated, err := svc.UpdateMember(context.Background(), UpdateMemberParams{
			Principal: Principal{MemberID: "kid-1"},
			MemberID:  "kid-1",
			Input:     MemberInput{Email: "kid@example.com", DisplayName: "Kiddo"},
		})
		if err != nil {
			t.Fatalf("UpdateMember failed: %v", err)
		}
		if updated.DisplayName != "Kiddo" {
			t.Fatalf("expected display name update, got %#v", updated)
		}
	})

	t.Run("prevents members from editing others", func(t *testing.T) {
		t.Parallel()

		svc := NewMemberService(newMemberRepositoryStub(), plainHasher, nil, nil)
		_, err := svc.UpdateMember(context.Background(), UpdateMemberParams{
			Principal: Principal{MemberID: "kid-1"},
			MemberID:  "kid-2",
			Input:     MemberInput{Email: "kid2@example.com", DisplayName: "Other"},
		})
		if !errors.Is(err, ErrUnauthorized) {
			t.Fatalf("expected ErrUnauthorized, got %v", err)
		}
	})

	t.Run("prevents self role escalation", func(t *testing.T) {
		t.Parallel()

		repo := newMemberRepositoryStub()
		repo.seed(Member{ID: "kid-1", Email: "kid@example.com", DisplayName: "Kid"})
		svc := NewMemberService(repo, plainHasher, nil, nil)

		_, err := svc.UpdateMember(context.Background(), UpdateMemberParams{
			Principal: Principal{MemberID: "kid-1"},
			MemberID:  "kid-1",
			Input:     MemberInput{Email: "kid@example.com", DisplayName: "Kid", IsParent: true},
		})

		var vErr *ValidationError
		if !errors.As(err, &vErr) {
			t.Fatalf("expected ValidationError, got %v", err)
		}
		if _, ok := vErr.FieldErrors["is_parent"]; !ok {
			t.Fatalf("expected is_parent error, got %#v", vErr.FieldErrors)
		}
	})

	t.Run("rehashes the password only when one is supplied", func(t *testing.T) {
		t.Parallel()

		repo := newMemberRepositoryStub()
		repo.seed(Member{ID: "kid-1", Email: "kid@example.com", DisplayName: "Kid"})
		repo.hashes["kid-1"] = "hashed:original"
		svc := NewMemberService(repo, plainHasher, nil, nil)
		parent := Principal{MemberID: "parent-1", IsParent: true}

		if _, err := svc.UpdateMember(context.Background(), UpdateMemberParams{
			Principal: parent,
			MemberID:  "kid-1",
			Input:     MemberInput{Email: "kid@example.com", DisplayName: "Kid"},
		}); err != nil {
			t.Fatalf("UpdateMember failed: %v", err)
		}
		if repo.hashes["kid-1"] != "hashed:original" {
			t.Fatalf("expected password untouched, got %q", repo.hashes["kid-1"])
		}

		if _, err := svc.UpdateMember(context.Background(), UpdateMemberParams{
			Principal: parent,
			MemberID:  "kid-1",
			Input:     MemberInput{Email: "kid@example.com", DisplayName: "Kid", Password: "new password"},
		}); err != nil {
			t.Fatalf("UpdateMember failed: %v", err)
		}
		if repo.hashes["kid-1"] != "hashed:new password" {
			t.Fatalf("expected password rehash, got %q", repo.hashes["kid-1"])
		}
	})

	t.Run("surfaces ErrNotFound for missing members", func(t *testing.T) {
		t.Parallel()

		svc := NewMemberService(newMemberRepositoryStub(), plainHasher, nil, nil)
		_, err := svc.UpdateMember(context.Background(), UpdateMemberParams{
			Principal: Principal{MemberID: "parent-1", IsParent: true},
			MemberID:  "ghost",
			Input:     MemberInput{Email: "ghost@example.com", DisplayName: "Ghost"},
		})
		if !errors.Is(err, ErrNotFound) {
			t.Fatalf("expected ErrNotFound, got %v", err)
		}
	})
}

func TestMemberService_DeleteMember(t *testing.T) {
	t.Parallel()

	t.Run("requires a parent principal", func(t *testing.T) {
		t.Parallel()

		svc := NewMemberService(newMemberRepositoryStub(), plainHasher, nil, nil)
		if err := svc.DeleteMember(context.Background(), Principal{MemberID: "kid-1"}, "kid-2"); !errors.Is(err, ErrUnauthorized) {
			t.Fatalf("expected ErrUnauthorized, got %v", err)
		}
	})

	t.Run("refuses self deletion", func(t *testing.T) {
		t.Parallel()

		svc := NewMemberService(newMemberRepositoryStub(), plainHasher, nil, nil)
		err := svc.DeleteMember(context.Background(), Principal{MemberID: "parent-1", IsParent: true}, "parent-1")

		var vErr *ValidationError
		if !errors.As(err, &vErr) {
			t.Fatalf("expected ValidationError, got %v", err)
		}
	})

	t.Run("maps event ownership violations to validation errors", func(t *testing.T) {
		t.Parallel()

		repo := newMemberRepositoryStub()
		repo.seed(Member{ID: "kid-1", Email: "kid@example.com", DisplayName: "Kid"})
		repo.deleteErr = persistence.ErrForeignKeyViolation
		svc := NewMemberService(repo, plainHasher, nil, nil)

		err := svc.DeleteMember(context.Background(), Principal{MemberID: "parent-1", IsParent: true}, "kid-1")
		var vErr *ValidationError
		if !errors.As(err, &vErr) {
			t.Fatalf("expected ValidationError, got %v", err)
		}
	})

	t.Run("deletes members for parents", func(t *testing.T) {
		t.Parallel()

		repo := newMemberRepositoryStub()
		repo.seed(Member{ID: "kid-1", Email: "kid@example.com", DisplayName: "Kid"})
		svc := NewMemberService(repo, plainHasher, nil, nil)

		if err := svc.DeleteMember(context.Background(), Principal{MemberID: "parent-1", IsParent: true}, "kid-1"); err != nil {
			t.Fatalf("DeleteMember failed: %v", err)
		}
		if _, ok := repo.members["kid-1"]; ok {
			t.Fatalf("expected member removed")
		}
	})
}

func TestMemberService_ListMembers(t *testing.T) {
	t.Parallel()

	t.Run("requires an authenticated principal", func(t *testing.T) {
		t.Parallel()

		svc := NewMemberService(newMemberRepositoryStub(), plainHasher, nil, nil)
		if _, err := svc.ListMembers(context.Background(), Principal{}); !errors.Is(err, ErrUnauthorized) {
			t.Fatalf("expected ErrUnauthorized, got %v", err)
		}
	})

	t.Run("sorts the roster by email", func(t *testing.T) {
		t.Parallel()

		repo := newMemberRepositoryStub()
		repo.seed(Member{ID: "m2", Email: "zoe@example.com", DisplayName: "Zoe"})
		repo.seed(Member{ID: "m1", Email: "amy@example.com", DisplayName: "Amy"})
		svc := NewMemberService(repo, plainHasher, nil, nil)

		roster, err := svc.ListMembers(context.Background(), Principal{MemberID: "m1"})
		if err != nil {
			t.Fatalf("ListMembers failed: %v", err)
		}
		if len(roster) != 2 || roster[0].ID != "m1" || roster[1].ID != "m2" {
			t.Fatalf("unexpected order %#v", roster)
		}
	})
}

func plainHasher(password string) (string, error) {
	return "hashed:" + password, nil
}

// memberRepositoryStub implements MemberRepository in memory for tests.
type memberRepositoryStub struct {
	members map[string]Member
	hashes  map[string]string

	createErr error
	deleteErr error
}

func newMemberRepositoryStub() *memberRepositoryStub {
	return &memberRepositoryStub{
		members: make(map[string]Member),
		hashes:  make(map[string]string),
	}
}

func (m *memberRepositoryStub) seed(member Member) {
	m.members[member.ID] = member
}

func (m *memberRepositoryStub) CreateMember(ctx context.Context, member Member, passwordHash string) (Member, error) {
	if m.createErr != nil {
		return Member{}, m.createErr
	}
	m.members[member.ID] = member
	m.hashes[member.ID] = passwordHash
	return member, nil
}

func (m *memberRepositoryStub) GetMember(ctx context.Context, id string) (Member, error) {
	member, ok := m.members[id]
	if !ok {
		return Member{}, persistence.ErrNotFound
	}
	return member, nil
}

func (m *memberRepositoryStub) UpdateMember(ctx context.Context, member Member, passwordHash string) (Member, error) {
	if _, ok := m.members[member.ID]; !ok {
		return Member{}, persistence.ErrNotFound
	}
	m.members[member.ID] = member
	if passwordHash != "" {
		m.hashes[member.ID] = passwordHash
	}
	return member, nil
}

func (m *memberRepositoryStub) DeleteMember(ctx context.Context, id string) error {
	if m.deleteErr != nil {
		return m.deleteErr
	}
	if _, ok := m.members[id]; !ok {
		return persistence.ErrNotFound
	}
	delete(m.members, id)
	delete(m.hashes, id)
	return nil
}

func (m *memberRepositoryStub) ListMembers(ctx context.Context) ([]Member, error) {
	out := make([]Member, 0, len(m.members))
	for _, member := range m.members {
		out = append(out, member)
	}
	return out, nil
}
