package testfixtures

import (
	"context"
	"testing"

	"github.com/example/family-planner/internal/application"
)

type capturingMemberRepo struct {
	created application.Member
	hash    string
}

func (c *capturingMemberRepo) CreateMember(ctx context.Context, member application.Member, passwordHash string) (application.Member, error) {
	c.created = member
	c.hash = passwordHash
	return member, nil
}

func (c *capturingMemberRepo) GetMember(ctx context.Context, id string) (application.Member, error) {
	return application.Member{}, application.ErrNotFound
}

func (c *capturingMemberRepo) UpdateMember(ctx context.Context, member application.Member, passwordHash string) (application.Member, error) {
	return member, nil
}

func (c *capturingMemberRepo) DeleteMember(ctx context.Context, id string) error {
	return nil
}

func (c *capturingMemberRepo) ListMembers(ctx context.Context) ([]application.Member, error) {
	return nil, nil
}

func TestServiceFactoryNewMemberService(t *testing.T) {
	factory := NewServiceFactory()
	repo := &capturingMemberRepo{}

	svc := factory.NewMemberService(MemberServiceDeps{
		Members:      repo,
		HashPassword: func(password string) (string, error) { return "hashed:" + password, nil },
	})
	principal := application.Principal{MemberID: "parent-1", IsParent: true}
	input := application.MemberInput{Email: "kid@example.com", DisplayName: "Kid", Password: "supersecret"}

	member, err := svc.CreateMember(context.Background(), application.CreateMemberParams{Principal: principal, Input: input})
	if err != nil {
		t.Fatalf("CreateMember returned error: %v", err)
	}

	if member.ID != "id-1" {
		t.Fatalf("expected generated ID id-1, got %q", member.ID)
	}
	if repo.created.ID != member.ID {
		t.Fatalf("repository received unexpected ID: %q", repo.created.ID)
	}
	if repo.hash != "hashed:supersecret" {
		t.Fatalf("repository received unexpected hash: %q", repo.hash)
	}
	if !member.CreatedAt.Equal(factory.Clock.Current()) {
		t.Fatalf("expected timestamp %v, got %v", factory.Clock.Current(), member.CreatedAt)
	}
}
