package application

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"sort"
	"strings"
	"time"

	"github.com/example/family-planner/internal/persistence"
)

// MemberRepository captures the persistence operations needed by the member service.
type MemberRepository interface {
	CreateMember(ctx context.Context, member Member, passwordHash string) (Member, error)
	GetMember(ctx context.Context, id string) (Member, error)
	UpdateMember(ctx context.Context, member Member, passwordHash string) (Member, error)
	DeleteMember(ctx context.Context, id string) error
	ListMembers(ctx context.Context) ([]Member, error)
}

// PasswordHasher derives a storable hash from a plaintext password.
type PasswordHasher func(password string) (string, error)

// MemberService orchestrates validation, authorization, and persistence for
// family member accounts.
type MemberService struct {
	members      MemberRepository
	hashPassword PasswordHasher
	idGenerator  func() string
	now          func() time.Time
}

// NewMemberService wires dependencies for the member service.
func NewMemberService(members MemberRepository, hashPassword PasswordHasher, idGenerator func() string, now func() time.Time) *MemberService {
	if hashPassword == nil {
		hashPassword = func(password string) (string, error) {
			return CreatePasswordHash(password, DefaultArgon2idParams)
		}
	}
	if idGenerator == nil {
		idGenerator = func() string { return "" }
	}
	if now == nil {
		now = time.Now
	}
	return &MemberService{members: members, hashPassword: hashPassword, idGenerator: idGenerator, now: now}
}

// CreateMember validates input and persists a new member. Only parents may
// add members to the family.
func (s *MemberService) CreateMember(ctx context.Context, params CreateMemberParams) (Member, error) {
	if s == nil {
		return Member{}, fmt.Errorf("MemberService is nil")
	}
	if !params.Principal.IsParent {
		return Member{}, ErrUnauthorized
	}

	normalized := normalizeMemberInput(params.Input)
	vErr := validateMemberInput(normalized, true)
	if vErr.HasErrors() {
		return Member{}, vErr
	}

	hash, err := s.hashPassword(normalized.Password)
	if err != nil {
		return Member{}, err
	}

	member := Member{
		ID:          s.idGenerator(),
		Email:       normalized.Email,
		DisplayName: normalized.DisplayName,
		IsParent:    normalized.IsParent,
		TimeZone:    normalized.TimeZone,
		CreatedAt:   s.now(),
	}
	member.UpdatedAt = member.CreatedAt

	if s.members == nil {
		return member, nil
	}

	persisted, err := s.members.CreateMember(ctx, member, hash)
	if err != nil {
		return Member{}, mapMemberRepoError(err)
	}

	return persisted, nil
}

// UpdateMember validates input and updates an existing member. Parents may
// update anyone; members may update their own profile but not their role.
func (s *MemberService) UpdateMember(ctx context.Context, params UpdateMemberParams) (Member, error) {
	if s == nil {
		return Member{}, fmt.Errorf("MemberService is nil")
	}
	principal := params.Principal
	if !principal.IsParent && principal.MemberID != params.MemberID {
		return Member{}, ErrUnauthorized
	}
	if s.members == nil {
		return Member{}, fmt.Errorf("member repository not configured")
	}

	existing, err := s.members.GetMember(ctx, params.MemberID)
	if err != nil {
		return Member{}, mapMemberRepoError(err)
	}

	normalized := normalizeMemberInput(params.Input)
	vErr := validateMemberInput(normalized, false)
	if !principal.IsParent && normalized.IsParent != existing.IsParent {
		vErr.add("is_parent", "role can only be changed by a parent")
	}
	if vErr.HasErrors() {
		return Member{}, vErr
	}

	var hash string
	if normalized.Password != "" {
		hash, err = s.hashPassword(normalized.Password)
		if err != nil {
			return Member{}, err
		}
	}

	updated := existing
	updated.Email = normalized.Email
	updated.DisplayName = normalized.DisplayName
	updated.IsParent = normalized.IsParent
	updated.TimeZone = normalized.TimeZone
	updated.UpdatedAt = s.now()

	persisted, err := s.members.UpdateMember(ctx, updated, hash)
	if err != nil {
		return Member{}, mapMemberRepoError(err)
	}

	return persisted, nil
}

// DeleteMember removes a member when requested by a parent. Members that
// created events cannot be removed until their events are reassigned.
func (s *MemberService) DeleteMember(ctx context.Context, principal Principal, memberID string) error {
	if s == nil {
		return fmt.Errorf("MemberService is nil")
	}
	if !principal.IsParent {
		return ErrUnauthorized
	}
	if principal.MemberID == memberID {
		vErr := &ValidationError{}
		vErr.add("member_id", "cannot delete own account")
		return vErr
	}
	if s.members == nil {
		return fmt.Errorf("member repository not configured")
	}

	if err := s.members.DeleteMember(ctx, memberID); err != nil {
		return mapMemberRepoError(err)
	}

	return nil
}

// GetMember returns a single member visible to any authenticated principal.
func (s *MemberService) GetMember(ctx context.Context, principal Principal, memberID string) (Member, error) {
	if s == nil {
		return Member{}, fmt.Errorf("MemberService is nil")
	}
	if principal.MemberID == "" {
		return Member{}, ErrUnauthorized
	}
	if s.members == nil {
		return Member{}, fmt.Errorf("member repository not configured")
	}

	member, err := s.members.GetMember(ctx, memberID)
	if err != nil {
		return Member{}, mapMemberRepoError(err)
	}
	return member, nil
}

// ListMembers returns the whole family roster, sorted by email.
func (s *MemberService) ListMembers(ctx context.Context, principal Principal) ([]Member, error) {
	if s == nil {
		return nil, fmt.Errorf("MemberService is nil")
	}
	if principal.MemberID == "" {
		return nil, ErrUnauthorized
	}
	if s.members == nil {
		return nil, nil
	}

	members, err := s.members.ListMembers(ctx)
	if err != nil {
		return nil, err
	}

	out := make([]Member, len(members))
	copy(out, members)

	sort.Slice(out, func(i, j int) bool {
		if strings.EqualFold(out[i].Email, out[j].Email) {
			return out[i].ID < out[j].ID
		}
		return strings.ToLower(out[i].Email) < strings.ToLower(out[j].Email)
	})

	return out, nil
}

func normalizeMemberInput(input MemberInput) MemberInput {
	email := strings.TrimSpace(input.Email)
	email = strings.ToLower(email)

	return MemberInput{
		Email:       email,
		DisplayName: strings.TrimSpace(input.DisplayName),
		Password:    input.Password,
		IsParent:    input.IsParent,
		TimeZone:    strings.TrimSpace(input.TimeZone),
	}
}

func validateMemberInput(input MemberInput, passwordRequired bool) *ValidationError {
	vErr := &ValidationError{}

	if input.Email == "" {
		vErr.add("email", "email is required")
	} else if _, err := mail.ParseAddress(input.Email); err != nil {
		vErr.add("email", "email is invalid")
	}

	if input.DisplayName == "" {
		vErr.add("display_name", "display name is required")
	}

	if passwordRequired && input.Password == "" {
		vErr.add("password", "password is required")
	}
	if input.Password != "" && len(input.Password) < 8 {
		vErr.add("password", "password must be at least 8 characters")
	}

	if input.TimeZone != "" {
		if _, err := time.LoadLocation(input.TimeZone); err != nil {
			vErr.add("time_zone", "time zone is not a valid IANA zone")
		}
	}

	return vErr
}

func mapMemberRepoError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, ErrNotFound) || errors.Is(err, persistence.ErrNotFound) {
		return ErrNotFound
	}
	if errors.Is(err, persistence.ErrDuplicate) {
		return ErrAlreadyExists
	}
	if errors.Is(err, persistence.ErrForeignKeyViolation) {
		vErr := &ValidationError{}
		vErr.add("member_id", "member still owns events")
		return vErr
	}
	return err
}
