package application

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/example/family-planner/internal/persistence"
	"github.com/example/family-planner/internal/prefs"
)

// PreferenceRepository captures the persistence interactions for preference
// documents. The group document is stored under an empty member ID.
type PreferenceRepository interface {
	SavePreference(ctx context.Context, preference Preference) (Preference, error)
	GetPreference(ctx context.Context, memberID string) (Preference, error)
	ListPreferences(ctx context.Context) ([]Preference, error)
	DeletePreference(ctx context.Context, memberID string) error
}

// PreferenceService orchestrates validation and persistence for scheduling
// preference documents.
type PreferenceService struct {
	preferences PreferenceRepository
	members     MemberDirectory
	now         func() time.Time
}

// NewPreferenceService wires dependencies for preference operations.
func NewPreferenceService(preferences PreferenceRepository, members MemberDirectory, now func() time.Time) *PreferenceService {
	if now == nil {
		now = time.Now
	}
	return &PreferenceService{preferences: preferences, members: members, now: now}
}

// SaveMemberPreferences stores a member's preference document. Members may
// edit their own document; parents may edit anyone's.
func (s *PreferenceService) SaveMemberPreferences(ctx context.Context, params SaveMemberPreferenceParams) (Preference, error) {
	if s == nil {
		return Preference{}, fmt.Errorf("PreferenceService is nil")
	}
	principal := params.Principal
	if params.MemberID == "" {
		vErr := &ValidationError{}
		vErr.add("member_id", "member id is required")
		return Preference{}, vErr
	}
	if !principal.IsParent && principal.MemberID != params.MemberID {
		return Preference{}, ErrUnauthorized
	}
	if s.preferences == nil {
		return Preference{}, fmt.Errorf("preference repository not configured")
	}

	if vErr := validatePreferenceDocument(params.Document); vErr.HasErrors() {
		return Preference{}, vErr
	}

	if err := s.ensureMemberExists(ctx, params.MemberID); err != nil {
		return Preference{}, err
	}

	saved, err := s.preferences.SavePreference(ctx, Preference{
		MemberID:  params.MemberID,
		Document:  params.Document,
		UpdatedAt: s.now(),
	})
	if err != nil {
		return Preference{}, mapPreferenceRepoError(err)
	}
	return saved, nil
}

// SaveGroupPreferences stores the shared family-level preference document.
// Only parents may change group defaults.
func (s *PreferenceService) SaveGroupPreferences(ctx context.Context, params SaveGroupPreferenceParams) (Preference, error) {
	if s == nil {
		return Preference{}, fmt.Errorf("PreferenceService is nil")
	}
	if !params.Principal.IsParent {
		return Preference{}, ErrUnauthorized
	}
	if s.preferences == nil {
		return Preference{}, fmt.Errorf("preference repository not configured")
	}

	if vErr := validatePreferenceDocument(params.Document); vErr.HasErrors() {
		return Preference{}, vErr
	}

	saved, err := s.preferences.SavePreference(ctx, Preference{
		MemberID:  persistence.GroupPreferenceScope,
		Document:  params.Document,
		UpdatedAt: s.now(),
	})
	if err != nil {
		return Preference{}, mapPreferenceRepoError(err)
	}
	return saved, nil
}

// GetMemberPreferences returns a member's stored document.
func (s *PreferenceService) GetMemberPreferences(ctx context.Context, principal Principal, memberID string) (Preference, error) {
	if s == nil {
		return Preference{}, fmt.Errorf("PreferenceService is nil")
	}
	if principal.MemberID == "" {
		return Preference{}, ErrUnauthorized
	}
	if memberID == "" {
		vErr := &ValidationError{}
		vErr.add("member_id", "member id is required")
		return Preference{}, vErr
	}
	if s.preferences == nil {
		return Preference{}, fmt.Errorf("preference repository not configured")
	}

	preference, err := s.preferences.GetPreference(ctx, memberID)
	if err != nil {
		return Preference{}, mapPreferenceRepoError(err)
	}
	return preference, nil
}

// GetGroupPreferences returns the shared family document. A family without a
// stored group document gets an empty record rather than an error; every
// engine default applies then.
func (s *PreferenceService) GetGroupPreferences(ctx context.Context, principal Principal) (Preference, error) {
	if s == nil {
		return Preference{}, fmt.Errorf("PreferenceService is nil")
	}
	if principal.MemberID == "" {
		return Preference{}, ErrUnauthorized
	}
	if s.preferences == nil {
		return Preference{}, fmt.Errorf("preference repository not configured")
	}

	preference, err := s.preferences.GetPreference(ctx, persistence.GroupPreferenceScope)
	if err != nil {
		if errors.Is(err, ErrNotFound) || errors.Is(err, persistence.ErrNotFound) {
			return Preference{}, nil
		}
		return Preference{}, err
	}
	return preference, nil
}

// DeleteMemberPreferences removes a member's stored document, reverting them
// to group defaults.
func (s *PreferenceService) DeleteMemberPreferences(ctx context.Context, principal Principal, memberID string) error {
	if s == nil {
		return fmt.Errorf("PreferenceService is nil")
	}
	if memberID == "" {
		vErr := &ValidationError{}
		vErr.add("member_id", "member id is required")
		return vErr
	}
	if !principal.IsParent && principal.MemberID != memberID {
		return ErrUnauthorized
	}
	if s.preferences == nil {
		return fmt.Errorf("preference repository not configured")
	}

	if err := s.preferences.DeletePreference(ctx, memberID); err != nil {
		return mapPreferenceRepoError(err)
	}
	return nil
}

func (s *PreferenceService) ensureMemberExists(ctx context.Context, memberID string) error {
	if s.members == nil {
		return nil
	}
	missing, err := s.members.MissingMemberIDs(ctx, []string{memberID})
	if err != nil {
		return err
	}
	if len(missing) > 0 {
		return ErrNotFound
	}
	return nil
}

func validatePreferenceDocument(doc prefs.Record) *ValidationError {
	vErr := &ValidationError{}

	for _, token := range doc.AllowedWeekdays {
		if _, ok := prefs.ParseWeekday(token); !ok {
			vErr.add("allowed_weekdays", fmt.Sprintf("unknown weekday %q", token))
			break
		}
	}

	checkNonNegative := func(field string, v *int) {
		if v != nil && *v < 0 {
			vErr.add(field, "must not be negative")
		}
	}
	checkNonNegative("min_duration_minutes", doc.MinDurationMinutes)
	checkNonNegative("max_duration_minutes", doc.MaxDurationMinutes)
	checkNonNegative("preferred_duration_minutes", doc.PreferredDurationMinutes)
	checkNonNegative("buffer_before_minutes", doc.BufferBeforeMinutes)
	checkNonNegative("buffer_after_minutes", doc.BufferAfterMinutes)
	checkNonNegative("max_suggestion_days_per_week", doc.MaxSuggestionDaysPerWeek)
	checkNonNegative("slot_step_minutes", doc.SlotStepMinutes)

	if doc.MinDurationMinutes != nil && doc.MaxDurationMinutes != nil &&
		*doc.MinDurationMinutes > *doc.MaxDurationMinutes {
		vErr.add("duration", "min duration must not exceed max duration")
	}

	if doc.TimeZone != "" {
		if _, err := time.LoadLocation(doc.TimeZone); err != nil {
			vErr.add("time_zone", "time zone is not a valid IANA zone")
		}
	}

	return vErr
}

func mapPreferenceRepoError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, ErrNotFound) || errors.Is(err, persistence.ErrNotFound) {
		return ErrNotFound
	}
	if errors.Is(err, persistence.ErrForeignKeyViolation) {
		return ErrNotFound
	}
	return err
}
