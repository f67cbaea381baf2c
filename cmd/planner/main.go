package main

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/joho/godotenv"

	"github.com/example/family-planner/internal/application"
	"github.com/example/family-planner/internal/config"
	httptransport "github.com/example/family-planner/internal/http"
	"github.com/example/family-planner/internal/persistence"
	"github.com/example/family-planner/internal/persistence/sqlite"
	"github.com/example/family-planner/internal/routine"
	"github.com/example/family-planner/internal/suggest"
	"github.com/example/family-planner/internal/tzoffset"
)

const sessionSweepInterval = time.Hour

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	if err := run(logger); err != nil {
		logger.Error("planner terminated", "error", err)
		os.Exit(1)
	}
}

func run(logger *slog.Logger) error {
	if err := godotenv.Load(); err == nil {
		logger.Info("loaded environment overrides from .env")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load configuration: %w", err)
	}

	pool, err := sqlite.NewConnectionPool(sqlite.DefaultConfig(cfg.SQLitePath))
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer func() {
		if cerr := pool.Close(); cerr != nil {
			logger.Error("failed to close database", "error", cerr)
		}
	}()

	if err := pool.Migrate(ctx, logger); err != nil {
		return fmt.Errorf("migrate database: %w", err)
	}

	members := &memberRepositoryAdapter{members: sqlite.NewMemberRepository(pool)}
	directory := &memberDirectoryAdapter{members: members.members}
	credentials := &credentialStoreAdapter{members: members.members}
	sessions := &sessionRepositoryAdapter{sessions: sqlite.NewSessionRepository(pool)}
	events := &eventRepositoryAdapter{events: sqlite.NewEventRepository(pool)}
	preferences := &preferenceRepositoryAdapter{preferences: sqlite.NewPreferenceRepository(pool)}

	idGenerator := uuid.NewString
	tokenGenerator := func() string { return randomHex(32) }
	hashPassword := func(password string) (string, error) {
		return application.CreatePasswordHash(password, application.DefaultArgon2idParams)
	}

	memberService := application.NewMemberService(members, hashPassword, idGenerator, time.Now)
	eventService := application.NewEventService(events, directory, idGenerator, time.Now)
	preferenceService := application.NewPreferenceService(preferences, directory, time.Now)
	authService := application.NewAuthServiceWithLogger(credentials, sessions, application.VerifyPassword, tokenGenerator, time.Now, cfg.SessionTTL, logger)

	var bridge application.DeviceCalendarBridge
	if cfg.RoutinesPath != "" {
		blocks, err := routine.LoadBlocks(cfg.RoutinesPath)
		if err != nil {
			return fmt.Errorf("load routines: %w", err)
		}
		location, err := time.LoadLocation(cfg.TimeZone)
		if err != nil {
			return fmt.Errorf("load time zone %q: %w", cfg.TimeZone, err)
		}
		bridge = routine.NewBridge(blocks, location)
		logger.Info("routine busy blocks loaded", "path", cfg.RoutinesPath, "block_count", len(blocks))
	}

	engine := suggest.NewEngine(tzoffset.NewLocations(0), time.Now, suggest.WithDefaultTimeZone(cfg.TimeZone))
	suggestionService := application.NewSuggestionService(engine, members, events, preferences, bridge, cfg.HorizonDays, time.Now, logger)

	router := httptransport.NewRouter(httptransport.RouterConfig{
		Auth:        httptransport.NewAuthHandler(authService, logger),
		Members:     httptransport.NewMemberHandler(memberService, logger),
		Events:      httptransport.NewEventHandler(eventService, logger),
		Preferences: httptransport.NewPreferenceHandler(preferenceService, logger),
		Suggestions: httptransport.NewSuggestionHandler(&suggestionDefaults{service: suggestionService, maxSuggestions: cfg.MaxSuggestions}, logger),
		Middleware: []func(http.Handler) http.Handler{
			httptransport.RequestLogger(logger),
			httptransport.RequireSession(authService, logger),
		},
	})

	go sweepExpiredSessions(ctx, sessions, logger)

	server := &http.Server{
		Addr:              ":" + strconv.Itoa(cfg.HTTPPort),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	shutdownDone := make(chan struct{})
	go func() {
		defer close(shutdownDone)
		<-ctx.Done()
		logger.Info("shutdown signal received")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error("graceful shutdown failed", "error", err)
		}
	}()

	logger.Info("planner listening", "addr", server.Addr, "database", cfg.SQLitePath)
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("serve: %w", err)
	}
	<-shutdownDone

	logger.Info("planner stopped")
	return nil
}

// sweepExpiredSessions periodically removes sessions whose expiry has passed
// so the session table does not grow without bound.
func sweepExpiredSessions(ctx context.Context, sessions application.SessionRepository, logger *slog.Logger) {
	ticker := time.NewTicker(sessionSweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := sessions.DeleteExpiredSessions(ctx, time.Now()); err != nil {
				logger.Warn("expired session sweep failed", "error", err)
			}
		}
	}
}

func randomHex(byteLength int) string {
	buf := make([]byte, byteLength)
	if _, err := rand.Read(buf); err != nil {
		return strconv.FormatInt(time.Now().UnixNano(), 16)
	}
	return hex.EncodeToString(buf)
}

// mapStoreError translates storage sentinel errors into the application
// layer's vocabulary so services and handlers can branch on them.
func mapStoreError(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, persistence.ErrNotFound):
		return application.ErrNotFound
	case errors.Is(err, persistence.ErrDuplicate):
		return application.ErrAlreadyExists
	default:
		return err
	}
}

// memberRepositoryAdapter exposes the SQLite member store through the
// application's repository contract, keeping password hashes out of the
// application model.
type memberRepositoryAdapter struct {
	members persistence.MemberRepository
}

func (a *memberRepositoryAdapter) CreateMember(ctx context.Context, member application.Member, passwordHash string) (application.Member, error) {
	record := toPersistenceMember(member)
	record.PasswordHash = passwordHash
	if err := a.members.CreateMember(ctx, record); err != nil {
		return application.Member{}, mapStoreError(err)
	}
	stored, err := a.members.GetMember(ctx, member.ID)
	if err != nil {
		return application.Member{}, mapStoreError(err)
	}
	return toApplicationMember(stored), nil
}

func (a *memberRepositoryAdapter) GetMember(ctx context.Context, id string) (application.Member, error) {
	stored, err := a.members.GetMember(ctx, id)
	if err != nil {
		return application.Member{}, mapStoreError(err)
	}
	return toApplicationMember(stored), nil
}

func (a *memberRepositoryAdapter) UpdateMember(ctx context.Context, member application.Member, passwordHash string) (application.Member, error) {
	record := toPersistenceMember(member)
	if passwordHash == "" {
		current, err := a.members.GetMember(ctx, member.ID)
		if err != nil {
			return application.Member{}, mapStoreError(err)
		}
		record.PasswordHash = current.PasswordHash
	} else {
		record.PasswordHash = passwordHash
	}
	if err := a.members.UpdateMember(ctx, record); err != nil {
		return application.Member{}, mapStoreError(err)
	}
	stored, err := a.members.GetMember(ctx, member.ID)
	if err != nil {
		return application.Member{}, mapStoreError(err)
	}
	return toApplicationMember(stored), nil
}

func (a *memberRepositoryAdapter) DeleteMember(ctx context.Context, id string) error {
	return mapStoreError(a.members.DeleteMember(ctx, id))
}

func (a *memberRepositoryAdapter) ListMembers(ctx context.Context) ([]application.Member, error) {
	stored, err := a.members.ListMembers(ctx)
	if err != nil {
		return nil, mapStoreError(err)
	}
	listed := make([]application.Member, len(stored))
	for i, record := range stored {
		listed[i] = toApplicationMember(record)
	}
	return listed, nil
}

// memberDirectoryAdapter answers existence probes for participant validation.
type memberDirectoryAdapter struct {
	members persistence.MemberRepository
}

func (a *memberDirectoryAdapter) MissingMemberIDs(ctx context.Context, ids []string) ([]string, error) {
	var missing []string
	for _, id := range ids {
		if _, err := a.members.GetMember(ctx, id); err != nil {
			if errors.Is(err, persistence.ErrNotFound) {
				missing = append(missing, id)
				continue
			}
			return nil, mapStoreError(err)
		}
	}
	return missing, nil
}

// credentialStoreAdapter surfaces password hashes for login without widening
// the member repository contract.
type credentialStoreAdapter struct {
	members persistence.MemberRepository
}

func (a *credentialStoreAdapter) GetMemberCredentialsByEmail(ctx context.Context, email string) (application.MemberCredentials, error) {
	stored, err := a.members.GetMemberByEmail(ctx, email)
	if err != nil {
		return application.MemberCredentials{}, mapStoreError(err)
	}
	return application.MemberCredentials{
		Member:       toApplicationMember(stored),
		PasswordHash: stored.PasswordHash,
	}, nil
}

func (a *credentialStoreAdapter) GetMember(ctx context.Context, id string) (application.Member, error) {
	stored, err := a.members.GetMember(ctx, id)
	if err != nil {
		return application.Member{}, mapStoreError(err)
	}
	return toApplicationMember(stored), nil
}

type sessionRepositoryAdapter struct {
	sessions persistence.SessionRepository
}

func (a *sessionRepositoryAdapter) CreateSession(ctx context.Context, session application.Session) (application.Session, error) {
	stored, err := a.sessions.CreateSession(ctx, toPersistenceSession(session))
	if err != nil {
		return application.Session{}, mapStoreError(err)
	}
	return toApplicationSession(stored), nil
}

func (a *sessionRepositoryAdapter) GetSession(ctx context.Context, token string) (application.Session, error) {
	stored, err := a.sessions.GetSession(ctx, token)
	if err != nil {
		return application.Session{}, mapStoreError(err)
	}
	return toApplicationSession(stored), nil
}

func (a *sessionRepositoryAdapter) RevokeSession(ctx context.Context, token string, revokedAt time.Time) (application.Session, error) {
	stored, err := a.sessions.RevokeSession(ctx, token, revokedAt)
	if err != nil {
		return application.Session{}, mapStoreError(err)
	}
	return toApplicationSession(stored), nil
}

func (a *sessionRepositoryAdapter) DeleteExpiredSessions(ctx context.Context, reference time.Time) error {
	return mapStoreError(a.sessions.DeleteExpiredSessions(ctx, reference))
}

type eventRepositoryAdapter struct {
	events persistence.EventRepository
}

func (a *eventRepositoryAdapter) CreateEvent(ctx context.Context, event application.Event) (application.Event, error) {
	if err := a.events.CreateEvent(ctx, toPersistenceEvent(event)); err != nil {
		return application.Event{}, mapStoreError(err)
	}
	stored, err := a.events.GetEvent(ctx, event.ID)
	if err != nil {
		return application.Event{}, mapStoreError(err)
	}
	return toApplicationEvent(stored), nil
}

func (a *eventRepositoryAdapter) GetEvent(ctx context.Context, id string) (application.Event, error) {
	stored, err := a.events.GetEvent(ctx, id)
	if err != nil {
		return application.Event{}, mapStoreError(err)
	}
	return toApplicationEvent(stored), nil
}

func (a *eventRepositoryAdapter) UpdateEvent(ctx context.Context, event application.Event) (application.Event, error) {
	if err := a.events.UpdateEvent(ctx, toPersistenceEvent(event)); err != nil {
		return application.Event{}, mapStoreError(err)
	}
	stored, err := a.events.GetEvent(ctx, event.ID)
	if err != nil {
		return application.Event{}, mapStoreError(err)
	}
	return toApplicationEvent(stored), nil
}

func (a *eventRepositoryAdapter) DeleteEvent(ctx context.Context, id string) error {
	return mapStoreError(a.events.DeleteEvent(ctx, id))
}

func (a *eventRepositoryAdapter) ListEvents(ctx context.Context, filter application.EventRepositoryFilter) ([]application.Event, error) {
	statuses := make([]string, len(filter.Statuses))
	for i, status := range filter.Statuses {
		statuses[i] = string(status)
	}
	stored, err := a.events.ListEvents(ctx, persistence.EventFilter{
		ParticipantIDs: filter.ParticipantIDs,
		StartsAfter:    filter.StartsAfter,
		EndsBefore:     filter.EndsBefore,
		Statuses:       statuses,
	})
	if err != nil {
		return nil, mapStoreError(err)
	}
	listed := make([]application.Event, len(stored))
	for i, record := range stored {
		listed[i] = toApplicationEvent(record)
	}
	return listed, nil
}

// preferenceRepositoryAdapter serializes preference records to the raw JSON
// documents the storage layer keeps.
type preferenceRepositoryAdapter struct {
	preferences persistence.PreferenceRepository
}

func (a *preferenceRepositoryAdapter) SavePreference(ctx context.Context, preference application.Preference) (application.Preference, error) {
	document, err := json.Marshal(preference.Document)
	if err != nil {
		return application.Preference{}, fmt.Errorf("encode preference document: %w", err)
	}
	stored, err := a.preferences.SavePreference(ctx, persistence.Preference{
		MemberID:  preference.MemberID,
		Document:  document,
		CreatedAt: preference.CreatedAt,
		UpdatedAt: preference.UpdatedAt,
	})
	if err != nil {
		return application.Preference{}, mapStoreError(err)
	}
	return toApplicationPreference(stored)
}

func (a *preferenceRepositoryAdapter) GetPreference(ctx context.Context, memberID string) (application.Preference, error) {
	stored, err := a.preferences.GetPreference(ctx, memberID)
	if err != nil {
		return application.Preference{}, mapStoreError(err)
	}
	return toApplicationPreference(stored)
}

func (a *preferenceRepositoryAdapter) ListPreferences(ctx context.Context) ([]application.Preference, error) {
	stored, err := a.preferences.ListPreferences(ctx)
	if err != nil {
		return nil, mapStoreError(err)
	}
	listed := make([]application.Preference, 0, len(stored))
	for _, record := range stored {
		preference, convErr := toApplicationPreference(record)
		if convErr != nil {
			return nil, convErr
		}
		listed = append(listed, preference)
	}
	return listed, nil
}

func (a *preferenceRepositoryAdapter) DeletePreference(ctx context.Context, memberID string) error {
	return mapStoreError(a.preferences.DeletePreference(ctx, memberID))
}

type suggester interface {
	Suggest(ctx context.Context, params application.SuggestParams) (application.SuggestResult, error)
}

// suggestionDefaults fills the configured suggestion cap into requests that
// leave it unset.
type suggestionDefaults struct {
	service        suggester
	maxSuggestions int
}

func (d *suggestionDefaults) Suggest(ctx context.Context, params application.SuggestParams) (application.SuggestResult, error) {
	if params.MaxSuggestions <= 0 {
		params.MaxSuggestions = d.maxSuggestions
	}
	return d.service.Suggest(ctx, params)
}

func toApplicationMember(member persistence.Member) application.Member {
	return application.Member{
		ID:          member.ID,
		Email:       member.Email,
		DisplayName: member.DisplayName,
		IsParent:    member.IsParent,
		TimeZone:    member.TimeZone,
		CreatedAt:   member.CreatedAt,
		UpdatedAt:   member.UpdatedAt,
	}
}

func toPersistenceMember(member application.Member) persistence.Member {
	return persistence.Member{
		ID:          member.ID,
		Email:       member.Email,
		DisplayName: member.DisplayName,
		IsParent:    member.IsParent,
		TimeZone:    member.TimeZone,
		CreatedAt:   member.CreatedAt,
		UpdatedAt:   member.UpdatedAt,
	}
}

func toApplicationSession(session persistence.Session) application.Session {
	return application.Session{
		ID:          session.ID,
		MemberID:    session.MemberID,
		Token:       session.Token,
		Fingerprint: session.Fingerprint,
		ExpiresAt:   session.ExpiresAt,
		CreatedAt:   session.CreatedAt,
		UpdatedAt:   session.UpdatedAt,
		RevokedAt:   cloneTime(session.RevokedAt),
	}
}

func toPersistenceSession(session application.Session) persistence.Session {
	return persistence.Session{
		ID:          session.ID,
		MemberID:    session.MemberID,
		Token:       session.Token,
		Fingerprint: session.Fingerprint,
		ExpiresAt:   session.ExpiresAt,
		CreatedAt:   session.CreatedAt,
		UpdatedAt:   session.UpdatedAt,
		RevokedAt:   cloneTime(session.RevokedAt),
	}
}

func toApplicationEvent(event persistence.Event) application.Event {
	return application.Event{
		ID:             event.ID,
		Title:          event.Title,
		Start:          event.Start,
		End:            event.End,
		CreatorID:      event.CreatorID,
		ParticipantIDs: append([]string(nil), event.Participants...),
		Status:         application.EventStatus(event.Status),
		Notes:          cloneString(event.Notes),
		Location:       cloneString(event.Location),
		SuggestionID:   cloneString(event.SuggestionID),
		CreatedAt:      event.CreatedAt,
		UpdatedAt:      event.UpdatedAt,
	}
}

func toPersistenceEvent(event application.Event) persistence.Event {
	return persistence.Event{
		ID:           event.ID,
		Title:        event.Title,
		Start:        event.Start,
		End:          event.End,
		CreatorID:    event.CreatorID,
		Participants: append([]string(nil), event.ParticipantIDs...),
		Status:       string(event.Status),
		Notes:        cloneString(event.Notes),
		Location:     cloneString(event.Location),
		SuggestionID: cloneString(event.SuggestionID),
		CreatedAt:    event.CreatedAt,
		UpdatedAt:    event.UpdatedAt,
	}
}

func toApplicationPreference(preference persistence.Preference) (application.Preference, error) {
	converted := application.Preference{
		MemberID:  preference.MemberID,
		CreatedAt: preference.CreatedAt,
		UpdatedAt: preference.UpdatedAt,
	}
	if len(preference.Document) > 0 {
		if err := json.Unmarshal(preference.Document, &converted.Document); err != nil {
			return application.Preference{}, fmt.Errorf("decode preference document for %q: %w", preference.MemberID, err)
		}
	}
	return converted, nil
}

func cloneString(value *string) *string {
	if value == nil {
		return nil
	}
	copied := *value
	return &copied
}

func cloneTime(value *time.Time) *time.Time {
	if value == nil {
		return nil
	}
	copied := *value
	return &copied
}
