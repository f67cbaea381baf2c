package testfixtures

import (
	"log/slog"
	"time"

	"github.com/example/family-planner/internal/application"
	"github.com/example/family-planner/internal/suggest"
)

// ServiceFactory assists tests with constructing application services using
// deterministic identifiers and clocks.
type ServiceFactory struct {
	Clock       *Clock
	IDGenerator *IDGenerator
}

// ServiceFactoryOption configures a ServiceFactory instance.
type ServiceFactoryOption func(*ServiceFactory)

// NewServiceFactory constructs a ServiceFactory with defaults.
func NewServiceFactory(opts ...ServiceFactoryOption) *ServiceFactory {
	factory := &ServiceFactory{
		Clock:       NewClock(time.Time{}),
		IDGenerator: NewIDGenerator("id"),
	}
	for _, opt := range opts {
		opt(factory)
	}
	if factory.Clock == nil {
		factory.Clock = NewClock(time.Time{})
	}
	if factory.IDGenerator == nil {
		factory.IDGenerator = NewIDGenerator("id")
	}
	return factory
}

// WithClock overrides the clock used by the factory.
func WithClock(clock *Clock) ServiceFactoryOption {
	return func(factory *ServiceFactory) {
		factory.Clock = clock
	}
}

// WithIDGenerator overrides the identifier generator used by the factory.
func WithIDGenerator(generator *IDGenerator) ServiceFactoryOption {
	return func(factory *ServiceFactory) {
		factory.IDGenerator = generator
	}
}

// MemberServiceDeps captures dependencies for constructing a member service.
type MemberServiceDeps struct {
	Members      application.MemberRepository
	HashPassword application.PasswordHasher
	IDGenerator  func() string
	Now          func() time.Time
}

// NewMemberService builds a member service using the supplied dependencies
// combined with the factory defaults.
func (f *ServiceFactory) NewMemberService(deps MemberServiceDeps) *application.MemberService {
	idGen := deps.IDGenerator
	if idGen == nil {
		idGen = f.IDGenerator.NextFunc()
	}
	now := deps.Now
	if now == nil {
		now = f.Clock.NowFunc()
	}
	return application.NewMemberService(
		deps.Members,
		deps.HashPassword,
		idGen,
		now,
	)
}

// EventServiceDeps captures dependencies for constructing an event service.
type EventServiceDeps struct {
	Events      application.EventRepository
	Members     application.MemberDirectory
	IDGenerator func() string
	Now         func() time.Time
}

// NewEventService builds an event service using the supplied dependencies.
func (f *ServiceFactory) NewEventService(deps EventServiceDeps) *application.EventService {
	idGen := deps.IDGenerator
	if idGen == nil {
		idGen = f.IDGenerator.NextFunc()
	}
	now := deps.Now
	if now == nil {
		now = f.Clock.NowFunc()
	}
	return application.NewEventService(
		deps.Events,
		deps.Members,
		idGen,
		now,
	)
}

// PreferenceServiceDeps captures dependencies for constructing a preference service.
type PreferenceServiceDeps struct {
	Preferences application.PreferenceRepository
	Members     application.MemberDirectory
	Now         func() time.Time
}

// NewPreferenceService builds a preference service using the supplied dependencies.
func (f *ServiceFactory) NewPreferenceService(deps PreferenceServiceDeps) *application.PreferenceService {
	now := deps.Now
	if now == nil {
		now = f.Clock.NowFunc()
	}
	return application.NewPreferenceService(
		deps.Preferences,
		deps.Members,
		now,
	)
}

// AuthServiceDeps captures dependencies for constructing an auth service.
type AuthServiceDeps struct {
	Credentials    application.CredentialStore
	Sessions       application.SessionRepository
	PasswordVerify application.PasswordVerifier
	TokenGenerator func() string
	Now            func() time.Time
	SessionTTL     time.Duration
	Logger         *slog.Logger
}

// NewAuthService builds an auth service using the supplied dependencies.
func (f *ServiceFactory) NewAuthService(deps AuthServiceDeps) *application.AuthService {
	token := deps.TokenGenerator
	if token == nil {
		token = f.IDGenerator.NextFunc()
	}
	now := deps.Now
	if now == nil {
		now = f.Clock.NowFunc()
	}
	return application.NewAuthServiceWithLogger(
		deps.Credentials,
		deps.Sessions,
		deps.PasswordVerify,
		token,
		now,
		deps.SessionTTL,
		deps.Logger,
	)
}

// SuggestionServiceDeps captures dependencies for constructing a suggestion service.
type SuggestionServiceDeps struct {
	Engine      *suggest.Engine
	Members     application.MemberLister
	Events      application.EventRepository
	Preferences application.PreferenceRepository
	Bridge      application.DeviceCalendarBridge
	HorizonDays int
	Now         func() time.Time
	Logger      *slog.Logger
}

// NewSuggestionService builds a suggestion service using the supplied dependencies.
func (f *ServiceFactory) NewSuggestionService(deps SuggestionServiceDeps) *application.SuggestionService {
	now := deps.Now
	if now == nil {
		now = f.Clock.NowFunc()
	}
	return application.NewSuggestionService(
		deps.Engine,
		deps.Members,
		deps.Events,
		deps.Preferences,
		deps.Bridge,
		deps.HorizonDays,
		now,
		deps.Logger,
	)
}
