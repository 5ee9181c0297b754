package service

import (
	"context"
	"time"

	"splitflap"
	"splitflap/internal/logger"
	"splitflap/internal/repository"
	"splitflap/internal/triggers"
)

// --- Collaborator interfaces (consumed as black boxes) ---

// Generator produces one frame's worth of content.
type Generator interface {
	Generate(ctx context.Context, gc splitflap.GenerationContext) (splitflap.GeneratedContent, error)
	Validate(ctx context.Context) error
}

// MinorGenerator additionally supports per-tick suppression.
type MinorGenerator interface {
	Generator
	ShouldSkip() bool
}

// DisplayClient pushes a finished frame to the physical board.
type DisplayClient interface {
	SendLayout(ctx context.Context, characterCodes [][]int) error
}

// WeatherSource is best-effort; callers must tolerate errors.
type WeatherSource interface {
	CurrentConditions(ctx context.Context) (splitflap.Conditions, error)
}

// Event is one payload delivered by the external event source.
type Event struct {
	EventType string         `json:"event_type"`
	Data      map[string]any `json:"data"`
}

// EventSource delivers external events. The returned func unsubscribes.
type EventSource interface {
	Subscribe(eventType string, handler func(Event)) (func(), error)
}

// --- Service interfaces ---

// CircuitBreaker tracks manual and automatic on/off state per named circuit.
type CircuitBreaker interface {
	SeedDefaults(ctx context.Context) error
	IsCircuitOpen(ctx context.Context, circuitID string) bool
	IsProviderAvailable(ctx context.Context, providerID string) bool
	SetCircuitState(ctx context.Context, circuitID string, state splitflap.CircuitState) error
	RecordFailure(ctx context.Context, providerID string) error
	RecordSuccess(ctx context.Context, providerID string) error
	ResetProviderCircuit(ctx context.Context, circuitID string) error
	GetCircuitStatus(ctx context.Context, circuitID string) (*splitflap.CircuitBreakerState, error)
	GetAllCircuits(ctx context.Context) ([]splitflap.CircuitBreakerState, error)
}

// Orchestrator produces one frame and pushes it to the display.
type Orchestrator interface {
	GenerateAndSend(ctx context.Context, gc splitflap.GenerationContext) GenerateResult
	CachedContent() *splitflap.GeneratedContent
}

// Scheduler drives periodic minor updates on wall-clock minute boundaries.
type Scheduler interface {
	Start()
	Stop()
}

// EventStream reacts to external refresh/state-change events.
type EventStream interface {
	Start() error
	Stop()
}

// Monitoring exposes read-only board status for the admin surface.
type Monitoring interface {
	BoardStatus(ctx context.Context) (BoardStatus, error)
}

// EventLog exposes the append-only display history with filtering access.
type EventLog interface {
	List(ctx context.Context, f LogFilter) ([]splitflap.DisplayEvent, error)
}

type Authorization interface {
	SignUp(username, password string) (int, error)
	GenerateToken(username, password string) (string, error)
	ParseToken(accessToken string) (int, error)
}

// --- Root aggregate ---

// Service aggregates all sub-services.
type Service struct {
	CircuitBreaker
	Orchestrator
	Scheduler
	EventStream
	Monitoring
	EventLog
	Authorization
}

// Deps carries the external collaborators the service layer composes.
type Deps struct {
	Display       DisplayClient
	Weather       WeatherSource
	Events        EventSource
	Matcher       *triggers.Matcher
	Registrations []Registration
	Fallback      Generator
	Minor         MinorGenerator
	SigningKey    string
	TokenTTL      time.Duration
	Log           *logger.Logger
}

// NewService wires the repository layer and collaborators into concrete services.
func NewService(repos *repository.Repository, deps Deps) *Service {
	circuits := NewCircuitBreakerService(repos.CircuitRepo, repos.EventRepo, deps.Log)
	selector := NewContentSelector(deps.Registrations)
	decorator := NewFrameDecorator(deps.Weather, deps.Log)
	orch := NewContentOrchestrator(circuits, selector, decorator, deps.Fallback, deps.Display, repos.EventRepo, deps.Log)

	return &Service{
		CircuitBreaker: circuits,
		Orchestrator:   orch,
		Scheduler:      NewCronScheduler(orch, deps.Minor, deps.Display, circuits, deps.Log),
		EventStream:    NewEventHandler(orch, deps.Matcher, circuits, deps.Events, deps.Log),
		Monitoring:     NewMonitoringService(orch, circuits),
		EventLog:       NewEventLogService(repos.EventRepo),
		Authorization:  NewAuthService(repos.Auth, deps.SigningKey, deps.TokenTTL),
	}
}
