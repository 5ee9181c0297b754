package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"splitflap"
	"splitflap/internal/logger"
	"splitflap/internal/repository"
)

// Domain errors for circuit operations.
var (
	ErrUnknownCircuit      = errors.New("unknown circuit")
	ErrResetManual         = errors.New("reset is only for provider circuits")
	ErrCountingManual      = errors.New("failure counting is only for provider circuits")
	ErrInvalidCircuitState = errors.New("invalid circuit state: must be on, off, or half_open")
)

// Failure threshold applied to seeded provider circuits.
const defaultFailureThreshold = 3

// CircuitBreakerService persists per-circuit state and applies the
// manual/provider semantics. Checks fail open: a storage error never blocks
// the display, it is logged and treated as "not open".
type CircuitBreakerService struct {
	repo   repository.CircuitRepo
	events repository.EventRepo
	log    *logger.Logger
	now    func() time.Time
}

func NewCircuitBreakerService(repo repository.CircuitRepo, events repository.EventRepo, log *logger.Logger) *CircuitBreakerService {
	return &CircuitBreakerService{
		repo:   repo,
		events: events,
		log:    log,
		now:    time.Now,
	}
}

var _ CircuitBreaker = (*CircuitBreakerService)(nil)

// SeedDefaults creates the well-known circuits when their rows are missing.
// Existing rows are left untouched so overrides survive restarts.
func (s *CircuitBreakerService) SeedDefaults(ctx context.Context) error {
	defaults := []splitflap.CircuitBreakerState{
		{CircuitID: splitflap.CircuitMaster, CircuitType: splitflap.CircuitManual, State: splitflap.StateOn, DefaultState: splitflap.StateOn},
		{CircuitID: splitflap.CircuitSleepMode, CircuitType: splitflap.CircuitManual, State: splitflap.StateOn, DefaultState: splitflap.StateOn},
		{CircuitID: splitflap.CircuitProviderOpenAI, CircuitType: splitflap.CircuitProvider, State: splitflap.StateOn, DefaultState: splitflap.StateOn, FailureThreshold: defaultFailureThreshold},
		{CircuitID: splitflap.CircuitProviderAnthropic, CircuitType: splitflap.CircuitProvider, State: splitflap.StateOn, DefaultState: splitflap.StateOn, FailureThreshold: defaultFailureThreshold},
	}
	for _, c := range defaults {
		existing, err := s.repo.Get(ctx, c.CircuitID)
		if err != nil {
			return fmt.Errorf("seed circuit %s: %w", c.CircuitID, err)
		}
		if existing != nil {
			continue
		}
		if err := s.repo.Save(ctx, c); err != nil {
			return fmt.Errorf("seed circuit %s: %w", c.CircuitID, err)
		}
	}
	return nil
}

// IsCircuitOpen reports whether the gated action must be blocked.
// Storage errors and unknown ids fail open.
func (s *CircuitBreakerService) IsCircuitOpen(ctx context.Context, circuitID string) bool {
	c, err := s.repo.Get(ctx, circuitID)
	if err != nil {
		s.log.Warnw("circuit check failed; failing open", "circuit", circuitID, "err", err)
		return false
	}
	if c == nil {
		return false
	}
	return c.State == splitflap.StateOff
}

// IsProviderAvailable is the provider-circuit specialization of IsCircuitOpen,
// used before attempting an AI call.
func (s *CircuitBreakerService) IsProviderAvailable(ctx context.Context, providerID string) bool {
	return !s.IsCircuitOpen(ctx, providerID)
}

// SetCircuitState applies a manual override. Setting a provider circuit to
// "on" also resets its counters.
func (s *CircuitBreakerService) SetCircuitState(ctx context.Context, circuitID string, state splitflap.CircuitState) error {
	switch state {
	case splitflap.StateOn, splitflap.StateOff, splitflap.StateHalfOpen:
	default:
		return ErrInvalidCircuitState
	}

	c, err := s.repo.Get(ctx, circuitID)
	if err != nil {
		return err
	}
	if c == nil {
		return fmt.Errorf("%w: %s", ErrUnknownCircuit, circuitID)
	}

	now := s.now().UTC()
	c.State = state
	c.StateChangedAt = &now
	if c.CircuitType == splitflap.CircuitProvider && state == splitflap.StateOn {
		c.FailureCount = 0
		c.SuccessCount = 0
	}

	if err := s.repo.Save(ctx, *c); err != nil {
		return err
	}
	s.appendEvent(ctx, splitflap.EventCircuitOverride, "Circuit "+circuitID+" set to "+string(state), map[string]any{
		"circuit": circuitID,
		"state":   string(state),
	})
	return nil
}

// RecordFailure increments the failure counter and auto-opens the circuit
// once the threshold is reached. Manual circuits are never auto-opened.
func (s *CircuitBreakerService) RecordFailure(ctx context.Context, providerID string) error {
	c, err := s.repo.Get(ctx, providerID)
	if err != nil {
		return err
	}
	if c == nil {
		return fmt.Errorf("%w: %s", ErrUnknownCircuit, providerID)
	}
	if c.CircuitType != splitflap.CircuitProvider {
		return ErrCountingManual
	}

	now := s.now().UTC()
	c.FailureCount++
	c.LastFailureAt = &now
	opened := false
	if c.FailureThreshold > 0 && c.FailureCount >= c.FailureThreshold && c.State != splitflap.StateOff {
		c.State = splitflap.StateOff
		c.StateChangedAt = &now
		opened = true
	}

	if err := s.repo.Save(ctx, *c); err != nil {
		return err
	}
	if opened {
		s.log.Warnw("provider circuit auto-opened", "circuit", providerID, "failures", c.FailureCount)
		s.appendEvent(ctx, splitflap.EventCircuitAutoOpen, "Circuit "+providerID+" auto-opened", map[string]any{
			"circuit":  providerID,
			"failures": c.FailureCount,
		})
	}
	return nil
}

// RecordSuccess resets the consecutive-failure counter.
func (s *CircuitBreakerService) RecordSuccess(ctx context.Context, providerID string) error {
	c, err := s.repo.Get(ctx, providerID)
	if err != nil {
		return err
	}
	if c == nil {
		return fmt.Errorf("%w: %s", ErrUnknownCircuit, providerID)
	}
	if c.CircuitType != splitflap.CircuitProvider {
		return ErrCountingManual
	}

	now := s.now().UTC()
	c.SuccessCount++
	c.FailureCount = 0
	c.LastSuccessAt = &now
	return s.repo.Save(ctx, *c)
}

// ResetProviderCircuit manually closes a tripped provider circuit and zeroes
// its counters. Rejected for manual circuits.
func (s *CircuitBreakerService) ResetProviderCircuit(ctx context.Context, circuitID string) error {
	c, err := s.repo.Get(ctx, circuitID)
	if err != nil {
		return err
	}
	if c == nil {
		return fmt.Errorf("%w: %s", ErrUnknownCircuit, circuitID)
	}
	if c.CircuitType != splitflap.CircuitProvider {
		return ErrResetManual
	}

	now := s.now().UTC()
	c.State = splitflap.StateOn
	c.FailureCount = 0
	c.SuccessCount = 0
	c.StateChangedAt = &now

	if err := s.repo.Save(ctx, *c); err != nil {
		return err
	}
	s.appendEvent(ctx, splitflap.EventCircuitOverride, "Circuit "+circuitID+" reset", map[string]any{
		"circuit": circuitID,
	})
	return nil
}

// GetCircuitStatus returns the row for one circuit, nil when unknown.
func (s *CircuitBreakerService) GetCircuitStatus(ctx context.Context, circuitID string) (*splitflap.CircuitBreakerState, error) {
	return s.repo.Get(ctx, circuitID)
}

// GetAllCircuits returns every circuit row.
func (s *CircuitBreakerService) GetAllCircuits(ctx context.Context) ([]splitflap.CircuitBreakerState, error) {
	return s.repo.List(ctx)
}

// appendEvent records circuit transitions in the history log, best effort.
func (s *CircuitBreakerService) appendEvent(ctx context.Context, typ, desc string, meta map[string]any) {
	if s.events == nil {
		return
	}
	if err := s.events.Append(ctx, splitflap.DisplayEvent{
		OccurredAt:  s.now().UTC(),
		Type:        typ,
		Description: desc,
		Metadata:    meta,
	}); err != nil {
		s.log.Warnw("append circuit event failed", "type", typ, "err", err)
	}
}
