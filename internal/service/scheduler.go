package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"splitflap"
	"splitflap/internal/logger"
)

const minorTickInterval = time.Minute

// CronScheduler drives low-cost minor updates aligned to wall-clock minute
// boundaries. It owns its timer handles explicitly: Start and Stop are the
// only mutators, so independent instances never share teardown state.
//
// Every tick runs inside an error boundary — a failing tick is logged and
// the interval keeps firing.
type CronScheduler struct {
	orch     Orchestrator
	minor    MinorGenerator
	display  DisplayClient
	circuits CircuitBreaker // optional
	log      *logger.Logger
	now      func() time.Time

	mu     sync.Mutex
	timer  *time.Timer
	stopCh chan struct{}
}

func NewCronScheduler(orch Orchestrator, minor MinorGenerator, display DisplayClient, circuits CircuitBreaker, log *logger.Logger) *CronScheduler {
	return &CronScheduler{
		orch:     orch,
		minor:    minor,
		display:  display,
		circuits: circuits,
		log:      log,
		now:      time.Now,
	}
}

var _ Scheduler = (*CronScheduler)(nil)

// delayUntilNextMinute computes how long to wait for the next wall-clock
// minute boundary, sub-second precise.
func delayUntilNextMinute(now time.Time) time.Duration {
	const minuteMs = 60_000
	elapsed := now.UnixMilli() % minuteMs
	return time.Duration(minuteMs-elapsed) * time.Millisecond
}

// Start arms a one-shot timer for the next minute boundary, then ticks every
// 60 seconds. Calling Start while running restarts cleanly — prior timers are
// cleared first, so no duplicate interval leaks.
func (s *CronScheduler) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stopLocked()

	stopCh := make(chan struct{})
	s.stopCh = stopCh

	delay := delayUntilNextMinute(s.now())
	s.log.Infow("minor update scheduler armed", "first_tick_in", delay)
	s.timer = time.AfterFunc(delay, func() {
		s.RunMinorUpdate(context.Background())
		ticker := time.NewTicker(minorTickInterval)
		defer ticker.Stop()
		for {
			select {
			case <-stopCh:
				return
			case <-ticker.C:
				s.RunMinorUpdate(context.Background())
			}
		}
	})
}

// Stop clears any pending timer and interval. Safe to call when never
// started or already stopped.
func (s *CronScheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stopLocked()
}

func (s *CronScheduler) stopLocked() {
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
	if s.stopCh != nil {
		close(s.stopCh)
		s.stopCh = nil
	}
}

// RunMinorUpdate executes one tick. Readiness and circuit gates are clean
// skips; everything past them is caught by the tick's error boundary.
func (s *CronScheduler) RunMinorUpdate(ctx context.Context) {
	// No major content yet: skip entirely, before any circuit check.
	if s.orch.CachedContent() == nil {
		s.log.Infow("waiting for first major update before minor updates")
		return
	}

	if s.circuits != nil && s.circuits.IsCircuitOpen(ctx, splitflap.CircuitSleepMode) {
		s.log.Infow("minor update skipped: sleep mode active")
		return
	}

	if err := s.tick(ctx); err != nil {
		s.log.Errorw("Failed to run minor update:", "err", err)
	}
}

func (s *CronScheduler) tick(ctx context.Context) error {
	if s.minor.ShouldSkip() {
		return nil
	}

	content, err := s.minor.Generate(ctx, splitflap.GenerationContext{
		UpdateType: splitflap.UpdateMinor,
		Timestamp:  s.now(),
	})
	if err != nil {
		return fmt.Errorf("generate minor content: %w", err)
	}
	if content.Layout == nil {
		return fmt.Errorf("minor content has no layout")
	}
	if err := splitflap.ValidateGrid(content.Layout.CharacterCodes); err != nil {
		return fmt.Errorf("minor content grid invalid: %w", err)
	}

	if err := s.display.SendLayout(ctx, content.Layout.CharacterCodes); err != nil {
		return fmt.Errorf("send minor layout: %w", err)
	}
	return nil
}
