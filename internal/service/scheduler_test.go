package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"splitflap"
)

// fixedOrch satisfies Orchestrator with a canned cache and call counter.
type fixedOrch struct {
	cached *splitflap.GeneratedContent
	calls  int
}

func (o *fixedOrch) GenerateAndSend(context.Context, splitflap.GenerationContext) GenerateResult {
	o.calls++
	return GenerateResult{Success: true}
}

func (o *fixedOrch) CachedContent() *splitflap.GeneratedContent { return o.cached }

func newSchedulerFixture(cached bool) (*CronScheduler, *fixedOrch, *scriptedMinor, *recordingDisplay, *stubBreaker) {
	orch := &fixedOrch{}
	if cached {
		orch.cached = &splitflap.GeneratedContent{Text: "CACHED", OutputMode: splitflap.OutputText}
	}
	minor := &scriptedMinor{scriptedGenerator: scriptedGenerator{content: layoutContent(5)}}
	display := &recordingDisplay{}
	breaker := newStubBreaker()
	return NewCronScheduler(orch, minor, display, breaker, testLog()), orch, minor, display, breaker
}

func TestDelayUntilNextMinute(t *testing.T) {
	tests := []struct {
		at   time.Time
		want time.Duration
	}{
		{time.Date(2026, 8, 27, 10, 30, 45, 500*int(time.Millisecond), time.UTC), 14500 * time.Millisecond},
		{time.Date(2026, 8, 27, 10, 30, 0, 0, time.UTC), 60 * time.Second},
		{time.Date(2026, 8, 27, 10, 30, 59, 999*int(time.Millisecond), time.UTC), time.Millisecond},
	}
	for _, tt := range tests {
		if got := delayUntilNextMinute(tt.at); got != tt.want {
			t.Errorf("delayUntilNextMinute(%s) = %v, want %v", tt.at.Format("15:04:05.000"), got, tt.want)
		}
	}
}

func TestScheduler_SkipsBeforeFirstMajorUpdate(t *testing.T) {
	sched, _, minor, display, breaker := newSchedulerFixture(false)

	sched.RunMinorUpdate(context.Background())

	if minor.skipCalls != 0 || minor.calls != 0 {
		t.Error("no generator activity is allowed before the first major update")
	}
	if display.sentCount() != 0 {
		t.Error("nothing may be sent before the first major update")
	}
	// The readiness gate comes before any circuit check.
	if got := breaker.checkedCircuits(); len(got) != 0 {
		t.Errorf("circuits checked while cache empty: %v", got)
	}
}

func TestScheduler_SleepModeSkipsTick(t *testing.T) {
	sched, _, minor, display, breaker := newSchedulerFixture(true)
	breaker.open[splitflap.CircuitSleepMode] = true

	sched.RunMinorUpdate(context.Background())

	if minor.calls != 0 {
		t.Error("sleep mode must suppress minor generation")
	}
	if display.sentCount() != 0 {
		t.Error("sleep mode must suppress sending")
	}
}

func TestScheduler_ShouldSkipSuppressesSend(t *testing.T) {
	sched, _, minor, display, _ := newSchedulerFixture(true)
	minor.skip = true

	sched.RunMinorUpdate(context.Background())

	if minor.skipCalls != 1 {
		t.Errorf("ShouldSkip calls = %d, want 1", minor.skipCalls)
	}
	if minor.calls != 0 {
		t.Error("Generate must not run when ShouldSkip is true")
	}
	if display.sentCount() != 0 {
		t.Error("nothing may be sent on a skipped tick")
	}
}

func TestScheduler_TickSendsMinorLayout(t *testing.T) {
	sched, _, minor, display, _ := newSchedulerFixture(true)

	sched.RunMinorUpdate(context.Background())

	if minor.calls != 1 {
		t.Fatalf("Generate calls = %d, want 1", minor.calls)
	}
	if minor.lastGC.UpdateType != splitflap.UpdateMinor {
		t.Errorf("update type = %s, want minor", minor.lastGC.UpdateType)
	}
	if display.sentCount() != 1 {
		t.Errorf("display received %d frames, want 1", display.sentCount())
	}
}

func TestScheduler_TickErrorIsContained(t *testing.T) {
	sched, _, minor, display, _ := newSchedulerFixture(true)
	minor.err = errors.New("render failed")

	// Must not panic; the error boundary logs and moves on.
	sched.RunMinorUpdate(context.Background())
	if display.sentCount() != 0 {
		t.Error("failed tick must not send")
	}

	// Next tick recovers once the generator does.
	minor.err = nil
	sched.RunMinorUpdate(context.Background())
	if display.sentCount() != 1 {
		t.Error("scheduler must keep ticking after a failed tick")
	}
}

func TestScheduler_InvalidMinorGridNeverSent(t *testing.T) {
	sched, _, minor, display, _ := newSchedulerFixture(true)
	minor.content = splitflap.GeneratedContent{
		OutputMode: splitflap.OutputLayout,
		Layout:     &splitflap.Layout{CharacterCodes: [][]int{{1}}},
	}

	sched.RunMinorUpdate(context.Background())

	if display.sentCount() != 0 {
		t.Error("malformed minor grid must never reach the display")
	}
}

func TestScheduler_StopIsIdempotent(t *testing.T) {
	sched, _, _, _, _ := newSchedulerFixture(true)

	// Never started, stopped twice: must not panic on a nil timer or
	// double-close a channel.
	sched.Stop()
	sched.Stop()

	sched.Start()
	sched.Stop()
	sched.Stop()
}
