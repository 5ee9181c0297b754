package service

import (
	"context"
	"sync"
	"time"

	"splitflap"
	"splitflap/internal/logger"
)

// ---- Shared fakes for service-layer tests ----

func testLog() *logger.Logger {
	return logger.Get(logger.ErrorLevel)
}

type fakeCircuitRepo struct {
	mu      sync.Mutex
	rows    map[string]splitflap.CircuitBreakerState
	getErr  error
	saveErr error
	listErr error
	saves   int
}

func newFakeCircuitRepo(rows ...splitflap.CircuitBreakerState) *fakeCircuitRepo {
	m := make(map[string]splitflap.CircuitBreakerState, len(rows))
	for _, r := range rows {
		m[r.CircuitID] = r
	}
	return &fakeCircuitRepo{rows: m}
}

func (f *fakeCircuitRepo) Get(_ context.Context, id string) (*splitflap.CircuitBreakerState, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.getErr != nil {
		return nil, f.getErr
	}
	row, ok := f.rows[id]
	if !ok {
		return nil, nil
	}
	cp := row
	return &cp, nil
}

func (f *fakeCircuitRepo) Save(_ context.Context, c splitflap.CircuitBreakerState) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.saves++
	if f.saveErr != nil {
		return f.saveErr
	}
	f.rows[c.CircuitID] = c
	return nil
}

func (f *fakeCircuitRepo) List(_ context.Context) ([]splitflap.CircuitBreakerState, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.listErr != nil {
		return nil, f.listErr
	}
	out := make([]splitflap.CircuitBreakerState, 0, len(f.rows))
	for _, r := range f.rows {
		out = append(out, r)
	}
	return out, nil
}

type memEventRepo struct {
	mu        sync.Mutex
	events    []splitflap.DisplayEvent
	appendErr error
}

func (f *memEventRepo) Append(_ context.Context, e splitflap.DisplayEvent) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.appendErr != nil {
		return f.appendErr
	}
	f.events = append(f.events, e)
	return nil
}

func (f *memEventRepo) List(_ context.Context, from, to time.Time, typ string) ([]splitflap.DisplayEvent, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []splitflap.DisplayEvent
	for _, e := range f.events {
		if !from.IsZero() && e.OccurredAt.Before(from) {
			continue
		}
		if !to.IsZero() && e.OccurredAt.After(to) {
			continue
		}
		if typ != "" && e.Type != typ {
			continue
		}
		out = append(out, e)
	}
	return out, nil
}

func (f *memEventRepo) typesLogged() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, 0, len(f.events))
	for _, e := range f.events {
		out = append(out, e.Type)
	}
	return out
}

// stubBreaker is a canned CircuitBreaker that records which circuits were
// checked, so tests can assert on check order and absence.
type stubBreaker struct {
	mu      sync.Mutex
	open    map[string]bool
	checked []string
}

func newStubBreaker() *stubBreaker {
	return &stubBreaker{open: make(map[string]bool)}
}

func (s *stubBreaker) SeedDefaults(context.Context) error { return nil }

func (s *stubBreaker) IsCircuitOpen(_ context.Context, circuitID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.checked = append(s.checked, circuitID)
	return s.open[circuitID]
}

func (s *stubBreaker) IsProviderAvailable(ctx context.Context, providerID string) bool {
	return !s.IsCircuitOpen(ctx, providerID)
}

func (s *stubBreaker) SetCircuitState(context.Context, string, splitflap.CircuitState) error {
	return nil
}
func (s *stubBreaker) RecordFailure(context.Context, string) error        { return nil }
func (s *stubBreaker) RecordSuccess(context.Context, string) error        { return nil }
func (s *stubBreaker) ResetProviderCircuit(context.Context, string) error { return nil }
func (s *stubBreaker) GetCircuitStatus(context.Context, string) (*splitflap.CircuitBreakerState, error) {
	return nil, nil
}
func (s *stubBreaker) GetAllCircuits(context.Context) ([]splitflap.CircuitBreakerState, error) {
	return nil, nil
}

func (s *stubBreaker) checkedCircuits() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, len(s.checked))
	copy(out, s.checked)
	return out
}

// scriptedGenerator returns canned content or a canned error.
type scriptedGenerator struct {
	content splitflap.GeneratedContent
	err     error
	calls   int
	lastGC  splitflap.GenerationContext
}

func (g *scriptedGenerator) Generate(_ context.Context, gc splitflap.GenerationContext) (splitflap.GeneratedContent, error) {
	g.calls++
	g.lastGC = gc
	return g.content, g.err
}

func (g *scriptedGenerator) Validate(context.Context) error { return nil }

// scriptedMinor adds ShouldSkip to scriptedGenerator.
type scriptedMinor struct {
	scriptedGenerator
	skip      bool
	skipCalls int
}

func (g *scriptedMinor) ShouldSkip() bool {
	g.skipCalls++
	return g.skip
}

// recordingDisplay captures every grid sent to it.
type recordingDisplay struct {
	mu   sync.Mutex
	sent [][][]int
	err  error
}

func (d *recordingDisplay) SendLayout(_ context.Context, codes [][]int) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.err != nil {
		return d.err
	}
	cp := make([][]int, len(codes))
	for i, row := range codes {
		cp[i] = append([]int(nil), row...)
	}
	d.sent = append(d.sent, cp)
	return nil
}

func (d *recordingDisplay) sentCount() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.sent)
}

type fakeWeather struct {
	cond  splitflap.Conditions
	err   error
	calls int
}

func (w *fakeWeather) CurrentConditions(context.Context) (splitflap.Conditions, error) {
	w.calls++
	if w.err != nil {
		return splitflap.Conditions{}, w.err
	}
	return w.cond, nil
}

// scriptedSource hands subscribed callbacks back to the test for direct invocation.
type scriptedSource struct {
	handlers map[string]func(Event)
	subErr   error
	unsubbed int
}

func newScriptedSource() *scriptedSource {
	return &scriptedSource{handlers: make(map[string]func(Event))}
}

func (s *scriptedSource) Subscribe(eventType string, handler func(Event)) (func(), error) {
	if s.subErr != nil {
		return nil, s.subErr
	}
	s.handlers[eventType] = handler
	return func() { s.unsubbed++ }, nil
}

// layoutContent builds valid layout-mode content with a marker code.
func layoutContent(marker int) splitflap.GeneratedContent {
	grid := splitflap.BlankGrid()
	grid[0][0] = marker
	return splitflap.GeneratedContent{
		OutputMode: splitflap.OutputLayout,
		Layout:     &splitflap.Layout{CharacterCodes: grid},
	}
}
