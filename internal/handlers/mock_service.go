package handlers

import (
	"context"
	"net/http"

	"splitflap"
	"splitflap/internal/logger"
	"splitflap/internal/service"

	"github.com/gin-gonic/gin"
)

// ---- Service Mocks ----

type mockAuth struct {
	signUpID      int
	signUpErr     error
	genTokenToken string
	genTokenErr   error
	parseID       int
	parseErr      error

	lastSignUpUsername string
	lastSignUpPassword string
	lastParseToken     string
}

func (m *mockAuth) SignUp(username, password string) (int, error) {
	m.lastSignUpUsername = username
	m.lastSignUpPassword = password
	return m.signUpID, m.signUpErr
}
func (m *mockAuth) GenerateToken(username, password string) (string, error) {
	return m.genTokenToken, m.genTokenErr
}
func (m *mockAuth) ParseToken(token string) (int, error) {
	m.lastParseToken = token
	return m.parseID, m.parseErr
}

type mockCircuits struct {
	circuits map[string]*splitflap.CircuitBreakerState
	listErr  error
	setErr   error
	resetErr error

	setCalls   []string
	resetCalls []string
}

func newMockCircuits(rows ...splitflap.CircuitBreakerState) *mockCircuits {
	m := &mockCircuits{circuits: make(map[string]*splitflap.CircuitBreakerState, len(rows))}
	for i := range rows {
		m.circuits[rows[i].CircuitID] = &rows[i]
	}
	return m
}

func (m *mockCircuits) SeedDefaults(context.Context) error { return nil }

func (m *mockCircuits) IsCircuitOpen(_ context.Context, circuitID string) bool {
	if c, ok := m.circuits[circuitID]; ok {
		return c.State == splitflap.StateOff
	}
	return false
}

func (m *mockCircuits) IsProviderAvailable(ctx context.Context, providerID string) bool {
	return !m.IsCircuitOpen(ctx, providerID)
}

func (m *mockCircuits) SetCircuitState(_ context.Context, circuitID string, state splitflap.CircuitState) error {
	if m.setErr != nil {
		return m.setErr
	}
	c, ok := m.circuits[circuitID]
	if !ok {
		return service.ErrUnknownCircuit
	}
	m.setCalls = append(m.setCalls, circuitID+":"+string(state))
	c.State = state
	return nil
}

func (m *mockCircuits) RecordFailure(context.Context, string) error { return nil }
func (m *mockCircuits) RecordSuccess(context.Context, string) error { return nil }

func (m *mockCircuits) ResetProviderCircuit(_ context.Context, circuitID string) error {
	if m.resetErr != nil {
		return m.resetErr
	}
	c, ok := m.circuits[circuitID]
	if !ok {
		return service.ErrUnknownCircuit
	}
	if c.CircuitType != splitflap.CircuitProvider {
		return service.ErrResetManual
	}
	m.resetCalls = append(m.resetCalls, circuitID)
	c.State = splitflap.StateOn
	c.FailureCount = 0
	return nil
}

func (m *mockCircuits) GetCircuitStatus(_ context.Context, circuitID string) (*splitflap.CircuitBreakerState, error) {
	return m.circuits[circuitID], nil
}

func (m *mockCircuits) GetAllCircuits(context.Context) ([]splitflap.CircuitBreakerState, error) {
	if m.listErr != nil {
		return nil, m.listErr
	}
	out := make([]splitflap.CircuitBreakerState, 0, len(m.circuits))
	for _, c := range m.circuits {
		out = append(out, *c)
	}
	return out, nil
}

type mockOrchestrator struct {
	result service.GenerateResult
	cached *splitflap.GeneratedContent
	calls  int
}

func (m *mockOrchestrator) GenerateAndSend(context.Context, splitflap.GenerationContext) service.GenerateResult {
	m.calls++
	return m.result
}
func (m *mockOrchestrator) CachedContent() *splitflap.GeneratedContent { return m.cached }

type mockMonitoring struct {
	status service.BoardStatus
	err    error
}

func (m *mockMonitoring) BoardStatus(context.Context) (service.BoardStatus, error) {
	return m.status, m.err
}

type mockEventLog struct {
	resp       []splitflap.DisplayEvent
	err        error
	lastFilter service.LogFilter
}

func (m *mockEventLog) List(_ context.Context, f service.LogFilter) ([]splitflap.DisplayEvent, error) {
	m.lastFilter = f
	return m.resp, m.err
}

// ---- Shared Test Helpers ----

func newTestRouter(s *service.Service) *gin.Engine {
	h := NewHandler(s, logger.Get(logger.ErrorLevel))
	gin.SetMode(gin.TestMode)
	return h.InitRoutes()
}

func authHeader(token string) http.Header {
	h := http.Header{}
	if token != "" {
		h.Set("Authorization", "Bearer "+token)
	}
	return h
}

func manualCircuit(id string, state splitflap.CircuitState) splitflap.CircuitBreakerState {
	return splitflap.CircuitBreakerState{
		CircuitID:    id,
		CircuitType:  splitflap.CircuitManual,
		State:        state,
		DefaultState: splitflap.StateOn,
	}
}

func providerCircuit(id string, state splitflap.CircuitState) splitflap.CircuitBreakerState {
	return splitflap.CircuitBreakerState{
		CircuitID:        id,
		CircuitType:      splitflap.CircuitProvider,
		State:            state,
		DefaultState:     splitflap.StateOn,
		FailureThreshold: 3,
	}
}
