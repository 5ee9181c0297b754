package service

import (
	"context"
	"time"

	"splitflap"
)

// BoardStatus is the read-only snapshot served to the admin surface and the
// websocket stream.
type BoardStatus struct {
	HasContent bool                            `json:"has_content"`
	Content    *splitflap.GeneratedContent     `json:"content,omitempty"`
	Circuits   []splitflap.CircuitBreakerState `json:"circuits"`
	Timestamp  time.Time                       `json:"timestamp"`
}

type MonitoringService struct {
	orch     Orchestrator
	circuits CircuitBreaker
}

func NewMonitoringService(orch Orchestrator, circuits CircuitBreaker) *MonitoringService {
	return &MonitoringService{orch: orch, circuits: circuits}
}

var _ Monitoring = (*MonitoringService)(nil)

// BoardStatus combines the orchestrator cache with the circuit summary.
func (s *MonitoringService) BoardStatus(ctx context.Context) (BoardStatus, error) {
	circuits, err := s.circuits.GetAllCircuits(ctx)
	if err != nil {
		return BoardStatus{}, err
	}
	cached := s.orch.CachedContent()
	return BoardStatus{
		HasContent: cached != nil,
		Content:    cached,
		Circuits:   circuits,
		Timestamp:  time.Now().UTC(),
	}, nil
}
