package service

import (
	"context"
	"fmt"
	"time"

	"splitflap"
	"splitflap/internal/logger"
	"splitflap/internal/triggers"
)

// External event types the handler subscribes to.
const (
	EventTypeRefresh      = "vestaboard_refresh"
	EventTypeStateChanged = "state_changed"
)

// EventHandler reacts to external events: explicit refresh requests and
// entity state changes matched through the trigger rules. Circuit checks are
// performed here as a fast reject before the orchestrator runs its own gate;
// unmatched state changes never touch the circuit store at all.
type EventHandler struct {
	orch     Orchestrator
	matcher  *triggers.Matcher
	circuits CircuitBreaker // optional
	source   EventSource
	log      *logger.Logger
	now      func() time.Time

	unsubs []func()
}

func NewEventHandler(orch Orchestrator, matcher *triggers.Matcher, circuits CircuitBreaker, source EventSource, log *logger.Logger) *EventHandler {
	return &EventHandler{
		orch:     orch,
		matcher:  matcher,
		circuits: circuits,
		source:   source,
		log:      log,
		now:      time.Now,
	}
}

var _ EventStream = (*EventHandler)(nil)

// Start subscribes to both event types. Without an event source the handler
// is inert, which is fine for minimal deployments.
func (h *EventHandler) Start() error {
	if h.source == nil {
		h.log.Infow("no event source configured; event handler inactive")
		return nil
	}

	unsubRefresh, err := h.source.Subscribe(EventTypeRefresh, func(ev Event) {
		h.HandleRefresh(context.Background(), ev)
	})
	if err != nil {
		return fmt.Errorf("subscribe %s: %w", EventTypeRefresh, err)
	}
	h.unsubs = append(h.unsubs, unsubRefresh)

	unsubState, err := h.source.Subscribe(EventTypeStateChanged, func(ev Event) {
		h.HandleStateChanged(context.Background(), ev)
	})
	if err != nil {
		h.Stop()
		return fmt.Errorf("subscribe %s: %w", EventTypeStateChanged, err)
	}
	h.unsubs = append(h.unsubs, unsubState)
	return nil
}

// Stop unsubscribes from the event source.
func (h *EventHandler) Stop() {
	for _, unsub := range h.unsubs {
		unsub()
	}
	h.unsubs = nil
}

// HandleRefresh forces a major update unless a blocking circuit is open.
func (h *EventHandler) HandleRefresh(ctx context.Context, ev Event) {
	if blocked, reason := h.blockedByCircuits(ctx); blocked {
		h.log.Infow("refresh event skipped", "reason", reason)
		return
	}
	res := h.orch.GenerateAndSend(ctx, splitflap.GenerationContext{
		UpdateType: splitflap.UpdateMajor,
		Timestamp:  h.now(),
		EventData:  ev.Data,
	})
	if !res.Success && !res.Blocked {
		h.log.Warnw("refresh event did not produce a frame")
	}
}

// HandleStateChanged runs the trigger matcher and, on a fresh (undebounced)
// match, forces a major update carrying the raw event.
func (h *EventHandler) HandleStateChanged(ctx context.Context, ev Event) {
	entityID, state := extractEntityState(ev)
	if entityID == "" {
		return
	}

	match := h.matcher.Match(entityID, state)
	if !match.Matched {
		// Irrelevant event: no circuit check, no storage call.
		return
	}
	if match.Debounced {
		h.log.Debugw("trigger match debounced", "trigger", match.Trigger.Name, "entity", entityID)
		return
	}

	if blocked, reason := h.blockedByCircuits(ctx); blocked {
		h.log.Infow("triggered refresh skipped", "trigger", match.Trigger.Name, "reason", reason)
		return
	}

	h.log.Infow("trigger fired", "trigger", match.Trigger.Name, "entity", entityID, "state", state)
	res := h.orch.GenerateAndSend(ctx, splitflap.GenerationContext{
		UpdateType: splitflap.UpdateMajor,
		Timestamp:  h.now(),
		EventData:  ev.Data,
	})
	if !res.Success && !res.Blocked {
		h.log.Warnw("triggered refresh did not produce a frame", "trigger", match.Trigger.Name)
	}
}

// blockedByCircuits checks MASTER then SLEEP_MODE, failing open on storage
// errors (inside the circuit service) exactly like the orchestrator.
func (h *EventHandler) blockedByCircuits(ctx context.Context) (bool, string) {
	if h.circuits == nil {
		return false, ""
	}
	if h.circuits.IsCircuitOpen(ctx, splitflap.CircuitMaster) {
		return true, BlockReasonMaster
	}
	if h.circuits.IsCircuitOpen(ctx, splitflap.CircuitSleepMode) {
		return true, BlockReasonSleepMode
	}
	return false, ""
}

// extractEntityState pulls entity id and new state out of a raw event.
// The state may arrive flat ("new_state": "on") or nested
// ("new_state": {"state": "on"}).
func extractEntityState(ev Event) (string, string) {
	entityID, _ := ev.Data["entity_id"].(string)

	switch v := ev.Data["new_state"].(type) {
	case string:
		return entityID, v
	case map[string]any:
		s, _ := v["state"].(string)
		return entityID, s
	default:
		return entityID, ""
	}
}
