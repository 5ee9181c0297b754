package service

import (
	"context"
	"errors"
	"testing"

	"splitflap"
	"splitflap/internal/triggers"
)

func newEventFixture(t *testing.T, cfgs []triggers.TriggerConfig) (*EventHandler, *fixedOrch, *stubBreaker, *scriptedSource) {
	t.Helper()
	matcher, err := triggers.NewMatcher(cfgs)
	if err != nil {
		t.Fatalf("NewMatcher() error = %v", err)
	}
	orch := &fixedOrch{}
	breaker := newStubBreaker()
	source := newScriptedSource()
	return NewEventHandler(orch, matcher, breaker, source, testLog()), orch, breaker, source
}

func doorTrigger(debounce int) triggers.TriggerConfig {
	return triggers.TriggerConfig{
		Name:            "front-door",
		EntityPattern:   "binary_sensor.front_door",
		StateFilter:     triggers.StateFilter{"on"},
		DebounceSeconds: debounce,
	}
}

func TestEventHandler_StartSubscribesBothTypes(t *testing.T) {
	h, _, _, source := newEventFixture(t, nil)

	if err := h.Start(); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	for _, typ := range []string{EventTypeRefresh, EventTypeStateChanged} {
		if source.handlers[typ] == nil {
			t.Errorf("no subscription for %q", typ)
		}
	}

	h.Stop()
	if source.unsubbed != 2 {
		t.Errorf("unsubscribed %d times, want 2", source.unsubbed)
	}
}

func TestEventHandler_StartWithoutSourceIsInert(t *testing.T) {
	matcher, _ := triggers.NewMatcher(nil)
	h := NewEventHandler(&fixedOrch{}, matcher, newStubBreaker(), nil, testLog())

	if err := h.Start(); err != nil {
		t.Fatalf("Start() without source error = %v", err)
	}
	h.Stop()
}

func TestEventHandler_SubscribeFailurePropagates(t *testing.T) {
	h, _, _, source := newEventFixture(t, nil)
	source.subErr = errors.New("redis down")

	if err := h.Start(); err == nil {
		t.Fatal("Start() should fail when subscription fails")
	}
}

func TestEventHandler_RefreshForcesMajorUpdate(t *testing.T) {
	h, orch, _, _ := newEventFixture(t, nil)

	h.HandleRefresh(context.Background(), Event{
		EventType: EventTypeRefresh,
		Data:      map[string]any{"message": "DINNER TIME"},
	})

	if orch.calls != 1 {
		t.Fatalf("orchestrator calls = %d, want 1", orch.calls)
	}
}

func TestEventHandler_RefreshBlockedByMaster(t *testing.T) {
	h, orch, breaker, _ := newEventFixture(t, nil)
	breaker.open[splitflap.CircuitMaster] = true

	h.HandleRefresh(context.Background(), Event{EventType: EventTypeRefresh})

	if orch.calls != 0 {
		t.Error("refresh must be dropped while MASTER is off")
	}
}

func TestEventHandler_StateChangeMatchFiresUpdate(t *testing.T) {
	h, orch, _, _ := newEventFixture(t, []triggers.TriggerConfig{doorTrigger(0)})

	h.HandleStateChanged(context.Background(), Event{
		EventType: EventTypeStateChanged,
		Data: map[string]any{
			"entity_id": "binary_sensor.front_door",
			"new_state": "on",
		},
	})

	if orch.calls != 1 {
		t.Fatalf("orchestrator calls = %d, want 1", orch.calls)
	}
}

func TestEventHandler_StateChangeNestedNewState(t *testing.T) {
	h, orch, _, _ := newEventFixture(t, []triggers.TriggerConfig{doorTrigger(0)})

	h.HandleStateChanged(context.Background(), Event{
		EventType: EventTypeStateChanged,
		Data: map[string]any{
			"entity_id": "binary_sensor.front_door",
			"new_state": map[string]any{"state": "on"},
		},
	})

	if orch.calls != 1 {
		t.Fatalf("orchestrator calls = %d, want 1 for nested new_state", orch.calls)
	}
}

func TestEventHandler_UnmatchedEventTouchesNothing(t *testing.T) {
	h, orch, breaker, _ := newEventFixture(t, []triggers.TriggerConfig{doorTrigger(0)})

	h.HandleStateChanged(context.Background(), Event{
		EventType: EventTypeStateChanged,
		Data: map[string]any{
			"entity_id": "sensor.kitchen_humidity",
			"new_state": "41",
		},
	})

	if orch.calls != 0 {
		t.Error("unmatched event must not trigger an update")
	}
	// The cheap matcher runs first: no circuit reads for irrelevant events.
	if got := breaker.checkedCircuits(); len(got) != 0 {
		t.Errorf("circuits checked for unmatched event: %v", got)
	}
}

func TestEventHandler_StateFilterMismatchIgnored(t *testing.T) {
	h, orch, _, _ := newEventFixture(t, []triggers.TriggerConfig{doorTrigger(0)})

	h.HandleStateChanged(context.Background(), Event{
		EventType: EventTypeStateChanged,
		Data: map[string]any{
			"entity_id": "binary_sensor.front_door",
			"new_state": "off",
		},
	})

	if orch.calls != 0 {
		t.Error("state outside the filter must not trigger an update")
	}
}

func TestEventHandler_DebouncedMatchSuppressed(t *testing.T) {
	h, orch, _, _ := newEventFixture(t, []triggers.TriggerConfig{doorTrigger(60)})
	ev := Event{
		EventType: EventTypeStateChanged,
		Data: map[string]any{
			"entity_id": "binary_sensor.front_door",
			"new_state": "on",
		},
	}

	h.HandleStateChanged(context.Background(), ev)
	h.HandleStateChanged(context.Background(), ev)

	if orch.calls != 1 {
		t.Fatalf("orchestrator calls = %d, want 1 (second match inside debounce window)", orch.calls)
	}
}

func TestEventHandler_MatchBlockedBySleepMode(t *testing.T) {
	h, orch, breaker, _ := newEventFixture(t, []triggers.TriggerConfig{doorTrigger(0)})
	breaker.open[splitflap.CircuitSleepMode] = true

	h.HandleStateChanged(context.Background(), Event{
		EventType: EventTypeStateChanged,
		Data: map[string]any{
			"entity_id": "binary_sensor.front_door",
			"new_state": "on",
		},
	})

	if orch.calls != 0 {
		t.Error("matched event must still respect sleep mode")
	}
}

func TestEventHandler_MissingEntityIDIgnored(t *testing.T) {
	h, orch, _, _ := newEventFixture(t, []triggers.TriggerConfig{doorTrigger(0)})

	h.HandleStateChanged(context.Background(), Event{
		EventType: EventTypeStateChanged,
		Data:      map[string]any{"new_state": "on"},
	})

	if orch.calls != 0 {
		t.Error("event without entity_id must be ignored")
	}
}
