package service

import (
	"context"
	"sync"

	"splitflap"
	"splitflap/internal/logger"
	"splitflap/internal/repository"
)

// Block reasons returned by GenerateAndSend.
const (
	BlockReasonMaster    = "master_circuit_off"
	BlockReasonSleepMode = "sleep_mode_active"
)

// CircuitSnapshot reports which blocking circuits were open at check time.
type CircuitSnapshot struct {
	Master    bool `json:"master"`
	SleepMode bool `json:"sleep_mode"`
}

// GenerateResult is the outcome of one produce-and-push attempt. A blocked
// result is a clean no-op, not an error.
type GenerateResult struct {
	Success      bool             `json:"success"`
	Blocked      bool             `json:"blocked,omitempty"`
	BlockReason  string           `json:"block_reason,omitempty"`
	CircuitState *CircuitSnapshot `json:"circuit_state,omitempty"`
}

// ContentOrchestrator composes circuit checks, generator selection, frame
// decoration and display transport into the single "produce one frame and
// push it" operation. It holds the single-slot cache of the last successful
// major content, which other components use as a readiness gate.
type ContentOrchestrator struct {
	circuits  CircuitBreaker // optional; absent means always allowed
	selector  *ContentSelector
	decorator *FrameDecorator
	fallback  Generator
	display   DisplayClient
	events    repository.EventRepo // optional, best effort
	log       *logger.Logger

	mu     sync.RWMutex
	cached *splitflap.GeneratedContent
}

func NewContentOrchestrator(
	circuits CircuitBreaker,
	selector *ContentSelector,
	decorator *FrameDecorator,
	fallback Generator,
	display DisplayClient,
	events repository.EventRepo,
	log *logger.Logger,
) *ContentOrchestrator {
	return &ContentOrchestrator{
		circuits:  circuits,
		selector:  selector,
		decorator: decorator,
		fallback:  fallback,
		display:   display,
		events:    events,
		log:       log,
	}
}

var _ Orchestrator = (*ContentOrchestrator)(nil)

// GenerateAndSend runs the full pipeline in strict order: MASTER check,
// SLEEP_MODE check, generator selection, generation (with fallback),
// decoration, validation, transport, cache update.
func (o *ContentOrchestrator) GenerateAndSend(ctx context.Context, gc splitflap.GenerationContext) GenerateResult {
	if o.circuitOpen(ctx, splitflap.CircuitMaster) {
		o.log.Infow("update blocked: master circuit off")
		o.appendEvent(ctx, splitflap.EventBlocked, "Update blocked by MASTER circuit", map[string]any{"reason": BlockReasonMaster})
		return GenerateResult{Blocked: true, BlockReason: BlockReasonMaster}
	}
	if o.circuitOpen(ctx, splitflap.CircuitSleepMode) {
		o.log.Infow("update blocked: sleep mode active")
		o.appendEvent(ctx, splitflap.EventBlocked, "Update blocked by SLEEP_MODE circuit", map[string]any{"reason": BlockReasonSleepMode})
		return GenerateResult{
			Blocked:      true,
			BlockReason:  BlockReasonSleepMode,
			CircuitState: &CircuitSnapshot{Master: false, SleepMode: true},
		}
	}

	content, ok := o.produceContent(ctx, gc)
	if !ok {
		return GenerateResult{Success: false}
	}

	grid, err := o.decorator.Decorate(ctx, content)
	if err != nil {
		o.log.Errorw("frame decoration failed", "err", err)
		return GenerateResult{Success: false}
	}
	if err := splitflap.ValidateGrid(grid); err != nil {
		o.log.Errorw("generated frame failed validation; nothing sent", "err", err)
		o.appendEvent(ctx, splitflap.EventError, "Frame validation failed", map[string]any{"err": err.Error()})
		return GenerateResult{Success: false}
	}

	if err := o.display.SendLayout(ctx, grid); err != nil {
		// No inline retry: the next scheduled tick or event is the retry.
		o.log.Errorw("display send failed", "err", err)
		return GenerateResult{Success: false}
	}

	if gc.UpdateType == splitflap.UpdateMajor {
		o.mu.Lock()
		o.cached = &content
		o.mu.Unlock()
	}
	o.appendEvent(ctx, splitflap.EventSend, "Frame sent to display", map[string]any{
		"update_type": string(gc.UpdateType),
		"output_mode": string(content.OutputMode),
		"metadata":    content.Metadata,
	})
	return GenerateResult{Success: true}
}

// produceContent selects and runs a generator, falling back to the static
// generator when selection or generation fails.
func (o *ContentOrchestrator) produceContent(ctx context.Context, gc splitflap.GenerationContext) (splitflap.GeneratedContent, bool) {
	var gen Generator
	var name string

	sel, err := o.selector.Select(gc)
	if err != nil {
		o.log.Warnw("generator selection failed; using fallback", "err", err)
		gen, name = o.fallback, "fallback"
	} else {
		gen, name = sel.Generator, sel.Registration.Name
	}

	content, err := gen.Generate(ctx, gc)
	if err == nil {
		return content, true
	}
	o.log.Errorw("generator failed; using fallback", "generator", name, "err", err)
	o.appendEvent(ctx, splitflap.EventFallback, "Generator failed, fallback content used", map[string]any{
		"generator": name,
		"err":       err.Error(),
	})

	if gen == o.fallback {
		return splitflap.GeneratedContent{}, false
	}
	content, err = o.fallback.Generate(ctx, gc)
	if err != nil {
		o.log.Errorw("fallback generator failed", "err", err)
		return splitflap.GeneratedContent{}, false
	}
	return content, true
}

// CachedContent exposes the last successful major content read-only;
// nil until the first successful major update.
func (o *ContentOrchestrator) CachedContent() *splitflap.GeneratedContent {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.cached
}

// circuitOpen treats an absent circuit breaker service as "always allowed".
func (o *ContentOrchestrator) circuitOpen(ctx context.Context, circuitID string) bool {
	if o.circuits == nil {
		return false
	}
	return o.circuits.IsCircuitOpen(ctx, circuitID)
}

func (o *ContentOrchestrator) appendEvent(ctx context.Context, typ, desc string, meta map[string]any) {
	if o.events == nil {
		return
	}
	if err := o.events.Append(ctx, splitflap.DisplayEvent{Type: typ, Description: desc, Metadata: meta}); err != nil {
		o.log.Warnw("append display event failed", "type", typ, "err", err)
	}
}
