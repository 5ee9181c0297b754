package generators

import (
	"context"
	"strings"
	"sync"
	"time"

	"splitflap"
)

// Clock is the minor-update generator: a pre-rendered layout frame showing
// the current time and date. ShouldSkip suppresses a tick when the displayed
// minute has not changed since the last render, so the board is not rewritten
// with an identical frame.
type Clock struct {
	now func() time.Time

	mu           sync.Mutex
	lastRendered time.Time
}

func NewClock() *Clock {
	return &Clock{now: time.Now}
}

func (g *Clock) Generate(_ context.Context, gc splitflap.GenerationContext) (splitflap.GeneratedContent, error) {
	now := gc.Timestamp
	if now.IsZero() {
		now = g.now()
	}

	grid := splitflap.BlankGrid()
	grid[1] = splitflap.RenderLineCentered(now.Format("15:04"))
	grid[3] = splitflap.RenderLineCentered(strings.ToUpper(now.Format("Mon Jan 2")))

	g.mu.Lock()
	g.lastRendered = now.Truncate(time.Minute)
	g.mu.Unlock()

	return splitflap.GeneratedContent{
		OutputMode: splitflap.OutputLayout,
		Layout:     &splitflap.Layout{CharacterCodes: grid},
		Metadata:   map[string]any{"generator": "clock", "rendered_at": now.Format(time.RFC3339)},
	}, nil
}

func (g *Clock) Validate(_ context.Context) error { return nil }

// ShouldSkip reports whether the current minute was already rendered.
func (g *Clock) ShouldSkip() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return !g.lastRendered.IsZero() && g.now().Truncate(time.Minute).Equal(g.lastRendered)
}
