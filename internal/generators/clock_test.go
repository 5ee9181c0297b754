package generators

import (
	"context"
	"reflect"
	"testing"
	"time"

	"splitflap"
)

func TestClock_GenerateLayout(t *testing.T) {
	g := NewClock()
	at := time.Date(2026, 8, 27, 14, 5, 0, 0, time.UTC) // Thursday

	content, err := g.Generate(context.Background(), splitflap.GenerationContext{
		UpdateType: splitflap.UpdateMinor,
		Timestamp:  at,
	})
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	if content.OutputMode != splitflap.OutputLayout || content.Layout == nil {
		t.Fatalf("content = %+v, want layout mode", content)
	}

	grid := content.Layout.CharacterCodes
	if err := splitflap.ValidateGrid(grid); err != nil {
		t.Fatalf("clock grid invalid: %v", err)
	}
	if !reflect.DeepEqual(grid[1], splitflap.RenderLineCentered("14:05")) {
		t.Error("row 1 should show the centered time")
	}
	if !reflect.DeepEqual(grid[3], splitflap.RenderLineCentered("THU AUG 27")) {
		t.Error("row 3 should show the centered date")
	}
}

func TestClock_ShouldSkipWithinSameMinute(t *testing.T) {
	now := time.Date(2026, 8, 27, 14, 5, 10, 0, time.UTC)
	g := NewClock()
	g.now = func() time.Time { return now }

	if g.ShouldSkip() {
		t.Fatal("nothing rendered yet; first tick must not skip")
	}

	if _, err := g.Generate(context.Background(), splitflap.GenerationContext{Timestamp: now}); err != nil {
		t.Fatalf("Generate() error = %v", err)
	}

	now = now.Add(20 * time.Second) // same minute
	if !g.ShouldSkip() {
		t.Error("same displayed minute must skip")
	}

	now = now.Add(40 * time.Second) // next minute
	if g.ShouldSkip() {
		t.Error("new minute must render")
	}
}
