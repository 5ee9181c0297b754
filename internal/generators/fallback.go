// Package generators holds the content generators the selector dispatches
// to. Each generator is a closed variant behind the shared Generate/Validate
// contract; minor-update generators also expose ShouldSkip.
package generators

import (
	"context"

	"splitflap"
)

const defaultFallbackText = "HELLO FROM THE BOARD"

// Fallback produces a fixed text frame. It is the generator of last resort:
// Generate never fails.
type Fallback struct {
	Text string
}

func NewFallback(text string) *Fallback {
	if text == "" {
		text = defaultFallbackText
	}
	return &Fallback{Text: text}
}

func (g *Fallback) Generate(_ context.Context, _ splitflap.GenerationContext) (splitflap.GeneratedContent, error) {
	return splitflap.GeneratedContent{
		Text:       g.Text,
		OutputMode: splitflap.OutputText,
		Metadata:   map[string]any{"generator": "fallback"},
	}, nil
}

func (g *Fallback) Validate(_ context.Context) error { return nil }
