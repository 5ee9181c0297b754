package generators

import (
	"context"
	"fmt"
	"strings"

	"splitflap"
)

// Notification renders a short text frame from a triggering event's payload.
// It is only eligible when the generation context carries event data, which
// the selector enforces through its predicate.
type Notification struct{}

func NewNotification() *Notification { return &Notification{} }

func (g *Notification) Generate(_ context.Context, gc splitflap.GenerationContext) (splitflap.GeneratedContent, error) {
	if len(gc.EventData) == 0 {
		return splitflap.GeneratedContent{}, fmt.Errorf("notification generator requires event data")
	}

	text := notificationText(gc.EventData)
	return splitflap.GeneratedContent{
		Text:       text,
		OutputMode: splitflap.OutputText,
		Metadata:   map[string]any{"generator": "notification"},
	}, nil
}

func (g *Notification) Validate(_ context.Context) error { return nil }

// notificationText prefers an explicit message, falling back to a rendered
// "entity is state" line.
func notificationText(data map[string]any) string {
	if msg, ok := data["message"].(string); ok && msg != "" {
		return msg
	}

	entity, _ := data["entity_id"].(string)
	state := ""
	switch v := data["new_state"].(type) {
	case string:
		state = v
	case map[string]any:
		state, _ = v["state"].(string)
	}

	name := strings.ReplaceAll(entity, "_", " ")
	if idx := strings.Index(name, "."); idx >= 0 {
		name = name[idx+1:]
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return "SOMETHING CHANGED"
	}
	if state == "" {
		return strings.ToUpper(name) + " CHANGED"
	}
	return strings.ToUpper(name) + " IS " + strings.ToUpper(state)
}
