package generators

import (
	"splitflap"
	"splitflap/internal/service"
)

// DefaultRegistrations builds the static generator registry: notifications
// first when an event carries data, then the fallback text frame for every
// major update. The clock generator is wired separately as the scheduler's
// minor-update generator.
func DefaultRegistrations(fallback *Fallback) []service.Registration {
	return []service.Registration{
		{
			Name:        "notification",
			Priority:    100,
			UpdateTypes: []splitflap.UpdateType{splitflap.UpdateMajor},
			Eligible: func(gc splitflap.GenerationContext) bool {
				return len(gc.EventData) > 0
			},
			Generator: NewNotification(),
		},
		{
			Name:        "fallback",
			Priority:    0,
			UpdateTypes: []splitflap.UpdateType{splitflap.UpdateMajor},
			Generator:   fallback,
		},
	}
}
