package splitflap

import (
	"fmt"
	"time"
)

// Board geometry: every frame sent to the display is exactly this grid.
const (
	BoardRows = 6
	BoardCols = 22
)

// CircuitType distinguishes human-controlled switches from auto-tripping ones.
type CircuitType string

const (
	CircuitManual   CircuitType = "manual"
	CircuitProvider CircuitType = "provider"
)

// CircuitState follows the electrical-switch metaphor:
// "on" = gated action allowed, "off" (open) = blocked.
type CircuitState string

const (
	StateOn       CircuitState = "on"
	StateOff      CircuitState = "off"
	StateHalfOpen CircuitState = "half_open"
)

// Well-known circuit ids.
const (
	CircuitMaster            = "MASTER"
	CircuitSleepMode         = "SLEEP_MODE"
	CircuitProviderOpenAI    = "PROVIDER_OPENAI"
	CircuitProviderAnthropic = "PROVIDER_ANTHROPIC"
)

// CircuitBreakerState is one persisted row per named circuit.
type CircuitBreakerState struct {
	CircuitID        string       `json:"circuit_id"`
	CircuitType      CircuitType  `json:"circuit_type"`
	State            CircuitState `json:"state"`
	DefaultState     CircuitState `json:"default_state"`
	FailureCount     int          `json:"failure_count"`
	SuccessCount     int          `json:"success_count"`
	FailureThreshold int          `json:"failure_threshold"`
	LastFailureAt    *time.Time   `json:"last_failure_at,omitempty"`
	LastSuccessAt    *time.Time   `json:"last_success_at,omitempty"`
	StateChangedAt   *time.Time   `json:"state_changed_at,omitempty"`
}

// UpdateType separates full regenerations from cheap refreshes.
type UpdateType string

const (
	UpdateMajor UpdateType = "major"
	UpdateMinor UpdateType = "minor"
)

// Personality dimensions injected into AI prompts by generators that use them.
type Personality struct {
	Mood      string `json:"mood,omitempty"`
	Energy    string `json:"energy,omitempty"`
	Humor     string `json:"humor,omitempty"`
	Obsession string `json:"obsession,omitempty"`
}

// GenerationContext is ephemeral, one per generation attempt.
type GenerationContext struct {
	UpdateType  UpdateType     `json:"update_type"`
	Timestamp   time.Time      `json:"timestamp"`
	EventData   map[string]any `json:"event_data,omitempty"`
	Personality *Personality   `json:"personality,omitempty"`
}

// OutputMode selects which of the two content shapes a generator produced.
type OutputMode string

const (
	OutputText   OutputMode = "text"
	OutputLayout OutputMode = "layout"
)

// Layout is a pre-rendered grid of display character codes.
type Layout struct {
	CharacterCodes [][]int `json:"character_codes"`
}

// GeneratedContent is the output of a generator. Text-mode content gets the
// status bar overlaid; layout-mode content is sent as-is.
type GeneratedContent struct {
	Text       string         `json:"text,omitempty"`
	OutputMode OutputMode     `json:"output_mode"`
	Layout     *Layout        `json:"layout,omitempty"`
	Metadata   map[string]any `json:"metadata,omitempty"`
}

// ValidateGrid checks the BoardRows×BoardCols shape and that every cell holds
// a non-negative code. Called before anything is written to the display.
func ValidateGrid(codes [][]int) error {
	if len(codes) != BoardRows {
		return fmt.Errorf("grid has %d rows, want %d", len(codes), BoardRows)
	}
	for i, row := range codes {
		if len(row) != BoardCols {
			return fmt.Errorf("grid row %d has %d columns, want %d", i, len(row), BoardCols)
		}
		for j, code := range row {
			if code < 0 {
				return fmt.Errorf("grid cell [%d][%d] has negative code %d", i, j, code)
			}
		}
	}
	return nil
}

// Conditions is the best-effort weather snapshot used by the status bar.
type Conditions struct {
	TempC     float64 `json:"temp_c"`
	Condition string  `json:"condition,omitempty"`
}

// Display event types recorded in the history log.
const (
	EventSend            = "SEND"
	EventBlocked         = "BLOCKED"
	EventFallback        = "FALLBACK"
	EventCircuitAutoOpen = "CIRCUIT_AUTO_OPEN"
	EventCircuitOverride = "CIRCUIT_OVERRIDE"
	EventError           = "ERROR"
)

// DisplayEvent is a single history log entry.
type DisplayEvent struct {
	EventID     string    `json:"event_id"`
	OccurredAt  time.Time `json:"occurred_at"`
	Type        string    `json:"type"`
	Description string    `json:"description"`
	Metadata    any       `json:"metadata,omitempty"`
}

// User is an admin account for the REST surface.
type User struct {
	ID           int    `json:"id"`
	Username     string `json:"username"`
	PasswordHash string `json:"-"`
}
