// Package triggers maps external entity state changes to configured display
// refresh rules. Rules live in a YAML file, are validated at load time, and
// can be hot-reloaded while the process runs.
package triggers

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// StateFilter accepts either a single scalar or a list in YAML:
//
//	state_filter: "on"
//	state_filter: ["on", "home"]
type StateFilter []string

func (f *StateFilter) UnmarshalYAML(value *yaml.Node) error {
	switch value.Kind {
	case yaml.ScalarNode:
		var s string
		if err := value.Decode(&s); err != nil {
			return err
		}
		*f = StateFilter{s}
		return nil
	case yaml.SequenceNode:
		var list []string
		if err := value.Decode(&list); err != nil {
			return err
		}
		*f = StateFilter(list)
		return nil
	default:
		return fmt.Errorf("state_filter must be a string or a list of strings")
	}
}

// Contains reports whether the filter includes the given state.
// An empty filter matches any state.
func (f StateFilter) Contains(state string) bool {
	if len(f) == 0 {
		return true
	}
	for _, s := range f {
		if s == state {
			return true
		}
	}
	return false
}

// TriggerConfig is one automation rule.
type TriggerConfig struct {
	Name            string      `yaml:"name" json:"name"`
	EntityPattern   string      `yaml:"entity_pattern" json:"entity_pattern"`
	StateFilter     StateFilter `yaml:"state_filter,omitempty" json:"state_filter,omitempty"`
	DebounceSeconds int         `yaml:"debounce_seconds,omitempty" json:"debounce_seconds,omitempty"`
}

// Config is the top-level trigger file shape.
type Config struct {
	Triggers []TriggerConfig `yaml:"triggers" json:"triggers"`
}

var (
	errMissingName    = errors.New("missing required field: name")
	errMissingPattern = errors.New("missing required field: entity_pattern")
	errNegDebounce    = errors.New("debounce_seconds must be non-negative")
)

// Validate checks every rule. Pattern compilation is also exercised so an
// invalid regex literal fails at load time rather than on first match.
func (c *Config) Validate() error {
	for i, t := range c.Triggers {
		if t.Name == "" {
			return fmt.Errorf("trigger %d: %w", i, errMissingName)
		}
		if t.EntityPattern == "" {
			return fmt.Errorf("trigger %q: %w", t.Name, errMissingPattern)
		}
		if t.DebounceSeconds < 0 {
			return fmt.Errorf("trigger %q: %w", t.Name, errNegDebounce)
		}
		if _, err := compilePattern(t.EntityPattern); err != nil {
			return fmt.Errorf("trigger %q: %w", t.Name, err)
		}
	}
	return nil
}

// Load reads and validates the trigger config at path.
func Load(path string) (*Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read trigger config %q: %w", path, err)
	}
	return Parse(raw)
}

// Parse unmarshals and validates raw YAML.
func Parse(raw []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return nil, fmt.Errorf("parse trigger config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}
