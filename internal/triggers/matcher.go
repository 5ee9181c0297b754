package triggers

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
	"sync"
	"time"
)

// ErrInvalidRegex wraps regex literals that fail to compile.
var ErrInvalidRegex = errors.New("invalid regex pattern")

// compiledPattern matches entity ids. Exactly one of re/exact is set.
type compiledPattern struct {
	re    *regexp.Regexp
	exact string
}

func (p compiledPattern) matches(entityID string) bool {
	if p.re != nil {
		return p.re.MatchString(entityID)
	}
	return p.exact == entityID
}

// compilePattern supports three dialects:
//   - "/…/flags" regex literals (only the "i" flag is meaningful here)
//   - globs containing "*" (translated to an anchored regex)
//   - everything else, matched exactly
func compilePattern(pattern string) (compiledPattern, error) {
	if strings.HasPrefix(pattern, "/") {
		if idx := strings.LastIndex(pattern, "/"); idx > 0 {
			body := pattern[1:idx]
			flags := pattern[idx+1:]
			if strings.Contains(flags, "i") {
				body = "(?i)" + body
			}
			re, err := regexp.Compile(body)
			if err != nil {
				return compiledPattern{}, fmt.Errorf("%w: %q", ErrInvalidRegex, pattern)
			}
			return compiledPattern{re: re}, nil
		}
	}
	if strings.Contains(pattern, "*") {
		translated := "^" + strings.ReplaceAll(regexp.QuoteMeta(pattern), `\*`, ".*") + "$"
		re, err := regexp.Compile(translated)
		if err != nil {
			return compiledPattern{}, fmt.Errorf("%w: %q", ErrInvalidRegex, pattern)
		}
		return compiledPattern{re: re}, nil
	}
	return compiledPattern{exact: pattern}, nil
}

type compiledTrigger struct {
	cfg     TriggerConfig
	pattern compiledPattern
}

// MatchResult reports the outcome of one (entity, state) lookup.
// Debounced means the match is structurally real but the caller should
// suppress the side effect.
type MatchResult struct {
	Matched   bool
	Trigger   *TriggerConfig
	Debounced bool
}

// Matcher scans triggers in configured order and tracks per-trigger debounce
// windows against wall-clock time. Debounce state is keyed by trigger name,
// independent across triggers and entities.
type Matcher struct {
	mu        sync.Mutex
	triggers  []compiledTrigger
	lastMatch map[string]time.Time
	now       func() time.Time
}

// NewMatcher compiles every pattern up front. An invalid regex literal is a
// construction error.
func NewMatcher(cfgs []TriggerConfig) (*Matcher, error) {
	m := &Matcher{
		lastMatch: make(map[string]time.Time),
		now:       time.Now,
	}
	compiled, err := compileAll(cfgs)
	if err != nil {
		return nil, err
	}
	m.triggers = compiled
	return m, nil
}

func compileAll(cfgs []TriggerConfig) ([]compiledTrigger, error) {
	out := make([]compiledTrigger, 0, len(cfgs))
	for _, cfg := range cfgs {
		p, err := compilePattern(cfg.EntityPattern)
		if err != nil {
			return nil, fmt.Errorf("trigger %q: %w", cfg.Name, err)
		}
		out = append(out, compiledTrigger{cfg: cfg, pattern: p})
	}
	return out, nil
}

// Match returns the first trigger whose pattern matches entityID and whose
// state filter (if any) includes state. No trigger matched means a zero result.
func (m *Matcher) Match(entityID, state string) MatchResult {
	m.mu.Lock()
	defer m.mu.Unlock()

	for i := range m.triggers {
		t := &m.triggers[i]
		if !t.pattern.matches(entityID) {
			continue
		}
		if !t.cfg.StateFilter.Contains(state) {
			continue
		}
		return MatchResult{
			Matched:   true,
			Trigger:   &t.cfg,
			Debounced: m.debounced(t.cfg),
		}
	}
	return MatchResult{}
}

// debounced records the first match time per trigger and suppresses repeats
// inside the window. Once the window elapses, the next match restarts it.
func (m *Matcher) debounced(cfg TriggerConfig) bool {
	if cfg.DebounceSeconds <= 0 {
		return false
	}
	now := m.now()
	window := time.Duration(cfg.DebounceSeconds) * time.Second
	if last, ok := m.lastMatch[cfg.Name]; ok && now.Sub(last) < window {
		return true
	}
	m.lastMatch[cfg.Name] = now
	return false
}

// UpdateTriggers hot-swaps the rule list. Debounce state for triggers absent
// from the new list is discarded; the old list stays active if the new one
// fails to compile.
func (m *Matcher) UpdateTriggers(cfgs []TriggerConfig) error {
	compiled, err := compileAll(cfgs)
	if err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	keep := make(map[string]struct{}, len(cfgs))
	for _, cfg := range cfgs {
		keep[cfg.Name] = struct{}{}
	}
	for name := range m.lastMatch {
		if _, ok := keep[name]; !ok {
			delete(m.lastMatch, name)
		}
	}
	m.triggers = compiled
	return nil
}

// Cleanup drops all pending debounce state. Safe to call repeatedly.
func (m *Matcher) Cleanup() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lastMatch = make(map[string]time.Time)
}
