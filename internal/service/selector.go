package service

import (
	"errors"
	"sort"

	"splitflap"
)

// ErrNoGenerator means no registration was eligible for the context.
var ErrNoGenerator = errors.New("no eligible generator for context")

// Registration binds a generator to its selection policy: which update types
// it serves, how preferred it is, and an optional eligibility predicate
// (e.g. notification generators require event data).
type Registration struct {
	Name        string
	Priority    int // higher wins
	UpdateTypes []splitflap.UpdateType
	Eligible    func(gc splitflap.GenerationContext) bool
	Generator   Generator
}

func (r *Registration) servesUpdateType(t splitflap.UpdateType) bool {
	if len(r.UpdateTypes) == 0 {
		return true
	}
	for _, ut := range r.UpdateTypes {
		if ut == t {
			return true
		}
	}
	return false
}

// Selection is the chosen generator together with its registration.
type Selection struct {
	Generator    Generator
	Registration *Registration
}

// ContentSelector picks the highest-priority eligible registration for a
// generation context. The registry is static after construction.
type ContentSelector struct {
	regs []Registration
}

// NewContentSelector orders registrations by descending priority once.
// Ties keep configured order.
func NewContentSelector(regs []Registration) *ContentSelector {
	ordered := make([]Registration, len(regs))
	copy(ordered, regs)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].Priority > ordered[j].Priority
	})
	return &ContentSelector{regs: ordered}
}

// Select returns the first registration serving the context's update type
// whose eligibility predicate (if any) passes.
func (s *ContentSelector) Select(gc splitflap.GenerationContext) (Selection, error) {
	for i := range s.regs {
		r := &s.regs[i]
		if !r.servesUpdateType(gc.UpdateType) {
			continue
		}
		if r.Eligible != nil && !r.Eligible(gc) {
			continue
		}
		return Selection{Generator: r.Generator, Registration: r}, nil
	}
	return Selection{}, ErrNoGenerator
}
