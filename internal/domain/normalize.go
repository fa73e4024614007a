package domain

import (
	"errors"
	"fmt"
	"math"
	"sort"
)

// ErrUnknownIndicator marks a reading whose indicator has no configured spec.
// The reading is dropped from scoring; the rest of the batch proceeds.
var ErrUnknownIndicator = errors.New("unknown indicator")

// weightEpsilon is the tolerance when checking that weights sum to 1.0.
const weightEpsilon = 1e-6

// Direction states whether larger or smaller values of an indicator mean
// more risk.
type Direction string

const (
	HigherIsWorse Direction = "higher_is_worse"
	LowerIsWorse  Direction = "lower_is_worse"
)

// IndicatorSpec describes one configured indicator: its reference range,
// risk direction, and contribution weight. Read-only during scoring.
type IndicatorSpec struct {
	Name      string    `yaml:"name"`
	Min       float64   `yaml:"min"`
	Max       float64   `yaml:"max"`
	Direction Direction `yaml:"direction"`
	Weight    float64   `yaml:"weight"`
}

// Registry holds the validated indicator specs for a deployment.
type Registry struct {
	specs map[string]IndicatorSpec
	names []string
}

// NewRegistry validates and indexes a set of indicator specs. Violations are
// configuration errors: the engine must refuse to start on a non-nil error.
func NewRegistry(specs []IndicatorSpec) (*Registry, error) {
	if len(specs) == 0 {
		return nil, errors.New("indicator registry: no specs configured")
	}

	byName := make(map[string]IndicatorSpec, len(specs))
	weightSum := 0.0
	for _, s := range specs {
		if s.Name == "" {
			return nil, errors.New("indicator registry: spec with empty name")
		}
		if _, dup := byName[s.Name]; dup {
			return nil, fmt.Errorf("indicator registry: duplicate spec %q", s.Name)
		}
		if s.Max <= s.Min {
			return nil, fmt.Errorf("indicator %q: invalid range [%g,%g]", s.Name, s.Min, s.Max)
		}
		switch s.Direction {
		case HigherIsWorse, LowerIsWorse:
		default:
			return nil, fmt.Errorf("indicator %q: invalid direction %q", s.Name, s.Direction)
		}
		if s.Weight <= 0 {
			return nil, fmt.Errorf("indicator %q: weight must be positive, got %g", s.Name, s.Weight)
		}
		byName[s.Name] = s
		weightSum += s.Weight
	}

	if math.Abs(weightSum-1.0) > weightEpsilon {
		return nil, fmt.Errorf("indicator registry: weights sum to %g, want 1.0", weightSum)
	}

	names := make([]string, 0, len(byName))
	for name := range byName {
		names = append(names, name)
	}
	sort.Strings(names)

	return &Registry{specs: byName, names: names}, nil
}

// Spec returns the spec for an indicator name.
func (r *Registry) Spec(name string) (IndicatorSpec, bool) {
	s, ok := r.specs[name]
	return s, ok
}

// Size returns the number of configured indicators.
func (r *Registry) Size() int { return len(r.specs) }

// Names returns the configured indicator names in sorted order.
func (r *Registry) Names() []string {
	out := make([]string, len(r.names))
	copy(out, r.names)
	return out
}

// Normalize maps a reading to its [0,1] risk contribution: 0 is no risk,
// 1 is maximal. Values outside the spec range clamp to the nearest bound.
// Returns ErrUnknownIndicator when no spec matches the reading.
func (r *Registry) Normalize(reading Reading) (float64, error) {
	spec, ok := r.specs[reading.Indicator]
	if !ok {
		return 0, fmt.Errorf("%w: %q", ErrUnknownIndicator, reading.Indicator)
	}

	ratio := (reading.Value - spec.Min) / (spec.Max - spec.Min)
	if spec.Direction == LowerIsWorse {
		ratio = 1 - ratio
	}
	return clamp01(ratio), nil
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
