package domain

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"time"
)

// ErrInsufficientIndicators marks a (region, timestamp) with too few known
// indicators present to score. No score is emitted and region state is left
// untouched.
var ErrInsufficientIndicators = errors.New("insufficient indicators")

// RiskScore is the composite [0,1] risk assessment for a region at one
// timestamp, with the per-indicator contribution breakdown. Derived and
// immutable.
type RiskScore struct {
	ID            string             `json:"id"`
	Region        string             `json:"region"`
	Timestamp     time.Time          `json:"timestamp"`
	Score         float64            `json:"score"`
	Contributions map[string]float64 `json:"contributions"`
}

// Scorer combines normalized indicator contributions into composite risk
// scores. Pure computation; safe for concurrent use.
type Scorer struct {
	registry    *Registry
	minPresence float64
}

// NewScorer creates a Scorer over the given registry. minPresence is the
// minimum fraction of configured indicators that must be present at a
// (region, timestamp) for a score to be emitted, in (0,1].
func NewScorer(registry *Registry, minPresence float64) (*Scorer, error) {
	if registry == nil {
		return nil, errors.New("scorer: nil registry")
	}
	if minPresence <= 0 || minPresence > 1 {
		return nil, fmt.Errorf("scorer: min presence fraction %g outside (0,1]", minPresence)
	}
	return &Scorer{registry: registry, minPresence: minPresence}, nil
}

// Score computes the composite risk score for one region at one timestamp.
// Readings with unknown indicators are skipped and reported back so the
// caller can surface them; they never abort the computation. When the same
// indicator appears more than once, the last reading wins. Weights are
// renormalized to sum to 1.0 over the indicators actually present.
//
// Returns ErrInsufficientIndicators when fewer than the configured fraction
// of known indicators are present; the returned skipped slice is still valid.
func (s *Scorer) Score(region string, ts time.Time, readings []Reading) (RiskScore, []Reading, error) {
	contributions := make(map[string]float64, len(readings))
	var skipped []Reading

	for _, reading := range readings {
		contribution, err := s.registry.Normalize(reading)
		if err != nil {
			skipped = append(skipped, reading)
			continue
		}
		contributions[reading.Indicator] = contribution
	}

	present := len(contributions)
	if float64(present) < s.minPresence*float64(s.registry.Size()) {
		return RiskScore{}, skipped, fmt.Errorf("%w: region %q has %d of %d indicators at %s",
			ErrInsufficientIndicators, region, present, s.registry.Size(), ts.Format(time.RFC3339))
	}

	presentWeight := 0.0
	for name := range contributions {
		spec, _ := s.registry.Spec(name)
		presentWeight += spec.Weight
	}

	composite := 0.0
	for name, contribution := range contributions {
		spec, _ := s.registry.Spec(name)
		composite += (spec.Weight / presentWeight) * contribution
	}

	return RiskScore{
		ID:            generateScoreID(region, ts),
		Region:        region,
		Timestamp:     ts,
		Score:         clamp01(composite),
		Contributions: contributions,
	}, skipped, nil
}

// generateScoreID produces a deterministic ID for the (region, timestamp)
// score so reprocessed batches dedupe downstream.
func generateScoreID(region string, ts time.Time) string {
	input := fmt.Sprintf("%s|%d", region, ts.UnixNano())
	hash := sha256.Sum256([]byte(input))
	return "score-" + hex.EncodeToString(hash[:8])
}
