package domain

import "fmt"

// Classifier maps a risk score to a candidate alert level using three
// ascending cut points with downside hysteresis. Entering a level from below
// requires score ≥ θ; falling out of a currently-held level requires
// score < θ − margin. Pure function of (current level, score); all
// persistent state lives in the tracker.
type Classifier struct {
	watch    float64 // θ1
	warning  float64 // θ2
	critical float64 // θ3
	margin   float64 // hysteresis margin m
}

// NewClassifier validates thresholds at startup: strictly increasing within
// (0,1), with a non-negative margin smaller than every threshold gap so the
// hysteresis bands cannot overlap.
func NewClassifier(watch, warning, critical, margin float64) (Classifier, error) {
	if !(0 < watch && watch < warning && warning < critical && critical < 1) {
		return Classifier{}, fmt.Errorf("classifier: thresholds %g < %g < %g must be strictly increasing within (0,1)",
			watch, warning, critical)
	}
	if margin < 0 {
		return Classifier{}, fmt.Errorf("classifier: hysteresis margin %g is negative", margin)
	}
	if margin >= warning-watch || margin >= critical-warning || margin >= watch {
		return Classifier{}, fmt.Errorf("classifier: hysteresis margin %g overlaps threshold bands", margin)
	}
	return Classifier{watch: watch, warning: warning, critical: critical, margin: margin}, nil
}

// Classify returns the candidate level for a score given the region's
// current level. For levels at or below the current one, the exit threshold
// is lowered by the margin, so a score hovering just under a cut point does
// not oscillate.
func (c Classifier) Classify(current AlertLevel, score float64) AlertLevel {
	for level := LevelCritical; level > LevelNormal; level-- {
		threshold := c.entryThreshold(level)
		if current >= level {
			threshold -= c.margin
		}
		if score >= threshold {
			return level
		}
	}
	return LevelNormal
}

func (c Classifier) entryThreshold(level AlertLevel) float64 {
	switch level {
	case LevelCritical:
		return c.critical
	case LevelWarning:
		return c.warning
	default:
		return c.watch
	}
}
