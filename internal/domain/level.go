package domain

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"time"
)

// AlertLevel is the discrete alert severity for a region, totally ordered
// from LevelNormal up to LevelCritical.
type AlertLevel int

const (
	LevelNormal AlertLevel = iota
	LevelWatch
	LevelWarning
	LevelCritical
)

var levelNames = [...]string{"NORMAL", "WATCH", "WARNING", "CRITICAL"}

func (l AlertLevel) String() string {
	if l < LevelNormal || l > LevelCritical {
		return fmt.Sprintf("AlertLevel(%d)", int(l))
	}
	return levelNames[l]
}

// ParseAlertLevel converts the wire name of a level back to its value.
func ParseAlertLevel(s string) (AlertLevel, error) {
	for i, name := range levelNames {
		if name == s {
			return AlertLevel(i), nil
		}
	}
	return LevelNormal, fmt.Errorf("unknown alert level %q", s)
}

// MarshalJSON encodes the level by name so downstream consumers are not
// coupled to the internal ordering.
func (l AlertLevel) MarshalJSON() ([]byte, error) {
	return json.Marshal(l.String())
}

func (l *AlertLevel) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	parsed, err := ParseAlertLevel(s)
	if err != nil {
		return err
	}
	*l = parsed
	return nil
}

// TransitionEvent is the audit record of a committed alert-level change.
type TransitionEvent struct {
	ID        string     `json:"id"`
	Region    string     `json:"region"`
	Timestamp time.Time  `json:"timestamp"`
	From      AlertLevel `json:"from_level"`
	To        AlertLevel `json:"to_level"`
	Score     float64    `json:"triggering_score"`
}

// NewTransitionEvent builds the audit record for a committed transition with
// a deterministic ID, so replays of the same candidate series produce
// identical events.
func NewTransitionEvent(region string, ts time.Time, from, to AlertLevel, score float64) TransitionEvent {
	return TransitionEvent{
		ID:        generateTransitionID(region, ts, from, to),
		Region:    region,
		Timestamp: ts,
		From:      from,
		To:        to,
		Score:     score,
	}
}

// generateTransitionID produces a deterministic ID from the transition's key
// fields, prefixed with the region for log readability.
func generateTransitionID(region string, ts time.Time, from, to AlertLevel) string {
	input := fmt.Sprintf("%s|%d|%s|%s", region, ts.UnixNano(), from, to)
	hash := sha256.Sum256([]byte(input))
	short := hex.EncodeToString(hash[:8])
	if region == "" {
		return short
	}
	return region + "-" + short
}
