// Package analytics rolls tracker snapshots into dashboard summary
// statistics. Purely derived; never mutates region state.
package analytics

import (
	"time"

	"github.com/sahil-chaple/jalrakshak-risk-engine/internal/domain"
	"github.com/sahil-chaple/jalrakshak-risk-engine/internal/tracker"
)

// Trend is the direction of a region's severity over the lookback window.
type Trend string

const (
	TrendRising  Trend = "rising"
	TrendFalling Trend = "falling"
	TrendStable  Trend = "stable"
)

// RegionTrend pairs a region's current level with its trend direction and
// the severity delta behind it.
type RegionTrend struct {
	Region string            `json:"region"`
	Level  domain.AlertLevel `json:"level"`
	Delta  int               `json:"severity_delta"`
	Trend  Trend             `json:"trend"`
}

// Summary is a point-in-time rollup across all tracked regions.
type Summary struct {
	GeneratedAt time.Time              `json:"generated_at"`
	Regions     int                    `json:"regions"`
	LevelCounts map[string]int         `json:"level_counts"`
	Trends      map[string]RegionTrend `json:"trends"`
}

// Summarize folds a set of region snapshots into level counts and per-region
// trends. The trend compares each region's current level with the level it
// held at (last update − lookback), reconstructed from its transition
// history.
func Summarize(snapshots []tracker.RegionSnapshot, lookback time.Duration) Summary {
	counts := map[string]int{
		domain.LevelNormal.String():   0,
		domain.LevelWatch.String():    0,
		domain.LevelWarning.String():  0,
		domain.LevelCritical.String(): 0,
	}

	trends := make(map[string]RegionTrend, len(snapshots))
	for _, snap := range snapshots {
		counts[snap.Level.String()]++

		past := levelAt(snap, snap.LastUpdate.Add(-lookback))
		delta := int(snap.Level) - int(past)
		trends[snap.Region] = RegionTrend{
			Region: snap.Region,
			Level:  snap.Level,
			Delta:  delta,
			Trend:  trendFor(delta),
		}
	}

	return Summary{
		GeneratedAt: domain.Clock().Now().UTC(),
		Regions:     len(snapshots),
		LevelCounts: counts,
		Trends:      trends,
	}
}

// levelAt walks the transition history backwards to find the level the
// region held at the cut-off instant. History is time-ordered, so the answer
// is the From level of the first transition after the cut-off, or the
// current level when nothing transitioned since.
func levelAt(snap tracker.RegionSnapshot, cutoff time.Time) domain.AlertLevel {
	for _, event := range snap.History {
		if event.Timestamp.After(cutoff) {
			return event.From
		}
	}
	return snap.Level
}

func trendFor(delta int) Trend {
	switch {
	case delta > 0:
		return TrendRising
	case delta < 0:
		return TrendFalling
	default:
		return TrendStable
	}
}
