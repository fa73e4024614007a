// Package domain models waterborne-disease risk indicators and alert levels.
//
// # Data Source
//
// Indicator readings originate from regional monitoring feeds (water quality
// sensors, district health reports, rainfall gauges, sanitation surveys). The
// upstream collector service normalizes each observation into a flat JSON
// record (region, indicator, value, unit, timestamp) and publishes it to the
// Kafka source topic.
//
// # Indicator Conventions
//
// Each indicator carries a configured reference range and a direction:
//
//	contamination  0–100 %      higher is worse   (bacterial contamination index)
//	sanitation     0–100 %      lower is worse    (sanitation coverage)
//	rainfall       0–200 mm     higher is worse   (24h accumulation, capped)
//	drainage       1–5 score    higher is worse   (1 = good, 5 = failing)
//	temperature    25–45 °C     higher is worse
//	population     0–40000 /km² higher is worse   (density)
//
// A reading is scaled linearly within its range to a [0,1] contribution;
// values outside the range clamp to the nearest bound. Lower-is-worse
// indicators invert the ratio. The composite risk score is the weighted sum
// of contributions with weights renormalized over the indicators actually
// present, so a sparse batch neither counts missing signals as zero risk nor
// inflates the scale.
//
// # Alert Levels
//
// Risk scores classify into four ordered levels using ascending cut points
// with a downside hysteresis margin to prevent boundary flapping:
//
//	NORMAL   score < θ1
//	WATCH    score ≥ θ1
//	WARNING  score ≥ θ2
//	CRITICAL score ≥ θ3
//
// Leaving a level downward additionally requires the score to fall below the
// entry threshold minus the configured margin. Classification is a pure
// function of (current level, score); persistent state lives in the tracker.
//
// # Disease Inference
//
// A threshold heuristic over raw indicator values names the most likely
// waterborne disease for a region (cholera under heavy contamination and
// rainfall, typhoid under contamination with poor sanitation, and so on).
// The label is advisory context for dashboards, not part of scoring.
//
// # ID Generation
//
// Score and transition IDs are deterministic SHA-256 hashes of their key
// fields. Reprocessing the same readings produces the same IDs, which makes
// downstream delivery idempotent and replay safe.
package domain
