package pipeline

import (
	"context"
	"errors"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/sahil-chaple/jalrakshak-risk-engine/internal/domain"
	"github.com/sahil-chaple/jalrakshak-risk-engine/internal/observability"
	"github.com/sahil-chaple/jalrakshak-risk-engine/internal/tracker"
)

// Warning is a recoverable per-reading or per-region condition collected
// alongside a batch's results. The batch itself still succeeds.
type Warning struct {
	Region    string
	Indicator string
	Timestamp time.Time
	Err       error
}

// BatchResult is the partial-success outcome of assessing one batch.
type BatchResult struct {
	Assessed    int
	Transitions []domain.TransitionEvent
	Warnings    []Warning
}

// Assessor runs parsed readings through the scoring, classification, and
// state-transition stages. It implements the pipeline's Transformer role.
type Assessor struct {
	scorer  *domain.Scorer
	tracker *tracker.Tracker
	logger  *slog.Logger
	metrics *observability.Metrics
}

// NewAssessor wires the scoring stages to the shared region tracker.
func NewAssessor(scorer *domain.Scorer, trk *tracker.Tracker, logger *slog.Logger, metrics *observability.Metrics) *Assessor {
	return &Assessor{scorer: scorer, tracker: trk, logger: logger, metrics: metrics}
}

// regionSeries groups a region's readings by timestamp, ascending, so the
// tracker sees a monotone series even when a batch spans several timestamps.
type regionSeries struct {
	region string
	steps  []timeStep
}

type timeStep struct {
	ts       time.Time
	readings []domain.Reading
}

// AssessBatch scores and classifies every (region, timestamp) group in the
// batch and applies the results to the tracker. Region states are
// independent, so regions fan out to goroutines, while each region's
// timestamps are walked in order on one goroutine, which serializes updates
// to that region. A cancelled context abandons unprocessed regions without
// corrupting state: the tracker only mutates after a region's full candidate
// is computed.
func (a *Assessor) AssessBatch(ctx context.Context, readings []domain.Reading) BatchResult {
	series := groupReadings(readings)

	var (
		mu     sync.Mutex
		result BatchResult
		wg     sync.WaitGroup
	)

	for _, s := range series {
		wg.Add(1)
		go func(s regionSeries) {
			defer wg.Done()
			partial := a.assessRegion(ctx, s)

			mu.Lock()
			result.Assessed += partial.Assessed
			result.Transitions = append(result.Transitions, partial.Transitions...)
			result.Warnings = append(result.Warnings, partial.Warnings...)
			mu.Unlock()
		}(s)
	}
	wg.Wait()

	a.updateLevelGauges()
	return result
}

// assessRegion walks one region's timestamps in order.
func (a *Assessor) assessRegion(ctx context.Context, s regionSeries) BatchResult {
	var result BatchResult

	for _, step := range s.steps {
		if ctx.Err() != nil {
			return result
		}

		score, skipped, err := a.scorer.Score(s.region, step.ts, step.readings)
		for _, r := range skipped {
			a.logger.Warn("dropping reading with unknown indicator",
				"region", r.Region, "indicator", r.Indicator, "timestamp", r.Timestamp)
			a.metrics.ReadingsDropped.WithLabelValues("unknown_indicator").Inc()
			result.Warnings = append(result.Warnings, Warning{
				Region: r.Region, Indicator: r.Indicator, Timestamp: r.Timestamp,
				Err: domain.ErrUnknownIndicator,
			})
		}
		if err != nil {
			if errors.Is(err, domain.ErrInsufficientIndicators) {
				a.logger.Warn("skipping region update", "region", s.region, "timestamp", step.ts, "error", err)
				a.metrics.RegionsSkipped.WithLabelValues("insufficient_indicators").Inc()
				result.Warnings = append(result.Warnings, Warning{
					Region: s.region, Timestamp: step.ts, Err: err,
				})
				continue
			}
			a.logger.Error("score failed", "region", s.region, "timestamp", step.ts, "error", err)
			continue
		}
		a.metrics.ScoresComputed.Inc()

		disease := domain.PredictDisease(rawValues(step.readings))

		_, event, err := a.tracker.Assess(score, disease)
		if err != nil {
			// Only out-of-order updates surface here; state is untouched.
			a.logger.Warn("discarding late update", "region", s.region, "timestamp", step.ts, "error", err)
			a.metrics.RegionsSkipped.WithLabelValues("out_of_order").Inc()
			result.Warnings = append(result.Warnings, Warning{Region: s.region, Timestamp: step.ts, Err: err})
			continue
		}

		result.Assessed++
		if event != nil {
			a.metrics.TransitionsTotal.WithLabelValues(event.To.String()).Inc()
			result.Transitions = append(result.Transitions, *event)
			a.logger.Info("alert level transition",
				"region", event.Region, "from", event.From, "to", event.To,
				"score", event.Score, "timestamp", event.Timestamp)
		}
	}
	return result
}

func (a *Assessor) updateLevelGauges() {
	counts := a.tracker.LevelCounts()
	for level := domain.LevelNormal; level <= domain.LevelCritical; level++ {
		a.metrics.RegionsPerLevel.WithLabelValues(level.String()).Set(float64(counts[level]))
	}
}

// groupReadings buckets readings per region and per timestamp, with both
// regions and timestamps in deterministic ascending order.
func groupReadings(readings []domain.Reading) []regionSeries {
	byRegion := make(map[string]map[time.Time][]domain.Reading)
	for _, r := range readings {
		steps, ok := byRegion[r.Region]
		if !ok {
			steps = make(map[time.Time][]domain.Reading)
			byRegion[r.Region] = steps
		}
		steps[r.Timestamp] = append(steps[r.Timestamp], r)
	}

	regions := make([]string, 0, len(byRegion))
	for region := range byRegion {
		regions = append(regions, region)
	}
	sort.Strings(regions)

	out := make([]regionSeries, 0, len(regions))
	for _, region := range regions {
		stepsByTS := byRegion[region]
		timestamps := make([]time.Time, 0, len(stepsByTS))
		for ts := range stepsByTS {
			timestamps = append(timestamps, ts)
		}
		sort.Slice(timestamps, func(i, j int) bool { return timestamps[i].Before(timestamps[j]) })

		steps := make([]timeStep, 0, len(timestamps))
		for _, ts := range timestamps {
			steps = append(steps, timeStep{ts: ts, readings: stepsByTS[ts]})
		}
		out = append(out, regionSeries{region: region, steps: steps})
	}
	return out
}

// rawValues maps indicator name to raw value for disease inference. Last
// reading wins on duplicates, matching the scorer.
func rawValues(readings []domain.Reading) map[string]float64 {
	values := make(map[string]float64, len(readings))
	for _, r := range readings {
		values[r.Indicator] = r.Value
	}
	return values
}
