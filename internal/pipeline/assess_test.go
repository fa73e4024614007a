package pipeline_test

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sahil-chaple/jalrakshak-risk-engine/internal/domain"
	"github.com/sahil-chaple/jalrakshak-risk-engine/internal/observability"
	"github.com/sahil-chaple/jalrakshak-risk-engine/internal/pipeline"
	"github.com/sahil-chaple/jalrakshak-risk-engine/internal/tracker"
)

var t0 = time.Date(2025, 7, 14, 6, 0, 0, 0, time.UTC)

func newAssessorFixture(t *testing.T) (*pipeline.Assessor, *tracker.Tracker) {
	t.Helper()

	registry, err := domain.NewRegistry([]domain.IndicatorSpec{
		{Name: "contamination", Min: 0, Max: 100, Direction: domain.HigherIsWorse, Weight: 0.5},
		{Name: "rainfall", Min: 0, Max: 200, Direction: domain.HigherIsWorse, Weight: 0.3},
		{Name: "sanitation", Min: 0, Max: 100, Direction: domain.LowerIsWorse, Weight: 0.2},
	})
	require.NoError(t, err)

	scorer, err := domain.NewScorer(registry, 0.5)
	require.NoError(t, err)

	classifier, err := domain.NewClassifier(0.3, 0.6, 0.8, 0.05)
	require.NoError(t, err)

	trk, err := tracker.New(classifier, 30*time.Minute)
	require.NoError(t, err)

	assessor := pipeline.NewAssessor(scorer, trk, slog.Default(), observability.NewMetricsForTesting())
	return assessor, trk
}

func readingAt(region, indicator string, value float64, ts time.Time) domain.Reading {
	return domain.Reading{Region: region, Indicator: indicator, Value: value, Timestamp: ts}
}

func fullBatch(region string, ts time.Time, contamination float64) []domain.Reading {
	return []domain.Reading{
		readingAt(region, "contamination", contamination, ts),
		readingAt(region, "rainfall", 100, ts),
		readingAt(region, "sanitation", 50, ts),
	}
}

func TestAssessBatch_MultiRegion(t *testing.T) {
	assessor, trk := newAssessorFixture(t)

	readings := append(fullBatch("mumbai", t0, 95), fullBatch("jaipur", t0, 0)...)

	result := assessor.AssessBatch(context.Background(), readings)

	assert.Equal(t, 2, result.Assessed)
	assert.Empty(t, result.Warnings)

	// mumbai: 0.95*0.5 + 0.5*0.3 + 0.5*0.2 = 0.725 → WARNING.
	require.Len(t, result.Transitions, 1)
	assert.Equal(t, "mumbai", result.Transitions[0].Region)
	assert.Equal(t, domain.LevelWarning, result.Transitions[0].To)

	mumbai, ok := trk.Snapshot("mumbai")
	require.True(t, ok)
	assert.Equal(t, domain.LevelWarning, mumbai.Level)
	assert.InDelta(t, 0.725, mumbai.LastScore.Score, 1e-9)
	assert.Len(t, mumbai.LastScore.Contributions, 3)

	jaipur, ok := trk.Snapshot("jaipur")
	require.True(t, ok)
	assert.Equal(t, domain.LevelNormal, jaipur.Level)
}

func TestAssessBatch_UnknownIndicatorWarnsAndContinues(t *testing.T) {
	assessor, trk := newAssessorFixture(t)

	readings := append(fullBatch("mumbai", t0, 50),
		readingAt("mumbai", "ph_level", 7, t0))

	result := assessor.AssessBatch(context.Background(), readings)

	assert.Equal(t, 1, result.Assessed)
	require.Len(t, result.Warnings, 1)
	assert.Equal(t, "ph_level", result.Warnings[0].Indicator)
	assert.ErrorIs(t, result.Warnings[0].Err, domain.ErrUnknownIndicator)

	snap, ok := trk.Snapshot("mumbai")
	require.True(t, ok)
	assert.NotContains(t, snap.LastScore.Contributions, "ph_level")
}

func TestAssessBatch_InsufficientIndicatorsLeavesStateUntouched(t *testing.T) {
	assessor, trk := newAssessorFixture(t)

	// Establish state with a complete batch.
	assessor.AssessBatch(context.Background(), fullBatch("mumbai", t0, 95))
	before, ok := trk.Snapshot("mumbai")
	require.True(t, ok)

	// 1 of 3 indicators with min presence 0.5 → skipped with a warning.
	result := assessor.AssessBatch(context.Background(), []domain.Reading{
		readingAt("mumbai", "contamination", 99, t0.Add(10*time.Minute)),
	})

	assert.Zero(t, result.Assessed)
	assert.Empty(t, result.Transitions)
	require.Len(t, result.Warnings, 1)
	assert.ErrorIs(t, result.Warnings[0].Err, domain.ErrInsufficientIndicators)

	after, _ := trk.Snapshot("mumbai")
	assert.Equal(t, before.LastUpdate, after.LastUpdate, "no score emitted, no update applied")
	assert.Equal(t, before.Level, after.Level)
}

func TestAssessBatch_InsufficientIndicatorsNeverCreatesRegion(t *testing.T) {
	assessor, trk := newAssessorFixture(t)

	result := assessor.AssessBatch(context.Background(), []domain.Reading{
		readingAt("ghost", "contamination", 99, t0),
	})

	assert.Zero(t, result.Assessed)
	require.Len(t, result.Warnings, 1)
	_, ok := trk.Snapshot("ghost")
	assert.False(t, ok)
}

func TestAssessBatch_OutOfOrderWarnsWithoutMutation(t *testing.T) {
	assessor, trk := newAssessorFixture(t)

	assessor.AssessBatch(context.Background(), fullBatch("mumbai", t0, 95))
	before, _ := trk.Snapshot("mumbai")

	result := assessor.AssessBatch(context.Background(), fullBatch("mumbai", t0.Add(-time.Hour), 10))

	assert.Zero(t, result.Assessed)
	require.Len(t, result.Warnings, 1)
	assert.ErrorIs(t, result.Warnings[0].Err, tracker.ErrOutOfOrderUpdate)

	after, _ := trk.Snapshot("mumbai")
	assert.Equal(t, before.Level, after.Level)
	assert.Equal(t, before.LastUpdate, after.LastUpdate)
}

func TestAssessBatch_MultipleTimestampsAssessedInOrder(t *testing.T) {
	assessor, trk := newAssessorFixture(t)

	// One batch carrying three timestamps for the same region, shuffled.
	readings := append(fullBatch("mumbai", t0.Add(20*time.Minute), 40),
		append(fullBatch("mumbai", t0, 95),
			fullBatch("mumbai", t0.Add(10*time.Minute), 90)...)...)

	result := assessor.AssessBatch(context.Background(), readings)

	assert.Equal(t, 3, result.Assessed)
	assert.Empty(t, result.Warnings, "in-batch ordering is by timestamp, not arrival")

	snap, _ := trk.Snapshot("mumbai")
	assert.Equal(t, t0.Add(20*time.Minute), snap.LastUpdate)
	assert.Equal(t, domain.LevelWarning, snap.Level, "downgrade pends behind dwell")
}

func TestAssessBatch_PredictsDisease(t *testing.T) {
	assessor, trk := newAssessorFixture(t)

	assessor.AssessBatch(context.Background(), []domain.Reading{
		readingAt("mumbai", "contamination", 85, t0),
		readingAt("mumbai", "rainfall", 160, t0),
	})

	snap, ok := trk.Snapshot("mumbai")
	require.True(t, ok)
	assert.Equal(t, domain.DiseaseCholera, snap.LikelyDisease)
}

func TestAssessBatch_CancelledContextAbandonsCleanly(t *testing.T) {
	assessor, trk := newAssessorFixture(t)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	result := assessor.AssessBatch(ctx, fullBatch("mumbai", t0, 95))

	assert.Zero(t, result.Assessed)
	_, ok := trk.Snapshot("mumbai")
	assert.False(t, ok, "no partial writes for abandoned batches")
}
