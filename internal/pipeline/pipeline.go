package pipeline

import (
	"context"
	"errors"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/sahil-chaple/jalrakshak-risk-engine/internal/domain"
	"github.com/sahil-chaple/jalrakshak-risk-engine/internal/observability"
)

// BatchExtractor reads up to batchSize raw events from the source.
type BatchExtractor interface {
	ExtractBatch(ctx context.Context, batchSize int) ([]domain.RawEvent, error)
}

// TransitionPublisher delivers committed transition events downstream.
type TransitionPublisher interface {
	PublishTransitions(ctx context.Context, events []domain.TransitionEvent) error
}

// BatchAssessor runs parsed readings through the risk engine.
type BatchAssessor interface {
	AssessBatch(ctx context.Context, readings []domain.Reading) BatchResult
}

// Pipeline orchestrates the extract-assess-emit loop.
type Pipeline struct {
	extractor BatchExtractor
	assessor  BatchAssessor
	publisher TransitionPublisher
	logger    *slog.Logger
	metrics   *observability.Metrics
	ready     atomic.Bool
	batchSize int
}

// New creates a Pipeline with the given stages and observability.
func New(e BatchExtractor, a BatchAssessor, p TransitionPublisher, logger *slog.Logger, metrics *observability.Metrics, batchSize int) *Pipeline {
	return &Pipeline{
		extractor: e,
		assessor:  a,
		publisher: p,
		logger:    logger,
		metrics:   metrics,
		batchSize: batchSize,
	}
}

// CheckReadiness returns nil if the pipeline has processed at least one
// batch, or an error describing why the service is not yet ready.
func (p *Pipeline) CheckReadiness(_ context.Context) error {
	if !p.ready.Load() {
		return errors.New("pipeline has not processed any batches yet")
	}
	return nil
}

// Run executes the batch loop until the context is cancelled.
func (p *Pipeline) Run(ctx context.Context) error {
	p.logger.Info("pipeline started", "batch_size", p.batchSize)
	p.metrics.PipelineRunning.Set(1)
	defer p.metrics.PipelineRunning.Set(0)

	// Exponential backoff: start at 200ms, double each retry, cap at 5s.
	// Keeps retry storms short while avoiding tight loops during Kafka outages.
	backoff := 200 * time.Millisecond
	maxBackoff := 5 * time.Second

	for {
		select {
		case <-ctx.Done():
			p.logger.Info("pipeline stopping", "reason", ctx.Err())
			return nil
		default:
		}

		if !p.processBatch(ctx, &backoff, maxBackoff) {
			return nil
		}
	}
}

// processBatch runs one extract-assess-emit cycle. Returns false if the
// pipeline should stop.
func (p *Pipeline) processBatch(ctx context.Context, backoff *time.Duration, maxBackoff time.Duration) bool {
	start := time.Now()

	rawBatch, err := p.extractor.ExtractBatch(ctx, p.batchSize)
	if err != nil {
		if ctx.Err() != nil {
			return false
		}
		p.logger.Error("extract batch failed", "error", err)
		return p.backoffOrStop(ctx, backoff, maxBackoff)
	}

	if len(rawBatch) == 0 {
		return ctx.Err() == nil
	}

	batchID := uuid.NewString()
	p.metrics.ReadingsConsumed.Add(float64(len(rawBatch)))
	p.metrics.BatchSize.Observe(float64(len(rawBatch)))
	*backoff = 200 * time.Millisecond

	readings := p.parseBatch(ctx, batchID, rawBatch)

	result := p.assessor.AssessBatch(ctx, readings)
	if ctx.Err() != nil {
		// Abandoned mid-batch: offsets stay uncommitted, state is consistent.
		return false
	}

	if !p.publishTransitions(ctx, batchID, result.Transitions, backoff, maxBackoff) {
		return false
	}

	for _, raw := range rawBatch {
		p.commitOffset(ctx, raw)
	}

	p.logger.Debug("batch processed",
		"batch_id", batchID,
		"readings", len(readings),
		"assessed", result.Assessed,
		"transitions", len(result.Transitions),
		"warnings", len(result.Warnings),
	)

	p.metrics.BatchProcessingDuration.Observe(time.Since(start).Seconds())
	p.ready.Store(true)
	return true
}

// parseBatch deserializes raw events, dropping malformed ones. Parse
// failures are terminal for a message, so its offset is committed to avoid
// redelivery loops.
func (p *Pipeline) parseBatch(ctx context.Context, batchID string, rawBatch []domain.RawEvent) []domain.Reading {
	readings := make([]domain.Reading, 0, len(rawBatch))
	for _, raw := range rawBatch {
		reading, err := domain.ParseRawReading(raw)
		if err != nil {
			p.logger.Warn("parse failed, skipping message",
				"batch_id", batchID,
				"error", err,
				"topic", raw.Topic,
				"partition", raw.Partition,
				"offset", raw.Offset,
			)
			p.metrics.ReadingsDropped.WithLabelValues("parse_error").Inc()
			p.commitOffset(ctx, raw)
			continue
		}
		readings = append(readings, reading)
	}
	return readings
}

// publishTransitions delivers committed transitions, retrying with backoff.
// Tracker state already reflects the transitions, so delivery must not be
// dropped on a transient sink failure; replaying the batch instead would be
// rejected as out-of-order. Returns false if the pipeline should stop.
func (p *Pipeline) publishTransitions(ctx context.Context, batchID string, events []domain.TransitionEvent, backoff *time.Duration, maxBackoff time.Duration) bool {
	if len(events) == 0 {
		return true
	}
	for {
		err := p.publisher.PublishTransitions(ctx, events)
		if err == nil {
			return true
		}
		if ctx.Err() != nil {
			return false
		}
		p.logger.Error("publish transitions failed", "batch_id", batchID, "count", len(events), "error", err)
		if !p.backoffOrStop(ctx, backoff, maxBackoff) {
			return false
		}
	}
}

// backoffOrStop checks for context cancellation, sleeps with the current
// backoff, and advances the backoff. Returns false if the pipeline should stop.
func (p *Pipeline) backoffOrStop(ctx context.Context, backoff *time.Duration, maxBackoff time.Duration) bool {
	if ctx.Err() != nil {
		return false
	}
	if !sleepWithContext(ctx, *backoff) {
		return false
	}
	*backoff = nextBackoff(*backoff, maxBackoff)
	return true
}

// commitOffset commits the message offset if a commit function is available.
func (p *Pipeline) commitOffset(ctx context.Context, raw domain.RawEvent) {
	if raw.Commit == nil {
		return
	}
	if err := raw.Commit(ctx); err != nil {
		p.logger.Warn("commit offset failed", "error", err,
			"topic", raw.Topic, "partition", raw.Partition, "offset", raw.Offset)
	}
}

func nextBackoff(current, maxBackoff time.Duration) time.Duration {
	next := current * 2
	if next > maxBackoff {
		return maxBackoff
	}
	return next
}

func sleepWithContext(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return true
	}

	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}
