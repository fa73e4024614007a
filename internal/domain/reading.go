package domain

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// RawReadingRecord represents the flat JSON structure produced by the collector.
// Timestamp is RFC 3339; when absent, the Kafka message timestamp is used.
type RawReadingRecord struct {
	Region    string  `json:"Region"`
	Indicator string  `json:"Indicator"`
	Value     float64 `json:"Value"`
	Unit      string  `json:"Unit"`
	Timestamp string  `json:"Timestamp"`
}

// RawEvent represents an unprocessed message from the source topic.
type RawEvent struct {
	Key       []byte
	Value     []byte
	Headers   map[string]string
	Topic     string
	Partition int
	Offset    int64
	Timestamp time.Time
	Commit    func(ctx context.Context) error
}

// Reading is one recorded indicator observation for a region. Immutable once
// parsed.
type Reading struct {
	Region    string    `json:"region"`
	Indicator string    `json:"indicator"`
	Value     float64   `json:"value"`
	Unit      string    `json:"unit"`
	Timestamp time.Time `json:"timestamp"`
}

// ParseRawReading deserializes a RawEvent's value into a Reading.
// It expects the flat JSON produced by the collector service.
func ParseRawReading(raw RawEvent) (Reading, error) {
	var rec RawReadingRecord
	if err := json.Unmarshal(raw.Value, &rec); err != nil {
		return Reading{}, fmt.Errorf("parse raw reading: %w", err)
	}

	region := strings.TrimSpace(rec.Region)
	if region == "" {
		return Reading{}, fmt.Errorf("parse raw reading: missing region")
	}
	indicator := strings.ToLower(strings.TrimSpace(rec.Indicator))
	if indicator == "" {
		return Reading{}, fmt.Errorf("parse raw reading: missing indicator")
	}

	ts := raw.Timestamp
	if rec.Timestamp != "" {
		parsed, err := time.Parse(time.RFC3339, rec.Timestamp)
		if err != nil {
			return Reading{}, fmt.Errorf("parse raw reading timestamp %q: %w", rec.Timestamp, err)
		}
		ts = parsed
	}

	return Reading{
		Region:    region,
		Indicator: indicator,
		Value:     rec.Value,
		Unit:      strings.TrimSpace(rec.Unit),
		Timestamp: ts.UTC(),
	}, nil
}
