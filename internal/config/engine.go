package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/sahil-chaple/jalrakshak-risk-engine/internal/domain"
)

// Duration decodes YAML duration strings like "30m" or "2h".
type Duration time.Duration

func (d *Duration) UnmarshalYAML(node *yaml.Node) error {
	var s string
	if err := node.Decode(&s); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", s, err)
	}
	*d = Duration(parsed)
	return nil
}

// Engine is the operator-supplied engine surface: indicator specs,
// classification thresholds, and transition tuning. Loaded once at startup;
// read-only afterwards. Validation failures are fatal; the engine refuses
// to initialize on a bad file.
type Engine struct {
	Indicators []domain.IndicatorSpec `yaml:"indicators"`

	Thresholds struct {
		Watch    float64 `yaml:"watch"`    // θ1
		Warning  float64 `yaml:"warning"`  // θ2
		Critical float64 `yaml:"critical"` // θ3
	} `yaml:"thresholds"`

	HysteresisMargin float64  `yaml:"hysteresis_margin"`
	DowngradeDwell   Duration `yaml:"downgrade_dwell"`
	MinPresence      float64  `yaml:"min_presence"`
	TrendLookback    Duration `yaml:"trend_lookback"`
}

// LoadEngine reads and validates the engine YAML file, returning the
// constructed registry, scorer, and classifier alongside the raw config.
func LoadEngine(path string) (*Engine, *domain.Registry, *domain.Scorer, domain.Classifier, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, nil, nil, domain.Classifier{}, fmt.Errorf("read engine config: %w", err)
	}

	var eng Engine
	if err := yaml.Unmarshal(data, &eng); err != nil {
		return nil, nil, nil, domain.Classifier{}, fmt.Errorf("parse engine config %s: %w", path, err)
	}

	if eng.DowngradeDwell <= 0 {
		return nil, nil, nil, domain.Classifier{}, fmt.Errorf("engine config: downgrade_dwell %s must be positive",
			time.Duration(eng.DowngradeDwell))
	}
	if eng.TrendLookback <= 0 {
		eng.TrendLookback = Duration(2 * time.Hour)
	}

	registry, err := domain.NewRegistry(eng.Indicators)
	if err != nil {
		return nil, nil, nil, domain.Classifier{}, fmt.Errorf("engine config: %w", err)
	}

	scorer, err := domain.NewScorer(registry, eng.MinPresence)
	if err != nil {
		return nil, nil, nil, domain.Classifier{}, fmt.Errorf("engine config: %w", err)
	}

	classifier, err := domain.NewClassifier(
		eng.Thresholds.Watch, eng.Thresholds.Warning, eng.Thresholds.Critical, eng.HysteresisMargin)
	if err != nil {
		return nil, nil, nil, domain.Classifier{}, fmt.Errorf("engine config: %w", err)
	}

	return &eng, registry, scorer, classifier, nil
}
