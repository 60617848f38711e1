//
// Copyright (C) 2025 The raggauge Authors.  All rights reserved.
//
// raggauge is licensed under the Apache License Version 2.0.
//
//

package aggregate

import (
	"errors"

	"github.com/raggauge/raggauge/result"
)

// RollupConfig tunes the governance drift indicators.
type RollupConfig struct {
	// TrailingWindow is the number of preceding runs the trailing mean is
	// computed over.
	TrailingWindow int `yaml:"trailing_window"`
	// RegressionFraction flags a metric when its current mean drops below
	// this fraction of the trailing mean.
	RegressionFraction float64 `yaml:"regression_fraction"`
	// SustainedRuns is how many consecutive regressed runs raise the
	// sustained-regression risk flag.
	SustainedRuns int `yaml:"sustained_runs"`
}

// Rollup config defaults.
const (
	DefaultTrailingWindow     = 5
	DefaultRegressionFraction = 0.9
	DefaultSustainedRuns      = 3
)

func (c RollupConfig) withDefaults() RollupConfig {
	if c.TrailingWindow <= 0 {
		c.TrailingWindow = DefaultTrailingWindow
	}
	if c.RegressionFraction <= 0 || c.RegressionFraction > 1 {
		c.RegressionFraction = DefaultRegressionFraction
	}
	if c.SustainedRuns <= 0 {
		c.SustainedRuns = DefaultSustainedRuns
	}
	return c
}

// Indicator is the drift state of one metric within a rollup.
type Indicator struct {
	// Metric is the metric name.
	Metric string `json:"metric"`
	// CurrentMean is the metric's mean in the latest run.
	CurrentMean float64 `json:"currentMean"`
	// TrailingMean is the mean of the metric's means over the trailing window.
	TrailingMean float64 `json:"trailingMean"`
	// Regressed reports whether the latest run regressed against the trail.
	Regressed bool `json:"regressed,omitempty"`
	// ConsecutiveRegressions counts regressed runs in a row.
	ConsecutiveRegressions int `json:"consecutiveRegressions,omitempty"`
	// Sustained reports that the regression persisted long enough to flag risk.
	Sustained bool `json:"sustained,omitempty"`
}

// Rollup is the append-only governance series for one model, with derived
// risk indicators recomputed on every appended run.
type Rollup struct {
	// ModelID keys the series.
	ModelID string `json:"modelId"`
	// Series holds the run summaries in arrival order.
	Series []*result.RunSummary `json:"series,omitempty"`
	// Indicators maps metric name to its latest drift state.
	Indicators map[string]*Indicator `json:"indicators,omitempty"`

	cfg RollupConfig
}

// NewRollup creates an empty rollup for a model.
func NewRollup(modelID string, cfg RollupConfig) *Rollup {
	return &Rollup{
		ModelID:    modelID,
		Indicators: make(map[string]*Indicator),
		cfg:        cfg.withDefaults(),
	}
}

// Append adds a run summary to the series and recomputes drift indicators.
// Summaries for other models are rejected.
func (r *Rollup) Append(summary *result.RunSummary) error {
	if summary == nil {
		return errors.New("run summary is nil")
	}
	if summary.ModelID != r.ModelID {
		return errors.New("run summary belongs to a different model")
	}
	r.Series = append(r.Series, summary)
	for name, stats := range summary.Metrics {
		if stats.InsufficientData || stats.Categories != nil {
			continue
		}
		ind, ok := r.Indicators[name]
		if !ok {
			ind = &Indicator{Metric: name}
			r.Indicators[name] = ind
		}
		ind.CurrentMean = stats.Mean
		trail, ok := r.trailingMean(name)
		if !ok {
			// First observation of this metric; nothing to compare against.
			ind.Regressed = false
			ind.ConsecutiveRegressions = 0
			ind.Sustained = false
			continue
		}
		ind.TrailingMean = trail
		ind.Regressed = stats.Mean < r.cfg.RegressionFraction*trail
		if ind.Regressed {
			ind.ConsecutiveRegressions++
		} else {
			ind.ConsecutiveRegressions = 0
		}
		ind.Sustained = ind.ConsecutiveRegressions >= r.cfg.SustainedRuns
	}
	return nil
}

// trailingMean averages the metric's means over up to TrailingWindow runs
// preceding the latest one.
func (r *Rollup) trailingMean(name string) (float64, bool) {
	if len(r.Series) < 2 {
		return 0, false
	}
	start := len(r.Series) - 1 - r.cfg.TrailingWindow
	if start < 0 {
		start = 0
	}
	sum := 0.0
	count := 0
	for _, s := range r.Series[start : len(r.Series)-1] {
		stats, ok := s.Metrics[name]
		if !ok || stats.InsufficientData || stats.Succeeded == 0 {
			continue
		}
		sum += stats.Mean
		count++
	}
	if count == 0 {
		return 0, false
	}
	return sum / float64(count), true
}
