//
// Copyright (C) 2025 The raggauge Authors.  All rights reserved.
//
// raggauge is licensed under the Apache License Version 2.0.
//
//

package aggregate

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/raggauge/raggauge/judge"
	"github.com/raggauge/raggauge/metric"
	"github.com/raggauge/raggauge/result"
)

func sampleResultWith(id string, values map[string]metric.Value) *result.SampleResult {
	r := result.NewSampleResult(id)
	r.State = result.StateDone
	for name, v := range values {
		r.Values[name] = v
	}
	return r
}

// TestSummarize_Empty verifies summarize over no results yields zero counts
// and no numeric aggregates.
func TestSummarize_Empty(t *testing.T) {
	summary := Summarize("run1", "model-a", nil, nil)
	assert.Equal(t, "run1", summary.RunID)
	assert.Equal(t, 0, summary.SamplesProcessed)
	assert.Equal(t, 0, summary.SamplesFailed)
	assert.Empty(t, summary.Metrics)

	summary = Summarize("run1", "model-a", []*result.SampleResult{}, nil)
	assert.Equal(t, 0, summary.SamplesProcessed)
}

func TestSummarize_MeanMedian(t *testing.T) {
	results := []*result.SampleResult{
		sampleResultWith("s1", map[string]metric.Value{"mrr": metric.FloatValue(1.0)}),
		sampleResultWith("s2", map[string]metric.Value{"mrr": metric.FloatValue(0.5)}),
		sampleResultWith("s3", map[string]metric.Value{"mrr": metric.FloatValue(0.0)}),
	}
	summary := Summarize("run1", "model-a", results, nil)
	require.Contains(t, summary.Metrics, "mrr")
	stats := summary.Metrics["mrr"]
	assert.Equal(t, 3, stats.Succeeded)
	assert.InDelta(t, 0.5, stats.Mean, 1e-9)
	assert.InDelta(t, 0.5, stats.Median, 1e-9)
	assert.Equal(t, 3, summary.SamplesProcessed)
}

func TestSummarize_MedianEvenCount(t *testing.T) {
	results := []*result.SampleResult{
		sampleResultWith("s1", map[string]metric.Value{"m": metric.FloatValue(0.0)}),
		sampleResultWith("s2", map[string]metric.Value{"m": metric.FloatValue(1.0)}),
	}
	summary := Summarize("run1", "model-a", results, nil)
	assert.InDelta(t, 0.5, summary.Metrics["m"].Median, 1e-9)
}

// TestSummarize_FailuresExcluded verifies failed entries are counted but
// excluded from numeric aggregates, and all-failed metrics are marked
// insufficient-data.
func TestSummarize_FailuresExcluded(t *testing.T) {
	ok := sampleResultWith("s1", map[string]metric.Value{
		"mrr":          metric.FloatValue(1.0),
		"faithfulness": metric.FloatValue(0.8),
	})
	failed := sampleResultWith("s2", map[string]metric.Value{"mrr": metric.FloatValue(0.0)})
	failed.AddFailure("faithfulness", &judge.UnavailableError{Metric: "faithfulness", Err: judge.ErrTimeout})

	allFailed := result.NewSampleResult("s3")
	allFailed.State = result.StateDone
	allFailed.AddFailure("groundedness", errors.New("parse"))

	summary := Summarize("run1", "model-a", []*result.SampleResult{ok, failed, allFailed}, nil)

	assert.Equal(t, 2, summary.Metrics["mrr"].Succeeded)
	assert.InDelta(t, 0.5, summary.Metrics["mrr"].Mean, 1e-9)

	faith := summary.Metrics["faithfulness"]
	assert.Equal(t, 1, faith.Succeeded)
	assert.Equal(t, 1, faith.Failed)
	assert.InDelta(t, 0.8, faith.Mean, 1e-9)

	grounded := summary.Metrics["groundedness"]
	assert.Equal(t, 0, grounded.Succeeded)
	assert.Equal(t, 1, grounded.Failed)
	assert.True(t, grounded.InsufficientData)
}

func TestSummarize_UndefinedExcluded(t *testing.T) {
	results := []*result.SampleResult{
		sampleResultWith("s1", map[string]metric.Value{"recall": metric.FloatValue(1.0)}),
		sampleResultWith("s2", map[string]metric.Value{"recall": metric.UndefinedValue()}),
	}
	summary := Summarize("run1", "model-a", results, nil)
	stats := summary.Metrics["recall"]
	assert.Equal(t, 1, stats.Succeeded)
	assert.Equal(t, 1, stats.Undefined)
	assert.InDelta(t, 1.0, stats.Mean, 1e-9)
}

func TestSummarize_PassRate(t *testing.T) {
	registry := metric.NewRegistry()
	require.NoError(t, registry.Register(&metric.Definition{
		Name:          "hit",
		Stage:         metric.StageRetriever,
		ValueType:     metric.TypeUnitFloat,
		Kind:          metric.KindDeterministic,
		PassThreshold: metric.Threshold(1),
		Compute: func(ctx context.Context, in *metric.Inputs) (metric.Value, error) {
			return metric.FloatValue(1), nil
		},
	}))

	results := []*result.SampleResult{
		sampleResultWith("s1", map[string]metric.Value{"hit": metric.FloatValue(1)}),
		sampleResultWith("s2", map[string]metric.Value{"hit": metric.FloatValue(0)}),
		sampleResultWith("s3", map[string]metric.Value{"hit": metric.FloatValue(1)}),
	}
	summary := Summarize("run1", "model-a", results, registry)
	require.NotNil(t, summary.Metrics["hit"].PassRate)
	assert.InDelta(t, 2.0/3.0, *summary.Metrics["hit"].PassRate, 1e-9)
}

func TestSummarize_Categories(t *testing.T) {
	results := []*result.SampleResult{
		sampleResultWith("s1", map[string]metric.Value{"verdict": metric.CategoryValue("supported")}),
		sampleResultWith("s2", map[string]metric.Value{"verdict": metric.CategoryValue("supported")}),
		sampleResultWith("s3", map[string]metric.Value{"verdict": metric.CategoryValue("contradicted")}),
	}
	summary := Summarize("run1", "model-a", results, nil)
	stats := summary.Metrics["verdict"]
	assert.Equal(t, 3, stats.Succeeded)
	assert.Equal(t, 2, stats.Categories["supported"])
	assert.Equal(t, 1, stats.Categories["contradicted"])
}

func TestSummarize_FailedSampleCount(t *testing.T) {
	failed := result.NewSampleResult("s1")
	failed.State = result.StateFailed
	summary := Summarize("run1", "model-a", []*result.SampleResult{failed}, nil)
	assert.Equal(t, 1, summary.SamplesProcessed)
	assert.Equal(t, 1, summary.SamplesFailed)
}

func summaryWithMean(runID string, m float64) *result.RunSummary {
	return &result.RunSummary{
		RunID:   runID,
		ModelID: "model-a",
		Metrics: map[string]*result.MetricStats{
			"mrr": {Succeeded: 10, Mean: m, Median: m},
		},
	}
}

// TestRollup_RegressionFlag verifies a drop below the configured fraction of
// the trailing mean flags a regression, sustained after enough runs.
func TestRollup_RegressionFlag(t *testing.T) {
	rollup := NewRollup("model-a", RollupConfig{
		TrailingWindow:     3,
		RegressionFraction: 0.9,
		SustainedRuns:      2,
	})

	require.NoError(t, rollup.Append(summaryWithMean("run1", 0.8)))
	assert.False(t, rollup.Indicators["mrr"].Regressed)

	require.NoError(t, rollup.Append(summaryWithMean("run2", 0.8)))
	assert.False(t, rollup.Indicators["mrr"].Regressed)

	// 0.5 < 0.9 * 0.8: regression.
	require.NoError(t, rollup.Append(summaryWithMean("run3", 0.5)))
	ind := rollup.Indicators["mrr"]
	assert.True(t, ind.Regressed)
	assert.Equal(t, 1, ind.ConsecutiveRegressions)
	assert.False(t, ind.Sustained)

	require.NoError(t, rollup.Append(summaryWithMean("run4", 0.5)))
	ind = rollup.Indicators["mrr"]
	assert.True(t, ind.Regressed)
	assert.Equal(t, 2, ind.ConsecutiveRegressions)
	assert.True(t, ind.Sustained)

	// Recovery clears the streak.
	require.NoError(t, rollup.Append(summaryWithMean("run5", 0.8)))
	ind = rollup.Indicators["mrr"]
	assert.False(t, ind.Regressed)
	assert.Equal(t, 0, ind.ConsecutiveRegressions)
	assert.False(t, ind.Sustained)

	assert.Len(t, rollup.Series, 5)
}

func TestRollup_RejectsOtherModels(t *testing.T) {
	rollup := NewRollup("model-a", RollupConfig{})
	err := rollup.Append(&result.RunSummary{RunID: "run1", ModelID: "model-b"})
	assert.Error(t, err)
	assert.Error(t, rollup.Append(nil))
}

func TestRollup_InsufficientDataSkipped(t *testing.T) {
	rollup := NewRollup("model-a", RollupConfig{})
	summary := &result.RunSummary{
		RunID:   "run1",
		ModelID: "model-a",
		Metrics: map[string]*result.MetricStats{
			"faithfulness": {InsufficientData: true},
		},
	}
	require.NoError(t, rollup.Append(summary))
	assert.NotContains(t, rollup.Indicators, "faithfulness")
}
