//
// Copyright (C) 2025 The raggauge Authors.  All rights reserved.
//
// raggauge is licensed under the Apache License Version 2.0.
//
//

// Package aggregate folds per-sample results into run summaries and keeps
// governance rollups of run summaries over time.
package aggregate

import (
	"sort"

	"github.com/raggauge/raggauge/metric"
	"github.com/raggauge/raggauge/result"
)

// Summarize computes run-level statistics over sample results. Failed and
// undefined metric entries are excluded from numeric aggregates; a metric
// with zero successful computations is marked insufficient-data. The
// registry supplies pass thresholds for pass-rate computation and may be nil.
func Summarize(runID, modelID string, results []*result.SampleResult, registry *metric.Registry) *result.RunSummary {
	summary := &result.RunSummary{
		RunID:   runID,
		ModelID: modelID,
		Metrics: make(map[string]*result.MetricStats),
	}
	floats := make(map[string][]float64)
	for _, r := range results {
		if r == nil {
			continue
		}
		summary.SamplesProcessed++
		if r.State == result.StateFailed {
			summary.SamplesFailed++
		}
		for name, v := range r.Values {
			stats := statsFor(summary, name)
			if v.Undefined {
				stats.Undefined++
				continue
			}
			stats.Succeeded++
			if v.Category != "" {
				if stats.Categories == nil {
					stats.Categories = make(map[string]int)
				}
				stats.Categories[v.Category]++
				continue
			}
			floats[name] = append(floats[name], v.Float)
		}
		for _, f := range r.Failures {
			if f.Metric == "" {
				continue
			}
			statsFor(summary, f.Metric).Failed++
		}
	}
	for name, stats := range summary.Metrics {
		values := floats[name]
		if stats.Succeeded == 0 {
			stats.InsufficientData = true
			continue
		}
		if len(values) == 0 {
			continue
		}
		stats.Mean = mean(values)
		stats.Median = median(values)
		if registry == nil {
			continue
		}
		def, err := registry.Get(name)
		if err != nil || def.PassThreshold == nil {
			continue
		}
		passed := 0
		for _, v := range values {
			if v >= *def.PassThreshold {
				passed++
			}
		}
		rate := float64(passed) / float64(len(values))
		stats.PassRate = &rate
	}
	return summary
}

func statsFor(summary *result.RunSummary, name string) *result.MetricStats {
	stats, ok := summary.Metrics[name]
	if !ok {
		stats = &result.MetricStats{}
		summary.Metrics[name] = stats
	}
	return stats
}

func mean(values []float64) float64 {
	sum := 0.0
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

func median(values []float64) float64 {
	sorted := append([]float64(nil), values...)
	sort.Float64s(sorted)
	mid := len(sorted) / 2
	if len(sorted)%2 == 1 {
		return sorted[mid]
	}
	return (sorted[mid-1] + sorted[mid]) / 2
}
