//
// Copyright (C) 2025 The raggauge Authors.  All rights reserved.
//
// raggauge is licensed under the Apache License Version 2.0.
//
//

// Package reranker evaluates re-ranked document lists. The same ranking
// metrics as the retriever stage apply, computed over the re-ranked ordering.
package reranker

import (
	"github.com/raggauge/raggauge/evaluator"
	"github.com/raggauge/raggauge/metric"
)

// New creates the re-ranker stage evaluator.
func New(registry *metric.Registry, opts ...evaluator.Option) evaluator.Evaluator {
	return evaluator.New(metric.StageReRanker, registry, opts...)
}

// DefaultMetrics returns the standard re-ranker metric set at top-k depth k.
func DefaultMetrics(k int) []*metric.Definition {
	return []*metric.Definition{
		metric.NewHitRate(metric.StageReRanker, k),
		metric.NewMRR(metric.StageReRanker, 0),
		metric.NewPrecisionAtK(metric.StageReRanker, k),
		metric.NewRecallAtK(metric.StageReRanker, k),
	}
}
