//
// Copyright (C) 2025 The raggauge Authors.  All rights reserved.
//
// raggauge is licensed under the Apache License Version 2.0.
//
//

// Package retriever evaluates retrieved document lists against ground-truth
// document sets.
package retriever

import (
	"github.com/raggauge/raggauge/evaluator"
	"github.com/raggauge/raggauge/metric"
)

// New creates the retriever stage evaluator.
func New(registry *metric.Registry, opts ...evaluator.Option) evaluator.Evaluator {
	return evaluator.New(metric.StageRetriever, registry, opts...)
}

// DefaultMetrics returns the standard retriever metric set at top-k depth k.
// Hit rate and MRR consider the full retrieved list.
func DefaultMetrics(k int) []*metric.Definition {
	return []*metric.Definition{
		metric.NewHitRate(metric.StageRetriever, 0),
		metric.NewMRR(metric.StageRetriever, 0),
		metric.NewPrecisionAtK(metric.StageRetriever, k),
		metric.NewRecallAtK(metric.StageRetriever, k),
	}
}
