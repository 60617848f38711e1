//
// Copyright (C) 2025 The raggauge Authors.  All rights reserved.
//
// raggauge is licensed under the Apache License Version 2.0.
//
//

// Package endtoend evaluates the final response against the reference answer
// and the full retrieved/ranked context, independent of upstream stage scores.
package endtoend

import (
	"github.com/raggauge/raggauge/evaluator"
	"github.com/raggauge/raggauge/metric"
)

// CorrectnessInstruction is the judge instruction for factual correctness.
const CorrectnessInstruction = "You are grading the factual correctness of the answer against the reference answer. " +
	"Reply with a single number between 0 and 1, where 1 means the answer is fully correct."

// New creates the end-to-end stage evaluator.
func New(registry *metric.Registry, opts ...evaluator.Option) evaluator.Evaluator {
	return evaluator.New(metric.StageEndToEnd, registry, opts...)
}

// DefaultMetrics returns the standard end-to-end metric set: ranking quality
// of the final context plus lexical overlap of the final response.
func DefaultMetrics(k int) []*metric.Definition {
	return []*metric.Definition{
		metric.NewHitRate(metric.StageEndToEnd, k),
		metric.NewMRR(metric.StageEndToEnd, 0),
		metric.NewPrecisionAtK(metric.StageEndToEnd, k),
		metric.NewROUGEL(metric.StageEndToEnd),
	}
}

// FactualCorrectness returns the judged factual-correctness metric, passing
// at threshold.
func FactualCorrectness(threshold float64) *metric.Definition {
	return metric.NewJudgedUnit("endtoend_factual_correctness", metric.StageEndToEnd,
		CorrectnessInstruction, nil, metric.Threshold(threshold))
}
