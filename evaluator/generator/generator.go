//
// Copyright (C) 2025 The raggauge Authors.  All rights reserved.
//
// raggauge is licensed under the Apache License Version 2.0.
//
//

// Package generator evaluates generated responses against reference answers
// with lexical overlap metrics and an optional judged faithfulness metric.
package generator

import (
	"github.com/raggauge/raggauge/evaluator"
	"github.com/raggauge/raggauge/metric"
)

// FaithfulnessInstruction is the judge instruction for the faithfulness metric.
const FaithfulnessInstruction = "You are grading whether the answer is faithful to the provided context. " +
	"An answer is faithful when every claim it makes is supported by the context. " +
	"Reply with a single number between 0 and 1, where 1 means fully faithful."

// New creates the generator stage evaluator.
func New(registry *metric.Registry, opts ...evaluator.Option) evaluator.Evaluator {
	return evaluator.New(metric.StageGenerator, registry, opts...)
}

// DefaultMetrics returns the standard generator metric set.
func DefaultMetrics() []*metric.Definition {
	return []*metric.Definition{
		metric.NewROUGEN(metric.StageGenerator, 1),
		metric.NewROUGEN(metric.StageGenerator, 2),
		metric.NewROUGEL(metric.StageGenerator),
		metric.NewBLEU(metric.StageGenerator, 4),
	}
}

// Faithfulness returns the judged faithfulness metric, passing at threshold.
func Faithfulness(threshold float64) *metric.Definition {
	return metric.NewJudgedUnit("generator_faithfulness", metric.StageGenerator,
		FaithfulnessInstruction, nil, metric.Threshold(threshold))
}
