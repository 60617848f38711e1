//
// Copyright (C) 2025 The raggauge Authors.  All rights reserved.
//
// raggauge is licensed under the Apache License Version 2.0.
//
//

// Package metric defines the catalog of quality metrics computed over
// evaluation samples: lexical overlap, ranking quality, and judge-scored
// metrics, together with the registry that stage evaluators resolve them from.
package metric

import (
	"context"
	"strconv"

	"github.com/raggauge/raggauge/judge"
	"github.com/raggauge/raggauge/sample"
)

// Stage identifies the pipeline stage a metric applies to.
type Stage string

const (
	// StageRetriever scores the retrieved document list.
	StageRetriever Stage = "retriever"
	// StageReRanker scores the re-ranked document list.
	StageReRanker Stage = "reranker"
	// StageGenerator scores the generated response.
	StageGenerator Stage = "generator"
	// StageEndToEnd scores the final response against the reference and the full context.
	StageEndToEnd Stage = "endtoend"
)

// Kind distinguishes pure metric computations from judge-backed ones.
type Kind string

const (
	// KindDeterministic marks metrics computed purely from the sample and stage outputs.
	KindDeterministic Kind = "deterministic"
	// KindJudged marks metrics that call the external judge.
	KindJudged Kind = "judged"
)

// ValueType declares the shape of a metric's computed value.
type ValueType string

const (
	// TypeUnitFloat is a float bounded to [0, 1].
	TypeUnitFloat ValueType = "unit_float"
	// TypeFloat is an unbounded float.
	TypeFloat ValueType = "float"
	// TypeCategorical is one of a declared label set.
	TypeCategorical ValueType = "categorical"
)

// Value is one computed metric value. Exactly one representation is
// meaningful, selected by the owning definition's ValueType; Undefined
// marks values that cannot be computed for a sample, such as recall
// against an empty ground-truth set.
type Value struct {
	// Float holds the numeric value for float-typed metrics.
	Float float64 `json:"float,omitempty"`
	// Category holds the label for categorical metrics.
	Category string `json:"category,omitempty"`
	// Undefined reports that the value does not exist for this input.
	Undefined bool `json:"undefined,omitempty"`
}

// FloatValue wraps a numeric metric value.
func FloatValue(f float64) Value {
	return Value{Float: f}
}

// CategoryValue wraps a categorical metric value.
func CategoryValue(c string) Value {
	return Value{Category: c}
}

// UndefinedValue marks a value that does not exist for the given input.
func UndefinedValue() Value {
	return Value{Undefined: true}
}

// String renders the value for logs and failure messages.
func (v Value) String() string {
	if v.Undefined {
		return "undefined"
	}
	if v.Category != "" {
		return v.Category
	}
	return strconv.FormatFloat(v.Float, 'g', -1, 64)
}

// Inputs carries everything one metric computation may read. The sample and
// turns are read-only; compute functions must not mutate them.
type Inputs struct {
	// Sample is the evaluation unit the turn belongs to.
	Sample *sample.Sample
	// TurnIndex is the position of the subject turn within the sample.
	TurnIndex int
	// Turn is the subject turn under evaluation.
	Turn *sample.Turn
	// Context holds the preceding turns selected by the conversation windower,
	// empty for single-turn samples and for the first turn.
	Context []*sample.Turn
	// Judge scores judge-backed metrics. Nil when the resolved metric set
	// contains no judged metrics.
	Judge Scorer
}

// Scorer is the judge capability consumed by judged metrics. *judge.Adapter
// implements it.
type Scorer interface {
	// Score returns the judge reply record for the payload.
	Score(ctx context.Context, metricName string, p *judge.Payload) (*judge.CallRecord, error)
}

// ComputeFunc computes one metric value over the inputs.
type ComputeFunc func(ctx context.Context, in *Inputs) (Value, error)

// Definition describes one metric in the registry.
type Definition struct {
	// Name uniquely identifies the metric across the registry.
	Name string
	// Stage is the pipeline stage the metric applies to.
	Stage Stage
	// ValueType declares the shape of computed values.
	ValueType ValueType
	// Kind distinguishes deterministic metrics from judged ones.
	Kind Kind
	// RubricFields lists the rubric criteria a judged metric requires.
	RubricFields []string
	// PassThreshold, when non-nil, marks values >= the threshold as passing
	// for pass-rate aggregation.
	PassThreshold *float64
	// Compute produces the metric value.
	Compute ComputeFunc
}

// Threshold returns a pointer to t for use as a Definition.PassThreshold.
func Threshold(t float64) *float64 {
	return &t
}
