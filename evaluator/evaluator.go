//
// Copyright (C) 2025 The raggauge Authors.  All rights reserved.
//
// raggauge is licensed under the Apache License Version 2.0.
//
//

// Package evaluator applies a stage's metrics to one turn of a sample.
// Stage-specific constructors live in the retriever, reranker, generator and
// endtoend subpackages.
package evaluator

import (
	"context"
	"errors"

	"github.com/raggauge/raggauge/log"
	"github.com/raggauge/raggauge/metric"
	"github.com/raggauge/raggauge/result"
	"github.com/raggauge/raggauge/sample"
)

// Evaluator scores one turn of a sample for a pipeline stage.
type Evaluator interface {
	// Stage returns the pipeline stage this evaluator scores.
	Stage() metric.Stage
	// Evaluate computes every metric resolved for the stage over the turn at
	// turnIndex, using window as the preceding conversation context. Metric
	// failures are captured in the returned evaluation; the error return is
	// reserved for invalid arguments.
	Evaluate(ctx context.Context, s *sample.Sample, turnIndex int, window []*sample.Turn) (*Evaluation, error)
}

// Evaluation is the partial result of one stage over one turn, merged into
// the SampleResult by the orchestrator.
type Evaluation struct {
	// Stage is the evaluated pipeline stage.
	Stage metric.Stage
	// Values maps metric name to the computed value, including undefined ones.
	Values map[string]metric.Value
	// Failures lists metrics that could not be computed.
	Failures []result.Failure
}

// Option configures a stage evaluator.
type Option func(*options)

type options struct {
	scorer metric.Scorer
}

// WithScorer injects the judge adapter consumed by judged metrics. Stages
// whose resolved metrics are all deterministic need none.
func WithScorer(scorer metric.Scorer) Option {
	return func(o *options) {
		o.scorer = scorer
	}
}

type stageEvaluator struct {
	stage    metric.Stage
	registry *metric.Registry
	opts     options
}

// New creates an evaluator for a stage backed by the given registry.
func New(stage metric.Stage, registry *metric.Registry, opts ...Option) Evaluator {
	o := options{}
	for _, opt := range opts {
		opt(&o)
	}
	return &stageEvaluator{stage: stage, registry: registry, opts: o}
}

// Stage implements Evaluator.
func (e *stageEvaluator) Stage() metric.Stage {
	return e.stage
}

// Evaluate computes each resolved metric independently; one metric's failure
// never blocks another.
func (e *stageEvaluator) Evaluate(ctx context.Context, s *sample.Sample, turnIndex int, window []*sample.Turn) (*Evaluation, error) {
	if s == nil {
		return nil, errors.New("sample is nil")
	}
	if turnIndex < 0 || turnIndex >= len(s.Turns) {
		return nil, errors.New("turn index out of range")
	}
	eval := &Evaluation{
		Stage:  e.stage,
		Values: make(map[string]metric.Value),
	}
	in := &metric.Inputs{
		Sample:    s,
		TurnIndex: turnIndex,
		Turn:      s.Turns[turnIndex],
		Context:   window,
		Judge:     e.opts.scorer,
	}
	for _, def := range e.registry.Resolve(e.stage) {
		if err := ctx.Err(); err != nil {
			// The per-sample deadline expired or the run was canceled;
			// remaining metrics are recorded as unresolved.
			eval.Failures = append(eval.Failures, result.Failure{
				Metric: def.Name,
				Reason: result.ReasonOf(err),
				Detail: err.Error(),
			})
			continue
		}
		v, err := e.registry.Compute(ctx, def, in)
		if err != nil {
			log.Debugf("sample %s turn %d: metric %s failed: %v", s.SampleID, turnIndex, def.Name, err)
			eval.Failures = append(eval.Failures, result.Failure{
				Metric: def.Name,
				Reason: result.ReasonOf(err),
				Detail: err.Error(),
			})
			continue
		}
		eval.Values[def.Name] = v
	}
	return eval, nil
}
