//
// Copyright (C) 2025 The raggauge Authors.  All rights reserved.
//
// raggauge is licensed under the Apache License Version 2.0.
//
//

package harness

import (
	"time"

	"github.com/raggauge/raggauge/evaluator"
	"github.com/raggauge/raggauge/pipeline"
	"github.com/raggauge/raggauge/result"
	"github.com/raggauge/raggauge/window"
)

// Default harness settings.
const (
	// DefaultParallelism is the sample worker pool size.
	DefaultParallelism = 4
	// DefaultSampleTimeout bounds one sample's evaluation.
	DefaultSampleTimeout = 2 * time.Minute
)

// Options configures a Harness.
type Options struct {
	// RunID identifies the run; a fresh UUID is generated when empty.
	RunID string
	// ModelID identifies the evaluated model or pipeline configuration.
	ModelID string
	// Parallelism is the number of samples evaluated concurrently.
	Parallelism int
	// SampleTimeout bounds one sample's evaluation; unresolved metrics are
	// recorded as timed out. Non-positive disables the per-sample deadline.
	SampleTimeout time.Duration
	// Evaluators are the stage evaluators to run, in order.
	Evaluators []evaluator.Evaluator
	// Windower builds per-turn context for multi-turn samples.
	Windower *window.Windower
	// Results persists sample results and the run summary; nil disables
	// persistence and Run only returns the summary.
	Results result.Manager
	// Retriever, ReRanker and Generator optionally fill in stage outputs
	// before evaluation. Nil collaborators leave the sample's own outputs
	// untouched.
	Retriever pipeline.Retriever
	ReRanker  pipeline.ReRanker
	Generator pipeline.Generator
}

// Option mutates harness options.
type Option func(*Options)

// NewOptions applies opts over defaults.
func NewOptions(opts ...Option) *Options {
	o := &Options{
		Parallelism:   DefaultParallelism,
		SampleTimeout: DefaultSampleTimeout,
		Windower:      window.Default(),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// WithRunID sets the run identifier.
func WithRunID(runID string) Option {
	return func(o *Options) { o.RunID = runID }
}

// WithModelID sets the evaluated model identifier used for governance series.
func WithModelID(modelID string) Option {
	return func(o *Options) { o.ModelID = modelID }
}

// WithParallelism sets the sample worker pool size.
func WithParallelism(n int) Option {
	return func(o *Options) { o.Parallelism = n }
}

// WithSampleTimeout sets the per-sample evaluation deadline.
func WithSampleTimeout(d time.Duration) Option {
	return func(o *Options) { o.SampleTimeout = d }
}

// WithEvaluators sets the stage evaluators to run.
func WithEvaluators(evaluators ...evaluator.Evaluator) Option {
	return func(o *Options) { o.Evaluators = evaluators }
}

// WithWindower sets the conversation windower.
func WithWindower(w *window.Windower) Option {
	return func(o *Options) { o.Windower = w }
}

// WithResultManager sets the result store.
func WithResultManager(m result.Manager) Option {
	return func(o *Options) { o.Results = m }
}

// WithRetriever sets the retrieval collaborator.
func WithRetriever(r pipeline.Retriever) Option {
	return func(o *Options) { o.Retriever = r }
}

// WithReRanker sets the re-ranking collaborator.
func WithReRanker(r pipeline.ReRanker) Option {
	return func(o *Options) { o.ReRanker = r }
}

// WithGenerator sets the generation collaborator.
func WithGenerator(g pipeline.Generator) Option {
	return func(o *Options) { o.Generator = g }
}
