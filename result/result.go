//
// Copyright (C) 2025 The raggauge Authors.  All rights reserved.
//
// raggauge is licensed under the Apache License Version 2.0.
//
//

// Package result defines the per-sample and per-run result structures
// produced by the harness and the manager interface stores implement.
package result

import (
	"context"
	"errors"
	"time"

	"github.com/raggauge/raggauge/judge"
	"github.com/raggauge/raggauge/metric"
	"github.com/raggauge/raggauge/sample"
)

// State tracks a sample through the evaluation state machine.
type State string

const (
	// StatePending marks a sample accepted but not yet scheduled.
	StatePending State = "pending"
	// StateWindowing marks a multi-turn sample whose context windows are being built.
	StateWindowing State = "windowing"
	// StateStageEvaluation marks a sample whose stage metrics are being computed.
	StateStageEvaluation State = "stage_evaluation"
	// StateAggregated marks a sample whose per-turn values have been folded
	// into per-sample values.
	StateAggregated State = "aggregated"
	// StateDone is the success terminal state.
	StateDone State = "done"
	// StateFailed is the failure terminal state, reachable from any state.
	StateFailed State = "failed"
)

// Failure reasons recorded against a metric or sample.
const (
	ReasonValidation       = "SampleValidationError"
	ReasonComputation      = "MetricComputationError"
	ReasonJudgeUnavailable = "JudgeUnavailableError"
	ReasonJudgeParse       = "JudgeParseError"
	ReasonTimeout          = "timeout"
	ReasonCanceled         = "canceled"
	ReasonStageInvocation  = "StageInvocationError"
)

// Failure records one metric (or whole-sample) failure with its reason.
type Failure struct {
	// Metric is the failing metric name, empty for sample-level failures.
	Metric string `json:"metric,omitempty"`
	// Reason is the failure classification, one of the Reason constants.
	Reason string `json:"reason"`
	// Detail is the underlying error text.
	Detail string `json:"detail,omitempty"`
}

// TurnMetrics maps metric name to the value computed for one turn.
type TurnMetrics map[string]metric.Value

// SampleResult holds everything computed for one sample.
type SampleResult struct {
	// SampleID identifies the sample.
	SampleID string `json:"sampleId"`
	// State is the terminal state the sample reached.
	State State `json:"state"`
	// Values maps metric name to the per-sample value. For multi-turn
	// samples float values are the mean over turns with defined values and
	// categorical values are the final turn's label.
	Values map[string]metric.Value `json:"values,omitempty"`
	// TurnValues maps stage to per-turn metric values, index-aligned with
	// the sample's turns. Populated for multi-turn samples.
	TurnValues map[metric.Stage][]TurnMetrics `json:"turnValues,omitempty"`
	// Failures lists the metrics that could not be computed and why.
	Failures []Failure `json:"failures,omitempty"`
}

// NewSampleResult creates an empty result in the pending state.
func NewSampleResult(sampleID string) *SampleResult {
	return &SampleResult{
		SampleID: sampleID,
		State:    StatePending,
		Values:   make(map[string]metric.Value),
	}
}

// AddFailure appends a failure entry classified from err.
func (r *SampleResult) AddFailure(metricName string, err error) {
	r.Failures = append(r.Failures, Failure{
		Metric: metricName,
		Reason: ReasonOf(err),
		Detail: err.Error(),
	})
}

// FailedMetrics returns the set of metric names with recorded failures.
func (r *SampleResult) FailedMetrics() map[string]bool {
	out := make(map[string]bool, len(r.Failures))
	for _, f := range r.Failures {
		if f.Metric != "" {
			out[f.Metric] = true
		}
	}
	return out
}

// ReasonOf classifies an error into a recorded failure reason.
func ReasonOf(err error) string {
	var validationErr *sample.ValidationError
	if errors.As(err, &validationErr) {
		return ReasonValidation
	}
	var unavailableErr *judge.UnavailableError
	if errors.As(err, &unavailableErr) {
		return ReasonJudgeUnavailable
	}
	var parseErr *judge.ParseError
	if errors.As(err, &parseErr) {
		return ReasonJudgeParse
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return ReasonTimeout
	}
	if errors.Is(err, context.Canceled) {
		return ReasonCanceled
	}
	var compErr *metric.ComputationError
	if errors.As(err, &compErr) {
		return ReasonComputation
	}
	return ReasonComputation
}

// MetricStats holds the run-level aggregate for one metric.
type MetricStats struct {
	// Succeeded counts samples where the metric produced a defined value.
	Succeeded int `json:"succeeded"`
	// Failed counts samples where the metric was recorded as failed.
	Failed int `json:"failed"`
	// Undefined counts samples where the metric value does not exist.
	Undefined int `json:"undefined,omitempty"`
	// Mean is the mean of successful float values.
	Mean float64 `json:"mean,omitempty"`
	// Median is the median of successful float values.
	Median float64 `json:"median,omitempty"`
	// PassRate is the fraction of successful values meeting the metric's
	// pass threshold, nil when the metric declares none.
	PassRate *float64 `json:"passRate,omitempty"`
	// Categories counts labels for categorical metrics.
	Categories map[string]int `json:"categories,omitempty"`
	// InsufficientData marks metrics with zero successful computations;
	// Mean and Median are meaningless when set.
	InsufficientData bool `json:"insufficientData,omitempty"`
}

// RunSummary aggregates one run's sample results.
type RunSummary struct {
	// RunID identifies the run.
	RunID string `json:"runId"`
	// ModelID identifies the evaluated model or pipeline configuration,
	// keying the governance series.
	ModelID string `json:"modelId,omitempty"`
	// Metrics maps metric name to its aggregate statistics.
	Metrics map[string]*MetricStats `json:"metrics,omitempty"`
	// SamplesProcessed counts samples that reached a terminal state.
	SamplesProcessed int `json:"samplesProcessed"`
	// SamplesFailed counts samples that ended in the failed state.
	SamplesFailed int `json:"samplesFailed"`
	// StartedAt and FinishedAt bound the run.
	StartedAt  time.Time `json:"startedAt,omitempty"`
	FinishedAt time.Time `json:"finishedAt,omitempty"`
}

// Manager persists sample results and run summaries. Implementations must be
// safe for concurrent use.
type Manager interface {
	// SaveSampleResult stores one sample result under a run, replacing any
	// previous result for the same sample.
	SaveSampleResult(ctx context.Context, runID string, r *SampleResult) error
	// GetSampleResult returns the stored result, or os.ErrNotExist.
	GetSampleResult(ctx context.Context, runID, sampleID string) (*SampleResult, error)
	// ListSampleResults returns all results stored for a run.
	ListSampleResults(ctx context.Context, runID string) ([]*SampleResult, error)
	// SaveRunSummary stores a run summary, replacing any previous summary
	// for the same run.
	SaveRunSummary(ctx context.Context, s *RunSummary) error
	// GetRunSummary returns the stored summary, or os.ErrNotExist.
	GetRunSummary(ctx context.Context, runID string) (*RunSummary, error)
	// ListRunSummaries returns all summaries for a model in save order.
	ListRunSummaries(ctx context.Context, modelID string) ([]*RunSummary, error)
	// Close releases store resources.
	Close() error
}
