//
// Copyright (C) 2025 The raggauge Authors.  All rights reserved.
//
// raggauge is licensed under the Apache License Version 2.0.
//
//

// Package harness orchestrates evaluation runs: it fans samples out over a
// bounded worker pool, drives the optional pipeline collaborators, applies
// the stage evaluators per turn, and folds everything into a run summary.
// Samples are strictly isolated; one sample's failure never affects another.
package harness

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/hashicorp/go-multierror"
	"github.com/panjf2000/ants/v2"

	"github.com/raggauge/raggauge/aggregate"
	"github.com/raggauge/raggauge/dataset"
	"github.com/raggauge/raggauge/internal/clone"
	"github.com/raggauge/raggauge/log"
	"github.com/raggauge/raggauge/metric"
	"github.com/raggauge/raggauge/pipeline"
	"github.com/raggauge/raggauge/result"
	"github.com/raggauge/raggauge/sample"
)

// Harness runs evaluations over a dataset.
type Harness struct {
	opts     *Options
	registry *metric.Registry
	pool     *ants.PoolWithFunc
}

// New creates a harness. The registry supplies pass thresholds during
// aggregation and must be the one the evaluators resolve from. At least one
// evaluator is required.
func New(registry *metric.Registry, opts ...Option) (*Harness, error) {
	if registry == nil {
		return nil, errors.New("metric registry is nil")
	}
	o := NewOptions(opts...)
	if len(o.Evaluators) == 0 {
		return nil, errors.New("no stage evaluators configured")
	}
	if o.Windower == nil {
		return nil, errors.New("windower is nil")
	}
	h := &Harness{opts: o, registry: registry}
	pool, err := createSampleEvalPool(o.Parallelism)
	if err != nil {
		return nil, err
	}
	h.pool = pool
	return h, nil
}

// Close releases the worker pool and the result store.
func (h *Harness) Close() error {
	var errs *multierror.Error
	if h.pool != nil {
		h.pool.Release()
	}
	if h.opts.Results != nil {
		if err := h.opts.Results.Close(); err != nil {
			errs = multierror.Append(errs, fmt.Errorf("close result manager: %w", err))
		}
	}
	return errs.ErrorOrNil()
}

// Run evaluates every sample the source yields and returns the run summary.
// Cancelling ctx stops dispatching new samples; in-flight samples finish or
// hit their per-sample timeout, and the summary over completed samples is
// still returned.
func (h *Harness) Run(ctx context.Context, source dataset.Source) (*result.RunSummary, error) {
	if source == nil {
		return nil, errors.New("dataset source is nil")
	}
	runID := h.opts.RunID
	if runID == "" {
		runID = uuid.New().String()
	}
	startedAt := time.Now()
	log.Infof("run %s: starting evaluation", runID)

	var wg sync.WaitGroup
	sink := &resultSink{}
	dispatched := 0
	for {
		if ctx.Err() != nil {
			log.Warnf("run %s: canceled after dispatching %d samples", runID, dispatched)
			break
		}
		s, err := source.Next(ctx)
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			if ctx.Err() != nil {
				break
			}
			wg.Wait()
			return nil, fmt.Errorf("read dataset: %w", err)
		}
		param := sampleEvalParamPool.Get().(*sampleEvalParam)
		param.ctx = ctx
		param.s = s
		param.h = h
		param.sink = sink
		param.wg = &wg
		wg.Add(1)
		if err := h.pool.Invoke(param); err != nil {
			wg.Done()
			param.reset()
			sampleEvalParamPool.Put(param)
			wg.Wait()
			return nil, fmt.Errorf("dispatch sample: %w", err)
		}
		dispatched++
	}
	wg.Wait()
	results := sink.all()

	if h.opts.Results != nil {
		for _, r := range results {
			if r == nil {
				continue
			}
			if err := h.opts.Results.SaveSampleResult(context.WithoutCancel(ctx), runID, r); err != nil {
				log.Errorf("run %s: save sample result %s: %v", runID, r.SampleID, err)
			}
		}
	}

	summary := aggregate.Summarize(runID, h.opts.ModelID, results, h.registry)
	summary.StartedAt = startedAt
	summary.FinishedAt = time.Now()
	if h.opts.Results != nil {
		if err := h.opts.Results.SaveRunSummary(context.WithoutCancel(ctx), summary); err != nil {
			log.Errorf("run %s: save run summary: %v", runID, err)
		}
	}
	log.Infof("run %s: %d samples processed, %d failed", runID, summary.SamplesProcessed, summary.SamplesFailed)
	return summary, nil
}

// evaluateSample walks one sample through the evaluation state machine. It
// never returns an error; every failure is captured in the result.
func (h *Harness) evaluateSample(ctx context.Context, s *sample.Sample) (res *result.SampleResult) {
	if s == nil {
		res = result.NewSampleResult("")
		res.State = result.StateFailed
		res.AddFailure("", &sample.ValidationError{Reason: "sample is nil"})
		return res
	}
	res = result.NewSampleResult(s.SampleID)
	defer func() {
		if rec := recover(); rec != nil {
			log.Errorf("sample %s: evaluation panicked: %v", s.SampleID, rec)
			res.State = result.StateFailed
			res.AddFailure("", fmt.Errorf("panic: %v", rec))
		}
	}()

	if err := s.Validate(); err != nil {
		res.State = result.StateFailed
		res.AddFailure("", err)
		return res
	}
	// Work on a deep copy; caller-owned samples are never mutated.
	working, err := clone.Clone(s)
	if err != nil {
		res.State = result.StateFailed
		res.AddFailure("", fmt.Errorf("clone sample: %w", err))
		return res
	}

	if h.opts.SampleTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, h.opts.SampleTimeout)
		defer cancel()
	}

	multiTurn := working.MultiTurn()
	windows := make([][]*sample.Turn, len(working.Turns))
	if multiTurn {
		res.State = result.StateWindowing
		for i := range working.Turns {
			w, err := h.opts.Windower.Window(working.Turns, i)
			if err != nil {
				res.State = result.StateFailed
				res.AddFailure("", fmt.Errorf("window turn %d: %w", i, err))
				return res
			}
			windows[i] = w
		}
	}

	res.State = result.StateStageEvaluation
	turnValues := make(map[metric.Stage][]result.TurnMetrics)
	for _, e := range h.opts.Evaluators {
		turnValues[e.Stage()] = make([]result.TurnMetrics, len(working.Turns))
	}
	for i := range working.Turns {
		h.invokeCollaborators(ctx, working, i, windows[i], res)
		for _, e := range h.opts.Evaluators {
			eval, err := e.Evaluate(ctx, working, i, windows[i])
			if err != nil {
				res.AddFailure("", fmt.Errorf("evaluate stage %s turn %d: %w", e.Stage(), i, err))
				continue
			}
			turnValues[e.Stage()][i] = eval.Values
			res.Failures = append(res.Failures, eval.Failures...)
		}
	}

	res.State = result.StateAggregated
	if multiTurn {
		res.TurnValues = turnValues
	}
	for _, perTurn := range turnValues {
		foldTurnValues(res.Values, perTurn)
	}
	res.State = result.StateDone
	return res
}

// invokeCollaborators fills in the turn's stage outputs from the configured
// pipeline collaborators. Any collaborator error is recorded as a stage
// failure for this sample and turn.
func (h *Harness) invokeCollaborators(ctx context.Context, s *sample.Sample, turnIndex int, window []*sample.Turn, res *result.SampleResult) {
	turn := s.Turns[turnIndex]
	if h.opts.Retriever != nil {
		docs, err := h.opts.Retriever.Retrieve(ctx, turn.Query, window)
		if err != nil {
			h.addStageFailure(res, "retriever", turnIndex, err)
		} else {
			turn.RetrievedDocuments = docs
		}
	}
	if h.opts.ReRanker != nil {
		ranked, err := h.opts.ReRanker.ReRank(ctx, turn.Query, turn.RetrievedDocuments)
		if err != nil {
			h.addStageFailure(res, "reranker", turnIndex, err)
		} else {
			turn.RankedDocuments = ranked
		}
	}
	if h.opts.Generator != nil {
		docs := turn.RankedDocuments
		if len(docs) == 0 {
			docs = turn.RetrievedDocuments
		}
		response, err := h.opts.Generator.Generate(ctx, turn.Query, docs, window)
		if err != nil {
			h.addStageFailure(res, "generator", turnIndex, err)
		} else {
			turn.Response = response
		}
	}
}

func (h *Harness) addStageFailure(res *result.SampleResult, stage string, turnIndex int, err error) {
	invErr := &pipeline.InvocationError{Stage: stage, TurnIndex: turnIndex, Err: err}
	log.Debugf("sample %s: %v", res.SampleID, invErr)
	res.Failures = append(res.Failures, result.Failure{
		Reason: result.ReasonStageInvocation,
		Detail: invErr.Error(),
	})
}

// foldTurnValues merges per-turn metric values into per-sample values: float
// metrics take the mean over turns with defined values, categorical metrics
// keep the last turn's label, and metrics undefined on every turn stay
// undefined.
func foldTurnValues(into map[string]metric.Value, perTurn []result.TurnMetrics) {
	type acc struct {
		sum      float64
		count    int
		category string
		seen     bool
	}
	accs := make(map[string]*acc)
	for _, values := range perTurn {
		for name, v := range values {
			a, ok := accs[name]
			if !ok {
				a = &acc{}
				accs[name] = a
			}
			a.seen = true
			if v.Undefined {
				continue
			}
			if v.Category != "" {
				a.category = v.Category
				continue
			}
			a.sum += v.Float
			a.count++
		}
	}
	for name, a := range accs {
		switch {
		case a.count > 0:
			into[name] = metric.FloatValue(a.sum / float64(a.count))
		case a.category != "":
			into[name] = metric.CategoryValue(a.category)
		case a.seen:
			into[name] = metric.UndefinedValue()
		}
	}
}
