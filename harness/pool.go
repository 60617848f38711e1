//
// Copyright (C) 2025 The raggauge Authors.  All rights reserved.
//
// raggauge is licensed under the Apache License Version 2.0.
//
//

package harness

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/panjf2000/ants/v2"

	"github.com/raggauge/raggauge/result"
	"github.com/raggauge/raggauge/sample"
)

// resultSink collects sample results from concurrent workers.
type resultSink struct {
	mu      sync.Mutex
	results []*result.SampleResult
}

func (s *resultSink) add(r *result.SampleResult) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.results = append(s.results, r)
}

func (s *resultSink) all() []*result.SampleResult {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]*result.SampleResult(nil), s.results...)
}

type sampleEvalParam struct {
	ctx  context.Context
	s    *sample.Sample
	h    *Harness
	sink *resultSink
	wg   *sync.WaitGroup
}

func (p *sampleEvalParam) reset() {
	p.ctx = nil
	p.s = nil
	p.h = nil
	p.sink = nil
	p.wg = nil
}

var sampleEvalParamPool = &sync.Pool{
	New: func() any { return new(sampleEvalParam) },
}

func createSampleEvalPool(size int) (*ants.PoolWithFunc, error) {
	if size <= 0 {
		return nil, errors.New("pool size must be greater than 0")
	}
	pool, err := ants.NewPoolWithFunc(size, func(args any) {
		param, ok := args.(*sampleEvalParam)
		if !ok {
			panic("sample eval pool args type error")
		}
		wg := param.wg
		defer func() {
			wg.Done()
			param.reset()
			sampleEvalParamPool.Put(param)
		}()
		param.sink.add(param.h.evaluateSample(param.ctx, param.s))
	})
	if err != nil {
		return nil, fmt.Errorf("create sample eval pool: %w", err)
	}
	return pool, nil
}
