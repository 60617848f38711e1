//
// Copyright (C) 2025 The raggauge Authors.  All rights reserved.
//
// raggauge is licensed under the Apache License Version 2.0.
//
//

// Package dataset abstracts where evaluation samples come from. Parsing and
// loading belong to external loaders; the harness consumes any Source.
package dataset

import (
	"context"
	"io"

	"github.com/raggauge/raggauge/sample"
)

// Source yields samples one at a time. Next returns io.EOF after the last
// sample. Sources need not be safe for concurrent use; the harness reads
// from a single goroutine.
type Source interface {
	// Next returns the next sample or io.EOF when exhausted.
	Next(ctx context.Context) (*sample.Sample, error)
	// Close releases source resources.
	Close() error
}

// sliceSource serves samples from an in-memory slice.
type sliceSource struct {
	samples []*sample.Sample
	pos     int
}

// FromSamples creates a Source over the given samples.
func FromSamples(samples ...*sample.Sample) Source {
	return &sliceSource{samples: samples}
}

// Next implements Source.
func (s *sliceSource) Next(ctx context.Context) (*sample.Sample, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if s.pos >= len(s.samples) {
		return nil, io.EOF
	}
	out := s.samples[s.pos]
	s.pos++
	return out, nil
}

// Close implements Source.
func (s *sliceSource) Close() error {
	return nil
}
