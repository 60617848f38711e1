//
// Copyright (C) 2025 The raggauge Authors.  All rights reserved.
//
// raggauge is licensed under the Apache License Version 2.0.
//
//

package metric

import "fmt"

// DuplicateError reports a metric name registered twice. It is a
// configuration error and surfaces before any run starts.
type DuplicateError struct {
	// Name is the conflicting metric name.
	Name string
}

// Error implements the error interface.
func (e *DuplicateError) Error() string {
	return fmt.Sprintf("metric %s is already registered", e.Name)
}

// ComputationError reports that one metric could not be computed for one
// sample. It is recorded as a per-metric failure and never aborts the batch.
type ComputationError struct {
	// Metric is the metric that failed.
	Metric string
	// Err is the underlying cause.
	Err error
}

// Error implements the error interface.
func (e *ComputationError) Error() string {
	return fmt.Sprintf("compute metric %s: %v", e.Metric, e.Err)
}

// Unwrap returns the underlying error.
func (e *ComputationError) Unwrap() error {
	return e.Err
}
