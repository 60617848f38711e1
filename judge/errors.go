//
// Copyright (C) 2025 The raggauge Authors.  All rights reserved.
//
// raggauge is licensed under the Apache License Version 2.0.
//
//

package judge

import (
	"context"
	"errors"
	"fmt"
)

var (
	// ErrRateLimited signals that the judge endpoint rejected a call for rate limiting.
	// Collaborators wrap or return it to mark the failure as transient.
	ErrRateLimited = errors.New("judge rate limited")
	// ErrTimeout signals that a judge call timed out. Transient.
	ErrTimeout = errors.New("judge call timed out")
)

// UnavailableError reports that the judge could not produce a reply, either
// because retries were exhausted or because the failure was not retryable.
type UnavailableError struct {
	// Metric is the metric whose judge call failed.
	Metric string
	// Attempts is the number of live calls issued before giving up.
	Attempts int
	// Err is the last underlying error.
	Err error
}

// Error implements the error interface.
func (e *UnavailableError) Error() string {
	return fmt.Sprintf("judge unavailable for metric %s after %d attempt(s): %v", e.Metric, e.Attempts, e.Err)
}

// Unwrap returns the underlying error.
func (e *UnavailableError) Unwrap() error {
	return e.Err
}

// ParseError reports that a judge reply could not be parsed into the
// metric's declared value type.
type ParseError struct {
	// Metric is the metric whose reply failed to parse.
	Metric string
	// Reply is the raw judge reply.
	Reply string
	// Want describes the expected value shape.
	Want string
}

// Error implements the error interface.
func (e *ParseError) Error() string {
	return fmt.Sprintf("parse judge reply for metric %s: want %s, got %q", e.Metric, e.Want, e.Reply)
}

// transient reports whether an error from the judge collaborator should be retried.
// Timeouts and rate-limit signals are transient. Everything else, such as
// malformed payloads or authentication failures, fails immediately.
func transient(err error) bool {
	return errors.Is(err, ErrRateLimited) ||
		errors.Is(err, ErrTimeout) ||
		errors.Is(err, context.DeadlineExceeded)
}
