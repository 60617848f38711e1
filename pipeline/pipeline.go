//
// Copyright (C) 2025 The raggauge Authors.  All rights reserved.
//
// raggauge is licensed under the Apache License Version 2.0.
//
//

// Package pipeline declares the external stage collaborators the harness
// invokes to fill in retrieval, re-ranking, and generation outputs before
// evaluation. Implementing them is out of scope; the harness treats any
// returned error as a stage failure for that sample and turn.
package pipeline

import (
	"context"
	"fmt"

	"github.com/raggauge/raggauge/sample"
)

// Retriever returns candidate document identifiers for a query, best first.
type Retriever interface {
	Retrieve(ctx context.Context, query string, context []*sample.Turn) ([]string, error)
}

// ReRanker reorders or prunes a retrieved document list.
type ReRanker interface {
	ReRank(ctx context.Context, query string, documents []string) ([]string, error)
}

// Generator produces the response under test for a query and its context.
type Generator interface {
	Generate(ctx context.Context, query string, documents []string, context []*sample.Turn) (string, error)
}

// InvocationError records a collaborator failure for one turn.
type InvocationError struct {
	// Stage names the failing collaborator.
	Stage string
	// TurnIndex is the turn being processed.
	TurnIndex int
	// Err is the collaborator's error.
	Err error
}

// Error implements the error interface.
func (e *InvocationError) Error() string {
	return fmt.Sprintf("invoke %s for turn %d: %v", e.Stage, e.TurnIndex, e.Err)
}

// Unwrap returns the underlying error.
func (e *InvocationError) Unwrap() error {
	return e.Err
}
