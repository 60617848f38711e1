//
// Copyright (C) 2025 The raggauge Authors.  All rights reserved.
//
// raggauge is licensed under the Apache License Version 2.0.
//
//

// Package sample defines the canonical representation of one evaluation unit.
package sample

import (
	"fmt"
)

// Sample represents one evaluation unit, single-turn or multi-turn.
type Sample struct {
	// SampleID uniquely identifies this sample.
	SampleID string `json:"sampleId,omitempty"`
	// Turns contains the ordered conversation turns. A single-turn sample has exactly one turn.
	Turns []*Turn `json:"turns,omitempty"`
	// GroundTruth contains optional reference answers and document identifiers.
	GroundTruth *GroundTruth `json:"groundTruth,omitempty"`
	// Rubric maps criterion names to the expected qualitative level for judged metrics.
	Rubric map[string]string `json:"rubric,omitempty"`
}

// Turn represents a single query/response exchange within a sample.
type Turn struct {
	// Query is the user query text.
	Query string `json:"query,omitempty"`
	// RetrievedDocuments holds document identifiers in retrieval order. May be empty.
	RetrievedDocuments []string `json:"retrievedDocuments,omitempty"`
	// RankedDocuments holds the re-ranked document identifiers.
	// It must be a permutation or subset of RetrievedDocuments.
	RankedDocuments []string `json:"rankedDocuments,omitempty"`
	// Response is the generator output for this turn. Empty until the generation stage runs.
	Response string `json:"response,omitempty"`
}

// GroundTruth contains the reference material a sample is evaluated against.
type GroundTruth struct {
	// References holds one or more reference answer texts.
	References []string `json:"references,omitempty"`
	// DocumentIDs holds identifiers of the documents considered relevant.
	DocumentIDs []string `json:"documentIds,omitempty"`
}

// ValidationError reports a malformed sample. It is fatal for that sample only.
type ValidationError struct {
	// SampleID identifies the offending sample.
	SampleID string
	// Reason describes the violated invariant.
	Reason string
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	return fmt.Sprintf("sample %s invalid: %s", e.SampleID, e.Reason)
}

// Validate checks the structural invariants of the sample.
// A sample must carry at least one turn, and every turn's ranked documents
// must be a subset of its retrieved documents.
func (s *Sample) Validate() error {
	if s.SampleID == "" {
		return &ValidationError{SampleID: s.SampleID, Reason: "sample id is empty"}
	}
	if len(s.Turns) == 0 {
		return &ValidationError{SampleID: s.SampleID, Reason: "turns are empty"}
	}
	for i, turn := range s.Turns {
		if turn == nil {
			return &ValidationError{SampleID: s.SampleID, Reason: fmt.Sprintf("turn %d is nil", i)}
		}
		if turn.Query == "" {
			return &ValidationError{SampleID: s.SampleID, Reason: fmt.Sprintf("turn %d query is empty", i)}
		}
		if err := validateRanked(turn); err != nil {
			return &ValidationError{SampleID: s.SampleID, Reason: fmt.Sprintf("turn %d: %v", i, err)}
		}
	}
	return nil
}

// MultiTurn reports whether the sample carries more than one turn.
func (s *Sample) MultiTurn() bool {
	return len(s.Turns) > 1
}

// validateRanked checks that ranked documents form a subset of retrieved documents.
func validateRanked(turn *Turn) error {
	if len(turn.RankedDocuments) == 0 {
		return nil
	}
	retrieved := make(map[string]struct{}, len(turn.RetrievedDocuments))
	for _, docID := range turn.RetrievedDocuments {
		retrieved[docID] = struct{}{}
	}
	for _, docID := range turn.RankedDocuments {
		if _, ok := retrieved[docID]; !ok {
			return fmt.Errorf("ranked document %s not present in retrieved documents", docID)
		}
	}
	return nil
}
