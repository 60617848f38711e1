//
// Copyright (C) 2025 The raggauge Authors.  All rights reserved.
//
// raggauge is licensed under the Apache License Version 2.0.
//
//

package sample

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestSample_Validate_SingleTurn verifies that a well-formed single-turn sample passes validation.
func TestSample_Validate_SingleTurn(t *testing.T) {
	s := &Sample{
		SampleID: "s1",
		Turns: []*Turn{{
			Query:              "What is the capital of France?",
			RetrievedDocuments: []string{"doc_paris"},
			RankedDocuments:    []string{"doc_paris"},
		}},
	}
	require.NoError(t, s.Validate())
	assert.False(t, s.MultiTurn())
}

// TestSample_Validate_EmptyTurns verifies that a sample without turns fails validation.
func TestSample_Validate_EmptyTurns(t *testing.T) {
	s := &Sample{SampleID: "s1"}
	err := s.Validate()
	require.Error(t, err)
	var validationErr *ValidationError
	require.ErrorAs(t, err, &validationErr)
	assert.Contains(t, validationErr.Reason, "turns are empty")
}

// TestSample_Validate_EmptySampleID verifies that a missing sample id fails validation.
func TestSample_Validate_EmptySampleID(t *testing.T) {
	s := &Sample{Turns: []*Turn{{Query: "q"}}}
	err := s.Validate()
	require.Error(t, err)
	var validationErr *ValidationError
	require.ErrorAs(t, err, &validationErr)
	assert.Contains(t, validationErr.Reason, "sample id")
}

// TestSample_Validate_RankedNotSubset verifies that ranked documents outside the retrieved set are rejected.
func TestSample_Validate_RankedNotSubset(t *testing.T) {
	s := &Sample{
		SampleID: "s1",
		Turns: []*Turn{{
			Query:              "q",
			RetrievedDocuments: []string{"doc_a"},
			RankedDocuments:    []string{"doc_b"},
		}},
	}
	err := s.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "doc_b")
}

// TestSample_Validate_RankedSubsetReorder verifies that a reordered subset of retrieved documents is accepted.
func TestSample_Validate_RankedSubsetReorder(t *testing.T) {
	s := &Sample{
		SampleID: "s1",
		Turns: []*Turn{{
			Query:              "q",
			RetrievedDocuments: []string{"doc_a", "doc_b", "doc_c"},
			RankedDocuments:    []string{"doc_c", "doc_a"},
		}},
	}
	require.NoError(t, s.Validate())
	assert.False(t, s.MultiTurn())
}

// TestSample_MultiTurn verifies multi-turn detection.
func TestSample_MultiTurn(t *testing.T) {
	s := &Sample{
		SampleID: "s1",
		Turns:    []*Turn{{Query: "q1"}, {Query: "q2"}},
	}
	require.NoError(t, s.Validate())
	assert.True(t, s.MultiTurn())
}
