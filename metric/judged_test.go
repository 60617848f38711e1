//
// Copyright (C) 2025 The raggauge Authors.  All rights reserved.
//
// raggauge is licensed under the Apache License Version 2.0.
//
//

package metric

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/raggauge/raggauge/judge"
	"github.com/raggauge/raggauge/sample"
)

// stubScorer replies with a fixed rationale and records payloads.
type stubScorer struct {
	reply    string
	err      error
	payloads []*judge.Payload
}

func (s *stubScorer) Score(ctx context.Context, metricName string, p *judge.Payload) (*judge.CallRecord, error) {
	s.payloads = append(s.payloads, p)
	if s.err != nil {
		return nil, s.err
	}
	return &judge.CallRecord{MetricName: metricName, Rationale: s.reply}, nil
}

func judgedInputs(scorer Scorer) *Inputs {
	s := &sample.Sample{
		SampleID: "s1",
		Turns: []*sample.Turn{
			{Query: "who wrote it?", Response: "Victor Hugo"},
			{Query: "when?", Response: "1862"},
		},
		GroundTruth: &sample.GroundTruth{References: []string{"1862"}},
		Rubric:      map[string]string{"correctness": "names the right year"},
	}
	return &Inputs{
		Sample:    s,
		TurnIndex: 1,
		Turn:      s.Turns[1],
		Context:   s.Turns[:1],
		Judge:     scorer,
	}
}

func TestJudgedUnit_ParsesScore(t *testing.T) {
	scorer := &stubScorer{reply: "Score: 0.9"}
	def := NewJudgedUnit("factual_correctness", StageEndToEnd,
		"Rate the factual correctness of the answer from 0 to 1.",
		[]string{"correctness"}, Threshold(0.5))

	v, err := def.Compute(context.Background(), judgedInputs(scorer))
	require.NoError(t, err)
	assert.InDelta(t, 0.9, v.Float, 1e-9)

	require.Len(t, scorer.payloads, 1)
	payload := scorer.payloads[0]
	assert.Equal(t, "when?", payload.Query)
	assert.Equal(t, "1862", payload.Response)
	assert.Equal(t, []string{"1862"}, payload.References)
	require.Len(t, payload.Context, 1)
	assert.Contains(t, payload.Context[0], "who wrote it?")
	assert.Contains(t, payload.Context[0], "Victor Hugo")
}

func TestJudgedUnit_ParseFailure(t *testing.T) {
	scorer := &stubScorer{reply: "I cannot decide."}
	def := NewJudgedUnit("factual_correctness", StageEndToEnd, "Rate 0 to 1.", nil, nil)

	_, err := def.Compute(context.Background(), judgedInputs(scorer))
	require.Error(t, err)
	var parseErr *judge.ParseError
	assert.ErrorAs(t, err, &parseErr)
}

func TestJudgedUnit_JudgeUnavailable(t *testing.T) {
	scorer := &stubScorer{err: &judge.UnavailableError{Metric: "factual_correctness", Attempts: 3, Err: judge.ErrTimeout}}
	def := NewJudgedUnit("factual_correctness", StageEndToEnd, "Rate 0 to 1.", nil, nil)

	_, err := def.Compute(context.Background(), judgedInputs(scorer))
	require.Error(t, err)
	var unavailable *judge.UnavailableError
	assert.ErrorAs(t, err, &unavailable)
}

// TestJudgedUnit_MissingRubricField verifies a declared rubric requirement is
// checked before any judge call.
func TestJudgedUnit_MissingRubricField(t *testing.T) {
	scorer := &stubScorer{reply: "0.9"}
	def := NewJudgedUnit("style", StageGenerator, "Rate style.", []string{"tone"}, nil)

	_, err := def.Compute(context.Background(), judgedInputs(scorer))
	require.Error(t, err)
	var compErr *ComputationError
	assert.ErrorAs(t, err, &compErr)
	assert.Empty(t, scorer.payloads)
}

func TestJudgedUnit_NoAdapter(t *testing.T) {
	def := NewJudgedUnit("factual_correctness", StageEndToEnd, "Rate 0 to 1.", nil, nil)
	in := judgedInputs(nil)
	_, err := def.Compute(context.Background(), in)
	require.Error(t, err)
	var compErr *ComputationError
	assert.ErrorAs(t, err, &compErr)
}

func TestJudgedCategory_ParsesLabel(t *testing.T) {
	scorer := &stubScorer{reply: "Verdict: Supported."}
	def := NewJudgedCategory("groundedness", StageGenerator, "Classify the answer.",
		[]string{"supported", "contradicted", "unverifiable"}, nil)

	v, err := def.Compute(context.Background(), judgedInputs(scorer))
	require.NoError(t, err)
	assert.Equal(t, "supported", v.Category)
}
