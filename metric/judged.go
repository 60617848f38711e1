//
// Copyright (C) 2025 The raggauge Authors.  All rights reserved.
//
// raggauge is licensed under the Apache License Version 2.0.
//
//

package metric

import (
	"context"
	"errors"
	"fmt"

	"github.com/raggauge/raggauge/judge"
	"github.com/raggauge/raggauge/sample"
)

// judgedPayload packages the turn, its windowed context and the rubric into
// the structured judge prompt inputs. Preceding turns are rendered as
// question/answer pairs so the judge sees the conversation the response was
// produced in.
func judgedPayload(def *Definition, instruction string, in *Inputs) (*judge.Payload, error) {
	if in.Turn.Response == "" {
		return nil, &ComputationError{Metric: def.Name, Err: errors.New("turn has no response")}
	}
	for _, field := range def.RubricFields {
		if _, ok := in.Sample.Rubric[field]; !ok {
			return nil, &ComputationError{
				Metric: def.Name,
				Err:    fmt.Errorf("sample %s rubric is missing field %s", in.Sample.SampleID, field),
			}
		}
	}
	var references []string
	if in.Sample.GroundTruth != nil {
		references = in.Sample.GroundTruth.References
	}
	return &judge.Payload{
		Instruction: instruction,
		Query:       in.Turn.Query,
		Response:    in.Turn.Response,
		Context:     renderContext(in.Context),
		References:  references,
		Rubric:      in.Sample.Rubric,
	}, nil
}

// renderContext flattens preceding turns into prompt context lines.
func renderContext(turns []*sample.Turn) []string {
	out := make([]string, 0, len(turns))
	for _, turn := range turns {
		line := "Q: " + turn.Query
		if turn.Response != "" {
			line += "\nA: " + turn.Response
		}
		out = append(out, line)
	}
	return out
}

// score issues the judge call for a judged metric. A nil Scorer is a wiring
// error reported as a computation failure for this metric alone.
func score(ctx context.Context, def *Definition, instruction string, in *Inputs) (*judge.CallRecord, error) {
	if in.Judge == nil {
		return nil, &ComputationError{Metric: def.Name, Err: errors.New("no judge adapter configured")}
	}
	payload, err := judgedPayload(def, instruction, in)
	if err != nil {
		return nil, err
	}
	record, err := in.Judge.Score(ctx, def.Name, payload)
	if err != nil {
		return nil, err
	}
	return record, nil
}

// NewJudgedUnit defines a judge-scored metric whose reply parses to a float
// in [0, 1], such as faithfulness or factual correctness. The instruction
// describes the criterion and tells the judge to answer with a number;
// rubricFields lists the rubric criteria the sample must carry.
func NewJudgedUnit(name string, stage Stage, instruction string, rubricFields []string, passThreshold *float64) *Definition {
	def := &Definition{
		Name:          name,
		Stage:         stage,
		ValueType:     TypeUnitFloat,
		Kind:          KindJudged,
		RubricFields:  rubricFields,
		PassThreshold: passThreshold,
	}
	def.Compute = func(ctx context.Context, in *Inputs) (Value, error) {
		record, err := score(ctx, def, instruction, in)
		if err != nil {
			return UndefinedValue(), err
		}
		v, err := judge.ParseUnitScore(def.Name, record.Rationale)
		if err != nil {
			return UndefinedValue(), err
		}
		return FloatValue(v), nil
	}
	return def
}

// NewJudgedCategory defines a judge-scored metric whose reply parses to one
// of the given category labels.
func NewJudgedCategory(name string, stage Stage, instruction string, categories, rubricFields []string) *Definition {
	def := &Definition{
		Name:         name,
		Stage:        stage,
		ValueType:    TypeCategorical,
		Kind:         KindJudged,
		RubricFields: rubricFields,
	}
	def.Compute = func(ctx context.Context, in *Inputs) (Value, error) {
		record, err := score(ctx, def, instruction, in)
		if err != nil {
			return UndefinedValue(), err
		}
		v, err := judge.ParseCategory(def.Name, record.Rationale, categories)
		if err != nil {
			return UndefinedValue(), err
		}
		return CategoryValue(v), nil
	}
	return def
}
