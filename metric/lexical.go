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

	"github.com/raggauge/raggauge/metric/internal/ngram"
)

// LexicalOption customizes a lexical metric definition.
type LexicalOption func(*lexicalOptions)

type lexicalOptions struct {
	tokenizer ngram.Tokenizer
}

// WithTokenizer overrides the default case-normalizing whitespace tokenizer.
func WithTokenizer(t ngram.Tokenizer) LexicalOption {
	return func(o *lexicalOptions) {
		o.tokenizer = t
	}
}

func newLexicalOptions(opts ...LexicalOption) *lexicalOptions {
	o := &lexicalOptions{tokenizer: ngram.NewTokenizer()}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// lexicalInputs extracts the response and reference texts a lexical metric
// compares. Missing response or references fail the computation.
func lexicalInputs(name string, in *Inputs) (string, []string, error) {
	if in.Turn.Response == "" {
		return "", nil, &ComputationError{Metric: name, Err: errors.New("turn has no response")}
	}
	if in.Sample.GroundTruth == nil || len(in.Sample.GroundTruth.References) == 0 {
		return "", nil, &ComputationError{Metric: name, Err: errors.New("sample has no reference answers")}
	}
	return in.Turn.Response, in.Sample.GroundTruth.References, nil
}

// maxOverReferences scores the response against every reference and keeps the
// best value, the usual multi-reference convention.
func maxOverReferences(references []string, score func(reference string) (float64, error)) (float64, error) {
	best := 0.0
	for _, reference := range references {
		v, err := score(reference)
		if err != nil {
			return 0, err
		}
		if v > best {
			best = v
		}
	}
	return best, nil
}

// NewROUGEN defines the ROUGE-N F-measure of the response against the best
// matching reference, for n-gram order n.
func NewROUGEN(stage Stage, n int, opts ...LexicalOption) *Definition {
	o := newLexicalOptions(opts...)
	name := fmt.Sprintf("%s_rouge%d", stage, n)
	return &Definition{
		Name:      name,
		Stage:     stage,
		ValueType: TypeUnitFloat,
		Kind:      KindDeterministic,
		Compute: func(ctx context.Context, in *Inputs) (Value, error) {
			response, references, err := lexicalInputs(name, in)
			if err != nil {
				return UndefinedValue(), err
			}
			predTokens := o.tokenizer.Tokenize(response)
			best, _ := maxOverReferences(references, func(reference string) (float64, error) {
				s := ngram.ScoreNGrams(o.tokenizer.Tokenize(reference), predTokens, n)
				return s.FMeasure, nil
			})
			return FloatValue(best), nil
		},
	}
}

// NewROUGEL defines the sentence-level ROUGE-L F-measure of the response
// against the best matching reference.
func NewROUGEL(stage Stage, opts ...LexicalOption) *Definition {
	o := newLexicalOptions(opts...)
	name := fmt.Sprintf("%s_rougeL", stage)
	return &Definition{
		Name:      name,
		Stage:     stage,
		ValueType: TypeUnitFloat,
		Kind:      KindDeterministic,
		Compute: func(ctx context.Context, in *Inputs) (Value, error) {
			response, references, err := lexicalInputs(name, in)
			if err != nil {
				return UndefinedValue(), err
			}
			predTokens := o.tokenizer.Tokenize(response)
			best, _ := maxOverReferences(references, func(reference string) (float64, error) {
				s := ngram.ScoreLCS(o.tokenizer.Tokenize(reference), predTokens)
				return s.FMeasure, nil
			})
			return FloatValue(best), nil
		},
	}
}

// NewROUGELSum defines the summary-level ROUGE-L F-measure. The response and
// reference are sentence-split before the union-LCS computation.
func NewROUGELSum(stage Stage, opts ...LexicalOption) *Definition {
	o := newLexicalOptions(opts...)
	name := fmt.Sprintf("%s_rougeLsum", stage)
	return &Definition{
		Name:      name,
		Stage:     stage,
		ValueType: TypeUnitFloat,
		Kind:      KindDeterministic,
		Compute: func(ctx context.Context, in *Inputs) (Value, error) {
			response, references, err := lexicalInputs(name, in)
			if err != nil {
				return UndefinedValue(), err
			}
			predSents, err := tokenizedSentences(response, o.tokenizer)
			if err != nil {
				return UndefinedValue(), &ComputationError{Metric: name, Err: err}
			}
			best, err := maxOverReferences(references, func(reference string) (float64, error) {
				targetSents, err := tokenizedSentences(reference, o.tokenizer)
				if err != nil {
					return 0, err
				}
				return ngram.ScoreSummaryLCS(targetSents, predSents).FMeasure, nil
			})
			if err != nil {
				return UndefinedValue(), &ComputationError{Metric: name, Err: err}
			}
			return FloatValue(best), nil
		},
	}
}

// NewBLEU defines a cumulative BLEU score over n-gram orders up to maxN
// against the best matching reference.
func NewBLEU(stage Stage, maxN int, opts ...LexicalOption) *Definition {
	o := newLexicalOptions(opts...)
	name := fmt.Sprintf("%s_bleu%d", stage, maxN)
	return &Definition{
		Name:      name,
		Stage:     stage,
		ValueType: TypeUnitFloat,
		Kind:      KindDeterministic,
		Compute: func(ctx context.Context, in *Inputs) (Value, error) {
			response, references, err := lexicalInputs(name, in)
			if err != nil {
				return UndefinedValue(), err
			}
			predTokens := o.tokenizer.Tokenize(response)
			best, _ := maxOverReferences(references, func(reference string) (float64, error) {
				return ngram.ScoreBLEU(o.tokenizer.Tokenize(reference), predTokens, maxN), nil
			})
			return FloatValue(best), nil
		},
	}
}

// tokenizedSentences sentence-splits text and tokenizes each sentence.
func tokenizedSentences(text string, tokenizer ngram.Tokenizer) ([][]string, error) {
	sents, err := ngram.SplitSentences(text)
	if err != nil {
		return nil, err
	}
	out := make([][]string, 0, len(sents))
	for _, sent := range sents {
		tokens := tokenizer.Tokenize(sent)
		if len(tokens) == 0 {
			continue
		}
		out = append(out, tokens)
	}
	return out, nil
}
