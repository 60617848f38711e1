//
// Copyright (C) 2025 The raggauge Authors.  All rights reserved.
//
// raggauge is licensed under the Apache License Version 2.0.
//
//

package metric

import (
	"context"
	"fmt"

	"github.com/raggauge/raggauge/sample"
)

// rankingName builds a stage-scoped metric name such as
// "reranker_precision@5", so the same metric can be registered for several
// stages without colliding. A non-positive k means the full list is
// considered and the name carries no @k suffix.
func rankingName(stage Stage, base string, k int) string {
	if k <= 0 {
		return fmt.Sprintf("%s_%s", stage, base)
	}
	return fmt.Sprintf("%s_%s@%d", stage, base, k)
}

// docsForStage selects the document list a ranking metric scores for a stage.
// The retriever stage scores the raw retrieved list; later stages score the
// re-ranked list, falling back to the retrieved list when no re-ranking ran.
func docsForStage(stage Stage, turn *sample.Turn) []string {
	if stage == StageRetriever {
		return turn.RetrievedDocuments
	}
	if len(turn.RankedDocuments) > 0 {
		return turn.RankedDocuments
	}
	return turn.RetrievedDocuments
}

// topK bounds the considered list to its first k entries. A non-positive k
// keeps the full list.
func topK(docs []string, k int) []string {
	if k > 0 && k < len(docs) {
		return docs[:k]
	}
	return docs
}

// HitRate reports 1 when any of the top-k documents appears in the
// ground-truth set, 0 otherwise, including when the ground truth is empty.
func HitRate(docs, truth []string, k int) float64 {
	truthSet := toSet(truth)
	for _, doc := range topK(docs, k) {
		if truthSet[doc] {
			return 1
		}
	}
	return 0
}

// ReciprocalRank returns 1/r for the first ground-truth document at
// 1-indexed rank r within the top-k, 0 when no match is found.
func ReciprocalRank(docs, truth []string, k int) float64 {
	truthSet := toSet(truth)
	for i, doc := range topK(docs, k) {
		if truthSet[doc] {
			return 1 / float64(i+1)
		}
	}
	return 0
}

// PrecisionAtK returns the fraction of the top-k documents present in the
// ground-truth set. The value is undefined when the considered list is empty.
func PrecisionAtK(docs, truth []string, k int) (float64, bool) {
	considered := topK(docs, k)
	if len(considered) == 0 {
		return 0, false
	}
	truthSet := toSet(truth)
	hits := 0
	for _, doc := range considered {
		if truthSet[doc] {
			hits++
		}
	}
	return float64(hits) / float64(len(considered)), true
}

// RecallAtK returns the fraction of ground-truth documents present in the
// top-k. The value is undefined when the ground-truth set is empty.
func RecallAtK(docs, truth []string, k int) (float64, bool) {
	truthSet := toSet(truth)
	if len(truthSet) == 0 {
		return 0, false
	}
	found := make(map[string]bool, len(truthSet))
	for _, doc := range topK(docs, k) {
		if truthSet[doc] {
			found[doc] = true
		}
	}
	return float64(len(found)) / float64(len(truthSet)), true
}

// toSet builds a membership set from a document list.
func toSet(docs []string) map[string]bool {
	set := make(map[string]bool, len(docs))
	for _, doc := range docs {
		set[doc] = true
	}
	return set
}

// groundTruthDocs extracts the ground-truth document identifiers. Samples
// without them yield undefined ranking values rather than zeros, so they do
// not drag run-level aggregates down.
func groundTruthDocs(s *sample.Sample) []string {
	if s.GroundTruth == nil {
		return nil
	}
	return s.GroundTruth.DocumentIDs
}

// NewHitRate defines the hit-rate metric over the stage's document list,
// considering the top k documents; k <= 0 considers the full list.
func NewHitRate(stage Stage, k int) *Definition {
	name := rankingName(stage, "hit_rate", k)
	return &Definition{
		Name:          name,
		Stage:         stage,
		ValueType:     TypeUnitFloat,
		Kind:          KindDeterministic,
		PassThreshold: Threshold(1),
		Compute: func(ctx context.Context, in *Inputs) (Value, error) {
			truth := groundTruthDocs(in.Sample)
			if len(truth) == 0 {
				return UndefinedValue(), nil
			}
			return FloatValue(HitRate(docsForStage(stage, in.Turn), truth, k)), nil
		},
	}
}

// NewMRR defines the mean reciprocal rank metric over the stage's document
// list. The per-sample value is the reciprocal rank; the run-level mean is
// taken by the aggregator.
func NewMRR(stage Stage, k int) *Definition {
	name := rankingName(stage, "mrr", k)
	return &Definition{
		Name:      name,
		Stage:     stage,
		ValueType: TypeUnitFloat,
		Kind:      KindDeterministic,
		Compute: func(ctx context.Context, in *Inputs) (Value, error) {
			truth := groundTruthDocs(in.Sample)
			if len(truth) == 0 {
				return UndefinedValue(), nil
			}
			return FloatValue(ReciprocalRank(docsForStage(stage, in.Turn), truth, k)), nil
		},
	}
}

// NewPrecisionAtK defines precision over the top k of the stage's document list.
func NewPrecisionAtK(stage Stage, k int) *Definition {
	name := rankingName(stage, "precision", k)
	return &Definition{
		Name:      name,
		Stage:     stage,
		ValueType: TypeUnitFloat,
		Kind:      KindDeterministic,
		Compute: func(ctx context.Context, in *Inputs) (Value, error) {
			truth := groundTruthDocs(in.Sample)
			if len(truth) == 0 {
				return UndefinedValue(), nil
			}
			v, ok := PrecisionAtK(docsForStage(stage, in.Turn), truth, k)
			if !ok {
				return UndefinedValue(), nil
			}
			return FloatValue(v), nil
		},
	}
}

// NewRecallAtK defines recall over the top k of the stage's document list.
func NewRecallAtK(stage Stage, k int) *Definition {
	name := rankingName(stage, "recall", k)
	return &Definition{
		Name:      name,
		Stage:     stage,
		ValueType: TypeUnitFloat,
		Kind:      KindDeterministic,
		Compute: func(ctx context.Context, in *Inputs) (Value, error) {
			truth := groundTruthDocs(in.Sample)
			if len(truth) == 0 {
				return UndefinedValue(), nil
			}
			v, ok := RecallAtK(docsForStage(stage, in.Turn), truth, k)
			if !ok {
				return UndefinedValue(), nil
			}
			return FloatValue(v), nil
		},
	}
}
