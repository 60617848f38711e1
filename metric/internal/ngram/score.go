//
// Copyright (C) 2025 The raggauge Authors.  All rights reserved.
//
// raggauge is licensed under the Apache License Version 2.0.
//
//

// Package ngram implements n-gram overlap scoring for lexical metrics.
package ngram

import (
	"math"
	"strings"
)

// Score holds precision, recall and F-measure for an overlap computation.
type Score struct {
	// Precision is the fraction of predicted units that match the reference in range [0, 1].
	Precision float64
	// Recall is the fraction of reference units that are matched by the prediction in range [0, 1].
	Recall float64
	// FMeasure is the harmonic mean of precision and recall in range [0, 1].
	FMeasure float64
}

// fMeasure computes the harmonic mean of precision and recall.
func fMeasure(precision, recall float64) float64 {
	if precision+recall > 0 {
		return 2 * precision * recall / (precision + recall)
	}
	return 0
}

// ScoreNGrams computes ROUGE-N precision, recall, and F-measure for tokenized inputs.
func ScoreNGrams(targetTokens, predTokens []string, n int) Score {
	if len(targetTokens) == 0 || len(predTokens) == 0 {
		return Score{}
	}
	targetNGrams := Counts(targetTokens, n)
	predNGrams := Counts(predTokens, n)

	var intersection int
	var targetCount int
	for key, cnt := range targetNGrams {
		targetCount += cnt
		if predCnt, ok := predNGrams[key]; ok {
			if cnt < predCnt {
				intersection += cnt
			} else {
				intersection += predCnt
			}
		}
	}
	var predCount int
	for _, cnt := range predNGrams {
		predCount += cnt
	}

	precision := float64(intersection) / float64(maxInt(predCount, 1))
	recall := float64(intersection) / float64(maxInt(targetCount, 1))
	return Score{Precision: precision, Recall: recall, FMeasure: fMeasure(precision, recall)}
}

// Counts builds a multiset of n-grams keyed by a delimiter-joined token sequence.
func Counts(tokens []string, n int) map[string]int {
	if n <= 0 || len(tokens) < n {
		return map[string]int{}
	}
	ngrams := make(map[string]int, len(tokens)-n+1)
	for i := 0; i <= len(tokens)-n; i++ {
		key := strings.Join(tokens[i:i+n], "\x00")
		ngrams[key]++
	}
	return ngrams
}

// ScoreLCS computes ROUGE-L precision, recall, and F-measure using the LCS length.
func ScoreLCS(targetTokens, predTokens []string) Score {
	if len(targetTokens) == 0 || len(predTokens) == 0 {
		return Score{}
	}
	lcsLen := lcsLength(targetTokens, predTokens)
	precision := float64(lcsLen) / float64(len(predTokens))
	recall := float64(lcsLen) / float64(len(targetTokens))
	return Score{Precision: precision, Recall: recall, FMeasure: fMeasure(precision, recall)}
}

// lcsLength computes the length of the longest common subsequence.
func lcsLength(ref, can []string) int {
	if len(ref) == 0 || len(can) == 0 {
		return 0
	}
	prev := make([]int, len(can)+1)
	curr := make([]int, len(can)+1)
	for i := 1; i <= len(ref); i++ {
		curr[0] = 0
		for j := 1; j <= len(can); j++ {
			if ref[i-1] == can[j-1] {
				curr[j] = prev[j-1] + 1
				continue
			}
			if prev[j] >= curr[j-1] {
				curr[j] = prev[j]
			} else {
				curr[j] = curr[j-1]
			}
		}
		prev, curr = curr, prev
	}
	return prev[len(can)]
}

// ScoreSummaryLCS computes summary-level LCS over sentence-split inputs,
// preventing double-counting of matched tokens across sentence pairs.
func ScoreSummaryLCS(targetSents, predSents [][]string) Score {
	if len(targetSents) == 0 || len(predSents) == 0 {
		return Score{}
	}
	m := 0
	for _, s := range targetSents {
		m += len(s)
	}
	n := 0
	for _, s := range predSents {
		n += len(s)
	}
	if m == 0 || n == 0 {
		return Score{}
	}

	tokenCntsR := make(map[string]int)
	tokenCntsC := make(map[string]int)
	for _, s := range targetSents {
		for _, tok := range s {
			tokenCntsR[tok]++
		}
	}
	for _, s := range predSents {
		for _, tok := range s {
			tokenCntsC[tok]++
		}
	}

	hits := 0
	for _, r := range targetSents {
		lcsTokens := unionLCS(r, predSents)
		for tok := range lcsTokens {
			hit := minInt(lcsTokens[tok], minInt(tokenCntsR[tok], tokenCntsC[tok]))
			hits += hit
			tokenCntsR[tok] -= hit
			tokenCntsC[tok] -= hit
		}
	}

	recall := float64(hits) / float64(m)
	precision := float64(hits) / float64(n)
	return Score{Precision: precision, Recall: recall, FMeasure: fMeasure(precision, recall)}
}

// unionLCS counts tokens in the union of LCS matches between a reference sentence and all candidate sentences.
func unionLCS(ref []string, canSents [][]string) map[string]int {
	indices := make(map[int]struct{})
	for _, can := range canSents {
		for _, idx := range lcsIndices(ref, can) {
			indices[idx] = struct{}{}
		}
	}
	counts := make(map[string]int, len(indices))
	for idx := range indices {
		counts[ref[idx]]++
	}
	return counts
}

// lcsIndices returns the reference indices participating in one LCS of ref and can.
func lcsIndices(ref, can []string) []int {
	if len(ref) == 0 || len(can) == 0 {
		return nil
	}
	table := make([][]int, len(ref)+1)
	for i := range table {
		table[i] = make([]int, len(can)+1)
	}
	for i := 1; i <= len(ref); i++ {
		for j := 1; j <= len(can); j++ {
			if ref[i-1] == can[j-1] {
				table[i][j] = table[i-1][j-1] + 1
			} else if table[i-1][j] >= table[i][j-1] {
				table[i][j] = table[i-1][j]
			} else {
				table[i][j] = table[i][j-1]
			}
		}
	}
	var indices []int
	for i, j := len(ref), len(can); i > 0 && j > 0; {
		switch {
		case ref[i-1] == can[j-1]:
			indices = append(indices, i-1)
			i--
			j--
		case table[i-1][j] >= table[i][j-1]:
			i--
		default:
			j--
		}
	}
	return indices
}

// ScoreBLEU computes a cumulative BLEU score with brevity penalty over
// modified n-gram precisions up to maxN.
func ScoreBLEU(targetTokens, predTokens []string, maxN int) float64 {
	if maxN <= 0 || len(targetTokens) == 0 || len(predTokens) == 0 {
		return 0
	}
	logSum := 0.0
	for n := 1; n <= maxN; n++ {
		if len(predTokens) < n {
			return 0
		}
		targetNGrams := Counts(targetTokens, n)
		predNGrams := Counts(predTokens, n)
		var clipped, total int
		for key, cnt := range predNGrams {
			total += cnt
			if refCnt, ok := targetNGrams[key]; ok {
				if cnt < refCnt {
					clipped += cnt
				} else {
					clipped += refCnt
				}
			}
		}
		if clipped == 0 {
			return 0
		}
		logSum += math.Log(float64(clipped) / float64(total))
	}
	precision := math.Exp(logSum / float64(maxN))

	brevity := 1.0
	if len(predTokens) < len(targetTokens) {
		brevity = math.Exp(1 - float64(len(targetTokens))/float64(len(predTokens)))
	}
	return brevity * precision
}

// maxInt returns the larger of a and b.
func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}

// minInt returns the smaller of a and b.
func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}
