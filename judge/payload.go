//
// Copyright (C) 2025 The raggauge Authors.  All rights reserved.
//
// raggauge is licensed under the Apache License Version 2.0.
//
//

package judge

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// Payload carries the structured inputs of one judge call.
type Payload struct {
	// Instruction is the system instruction describing the rubric and the expected reply shape.
	Instruction string `json:"instruction,omitempty"`
	// Query is the user query under evaluation.
	Query string `json:"query,omitempty"`
	// Response is the generator response being scored.
	Response string `json:"response,omitempty"`
	// Context holds the retrieved context passages and preceding conversation turns.
	Context []string `json:"context,omitempty"`
	// References holds the reference answers, when available.
	References []string `json:"references,omitempty"`
	// Rubric maps criterion names to expected qualitative levels.
	Rubric map[string]string `json:"rubric,omitempty"`
}

// Prompt renders the payload into the user prompt text sent to the judge.
func (p *Payload) Prompt() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Question:\n%s\n", p.Query)
	if len(p.Context) > 0 {
		fmt.Fprintf(&sb, "\nContext:\n%s\n", strings.Join(p.Context, "\n"))
	}
	if len(p.References) > 0 {
		fmt.Fprintf(&sb, "\nReference answer:\n%s\n", strings.Join(p.References, "\n"))
	}
	if len(p.Rubric) > 0 {
		sb.WriteString("\nRubric:\n")
		for _, criterion := range sortedKeys(p.Rubric) {
			fmt.Fprintf(&sb, "- %s: %s\n", criterion, p.Rubric[criterion])
		}
	}
	fmt.Fprintf(&sb, "\nAnswer:\n%s\n", p.Response)
	return sb.String()
}

// cacheKey hashes the metric name, judge model identifier and the serialized
// payload. Identical inputs always map to the same key within a run.
func cacheKey(metricName, modelID string, p *Payload) (string, error) {
	serialized, err := json.Marshal(p)
	if err != nil {
		return "", fmt.Errorf("serialize judge payload: %w", err)
	}
	h := sha256.New()
	h.Write([]byte(metricName))
	h.Write([]byte{0})
	h.Write([]byte(modelID))
	h.Write([]byte{0})
	h.Write(serialized)
	return hex.EncodeToString(h.Sum(nil)), nil
}

// sortedKeys returns map keys in lexicographic order for stable prompt rendering.
func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	for i := 1; i < len(keys); i++ {
		for j := i; j > 0 && keys[j] < keys[j-1]; j-- {
			keys[j], keys[j-1] = keys[j-1], keys[j]
		}
	}
	return keys
}

var scorePattern = regexp.MustCompile(`[-+]?[0-9]*\.?[0-9]+`)

// ParseUnitScore extracts a score in [0, 1] from a judge reply.
// Percentages such as "85%" are accepted and scaled down.
func ParseUnitScore(metricName, reply string) (float64, error) {
	trimmed := strings.TrimSpace(reply)
	if trimmed == "" {
		return 0, &ParseError{Metric: metricName, Reply: reply, Want: "number in [0,1]"}
	}
	match := scorePattern.FindString(trimmed)
	if match == "" {
		return 0, &ParseError{Metric: metricName, Reply: reply, Want: "number in [0,1]"}
	}
	val, err := strconv.ParseFloat(match, 64)
	if err != nil {
		return 0, &ParseError{Metric: metricName, Reply: reply, Want: "number in [0,1]"}
	}
	if val > 1 && val <= 100 && strings.Contains(trimmed, "%") {
		val = val / 100
	}
	if val < 0 || val > 1 {
		return 0, &ParseError{Metric: metricName, Reply: reply, Want: "number in [0,1]"}
	}
	return val, nil
}

// ParseCategory extracts one of the allowed category labels from a judge reply.
// Matching is case-insensitive and scans the reply for the first label occurrence.
func ParseCategory(metricName, reply string, categories []string) (string, error) {
	lowered := strings.ToLower(reply)
	best := ""
	bestIdx := -1
	for _, category := range categories {
		idx := strings.Index(lowered, strings.ToLower(category))
		if idx < 0 {
			continue
		}
		if bestIdx < 0 || idx < bestIdx {
			best = category
			bestIdx = idx
		}
	}
	if bestIdx < 0 {
		return "", &ParseError{
			Metric: metricName,
			Reply:  reply,
			Want:   "one of " + strings.Join(categories, "|"),
		}
	}
	return best, nil
}
