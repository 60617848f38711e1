//
// Copyright (C) 2025 The raggauge Authors.  All rights reserved.
//
// raggauge is licensed under the Apache License Version 2.0.
//
//

package ngram

import (
	"regexp"
	"strings"
)

var (
	// nonAlphaNumRE matches one or more non-alphanumeric characters for normalization.
	nonAlphaNumRE = regexp.MustCompile(`[^a-z0-9]+`)
	// spacesRE matches one or more whitespace characters for token splitting.
	spacesRE = regexp.MustCompile(`\s+`)
)

// Tokenizer tokenizes text into a list of tokens.
type Tokenizer interface {
	// Tokenize splits input text into tokens.
	Tokenize(text string) []string
}

// defaultTokenizer lowercases, normalizes punctuation, and splits on whitespace.
type defaultTokenizer struct{}

// NewTokenizer creates the built-in case-normalizing whitespace tokenizer.
func NewTokenizer() Tokenizer {
	return defaultTokenizer{}
}

// Tokenize lowercases, replaces non-alphanumeric runs with spaces, and splits on whitespace.
func (defaultTokenizer) Tokenize(text string) []string {
	text = strings.ToLower(text)
	text = nonAlphaNumRE.ReplaceAllString(text, " ")

	parts := spacesRE.Split(text, -1)
	tokens := make([]string, 0, len(parts))
	for _, token := range parts {
		if token == "" {
			continue
		}
		tokens = append(tokens, token)
	}
	return tokens
}
