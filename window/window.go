//
// Copyright (C) 2025 The raggauge Authors.  All rights reserved.
//
// raggauge is licensed under the Apache License Version 2.0.
//
//

// Package window builds the bounded trailing context used to evaluate a turn
// within a multi-turn conversation.
package window

import (
	"fmt"

	"github.com/raggauge/raggauge/sample"
)

// DefaultSize is the default number of preceding turns kept as context.
const DefaultSize = 5

// Windower slices a conversation into a fixed-size trailing context window.
type Windower struct {
	size int
}

// New creates a Windower with the given window size.
// A size of zero means no preceding context. Negative sizes are a
// configuration error surfaced before any run starts.
func New(size int) (*Windower, error) {
	if size < 0 {
		return nil, fmt.Errorf("window size must not be negative, got %d", size)
	}
	return &Windower{size: size}, nil
}

// Default creates a Windower with the default window size.
func Default() *Windower {
	return &Windower{size: DefaultSize}
}

// Size returns the configured window size.
func (w *Windower) Size() int {
	return w.size
}

// Window returns the preceding-context slice for the turn at index:
// turns[max(0, index-size) : index]. The subject turn itself is never part
// of the preceding context. Index 0 yields an empty window, and a size
// greater than or equal to index yields the full conversation prefix.
func (w *Windower) Window(turns []*sample.Turn, index int) ([]*sample.Turn, error) {
	if index < 0 || index >= len(turns) {
		return nil, fmt.Errorf("turn index %d out of range [0, %d)", index, len(turns))
	}
	start := index - w.size
	if start < 0 {
		start = 0
	}
	return turns[start:index], nil
}
