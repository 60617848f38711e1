//
// Copyright (C) 2025 The raggauge Authors.  All rights reserved.
//
// raggauge is licensed under the Apache License Version 2.0.
//
//

// Package inmemory provides an in-memory result manager, mainly for tests
// and single-process runs.
package inmemory

import (
	"context"
	"fmt"
	"os"
	"sync"

	"github.com/raggauge/raggauge/internal/clone"
	"github.com/raggauge/raggauge/result"
)

// Manager stores results in process memory. Safe for concurrent use.
type Manager struct {
	mu sync.RWMutex
	// samples maps run ID to sample ID to result.
	samples map[string]map[string]*result.SampleResult
	// sampleOrder preserves insertion order per run.
	sampleOrder map[string][]string
	// summaries maps run ID to summary.
	summaries map[string]*result.RunSummary
	// series maps model ID to run IDs in save order.
	series map[string][]string
}

// New creates an empty in-memory result manager.
func New() *Manager {
	return &Manager{
		samples:     make(map[string]map[string]*result.SampleResult),
		sampleOrder: make(map[string][]string),
		summaries:   make(map[string]*result.RunSummary),
		series:      make(map[string][]string),
	}
}

// SaveSampleResult stores a deep copy of the result.
func (m *Manager) SaveSampleResult(ctx context.Context, runID string, r *result.SampleResult) error {
	if runID == "" || r == nil || r.SampleID == "" {
		return fmt.Errorf("invalid sample result for run %q", runID)
	}
	cloned, err := clone.Clone(r)
	if err != nil {
		return fmt.Errorf("clone sample result: %w", err)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	byID, ok := m.samples[runID]
	if !ok {
		byID = make(map[string]*result.SampleResult)
		m.samples[runID] = byID
	}
	if _, exists := byID[r.SampleID]; !exists {
		m.sampleOrder[runID] = append(m.sampleOrder[runID], r.SampleID)
	}
	byID[r.SampleID] = cloned
	return nil
}

// GetSampleResult returns a deep copy of the stored result.
func (m *Manager) GetSampleResult(ctx context.Context, runID, sampleID string) (*result.SampleResult, error) {
	m.mu.RLock()
	stored, ok := m.samples[runID][sampleID]
	m.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("sample result %s/%s: %w", runID, sampleID, os.ErrNotExist)
	}
	return clone.Clone(stored)
}

// ListSampleResults returns deep copies of a run's results in save order.
func (m *Manager) ListSampleResults(ctx context.Context, runID string) ([]*result.SampleResult, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	order := m.sampleOrder[runID]
	out := make([]*result.SampleResult, 0, len(order))
	for _, sampleID := range order {
		cloned, err := clone.Clone(m.samples[runID][sampleID])
		if err != nil {
			return nil, fmt.Errorf("clone sample result: %w", err)
		}
		out = append(out, cloned)
	}
	return out, nil
}

// SaveRunSummary stores a deep copy of the summary and appends the run to
// its model's series on first save.
func (m *Manager) SaveRunSummary(ctx context.Context, s *result.RunSummary) error {
	if s == nil || s.RunID == "" {
		return fmt.Errorf("invalid run summary")
	}
	cloned, err := clone.Clone(s)
	if err != nil {
		return fmt.Errorf("clone run summary: %w", err)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.summaries[s.RunID]; !exists {
		m.series[s.ModelID] = append(m.series[s.ModelID], s.RunID)
	}
	m.summaries[s.RunID] = cloned
	return nil
}

// GetRunSummary returns a deep copy of the stored summary.
func (m *Manager) GetRunSummary(ctx context.Context, runID string) (*result.RunSummary, error) {
	m.mu.RLock()
	stored, ok := m.summaries[runID]
	m.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("run summary %s: %w", runID, os.ErrNotExist)
	}
	return clone.Clone(stored)
}

// ListRunSummaries returns deep copies of a model's summaries in save order.
func (m *Manager) ListRunSummaries(ctx context.Context, modelID string) ([]*result.RunSummary, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]*result.RunSummary, 0, len(m.series[modelID]))
	for _, runID := range m.series[modelID] {
		cloned, err := clone.Clone(m.summaries[runID])
		if err != nil {
			return nil, fmt.Errorf("clone run summary: %w", err)
		}
		out = append(out, cloned)
	}
	return out, nil
}

// Close implements result.Manager. Nothing to release.
func (m *Manager) Close() error {
	return nil
}
