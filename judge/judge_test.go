//
// Copyright (C) 2025 The raggauge Authors.  All rights reserved.
//
// raggauge is licensed under the Apache License Version 2.0.
//
//

package judge

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// stubModel is a scripted judge model counting live calls.
type stubModel struct {
	mu      sync.Mutex
	calls   int32
	replies []string
	errs    []error
}

func (m *stubModel) Complete(ctx context.Context, instruction, prompt string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	i := int(atomic.AddInt32(&m.calls, 1)) - 1
	if i < len(m.errs) && m.errs[i] != nil {
		return "", m.errs[i]
	}
	if i < len(m.replies) {
		return m.replies[i], nil
	}
	if len(m.replies) > 0 {
		return m.replies[len(m.replies)-1], nil
	}
	return "", fmt.Errorf("no scripted reply for call %d", i)
}

func fastConfig() Config {
	return Config{
		ModelID:        "judge-test",
		InitialBackoff: time.Millisecond,
		MaxBackoff:     2 * time.Millisecond,
	}
}

// TestAdapter_Score_CacheHit verifies that identical payloads within one run
// issue at most one live call.
func TestAdapter_Score_CacheHit(t *testing.T) {
	model := &stubModel{replies: []string{"0.9"}}
	adapter, err := New(model, fastConfig())
	require.NoError(t, err)

	payload := &Payload{Query: "what is the capital of France?", Response: "Paris"}
	first, err := adapter.Score(context.Background(), "answer_relevance", payload)
	require.NoError(t, err)
	assert.False(t, first.Cached)
	assert.Equal(t, "0.9", first.Rationale)
	assert.Equal(t, 1, first.Attempts)

	second, err := adapter.Score(context.Background(), "answer_relevance", payload)
	require.NoError(t, err)
	assert.True(t, second.Cached)
	assert.Equal(t, first.CacheKey, second.CacheKey)
	assert.Equal(t, int32(1), atomic.LoadInt32(&model.calls))
}

// TestAdapter_Score_DistinctMetrics verifies that the same payload scored by
// different metrics does not share cache entries.
func TestAdapter_Score_DistinctMetrics(t *testing.T) {
	model := &stubModel{replies: []string{"0.9", "0.4"}}
	adapter, err := New(model, fastConfig())
	require.NoError(t, err)

	payload := &Payload{Query: "q", Response: "r"}
	first, err := adapter.Score(context.Background(), "faithfulness", payload)
	require.NoError(t, err)
	second, err := adapter.Score(context.Background(), "answer_relevance", payload)
	require.NoError(t, err)

	assert.NotEqual(t, first.CacheKey, second.CacheKey)
	assert.Equal(t, int32(2), atomic.LoadInt32(&model.calls))
}

// TestAdapter_Score_RetriesTransient verifies that transient failures are
// retried within the attempt limit and the eventual reply is returned.
func TestAdapter_Score_RetriesTransient(t *testing.T) {
	model := &stubModel{
		errs:    []error{ErrRateLimited, ErrTimeout, nil},
		replies: []string{"", "", "0.7"},
	}
	adapter, err := New(model, fastConfig())
	require.NoError(t, err)

	record, err := adapter.Score(context.Background(), "faithfulness", &Payload{Query: "q"})
	require.NoError(t, err)
	assert.Equal(t, "0.7", record.Rationale)
	assert.Equal(t, 3, record.Attempts)
}

// TestAdapter_Score_ExhaustedRetries verifies that an always-failing judge
// yields an UnavailableError after the configured attempt limit.
func TestAdapter_Score_ExhaustedRetries(t *testing.T) {
	model := &stubModel{
		errs: []error{ErrRateLimited, ErrRateLimited, ErrRateLimited, ErrRateLimited},
	}
	adapter, err := New(model, fastConfig())
	require.NoError(t, err)

	_, err = adapter.Score(context.Background(), "faithfulness", &Payload{Query: "q"})
	require.Error(t, err)
	var unavailable *UnavailableError
	require.ErrorAs(t, err, &unavailable)
	assert.Equal(t, "faithfulness", unavailable.Metric)
	assert.Equal(t, DefaultMaxAttempts, unavailable.Attempts)
	assert.ErrorIs(t, err, ErrRateLimited)
	assert.Equal(t, int32(DefaultMaxAttempts), atomic.LoadInt32(&model.calls))
}

// TestAdapter_Score_PermanentFailure verifies that a non-transient failure is
// not retried.
func TestAdapter_Score_PermanentFailure(t *testing.T) {
	authErr := errors.New("invalid api key")
	model := &stubModel{errs: []error{authErr, authErr}}
	adapter, err := New(model, fastConfig())
	require.NoError(t, err)

	_, err = adapter.Score(context.Background(), "faithfulness", &Payload{Query: "q"})
	require.Error(t, err)
	var unavailable *UnavailableError
	require.ErrorAs(t, err, &unavailable)
	assert.ErrorIs(t, err, authErr)
	assert.Equal(t, int32(1), atomic.LoadInt32(&model.calls))
}

// TestAdapter_Score_FailureNotCached verifies that a failed call is not
// cached and a later call reaches the judge again.
func TestAdapter_Score_FailureNotCached(t *testing.T) {
	authErr := errors.New("invalid api key")
	model := &stubModel{
		errs:    []error{authErr, nil},
		replies: []string{"", "0.8"},
	}
	adapter, err := New(model, fastConfig())
	require.NoError(t, err)

	payload := &Payload{Query: "q"}
	_, err = adapter.Score(context.Background(), "faithfulness", payload)
	require.Error(t, err)

	record, err := adapter.Score(context.Background(), "faithfulness", payload)
	require.NoError(t, err)
	assert.Equal(t, "0.8", record.Rationale)
	assert.False(t, record.Cached)
}

// TestAdapter_Score_Concurrent verifies that concurrent callers with the same
// payload collapse into a single live call.
func TestAdapter_Score_Concurrent(t *testing.T) {
	model := &stubModel{replies: []string{"0.5"}}
	adapter, err := New(model, fastConfig())
	require.NoError(t, err)

	payload := &Payload{Query: "q", Response: "r"}
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			record, err := adapter.Score(context.Background(), "faithfulness", payload)
			assert.NoError(t, err)
			if record != nil {
				assert.Equal(t, "0.5", record.Rationale)
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, int32(1), atomic.LoadInt32(&model.calls))
}

// TestAdapter_Invalidate verifies that invalidation forces a fresh live call.
func TestAdapter_Invalidate(t *testing.T) {
	model := &stubModel{replies: []string{"0.5", "0.6"}}
	adapter, err := New(model, fastConfig())
	require.NoError(t, err)

	payload := &Payload{Query: "q"}
	_, err = adapter.Score(context.Background(), "faithfulness", payload)
	require.NoError(t, err)

	adapter.Invalidate("faithfulness", payload)
	record, err := adapter.Score(context.Background(), "faithfulness", payload)
	require.NoError(t, err)
	assert.Equal(t, "0.6", record.Rationale)
	assert.Equal(t, int32(2), atomic.LoadInt32(&model.calls))
}

// TestAdapter_Score_ContextCanceled verifies that a canceled context aborts
// the call instead of retrying.
func TestAdapter_Score_ContextCanceled(t *testing.T) {
	model := &stubModel{errs: []error{ErrRateLimited, ErrRateLimited, ErrRateLimited}}
	adapter, err := New(model, fastConfig())
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = adapter.Score(ctx, "faithfulness", &Payload{Query: "q"})
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestNew_NilModel(t *testing.T) {
	_, err := New(nil, Config{})
	require.Error(t, err)
}
