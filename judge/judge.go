//
// Copyright (C) 2025 The raggauge Authors.  All rights reserved.
//
// raggauge is licensed under the Apache License Version 2.0.
//
//

// Package judge wraps calls to an external scoring model with caching,
// bounded retry, and rate limiting.
package judge

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	lru "github.com/hashicorp/golang-lru/v2"
	"golang.org/x/sync/semaphore"
	"golang.org/x/sync/singleflight"
	"golang.org/x/time/rate"

	"github.com/raggauge/raggauge/log"
)

// Model is the external judge collaborator. Implementations issue one
// completion per call and surface transport failures as errors, wrapping
// ErrRateLimited or ErrTimeout when the failure is transient.
type Model interface {
	// Complete returns the judge reply text for the rendered prompt.
	Complete(ctx context.Context, instruction, prompt string) (string, error)
}

// CallRecord is the cached outcome of one judge call.
type CallRecord struct {
	// CacheKey is the hash of metric name, model identifier and serialized inputs.
	CacheKey string `json:"cacheKey,omitempty"`
	// MetricName identifies the metric that issued the call.
	MetricName string `json:"metricName,omitempty"`
	// Rationale is the raw judge reply, parsed downstream into the metric value.
	Rationale string `json:"rationale,omitempty"`
	// Timestamp records when the live call completed.
	Timestamp time.Time `json:"timestamp,omitempty"`
	// Attempts is the number of live calls issued, zero on a cache hit.
	Attempts int `json:"attempts,omitempty"`
	// Cached reports whether this record was served from the cache.
	Cached bool `json:"cached,omitempty"`
}

// Config holds the judge adapter configuration. Zero values fall back to defaults.
type Config struct {
	// ModelID identifies the judge model, part of every cache key.
	ModelID string `yaml:"model_id"`
	// MaxAttempts bounds live calls per score request, including the first.
	MaxAttempts int `yaml:"max_attempts"`
	// InitialBackoff is the delay after the first transient failure.
	InitialBackoff time.Duration `yaml:"initial_backoff"`
	// MaxBackoff caps the delay between attempts.
	MaxBackoff time.Duration `yaml:"max_backoff"`
	// MaxInFlight caps concurrent live calls across all callers in a run.
	MaxInFlight int64 `yaml:"max_in_flight"`
	// RequestsPerSecond limits the live call rate shared across a run.
	RequestsPerSecond float64 `yaml:"requests_per_second"`
	// Burst is the rate limiter burst size.
	Burst int `yaml:"burst"`
	// CacheSize bounds the number of cached call records.
	CacheSize int `yaml:"cache_size"`
}

// Defaults for Config fields left at their zero value.
const (
	DefaultMaxAttempts       = 3
	DefaultInitialBackoff    = 100 * time.Millisecond
	DefaultMaxBackoff        = 10 * time.Second
	DefaultMaxInFlight       = 4
	DefaultRequestsPerSecond = 10.0
	DefaultCacheSize         = 4096
)

// withDefaults fills unset fields with default values.
func (c Config) withDefaults() Config {
	if c.MaxAttempts <= 0 {
		c.MaxAttempts = DefaultMaxAttempts
	}
	if c.InitialBackoff <= 0 {
		c.InitialBackoff = DefaultInitialBackoff
	}
	if c.MaxBackoff <= 0 {
		c.MaxBackoff = DefaultMaxBackoff
	}
	if c.MaxInFlight <= 0 {
		c.MaxInFlight = DefaultMaxInFlight
	}
	if c.RequestsPerSecond <= 0 {
		c.RequestsPerSecond = DefaultRequestsPerSecond
	}
	if c.Burst <= 0 {
		c.Burst = int(c.RequestsPerSecond)
		if c.Burst < 1 {
			c.Burst = 1
		}
	}
	if c.CacheSize <= 0 {
		c.CacheSize = DefaultCacheSize
	}
	return c
}

// Adapter mediates all judge calls in a run. The cache, rate limiter and
// in-flight cap are the only state shared across samples; construct one
// Adapter per run and inject it into workers.
type Adapter struct {
	model   Model
	cfg     Config
	cache   *lru.Cache[string, *CallRecord]
	group   singleflight.Group
	sem     *semaphore.Weighted
	limiter *rate.Limiter
}

// New creates a judge adapter around the external judge model.
func New(model Model, cfg Config) (*Adapter, error) {
	if model == nil {
		return nil, errors.New("judge model is nil")
	}
	cfg = cfg.withDefaults()
	cache, err := lru.New[string, *CallRecord](cfg.CacheSize)
	if err != nil {
		return nil, fmt.Errorf("create judge cache: %w", err)
	}
	return &Adapter{
		model:   model,
		cfg:     cfg,
		cache:   cache,
		sem:     semaphore.NewWeighted(cfg.MaxInFlight),
		limiter: rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), cfg.Burst),
	}, nil
}

// Score returns the judge reply for the payload, serving identical payloads
// from the cache. Concurrent callers with the same cache key share one live
// call. On a miss the live call is retried with exponential backoff and
// jitter for transient failures, up to the configured attempt limit;
// non-transient failures and exhausted retries return an UnavailableError.
func (a *Adapter) Score(ctx context.Context, metricName string, p *Payload) (*CallRecord, error) {
	if p == nil {
		return nil, &UnavailableError{Metric: metricName, Err: errors.New("payload is nil")}
	}
	key, err := cacheKey(metricName, a.cfg.ModelID, p)
	if err != nil {
		return nil, &UnavailableError{Metric: metricName, Err: err}
	}
	if record, ok := a.cache.Get(key); ok {
		return cachedCopy(record), nil
	}
	v, err, _ := a.group.Do(key, func() (any, error) {
		// Another caller may have populated the cache while this one queued.
		if record, ok := a.cache.Get(key); ok {
			return cachedCopy(record), nil
		}
		record, err := a.call(ctx, metricName, key, p)
		if err != nil {
			return nil, err
		}
		a.cache.Add(key, record)
		return record, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*CallRecord), nil
}

// Invalidate drops the cached record for the payload, forcing the next
// Score call to issue a live request.
func (a *Adapter) Invalidate(metricName string, p *Payload) {
	key, err := cacheKey(metricName, a.cfg.ModelID, p)
	if err != nil {
		return
	}
	a.cache.Remove(key)
}

// call issues the live judge request under the shared rate limiter and
// in-flight cap, retrying transient failures.
func (a *Adapter) call(ctx context.Context, metricName, key string, p *Payload) (*CallRecord, error) {
	if err := a.sem.Acquire(ctx, 1); err != nil {
		return nil, &UnavailableError{Metric: metricName, Err: err}
	}
	defer a.sem.Release(1)

	attempts := 0
	prompt := p.Prompt()
	operation := func() (string, error) {
		if err := a.limiter.Wait(ctx); err != nil {
			return "", backoff.Permanent(err)
		}
		attempts++
		reply, err := a.model.Complete(ctx, p.Instruction, prompt)
		if err == nil {
			return reply, nil
		}
		if !transient(err) {
			return "", backoff.Permanent(err)
		}
		log.Debugf("judge call for metric %s failed transiently (attempt %d): %v", metricName, attempts, err)
		return "", err
	}
	policy := backoff.NewExponentialBackOff(
		backoff.WithInitialInterval(a.cfg.InitialBackoff),
		backoff.WithMaxInterval(a.cfg.MaxBackoff),
	)
	reply, err := backoff.RetryWithData(
		operation,
		backoff.WithContext(backoff.WithMaxRetries(policy, uint64(a.cfg.MaxAttempts-1)), ctx),
	)
	if err != nil {
		var permanent *backoff.PermanentError
		if errors.As(err, &permanent) {
			err = permanent.Unwrap()
		}
		return nil, &UnavailableError{Metric: metricName, Attempts: attempts, Err: err}
	}
	return &CallRecord{
		CacheKey:   key,
		MetricName: metricName,
		Rationale:  reply,
		Timestamp:  time.Now(),
		Attempts:   attempts,
	}, nil
}

// cachedCopy returns a copy of the record flagged as a cache hit.
func cachedCopy(record *CallRecord) *CallRecord {
	out := *record
	out.Cached = true
	return &out
}
