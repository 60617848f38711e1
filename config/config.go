//
// Copyright (C) 2025 The raggauge Authors.  All rights reserved.
//
// raggauge is licensed under the Apache License Version 2.0.
//
//

// Package config loads evaluation run settings from a YAML file. Unknown
// fields are rejected and environment variables in the file are expanded
// before parsing.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/raggauge/raggauge/aggregate"
	"github.com/raggauge/raggauge/harness"
	"github.com/raggauge/raggauge/judge"
	"github.com/raggauge/raggauge/window"
)

// RunConfig controls sample scheduling.
type RunConfig struct {
	// RunID identifies the run; empty means a generated one.
	RunID string `yaml:"run_id"`
	// ModelID identifies the evaluated model or pipeline configuration.
	ModelID string `yaml:"model_id"`
	// Parallelism is the number of samples evaluated concurrently.
	Parallelism int `yaml:"parallelism"`
	// SampleTimeout bounds one sample's evaluation, e.g. "2m".
	SampleTimeout time.Duration `yaml:"sample_timeout"`
}

// WindowConfig controls conversation context for multi-turn samples.
type WindowConfig struct {
	// Size is the number of preceding turns per evaluation; negative is
	// rejected and zero means no preceding context.
	Size int `yaml:"size"`
}

// JudgeConfig controls the judge adapter.
type JudgeConfig struct {
	ModelID           string        `yaml:"model_id"`
	MaxAttempts       int           `yaml:"max_attempts"`
	InitialBackoff    time.Duration `yaml:"initial_backoff"`
	MaxBackoff        time.Duration `yaml:"max_backoff"`
	MaxInFlight       int           `yaml:"max_in_flight"`
	RequestsPerSecond float64       `yaml:"requests_per_second"`
	Burst             int           `yaml:"burst"`
	CacheSize         int           `yaml:"cache_size"`
}

// StorageConfig selects the result store.
type StorageConfig struct {
	// Backend is "memory" or "mysql". Empty means memory.
	Backend string `yaml:"backend"`
	// DSN is the MySQL data source name, required for the mysql backend.
	DSN string `yaml:"dsn"`
	// TablePrefix overrides the default table name prefix.
	TablePrefix string `yaml:"table_prefix"`
}

// RollupConfig controls governance regression detection.
type RollupConfig struct {
	TrailingWindow     int     `yaml:"trailing_window"`
	RegressionFraction float64 `yaml:"regression_fraction"`
	SustainedRuns      int     `yaml:"sustained_runs"`
}

// Config is the full evaluation configuration.
type Config struct {
	Run     RunConfig     `yaml:"run"`
	Window  WindowConfig  `yaml:"window"`
	Judge   JudgeConfig   `yaml:"judge"`
	Storage StorageConfig `yaml:"storage"`
	Rollup  RollupConfig  `yaml:"rollup"`
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	return &Config{
		Run: RunConfig{
			Parallelism:   harness.DefaultParallelism,
			SampleTimeout: harness.DefaultSampleTimeout,
		},
		Window: WindowConfig{Size: window.DefaultSize},
	}
}

// Load reads and validates the configuration at path. Environment variables
// in the file are expanded and unknown fields are rejected.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	return Parse([]byte(os.ExpandEnv(string(data))))
}

// Parse decodes a validated configuration from YAML bytes.
func Parse(data []byte) (*Config, error) {
	cfg := Default()
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(cfg); err != nil {
		if errors.Is(err, io.EOF) {
			return cfg, cfg.Validate()
		}
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects settings the harness would misbehave on.
func (c *Config) Validate() error {
	if c.Run.Parallelism <= 0 {
		return errors.New("run.parallelism must be greater than 0")
	}
	if c.Run.SampleTimeout < 0 {
		return errors.New("run.sample_timeout must not be negative")
	}
	if c.Window.Size < 0 {
		return errors.New("window.size must not be negative")
	}
	if c.Judge.MaxAttempts < 0 {
		return errors.New("judge.max_attempts must not be negative")
	}
	if c.Judge.RequestsPerSecond < 0 {
		return errors.New("judge.requests_per_second must not be negative")
	}
	if c.Rollup.RegressionFraction < 0 || c.Rollup.RegressionFraction > 1 {
		return errors.New("rollup.regression_fraction must be in [0, 1]")
	}
	switch c.Storage.Backend {
	case "", "memory":
	case "mysql":
		if c.Storage.DSN == "" {
			return errors.New("storage.dsn is required for the mysql backend")
		}
	default:
		return fmt.Errorf("unknown storage backend %q", c.Storage.Backend)
	}
	return nil
}

// Windower builds the configured conversation windower.
func (c *Config) Windower() (*window.Windower, error) {
	return window.New(c.Window.Size)
}

// JudgeOptions converts the judge section into an adapter configuration.
func (c *Config) JudgeOptions() judge.Config {
	return judge.Config{
		ModelID:           c.Judge.ModelID,
		MaxAttempts:       c.Judge.MaxAttempts,
		InitialBackoff:    c.Judge.InitialBackoff,
		MaxBackoff:        c.Judge.MaxBackoff,
		MaxInFlight:       int64(c.Judge.MaxInFlight),
		RequestsPerSecond: c.Judge.RequestsPerSecond,
		Burst:             c.Judge.Burst,
		CacheSize:         c.Judge.CacheSize,
	}
}

// HarnessOptions converts the run section into harness options. Stage
// evaluators, collaborators and the result store are wired by the caller.
func (c *Config) HarnessOptions() ([]harness.Option, error) {
	windower, err := c.Windower()
	if err != nil {
		return nil, err
	}
	return []harness.Option{
		harness.WithRunID(c.Run.RunID),
		harness.WithModelID(c.Run.ModelID),
		harness.WithParallelism(c.Run.Parallelism),
		harness.WithSampleTimeout(c.Run.SampleTimeout),
		harness.WithWindower(windower),
	}, nil
}

// RollupOptions converts the rollup section into a governance configuration.
func (c *Config) RollupOptions() aggregate.RollupConfig {
	return aggregate.RollupConfig{
		TrailingWindow:     c.Rollup.TrailingWindow,
		RegressionFraction: c.Rollup.RegressionFraction,
		SustainedRuns:      c.Rollup.SustainedRuns,
	}
}
