//
// Copyright (C) 2025 The raggauge Authors.  All rights reserved.
//
// raggauge is licensed under the Apache License Version 2.0.
//
//

package mysql

import (
	"database/sql"
	"time"
)

const defaultInitTimeout = 10 * time.Second

type options struct {
	dsn         string
	tablePrefix string
	skipDBInit  bool
	initTimeout time.Duration
	// db overrides DSN-based opening, used by tests with sqlmock.
	db *sql.DB
}

// Option configures the MySQL result manager.
type Option func(*options)

// WithDSN sets the MySQL data source name.
func WithDSN(dsn string) Option {
	return func(o *options) {
		o.dsn = dsn
	}
}

// WithTablePrefix prefixes the managed table names.
func WithTablePrefix(prefix string) Option {
	return func(o *options) {
		o.tablePrefix = prefix
	}
}

// WithSkipDBInit skips schema creation at construction time.
func WithSkipDBInit(skip bool) Option {
	return func(o *options) {
		o.skipDBInit = skip
	}
}

// WithInitTimeout bounds schema creation. Non-positive values keep the default.
func WithInitTimeout(timeout time.Duration) Option {
	return func(o *options) {
		if timeout > 0 {
			o.initTimeout = timeout
		}
	}
}

// WithDB uses an existing database handle instead of opening the DSN.
func WithDB(db *sql.DB) Option {
	return func(o *options) {
		o.db = db
	}
}

func newOptions(opts ...Option) *options {
	o := &options{initTimeout: defaultInitTimeout}
	for _, opt := range opts {
		opt(o)
	}
	return o
}
