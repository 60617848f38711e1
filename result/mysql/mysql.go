//
// Copyright (C) 2025 The raggauge Authors.  All rights reserved.
//
// raggauge is licensed under the Apache License Version 2.0.
//
//

// Package mysql provides a MySQL-backed result manager. Results and
// summaries are stored as JSON payloads keyed by run and sample identifiers.
package mysql

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"

	_ "github.com/go-sql-driver/mysql"

	"github.com/raggauge/raggauge/result"
)

const (
	tableNameSampleResults = "raggauge_sample_results"
	tableNameRunSummaries  = "raggauge_run_summaries"
)

var _ result.Manager = (*manager)(nil)

type manager struct {
	opts    options
	db      *sql.DB
	samples string
	runs    string
}

// New creates a MySQL-backed result manager and ensures the schema unless
// skipped.
func New(opts ...Option) (result.Manager, error) {
	o := newOptions(opts...)
	db := o.db
	if db == nil {
		if o.dsn == "" {
			return nil, errors.New("mysql dsn is empty")
		}
		var err error
		db, err = sql.Open("mysql", o.dsn)
		if err != nil {
			return nil, fmt.Errorf("open mysql: %w", err)
		}
	}
	m := &manager{
		opts:    *o,
		db:      db,
		samples: o.tablePrefix + tableNameSampleResults,
		runs:    o.tablePrefix + tableNameRunSummaries,
	}
	if !o.skipDBInit {
		ctx, cancel := context.WithTimeout(context.Background(), o.initTimeout)
		defer cancel()
		if err := m.ensureSchema(ctx); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("init database: %w", err)
		}
	}
	return m, nil
}

const (
	sqlCreateSampleResultsTable = `
		CREATE TABLE IF NOT EXISTS {{TABLE_NAME}} (
			id BIGINT NOT NULL AUTO_INCREMENT,
			run_id VARCHAR(255) NOT NULL,
			sample_id VARCHAR(255) NOT NULL,
			state VARCHAR(32) NOT NULL,
			payload JSON NOT NULL,
			created_at TIMESTAMP(6) NOT NULL DEFAULT CURRENT_TIMESTAMP(6),
			updated_at TIMESTAMP(6) NOT NULL DEFAULT CURRENT_TIMESTAMP(6) ON UPDATE CURRENT_TIMESTAMP(6),
			PRIMARY KEY (id),
			UNIQUE KEY uniq_run_sample (run_id, sample_id)
		) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4 COLLATE=utf8mb4_unicode_ci`

	sqlCreateRunSummariesTable = `
		CREATE TABLE IF NOT EXISTS {{TABLE_NAME}} (
			id BIGINT NOT NULL AUTO_INCREMENT,
			run_id VARCHAR(255) NOT NULL,
			model_id VARCHAR(255) NOT NULL DEFAULT '',
			payload JSON NOT NULL,
			created_at TIMESTAMP(6) NOT NULL DEFAULT CURRENT_TIMESTAMP(6),
			updated_at TIMESTAMP(6) NOT NULL DEFAULT CURRENT_TIMESTAMP(6) ON UPDATE CURRENT_TIMESTAMP(6),
			PRIMARY KEY (id),
			UNIQUE KEY uniq_run (run_id),
			KEY idx_model_created (model_id, created_at)
		) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4 COLLATE=utf8mb4_unicode_ci`
)

// ensureSchema creates the managed tables if they do not exist.
func (m *manager) ensureSchema(ctx context.Context) error {
	for _, def := range []struct {
		name     string
		template string
	}{
		{name: m.samples, template: sqlCreateSampleResultsTable},
		{name: m.runs, template: sqlCreateRunSummariesTable},
	} {
		query := strings.ReplaceAll(def.template, "{{TABLE_NAME}}", def.name)
		if _, err := m.db.ExecContext(ctx, query); err != nil {
			return fmt.Errorf("create table %s: %w", def.name, err)
		}
	}
	return nil
}

// SaveSampleResult upserts one sample result as a JSON payload.
func (m *manager) SaveSampleResult(ctx context.Context, runID string, r *result.SampleResult) error {
	if runID == "" {
		return errors.New("run id is empty")
	}
	if r == nil || r.SampleID == "" {
		return errors.New("sample result is nil or has empty sample id")
	}
	payload, err := json.Marshal(r)
	if err != nil {
		return fmt.Errorf("marshal sample result: %w", err)
	}
	query := fmt.Sprintf(
		`INSERT INTO %s (run_id, sample_id, state, payload)
		 VALUES (?, ?, ?, ?)
		 ON DUPLICATE KEY UPDATE
		   state = VALUES(state),
		   payload = VALUES(payload),
		   updated_at = CURRENT_TIMESTAMP(6)`,
		m.samples,
	)
	if _, err := m.db.ExecContext(ctx, query, runID, r.SampleID, string(r.State), payload); err != nil {
		return fmt.Errorf("store sample result %s/%s: %w", runID, r.SampleID, err)
	}
	return nil
}

// GetSampleResult loads one sample result.
func (m *manager) GetSampleResult(ctx context.Context, runID, sampleID string) (*result.SampleResult, error) {
	if runID == "" || sampleID == "" {
		return nil, errors.New("run id or sample id is empty")
	}
	query := fmt.Sprintf("SELECT payload FROM %s WHERE run_id = ? AND sample_id = ?", m.samples)
	var payload []byte
	if err := m.db.QueryRowContext(ctx, query, runID, sampleID).Scan(&payload); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("sample result %s/%s not found: %w", runID, sampleID, os.ErrNotExist)
		}
		return nil, fmt.Errorf("load sample result %s/%s: %w", runID, sampleID, err)
	}
	var r result.SampleResult
	if err := json.Unmarshal(payload, &r); err != nil {
		return nil, fmt.Errorf("unmarshal sample result %s/%s: %w", runID, sampleID, err)
	}
	return &r, nil
}

// ListSampleResults loads all results of a run in insertion order.
func (m *manager) ListSampleResults(ctx context.Context, runID string) ([]*result.SampleResult, error) {
	if runID == "" {
		return nil, errors.New("run id is empty")
	}
	query := fmt.Sprintf("SELECT payload FROM %s WHERE run_id = ? ORDER BY id", m.samples)
	rows, err := m.db.QueryContext(ctx, query, runID)
	if err != nil {
		return nil, fmt.Errorf("list sample results for run %s: %w", runID, err)
	}
	defer rows.Close()
	var out []*result.SampleResult
	for rows.Next() {
		var payload []byte
		if err := rows.Scan(&payload); err != nil {
			return nil, fmt.Errorf("scan sample result: %w", err)
		}
		var r result.SampleResult
		if err := json.Unmarshal(payload, &r); err != nil {
			return nil, fmt.Errorf("unmarshal sample result: %w", err)
		}
		out = append(out, &r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list sample results for run %s: %w", runID, err)
	}
	return out, nil
}

// SaveRunSummary upserts one run summary as a JSON payload.
func (m *manager) SaveRunSummary(ctx context.Context, s *result.RunSummary) error {
	if s == nil || s.RunID == "" {
		return errors.New("run summary is nil or has empty run id")
	}
	payload, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("marshal run summary: %w", err)
	}
	query := fmt.Sprintf(
		`INSERT INTO %s (run_id, model_id, payload)
		 VALUES (?, ?, ?)
		 ON DUPLICATE KEY UPDATE
		   model_id = VALUES(model_id),
		   payload = VALUES(payload),
		   updated_at = CURRENT_TIMESTAMP(6)`,
		m.runs,
	)
	if _, err := m.db.ExecContext(ctx, query, s.RunID, s.ModelID, payload); err != nil {
		return fmt.Errorf("store run summary %s: %w", s.RunID, err)
	}
	return nil
}

// GetRunSummary loads one run summary.
func (m *manager) GetRunSummary(ctx context.Context, runID string) (*result.RunSummary, error) {
	if runID == "" {
		return nil, errors.New("run id is empty")
	}
	query := fmt.Sprintf("SELECT payload FROM %s WHERE run_id = ?", m.runs)
	var payload []byte
	if err := m.db.QueryRowContext(ctx, query, runID).Scan(&payload); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("run summary %s not found: %w", runID, os.ErrNotExist)
		}
		return nil, fmt.Errorf("load run summary %s: %w", runID, err)
	}
	var s result.RunSummary
	if err := json.Unmarshal(payload, &s); err != nil {
		return nil, fmt.Errorf("unmarshal run summary %s: %w", runID, err)
	}
	return &s, nil
}

// ListRunSummaries loads all summaries for a model in save order.
func (m *manager) ListRunSummaries(ctx context.Context, modelID string) ([]*result.RunSummary, error) {
	query := fmt.Sprintf("SELECT payload FROM %s WHERE model_id = ? ORDER BY id", m.runs)
	rows, err := m.db.QueryContext(ctx, query, modelID)
	if err != nil {
		return nil, fmt.Errorf("list run summaries for model %s: %w", modelID, err)
	}
	defer rows.Close()
	var out []*result.RunSummary
	for rows.Next() {
		var payload []byte
		if err := rows.Scan(&payload); err != nil {
			return nil, fmt.Errorf("scan run summary: %w", err)
		}
		var s result.RunSummary
		if err := json.Unmarshal(payload, &s); err != nil {
			return nil, fmt.Errorf("unmarshal run summary: %w", err)
		}
		out = append(out, &s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list run summaries for model %s: %w", modelID, err)
	}
	return out, nil
}

// Close releases the database handle.
func (m *manager) Close() error {
	if m.db == nil {
		return nil
	}
	return m.db.Close()
}
