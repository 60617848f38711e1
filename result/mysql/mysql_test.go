//
// Copyright (C) 2025 The raggauge Authors.  All rights reserved.
//
// raggauge is licensed under the Apache License Version 2.0.
//
//

package mysql

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"os"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/raggauge/raggauge/metric"
	"github.com/raggauge/raggauge/result"
)

func newManager(t *testing.T) (result.Manager, sqlmock.Sqlmock) {
	t.Helper()

	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)

	m, err := New(WithDB(db), WithSkipDBInit(true), WithTablePrefix("test_"))
	require.NoError(t, err)
	return m, mock
}

func TestNew_EnsuresSchema(t *testing.T) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)

	mock.ExpectExec("CREATE TABLE IF NOT EXISTS\\s+" + regexp.QuoteMeta("test_raggauge_sample_results")).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec("CREATE TABLE IF NOT EXISTS\\s+" + regexp.QuoteMeta("test_raggauge_run_summaries")).
		WillReturnResult(sqlmock.NewResult(0, 0))

	m, err := New(WithDB(db), WithTablePrefix("test_"))
	require.NoError(t, err)
	mock.ExpectClose()
	assert.NoError(t, m.Close())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestNew_SchemaFailureClosesDB(t *testing.T) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)

	mock.ExpectExec("CREATE TABLE IF NOT EXISTS").WillReturnError(errors.New("boom"))
	mock.ExpectClose()

	_, err = New(WithDB(db))
	assert.Error(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestNew_EmptyDSN(t *testing.T) {
	_, err := New()
	assert.Error(t, err)
}

func TestSaveSampleResult(t *testing.T) {
	m, mock := newManager(t)

	r := result.NewSampleResult("s1")
	r.State = result.StateDone
	r.Values["mrr"] = metric.FloatValue(1)

	mock.ExpectExec("INSERT INTO test_raggauge_sample_results").
		WithArgs("run1", "s1", string(result.StateDone), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))

	require.NoError(t, m.SaveSampleResult(context.Background(), "run1", r))
	assert.NoError(t, mock.ExpectationsWereMet())

	assert.Error(t, m.SaveSampleResult(context.Background(), "", r))
	assert.Error(t, m.SaveSampleResult(context.Background(), "run1", nil))
}

func TestGetSampleResult(t *testing.T) {
	m, mock := newManager(t)

	stored := result.NewSampleResult("s1")
	stored.State = result.StateDone
	stored.Values["mrr"] = metric.FloatValue(0.5)
	payload, err := json.Marshal(stored)
	require.NoError(t, err)

	mock.ExpectQuery("SELECT payload FROM test_raggauge_sample_results").
		WithArgs("run1", "s1").
		WillReturnRows(sqlmock.NewRows([]string{"payload"}).AddRow(payload))

	got, err := m.GetSampleResult(context.Background(), "run1", "s1")
	require.NoError(t, err)
	assert.Equal(t, result.StateDone, got.State)
	assert.InDelta(t, 0.5, got.Values["mrr"].Float, 1e-9)

	mock.ExpectQuery("SELECT payload FROM test_raggauge_sample_results").
		WithArgs("run1", "missing").
		WillReturnError(sql.ErrNoRows)

	_, err = m.GetSampleResult(context.Background(), "run1", "missing")
	assert.ErrorIs(t, err, os.ErrNotExist)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestListSampleResults(t *testing.T) {
	m, mock := newManager(t)

	r1, _ := json.Marshal(result.NewSampleResult("s1"))
	r2, _ := json.Marshal(result.NewSampleResult("s2"))
	mock.ExpectQuery("SELECT payload FROM test_raggauge_sample_results").
		WithArgs("run1").
		WillReturnRows(sqlmock.NewRows([]string{"payload"}).AddRow(r1).AddRow(r2))

	got, err := m.ListSampleResults(context.Background(), "run1")
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "s1", got[0].SampleID)
	assert.Equal(t, "s2", got[1].SampleID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSaveAndGetRunSummary(t *testing.T) {
	m, mock := newManager(t)

	s := &result.RunSummary{
		RunID:            "run1",
		ModelID:          "pipeline-a",
		SamplesProcessed: 3,
		Metrics: map[string]*result.MetricStats{
			"mrr": {Succeeded: 3, Mean: 0.75, Median: 1},
		},
	}
	mock.ExpectExec("INSERT INTO test_raggauge_run_summaries").
		WithArgs("run1", "pipeline-a", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))
	require.NoError(t, m.SaveRunSummary(context.Background(), s))

	payload, err := json.Marshal(s)
	require.NoError(t, err)
	mock.ExpectQuery("SELECT payload FROM test_raggauge_run_summaries").
		WithArgs("run1").
		WillReturnRows(sqlmock.NewRows([]string{"payload"}).AddRow(payload))

	got, err := m.GetRunSummary(context.Background(), "run1")
	require.NoError(t, err)
	assert.Equal(t, 3, got.SamplesProcessed)
	assert.InDelta(t, 0.75, got.Metrics["mrr"].Mean, 1e-9)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestListRunSummaries(t *testing.T) {
	m, mock := newManager(t)

	s1, _ := json.Marshal(&result.RunSummary{RunID: "run1", ModelID: "pipeline-a"})
	s2, _ := json.Marshal(&result.RunSummary{RunID: "run2", ModelID: "pipeline-a"})
	mock.ExpectQuery("SELECT payload FROM test_raggauge_run_summaries").
		WithArgs("pipeline-a").
		WillReturnRows(sqlmock.NewRows([]string{"payload"}).AddRow(s1).AddRow(s2))

	got, err := m.ListRunSummaries(context.Background(), "pipeline-a")
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "run1", got[0].RunID)
	assert.Equal(t, "run2", got[1].RunID)
	assert.NoError(t, mock.ExpectationsWereMet())
}
