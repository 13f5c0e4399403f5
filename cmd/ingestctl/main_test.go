package main

import (
	"bytes"
	"testing"
	"time"

	"github.com/sportwire/ingest-admin/internal/domain/model"
	"github.com/stretchr/testify/require"
)

func TestRenderJobsEmpty(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, renderJobs(&buf, nil))
	require.Contains(t, buf.String(), "(no jobs found)")
}

func TestRenderJobsTable(t *testing.T) {
	created := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	jobs := []*model.Job{
		{
			ID:        "job-1",
			Type:      model.JobTypeDeepIngest,
			Status:    model.JobStatusRunning,
			Subject:   "season:42",
			CreatedAt: created,
			UpdatedAt: created,
		},
	}

	var buf bytes.Buffer
	require.NoError(t, renderJobs(&buf, jobs))

	out := buf.String()
	require.Contains(t, out, "job-1")
	require.Contains(t, out, "deep_ingest")
	require.Contains(t, out, "season:42")
	require.Contains(t, out, "Total rows: 1")
}

func TestRenderJobStatsIncludesTotal(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, renderJobStats(&buf, &model.JobStats{Running: 2, Failed: 1}))

	out := buf.String()
	require.Contains(t, out, "running")
	require.Contains(t, out, "total")
	require.Contains(t, out, "3")
}

func TestListJobsOptionsRejectsUnknownStatus(t *testing.T) {
	_, err := listJobsOptions{Status: "meandering", Limit: 10}.toModel()
	require.ErrorContains(t, err, "unknown status")
}

func TestListJobsOptionsBuildsFilters(t *testing.T) {
	opts, err := listJobsOptions{Status: "running", Type: "backtest", Subject: "season:7", Limit: 5}.toModel()
	require.NoError(t, err)
	require.Equal(t, model.JobStatusRunning, *opts.Status)
	require.Equal(t, model.JobTypeBacktest, *opts.Type)
	require.Equal(t, "season:7", *opts.Subject)
}

func TestParsePruneAuditFlagsValidates(t *testing.T) {
	_, err := parsePruneAuditFlags([]string{"-max-age", "-1h"})
	require.ErrorContains(t, err, "--max-age must be greater than zero")
}

func TestSuggestionCachePattern(t *testing.T) {
	require.Equal(t, "alias_suggest:*", suggestionCacheOptions{}.pattern())
	require.Equal(t, "alias_suggest:oddsfeed:*", suggestionCacheOptions{Provider: "oddsfeed"}.pattern())
}
