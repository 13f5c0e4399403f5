package main

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/sportwire/ingest-admin/config"
	"github.com/sportwire/ingest-admin/internal/domain/model"
)

type stubStatusFetcher struct {
	job *model.Job
	err error
}

func (s *stubStatusFetcher) Status(_ context.Context, jobID string) (*model.Job, error) {
	if s.err != nil {
		return nil, s.err
	}
	j := *s.job
	j.ID = jobID
	return &j, nil
}

func watchTestContext() *commandContext {
	cfg := config.AppConfig{}
	cfg.Watch = config.WatchConfig{
		InitialDelay:    time.Millisecond,
		RunningInterval: time.Millisecond,
		WaitingInterval: 2 * time.Millisecond,
		IdleInterval:    2 * time.Millisecond,
		FetchTimeout:    time.Second,
		StaleAfter:      time.Minute,
		MaxPollFailures: 1,
	}
	return &commandContext{
		Ctx:    context.Background(),
		Logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
		Config: cfg,
	}
}

func TestWatchJobSucceededJob(t *testing.T) {
	fetcher := &stubStatusFetcher{job: &model.Job{
		Type:     model.JobTypeDeepIngest,
		Status:   model.JobStatusSucceeded,
		Progress: &model.JobProgress{Processed: 120, Percent: 100},
	}}

	cmdCtx := watchTestContext()
	var buf bytes.Buffer
	err := watchJob(context.Background(), cmdCtx, &buf, fetcher, "season:42", "job-watch-1", 30*time.Second)
	require.NoError(t, err)

	out := buf.String()
	require.Contains(t, out, "watching job job-watch-1")
	require.Contains(t, out, "finished with status succeeded")
	require.Contains(t, out, "processed: 120 (100%)")
}

func TestWatchJobFailedJobExitsNonZero(t *testing.T) {
	fetcher := &stubStatusFetcher{job: &model.Job{
		Type:   model.JobTypeMetricsSync,
		Status: model.JobStatusFailed,
		ErrorLog: []model.JobLogEntry{
			{Timestamp: time.Now(), Message: "fixtures feed returned 502"},
		},
	}}

	cmdCtx := watchTestContext()
	var buf bytes.Buffer
	err := watchJob(context.Background(), cmdCtx, &buf, fetcher, "season:42", "job-watch-2", 30*time.Second)
	require.ErrorContains(t, err, "ended in status failed")
	require.Contains(t, buf.String(), "last error: fixtures feed returned 502")
}

func TestWatchJobReportsDropAfterPollFailures(t *testing.T) {
	fetcher := &stubStatusFetcher{err: errors.New("authority unreachable")}

	cmdCtx := watchTestContext()
	var buf bytes.Buffer
	err := watchJob(context.Background(), cmdCtx, &buf, fetcher, "season:42", "job-watch-3", 30*time.Second)
	require.ErrorContains(t, err, "no longer tracked")
}

func TestRenderFinishedJobCanceled(t *testing.T) {
	var buf bytes.Buffer
	err := renderFinishedJob(&buf, &model.Job{ID: "job-9", Status: model.JobStatusCanceled})
	require.ErrorContains(t, err, "ended in status canceled")
	require.Contains(t, buf.String(), "finished with status canceled")
}

func TestParseStartJobFlagsValidates(t *testing.T) {
	_, err := parseStartJobFlags([]string{"-subject", "season:42"})
	require.ErrorContains(t, err, "--type must be a known job type")

	_, err = parseStartJobFlags([]string{"-type", "deep_ingest"})
	require.ErrorContains(t, err, "--subject is required")

	_, err = parseStartJobFlags([]string{"-type", "deep_ingest", "-subject", "season:42", "-payload", "{not json"})
	require.ErrorContains(t, err, "--payload must be valid JSON")

	opts, err := parseStartJobFlags([]string{"-type", "Deep_Ingest", "-subject", "season:42", "-watch"})
	require.NoError(t, err)
	require.True(t, opts.Watch)
	require.Equal(t, defaultWatchTimeout, opts.Timeout)
}

func TestParseWatchJobFlagsRequiresJob(t *testing.T) {
	_, err := parseWatchJobFlags(nil)
	require.ErrorContains(t, err, "--job is required")

	opts, err := parseWatchJobFlags([]string{"-job", "job-7"})
	require.NoError(t, err)
	require.Equal(t, "job-7", opts.JobID)
	require.Empty(t, opts.Subject)
}
