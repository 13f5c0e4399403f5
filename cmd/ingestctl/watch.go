package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/sportwire/ingest-admin/internal/adapters/jobapi"
	"github.com/sportwire/ingest-admin/internal/domain/model"
	"github.com/sportwire/ingest-admin/internal/domain/watch"
)

const (
	defaultWatchTimeout = 30 * time.Minute

	// watchDropGrace gives a just-finished job's completion callback time to
	// land before the drop of its watch-set entry is treated as a poll-failure
	// eviction.
	watchDropGrace = time.Second
)

type startJobOptions struct {
	Type    string
	Subject string
	Payload string
	Watch   bool
	Timeout time.Duration
}

type resumeJobOptions struct {
	JobID   string
	Subject string
	Watch   bool
	Timeout time.Duration
}

type watchJobOptions struct {
	JobID   string
	Subject string
	Timeout time.Duration
}

func runStartJob(cmdCtx *commandContext, args []string) error {
	opts, err := parseStartJobFlags(args)
	if err != nil {
		return err
	}

	client, err := authorityClient(cmdCtx)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmdCtx.Ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	req := &model.StartJobRequest{
		Type:    model.JobType(strings.ToLower(opts.Type)),
		Subject: opts.Subject,
	}
	if opts.Payload != "" {
		req.Payload = json.RawMessage(opts.Payload)
	}

	jobID, err := client.Start(ctx, req)
	if err != nil {
		return fmt.Errorf("start job: %w", err)
	}
	if writeErr := writef(os.Stdout, "job accepted: %s\n", jobID); writeErr != nil {
		return writeErr
	}

	if !opts.Watch {
		return nil
	}
	return watchJob(ctx, cmdCtx, os.Stdout, client, opts.Subject, jobID, opts.Timeout)
}

func runResumeJob(cmdCtx *commandContext, args []string) error {
	opts, err := parseResumeJobFlags(args)
	if err != nil {
		return err
	}

	client, err := authorityClient(cmdCtx)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmdCtx.Ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	resumedID, err := client.Resume(ctx, opts.JobID)
	if err != nil {
		return fmt.Errorf("resume job: %w", err)
	}
	if writeErr := writef(os.Stdout, "job resumed: %s\n", resumedID); writeErr != nil {
		return writeErr
	}

	if !opts.Watch {
		return nil
	}
	subject := opts.Subject
	if subject == "" {
		subject = "job:" + resumedID
	}
	return watchJob(ctx, cmdCtx, os.Stdout, client, subject, resumedID, opts.Timeout)
}

func runWatchJob(cmdCtx *commandContext, args []string) error {
	opts, err := parseWatchJobFlags(args)
	if err != nil {
		return err
	}

	client, err := authorityClient(cmdCtx)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmdCtx.Ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	subject := opts.Subject
	if subject == "" {
		subject = "job:" + opts.JobID
	}
	return watchJob(ctx, cmdCtx, os.Stdout, client, subject, opts.JobID, opts.Timeout)
}

// watchJob tracks one job through the watch client and blocks until it
// reaches a terminal status, the job is dropped after repeated poll failures,
// or the context ends.
func watchJob(
	ctx context.Context,
	cmdCtx *commandContext,
	w io.Writer,
	fetcher watch.StatusFetcher,
	subject, jobID string,
	timeout time.Duration,
) error {
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	done := make(chan *model.Job, 1)
	watcher, err := watch.New(watch.Options{
		Fetcher: fetcher,
		Config:  cmdCtx.Config.Watch.Domain(),
		OnFinished: func(_ string, job *model.Job) {
			done <- job
		},
		Logger: cmdCtx.Logger,
	})
	if err != nil {
		return fmt.Errorf("build watcher: %w", err)
	}
	defer watcher.Close()

	if trackErr := watcher.Track(subject, jobID); trackErr != nil {
		return trackErr
	}
	if writeErr := writef(w, "watching job %s (subject %s)\n", jobID, subject); writeErr != nil {
		return writeErr
	}

	// The watcher never fires OnFinished for a job it evicts after repeated
	// poll failures; the Tracking probe keeps the command from hanging there.
	ticker := time.NewTicker(500 * time.Millisecond)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return fmt.Errorf("watch aborted: %w", ctx.Err())
		case job := <-done:
			return renderFinishedJob(w, job)
		case <-ticker.C:
			if watcher.Tracking(subject) {
				continue
			}
			select {
			case job := <-done:
				return renderFinishedJob(w, job)
			case <-time.After(watchDropGrace):
				return fmt.Errorf("job %s is no longer tracked after repeated status poll failures", jobID)
			}
		}
	}
}

// renderFinishedJob reports the terminal outcome. A terminal status other
// than succeeded becomes a command failure so shell callers see a non-zero
// exit.
func renderFinishedJob(w io.Writer, job *model.Job) error {
	if err := writef(w, "job %s finished with status %s\n", job.ID, job.Status); err != nil {
		return err
	}
	if job.Progress != nil {
		if err := writef(w, "  processed: %d (%d%%)\n", job.Progress.Processed, job.Progress.Percent); err != nil {
			return err
		}
	}
	if msg := job.LastError(); msg != "" {
		if err := writef(w, "  last error: %s\n", msg); err != nil {
			return err
		}
	}
	if job.Status != model.JobStatusSucceeded {
		return fmt.Errorf("job %s ended in status %s", job.ID, job.Status)
	}
	return nil
}

func authorityClient(cmdCtx *commandContext) (*jobapi.Client, error) {
	client, err := jobapi.NewClient(jobapi.Config{
		BaseURL:  cmdCtx.Config.Authority.BaseURL,
		APIToken: cmdCtx.Config.Authority.Token,
		Timeout:  cmdCtx.Config.Authority.Timeout,
	})
	if err != nil {
		return nil, fmt.Errorf("job authority client: %w", err)
	}
	return client, nil
}

func parseStartJobFlags(args []string) (startJobOptions, error) {
	fs := flag.NewFlagSet("start-job", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)

	opts := startJobOptions{Timeout: defaultWatchTimeout}

	fs.StringVar(&opts.Type, "type", "", "Job type to start (deep_ingest, metrics_sync, backtest, other)")
	fs.StringVar(&opts.Subject, "subject", "", "Subject key the job runs against (e.g. season:42)")
	fs.StringVar(&opts.Payload, "payload", "", "Optional JSON payload forwarded to the authority")
	fs.BoolVar(&opts.Watch, "watch", false, "Block until the job reaches a terminal status")
	fs.DurationVar(&opts.Timeout, "timeout", defaultWatchTimeout, "Maximum duration to watch the job")

	if err := fs.Parse(args); err != nil {
		return startJobOptions{}, err
	}

	if !model.JobType(strings.ToLower(opts.Type)).Valid() {
		return startJobOptions{}, fmt.Errorf("--type must be a known job type, got %q", opts.Type)
	}
	if strings.TrimSpace(opts.Subject) == "" {
		return startJobOptions{}, errors.New("--subject is required")
	}
	if opts.Payload != "" && !json.Valid([]byte(opts.Payload)) {
		return startJobOptions{}, errors.New("--payload must be valid JSON")
	}
	if opts.Timeout <= 0 {
		return startJobOptions{}, errors.New("--timeout must be greater than zero")
	}

	return opts, nil
}

func parseResumeJobFlags(args []string) (resumeJobOptions, error) {
	fs := flag.NewFlagSet("resume-job", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)

	opts := resumeJobOptions{Timeout: defaultWatchTimeout}

	fs.StringVar(&opts.JobID, "job", "", "ID of the job to resume")
	fs.StringVar(&opts.Subject, "subject", "", "Subject key used while watching (default job:<id>)")
	fs.BoolVar(&opts.Watch, "watch", false, "Block until the job reaches a terminal status")
	fs.DurationVar(&opts.Timeout, "timeout", defaultWatchTimeout, "Maximum duration to watch the job")

	if err := fs.Parse(args); err != nil {
		return resumeJobOptions{}, err
	}

	if strings.TrimSpace(opts.JobID) == "" {
		return resumeJobOptions{}, errors.New("--job is required")
	}
	if opts.Timeout <= 0 {
		return resumeJobOptions{}, errors.New("--timeout must be greater than zero")
	}

	return opts, nil
}

func parseWatchJobFlags(args []string) (watchJobOptions, error) {
	fs := flag.NewFlagSet("watch", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)

	opts := watchJobOptions{Timeout: defaultWatchTimeout}

	fs.StringVar(&opts.JobID, "job", "", "ID of the job to watch")
	fs.StringVar(&opts.Subject, "subject", "", "Subject key used while watching (default job:<id>)")
	fs.DurationVar(&opts.Timeout, "timeout", defaultWatchTimeout, "Maximum duration to watch the job")

	if err := fs.Parse(args); err != nil {
		return watchJobOptions{}, err
	}

	if strings.TrimSpace(opts.JobID) == "" {
		return watchJobOptions{}, errors.New("--job is required")
	}
	if opts.Timeout <= 0 {
		return watchJobOptions{}, errors.New("--timeout must be greater than zero")
	}

	return opts, nil
}
