package main

import (
	"context"
	"database/sql"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/sportwire/ingest-admin/internal/data"
	"github.com/sportwire/ingest-admin/internal/domain/model"
)

const defaultQueryTimeout = 2 * time.Minute

type listJobsOptions struct {
	Status  string
	Type    string
	Subject string
	Limit   int
	Offset  int
}

type listAuditOptions struct {
	Actor      string
	EntityType string
	Limit      int
	Offset     int
}

type pruneAuditOptions struct {
	MaxAge    time.Duration
	BatchSize int
	Yes       bool
}

func runListJobs(cmdCtx *commandContext, args []string) error {
	opts, err := parseListJobsFlags(args)
	if err != nil {
		return err
	}

	listOpts, err := opts.toModel()
	if err != nil {
		return err
	}

	return withDatabase(cmdCtx, defaultQueryTimeout, func(ctx context.Context, db *sql.DB) error {
		jobs, listErr := data.NewJobMirrorRepo(db).List(ctx, listOpts)
		if listErr != nil {
			return fmt.Errorf("list jobs: %w", listErr)
		}
		return renderJobs(os.Stdout, jobs)
	})
}

func runJobStats(cmdCtx *commandContext, _ []string) error {
	return withDatabase(cmdCtx, defaultQueryTimeout, func(ctx context.Context, db *sql.DB) error {
		stats, statsErr := data.NewJobMirrorRepo(db).Stats(ctx)
		if statsErr != nil {
			return fmt.Errorf("job stats: %w", statsErr)
		}
		return renderJobStats(os.Stdout, stats)
	})
}

func runListAudit(cmdCtx *commandContext, args []string) error {
	opts, err := parseListAuditFlags(args)
	if err != nil {
		return err
	}

	listOpts := model.AuditListOptions{
		Limit:  opts.Limit,
		Offset: opts.Offset,
	}
	if opts.Actor != "" {
		listOpts.Actor = &opts.Actor
	}
	if opts.EntityType != "" {
		listOpts.EntityType = &opts.EntityType
	}

	return withDatabase(cmdCtx, defaultQueryTimeout, func(ctx context.Context, db *sql.DB) error {
		entries, listErr := data.NewAuditRepo(db).List(ctx, listOpts)
		if listErr != nil {
			return fmt.Errorf("list audit entries: %w", listErr)
		}
		return renderAuditEntries(os.Stdout, entries)
	})
}

func runPruneAudit(cmdCtx *commandContext, args []string) error {
	opts, err := parsePruneAuditFlags(args)
	if err != nil {
		return err
	}

	if confirmErr := confirmAction(confirmOptions{
		Yes:     opts.Yes,
		Warning: fmt.Sprintf("This will DELETE audit entries older than %s.", opts.MaxAge),
	}); confirmErr != nil {
		return confirmErr
	}

	return withDatabase(cmdCtx, defaultQueryTimeout, func(ctx context.Context, db *sql.DB) error {
		deleted, deleteErr := data.NewAuditRepo(db).DeleteOld(ctx, opts.MaxAge, opts.BatchSize)
		if deleteErr != nil {
			return fmt.Errorf("prune audit entries: %w", deleteErr)
		}
		cmdCtx.Logger.Info("audit prune complete", "rows_deleted", deleted, "max_age", opts.MaxAge)
		return nil
	})
}

func parseListJobsFlags(args []string) (listJobsOptions, error) {
	fs := flag.NewFlagSet("list-jobs", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)

	opts := listJobsOptions{Limit: 50}

	fs.StringVar(&opts.Status, "status", "", "Filter by status (queued, running, paused, succeeded, failed, canceled)")
	fs.StringVar(&opts.Type, "type", "", "Filter by job type (deep_ingest, metrics_sync, backtest, other)")
	fs.StringVar(&opts.Subject, "subject", "", "Filter by subject key (e.g. season:42)")
	fs.IntVar(&opts.Limit, "limit", 50, "Maximum rows to return")
	fs.IntVar(&opts.Offset, "offset", 0, "Rows to skip")

	if err := fs.Parse(args); err != nil {
		return listJobsOptions{}, err
	}

	if opts.Limit <= 0 {
		return listJobsOptions{}, errors.New("--limit must be greater than zero")
	}
	if opts.Offset < 0 {
		return listJobsOptions{}, errors.New("--offset must not be negative")
	}

	return opts, nil
}

func (o listJobsOptions) toModel() (*model.JobListOptions, error) {
	listOpts := &model.JobListOptions{
		Limit:  o.Limit,
		Offset: o.Offset,
	}

	if o.Status != "" {
		status := model.JobStatus(strings.ToLower(o.Status))
		if !status.Valid() {
			return nil, fmt.Errorf("unknown status %q", o.Status)
		}
		listOpts.Status = &status
	}
	if o.Type != "" {
		jobType := model.JobType(strings.ToLower(o.Type))
		if !jobType.Valid() {
			return nil, fmt.Errorf("unknown job type %q", o.Type)
		}
		listOpts.Type = &jobType
	}
	if o.Subject != "" {
		subject := o.Subject
		listOpts.Subject = &subject
	}

	return listOpts, nil
}

func parseListAuditFlags(args []string) (listAuditOptions, error) {
	fs := flag.NewFlagSet("list-audit", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)

	opts := listAuditOptions{Limit: 50}

	fs.StringVar(&opts.Actor, "actor", "", "Filter by actor")
	fs.StringVar(&opts.EntityType, "entity-type", "", "Filter by entity type (job, league, team, referee, duplicate, strategy)")
	fs.IntVar(&opts.Limit, "limit", 50, "Maximum rows to return")
	fs.IntVar(&opts.Offset, "offset", 0, "Rows to skip")

	if err := fs.Parse(args); err != nil {
		return listAuditOptions{}, err
	}

	if opts.Limit <= 0 {
		return listAuditOptions{}, errors.New("--limit must be greater than zero")
	}
	if opts.Offset < 0 {
		return listAuditOptions{}, errors.New("--offset must not be negative")
	}

	return opts, nil
}

func parsePruneAuditFlags(args []string) (pruneAuditOptions, error) {
	fs := flag.NewFlagSet("prune-audit", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)

	opts := pruneAuditOptions{
		MaxAge:    90 * 24 * time.Hour,
		BatchSize: 1000,
	}

	fs.DurationVar(&opts.MaxAge, "max-age", opts.MaxAge, "Delete entries older than this duration")
	fs.IntVar(&opts.BatchSize, "batch-size", opts.BatchSize, "Rows to delete per batch")
	fs.BoolVar(&opts.Yes, "yes", false, "Skip confirmation prompt")

	if err := fs.Parse(args); err != nil {
		return pruneAuditOptions{}, err
	}

	if opts.MaxAge <= 0 {
		return pruneAuditOptions{}, errors.New("--max-age must be greater than zero")
	}
	if opts.BatchSize <= 0 {
		return pruneAuditOptions{}, errors.New("--batch-size must be greater than zero")
	}

	return opts, nil
}

func renderJobs(w io.Writer, jobs []*model.Job) error {
	if len(jobs) == 0 {
		return writeln(w, "(no jobs found)")
	}

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	if err := writef(tw, "ID\tTYPE\tSTATUS\tSUBJECT\tPHASE\tCREATED\tUPDATED\n"); err != nil {
		return fmt.Errorf("print job header: %w", err)
	}
	for _, job := range jobs {
		if err := writef(tw, "%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
			job.ID,
			job.Type,
			job.Status,
			orDash(job.Subject),
			orDash(job.Phase),
			job.CreatedAt.Format(time.RFC3339),
			job.UpdatedAt.Format(time.RFC3339),
		); err != nil {
			return fmt.Errorf("print job row: %w", err)
		}
	}
	if err := tw.Flush(); err != nil {
		return fmt.Errorf("flush job table: %w", err)
	}

	return writef(w, "\nTotal rows: %d\n", len(jobs))
}

func renderJobStats(w io.Writer, stats *model.JobStats) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)

	rows := []struct {
		label string
		count int
	}{
		{"queued", stats.Queued},
		{"running", stats.Running},
		{"paused", stats.Paused},
		{"succeeded", stats.Succeeded},
		{"failed", stats.Failed},
		{"canceled", stats.Canceled},
	}

	total := 0
	for _, row := range rows {
		total += row.count
		if err := writef(tw, "%s\t%d\n", row.label, row.count); err != nil {
			return fmt.Errorf("print stats row: %w", err)
		}
	}
	if err := writef(tw, "total\t%d\n", total); err != nil {
		return fmt.Errorf("print stats total: %w", err)
	}
	if err := tw.Flush(); err != nil {
		return fmt.Errorf("flush stats table: %w", err)
	}
	return nil
}

func renderAuditEntries(w io.Writer, entries []*model.AuditEntry) error {
	if len(entries) == 0 {
		return writeln(w, "(no audit entries found)")
	}

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	if err := writef(tw, "TIME\tACTOR\tACTION\tENTITY\tENTITY ID\n"); err != nil {
		return fmt.Errorf("print audit header: %w", err)
	}
	for _, entry := range entries {
		if err := writef(tw, "%s\t%s\t%s\t%s\t%s\n",
			entry.CreatedAt.Format(time.RFC3339),
			entry.Actor,
			entry.Action,
			entry.EntityType,
			orDash(entry.EntityID),
		); err != nil {
			return fmt.Errorf("print audit row: %w", err)
		}
	}
	if err := tw.Flush(); err != nil {
		return fmt.Errorf("flush audit table: %w", err)
	}

	return writef(w, "\nTotal rows: %d\n", len(entries))
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
