package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sportwire/ingest-admin/internal/bootstrap"
)

const suggestionKeyPrefix = "alias_suggest:"

type suggestionCacheOptions struct {
	Provider string
	DryRun   bool
	Yes      bool
}

func runListSuggestionCache(cmdCtx *commandContext, args []string) error {
	opts, err := parseSuggestionCacheFlags("list-suggestion-cache", args)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(cmdCtx.Ctx, defaultQueryTimeout)
	defer cancel()

	client, err := connectSuggestionCache(cmdCtx)
	if err != nil {
		return err
	}
	if client == nil {
		return writeln(os.Stderr, "Cache Redis is not configured")
	}
	defer func() {
		if closeErr := client.Close(); closeErr != nil {
			cmdCtx.Logger.Warn("cache redis close failed", "error", closeErr)
		}
	}()

	pattern := opts.pattern()
	cmdCtx.Logger.Info("scanning cache redis", "pattern", pattern)

	if headerErr := writef(os.Stdout, "\nAlias Suggestion Keys in Redis\n"); headerErr != nil {
		return fmt.Errorf("print suggestion cache header: %w", headerErr)
	}

	total := 0
	iter := client.Scan(ctx, 0, pattern, 100).Iterator()
	for iter.Next(ctx) {
		key := iter.Val()
		total++

		ttl, ttlErr := client.TTL(ctx, key).Result()
		if ttlErr != nil {
			cmdCtx.Logger.ErrorContext(ctx, "failed to fetch TTL", "key", key, "error", ttlErr)
			if printErr := writef(os.Stdout, "  %s (TTL: error: %v)\n", key, ttlErr); printErr != nil {
				return fmt.Errorf("print suggestion key ttl error: %w", printErr)
			}
			continue
		}
		if printErr := writef(os.Stdout, "  %s (TTL: %s)\n", key, renderTTL(ttl)); printErr != nil {
			return fmt.Errorf("print suggestion key: %w", printErr)
		}
	}
	if err = iter.Err(); err != nil {
		return fmt.Errorf("redis scan: %w", err)
	}

	if total == 0 {
		return writeln(os.Stdout, "(no keys found)")
	}
	return writef(os.Stdout, "\nTotal keys: %d\n", total)
}

func runClearSuggestionCache(cmdCtx *commandContext, args []string) error {
	opts, err := parseSuggestionCacheFlags("clear-suggestion-cache", args)
	if err != nil {
		return err
	}

	if confirmErr := confirmAction(confirmOptions{
		Yes:     opts.Yes,
		DryRun:  opts.DryRun,
		Warning: "This will delete cached alias suggestions matching " + opts.pattern() + ".",
	}); confirmErr != nil {
		return confirmErr
	}

	ctx, cancel := context.WithTimeout(cmdCtx.Ctx, defaultQueryTimeout)
	defer cancel()

	client, err := connectSuggestionCache(cmdCtx)
	if err != nil {
		return err
	}
	if client == nil {
		return errors.New("cache redis is not configured")
	}
	defer func() {
		if closeErr := client.Close(); closeErr != nil {
			cmdCtx.Logger.Warn("cache redis close failed", "error", closeErr)
		}
	}()

	deleted, err := deleteSuggestionKeys(ctx, client, opts)
	if err != nil {
		return err
	}

	if opts.DryRun {
		cmdCtx.Logger.Info("dry run complete, no keys deleted", "keys_matched", deleted)
		return nil
	}
	cmdCtx.Logger.Info("clear suggestion cache complete", "keys_deleted", deleted)
	return nil
}

func deleteSuggestionKeys(ctx context.Context, client *redis.Client, opts suggestionCacheOptions) (int, error) {
	deleted := 0
	iter := client.Scan(ctx, 0, opts.pattern(), 100).Iterator()
	for iter.Next(ctx) {
		key := iter.Val()
		if opts.DryRun {
			if printErr := writef(os.Stdout, "  would delete %s\n", key); printErr != nil {
				return 0, fmt.Errorf("print dry run key: %w", printErr)
			}
			deleted++
			continue
		}
		if delErr := client.Del(ctx, key).Err(); delErr != nil {
			return 0, fmt.Errorf("delete key %s: %w", key, delErr)
		}
		deleted++
	}
	if err := iter.Err(); err != nil {
		return 0, fmt.Errorf("redis scan: %w", err)
	}
	return deleted, nil
}

func parseSuggestionCacheFlags(name string, args []string) (suggestionCacheOptions, error) {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(os.Stderr)

	opts := suggestionCacheOptions{}

	fs.StringVar(&opts.Provider, "provider", "", "Restrict to one feed provider (e.g. oddsfeed)")
	fs.BoolVar(&opts.DryRun, "dry-run", false, "List matching keys without deleting them")
	fs.BoolVar(&opts.Yes, "yes", false, "Skip confirmation prompt")

	if err := fs.Parse(args); err != nil {
		return suggestionCacheOptions{}, err
	}

	return opts, nil
}

func (o suggestionCacheOptions) pattern() string {
	if o.Provider != "" {
		return suggestionKeyPrefix + o.Provider + ":*"
	}
	return suggestionKeyPrefix + "*"
}

func connectSuggestionCache(cmdCtx *commandContext) (*redis.Client, error) {
	client, err := bootstrap.ConnectCacheRedis(cmdCtx.Config.Cache, cmdCtx.Logger)
	if err != nil {
		return nil, fmt.Errorf("connect cache redis: %w", err)
	}
	return client, nil
}

func renderTTL(d time.Duration) string {
	switch {
	case d == -1*time.Second:
		return "no expiry"
	case d == -2*time.Second:
		return "key missing"
	default:
		return d.String()
	}
}
