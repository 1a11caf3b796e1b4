/*
 * Copyright 2025 Humaid Alqasimi
 * SPDX-License-Identifier: Apache-2.0
 */
package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/urfave/cli/v3"

	"github.com/humaidq/labrecords/cache"
	"github.com/humaidq/labrecords/db"
	"github.com/humaidq/labrecords/labcsv"
	"github.com/humaidq/labrecords/stats"
)

const sourceCLI = "cli"

// CmdImport loads a CSV file into the database with the same row-by-row
// rules as the admin upload.
var CmdImport = importCommand()

func importCommand() *cli.Command {
	return &cli.Command{
		Name:      "import",
		Usage:     "Import test results from a CSV file",
		ArgsUsage: "<file.csv>",
		Flags: []cli.Flag{
			databaseURLFlag(),
			redisURLFlag(),
		},
		Action: importCSV,
	}
}

func importCSV(ctx context.Context, cmd *cli.Command) error {
	path := cmd.Args().First()
	if path == "" {
		return errImportFileRequired
	}

	databaseURL := cmd.String("database-url")
	if databaseURL == "" {
		return errDatabaseURLRequired
	}

	file, err := os.Open(filepath.Clean(path))
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", path, err)
	}

	defer func() {
		if err := file.Close(); err != nil {
			importLogger.Warn("Failed to close import file", "path", path, "error", err)
		}
	}()

	if err := db.Init(ctx, databaseURL); err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	defer db.Close()

	if err := db.SyncSchema(ctx, databaseURL); err != nil {
		return fmt.Errorf("failed to sync schema: %w", err)
	}

	importLogger.Info("Importing CSV", "path", path)

	summary, err := labcsv.Import(ctx, file, db.NewStore())
	summary.ObserveMetrics(sourceCLI)

	if summary.Succeeded > 0 {
		clearSharedStats(ctx, cmd.String("redis-url"))
	}

	if err != nil {
		return fmt.Errorf("error reading CSV file: %w", err)
	}

	printSummary(cmd.Root().Writer, summary)

	return nil
}

// clearSharedStats drops the stats a running web process may be serving. Only
// the Redis cache is shared; an in-memory cache lives in the web process.
func clearSharedStats(ctx context.Context, redisURL string) {
	if strings.TrimSpace(redisURL) == "" {
		importLogger.Info("No shared stats cache configured, web stats refresh within the cache TTL",
			"ttl", stats.CacheTTL)

		return
	}

	c, closeCache, err := newStatsCache(ctx, redisURL)
	if err != nil {
		importLogger.Warn("Failed to open stats cache for invalidation", "error", err)
		return
	}
	defer closeCache()

	invalidateStats(ctx, c)
}

func invalidateStats(ctx context.Context, c cache.Cache) {
	if err := stats.NewService(c, db.NewStore()).Invalidate(ctx); err != nil {
		importLogger.Warn("Failed to invalidate stats cache", "error", err)
	}
}

func printSummary(w io.Writer, summary *labcsv.Summary) {
	fmt.Fprintf(w, "%d rows successfully uploaded.\n", summary.Succeeded)

	if summary.Duplicates > 0 {
		fmt.Fprintf(w, "%d duplicate rows were skipped.\n", summary.Duplicates)

		for _, detail := range summary.DuplicateDetails {
			fmt.Fprintf(w, "  %s\n", detail)
		}
	}

	if summary.Failed() {
		fmt.Fprintf(w, "%d rows could not be uploaded:\n", len(summary.Errors))
		fmt.Fprintf(w, "  %s\n", strings.Join(summary.Errors, "\n  "))
	}
}
