// SPDX-FileCopyrightText: 2025 Humaid Alqasimi
// SPDX-License-Identifier: Apache-2.0

package cmd

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/urfave/cli/v3"
	"golang.org/x/crypto/bcrypt"

	"github.com/humaidq/labrecords/cache"
	"github.com/humaidq/labrecords/labcsv"
	"github.com/humaidq/labrecords/stats"
)

func runCommand(t *testing.T, sub *cli.Command, args ...string) (string, error) {
	t.Helper()

	var out bytes.Buffer

	root := &cli.Command{
		Name:     "labrecords",
		Writer:   &out,
		Commands: []*cli.Command{sub},
	}

	err := root.Run(context.Background(), append([]string{"labrecords"}, args...))

	return out.String(), err
}

func TestHashPassword(t *testing.T) {
	out, err := runCommand(t, hashPasswordCommand(), "hash-password", "--cost", "4", "s3cret")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	hash := strings.TrimSpace(out)
	if err := bcrypt.CompareHashAndPassword([]byte(hash), []byte("s3cret")); err != nil {
		t.Fatalf("printed hash does not match password: %v", err)
	}
}

func TestHashPasswordRequiresArgument(t *testing.T) {
	_, err := runCommand(t, hashPasswordCommand(), "hash-password")
	if !errors.Is(err, errPasswordRequired) {
		t.Fatalf("expected errPasswordRequired, got %v", err)
	}
}

func TestImportRequiresFile(t *testing.T) {
	_, err := runCommand(t, importCommand(), "import")
	if !errors.Is(err, errImportFileRequired) {
		t.Fatalf("expected errImportFileRequired, got %v", err)
	}
}

func TestImportRequiresDatabaseURL(t *testing.T) {
	t.Setenv("DATABASE_URL", "")

	_, err := runCommand(t, importCommand(), "import", "results.csv")
	if !errors.Is(err, errDatabaseURLRequired) {
		t.Fatalf("expected errDatabaseURLRequired, got %v", err)
	}
}

func TestStartValidatesConfig(t *testing.T) {
	t.Setenv("DATABASE_URL", "")
	t.Setenv("CSRF_SECRET", "")
	t.Setenv("ADMIN_PASSWORD_HASH", "")

	_, err := runCommand(t, startCommand(), "start")
	if !errors.Is(err, errDatabaseURLRequired) {
		t.Fatalf("expected errDatabaseURLRequired, got %v", err)
	}

	_, err = runCommand(t, startCommand(), "start", "--database-url", "postgres://localhost/labrecords")
	if !errors.Is(err, errCSRFSecretRequired) {
		t.Fatalf("expected errCSRFSecretRequired, got %v", err)
	}

	_, err = runCommand(t, startCommand(), "start", "--database-url", "postgres://localhost/labrecords", "--csrf-secret", "x")
	if !errors.Is(err, errAdminPasswordHashRequired) {
		t.Fatalf("expected errAdminPasswordHashRequired, got %v", err)
	}
}

func TestPrintSummary(t *testing.T) {
	t.Parallel()

	var out bytes.Buffer
	printSummary(&out, &labcsv.Summary{
		Succeeded:        2,
		Duplicates:       1,
		DuplicateDetails: []string{"Row 3: Duplicate patient_id '1' for test 'HB'."},
		Errors:           []string{"Row 4: Missing required fields."},
	})

	want := "2 rows successfully uploaded.\n" +
		"1 duplicate rows were skipped.\n" +
		"  Row 3: Duplicate patient_id '1' for test 'HB'.\n" +
		"1 rows could not be uploaded:\n" +
		"  Row 4: Missing required fields.\n"

	if out.String() != want {
		t.Fatalf("unexpected summary:\n%s", out.String())
	}
}

func TestInvalidateStatsDropsCachedAggregates(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	c := cache.NewMemory()

	if err := c.Set(ctx, stats.CacheKey, []byte(`{}`), time.Minute); err != nil {
		t.Fatalf("failed to seed cache: %v", err)
	}

	invalidateStats(ctx, c)

	if _, ok, _ := c.Get(ctx, stats.CacheKey); ok {
		t.Fatal("expected cached stats to be removed")
	}
}

func TestClearSharedStatsToleratesUnreachableCache(t *testing.T) {
	t.Parallel()

	clearSharedStats(context.Background(), "")
	clearSharedStats(context.Background(), "not-a-redis-url")
}

func TestImportAcceptsRedisURLFlag(t *testing.T) {
	t.Setenv("DATABASE_URL", "")

	_, err := runCommand(t, importCommand(), "import", "--redis-url", "redis://localhost:6379/0", "results.csv")
	if !errors.Is(err, errDatabaseURLRequired) {
		t.Fatalf("expected errDatabaseURLRequired, got %v", err)
	}
}
