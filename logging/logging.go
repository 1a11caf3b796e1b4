/*
 * Copyright 2025 Humaid Alqasimi
 * SPDX-License-Identifier: Apache-2.0
 */

// Package logging provides the source-tagged structured loggers shared by
// every labrecords package.
package logging

import (
	"errors"
	"io"
	"io/fs"
	stdlog "log"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/joho/godotenv"
)

// envFile is read once, before the logger is configured. Variables already
// set in the process environment win.
const envFile = ".env"

// Log source tags used in structured logger contexts.
const (
	SourceApp        = "app"
	SourceWeb        = "web"
	SourceWebRequest = "web_request"
	SourceDB         = "db"
	SourceCache      = "cache"
	SourceImport     = "import"
)

var (
	initOnce sync.Once
	root     *log.Logger
)

// Init loads .env, then builds the root logger from LOG_LEVEL (default debug)
// and LOG_FORMAT (logfmt, json or text; default logfmt) and routes the stdlib
// logger into it. Only the first call has any effect. Package-level loggers
// call it during initialization, so this is where .env has to be read.
func Init() {
	initOnce.Do(func() {
		envErr := loadEnvFile(envFile)

		root = newLogger(os.Stdout, os.Getenv("LOG_LEVEL"), os.Getenv("LOG_FORMAT"))

		stdlog.SetFlags(0)
		stdlog.SetOutput(standardLog(root.With("source", SourceApp)).Writer())

		if envErr != nil {
			root.Warn("Failed to load .env file", "source", SourceApp, "error", envErr)
		}
	})
}

// loadEnvFile reads path into the environment. A missing file is not an error.
func loadEnvFile(path string) error {
	if err := godotenv.Load(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}

	return nil
}

func newLogger(w io.Writer, level, format string) *log.Logger {
	return log.NewWithOptions(w, log.Options{
		TimeFunction:    log.NowUTC,
		TimeFormat:      time.RFC3339Nano,
		Level:           levelFromEnv(level),
		ReportTimestamp: true,
		Formatter:       formatterFromEnv(format),
	})
}

func levelFromEnv(value string) log.Level {
	level, err := log.ParseLevel(strings.ToLower(strings.TrimSpace(value)))
	if err != nil {
		return log.DebugLevel
	}

	return level
}

func formatterFromEnv(value string) log.Formatter {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "json":
		return log.JSONFormatter
	case "text":
		return log.TextFormatter
	}

	return log.LogfmtFormatter
}

// Logger returns a logger tagged with source.
func Logger(source string) *log.Logger {
	Init()
	return root.With("source", source)
}

// StdLogger adapts a source-tagged logger for APIs that want a *log.Logger,
// such as http.Server.ErrorLog.
func StdLogger(source string) *stdlog.Logger {
	return standardLog(Logger(source))
}

func standardLog(l *log.Logger) *stdlog.Logger {
	return l.StandardLog(log.StandardLogOptions{ForceLevel: log.InfoLevel})
}
