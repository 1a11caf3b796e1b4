/*
 * Copyright 2025 Humaid Alqasimi
 * SPDX-License-Identifier: Apache-2.0
 */
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/urfave/cli/v3"

	"github.com/humaidq/labrecords/cmd"
	"github.com/humaidq/labrecords/logging"
)

func main() {
	// .env is already loaded here; logging.Init reads it during package init.
	logger := logging.Logger(logging.SourceApp)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app := &cli.Command{
		Name:  "labrecords",
		Usage: "Laboratory test results service",
		Commands: []*cli.Command{
			cmd.CmdStart,
			cmd.CmdMigrate,
			cmd.CmdImport,
			cmd.CmdHashPassword,
		},
	}

	if err := app.Run(ctx, os.Args); err != nil {
		logger.Error("Command failed", "error", err)
		stop()
		os.Exit(1)
	}
}
