/*
 * Copyright 2025 Humaid Alqasimi
 * SPDX-License-Identifier: Apache-2.0
 */
package cmd

import (
	"context"
	"fmt"

	"github.com/urfave/cli/v3"
	"golang.org/x/crypto/bcrypt"
)

// CmdHashPassword prints a bcrypt hash for ADMIN_PASSWORD_HASH.
var CmdHashPassword = hashPasswordCommand()

func hashPasswordCommand() *cli.Command {
	return &cli.Command{
		Name:      "hash-password",
		Usage:     "Print a bcrypt hash for the admin password",
		ArgsUsage: "<password>",
		Flags: []cli.Flag{
			&cli.IntFlag{
				Name:  "cost",
				Value: bcrypt.DefaultCost,
				Usage: "bcrypt cost factor",
			},
		},
		Action: hashPassword,
	}
}

func hashPassword(_ context.Context, cmd *cli.Command) error {
	password := cmd.Args().First()
	if password == "" {
		return errPasswordRequired
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), int(cmd.Int("cost")))
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}

	fmt.Fprintln(cmd.Root().Writer, string(hash))

	return nil
}
