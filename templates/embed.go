/*
 * Copyright 2025 Humaid Alqasimi
 * SPDX-License-Identifier: Apache-2.0
 */
package templates

import "embed"

// Templates holds the admin pages, named after their file without the
// extension ("login", "admin_results", "admin_stats").
//
//go:embed *.html
var Templates embed.FS
