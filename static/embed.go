/*
 * Copyright 2025 Humaid Alqasimi
 * SPDX-License-Identifier: Apache-2.0
 */
package static

import "embed"

// Static holds the admin stylesheet, served from the site root.
//
//go:embed *.css
var Static embed.FS
