/*
 * Copyright 2025 Humaid Alqasimi
 * SPDX-License-Identifier: Apache-2.0
 */
package cmd

import "github.com/humaidq/labrecords/logging"

var appLogger = logging.Logger(logging.SourceApp)
var importLogger = logging.Logger(logging.SourceImport)
var requestStdLogger = logging.StdLogger(logging.SourceWebRequest)
