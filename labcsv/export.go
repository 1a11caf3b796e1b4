/*
 * Copyright 2025 Humaid Alqasimi
 * SPDX-License-Identifier: Apache-2.0
 */
package labcsv

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/humaidq/labrecords/db"
)

// ExportFilename is the download name of an export.
const ExportFilename = "test_results.csv"

// ExportHeader is the fixed first line of an export.
var ExportHeader = []string{"Patient ID", "Test Name", "Value", "Unit", "Test Date", "Is Abnormal"}

// Export writes results to w in the order given, after the header row.
func Export(w io.Writer, results []db.TestResult) error {
	writer := csv.NewWriter(w)

	if err := writer.Write(ExportHeader); err != nil {
		return fmt.Errorf("failed to write export header: %w", err)
	}

	for _, result := range results {
		record := []string{
			strconv.FormatInt(result.PatientID, 10),
			string(result.TestName),
			db.FormatValue(result.Value),
			result.Unit,
			result.TestDate.UTC().Format(time.RFC3339),
			formatBool(result.IsAbnormal),
		}

		if err := writer.Write(record); err != nil {
			return fmt.Errorf("failed to write export row: %w", err)
		}
	}

	writer.Flush()

	if err := writer.Error(); err != nil {
		return fmt.Errorf("failed to flush export: %w", err)
	}

	return nil
}

func formatBool(v bool) string {
	if v {
		return "True"
	}

	return "False"
}
