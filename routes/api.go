/*
 * Copyright 2025 Humaid Alqasimi
 * SPDX-License-Identifier: Apache-2.0
 */
package routes

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/flamego/flamego"

	"github.com/humaidq/labrecords/db"
	"github.com/humaidq/labrecords/labcsv"
	"github.com/humaidq/labrecords/metrics"
)

const (
	msgPatientIDTaken    = "test result with this patient id already exists."
	msgNotAString        = "Not a valid string."
	msgPatientIDRequired = "Patient ID is required."
	msgPatientIDInteger  = "Patient ID must be an integer."
	msgStatsFailed       = "Error calculating stats."
	msgUnexpected        = "An unexpected error occurred."
	msgBatchSuccess      = "Batch upload successful."
)

// sourceAPI labels metrics for rows uploaded through the API.
const sourceAPI = "api"

// testResultJSON is the wire form of a record.
type testResultJSON struct {
	PatientID  int64     `json:"patient_id"`
	TestName   string    `json:"test_name"`
	Value      float64   `json:"value"`
	Unit       string    `json:"unit"`
	TestDate   time.Time `json:"test_date"`
	IsAbnormal bool      `json:"is_abnormal"`
}

func toJSON(r db.TestResult) testResultJSON {
	return testResultJSON{
		PatientID:  r.PatientID,
		TestName:   string(r.TestName),
		Value:      r.Value,
		Unit:       r.Unit,
		TestDate:   r.TestDate.UTC(),
		IsAbnormal: r.IsAbnormal,
	}
}

func writeJSON(c flamego.Context, status int, v interface{}) {
	c.ResponseWriter().Header().Set("Content-Type", "application/json")
	c.ResponseWriter().WriteHeader(status)

	if err := json.NewEncoder(c.ResponseWriter()).Encode(v); err != nil {
		logger.Error("Error writing JSON response", "error", err)
	}
}

func writeJSONError(c flamego.Context, status int, message string) {
	writeJSON(c, status, map[string]string{"error": message})
}

// CreateTestResult validates a JSON body and stores one record.
func CreateTestResult(c flamego.Context, store ResultStore) {
	input, err := decodeTestResult(c.Request().Request.Body)
	if err != nil {
		var verr *db.ValidationError
		if errors.As(err, &verr) {
			writeJSON(c, http.StatusBadRequest, verr.Fields)
			return
		}

		writeJSONError(c, http.StatusBadRequest, err.Error())

		return
	}

	result, err := store.CreateTestResult(c.Request().Context(), input)
	if err != nil {
		var verr *db.ValidationError

		switch {
		case errors.Is(err, db.ErrDuplicateTestResult), errors.Is(err, db.ErrPatientIDTaken):
			writeJSON(c, http.StatusBadRequest, map[string][]string{
				db.FieldPatientID: {msgPatientIDTaken},
			})
		case errors.As(err, &verr):
			writeJSON(c, http.StatusBadRequest, verr.Fields)
		default:
			logger.Error("Error creating test result", "error", err)
			writeJSONError(c, http.StatusInternalServerError, msgUnexpected)
		}

		return
	}

	metrics.ObserveCreatedRecord()
	writeJSON(c, http.StatusCreated, toJSON(*result))
}

// ListTestResults returns every record for the patient_id query parameter.
func ListTestResults(c flamego.Context, store ResultStore) {
	raw := strings.TrimSpace(c.Query("patient_id"))
	if raw == "" {
		writeJSONError(c, http.StatusBadRequest, msgPatientIDRequired)
		return
	}

	patientID, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		writeJSONError(c, http.StatusBadRequest, msgPatientIDInteger)
		return
	}

	results, err := store.ListTestResultsByPatient(c.Request().Context(), patientID)
	if err != nil {
		logger.Error("Error listing test results", "patient_id", patientID, "error", err)
		writeJSONError(c, http.StatusInternalServerError, msgUnexpected)

		return
	}

	out := make([]testResultJSON, 0, len(results))
	for _, result := range results {
		out = append(out, toJSON(result))
	}

	writeJSON(c, http.StatusOK, out)
}

// TestStats returns the per-test aggregates, served from cache when fresh.
func TestStats(c flamego.Context, stats StatsProvider) {
	result, _, err := stats.Get(c.Request().Context())
	if err != nil {
		logger.Error("Error calculating stats", "error", err)
		writeJSONError(c, http.StatusInternalServerError, msgStatsFailed)

		return
	}

	writeJSON(c, http.StatusOK, map[string]db.TestStats{"test_stats": result})
}

// BatchUpload imports an uploaded CSV file all-or-nothing.
func BatchUpload(c flamego.Context, store ResultStore, stats StatsProvider) {
	if err := c.Request().ParseMultipartForm(labcsv.MaxFileSize); err != nil &&
		!errors.Is(err, http.ErrNotMultipart) {
		logger.Warn("Error parsing batch upload form", "error", err)
	}

	file, header, err := c.Request().FormFile("csv_file")
	if err != nil {
		writeJSONError(c, http.StatusBadRequest, msgNoFileSelected)
		return
	}

	defer func() {
		if err := file.Close(); err != nil {
			logger.Error("Error closing batch upload file", "error", err)
		}
	}()

	if !strings.HasSuffix(header.Filename, ".csv") {
		writeJSONError(c, http.StatusBadRequest, msgInvalidFileFormat)
		return
	}

	ctx := c.Request().Context()

	summary, err := labcsv.ImportAll(ctx, file, store)
	if err != nil {
		// Undecodable files are treated as server-side failures, not row errors.
		if errors.Is(err, labcsv.ErrMalformedCSV) || errors.Is(err, labcsv.ErrFileTooLarge) {
			writeJSONError(c, http.StatusBadRequest, err.Error())
			return
		}

		logger.Error("Error importing batch upload", "filename", header.Filename, "error", err)
		writeJSONError(c, http.StatusInternalServerError, msgUnexpected)

		return
	}

	summary.ObserveMetrics(sourceAPI)

	if summary.RolledBack {
		writeJSON(c, http.StatusBadRequest, map[string][]string{"errors": summary.Errors})
		return
	}

	if err := stats.Invalidate(ctx); err != nil {
		logger.Warn("Failed to invalidate stats cache", "error", err)
	}

	logger.Info("Batch upload stored", "filename", header.Filename, "created", summary.Succeeded)

	writeJSON(c, http.StatusCreated, map[string]interface{}{
		"message": msgBatchSuccess,
		"created": summary.Succeeded,
	})
}

// decodeTestResult reads a JSON object and returns either a parsed input or
// a *db.ValidationError holding every field problem.
func decodeTestResult(body io.Reader) (db.TestResultInput, error) {
	var payload map[string]json.RawMessage
	if err := json.NewDecoder(body).Decode(&payload); err != nil {
		return db.TestResultInput{}, fmt.Errorf("%w: %s", errMalformedJSON, err.Error())
	}

	verr := db.NewValidationError()
	values := make(map[string]string, len(db.RequiredFields))

	for _, field := range db.RequiredFields {
		raw, ok := payload[field]
		if !ok || string(raw) == "null" {
			verr.Add(field, db.MsgRequired)
			continue
		}

		if field == db.FieldIsAbnormal {
			continue
		}

		value, ok := jsonScalar(raw)
		if !ok {
			verr.Add(field, scalarMessage(field))
			continue
		}

		values[field] = value
	}

	var abnormal bool

	if raw, ok := payload[db.FieldIsAbnormal]; ok && !verr.Has(db.FieldIsAbnormal) {
		abnormal, ok = parseJSONBool(raw)
		if !ok {
			verr.Add(db.FieldIsAbnormal, db.MsgInvalidBoolean)
		}
	}

	input, err := db.ParseTestResult(db.RawTestResult{
		PatientID:  values[db.FieldPatientID],
		TestName:   values[db.FieldTestName],
		Value:      values[db.FieldValue],
		Unit:       values[db.FieldUnit],
		TestDate:   values[db.FieldTestDate],
		IsAbnormal: abnormal,
	})

	var parseErr *db.ValidationError
	if errors.As(err, &parseErr) {
		for field, messages := range parseErr.Fields {
			if verr.Has(field) {
				continue
			}

			for _, message := range messages {
				verr.Add(field, message)
			}
		}
	} else if err != nil {
		return db.TestResultInput{}, err
	}

	if !verr.Empty() {
		return db.TestResultInput{}, verr
	}

	return input, nil
}

// jsonScalar returns strings unquoted and numbers verbatim.
func jsonScalar(raw json.RawMessage) (string, bool) {
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s, true
	}

	var n json.Number
	if err := json.Unmarshal(raw, &n); err == nil {
		return n.String(), true
	}

	return "", false
}

func scalarMessage(field string) string {
	switch field {
	case db.FieldPatientID:
		return db.MsgInvalidInteger
	case db.FieldValue:
		return db.MsgInvalidNumber
	case db.FieldTestDate:
		return db.MsgInvalidDateTime
	}

	return msgNotAString
}

func parseJSONBool(raw json.RawMessage) (bool, bool) {
	var b bool
	if err := json.Unmarshal(raw, &b); err == nil {
		return b, true
	}

	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return false, false
	}

	switch s {
	case "true", "True", "1":
		return true, true
	case "false", "False", "0":
		return false, true
	}

	return false, false
}
