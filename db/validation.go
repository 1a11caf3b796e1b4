/*
 * Copyright 2025 Humaid Alqasimi
 * SPDX-License-Identifier: Apache-2.0
 */
package db

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"
)

// Field names shared by JSON payloads and CSV headers.
const (
	FieldPatientID  = "patient_id"
	FieldTestName   = "test_name"
	FieldValue      = "value"
	FieldUnit       = "unit"
	FieldTestDate   = "test_date"
	FieldIsAbnormal = "is_abnormal"
)

// RequiredFields lists every field a candidate record must carry, in column order.
var RequiredFields = []string{
	FieldPatientID,
	FieldTestName,
	FieldValue,
	FieldUnit,
	FieldTestDate,
	FieldIsAbnormal,
}

// Validation messages returned to API clients.
const (
	MsgRequired        = "This field is required."
	MsgInvalidInteger  = "A valid integer is required."
	MsgInvalidNumber   = "A valid number is required."
	MsgPatientIDMin    = "Ensure this value is greater than or equal to 1."
	MsgValuePositive   = "Test result value must be greater than zero."
	MsgMaxDigits       = "Ensure that there are no more than 8 digits in total."
	MsgDecimalPlaces   = "Ensure that there are no more than 2 decimal places."
	MsgWholeDigits     = "Ensure that there are no more than 6 digits before the decimal point."
	MsgBlank           = "This field may not be blank."
	MsgUnitTooLong     = "Ensure this field has no more than 10 characters."
	MsgInvalidDateTime = "Datetime has wrong format. Use one of these formats instead: YYYY-MM-DDThh:mm[:ss][+HH:MM|-HH:MM|Z]."
	MsgInvalidBoolean  = "Must be a valid boolean."
)

const (
	maxValueDigits   = 8
	maxValueDecimals = 2
	maxUnitLength    = 10
)

var decimalPattern = regexp.MustCompile(`^[+-]?(\d+(\.\d*)?|\.\d+)$`)

var testDateLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02 15:04:05Z07:00",
	"2006-01-02 15:04:05.999999999Z07:00",
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	"2006-01-02",
}

// ValidationError carries per-field rejection messages.
type ValidationError struct {
	Fields map[string][]string
}

// NewValidationError returns an empty ValidationError.
func NewValidationError() *ValidationError {
	return &ValidationError{Fields: make(map[string][]string)}
}

// Add records a message against field.
func (e *ValidationError) Add(field, message string) {
	e.Fields[field] = append(e.Fields[field], message)
}

// Has reports whether field already carries a message.
func (e *ValidationError) Has(field string) bool {
	return len(e.Fields[field]) > 0
}

// Empty reports whether no field was rejected.
func (e *ValidationError) Empty() bool {
	return len(e.Fields) == 0
}

func (e *ValidationError) orNil() error {
	if e.Empty() {
		return nil
	}

	return e
}

// Error renders the messages in column order so output is stable.
func (e *ValidationError) Error() string {
	parts := make([]string, 0, len(e.Fields))

	seen := make(map[string]bool, len(e.Fields))
	for _, field := range RequiredFields {
		if msgs, ok := e.Fields[field]; ok {
			parts = append(parts, field+": "+strings.Join(msgs, " "))
			seen[field] = true
		}
	}

	for field, msgs := range e.Fields {
		if !seen[field] {
			parts = append(parts, field+": "+strings.Join(msgs, " "))
		}
	}

	return strings.Join(parts, "; ")
}

// RawTestResult holds field values as they arrive from a JSON body or CSV row.
// IsAbnormal is already coerced because every caller has its own rule for it.
type RawTestResult struct {
	PatientID  string
	TestName   string
	Value      string
	Unit       string
	TestDate   string
	IsAbnormal bool
}

// ParseTestResult converts raw values into a validated TestResultInput. Every
// malformed field is reported at once.
func ParseTestResult(raw RawTestResult) (TestResultInput, error) {
	verr := NewValidationError()

	var input TestResultInput

	patientID, err := strconv.ParseInt(strings.TrimSpace(raw.PatientID), 10, 64)
	if err != nil {
		verr.Add(FieldPatientID, MsgInvalidInteger)
	}

	input.PatientID = patientID
	input.TestName = TestName(strings.TrimSpace(raw.TestName))

	value, err := ParseValue(raw.Value)
	if err != nil {
		verr.Add(FieldValue, err.Error())
	}

	input.Value = value
	input.Unit = strings.TrimSpace(raw.Unit)

	testDate, err := ParseTestDate(raw.TestDate)
	if err != nil {
		verr.Add(FieldTestDate, MsgInvalidDateTime)
	}

	input.TestDate = testDate
	input.IsAbnormal = raw.IsAbnormal

	input.validateInto(verr)

	return input, verr.orNil()
}

// Validate checks the invariants every stored record must satisfy.
func (in TestResultInput) Validate() error {
	verr := NewValidationError()
	in.validateInto(verr)

	return verr.orNil()
}

// validateInto adds messages for fields that parsed but break a rule. Fields
// already rejected are left alone so each carries a single cause.
func (in TestResultInput) validateInto(verr *ValidationError) {
	if !verr.Has(FieldPatientID) && in.PatientID < 1 {
		verr.Add(FieldPatientID, MsgPatientIDMin)
	}

	if !verr.Has(FieldTestName) && !in.TestName.Valid() {
		if in.TestName == "" {
			verr.Add(FieldTestName, MsgBlank)
		} else {
			verr.Add(FieldTestName, fmt.Sprintf("%q is not a valid choice.", string(in.TestName)))
		}
	}

	if !verr.Has(FieldValue) && in.Value <= 0 {
		verr.Add(FieldValue, MsgValuePositive)
	}

	if !verr.Has(FieldUnit) {
		switch {
		case in.Unit == "":
			verr.Add(FieldUnit, MsgBlank)
		case utf8.RuneCountInString(in.Unit) > maxUnitLength:
			verr.Add(FieldUnit, MsgUnitTooLong)
		}
	}

	if !verr.Has(FieldTestDate) && in.TestDate.IsZero() {
		verr.Add(FieldTestDate, MsgInvalidDateTime)
	}
}

// valueError is a parse failure whose text is the client-facing message.
type valueError string

func (e valueError) Error() string { return string(e) }

// ParseValue parses a decimal with at most 8 digits, 2 of them after the point.
func ParseValue(s string) (float64, error) {
	s = strings.TrimSpace(s)
	if !decimalPattern.MatchString(s) {
		return 0, valueError(MsgInvalidNumber)
	}

	digits := strings.TrimLeft(s, "+-")
	whole, frac, _ := strings.Cut(digits, ".")
	whole = strings.TrimLeft(whole, "0")
	frac = strings.TrimRight(frac, "0")

	switch {
	case len(whole)+len(frac) > maxValueDigits:
		return 0, valueError(MsgMaxDigits)
	case len(frac) > maxValueDecimals:
		return 0, valueError(MsgDecimalPlaces)
	case len(whole) > maxValueDigits-maxValueDecimals:
		return 0, valueError(MsgWholeDigits)
	}

	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, valueError(MsgInvalidNumber)
	}

	return v, nil
}

// ParseTestDate accepts RFC 3339 and the common ISO-like layouts. Values
// without a zone are taken as UTC.
func ParseTestDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, valueError(MsgInvalidDateTime)
	}

	for _, layout := range testDateLayouts {
		if t, err := time.ParseInLocation(layout, s, time.UTC); err == nil {
			return t.UTC(), nil
		}
	}

	return time.Time{}, valueError(MsgInvalidDateTime)
}

// FormatValue renders a stored value with its two decimal places.
func FormatValue(v float64) string {
	return strconv.FormatFloat(v, 'f', maxValueDecimals, 64)
}
