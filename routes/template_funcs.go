/*
 * Copyright 2025 Humaid Alqasimi
 * SPDX-License-Identifier: Apache-2.0
 */
package routes

import (
	htmltemplate "html/template"
	"time"

	"github.com/humaidq/labrecords/db"
)

// TemplateFuncs returns the helpers the admin templates use.
func TemplateFuncs() []htmltemplate.FuncMap {
	return []htmltemplate.FuncMap{{
		"formatValue": db.FormatValue,
		"formatDate": func(t time.Time) string {
			return t.UTC().Format("2006-01-02 15:04 MST")
		},
		"testLabel": func(name db.TestName) string {
			return name.Label()
		},
	}}
}
