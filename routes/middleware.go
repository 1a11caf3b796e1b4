/*
 * Copyright 2025 Humaid Alqasimi
 * SPDX-License-Identifier: Apache-2.0
 */
package routes

import (
	"net/http"

	"github.com/flamego/csrf"
	"github.com/flamego/flamego"
	"github.com/flamego/template"
)

// csrfDataKey is the template data key read by the `_csrf` hidden inputs.
const csrfDataKey = "csrf_token"

// CSRFInjector exposes the session's CSRF token to admin templates.
func CSRFInjector() flamego.Handler {
	return func(x csrf.CSRF, data template.Data) {
		data[csrfDataKey] = x.Token()
	}
}

// NoCacheHeaders keeps admin pages and exports out of shared caches.
func NoCacheHeaders() flamego.Handler {
	return func(c flamego.Context) {
		header := c.ResponseWriter().Header()
		header.Set("X-Robots-Tag", "noindex, nofollow")
		header.Set("Cache-Control", "no-store, max-age=0")

		if c.Request().Method == http.MethodGet {
			header.Set("Pragma", "no-cache")
		}

		c.Next()
	}
}
