/*
 * Copyright 2025 Humaid Alqasimi
 * SPDX-License-Identifier: Apache-2.0
 */
package routes

import (
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/flamego/flamego"

	"github.com/humaidq/labrecords/logging"
	"github.com/humaidq/labrecords/metrics"
)

var requestLogger = logging.Logger(logging.SourceWebRequest)

// Surfaces used to label request logs and latency metrics.
const (
	surfaceAPI     = "api"
	surfaceAdmin   = "admin"
	surfaceMetrics = "metrics"
	surfaceOther   = "other"
)

// RequestLogger logs every request once it completes and records its latency.
func RequestLogger(c flamego.Context) {
	start := time.Now()

	c.Next()

	elapsed := time.Since(start)

	status := c.ResponseWriter().Status()
	if status == 0 {
		status = http.StatusOK
	}

	surface := requestSurface(c.Request().URL.Path)
	metrics.ObserveRequest(surface, c.Request().Method, status, elapsed)

	fields := append([]interface{}{
		"surface", surface,
		"status", status,
		"duration_ms", elapsed.Milliseconds(),
	}, requestFields(c)...)

	switch {
	case status >= http.StatusInternalServerError:
		requestLogger.Error("request", fields...)
	case surface == surfaceMetrics:
		requestLogger.Debug("request", fields...)
	default:
		requestLogger.Info("request", fields...)
	}
}

func requestSurface(path string) string {
	switch {
	case strings.HasPrefix(path, "/api/"):
		return surfaceAPI
	case strings.HasPrefix(path, "/admin/"), path == "/login", path == "/logout":
		return surfaceAdmin
	case path == "/metrics":
		return surfaceMetrics
	}

	return surfaceOther
}

// logAccessDenied records a rejected admin request. redirect is omitted when
// the request was not sent elsewhere.
func logAccessDenied(c flamego.Context, reason string, redirect string) {
	fields := append([]interface{}{"reason", reason}, requestFields(c)...)
	if redirect != "" {
		fields = append(fields, "redirect", redirect)
	}

	requestLogger.Warn("access denied", fields...)
}

func requestFields(c flamego.Context) []interface{} {
	r := c.Request()

	return []interface{}{
		"method", r.Method,
		"path", r.URL.Path,
		"ip", clientIP(c),
		"user_agent", r.UserAgent(),
	}
}

// clientIP prefers the first X-Forwarded-For hop, then the peer address
// without its port.
func clientIP(c flamego.Context) string {
	first, _, _ := strings.Cut(c.Request().Header.Get("X-Forwarded-For"), ",")
	if ip := strings.TrimSpace(first); ip != "" {
		return ip
	}

	addr := c.RemoteAddr()
	if host, _, err := net.SplitHostPort(addr); err == nil {
		return host
	}

	return addr
}
