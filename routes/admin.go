/*
 * Copyright 2025 Humaid Alqasimi
 * SPDX-License-Identifier: Apache-2.0
 */
package routes

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/flamego/flamego"
	"github.com/flamego/session"
	"github.com/flamego/template"
	"github.com/google/uuid"

	"github.com/humaidq/labrecords/labcsv"
)

const (
	// AdminResultsPath is the admin listing page.
	AdminResultsPath = "/admin/test-results/"

	adminPageSize   = 50
	adminErrorLimit = 5
	sourceAdmin     = "admin"

	msgNoFileSelected     = "No file uploaded. Please upload a CSV file."
	msgInvalidFileFormat  = "Invalid file format. Please upload a CSV file."
	msgNoItemsSelected    = "Items must be selected in order to perform actions on them. No items have been changed."
	msgResultsLoadFailed  = "Failed to load test results."
	msgExportFailed       = "Failed to export test results."
	msgSomeRowsNotUpdated = "Some rows could not be uploaded:\n"
)

// AdminTestResults renders one page of records, newest first.
func AdminTestResults(c flamego.Context, t template.Template, data template.Data, store ResultStore) {
	ctx := c.Request().Context()

	page, err := strconv.Atoi(c.Query("page"))
	if err != nil || page < 1 {
		page = 1
	}

	total, err := store.CountTestResults(ctx)
	if err != nil {
		logger.Error("Error counting test results", "error", err)
		data["Error"] = msgResultsLoadFailed
		t.HTML(http.StatusInternalServerError, "admin_results")

		return
	}

	pages := (total + adminPageSize - 1) / adminPageSize
	if pages == 0 {
		pages = 1
	}

	if page > pages {
		page = pages
	}

	results, err := store.ListTestResults(ctx, adminPageSize, (page-1)*adminPageSize)
	if err != nil {
		logger.Error("Error listing test results", "page", page, "error", err)
		data["Error"] = msgResultsLoadFailed
		t.HTML(http.StatusInternalServerError, "admin_results")

		return
	}

	data["IsResults"] = true
	data["Results"] = results
	data["Total"] = total
	data["Page"] = page
	data["Pages"] = pages

	if page > 1 {
		data["PrevPage"] = page - 1
	}

	if page < pages {
		data["NextPage"] = page + 1
	}

	t.HTML(http.StatusOK, "admin_results")
}

// AdminUploadCSV imports an uploaded file row by row and reports the outcome
// through flash messages.
func AdminUploadCSV(c flamego.Context, s session.Session, store ResultStore, stats StatsProvider) {
	redirect := adminRedirectTarget(c.Request().Request)

	if err := c.Request().ParseMultipartForm(labcsv.MaxFileSize); err != nil &&
		!errors.Is(err, http.ErrNotMultipart) {
		logger.Warn("Error parsing upload form", "error", err)
	}

	file, header, err := c.Request().FormFile("csv_file")
	if err != nil {
		SetErrorFlash(s, msgNoFileSelected)
		c.Redirect(redirect, http.StatusSeeOther)

		return
	}

	defer func() {
		if err := file.Close(); err != nil {
			logger.Error("Error closing CSV upload file", "error", err)
		}
	}()

	if !strings.HasSuffix(header.Filename, ".csv") {
		SetErrorFlash(s, msgInvalidFileFormat)
		c.Redirect(redirect, http.StatusSeeOther)

		return
	}

	logger.Info("Uploading file", "filename", header.Filename, "bytes", header.Size)

	ctx := c.Request().Context()

	summary, err := labcsv.Import(ctx, file, store)
	summary.ObserveMetrics(sourceAdmin)

	// Rows stored before a read failure are kept, so the cache is stale either
	// way. The request context may already be cancelled at this point.
	if summary.Succeeded > 0 {
		if err := stats.Invalidate(context.WithoutCancel(ctx)); err != nil {
			logger.Warn("Failed to invalidate stats cache", "error", err)
		}
	}

	flashes := uploadFlashes(summary)

	if err != nil {
		logger.Error("Error reading CSV file", "filename", header.Filename, "stored", summary.Succeeded, "error", err)
		flashes = append(flashes, FlashMessage{Type: FlashError, Message: "Error reading CSV file: " + err.Error()})
	}

	SetFlashes(s, flashes...)
	c.Redirect(redirect, http.StatusSeeOther)
}

func uploadFlashes(summary *labcsv.Summary) []FlashMessage {
	var messages []FlashMessage

	if summary.Succeeded > 0 {
		messages = append(messages, FlashMessage{
			Type:    FlashSuccess,
			Message: fmt.Sprintf("%d rows successfully uploaded.", summary.Succeeded),
		})
	}

	if summary.Duplicates > 0 {
		messages = append(messages, FlashMessage{
			Type:    FlashWarning,
			Message: fmt.Sprintf("%d duplicate rows were skipped.", summary.Duplicates),
		})
	}

	if summary.Failed() {
		messages = append(messages, FlashMessage{
			Type:    FlashError,
			Message: msgSomeRowsNotUpdated + summary.ErrorSummary(adminErrorLimit),
		})
	}

	return messages
}

// AdminExportCSV downloads the selected records in selection order.
func AdminExportCSV(c flamego.Context, s session.Session, store ResultStore) {
	redirect := adminRedirectTarget(c.Request().Request)

	if err := c.Request().ParseForm(); err != nil {
		SetErrorFlash(s, "Failed to parse form")
		c.Redirect(redirect, http.StatusSeeOther)

		return
	}

	ids := parseSelectedIDs(c.Request().PostForm["ids"])
	if len(ids) == 0 {
		SetWarningFlash(s, msgNoItemsSelected)
		c.Redirect(redirect, http.StatusSeeOther)

		return
	}

	results, err := store.GetTestResultsByIDs(c.Request().Context(), ids)
	if err != nil {
		logger.Error("Error loading selected test results", "count", len(ids), "error", err)
		SetErrorFlash(s, msgExportFailed)
		c.Redirect(redirect, http.StatusSeeOther)

		return
	}

	c.ResponseWriter().Header().Set("Content-Type", "text/csv; charset=utf-8")
	c.ResponseWriter().Header().Set("Content-Disposition", "attachment; filename=\""+labcsv.ExportFilename+"\"")
	c.ResponseWriter().WriteHeader(http.StatusOK)

	if err := labcsv.Export(c.ResponseWriter(), results); err != nil {
		logger.Error("Error writing CSV export response", "error", err)
	}
}

// parseSelectedIDs keeps the first occurrence of each valid id.
func parseSelectedIDs(values []string) []uuid.UUID {
	ids := make([]uuid.UUID, 0, len(values))
	seen := make(map[uuid.UUID]bool, len(values))

	for _, value := range values {
		id, err := uuid.Parse(strings.TrimSpace(value))
		if err != nil || seen[id] {
			continue
		}

		seen[id] = true
		ids = append(ids, id)
	}

	return ids
}

// adminRedirectTarget returns the referring admin page, or the listing when
// the referer is missing or points elsewhere.
func adminRedirectTarget(r *http.Request) string {
	referer := r.Header.Get("Referer")
	if referer == "" {
		return AdminResultsPath
	}

	u, err := url.Parse(referer)
	if err != nil {
		return AdminResultsPath
	}

	if u.Host != "" && u.Host != r.Host {
		return AdminResultsPath
	}

	if !strings.HasPrefix(u.Path, "/admin/") || strings.Contains(u.Path, "..") {
		return AdminResultsPath
	}

	target := u.Path
	if u.RawQuery != "" {
		target += "?" + u.RawQuery
	}

	return target
}

// Home sends visitors to the admin listing.
func Home(c flamego.Context) {
	c.Redirect(AdminResultsPath, http.StatusFound)
}
