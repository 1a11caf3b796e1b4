/*
 * Copyright 2025 Humaid Alqasimi
 * SPDX-License-Identifier: Apache-2.0
 */
package routes

import (
	"net/http"
	"net/url"
	"strings"

	"github.com/flamego/flamego"
	"github.com/flamego/session"
	"github.com/flamego/template"
	"golang.org/x/crypto/bcrypt"
)

const (
	sessionAuthenticatedKey = "authenticated"
	msgInvalidPassword      = "Invalid password."
)

// AdminAuth holds the credentials for the admin surface.
type AdminAuth struct {
	PasswordHash []byte
}

// NewAdminAuth checks that hash is a usable bcrypt hash.
func NewAdminAuth(hash string) (AdminAuth, error) {
	hash = strings.TrimSpace(hash)
	if hash == "" {
		return AdminAuth{}, errPasswordHashEmpty
	}

	if _, err := bcrypt.Cost([]byte(hash)); err != nil {
		return AdminAuth{}, err
	}

	return AdminAuth{PasswordHash: []byte(hash)}, nil
}

// Verify reports whether password matches the configured hash.
func (a AdminAuth) Verify(password string) bool {
	if len(a.PasswordHash) == 0 {
		return false
	}

	return bcrypt.CompareHashAndPassword(a.PasswordHash, []byte(password)) == nil
}

// LoginForm renders the login page
func LoginForm(c flamego.Context, s session.Session, t template.Template, data template.Data) {
	if isAuthenticated(s) {
		c.Redirect(AdminResultsPath, http.StatusSeeOther)
		return
	}

	data["Next"] = safeNext(c.Query("next"))
	t.HTML(http.StatusOK, "login")
}

// Login checks the admin password and starts a session.
func Login(c flamego.Context, s session.Session, t template.Template, data template.Data, auth AdminAuth) {
	next := safeNext(c.Request().FormValue("next"))

	if !auth.Verify(c.Request().FormValue("password")) {
		logAccessDenied(c, "invalid_password", "")

		data["Next"] = next
		data["Error"] = msgInvalidPassword
		t.HTML(http.StatusUnauthorized, "login")

		return
	}

	if err := s.RegenerateID(c.ResponseWriter(), c.Request().Request); err != nil {
		logger.Error("Failed to regenerate session ID", "error", err)
	}

	s.Set(sessionAuthenticatedKey, true)
	logger.Info("Admin signed in", "ip", clientIP(c))

	c.Redirect(next, http.StatusSeeOther)
}

// Logout ends the admin session. It is only mounted as a CSRF-checked POST.
func Logout(s session.Session, c flamego.Context) {
	s.Delete(sessionAuthenticatedKey)
	c.Redirect("/login", http.StatusSeeOther)
}

// RequireAuth is a middleware that checks if user is authenticated
func RequireAuth(s session.Session, c flamego.Context) {
	if !isAuthenticated(s) {
		target := "/login?next=" + url.QueryEscape(c.Request().URL.RequestURI())
		logAccessDenied(c, "unauthenticated", target)
		c.Redirect(target, http.StatusSeeOther)

		return
	}

	c.Next()
}

func isAuthenticated(s session.Session) bool {
	authenticated, ok := s.Get(sessionAuthenticatedKey).(bool)
	return ok && authenticated
}

// safeNext limits post-login redirects to admin pages on this host.
func safeNext(next string) string {
	if !strings.HasPrefix(next, "/admin/") || strings.HasPrefix(next, "//") || strings.Contains(next, "..") {
		return AdminResultsPath
	}

	return next
}
