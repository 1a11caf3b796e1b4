// SPDX-FileCopyrightText: 2025 Humaid Alqasimi
// SPDX-License-Identifier: Apache-2.0

package routes

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/flamego/csrf"
	"github.com/flamego/flamego"
	"github.com/flamego/session"
	"github.com/flamego/template"
)

type testSession struct {
	id    string
	data  map[interface{}]interface{}
	flash interface{}
}

func newTestSession() *testSession {
	return &testSession{
		id:   "test-session",
		data: make(map[interface{}]interface{}),
	}
}

func (s *testSession) ID() string {
	return s.id
}

func (s *testSession) RegenerateID(http.ResponseWriter, *http.Request) error {
	s.id = "regenerated-session"
	return nil
}

func (s *testSession) Get(key interface{}) interface{} {
	return s.data[key]
}

func (s *testSession) Set(key, val interface{}) {
	s.data[key] = val
}

func (s *testSession) SetFlash(val interface{}) {
	s.flash = val
}

func (s *testSession) Delete(key interface{}) {
	delete(s.data, key)
}

func (s *testSession) Flush() {
	s.data = make(map[interface{}]interface{})
}

func (s *testSession) Encode() ([]byte, error) {
	return nil, nil
}

func (s *testSession) HasChanged() bool {
	return true
}

type testCSRF struct {
	token string
}

func (c testCSRF) Token() string {
	return c.token
}

func (c testCSRF) ValidToken(string) bool {
	return true
}

func (c testCSRF) Error(http.ResponseWriter) {}

func (c testCSRF) Validate(flamego.Context) {}

func flashes(t *testing.T, s *testSession) []FlashMessage {
	t.Helper()

	msgs, ok := s.flash.([]FlashMessage)
	if !ok {
		t.Fatalf("expected flash messages, got %T", s.flash)
	}

	return msgs
}

func assertFlash(t *testing.T, s *testSession, wantType FlashType, wantMessage string) {
	t.Helper()

	msgs := flashes(t, s)
	if len(msgs) != 1 {
		t.Fatalf("expected one flash message, got %#v", msgs)
	}

	if msgs[0].Type != wantType || msgs[0].Message != wantMessage {
		t.Fatalf("unexpected flash message: %#v", msgs[0])
	}
}

func assertRedirect(t *testing.T, rec *httptest.ResponseRecorder, wantLocation string) {
	t.Helper()

	if rec.Code != http.StatusSeeOther {
		t.Fatalf("expected status %d, got %d", http.StatusSeeOther, rec.Code)
	}

	if got := rec.Header().Get("Location"); got != wantLocation {
		t.Fatalf("expected redirect %q, got %q", wantLocation, got)
	}
}

var errTestBoom = errors.New("boom")

func TestSetFlashHelpers(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		set     func(session.Session, string)
		wantTyp FlashType
	}{
		{name: "error", set: SetErrorFlash, wantTyp: FlashError},
		{name: "success", set: SetSuccessFlash, wantTyp: FlashSuccess},
		{name: "warning", set: SetWarningFlash, wantTyp: FlashWarning},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			s := newTestSession()
			tt.set(s, "hello")

			assertFlash(t, s, tt.wantTyp, "hello")
		})
	}
}

func TestSetFlashesIgnoresEmpty(t *testing.T) {
	t.Parallel()

	s := newTestSession()
	SetFlashes(s)

	if s.flash != nil {
		t.Fatalf("expected no flash, got %#v", s.flash)
	}
}

func TestFlashMessages(t *testing.T) {
	t.Parallel()

	single := FlashMessage{Type: FlashInfo, Message: "one"}
	if got := FlashMessages(single); len(got) != 1 || got[0] != single {
		t.Fatalf("unexpected messages for single flash: %#v", got)
	}

	many := []FlashMessage{single, {Type: FlashError, Message: "two"}}
	if got := FlashMessages(many); len(got) != 2 {
		t.Fatalf("unexpected messages for list flash: %#v", got)
	}

	if got := FlashMessages("stray"); got != nil {
		t.Fatalf("expected nil for unknown flash, got %#v", got)
	}
}

func TestFlashInjector(t *testing.T) {
	t.Parallel()

	data := template.Data{}
	FlashInjector()([]FlashMessage{{Type: FlashSuccess, Message: "ok"}}, data)

	msgs, ok := data["Flashes"].([]FlashMessage)
	if !ok || len(msgs) != 1 || msgs[0].Message != "ok" {
		t.Fatalf("unexpected Flashes data: %#v", data["Flashes"])
	}

	empty := template.Data{}
	FlashInjector()(nil, empty)

	if _, ok := empty["Flashes"]; ok {
		t.Fatal("expected no Flashes key without flash")
	}
}

func TestCSRFInjector(t *testing.T) {
	t.Parallel()

	handler, ok := CSRFInjector().(func(csrf.CSRF, template.Data))
	if !ok {
		t.Fatalf("unexpected CSRFInjector handler type")
	}

	data := template.Data{}
	handler(testCSRF{token: "csrf-123"}, data)

	if got, ok := data["csrf_token"].(string); !ok || got != "csrf-123" {
		t.Fatalf("expected csrf token to be injected, got %#v", data["csrf_token"])
	}
}

func TestNoCacheHeaders(t *testing.T) {
	t.Parallel()

	f := flamego.New()
	f.Use(NoCacheHeaders())
	f.Get("/admin/test-results/", func() string { return "ok" })

	req := httptest.NewRequest(http.MethodGet, "/admin/test-results/", nil)
	rec := httptest.NewRecorder()
	f.ServeHTTP(rec, req)

	if got := rec.Header().Get("Cache-Control"); got != "no-store, max-age=0" {
		t.Fatalf("unexpected Cache-Control %q", got)
	}

	if got := rec.Header().Get("Pragma"); got != "no-cache" {
		t.Fatalf("unexpected Pragma %q", got)
	}
}

func TestClientIPPrefersForwardedFor(t *testing.T) {
	t.Parallel()

	var got string

	f := flamego.New()
	f.Get("/", func(c flamego.Context) {
		got = clientIP(c)
	})

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-Forwarded-For", "203.0.113.9, 10.0.0.1")
	f.ServeHTTP(httptest.NewRecorder(), req)

	if got != "203.0.113.9" {
		t.Fatalf("expected forwarded client IP, got %q", got)
	}
}

func TestRequestSurface(t *testing.T) {
	t.Parallel()

	cases := map[string]string{
		"/api/tests/create/":   surfaceAPI,
		"/admin/test-results/": surfaceAdmin,
		"/login":               surfaceAdmin,
		"/metrics":             surfaceMetrics,
		"/style.css":           surfaceOther,
		"/apiary":              surfaceOther,
	}

	for path, want := range cases {
		if got := requestSurface(path); got != want {
			t.Fatalf("requestSurface(%q) = %q, want %q", path, got, want)
		}
	}
}
