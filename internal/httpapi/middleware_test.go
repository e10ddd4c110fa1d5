package httpapi

import (
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestWithRequestID(t *testing.T) {
	var seen string
	h := withRequestID(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = RequestID(r.Context())
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	if seen == "" || rec.Header().Get(RequestIDHeader) != seen {
		t.Errorf("expected generated ID propagated, got ctx=%q header=%q", seen, rec.Header().Get(RequestIDHeader))
	}

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(RequestIDHeader, "abc-123")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if seen != "abc-123" || rec.Header().Get(RequestIDHeader) != "abc-123" {
		t.Errorf("expected caller ID to be kept, got %q", seen)
	}
}

func TestWithCORS(t *testing.T) {
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	})

	tests := []struct {
		name       string
		allowed    []string
		origin     string
		method     string
		wantOrigin string
		wantStatus int
	}{
		{"wildcard", []string{"*"}, "https://any.example", http.MethodPost, "*", http.StatusTeapot},
		{"listed origin", []string{"https://app.example"}, "https://app.example", http.MethodPost, "https://app.example", http.StatusTeapot},
		{"unlisted origin", []string{"https://app.example"}, "https://evil.example", http.MethodPost, "", http.StatusTeapot},
		{"preflight", []string{"*"}, "https://any.example", http.MethodOptions, "*", http.StatusOK},
		{"preflight unlisted", []string{"https://app.example"}, "https://evil.example", http.MethodOptions, "", http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(tt.method, "/api/enhance", nil)
			req.Header.Set("Origin", tt.origin)
			rec := httptest.NewRecorder()
			withCORS(tt.allowed, next).ServeHTTP(rec, req)

			if rec.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d", rec.Code, tt.wantStatus)
			}
			if got := rec.Header().Get("Access-Control-Allow-Origin"); got != tt.wantOrigin {
				t.Errorf("Allow-Origin = %q, want %q", got, tt.wantOrigin)
			}
			if tt.wantOrigin != "" {
				if got := rec.Header().Get("Access-Control-Allow-Headers"); got != "Content-Type, Authorization" {
					t.Errorf("Allow-Headers = %q", got)
				}
				if got := rec.Header().Get("Access-Control-Allow-Methods"); got != "GET, POST, OPTIONS" {
					t.Errorf("Allow-Methods = %q", got)
				}
			}
		})
	}
}

func TestStatusRecorder(t *testing.T) {
	rec := httptest.NewRecorder()
	sr := &statusRecorder{ResponseWriter: rec, statusCode: http.StatusOK}
	sr.WriteHeader(http.StatusNotFound)
	if sr.statusCode != http.StatusNotFound || rec.Code != http.StatusNotFound {
		t.Errorf("expected 404 recorded and forwarded, got %d/%d", sr.statusCode, rec.Code)
	}
	if sr.Unwrap() != rec {
		t.Error("Unwrap should return the wrapped writer")
	}
}

func TestNormalizeEndpoint(t *testing.T) {
	tests := map[string]string{
		"/api/enhance":     "/api/enhance",
		"/health":          "/health",
		"/api/health":      "/api/health",
		"/api/unknown/123": "/api/other",
		"/index.html":      "/static",
		"/":                "/static",
	}
	for path, want := range tests {
		if got := normalizeEndpoint(path); got != want {
			t.Errorf("normalizeEndpoint(%q) = %q, want %q", path, got, want)
		}
	}
}

func TestStaticHandler(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "index.html"), []byte("<h1>index</h1>"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "app.js"), []byte("console.log('app')"), 0o644); err != nil {
		t.Fatal(err)
	}

	router := NewRouter(NewHandler(nil), RouterOptions{StaticDir: dir})

	tests := []struct {
		path string
		want string
	}{
		{"/", "<h1>index</h1>"},
		{"/app.js", "console.log('app')"},
		{"/some/client/route", "<h1>index</h1>"},
	}
	for _, tt := range tests {
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, tt.path, nil))
		if rec.Code != http.StatusOK {
			t.Errorf("%s: expected 200, got %d", tt.path, rec.Code)
			continue
		}
		if !strings.Contains(rec.Body.String(), tt.want) {
			t.Errorf("%s: body %q does not contain %q", tt.path, rec.Body.String(), tt.want)
		}
	}

	// API routes take precedence over the static fallback.
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	if !strings.Contains(rec.Body.String(), `"status":"OK"`) {
		t.Errorf("expected health response, got %s", rec.Body.String())
	}
}
