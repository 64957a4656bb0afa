package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func preflight(path, origin string) *http.Request {
	req := httptest.NewRequest(http.MethodOptions, path, nil)
	req.Header.Set("Origin", origin)
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	return req
}

func TestCORS(t *testing.T) {
	handler := CORS([]string{"https://console.example.com"})(okHandler())

	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, preflight("/v1/generations", "https://console.example.com"))
	if rr.Code != http.StatusNoContent || rr.Header().Get("Access-Control-Allow-Origin") != "https://console.example.com" {
		t.Fatalf("preflight: status %d headers %v", rr.Code, rr.Header())
	}
	if rr.Header().Get("Access-Control-Allow-Credentials") != "true" || rr.Header().Get("Access-Control-Max-Age") != "600" {
		t.Fatalf("preflight headers %v", rr.Header())
	}

	req := httptest.NewRequest(http.MethodGet, "/v1/budget", nil)
	req.Header.Set("Origin", "https://evil.example.com")
	rr = httptest.NewRecorder()
	handler.ServeHTTP(rr, req)
	if rr.Code != http.StatusOK || rr.Header().Get("Access-Control-Allow-Origin") != "" {
		t.Fatalf("foreign origin: status %d headers %v", rr.Code, rr.Header())
	}
	if rr.Header().Get("Vary") != "Origin" {
		t.Fatalf("Vary = %q", rr.Header().Get("Vary"))
	}
}

func TestCORSForeignPreflightGetsNoGrant(t *testing.T) {
	handler := CORS([]string{"https://console.example.com"})(okHandler())
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, preflight("/v1/generations", "https://evil.example.com"))
	if rr.Code != http.StatusNoContent || rr.Header().Get("Access-Control-Allow-Methods") != "" {
		t.Fatalf("status %d headers %v", rr.Code, rr.Header())
	}
}

func TestCORSWildcard(t *testing.T) {
	handler := CORS([]string{"*"})(okHandler())
	req := httptest.NewRequest(http.MethodGet, "/v1/budget", nil)
	req.Header.Set("Origin", "https://anywhere.example.com")
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)
	if rr.Header().Get("Access-Control-Allow-Origin") != "*" || rr.Header().Get("Access-Control-Allow-Credentials") != "" {
		t.Fatalf("headers %v", rr.Header())
	}
	if rr.Header().Get("Access-Control-Expose-Headers") == "" {
		t.Fatal("expected exposed headers")
	}
}

func TestCORSPlainOptionsReachesHandler(t *testing.T) {
	handler := CORS(nil)(okHandler())
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, httptest.NewRequest(http.MethodOptions, "/v1/healthz", nil))
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, want handler response", rr.Code)
	}
}
