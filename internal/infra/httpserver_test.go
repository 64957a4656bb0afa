package infra

import (
	"context"
	"net"
	"net/http"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

func TestHTTPServerServeStopsOnCancel(t *testing.T) {
	srv := NewHTTPServer(&Config{Port: "0", ShutdownTimeout: time.Second}, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}), zerolog.Nop())
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan error, 1)
	go func() { done <- srv.Serve(ctx, ln) }()

	resp, err := http.Get("http://" + ln.Addr().String() + "/v1/healthz")
	if err != nil {
		t.Fatalf("GET: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusNoContent {
		t.Fatalf("status = %d", resp.StatusCode)
	}

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Serve = %v, want nil after cancel", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Serve did not return after cancel")
	}
}

func TestHTTPServerRunBadAddress(t *testing.T) {
	srv := NewHTTPServer(&Config{Port: "-1"}, http.NotFoundHandler(), zerolog.Nop())
	if err := srv.Run(context.Background()); err == nil {
		t.Fatal("expected listen error")
	}
	if srv.shutdownTimeout != 15*time.Second {
		t.Fatalf("shutdownTimeout = %s, want default", srv.shutdownTimeout)
	}
}
