package main

import (
	"context"
	"io"
	"log"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"farmdustry.io/internal/sim/catalogs"
	"farmdustry.io/internal/sim/engine"
	"farmdustry.io/internal/sim/tuning"
	"farmdustry.io/internal/transport/peers"
)

func testRouter(t *testing.T) (http.Handler, *engine.Engine) {
	t.Helper()
	cats := catalogs.Default()
	cfg, _ := engine.ConfigFromTuning(tuning.Defaults(), cats)
	eng := engine.New(cfg, cats)
	hub := &peers.Hub{Registry: peers.NewRegistry(8, 8, nil), Sink: eng}
	return newRouter(context.Background(), eng, hub, nil, t.TempDir(), discard()), eng
}

func discard() *log.Logger { return log.New(io.Discard, "", 0) }

func TestRouter_HealthAndMetrics(t *testing.T) {
	h, _ := testRouter(t)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	if rec.Code != 200 || rec.Body.String() != "ok" {
		t.Fatalf("healthz: %d %q", rec.Code, rec.Body.String())
	}

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	body := rec.Body.String()
	for _, want := range []string{"farmdustry_tick 0", "farmdustry_peers 0", "# TYPE farmdustry_commands_accepted_total counter"} {
		if !strings.Contains(body, want) {
			t.Fatalf("metrics missing %q:\n%s", want, body)
		}
	}
}

func TestRouter_AdminIsLoopbackOnly(t *testing.T) {
	t.Setenv("FD_ENABLE_ADMIN_HTTP", "true")
	h, eng := testRouter(t)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan struct{})
	go func() { _ = eng.Run(ctx); close(done) }()
	defer func() { cancel(); <-done }()

	req := httptest.NewRequest(http.MethodGet, "/admin/v1/state", nil)
	req.RemoteAddr = "203.0.113.9:4000"
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusForbidden {
		t.Fatalf("remote admin: %d", rec.Code)
	}

	req = httptest.NewRequest(http.MethodGet, "/admin/v1/state", nil)
	req.RemoteAddr = "127.0.0.1:4000"
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != 200 || !strings.Contains(rec.Body.String(), `"tick"`) {
		t.Fatalf("local admin: %d %s", rec.Code, rec.Body.String())
	}

	req = httptest.NewRequest(http.MethodPost, "/admin/v1/snapshot", nil)
	req.RemoteAddr = "127.0.0.1:4000"
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != 200 || !strings.Contains(rec.Body.String(), `"ok":true`) {
		t.Fatalf("snapshot: %d %s", rec.Code, rec.Body.String())
	}
}

func TestIsLoopbackRemote(t *testing.T) {
	cases := map[string]bool{
		"127.0.0.1:1": true,
		"[::1]:80":    true,
		"10.0.0.1:80": false,
		"garbage":     false,
	}
	for in, want := range cases {
		if got := isLoopbackRemote(in); got != want {
			t.Fatalf("%s: got %v", in, got)
		}
	}
}
