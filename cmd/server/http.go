package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net"
	"net/http"
	"net/http/pprof"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"

	"farmdustry.io/internal/persistence/indexdb"
	"farmdustry.io/internal/persistence/snapshot"
	"farmdustry.io/internal/sim/engine"
	"farmdustry.io/internal/transport/peers"
	"farmdustry.io/internal/transport/ws"
)

func newRouter(ctx context.Context, eng *engine.Engine, hub *peers.Hub, idx *indexdb.SQLiteIndex, snapDir string, logger *log.Logger) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)

	r.Get("/healthz", func(rw http.ResponseWriter, r *http.Request) {
		rw.WriteHeader(200)
		_, _ = rw.Write([]byte("ok"))
	})
	r.Get("/metrics", func(rw http.ResponseWriter, r *http.Request) {
		writeMetrics(rw, eng.Metrics(), hub.Registry, idx)
	})
	r.Get("/v1/ws", ws.NewServer(ctx, hub, logger).Handler())

	if envBool("FD_ENABLE_ADMIN_HTTP", defaultEnableAdminHTTP()) {
		r.Route("/admin/v1", func(r chi.Router) {
			r.Use(middleware.Logger)
			r.Use(loopbackOnly)
			r.Get("/state", func(rw http.ResponseWriter, r *http.Request) {
				ctx2, cancel := context.WithTimeout(r.Context(), 2*time.Second)
				defer cancel()
				st, err := eng.Snapshot(ctx2)
				if err != nil {
					http.Error(rw, err.Error(), http.StatusServiceUnavailable)
					return
				}
				writeJSON(rw, st)
			})
			r.Post("/snapshot", func(rw http.ResponseWriter, r *http.Request) {
				ctx2, cancel := context.WithTimeout(r.Context(), 5*time.Second)
				defer cancel()
				st, err := eng.Snapshot(ctx2)
				if err == nil {
					err = snapshot.WriteSnapshot(snapshot.PathFor(snapDir, st.Tick), snapshot.New(st))
				}
				if err != nil {
					rw.Header().Set("Content-Type", "application/json")
					rw.WriteHeader(http.StatusServiceUnavailable)
					_ = json.NewEncoder(rw).Encode(map[string]any{"ok": false, "error": err.Error()})
					return
				}
				writeJSON(rw, map[string]any{"ok": true, "tick": st.Tick, "digest": st.Digest})
			})
			r.Get("/audit/{player}", func(rw http.ResponseWriter, r *http.Request) {
				if idx == nil {
					http.Error(rw, "index disabled", http.StatusNotFound)
					return
				}
				id, err := strconv.ParseUint(chi.URLParam(r, "player"), 10, 8)
				if err != nil {
					http.Error(rw, "bad player id", http.StatusBadRequest)
					return
				}
				limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
				rows, err := idx.AuditByActor(r.Context(), uint8(id), limit)
				if err != nil {
					http.Error(rw, err.Error(), http.StatusInternalServerError)
					return
				}
				writeJSON(rw, rows)
			})
		})
	} else {
		logger.Printf("admin endpoints disabled (FD_ENABLE_ADMIN_HTTP=false)")
	}

	if envBool("FD_ENABLE_PPROF_HTTP", false) {
		r.Route("/debug/pprof", func(r chi.Router) {
			r.Use(loopbackOnly)
			r.HandleFunc("/", pprof.Index)
			r.HandleFunc("/cmdline", pprof.Cmdline)
			r.HandleFunc("/profile", pprof.Profile)
			r.HandleFunc("/symbol", pprof.Symbol)
			r.HandleFunc("/trace", pprof.Trace)
			r.HandleFunc("/*", pprof.Index)
		})
	} else {
		logger.Printf("pprof endpoints disabled (FD_ENABLE_PPROF_HTTP=false)")
	}
	return r
}

func writeJSON(rw http.ResponseWriter, v any) {
	rw.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(rw).Encode(v)
}

// writeMetrics renders Prometheus text exposition by hand.
func writeMetrics(rw http.ResponseWriter, m engine.Metrics, reg *peers.Registry, idx *indexdb.SQLiteIndex) {
	rw.Header().Set("Content-Type", "text/plain; version=0.0.4")

	gauge := func(name, help string, v any) {
		fmt.Fprintf(rw, "# HELP %s %s\n# TYPE %s gauge\n%s %v\n", name, help, name, name, v)
	}
	counter := func(name, help string, v uint64) {
		fmt.Fprintf(rw, "# HELP %s %s\n# TYPE %s counter\n%s %d\n", name, help, name, name, v)
	}

	gauge("farmdustry_tick", "Current tick.", m.Tick)
	gauge("farmdustry_peers", "Connected peers.", reg.Count())
	gauge("farmdustry_inbox_depth", "Envelopes waiting for dispatch.", m.InboxDepth)
	gauge("farmdustry_pending_records", "Records waiting for the next tick flush.", m.PendingRecords)
	gauge("farmdustry_crops", "Live crops.", m.Crops)
	gauge("farmdustry_structures", "Placed structures.", m.Structures)
	gauge("farmdustry_players", "Players with a known position.", m.Players)
	gauge("farmdustry_item_drops", "Item drops on the ground.", m.Drops)
	fmt.Fprintf(rw, "# HELP farmdustry_step_ms Last tick step duration in milliseconds.\n# TYPE farmdustry_step_ms gauge\nfarmdustry_step_ms %.3f\n", m.StepMS)

	counter("farmdustry_commands_accepted_total", "Accepted player actions.", m.Accepted)
	counter("farmdustry_commands_rate_limited_total", "Commands dropped by the per-peer limiter.", m.RateLimited)
	counter("farmdustry_peers_kicked_total", "Peers disconnected for a full outbound queue.", reg.Kicked())

	codes := make([]string, 0, len(m.Rejected))
	for c := range m.Rejected {
		codes = append(codes, c)
	}
	sort.Strings(codes)
	fmt.Fprintf(rw, "# HELP farmdustry_commands_rejected_total Rejected player actions by code.\n# TYPE farmdustry_commands_rejected_total counter\n")
	for _, c := range codes {
		fmt.Fprintf(rw, "farmdustry_commands_rejected_total{code=%q} %d\n", c, m.Rejected[c])
	}

	if idx != nil {
		s := idx.Stats()
		gauge("farmdustry_index_queue_depth", "SQLite index writer backlog.", s.QueueDepth)
		counter("farmdustry_index_dropped_total", "Index rows dropped because the writer fell behind.", s.DropTickTotal+s.DropAuditTotal)
		counter("farmdustry_index_write_errors_total", "Index batches lost to sqlite errors.", s.WriteErrors)
	}
}

func loopbackOnly(next http.Handler) http.Handler {
	return http.HandlerFunc(func(rw http.ResponseWriter, r *http.Request) {
		if !isLoopbackRemote(r.RemoteAddr) {
			http.Error(rw, "forbidden", http.StatusForbidden)
			return
		}
		next.ServeHTTP(rw, r)
	})
}

func isLoopbackRemote(remoteAddr string) bool {
	host := remoteAddr
	if h, _, err := net.SplitHostPort(remoteAddr); err == nil {
		host = h
	}
	host = strings.TrimPrefix(host, "[")
	host = strings.TrimSuffix(host, "]")
	ip := net.ParseIP(host)
	return ip != nil && ip.IsLoopback()
}

func defaultEnableAdminHTTP() bool {
	switch strings.ToLower(strings.TrimSpace(os.Getenv("DEPLOY_ENV"))) {
	case "staging", "production":
		return false
	default:
		return true
	}
}

func envBool(key string, def bool) bool {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return def
	}
	return b
}

func envString(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}
