package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"farmdustry.io/internal/persistence/indexdb"
	persistlog "farmdustry.io/internal/persistence/log"
	"farmdustry.io/internal/persistence/snapshot"
	"farmdustry.io/internal/sim/catalogs"
	"farmdustry.io/internal/sim/engine"
	"farmdustry.io/internal/sim/tuning"
	"farmdustry.io/internal/transport/peers"
	"farmdustry.io/internal/transport/tcp"
)

func main() {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		log.Printf("load .env: %v", err)
	}

	var (
		addr        = flag.String("addr", envString("FD_ADDR", ":25566"), "tcp listen address")
		httpAddr    = flag.String("http", envString("FD_HTTP_ADDR", ":8080"), "http listen address for /v1/ws, /healthz and /metrics (empty to disable)")
		configDir   = flag.String("configs", "./configs", "config directory")
		tuningPath  = flag.String("tuning", "", "path to tuning.yaml (default: <configs>/tuning.yaml)")
		catalogPath = flag.String("catalog", "", "path to catalog.json (default: <configs>/catalog.json, else built-in)")
		dataDir     = flag.String("data", envString("FD_DATA_DIR", "./data"), "runtime data directory")
		disableLogs = flag.Bool("disable_logs", false, "disable tick/audit journals")
		disableDB   = flag.Bool("disable_db", false, "disable the sqlite index")
	)
	flag.Parse()

	logger := log.New(os.Stdout, "[server] ", log.LstdFlags|log.Lmicroseconds)

	cp := strings.TrimSpace(*catalogPath)
	if cp == "" {
		if p := filepath.Join(*configDir, "catalog.json"); fileExists(p) {
			cp = p
		}
	}
	cats, err := catalogs.Load(cp)
	if err != nil {
		logger.Fatalf("load catalog: %v", err)
	}

	tp := strings.TrimSpace(*tuningPath)
	if tp == "" {
		tp = filepath.Join(*configDir, "tuning.yaml")
	}
	tune, err := tuning.Load(tp)
	if err != nil {
		if !os.IsNotExist(err) {
			logger.Fatalf("load tuning: %v", err)
		}
		logger.Printf("tuning not found (%s); using defaults", tp)
		tune = tuning.Defaults()
	}

	cfg, unknown := engine.ConfigFromTuning(tune, cats)
	for _, id := range unknown {
		logger.Printf("starter_items: unknown item %q ignored", id)
	}
	eng := engine.New(cfg, cats)

	// Each start is a fresh world, so journals go to their own run directory.
	runDir := filepath.Join(*dataDir, "runs", time.Now().UTC().Format("20060102T150405Z"))

	var idx *indexdb.SQLiteIndex
	if !*disableDB {
		idx, err = indexdb.OpenSQLite(filepath.Join(runDir, "index", "farm.sqlite"))
		if err != nil {
			logger.Fatalf("open index: %v", err)
		}
		defer idx.Close()
		if err := idx.UpsertCatalogs(cats, tune); err != nil {
			logger.Printf("index: upsert catalogs: %v", err)
		}
	}
	if !*disableLogs {
		tickLog := persistlog.NewTickLogger(runDir)
		auditLog := persistlog.NewAuditLogger(runDir)
		defer tickLog.Close()
		defer auditLog.Close()
		eng.SetTickLogger(multiTickLogger{a: tickLog, b: idx})
		eng.SetAuditLogger(multiAuditLogger{a: auditLog, b: idx})
		logger.Printf("journals in %s", runDir)
	} else if idx != nil {
		eng.SetTickLogger(idx)
		eng.SetAuditLogger(idx)
	}

	reg := peers.NewRegistry(tune.MaxPeers, tune.PeerQueueSize, logger)
	eng.SetBroadcaster(reg)
	hub := &peers.Hub{
		Registry:          reg,
		Sink:              eng,
		Log:               logger,
		CommandsPerSecond: tune.RateLimit.CommandsPerSecond,
		Burst:             tune.RateLimit.Burst,
	}

	ctx, cancel := signalContext()
	defer cancel()

	snapDir := filepath.Join(runDir, "snapshots")
	snapCh := make(chan engine.State, 2)
	eng.SetSnapshotSink(snapCh)
	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case st := <-snapCh:
				if err := snapshot.WriteSnapshot(snapshot.PathFor(snapDir, st.Tick), snapshot.New(st)); err != nil {
					logger.Printf("snapshot write: %v", err)
				}
			}
		}
	}()

	engDone := make(chan struct{})
	go func() {
		defer close(engDone)
		if err := eng.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			logger.Printf("engine stopped: %v", err)
		}
	}()

	if strings.TrimSpace(*httpAddr) != "" {
		srv := &http.Server{
			Addr:              *httpAddr,
			Handler:           newRouter(ctx, eng, hub, idx, snapDir, logger),
			ReadHeaderTimeout: 5 * time.Second,
		}
		go func() {
			<-ctx.Done()
			ctx2, cancel2 := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel2()
			_ = srv.Shutdown(ctx2)
		}()
		go func() {
			logger.Printf("http listening on %s", *httpAddr)
			if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				logger.Printf("http: %v", err)
				cancel()
			}
		}()
	}

	logger.Printf("protocol=%d tick_rate=%dHz world=%dx%d", tune.ProtocolVersion, tune.TickRateHz, tune.WorldSize, tune.WorldSize)
	tcpSrv := tcp.NewServer(hub, tune.MaxPeers, logger)
	if err := tcpSrv.ListenAndServe(ctx, *addr); err != nil {
		logger.Printf("tcp: %v", err)
		cancel()
	}
	<-engDone
	logger.Printf("stopped at tick %d", eng.Metrics().Tick)
}

func signalContext() (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())
	ch := make(chan os.Signal, 2)
	signal.Notify(ch, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-ch
		cancel()
	}()
	return ctx, cancel
}

func fileExists(p string) bool {
	_, err := os.Stat(p)
	return err == nil
}

type multiTickLogger struct {
	a engine.TickLogger
	b *indexdb.SQLiteIndex
}

func (m multiTickLogger) WriteTick(entry engine.TickLogEntry) error {
	if m.a != nil {
		_ = m.a.WriteTick(entry)
	}
	if m.b != nil {
		_ = m.b.WriteTick(entry)
	}
	return nil
}

type multiAuditLogger struct {
	a engine.AuditLogger
	b *indexdb.SQLiteIndex
}

func (m multiAuditLogger) WriteAudit(entry engine.AuditEntry) error {
	if m.a != nil {
		_ = m.a.WriteAudit(entry)
	}
	if m.b != nil {
		_ = m.b.WriteAudit(entry)
	}
	return nil
}
