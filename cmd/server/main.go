package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"net"
	"net/http"
	"net/http/pprof"
	"os"
	"os/signal"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/google/uuid"

	"playerworld.gg/internal/persistence/indexdb"
	"playerworld.gg/internal/persistence/snapshot"
	"playerworld.gg/internal/sim/game"
	"playerworld.gg/internal/sim/tuning"
	"playerworld.gg/internal/transport/ws"
)

const bindRetryPorts = 10

func main() {
	var (
		addr       = flag.String("addr", ":8080", "http listen address (port retried upward on bind failure)")
		worldID    = flag.String("world", "", "world id (default: a fresh generated id)")
		seed       = flag.Int64("seed", 0, "rng seed (0 = time-based)")
		dataDir    = flag.String("data", "./data", "runtime data directory")
		tuningPath = flag.String("tuning", "./configs/tuning.yaml", "path to tuning.yaml")
		disableDB  = flag.Bool("disable_db", false, "disable the sqlite audit index")

		snapPath   = flag.String("snapshot", "", "path to world snapshot to load (optional)")
		loadLatest = flag.Bool("load_latest_snapshot", true, "load latest snapshot from data dir if present (when -snapshot is empty)")
	)
	flag.Parse()

	logger := log.New(os.Stdout, "[server] ", log.LstdFlags|log.Lmicroseconds)

	wid := strings.TrimSpace(*worldID)
	if wid == "" {
		wid = "world_" + uuid.NewString()[:8]
	}
	worldDir := filepath.Join(*dataDir, "worlds", wid)
	_ = os.MkdirAll(worldDir, 0o755)

	tune, err := tuning.Load(*tuningPath)
	if err != nil {
		if os.IsNotExist(err) {
			logger.Printf("tuning not found (%s); using defaults", *tuningPath)
			tune = tuning.Defaults()
		} else {
			logger.Fatalf("load tuning: %v", err)
		}
	}

	g := game.New(game.Config{WorldID: wid, Tune: tune, Seed: *seed}, logger)

	if !*disableDB {
		idx, err := indexdb.OpenSQLite(filepath.Join(worldDir, "index.db"), wid, uuid.NewString())
		if err != nil {
			logger.Fatalf("open audit index: %v", err)
		}
		defer idx.Close()
		g.SetAuditLogger(idx)
	}

	snapshotToLoad := strings.TrimSpace(*snapPath)
	if snapshotToLoad == "" && *loadLatest {
		snapshotToLoad = latestSnapshot(worldDir)
	}
	if snapshotToLoad != "" {
		state, err := snapshot.Read(snapshotToLoad)
		if err != nil {
			logger.Fatalf("read snapshot: %v", err)
		}
		if state.Header.WorldID != "" && state.Header.WorldID != wid {
			logger.Fatalf("snapshot world id mismatch: flag=%s snap=%s", wid, state.Header.WorldID)
		}
		if err := g.ImportAtStartup(state); err != nil {
			logger.Fatalf("import snapshot: %v", err)
		}
		logger.Printf("resumed world %s at tick %d (%d chunks, %d npcs)",
			wid, state.Header.Tick, len(state.Chunks), len(state.NPCs))
	}

	// Off-thread snapshot writer; the loop hands states over a channel.
	sink := make(chan snapshot.WorldStateV1, 1)
	go func() {
		for state := range sink {
			p := snapshotPath(worldDir, state.Header.Tick)
			if err := snapshot.Write(p, state); err != nil {
				logger.Printf("write snapshot: %v", err)
				continue
			}
			logger.Printf("saved snapshot %s", p)
		}
	}()
	g.SetSnapshotSink(sink)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() {
		if err := g.Run(ctx); err != nil && err != context.Canceled {
			logger.Printf("game loop: %v", err)
		}
	}()

	wsServer := ws.NewServer(g, logger)
	mux := http.NewServeMux()
	mux.HandleFunc("/v1/ws", wsServer.Handler())
	mux.HandleFunc("/healthz", func(rw http.ResponseWriter, _ *http.Request) {
		rw.WriteHeader(http.StatusOK)
		_, _ = rw.Write([]byte("ok\n"))
	})
	mux.HandleFunc("/statusz", func(rw http.ResponseWriter, _ *http.Request) {
		rw.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(rw).Encode(g.ServerState())
	})
	mux.HandleFunc("/debug/pprof/", pprof.Index)
	mux.HandleFunc("/debug/pprof/profile", pprof.Profile)

	ln, boundAddr, err := listenWithRetry(*addr, logger)
	if err != nil {
		logger.Fatalf("bind: %v", err)
	}
	srv := &http.Server{Handler: mux}
	go func() {
		logger.Printf("world %s listening on %s (ws at /v1/ws)", wid, boundAddr)
		if err := srv.Serve(ln); err != nil && err != http.ErrServerClosed {
			logger.Fatalf("serve: %v", err)
		}
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig
	logger.Printf("shutting down")

	// Final save before the loop halts.
	state := g.ExportWorldState()
	g.Shutdown()
	close(sink)
	if len(state.Chunks) > 0 || len(state.NPCs) > 0 {
		p := snapshotPath(worldDir, state.Header.Tick)
		if err := snapshot.Write(p, state); err != nil {
			logger.Printf("final snapshot: %v", err)
		} else {
			logger.Printf("final snapshot saved to %s", p)
		}
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	_ = srv.Shutdown(shutdownCtx)
}

// listenWithRetry walks a bounded range of ports before giving up; bind
// failure after the range is the one fatal startup condition.
func listenWithRetry(addr string, logger *log.Logger) (net.Listener, string, error) {
	host, portStr, err := net.SplitHostPort(addr)
	if err != nil {
		return nil, "", fmt.Errorf("bad addr %q: %w", addr, err)
	}
	port, err := strconv.Atoi(portStr)
	if err != nil {
		return nil, "", fmt.Errorf("bad port %q: %w", portStr, err)
	}
	var lastErr error
	for i := 0; i < bindRetryPorts; i++ {
		try := net.JoinHostPort(host, strconv.Itoa(port+i))
		ln, err := net.Listen("tcp", try)
		if err == nil {
			return ln, try, nil
		}
		lastErr = err
		logger.Printf("bind %s failed (%v), trying next port", try, err)
	}
	return nil, "", fmt.Errorf("no free port in %d..%d: %w", port, port+bindRetryPorts-1, lastErr)
}

func snapshotPath(worldDir string, tick uint64) string {
	return filepath.Join(worldDir, fmt.Sprintf("snapshot_%012d.zst", tick))
}

func latestSnapshot(worldDir string) string {
	matches, err := filepath.Glob(filepath.Join(worldDir, "snapshot_*.zst"))
	if err != nil || len(matches) == 0 {
		return ""
	}
	sort.Strings(matches)
	return matches[len(matches)-1]
}
