// Command ndnsyncd runs a small in-process demonstration of the ChronoSync
// or FullPSync dataset-sync engines: it wires a handful of participants
// together over a shared simulated Face, drives their virtual clock forward
// in step with real time, and serves a status endpoint plus Prometheus
// metrics while they converge. It is a harness, not a production transport;
// a real network Face is out of scope here.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/ndnsync/ndnsync/internal/chronosync"
	"github.com/ndnsync/ndnsync/internal/config"
	"github.com/ndnsync/ndnsync/internal/face"
	"github.com/ndnsync/ndnsync/internal/ndn"
	"github.com/ndnsync/ndnsync/internal/psync"
	"github.com/ndnsync/ndnsync/internal/store"
)

func main() {
	mode := flag.String("mode", "chronosync", "sync engine to demonstrate: chronosync or fullpsync")
	participants := flag.Int("participants", 3, "number of simulated participants")
	publishEveryMs := flag.Int64("publish-every", 5000, "virtual milliseconds between each participant's publications")
	tickMs := flag.Int64("tick-ms", 200, "real milliseconds between virtual clock advances")
	addr := flag.String("addr", "", "status/metrics HTTP listen address (overrides NDNSYNC_METRICS_ADDR)")
	flag.Parse()

	cfg := config.Load()
	if *addr != "" {
		cfg.MetricsAddr = *addr
	}

	var st *store.Store
	if cfg.StorePath != "" {
		var err error
		st, err = store.Open(cfg.StorePath)
		if err != nil {
			log.Fatalf("open store: %v", err)
		}
		defer st.Close()
	}

	var mu sync.Mutex
	clock := face.NewClock()
	hub := face.NewHub(clock)

	var status func() any
	switch *mode {
	case "chronosync":
		status = runChronoSyncDemo(*participants, cfg, st, hub, &mu, *publishEveryMs)
	case "fullpsync":
		status = runFullPSyncDemo(*participants, cfg, st, hub, &mu, *publishEveryMs)
	default:
		log.Fatalf("unknown -mode %q, want chronosync or fullpsync", *mode)
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/status", func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		snapshot := status()
		mu.Unlock()
		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(snapshot); err != nil {
			log.Printf("encode status: %v", err)
		}
	})

	srv := &http.Server{Addr: cfg.MetricsAddr, Handler: mux}
	go func() {
		log.Printf("listening on %s", cfg.MetricsAddr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("http: %v", err)
		}
	}()

	ticker := time.NewTicker(time.Duration(*tickMs) * time.Millisecond)
	defer ticker.Stop()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)

	for {
		select {
		case <-ticker.C:
			mu.Lock()
			clock.Advance(*tickMs)
			mu.Unlock()
		case <-sig:
			fmt.Println("shutting down")
			return
		}
	}
}

// schedulePeriodic runs fn under mu first after firstMs and then every
// intervalMs, rescheduling itself on clock, mirroring the self-timer idiom
// the sync engines themselves use for periodic reissue.
func schedulePeriodic(clock *face.Clock, mu *sync.Mutex, firstMs, intervalMs int64, fn func()) {
	var tick func()
	tick = func() {
		mu.Lock()
		fn()
		mu.Unlock()
		clock.After(intervalMs, tick)
	}
	clock.After(firstMs, tick)
}

func runChronoSyncDemo(n int, cfg *config.Config, st *store.Store, hub *face.Hub, mu *sync.Mutex, publishEveryMs int64) func() any {
	broadcastPrefix := ndn.ParseURI(cfg.BroadcastPrefix)
	nodes := make([]*chronosync.Node, n)
	prefixes := make([]string, n)

	for i := 0; i < n; i++ {
		f := hub.NewFace(fmt.Sprintf("node-%d", i))
		prefixes[i] = fmt.Sprintf("node-%d", i)
		dataPrefix := broadcastPrefix.AppendGeneric(prefixes[i])
		node := chronosync.New(f, chronosync.Config{
			BroadcastPrefix:       broadcastPrefix,
			ApplicationDataPrefix: dataPrefix,
			SessionNo:             uint64(i + 1),
			SyncLifetimeMs:        int64(cfg.SyncLifetimeMs),
			RecoveryLifetimeMs:    int64(cfg.RecoveryLifetimeMs),
			Store:                 st,
		}, nil, nil)
		node.Start()
		nodes[i] = node
	}

	for i, node := range nodes {
		node := node
		offset := publishEveryMs + int64(i)*publishEveryMs/int64(n+1)
		schedulePeriodic(hub.Clock(), mu, offset, publishEveryMs, func() {
			if err := node.PublishNextSequenceNo(); err != nil {
				log.Printf("node %s publish: %v", node, err)
			}
		})
	}

	return func() any {
		out := make([]map[string]any, len(nodes))
		for i, node := range nodes {
			out[i] = map[string]any{
				"prefix":      prefixes[i],
				"root":        node.Root(),
				"sequence_no": node.SequenceNo(),
				"tree_size":   len(node.Tree().Nodes()),
			}
		}
		return map[string]any{"mode": "chronosync", "participants": out}
	}
}

func runFullPSyncDemo(n int, cfg *config.Config, st *store.Store, hub *face.Hub, mu *sync.Mutex, publishEveryMs int64) func() any {
	syncPrefix := ndn.ParseURI(cfg.SyncPrefix)
	engines := make([]*psync.Engine, n)
	counters := make([]int, n)

	for i := 0; i < n; i++ {
		f := hub.NewFace(fmt.Sprintf("engine-%d", i))
		engine := psync.New(f, psync.Config{
			SyncPrefix:             syncPrefix,
			SyncInterestLifetimeMs: int64(cfg.SyncLifetimeMs),
			JitterPercent:          cfg.SyncJitterPercent,
			ExpectedNEntries:       cfg.ExpectedNEntries,
			SegmentFreshnessMs:     int64(cfg.SegmentFreshnessMs),
			CompressLargePayloads:  cfg.CompressSegments,
			Store:                  st,
		}, nil)
		engine.Start()
		engines[i] = engine
	}

	for i, engine := range engines {
		engine, i := engine, i
		offset := publishEveryMs + int64(i)*publishEveryMs/int64(n+1)
		schedulePeriodic(hub.Clock(), mu, offset, publishEveryMs, func() {
			counters[i]++
			name := syncPrefix.AppendGeneric(fmt.Sprintf("item-%d-%d", i, counters[i]))
			engine.PublishName(name)
		})
	}

	return func() any {
		out := make([]map[string]any, len(engines))
		for i, engine := range engines {
			names := engine.PublishedNames()
			strs := make([]string, len(names))
			for j, name := range names {
				strs[j] = name.String()
			}
			out[i] = map[string]any{
				"published_names": strs,
				"count":           len(strs),
			}
		}
		return map[string]any{"mode": "fullpsync", "participants": out}
	}
}
