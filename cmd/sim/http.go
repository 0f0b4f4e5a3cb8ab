package main

import (
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"os"
	"strconv"
	"strings"

	"voxelsim.ai/internal/persistence/indexdb"
	"voxelsim.ai/internal/sim/world"
)

func newMux(worldID string, w *world.World, idx *indexdb.SQLiteIndex) *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(rw http.ResponseWriter, r *http.Request) {
		rw.WriteHeader(200)
		_, _ = rw.Write([]byte("ok"))
	})
	mux.HandleFunc("/metrics", func(rw http.ResponseWriter, r *http.Request) {
		rw.Header().Set("Content-Type", "text/plain; version=0.0.4")
		writeMetrics(rw, worldID, w.Metrics(), idx.Stats())
	})
	if envBool("VS_ENABLE_ADMIN_HTTP", true) {
		mux.HandleFunc("/admin/v1/state", func(rw http.ResponseWriter, r *http.Request) {
			if !isLoopbackRemote(r.RemoteAddr) {
				http.Error(rw, "forbidden", http.StatusForbidden)
				return
			}
			rw.Header().Set("Content-Type", "application/json")
			resp := struct {
				WorldID string        `json:"world_id"`
				Metrics world.Metrics `json:"metrics"`
				Index   indexdb.Stats `json:"index"`
			}{
				WorldID: worldID,
				Metrics: w.Metrics(),
				Index:   idx.Stats(),
			}
			_ = json.NewEncoder(rw).Encode(resp)
		})
	}
	return mux
}

// writeMetrics renders the minimal Prometheus exposition format.
func writeMetrics(rw http.ResponseWriter, worldID string, m world.Metrics, s indexdb.Stats) {
	fmt.Fprintf(rw, "# HELP voxelsim_world_tick Current world tick.\n")
	fmt.Fprintf(rw, "# TYPE voxelsim_world_tick gauge\n")
	fmt.Fprintf(rw, "voxelsim_world_tick{world=%q} %d\n", worldID, m.Tick)

	fmt.Fprintf(rw, "# HELP voxelsim_world_loaded_chunks Loaded chunk count.\n")
	fmt.Fprintf(rw, "# TYPE voxelsim_world_loaded_chunks gauge\n")
	fmt.Fprintf(rw, "voxelsim_world_loaded_chunks{world=%q} %d\n", worldID, m.LoadedChunks)

	fmt.Fprintf(rw, "# HELP voxelsim_world_entities Live entity count.\n")
	fmt.Fprintf(rw, "# TYPE voxelsim_world_entities gauge\n")
	fmt.Fprintf(rw, "voxelsim_world_entities{world=%q} %d\n", worldID, m.Entities)

	fmt.Fprintf(rw, "# HELP voxelsim_world_due_ticks Scheduled ticks fired by the last step.\n")
	fmt.Fprintf(rw, "# TYPE voxelsim_world_due_ticks gauge\n")
	fmt.Fprintf(rw, "voxelsim_world_due_ticks{world=%q} %d\n", worldID, m.DueTicks)

	fmt.Fprintf(rw, "# HELP voxelsim_world_step_ms Last tick step duration in milliseconds.\n")
	fmt.Fprintf(rw, "# TYPE voxelsim_world_step_ms gauge\n")
	fmt.Fprintf(rw, "voxelsim_world_step_ms{world=%q} %.3f\n", worldID, m.StepMS)

	fmt.Fprintf(rw, "# HELP voxelsim_index_queue_depth Index writer backlog.\n")
	fmt.Fprintf(rw, "# TYPE voxelsim_index_queue_depth gauge\n")
	fmt.Fprintf(rw, "voxelsim_index_queue_depth{world=%q} %d\n", worldID, s.QueueDepth)

	fmt.Fprintf(rw, "# HELP voxelsim_index_dropped_total Index entries dropped on a full queue.\n")
	fmt.Fprintf(rw, "# TYPE voxelsim_index_dropped_total counter\n")
	fmt.Fprintf(rw, "voxelsim_index_dropped_total{world=%q,kind=%q} %d\n", worldID, "audit", s.DropAuditTotal)
	fmt.Fprintf(rw, "voxelsim_index_dropped_total{world=%q,kind=%q} %d\n", worldID, "chunk", s.DropChunkTotal)
	fmt.Fprintf(rw, "voxelsim_index_dropped_total{world=%q,kind=%q} %d\n", worldID, "structure", s.DropStructureTotal)
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
