// Package diagnostics exposes the server's debug HTTP surface: process
// stats and sync-engine stats for an operator dashboard. It sits above
// internal/syncserver rather than inside internal/ops, since ops is the
// logging/backup ambient layer every package (including syncserver)
// depends on, and a dependency back from ops to syncserver would cycle.
package diagnostics

import (
	"encoding/json"
	"net/http"
	"runtime"
	"time"

	"github.com/rs/cors"

	"github.com/beesaferoot/diff-sync/internal/syncserver"
)

// SystemStats reports process-level runtime information.
type SystemStats struct {
	Version       string        `json:"version"`
	Uptime        time.Duration `json:"uptime_ns"`
	NumGoroutines int           `json:"num_goroutines"`
	MemAllocMB    float64       `json:"mem_alloc_mb"`
	MemSysMB      float64       `json:"mem_sys_mb"`
	NumGC         uint32        `json:"num_gc"`
}

// SessionStats reports the server-visible state of one connected session.
type SessionStats struct {
	ClientID    string    `json:"client_id"`
	ConnectedAt time.Time `json:"connected_at"`
	LastSyncAt  time.Time `json:"last_sync_at"`
}

// SyncStats reports the collaborative session's overall state.
type SyncStats struct {
	DocumentName  string         `json:"document_name"`
	MasterVersion uint64         `json:"master_version"`
	SessionCount  int            `json:"session_count"`
	Sessions      []SessionStats `json:"sessions"`
}

// Collector gathers process and sync-engine statistics for the debug HTTP
// surface.
type Collector struct {
	version   string
	startTime time.Time
	core      *syncserver.Core
}

// NewCollector returns a collector reporting on core.
func NewCollector(version string, core *syncserver.Core) *Collector {
	return &Collector{version: version, startTime: time.Now(), core: core}
}

// CollectSystemStats gathers process-level runtime statistics.
func (d *Collector) CollectSystemStats() *SystemStats {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)

	return &SystemStats{
		Version:       d.version,
		Uptime:        time.Since(d.core.StartTime()),
		NumGoroutines: runtime.NumGoroutine(),
		MemAllocMB:    float64(m.Alloc) / 1024 / 1024,
		MemSysMB:      float64(m.Sys) / 1024 / 1024,
		NumGC:         m.NumGC,
	}
}

// CollectSyncStats gathers sync-engine statistics: master version, session
// count, and per-session connect/last-sync timestamps.
func (d *Collector) CollectSyncStats() *SyncStats {
	_, version := d.core.MasterState()
	sessions := d.core.Sessions()

	stats := &SyncStats{
		DocumentName:  d.core.DocumentName(),
		MasterVersion: version,
		SessionCount:  len(sessions),
		Sessions:      make([]SessionStats, 0, len(sessions)),
	}
	for _, s := range sessions {
		stats.Sessions = append(stats.Sessions, SessionStats{
			ClientID:    s.ClientID,
			ConnectedAt: s.ConnectedAt(),
			LastSyncAt:  s.LastSyncAt(),
		})
	}
	return stats
}

// Handler returns the debug HTTP surface: GET /healthz and GET /stats,
// wrapped in a permissive CORS policy for a browser-originated dashboard.
func (d *Collector) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", d.handleHealthz)
	mux.HandleFunc("/stats", d.handleStats)

	c := cors.New(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{http.MethodGet},
	})
	return c.Handler(mux)
}

func (d *Collector) handleHealthz(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}

func (d *Collector) handleStats(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{
		"system": d.CollectSystemStats(),
		"sync":   d.CollectSyncStats(),
	})
}
