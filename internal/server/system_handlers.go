package server

import (
	"context"
	"net/http"
	"runtime"
	"time"

	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/mem"

	"github.com/minelab/botmine/internal/database"
)

// databaseHealth is the reported state of one database
type databaseHealth struct {
	Name      string `json:"name"`
	Healthy   bool   `json:"healthy"`
	Error     string `json:"error,omitempty"`
	SizeBytes int64  `json:"size_bytes"`
	WALBytes  int64  `json:"wal_size_bytes"`
	PageCount int64  `json:"page_count"`
}

// handleSystemHealth reports host resource usage and per-database health
func (s *Server) handleSystemHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	response := map[string]interface{}{
		"goroutines": runtime.NumGoroutine(),
		"timestamp":  time.Now(),
	}

	if cpuPercent, err := cpu.Percent(100*time.Millisecond, false); err == nil && len(cpuPercent) > 0 {
		response["cpu_percent"] = cpuPercent[0]
	}
	if memStat, err := mem.VirtualMemory(); err == nil {
		response["memory_percent"] = memStat.UsedPercent
		response["memory_used_bytes"] = memStat.Used
	}

	databases := make([]databaseHealth, 0, 2)
	for _, db := range []*database.DB{s.botsDB, s.resultsDB} {
		if db == nil {
			continue
		}
		health := databaseHealth{Name: db.Name(), Healthy: true}
		if err := db.HealthCheck(ctx); err != nil {
			health.Healthy = false
			health.Error = err.Error()
		}
		if stats, err := db.GetStats(); err == nil {
			health.SizeBytes = stats.SizeBytes
			health.WALBytes = stats.WALSizeBytes
			health.PageCount = stats.PageCount
		}
		databases = append(databases, health)
	}
	response["databases"] = databases

	status := http.StatusOK
	for _, db := range databases {
		if !db.Healthy {
			status = http.StatusServiceUnavailable
		}
	}
	s.writeJSON(w, status, response)
}
