package server

import (
	"encoding/json"
	"net/http"
	"runtime"
	"time"

	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/mem"
)

const serviceName = "gatehouse"

// Version is stamped at build time via -ldflags.
var Version = "dev"

// handleHealth reports liveness.
// GET /health
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]any{
		"status":  "healthy",
		"service": serviceName,
		"version": Version,
		"uptime":  time.Since(s.startupTime).Round(time.Second).String(),
	})
}

// handleStatus reports process statistics and what the worker can run.
// GET /status
func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	cpuAvg, ramUsed := s.systemStats()

	s.writeJSON(w, http.StatusOK, map[string]any{
		"status":      "ok",
		"uptime":      time.Since(s.startupTime).Round(time.Second).String(),
		"goroutines":  runtime.NumGoroutine(),
		"cpu_percent": cpuAvg,
		"ram_percent": ramUsed,
		"tasks":       s.tasks.Names(),
		"job_classes": s.jobs.Classes(),
	})
}

// systemStats returns CPU and RAM usage percentages. The short sampling
// interval keeps the endpoint responsive for pollers.
func (s *Server) systemStats() (float64, float64) {
	cpuPercent, err := cpu.Percent(100*time.Millisecond, false)
	if err != nil {
		s.log.Warn().Err(err).Msg("Failed to get CPU percentage")
		cpuPercent = []float64{0}
	}

	memStat, err := mem.VirtualMemory()
	if err != nil {
		s.log.Warn().Err(err).Msg("Failed to get memory statistics")
		return 0, 0
	}

	cpuAvg := 0.0
	if len(cpuPercent) > 0 {
		cpuAvg = cpuPercent[0]
	}
	return cpuAvg, memStat.UsedPercent
}

// writeJSON writes a JSON response
func (s *Server) writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		s.log.Error().Err(err).Msg("Failed to encode JSON response")
	}
}
