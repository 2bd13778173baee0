package api

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/shirou/gopsutil/v3/load"
	"github.com/shirou/gopsutil/v3/mem"

	"github.com/learnforge/trainingportal/internal/entities"
	"github.com/learnforge/trainingportal/internal/errors"
	"github.com/learnforge/trainingportal/internal/logger"
	"github.com/learnforge/trainingportal/internal/store"
)

// HealthResponse is returned by GET /api/health
type HealthResponse struct {
	Status        string       `json:"status"`
	Version       string       `json:"version"`
	BuildDate     string       `json:"buildDate,omitempty"`
	InstanceID    string       `json:"instanceId,omitempty"`
	Uptime        string       `json:"uptime"`
	UptimeSeconds float64      `json:"uptimeSeconds"`
	Storage       StorageCheck `json:"storage"`
	RateLimited   int          `json:"rateLimitedClients"`
	Memory        *MemoryStats `json:"memory,omitempty"`
	Load          *LoadStats   `json:"load,omitempty"`
	Timestamp     time.Time    `json:"timestamp"`
}

// StorageCheck reports whether the backing store answered a read
type StorageCheck struct {
	Backend string `json:"backend"`
	OK      bool   `json:"ok"`
	Error   string `json:"error,omitempty"`
}

// MemoryStats is host memory usage
type MemoryStats struct {
	Total       uint64  `json:"total"`
	Used        uint64  `json:"used"`
	UsedPercent float64 `json:"usedPercent"`
}

// LoadStats is the host load average
type LoadStats struct {
	Load1  float64 `json:"load1"`
	Load5  float64 `json:"load5"`
	Load15 float64 `json:"load15"`
}

// healthCheck handles GET /api/health. It answers 503 when the store fails.
func (s *Server) healthCheck(c echo.Context) error {
	uptime := time.Since(s.startTime)
	if s.buildInfo != nil {
		uptime = s.buildInfo.Uptime()
	}

	resp := HealthResponse{
		Status:        "healthy",
		Version:       s.buildInfo.GetVersion(),
		Uptime:        uptime.Round(time.Second).String(),
		UptimeSeconds: uptime.Seconds(),
		Storage:       s.checkStorage(),
		Timestamp:     time.Now().UTC(),
	}
	if s.buildInfo != nil {
		resp.BuildDate = s.buildInfo.BuildDate
		resp.InstanceID = s.buildInfo.InstanceID
	}
	if s.limiter != nil {
		resp.RateLimited = s.limiter.Tracked()
	}

	// host stats are best effort; load average is unavailable on windows
	if vm, err := mem.VirtualMemory(); err == nil {
		resp.Memory = &MemoryStats{Total: vm.Total, Used: vm.Used, UsedPercent: vm.UsedPercent}
	}
	if avg, err := load.Avg(); err == nil {
		resp.Load = &LoadStats{Load1: avg.Load1, Load5: avg.Load5, Load15: avg.Load15}
	}

	code := http.StatusOK
	if !resp.Storage.OK {
		resp.Status = "degraded"
		code = http.StatusServiceUnavailable
	}
	return c.JSON(code, resp)
}

func (s *Server) checkStorage() StorageCheck {
	if s.store == nil {
		return StorageCheck{Backend: "unknown", OK: true}
	}
	check := StorageCheck{Backend: s.store.Name(), OK: true}
	if _, err := s.store.Load(entities.CollectionSystemSettings); err != nil && !errors.Is(err, store.ErrCollectionNotFound) {
		s.log.Warn("health check: store read failed",
			logger.String("backend", check.Backend),
			logger.Error(err))
		check.OK = false
		check.Error = "store read failed"
	}
	return check
}
