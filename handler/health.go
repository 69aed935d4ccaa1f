package handler

import (
	"context"
	"fmt"
	"net/http"
	"runtime"
	"sort"
	"syscall"
	"time"

	"github.com/mstgnz/gopos/infra/config"
	"github.com/mstgnz/gopos/infra/response"
)

// GatewayLister reports the registered gateway identifiers
type GatewayLister interface {
	Gateways() []string
}

// Pinger is a dependency that can be pinged, like an audit store
type Pinger interface {
	Ping(ctx context.Context) error
}

// HealthHandler handles health check requests
type HealthHandler struct {
	gateways  GatewayLister
	services  map[string]Pinger
	startTime time.Time
}

// HealthStatus represents overall system health
type HealthStatus struct {
	Status      string                    `json:"status"`
	Version     string                    `json:"version"`
	Timestamp   time.Time                 `json:"timestamp"`
	Uptime      string                    `json:"uptime"`
	Environment string                    `json:"environment"`
	Gateways    *GatewayHealth            `json:"gateways"`
	System      *SystemHealth             `json:"system"`
	Services    map[string]*ServiceHealth `json:"services"`
}

// GatewayHealth lists the mappers the service can build
type GatewayHealth struct {
	Count int      `json:"count"`
	Names []string `json:"names"`
}

// SystemHealth represents system resource health
type SystemHealth struct {
	Memory     *MemoryHealth `json:"memory"`
	Disk       *DiskHealth   `json:"disk"`
	GoRoutines int           `json:"goroutines"`
	CGoCalls   int64         `json:"cgo_calls"`
}

// MemoryHealth represents memory usage
type MemoryHealth struct {
	Alloc        string  `json:"alloc"`
	TotalAlloc   string  `json:"total_alloc"`
	Sys          string  `json:"sys"`
	GCRuns       uint32  `json:"gc_runs"`
	UsagePercent float64 `json:"usage_percent"`
}

// DiskHealth represents disk usage
type DiskHealth struct {
	Available    string  `json:"available"`
	Used         string  `json:"used"`
	Total        string  `json:"total"`
	UsagePercent float64 `json:"usage_percent"`
	Status       string  `json:"status"`
}

// ServiceHealth represents individual service health
type ServiceHealth struct {
	Status       string `json:"status"`
	Healthy      bool   `json:"healthy"`
	LastCheck    string `json:"last_check"`
	ResponseTime string `json:"response_time,omitempty"`
	Error        string `json:"error,omitempty"`
}

// NewHealthHandler creates a new health handler. Nil services are skipped.
func NewHealthHandler(gateways GatewayLister, services map[string]Pinger) *HealthHandler {
	pingers := make(map[string]Pinger, len(services))
	for name, service := range services {
		if service != nil {
			pingers[name] = service
		}
	}

	return &HealthHandler{
		gateways:  gateways,
		services:  pingers,
		startTime: time.Now(),
	}
}

// CheckHealth performs health checks
func (h *HealthHandler) CheckHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	health := &HealthStatus{
		Version:     "1.0.0",
		Timestamp:   time.Now().UTC(),
		Uptime:      time.Since(h.startTime).String(),
		Environment: config.GetEnv("ENVIRONMENT", "development"),
		Gateways:    h.checkGateways(),
		System:      h.checkSystemHealth(),
		Services:    h.checkServicesHealth(ctx),
	}

	health.Status = h.determineOverallStatus(health)

	statusCode := http.StatusOK
	if health.Status == "unhealthy" {
		statusCode = http.StatusServiceUnavailable
	}

	resp := response.New(r, statusCode, fmt.Sprintf("Service is %s", health.Status))
	resp.Data = health
	_ = response.WriteJSON(w, statusCode, resp)
}

func (h *HealthHandler) checkGateways() *GatewayHealth {
	if h.gateways == nil {
		return &GatewayHealth{Names: []string{}}
	}
	names := h.gateways.Gateways()
	return &GatewayHealth{Count: len(names), Names: names}
}

// checkServicesHealth pings every optional dependency
func (h *HealthHandler) checkServicesHealth(ctx context.Context) map[string]*ServiceHealth {
	services := make(map[string]*ServiceHealth, len(h.services))

	names := make([]string, 0, len(h.services))
	for name := range h.services {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		start := time.Now()
		err := h.services[name].Ping(ctx)

		service := &ServiceHealth{
			Status:       "healthy",
			Healthy:      true,
			LastCheck:    time.Now().UTC().Format(time.RFC3339),
			ResponseTime: fmt.Sprintf("%.0fms", float64(time.Since(start).Nanoseconds())/1e6),
		}
		if err != nil {
			service.Status = "unhealthy"
			service.Healthy = false
			service.Error = err.Error()
		}
		services[name] = service
	}

	return services
}

// checkSystemHealth checks system resource health
func (h *HealthHandler) checkSystemHealth() *SystemHealth {
	var memStats runtime.MemStats
	runtime.ReadMemStats(&memStats)

	return &SystemHealth{
		Memory: &MemoryHealth{
			Alloc:        formatBytes(memStats.Alloc),
			TotalAlloc:   formatBytes(memStats.TotalAlloc),
			Sys:          formatBytes(memStats.Sys),
			GCRuns:       memStats.NumGC,
			UsagePercent: calculateMemoryUsagePercent(memStats),
		},
		Disk:       h.getDiskUsage(),
		GoRoutines: runtime.NumGoroutine(),
		CGoCalls:   runtime.NumCgoCall(),
	}
}

// determineOverallStatus determines overall system status.
// Without gateways nothing can be mapped; a failing audit sink only degrades.
func (h *HealthHandler) determineOverallStatus(health *HealthStatus) string {
	if health.Gateways == nil || health.Gateways.Count == 0 {
		return "unhealthy"
	}

	for _, service := range health.Services {
		if !service.Healthy {
			return "degraded"
		}
	}

	if health.System != nil {
		if health.System.Memory != nil && health.System.Memory.UsagePercent > 90 {
			return "degraded"
		}
		if health.System.Disk != nil && health.System.Disk.UsagePercent > 90 {
			return "degraded"
		}
	}

	return "healthy"
}

func formatBytes(bytes uint64) string {
	const unit = 1024
	if bytes < unit {
		return fmt.Sprintf("%d B", bytes)
	}
	div, exp := int64(unit), 0
	for n := bytes / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %cB", float64(bytes)/float64(div), "KMGTPE"[exp])
}

func calculateMemoryUsagePercent(memStats runtime.MemStats) float64 {
	if memStats.Sys == 0 {
		return 0
	}
	return (float64(memStats.Alloc) / float64(memStats.Sys)) * 100
}

func (h *HealthHandler) getDiskUsage() *DiskHealth {
	var stat syscall.Statfs_t

	disk := &DiskHealth{
		Status: "unknown",
	}

	if err := syscall.Statfs("/", &stat); err != nil || stat.Blocks == 0 {
		disk.Status = "error"
		return disk
	}

	available := stat.Bavail * uint64(stat.Bsize)
	total := stat.Blocks * uint64(stat.Bsize)
	used := total - (stat.Bfree * uint64(stat.Bsize))

	disk.Available = formatBytes(available)
	disk.Total = formatBytes(total)
	disk.Used = formatBytes(used)
	disk.UsagePercent = (float64(used) / float64(total)) * 100

	switch {
	case disk.UsagePercent > 90:
		disk.Status = "critical"
	case disk.UsagePercent > 80:
		disk.Status = "warning"
	default:
		disk.Status = "healthy"
	}

	return disk
}
