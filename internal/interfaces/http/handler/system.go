package handler

import (
	"context"
	"net/http"
	"runtime"
	"time"

	appinstallment "github.com/backoffice/installments/internal/application/installment"
	"github.com/backoffice/installments/internal/domain/shared"
	"github.com/gin-gonic/gin"
)

const healthCheckTimeout = 3 * time.Second

// Pinger is a dependency whose reachability is part of the health report
type Pinger interface {
	Ping(ctx context.Context) error
}

// OutboxStats reports outbox entries per delivery status
type OutboxStats interface {
	CountByStatus(ctx context.Context) (map[shared.OutboxStatus]int64, error)
}

// StatusSweeper runs the status sweep on demand and reports its schedule
type StatusSweeper interface {
	TriggerManualRun(ctx context.Context) (*appinstallment.SweepResult, error)
	GetStatus() map[string]any
}

// SystemHandler serves health, build information and sweep operations
type SystemHandler struct {
	BaseHandler
	name      string
	version   string
	startTime time.Time
	checks    map[string]Pinger
	outbox    OutboxStats
	sweeper   StatusSweeper
}

// SystemHandlerOption configures a SystemHandler
type SystemHandlerOption func(*SystemHandler)

// WithHealthCheck adds a named dependency to the health report
func WithHealthCheck(name string, p Pinger) SystemHandlerOption {
	return func(h *SystemHandler) {
		if p != nil {
			h.checks[name] = p
		}
	}
}

// WithOutboxStats adds outbox counts to the health report
func WithOutboxStats(s OutboxStats) SystemHandlerOption {
	return func(h *SystemHandler) {
		h.outbox = s
	}
}

// WithStatusSweeper enables the sweep endpoints and adds the sweep status to the health report
func WithStatusSweeper(s StatusSweeper) SystemHandlerOption {
	return func(h *SystemHandler) {
		h.sweeper = s
	}
}

// NewSystemHandler creates a new SystemHandler
func NewSystemHandler(name, version string, opts ...SystemHandlerOption) *SystemHandler {
	h := &SystemHandler{
		name:      name,
		version:   version,
		startTime: time.Now(),
		checks:    make(map[string]Pinger),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// HealthResponse is the health report
// @name HandlerHealthResponse
type HealthResponse struct {
	Status string            `json:"status" example:"ok"`
	Checks map[string]string `json:"checks"`
	Outbox map[string]int64  `json:"outbox,omitempty"`
	Sweep  map[string]any    `json:"sweep,omitempty"`
}

// Health godoc
// @ID           getHealth
// @Summary      Health check
// @Description  Reports the reachability of the database and other dependencies, outbox backlog and sweep status
// @Tags         system
// @Produce      json
// @Success      200 {object} HealthResponse
// @Failure      503 {object} HealthResponse
// @Router       /health [get]
func (h *SystemHandler) Health(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), healthCheckTimeout)
	defer cancel()

	resp := HealthResponse{Status: "ok", Checks: make(map[string]string, len(h.checks))}
	for name, p := range h.checks {
		if err := p.Ping(ctx); err != nil {
			resp.Status = "degraded"
			resp.Checks[name] = err.Error()
			continue
		}
		resp.Checks[name] = "ok"
	}

	if h.outbox != nil {
		counts, err := h.outbox.CountByStatus(ctx)
		if err != nil {
			resp.Checks["outbox"] = err.Error()
		} else {
			resp.Outbox = make(map[string]int64, len(counts))
			for status, n := range counts {
				resp.Outbox[string(status)] = n
			}
		}
	}
	if h.sweeper != nil {
		resp.Sweep = h.sweeper.GetStatus()
	}

	status := http.StatusOK
	if resp.Status != "ok" {
		status = http.StatusServiceUnavailable
	}
	c.JSON(status, resp)
}

// SystemInfoResponse represents the system information response
// @name HandlerSystemInfoResponse
type SystemInfoResponse struct {
	Name      string `json:"name" example:"installments"`
	Version   string `json:"version" example:"1.0.0"`
	GoVersion string `json:"go_version" example:"go1.25.5"`
	Uptime    string `json:"uptime" example:"1h30m45s"`
}

// GetSystemInfo godoc
// @ID           getSystemInfo
// @Summary      Get system information
// @Description  Returns the service name, version and uptime
// @Tags         system
// @Produce      json
// @Success      200 {object} Envelope[SystemInfoResponse]
// @Router       /system/info [get]
func (h *SystemHandler) GetSystemInfo(c *gin.Context) {
	h.Success(c, SystemInfoResponse{
		Name:      h.name,
		Version:   h.version,
		GoVersion: runtime.Version(),
		Uptime:    time.Since(h.startTime).Round(time.Second).String(),
	})
}

// TriggerSweep godoc
// @ID           triggerStatusSweep
// @Summary      Run the status sweep
// @Description  Persist the derived status of every open obligation whose stored status is stale
// @Tags         system
// @Produce      json
// @Success      200 {object} Envelope[appinstallment.SweepResult]
// @Failure      409 {object} ErrorEnvelope
// @Failure      503 {object} ErrorEnvelope
// @Router       /system/sweep [post]
func (h *SystemHandler) TriggerSweep(c *gin.Context) {
	if h.sweeper == nil {
		h.ServiceUnavailable(c, "Status sweep is not configured")
		return
	}

	result, err := h.sweeper.TriggerManualRun(c.Request.Context())
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, result)
}
