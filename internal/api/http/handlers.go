package http

import (
	"context"
	"net/http"
	"time"

	"github.com/SerVas333/WindowsLauncher-sub007/internal/domain/catalog"
	"github.com/SerVas333/WindowsLauncher-sub007/internal/domain/lifecycle"
	"github.com/SerVas333/WindowsLauncher-sub007/internal/infrastructure/monitoring"
	"github.com/SerVas333/WindowsLauncher-sub007/internal/shared/id"
	"github.com/SerVas333/WindowsLauncher-sub007/internal/shared/utils"
	"github.com/gin-gonic/gin"
)

// AgentProbe reports window-agent connectivity for health checks.
type AgentProbe interface {
	Ping(ctx context.Context) error
}

// Handlers contains all HTTP handlers
type Handlers struct {
	store    *catalog.Store
	orch     *lifecycle.Orchestrator
	switcher *lifecycle.Switcher
	agent    AgentProbe
	metrics  *monitoring.Metrics
}

// NewHandlers creates a new handler set. agent may be nil when the
// window agent is disabled.
func NewHandlers(
	store *catalog.Store,
	orch *lifecycle.Orchestrator,
	switcher *lifecycle.Switcher,
	agent AgentProbe,
	metrics *monitoring.Metrics,
) *Handlers {
	return &Handlers{
		store:    store,
		orch:     orch,
		switcher: switcher,
		agent:    agent,
		metrics:  metrics,
	}
}

// Root handles health check
func (h *Handlers) Root(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "online",
		"service": "launcherd",
		"version": "1.2.0",
	})
}

// Health handles detailed health check
func (h *Handlers) Health(c *gin.Context) {
	agent := gin.H{"enabled": h.agent != nil}
	if h.agent != nil {
		ctx, cancel := context.WithTimeout(c.Request.Context(), time.Second)
		agent["connected"] = h.agent.Ping(ctx) == nil
		cancel()
	}

	c.JSON(http.StatusOK, gin.H{
		"status":    "healthy",
		"instances": h.orch.Stats(),
		"catalog":   gin.H{"apps": h.store.Len()},
		"agent":     agent,
	})
}

// ListApps lists launchable catalog applications
func (h *Handlers) ListApps(c *gin.Context) {
	apps := h.store.Enabled()

	c.JSON(http.StatusOK, gin.H{
		"apps":  apps,
		"count": len(apps),
	})
}

// LaunchApp starts an application, or switches to the live instance
// when single-instance dedup finds one
func (h *Handlers) LaunchApp(c *gin.Context) {
	appID := c.Param("id")

	if err := utils.ValidateID(appID, "app_id", true); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": err.Error(), "code": "validation"})
		return
	}

	var req struct {
		LaunchedBy string `json:"launched_by"`
	}
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": err.Error(), "code": "validation"})
			return
		}
	}
	if req.LaunchedBy == "" {
		req.LaunchedBy = "local"
	}
	if err := utils.ValidateString(req.LaunchedBy, "launched_by", 1, 128, false); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": err.Error(), "code": "validation"})
		return
	}

	instID, err := h.orch.Launch(c.Request.Context(), appID, req.LaunchedBy)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":     true,
		"app_id":      appID,
		"instance_id": instID,
	})
}

// ListInstances lists tracked application instances
func (h *Handlers) ListInstances(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"instances": h.orch.ListRunning(),
		"stats":     h.orch.Stats(),
	})
}

// GetInstance returns one tracked instance
func (h *Handlers) GetInstance(c *gin.Context) {
	instID := c.Param("id")

	if err := utils.ValidateID(instID, "instance_id", true); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": err.Error(), "code": "validation"})
		return
	}

	inst, err := h.orch.Get(id.InstanceID(instID))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"instance": inst})
}

// SwitchToInstance brings an instance's window to the foreground
func (h *Handlers) SwitchToInstance(c *gin.Context) {
	instID := c.Param("id")

	if err := utils.ValidateID(instID, "instance_id", true); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": err.Error(), "code": "validation"})
		return
	}

	switched, err := h.orch.SwitchTo(c.Request.Context(), id.InstanceID(instID))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":     switched,
		"instance_id": instID,
	})
}

// TerminateInstance closes an instance, forcefully with ?force=true
func (h *Handlers) TerminateInstance(c *gin.Context) {
	instID := c.Param("id")

	if err := utils.ValidateID(instID, "instance_id", true); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": err.Error(), "code": "validation"})
		return
	}

	force := c.Query("force") == "true"

	ok, err := h.orch.Terminate(c.Request.Context(), id.InstanceID(instID), force)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":     ok,
		"instance_id": instID,
		"force":       force,
	})
}

// MetricsJSON serves the counter snapshot plus latency summaries. The
// Prometheus exposition lives at /metrics; this endpoint feeds the
// shell's status panel without a scrape stack.
func (h *Handlers) MetricsJSON(c *gin.Context) {
	c.JSON(http.StatusOK, h.metrics.Report())
}
