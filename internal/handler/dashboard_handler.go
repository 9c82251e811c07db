package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/isshoni-club/club-api/internal/middleware"
	"github.com/isshoni-club/club-api/internal/sync"
	appErrors "github.com/isshoni-club/club-api/pkg/errors"
	"github.com/isshoni-club/club-api/pkg/response"
)

// DashboardHandler drives the sync orchestrator and serves the aggregated
// dashboard snapshot.
type DashboardHandler struct {
	orchestrator *sync.Orchestrator
	stores       sync.Stores
}

// NewDashboardHandler creates a new handler.
func NewDashboardHandler(orchestrator *sync.Orchestrator, stores sync.Stores) *DashboardHandler {
	return &DashboardHandler{orchestrator: orchestrator, stores: stores}
}

// dashboardData is the aggregated read the mobile client renders on its home
// screen. Assignment and event fields are personalized to the caller.
type dashboardData struct {
	Resources   interface{} `json:"resources"`
	Pending     interface{} `json:"pendingAssignments"`
	Events      interface{} `json:"events"`
	Leaderboard interface{} `json:"leaderboard"`
}

// Refresh godoc
// @Summary Refresh every store
// @Description Re-fetches all collections in parallel; one failure never aborts the others
// @Tags Sync
// @Produce json
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /sync/refresh [post]
func (h *DashboardHandler) Refresh(c *gin.Context) {
	result := h.orchestrator.RefreshAll(c.Request.Context())
	response.JSON(c, http.StatusOK, refreshReport(result), nil)
}

// Schedule godoc
// @Summary Queue a deferred store refresh
// @Tags Sync
// @Produce json
// @Param store path string true "Store name"
// @Success 202 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Security BearerAuth
// @Router /sync/refresh/{store} [post]
func (h *DashboardHandler) Schedule(c *gin.Context) {
	name := c.Param("store")
	if err := h.orchestrator.ScheduleRefresh(name); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "schedule refresh"))
		return
	}
	response.JSON(c, http.StatusAccepted, gin.H{"store": name, "scheduled": true}, nil)
}

// Dashboard godoc
// @Summary Aggregated dashboard snapshot
// @Description Refreshes the dashboard stores, then returns resources, the caller's pending assignments, annotated events and the leaderboard
// @Tags Sync
// @Produce json
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /dashboard [get]
func (h *DashboardHandler) Dashboard(c *gin.Context) {
	claims, ok := middleware.CurrentClaims(c)
	if !ok {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	result := h.orchestrator.RefreshDashboard(c.Request.Context())

	resources, _ := h.stores.Resources.Snapshot()
	pending, _ := h.stores.Assignments.Pending(claims.UserID)
	events, _ := h.stores.Events.View(claims.UserID)
	leaderboard, _ := h.stores.Leaderboard.Snapshot()

	data := dashboardData{
		Resources:   resources,
		Pending:     pending,
		Events:      events,
		Leaderboard: leaderboard,
	}

	var meta map[string]interface{}
	if failed := result.Failed(); len(failed) > 0 {
		meta = map[string]interface{}{"stale": failed}
	}
	response.JSON(c, http.StatusOK, data, meta)
}

// refreshReport flattens a refresh result into a JSON-friendly shape.
func refreshReport(result sync.RefreshResult) gin.H {
	stores := make(map[string]string, len(result))
	for name, err := range result {
		if err != nil {
			stores[name] = err.Error()
			continue
		}
		stores[name] = "ok"
	}
	return gin.H{"stores": stores, "failed": result.Failed()}
}
