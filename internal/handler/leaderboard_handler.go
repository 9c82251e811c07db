package handler

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/isshoni-club/club-api/internal/store"
	appErrors "github.com/isshoni-club/club-api/pkg/errors"
	"github.com/isshoni-club/club-api/pkg/export"
	"github.com/isshoni-club/club-api/pkg/response"
)

// LeaderboardHandler exposes the ranked standings.
type LeaderboardHandler struct {
	leaderboard *store.Leaderboard
}

// NewLeaderboardHandler creates a new handler.
func NewLeaderboardHandler(leaderboard *store.Leaderboard) *LeaderboardHandler {
	return &LeaderboardHandler{leaderboard: leaderboard}
}

// List godoc
// @Summary Ranked student standings
// @Tags Leaderboard
// @Produce json
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /leaderboard [get]
func (h *LeaderboardHandler) List(c *gin.Context) {
	entries, err := h.leaderboard.Fetch(c.Request.Context())
	if err != nil {
		cached, status := h.leaderboard.Snapshot()
		if len(cached) > 0 {
			response.JSON(c, http.StatusOK, cached, map[string]interface{}{"stale": true, "error": status.Error})
			return
		}
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, entries, nil)
}

type updatePointsRequest struct {
	Points    int `json:"points" binding:"min=0"`
	Completed int `json:"completed" binding:"min=0"`
}

// UpdatePoints godoc
// @Summary Set a student's points
// @Description Writes absolute points and completed count, then re-ranks everyone
// @Tags Leaderboard
// @Accept json
// @Produce json
// @Param id path string true "Student ID"
// @Param payload body updatePointsRequest true "Points payload"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Security BearerAuth
// @Router /leaderboard/{id}/points [put]
func (h *LeaderboardHandler) UpdatePoints(c *gin.Context) {
	var req updatePointsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid points payload"))
		return
	}
	if err := h.leaderboard.UpdateStudentPoints(c.Request.Context(), c.Param("id"), req.Points, req.Completed); err != nil {
		response.Error(c, err)
		return
	}
	entries, _ := h.leaderboard.Snapshot()
	response.JSON(c, http.StatusOK, entries, nil)
}

// Export godoc
// @Summary Export the leaderboard
// @Description Renders the current standings as CSV or PDF
// @Tags Leaderboard
// @Produce octet-stream
// @Param format query string false "csv or pdf" default(csv)
// @Success 200 {file} binary
// @Security BearerAuth
// @Router /leaderboard/export [get]
func (h *LeaderboardHandler) Export(c *gin.Context) {
	format := export.Format(c.DefaultQuery("format", "csv"))
	if format != export.FormatCSV && format != export.FormatPDF {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "format must be csv or pdf"))
		return
	}

	entries, err := h.leaderboard.Fetch(c.Request.Context())
	if err != nil {
		entries, _ = h.leaderboard.Snapshot()
		if len(entries) == 0 {
			response.Error(c, err)
			return
		}
	}

	dataset := export.Dataset{
		Title: "Club Leaderboard",
		Columns: []export.Column{
			{Key: "rank", Title: "Rank"},
			{Key: "name", Title: "Student"},
			{Key: "points", Title: "Points"},
			{Key: "completed", Title: "Assignments Completed"},
			{Key: "level", Title: "Level"},
		},
	}
	for _, entry := range entries {
		dataset.Rows = append(dataset.Rows, map[string]string{
			"rank":      strconv.Itoa(entry.Rank),
			"name":      entry.StudentName,
			"points":    strconv.Itoa(entry.Points),
			"completed": strconv.Itoa(entry.AssignmentsCompleted),
			"level":     string(entry.Level),
		})
	}

	payload, err := export.Render(dataset, format)
	if err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "render export"))
		return
	}
	filename := fmt.Sprintf("leaderboard.%s", format)
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	c.Data(http.StatusOK, format.ContentType(), payload)
}
