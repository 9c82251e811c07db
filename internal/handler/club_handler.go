package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/isshoni-club/club-api/internal/store"
	appErrors "github.com/isshoni-club/club-api/pkg/errors"
	"github.com/isshoni-club/club-api/pkg/response"
)

// ClubHandler exposes the singleton club-info document.
type ClubHandler struct {
	club *store.Club
}

// NewClubHandler creates a new handler.
func NewClubHandler(club *store.Club) *ClubHandler {
	return &ClubHandler{club: club}
}

// Get godoc
// @Summary Club information
// @Description Reads the club document, creating it with defaults on first access
// @Tags Club
// @Produce json
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /club [get]
func (h *ClubHandler) Get(c *gin.Context) {
	info, err := h.club.Fetch(c.Request.Context())
	if err != nil {
		cached, status := h.club.Snapshot()
		if cached.ID != "" {
			response.JSON(c, http.StatusOK, cached, map[string]interface{}{"stale": true, "error": status.Error})
			return
		}
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, info, nil)
}

// Update godoc
// @Summary Edit club information
// @Description Partial merge; unmentioned fields are preserved
// @Tags Club
// @Accept json
// @Produce json
// @Param payload body store.ClubUpdate true "Partial edit"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Security BearerAuth
// @Router /club [put]
func (h *ClubHandler) Update(c *gin.Context) {
	var req store.ClubUpdate
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid club payload"))
		return
	}
	if err := h.club.Update(c.Request.Context(), req); err != nil {
		response.Error(c, err)
		return
	}
	info, _ := h.club.Snapshot()
	response.JSON(c, http.StatusOK, info, nil)
}
