package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/isshoni-club/club-api/internal/middleware"
	"github.com/isshoni-club/club-api/internal/store"
	appErrors "github.com/isshoni-club/club-api/pkg/errors"
	"github.com/isshoni-club/club-api/pkg/response"
)

// ResourceHandler exposes the learning resource endpoints.
type ResourceHandler struct {
	resources *store.Resources
}

// NewResourceHandler creates a new handler.
func NewResourceHandler(resources *store.Resources) *ResourceHandler {
	return &ResourceHandler{resources: resources}
}

// List godoc
// @Summary List learning resources
// @Description Returns the cached snapshot, refreshing it from the gateway first
// @Tags Resources
// @Produce json
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /resources [get]
func (h *ResourceHandler) List(c *gin.Context) {
	resources, err := h.resources.Fetch(c.Request.Context())
	if err != nil {
		// stale-but-available: serve the previous snapshot when one exists
		cached, status := h.resources.Snapshot()
		if len(cached) > 0 {
			response.JSON(c, http.StatusOK, cached, map[string]interface{}{"stale": true, "error": status.Error})
			return
		}
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, resources, nil)
}

// Create godoc
// @Summary Create a resource
// @Tags Resources
// @Accept json
// @Produce json
// @Param payload body store.ResourceInput true "Resource payload"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Security BearerAuth
// @Router /resources [post]
func (h *ResourceHandler) Create(c *gin.Context) {
	claims, ok := middleware.CurrentClaims(c)
	if !ok {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	var req store.ResourceInput
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid resource payload"))
		return
	}
	resource, err := h.resources.Add(c.Request.Context(), claims.UserID, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, resource)
}

// Update godoc
// @Summary Edit a resource
// @Tags Resources
// @Accept json
// @Produce json
// @Param id path string true "Resource ID"
// @Param payload body store.ResourceUpdate true "Partial edit"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Security BearerAuth
// @Router /resources/{id} [put]
func (h *ResourceHandler) Update(c *gin.Context) {
	var req store.ResourceUpdate
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid resource payload"))
		return
	}
	if err := h.resources.Update(c.Request.Context(), c.Param("id"), req); err != nil {
		response.Error(c, err)
		return
	}
	resources, _ := h.resources.Snapshot()
	response.JSON(c, http.StatusOK, resources, nil)
}

// Delete godoc
// @Summary Delete a resource
// @Tags Resources
// @Produce json
// @Param id path string true "Resource ID"
// @Success 204 {object} response.Envelope
// @Security BearerAuth
// @Router /resources/{id} [delete]
func (h *ResourceHandler) Delete(c *gin.Context) {
	if err := h.resources.Delete(c.Request.Context(), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}
