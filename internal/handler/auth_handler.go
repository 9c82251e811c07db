package handler

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/isshoni-club/club-api/internal/middleware"
	"github.com/isshoni-club/club-api/internal/store"
	appErrors "github.com/isshoni-club/club-api/pkg/errors"
	"github.com/isshoni-club/club-api/pkg/response"
)

// AuthHandler wires HTTP endpoints to the auth store.
type AuthHandler struct {
	auth *store.Auth
}

// NewAuthHandler creates a new handler.
func NewAuthHandler(auth *store.Auth) *AuthHandler {
	return &AuthHandler{auth: auth}
}

// SignUp godoc
// @Summary Create an account
// @Description Register a new student or admin and return a session token
// @Tags Authentication
// @Accept json
// @Produce json
// @Param payload body store.SignUpInput true "Sign-up payload"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /auth/signup [post]
func (h *AuthHandler) SignUp(c *gin.Context) {
	var req store.SignUpInput
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid sign-up payload"))
		return
	}
	session, err := h.auth.SignUp(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, session)
}

// SignIn godoc
// @Summary Authenticate
// @Description Verify credentials and return a session token
// @Tags Authentication
// @Accept json
// @Produce json
// @Param payload body store.SignInInput true "Credentials"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 401 {object} response.Envelope
// @Router /auth/signin [post]
func (h *AuthHandler) SignIn(c *gin.Context) {
	var req store.SignInInput
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid credentials payload"))
		return
	}
	session, err := h.auth.SignIn(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, session, nil)
}

// SignOut godoc
// @Summary End the session
// @Tags Authentication
// @Produce json
// @Success 204 {object} response.Envelope
// @Security BearerAuth
// @Router /auth/signout [post]
func (h *AuthHandler) SignOut(c *gin.Context) {
	token := ""
	if header := c.GetHeader("Authorization"); header != "" {
		parts := strings.SplitN(header, " ", 2)
		if len(parts) == 2 {
			token = parts[1]
		}
	}
	if err := h.auth.SignOut(c.Request.Context(), token); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// Me godoc
// @Summary Current identity
// @Tags Authentication
// @Produce json
// @Success 200 {object} response.Envelope
// @Failure 401 {object} response.Envelope
// @Security BearerAuth
// @Router /auth/me [get]
func (h *AuthHandler) Me(c *gin.Context) {
	claims, ok := middleware.CurrentClaims(c)
	if !ok {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	response.JSON(c, http.StatusOK, claims, nil)
}
