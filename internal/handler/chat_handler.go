package handler

import (
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/isshoni-club/club-api/internal/gateway"
	"github.com/isshoni-club/club-api/internal/middleware"
	"github.com/isshoni-club/club-api/internal/models"
	"github.com/isshoni-club/club-api/internal/store"
	appErrors "github.com/isshoni-club/club-api/pkg/errors"
	"github.com/isshoni-club/club-api/pkg/response"
)

// ChatHandler exposes the club chat endpoints, including a live snapshot
// stream backed by the gateway subscription.
type ChatHandler struct {
	chat *store.Chat
	gw   gateway.Store
}

// NewChatHandler creates a new handler.
func NewChatHandler(chat *store.Chat, gw gateway.Store) *ChatHandler {
	return &ChatHandler{chat: chat, gw: gw}
}

// List godoc
// @Summary Recent chat messages
// @Description Messages ordered oldest-first
// @Tags Chat
// @Produce json
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /chat/messages [get]
func (h *ChatHandler) List(c *gin.Context) {
	messages, err := h.chat.Fetch(c.Request.Context())
	if err != nil {
		cached, status := h.chat.Snapshot()
		if len(cached) > 0 {
			response.JSON(c, http.StatusOK, cached, map[string]interface{}{"stale": true, "error": status.Error})
			return
		}
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, messages, nil)
}

// Send godoc
// @Summary Send a chat message
// @Tags Chat
// @Accept json
// @Produce json
// @Param payload body store.SendMessageInput true "Message payload"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Security BearerAuth
// @Router /chat/messages [post]
func (h *ChatHandler) Send(c *gin.Context) {
	claims, ok := middleware.CurrentClaims(c)
	if !ok {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	var req store.SendMessageInput
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid message payload"))
		return
	}
	sender := models.User{ID: claims.UserID, Name: claims.Name, Role: claims.Role}
	message, err := h.chat.Send(c.Request.Context(), sender, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, message)
}

// Stream godoc
// @Summary Live chat stream
// @Description Server-sent events; each event carries the full message list, ascending by timestamp
// @Tags Chat
// @Produce text/event-stream
// @Success 200 {string} string "event stream"
// @Security BearerAuth
// @Router /chat/stream [get]
func (h *ChatHandler) Stream(c *gin.Context) {
	sub, err := h.gw.Subscribe(c.Request.Context(), store.CollectionChat, "timestamp", true)
	if err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrGateway.Code, appErrors.ErrGateway.Status, "open chat stream"))
		return
	}
	defer sub.Close()

	c.Header("Cache-Control", "no-store")
	c.Stream(func(w io.Writer) bool {
		select {
		case <-c.Request.Context().Done():
			return false
		case docs, ok := <-sub.Snapshots():
			if !ok {
				return false
			}
			messages := make([]models.ChatMessage, 0, len(docs))
			for _, doc := range docs {
				var message models.ChatMessage
				if err := doc.Decode(&message); err != nil {
					continue
				}
				if message.ID == "" {
					message.ID = doc.ID
				}
				messages = append(messages, message)
			}
			c.SSEvent("snapshot", messages)
			return true
		}
	})
}
