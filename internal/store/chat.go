package store

import (
	"context"
	"sort"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/isshoni-club/club-api/internal/gateway"
	"github.com/isshoni-club/club-api/internal/models"
	apperrors "github.com/isshoni-club/club-api/pkg/errors"
)

// fetchLimit caps how much history a one-shot fetch loads. The live
// subscription is not capped.
const fetchLimit = 50

// SendMessageInput is an outgoing chat message.
type SendMessageInput struct {
	Content string             `json:"content" validate:"required,min=1,max=2000"`
	Type    models.MessageType `json:"type" validate:"omitempty,oneof=text image file"`
	ReplyTo string             `json:"replyTo"`
}

// Chat caches the club chat, oldest-first. A live subscription replaces the
// cache wholesale on every pushed snapshot, which reconciles any local
// append that raced with delivery of the same message.
type Chat struct {
	gw       gateway.Store
	validate *validator.Validate
	logger   *zap.Logger
	now      func() time.Time
	cache    cache[[]models.ChatMessage]
}

func NewChat(gw gateway.Store, validate *validator.Validate, logger *zap.Logger) *Chat {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Chat{gw: gw, validate: validate, logger: logger, now: time.Now}
}

// Fetch loads the most recent messages and normalizes them to oldest-first
// before replacing the cache.
func (s *Chat) Fetch(ctx context.Context) ([]models.ChatMessage, error) {
	ticket := s.cache.begin()
	docs, err := s.gw.GetAll(ctx, CollectionChat)
	if err != nil {
		wrapped := apperrors.Wrap(err, apperrors.ErrGateway.Code, apperrors.ErrGateway.Status, "fetch chat")
		s.cache.fail(ticket, wrapped)
		return nil, wrapped
	}

	messages := decodeMessages(docs, s.logger)
	// newest-first to apply the history cap, then reversed so callers always
	// see oldest-first
	sort.SliceStable(messages, func(i, j int) bool {
		return messages[i].Timestamp.After(messages[j].Timestamp)
	})
	if len(messages) > fetchLimit {
		messages = messages[:fetchLimit]
	}
	reverse(messages)

	if !s.cache.complete(ticket, messages) {
		current, _ := s.cache.snapshot()
		return current, nil
	}
	return messages, nil
}

// Snapshot returns the cached messages and status without touching the
// gateway.
func (s *Chat) Snapshot() ([]models.ChatMessage, Status) {
	return s.cache.snapshot()
}

// Send appends a message. The confirmed message is appended to the cache
// immediately; the live subscription's next snapshot supersedes the append.
func (s *Chat) Send(ctx context.Context, sender models.User, input SendMessageInput) (*models.ChatMessage, error) {
	if err := s.validate.Struct(input); err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrValidation.Code, apperrors.ErrValidation.Status, "invalid message")
	}
	msgType := input.Type
	if msgType == "" {
		msgType = models.MessageText
	}
	message := models.ChatMessage{
		SenderID:     sender.ID,
		SenderName:   sender.Name,
		SenderAvatar: sender.Avatar,
		Content:      input.Content,
		Timestamp:    s.now().UTC(),
		Type:         msgType,
		ReplyTo:      input.ReplyTo,
	}
	id, err := s.gw.Add(ctx, CollectionChat, message)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrGateway.Code, apperrors.ErrGateway.Status, "send message")
	}
	message.ID = id

	current, _ := s.cache.snapshot()
	appended := make([]models.ChatMessage, 0, len(current)+1)
	appended = append(appended, current...)
	appended = append(appended, message)
	s.cache.replace(appended)

	return &message, nil
}

// ApplySnapshot lands a subscription-pushed batch, replacing the cache
// wholesale. Messages arrive ascending by timestamp from the gateway; the
// replacement preserves that order.
func (s *Chat) ApplySnapshot(docs []gateway.Document) {
	messages := decodeMessages(docs, s.logger)
	s.cache.replace(messages)
}

func decodeMessages(docs []gateway.Document, logger *zap.Logger) []models.ChatMessage {
	messages := make([]models.ChatMessage, 0, len(docs))
	for _, doc := range docs {
		var message models.ChatMessage
		if err := doc.Decode(&message); err != nil {
			logger.Warn("skipping malformed chat message", zap.String("id", doc.ID), zap.Error(err))
			continue
		}
		if message.ID == "" {
			message.ID = doc.ID
		}
		if message.Type == "" {
			message.Type = models.MessageText
		}
		messages = append(messages, message)
	}
	return messages
}

func reverse(messages []models.ChatMessage) {
	for i, j := 0, len(messages)-1; i < j; i, j = i+1, j-1 {
		messages[i], messages[j] = messages[j], messages[i]
	}
}
