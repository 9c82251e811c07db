package models

import "time"

// MessageType identifies the payload kind of a chat message.
type MessageType string

const (
	MessageText  MessageType = "text"
	MessageImage MessageType = "image"
	MessageFile  MessageType = "file"
)

// ChatMessage is an append-only club chat record. Never mutated or deleted
// once created; always presented oldest-first.
type ChatMessage struct {
	ID           string      `json:"id"`
	SenderID     string      `json:"senderId"`
	SenderName   string      `json:"senderName"`
	SenderAvatar string      `json:"senderAvatar,omitempty"`
	Content      string      `json:"content"`
	Timestamp    time.Time   `json:"timestamp"`
	Type         MessageType `json:"type"`
	ReplyTo      string      `json:"replyTo,omitempty"`
}
