package store

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/isshoni-club/club-api/internal/gateway"
	"github.com/isshoni-club/club-api/internal/models"
)

func chatSender(id, name string) models.User {
	return models.User{ID: id, Name: name, Role: models.RoleStudent}
}

func TestChatSendAppendsToCache(t *testing.T) {
	gw := newFlakyGateway()
	s := NewChat(gw, nil, zap.NewNop())
	ctx := context.Background()

	sent, err := s.Send(ctx, chatSender("stu-1", "Yuki"), SendMessageInput{Content: "konnichiwa"})
	require.NoError(t, err)
	assert.NotEmpty(t, sent.ID)
	assert.Equal(t, models.MessageText, sent.Type)

	messages, _ := s.Snapshot()
	require.Len(t, messages, 1)
	assert.Equal(t, "konnichiwa", messages[0].Content)
}

func TestChatFetchNormalizesOldestFirst(t *testing.T) {
	gw := newFlakyGateway()
	s := NewChat(gw, nil, zap.NewNop())
	ctx := context.Background()

	base := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	for i := 0; i < 3; i++ {
		s.now = func() time.Time { return base.Add(time.Duration(i) * time.Minute) }
		_, err := s.Send(ctx, chatSender("stu-1", "Yuki"), SendMessageInput{
			Content: fmt.Sprintf("message %d", i),
		})
		require.NoError(t, err)
	}

	messages, err := s.Fetch(ctx)
	require.NoError(t, err)
	require.Len(t, messages, 3)
	for i := 1; i < len(messages); i++ {
		assert.False(t, messages[i].Timestamp.Before(messages[i-1].Timestamp),
			"timestamps must be non-decreasing oldest-first")
	}
	assert.Equal(t, "message 0", messages[0].Content)
}

func TestChatFetchCapsHistoryToNewest(t *testing.T) {
	gw := newFlakyGateway()
	s := NewChat(gw, nil, zap.NewNop())
	ctx := context.Background()

	base := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	for i := 0; i < fetchLimit+10; i++ {
		ts := base.Add(time.Duration(i) * time.Second)
		s.now = func() time.Time { return ts }
		_, err := s.Send(ctx, chatSender("stu-1", "Yuki"), SendMessageInput{
			Content: fmt.Sprintf("message %d", i),
		})
		require.NoError(t, err)
	}

	messages, err := s.Fetch(ctx)
	require.NoError(t, err)
	require.Len(t, messages, fetchLimit)
	assert.Equal(t, "message 10", messages[0].Content, "oldest messages beyond the cap are dropped")
	assert.Equal(t, fmt.Sprintf("message %d", fetchLimit+9), messages[len(messages)-1].Content)
}

func TestChatApplySnapshotReplacesWholesale(t *testing.T) {
	gw := newFlakyGateway()
	s := NewChat(gw, nil, zap.NewNop())
	ctx := context.Background()

	_, err := s.Send(ctx, chatSender("stu-1", "Yuki"), SendMessageInput{Content: "local append"})
	require.NoError(t, err)

	pushed := []gateway.Document{
		{ID: "m1", Data: mustJSON(t, models.ChatMessage{ID: "m1", Content: "remote 1", Timestamp: time.Now()})},
		{ID: "m2", Data: mustJSON(t, models.ChatMessage{ID: "m2", Content: "remote 2", Timestamp: time.Now()})},
	}
	s.ApplySnapshot(pushed)

	messages, _ := s.Snapshot()
	require.Len(t, messages, 2)
	assert.Equal(t, "remote 1", messages[0].Content)
}

func TestChatSnapshotSupersedesInFlightFetch(t *testing.T) {
	s := NewChat(newFlakyGateway(), nil, zap.NewNop())

	ticket := s.cache.begin()
	s.ApplySnapshot([]gateway.Document{
		{ID: "m1", Data: mustJSON(t, models.ChatMessage{ID: "m1", Content: "pushed"})},
	})

	landed := s.cache.complete(ticket, []models.ChatMessage{})
	assert.False(t, landed, "a pushed snapshot outranks an older fetch response")

	messages, _ := s.Snapshot()
	require.Len(t, messages, 1)
	assert.Equal(t, "pushed", messages[0].Content)
}

func TestChatSendRejectsEmptyContent(t *testing.T) {
	s := NewChat(newFlakyGateway(), nil, zap.NewNop())

	_, err := s.Send(context.Background(), chatSender("stu-1", "Yuki"), SendMessageInput{Content: ""})
	assert.Error(t, err)
}

func TestChatFetchKeepsStaleDataOnFailure(t *testing.T) {
	gw := newFlakyGateway()
	s := NewChat(gw, nil, zap.NewNop())
	ctx := context.Background()

	_, err := s.Send(ctx, chatSender("stu-1", "Yuki"), SendMessageInput{Content: "hello"})
	require.NoError(t, err)

	gw.setFailGetAll(true)
	_, err = s.Fetch(ctx)
	require.Error(t, err)

	messages, status := s.Snapshot()
	assert.Len(t, messages, 1)
	assert.NotEmpty(t, status.Error)
}

func mustJSON(t *testing.T, v interface{}) []byte {
	t.Helper()
	raw, err := gateway.Marshal(v)
	require.NoError(t, err)
	return raw
}
