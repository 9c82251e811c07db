package store

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func eventInput(title string, date time.Time) EventInput {
	return EventInput{
		Title:    title,
		Date:     date,
		Location: "Room 201",
	}
}

func TestEventsAttendToggleRoundTrips(t *testing.T) {
	gw := newFlakyGateway()
	s := NewEvents(gw, nil, zap.NewNop())
	ctx := context.Background()

	created, err := s.Add(ctx, "admin-1", eventInput("Movie Night", time.Now().Add(24*time.Hour)))
	require.NoError(t, err)

	joined, err := s.Attend(ctx, created.ID, "stu-1")
	require.NoError(t, err)
	assert.Contains(t, joined.Attendees, "stu-1")

	left, err := s.Attend(ctx, created.ID, "stu-1")
	require.NoError(t, err)
	assert.NotContains(t, left.Attendees, "stu-1")
	assert.Equal(t, created.Attendees, left.Attendees, "double toggle restores the original set")
}

func TestEventsAttendNoDuplicates(t *testing.T) {
	gw := newFlakyGateway()
	s := NewEvents(gw, nil, zap.NewNop())
	ctx := context.Background()

	created, err := s.Add(ctx, "admin-1", eventInput("Movie Night", time.Now().Add(24*time.Hour)))
	require.NoError(t, err)

	for i := 0; i < 3; i++ {
		_, err = s.Attend(ctx, created.ID, "stu-1")
		require.NoError(t, err)
	}

	events, _ := s.Snapshot()
	require.Len(t, events, 1)
	count := 0
	for _, attendee := range events[0].Attendees {
		if attendee == "stu-1" {
			count++
		}
	}
	assert.LessOrEqual(t, count, 1)
}

func TestEventsAttendFullEventRejectsJoin(t *testing.T) {
	gw := newFlakyGateway()
	s := NewEvents(gw, nil, zap.NewNop())
	ctx := context.Background()

	one := 1
	input := eventInput("Tiny Room", time.Now().Add(24*time.Hour))
	input.MaxAttendees = &one
	created, err := s.Add(ctx, "admin-1", input)
	require.NoError(t, err)

	_, err = s.Attend(ctx, created.ID, "stu-1")
	require.NoError(t, err)

	_, err = s.Attend(ctx, created.ID, "stu-2")
	assert.Error(t, err)

	// leaving a full event still works
	_, err = s.Attend(ctx, created.ID, "stu-1")
	require.NoError(t, err)
}

func TestEventsAttendMissingEvent(t *testing.T) {
	s := NewEvents(newFlakyGateway(), nil, zap.NewNop())

	_, err := s.Attend(context.Background(), "missing", "stu-1")
	assert.Error(t, err)
}

func TestEventsViewClassifiesPastAndAttendance(t *testing.T) {
	gw := newFlakyGateway()
	s := NewEvents(gw, nil, zap.NewNop())
	ctx := context.Background()

	past, err := s.Add(ctx, "admin-1", eventInput("Last Week", time.Now().Add(-7*24*time.Hour)))
	require.NoError(t, err)
	_, err = s.Add(ctx, "admin-1", eventInput("Next Week", time.Now().Add(7*24*time.Hour)))
	require.NoError(t, err)
	_, err = s.Attend(ctx, past.ID, "stu-1")
	require.NoError(t, err)

	views, _ := s.View("stu-1")
	require.Len(t, views, 2)
	assert.False(t, views[0].IsPast)
	assert.False(t, views[0].IsAttending)
	assert.True(t, views[1].IsPast)
	assert.True(t, views[1].IsAttending)
}

func TestEventsFetchOrdersByDate(t *testing.T) {
	gw := newFlakyGateway()
	s := NewEvents(gw, nil, zap.NewNop())
	ctx := context.Background()

	_, err := s.Add(ctx, "admin-1", eventInput("Later", time.Now().Add(48*time.Hour)))
	require.NoError(t, err)
	_, err = s.Add(ctx, "admin-1", eventInput("Sooner", time.Now().Add(24*time.Hour)))
	require.NoError(t, err)

	events, err := s.Fetch(ctx)
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, "Later", events[0].Title)
}

func TestEventsFetchKeepsStaleDataOnFailure(t *testing.T) {
	gw := newFlakyGateway()
	s := NewEvents(gw, nil, zap.NewNop())
	ctx := context.Background()

	_, err := s.Add(ctx, "admin-1", eventInput("Movie Night", time.Now().Add(24*time.Hour)))
	require.NoError(t, err)

	gw.setFailGetAll(true)
	_, err = s.Fetch(ctx)
	require.Error(t, err)

	events, status := s.Snapshot()
	assert.Len(t, events, 1)
	assert.NotEmpty(t, status.Error)
}
