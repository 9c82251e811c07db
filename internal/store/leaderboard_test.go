package store

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/isshoni-club/club-api/internal/models"
)

func seedStudentWithPoints(t *testing.T, gw *flakyGateway, id, name string, points int) {
	t.Helper()
	user := models.NewStudent(id, id+"@example.com", name, time.Now().UTC())
	user.Student.Points = points
	require.NoError(t, gw.SetByID(context.Background(), CollectionUsers, id, user))
}

func TestLeaderboardRanksStudentsByPoints(t *testing.T) {
	gw := newFlakyGateway()
	s := NewLeaderboard(gw, zap.NewNop())
	ctx := context.Background()

	seedStudentWithPoints(t, gw, "stu-a", "Aiko", 40)
	seedStudentWithPoints(t, gw, "stu-b", "Hiroshi", 120)
	seedStudentWithPoints(t, gw, "stu-c", "Kenji", 5)

	entries, err := s.Fetch(ctx)
	require.NoError(t, err)
	require.Len(t, entries, 3)

	assert.Equal(t, "Hiroshi", entries[0].StudentName)
	assert.Equal(t, 1, entries[0].Rank)
	assert.Equal(t, "Aiko", entries[1].StudentName)
	assert.Equal(t, 2, entries[1].Rank)
	assert.Equal(t, "Kenji", entries[2].StudentName)
	assert.Equal(t, 3, entries[2].Rank)
}

func TestLeaderboardExcludesAdmins(t *testing.T) {
	gw := newFlakyGateway()
	s := NewLeaderboard(gw, zap.NewNop())
	ctx := context.Background()

	seedStudentWithPoints(t, gw, "stu-a", "Aiko", 40)
	admin := models.NewAdmin("adm-1", "sensei@example.com", "Sensei", time.Now().UTC())
	require.NoError(t, gw.SetByID(ctx, CollectionUsers, "adm-1", admin))

	entries, err := s.Fetch(ctx)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "Aiko", entries[0].StudentName)
}

func TestLeaderboardUpdateStudentPointsTriggersFullRerank(t *testing.T) {
	gw := newFlakyGateway()
	s := NewLeaderboard(gw, zap.NewNop())
	ctx := context.Background()

	seedStudentWithPoints(t, gw, "stu-a", "Aiko", 40)
	seedStudentWithPoints(t, gw, "stu-b", "Hiroshi", 120)

	_, err := s.Fetch(ctx)
	require.NoError(t, err)

	require.NoError(t, s.UpdateStudentPoints(ctx, "stu-a", 200, 4))

	entries, _ := s.Snapshot()
	require.Len(t, entries, 2)
	assert.Equal(t, "Aiko", entries[0].StudentName)
	assert.Equal(t, 1, entries[0].Rank)
	assert.Equal(t, 200, entries[0].Points)
	assert.Equal(t, 4, entries[0].AssignmentsCompleted)
	assert.Equal(t, 2, entries[1].Rank)
}

func TestLeaderboardUpdateStudentPointsIdempotent(t *testing.T) {
	gw := newFlakyGateway()
	s := NewLeaderboard(gw, zap.NewNop())
	ctx := context.Background()

	seedStudentWithPoints(t, gw, "stu-a", "Aiko", 40)

	require.NoError(t, s.UpdateStudentPoints(ctx, "stu-a", 55, 2))
	require.NoError(t, s.UpdateStudentPoints(ctx, "stu-a", 55, 2))

	entries, _ := s.Snapshot()
	require.Len(t, entries, 1)
	assert.Equal(t, 55, entries[0].Points)
	assert.Equal(t, 2, entries[0].AssignmentsCompleted)
}

func TestLeaderboardUpdateRejectsNonStudent(t *testing.T) {
	gw := newFlakyGateway()
	s := NewLeaderboard(gw, zap.NewNop())
	ctx := context.Background()

	admin := models.NewAdmin("adm-1", "sensei@example.com", "Sensei", time.Now().UTC())
	require.NoError(t, gw.SetByID(ctx, CollectionUsers, "adm-1", admin))

	err := s.UpdateStudentPoints(ctx, "adm-1", 10, 1)
	assert.Error(t, err)
}

func TestLeaderboardRankContiguous(t *testing.T) {
	gw := newFlakyGateway()
	s := NewLeaderboard(gw, zap.NewNop())
	ctx := context.Background()

	seedStudentWithPoints(t, gw, "stu-a", "Aiko", 50)
	seedStudentWithPoints(t, gw, "stu-b", "Hiroshi", 50)
	seedStudentWithPoints(t, gw, "stu-c", "Kenji", 50)

	entries, err := s.Fetch(ctx)
	require.NoError(t, err)
	for i, entry := range entries {
		assert.Equal(t, i+1, entry.Rank)
	}
}

func TestLeaderboardFetchKeepsStaleDataOnFailure(t *testing.T) {
	gw := newFlakyGateway()
	s := NewLeaderboard(gw, zap.NewNop())
	ctx := context.Background()

	seedStudentWithPoints(t, gw, "stu-a", "Aiko", 40)
	_, err := s.Fetch(ctx)
	require.NoError(t, err)

	gw.setFailGetAll(true)
	_, err = s.Fetch(ctx)
	require.Error(t, err)

	entries, status := s.Snapshot()
	assert.Len(t, entries, 1)
	assert.NotEmpty(t, status.Error)
}
