package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestClubFetchCreatesDefaultsOnFirstRead(t *testing.T) {
	gw := newFlakyGateway()
	s := NewClub(gw, nil, zap.NewNop())
	ctx := context.Background()

	info, err := s.Fetch(ctx)
	require.NoError(t, err)
	assert.Equal(t, "Isshoni Nihongo Club", info.Name)
	assert.Equal(t, "Yuki Tanaka", info.Officers.President)

	docs, err := gw.GetAll(ctx, CollectionClub)
	require.NoError(t, err)
	require.Len(t, docs, 1)
}

func TestClubFetchTwiceCreatesExactlyOneRecord(t *testing.T) {
	gw := newFlakyGateway()
	s := NewClub(gw, nil, zap.NewNop())
	ctx := context.Background()

	first, err := s.Fetch(ctx)
	require.NoError(t, err)
	second, err := s.Fetch(ctx)
	require.NoError(t, err)

	assert.Equal(t, first.Name, second.Name)

	docs, err := gw.GetAll(ctx, CollectionClub)
	require.NoError(t, err)
	require.Len(t, docs, 1, "second fetch reads, never re-creates")
}

func TestClubUpdatePartialMerge(t *testing.T) {
	gw := newFlakyGateway()
	s := NewClub(gw, nil, zap.NewNop())
	ctx := context.Background()

	_, err := s.Fetch(ctx)
	require.NoError(t, err)

	schedule := "Every Monday 5:00 PM in Room 105"
	require.NoError(t, s.Update(ctx, ClubUpdate{MeetingSchedule: &schedule}))

	info, _ := s.Snapshot()
	assert.Equal(t, schedule, info.MeetingSchedule)
	assert.Equal(t, "Isshoni Nihongo Club", info.Name, "unmentioned fields survive the merge")
}

func TestClubUpdateBeforeFirstFetchCreatesThenMerges(t *testing.T) {
	gw := newFlakyGateway()
	s := NewClub(gw, nil, zap.NewNop())
	ctx := context.Background()

	name := "Renamed Club"
	require.NoError(t, s.Update(ctx, ClubUpdate{Name: &name}))

	info, err := s.Fetch(ctx)
	require.NoError(t, err)
	assert.Equal(t, "Renamed Club", info.Name)
	assert.Equal(t, "Yuki Tanaka", info.Officers.President, "defaults backfill the untouched fields")
}

func TestClubFetchFailureKeepsStaleData(t *testing.T) {
	gw := newFlakyGateway()
	s := NewClub(gw, nil, zap.NewNop())
	ctx := context.Background()

	_, err := s.Fetch(ctx)
	require.NoError(t, err)

	gw.setFailGetByID(true)
	_, err = s.Fetch(ctx)
	require.Error(t, err)

	info, status := s.Snapshot()
	assert.Equal(t, "Isshoni Nihongo Club", info.Name)
	assert.NotEmpty(t, status.Error)
}
