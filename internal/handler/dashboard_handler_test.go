package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/isshoni-club/club-api/internal/gateway"
	"github.com/isshoni-club/club-api/internal/store"
	"github.com/isshoni-club/club-api/internal/sync"
	"github.com/isshoni-club/club-api/pkg/config"
	"github.com/isshoni-club/club-api/pkg/jobs"
)

func newDashboardHandler(t *testing.T) (*DashboardHandler, sync.Stores, gateway.Store) {
	t.Helper()
	gw := gateway.NewMemory()
	stores := sync.Stores{
		Resources:   store.NewResources(gw, nil, noopLogger()),
		Assignments: store.NewAssignments(gw, nil, noopLogger()),
		Events:      store.NewEvents(gw, nil, noopLogger()),
		Leaderboard: store.NewLeaderboard(gw, noopLogger()),
		Chat:        store.NewChat(gw, nil, noopLogger()),
		Club:        store.NewClub(gw, nil, noopLogger()),
	}
	queue := jobs.NewQueue("test-refresh", jobs.QueueConfig{Logger: noopLogger()})
	queue.Start(context.Background())

	cfg := config.SyncConfig{OpTimeout: 5 * time.Second, RefreshDebounce: time.Millisecond}
	orchestrator := sync.NewOrchestrator(stores, gw, cfg, queue, noopLogger(), prometheus.NewRegistry())
	t.Cleanup(orchestrator.Shutdown)

	return NewDashboardHandler(orchestrator, stores), stores, gw
}

func TestDashboardHandlerRefreshReportsEveryStore(t *testing.T) {
	h, _, _ := newDashboardHandler(t)

	c, rec := testContext(t, http.MethodPost, "/sync/refresh", nil)
	asStudent(c, "student-1")
	h.Refresh(c)

	require.Equal(t, http.StatusOK, rec.Code)
	var report struct {
		Stores map[string]string `json:"stores"`
		Failed []string          `json:"failed"`
	}
	require.NoError(t, json.Unmarshal(decodeEnvelope(t, rec).Data, &report))
	assert.Len(t, report.Stores, 6)
	assert.Empty(t, report.Failed)
	for name, outcome := range report.Stores {
		assert.Equal(t, "ok", outcome, name)
	}
}

func TestDashboardHandlerAggregatesForCaller(t *testing.T) {
	h, stores, gw := newDashboardHandler(t)
	seedStudent(t, gw, "student-1", "Aiko", 40)

	_, err := stores.Assignments.Add(context.Background(), "admin-1", store.AssignmentInput{
		Title:     "Grammar quiz",
		DueDate:   time.Now().Add(24 * time.Hour).UTC(),
		MaxPoints: 100,
		Type:      "text",
	})
	require.NoError(t, err)

	c, rec := testContext(t, http.MethodGet, "/dashboard", nil)
	asStudent(c, "student-1")
	h.Dashboard(c)

	require.Equal(t, http.StatusOK, rec.Code)
	var data struct {
		Pending     []json.RawMessage `json:"pendingAssignments"`
		Leaderboard []json.RawMessage `json:"leaderboard"`
	}
	require.NoError(t, json.Unmarshal(decodeEnvelope(t, rec).Data, &data))
	assert.Len(t, data.Pending, 1)
	assert.Len(t, data.Leaderboard, 1)
}

func TestDashboardHandlerDashboardWithoutClaims(t *testing.T) {
	h, _, _ := newDashboardHandler(t)

	c, rec := testContext(t, http.MethodGet, "/dashboard", nil)
	h.Dashboard(c)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestDashboardHandlerScheduleUnknownStore(t *testing.T) {
	h, _, _ := newDashboardHandler(t)

	c, rec := testContext(t, http.MethodPost, "/sync/refresh/nope", nil)
	asStudent(c, "student-1")
	setParam(c, "store", "nope")
	h.Schedule(c)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestDashboardHandlerScheduleKnownStore(t *testing.T) {
	h, _, _ := newDashboardHandler(t)

	c, rec := testContext(t, http.MethodPost, "/sync/refresh/resources", nil)
	asStudent(c, "student-1")
	setParam(c, "store", sync.StoreResources)
	h.Schedule(c)

	assert.Equal(t, http.StatusAccepted, rec.Code)
}
