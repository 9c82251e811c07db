// Package sync coordinates cross-store refreshes: parallel all-settle
// fetches, coalescing of rapid-fire refresh requests, deferred refreshes via
// the job queue, and the live chat subscription pump.
package sync

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/isshoni-club/club-api/internal/gateway"
	"github.com/isshoni-club/club-api/internal/store"
	"github.com/isshoni-club/club-api/pkg/config"
	"github.com/isshoni-club/club-api/pkg/jobs"
)

// Store names used in refresh results and metrics labels.
const (
	StoreResources   = "resources"
	StoreAssignments = "assignments"
	StoreEvents      = "events"
	StoreLeaderboard = "leaderboard"
	StoreChat        = "chat"
	StoreClub        = "club"
)

// Stores bundles the domain stores the orchestrator drives.
type Stores struct {
	Resources   *store.Resources
	Assignments *store.Assignments
	Events      *store.Events
	Leaderboard *store.Leaderboard
	Chat        *store.Chat
	Club        *store.Club
}

// RefreshResult maps store name to its fetch error, nil on success. Every
// requested store appears; one failure never aborts the others.
type RefreshResult map[string]error

// Failed lists the stores whose refresh failed, sorted by name.
func (r RefreshResult) Failed() []string {
	var failed []string
	for name, err := range r {
		if err != nil {
			failed = append(failed, name)
		}
	}
	sort.Strings(failed)
	return failed
}

type refreshCall struct {
	done   chan struct{}
	result RefreshResult
}

// Orchestrator owns the refresh lifecycle. Concurrent RefreshAll calls join
// the in-flight run, and calls arriving within the debounce window after a
// completed run reuse its result instead of hitting the gateway again.
type Orchestrator struct {
	stores Stores
	gw     gateway.Store
	queue  *jobs.Queue
	logger *zap.Logger

	opTimeout time.Duration
	debounce  time.Duration

	mu       sync.Mutex
	inflight *refreshCall
	lastCall *refreshCall
	lastDone time.Time

	subMu  sync.Mutex
	subCtx context.CancelFunc
	subWG  sync.WaitGroup

	refreshes     *prometheus.CounterVec
	chatSnapshots prometheus.Counter
}

func NewOrchestrator(stores Stores, gw gateway.Store, cfg config.SyncConfig, queue *jobs.Queue, logger *zap.Logger, reg prometheus.Registerer) *Orchestrator {
	if logger == nil {
		logger = zap.NewNop()
	}
	opTimeout := cfg.OpTimeout
	if opTimeout <= 0 {
		opTimeout = 10 * time.Second
	}

	o := &Orchestrator{
		stores:    stores,
		gw:        gw,
		queue:     queue,
		logger:    logger,
		opTimeout: opTimeout,
		debounce:  cfg.RefreshDebounce,
		refreshes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "club_store_refresh_total",
			Help: "Store refreshes by store name and outcome.",
		}, []string{"store", "outcome"}),
		chatSnapshots: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "club_chat_snapshots_total",
			Help: "Snapshots delivered by the live chat subscription.",
		}),
	}
	if reg != nil {
		reg.MustRegister(o.refreshes, o.chatSnapshots)
	}
	return o
}

// RefreshAll refreshes every store in parallel and reports per-store
// outcomes.
func (o *Orchestrator) RefreshAll(ctx context.Context) RefreshResult {
	return o.coalesced(ctx, o.allRefreshers())
}

// RefreshDashboard refreshes the four stores backing the dashboard view.
func (o *Orchestrator) RefreshDashboard(ctx context.Context) RefreshResult {
	return o.runParallel(ctx, []refresher{
		{StoreResources, o.fetchResources},
		{StoreAssignments, o.fetchAssignments},
		{StoreEvents, o.fetchEvents},
		{StoreLeaderboard, o.fetchLeaderboard},
	})
}

// ScheduleRefresh enqueues a deferred refresh of one store on the job queue.
func (o *Orchestrator) ScheduleRefresh(name string) error {
	fn, ok := o.refresherByName(name)
	if !ok {
		return errUnknownStore(name)
	}
	return o.queue.Enqueue(jobs.Task{
		Name: "refresh-" + name,
		Run: func(ctx context.Context) error {
			opCtx, cancel := context.WithTimeout(ctx, o.opTimeout)
			defer cancel()
			err := fn(opCtx)
			o.observe(name, err)
			return err
		},
	})
}

// coalesced joins an in-flight run or reuses a just-finished result inside
// the debounce window.
func (o *Orchestrator) coalesced(ctx context.Context, refreshers []refresher) RefreshResult {
	o.mu.Lock()
	if o.inflight != nil {
		call := o.inflight
		o.mu.Unlock()
		select {
		case <-call.done:
			return call.result
		case <-ctx.Done():
			return RefreshResult{}
		}
	}
	if o.lastCall != nil && o.debounce > 0 && time.Since(o.lastDone) < o.debounce {
		result := o.lastCall.result
		o.mu.Unlock()
		return result
	}
	call := &refreshCall{done: make(chan struct{})}
	o.inflight = call
	o.mu.Unlock()

	call.result = o.runParallel(ctx, refreshers)
	close(call.done)

	o.mu.Lock()
	o.inflight = nil
	o.lastCall = call
	o.lastDone = time.Now()
	o.mu.Unlock()
	return call.result
}

type refresher struct {
	name string
	fn   func(context.Context) error
}

// runParallel fetches all stores concurrently with a per-operation timeout
// and waits for every one to settle.
func (o *Orchestrator) runParallel(ctx context.Context, refreshers []refresher) RefreshResult {
	result := make(RefreshResult, len(refreshers))
	var (
		mu sync.Mutex
		wg sync.WaitGroup
	)
	for _, r := range refreshers {
		wg.Add(1)
		go func(r refresher) {
			defer wg.Done()
			opCtx, cancel := context.WithTimeout(ctx, o.opTimeout)
			defer cancel()
			err := r.fn(opCtx)
			o.observe(r.name, err)
			mu.Lock()
			result[r.name] = err
			mu.Unlock()
		}(r)
	}
	wg.Wait()
	if failed := result.Failed(); len(failed) > 0 {
		o.logger.Warn("refresh completed with failures", zap.Strings("stores", failed))
	}
	return result
}

func (o *Orchestrator) observe(name string, err error) {
	outcome := "success"
	if err != nil {
		outcome = "failure"
	}
	o.refreshes.WithLabelValues(name, outcome).Inc()
}

func (o *Orchestrator) allRefreshers() []refresher {
	return []refresher{
		{StoreResources, o.fetchResources},
		{StoreAssignments, o.fetchAssignments},
		{StoreEvents, o.fetchEvents},
		{StoreLeaderboard, o.fetchLeaderboard},
		{StoreChat, o.fetchChat},
		{StoreClub, o.fetchClub},
	}
}

func (o *Orchestrator) refresherByName(name string) (func(context.Context) error, bool) {
	for _, r := range o.allRefreshers() {
		if r.name == name {
			return r.fn, true
		}
	}
	return nil, false
}

func (o *Orchestrator) fetchResources(ctx context.Context) error {
	_, err := o.stores.Resources.Fetch(ctx)
	return err
}

func (o *Orchestrator) fetchAssignments(ctx context.Context) error {
	_, err := o.stores.Assignments.Fetch(ctx)
	return err
}

func (o *Orchestrator) fetchEvents(ctx context.Context) error {
	_, err := o.stores.Events.Fetch(ctx)
	return err
}

func (o *Orchestrator) fetchLeaderboard(ctx context.Context) error {
	_, err := o.stores.Leaderboard.Fetch(ctx)
	return err
}

func (o *Orchestrator) fetchChat(ctx context.Context) error {
	_, err := o.stores.Chat.Fetch(ctx)
	return err
}

func (o *Orchestrator) fetchClub(ctx context.Context) error {
	_, err := o.stores.Club.Fetch(ctx)
	return err
}
