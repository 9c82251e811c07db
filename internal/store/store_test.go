package store

import (
	"context"
	"errors"
	"sync"

	"github.com/isshoni-club/club-api/internal/gateway"
)

// flakyGateway wraps the in-memory store and fails selected methods on
// demand, for exercising the stale-on-failure and discard paths.
type flakyGateway struct {
	*gateway.Memory

	mu          sync.Mutex
	failGetAll  bool
	failGetByID bool
	failWrites  bool
	getAllHook  func()
}

func newFlakyGateway() *flakyGateway {
	return &flakyGateway{Memory: gateway.NewMemory()}
}

var errGatewayDown = errors.New("gateway down")

func (f *flakyGateway) setFailGetAll(fail bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failGetAll = fail
}

func (f *flakyGateway) setFailGetByID(fail bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failGetByID = fail
}

func (f *flakyGateway) setFailWrites(fail bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failWrites = fail
}

func (f *flakyGateway) GetAll(ctx context.Context, collection string) ([]gateway.Document, error) {
	f.mu.Lock()
	fail := f.failGetAll
	hook := f.getAllHook
	f.mu.Unlock()
	if hook != nil {
		hook()
	}
	if fail {
		return nil, errGatewayDown
	}
	return f.Memory.GetAll(ctx, collection)
}

func (f *flakyGateway) GetByID(ctx context.Context, collection, id string) (*gateway.Document, error) {
	f.mu.Lock()
	fail := f.failGetByID
	f.mu.Unlock()
	if fail {
		return nil, errGatewayDown
	}
	return f.Memory.GetByID(ctx, collection, id)
}

func (f *flakyGateway) Add(ctx context.Context, collection string, value interface{}) (string, error) {
	f.mu.Lock()
	fail := f.failWrites
	f.mu.Unlock()
	if fail {
		return "", errGatewayDown
	}
	return f.Memory.Add(ctx, collection, value)
}

func (f *flakyGateway) SetByID(ctx context.Context, collection, id string, value interface{}) error {
	f.mu.Lock()
	fail := f.failWrites
	f.mu.Unlock()
	if fail {
		return errGatewayDown
	}
	return f.Memory.SetByID(ctx, collection, id, value)
}

func (f *flakyGateway) UpdateByID(ctx context.Context, collection, id string, partial interface{}) error {
	f.mu.Lock()
	fail := f.failWrites
	f.mu.Unlock()
	if fail {
		return errGatewayDown
	}
	return f.Memory.UpdateByID(ctx, collection, id, partial)
}

func (f *flakyGateway) DeleteByID(ctx context.Context, collection, id string) error {
	f.mu.Lock()
	fail := f.failWrites
	f.mu.Unlock()
	if fail {
		return errGatewayDown
	}
	return f.Memory.DeleteByID(ctx, collection, id)
}
