package gateway

import (
	"context"
	"time"
)

// OpObserver receives timing for gateway operations.
type OpObserver interface {
	ObserveGatewayOp(op, collection string, duration time.Duration, err error)
}

// Instrumented decorates a Store with per-operation metrics.
type Instrumented struct {
	inner Store
	obs   OpObserver
}

func NewInstrumented(inner Store, obs OpObserver) *Instrumented {
	return &Instrumented{inner: inner, obs: obs}
}

func (s *Instrumented) GetAll(ctx context.Context, collection string) ([]Document, error) {
	start := time.Now()
	docs, err := s.inner.GetAll(ctx, collection)
	s.obs.ObserveGatewayOp("get_all", collection, time.Since(start), err)
	return docs, err
}

func (s *Instrumented) GetByID(ctx context.Context, collection, id string) (*Document, error) {
	start := time.Now()
	doc, err := s.inner.GetByID(ctx, collection, id)
	if err == ErrNotFound {
		s.obs.ObserveGatewayOp("get_by_id", collection, time.Since(start), nil)
	} else {
		s.obs.ObserveGatewayOp("get_by_id", collection, time.Since(start), err)
	}
	return doc, err
}

func (s *Instrumented) Add(ctx context.Context, collection string, value interface{}) (string, error) {
	start := time.Now()
	id, err := s.inner.Add(ctx, collection, value)
	s.obs.ObserveGatewayOp("add", collection, time.Since(start), err)
	return id, err
}

func (s *Instrumented) SetByID(ctx context.Context, collection, id string, value interface{}) error {
	start := time.Now()
	err := s.inner.SetByID(ctx, collection, id, value)
	s.obs.ObserveGatewayOp("set_by_id", collection, time.Since(start), err)
	return err
}

func (s *Instrumented) UpdateByID(ctx context.Context, collection, id string, partial interface{}) error {
	start := time.Now()
	err := s.inner.UpdateByID(ctx, collection, id, partial)
	s.obs.ObserveGatewayOp("update_by_id", collection, time.Since(start), err)
	return err
}

func (s *Instrumented) DeleteByID(ctx context.Context, collection, id string) error {
	start := time.Now()
	err := s.inner.DeleteByID(ctx, collection, id)
	s.obs.ObserveGatewayOp("delete_by_id", collection, time.Since(start), err)
	return err
}

func (s *Instrumented) Subscribe(ctx context.Context, collection, orderField string, ascending bool) (*Subscription, error) {
	return s.inner.Subscribe(ctx, collection, orderField, ascending)
}

func (s *Instrumented) Close() error {
	return s.inner.Close()
}

var _ Store = (*Instrumented)(nil)
