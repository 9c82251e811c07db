package gateway

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/google/uuid"
)

// Memory is an in-process Store used by the memory driver and by tests. It
// keeps insertion order per collection and fans out snapshots to subscribers
// on every write.
type Memory struct {
	// SubscribeBuffer sizes each subscriber's snapshot channel. Zero means
	// one slot, keeping only the latest undelivered snapshot.
	SubscribeBuffer int

	mu          sync.RWMutex
	collections map[string]*memoryCollection
	closed      bool
}

type memoryCollection struct {
	docs  map[string]json.RawMessage
	order []string
	subs  map[*memorySubscriber]struct{}
}

type memorySubscriber struct {
	orderField string
	ascending  bool
	snapshots  chan []Document
}

// NewMemory returns an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{collections: make(map[string]*memoryCollection)}
}

func (m *Memory) collection(name string) *memoryCollection {
	coll, ok := m.collections[name]
	if !ok {
		coll = &memoryCollection{
			docs: make(map[string]json.RawMessage),
			subs: make(map[*memorySubscriber]struct{}),
		}
		m.collections[name] = coll
	}
	return coll
}

func (c *memoryCollection) snapshot() []Document {
	docs := make([]Document, 0, len(c.order))
	for _, id := range c.order {
		raw := c.docs[id]
		body := make(json.RawMessage, len(raw))
		copy(body, raw)
		docs = append(docs, Document{ID: id, Data: body})
	}
	return docs
}

// notify delivers a fresh snapshot to every subscriber. When a subscriber's
// buffer is full the oldest pending snapshot is dropped in favor of the newer
// one, so slow consumers converge on the latest state.
func (c *memoryCollection) notify() {
	for sub := range c.subs {
		docs := c.snapshot()
		SortDocuments(docs, sub.orderField, sub.ascending)
		select {
		case sub.snapshots <- docs:
		default:
			select {
			case <-sub.snapshots:
			default:
			}
			sub.snapshots <- docs
		}
	}
}

func (m *Memory) GetAll(ctx context.Context, collection string) ([]Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	coll, ok := m.collections[collection]
	if !ok {
		return []Document{}, nil
	}
	return coll.snapshot(), nil
}

func (m *Memory) GetByID(ctx context.Context, collection, id string) (*Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	coll, ok := m.collections[collection]
	if !ok {
		return nil, ErrNotFound
	}
	raw, ok := coll.docs[id]
	if !ok {
		return nil, ErrNotFound
	}
	body := make(json.RawMessage, len(raw))
	copy(body, raw)
	return &Document{ID: id, Data: body}, nil
}

func (m *Memory) Add(ctx context.Context, collection string, value interface{}) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	raw, err := Marshal(value)
	if err != nil {
		return "", err
	}
	id := uuid.New().String()
	m.mu.Lock()
	defer m.mu.Unlock()
	coll := m.collection(collection)
	coll.docs[id] = raw
	coll.order = append(coll.order, id)
	coll.notify()
	return id, nil
}

func (m *Memory) SetByID(ctx context.Context, collection, id string, value interface{}) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	raw, err := Marshal(value)
	if err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	coll := m.collection(collection)
	if _, exists := coll.docs[id]; !exists {
		coll.order = append(coll.order, id)
	}
	coll.docs[id] = raw
	coll.notify()
	return nil
}

func (m *Memory) UpdateByID(ctx context.Context, collection, id string, partial interface{}) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	patch, err := Marshal(partial)
	if err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	coll, ok := m.collections[collection]
	if !ok {
		return ErrNotFound
	}
	base, ok := coll.docs[id]
	if !ok {
		return ErrNotFound
	}
	merged, err := MergePatch(base, patch)
	if err != nil {
		return err
	}
	coll.docs[id] = merged
	coll.notify()
	return nil
}

func (m *Memory) DeleteByID(ctx context.Context, collection, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	coll, ok := m.collections[collection]
	if !ok {
		return nil
	}
	if _, exists := coll.docs[id]; !exists {
		return nil
	}
	delete(coll.docs, id)
	for i, existing := range coll.order {
		if existing == id {
			coll.order = append(coll.order[:i], coll.order[i+1:]...)
			break
		}
	}
	coll.notify()
	return nil
}

func (m *Memory) Subscribe(ctx context.Context, collection, orderField string, ascending bool) (*Subscription, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	sub := &memorySubscriber{
		orderField: orderField,
		ascending:  ascending,
		snapshots:  make(chan []Document, subscribeBuffer(m.SubscribeBuffer)),
	}

	// The initial snapshot is buffered under the lock, while the channel is
	// still guaranteed empty. Registering the subscriber in the same critical
	// section means every subsequent write flows through notify, which
	// replaces a pending snapshot instead of blocking.
	m.mu.Lock()
	coll := m.collection(collection)
	initial := coll.snapshot()
	SortDocuments(initial, orderField, ascending)
	sub.snapshots <- initial
	coll.subs[sub] = struct{}{}
	m.mu.Unlock()

	subCtx, cancel := context.WithCancel(ctx)
	out := make(chan []Document)
	go func() {
		defer close(out)
		defer func() {
			m.mu.Lock()
			delete(coll.subs, sub)
			m.mu.Unlock()
		}()
		for {
			select {
			case <-subCtx.Done():
				return
			case docs := <-sub.snapshots:
				select {
				case out <- docs:
				case <-subCtx.Done():
					return
				}
			}
		}
	}()
	return NewSubscription(out, cancel), nil
}

func (m *Memory) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}
