package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
)

// ErrNotFound is returned when a document id does not exist in a collection.
var ErrNotFound = errors.New("document not found")

// Document is one record in a named collection. Data holds the document body
// as a JSON object.
type Document struct {
	ID   string          `json:"id"`
	Data json.RawMessage `json:"data"`
}

// Decode unmarshals the document body into dest.
func (d Document) Decode(dest interface{}) error {
	if err := json.Unmarshal(d.Data, dest); err != nil {
		return fmt.Errorf("decode document %s: %w", d.ID, err)
	}
	return nil
}

// Store is the remote collection gateway: named collections of keyed JSON
// documents with change subscriptions. All writes are full confirmations;
// callers only see state after the store has accepted it.
type Store interface {
	// GetAll returns every document in the collection. Order is the driver's
	// natural order; callers needing a specific order sort client-side.
	GetAll(ctx context.Context, collection string) ([]Document, error)

	// GetByID returns a single document or ErrNotFound.
	GetByID(ctx context.Context, collection, id string) (*Document, error)

	// Add inserts a new document and returns its generated id.
	Add(ctx context.Context, collection string, value interface{}) (string, error)

	// UpdateByID shallow-merges the partial value into the stored document.
	// Returns ErrNotFound when the id does not exist.
	UpdateByID(ctx context.Context, collection, id string, partial interface{}) error

	// SetByID stores the document under a caller-chosen id, creating or fully
	// replacing it. Used for fixed-key documents (club info, users by uid).
	SetByID(ctx context.Context, collection, id string, value interface{}) error

	// DeleteByID removes a document. Deleting a missing id is not an error.
	DeleteByID(ctx context.Context, collection, id string) error

	// Subscribe opens a standing subscription delivering full-collection
	// snapshots ordered by orderField in the given direction, emitted once on
	// subscribe and again after every change. Close the subscription (or
	// cancel ctx) to stop delivery.
	Subscribe(ctx context.Context, collection, orderField string, ascending bool) (*Subscription, error)

	// Close releases driver resources.
	Close() error
}

// subscribeBuffer clamps a configured snapshot channel size. Every driver
// needs at least one slot for the drop-oldest delivery to work.
func subscribeBuffer(n int) int {
	if n < 1 {
		return 1
	}
	return n
}

// Subscription streams full-collection snapshots.
type Subscription struct {
	snapshots chan []Document
	cancel    context.CancelFunc
}

// NewSubscription wires a snapshot channel with its cancel func. Drivers use
// it; callers receive it from Store.Subscribe.
func NewSubscription(snapshots chan []Document, cancel context.CancelFunc) *Subscription {
	return &Subscription{snapshots: snapshots, cancel: cancel}
}

// Snapshots returns the snapshot delivery channel. The channel is closed when
// the subscription ends.
func (s *Subscription) Snapshots() <-chan []Document {
	return s.snapshots
}

// Close terminates the subscription.
func (s *Subscription) Close() {
	if s.cancel != nil {
		s.cancel()
	}
}

// Marshal encodes a value into a document body, rejecting non-object bodies.
func Marshal(value interface{}) (json.RawMessage, error) {
	raw, err := json.Marshal(value)
	if err != nil {
		return nil, fmt.Errorf("encode document: %w", err)
	}
	if len(raw) == 0 || raw[0] != '{' {
		return nil, fmt.Errorf("document body must be a JSON object")
	}
	return raw, nil
}

// MergePatch shallow-merges the partial object into base and returns the
// merged body. Top-level keys in partial overwrite base; other keys survive.
func MergePatch(base, partial json.RawMessage) (json.RawMessage, error) {
	var baseMap map[string]json.RawMessage
	if err := json.Unmarshal(base, &baseMap); err != nil {
		return nil, fmt.Errorf("decode base document: %w", err)
	}
	var patchMap map[string]json.RawMessage
	if err := json.Unmarshal(partial, &patchMap); err != nil {
		return nil, fmt.Errorf("decode partial document: %w", err)
	}
	for key, value := range patchMap {
		baseMap[key] = value
	}
	merged, err := json.Marshal(baseMap)
	if err != nil {
		return nil, fmt.Errorf("encode merged document: %w", err)
	}
	return merged, nil
}

// SortDocuments orders documents by a top-level field. String fields compare
// lexicographically (RFC3339 timestamps order correctly this way), numbers
// numerically. Documents missing the field sort last regardless of direction.
// The sort is stable.
func SortDocuments(docs []Document, orderField string, ascending bool) {
	if orderField == "" {
		return
	}
	type keyed struct {
		doc Document
		key sortKey
	}
	pairs := make([]keyed, len(docs))
	for i, doc := range docs {
		pairs[i] = keyed{doc: doc, key: extractSortKey(doc.Data, orderField)}
	}
	sort.SliceStable(pairs, func(i, j int) bool {
		a, b := pairs[i].key, pairs[j].key
		if a.absent || b.absent {
			return b.absent && !a.absent
		}
		c := a.compare(b)
		if ascending {
			return c < 0
		}
		return c > 0
	})
	for i, pair := range pairs {
		docs[i] = pair.doc
	}
}

type sortKey struct {
	str    string
	num    float64
	isNum  bool
	absent bool
}

func (k sortKey) compare(other sortKey) int {
	if k.isNum && other.isNum {
		switch {
		case k.num < other.num:
			return -1
		case k.num > other.num:
			return 1
		}
		return 0
	}
	switch {
	case k.str < other.str:
		return -1
	case k.str > other.str:
		return 1
	}
	return 0
}

func extractSortKey(data json.RawMessage, field string) sortKey {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return sortKey{absent: true}
	}
	raw, ok := fields[field]
	if !ok {
		return sortKey{absent: true}
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return sortKey{str: s}
	}
	var n float64
	if err := json.Unmarshal(raw, &n); err == nil {
		return sortKey{num: n, isNum: true}
	}
	return sortKey{absent: true}
}
