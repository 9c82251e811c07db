package gateway

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Redis keeps each collection in a hash keyed doc:<collection>, field per
// document id, JSON body as the value. Writes publish the collection name on
// documents:<collection> so subscriptions re-read the hash. GetAll returns
// documents ordered by id; callers sort by domain fields client-side.
type Redis struct {
	// SubscribeBuffer sizes each subscription's snapshot channel. Zero means
	// one slot.
	SubscribeBuffer int

	client *redis.Client
	logger *zap.Logger
}

func NewRedis(client *redis.Client, logger *zap.Logger) *Redis {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Redis{client: client, logger: logger}
}

func hashKey(collection string) string    { return "doc:" + collection }
func channelKey(collection string) string { return "documents:" + collection }

func (r *Redis) GetAll(ctx context.Context, collection string) ([]Document, error) {
	fields, err := r.client.HGetAll(ctx, hashKey(collection)).Result()
	if err != nil {
		return nil, fmt.Errorf("read collection %s: %w", collection, err)
	}
	docs := make([]Document, 0, len(fields))
	for id, body := range fields {
		docs = append(docs, Document{ID: id, Data: json.RawMessage(body)})
	}
	sort.Slice(docs, func(i, j int) bool { return docs[i].ID < docs[j].ID })
	return docs, nil
}

func (r *Redis) GetByID(ctx context.Context, collection, id string) (*Document, error) {
	body, err := r.client.HGet(ctx, hashKey(collection), id).Result()
	if err == redis.Nil {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("read document %s/%s: %w", collection, id, err)
	}
	return &Document{ID: id, Data: json.RawMessage(body)}, nil
}

func (r *Redis) Add(ctx context.Context, collection string, value interface{}) (string, error) {
	raw, err := Marshal(value)
	if err != nil {
		return "", err
	}
	id := uuid.New().String()
	if err := r.client.HSet(ctx, hashKey(collection), id, string(raw)).Err(); err != nil {
		return "", fmt.Errorf("write document %s: %w", collection, err)
	}
	r.publish(ctx, collection)
	return id, nil
}

func (r *Redis) SetByID(ctx context.Context, collection, id string, value interface{}) error {
	raw, err := Marshal(value)
	if err != nil {
		return err
	}
	if err := r.client.HSet(ctx, hashKey(collection), id, string(raw)).Err(); err != nil {
		return fmt.Errorf("write document %s/%s: %w", collection, id, err)
	}
	r.publish(ctx, collection)
	return nil
}

func (r *Redis) UpdateByID(ctx context.Context, collection, id string, partial interface{}) error {
	patch, err := Marshal(partial)
	if err != nil {
		return err
	}
	key := hashKey(collection)
	// WATCH keeps the read-merge-write atomic against concurrent writers
	err = r.client.Watch(ctx, func(tx *redis.Tx) error {
		base, err := tx.HGet(ctx, key, id).Result()
		if err == redis.Nil {
			return ErrNotFound
		}
		if err != nil {
			return err
		}
		merged, err := MergePatch(json.RawMessage(base), patch)
		if err != nil {
			return err
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.HSet(ctx, key, id, string(merged))
			return nil
		})
		return err
	}, key)
	if err == ErrNotFound {
		return ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("update document %s/%s: %w", collection, id, err)
	}
	r.publish(ctx, collection)
	return nil
}

func (r *Redis) DeleteByID(ctx context.Context, collection, id string) error {
	if err := r.client.HDel(ctx, hashKey(collection), id).Err(); err != nil {
		return fmt.Errorf("delete document %s/%s: %w", collection, id, err)
	}
	r.publish(ctx, collection)
	return nil
}

func (r *Redis) publish(ctx context.Context, collection string) {
	if err := r.client.Publish(ctx, channelKey(collection), collection).Err(); err != nil {
		r.logger.Warn("publish change notification failed",
			zap.String("collection", collection), zap.Error(err))
	}
}

func (r *Redis) Subscribe(ctx context.Context, collection, orderField string, ascending bool) (*Subscription, error) {
	pubsub := r.client.Subscribe(ctx, channelKey(collection))
	if _, err := pubsub.Receive(ctx); err != nil {
		pubsub.Close()
		return nil, fmt.Errorf("subscribe %s: %w", collection, err)
	}

	subCtx, cancel := context.WithCancel(ctx)
	out := make(chan []Document, subscribeBuffer(r.SubscribeBuffer))
	go r.pump(subCtx, pubsub, collection, orderField, ascending, out)
	return NewSubscription(out, cancel), nil
}

func (r *Redis) pump(ctx context.Context, pubsub *redis.PubSub, collection, orderField string, ascending bool, out chan []Document) {
	defer close(out)
	defer pubsub.Close()

	emit := func() {
		docs, err := r.GetAll(ctx, collection)
		if err != nil {
			if ctx.Err() == nil {
				r.logger.Warn("subscription re-read failed",
					zap.String("collection", collection), zap.Error(err))
			}
			return
		}
		SortDocuments(docs, orderField, ascending)
		select {
		case out <- docs:
		default:
			select {
			case <-out:
			default:
			}
			select {
			case out <- docs:
			default:
			}
		}
	}

	emit()
	msgs := pubsub.Channel()
	for {
		select {
		case <-ctx.Done():
			return
		case _, ok := <-msgs:
			if !ok {
				return
			}
			emit()
		}
	}
}

func (r *Redis) Close() error {
	return r.client.Close()
}
