package gateway

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"go.uber.org/zap"
)

const notifyChannel = "documents_changed"

const migrateDocuments = `
CREATE TABLE IF NOT EXISTS documents (
	collection TEXT NOT NULL,
	id         TEXT NOT NULL,
	data       JSONB NOT NULL,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	PRIMARY KEY (collection, id)
)`

// Postgres stores every collection in a single documents table keyed by
// (collection, id), with bodies in a jsonb column. Subscriptions listen on a
// pg_notify channel and re-query the collection after each change.
type Postgres struct {
	// SubscribeBuffer sizes each subscription's snapshot channel. Zero means
	// one slot.
	SubscribeBuffer int

	db     *sqlx.DB
	dsn    string
	logger *zap.Logger
}

// NewPostgres wraps an open connection pool. The dsn is reused to open the
// dedicated LISTEN connection for subscriptions.
func NewPostgres(db *sqlx.DB, dsn string, logger *zap.Logger) *Postgres {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Postgres{db: db, dsn: dsn, logger: logger}
}

// Migrate creates the documents table if it does not exist.
func (p *Postgres) Migrate(ctx context.Context) error {
	if _, err := p.db.ExecContext(ctx, migrateDocuments); err != nil {
		return fmt.Errorf("migrate documents table: %w", err)
	}
	return nil
}

func (p *Postgres) GetAll(ctx context.Context, collection string) ([]Document, error) {
	rows, err := p.db.QueryxContext(ctx,
		`SELECT id, data FROM documents WHERE collection = $1 ORDER BY created_at, id`,
		collection)
	if err != nil {
		return nil, fmt.Errorf("query collection %s: %w", collection, err)
	}
	defer rows.Close()

	docs := []Document{}
	for rows.Next() {
		var (
			id   string
			data []byte
		)
		if err := rows.Scan(&id, &data); err != nil {
			return nil, fmt.Errorf("scan document: %w", err)
		}
		docs = append(docs, Document{ID: id, Data: json.RawMessage(data)})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate collection %s: %w", collection, err)
	}
	return docs, nil
}

func (p *Postgres) GetByID(ctx context.Context, collection, id string) (*Document, error) {
	var data []byte
	err := p.db.QueryRowxContext(ctx,
		`SELECT data FROM documents WHERE collection = $1 AND id = $2`,
		collection, id).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query document %s/%s: %w", collection, id, err)
	}
	return &Document{ID: id, Data: json.RawMessage(data)}, nil
}

func (p *Postgres) Add(ctx context.Context, collection string, value interface{}) (string, error) {
	raw, err := Marshal(value)
	if err != nil {
		return "", err
	}
	id := uuid.New().String()
	_, err = p.db.ExecContext(ctx,
		`INSERT INTO documents (collection, id, data) VALUES ($1, $2, $3)`,
		collection, id, []byte(raw))
	if err != nil {
		return "", fmt.Errorf("insert document %s: %w", collection, err)
	}
	p.notify(ctx, collection)
	return id, nil
}

func (p *Postgres) SetByID(ctx context.Context, collection, id string, value interface{}) error {
	raw, err := Marshal(value)
	if err != nil {
		return err
	}
	_, err = p.db.ExecContext(ctx,
		`INSERT INTO documents (collection, id, data) VALUES ($1, $2, $3)
		 ON CONFLICT (collection, id) DO UPDATE SET data = EXCLUDED.data, updated_at = now()`,
		collection, id, []byte(raw))
	if err != nil {
		return fmt.Errorf("upsert document %s/%s: %w", collection, id, err)
	}
	p.notify(ctx, collection)
	return nil
}

func (p *Postgres) UpdateByID(ctx context.Context, collection, id string, partial interface{}) error {
	raw, err := Marshal(partial)
	if err != nil {
		return err
	}
	res, err := p.db.ExecContext(ctx,
		`UPDATE documents SET data = data || $3::jsonb, updated_at = now()
		 WHERE collection = $1 AND id = $2`,
		collection, id, []byte(raw))
	if err != nil {
		return fmt.Errorf("update document %s/%s: %w", collection, id, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update document %s/%s: %w", collection, id, err)
	}
	if affected == 0 {
		return ErrNotFound
	}
	p.notify(ctx, collection)
	return nil
}

func (p *Postgres) DeleteByID(ctx context.Context, collection, id string) error {
	_, err := p.db.ExecContext(ctx,
		`DELETE FROM documents WHERE collection = $1 AND id = $2`,
		collection, id)
	if err != nil {
		return fmt.Errorf("delete document %s/%s: %w", collection, id, err)
	}
	p.notify(ctx, collection)
	return nil
}

// notify fires pg_notify so open subscriptions re-query. Failures are logged
// and swallowed; the write itself already succeeded.
func (p *Postgres) notify(ctx context.Context, collection string) {
	if _, err := p.db.ExecContext(ctx, `SELECT pg_notify($1, $2)`, notifyChannel, collection); err != nil {
		p.logger.Warn("pg_notify failed", zap.String("collection", collection), zap.Error(err))
	}
}

func (p *Postgres) Subscribe(ctx context.Context, collection, orderField string, ascending bool) (*Subscription, error) {
	listener := pq.NewListener(p.dsn, 2*time.Second, time.Minute, func(ev pq.ListenerEventType, err error) {
		if err != nil {
			p.logger.Warn("postgres listener event", zap.Int("event", int(ev)), zap.Error(err))
		}
	})
	if err := listener.Listen(notifyChannel); err != nil {
		listener.Close()
		return nil, fmt.Errorf("listen %s: %w", notifyChannel, err)
	}

	subCtx, cancel := context.WithCancel(ctx)
	out := make(chan []Document, subscribeBuffer(p.SubscribeBuffer))
	go p.pump(subCtx, listener, collection, orderField, ascending, out)
	return NewSubscription(out, cancel), nil
}

// pump emits an initial snapshot and then one snapshot per change
// notification for the subscribed collection. When the consumer lags and the
// channel fills, the oldest pending snapshot is dropped in favor of the newer
// one.
func (p *Postgres) pump(ctx context.Context, listener *pq.Listener, collection, orderField string, ascending bool, out chan []Document) {
	defer close(out)
	defer listener.Close()

	emit := func() {
		docs, err := p.GetAll(ctx, collection)
		if err != nil {
			if ctx.Err() == nil {
				p.logger.Warn("subscription re-query failed",
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
	ping := time.NewTicker(90 * time.Second)
	defer ping.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case n := <-listener.Notify:
			// nil notification signals a reconnect; re-query to catch up
			if n == nil || n.Extra == collection {
				emit()
			}
		case <-ping.C:
			if err := listener.Ping(); err != nil {
				p.logger.Warn("postgres listener ping failed", zap.Error(err))
			}
		}
	}
}

func (p *Postgres) Close() error {
	return p.db.Close()
}
