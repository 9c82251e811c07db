package gateway

import (
	"context"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newPostgresMock(t *testing.T) (*Postgres, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return NewPostgres(sqlx.NewDb(db, "sqlmock"), "postgres://test", zap.NewNop()), mock
}

func TestPostgresGetAll(t *testing.T) {
	store, mock := newPostgresMock(t)

	rows := sqlmock.NewRows([]string{"id", "data"}).
		AddRow("r1", []byte(`{"title":"Hiragana Chart"}`)).
		AddRow("r2", []byte(`{"title":"Katakana Chart"}`))
	mock.ExpectQuery(`SELECT id, data FROM documents WHERE collection = \$1`).
		WithArgs("resources").
		WillReturnRows(rows)

	docs, err := store.GetAll(context.Background(), "resources")
	require.NoError(t, err)
	require.Len(t, docs, 2)
	assert.Equal(t, "r1", docs[0].ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresGetByIDNotFound(t *testing.T) {
	store, mock := newPostgresMock(t)

	mock.ExpectQuery(`SELECT data FROM documents WHERE collection = \$1 AND id = \$2`).
		WithArgs("resources", "missing").
		WillReturnRows(sqlmock.NewRows([]string{"data"}))

	_, err := store.GetByID(context.Background(), "resources", "missing")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresAddInsertsAndNotifies(t *testing.T) {
	store, mock := newPostgresMock(t)

	mock.ExpectExec(`INSERT INTO documents \(collection, id, data\) VALUES \(\$1, \$2, \$3\)`).
		WithArgs("events", sqlmock.AnyArg(), []byte(`{"title":"Movie Night"}`)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`SELECT pg_notify\(\$1, \$2\)`).
		WithArgs(notifyChannel, "events").
		WillReturnResult(sqlmock.NewResult(0, 0))

	id, err := store.Add(context.Background(), "events", map[string]string{"title": "Movie Night"})
	require.NoError(t, err)
	assert.NotEmpty(t, id)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresUpdateMergesJSONB(t *testing.T) {
	store, mock := newPostgresMock(t)

	mock.ExpectExec(`UPDATE documents SET data = data \|\| \$3::jsonb`).
		WithArgs("assignments", "a1", []byte(`{"points":25}`)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`SELECT pg_notify\(\$1, \$2\)`).
		WithArgs(notifyChannel, "assignments").
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := store.UpdateByID(context.Background(), "assignments", "a1", map[string]int{"points": 25})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresUpdateMissingReturnsNotFound(t *testing.T) {
	store, mock := newPostgresMock(t)

	mock.ExpectExec(`UPDATE documents SET data = data \|\| \$3::jsonb`).
		WithArgs("assignments", "nope", []byte(`{"points":25}`)).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := store.UpdateByID(context.Background(), "assignments", "nope", map[string]int{"points": 25})
	assert.ErrorIs(t, err, ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresSetByIDUpserts(t *testing.T) {
	store, mock := newPostgresMock(t)

	mock.ExpectExec(`INSERT INTO documents .* ON CONFLICT \(collection, id\) DO UPDATE`).
		WithArgs("club", "info", []byte(`{"name":"Isshoni"}`)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`SELECT pg_notify\(\$1, \$2\)`).
		WithArgs(notifyChannel, "club").
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := store.SetByID(context.Background(), "club", "info", map[string]string{"name": "Isshoni"})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresDeleteByID(t *testing.T) {
	store, mock := newPostgresMock(t)

	mock.ExpectExec(`DELETE FROM documents WHERE collection = \$1 AND id = \$2`).
		WithArgs("events", "e1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`SELECT pg_notify\(\$1, \$2\)`).
		WithArgs(notifyChannel, "events").
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := store.DeleteByID(context.Background(), "events", "e1")
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresMigrate(t *testing.T) {
	store, mock := newPostgresMock(t)

	mock.ExpectExec(`CREATE TABLE IF NOT EXISTS documents`).
		WillReturnResult(sqlmock.NewResult(0, 0))

	require.NoError(t, store.Migrate(context.Background()))
	assert.NoError(t, mock.ExpectationsWereMet())
}
