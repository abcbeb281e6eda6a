package store_test

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/goagain/reglet-host/internal/store"
)

func TestSQLStore_Get(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	now := time.Now()
	rows := sqlmock.NewRows([]string{
		"plugin_id", "version", "name", "description", "status",
		"manifest_json", "granted_capabilities", "config", "created_at", "updated_at",
	}).AddRow("org.example.poetry", "1.0.0", "Poetry Filter", "", "enabled",
		[]byte(`{}`), "{post:write}", nil, now, now)

	mock.ExpectQuery(`SELECT .* FROM plugin_records WHERE plugin_id = \$1`).
		WithArgs("org.example.poetry").
		WillReturnRows(rows)

	s := store.NewSQLStore(db)
	rec, err := s.Get(context.Background(), "org.example.poetry")
	require.NoError(t, err)
	assert.Equal(t, store.StatusEnabled, rec.Status)
	assert.Equal(t, []string{"post:write"}, rec.GrantedCapabilities)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSQLStore_GetNotFound(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery(`SELECT .* FROM plugin_records WHERE plugin_id = \$1`).
		WithArgs("missing").
		WillReturnRows(sqlmock.NewRows(nil))

	s := store.NewSQLStore(db)
	_, err = s.Get(context.Background(), "missing")
	assert.ErrorIs(t, err, store.ErrNotFound)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSQLStore_Insert(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectExec(`INSERT INTO plugin_records`).
		WillReturnResult(sqlmock.NewResult(1, 1))

	s := store.NewSQLStore(db)
	err = s.Insert(context.Background(), store.Record{
		PluginID: "org.example.poetry",
		Version:  "1.0.0",
		Status:   store.StatusDisabled,
	})
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSQLStore_DeleteNotFound(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectExec(`DELETE FROM plugin_records`).
		WillReturnResult(sqlmock.NewResult(0, 0))

	s := store.NewSQLStore(db)
	err = s.Delete(context.Background(), "missing")
	assert.ErrorIs(t, err, store.ErrNotFound)
	require.NoError(t, mock.ExpectationsWereMet())
}
