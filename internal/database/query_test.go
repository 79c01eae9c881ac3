package database

import (
	"context"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func newMockDB(t *testing.T) (*gorm.DB, sqlmock.Sqlmock) {
	t.Helper()
	mockDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = mockDB.Close() })

	mock.MatchExpectationsInOrder(false)
	mock.ExpectQuery(`select sqlite_version\(\)`).
		WillReturnRows(sqlmock.NewRows([]string{"version"}).AddRow("3.46.0"))

	db, err := gorm.Open(sqlite.New(sqlite.Config{Conn: mockDB}), &gorm.Config{
		SkipDefaultTransaction: true,
	})
	require.NoError(t, err)
	return db, mock
}

type totalRow struct {
	Category string
	Total    float64
}

func TestQueryRows(t *testing.T) {
	db, mock := newMockDB(t)

	mock.ExpectQuery(`SELECT category, SUM\(total_amount\) AS total FROM expense WHERE user_id = \? GROUP BY category`).
		WithArgs("u-1").
		WillReturnRows(sqlmock.NewRows([]string{"category", "total"}).
			AddRow("rent", 30000.0).
			AddRow("meals", 1200.5))

	var rows []totalRow
	err := QueryRows(context.Background(), db, &rows,
		"SELECT category, SUM(total_amount) AS total FROM expense WHERE user_id = ? GROUP BY category", "u-1")
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "rent", rows[0].Category)
	assert.Equal(t, 1200.5, rows[1].Total)
}

func TestQueryRows_PropagatesError(t *testing.T) {
	db, mock := newMockDB(t)
	boom := errors.New("disk I/O error")

	mock.ExpectQuery(`SELECT \* FROM income`).WillReturnError(boom)

	var rows []totalRow
	err := QueryRows(context.Background(), db, &rows, "SELECT * FROM income")
	assert.ErrorIs(t, err, boom)
}

func TestQueryRow(t *testing.T) {
	t.Run("returns the first row", func(t *testing.T) {
		db, mock := newMockDB(t)
		mock.ExpectQuery(`SELECT COUNT\(\*\) AS total FROM income`).
			WillReturnRows(sqlmock.NewRows([]string{"total"}).AddRow(7))

		var out struct{ Total int }
		require.NoError(t, QueryRow(context.Background(), db, &out, "SELECT COUNT(*) AS total FROM income"))
		assert.Equal(t, 7, out.Total)
	})

	t.Run("no row is not found", func(t *testing.T) {
		db, mock := newMockDB(t)
		mock.ExpectQuery(`SELECT \* FROM users WHERE email = \?`).
			WithArgs("nobody@example.com").
			WillReturnRows(sqlmock.NewRows([]string{"id", "email"}))

		var out struct {
			ID    string
			Email string
		}
		err := QueryRow(context.Background(), db, &out, "SELECT * FROM users WHERE email = ?", "nobody@example.com")
		assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
	})
}

func TestExec(t *testing.T) {
	t.Run("returns affected rows", func(t *testing.T) {
		db, mock := newMockDB(t)
		mock.ExpectExec(`DELETE FROM budget_executions WHERE budget_id = \?`).
			WithArgs(3).
			WillReturnResult(sqlmock.NewResult(0, 2))

		n, err := Exec(context.Background(), db, "DELETE FROM budget_executions WHERE budget_id = ?", 3)
		require.NoError(t, err)
		assert.Equal(t, int64(2), n)
	})

	t.Run("propagates errors", func(t *testing.T) {
		db, mock := newMockDB(t)
		boom := errors.New("database is locked")
		mock.ExpectExec(`UPDATE system_settings`).WillReturnError(boom)

		n, err := Exec(context.Background(), db, "UPDATE system_settings SET setting_value = ?", "x")
		assert.ErrorIs(t, err, boom)
		assert.Zero(t, n)
	})
}
