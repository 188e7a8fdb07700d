package mysql_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"todo/internal/backend/mysql"
	"todo/internal/store"
)

const (
	selectAll = "SELECT id, todo FROM `Todo` ORDER BY id"
	insertRow = "INSERT INTO `Todo` (todo) VALUES (?)"
	updateRow = "UPDATE `Todo` SET todo = ? WHERE id = ?"
	deleteRow = "DELETE FROM `Todo` WHERE id = ?"
)

var errConn = errors.New("connection reset")

// newMockStore returns a store over a mocked handle that matches SQL exactly.
// Unmet expectations fail the test.
func newMockStore(t *testing.T, timeout time.Duration) (*mysql.Store, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherEqual))
	require.NoError(t, err)
	t.Cleanup(func() {
		assert.NoError(t, mock.ExpectationsWereMet())
		db.Close()
	})
	return mysql.NewWithDB(db, mysql.Options{Table: "Todo", Timeout: timeout}), mock
}

func TestListAll_KeepsRowOrder(t *testing.T) {
	st, mock := newMockStore(t, 0)
	mock.ExpectQuery(selectAll).WillReturnRows(
		sqlmock.NewRows([]string{"id", "todo"}).
			AddRow(int64(3), "Buy milk").
			AddRow(int64(7), "Walk dog").
			AddRow(int64(12), ""),
	)

	tasks, err := st.ListAll(context.Background())

	require.NoError(t, err)
	assert.Equal(t, []store.Task{
		{ID: "3", Title: "Buy milk"},
		{ID: "7", Title: "Walk dog"},
		{ID: "12", Title: ""},
	}, tasks)
}

func TestListAll_Empty(t *testing.T) {
	st, mock := newMockStore(t, 0)
	mock.ExpectQuery(selectAll).WillReturnRows(sqlmock.NewRows([]string{"id", "todo"}))

	tasks, err := st.ListAll(context.Background())

	require.NoError(t, err)
	assert.Empty(t, tasks)
}

func TestListAll_Errors(t *testing.T) {
	tests := []struct {
		name   string
		expect func(mock sqlmock.Sqlmock)
	}{
		{"query", func(mock sqlmock.Sqlmock) {
			mock.ExpectQuery(selectAll).WillReturnError(errConn)
		}},
		{"row", func(mock sqlmock.Sqlmock) {
			mock.ExpectQuery(selectAll).WillReturnRows(
				sqlmock.NewRows([]string{"id", "todo"}).
					AddRow(int64(1), "A").
					AddRow(int64(2), "B").
					RowError(1, errConn),
			)
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			st, mock := newMockStore(t, 0)
			tt.expect(mock)

			tasks, err := st.ListAll(context.Background())

			var fe *store.FetchError
			require.ErrorAs(t, err, &fe)
			assert.ErrorIs(t, err, errConn)
			assert.Nil(t, tasks)
		})
	}
}

func TestListAll_Timeout(t *testing.T) {
	st, mock := newMockStore(t, 20*time.Millisecond)
	mock.ExpectQuery(selectAll).
		WillDelayFor(time.Second).
		WillReturnRows(sqlmock.NewRows([]string{"id", "todo"}))

	_, err := st.ListAll(context.Background())

	var fe *store.FetchError
	assert.ErrorAs(t, err, &fe)
}

func TestCreate_ReturnsInsertID(t *testing.T) {
	st, mock := newMockStore(t, 0)
	mock.ExpectExec(insertRow).WithArgs("Buy milk").WillReturnResult(sqlmock.NewResult(42, 1))

	id, err := st.Create(context.Background(), "Buy milk")

	require.NoError(t, err)
	assert.Equal(t, "42", id)
}

func TestCreate_Errors(t *testing.T) {
	tests := []struct {
		name   string
		expect func(e *sqlmock.ExpectedExec)
	}{
		{"exec", func(e *sqlmock.ExpectedExec) { e.WillReturnError(errConn) }},
		{"insert id", func(e *sqlmock.ExpectedExec) { e.WillReturnResult(sqlmock.NewErrorResult(errConn)) }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			st, mock := newMockStore(t, 0)
			tt.expect(mock.ExpectExec(insertRow).WithArgs("A"))

			id, err := st.Create(context.Background(), "A")

			var we *store.WriteError
			require.ErrorAs(t, err, &we)
			assert.Equal(t, store.OpCreate, we.Op)
			assert.ErrorIs(t, err, errConn)
			assert.Empty(t, id)
		})
	}
}

func TestUpdate_SetsTitle(t *testing.T) {
	st, mock := newMockStore(t, 0)
	mock.ExpectExec(updateRow).WithArgs("Walk dog", int64(7)).WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, st.Update(context.Background(), "7", "Walk dog"))
}

func TestRemove_DeletesRow(t *testing.T) {
	st, mock := newMockStore(t, 0)
	mock.ExpectExec(deleteRow).WithArgs(int64(7)).WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, st.Remove(context.Background(), "7"))
}

func TestUpdateRemove_NoRowsIsNotFound(t *testing.T) {
	t.Run("update", func(t *testing.T) {
		st, mock := newMockStore(t, 0)
		mock.ExpectExec(updateRow).WithArgs("A", int64(9)).WillReturnResult(sqlmock.NewResult(0, 0))

		err := st.Update(context.Background(), "9", "A")

		assert.True(t, store.IsNotFound(err))
	})

	t.Run("remove", func(t *testing.T) {
		st, mock := newMockStore(t, 0)
		mock.ExpectExec(deleteRow).WithArgs(int64(9)).WillReturnResult(sqlmock.NewResult(0, 0))

		err := st.Remove(context.Background(), "9")

		assert.True(t, store.IsNotFound(err))
	})
}

// Ids from other backends never reach the database.
func TestUpdateRemove_NonNumericIDIsNotFound(t *testing.T) {
	for _, id := range []string{"abc", "", "1.5", "Xk3Jv9"} {
		t.Run(id, func(t *testing.T) {
			st, _ := newMockStore(t, 0)

			assert.True(t, store.IsNotFound(st.Update(context.Background(), id, "A")))
			assert.True(t, store.IsNotFound(st.Remove(context.Background(), id)))
		})
	}
}

func TestUpdateRemove_ExecFailure(t *testing.T) {
	t.Run("update", func(t *testing.T) {
		st, mock := newMockStore(t, 0)
		mock.ExpectExec(updateRow).WithArgs("A", int64(1)).WillReturnError(errConn)

		err := st.Update(context.Background(), "1", "A")

		var we *store.WriteError
		require.ErrorAs(t, err, &we)
		assert.Equal(t, store.OpUpdate, we.Op)
		assert.Equal(t, "1", we.ID)
		assert.False(t, store.IsNotFound(err))
	})

	t.Run("remove", func(t *testing.T) {
		st, mock := newMockStore(t, 0)
		mock.ExpectExec(deleteRow).WithArgs(int64(1)).WillReturnResult(sqlmock.NewErrorResult(errConn))

		err := st.Remove(context.Background(), "1")

		var we *store.WriteError
		require.ErrorAs(t, err, &we)
		assert.Equal(t, store.OpRemove, we.Op)
		assert.ErrorIs(t, err, errConn)
	})
}
