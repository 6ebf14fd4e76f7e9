package postgres

import (
	"context"
	"testing"

	"github.com/pashagolub/pgxmock/v3"
	"github.com/stretchr/testify/require"

	"github.com/smorales/jobharvester/internal/ledger"
)

func newMockStore(t *testing.T) (*Store, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(mock.Close)

	store, err := NewStoreWithDB(mock, "ledger_rows")
	require.NoError(t, err)
	return store, mock
}

func TestReadAllRows(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectQuery(`SELECT cells FROM ledger_rows WHERE ledger = \$1 ORDER BY position`).
		WithArgs(ledger.Links).
		WillReturnRows(pgxmock.NewRows([]string{"cells"}).
			AddRow([]string{"Link"}).
			AddRow([]string{"https://x/view/555"}))

	rows, err := store.ReadAllRows(context.Background(), ledger.Links)
	require.NoError(t, err)
	require.Equal(t, []ledger.Row{{"Link"}, {"https://x/view/555"}}, rows)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestAppendRowsUsesOneTransaction(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectBegin()
	mock.ExpectExec(`INSERT INTO ledger_rows \(ledger, cells\) VALUES \(\$1, \$2\)`).
		WithArgs(ledger.NewJobs, []string{"t", "c", "l", "link", "", "1", "short"}).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectExec(`INSERT INTO ledger_rows \(ledger, cells\) VALUES \(\$1, \$2\)`).
		WithArgs(ledger.NewJobs, []string{"t2", "c2", "l2", "link2", "", "2", "short2"}).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectCommit()

	err := store.AppendRows(context.Background(), ledger.NewJobs, []ledger.Row{
		{"t", "c", "l", "link", "", "1", "short"},
		{"t2", "c2", "l2", "link2", "", "2", "short2"},
	})
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestAppendRowsRollsBackOnError(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectBegin()
	mock.ExpectExec(`INSERT INTO ledger_rows`).
		WithArgs(ledger.NewJobs, []string{"only"}).
		WillReturnError(context.DeadlineExceeded)
	mock.ExpectRollback()

	err := store.AppendRows(context.Background(), ledger.NewJobs, []ledger.Row{{"only"}})
	require.Error(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestAppendRowsEmptyIsNoop(t *testing.T) {
	store, mock := newMockStore(t)
	require.NoError(t, store.AppendRows(context.Background(), ledger.NewJobs, nil))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestClear(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectExec(`DELETE FROM ledger_rows WHERE ledger = \$1`).
		WithArgs(ledger.NewJobs).
		WillReturnResult(pgxmock.NewResult("DELETE", 3))

	require.NoError(t, store.Clear(context.Background(), ledger.NewJobs))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestNewStoreWithDBValidatesTable(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	_, err = NewStoreWithDB(mock, "bad table; drop")
	require.Error(t, err)
}
