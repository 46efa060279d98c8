package dbloader

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vinaygupta2050/painFileGenerator/internal/types"
)

func TestIsSource(t *testing.T) {
	tests := []struct {
		path string
		want bool
	}{
		{"payments.db", true},
		{"payments.SQLITE", true},
		{"payments.sqlite3", true},
		{"postgres://user@localhost/pay", true},
		{"postgresql://user@localhost/pay", true},
		{"payments.csv", false},
		{"payments.xlsx", false},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			assert.Equal(t, tt.want, IsSource(tt.path))
		})
	}
}

func TestDriverFor(t *testing.T) {
	assert.Equal(t, "sqlite3", DriverFor("payments.db", ""))
	assert.Equal(t, "pgx", DriverFor("postgres://localhost/pay", ""))
	assert.Equal(t, "pgx", DriverFor("payments.db", "pgx"))
}

func TestSanitizeTableName(t *testing.T) {
	assert.Equal(t, "pain001", SanitizeTableName(""))
	assert.Equal(t, "payments_2024", SanitizeTableName("payments_2024"))
	assert.Equal(t, "pay__DROP_TABLE_x", SanitizeTableName("pay; DROP TABLE x"))
}

func TestLoad(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	rows := sqlmock.NewRows([]string{"id", "nb_of_txs", "payment_amount", "date", "remittance_information"}).
		AddRow("MSG-1", int64(2), 500.5, time.Date(2024, 2, 27, 0, 0, 0, 0, time.UTC), []byte(" Invoice 1 ")).
		AddRow("MSG-1", nil, 250.25, nil, nil)
	mock.ExpectQuery("SELECT \\* FROM pay_table").WillReturnRows(rows)

	records, err := Load(context.Background(), db, "pay-table")
	require.NoError(t, err)

	assert.Equal(t, []types.FlatRecord{
		{"id": "MSG-1", "nb_of_txs": "2", "payment_amount": "500.5", "date": "2024-02-27", "remittance_information": "Invoice 1"},
		{"id": "MSG-1", "nb_of_txs": "", "payment_amount": "250.25", "date": "", "remittance_information": ""},
	}, records)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLoadEmptyTable(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery("SELECT \\* FROM pain001").WillReturnRows(sqlmock.NewRows([]string{"id"}))

	records, err := Load(context.Background(), db, "")
	require.NoError(t, err)
	assert.Empty(t, records)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLoadQueryError(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery("SELECT \\* FROM pain001").WillReturnError(errors.New("no such table: pain001"))

	_, err = Load(context.Background(), db, "pain001")
	assert.ErrorContains(t, err, "no such table")
}

func TestLoadRowError(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	rows := sqlmock.NewRows([]string{"id"}).AddRow("a").AddRow("b").RowError(1, errors.New("disk I/O error"))
	mock.ExpectQuery("SELECT \\* FROM pain001").WillReturnRows(rows)

	_, err = Load(context.Background(), db, "pain001")
	assert.ErrorContains(t, err, "disk I/O error")
}

func TestOpen(t *testing.T) {
	t.Run("success", func(t *testing.T) {
		db, mock, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
		require.NoError(t, err)
		defer db.Close()

		var gotDriver, gotDSN string
		origSqlOpen := sqlOpen
		sqlOpen = func(driverName, dataSourceName string) (*sql.DB, error) {
			gotDriver, gotDSN = driverName, dataSourceName
			return db, nil
		}
		defer func() { sqlOpen = origSqlOpen }()

		mock.ExpectPing()

		gotDB, err := Open(context.Background(), "data/payments.db", "")
		assert.NoError(t, err)
		assert.NotNil(t, gotDB)
		assert.Equal(t, "sqlite3", gotDriver)
		assert.Equal(t, "file:data/payments.db?mode=ro", gotDSN)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("sqlOpen error", func(t *testing.T) {
		origSqlOpen := sqlOpen
		sqlOpen = func(driverName, dataSourceName string) (*sql.DB, error) {
			return nil, errors.New("open error")
		}
		defer func() { sqlOpen = origSqlOpen }()

		gotDB, err := Open(context.Background(), "postgres://localhost/pay", "")
		assert.ErrorContains(t, err, "sql open: open error")
		assert.Nil(t, gotDB)
	})

	t.Run("ping error", func(t *testing.T) {
		db, mock, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
		require.NoError(t, err)

		origSqlOpen := sqlOpen
		sqlOpen = func(driverName, dataSourceName string) (*sql.DB, error) {
			return db, nil
		}
		defer func() { sqlOpen = origSqlOpen }()

		mock.ExpectPing().WillReturnError(errors.New("ping failed"))

		gotDB, err := Open(context.Background(), "postgres://localhost/pay", "")
		assert.ErrorContains(t, err, "db ping: ping failed")
		assert.Nil(t, gotDB)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}
