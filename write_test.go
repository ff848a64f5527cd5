package phantom

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/require"
)

func testStoresSchema() *Schema {
	return &Schema{
		Scenario: ScenarioRetail,
		Tables: []*Table{
			{Name: "Stores", Columns: []*Column{
				text("StoreID"), whole("Staff"), money("Rent"), date("Opened"),
			}},
		},
	}
}

func TestRepository_CreateTables(t *testing.T) {
	t.Parallel()

	tt := []struct {
		name    string
		dialect Dialect
		queries []string
	}{
		{
			name:    "sqlite",
			dialect: DialectSQLite,
			queries: []string{
				`DROP TABLE IF EXISTS "Stores"`,
				`CREATE TABLE IF NOT EXISTS "Stores" ("StoreID" TEXT NULL, "Staff" INTEGER NULL, ` +
					`"Rent" REAL NULL, "Opened" TEXT NULL)`,
			},
		},
		{
			name:    "clickhouse",
			dialect: DialectClickHouse,
			queries: []string{
				"DROP TABLE IF EXISTS `Stores`",
				"CREATE TABLE IF NOT EXISTS `Stores` (`StoreID` Nullable(String), `Staff` Nullable(Int64), " +
					"`Rent` Nullable(Float64), `Opened` Nullable(DateTime)) ENGINE = MergeTree() ORDER BY tuple()",
			},
		},
		{
			name:    "mysql",
			dialect: DialectMySQL,
			queries: []string{
				"DROP TABLE IF EXISTS `Stores`",
				"CREATE TABLE IF NOT EXISTS `Stores` (`StoreID` VARCHAR(255) NULL, `Staff` BIGINT NULL, " +
					"`Rent` DOUBLE NULL, `Opened` DATETIME NULL)",
			},
		},
	}

	for i := range tt {
		tc := tt[i]

		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			db, mock, err := sqlmock.New()
			require.NoError(t, err)

			for _, q := range tc.queries {
				mock.ExpectExec(exactQuery(q)).WillReturnResult(sqlmock.NewResult(0, 0))
			}

			r := NewSQLRepository(db, testStoresSchema(), DialectSQLRepositoryOption(tc.dialect))
			require.NoError(t, r.CreateTables(context.Background()))
			require.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestRepository_AddRows(t *testing.T) {
	t.Parallel()

	db, mock, err := sqlmock.New()
	require.NoError(t, err)

	opened := time.Date(2021, 5, 4, 10, 30, 0, 0, time.UTC)

	mock.ExpectBegin()
	prepare := mock.ExpectPrepare(exactQuery(
		`INSERT INTO "Stores" ("StoreID", "Staff", "Rent", "Opened") VALUES (?, ?, ?, ?)`))
	prepare.ExpectExec().
		WithArgs("s-1", int64(12), float64(1500.5), "2021-05-04 10:30:00").
		WillReturnResult(sqlmock.NewResult(1, 1))
	prepare.ExpectExec().
		WithArgs("42", nil, nil, nil).
		WillReturnResult(sqlmock.NewResult(2, 1))
	mock.ExpectCommit()

	r := NewSQLRepository(db, testStoresSchema())
	err = r.AddRows(context.Background(), "stores",
		Row{"StoreID": "s-1", "Staff": 12, "Rent": "1500.5", "Opened": opened},
		Row{"StoreID": 42, "Rent": "n/a", "Opened": "yesterday"},
	)
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRepository_AddRowsRollback(t *testing.T) {
	t.Parallel()

	db, mock, err := sqlmock.New()
	require.NoError(t, err)

	mock.ExpectBegin()
	mock.ExpectPrepare(exactQuery(
		`INSERT INTO "Stores" ("StoreID", "Staff", "Rent", "Opened") VALUES (?, ?, ?, ?)`)).
		ExpectExec().
		WillReturnError(errors.New("disk full"))
	mock.ExpectRollback()

	r := NewSQLRepository(db, testStoresSchema())
	err = r.AddRows(context.Background(), "Stores", Row{"StoreID": "s-1"})
	require.Error(t, err)
	require.Contains(t, err.Error(), "disk full")
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRepository_AddRowsUnknownTable(t *testing.T) {
	t.Parallel()

	db, mock, err := sqlmock.New()
	require.NoError(t, err)

	r := NewSQLRepository(db, testStoresSchema())
	require.NoError(t, r.AddRows(context.Background(), "Sales"))
	require.ErrorIs(t, r.AddRows(context.Background(), "Sales", Row{}), ErrPreviewUnsupported)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRepository_LoadSnapshot(t *testing.T) {
	t.Parallel()

	db, mock, err := sqlmock.New()
	require.NoError(t, err)

	mock.ExpectExec(exactQuery(`DROP TABLE IF EXISTS "Stores"`)).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(`^CREATE TABLE IF NOT EXISTS "Stores"`).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectBegin()
	mock.ExpectPrepare(`^INSERT INTO "Stores"`).
		ExpectExec().
		WithArgs("s-1", int64(3), nil, nil).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	r := NewSQLRepository(db, testStoresSchema())
	err = r.LoadSnapshot(context.Background(), &State{
		Data: map[string][]Row{
			"Stores": {{"StoreID": "s-1", "Staff": 3}},
			"Sales":  {{"Revenue": 1}},
		},
	})
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}
