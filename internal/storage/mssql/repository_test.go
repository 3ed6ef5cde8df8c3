package mssql

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"qdb-quote-parser/internal/observability"
	"qdb-quote-parser/internal/storage"
)

func newMockRepository(t *testing.T) (*Repository, sqlmock.Sqlmock) {
	t.Helper()

	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	return NewRepositoryFromDB(db, time.Second, observability.Nop()), mock
}

func testQuote() *storage.QuoteRecord {
	return &storage.QuoteRecord{
		Source:      "Qdb.us",
		SourceURL:   "http://www.qdb.us/random",
		Text:        "<bob> hello",
		CheckSum:    "abc123",
		SequenceNum: 0,
		FetchedAt:   time.Date(2026, 1, 2, 0, 0, 0, 0, time.UTC),
	}
}

func TestUpsertQuote(t *testing.T) {
	tests := []struct {
		name    string
		action  string
		wantNew bool
	}{
		{"inserted row is new", "INSERT", true},
		{"updated row is known", "UPDATE", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo, mock := newMockRepository(t)

			mock.ExpectPrepare("MERGE INTO TblQuotes").
				ExpectQuery().
				WithArgs(sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg()).
				WillReturnRows(sqlmock.NewRows([]string{"$action"}).AddRow(tt.action))

			isNew, err := repo.UpsertQuote(context.Background(), testQuote())
			require.NoError(t, err)
			assert.Equal(t, tt.wantNew, isNew)
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestUpsertQuoteError(t *testing.T) {
	repo, mock := newMockRepository(t)
	dbErr := errors.New("deadlock victim")

	mock.ExpectPrepare("MERGE INTO TblQuotes").
		ExpectQuery().
		WillReturnError(dbErr)

	_, err := repo.UpsertQuote(context.Background(), testQuote())
	assert.ErrorIs(t, err, dbErr)
}

func TestGetQuoteCount(t *testing.T) {
	repo, mock := newMockRepository(t)

	mock.ExpectQuery("SELECT COUNT").
		WithArgs(sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(42))

	count, err := repo.GetQuoteCount(context.Background(), "Qdb.us")
	require.NoError(t, err)
	assert.Equal(t, 42, count)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestEnsureSchema(t *testing.T) {
	repo, mock := newMockRepository(t)

	mock.ExpectExec("CREATE TABLE dbo.TblQuotes").
		WillReturnResult(sqlmock.NewResult(0, 0))

	require.NoError(t, repo.EnsureSchema(context.Background()))
	assert.NoError(t, mock.ExpectationsWereMet())
}
