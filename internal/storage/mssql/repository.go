package mssql

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/microsoft/go-mssqldb"

	"qdb-quote-parser/internal/observability"
	"qdb-quote-parser/internal/storage"
)

const upsertQuoteQuery = `
	MERGE INTO TblQuotes WITH (HOLDLOCK) AS target
	USING (SELECT @CheckSum AS CheckSum) AS source
	ON target.[CheckSum] = source.CheckSum
	WHEN MATCHED THEN
		UPDATE SET
			[LastSeen] = @FetchedAt,
			[SequenceNum] = @SequenceNum
	WHEN NOT MATCHED THEN
		INSERT ([Source], [SourceURL], [Text], [CheckSum], [SequenceNum], [FirstSeen], [LastSeen])
		VALUES (@Source, @SourceURL, @Text, @CheckSum, @SequenceNum, @FetchedAt, @FetchedAt)
	OUTPUT $action;
`

type Repository struct {
	db             *sql.DB
	commandTimeout time.Duration
	logger         *observability.Logger
}

var _ storage.Repository = (*Repository)(nil)

func NewRepository(ctx context.Context, dsn string, commandTimeout time.Duration, logger *observability.Logger) (*Repository, error) {
	db, err := sql.Open("sqlserver", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Проверяем соединение
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return NewRepositoryFromDB(db, commandTimeout, logger), nil
}

// NewRepositoryFromDB для уже открытого соединения
func NewRepositoryFromDB(db *sql.DB, commandTimeout time.Duration, logger *observability.Logger) *Repository {
	return &Repository{
		db:             db,
		commandTimeout: commandTimeout,
		logger:         logger,
	}
}

// UpsertQuote сохраняет новую цитату или обновляет LastSeen у известной
func (r *Repository) UpsertQuote(ctx context.Context, quote *storage.QuoteRecord) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, r.commandTimeout)
	defer cancel()

	stmt, err := r.db.PrepareContext(ctx, upsertQuoteQuery)
	if err != nil {
		return false, fmt.Errorf("failed to prepare statement: %w", err)
	}
	defer func() {
		if err := stmt.Close(); err != nil {
			r.logger.Error("Failed to close statement", "error", err.Error())
		}
	}()

	var action string
	err = stmt.QueryRowContext(ctx,
		sql.Named("Source", quote.Source),
		sql.Named("SourceURL", quote.SourceURL),
		sql.Named("Text", quote.Text),
		sql.Named("CheckSum", quote.CheckSum),
		sql.Named("SequenceNum", quote.SequenceNum),
		sql.Named("FetchedAt", quote.FetchedAt),
	).Scan(&action)
	if err != nil {
		return false, fmt.Errorf("failed to execute upsert: %w", err)
	}

	return action == "INSERT", nil
}

// GetQuoteCount количество сохранённых цитат источника
func (r *Repository) GetQuoteCount(ctx context.Context, source string) (int, error) {
	ctx, cancel := context.WithTimeout(ctx, r.commandTimeout)
	defer cancel()

	var count int
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM TblQuotes WHERE [Source] = @Source`,
		sql.Named("Source", source),
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to query database: %w", err)
	}

	return count, nil
}

// Close закрывает соединение с БД
func (r *Repository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}
