package storage

import (
	"context"
	"time"
)

// QuoteRecord цитата, подготовленная к сохранению
type QuoteRecord struct {
	Source      string // SourceName парсера
	SourceURL   string
	Text        string
	CheckSum    string // SHA256(source|text), ключ дедупликации
	SequenceNum int    // Порядок на странице
	FetchedAt   time.Time
}

// Repository интерфейс хранилища цитат
type Repository interface {
	// UpsertQuote сохраняет цитату или обновляет LastSeen, возвращает isNew
	UpsertQuote(ctx context.Context, quote *QuoteRecord) (isNew bool, err error)

	// GetQuoteCount количество цитат источника
	GetQuoteCount(ctx context.Context, source string) (int, error)

	Close() error
}
