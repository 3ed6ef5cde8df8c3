package app

import (
	"bytes"
	"context"
	"fmt"
	"time"

	"qdb-quote-parser/internal/checksum"
	"qdb-quote-parser/internal/fetcher"
	"qdb-quote-parser/internal/normalize"
	"qdb-quote-parser/internal/observability"
	"qdb-quote-parser/internal/scraper"
	"qdb-quote-parser/internal/storage"
)

type Orchestrator struct {
	sourceURL  string
	logger     *observability.Logger
	fetcher    fetcher.PageFetcher
	normalizer *normalize.Normalizer
	checksum   *checksum.Generator
	repo       storage.Repository // nil при storage.driver=none
	now        func() time.Time
}

func NewOrchestrator(
	sourceURL string,
	logger *observability.Logger,
	f fetcher.PageFetcher,
	n *normalize.Normalizer,
	repo storage.Repository,
) *Orchestrator {
	return &Orchestrator{
		sourceURL:  sourceURL,
		logger:     logger,
		fetcher:    f,
		normalizer: n,
		checksum:   checksum.NewGenerator(),
		repo:       repo,
		now:        time.Now,
	}
}

type RunStats struct {
	Source      string
	URL         string
	Extracted   int // len(Quotes) парсера, включая пустые
	Expected    int // число span.qt по DOM
	Kept        int
	NewQuotes   int
	KnownQuotes int
	TotalStored int // всего цитат источника в хранилище после прогона
	Quotes      []string
}

// Run загружает страницу, извлекает цитаты и сохраняет их
func (o *Orchestrator) Run(ctx context.Context) (*RunStats, error) {
	resp, err := o.fetcher.Fetch(ctx, o.sourceURL)
	if err != nil {
		o.logger.Error("Fetch failed", "url", o.sourceURL, "error", err.Error())
		return nil, fmt.Errorf("fetch %s: %w", o.sourceURL, err)
	}

	// Новый парсер на каждый прогон
	parser := scraper.NewQdbParser()
	if err := parser.ParseReader(bytes.NewReader(resp.Body)); err != nil {
		o.logger.Error("Parse failed", "url", resp.URL, "partial_quotes", len(parser.Quotes), "error", err.Error())
		return nil, fmt.Errorf("parse %s: %w", resp.URL, err)
	}

	stats := &RunStats{
		Source:    parser.Name,
		URL:       resp.URL,
		Extracted: len(parser.Quotes),
	}

	expected, err := scraper.CountTargets(string(resp.Body))
	if err != nil {
		o.logger.Warn("Target count check failed", "url", resp.URL, "error", err.Error())
	} else {
		stats.Expected = expected
		if expected != stats.Extracted {
			o.logger.Warn("Quote count mismatch, page may contain nested or stray span tags",
				"url", resp.URL,
				"expected", expected,
				"extracted", stats.Extracted,
			)
		}
	}

	stats.Quotes = o.normalizer.CleanAll(parser.Quotes)
	stats.Kept = len(stats.Quotes)

	o.logger.Info("Quotes extracted",
		"source", parser.Name,
		"url", resp.URL,
		"bytes", len(resp.Body),
		"extracted", stats.Extracted,
		"kept", stats.Kept,
	)

	for i, text := range stats.Quotes {
		o.logger.Debug("Quote",
			"num", i+1,
			"preview", o.normalizer.TruncatePreview(text),
		)
	}

	if o.repo == nil {
		return stats, nil
	}

	fetchedAt := o.now().UTC()
	for i, text := range stats.Quotes {
		if err := ctx.Err(); err != nil {
			return stats, err
		}

		record := &storage.QuoteRecord{
			Source:      parser.Name,
			SourceURL:   parser.URL,
			Text:        text,
			CheckSum:    o.checksum.QuoteHash(parser.Name, text),
			SequenceNum: i,
			FetchedAt:   fetchedAt,
		}

		isNew, err := o.repo.UpsertQuote(ctx, record)
		if err != nil {
			o.logger.Error("Upsert failed", "num", i+1, "checksum", record.CheckSum, "error", err.Error())
			return stats, fmt.Errorf("store quote %d: %w", i+1, err)
		}
		if isNew {
			stats.NewQuotes++
		} else {
			stats.KnownQuotes++
		}
	}

	total, err := o.repo.GetQuoteCount(ctx, parser.Name)
	if err != nil {
		o.logger.Warn("Quote count query failed", "source", parser.Name, "error", err.Error())
	} else {
		stats.TotalStored = total
	}

	o.logger.Info("Quotes stored",
		"source", parser.Name,
		"new", stats.NewQuotes,
		"known", stats.KnownQuotes,
		"total", stats.TotalStored,
	)

	return stats, nil
}
