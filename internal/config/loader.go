package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"log"
	"os"

	"gopkg.in/yaml.v3"

	"qdb-quote-parser/internal/scraper"
)

// Default возвращает конфиг, поверх которого накладывается YAML
func Default() *Config {
	return &Config{
		Source:              SourceConfig{URL: scraper.SourceURL},
		RobotsCacheTTLHours: 12,
		Backoff:             BackoffConfig{MinMS: 250, MaxMS: 4000, JitterPct: 20},
		HTTP: HttpConfig{
			UserAgent:                 "qdb-quote-parser/1.0",
			ConnectTimeoutMS:          5000,
			TotalTimeoutMS:            15000,
			MaxRetries:                3,
			MaxIdleConnections:        10,
			MaxIdleConnectionsPerHost: 2,
			IdleConnectionTimeoutS:    90,
			AcceptLanguage:            "en-US,en;q=0.9",
		},
		RateLimit: RateLimitConfig{RPM: 30, Burst: 1},
		Rod:       RodConfig{PageTimeoutS: 30, WaitLoadTimeoutS: 15},
		Normalize: NormalizeConfig{TrimNBSP: true, TrimSpace: true, CollapseBlank: true, SkipEmpty: true, MaxPreviewChars: 120},
		Storage:   StorageConfig{Driver: "none", CommandTimeoutMS: 5000},
		Scheduler: SchedulerConfig{Mode: "oneshot", RunTimeoutS: 60},
		Observability: ObservabilityConfig{
			LogPath:       "logs/qdb-quotes.log",
			LogLevel:      "info",
			LogMaxSizeMB:  10,
			LogMaxBackups: 3,
			LogMaxAgeDays: 28,
		},
	}
}

func LoadConfig(filePath string) (*Config, error) {
	file, err := os.Open(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open config file: %w", err)
	}
	defer func() {
		if closeErr := file.Close(); closeErr != nil {
			// Логируем ошибку, но не возвращаем, иначе перезапишем основную
			log.Printf("Warning: failed to close config file: %v", closeErr)
		}
	}()

	return Decode(file)
}

// Decode читает YAML поверх Default() и валидирует результат. Пустой ввод допустим.
func Decode(r io.Reader) (*Config, error) {
	cfg := Default()
	decoder := yaml.NewDecoder(r)
	decoder.KnownFields(true)
	if err := decoder.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation error: %w", err)
	}

	return cfg, nil
}

func DecodeBytes(data []byte) (*Config, error) {
	return Decode(bytes.NewReader(data))
}
