// Package app wires configuration into the calculator components shared by the binaries.
package app

import (
	"context"
	"fmt"
	"log/slog"

	"calc-be/api/internal/calc"
	"calc-be/api/internal/calc/gemini"
	"calc-be/api/internal/calc/openai"
	"calc-be/api/internal/config"
	"calc-be/api/internal/handle"
	"calc-be/api/internal/store"
)

// Engines builds every engine that has an API key.
func Engines(cfg *config.Config) *calc.Engines {
	engs := &calc.Engines{Default: cfg.DefaultEngine}
	if cfg.GeminiAPIKey != "" {
		engs.Gemini = gemini.New(gemini.Config{
			APIKey:      cfg.GeminiAPIKey,
			Model:       cfg.GeminiModel,
			Temperature: float32(cfg.Temperature),
			MaxTokens:   int32(cfg.MaxTokens),
		})
	}
	if cfg.OpenAIAPIKey != "" {
		engs.OpenAI = openai.New(openai.Config{
			APIKey:      cfg.OpenAIAPIKey,
			Model:       cfg.OpenAIModel,
			BaseURL:     cfg.OpenAIBaseURL,
			Temperature: cfg.Temperature,
			MaxTokens:   int64(cfg.MaxTokens),
		})
	}
	return engs
}

// Traces opens the trace store. It returns nil without error when no DSN is configured.
func Traces(ctx context.Context, cfg *config.Config, log *slog.Logger) (*store.TraceRepo, error) {
	if cfg.DatabaseURL == "" {
		log.Info("traces disabled: no database configured")
		return nil, nil
	}
	db, err := store.Open(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, err
	}
	repo := store.NewTraceRepo(db)
	if err := repo.EnsureSchema(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("trace schema: %w", err)
	}
	log.Info("db connected", "dsn", config.SafeDSNSummary(cfg.DatabaseURL))
	return repo, nil
}

// Analyzer builds the analyzer; a nil repo leaves tracing off.
func Analyzer(cfg *config.Config, log *slog.Logger, repo *store.TraceRepo) *calc.Analyzer {
	opts := []calc.Option{calc.WithLogger(log), calc.WithMaxSide(cfg.MaxImageSide)}
	if repo != nil {
		opts = append(opts, calc.WithTracer(repo))
	}
	return calc.NewAnalyzer(opts...)
}

// Handler builds the HTTP handlers. /traces stays closed unless both a store and
// TRACES_TOKEN are configured.
func Handler(cfg *config.Config, engs *calc.Engines, analyzer *calc.Analyzer, repo *store.TraceRepo) *handle.Handle {
	h := handle.New(engs, analyzer, cfg.RequestTimeout)
	if repo != nil {
		h.SetTraces(repo, cfg.TracesToken)
	}
	return h
}

// Health pings the trace store when there is one.
func Health(repo *store.TraceRepo) func(ctx context.Context) error {
	if repo == nil {
		return nil
	}
	return repo.Ping
}
