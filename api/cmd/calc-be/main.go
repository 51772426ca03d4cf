package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"calc-be/api/internal/app"
	"calc-be/api/internal/config"
	"calc-be/api/internal/httpserver"
	"calc-be/api/internal/logger"
)

func main() {
	// .env опционален: в контейнере всё приходит через окружение
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("config", "err", err)
		os.Exit(1)
	}
	log := logger.New(cfg.LogLevel, cfg.LogFormat)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	repo, err := app.Traces(ctx, cfg, log)
	if err != nil {
		log.Error("trace store", "err", err)
		os.Exit(1)
	}
	if repo != nil {
		defer repo.DB.Close()
	}

	engines := app.Engines(cfg)
	h := app.Handler(cfg, engines, app.Analyzer(cfg, log, repo), repo)

	srv := &http.Server{
		Addr: ":" + cfg.Port,
		Handler: httpserver.NewRouter(h, httpserver.Options{
			CORSOrigins:    cfg.CORSOrigins,
			RateLimitRPS:   cfg.RateLimitRPS,
			RateLimitBurst: cfg.RateLimitBurst,
			Logger:         log,
			Health:         app.Health(repo),
		}),
		ReadHeaderTimeout: 10 * time.Second,
	}

	log.Info("calc-be starting", "engines", engines.Names(), "default", cfg.DefaultEngine)
	if err := httpserver.Serve(ctx, srv, log); err != nil {
		log.Error("server", "err", err)
		os.Exit(1)
	}
}
