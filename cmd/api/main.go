package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/classafix/caf-copilot/internal/adapter/repo"
	"github.com/classafix/caf-copilot/internal/cases"
	"github.com/classafix/caf-copilot/internal/http/handlers"
	"github.com/classafix/caf-copilot/internal/http/httpapi"
	"github.com/classafix/caf-copilot/internal/infra"
	"github.com/classafix/caf-copilot/internal/infra/credentials"
	"github.com/classafix/caf-copilot/internal/pipeline"
	"github.com/classafix/caf-copilot/internal/providers/llm"
	"github.com/classafix/caf-copilot/internal/storage"
)

func main() {
	_ = godotenv.Load()

	cfg, err := infra.LoadConfig()
	if err != nil {
		panic(err)
	}
	logger := infra.NewLogger(cfg.AppEnv)

	ctx := context.Background()
	dbpool, err := infra.NewDBPool(ctx, cfg)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect database")
	}
	defer dbpool.Close()

	sqlRunner := infra.NewSQLRunner(dbpool, logger.With().Str("component", "sql").Logger())
	tokens := credentials.NewStore(sqlRunner)

	endpoints, err := pipeline.ResolveEndpoints(ctx, cfg, tokens)
	if err != nil {
		logger.Fatal().Err(err).Msg("invalid model configuration")
	}

	invoker := llm.NewClient(llm.Options{
		Observer: llm.NewLogObserver(logger.With().Str("component", "llm").Logger()),
	})
	executor := pipeline.NewExecutor(invoker, endpoints, logger)
	svc := cases.NewService(repo.NewCaseRepository(sqlRunner), executor, logger)

	store, staticDir, err := storage.New(cfg)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to init media storage")
	}

	app := handlers.NewApp(svc, store, dbpool, logger, cfg.UploadMaxBytes)
	router := httpapi.NewRouter(app, httpapi.Options{
		Logger:          logger,
		AllowedOrigins:  cfg.CORSAllowedOrigins,
		RateLimitPerMin: cfg.RateLimitPerMin,
		StaticDir:       staticDir,
	})

	server := infra.NewHTTPServer(cfg, router)

	go func() {
		logger.Info().Str("addr", server.Addr()).Str("storage", cfg.StorageDriver).Msg("API listening")
		if err := server.Start(); err != nil {
			logger.Fatal().Err(err).Msg("http server failed")
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("failed to shutdown server")
	}
	logger.Info().Msg("server stopped")
}
