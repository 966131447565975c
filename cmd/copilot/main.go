package main

import (
	"context"
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"

	"github.com/classafix/caf-copilot/internal/adapter/repo"
	"github.com/classafix/caf-copilot/internal/cases"
	"github.com/classafix/caf-copilot/internal/cli"
	"github.com/classafix/caf-copilot/internal/infra"
	"github.com/classafix/caf-copilot/internal/infra/credentials"
	"github.com/classafix/caf-copilot/internal/pipeline"
	"github.com/classafix/caf-copilot/internal/providers/llm"
	"github.com/classafix/caf-copilot/internal/storage"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %s\n", cli.FormatError(err))
		os.Exit(1)
	}
}

func run() error {
	_ = godotenv.Load()

	cfg, err := infra.LoadConfig()
	if err != nil {
		return err
	}
	// Logs go to stderr so stdout stays parseable JSON.
	logger := infra.NewLogger(cfg.AppEnv).Output(os.Stderr)
	if os.Getenv("COPILOT_VERBOSE") == "" {
		logger = logger.Level(zerolog.WarnLevel)
	}

	ctx := context.Background()
	dbpool, err := infra.NewDBPool(ctx, cfg)
	if err != nil {
		return err
	}
	defer dbpool.Close()

	sqlRunner := infra.NewSQLRunner(dbpool, logger)
	endpoints, err := pipeline.ResolveEndpoints(ctx, cfg, credentials.NewStore(sqlRunner))
	if err != nil {
		return err
	}

	var observer llm.Observer = llm.NoopObserver{}
	if os.Getenv("COPILOT_VERBOSE") != "" {
		observer = llm.NewLogObserver(logger)
	}
	executor := pipeline.NewExecutor(llm.NewClient(llm.Options{Observer: observer}), endpoints, logger)

	store, _, err := storage.New(cfg)
	if err != nil {
		return err
	}

	app := &cli.App{
		Cases: cases.NewService(repo.NewCaseRepository(sqlRunner), executor, logger),
		Store: store,
	}
	return cli.NewRootCmd(app).ExecuteContext(ctx)
}
