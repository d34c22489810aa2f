package main

import (
	"fmt"
	"log/slog"
	"net/http"
	"os"

	"github.com/joho/godotenv"

	"github.com/MrJamesThe3rd/ledgermatch/internal/audit"
	"github.com/MrJamesThe3rd/ledgermatch/internal/category"
	categoryStore "github.com/MrJamesThe3rd/ledgermatch/internal/category/store"
	"github.com/MrJamesThe3rd/ledgermatch/internal/config"
	"github.com/MrJamesThe3rd/ledgermatch/internal/database"
	ledgerHttp "github.com/MrJamesThe3rd/ledgermatch/internal/http"
	batchHandler "github.com/MrJamesThe3rd/ledgermatch/internal/http/importbatch"
	importHandler "github.com/MrJamesThe3rd/ledgermatch/internal/http/importcsv"
	matchingHandler "github.com/MrJamesThe3rd/ledgermatch/internal/http/matching"
	"github.com/MrJamesThe3rd/ledgermatch/internal/importbatch"
	batchStore "github.com/MrJamesThe3rd/ledgermatch/internal/importbatch/store"
	"github.com/MrJamesThe3rd/ledgermatch/internal/importer"
	"github.com/MrJamesThe3rd/ledgermatch/internal/matching"
	matchingStore "github.com/MrJamesThe3rd/ledgermatch/internal/matching/store"
	"github.com/MrJamesThe3rd/ledgermatch/internal/progress"
	"github.com/MrJamesThe3rd/ledgermatch/internal/transaction"
	txStore "github.com/MrJamesThe3rd/ledgermatch/internal/transaction/store"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	db, err := database.New(cfg.ConnectionString())
	if err != nil {
		slog.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	auditor := audit.NewSlogEmitter()

	var (
		transactionService = transaction.NewService(txStore.New(db))
		categoryService    = category.NewService(categoryStore.New(db))
		matchingService    = matching.NewService(matchingStore.New(db), transactionService, auditor)
		parserService      = importer.NewService()
		batchService       = importbatch.NewService(
			batchStore.New(db),
			transactionService,
			matchingService,
			categoryService,
			auditor,
			progress.NewSlogSink(),
		)
	)

	batchDefaults := importbatch.DefaultOptions()
	batchDefaults.MatchingEnabled = cfg.Import.MatchingEnabled
	batchDefaults.AutoMergeThreshold = cfg.Import.AutoMergeThreshold
	batchDefaults.ChunkSize = cfg.Import.ChunkSize

	var (
		importH   = importHandler.NewHandler(parserService, batchService, batchDefaults)
		batchH    = batchHandler.NewHandler(batchService)
		matchingH = matchingHandler.NewHandler(matchingService)
	)

	router := ledgerHttp.New(cfg.Auth.JWTSecret, importH, batchH, matchingH)

	port := fmt.Sprintf(":%d", cfg.App.Port)
	slog.Info("starting server", "port", port)

	if err := http.ListenAndServe(port, router); err != nil {
		slog.Error("server failed", "error", err)
		os.Exit(1)
	}
}
