// ledger-export appends one user's yearly ledger rollup to a Google Sheet.
//
// Usage:
//
//	ledger-export -phone 5511999999999 -year 2025
package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"time"

	"github.com/joho/godotenv"

	"contabot/internal/atlas"
	"contabot/internal/config"
	"contabot/internal/core"
	applog "contabot/internal/log"
	"contabot/internal/report"
	"contabot/internal/sheetsexport"
)

func main() {
	_ = godotenv.Load()

	logger := applog.New(applog.Config{
		Level:     slog.LevelInfo,
		Component: applog.ComponentExport,
	})
	applog.SetDefault(logger)

	phone := flag.String("phone", "", "user phone (digits)")
	year := flag.Int("year", time.Now().Year(), "ledger year")
	flag.Parse()

	if *phone == "" {
		logger.Error("Missing -phone flag")
		os.Exit(1)
	}

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		logger.Error("Configuration validation failed", applog.FieldError, err.Error())
		os.Exit(1)
	}
	if err := cfg.ValidateSheetsExport(); err != nil {
		logger.Error("Sheets export not configured", applog.FieldError, err.Error())
		os.Exit(1)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	store := atlas.NewClient(cfg.AtlasBaseURL, cfg.AtlasAdminPhone, cfg.AtlasAdminPassword)

	user, err := store.ResolveUser(ctx, core.NormalizePhone(*phone))
	if err != nil {
		logger.Error("User lookup failed", applog.FieldPhone, *phone, applog.FieldError, err.Error())
		os.Exit(1)
	}

	txs, err := store.ListTransactions(ctx, user.ID, core.AllTimeScope())
	if err != nil {
		logger.Error("Transaction fetch failed", applog.FieldUserID, user.ID, applog.FieldError, err.Error())
		os.Exit(1)
	}

	ledger := report.BuildYearLedger(txs, *year)
	if ledger.Empty() {
		logger.Info("No activity for year, nothing to export", applog.FieldYear, *year)
		return
	}

	sheets, err := sheetsexport.NewClient(ctx, cfg.SheetsCredentialsFile, cfg.SheetsSpreadsheetID, cfg.SheetsSheetName)
	if err != nil {
		logger.Error("Failed to initialize Sheets client", applog.FieldError, err.Error())
		os.Exit(1)
	}

	if err := sheets.ExportYearLedger(ctx, ledger); err != nil {
		logger.Error("Export failed", applog.FieldError, err.Error())
		os.Exit(1)
	}

	logger.Info("Ledger exported",
		applog.FieldUserID, user.ID,
		applog.FieldYear, *year,
		"spreadsheet_id", cfg.SheetsSpreadsheetID)
}
