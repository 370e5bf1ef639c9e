// Command export generates back-office Excel files from the live
// database: the assets-by-days schedule grid or a wallet statement.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"prokat/internal/config"
	"prokat/internal/database"
	"prokat/internal/export"
	"prokat/internal/logging"
)

func main() {
	if err := run(); err != nil {
		log.Fatalf("Fatal error: %v", err)
	}
}

func run() error {
	kind := flag.String("kind", "schedule", "export kind: schedule or statement")
	start := flag.String("start", time.Now().Format("2006-01-02"), "schedule start date (YYYY-MM-DD)")
	days := flag.Int("days", 30, "number of days in the schedule grid")
	walletID := flag.Int64("wallet", 0, "wallet id for the statement export")
	flag.Parse()

	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "configs/config.yaml"
	}
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	baseLogger, closer, err := logging.New(cfg.Logging, cfg.App)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	if closer != nil {
		defer closer.Close()
	}
	logger := baseLogger.With().Str("component", "export").Logger()

	db, err := database.NewDB(cfg.Database.Path, &logger)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer db.Close()

	exporter := export.NewExporter(db, cfg.Exports.Path, &logger)
	ctx := context.Background()

	var filePath string
	switch *kind {
	case "schedule":
		startDate, err := time.Parse("2006-01-02", *start)
		if err != nil {
			return fmt.Errorf("invalid -start: %w", err)
		}
		assets, err := db.ListAssets(ctx)
		if err != nil {
			return err
		}
		filePath, err = exporter.ScheduleGrid(ctx, assets, startDate, *days)
		if err != nil {
			return err
		}
	case "statement":
		if *walletID <= 0 {
			return fmt.Errorf("-wallet is required for the statement export")
		}
		filePath, err = exporter.WalletStatement(ctx, *walletID)
		if err != nil {
			return err
		}
	default:
		return fmt.Errorf("unknown export kind %q", *kind)
	}

	fmt.Println(filePath)
	return nil
}
