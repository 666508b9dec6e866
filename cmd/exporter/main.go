package main

import (
	"context"
	"flag"
	"os"
	"path/filepath"
	"time"

	"github.com/shrimpsizemoose/trekker/logger"

	"github.com/nikhileshnr/mess-rebate-system/internal/app"
	"github.com/nikhileshnr/mess-rebate-system/internal/billing"
	"github.com/nikhileshnr/mess-rebate-system/internal/calendar"
	"github.com/nikhileshnr/mess-rebate-system/internal/models"
)

func main() {
	var (
		configPath = flag.String("config", "config.toml", "Path to config file")
		month      = flag.String("month", time.Now().Format("2006-01"), "Billed month, YYYY-MM")
		batch      = flag.String("batch", "", "Student batch to bill")
		feastDate  = flag.String("feast-date", "", "Feast day inside the month, YYYY-MM-DD")
		noFeast    = flag.Bool("no-feast", false, "The month had no feast")
		outDir     = flag.String("out", ".", "Directory to write the workbook to")
	)
	flag.Parse()

	service, err := app.NewService(*configPath)
	if err != nil {
		logger.Error.Fatalf("Failed to load config: %v", err)
	}
	defer service.Close()

	year, m, err := billing.ParseMonth(*month)
	if err != nil {
		logger.Error.Fatalf("Bad -month: %v", err)
	}

	req := billing.Request{
		Year:    year,
		Month:   m,
		Batch:   models.NormalizeBatch(*batch),
		NoFeast: *noFeast,
	}
	if !req.NoFeast && *feastDate != "" {
		if req.FeastDate, err = calendar.Parse(*feastDate); err != nil {
			logger.Error.Fatalf("Bad -feast-date: %v", err)
		}
	}

	path := filepath.Join(*outDir, req.FileName())
	f, err := os.Create(path)
	if err != nil {
		logger.Error.Fatalf("Failed to create %s: %v", path, err)
	}

	logger.Info.Printf("Exporting %s for batch %s", req.Label(), req.Batch)
	if err := service.Billing.Export(context.Background(), req, f); err != nil {
		f.Close()
		os.Remove(path)
		logger.Error.Fatalf("Export failed: %v", err)
	}
	if err := f.Close(); err != nil {
		logger.Error.Fatalf("Failed to write %s: %v", path, err)
	}

	logger.Info.Printf("Wrote %s", path)
}
