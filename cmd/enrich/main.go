// Command enrich runs one enrichment pass over the stored records and
// exits. It is the batch entry point for cron-less environments and
// for manual backfills.
package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"github.com/trogers1052/stock-enrichment-service/internal/batch"
	"github.com/trogers1052/stock-enrichment-service/internal/config"
	"github.com/trogers1052/stock-enrichment-service/internal/database"
	"github.com/trogers1052/stock-enrichment-service/internal/enricher"
	"github.com/trogers1052/stock-enrichment-service/internal/fundamentals"
	"github.com/trogers1052/stock-enrichment-service/internal/pipeline"
	"github.com/trogers1052/stock-enrichment-service/internal/provider"
	"github.com/trogers1052/stock-enrichment-service/internal/store"
)

func main() {
	var (
		dateFlag    = flag.String("date", "", "trading date to enrich (YYYY-MM-DD, default today)")
		tickersFlag = flag.String("tickers", "", "comma-separated tickers (default: every stored record for the date)")
		batchFlag   = flag.Int("batch-size", 0, "override BATCH_SIZE")
		dryRunFlag  = flag.Bool("dry-run", false, "compute everything but write nothing")
	)
	flag.Parse()

	if err := godotenv.Load(); err != nil {
		log.Printf("No .env file found, using environment variables")
	}

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		log.Fatalf("Configuration error: %v", err)
	}

	date := time.Now().UTC().Truncate(24 * time.Hour)
	if *dateFlag != "" {
		var err error
		date, err = time.Parse("2006-01-02", *dateFlag)
		if err != nil {
			log.Fatalf("Invalid -date %q: must be YYYY-MM-DD", *dateFlag)
		}
	}
	if *batchFlag > 0 {
		cfg.Enrichment.BatchSize = *batchFlag
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	fileStore := store.NewFileStore(cfg.Storage.BasePath)

	var loader provider.Loader = provider.NewAlpacaClient(
		cfg.Provider.BaseURL,
		cfg.Provider.APIKey,
		cfg.Provider.APISecret,
		cfg.Provider.RequestTimeout,
		cfg.Provider.RateLimitCooldown,
	)
	if cfg.Redis.Enabled {
		rdb := redis.NewClient(&redis.Options{Addr: cfg.Redis.Addr})
		loader = provider.NewCachedLoader(loader, rdb, cfg.Redis.TTL)
		log.Printf("Bar cache enabled at %s", cfg.Redis.Addr)
	}
	counting := batch.NewCountingLoader(loader)

	var funds *fundamentals.Index
	if cfg.Storage.FundamentalsFile != "" {
		var err error
		funds, err = fundamentals.LoadIndex(cfg.Storage.FundamentalsFile)
		if err != nil {
			log.Fatalf("Failed to load fundamentals: %v", err)
		}
		log.Printf("Loaded fundamentals for %d tickers", funds.Len())
	}

	var sink batch.IndicatorSink
	if cfg.Database.Enabled {
		db, err := database.New(cfg.Database.ConnectionString())
		if err != nil {
			log.Fatalf("Failed to connect to database: %v", err)
		}
		defer db.Close()
		sink = db
		log.Printf("Indicator sink enabled at %s:%s", cfg.Database.Host, cfg.Database.Port)
	}

	e := enricher.New(counting, funds, cfg.Enrichment.EnrichedThreshold, cfg.Enrichment.LookbackDays, cfg.Enrichment.SourceTag)
	driver := batch.NewDriver(fileStore, e, counting, nil, sink, batch.Options{
		BatchSize:        cfg.Enrichment.BatchSize,
		Workers:          cfg.Enrichment.Workers,
		ItemDelay:        cfg.Enrichment.ItemDelay,
		CallsPerCooldown: cfg.Enrichment.CallsPerCooldown,
		Cooldown:         cfg.Enrichment.Cooldown,
		Threshold:        cfg.Enrichment.EnrichedThreshold,
		DryRun:           *dryRunFlag,
	})
	p := pipeline.New(fileStore, e, driver)

	var err error
	if *tickersFlag != "" {
		var tickers []string
		for _, t := range strings.Split(*tickersFlag, ",") {
			t = strings.ToUpper(strings.TrimSpace(t))
			if t != "" {
				tickers = append(tickers, t)
			}
		}
		_, err = p.RunForTickers(ctx, tickers, date)
	} else {
		_, err = p.RunForDate(ctx, date)
	}
	if err != nil {
		log.Printf("Enrichment run failed: %v", err)
		os.Exit(1)
	}
}
