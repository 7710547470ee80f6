// Command enrichd is the long-running enrichment service: it exposes
// the HTTP API, consumes enrichment requests from Kafka, and runs the
// full pipeline on the daily schedule.
package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"github.com/robfig/cron/v3"
	"github.com/trogers1052/stock-enrichment-service/internal/api"
	"github.com/trogers1052/stock-enrichment-service/internal/batch"
	"github.com/trogers1052/stock-enrichment-service/internal/config"
	"github.com/trogers1052/stock-enrichment-service/internal/database"
	"github.com/trogers1052/stock-enrichment-service/internal/enricher"
	"github.com/trogers1052/stock-enrichment-service/internal/fundamentals"
	"github.com/trogers1052/stock-enrichment-service/internal/kafka"
	"github.com/trogers1052/stock-enrichment-service/internal/pipeline"
	"github.com/trogers1052/stock-enrichment-service/internal/provider"
	"github.com/trogers1052/stock-enrichment-service/internal/store"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Printf("No .env file found, using environment variables")
	}

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		log.Fatalf("Configuration error: %v", err)
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

	var (
		sink     batch.IndicatorSink
		sinkRead api.IndicatorStore
	)
	if cfg.Database.Enabled {
		db, err := database.New(cfg.Database.ConnectionString())
		if err != nil {
			log.Fatalf("Failed to connect to database: %v", err)
		}
		defer db.Close()
		sink = db
		sinkRead = db
		log.Printf("Indicator sink enabled at %s:%s", cfg.Database.Host, cfg.Database.Port)
	}

	producer := kafka.NewProducer(cfg.Kafka.Brokers, cfg.Kafka.EventsTopic)
	defer producer.Close()

	e := enricher.New(counting, funds, cfg.Enrichment.EnrichedThreshold, cfg.Enrichment.LookbackDays, cfg.Enrichment.SourceTag)
	driver := batch.NewDriver(fileStore, e, counting, producer, sink, batch.Options{
		BatchSize:        cfg.Enrichment.BatchSize,
		Workers:          cfg.Enrichment.Workers,
		ItemDelay:        cfg.Enrichment.ItemDelay,
		CallsPerCooldown: cfg.Enrichment.CallsPerCooldown,
		Cooldown:         cfg.Enrichment.Cooldown,
		Threshold:        cfg.Enrichment.EnrichedThreshold,
	})
	p := pipeline.New(fileStore, e, driver)

	// Kafka request consumer.
	consumer := kafka.NewConsumer(cfg.Kafka.Brokers, cfg.Kafka.RequestTopic, cfg.Kafka.GroupID, p)
	go func() {
		if err := consumer.Start(ctx); err != nil {
			log.Printf("Kafka consumer stopped: %v", err)
		}
	}()

	// Daily full run on the configured schedule.
	scheduler := cron.New()
	_, err := scheduler.AddFunc(cfg.Schedule.Spec, func() {
		date := time.Now().UTC().Truncate(24 * time.Hour)
		log.Printf("Scheduled enrichment run for %s", date.Format("2006-01-02"))
		if _, err := p.RunForDate(ctx, date); err != nil {
			log.Printf("Scheduled run failed: %v", err)
		}
	})
	if err != nil {
		log.Fatalf("Invalid schedule %q: %v", cfg.Schedule.Spec, err)
	}
	// Compress last month's records on the first of each month.
	_, err = scheduler.AddFunc("0 1 1 * *", func() {
		if _, err := p.ArchivePreviousMonth(time.Now().UTC()); err != nil {
			log.Printf("Monthly archive failed: %v", err)
		}
	})
	if err != nil {
		log.Fatalf("Failed to schedule monthly archive: %v", err)
	}
	scheduler.Start()
	defer scheduler.Stop()
	log.Printf("Daily pipeline scheduled: %s", cfg.Schedule.Spec)

	// HTTP API.
	router := api.SetupRoutes(api.NewHandler(p, fileStore, sinkRead))
	server := &http.Server{
		Addr:    cfg.Server.Host + ":" + cfg.Server.Port,
		Handler: router,
	}
	go func() {
		log.Printf("HTTP server listening on %s", server.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("HTTP server error: %v", err)
		}
	}()

	<-ctx.Done()
	log.Println("Shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("HTTP shutdown error: %v", err)
	}
}
