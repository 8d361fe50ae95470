package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"stock_alert_backend/config"
	"stock_alert_backend/models"
	"stock_alert_backend/scheduler"
	"stock_alert_backend/services/calendar"
	"stock_alert_backend/services/marketdata"
	"stock_alert_backend/services/namecache"
	"stock_alert_backend/services/notify"
	"stock_alert_backend/services/signals"
)

func main() {
	log.Println("==============================================")
	log.Println("  Stock Alert Engine - Starting...")
	log.Println("==============================================")

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Config error: %v", err)
	}

	if cfg.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	db, err := config.InitDB(cfg)
	if err != nil {
		log.Fatalf("Database connection failed: %v", err)
	}

	log.Println("Running database migrations...")
	if err := models.MigrateNotificationModels(db); err != nil {
		log.Fatalf("Migration failed: %v", err)
	}

	cal, err := calendar.DefaultCalendar()
	if err != nil {
		log.Fatalf("Calendar setup failed: %v", err)
	}

	var slots *calendar.SlotTable
	if cfg.SlotTable != "" {
		tokyo, err := time.LoadLocation("Asia/Tokyo")
		if err != nil {
			log.Fatalf("Failed to load slot timezone: %v", err)
		}
		slots, err = calendar.ParseSlotTable(cfg.SlotTable, tokyo)
		if err != nil {
			log.Fatalf("Invalid SLOT_TABLE: %v", err)
		}
		log.Printf("Slot mode enabled with %d slot(s)", len(slots.Slots))
	}

	strategies, err := signals.ParseList(cfg.Strategies)
	if err != nil {
		log.Fatalf("Invalid STRATEGIES: %v", err)
	}

	fetcher := marketdata.NewFetcher(marketdata.Options{
		BatchSize:     cfg.FetchBatchSize,
		Concurrency:   cfg.FetchConcurrency,
		CooldownEvery: cfg.CooldownEvery,
		CooldownPause: cfg.CooldownPause,
		Lookback:      cfg.FetchLookback,
		Interval:      cfg.FetchInterval,
		Retry: marketdata.RetryPolicy{
			MaxAttempts: cfg.FetchRetryMax,
			BaseDelay:   cfg.FetchRetryBase,
		},
	})

	names := namecache.NewResolver(context.Background(), cfg.MongoURI)

	jobScheduler := scheduler.NewScheduler(cfg, scheduler.Deps{
		DB:         db,
		Source:     fetcher,
		Deduper:    notify.NewDeduper(db, cfg.DedupWindow),
		Mailer:     buildMailer(cfg),
		Names:      names,
		Calendar:   cal,
		Slots:      slots,
		Strategies: strategies,
	})

	// Single-shot mode for external triggering (cron, Cloud Run jobs).
	if cfg.RunOnce {
		log.Println("RUN_ONCE set, executing one cycle")
		jobScheduler.RunCycle(context.Background())
		names.Close(context.Background())
		return
	}

	router := gin.New()
	router.Use(gin.Recovery())
	setupHealthEndpoints(router, jobScheduler, cfg)

	server := &http.Server{
		Addr:              "0.0.0.0:" + cfg.Port,
		Handler:           router,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       120 * time.Second,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Printf("Server listening on 0.0.0.0:%s", cfg.Port)
		log.Println("==============================================")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server error: %v", err)
		}
	}()

	jobScheduler.Start()

	gracefulShutdown(server, jobScheduler, names)
}

// buildMailer selects the mail transport from configuration. Validate has
// already checked the provider and its credentials.
func buildMailer(cfg *config.Config) notify.Mailer {
	if cfg.MailProvider == "smtp" {
		log.Printf("Using SMTP mail transport via %s:%s", cfg.SMTPHost, cfg.SMTPPort)
		return notify.NewSMTPMailer(cfg.SMTPHost, cfg.SMTPPort,
			cfg.SMTPUsername, cfg.SMTPPassword, cfg.MailFromEmail)
	}
	log.Println("Using SendGrid mail transport")
	return notify.NewSendGridMailer(cfg.SendGridAPIKey, cfg.MailFromEmail)
}

// setupHealthEndpoints registers the liveness and status routes.
func setupHealthEndpoints(router *gin.Engine, jobScheduler *scheduler.Scheduler, cfg *config.Config) {
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":  "ok",
			"service": "stock-alert-engine",
			"time":    time.Now().UTC().Format(time.RFC3339),
		})
	})

	router.GET("/status", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"environment": cfg.Environment,
			"interval":    cfg.CycleInterval.String(),
			"slot_mode":   cfg.SlotTable != "",
			"last_cycle":  jobScheduler.Stats(),
		})
	})
}

// gracefulShutdown blocks until SIGINT/SIGTERM, then stops the scheduler and
// drains the HTTP server.
func gracefulShutdown(server *http.Server, jobScheduler *scheduler.Scheduler, names *namecache.Resolver) {
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	sig := <-quit
	log.Printf("Received signal %v, shutting down gracefully...", sig)

	jobScheduler.Stop()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Printf("Server forced to shutdown: %v", err)
	}

	names.Close(ctx)

	log.Println("Shutdown complete")
}
