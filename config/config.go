package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Config holds all runtime configuration for the alert engine. It is built
// once at startup and passed explicitly to the services that need it.
type Config struct {
	Port        string
	Environment string

	// Database (user table is owned by the CRUD app; we only read it)
	DBDriver   string // "postgres" or "sqlite"
	DBHost     string
	DBPort     string
	DBUser     string
	DBPassword string
	DBName     string
	SQLitePath string

	// Mail transport
	MailProvider   string // "sendgrid" or "smtp"
	SendGridAPIKey string
	MailFromEmail  string
	SMTPHost       string
	SMTPPort       string
	SMTPUsername   string
	SMTPPassword   string

	// Optional company-name cache
	MongoURI string

	// Cycle scheduling
	CycleInterval time.Duration
	RunOnce       bool
	SlotTable     string // "HH:MM=strategy,..." enables time-sliced mode
	Strategies    string // comma-separated strategy names for continuous mode

	// Market data acquisition
	FetchBatchSize   int
	FetchConcurrency int
	FetchRetryMax    int
	FetchRetryBase   time.Duration
	CooldownEvery    int
	CooldownPause    time.Duration
	FetchLookback    string
	FetchInterval    string

	// Notification dedup
	DedupWindow time.Duration

	// Per-role watchlist caps (enforced by the CRUD app, checked here)
	MaxSymbolsUser  int
	MaxSymbolsAdmin int
}

// LoadConfig loads environment variables into a Config.
func LoadConfig() (*Config, error) {
	// Load .env file if it exists
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	config := &Config{
		Port:        getEnv("PORT", "8080"),
		Environment: getEnv("ENVIRONMENT", "development"),

		DBDriver:   getEnv("DB_DRIVER", "postgres"),
		DBHost:     getEnv("DB_HOST", "localhost"),
		DBPort:     getEnv("DB_PORT", "5432"),
		DBUser:     getEnv("DB_USER", "postgres"),
		DBPassword: getEnv("DB_PASSWORD", ""),
		DBName:     getEnv("DB_NAME", "stock_alert_db"),
		SQLitePath: getEnv("SQLITE_PATH", "data/stock_alert.db"),

		MailProvider:   getEnv("MAIL_PROVIDER", "sendgrid"),
		SendGridAPIKey: getEnv("SENDGRID_API_KEY", ""),
		MailFromEmail:  getEnv("MAIL_FROM_EMAIL", ""),
		SMTPHost:       getEnv("SMTP_HOST", ""),
		SMTPPort:       getEnv("SMTP_PORT", "587"),
		SMTPUsername:   getEnv("SMTP_USERNAME", ""),
		SMTPPassword:   getEnv("SMTP_PASSWORD", ""),

		MongoURI: getEnv("MONGODB_URI", ""),

		CycleInterval: getEnvDuration("CYCLE_INTERVAL", 30*time.Minute),
		RunOnce:       getEnvBool("RUN_ONCE", false),
		SlotTable:     getEnv("SLOT_TABLE", ""),
		Strategies:    getEnv("STRATEGIES", "ema_cross"),

		FetchBatchSize:   getEnvInt("FETCH_BATCH_SIZE", 10),
		FetchConcurrency: getEnvInt("FETCH_CONCURRENCY", 20),
		FetchRetryMax:    getEnvInt("FETCH_RETRY_MAX", 3),
		FetchRetryBase:   getEnvDuration("FETCH_RETRY_BASE", 1*time.Second),
		CooldownEvery:    getEnvInt("FETCH_COOLDOWN_EVERY", 100),
		CooldownPause:    getEnvDuration("FETCH_COOLDOWN_PAUSE", 5*time.Second),
		FetchLookback:    getEnv("FETCH_LOOKBACK", "2d"),
		FetchInterval:    getEnv("FETCH_INTERVAL", "5m"),

		DedupWindow: getEnvDuration("DEDUP_WINDOW", 15*time.Minute),

		MaxSymbolsUser:  getEnvInt("MAX_SYMBOLS_USER", 100),
		MaxSymbolsAdmin: getEnvInt("MAX_SYMBOLS_ADMIN", 10000),
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return config, nil
}

// Validate checks that required credentials are present. Missing required
// values are fatal at startup; the engine must not run half-configured.
func (c *Config) Validate() error {
	switch c.DBDriver {
	case "postgres":
		if c.DBHost == "" || c.DBName == "" || c.DBUser == "" {
			return fmt.Errorf("postgres requires DB_HOST, DB_NAME and DB_USER")
		}
	case "sqlite":
		if c.SQLitePath == "" {
			return fmt.Errorf("sqlite requires SQLITE_PATH")
		}
	default:
		return fmt.Errorf("DB_DRIVER must be 'postgres' or 'sqlite', got '%s'", c.DBDriver)
	}

	switch c.MailProvider {
	case "sendgrid":
		if c.SendGridAPIKey == "" {
			return fmt.Errorf("SENDGRID_API_KEY is required when MAIL_PROVIDER=sendgrid")
		}
	case "smtp":
		if c.SMTPHost == "" {
			return fmt.Errorf("SMTP_HOST is required when MAIL_PROVIDER=smtp")
		}
	default:
		return fmt.Errorf("MAIL_PROVIDER must be 'sendgrid' or 'smtp', got '%s'", c.MailProvider)
	}
	if c.MailFromEmail == "" {
		return fmt.Errorf("MAIL_FROM_EMAIL is required")
	}

	if c.FetchBatchSize < 1 {
		return fmt.Errorf("FETCH_BATCH_SIZE must be at least 1")
	}
	if c.FetchRetryMax < 1 {
		return fmt.Errorf("FETCH_RETRY_MAX must be at least 1")
	}

	return nil
}

// InitDB opens the database connection for the configured driver.
func InitDB(cfg *Config) (*gorm.DB, error) {
	var logLevel logger.LogLevel
	if cfg.Environment == "production" {
		logLevel = logger.Error
	} else {
		logLevel = logger.Info
	}
	gormCfg := &gorm.Config{Logger: logger.Default.LogMode(logLevel)}

	var db *gorm.DB
	var err error

	switch cfg.DBDriver {
	case "sqlite":
		log.Printf("Connecting to sqlite database: %s", cfg.SQLitePath)
		db, err = gorm.Open(sqlite.Open(cfg.SQLitePath), gormCfg)
	default:
		log.Printf("Connecting to database: host=%s port=%s user=%s dbname=%s",
			maskHost(cfg.DBHost), cfg.DBPort, cfg.DBUser, cfg.DBName)
		dsn := fmt.Sprintf(
			"host=%s user=%s password=%s dbname=%s port=%s sslmode=require TimeZone=UTC",
			cfg.DBHost, cfg.DBUser, cfg.DBPassword, cfg.DBName, cfg.DBPort,
		)
		db, err = gorm.Open(postgres.Open(dsn), gormCfg)
	}

	if err != nil {
		log.Printf("Database connection error: %v", err)
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	// Verify connection with ping
	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get database: %w", err)
	}
	if err := sqlDB.Ping(); err != nil {
		return nil, fmt.Errorf("database ping failed: %w", err)
	}

	log.Printf("Database connection verified successfully")
	return db, nil
}

// maskHost masks host for logging, preserving domain structure
func maskHost(host string) string {
	if len(host) <= 3 {
		return "***"
	}
	if len(host) <= 15 {
		return host[:3] + "***"
	}
	return host[:8] + "***" + host[len(host)-10:]
}

// getEnv gets an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

// getEnvInt gets an integer environment variable or returns a default value
func getEnvInt(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		log.Printf("Invalid value for %s: %q, using default %d", key, value, defaultValue)
		return defaultValue
	}
	return n
}

// getEnvBool gets a boolean environment variable or returns a default value
func getEnvBool(key string, defaultValue bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	b, err := strconv.ParseBool(value)
	if err != nil {
		log.Printf("Invalid value for %s: %q, using default %t", key, value, defaultValue)
		return defaultValue
	}
	return b
}

// getEnvDuration gets a duration environment variable or returns a default value
func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		log.Printf("Invalid value for %s: %q, using default %s", key, value, defaultValue)
		return defaultValue
	}
	return d
}
