package config

import (
	"log"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	Server    ServerConfig
	Database  DatabaseConfig
	Redis     RedisConfig
	Paystack  PaystackConfig
	Mail      MailConfig
	Telegram  TelegramConfig
	Reconcile ReconcileConfig
	Cron      CronConfig
}

type ServerConfig struct {
	Port int
	Env  string // "development", "production"
	URL  string // public base URL of the booking site
}

type DatabaseConfig struct {
	Host    string
	Port    string
	Name    string
	User    string
	Pass    string
	Charset string

	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

type RedisConfig struct {
	Addr string
	Pass string
	DB   int
	// FinalizedTTL bounds how long a finalized reference stays cached.
	FinalizedTTL time.Duration
}

type PaystackConfig struct {
	SecretKey       string
	WebhookSecret   string
	BaseURL         string
	CallbackPath    string
	ReferencePrefix string
}

type MailConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
	FromName string
}

type TelegramConfig struct {
	Token        string
	ReportChatID int64
}

type ReconcileConfig struct {
	Timeout time.Duration
}

type CronConfig struct {
	ReminderSpec    string
	ReminderWindow  time.Duration
	SweepSpec       string
	SweepStaleAfter time.Duration
	SweepMaxAge     time.Duration
	SweepWorkers    int
}

// Load reads configuration from .env file and environment variables.
func Load() (*Config, error) {
	// Load .env file (ignore error if missing)
	_ = godotenv.Load()

	viper.AutomaticEnv()
	setDefaults()

	cfg := &Config{
		Server: ServerConfig{
			Port: viper.GetInt("APP_PORT"),
			Env:  viper.GetString("APP_ENV"),
			URL:  strings.TrimRight(viper.GetString("APP_URL"), "/"),
		},
		Database: databaseConfig(),
		Redis: RedisConfig{
			Addr:         viper.GetString("REDIS_ADDR"),
			Pass:         viper.GetString("REDIS_PASS"),
			DB:           viper.GetInt("REDIS_DB"),
			FinalizedTTL: duration("FINALIZED_CACHE_TTL", 24*time.Hour),
		},
		Paystack: PaystackConfig{
			SecretKey:       viper.GetString("PAYSTACK_SECRET_KEY"),
			WebhookSecret:   viper.GetString("PAYSTACK_WEBHOOK_SECRET"),
			BaseURL:         strings.TrimRight(viper.GetString("PAYSTACK_BASE_URL"), "/"),
			CallbackPath:    viper.GetString("PAYSTACK_CALLBACK_PATH"),
			ReferencePrefix: viper.GetString("REFERENCE_PREFIX"),
		},
		Mail: MailConfig{
			Host:     viper.GetString("SMTP_HOST"),
			Port:     viper.GetInt("SMTP_PORT"),
			Username: viper.GetString("SMTP_USERNAME"),
			Password: viper.GetString("SMTP_PASSWORD"),
			From:     viper.GetString("MAIL_FROM"),
			FromName: viper.GetString("MAIL_FROM_NAME"),
		},
		Telegram: TelegramConfig{
			Token:        viper.GetString("TELEGRAM_BOT_TOKEN"),
			ReportChatID: viper.GetInt64("TELEGRAM_REPORT_CHAT_ID"),
		},
		Reconcile: ReconcileConfig{
			Timeout: duration("RECONCILE_TIMEOUT", 30*time.Second),
		},
		Cron: CronConfig{
			ReminderSpec:    viper.GetString("CRON_REMINDER_SPEC"),
			ReminderWindow:  duration("REMINDER_WINDOW", 24*time.Hour),
			SweepSpec:       viper.GetString("CRON_SWEEP_SPEC"),
			SweepStaleAfter: duration("SWEEP_STALE_AFTER", 10*time.Minute),
			SweepMaxAge:     duration("SWEEP_MAX_AGE", 48*time.Hour),
			SweepWorkers:    viper.GetInt("SWEEP_WORKERS"),
		},
	}

	// The webhook is signed with the secret key unless a dedicated one is set.
	if cfg.Paystack.WebhookSecret == "" {
		cfg.Paystack.WebhookSecret = cfg.Paystack.SecretKey
	}
	if cfg.Cron.SweepWorkers <= 0 {
		cfg.Cron.SweepWorkers = 1
	}

	if cfg.Database.Name == "" {
		log.Println("WARNING: DB_NAME is not set")
	}
	if cfg.Paystack.SecretKey == "" {
		log.Println("WARNING: PAYSTACK_SECRET_KEY is not set")
	}
	if cfg.Mail.Host == "" {
		log.Println("WARNING: SMTP_HOST is not set, emails will not be sent")
	}

	return cfg, nil
}

// LoadDatabaseOnly reads just the database settings, for one-shot schema runs.
func LoadDatabaseOnly() (*DatabaseConfig, error) {
	_ = godotenv.Load()

	viper.AutomaticEnv()
	setDefaults()

	cfg := databaseConfig()
	return &cfg, nil
}

func setDefaults() {
	viper.SetDefault("APP_PORT", 8080)
	viper.SetDefault("APP_ENV", "production")
	viper.SetDefault("APP_URL", "http://localhost:3000")
	viper.SetDefault("DB_HOST", "localhost")
	viper.SetDefault("DB_PORT", "3306")
	viper.SetDefault("DB_CHARSET", "utf8mb4")
	viper.SetDefault("DB_MAX_OPEN_CONNS", 100)
	viper.SetDefault("DB_MAX_IDLE_CONNS", 10)
	viper.SetDefault("REDIS_ADDR", "localhost:6379")
	viper.SetDefault("REDIS_DB", 0)
	viper.SetDefault("PAYSTACK_BASE_URL", "https://api.paystack.co")
	viper.SetDefault("PAYSTACK_CALLBACK_PATH", "/book/success")
	viper.SetDefault("REFERENCE_PREFIX", "ITA")
	viper.SetDefault("SMTP_PORT", 587)
	viper.SetDefault("MAIL_FROM", "bookings@ifedayotech.com")
	viper.SetDefault("MAIL_FROM_NAME", "Ifedayo Tech Academy")
	viper.SetDefault("CRON_REMINDER_SPEC", "0 */15 * * * *")
	viper.SetDefault("CRON_SWEEP_SPEC", "0 */5 * * * *")
	viper.SetDefault("SWEEP_WORKERS", 4)
}

func databaseConfig() DatabaseConfig {
	return DatabaseConfig{
		Host:    viper.GetString("DB_HOST"),
		Port:    viper.GetString("DB_PORT"),
		Name:    viper.GetString("DB_NAME"),
		User:    viper.GetString("DB_USER"),
		Pass:    viper.GetString("DB_PASS"),
		Charset: viper.GetString("DB_CHARSET"),

		MaxOpenConns:    viper.GetInt("DB_MAX_OPEN_CONNS"),
		MaxIdleConns:    viper.GetInt("DB_MAX_IDLE_CONNS"),
		ConnMaxLifetime: duration("DB_CONN_MAX_LIFETIME", time.Hour),
	}
}

func duration(key string, fallback time.Duration) time.Duration {
	raw := viper.GetString(key)
	if raw == "" {
		return fallback
	}
	d, err := time.ParseDuration(raw)
	if err != nil || d <= 0 {
		log.Printf("WARNING: invalid %s %q, using %s", key, raw, fallback)
		return fallback
	}
	return d
}

// IsDevelopment reports whether the server runs in development mode.
func (s ServerConfig) IsDevelopment() bool {
	return s.Env == "development"
}

// CallbackURL is where the gateway redirects the customer after paying.
func (c *Config) CallbackURL() string {
	return c.Server.URL + c.Paystack.CallbackPath
}

// DSN returns the MySQL DSN string for GORM.
func (d *DatabaseConfig) DSN() string {
	return d.User + ":" + d.Pass + "@tcp(" + d.Host + ":" + d.Port + ")/" + d.Name + "?charset=" + d.Charset + "&parseTime=True&loc=UTC"
}
