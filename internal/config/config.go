package config

import (
	"errors"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v2"
)

type Config struct {
	Server struct {
		Host          string   `yaml:"host"`
		Port          int      `yaml:"port"`
		Env           string   `yaml:"env"`
		PublicBaseURL string   `yaml:"public_base_url"` // Base of /review/:slug links printed in QR codes
		CORSOrigins   []string `yaml:"cors_origins"`    // empty = any origin
	} `yaml:"server"`

	Database struct {
		Driver  string `yaml:"driver"` // postgres, mysql, sqlite
		DSN     string `yaml:"url"`
		Migrate bool   `yaml:"migrate"`
	} `yaml:"database"`

	JWT struct {
		Secret string `yaml:"secret"`
		TTL    int    `yaml:"ttl"` // minutes
	} `yaml:"jwt"`

	FirstAdminEmail    string `yaml:"first_admin_email"`
	FirstAdminPassword string `yaml:"first_admin_password"`

	Routing struct {
		StoreThreshold    int `yaml:"store_threshold"`
		RedirectThreshold int `yaml:"redirect_threshold"`
		RedirectDelayMs   int `yaml:"redirect_delay_ms"`
	} `yaml:"routing"`

	Storage struct {
		Type       string `yaml:"type"`        // local, cloudflare_r2
		BasePath   string `yaml:"base_path"`   // For local storage
		BaseURL    string `yaml:"base_url"`    // Public URL base
		Bucket     string `yaml:"bucket"`      // For R2
		AccessKey  string `yaml:"access_key"`  // For R2
		SecretKey  string `yaml:"secret_key"`  // For R2
		Endpoint   string `yaml:"endpoint"`    // For R2
		PublicRead bool   `yaml:"public_read"` // Make files public
	} `yaml:"storage"`

	Upload struct {
		MaxSize      int64    `yaml:"max_size"`      // Max attachment size in bytes
		MaxImages    int      `yaml:"max_images"`    // Per feedback
		AllowedTypes []string `yaml:"allowed_types"` // Allowed MIME types
		LogoSize     int      `yaml:"logo_size"`     // QR logo is scaled to fit this square
	} `yaml:"upload"`

	Email struct {
		Provider       string `yaml:"provider"` // smtp, sendgrid, none
		SMTPHost       string `yaml:"smtp_host"`
		SMTPPort       int    `yaml:"smtp_port"`
		SMTPUsername   string `yaml:"smtp_user"`
		SMTPPassword   string `yaml:"smtp_password"`
		SendGridAPIKey string `yaml:"sendgrid_api_key"`
		FromEmail      string `yaml:"from_email"`
		FromName       string `yaml:"from_name"`
		UseTLS         bool   `yaml:"use_tls"`
	} `yaml:"email"`

	Redis struct {
		Addr     string `yaml:"addr"` // empty = in-process cache
		Password string `yaml:"password"`
		DB       int    `yaml:"db"`
		CacheTTL int    `yaml:"cache_ttl"` // seconds, tenant slug cache
	} `yaml:"redis"`

	Kafka struct {
		Brokers []string `yaml:"brokers"` // empty = events disabled
		Topic   string   `yaml:"topic"`
	} `yaml:"kafka"`

	Elasticsearch struct {
		Addresses []string `yaml:"addresses"` // empty = SQL search
		Index     string   `yaml:"index"`
	} `yaml:"elasticsearch"`

	Sentry struct {
		DSN        string  `yaml:"dsn"`
		SampleRate float64 `yaml:"sample_rate"`
	} `yaml:"sentry"`

	Digest struct {
		Enabled  bool   `yaml:"enabled"`
		Schedule string `yaml:"schedule"` // cron spec
	} `yaml:"digest"`

	Identity struct {
		TokenInfoURL string `yaml:"tokeninfo_url"`
		Audience     string `yaml:"audience"`
	} `yaml:"identity"`

	Seed struct {
		Demo bool `yaml:"demo"`
	} `yaml:"seed"`
}

var AppConfig *Config

// LoadConfig loads configuration into AppConfig and exits on error.
func LoadConfig() {
	if err := godotenv.Load(); err != nil {
		log.Println("no .env file found, using process environment")
	}

	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "config/config.yaml"
	}

	cfg, err := Load(configPath)
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	AppConfig = cfg
}

// Load reads the YAML file at path when it exists, applies environment
// overrides and fills defaults.
func Load(path string) (*Config, error) {
	cfg := seeded()

	f, err := os.Open(path)
	switch {
	case err == nil:
		defer f.Close()
		if err := yaml.NewDecoder(f).Decode(&cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file at %s: %w", path, err)
		}
	case errors.Is(err, os.ErrNotExist):
		log.Printf("config file %s not found, using environment only", path)
	default:
		return nil, fmt.Errorf("failed to open config file at %s: %w", path, err)
	}

	applyEnv(cfg)
	applyDefaults(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// seeded holds defaults for settings where zero is a valid choice
// (store_threshold: 0 never stores, redirect_delay_ms: 0 redirects at once).
// The file and env are applied on top, so only absent keys keep these values.
func seeded() *Config {
	cfg := &Config{}
	cfg.Routing.StoreThreshold = 3
	cfg.Routing.RedirectThreshold = 4
	cfg.Routing.RedirectDelayMs = 2000
	cfg.Sentry.SampleRate = 0.2
	return cfg
}

func applyEnv(cfg *Config) {
	cfg.Database.DSN = getEnv("DATABASE_URL", cfg.Database.DSN)
	cfg.Database.Driver = getEnv("DATABASE_DRIVER", cfg.Database.Driver)
	cfg.Server.Env = getEnv("SERVER_ENV", cfg.Server.Env)
	cfg.Server.Port = getEnvInt("SERVER_PORT", cfg.Server.Port)
	cfg.Server.PublicBaseURL = getEnv("PUBLIC_BASE_URL", cfg.Server.PublicBaseURL)
	cfg.JWT.Secret = getEnv("JWT_SECRET", cfg.JWT.Secret)
	cfg.FirstAdminEmail = getEnv("FIRST_ADMIN_EMAIL", cfg.FirstAdminEmail)
	cfg.FirstAdminPassword = getEnv("FIRST_ADMIN_PASSWORD", cfg.FirstAdminPassword)
	cfg.Redis.Addr = getEnv("REDIS_ADDR", cfg.Redis.Addr)
	cfg.Redis.Password = getEnv("REDIS_PASSWORD", cfg.Redis.Password)
	cfg.Sentry.DSN = getEnv("SENTRY_DSN", cfg.Sentry.DSN)
	cfg.Email.SendGridAPIKey = getEnv("SENDGRID_API_KEY", cfg.Email.SendGridAPIKey)
	cfg.Email.SMTPPassword = getEnv("SMTP_PASSWORD", cfg.Email.SMTPPassword)
	cfg.Routing.StoreThreshold = getEnvInt("ROUTING_STORE_THRESHOLD", cfg.Routing.StoreThreshold)
	cfg.Routing.RedirectThreshold = getEnvInt("ROUTING_REDIRECT_THRESHOLD", cfg.Routing.RedirectThreshold)
	cfg.Routing.RedirectDelayMs = getEnvInt("ROUTING_REDIRECT_DELAY_MS", cfg.Routing.RedirectDelayMs)

	if origins := os.Getenv("CORS_ORIGINS"); origins != "" {
		cfg.Server.CORSOrigins = splitList(origins)
	}
	if brokers := os.Getenv("KAFKA_BROKERS"); brokers != "" {
		cfg.Kafka.Brokers = splitList(brokers)
	}
	if addrs := os.Getenv("ELASTICSEARCH_URL"); addrs != "" {
		cfg.Elasticsearch.Addresses = splitList(addrs)
	}
}

func applyDefaults(cfg *Config) {
	if cfg.Server.Host == "" {
		cfg.Server.Host = "0.0.0.0"
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 4000
	}
	if cfg.Server.Env == "" {
		cfg.Server.Env = "development"
	}
	if cfg.Server.PublicBaseURL == "" {
		cfg.Server.PublicBaseURL = fmt.Sprintf("http://localhost:%d", cfg.Server.Port)
	}
	cfg.Server.PublicBaseURL = strings.TrimRight(cfg.Server.PublicBaseURL, "/")

	if cfg.Database.Driver == "" {
		cfg.Database.Driver = "postgres"
	}
	if cfg.JWT.TTL == 0 {
		cfg.JWT.TTL = 60 * 24
	}

	if cfg.Storage.Type == "" {
		cfg.Storage.Type = "local"
	}
	if cfg.Storage.BasePath == "" {
		cfg.Storage.BasePath = "./uploads"
	}
	if cfg.Storage.BaseURL == "" {
		cfg.Storage.BaseURL = "/uploads"
	}

	if cfg.Upload.MaxSize == 0 {
		cfg.Upload.MaxSize = 5 * 1024 * 1024 // 5MB
	}
	if cfg.Upload.MaxImages == 0 {
		cfg.Upload.MaxImages = 5
	}
	if len(cfg.Upload.AllowedTypes) == 0 {
		cfg.Upload.AllowedTypes = []string{"image/jpeg", "image/png", "image/gif", "image/webp"}
	}
	if cfg.Upload.LogoSize == 0 {
		cfg.Upload.LogoSize = 256
	}

	if cfg.Email.Provider == "" {
		cfg.Email.Provider = "none"
	}
	if cfg.Email.SMTPPort == 0 {
		cfg.Email.SMTPPort = 587
	}
	if cfg.Redis.CacheTTL == 0 {
		cfg.Redis.CacheTTL = 300
	}
	if cfg.Kafka.Topic == "" {
		cfg.Kafka.Topic = "feedback_events"
	}
	if cfg.Elasticsearch.Index == "" {
		cfg.Elasticsearch.Index = "feedback"
	}
	if cfg.Digest.Schedule == "" {
		cfg.Digest.Schedule = "0 9 * * *"
	}
	if cfg.Identity.TokenInfoURL == "" {
		cfg.Identity.TokenInfoURL = "https://oauth2.googleapis.com/tokeninfo"
	}
}

// Validate rejects settings the app cannot start with.
func (c *Config) Validate() error {
	switch c.Database.Driver {
	case "postgres", "mysql", "sqlite":
	default:
		return fmt.Errorf("unsupported database driver: %s", c.Database.Driver)
	}
	if c.Database.DSN == "" {
		return errors.New("database url is required")
	}
	if c.JWT.Secret == "" {
		return errors.New("jwt secret is required")
	}
	if c.Routing.StoreThreshold < 0 || c.Routing.StoreThreshold > 5 {
		return fmt.Errorf("routing.store_threshold must be within 0..5, got %d", c.Routing.StoreThreshold)
	}
	if c.Routing.RedirectThreshold < 1 || c.Routing.RedirectThreshold > 6 {
		return fmt.Errorf("routing.redirect_threshold must be within 1..6, got %d", c.Routing.RedirectThreshold)
	}
	if c.Routing.RedirectDelayMs < 0 {
		return fmt.Errorf("routing.redirect_delay_ms must not be negative, got %d", c.Routing.RedirectDelayMs)
	}
	switch c.Email.Provider {
	case "smtp", "sendgrid", "none":
	default:
		return fmt.Errorf("unsupported email provider: %s", c.Email.Provider)
	}
	return nil
}

// IsDevelopment reports whether verbose logs and error details are enabled.
func (c *Config) IsDevelopment() bool {
	return c.Server.Env == "development"
}

func GetConfig() *Config {
	if AppConfig == nil {
		LoadConfig()
	}
	return AppConfig
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok && value != "" {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	value, ok := os.LookupEnv(key)
	if !ok || value == "" {
		return fallback
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		log.Printf("invalid integer in %s: %q, using %d", key, value, fallback)
		return fallback
	}
	return n
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
