// Package config provides application configuration loaded from environment
// variables with defaults and validation. It centralizes settings for the
// Telegram bot, the upstream answer provider, the status surface HTTP server,
// the reservation store, rate limiting, and observability.
package config

import (
	"errors"
	"os"
	"strconv"
	"strings"
	"time"
)

// CORSConfig defines Cross-Origin Resource Sharing settings.
type CORSConfig struct {
	AllowedOrigins []string
}

// SecurityConfig defines security-related settings such as HSTS.
type SecurityConfig struct {
	EnableHSTS bool
	HSTSMaxAge time.Duration
}

// OTELConfig defines OpenTelemetry observability settings.
type OTELConfig struct {
	Enabled     bool    // OTEL_ENABLED
	Endpoint    string  // OTEL_EXPORTER_OTLP_ENDPOINT (e.g. "otel:4317")
	Insecure    bool    // OTEL_EXPORTER_OTLP_INSECURE (true if no TLS)
	ServiceName string  // OTEL_SERVICE_NAME (e.g. "inline-answer-bot")
	SampleRatio float64 // OTEL_TRACES_SAMPLER_ARG in [0..1]
}

// BotConfig holds Telegram transport settings.
type BotConfig struct {
	Token          string // BOT_TOKEN
	Disabled       bool   // BOT_DISABLED: serve the status surface only
	PollTimeout    int    // BOT_POLL_TIMEOUT seconds for long polling
	Debug          bool   // BOT_DEBUG: log raw API traffic
	AllowedIDs     []string
	UsageLimit24h  int // USAGE_LIMIT_PER_24H
	ChunkSize      int // max UTF-16 units per private message chunk
	InlineCacheSec int // cache_time sent with inline answers
}

// AnswerConfig holds upstream answer provider settings.
type AnswerConfig struct {
	Provider string        // perplexity|echo
	APIKey   string        // PERPLEXITY_API_KEY
	Model    string        // PERPLEXITY_MODEL
	BaseURL  string        // PERPLEXITY_BASE_URL
	Timeout  time.Duration // ANSWER_TIMEOUT
	EchoWait time.Duration // ECHO_DELAY for the development provider
}

// Config holds all configuration values for the application.
type Config struct {
	// Server
	Port              string        // just the number
	ReadTimeout       time.Duration // e.g. 15s
	ReadHeaderTimeout time.Duration // e.g. 10s
	WriteTimeout      time.Duration // e.g. 20s
	IdleTimeout       time.Duration // e.g. 60s
	MaxHeaderBytes    int           // bytes
	GinMode           string        // debug|release|test

	// Logging / Docs
	LogLevel       string // debug|info|warn|error|fatal|panic
	LogPretty      bool   // pretty console logs in dev
	SwaggerEnabled bool   // enable Swagger UI route
	APIBasePath    string // base path for JSON routes

	// Public base URL used to build status page links.
	ServerURL string

	// Telegram + upstream
	Bot    BotConfig
	Answer AnswerConfig

	// Reservation store
	StoreDriver    string        // memory|sqlite
	DBPath         string        // SQLite DSN when StoreDriver=sqlite
	ReservationTTL time.Duration // 0 disables the sweep

	// Rate limiting
	RateRPS   float64 // tokens per second (>= 0)
	RateBurst int     // bucket size (>= 1)

	// Web protection
	CORS     CORSConfig
	Security SecurityConfig

	// Callback endpoint
	IdempotencyTTL time.Duration // how long a callback Idempotency-Key is remembered
	CallbackToken  string        // CALLBACK_TOKEN: when set, required in X-Callback-Token

	// Observability
	OTEL OTELConfig
}

// MustLoad loads the configuration and panics if validation fails.
func MustLoad() Config {
	cfg, err := Load()
	if err != nil {
		panic(err)
	}
	return cfg
}

// Load reads configuration from environment variables,
// applies defaults, normalizes values, and validates the result.
func Load() (Config, error) {
	cfg := Config{
		// Server
		Port:              getenv("PORT", "3000"),
		ReadTimeout:       getdur("READ_TIMEOUT", 15*time.Second),
		ReadHeaderTimeout: getdur("READ_HEADER_TIMEOUT", 10*time.Second),
		WriteTimeout:      getdur("WRITE_TIMEOUT", 20*time.Second),
		IdleTimeout:       getdur("IDLE_TIMEOUT", 60*time.Second),
		MaxHeaderBytes:    getint("MAX_HEADER_BYTES", 1<<20),
		GinMode:           strings.ToLower(getenv("GIN_MODE", "release")),

		// Logging / Docs
		LogLevel:       strings.ToLower(getenv("LOG_LEVEL", "info")),
		LogPretty:      getbool("LOG_PRETTY", false),
		SwaggerEnabled: getbool("SWAGGER_ENABLED", false),
		APIBasePath:    normalizeBasePath(getenv("API_BASE_PATH", "/api")),

		ServerURL: strings.TrimRight(strings.TrimSpace(getenv("SERVER_URL", "http://localhost:3000")), "/"),

		Bot: BotConfig{
			Token:          strings.TrimSpace(getenv("BOT_TOKEN", "")),
			Disabled:       getbool("BOT_DISABLED", false),
			PollTimeout:    getint("BOT_POLL_TIMEOUT", 60),
			Debug:          getbool("BOT_DEBUG", false),
			AllowedIDs:     splitCSV(getenv("ALLOWED_TELEGRAM_IDS", "")),
			UsageLimit24h:  getint("USAGE_LIMIT_PER_24H", 2),
			ChunkSize:      getint("MESSAGE_CHUNK_SIZE", 3800),
			InlineCacheSec: getint("INLINE_CACHE_TIME", 0),
		},
		Answer: AnswerConfig{
			Provider: strings.ToLower(strings.TrimSpace(getenv("ANSWER_PROVIDER", "perplexity"))),
			APIKey:   strings.TrimSpace(getenv("PERPLEXITY_API_KEY", "")),
			Model:    getenv("PERPLEXITY_MODEL", "sonar"),
			BaseURL:  strings.TrimRight(getenv("PERPLEXITY_BASE_URL", "https://api.perplexity.ai"), "/"),
			Timeout:  getdur("ANSWER_TIMEOUT", 35*time.Second),
			EchoWait: getdur("ECHO_DELAY", 2500*time.Millisecond),
		},

		StoreDriver:    strings.ToLower(strings.TrimSpace(getenv("STORE_DRIVER", "memory"))),
		DBPath:         getenv("DB_PATH", "file:reservations?mode=memory&cache=shared"),
		ReservationTTL: getdur("RESERVATION_TTL", 0),

		// Rate limiting
		RateRPS:   getfloat("RATE_RPS", 5.0),
		RateBurst: getint("RATE_BURST", 10),

		// Web protection
		CORS: CORSConfig{
			AllowedOrigins: splitCSV(getenv("CORS_ALLOWED_ORIGINS", "")),
		},
		Security: SecurityConfig{
			EnableHSTS: getbool("ENABLE_HSTS", false),
			HSTSMaxAge: getdur("HSTS_MAX_AGE", 180*24*time.Hour),
		},

		// Callback endpoint
		IdempotencyTTL: getdur("IDEMPOTENCY_TTL", 24*time.Hour),
		CallbackToken:  strings.TrimSpace(getenv("CALLBACK_TOKEN", "")),

		// Observability (OpenTelemetry)
		OTEL: OTELConfig{
			Enabled:     getbool("OTEL_ENABLED", false),
			Endpoint:    getenv("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4317"),
			Insecure:    getbool("OTEL_EXPORTER_OTLP_INSECURE", true),
			ServiceName: getenv("OTEL_SERVICE_NAME", "inline-answer-bot"),
			SampleRatio: getfloat("OTEL_TRACES_SAMPLER_ARG", 1.0),
		},
	}

	// --- normalization ---
	if cfg.LogLevel == "warning" {
		cfg.LogLevel = "warn"
	}
	switch cfg.GinMode {
	case "debug", "release", "test":
	default:
		cfg.GinMode = "release"
	}

	// --- validation ---
	switch cfg.LogLevel {
	case "debug", "info", "warn", "error", "fatal", "panic":
	default:
		return cfg, errors.New("LOG_LEVEL must be one of: debug, info, warn, error, fatal, panic")
	}
	if strings.TrimSpace(cfg.Port) == "" {
		return cfg, errors.New("PORT must not be empty")
	}
	if cfg.ReadTimeout <= 0 || cfg.ReadHeaderTimeout <= 0 || cfg.WriteTimeout <= 0 || cfg.IdleTimeout <= 0 {
		return cfg, errors.New("timeouts must be positive durations")
	}
	if cfg.MaxHeaderBytes <= 0 {
		return cfg, errors.New("MAX_HEADER_BYTES must be > 0")
	}
	if cfg.ServerURL == "" {
		return cfg, errors.New("SERVER_URL must not be empty")
	}
	if cfg.Bot.UsageLimit24h < 0 {
		return cfg, errors.New("USAGE_LIMIT_PER_24H must be >= 0")
	}
	if cfg.Bot.ChunkSize < 1 {
		return cfg, errors.New("MESSAGE_CHUNK_SIZE must be >= 1")
	}
	if cfg.Bot.PollTimeout < 0 || cfg.Bot.InlineCacheSec < 0 {
		return cfg, errors.New("BOT_POLL_TIMEOUT and INLINE_CACHE_TIME must be >= 0")
	}
	switch cfg.Answer.Provider {
	case "perplexity", "echo":
	default:
		return cfg, errors.New("ANSWER_PROVIDER must be one of: perplexity, echo")
	}
	if cfg.Answer.Timeout <= 0 {
		return cfg, errors.New("ANSWER_TIMEOUT must be > 0")
	}
	switch cfg.StoreDriver {
	case "memory", "sqlite":
	default:
		return cfg, errors.New("STORE_DRIVER must be one of: memory, sqlite")
	}
	if cfg.StoreDriver == "sqlite" && strings.TrimSpace(cfg.DBPath) == "" {
		return cfg, errors.New("DB_PATH must not be empty")
	}
	if cfg.ReservationTTL < 0 {
		return cfg, errors.New("RESERVATION_TTL must be >= 0")
	}
	if cfg.RateRPS < 0 {
		return cfg, errors.New("RATE_RPS must be >= 0")
	}
	if cfg.RateBurst < 1 {
		return cfg, errors.New("RATE_BURST must be >= 1")
	}
	if cfg.Security.HSTSMaxAge < 0 {
		return cfg, errors.New("HSTS_MAX_AGE must be >= 0")
	}
	if cfg.IdempotencyTTL <= 0 {
		return cfg, errors.New("IDEMPOTENCY_TTL must be > 0")
	}
	if cfg.OTEL.SampleRatio < 0 || cfg.OTEL.SampleRatio > 1 {
		return cfg, errors.New("OTEL_TRACES_SAMPLER_ARG must be in [0,1]")
	}

	return cfg, nil
}

// ---- helpers (no external deps) ----

func getenv(k, def string) string {
	if v, ok := os.LookupEnv(k); ok && v != "" {
		return v
	}
	return def
}

func getfloat(k string, def float64) float64 {
	if v, ok := os.LookupEnv(k); ok && v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return def
}

func getint(k string, def int) int {
	if v, ok := os.LookupEnv(k); ok && v != "" {
		if i, err := strconv.Atoi(strings.TrimSpace(v)); err == nil {
			return i
		}
	}
	return def
}

func getbool(k string, def bool) bool {
	if v, ok := os.LookupEnv(k); ok && v != "" {
		switch strings.ToLower(strings.TrimSpace(v)) {
		case "1", "true", "yes", "y", "on":
			return true
		case "0", "false", "no", "n", "off":
			return false
		}
	}
	return def
}

func getdur(k string, def time.Duration) time.Duration {
	if v, ok := os.LookupEnv(k); ok && v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}

func splitCSV(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		t := strings.TrimSpace(p)
		if t != "" {
			out = append(out, t)
		}
	}
	return out
}

// normalizeBasePath ensures leading '/' and strips trailing '/' (except root).
func normalizeBasePath(p string) string {
	p = strings.TrimSpace(p)
	if p == "" {
		return "/"
	}
	if !strings.HasPrefix(p, "/") {
		p = "/" + p
	}
	if len(p) > 1 && strings.HasSuffix(p, "/") {
		p = strings.TrimRight(p, "/")
	}
	return p
}
