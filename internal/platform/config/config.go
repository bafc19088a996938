package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	pstrings "formgate/pkg/platform/strings"
)

// Config is the single resolved configuration consumed by the intake
// pipeline. It is built once in main before the router exists.
type Config struct {
	Server      Server
	Log         Log
	Intake      Intake
	CSRF        CSRF
	Spam        Spam
	RateLimit   RateLimit
	Redis       RedisConfig
	RecordStore RecordStore
	Email       Email
	Retry       Retry
}

// Server captures HTTP listener configuration.
type Server struct {
	Addr            string
	MetricsAddr     string
	MaxBodyBytes    int64
	DispatchTimeout time.Duration

	// TrustProxyHeaders reads the client address from edge proxy headers.
	// Leave off unless every request arrives through such a proxy.
	TrustProxyHeaders bool
}

type Log struct {
	Format string
	Level  string
}

// Intake holds the origin policy and field rules.
type Intake struct {
	AllowedOrigins string
	RequiredFields []string
	HoneypotField  string
}

// CSRF configures the double-submit cookie guard.
type CSRF struct {
	Enabled    bool
	CookieName string
	MaxAge     time.Duration
}

// Spam configures the challenge verifier. An empty Secret disables it.
type Spam struct {
	Secret    string
	VerifyURL string
	Timeout   time.Duration
}

// RateLimit is a per-client sliding window.
type RateLimit struct {
	PerMinute int
	Window    time.Duration
}

// RedisConfig configures the shared rate-limit store. An empty URL means the
// limiter runs without a store and fails open.
type RedisConfig struct {
	URL          string
	PoolSize     int
	MinIdleConns int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// RecordStore configures the record-store adapter. It is disabled unless both
// the token and the base ID are set.
type RecordStore struct {
	BaseURL string
	Token   string
	BaseID  string
	Table   string
	Timeout time.Duration
}

func (c RecordStore) Enabled() bool {
	return c.Token != "" && c.BaseID != ""
}

// Email configures the notification adapter. It is disabled unless the API
// key and at least one recipient are set.
type Email struct {
	BaseURL string
	APIKey  string
	From    string
	To      []string
	Subject string
	Timeout time.Duration
}

func (c Email) Enabled() bool {
	return c.APIKey != "" && len(c.To) > 0
}

// Retry is the policy shared by both outbound adapters.
type Retry struct {
	MaxAttempts int
	BaseDelay   time.Duration
}

// Load reads configuration from the environment. A .env file in the working
// directory is loaded first when present; real environment variables win.
func Load() Config {
	_ = godotenv.Load()
	return FromEnv()
}

// FromEnv builds a Config from environment variables so main stays lean.
func FromEnv() Config {
	return Config{
		Server: Server{
			Addr:            getEnv("FORMGATE_ADDR", ":8080"),
			MetricsAddr:     getEnv("FORMGATE_METRICS_ADDR", ":9090"),
			MaxBodyBytes:    int64(getInt("FORMGATE_MAX_BODY_BYTES", 64<<10)),
			DispatchTimeout: getDuration("FORMGATE_DISPATCH_TIMEOUT", 30*time.Second),

			TrustProxyHeaders: getBool("TRUST_PROXY_HEADERS", false),
		},
		Log: Log{
			Format: getEnv("LOG_FORMAT", "json"),
			Level:  getEnv("LOG_LEVEL", "info"),
		},
		Intake: Intake{
			AllowedOrigins: os.Getenv("ALLOWED_ORIGINS"),
			RequiredFields: getList("REQUIRED_FIELDS", []string{"name", "email", "message"}),
			HoneypotField:  getEnv("HONEYPOT_FIELD", "_gotcha"),
		},
		CSRF: CSRF{
			Enabled:    getBool("CSRF_ENABLED", true),
			CookieName: getEnv("CSRF_COOKIE_NAME", "csrf_token"),
			MaxAge:     getDuration("CSRF_MAX_AGE", time.Hour),
		},
		Spam: Spam{
			Secret:    os.Getenv("TURNSTILE_SECRET_KEY"),
			VerifyURL: getEnv("TURNSTILE_VERIFY_URL", "https://challenges.cloudflare.com/turnstile/v0/siteverify"),
			Timeout:   getDuration("TURNSTILE_TIMEOUT", 5*time.Second),
		},
		RateLimit: RateLimit{
			PerMinute: getInt("RATE_LIMIT_PER_MINUTE", 10),
			Window:    time.Minute,
		},
		Redis: RedisConfig{
			URL:          os.Getenv("REDIS_URL"),
			PoolSize:     getInt("REDIS_POOL_SIZE", 10),
			MinIdleConns: getInt("REDIS_MIN_IDLE_CONNS", 1),
			DialTimeout:  getDuration("REDIS_DIAL_TIMEOUT", 2*time.Second),
			ReadTimeout:  getDuration("REDIS_READ_TIMEOUT", 500*time.Millisecond),
			WriteTimeout: getDuration("REDIS_WRITE_TIMEOUT", 500*time.Millisecond),
		},
		RecordStore: RecordStore{
			BaseURL: getEnv("AIRTABLE_API_URL", "https://api.airtable.com"),
			Token:   os.Getenv("AIRTABLE_TOKEN"),
			BaseID:  os.Getenv("AIRTABLE_BASE_ID"),
			Table:   getEnv("AIRTABLE_TABLE_NAME", "Submissions"),
			Timeout: getDuration("AIRTABLE_TIMEOUT", 10*time.Second),
		},
		Email: Email{
			BaseURL: getEnv("RESEND_API_URL", "https://api.resend.com"),
			APIKey:  os.Getenv("RESEND_API_KEY"),
			From:    getEnv("EMAIL_FROM", "Forms <forms@example.com>"),
			To:      getList("EMAIL_TO", nil),
			Subject: getEnv("EMAIL_SUBJECT", "New form submission"),
			Timeout: getDuration("RESEND_TIMEOUT", 10*time.Second),
		},
		Retry: Retry{
			MaxAttempts: getInt("RETRY_MAX_ATTEMPTS", 3),
			BaseDelay:   getDuration("RETRY_BASE_DELAY", 500*time.Millisecond),
		},
	}
}

func getEnv(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}

func getInt(key string, fallback int) int {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}

func getBool(key string, fallback bool) bool {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return fallback
	}
	return b
}

func getDuration(key string, fallback time.Duration) time.Duration {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fallback
	}
	return d
}

func getList(key string, fallback []string) []string {
	v, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	return pstrings.SplitList(v)
}
