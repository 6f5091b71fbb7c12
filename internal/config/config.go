package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"AuthPortalwebserver/internal/email"
)

type Config struct {
	Env            string
	Addr           string
	PublicURL      *url.URL
	DBDSN          string
	SessionSecret  string
	SessionTTL     time.Duration
	LogLevel       string
	MigrateOnStart bool

	SMTP email.SMTPSettings

	GoogleClientID     string
	AppleServiceID     string
	GitHubClientID     string
	GitHubClientSecret string

	AdminBootstrapEmail    string
	AdminBootstrapName     string
	AdminBootstrapPassword string

	// RateLimitPerMinute caps auth form posts per client IP. Zero disables
	// the limiter.
	RateLimitPerMinute int

	// AcceptedFloor pads the password reset and verification resend
	// responses so known and unknown emails answer in similar time.
	AcceptedFloor time.Duration
}

// Load reads an optional .env file from the working directory, then the
// process environment. Variables already set in the environment win.
func Load() (Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return Config{}, fmt.Errorf(".env: %w", err)
	}
	return LoadFromEnv(os.Getenv)
}

func LoadFromEnv(getenv func(string) string) (Config, error) {
	cfg := Config{
		Env:           getenv("APP_ENV"),
		Addr:          getenv("APP_ADDR"),
		DBDSN:         getenv("APP_DB_DSN"),
		LogLevel:      getenv("APP_LOG_LEVEL"),
		SessionSecret: getenv("APP_SESSION_SECRET"),

		GoogleClientID:     strings.TrimSpace(getenv("APP_GOOGLE_CLIENT_ID")),
		AppleServiceID:     strings.TrimSpace(getenv("APP_APPLE_SERVICE_ID")),
		GitHubClientID:     strings.TrimSpace(getenv("APP_GITHUB_CLIENT_ID")),
		GitHubClientSecret: getenv("APP_GITHUB_CLIENT_SECRET"),
	}

	if cfg.Env == "" {
		cfg.Env = "dev"
	}
	if cfg.Addr == "" {
		cfg.Addr = "127.0.0.1:8080"
	}

	switch cfg.Env {
	case "dev", "prod", "test":
	default:
		return Config{}, errors.New("APP_ENV: must be one of dev, test, prod")
	}

	publicURLRaw := getenv("APP_PUBLIC_URL")
	if publicURLRaw != "" {
		parsed, err := url.Parse(publicURLRaw)
		if err != nil {
			return Config{}, fmt.Errorf("APP_PUBLIC_URL: %w", err)
		}
		if !parsed.IsAbs() || parsed.Host == "" {
			return Config{}, errors.New("APP_PUBLIC_URL: must be an absolute URL")
		}
		switch parsed.Scheme {
		case "http", "https":
		default:
			return Config{}, errors.New("APP_PUBLIC_URL: scheme must be http or https")
		}
		cfg.PublicURL = parsed
	}

	ttlRaw := getenv("APP_SESSION_TTL")
	if ttlRaw == "" {
		cfg.SessionTTL = 30 * time.Minute
	} else {
		ttl, err := time.ParseDuration(ttlRaw)
		if err != nil {
			return Config{}, fmt.Errorf("APP_SESSION_TTL: %w", err)
		}
		if ttl <= 0 {
			return Config{}, errors.New("APP_SESSION_TTL: must be > 0")
		}
		cfg.SessionTTL = ttl
	}

	var err error
	if cfg.MigrateOnStart, err = parseBool(getenv("APP_MIGRATE_ON_START"), false); err != nil {
		return Config{}, fmt.Errorf("APP_MIGRATE_ON_START: %w", err)
	}

	if cfg.SMTP, err = loadSMTP(getenv); err != nil {
		return Config{}, err
	}

	if (cfg.GitHubClientID == "") != (cfg.GitHubClientSecret == "") {
		return Config{}, errors.New("APP_GITHUB_CLIENT_ID and APP_GITHUB_CLIENT_SECRET must be set together")
	}

	cfg.AdminBootstrapEmail = strings.TrimSpace(strings.ToLower(getenv("APP_ADMIN_BOOTSTRAP_EMAIL")))
	cfg.AdminBootstrapName = strings.TrimSpace(getenv("APP_ADMIN_BOOTSTRAP_NAME"))
	cfg.AdminBootstrapPassword = getenv("APP_ADMIN_BOOTSTRAP_PASSWORD")

	if cfg.AdminBootstrapPassword != "" && cfg.AdminBootstrapEmail == "" {
		return Config{}, errors.New("APP_ADMIN_BOOTSTRAP_EMAIL: required when APP_ADMIN_BOOTSTRAP_PASSWORD is set")
	}
	if cfg.AdminBootstrapPassword != "" && cfg.AdminBootstrapName == "" {
		cfg.AdminBootstrapName = "Administrator"
	}

	cfg.RateLimitPerMinute = 20
	if raw := strings.TrimSpace(getenv("APP_RATE_LIMIT_PER_MINUTE")); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			return Config{}, errors.New("APP_RATE_LIMIT_PER_MINUTE: must be a non-negative integer")
		}
		cfg.RateLimitPerMinute = n
	}

	cfg.AcceptedFloor = 750 * time.Millisecond
	if raw := strings.TrimSpace(getenv("APP_ACCEPTED_RESPONSE_FLOOR")); raw != "" {
		d, err := time.ParseDuration(raw)
		if err != nil || d < 0 {
			return Config{}, errors.New("APP_ACCEPTED_RESPONSE_FLOOR: must be a non-negative duration")
		}
		cfg.AcceptedFloor = d
	}

	if cfg.IsProd() {
		if cfg.PublicURL == nil {
			return Config{}, errors.New("APP_PUBLIC_URL: required in prod")
		}
		if cfg.DBDSN == "" {
			return Config{}, errors.New("APP_DB_DSN: required in prod")
		}
		if len(cfg.SessionSecret) < 32 {
			return Config{}, errors.New("APP_SESSION_SECRET: must be at least 32 bytes in prod")
		}
		if !cfg.SMTP.Configured() {
			return Config{}, errors.New("APP_SMTP_HOST, APP_SMTP_PORT and APP_SMTP_FROM_EMAIL: required in prod")
		}
	}

	return cfg, nil
}

func loadSMTP(getenv func(string) string) (email.SMTPSettings, error) {
	s := email.SMTPSettings{
		Host:      strings.TrimSpace(getenv("APP_SMTP_HOST")),
		Username:  getenv("APP_SMTP_USERNAME"),
		Password:  getenv("APP_SMTP_PASSWORD"),
		TLSMode:   strings.ToLower(strings.TrimSpace(getenv("APP_SMTP_TLS_MODE"))),
		FromEmail: strings.TrimSpace(getenv("APP_SMTP_FROM_EMAIL")),
		FromName:  strings.TrimSpace(getenv("APP_SMTP_FROM_NAME")),
	}
	if raw := strings.TrimSpace(getenv("APP_SMTP_PORT")); raw != "" {
		port, err := strconv.Atoi(raw)
		if err != nil || port <= 0 || port > 65535 {
			return email.SMTPSettings{}, errors.New("APP_SMTP_PORT: must be a valid port")
		}
		s.Port = port
	} else if s.Host != "" {
		s.Port = 587
	}
	switch s.TLSMode {
	case "", "starttls", "tls", "none":
	default:
		return email.SMTPSettings{}, errors.New("APP_SMTP_TLS_MODE: must be one of starttls, tls, none")
	}
	return s, nil
}

func parseBool(raw string, def bool) (bool, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return def, nil
	}
	return strconv.ParseBool(raw)
}

func (c Config) IsProd() bool { return c.Env == "prod" }

func (c Config) CookieSecure() bool {
	if c.PublicURL != nil {
		return c.PublicURL.Scheme == "https"
	}
	return c.IsProd()
}

// BaseURL is where links in outgoing mail point.
func (c Config) BaseURL() *url.URL {
	if c.PublicURL != nil {
		return c.PublicURL
	}
	return &url.URL{Scheme: "http", Host: c.Addr}
}
