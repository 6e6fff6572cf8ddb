package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"
	_ "time/tzdata"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

const (
	defaultHTTPAddr          = ":8080"
	defaultDatabaseURL       = "file:staycation.db?cache=shared&_pragma=busy_timeout(5000)"
	defaultJWTAccessTTL      = "15m"
	defaultOTPTTL            = "5m"
	defaultOTPResendCooldown = "60s"
	defaultOTPMaxAttempts    = "5"
	defaultMailDriver        = "console"
	defaultMailFrom          = "Staycation <bookings@staycation.local>"
	defaultHotelTimezone     = "UTC"
	defaultCatalogCacheTTL   = "2m"
	defaultJWTSecret         = "change-me-jwt-secret"
	defaultOTPPepper         = "change-me-otp-pepper"
)

const (
	MailConsole = "console"
	MailResend  = "resend"
	MailQueue   = "queue"
)

type Config struct {
	AppEnv          string
	HTTPAddr        string
	DatabaseURL     string
	RedisURL        string
	RabbitMQURL     string
	LogLevel        string
	MetricsEnabled  bool
	CORSOrigins     []string
	HotelTimezone   string
	Location        *time.Location
	CatalogCacheTTL time.Duration

	Auth  AuthConfig
	Mail  MailConfig
	OAuth OAuthConfig
}

type AuthConfig struct {
	JWTSecret         string
	JWTAccessTTL      time.Duration
	OTPPepper         string
	OTPTTL            time.Duration
	OTPResendCooldown time.Duration
	OTPMaxAttempts    int
}

type MailConfig struct {
	Driver       string
	ResendAPIKey string
	From         string
}

type OAuthConfig struct {
	GoogleClientID     string
	GoogleClientSecret string
	GoogleRedirectURL  string
}

func (o OAuthConfig) GoogleEnabled() bool {
	return o.GoogleClientID != "" && o.GoogleClientSecret != "" && o.GoogleRedirectURL != ""
}

// source resolves keys from the environment first, then the optional TOML file.
type source struct {
	file map[string]any
}

func (s source) get(name, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(name)); v != "" {
		return v
	}
	if v, ok := s.file[name]; ok {
		switch tv := v.(type) {
		case string:
			if tv != "" {
				return tv
			}
		case []any:
			parts := make([]string, 0, len(tv))
			for _, p := range tv {
				parts = append(parts, fmt.Sprint(p))
			}
			return strings.Join(parts, ",")
		default:
			return fmt.Sprint(tv)
		}
	}
	return fallback
}

func (s source) duration(name, fallback string) (time.Duration, error) {
	value := s.get(name, fallback)
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("invalid %s value %q: %w", name, value, err)
	}
	return d, nil
}

func (s source) boolean(name, fallback string) bool {
	value := strings.ToLower(s.get(name, fallback))
	return value == "1" || value == "true" || value == "yes" || value == "on"
}

// Load reads .env (if present), then the TOML file at path (if present), then
// the process environment, which wins over both.
func Load(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	src := source{file: map[string]any{}}
	if path != "" {
		if _, err := toml.DecodeFile(path, &src.file); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("load %s: %w", path, err)
		}
	}
	return build(src)
}

func build(src source) (*Config, error) {
	cfg := &Config{
		AppEnv:        strings.ToLower(src.get("APP_ENV", "dev")),
		HTTPAddr:      src.get("HTTP_ADDR", defaultHTTPAddr),
		DatabaseURL:   src.get("DATABASE_URL", defaultDatabaseURL),
		RedisURL:      src.get("REDIS_URL", ""),
		RabbitMQURL:   src.get("RABBITMQ_URL", ""),
		LogLevel:      src.get("LOG_LEVEL", "info"),
		HotelTimezone: src.get("HOTEL_TIMEZONE", defaultHotelTimezone),
	}
	cfg.MetricsEnabled = src.boolean("METRICS_ENABLED", "true")
	cfg.CORSOrigins = splitList(src.get("CORS_ALLOWED_ORIGINS", ""))

	var err error
	if cfg.CatalogCacheTTL, err = src.duration("CATALOG_CACHE_TTL", defaultCatalogCacheTTL); err != nil {
		return nil, err
	}
	if cfg.Location, err = time.LoadLocation(cfg.HotelTimezone); err != nil {
		return nil, fmt.Errorf("invalid HOTEL_TIMEZONE %q: %w", cfg.HotelTimezone, err)
	}

	cfg.Auth.JWTSecret = src.get("JWT_SECRET", defaultJWTSecret)
	cfg.Auth.OTPPepper = src.get("OTP_PEPPER", defaultOTPPepper)
	if cfg.Auth.JWTAccessTTL, err = src.duration("JWT_ACCESS_TTL", defaultJWTAccessTTL); err != nil {
		return nil, err
	}
	if cfg.Auth.OTPTTL, err = src.duration("OTP_TTL", defaultOTPTTL); err != nil {
		return nil, err
	}
	if cfg.Auth.OTPResendCooldown, err = src.duration("OTP_RESEND_COOLDOWN", defaultOTPResendCooldown); err != nil {
		return nil, err
	}
	attempts := src.get("OTP_MAX_ATTEMPTS", defaultOTPMaxAttempts)
	if cfg.Auth.OTPMaxAttempts, err = strconv.Atoi(attempts); err != nil {
		return nil, fmt.Errorf("invalid OTP_MAX_ATTEMPTS value %q: %w", attempts, err)
	}

	cfg.Mail = MailConfig{
		Driver:       strings.ToLower(src.get("MAIL_DRIVER", defaultMailDriver)),
		ResendAPIKey: src.get("RESEND_API_KEY", ""),
		From:         src.get("MAIL_FROM", defaultMailFrom),
	}
	cfg.OAuth = OAuthConfig{
		GoogleClientID:     src.get("GOOGLE_CLIENT_ID", ""),
		GoogleClientSecret: src.get("GOOGLE_CLIENT_SECRET", ""),
		GoogleRedirectURL:  src.get("GOOGLE_REDIRECT_URL", ""),
	}

	if err := validateConfig(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func validateConfig(cfg *Config) error {
	if cfg.Auth.JWTAccessTTL <= 0 {
		return fmt.Errorf("JWT_ACCESS_TTL must be > 0")
	}
	if cfg.Auth.OTPTTL <= 0 {
		return fmt.Errorf("OTP_TTL must be > 0")
	}
	if cfg.Auth.OTPResendCooldown <= 0 {
		return fmt.Errorf("OTP_RESEND_COOLDOWN must be > 0")
	}
	if cfg.Auth.OTPMaxAttempts <= 0 {
		return fmt.Errorf("OTP_MAX_ATTEMPTS must be > 0")
	}
	if cfg.CatalogCacheTTL < 0 {
		return fmt.Errorf("CATALOG_CACHE_TTL must be >= 0")
	}

	switch cfg.Mail.Driver {
	case MailConsole:
	case MailResend:
		if cfg.Mail.ResendAPIKey == "" {
			return fmt.Errorf("MAIL_DRIVER=resend requires RESEND_API_KEY")
		}
	case MailQueue:
		if cfg.RabbitMQURL == "" {
			return fmt.Errorf("MAIL_DRIVER=queue requires RABBITMQ_URL")
		}
	default:
		return fmt.Errorf("MAIL_DRIVER must be one of: console, resend, queue")
	}

	if cfg.IsProdLike() {
		if isEmptyOrDefault(cfg.Auth.JWTSecret, defaultJWTSecret) {
			return fmt.Errorf("in prod/release JWT_SECRET must be set and not default")
		}
		if isEmptyOrDefault(cfg.Auth.OTPPepper, defaultOTPPepper) {
			return fmt.Errorf("in prod/release OTP_PEPPER must be set and not default")
		}
		if cfg.RedisURL == "" {
			return fmt.Errorf("in prod/release REDIS_URL must be set")
		}
		if cfg.Mail.Driver == MailConsole {
			return fmt.Errorf("in prod/release MAIL_DRIVER must not be console")
		}
	}

	return nil
}

func (c *Config) IsProdLike() bool {
	env := strings.ToLower(strings.TrimSpace(c.AppEnv))
	return env == "prod" || env == "production" || env == "release"
}

func isEmptyOrDefault(v, def string) bool {
	trimmed := strings.TrimSpace(v)
	return trimmed == "" || trimmed == def
}

func splitList(v string) []string {
	var out []string
	for _, p := range strings.Split(v, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
