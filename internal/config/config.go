package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all configuration required by the API process.
// All values must come from env (or env-file loaded by the process runner).
// No business logic should depend on raw environment variables.
type Config struct {
	App   AppConfig
	DB    DBConfig
	Redis RedisConfig
	Auth  AuthConfig
	PDP   PDPConfig
	Audit AuditConfig
}

type AppConfig struct {
	Env  string
	Port int
}

type DBConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	Name     string

	// SSLMode is kept explicit for AWS-ready posture.
	// Accepts: disable, require, verify-ca, verify-full
	SSLMode string
}

type RedisConfig struct {
	Host string
	Port int
}

type AuthConfig struct {
	JWTSecret       string
	JWTIssuer       string
	JWTAudience     string
	AccessTokenTTL  time.Duration
	RefreshTokenTTL time.Duration
}

// PDPConfig configures the external Policy Decision Point.
type PDPConfig struct {
	// Endpoint is the base URL of the PDP, e.g. https://pdp.internal:8443.
	Endpoint string
	// Token is the bearer credential presented on every PDP call.
	Token string
	// RequestTimeout bounds a single check or health probe.
	RequestTimeout time.Duration
	// HealthWindow is how long a health probe result stays fresh.
	HealthWindow time.Duration
	// FailClosed switches the degraded-mode default from allow to deny.
	FailClosed bool
}

// AuditConfig governs the audit log write path and the retention job.
type AuditConfig struct {
	RetentionDays  int
	BatchSize      int
	ArchiveEnabled bool
	ArchiveDir     string
	// CleanupInterval is how often the retention job runs.
	CleanupInterval time.Duration
	// MaxPayloadBytes caps the serialized size of old/new value payloads.
	MaxPayloadBytes int
	// QueueSize bounds the async recorder queue.
	QueueSize int
}

func Load() (Config, error) {
	c := Config{}
	var parseErrs []error

	c.App.Env = strings.TrimSpace(os.Getenv("APP_ENV"))
	{
		n, err := mustInt("APP_PORT")
		n, parseErrs = appendParseErr(parseErrs, n, err)
		c.App.Port = n
	}

	c.DB.Host = strings.TrimSpace(os.Getenv("DB_HOST"))
	{
		n, err := mustInt("DB_PORT")
		n, parseErrs = appendParseErr(parseErrs, n, err)
		c.DB.Port = n
	}
	c.DB.User = strings.TrimSpace(os.Getenv("DB_USER"))
	c.DB.Password = os.Getenv("DB_PASSWORD")
	c.DB.Name = strings.TrimSpace(os.Getenv("DB_NAME"))
	c.DB.SSLMode = strings.TrimSpace(os.Getenv("DB_SSLMODE"))

	c.Redis.Host = strings.TrimSpace(os.Getenv("REDIS_HOST"))
	{
		n, err := mustInt("REDIS_PORT")
		n, parseErrs = appendParseErr(parseErrs, n, err)
		c.Redis.Port = n
	}

	c.Auth.JWTSecret = os.Getenv("JWT_SECRET")
	c.Auth.JWTIssuer = strings.TrimSpace(os.Getenv("JWT_ISSUER"))
	c.Auth.JWTAudience = strings.TrimSpace(os.Getenv("JWT_AUDIENCE"))
	// Duration env vars are optional; defaults applied in Validate() based on env.
	c.Auth.AccessTokenTTL = optDuration("JWT_ACCESS_TTL")
	c.Auth.RefreshTokenTTL = optDuration("JWT_REFRESH_TTL")

	c.PDP.Endpoint = strings.TrimSpace(os.Getenv("PDP_ENDPOINT"))
	c.PDP.Token = os.Getenv("PDP_TOKEN")
	c.PDP.RequestTimeout = optDuration("PDP_REQUEST_TIMEOUT")
	c.PDP.HealthWindow = optDuration("PDP_HEALTH_WINDOW")
	c.PDP.FailClosed = boolEnv("AUTHZ_FAIL_CLOSED")

	c.Audit.RetentionDays = optInt("AUDIT_RETENTION_DAYS")
	c.Audit.BatchSize = optInt("AUDIT_BATCH_SIZE")
	c.Audit.ArchiveEnabled = boolEnv("AUDIT_ARCHIVE_ENABLED")
	c.Audit.ArchiveDir = strings.TrimSpace(os.Getenv("AUDIT_ARCHIVE_DIR"))
	c.Audit.CleanupInterval = optDuration("AUDIT_CLEANUP_INTERVAL")
	c.Audit.MaxPayloadBytes = optInt("AUDIT_MAX_PAYLOAD_BYTES")
	c.Audit.QueueSize = optInt("AUDIT_QUEUE_SIZE")

	if err := joinErrors(parseErrs); err != nil {
		return Config{}, err
	}
	if err := c.Validate(); err != nil {
		return Config{}, err
	}
	return c, nil
}

func (c *Config) Validate() error {
	var errs []error

	if c.App.Env == "" {
		errs = append(errs, errors.New("APP_ENV is required"))
	} else if !isValidEnv(c.App.Env) {
		errs = append(errs, fmt.Errorf("APP_ENV must be one of local, dev, staging, production, got %q", c.App.Env))
	}
	if c.App.Port <= 0 || c.App.Port > 65535 {
		errs = append(errs, fmt.Errorf("APP_PORT must be a valid port, got %d", c.App.Port))
	}

	if c.DB.Host == "" {
		errs = append(errs, errors.New("DB_HOST is required"))
	}
	if c.DB.Port <= 0 || c.DB.Port > 65535 {
		errs = append(errs, fmt.Errorf("DB_PORT must be a valid port, got %d", c.DB.Port))
	}
	if c.DB.User == "" {
		errs = append(errs, errors.New("DB_USER is required"))
	}
	if c.DB.Name == "" {
		errs = append(errs, errors.New("DB_NAME is required"))
	}
	if strings.TrimSpace(c.DB.SSLMode) == "" {
		if c.IsProduction() {
			errs = append(errs, errors.New("DB_SSLMODE is required in production"))
		} else {
			// Local-friendly default; production must be explicit.
			c.DB.SSLMode = "disable"
		}
	}
	if c.DB.SSLMode != "" && !isValidSSLMode(c.DB.SSLMode) {
		errs = append(errs, fmt.Errorf("DB_SSLMODE must be one of disable, require, verify-ca, verify-full, got %q", c.DB.SSLMode))
	}

	if c.Redis.Host == "" {
		errs = append(errs, errors.New("REDIS_HOST is required"))
	}
	if c.Redis.Port <= 0 || c.Redis.Port > 65535 {
		errs = append(errs, fmt.Errorf("REDIS_PORT must be a valid port, got %d", c.Redis.Port))
	}

	if c.Auth.JWTSecret == "" {
		errs = append(errs, errors.New("JWT_SECRET is required"))
	}
	if c.IsProduction() {
		if c.Auth.JWTIssuer == "" {
			errs = append(errs, errors.New("JWT_ISSUER is required in production"))
		}
		if c.Auth.JWTAudience == "" {
			errs = append(errs, errors.New("JWT_AUDIENCE is required in production"))
		}
	}
	if c.Auth.AccessTokenTTL <= 0 {
		// Default: short-lived access tokens.
		c.Auth.AccessTokenTTL = 15 * time.Minute
	}
	if c.Auth.RefreshTokenTTL <= 0 {
		// Default: longer-lived refresh tokens.
		c.Auth.RefreshTokenTTL = 30 * 24 * time.Hour
	}
	if c.Auth.RefreshTokenTTL <= c.Auth.AccessTokenTTL {
		errs = append(errs, errors.New("JWT_REFRESH_TTL must be greater than JWT_ACCESS_TTL"))
	}

	if c.PDP.Endpoint == "" {
		errs = append(errs, errors.New("PDP_ENDPOINT is required"))
	} else if !strings.HasPrefix(c.PDP.Endpoint, "http://") && !strings.HasPrefix(c.PDP.Endpoint, "https://") {
		errs = append(errs, fmt.Errorf("PDP_ENDPOINT must be an http(s) URL, got %q", c.PDP.Endpoint))
	}
	if c.IsProduction() && c.PDP.Token == "" {
		errs = append(errs, errors.New("PDP_TOKEN is required in production"))
	}
	if c.PDP.RequestTimeout <= 0 {
		c.PDP.RequestTimeout = 5 * time.Second
	}
	if c.PDP.HealthWindow <= 0 {
		// Bounds probe traffic to roughly one per minute under sustained outage.
		c.PDP.HealthWindow = 60 * time.Second
	}

	if c.Audit.RetentionDays <= 0 {
		c.Audit.RetentionDays = 90
	}
	if c.Audit.BatchSize <= 0 {
		c.Audit.BatchSize = 500
	}
	if c.Audit.ArchiveEnabled && c.Audit.ArchiveDir == "" {
		errs = append(errs, errors.New("AUDIT_ARCHIVE_DIR is required when AUDIT_ARCHIVE_ENABLED is set"))
	}
	if c.Audit.CleanupInterval <= 0 {
		c.Audit.CleanupInterval = 24 * time.Hour
	}
	if c.Audit.MaxPayloadBytes <= 0 {
		c.Audit.MaxPayloadBytes = 64 * 1024
	}
	if c.Audit.QueueSize <= 0 {
		c.Audit.QueueSize = 1024
	}

	return joinErrors(errs)
}

func (c Config) IsProduction() bool {
	return c.App.Env == "production"
}

func (c Config) HTTPAddr() string {
	return fmt.Sprintf(":%d", c.App.Port)
}

func (c Config) PostgresDSN() string {
	// Avoid logging this string; it contains secrets.
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.DB.Host,
		c.DB.Port,
		c.DB.User,
		c.DB.Password,
		c.DB.Name,
		c.DB.SSLMode,
	)
}

func (c Config) RedisAddr() string {
	return fmt.Sprintf("%s:%d", c.Redis.Host, c.Redis.Port)
}

func mustInt(key string) (int, error) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return 0, fmt.Errorf("%s is required", key)
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%s must be an integer, got %q", key, v)
	}
	return n, nil
}

// optInt reads an optional integer env var; empty or malformed yields zero
// so that Validate() applies the default.
func optInt(key string) int {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return 0
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0
	}
	return n
}

func optDuration(key string) time.Duration {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return 0
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0
	}
	return d
}

func boolEnv(key string) bool {
	switch strings.ToLower(strings.TrimSpace(os.Getenv(key))) {
	case "1", "true", "yes", "on":
		return true
	default:
		return false
	}
}

func appendParseErr(errs []error, n int, err error) (int, []error) {
	if err != nil {
		errs = append(errs, err)
	}
	return n, errs
}

func isValidEnv(v string) bool {
	switch v {
	case "local", "dev", "staging", "production":
		return true
	default:
		return false
	}
}

func isValidSSLMode(v string) bool {
	switch v {
	case "disable", "require", "verify-ca", "verify-full":
		return true
	default:
		return false
	}
}

func joinErrors(errs []error) error {
	if len(errs) == 0 {
		return nil
	}
	if len(errs) == 1 {
		return errs[0]
	}
	var b strings.Builder
	b.WriteString("config errors:\n")
	for _, e := range errs {
		b.WriteString("- ")
		b.WriteString(e.Error())
		b.WriteString("\n")
	}
	return errors.New(strings.TrimSpace(b.String()))
}
