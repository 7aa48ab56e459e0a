// Package config provides centralized configuration management for the
// registration ingestion service. It loads configuration from environment
// variables with sensible defaults and validates all settings on startup to
// fail fast on misconfiguration.
package config

import (
	"strconv"
	"time"
)

// Config holds all application configuration.
// All settings can be configured via environment variables.
type Config struct {
	Server      ServerConfig
	Database    DatabaseConfig
	Submission  SubmissionConfig
	Authority   AuthorityConfig
	Scanner     ScannerConfig
	Redis       RedisConfig
	Auth        AuthConfig
	Rate        RateLimitConfig
	Security    SecurityConfig
	Logging     LoggingConfig
	Maintenance MaintenanceConfig
	Weca        WecaConfig
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	// Host is the interface to bind to (default: 0.0.0.0)
	Host string `env:"SERVER_HOST" default:"0.0.0.0"`

	// Port is the port to listen on (default: 8080)
	Port int `env:"SERVER_PORT" default:"8080"`

	ReadTimeout     time.Duration `env:"SERVER_READ_TIMEOUT" default:"15s"`
	WriteTimeout    time.Duration `env:"SERVER_WRITE_TIMEOUT" default:"30s"`
	IdleTimeout     time.Duration `env:"SERVER_IDLE_TIMEOUT" default:"60s"`
	ShutdownTimeout time.Duration `env:"SERVER_SHUTDOWN_TIMEOUT" default:"30s"`

	// RequestTimeout is the middleware timeout for requests (default: 60s)
	RequestTimeout time.Duration `env:"SERVER_REQUEST_TIMEOUT" default:"60s"`

	// AllowedOrigins lists CORS origins for the API (comma-separated)
	AllowedOrigins []string `env:"SERVER_ALLOWED_ORIGINS"`
}

// DatabaseConfig holds database connection settings.
type DatabaseConfig struct {
	// URL is the PostgreSQL connection string (required)
	// Supports both DATABASE_URL and DB_URL env vars for compatibility
	URL string `env:"DATABASE_URL" envAlt:"DB_URL" required:"true"`

	MaxConns        int           `env:"DB_MAX_CONNS" default:"20"`
	MinConns        int           `env:"DB_MIN_CONNS" default:"4"`
	MaxConnLifetime time.Duration `env:"DB_MAX_CONN_LIFETIME" default:"1h"`
	MaxConnIdleTime time.Duration `env:"DB_MAX_CONN_IDLE_TIME" default:"30m"`

	// AutoMigrate applies embedded migrations on server start (default: true)
	AutoMigrate bool `env:"DB_AUTO_MIGRATE" default:"true"`
}

// SubmissionConfig holds settings for the ingestion pipeline.
type SubmissionConfig struct {
	// MaxFileSize is the maximum accepted upload in bytes (default: 10MB)
	MaxFileSize int64 `env:"SUBMISSION_MAX_FILE_SIZE" default:"10485760"`

	// MaxConcurrent is the maximum number of pipelines running at once (default: 5)
	MaxConcurrent int `env:"SUBMISSION_MAX_CONCURRENT" default:"5"`

	// MaxWaitTime is how long a new submission waits for a pipeline slot (default: 5s)
	MaxWaitTime time.Duration `env:"SUBMISSION_MAX_WAIT_TIME" default:"5s"`

	// Timeout bounds a single pipeline run, scan included (default: 10m)
	Timeout time.Duration `env:"SUBMISSION_TIMEOUT" default:"10m"`

	// Encodings is the ordered list of encodings tried when decoding an upload
	Encodings []string `env:"SUBMISSION_ENCODINGS" default:"utf-8,utf-8-sig,utf-16,windows-1252,latin-1"`

	// DefaultTrafficArea fills trafficAreaId when the column is blank (default: WECA)
	DefaultTrafficArea string `env:"SUBMISSION_DEFAULT_TRAFFIC_AREA" default:"WECA"`
}

// AuthorityConfig holds settings for the external licensing authority.
type AuthorityConfig struct {
	// URL is the licence lookup endpoint (required)
	URL string `env:"AUTHORITY_URL" envAlt:"OTC_API_URL" required:"true"`

	APIKey string `env:"AUTHORITY_API_KEY" envAlt:"OTC_API_KEY"`

	// Timeout is the per-request timeout (default: 30s)
	Timeout time.Duration `env:"AUTHORITY_TIMEOUT" default:"30s"`

	// BatchLimit is the maximum number of licences per request (default: 100)
	BatchLimit int `env:"AUTHORITY_BATCH_LIMIT" default:"100"`

	// CacheTTL is how long lookups are cached in Redis; 0 disables caching (default: 15m)
	CacheTTL time.Duration `env:"AUTHORITY_CACHE_TTL" default:"15m"`
}

// ScannerConfig holds settings for the S3 tag-based antivirus scanner.
type ScannerConfig struct {
	// Enabled toggles virus scanning; when false every file is treated as clean (default: true)
	Enabled bool `env:"SCANNER_ENABLED" default:"true"`

	Bucket    string `env:"SCANNER_BUCKET" envAlt:"CLAMAV_S3_BUCKET_NAME"`
	Region    string `env:"SCANNER_REGION" envAlt:"AWS_REGION" default:"eu-west-2"`
	Endpoint  string `env:"SCANNER_ENDPOINT"`
	AccessKey string `env:"SCANNER_ACCESS_KEY" envAlt:"AWS_ACCESS_KEY_ID"`
	SecretKey string `env:"SCANNER_SECRET_KEY" envAlt:"AWS_SECRET_ACCESS_KEY"`

	// Prefix is the key prefix, usually the deployment environment (default: local)
	Prefix string `env:"SCANNER_PREFIX" envAlt:"PROJECT_ENV" default:"local"`

	PollInterval time.Duration `env:"SCANNER_POLL_INTERVAL" default:"10s"`
	MaxAttempts  int           `env:"SCANNER_MAX_ATTEMPTS" default:"10"`
}

// RedisConfig holds Redis connection settings for the lookup cache.
type RedisConfig struct {
	// URL is the Redis connection string; empty disables the cache
	URL string `env:"REDIS_URL"`

	PoolSize     int           `env:"REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `env:"REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `env:"REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `env:"REDIS_READ_TIMEOUT" default:"3s"`
	WriteTimeout time.Duration `env:"REDIS_WRITE_TIMEOUT" default:"3s"`
}

// AuthConfig holds settings for bearer-token identity resolution.
type AuthConfig struct {
	// JWTSecret is the HS256 signing secret (required)
	JWTSecret string `env:"AUTH_JWT_SECRET" required:"true"`

	// Issuer, when set, must match the token's iss claim
	Issuer string `env:"AUTH_ISSUER"`

	// GroupClaim names the claim carrying the submitter's local authority (default: group)
	GroupClaim string `env:"AUTH_GROUP_CLAIM" default:"group"`
}

// RateLimitConfig holds per-client rate limiting settings.
type RateLimitConfig struct {
	Enabled bool `env:"RATE_LIMIT_ENABLED" default:"true"`

	// RequestsPerSecond is the sustained per-client rate (default: 5)
	RequestsPerSecond float64 `env:"RATE_LIMIT_RPS" default:"5"`

	// Burst is the per-client burst size (default: 20)
	Burst int `env:"RATE_LIMIT_BURST" default:"20"`
}

// SecurityConfig holds security-related settings.
type SecurityConfig struct {
	// TrustedProxies is a comma-separated list of trusted proxy CIDRs
	TrustedProxies []string `env:"TRUSTED_PROXIES"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	// Level is the minimum log level: debug, info, warn, error (default: info)
	Level string `env:"LOG_LEVEL" default:"info"`

	// Format is the log format: text or json (default: text)
	Format string `env:"LOG_FORMAT" default:"text"`
}

// MaintenanceConfig holds settings for the scheduled housekeeping job.
type MaintenanceConfig struct {
	// Schedule is a cron spec (default: @every 1h)
	Schedule string `env:"MAINTENANCE_SCHEDULE" default:"@every 1h"`

	// ReportRetention is how long an unread report is kept (default: 168h)
	ReportRetention time.Duration `env:"MAINTENANCE_REPORT_RETENTION" default:"168h"`

	// StaleBatchAge is when an unresolved staging batch gets flagged (default: 72h)
	StaleBatchAge time.Duration `env:"MAINTENANCE_STALE_BATCH_AGE" default:"72h"`
}

// WecaConfig holds settings for the WECA timetable API feed, the second
// ingestion source next to file uploads. It is only read by the ingest-weca
// command.
type WecaConfig struct {
	// URL is the report endpoint; empty disables the feed
	URL string `env:"WECA_API_URL"`

	// AuthToken is sent verbatim in the Authorization header
	AuthToken string `env:"WECA_AUTH_TOKEN"`

	// ParamC, ParamT and ParamR select the report on the WECA side
	ParamC string `env:"WECA_PARAM_C"`
	ParamT string `env:"WECA_PARAM_T"`
	ParamR string `env:"WECA_PARAM_R"`

	// Timeout is the request timeout (default: 30s)
	Timeout time.Duration `env:"WECA_TIMEOUT" default:"30s"`

	// Group and User name the service identity the feed submits under
	Group string `env:"WECA_SERVICE_GROUP" envAlt:"USER_GROUP" default:"weca"`
	User  string `env:"WECA_SERVICE_USER" envAlt:"USER_NAME" default:"weca_api"`
}

// Addr returns the server listen address in host:port format.
func (c *ServerConfig) Addr() string {
	return c.Host + ":" + strconv.Itoa(c.Port)
}
