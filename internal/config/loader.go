package config

import (
	"fmt"
	"os"
	"reflect"
	"strconv"
	"strings"
	"time"
)

// Load reads configuration from environment variables.
// It applies defaults for unset values and validates the result.
// Returns an error if required values are missing or validation fails.
func Load() (*Config, error) {
	cfg := &Config{}

	if err := loadStruct(reflect.ValueOf(cfg).Elem()); err != nil {
		return nil, fmt.Errorf("config load: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation: %w", err)
	}

	return cfg, nil
}

// MustLoad loads configuration and panics on error.
// Use this only in main() where early termination is desired.
func MustLoad() *Config {
	cfg, err := Load()
	if err != nil {
		panic(fmt.Sprintf("failed to load configuration: %v", err))
	}
	return cfg
}

// loadStruct recursively populates struct fields from environment variables.
// Nested structs are walked depth-first; time.Time is treated as a leaf.
func loadStruct(v reflect.Value) error {
	t := v.Type()

	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)
		fieldVal := v.Field(i)

		// Skip unexported fields
		if !fieldVal.CanSet() {
			continue
		}

		// Recurse into nested structs
		if field.Type.Kind() == reflect.Struct && field.Type != reflect.TypeOf(time.Time{}) {
			if err := loadStruct(fieldVal); err != nil {
				return err
			}
			continue
		}

		// Get tags
		envName := field.Tag.Get("env")
		envAlt := field.Tag.Get("envAlt")
		defaultVal := field.Tag.Get("default")
		required := field.Tag.Get("required") == "true"

		if envName == "" {
			continue
		}

		// Try primary env var, then alternate
		value := os.Getenv(envName)
		if value == "" && envAlt != "" {
			value = os.Getenv(envAlt)
		}

		// Apply default if not set
		if value == "" {
			if required {
				return fmt.Errorf("required environment variable %s is not set", envName)
			}
			value = defaultVal
		}

		if value == "" {
			continue
		}

		// Set the field value
		if err := setField(fieldVal, value); err != nil {
			return fmt.Errorf("invalid value for %s=%q: %w", envName, value, err)
		}
	}

	return nil
}

// setField sets a reflect.Value from a string based on its type.
func setField(field reflect.Value, value string) error {
	switch field.Kind() {
	case reflect.String:
		field.SetString(value)

	case reflect.Int, reflect.Int64:
		// Handle time.Duration specially
		if field.Type() == reflect.TypeOf(time.Duration(0)) {
			d, err := time.ParseDuration(value)
			if err != nil {
				return fmt.Errorf("invalid duration: %w", err)
			}
			field.Set(reflect.ValueOf(d))
		} else {
			i, err := strconv.ParseInt(value, 10, 64)
			if err != nil {
				return fmt.Errorf("invalid integer: %w", err)
			}
			field.SetInt(i)
		}

	case reflect.Float64:
		f, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return fmt.Errorf("invalid float: %w", err)
		}
		field.SetFloat(f)

	case reflect.Bool:
		b, err := strconv.ParseBool(value)
		if err != nil {
			return fmt.Errorf("invalid boolean: %w", err)
		}
		field.SetBool(b)

	case reflect.Slice:
		if field.Type().Elem().Kind() == reflect.String {
			// Split comma-separated values, trim whitespace
			parts := strings.Split(value, ",")
			result := make([]string, 0, len(parts))
			for _, p := range parts {
				p = strings.TrimSpace(p)
				if p != "" {
					result = append(result, p)
				}
			}
			field.Set(reflect.ValueOf(result))
		} else {
			return fmt.Errorf("unsupported slice type: %s", field.Type().Elem().Kind())
		}

	default:
		return fmt.Errorf("unsupported field type: %s", field.Kind())
	}

	return nil
}

// Validate checks that the configuration is valid.
// Returns an error describing all validation failures.
func (c *Config) Validate() error {
	var errs []string

	// Database
	if c.Database.URL == "" {
		errs = append(errs, "DATABASE_URL is required")
	}
	if c.Database.MaxConns <= 0 {
		errs = append(errs, "DB_MAX_CONNS must be positive")
	}
	if c.Database.MinConns < 0 {
		errs = append(errs, "DB_MIN_CONNS must be non-negative")
	}
	if c.Database.MaxConns < c.Database.MinConns {
		errs = append(errs, fmt.Sprintf("DB_MAX_CONNS (%d) must be >= DB_MIN_CONNS (%d)",
			c.Database.MaxConns, c.Database.MinConns))
	}

	// Server
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Sprintf("SERVER_PORT (%d) must be 1-65535", c.Server.Port))
	}
	if c.Server.ShutdownTimeout <= 0 {
		errs = append(errs, "SERVER_SHUTDOWN_TIMEOUT must be positive")
	}

	// Submission pipeline
	if c.Submission.MaxFileSize <= 0 {
		errs = append(errs, "SUBMISSION_MAX_FILE_SIZE must be positive")
	}
	if c.Submission.MaxConcurrent <= 0 {
		errs = append(errs, "SUBMISSION_MAX_CONCURRENT must be positive")
	}
	if c.Submission.Timeout <= 0 {
		errs = append(errs, "SUBMISSION_TIMEOUT must be positive")
	}
	if len(c.Submission.Encodings) == 0 {
		errs = append(errs, "SUBMISSION_ENCODINGS must list at least one encoding")
	}

	// Authority
	if c.Authority.URL == "" {
		errs = append(errs, "AUTHORITY_URL is required")
	}
	if c.Authority.Timeout <= 0 {
		errs = append(errs, "AUTHORITY_TIMEOUT must be positive")
	}
	if c.Authority.BatchLimit <= 0 {
		errs = append(errs, "AUTHORITY_BATCH_LIMIT must be positive")
	}

	// Scanner
	if c.Scanner.Enabled {
		if c.Scanner.Bucket == "" {
			errs = append(errs, "SCANNER_BUCKET is required when SCANNER_ENABLED is true")
		}
		if c.Scanner.PollInterval <= 0 {
			errs = append(errs, "SCANNER_POLL_INTERVAL must be positive")
		}
		if c.Scanner.MaxAttempts <= 0 {
			errs = append(errs, "SCANNER_MAX_ATTEMPTS must be positive")
		}
	}

	// Auth
	if len(c.Auth.JWTSecret) < 32 {
		errs = append(errs, "AUTH_JWT_SECRET must be at least 32 characters")
	}

	// Rate limiting
	if c.Rate.Enabled && (c.Rate.RequestsPerSecond <= 0 || c.Rate.Burst <= 0) {
		errs = append(errs, "RATE_LIMIT_RPS and RATE_LIMIT_BURST must be positive when rate limiting is enabled")
	}

	// Maintenance
	if c.Maintenance.Schedule == "" {
		errs = append(errs, "MAINTENANCE_SCHEDULE is required")
	}
	if c.Maintenance.ReportRetention <= 0 {
		errs = append(errs, "MAINTENANCE_REPORT_RETENTION must be positive")
	}

	// WECA feed
	if c.Weca.URL != "" && c.Weca.Timeout <= 0 {
		errs = append(errs, "WECA_TIMEOUT must be positive")
	}

	// Logging
	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[strings.ToLower(c.Logging.Level)] {
		errs = append(errs, fmt.Sprintf("LOG_LEVEL (%q) must be one of: debug, info, warn, error", c.Logging.Level))
	}
	validFormats := map[string]bool{"text": true, "json": true}
	if !validFormats[strings.ToLower(c.Logging.Format)] {
		errs = append(errs, fmt.Sprintf("LOG_FORMAT (%q) must be one of: text, json", c.Logging.Format))
	}

	if len(errs) > 0 {
		return fmt.Errorf("validation failed:\n  - %s", strings.Join(errs, "\n  - "))
	}

	return nil
}

// String returns a safe string representation of the config for logging.
// Secrets (database URL, JWT secret, API and S3 keys) are never printed.
func (c *Config) String() string {
	var b strings.Builder
	b.WriteString("Config{")
	fmt.Fprintf(&b, "Server: {Host: %q, Port: %d}, ", c.Server.Host, c.Server.Port)
	fmt.Fprintf(&b, "Database: {URL: [MASKED], MaxConns: %d, MinConns: %d}, ",
		c.Database.MaxConns, c.Database.MinConns)
	fmt.Fprintf(&b, "Submission: {MaxFileSize: %d, MaxConcurrent: %d, Encodings: %v}, ",
		c.Submission.MaxFileSize, c.Submission.MaxConcurrent, c.Submission.Encodings)
	fmt.Fprintf(&b, "Authority: {URL: %q, APIKey: [MASKED], BatchLimit: %d}, ",
		c.Authority.URL, c.Authority.BatchLimit)
	fmt.Fprintf(&b, "Scanner: {Enabled: %v, Bucket: %q, Keys: [MASKED]}, ",
		c.Scanner.Enabled, c.Scanner.Bucket)
	fmt.Fprintf(&b, "Redis: {Configured: %v}, ", c.Redis.URL != "")
	fmt.Fprintf(&b, "Weca: {URL: %q, AuthToken: [MASKED], Group: %q, User: %q}, ",
		c.Weca.URL, c.Weca.Group, c.Weca.User)
	fmt.Fprintf(&b, "Logging: {Level: %q, Format: %q}", c.Logging.Level, c.Logging.Format)
	b.WriteString("}")
	return b.String()
}
