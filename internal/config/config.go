// Package config loads SportsMed Pro settings from defaults, an optional YAML
// file, an optional .env file and SPORTSMED_* environment variables.
package config

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// DefaultPath is the config file read when no path is given.
const DefaultPath = "sportsmed.yaml"

// Environments
const (
	EnvDevelopment = "development"
	EnvProduction  = "production"
)

// Config errors
var (
	ErrCSRFKeyRequired   = errors.New("csrf key is required in production")
	ErrCSRFKeyFormat     = errors.New("csrf key must be 64 hex characters")
	ErrJWTSecretRequired = errors.New("jwt secret is required in production")
)

// DatabaseConfig selects and tunes the SQL backend.
type DatabaseConfig struct {
	Driver       string `yaml:"driver"`
	DSN          string `yaml:"dsn"`
	MaxOpenConns int    `yaml:"max_open_conns"`
	SlowQueryMs  int    `yaml:"slow_query_ms"`
}

// SecurityConfig holds secrets and request guards.
type SecurityConfig struct {
	CSRFKey        string        `yaml:"csrf_key"`
	JWTSecret      string        `yaml:"jwt_secret"`
	TokenTTL       time.Duration `yaml:"token_ttl"`
	TrustedOrigins []string      `yaml:"trusted_origins"`
	RateLimit      int           `yaml:"rate_limit"`
}

// EmailConfig configures outbound mail.
type EmailConfig struct {
	ResendKey string `yaml:"resend_key"`
	From      string `yaml:"from"`
	ReplyTo   string `yaml:"reply_to"`
}

// LoggingConfig configures the default slog logger.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Config is the full application configuration.
type Config struct {
	Env           string         `yaml:"env"`
	Addr          string         `yaml:"addr"`
	SlowRequestMs int            `yaml:"slow_request_ms"`
	Database      DatabaseConfig `yaml:"database"`
	Security      SecurityConfig `yaml:"security"`
	Email         EmailConfig    `yaml:"email"`
	Logging       LoggingConfig  `yaml:"logging"`
}

// Default returns the development defaults.
func Default() Config {
	return Config{
		Env:           EnvDevelopment,
		Addr:          ":8080",
		SlowRequestMs: 500,
		Database: DatabaseConfig{
			Driver:       "sqlite",
			DSN:          "sportsmed.db",
			MaxOpenConns: 25,
			SlowQueryMs:  50,
		},
		Security: SecurityConfig{
			TokenTTL:  24 * time.Hour,
			RateLimit: 120,
		},
		Email: EmailConfig{
			From:    "SportsMed Pro <noreply@sportsmed.example>",
			ReplyTo: "support@sportsmed.example",
		},
		Logging: LoggingConfig{Level: "info", Format: "text"},
	}
}

// Load builds the configuration.
// PRE: path may be empty (DefaultPath is used) or name a missing file
// POST: Returns a validated Config; .env values never override real environment variables
func Load(path string) (Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Config{}, fmt.Errorf("failed to read .env: %w", err)
	}

	cfg := Default()
	if path == "" {
		path = DefaultPath
	}
	if err := cfg.readFile(path); err != nil {
		return Config{}, err
	}
	if err := cfg.applyEnv(os.LookupEnv); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c *Config) readFile(path string) error {
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to read config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("failed to parse config %s: %w", path, err)
	}
	return nil
}

// applyEnv overlays SPORTSMED_* variables.
func (c *Config) applyEnv(lookup func(string) (string, bool)) error {
	str := func(key string, dst *string) {
		if v, ok := lookup(key); ok && v != "" {
			*dst = v
		}
	}
	num := func(key string, dst *int) error {
		v, ok := lookup(key)
		if !ok || v == "" {
			return nil
		}
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%s must be an integer: %w", key, err)
		}
		*dst = n
		return nil
	}

	str("SPORTSMED_ENV", &c.Env)
	str("SPORTSMED_ADDR", &c.Addr)
	str("SPORTSMED_DB_DRIVER", &c.Database.Driver)
	str("SPORTSMED_DB_DSN", &c.Database.DSN)
	str("SPORTSMED_CSRF_KEY", &c.Security.CSRFKey)
	str("SPORTSMED_JWT_SECRET", &c.Security.JWTSecret)
	str("SPORTSMED_RESEND_KEY", &c.Email.ResendKey)
	str("SPORTSMED_EMAIL_FROM", &c.Email.From)
	str("SPORTSMED_LOG_LEVEL", &c.Logging.Level)
	str("SPORTSMED_LOG_FORMAT", &c.Logging.Format)
	if v, ok := lookup("SPORTSMED_TRUSTED_ORIGINS"); ok && v != "" {
		c.Security.TrustedOrigins = strings.Split(v, ",")
	}
	for key, dst := range map[string]*int{
		"SPORTSMED_SLOW_QUERY_MS":   &c.Database.SlowQueryMs,
		"SPORTSMED_SLOW_REQUEST_MS": &c.SlowRequestMs,
		"SPORTSMED_RATE_LIMIT":      &c.Security.RateLimit,
	} {
		if err := num(key, dst); err != nil {
			return err
		}
	}
	return nil
}

// Validate checks the configuration for the selected environment.
// PRE: none
// POST: Returns nil if the server can start with c
func (c *Config) Validate() error {
	switch strings.ToLower(c.Database.Driver) {
	case "sqlite", "postgres":
	default:
		return fmt.Errorf("database driver must be sqlite or postgres, got %q", c.Database.Driver)
	}
	if c.Database.DSN == "" {
		return errors.New("database dsn is required")
	}
	if c.Security.CSRFKey != "" {
		if b, err := hex.DecodeString(c.Security.CSRFKey); err != nil || len(b) != 32 {
			return ErrCSRFKeyFormat
		}
	}
	if c.IsProduction() {
		if c.Security.CSRFKey == "" {
			return ErrCSRFKeyRequired
		}
		if c.Security.JWTSecret == "" {
			return ErrJWTSecretRequired
		}
	}
	if _, err := parseLevel(c.Logging.Level); err != nil {
		return err
	}
	return nil
}

// IsProduction reports whether the production environment is selected.
func (c *Config) IsProduction() bool {
	return c.Env == EnvProduction
}

// CSRFKeyBytes returns the CSRF auth key, generating a random one outside production.
// PRE: c has been validated
// POST: Returns 32 bytes
func (c *Config) CSRFKeyBytes() ([]byte, error) {
	if c.Security.CSRFKey != "" {
		return hex.DecodeString(c.Security.CSRFKey)
	}
	if c.IsProduction() {
		return nil, ErrCSRFKeyRequired
	}
	key := make([]byte, 32)
	if _, err := rand.Read(key); err != nil {
		return nil, err
	}
	slog.Warn("config_event", "event", "csrf_key_generated", "env", c.Env)
	return key, nil
}

// JWTSecretBytes returns the token signing secret. Development falls back to a fixed value.
func (c *Config) JWTSecretBytes() []byte {
	if c.Security.JWTSecret == "" {
		return []byte("sportsmed-dev-secret")
	}
	return []byte(c.Security.JWTSecret)
}

// NewLogger builds a slog logger from the logging section.
// PRE: c has been validated
func (c *Config) NewLogger(w io.Writer) *slog.Logger {
	level, _ := parseLevel(c.Logging.Level)
	opts := &slog.HandlerOptions{Level: level}
	if strings.EqualFold(c.Logging.Format, "json") {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

func parseLevel(s string) (slog.Level, error) {
	var level slog.Level
	if s == "" {
		return slog.LevelInfo, nil
	}
	if err := level.UnmarshalText([]byte(s)); err != nil {
		return 0, fmt.Errorf("invalid log level %q", s)
	}
	return level, nil
}
