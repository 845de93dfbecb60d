// Package config loads gendb settings from the environment.
//
// Each field names its variable with an env tag, an optional envAlt
// fallback and a default. Constraints live in validate tags and are checked
// once after loading, so a bad deployment fails at startup.
package config

import (
	"net"
	"strconv"
	"time"
)

// Config is the complete runtime configuration.
type Config struct {
	Server     ServerConfig
	Data       DataConfig
	Generation GenerationConfig
	Export     ExportConfig
	Rate       RateLimitConfig
	Security   SecurityConfig
	Logging    LoggingConfig
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	// Host is the interface to bind to (default: 0.0.0.0)
	Host string `env:"SERVER_HOST" default:"0.0.0.0"`

	// Port is the port to listen on (default: 8080)
	Port int `env:"SERVER_PORT" default:"8080" validate:"min=1,max=65535"`

	// ReadTimeout is the maximum duration for reading request body (default: 15s)
	ReadTimeout time.Duration `env:"SERVER_READ_TIMEOUT" default:"15s" validate:"gte=0"`

	// WriteTimeout is the maximum duration for writing response (default: 0, downloads can be large)
	WriteTimeout time.Duration `env:"SERVER_WRITE_TIMEOUT" default:"0s"`

	// IdleTimeout is the keep-alive timeout (default: 60s)
	IdleTimeout time.Duration `env:"SERVER_IDLE_TIMEOUT" default:"60s"`

	// ShutdownTimeout is the maximum duration to wait for graceful shutdown (default: 30s)
	ShutdownTimeout time.Duration `env:"SERVER_SHUTDOWN_TIMEOUT" default:"30s" validate:"gt=0"`

	// RequestTimeout is the middleware timeout for requests (default: 5m)
	RequestTimeout time.Duration `env:"SERVER_REQUEST_TIMEOUT" default:"5m"`
}

// DataConfig points at reference data files. Empty paths use the
// embedded defaults.
type DataConfig struct {
	LocalityPath   string `env:"DATA_LOCALITY_PATH"`
	PostalCodePath string `env:"DATA_POSTAL_CODE_PATH"`
	NamePath       string `env:"DATA_NAME_PATH"`
	SurnamePath    string `env:"DATA_SURNAME_PATH"`
}

// GenerationConfig holds generation defaults and run limits.
type GenerationConfig struct {
	// SampleSize is the default number of rows per run (default: 100)
	SampleSize int `env:"GEN_SAMPLE_SIZE" default:"100" validate:"gt=0"`

	// LocalityWeighted draws cities proportionally to population (default: true)
	LocalityWeighted bool `env:"GEN_LOCALITY_WEIGHTED" default:"true"`

	// NameWeighted draws first names by yearly frequency (default: true)
	NameWeighted bool `env:"GEN_NAME_WEIGHTED" default:"true"`

	// FemaleChance is the percent chance a person is female (default: 50)
	FemaleChance float64 `env:"GEN_FEMALE_CHANCE" default:"50" validate:"min=0,max=100"`

	// SecondNameChance is the percent chance of a second name (default: 30)
	SecondNameChance float64 `env:"GEN_SECOND_NAME_CHANCE" default:"30" validate:"min=0,max=100"`

	// BirthYearFrom and BirthYearTo bound birth dates, inclusive (default: 1950-2005)
	BirthYearFrom int `env:"GEN_BIRTH_YEAR_FROM" default:"1950" validate:"ltefield=BirthYearTo"`
	BirthYearTo   int `env:"GEN_BIRTH_YEAR_TO" default:"2005"`

	// Seed fixes the random source when non-zero (default: 0, random)
	Seed int64 `env:"GEN_SEED" default:"0"`

	// PIDMaxAttempts bounds PID collision retries per row (default: 10000)
	PIDMaxAttempts int `env:"GEN_PID_MAX_ATTEMPTS" default:"10000" validate:"gt=0"`

	// MaxSampleSize caps SampleSize for HTTP requests (default: 1000000)
	MaxSampleSize int `env:"GEN_MAX_SAMPLE_SIZE" default:"1000000" validate:"gtefield=SampleSize"`

	// MaxConcurrent is the maximum number of parallel runs (default: 2)
	MaxConcurrent int `env:"GEN_MAX_CONCURRENT" default:"2" validate:"gt=0"`

	// MaxWaitTime is how long to wait for a run slot (default: 30s)
	MaxWaitTime time.Duration `env:"GEN_MAX_WAIT_TIME" default:"30s" validate:"gt=0"`

	// Timeout is the maximum duration of a single run including export (default: 10m)
	Timeout time.Duration `env:"GEN_TIMEOUT" default:"10m" validate:"gt=0"`
}

// ExportConfig holds export destination settings.
type ExportConfig struct {
	// Concurrency bounds destinations written at once (default: 4)
	Concurrency int `env:"EXPORT_CONCURRENCY" default:"4" validate:"gt=0"`

	// SQLTable is the table SQL destinations append to (default: people)
	SQLTable string `env:"EXPORT_SQL_TABLE" default:"people" validate:"required"`

	// OutputDir restricts HTTP file destinations to this directory (default: ./out)
	OutputDir string `env:"EXPORT_OUTPUT_DIR" default:"out"`

	// S3Region enables s3:// destinations when set
	S3Region string `env:"EXPORT_S3_REGION" envAlt:"AWS_REGION"`

	// S3Endpoint overrides the S3 endpoint, e.g. for MinIO
	S3Endpoint string `env:"EXPORT_S3_ENDPOINT"`

	// S3PathStyle uses path-style bucket addressing (default: false)
	S3PathStyle bool `env:"EXPORT_S3_PATH_STYLE" default:"false"`
}

// RateLimitConfig holds rate limiting settings per time window.
type RateLimitConfig struct {
	// Enabled controls whether rate limiting is active (default: true)
	Enabled bool `env:"RATE_LIMIT_ENABLED" default:"true"`

	// RequestsPerMinute is the default rate limit per IP (default: 100)
	RequestsPerMinute int `env:"RATE_LIMIT_REQUESTS_PER_MINUTE" default:"100"`
}

// SecurityConfig holds security-related settings.
type SecurityConfig struct {
	// TrustedProxies is a comma-separated list of trusted proxy CIDRs
	TrustedProxies []string `env:"TRUSTED_PROXIES"`

	// RequireAPIKey protects run endpoints with X-API-Key (default: false)
	RequireAPIKey bool `env:"REQUIRE_API_KEY" default:"false"`

	// APIKeys is a comma-separated list of accepted API keys
	APIKeys []string `env:"API_KEYS"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	// Level is the minimum log level: debug, info, warn, error (default: info)
	Level string `env:"LOG_LEVEL" default:"info" validate:"oneof=debug info warn error"`

	// Format is the log format: text or json (default: text)
	Format string `env:"LOG_FORMAT" default:"text" validate:"oneof=text json"`

	// File is an optional append-only diagnostic log
	File string `env:"LOG_FILE"`
}

// Addr returns the server listen address in host:port format.
func (c *ServerConfig) Addr() string {
	return net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
}
