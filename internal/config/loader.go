package config

import (
	"errors"
	"fmt"
	"os"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
)

var validate = newValidator()

// Load builds a Config from the environment and validates it.
func Load() (*Config, error) {
	cfg := &Config{}
	if err := populate(reflect.ValueOf(cfg).Elem()); err != nil {
		return nil, fmt.Errorf("config load: %w", err)
	}
	cfg.Logging.Level = strings.ToLower(cfg.Logging.Level)
	cfg.Logging.Format = strings.ToLower(cfg.Logging.Format)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation: %w", err)
	}
	return cfg, nil
}

// lookup returns the raw value for a tagged field: the primary variable,
// then envAlt, then the default.
func lookup(tag reflect.StructTag) (string, bool) {
	name := tag.Get("env")
	if name == "" {
		return "", false
	}
	if v := os.Getenv(name); v != "" {
		return v, true
	}
	if alt := tag.Get("envAlt"); alt != "" {
		if v := os.Getenv(alt); v != "" {
			return v, true
		}
	}
	def := tag.Get("default")
	return def, def != ""
}

func populate(v reflect.Value) error {
	t := v.Type()
	for i := range t.NumField() {
		sf, fv := t.Field(i), v.Field(i)
		if !fv.CanSet() {
			continue
		}
		if sf.Type.Kind() == reflect.Struct {
			if err := populate(fv); err != nil {
				return err
			}
			continue
		}
		raw, ok := lookup(sf.Tag)
		if !ok {
			continue
		}
		if err := assign(fv, raw); err != nil {
			return fmt.Errorf("invalid value for %s=%q: %w", sf.Tag.Get("env"), raw, err)
		}
	}
	return nil
}

var durationType = reflect.TypeFor[time.Duration]()

func assign(fv reflect.Value, raw string) error {
	if fv.Type() == durationType {
		d, err := time.ParseDuration(raw)
		if err != nil {
			return err
		}
		fv.SetInt(int64(d))
		return nil
	}

	switch fv.Kind() {
	case reflect.String:
		fv.SetString(raw)
	case reflect.Int, reflect.Int64:
		n, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return err
		}
		fv.SetInt(n)
	case reflect.Float64:
		f, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return err
		}
		fv.SetFloat(f)
	case reflect.Bool:
		b, err := strconv.ParseBool(raw)
		if err != nil {
			return err
		}
		fv.SetBool(b)
	case reflect.Slice:
		if fv.Type().Elem().Kind() != reflect.String {
			return fmt.Errorf("unsupported slice of %s", fv.Type().Elem())
		}
		var items []string
		for item := range strings.SplitSeq(raw, ",") {
			if item = strings.TrimSpace(item); item != "" {
				items = append(items, item)
			}
		}
		fv.Set(reflect.ValueOf(items))
	default:
		return fmt.Errorf("unsupported kind %s", fv.Kind())
	}
	return nil
}

// newValidator reports fields by their environment variable name.
func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(sf reflect.StructField) string {
		if env := sf.Tag.Get("env"); env != "" {
			return env
		}
		return sf.Name
	})
	return v
}

func describe(fe validator.FieldError) string {
	switch fe.Tag() {
	case "gt":
		return fmt.Sprintf("%s must be positive", fe.Field())
	case "gte":
		return fmt.Sprintf("%s must be non-negative", fe.Field())
	case "min", "max":
		return fmt.Sprintf("%s (%v) is out of range", fe.Field(), fe.Value())
	case "ltefield":
		return fmt.Sprintf("%s (%v) must not exceed %s", fe.Field(), fe.Value(), fe.Param())
	case "gtefield":
		return fmt.Sprintf("%s (%v) must be at least %s", fe.Field(), fe.Value(), fe.Param())
	case "oneof":
		return fmt.Sprintf("%s (%q) must be one of: %s", fe.Field(), fe.Value(), strings.ReplaceAll(fe.Param(), " ", ", "))
	case "required":
		return fmt.Sprintf("%s is required", fe.Field())
	}
	return fmt.Sprintf("%s failed %s", fe.Field(), fe.Tag())
}

// Validate reports every invalid setting at once.
func (c *Config) Validate() error {
	var problems []string

	var verrs validator.ValidationErrors
	if err := validate.Struct(c); errors.As(err, &verrs) {
		for _, fe := range verrs {
			problems = append(problems, describe(fe))
		}
	} else if err != nil {
		return err
	}

	if c.Rate.Enabled && c.Rate.RequestsPerMinute <= 0 {
		problems = append(problems, "RATE_LIMIT_REQUESTS_PER_MINUTE must be positive when rate limiting is enabled")
	}
	if c.Security.RequireAPIKey && len(c.Security.APIKeys) == 0 {
		problems = append(problems, "REQUIRE_API_KEY is set but API_KEYS is empty")
	}

	if len(problems) > 0 {
		return fmt.Errorf("validation failed:\n  - %s", strings.Join(problems, "\n  - "))
	}
	return nil
}

// String renders the config for logs with API keys masked.
func (c *Config) String() string {
	g, e := c.Generation, c.Export
	return fmt.Sprintf("Config{Server: %s, Generation: {SampleSize: %d, MaxSampleSize: %d, MaxConcurrent: %d, Seed: %d}, "+
		"Export: {Concurrency: %d, SQLTable: %q, OutputDir: %q, S3Region: %q}, Rate: {Enabled: %v, RequestsPerMinute: %d}, "+
		"Security: {RequireAPIKey: %v, APIKeys: [MASKED x%d]}, Logging: {Level: %q, Format: %q, File: %q}}",
		c.Server.Addr(), g.SampleSize, g.MaxSampleSize, g.MaxConcurrent, g.Seed,
		e.Concurrency, e.SQLTable, e.OutputDir, e.S3Region, c.Rate.Enabled, c.Rate.RequestsPerMinute,
		c.Security.RequireAPIKey, len(c.Security.APIKeys), c.Logging.Level, c.Logging.Format, c.Logging.File)
}
