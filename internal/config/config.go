// Package config resolves runtime configuration from the environment.
// Local runs may keep values in a .env file; Lambda resolves the API key from
// SSM Parameter Store (see FetchSecret).
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"

	"github.com/fpang/banana-enhance/internal/enhance"
)

// Environment variable names.
const (
	EnvAPIKey         = "KIE_API_KEY"
	EnvBaseURL        = "KIE_BASE_URL"
	EnvSSMParam       = "SSM_API_KEY_PARAM"
	EnvPollInterval   = "ENHANCE_POLL_INTERVAL"
	EnvMaxAttempts    = "ENHANCE_MAX_ATTEMPTS"
	EnvDemoMode       = "DEMO_MODE"
	EnvAllowDemo      = "ALLOW_DEMO_REQUESTS"
	EnvAllowedOrigins = "ALLOWED_ORIGINS"
)

// DefaultSSMParam is the SSM parameter holding the kie.ai API key.
const DefaultSSMParam = "/banana-enhance/prod/kie-api-key"

// ErrMissingAPIKey is returned by Validate when no credential is configured
// and demo mode is not forced.
var ErrMissingAPIKey = errors.New(EnvAPIKey + " is required unless " + EnvDemoMode + "=true")

// Config is the resolved configuration shared by every entry point.
type Config struct {
	APIKey       string
	BaseURL      string
	SSMParam     string
	PollInterval time.Duration
	MaxAttempts  int

	// DemoMode forces every request onto the demo enhancer.
	DemoMode bool
	// AllowDemoRequests honours "demo_mode":"true" in request payloads.
	AllowDemoRequests bool

	AllowedOrigins []string
}

// Load reads the configuration from the environment. Malformed numeric or
// duration values are errors; absent values take their defaults.
func Load() (Config, error) {
	cfg := Config{
		APIKey:            os.Getenv(EnvAPIKey),
		BaseURL:           envOrDefault(EnvBaseURL, enhance.DefaultBaseURL),
		SSMParam:          envOrDefault(EnvSSMParam, DefaultSSMParam),
		PollInterval:      enhance.DefaultPollInterval,
		MaxAttempts:       enhance.DefaultMaxAttempts,
		AllowDemoRequests: true,
		AllowedOrigins:    splitList(envOrDefault(EnvAllowedOrigins, "*")),
	}

	if v := os.Getenv(EnvPollInterval); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil || d < 0 {
			return Config{}, fmt.Errorf("invalid %s %q: want a duration like 5s", EnvPollInterval, v)
		}
		cfg.PollInterval = d
	}
	if v := os.Getenv(EnvMaxAttempts); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			return Config{}, fmt.Errorf("invalid %s %q: want a positive integer", EnvMaxAttempts, v)
		}
		cfg.MaxAttempts = n
	}

	var err error
	if cfg.DemoMode, err = parseBool(EnvDemoMode, false); err != nil {
		return Config{}, err
	}
	if cfg.AllowDemoRequests, err = parseBool(EnvAllowDemo, true); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate reports configuration that cannot serve requests.
func (c Config) Validate() error {
	if c.APIKey == "" && !c.DemoMode {
		return ErrMissingAPIKey
	}
	return nil
}

// ClientOptions converts the configuration into enhance.Client options.
func (c Config) ClientOptions() []enhance.Option {
	return []enhance.Option{
		enhance.WithBaseURL(c.BaseURL),
		enhance.WithPollInterval(c.PollInterval),
		enhance.WithMaxAttempts(c.MaxAttempts),
	}
}

// LoadDotEnv loads variables from the given .env files (default ".env")
// without overriding variables already set. Missing files are ignored.
func LoadDotEnv(paths ...string) error {
	if len(paths) == 0 {
		paths = []string{".env"}
	}
	for _, p := range paths {
		if err := godotenv.Load(p); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return fmt.Errorf("load %s: %w", p, err)
		}
		log.Debug().Str("path", p).Msg("Loaded environment file")
	}
	return nil
}

func envOrDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func parseBool(key string, def bool) (bool, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, fmt.Errorf("invalid %s %q: want true or false", key, v)
	}
	return b, nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
