// Package config loads client settings from defaults, a YAML file, the
// environment (optionally seeded from a .env file) and command-line flags,
// in that order of precedence.
package config

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"
)

const (
	DefaultConfigFile = "quiz-client.yaml"
	DefaultEnvFile    = ".env"
)

var ErrInvalidConfig = errors.New("invalid config")

type Config struct {
	ServerURL         string        `yaml:"server_url"`
	APIPrefix         string        `yaml:"api_prefix"`
	SessionCookieName string        `yaml:"session_cookie_name"`
	Session           string        `yaml:"session"`
	HTTPTimeout       time.Duration `yaml:"http_timeout"`
	AuthCacheTTL      time.Duration `yaml:"auth_cache_ttl"`
	JournalPath       string        `yaml:"journal_path"`
	LogLevel          string        `yaml:"log_level"`
	LogFormat         string        `yaml:"log_format"`
}

func Default() Config {
	return Config{
		ServerURL:         "http://localhost:8080",
		APIPrefix:         "/api",
		SessionCookieName: "session",
		HTTPTimeout:       10 * time.Second,
		AuthCacheTTL:      5 * time.Minute,
		JournalPath:       "quiz-journal.db",
		LogLevel:          "info",
		LogFormat:         "text",
	}
}

// BaseURL is the root every API path is appended to.
func (c Config) BaseURL() string {
	return strings.TrimRight(c.ServerURL, "/") + c.APIPrefix
}

func (c Config) LoginURL() string {
	return strings.TrimRight(c.ServerURL, "/") + "/login"
}

func (c Config) Validate() error {
	parsed, err := url.Parse(c.ServerURL)
	if err != nil || (parsed.Scheme != "http" && parsed.Scheme != "https") || parsed.Host == "" {
		return fmt.Errorf("%w: server_url %q must be an http(s) URL", ErrInvalidConfig, c.ServerURL)
	}
	if c.APIPrefix != "" && !strings.HasPrefix(c.APIPrefix, "/") {
		return fmt.Errorf("%w: api_prefix %q must start with /", ErrInvalidConfig, c.APIPrefix)
	}
	if strings.TrimSpace(c.SessionCookieName) == "" {
		return fmt.Errorf("%w: session_cookie_name is required", ErrInvalidConfig)
	}
	if c.HTTPTimeout <= 0 {
		return fmt.Errorf("%w: http_timeout must be positive", ErrInvalidConfig)
	}
	if c.AuthCacheTTL <= 0 {
		return fmt.Errorf("%w: auth_cache_ttl must be positive", ErrInvalidConfig)
	}
	if _, err := logrus.ParseLevel(c.LogLevel); err != nil {
		return fmt.Errorf("%w: log_level: %v", ErrInvalidConfig, err)
	}
	switch c.LogFormat {
	case "text", "json":
	default:
		return fmt.Errorf("%w: log_format %q must be text or json", ErrInvalidConfig, c.LogFormat)
	}
	return nil
}

// LookupFunc matches os.LookupEnv.
type LookupFunc func(key string) (string, bool)

// Load builds the config for args (without the program name). lookup defaults
// to os.LookupEnv; real environment variables win over the .env file.
func Load(args []string, lookup LookupFunc) (Config, error) {
	if lookup == nil {
		lookup = os.LookupEnv
	}
	cfg := Default()

	fs := flag.NewFlagSet("quiz-client", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	configPath := fs.String("config", "", "path to YAML config file")
	envFile := fs.String("env-file", DefaultEnvFile, "path to .env file")
	server := fs.String("server", cfg.ServerURL, "quiz backend URL")
	apiPrefix := fs.String("api-prefix", cfg.APIPrefix, "path prefix of the API routes")
	session := fs.String("session", "", "session cookie value")
	timeout := fs.Duration("timeout", cfg.HTTPTimeout, "HTTP timeout")
	authTTL := fs.Duration("auth-ttl", cfg.AuthCacheTTL, "how long a fetched auth status is reused")
	journalPath := fs.String("journal", cfg.JournalPath, "answer journal database path (empty disables)")
	logLevel := fs.String("log-level", cfg.LogLevel, "log level")
	logFormat := fs.String("log-format", cfg.LogFormat, "log format: text or json")
	if err := fs.Parse(args); err != nil {
		return Config{}, err
	}

	setFlags := make(map[string]bool)
	fs.Visit(func(f *flag.Flag) { setFlags[f.Name] = true })

	dotenv, err := readEnvFile(*envFile, setFlags["env-file"])
	if err != nil {
		return Config{}, err
	}
	env := func(key string) (string, bool) {
		if value, ok := lookup(key); ok {
			return value, true
		}
		value, ok := dotenv[key]
		return value, ok
	}

	path, explicit := *configPath, setFlags["config"]
	if !explicit {
		if value, ok := env("QUIZ_CONFIG"); ok && strings.TrimSpace(value) != "" {
			path, explicit = value, true
		} else {
			path = DefaultConfigFile
		}
	}
	if err := loadYAML(&cfg, path, explicit); err != nil {
		return Config{}, err
	}

	if err := applyEnv(&cfg, env); err != nil {
		return Config{}, err
	}

	if setFlags["server"] {
		cfg.ServerURL = *server
	}
	if setFlags["api-prefix"] {
		cfg.APIPrefix = *apiPrefix
	}
	if setFlags["session"] {
		cfg.Session = *session
	}
	if setFlags["timeout"] {
		cfg.HTTPTimeout = *timeout
	}
	if setFlags["auth-ttl"] {
		cfg.AuthCacheTTL = *authTTL
	}
	if setFlags["journal"] {
		cfg.JournalPath = *journalPath
	}
	if setFlags["log-level"] {
		cfg.LogLevel = *logLevel
	}
	if setFlags["log-format"] {
		cfg.LogFormat = *logFormat
	}

	cfg.ServerURL = strings.TrimRight(strings.TrimSpace(cfg.ServerURL), "/")
	cfg.LogLevel = strings.ToLower(strings.TrimSpace(cfg.LogLevel))
	cfg.LogFormat = strings.ToLower(strings.TrimSpace(cfg.LogFormat))

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func readEnvFile(path string, required bool) (map[string]string, error) {
	if strings.TrimSpace(path) == "" {
		return nil, nil
	}
	values, err := godotenv.Read(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) && !required {
			return nil, nil
		}
		return nil, fmt.Errorf("read env file %s: %w", path, err)
	}
	return values, nil
}

func loadYAML(cfg *Config, path string, required bool) error {
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) && !required {
			return nil
		}
		return fmt.Errorf("open config %s: %w", path, err)
	}
	defer f.Close()

	decoder := yaml.NewDecoder(f)
	decoder.KnownFields(true)
	if err := decoder.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("decode config %s: %w", path, err)
	}
	return nil
}

func applyEnv(cfg *Config, env LookupFunc) error {
	strs := []struct {
		key string
		dst *string
	}{
		{"QUIZ_SERVER_URL", &cfg.ServerURL},
		{"QUIZ_API_PREFIX", &cfg.APIPrefix},
		{"QUIZ_SESSION_COOKIE", &cfg.SessionCookieName},
		{"QUIZ_SESSION", &cfg.Session},
		{"QUIZ_JOURNAL_PATH", &cfg.JournalPath},
		{"QUIZ_LOG_LEVEL", &cfg.LogLevel},
		{"QUIZ_LOG_FORMAT", &cfg.LogFormat},
	}
	for _, item := range strs {
		if value, ok := env(item.key); ok {
			*item.dst = value
		}
	}

	durations := []struct {
		key string
		dst *time.Duration
	}{
		{"QUIZ_HTTP_TIMEOUT", &cfg.HTTPTimeout},
		{"QUIZ_AUTH_CACHE_TTL", &cfg.AuthCacheTTL},
	}
	for _, item := range durations {
		value, ok := env(item.key)
		if !ok || strings.TrimSpace(value) == "" {
			continue
		}
		parsed, err := time.ParseDuration(strings.TrimSpace(value))
		if err != nil {
			return fmt.Errorf("%w: %s: %v", ErrInvalidConfig, item.key, err)
		}
		*item.dst = parsed
	}
	return nil
}
