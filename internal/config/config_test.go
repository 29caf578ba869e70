package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func envMap(values map[string]string) LookupFunc {
	return func(key string) (string, bool) {
		value, ok := values[key]
		return value, ok
	}
}

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load(nil, envMap(nil))
	require.NoError(t, err)
	require.Equal(t, Default(), cfg)
	require.Equal(t, "http://localhost:8080/api", cfg.BaseURL())
	require.Equal(t, "http://localhost:8080/login", cfg.LoginURL())
}

func TestLoadPrecedence(t *testing.T) {
	dir := t.TempDir()
	yamlPath := writeFile(t, dir, "client.yaml", `
server_url: https://yaml.example.com
api_prefix: /v1
http_timeout: 3s
log_level: debug
journal_path: from-yaml.db
`)
	envPath := writeFile(t, dir, "client.env", "QUIZ_LOG_LEVEL=warn\nQUIZ_SESSION=from-dotenv\nQUIZ_JOURNAL_PATH=from-dotenv.db\n")

	cfg, err := Load(
		[]string{"--config", yamlPath, "--env-file", envPath, "--journal", "from-flag.db"},
		envMap(map[string]string{"QUIZ_SESSION": "from-env", "QUIZ_AUTH_CACHE_TTL": "1m"}),
	)
	require.NoError(t, err)

	require.Equal(t, "https://yaml.example.com", cfg.ServerURL)
	require.Equal(t, "/v1", cfg.APIPrefix)
	require.Equal(t, 3*time.Second, cfg.HTTPTimeout)
	require.Equal(t, "warn", cfg.LogLevel, ".env beats yaml")
	require.Equal(t, "from-env", cfg.Session, "environment beats .env")
	require.Equal(t, time.Minute, cfg.AuthCacheTTL)
	require.Equal(t, "from-flag.db", cfg.JournalPath, "flags beat everything")
	require.Equal(t, "https://yaml.example.com/v1", cfg.BaseURL())
}

func TestLoadConfigPathFromEnv(t *testing.T) {
	yamlPath := writeFile(t, t.TempDir(), "client.yaml", "server_url: http://env-config:9000/\n")

	cfg, err := Load(nil, envMap(map[string]string{"QUIZ_CONFIG": yamlPath}))
	require.NoError(t, err)
	require.Equal(t, "http://env-config:9000", cfg.ServerURL)
}

func TestLoadRejectsUnknownYAMLField(t *testing.T) {
	yamlPath := writeFile(t, t.TempDir(), "client.yaml", "server_url: http://x\nsurprise: true\n")

	_, err := Load([]string{"--config", yamlPath}, envMap(nil))
	require.Error(t, err)
}

func TestLoadExplicitMissingFiles(t *testing.T) {
	missing := filepath.Join(t.TempDir(), "nope.yaml")

	_, err := Load([]string{"--config", missing}, envMap(nil))
	require.True(t, errors.Is(err, os.ErrNotExist), "got %v", err)

	_, err = Load([]string{"--env-file", missing}, envMap(nil))
	require.True(t, errors.Is(err, os.ErrNotExist), "got %v", err)
}

func TestLoadInvalidValues(t *testing.T) {
	tests := []struct {
		name string
		args []string
		env  map[string]string
	}{
		{name: "bad scheme", args: []string{"--server", "ftp://x"}},
		{name: "no host", args: []string{"--server", "http://"}},
		{name: "zero timeout", args: []string{"--timeout", "0s"}},
		{name: "bad level", args: []string{"--log-level", "loud"}},
		{name: "bad format", args: []string{"--log-format", "xml"}},
		{name: "bad prefix", args: []string{"--api-prefix", "api"}},
		{name: "bad env duration", env: map[string]string{"QUIZ_HTTP_TIMEOUT": "soon"}},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Load(tc.args, envMap(tc.env))
			require.ErrorIs(t, err, ErrInvalidConfig)
		})
	}
}

func TestEmptyJournalPathDisablesJournal(t *testing.T) {
	cfg, err := Load(nil, envMap(map[string]string{"QUIZ_JOURNAL_PATH": ""}))
	require.NoError(t, err)
	require.Empty(t, cfg.JournalPath)
}
