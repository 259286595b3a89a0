package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoad_Defaults(t *testing.T) {
	path := writeFile(t, "config.yaml", "")

	cfg, err := Load(viper.New(), path)
	require.NoError(t, err)

	assert.Equal(t, "http://localhost:8000/api", cfg.APIURL)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, 10*time.Second, cfg.HTTPTimeout)
	assert.Equal(t, 5*time.Minute, cfg.CacheTTL)
	assert.Equal(t, 8, cfg.MaxConcurrency)
	assert.Equal(t, 8080, cfg.Port)
	assert.Equal(t, "EUR", cfg.Currency)
	assert.Empty(t, cfg.OTLPEndpoint)
}

func TestLoad_FileThenEnv(t *testing.T) {
	path := writeFile(t, "config.yaml", `
api_url: http://budget.example:9000/api/
http_timeout: 3s
currency: usd
port: 9090
`)
	t.Setenv("MYBUDGET_PORT", "7070")

	cfg, err := Load(viper.New(), path)
	require.NoError(t, err)

	assert.Equal(t, "http://budget.example:9000/api", cfg.APIURL)
	assert.Equal(t, 3*time.Second, cfg.HTTPTimeout)
	assert.Equal(t, "USD", cfg.Currency)
	assert.Equal(t, 7070, cfg.Port, "environment wins over the file")
}

func TestLoad_Invalid(t *testing.T) {
	path := writeFile(t, "config.yaml", "max_concurrency: 0\nport: 70000\n")

	_, err := Load(viper.New(), path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "max_concurrency")
	assert.Contains(t, err.Error(), "port out of range")
}

func TestLoad_UnreadableFile(t *testing.T) {
	path := writeFile(t, "config.yaml", "api_url: [unterminated\n")

	_, err := Load(viper.New(), path)
	require.Error(t, err)
}

func TestLoadDotEnv(t *testing.T) {
	t.Setenv("MYBUDGET_CURRENCY", "GBP")
	path := writeFile(t, ".env", "MYBUDGET_CURRENCY=CHF\nMYBUDGET_LOG_LEVEL=debug\n")
	t.Cleanup(func() { os.Unsetenv("MYBUDGET_LOG_LEVEL") })

	require.NoError(t, LoadDotEnv(path))
	assert.Equal(t, "GBP", os.Getenv("MYBUDGET_CURRENCY"), "existing variables are kept")
	assert.Equal(t, "debug", os.Getenv("MYBUDGET_LOG_LEVEL"))

	require.NoError(t, LoadDotEnv(filepath.Join(t.TempDir(), "missing.env")))
}
