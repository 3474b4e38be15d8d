package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func clearEnv(t *testing.T) {
	for _, key := range []string{
		"SERVER_PORT", "DATABASE_PATH", "RATE_LIMIT_RATE", "CACHE_ENABLED",
		"REDIS_ADDR", "CACHE_TTL", "FILTER_INPUT", "FILTER_OUTPUT", "LOG_LEVEL", "LOG_FORMAT",
	} {
		t.Setenv(key, "")
	}
}

func TestLoadConfig_Defaults(t *testing.T) {
	clearEnv(t)

	cfg, err := LoadConfig("")
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Server.Port)
	assert.Equal(t, "input.json", cfg.Filter.Input)
	assert.Equal(t, "output.json", cfg.Filter.Output)
	assert.True(t, cfg.Cache.Enabled)
	assert.Empty(t, cfg.Cache.RedisAddr)
	assert.Equal(t, 300, cfg.Cache.TTL)
	assert.NoError(t, cfg.Validate())
}

func TestLoadConfig_YAMLFileThenEnv(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "config.yaml")
	yamlDoc := `
server:
  port: "9000"
filter:
  input: offers.json
cache:
  ttl: 60
`
	require.NoError(t, os.WriteFile(path, []byte(yamlDoc), 0o644))
	t.Setenv("FILTER_OUTPUT", "s3://bucket/out.json")

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, "9000", cfg.Server.Port)
	assert.Equal(t, "offers.json", cfg.Filter.Input)
	assert.Equal(t, "s3://bucket/out.json", cfg.Filter.Output)
	assert.Equal(t, 60, cfg.Cache.TTL)
}

func TestLoadConfig_JSONFileEnvWins(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"server": {"port": "7000"}}`), 0o644))
	t.Setenv("SERVER_PORT", "7100")

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "7100", cfg.Server.Port)
}

func TestLoadConfig_MissingFile(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "nope.json"))
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	clearEnv(t)
	cfg, err := LoadConfig("")
	require.NoError(t, err)

	bad := *cfg
	bad.RateLimit.Rate = 0
	assert.Error(t, bad.Validate())

	bad = *cfg
	bad.Log.Format = "xml"
	assert.Error(t, bad.Validate())

	bad = *cfg
	bad.Server.EnableTLS = true
	assert.Error(t, bad.Validate())
}
