package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromEnvDefaults(t *testing.T) {
	t.Setenv("EXPLORER_START_URL", "http://localhost:3000")

	cfg, err := FromEnv()
	require.NoError(t, err)
	assert.Equal(t, ProviderOpenAI, cfg.LLMProvider)
	assert.Equal(t, []string{"http://localhost:3000"}, cfg.StartURLs)
	assert.True(t, cfg.Headless)
	assert.Equal(t, 200, cfg.RecursionLimit)
	assert.Equal(t, "./exploration.db", cfg.GraphURI)
	assert.False(t, cfg.HasCredentials())
}

func TestFromEnvOverrides(t *testing.T) {
	t.Setenv("EXPLORER_LLM_PROVIDER", "anthropic")
	t.Setenv("EXPLORER_LLM_MODEL", "claude-sonnet-4-5")
	t.Setenv("EXPLORER_START_URLS", "http://a.local, http://b.local")
	t.Setenv("EXPLORER_USERNAME", "admin")
	t.Setenv("EXPLORER_PASSWORD", "admin123")
	t.Setenv("EXPLORER_HEADLESS", "false")
	t.Setenv("EXPLORER_RECURSION_LIMIT", "50")
	t.Setenv("EXPLORER_IGNORE_SELECTORS", ".cookie-wall,#gdpr")

	cfg, err := FromEnv()
	require.NoError(t, err)
	assert.Equal(t, ProviderAnthropic, cfg.LLMProvider)
	assert.Equal(t, []string{"http://a.local", "http://b.local"}, cfg.StartURLs)
	assert.True(t, cfg.HasCredentials())
	assert.False(t, cfg.Headless)
	assert.Equal(t, 50, cfg.RecursionLimit)
	assert.Equal(t, []string{".cookie-wall", "#gdpr"}, cfg.IgnoreSelectors)
}

func TestFromEnvErrors(t *testing.T) {
	t.Run("missing start url", func(t *testing.T) {
		_, err := FromEnv()
		assert.Error(t, err)
	})

	t.Run("unknown provider", func(t *testing.T) {
		t.Setenv("EXPLORER_START_URL", "http://x")
		t.Setenv("EXPLORER_LLM_PROVIDER", "llamafarm")
		_, err := FromEnv()
		assert.Error(t, err)
	})

	t.Run("bad recursion limit", func(t *testing.T) {
		t.Setenv("EXPLORER_START_URL", "http://x")
		t.Setenv("EXPLORER_RECURSION_LIMIT", "lots")
		_, err := FromEnv()
		assert.Error(t, err)
	})
}

func TestMySQLConfig(t *testing.T) {
	cfg := Config{
		GraphURI:      "mysql://db.internal:3306/webexplorer",
		GraphUser:     "explorer",
		GraphPassword: "s3cret",
	}
	assert.True(t, cfg.MySQLGraph())
	assert.Equal(t, "explorer:s3cret@tcp(db.internal:3306)/webexplorer", cfg.MySQLDSN())

	sqlite := Config{GraphURI: "./graph.db"}
	assert.False(t, sqlite.MySQLGraph())
}
