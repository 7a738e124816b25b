package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{"GEMINI_API_KEY", "GOOGLE_API_KEY", "CHUCK_GOAL", "CHUCK_MODEL", "CHUCK_CONFIG"} {
		t.Setenv(key, "")
	}
}

func TestEnvOverrides_LLM(t *testing.T) {
	t.Run("GEMINI_API_KEY sets provider if empty", func(t *testing.T) {
		clearEnv(t)
		t.Setenv("GEMINI_API_KEY", "gem-key")

		cfg := &Config{}
		cfg.applyEnvOverrides()

		assert.Equal(t, "gem-key", cfg.LLM.APIKey)
		assert.Equal(t, "gemini", cfg.LLM.Provider)
	})

	t.Run("GEMINI_API_KEY beats GOOGLE_API_KEY", func(t *testing.T) {
		clearEnv(t)
		t.Setenv("GOOGLE_API_KEY", "google-key")
		t.Setenv("GEMINI_API_KEY", "gem-key")

		cfg := DefaultConfig()
		cfg.applyEnvOverrides()

		assert.Equal(t, "gem-key", cfg.LLM.APIKey)
	})

	t.Run("GOOGLE_API_KEY alone is used", func(t *testing.T) {
		clearEnv(t)
		t.Setenv("GOOGLE_API_KEY", "google-key")

		cfg := DefaultConfig()
		cfg.applyEnvOverrides()

		assert.Equal(t, "google-key", cfg.LLM.APIKey)
	})
}

func TestEnvOverrides_GoalAndModel(t *testing.T) {
	clearEnv(t)
	t.Setenv("CHUCK_GOAL", "Plan a garden")
	t.Setenv("CHUCK_MODEL", "gemini-2.5-flash")

	cfg := DefaultConfig()
	cfg.applyEnvOverrides()

	assert.Equal(t, "Plan a garden", cfg.Goal)
	assert.Equal(t, "gemini-2.5-flash", cfg.LLM.Model)
}

func TestDefaultConfigPath(t *testing.T) {
	clearEnv(t)
	assert.Equal(t, "chuck.yaml", DefaultConfigPath())

	t.Setenv("CHUCK_CONFIG", "/etc/chuck/config.yaml")
	require.Equal(t, "/etc/chuck/config.yaml", DefaultConfigPath())
}
