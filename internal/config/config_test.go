package config

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLoadConfig_Defaults(t *testing.T) {
	os.Clearenv()
	t.Setenv("UPSTREAM_API_KEY", "nvapi-test")
	t.Setenv("SERVER_PORT", "9090")
	t.Setenv("SERVER_ENV", "test")
	t.Setenv("REDIS_ENABLED", "true")

	cfg, err := LoadConfig()
	assert.NoError(t, err)

	assert.Equal(t, "9090", cfg.Server.Port)
	assert.Equal(t, "test", cfg.Server.Env)
	assert.True(t, cfg.Redis.Enabled)
	assert.Equal(t, "https://integrate.api.nvidia.com/v1", cfg.Upstream.BaseURL)
	assert.Equal(t, "nvapi-test", cfg.Upstream.APIKey)
	assert.NotEmpty(t, cfg.Resolver.Fallback.Large)
	assert.NotEmpty(t, cfg.Thinking.Models)
}

func TestLoadConfig_MissingCredentialIsFatal(t *testing.T) {
	os.Clearenv()

	_, err := LoadConfig()
	assert.ErrorIs(t, err, ErrMissingCredential)
}

func TestLoadConfig_CredentialIndirection(t *testing.T) {
	os.Clearenv()
	t.Setenv("MY_SECRET_KEY", "nvapi-indirect")
	t.Setenv("UPSTREAM_API_KEY", "ENV:MY_SECRET_KEY")

	cfg, err := LoadConfig()
	assert.NoError(t, err)
	assert.Equal(t, "nvapi-indirect", cfg.Upstream.APIKey)
}
