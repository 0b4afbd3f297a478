package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, 4096, cfg.MaxClients)
	assert.Equal(t, 4096, cfg.MaxPendingQueue)
	assert.Equal(t, 16, cfg.CallbackConcurrency)
	assert.Equal(t, 20, cfg.HTTPWorkers)
}

func TestLoad_EnvOverride(t *testing.T) {
	t.Setenv("SAMPHUB_MAX_CLIENTS", "10")
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, 10, cfg.MaxClients)
}

func TestLoad_RejectsInvalidPort(t *testing.T) {
	t.Setenv("SAMPHUB_WEB_PROFILE_PORT", "99999")
	_, err := Load("")
	assert.Error(t, err)
}

func TestResolveLocalhost_DefaultsToLoopback(t *testing.T) {
	assert.Equal(t, defaultHost, ResolveLocalhost())
}

func TestResolveLocalhost_ExplicitOverride(t *testing.T) {
	t.Setenv(LocalhostEnv, "example.internal")
	assert.Equal(t, "example.internal", ResolveLocalhost())
}
