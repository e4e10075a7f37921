package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("JWT_SECRET", "s3cret")
	t.Setenv("LISTEN_ADDR", "")
	t.Setenv("COUNTER_WINDOW_SEC", "")
	t.Setenv("GRACE_PERIOD_SEC", "")
	t.Setenv("LOG_LEVEL", "")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, ":8080", cfg.ListenAddr)
	assert.Equal(t, 90*time.Second, cfg.CounterWindow)
	assert.Equal(t, 30*time.Second, cfg.GracePeriod)
}

func TestLoadRequiresSecret(t *testing.T) {
	t.Setenv("JWT_SECRET", "")
	_, err := Load()
	assert.Error(t, err)
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("JWT_SECRET", "s3cret")
	t.Setenv("COUNTER_WINDOW_SEC", "0")
	t.Setenv("GRACE_PERIOD_SEC", "120")
	t.Setenv("LOG_LEVEL", "debug")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, time.Duration(0), cfg.CounterWindow)
	assert.Equal(t, 2*time.Minute, cfg.GracePeriod)
}

func TestLoadRejectsBadWindow(t *testing.T) {
	t.Setenv("JWT_SECRET", "s3cret")
	t.Setenv("COUNTER_WINDOW_SEC", "soon")
	_, err := Load()
	assert.Error(t, err)
}
