package teststand_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sagarc03/teststand"
	"github.com/sagarc03/teststand/config"
)

func TestParsePoolConfig(t *testing.T) {
	t.Run("all settings", func(t *testing.T) {
		pc, err := teststand.ParsePoolConfig(config.New(map[string]any{
			"url":             baseURL,
			"min_connections": 2,
			"max_connections": 8,
			"connect_timeout": 3,
			"idle_timeout":    30,
		}))
		require.NoError(t, err)

		assert.Equal(t, baseURL, pc.URL)
		assert.Equal(t, 2, pc.MinConnectionsOrZero())
		assert.Equal(t, 8, pc.MaxConnections)
		assert.Equal(t, 3*time.Second, pc.ConnectTimeoutDuration())
		assert.Equal(t, 30*time.Second, pc.IdleTimeoutDuration())
	})

	t.Run("optional settings absent", func(t *testing.T) {
		pc, err := teststand.ParsePoolConfig(config.New(map[string]any{
			"url":             baseURL,
			"max_connections": 4,
			"connect_timeout": 5,
		}))
		require.NoError(t, err)

		assert.Nil(t, pc.MinConnections)
		assert.Equal(t, 0, pc.MinConnectionsOrZero())
		assert.Equal(t, time.Duration(0), pc.IdleTimeoutDuration())
	})

	tests := []struct {
		name     string
		settings map[string]any
	}{
		{name: "missing url", settings: map[string]any{"max_connections": 4, "connect_timeout": 5}},
		{name: "zero max connections", settings: map[string]any{"url": baseURL, "max_connections": 0, "connect_timeout": 5}},
		{name: "max connections too large", settings: map[string]any{"url": baseURL, "max_connections": 10001, "connect_timeout": 5}},
		{name: "min connections too large", settings: map[string]any{"url": baseURL, "min_connections": 10001, "max_connections": 4, "connect_timeout": 5}},
		{name: "zero connect timeout", settings: map[string]any{"url": baseURL, "max_connections": 4, "connect_timeout": 0}},
		{name: "non-numeric max connections", settings: map[string]any{"url": baseURL, "max_connections": "lots", "connect_timeout": 5}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := teststand.ParsePoolConfig(config.New(tt.settings))
			require.Error(t, err)
			assert.ErrorIs(t, err, teststand.ErrPool)
		})
	}
}

func TestParsePoolConfig_HugeWorkerCount(t *testing.T) {
	scoped, err := teststand.DeriveConfig(hostTree(int64(1)<<40), "test", 1)
	require.NoError(t, err)

	_, err = teststand.ParsePoolConfig(scoped)
	assert.ErrorIs(t, err, teststand.ErrPool)
}
