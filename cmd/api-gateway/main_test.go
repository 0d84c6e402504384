package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/upb/tenant-control-plane/config"
)

func TestNewLogger(t *testing.T) {
	t.Run("production json logger", func(t *testing.T) {
		cfg := &config.Config{
			Environment: "production",
			Observability: config.ObservabilityConfig{
				LogLevel:  "info",
				LogFormat: "json",
			},
		}

		logger, err := newLogger(cfg)
		require.NoError(t, err)
		require.NotNil(t, logger)
		defer logger.Sync()
	})

	t.Run("development text logger", func(t *testing.T) {
		cfg := &config.Config{
			Environment: "development",
			Observability: config.ObservabilityConfig{
				LogLevel:  "debug",
				LogFormat: "text",
			},
		}

		logger, err := newLogger(cfg)
		require.NoError(t, err)
		require.NotNil(t, logger)
		defer logger.Sync()
	})

	t.Run("invalid log level falls back to info", func(t *testing.T) {
		cfg := &config.Config{
			Environment: "production",
			Observability: config.ObservabilityConfig{
				LogLevel:  "loud",
				LogFormat: "json",
			},
		}

		logger, err := newLogger(cfg)
		require.NoError(t, err)
		assert.NotNil(t, logger)
		defer logger.Sync()
	})
}
