package logging

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewDefaultConfig_Valid(t *testing.T) {
	assert.NoError(t, NewDefaultConfig().Validate())
}

func TestConfig_Validate_RejectsBadFormat(t *testing.T) {
	cfg := NewDefaultConfig()
	cfg.Format = "xml"
	assert.Error(t, cfg.Validate())
}

func TestConfig_Validate_RejectsBadLevel(t *testing.T) {
	cfg := NewDefaultConfig()
	cfg.Level = "loud"
	assert.Error(t, cfg.Validate())
}

func TestNew_BuildsLogger(t *testing.T) {
	for _, format := range []string{"json", "console"} {
		cfg := NewDefaultConfig()
		cfg.Format = format
		logger, err := New(cfg)
		require.NoError(t, err)
		require.NotNil(t, logger)
		logger.Info("logger constructed")
		_ = Sync(logger)
	}
}

func TestNew_RejectsInvalidConfig(t *testing.T) {
	_, err := New(Config{Level: "info", Format: "yaml"})
	assert.Error(t, err)
}
