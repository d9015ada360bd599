package logging_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/km-arc/go-autodi/framework/config"
	"github.com/km-arc/go-autodi/framework/container"
	"github.com/km-arc/go-autodi/framework/logging"
)

// ── New ──────────────────────────────────────────────────────────────────────

func TestNew_Formats(t *testing.T) {
	tests := []struct {
		name    string
		cfg     config.LogConfig
		level   zapcore.Level
		wantErr bool
	}{
		{"json info", config.LogConfig{Level: "info", Format: "json"}, zapcore.InfoLevel, false},
		{"console debug", config.LogConfig{Level: "debug", Format: "console"}, zapcore.DebugLevel, false},
		{"defaults", config.LogConfig{}, zapcore.InfoLevel, false},
		{"bad level", config.LogConfig{Level: "loud"}, 0, true},
		{"bad format", config.LogConfig{Level: "info", Format: "xml"}, 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			logger, err := logging.New(tt.cfg)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.True(t, logger.Core().Enabled(tt.level))
			assert.False(t, logger.Core().Enabled(tt.level-1))
		})
	}
}

// ── Plugin ───────────────────────────────────────────────────────────────────

type widget struct{ n int }

func TestPlugin_LogsSuccessAndFailure(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	c := container.New(container.WithPlugins(logging.Plugin(zap.New(core))))

	_, err := c.Resolve(container.KeyOf[*widget]())
	require.NoError(t, err)
	_, err = c.Resolve(container.KeyOf[error]())
	require.Error(t, err)

	resolved := logs.FilterMessage("resolved").All()
	require.Len(t, resolved, 1)
	assert.Equal(t, "*logging_test.widget", resolved[0].ContextMap()["key"])
	assert.Equal(t, zapcore.DebugLevel, resolved[0].Level)

	failed := logs.FilterMessage("resolution failed").All()
	require.Len(t, failed, 1)
	assert.Equal(t, zapcore.WarnLevel, failed[0].Level)
	assert.Equal(t, "error", failed[0].ContextMap()["key"])
}
