package config_test

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/km-arc/go-autodi/framework/config"
)

// ── Load ─────────────────────────────────────────────────────────────────────

func TestLoad_Defaults(t *testing.T) {
	cfg := config.Load("testdata/empty.env")

	tests := []struct {
		name string
		got  any
		want any
	}{
		{"App.Name", cfg.App.Name, "autodi"},
		{"App.Env", cfg.App.Env, "local"},
		{"App.Port", cfg.App.Port, "8000"},
		{"App.Debug", cfg.App.Debug, true},
		{"Log.Level", cfg.Log.Level, "info"},
		{"Log.Format", cfg.Log.Format, "console"},
		{"DI.File", cfg.DI.File, ""},
		{"DI.Watch", cfg.DI.Watch, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.got)
		})
	}
}

func TestLoad_EnvOverridesDefaults(t *testing.T) {
	t.Setenv("APP_NAME", "MyApp")
	t.Setenv("APP_ENV", "production")
	t.Setenv("APP_PORT", "9000")
	t.Setenv("DI_FILE", "deps.yaml")

	cfg := config.Load("testdata/empty.env")

	assert.Equal(t, "MyApp", cfg.App.Name)
	assert.Equal(t, "production", cfg.App.Env)
	assert.Equal(t, "9000", cfg.App.Port)
	assert.Equal(t, "json", cfg.Log.Format)
	assert.Equal(t, "deps.yaml", cfg.DI.File)
	assert.False(t, cfg.DI.Watch)
}

func TestLoad_EnvFile(t *testing.T) {
	// godotenv never overrides variables that are already set. Setenv
	// registers the restore, Unsetenv lets the file populate them.
	for _, k := range []string{"APP_NAME", "LOG_LEVEL", "DI_FILE"} {
		t.Setenv(k, "")
		require.NoError(t, os.Unsetenv(k))
	}

	cfg := config.Load("testdata/app.env")

	assert.Equal(t, "FileApp", cfg.App.Name)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "testdata/dependencies.yaml", cfg.DI.File)
}

func TestLoad_MissingEnvFileIsNotFatal(t *testing.T) {
	require.NotPanics(t, func() { config.Load("testdata/does-not-exist.env") })
}

func TestLoad_AppDebugFalse(t *testing.T) {
	t.Setenv("APP_DEBUG", "false")
	assert.False(t, config.Load("testdata/empty.env").App.Debug)
}

func TestLoad_AppDebugInvalidFallsBack(t *testing.T) {
	t.Setenv("APP_DEBUG", "notabool")
	assert.True(t, config.Load("testdata/empty.env").App.Debug)
}

// ── Get helpers ──────────────────────────────────────────────────────────────

func TestGet(t *testing.T) {
	t.Setenv("CUSTOM_KEY", "hello")
	assert.Equal(t, "hello", config.Get("CUSTOM_KEY", "default"))
	assert.Equal(t, "default", config.Get("MISSING_KEY_XYZ", "default"))
}

func TestGetInt(t *testing.T) {
	t.Setenv("INT_KEY", "42")
	t.Setenv("BAD_INT", "nope")
	assert.Equal(t, 42, config.GetInt("INT_KEY", 0))
	assert.Equal(t, 7, config.GetInt("BAD_INT", 7))
	assert.Equal(t, 3, config.GetInt("MISSING_INT", 3))
}

func TestGetBool(t *testing.T) {
	t.Setenv("BOOL_KEY", "1")
	assert.True(t, config.GetBool("BOOL_KEY", false))
	assert.False(t, config.GetBool("MISSING_BOOL", false))
}
