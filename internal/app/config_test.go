package app

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func missingEnv(t *testing.T) string {
	return filepath.Join(t.TempDir(), "absent.env")
}

func TestLoadConfigDefaults(t *testing.T) {
	t.Setenv("JWT_SECRET", "0123456789abcdef")

	cfg, err := LoadConfig(missingEnv(t))
	require.NoError(t, err)
	assert.Equal(t, ":5002", cfg.AppAddr)
	assert.Equal(t, time.Hour, cfg.JWTTTL)
	assert.Equal(t, 15*time.Minute, cfg.ResetTokenTTL)
	assert.Equal(t, SequencePostgres, cfg.SequenceBackend)
	assert.Equal(t, int64(5<<20), cfg.UploadMaxBytes)
	assert.False(t, cfg.MigrateOnStart)
	assert.False(t, cfg.IsProduction())
}

func TestLoadConfigEnvFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".env")
	body := "JWT_SECRET=from-file-secret-value\nSEQUENCE_BACKEND=redis\nAPP_ADDR=:9000\n"
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	t.Setenv("APP_ADDR", ":7000")
	t.Cleanup(func() {
		os.Unsetenv("JWT_SECRET")
		os.Unsetenv("SEQUENCE_BACKEND")
	})

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "from-file-secret-value", cfg.JWTSecret)
	assert.Equal(t, SequenceRedis, cfg.SequenceBackend)
	assert.Equal(t, ":7000", cfg.AppAddr, "environment wins over file")
}

func TestLoadConfigRejectsInvalid(t *testing.T) {
	t.Setenv("JWT_SECRET", "short")
	_, err := LoadConfig(missingEnv(t))
	require.Error(t, err)

	t.Setenv("JWT_SECRET", "0123456789abcdef")
	t.Setenv("SEQUENCE_BACKEND", "etcd")
	_, err = LoadConfig(missingEnv(t))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "SEQUENCE_BACKEND")
}

func TestNewLoggerHonoursFormatAndLevel(t *testing.T) {
	var buf bytes.Buffer
	logger := newLogger(&Config{LogFormat: "json", LogLevel: "warn"}, &buf)
	logger.Info("hidden")
	logger.Warn("shown")

	out := buf.String()
	assert.NotContains(t, out, "hidden")
	assert.True(t, strings.HasPrefix(out, "{"))
	assert.Contains(t, out, `"msg":"shown"`)
}
