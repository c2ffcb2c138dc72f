package config

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/BetaCatPro/ws-pingpong/pkg/types"
	"github.com/sethvargo/go-envconfig"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := LoadFrom(context.Background(), envconfig.MapLookuper(map[string]string{}))
	require.NoError(t, err)

	assert.Equal(t, "http://localhost:8080", cfg.Origin)
	assert.Equal(t, types.ProtocolV2, cfg.Version)
	assert.Equal(t, 10*time.Second, cfg.HandshakeTimeout)
	assert.Equal(t, 10*time.Second, cfg.WriteTimeout)
	assert.Equal(t, int64(65536), cfg.ReadLimit)
	assert.Zero(t, cfg.FallbackReadTimeout)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Empty(t, cfg.MetricsAddr)

	url, err := ServerURL(cfg)
	require.NoError(t, err)
	assert.Equal(t, "ws://localhost:8080/server", url)
}

func TestLoadOverrides(t *testing.T) {
	cfg, err := LoadFrom(context.Background(), envconfig.MapLookuper(map[string]string{
		"PINGPONG_ORIGIN":                "https://example.com",
		"PINGPONG_PROTOCOL":              "V1",
		"PINGPONG_WRITE_TIMEOUT":         "2s",
		"PINGPONG_FALLBACK_READ_TIMEOUT": "30s",
		"PINGPONG_METRICS_ADDR":          ":9100",
	}))
	require.NoError(t, err)

	assert.Equal(t, types.ProtocolV1, cfg.Version)
	assert.Equal(t, 2*time.Second, cfg.WriteTimeout)
	assert.Equal(t, 30*time.Second, cfg.FallbackReadTimeout)
	assert.Equal(t, ":9100", cfg.MetricsAddr)

	url, err := ServerURL(cfg)
	require.NoError(t, err)
	assert.Equal(t, "wss://example.com/server", url)
}

func TestExplicitURLWins(t *testing.T) {
	cfg, err := LoadFrom(context.Background(), envconfig.MapLookuper(map[string]string{
		"PINGPONG_URL": "ws://127.0.0.1:9000/custom",
	}))
	require.NoError(t, err)
	url, err := ServerURL(cfg)
	require.NoError(t, err)
	assert.Equal(t, "ws://127.0.0.1:9000/custom", url)
}

func TestLoadRejectsInvalid(t *testing.T) {
	tests := map[string]map[string]string{
		"protocol":   {"PINGPONG_PROTOCOL": "v3"},
		"url scheme": {"PINGPONG_URL": "http://example.com/server"},
		"origin":     {"PINGPONG_ORIGIN": "localhost"},
		"duration":   {"PINGPONG_WRITE_TIMEOUT": "soon"},
		"negative":   {"PINGPONG_FALLBACK_READ_TIMEOUT": "-1s"},
		"read limit": {"PINGPONG_READ_LIMIT": "-5"},
		"handshake":  {"PINGPONG_HANDSHAKE_TIMEOUT": "-2s"},
	}
	for name, env := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := LoadFrom(context.Background(), envconfig.MapLookuper(env))
			assert.Error(t, err)
		})
	}
}

func TestLoadReadsDotEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "test.env")
	require.NoError(t, os.WriteFile(path, []byte("PINGPONG_PROTOCOL=v1\nPINGPONG_ORIGIN=https://dotenv.test\n"), 0o600))
	t.Cleanup(func() {
		os.Unsetenv("PINGPONG_PROTOCOL")
		os.Unsetenv("PINGPONG_ORIGIN")
	})

	cfg, err := Load(context.Background(), path)
	require.NoError(t, err)
	assert.Equal(t, types.ProtocolV1, cfg.Version)
	assert.Equal(t, "https://dotenv.test", cfg.Origin)
}
