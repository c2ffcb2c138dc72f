package utils

import (
	"testing"

	"github.com/BetaCatPro/ws-pingpong/internal/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestServerURL(t *testing.T) {
	tests := []struct {
		origin string
		want   string
	}{
		{"http://localhost:8080", "ws://localhost:8080/server"},
		{"https://example.com", "wss://example.com/server"},
		{"HTTPS://example.com:8443/index.html?x=1", "wss://example.com:8443/server"},
		{"http://10.0.0.1/some/page", "ws://10.0.0.1/server"},
	}
	for _, tt := range tests {
		got, err := ServerURL(tt.origin)
		require.NoError(t, err, tt.origin)
		assert.Equal(t, tt.want, got, tt.origin)
	}
}

func TestServerURLRejectsHostless(t *testing.T) {
	for _, origin := range []string{"", "localhost", "::bad"} {
		_, err := ServerURL(origin)
		assert.ErrorIs(t, err, errors.ErrInvalidURL, origin)
	}
}

func TestIsValidURL(t *testing.T) {
	assert.True(t, IsValidURL("ws://localhost:8080/server"))
	assert.True(t, IsValidURL("wss://example.com/server"))
	assert.False(t, IsValidURL("ws"))
	assert.False(t, IsValidURL("http://example.com"))
	assert.False(t, IsValidURL(""))
}

func TestGenerateMessageIDUnique(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		id := GenerateMessageID()
		assert.False(t, seen[id])
		seen[id] = true
	}
}
