// Package config loads client configuration from an optional .env file and
// the PINGPONG_* environment variables.
package config

import (
	"context"
	"fmt"

	"github.com/BetaCatPro/ws-pingpong/internal/utils"
	"github.com/BetaCatPro/ws-pingpong/pkg/types"
	"github.com/joho/godotenv"
	"github.com/sethvargo/go-envconfig"
)

// EnvPrefix is prepended to every variable name.
const EnvPrefix = "PINGPONG_"

// Load reads .env files (missing files are ignored) and then the process
// environment.
func Load(ctx context.Context, envFiles ...string) (*types.Config, error) {
	if len(envFiles) == 0 {
		envFiles = []string{".env"}
	}
	for _, f := range envFiles {
		_ = godotenv.Load(f)
	}
	return LoadFrom(ctx, envconfig.OsLookuper())
}

// LoadFrom decodes and validates configuration from the given lookuper.
func LoadFrom(ctx context.Context, lookuper envconfig.Lookuper) (*types.Config, error) {
	cfg := &types.Config{}
	if err := envconfig.ProcessWith(ctx, &envconfig.Config{
		Target:   cfg,
		Lookuper: envconfig.PrefixLookuper(EnvPrefix, lookuper),
	}); err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks cross-field constraints and fills Version. An empty
// Protocol falls back to Version, then to v2.
func Validate(cfg *types.Config) error {
	if cfg.Protocol == "" {
		cfg.Protocol = string(cfg.Version)
	}
	if cfg.Protocol == "" {
		cfg.Protocol = string(types.ProtocolV2)
	}
	v, err := types.ParseProtocolVersion(cfg.Protocol)
	if err != nil {
		return fmt.Errorf("%sPROTOCOL: %w", EnvPrefix, err)
	}
	cfg.Version = v

	if cfg.URL != "" {
		if !utils.IsValidURL(cfg.URL) {
			return fmt.Errorf("%sURL: %q is not a ws:// or wss:// url", EnvPrefix, cfg.URL)
		}
	} else if _, err := utils.ServerURL(cfg.Origin); err != nil {
		return fmt.Errorf("%sORIGIN: %w", EnvPrefix, err)
	}

	if cfg.HandshakeTimeout < 0 {
		return fmt.Errorf("%sHANDSHAKE_TIMEOUT: must not be negative", EnvPrefix)
	}
	if cfg.WriteTimeout < 0 {
		return fmt.Errorf("%sWRITE_TIMEOUT: must not be negative", EnvPrefix)
	}
	if cfg.FallbackReadTimeout < 0 {
		return fmt.Errorf("%sFALLBACK_READ_TIMEOUT: must not be negative", EnvPrefix)
	}
	if cfg.ReadLimit < 0 {
		return fmt.Errorf("%sREAD_LIMIT: must not be negative", EnvPrefix)
	}
	return nil
}

// ServerURL returns the explicit URL, or the one derived from Origin.
func ServerURL(cfg *types.Config) (string, error) {
	if cfg.URL != "" {
		return cfg.URL, nil
	}
	return utils.ServerURL(cfg.Origin)
}
