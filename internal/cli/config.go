package cli

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/mitchellh/mapstructure"
	"github.com/sebamiro/nearrpc/internal/rpc"
)

const (
	EnvURL        = "NEAR_RPC_URL"
	DefaultURL    = "https://rpc.mainnet.near.org"
	FormatJSON    = "json"
	FormatMsgpack = "msgpack"
)

type Config struct {
	URL            string            `mapstructure:"url"`
	ConnectTimeout time.Duration     `mapstructure:"connect_timeout"`
	KeepAlive      time.Duration     `mapstructure:"keep_alive"`
	RateLimit      float64           `mapstructure:"rate_limit"`
	Burst          int               `mapstructure:"burst"`
	Headers        map[string]string `mapstructure:"headers"`
	Format         string            `mapstructure:"format"`
	LogLevel       string            `mapstructure:"log_level"`
}

func DefaultConfig() Config {
	return Config{
		URL:            DefaultURL,
		ConnectTimeout: rpc.DefaultConnectTimeout,
		KeepAlive:      rpc.DefaultKeepAlive,
		Format:         FormatJSON,
		LogLevel:       "warn",
	}
}

// LoadConfig overlays the JSON file at path on cfg. Unknown keys are an error.
func LoadConfig(path string, cfg *Config) error {
	b, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	var raw map[string]any
	if err := json.Unmarshal(b, &raw); err != nil {
		return fmt.Errorf("config %s: %w", path, err)
	}
	if err := decodeConfig(raw, cfg); err != nil {
		return fmt.Errorf("config %s: %w", path, err)
	}
	return nil
}

func decodeConfig(raw map[string]any, cfg *Config) error {
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		DecodeHook:       mapstructure.StringToTimeDurationHookFunc(),
		ErrorUnused:      true,
		WeaklyTypedInput: true,
		Result:           cfg,
	})
	if err != nil {
		return err
	}
	return dec.Decode(raw)
}

func (c *Config) applyEnv() {
	if v := os.Getenv(EnvURL); v != "" {
		c.URL = v
	}
}

func (c Config) validate() error {
	if c.URL == "" {
		return fmt.Errorf("no node url, set -url or %s", EnvURL)
	}
	if c.Format != FormatJSON && c.Format != FormatMsgpack {
		return fmt.Errorf("unknown format %q", c.Format)
	}
	return nil
}

func (c Config) rpcConfig() rpc.Config {
	return rpc.Config{
		ConnectTimeout: c.ConnectTimeout,
		KeepAlive:      c.KeepAlive,
		RateLimit:      c.RateLimit,
		Burst:          c.Burst,
		Headers:        c.Headers,
	}
}
