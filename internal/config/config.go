package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/vitalspace/somnia-mcp/internal/constants"
	"gopkg.in/yaml.v3"
)

// Config holds all configuration for the server
type Config struct {
	Log      LogConfig       `yaml:"log"`
	API      APIConfig       `yaml:"api"`
	RPC      RPCConfig       `yaml:"rpc"`
	Networks []NetworkConfig `yaml:"networks"`
}

// LogConfig holds logging configuration
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// APIConfig holds API server configuration
type APIConfig struct {
	Host               string   `yaml:"host"`
	Port               int      `yaml:"port"`
	EnableWebSocket    bool     `yaml:"enable_websocket"`
	EnableCORS         bool     `yaml:"enable_cors"`
	AllowedOrigins     []string `yaml:"allowed_origins"`
	EnableRateLimit    bool     `yaml:"enable_rate_limit"`
	RateLimitPerSecond float64  `yaml:"rate_limit_per_second"`
	RateLimitBurst     int      `yaml:"rate_limit_burst"`
}

// RPCConfig holds chain RPC client configuration
type RPCConfig struct {
	// Timeout is the timeout for a single RPC call
	Timeout time.Duration `yaml:"timeout"`
	// RatePerSecond is the per-endpoint request budget
	RatePerSecond float64 `yaml:"rate_per_second"`
	// RateBurst is the per-endpoint burst size
	RateBurst int `yaml:"rate_burst"`
}

// NetworkConfig defines one reachable blockchain network.
// Entries here extend (or override) the built-in network definitions.
type NetworkConfig struct {
	// Identifier is the unique network key used in tool requests
	Identifier string `yaml:"identifier"`
	// Name is a human-readable network name
	Name string `yaml:"name"`
	// ChainID is the numeric chain ID
	ChainID uint64 `yaml:"chain_id"`
	// RPCEndpoint is the HTTP(S) JSON-RPC endpoint URL
	RPCEndpoint string `yaml:"rpc_endpoint"`
	// NativeSymbol is the native currency symbol
	NativeSymbol string `yaml:"native_symbol"`
	// NativeDecimals is the native currency decimal count
	NativeDecimals int `yaml:"native_decimals,omitempty"`
	// ExplorerURL is the explorer API base URL (optional)
	ExplorerURL string `yaml:"explorer_url,omitempty"`
	// MulticallAddress is the deployed multicall contract address (optional)
	MulticallAddress string `yaml:"multicall_address,omitempty"`
	// SupportsAggregate3 declares whether the multicall contract exposes
	// aggregate3 (per-call success flags, value-capable)
	SupportsAggregate3 bool `yaml:"supports_aggregate3,omitempty"`
}

// NewConfig creates a configuration with default values
func NewConfig() *Config {
	cfg := &Config{}
	cfg.SetDefaults()
	return cfg
}

// SetDefaults fills in default values for unset fields
func (c *Config) SetDefaults() {
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Log.Format == "" {
		c.Log.Format = "json"
	}

	if c.API.Host == "" {
		c.API.Host = constants.DefaultAPIHost
	}
	if c.API.Port == 0 {
		c.API.Port = constants.DefaultAPIPort
	}
	if c.API.RateLimitPerSecond == 0 {
		c.API.RateLimitPerSecond = constants.DefaultRateLimitPerSecond
	}
	if c.API.RateLimitBurst == 0 {
		c.API.RateLimitBurst = constants.DefaultRateLimitBurst
	}
	if len(c.API.AllowedOrigins) == 0 {
		c.API.AllowedOrigins = []string{"*"}
	}

	if c.RPC.Timeout == 0 {
		c.RPC.Timeout = constants.DefaultRPCTimeout
	}
	if c.RPC.RatePerSecond == 0 {
		c.RPC.RatePerSecond = constants.DefaultRPCRatePerSecond
	}
	if c.RPC.RateBurst == 0 {
		c.RPC.RateBurst = constants.DefaultRPCRateBurst
	}
}

// LoadFromFile loads configuration from a YAML file
func (c *Config) LoadFromFile(filename string) error {
	data, err := os.ReadFile(filename)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("failed to parse config file: %w", err)
	}

	return nil
}

// LoadFromEnv loads configuration from environment variables.
// Environment variables take precedence over file configuration.
func (c *Config) LoadFromEnv() error {
	if level := os.Getenv("SOMNIA_LOG_LEVEL"); level != "" {
		c.Log.Level = level
	}
	if format := os.Getenv("SOMNIA_LOG_FORMAT"); format != "" {
		c.Log.Format = format
	}

	if host := os.Getenv("SOMNIA_API_HOST"); host != "" {
		c.API.Host = host
	}
	if port := os.Getenv("SOMNIA_API_PORT"); port != "" {
		val, err := strconv.Atoi(port)
		if err != nil {
			return fmt.Errorf("invalid SOMNIA_API_PORT: %w", err)
		}
		c.API.Port = val
	}
	if ws := os.Getenv("SOMNIA_API_WEBSOCKET"); ws != "" {
		val, err := strconv.ParseBool(ws)
		if err != nil {
			return fmt.Errorf("invalid SOMNIA_API_WEBSOCKET: %w", err)
		}
		c.API.EnableWebSocket = val
	}
	if cors := os.Getenv("SOMNIA_API_CORS"); cors != "" {
		val, err := strconv.ParseBool(cors)
		if err != nil {
			return fmt.Errorf("invalid SOMNIA_API_CORS: %w", err)
		}
		c.API.EnableCORS = val
	}
	if rl := os.Getenv("SOMNIA_API_RATE_LIMIT"); rl != "" {
		val, err := strconv.ParseBool(rl)
		if err != nil {
			return fmt.Errorf("invalid SOMNIA_API_RATE_LIMIT: %w", err)
		}
		c.API.EnableRateLimit = val
	}

	if timeout := os.Getenv("SOMNIA_RPC_TIMEOUT"); timeout != "" {
		duration, err := time.ParseDuration(timeout)
		if err != nil {
			return fmt.Errorf("invalid SOMNIA_RPC_TIMEOUT: %w", err)
		}
		c.RPC.Timeout = duration
	}
	if rate := os.Getenv("SOMNIA_RPC_RATE"); rate != "" {
		val, err := strconv.ParseFloat(rate, 64)
		if err != nil {
			return fmt.Errorf("invalid SOMNIA_RPC_RATE: %w", err)
		}
		c.RPC.RatePerSecond = val
	}

	return nil
}

// Validate checks the configuration for errors
func (c *Config) Validate() error {
	if c.API.Port < constants.MinPort || c.API.Port > constants.MaxPort {
		return fmt.Errorf("invalid API port: %d", c.API.Port)
	}

	if c.RPC.Timeout <= 0 {
		return fmt.Errorf("RPC timeout must be positive")
	}
	if c.RPC.RatePerSecond <= 0 {
		return fmt.Errorf("RPC rate must be positive")
	}

	seen := make(map[string]bool, len(c.Networks))
	for i, n := range c.Networks {
		if n.Identifier == "" {
			return fmt.Errorf("network %d: identifier is required", i)
		}
		if seen[n.Identifier] {
			return fmt.Errorf("network %q: duplicate identifier", n.Identifier)
		}
		seen[n.Identifier] = true
		if n.RPCEndpoint == "" {
			return fmt.Errorf("network %q: rpc_endpoint is required", n.Identifier)
		}
		if n.ChainID == 0 {
			return fmt.Errorf("network %q: chain_id is required", n.Identifier)
		}
	}

	return nil
}

// Load loads configuration from file (if given) and environment
func Load(configFile string) (*Config, error) {
	cfg := NewConfig()

	if configFile != "" {
		if err := cfg.LoadFromFile(configFile); err != nil {
			return nil, err
		}
	}

	if err := cfg.LoadFromEnv(); err != nil {
		return nil, err
	}

	// Re-apply defaults for anything the file explicitly zeroed
	cfg.SetDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}
