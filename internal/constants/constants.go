package constants

import "time"

// API Server Constants
const (
	// DefaultAPIHost is the default API server host
	DefaultAPIHost = "localhost"

	// DefaultAPIPort is the default API server port
	DefaultAPIPort = 8080

	// MinPort is the minimum valid port number
	MinPort = 1

	// MaxPort is the maximum valid port number
	MaxPort = 65535

	// DefaultReadTimeout is the default HTTP read timeout
	DefaultReadTimeout = 15 * time.Second

	// DefaultWriteTimeout is the default HTTP write timeout
	DefaultWriteTimeout = 15 * time.Second

	// DefaultIdleTimeout is the default HTTP idle timeout
	DefaultIdleTimeout = 60 * time.Second

	// DefaultShutdownTimeout is the default graceful shutdown timeout
	DefaultShutdownTimeout = 30 * time.Second

	// DefaultMaxHeaderBytes is the default maximum request header size (1 MB)
	DefaultMaxHeaderBytes = 1 << 20 // 1 MB

	// DefaultRateLimitPerSecond is the default rate limit (requests per second)
	DefaultRateLimitPerSecond = 100

	// DefaultRateLimitBurst is the default rate limit burst size
	DefaultRateLimitBurst = 200
)

// API Paths
const (
	// DefaultJSONRPCPath is the default JSON-RPC endpoint path
	DefaultJSONRPCPath = "/rpc"

	// DefaultWebSocketPath is the default WebSocket endpoint path
	DefaultWebSocketPath = "/ws"

	// DefaultMetricsPath is the default Prometheus metrics path
	DefaultMetricsPath = "/metrics"

	// DefaultHealthPath is the default health check path
	DefaultHealthPath = "/health"
)

// Provider Limits
const (
	// MaxBlockSpan is the provider per-query block-span limit for eth_getLogs.
	// Ranges wider than this are split into consecutive sub-ranges.
	MaxBlockSpan = 1000

	// MaxVolumeBlockSpan is the maximum block range accepted by the
	// transaction volume calculators.
	MaxVolumeBlockSpan = 1000

	// DefaultEventWindow is the default lookback window (in blocks) for
	// general event queries when the caller gives no range.
	DefaultEventWindow = 1000

	// DefaultHolderWindow is the default lookback window (in blocks) for
	// holder analytics when the caller gives no range.
	DefaultHolderWindow = 10000
)

// Holder Ranking Limits
const (
	// MinHolderLimit is the minimum accepted top-holder limit
	MinHolderLimit = 1

	// MaxTokenHolderLimit is the maximum top-holder limit for ERC20 tokens
	MaxTokenHolderLimit = 100

	// MaxNativeHolderLimit is the maximum top-holder limit for the native token
	MaxNativeHolderLimit = 50

	// DefaultHolderLimit is the limit used when the caller gives none
	DefaultHolderLimit = 10
)

// Transaction Monitoring
const (
	// ReceiptPollInterval is the fixed interval between receipt polls
	ReceiptPollInterval = 2 * time.Second

	// DefaultConfirmations is the number of confirmations required before a
	// monitored transaction is reported as confirmed
	DefaultConfirmations = 1

	// DefaultMonitorTimeout is the default monitoring timeout
	DefaultMonitorTimeout = 60 * time.Second
)

// RPC Client Constants
const (
	// DefaultRPCTimeout is the default timeout for a single RPC call
	DefaultRPCTimeout = 30 * time.Second

	// DefaultRPCRatePerSecond is the default per-endpoint request budget
	DefaultRPCRatePerSecond = 50

	// DefaultRPCRateBurst is the default per-endpoint burst size
	DefaultRPCRateBurst = 100
)

// Token Constants
const (
	// DefaultTokenDecimals is assumed when a contract's decimals() call fails
	DefaultTokenDecimals = 18

	// MetadataCacheTTL is how long fetched token metadata stays cached
	MetadataCacheTTL = 5 * time.Minute

	// MetadataCacheCleanup is the cache janitor interval
	MetadataCacheCleanup = 10 * time.Minute
)

// Explorer Constants
const (
	// DefaultExplorerTimeout is the HTTP timeout for explorer API calls
	DefaultExplorerTimeout = 15 * time.Second

	// DefaultHistoryPageSize is the default page size for address history
	DefaultHistoryPageSize = 25
)

// Math Constants
const (
	// PercentageMultiplier is used for converting fractions to percentages
	PercentageMultiplier = 100

	// PercentageDecimals is the number of decimal places in formatted
	// percentage-of-supply values
	PercentageDecimals = 4
)
