package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/vitalspace/somnia-mcp/api"
	"github.com/vitalspace/somnia-mcp/api/jsonrpc"
	"github.com/vitalspace/somnia-mcp/internal/config"
	"github.com/vitalspace/somnia-mcp/internal/logger"
	"github.com/vitalspace/somnia-mcp/pkg/chain"
	"github.com/vitalspace/somnia-mcp/pkg/client"
)

var (
	// Version information (injected at build time)
	version   = "dev"
	commit    = "none"
	buildTime = "unknown"
)

func main() {
	var (
		configFile  = flag.String("config", "", "Path to configuration file (YAML)")
		showVersion = flag.Bool("version", false, "Show version information and exit")
		apiHost     = flag.String("host", "", "API server host")
		apiPort     = flag.Int("port", 0, "API server port")
		logLevel    = flag.String("log-level", "", "Log level (debug, info, warn, error)")
		logFormat   = flag.String("log-format", "", "Log format (json, console)")
	)

	flag.Parse()

	if *showVersion {
		fmt.Printf("somnia-mcp version %s\n", version)
		fmt.Printf("  commit: %s\n", commit)
		fmt.Printf("  built:  %s\n", buildTime)
		os.Exit(0)
	}

	cfg, err := loadConfig(*configFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}
	applyFlags(cfg, *apiHost, *apiPort, *logLevel, *logFormat)

	log, err := logger.New(cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	log.Info("Starting somnia-mcp",
		zap.String("version", version),
		zap.String("commit", commit),
		zap.String("build_time", buildTime),
	)

	// Network registry: built-in Somnia networks plus configured extras
	registry := chain.NewRegistry()
	for _, n := range cfg.Networks {
		network := &chain.Network{
			Identifier:         n.Identifier,
			Name:               n.Name,
			ChainID:            n.ChainID,
			RPCEndpoint:        n.RPCEndpoint,
			NativeSymbol:       n.NativeSymbol,
			NativeDecimals:     n.NativeDecimals,
			ExplorerURL:        n.ExplorerURL,
			SupportsAggregate3: n.SupportsAggregate3,
		}
		if n.MulticallAddress != "" {
			network.MulticallAddress = common.HexToAddress(n.MulticallAddress)
		}
		if err := registry.Register(network); err != nil {
			log.Fatal("Failed to register network",
				zap.String("identifier", n.Identifier),
				zap.Error(err))
		}
		log.Info("Registered network",
			zap.String("identifier", n.Identifier),
			zap.Uint64("chain_id", n.ChainID))
	}

	// Clients are dialed lazily, one per network, on first use
	rpcLogger := logger.WithComponent(log, "rpc")
	dialer := func(n *chain.Network) (jsonrpc.ChainClient, error) {
		c, err := client.NewClient(&client.Config{
			Endpoint:      n.RPCEndpoint,
			Timeout:       cfg.RPC.Timeout,
			RatePerSecond: cfg.RPC.RatePerSecond,
			RateBurst:     cfg.RPC.RateBurst,
			Logger:        rpcLogger.With(zap.String("network", n.Identifier)),
		})
		if err != nil {
			return nil, err
		}

		// Fail the dial, not the first method call, when the endpoint is down
		pingCtx := context.Background()
		if cfg.RPC.Timeout > 0 {
			var cancel context.CancelFunc
			pingCtx, cancel = context.WithTimeout(pingCtx, cfg.RPC.Timeout)
			defer cancel()
		}
		if err := c.Ping(pingCtx); err != nil {
			c.Close()
			return nil, fmt.Errorf("endpoint %s is not responding: %w", c.Endpoint(), err)
		}
		return c, nil
	}

	handler := jsonrpc.NewHandler(registry, dialer, log)
	defer handler.Close()

	apiConfig := api.DefaultConfig()
	apiConfig.Host = cfg.API.Host
	apiConfig.Port = cfg.API.Port
	apiConfig.EnableWebSocket = cfg.API.EnableWebSocket
	apiConfig.EnableCORS = cfg.API.EnableCORS
	apiConfig.AllowedOrigins = cfg.API.AllowedOrigins
	apiConfig.EnableRateLimit = cfg.API.EnableRateLimit
	apiConfig.RateLimitPerSecond = cfg.API.RateLimitPerSecond
	apiConfig.RateLimitBurst = cfg.API.RateLimitBurst

	server, err := api.NewServer(apiConfig, log, handler)
	if err != nil {
		log.Fatal("Failed to create API server", zap.Error(err))
	}

	errChan := make(chan error, 1)
	go func() {
		errChan <- server.Start()
	}()

	log.Info("API server started", zap.String("address", apiConfig.Address()))

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	select {
	case sig := <-sigChan:
		log.Info("Received shutdown signal", zap.String("signal", sig.String()))
	case err := <-errChan:
		if err != nil {
			log.Error("API server failed", zap.Error(err))
		}
	}

	log.Info("Shutting down gracefully...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := server.Stop(shutdownCtx); err != nil {
		log.Error("Failed to stop API server gracefully", zap.Error(err))
	}

	log.Info("somnia-mcp stopped")
}

// loadConfig loads configuration from file and environment variables
func loadConfig(configFile string) (*config.Config, error) {
	if err := loadDotEnv(); err != nil {
		return nil, err
	}

	cfg, err := config.Load(configFile)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	return cfg, nil
}

// loadDotEnv loads environment variables from a .env file if it exists.
func loadDotEnv() error {
	info, err := os.Stat(".env")
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("failed to stat .env: %w", err)
	}
	if info.IsDir() {
		return fmt.Errorf(".env exists but is a directory")
	}
	if err := godotenv.Load(".env"); err != nil {
		return fmt.Errorf("failed to load .env: %w", err)
	}
	return nil
}

// applyFlags applies command-line flags to configuration
func applyFlags(cfg *config.Config, apiHost string, apiPort int, logLevel, logFormat string) {
	if apiHost != "" {
		cfg.API.Host = apiHost
	}
	if apiPort > 0 {
		cfg.API.Port = apiPort
	}
	if logLevel != "" {
		cfg.Log.Level = logLevel
	}
	if logFormat != "" {
		cfg.Log.Format = logFormat
	}
}
