package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// ServerConfig holds all runtime configuration for the linking service.
// Tags use mapstructure for Viper unmarshalling; every key is also bindable
// through the environment.
type ServerConfig struct {
	HTTPPort    string `mapstructure:"HTTP_PORT"`
	BaseURL     string `mapstructure:"BASE_URL"`
	MongoURI    string `mapstructure:"MONGO_URI"`
	MongoDBName string `mapstructure:"MONGO_DB_NAME"`
	RedisAddr   string `mapstructure:"REDIS_ADDR"`
	RedisDB     int    `mapstructure:"REDIS_DB"`

	LogLevel        string `mapstructure:"LOG_LEVEL"`
	LogPretty       bool   `mapstructure:"LOG_PRETTY"`
	OtelServiceName string `mapstructure:"OTEL_SERVICE_NAME"`

	// NFT ownership oracle.
	NFTCollectionAddress string `mapstructure:"NFT_COLLECTION_ADDRESS"`
	SolanaRPCURL         string `mapstructure:"SOLANA_RPC_URL"`

	// X (Twitter) OAuth application credentials.
	XClientID     string `mapstructure:"X_CLIENT_ID"`
	XClientSecret string `mapstructure:"X_CLIENT_SECRET"`

	// Secondary lookup service that maps a provider user id to a handle.
	HandleResolverURL string `mapstructure:"HANDLE_RESOLVER_URL"`

	// Fixed-window rate limit applied to the signature-authenticated
	// endpoints.
	RateLimitRequests int           `mapstructure:"RATE_LIMIT_REQUESTS"`
	RateLimitWindow   time.Duration `mapstructure:"RATE_LIMIT_WINDOW"`
}

// LoadConfig reads configuration from file, environment variables, and
// defaults, in that order of increasing precedence for env vars.
func LoadConfig() (*ServerConfig, error) {
	v := viper.New()

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath("/etc/cousin-link/")
	v.AddConfigPath("$HOME/.cousin-link")
	v.AddConfigPath(".")

	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	v.SetDefault("HTTP_PORT", "8080")
	v.SetDefault("BASE_URL", "http://localhost:8080")
	v.SetDefault("MONGO_URI", "mongodb://localhost:27017/cousin_link_dev")
	v.SetDefault("MONGO_DB_NAME", "cousin_link_dev")
	v.SetDefault("REDIS_ADDR", "localhost:6379")
	v.SetDefault("REDIS_DB", 0)
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_PRETTY", true)
	v.SetDefault("OTEL_SERVICE_NAME", "cousin-link-server")
	v.SetDefault("SOLANA_RPC_URL", "https://api.mainnet-beta.solana.com")
	v.SetDefault("RATE_LIMIT_REQUESTS", 10)
	v.SetDefault("RATE_LIMIT_WINDOW", time.Minute)

	if err := v.ReadInConfig(); err != nil {
		// A missing config file is fine, env vars and defaults carry it.
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	var cfg ServerConfig
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unable to decode config into struct: %w", err)
	}

	return &cfg, nil
}
