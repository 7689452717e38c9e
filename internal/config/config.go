package config

import (
	"github.com/spf13/viper"
)

// Config holds all configuration for the application
type Config struct {
	Server   ServerConfig
	MongoDB  MongoDBConfig
	JWT      JWTConfig
	Raffle   RaffleConfig
	Chain    ChainConfig
	Custody  CustodyConfig
	Admin    AdminConfig
	LogLevel string
}

// ServerConfig holds server-specific configuration
type ServerConfig struct {
	Port         string
	AllowedHosts []string
}

// MongoDBConfig holds MongoDB-specific configuration
type MongoDBConfig struct {
	URI      string
	Database string
}

// JWTConfig holds JWT-specific configuration
type JWTConfig struct {
	Secret    string
	ExpiresIn int
}

// RaffleConfig holds raffle registry configuration
type RaffleConfig struct {
	// Owner is the wallet address authorized to open games and sweep funds.
	Owner string
	// TreasuryAddress is the address the backend controls on chain; the
	// prize NFT must be owned by or approved to it before a game opens.
	TreasuryAddress string
	// Denom is the settlement denomination tickets are paid in.
	Denom string
	// RestrictSettle requires the registry owner to trigger settlement.
	// The observed multi-game contract lets anyone settle, so default false.
	RestrictSettle bool
	// AutoSettle enables the cron sweep that settles expired games.
	AutoSettle bool
	// AutoSettleSpec is the cron expression for the settlement sweep.
	AutoSettleSpec string
}

// ChainConfig holds chain RPC configuration
type ChainConfig struct {
	BaseURL string
	MockAPI bool
}

// CustodyConfig holds NFT custody service configuration
type CustodyConfig struct {
	BaseURL string
	MockAPI bool
}

// AdminConfig holds the bootstrap admin account
type AdminConfig struct {
	Email    string
	Password string
	Wallet   string
}

// Load loads configuration from environment variables and config files
func Load() (*Config, error) {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AddConfigPath("./config")
	viper.AutomaticEnv()

	setDefaults()

	if err := viper.ReadInConfig(); err != nil {
		// It's okay if config file is not found, we'll use environment variables
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
	}

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, err
	}

	return &config, nil
}

// setDefaults sets default values for configuration
func setDefaults() {
	viper.SetDefault("Server.Port", "4000")
	viper.SetDefault("Server.AllowedHosts", []string{"http://localhost:3000"})
	viper.SetDefault("MongoDB.URI", "mongodb://localhost:27017")
	viper.SetDefault("MongoDB.Database", "raffle")
	viper.SetDefault("JWT.ExpiresIn", 24*60*60) // 24 hours
	viper.SetDefault("LogLevel", "info")
	viper.SetDefault("Raffle.Denom", "usei")
	viper.SetDefault("Raffle.RestrictSettle", false)
	viper.SetDefault("Raffle.AutoSettle", false)
	viper.SetDefault("Raffle.AutoSettleSpec", "* * * * *")
	viper.SetDefault("Chain.MockAPI", true)
	viper.SetDefault("Custody.MockAPI", true)
}
