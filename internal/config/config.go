package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all configuration values
type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Redis    RedisConfig
	JWT      JWTConfig
	Operator OperatorConfig
	Wallet   WalletConfig
	Bridge   BridgeConfig
}

// ServerConfig holds server configuration
type ServerConfig struct {
	Port string
	Env  string
}

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	DBName   string
	SSLMode  string
}

// DSN returns the keyword connection string lib/pq expects
func (c DatabaseConfig) DSN() string {
	return "host=" + c.Host + " port=" + strconv.Itoa(c.Port) + " user=" + c.User + " password=" + c.Password + " dbname=" + c.DBName + " sslmode=" + c.SSLMode
}

// RedisConfig holds Redis configuration
type RedisConfig struct {
	URL      string
	PASSWORD string
}

// JWTConfig holds JWT configuration
type JWTConfig struct {
	Secret        string
	AccessExpiry  time.Duration
	RefreshExpiry time.Duration
}

// OperatorConfig holds the single operator login allowed to drive the bridge
type OperatorConfig struct {
	Username     string
	PasswordHash string
}

// WalletConfig holds the keys the keyed wallet signs with
type WalletConfig struct {
	PrivateKeys    []string
	InitialChainID int64
}

// BridgeConfig holds bridge runtime settings
type BridgeConfig struct {
	NetworksFile         string
	DeploymentsDir       string
	BlockPollInterval    time.Duration
	DeliveryPollInterval time.Duration
	ReceiptPollInterval  time.Duration
	VerifyDestination    bool
	FilterByRecipient    bool
}

// Load loads configuration from environment variables
func Load() *Config {
	return &Config{
		Server: ServerConfig{
			Port: getEnv("SERVER_PORT", "8080"),
			Env:  getEnv("SERVER_ENV", "development"),
		},
		Database: DatabaseConfig{
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnvAsInt("DB_PORT", 5432),
			User:     getEnv("DB_USER", "postgres"),
			Password: getEnv("DB_PASSWORD", "postgres"),
			DBName:   getEnv("DB_NAME", "usdcbridge"),
			SSLMode:  getEnv("DB_SSLMODE", "disable"),
		},
		Redis: RedisConfig{
			URL:      getEnv("REDIS_URL", "redis://localhost:6379"),
			PASSWORD: getEnv("REDIS_PASSWORD", ""),
		},
		JWT: JWTConfig{
			Secret:        getEnv("JWT_SECRET", "change-this-in-production"),
			AccessExpiry:  getEnvAsDuration("JWT_ACCESS_EXPIRY", 15*time.Minute),
			RefreshExpiry: getEnvAsDuration("JWT_REFRESH_EXPIRY", 7*24*time.Hour),
		},
		Operator: OperatorConfig{
			Username:     getEnv("OPERATOR_USERNAME", "operator"),
			PasswordHash: getEnv("OPERATOR_PASSWORD_HASH", ""),
		},
		Wallet: WalletConfig{
			PrivateKeys:    getEnvAsList("WALLET_PRIVATE_KEYS", getEnvAsList("PRIVATE_KEY", nil)),
			InitialChainID: int64(getEnvAsInt("WALLET_CHAIN_ID", 11155111)),
		},
		Bridge: BridgeConfig{
			NetworksFile:         getEnv("NETWORKS_FILE", "networks.json"),
			DeploymentsDir:       getEnv("DEPLOYMENTS_DIR", "deployments"),
			BlockPollInterval:    getEnvAsDuration("BLOCK_POLL_INTERVAL", 12*time.Second),
			DeliveryPollInterval: getEnvAsDuration("DELIVERY_POLL_INTERVAL", 5*time.Second),
			ReceiptPollInterval:  getEnvAsDuration("RECEIPT_POLL_INTERVAL", 2*time.Second),
			VerifyDestination:    getEnvAsBool("VERIFY_DESTINATION", false),
			FilterByRecipient:    getEnvAsBool("FILTER_DELIVERIES_BY_RECIPIENT", true),
		},
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

func getEnvAsList(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	if len(out) == 0 {
		return defaultValue
	}
	return out
}
