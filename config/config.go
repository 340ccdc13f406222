package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	AlpacaConfig  AlpacaConfig  `json:"alpaca"`
	TradingConfig TradingConfig `json:"trading"`
	ServerConfig  ServerConfig  `json:"server"`
	AuthConfig    AuthConfig    `json:"auth"`
	VaultConfig   VaultConfig   `json:"vault"`
	LoggingConfig LoggingConfig `json:"logging"`
	MetricsConfig MetricsConfig `json:"metrics"`
}

// AlpacaConfig holds broker and market-data API connectivity settings.
type AlpacaConfig struct {
	APIKey     string `json:"api_key"`
	SecretKey  string `json:"secret_key"`
	TradingURL string `json:"trading_url"`
	DataURL    string `json:"data_url"`
	PaperTrade bool   `json:"paper_trade"`
}

// TradingConfig holds the initial trading parameters. All of these can be
// changed at runtime through the control API; these are just the values the
// controller boots with.
type TradingConfig struct {
	Symbols           []string `json:"symbols"`
	PositionSize      int      `json:"position_size"`
	StopLossPercent   float64  `json:"stop_loss_percent"`
	TakeProfitPercent float64  `json:"take_profit_percent"`
	CycleIntervalSecs int      `json:"cycle_interval_secs"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Port            int    `json:"port"`
	Host            string `json:"host"`
	AllowedOrigins  string `json:"allowed_origins"` // CORS allowed origins
	ReadTimeout     int    `json:"read_timeout"`    // Seconds
	WriteTimeout    int    `json:"write_timeout"`   // Seconds
	ShutdownTimeout int    `json:"shutdown_timeout"` // Seconds
}

// AuthConfig holds control-surface authentication configuration
type AuthConfig struct {
	Enabled       bool          `json:"enabled"`
	JWTSecret     string        `json:"jwt_secret"`
	TokenDuration time.Duration `json:"token_duration"`
}

// VaultConfig holds HashiCorp Vault configuration for broker credentials
type VaultConfig struct {
	Enabled    bool   `json:"enabled"`
	Address    string `json:"address"`
	Token      string `json:"token"`
	MountPath  string `json:"mount_path"`  // KV secrets engine mount path
	SecretPath string `json:"secret_path"` // Path of the broker API key secret
}

type LoggingConfig struct {
	Level  string `json:"level"`  // debug, info, warn, error
	Pretty bool   `json:"pretty"` // Console writer instead of JSON
}

// MetricsConfig holds Prometheus exposition configuration
type MetricsConfig struct {
	Enabled bool `json:"enabled"`
}

func Load() (*Config, error) {
	// First try to load base config from file
	cfg, err := loadFromFile("config.json")
	if err != nil {
		// If no config file, start with empty config
		cfg = &Config{}
	}

	// Apply environment variable overrides (these take precedence)
	applyEnvOverrides(cfg)

	return cfg, nil
}

// applyEnvOverrides applies environment variable overrides to the config
func applyEnvOverrides(cfg *Config) {
	// Alpaca config
	cfg.AlpacaConfig.APIKey = getEnvOrDefault("APCA_API_KEY_ID", cfg.AlpacaConfig.APIKey)
	cfg.AlpacaConfig.SecretKey = getEnvOrDefault("APCA_API_SECRET_KEY", cfg.AlpacaConfig.SecretKey)
	cfg.AlpacaConfig.TradingURL = getEnvOrDefault("APCA_TRADING_URL", cfg.AlpacaConfig.TradingURL)
	if cfg.AlpacaConfig.TradingURL == "" {
		cfg.AlpacaConfig.TradingURL = "https://paper-api.alpaca.markets"
	}
	cfg.AlpacaConfig.DataURL = getEnvOrDefault("APCA_DATA_URL", cfg.AlpacaConfig.DataURL)
	if cfg.AlpacaConfig.DataURL == "" {
		cfg.AlpacaConfig.DataURL = "https://data.alpaca.markets"
	}
	cfg.AlpacaConfig.PaperTrade = getEnvOrDefault("APCA_PAPER", "true") == "true"

	// Trading config
	if symbols := os.Getenv("TRADING_SYMBOLS"); symbols != "" {
		cfg.TradingConfig.Symbols = splitSymbols(symbols)
	}
	if len(cfg.TradingConfig.Symbols) == 0 {
		cfg.TradingConfig.Symbols = []string{"AAPL", "TSLA", "AMD"}
	}
	cfg.TradingConfig.PositionSize = getEnvIntOrDefault("TRADING_POSITION_SIZE", defaultInt(cfg.TradingConfig.PositionSize, 1))
	cfg.TradingConfig.StopLossPercent = getEnvFloatOrDefault("TRADING_STOP_LOSS_PERCENT", defaultFloat(cfg.TradingConfig.StopLossPercent, 0.02))
	cfg.TradingConfig.TakeProfitPercent = getEnvFloatOrDefault("TRADING_TAKE_PROFIT_PERCENT", defaultFloat(cfg.TradingConfig.TakeProfitPercent, 0.04))
	cfg.TradingConfig.CycleIntervalSecs = getEnvIntOrDefault("TRADING_CYCLE_INTERVAL_SECS", defaultInt(cfg.TradingConfig.CycleIntervalSecs, 60))

	// Server config
	cfg.ServerConfig.Port = getEnvIntOrDefault("WEB_PORT", defaultInt(cfg.ServerConfig.Port, 8080))
	cfg.ServerConfig.Host = getEnvOrDefault("WEB_HOST", "0.0.0.0")
	cfg.ServerConfig.AllowedOrigins = getEnvOrDefault("SERVER_ALLOWED_ORIGINS", "*")
	cfg.ServerConfig.ReadTimeout = getEnvIntOrDefault("SERVER_READ_TIMEOUT", 30)
	cfg.ServerConfig.WriteTimeout = getEnvIntOrDefault("SERVER_WRITE_TIMEOUT", 30)
	cfg.ServerConfig.ShutdownTimeout = getEnvIntOrDefault("SERVER_SHUTDOWN_TIMEOUT", 10)

	// Auth config - always apply from environment
	cfg.AuthConfig.Enabled = getEnvOrDefault("AUTH_ENABLED", "false") == "true"
	cfg.AuthConfig.JWTSecret = getEnvOrDefault("AUTH_JWT_SECRET", cfg.AuthConfig.JWTSecret)
	cfg.AuthConfig.TokenDuration = getEnvDurationOrDefault("AUTH_TOKEN_DURATION", 24*time.Hour)

	// Vault config
	cfg.VaultConfig.Enabled = getEnvOrDefault("VAULT_ENABLED", "false") == "true"
	cfg.VaultConfig.Address = getEnvOrDefault("VAULT_ADDR", "http://localhost:8200")
	cfg.VaultConfig.Token = getEnvOrDefault("VAULT_TOKEN", cfg.VaultConfig.Token)
	cfg.VaultConfig.MountPath = getEnvOrDefault("VAULT_MOUNT_PATH", "secret")
	cfg.VaultConfig.SecretPath = getEnvOrDefault("VAULT_SECRET_PATH", "breakout-bot/api-keys")

	// Logging config
	cfg.LoggingConfig.Level = getEnvOrDefault("LOG_LEVEL", "info")
	cfg.LoggingConfig.Pretty = getEnvOrDefault("LOG_PRETTY", "false") == "true"

	// Metrics config
	cfg.MetricsConfig.Enabled = getEnvOrDefault("METRICS_ENABLED", "true") == "true"
}

func loadFromFile(filename string) (*Config, error) {
	file, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("error reading config file: %w", err)
	}

	var config Config
	if err := json.Unmarshal(file, &config); err != nil {
		return nil, fmt.Errorf("error parsing config file: %w", err)
	}

	return &config, nil
}

func splitSymbols(s string) []string {
	parts := strings.Split(s, ",")
	symbols := make([]string, 0, len(parts))
	for _, p := range parts {
		if sym := strings.ToUpper(strings.TrimSpace(p)); sym != "" {
			symbols = append(symbols, sym)
		}
	}
	return symbols
}

func defaultInt(v, fallback int) int {
	if v != 0 {
		return v
	}
	return fallback
}

func defaultFloat(v, fallback float64) float64 {
	if v != 0 {
		return v
	}
	return fallback
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvIntOrDefault(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvFloatOrDefault(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatVal, err := strconv.ParseFloat(value, 64); err == nil {
			return floatVal
		}
	}
	return defaultValue
}

func getEnvDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

// GenerateSampleConfig creates a sample configuration file
func GenerateSampleConfig(filename string) error {
	config := Config{
		AlpacaConfig: AlpacaConfig{
			APIKey:     "your_api_key_here",
			SecretKey:  "your_secret_key_here",
			TradingURL: "https://paper-api.alpaca.markets",
			DataURL:    "https://data.alpaca.markets",
			PaperTrade: true,
		},
		TradingConfig: TradingConfig{
			Symbols:           []string{"AAPL", "TSLA", "AMD"},
			PositionSize:      1,
			StopLossPercent:   0.02,
			TakeProfitPercent: 0.04,
			CycleIntervalSecs: 60,
		},
		ServerConfig: ServerConfig{
			Port:            8080,
			Host:            "0.0.0.0",
			AllowedOrigins:  "*",
			ReadTimeout:     30,
			WriteTimeout:    30,
			ShutdownTimeout: 10,
		},
		LoggingConfig: LoggingConfig{
			Level:  "info",
			Pretty: false,
		},
		MetricsConfig: MetricsConfig{
			Enabled: true,
		},
	}

	data, err := json.MarshalIndent(config, "", "  ")
	if err != nil {
		return err
	}

	return os.WriteFile(filename, data, 0644)
}
