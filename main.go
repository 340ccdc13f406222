package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"breakout-trading-bot/config"
	"breakout-trading-bot/internal/alpaca"
	"breakout-trading-bot/internal/api"
	"breakout-trading-bot/internal/auth"
	"breakout-trading-bot/internal/bot"
	"breakout-trading-bot/internal/events"
	"breakout-trading-bot/internal/logbuf"
	"breakout-trading-bot/internal/vault"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
)

func main() {
	genConfig := flag.String("gen-config", "", "write a sample config file to the given path and exit")
	flag.Parse()

	if *genConfig != "" {
		if err := config.GenerateSampleConfig(*genConfig); err != nil {
			l := zerolog.New(os.Stderr)
			l.Fatal().Err(err).Msg("failed to write sample config")
		}
		fmt.Printf("sample config written to %s\n", *genConfig)
		return
	}

	// Load .env if present; real environment always wins
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		l := zerolog.New(os.Stderr)
		l.Fatal().Err(err).Msg("failed to load configuration")
	}

	logger := newLogger(cfg.LoggingConfig)
	logger.Info().Msg("configuration loaded")

	// Event bus feeding the websocket stream
	bus := events.NewEventBus()

	// Broker credentials: Vault when enabled, config/env otherwise
	apiKey, secretKey := cfg.AlpacaConfig.APIKey, cfg.AlpacaConfig.SecretKey
	vaultClient, err := vault.NewClient(cfg.VaultConfig)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to create vault client")
	}
	if vaultClient.Enabled() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		creds, err := vaultClient.GetCredentials(ctx)
		cancel()
		if err != nil {
			logger.Fatal().Err(err).Msg("failed to fetch broker credentials from vault")
		}
		apiKey, secretKey = creds.APIKey, creds.SecretKey
		logger.Info().Msg("broker credentials loaded from vault")
	}

	gateway := alpaca.NewClient(apiKey, secretKey, cfg.AlpacaConfig.TradingURL, cfg.AlpacaConfig.DataURL)

	logs := logbuf.New(logbuf.DefaultCapacity)
	controller := bot.New(
		gateway,
		gateway,
		bot.Settings{
			Symbols:           cfg.TradingConfig.Symbols,
			PositionSize:      cfg.TradingConfig.PositionSize,
			StopLossPercent:   cfg.TradingConfig.StopLossPercent,
			TakeProfitPercent: cfg.TradingConfig.TakeProfitPercent,
		},
		time.Duration(cfg.TradingConfig.CycleIntervalSecs)*time.Second,
		logs,
		bus,
		logger,
	)
	logger.Info().
		Strs("symbols", cfg.TradingConfig.Symbols).
		Int("position_size", cfg.TradingConfig.PositionSize).
		Float64("stop_loss", cfg.TradingConfig.StopLossPercent).
		Float64("take_profit", cfg.TradingConfig.TakeProfitPercent).
		Msg("controller initialized")

	var jwtManager *auth.JWTManager
	if cfg.AuthConfig.Enabled {
		if cfg.AuthConfig.JWTSecret == "" {
			logger.Fatal().Msg("AUTH_ENABLED is set but AUTH_JWT_SECRET is empty")
		}
		jwtManager = auth.NewJWTManager(cfg.AuthConfig.JWTSecret, cfg.AuthConfig.TokenDuration)
		logger.Info().Msg("control API authentication enabled")
	}

	server := api.NewServer(api.ServerConfig{
		Port:           cfg.ServerConfig.Port,
		Host:           cfg.ServerConfig.Host,
		AllowedOrigins: cfg.ServerConfig.AllowedOrigins,
		ReadTimeout:    time.Duration(cfg.ServerConfig.ReadTimeout) * time.Second,
		WriteTimeout:   time.Duration(cfg.ServerConfig.WriteTimeout) * time.Second,
		MetricsEnabled: cfg.MetricsConfig.Enabled,
		ProductionMode: !cfg.LoggingConfig.Pretty,
	}, controller, jwtManager, bus, logger)

	serverErr := make(chan error, 1)
	go func() {
		serverErr <- server.Start()
	}()

	// Wait for shutdown signal or server failure
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-quit:
		logger.Info().Str("signal", sig.String()).Msg("shutting down")
	case err := <-serverErr:
		if err != nil {
			logger.Error().Err(err).Msg("server failed")
		}
	}

	controller.Stop()
	controller.Wait()

	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.ServerConfig.ShutdownTimeout)*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		logger.Error().Err(err).Msg("server shutdown failed")
	}

	logger.Info().Msg("shutdown complete")
}

func newLogger(cfg config.LoggingConfig) zerolog.Logger {
	level, err := zerolog.ParseLevel(strings.ToLower(cfg.Level))
	if err != nil {
		level = zerolog.InfoLevel
	}

	var logger zerolog.Logger
	if cfg.Pretty {
		logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr})
	} else {
		logger = zerolog.New(os.Stderr)
	}
	return logger.Level(level).With().Timestamp().Logger()
}
