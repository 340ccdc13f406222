// Package api is the HTTP control surface for the breakout controller.
package api

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"breakout-trading-bot/internal/alpaca"
	"breakout-trading-bot/internal/auth"
	"breakout-trading-bot/internal/bot"
	"breakout-trading-bot/internal/events"
	"breakout-trading-bot/internal/logbuf"
	"breakout-trading-bot/internal/metrics"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

// ControllerAPI defines the control operations the bot exposes to the HTTP
// layer.
type ControllerAPI interface {
	Start() bool
	Stop()
	Running() bool
	Settings() bot.Settings
	SetSymbols(symbols []string) bot.Settings
	SetPositionSize(size int) bot.Settings
	SetStopLoss(fraction float64) bot.Settings
	SetTakeProfit(fraction float64) bot.Settings
	Logs(n int) []logbuf.Entry
	Balance(ctx context.Context) (*alpaca.Account, error)
}

// ServerConfig holds server configuration
type ServerConfig struct {
	Port            int
	Host            string
	AllowedOrigins  string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	MetricsEnabled  bool
	ProductionMode  bool
}

// Server represents the HTTP control API server
type Server struct {
	router     *gin.Engine
	httpServer *http.Server
	controller ControllerAPI
	config     ServerConfig
	jwtManager *auth.JWTManager // nil when auth is disabled
	hub        *WSHub
	logger     zerolog.Logger
}

// NewServer creates a new control API server
func NewServer(config ServerConfig, controller ControllerAPI, jwtManager *auth.JWTManager, bus *events.EventBus, logger zerolog.Logger) *Server {
	if config.ProductionMode {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()

	// Middleware
	router.Use(gin.Recovery())

	// CORS middleware
	corsConfig := cors.DefaultConfig()
	if config.AllowedOrigins == "" || config.AllowedOrigins == "*" {
		corsConfig.AllowAllOrigins = true
	} else {
		corsConfig.AllowOrigins = strings.Split(config.AllowedOrigins, ",")
	}
	corsConfig.AllowMethods = []string{"GET", "POST", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Type", "Authorization"}
	router.Use(cors.New(corsConfig))

	server := &Server{
		router:     router,
		controller: controller,
		config:     config,
		jwtManager: jwtManager,
		hub:        NewWSHub(logger),
		logger:     logger.With().Str("component", "api").Logger(),
	}

	server.setupRoutes()

	// Stream every bus event to connected websocket clients
	go server.hub.Run()
	bus.SubscribeAll(server.hub.BroadcastEvent)

	return server
}

// setupRoutes configures all API routes
func (s *Server) setupRoutes() {
	// Liveness endpoints stay public regardless of auth
	s.router.GET("/", s.handleHome)
	s.router.GET("/health", s.handleHealth)

	if s.config.MetricsEnabled {
		s.router.GET("/metrics", gin.WrapH(metrics.Handler()))
	}

	control := s.router.Group("/")
	if s.jwtManager != nil {
		control.Use(auth.Middleware(s.jwtManager))
	}

	control.GET("/start", s.handleStart)
	control.GET("/stop", s.handleStop)
	control.GET("/status", s.handleStatus)
	control.GET("/config", s.handleGetConfig)
	control.POST("/set-symbols", s.handleSetSymbols)
	control.POST("/set-stop-loss", s.handleSetStopLoss)
	control.POST("/set-take-profit", s.handleSetTakeProfit)
	control.POST("/set-position-size", s.handleSetPositionSize)
	control.GET("/logs", s.handleGetLogs)
	control.GET("/balance", s.handleGetBalance)
	control.GET("/ws", s.handleWebSocket)
}

// Start starts the HTTP server. It blocks until the server stops.
func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%d", s.config.Host, s.config.Port)

	s.httpServer = &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  s.config.ReadTimeout,
		WriteTimeout: s.config.WriteTimeout,
	}

	s.logger.Info().Str("addr", addr).Msg("control API listening")

	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("failed to start server: %w", err)
	}

	return nil
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info().Msg("shutting down HTTP server")

	if s.httpServer != nil {
		return s.httpServer.Shutdown(ctx)
	}

	return nil
}

// errorResponse is a helper to send error responses
func errorResponse(c *gin.Context, statusCode int, message string) {
	c.JSON(statusCode, gin.H{
		"error":   true,
		"message": message,
	})
}
