// Package http wires the governance execution core behind a gin router:
// agent execution inside the span hierarchy, decision event reads, the
// decision stream, and health.
package http

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/LLM-Dev-Ops/governance-dashboard-sub004/internal/agents"
	"github.com/LLM-Dev-Ops/governance-dashboard-sub004/internal/observability"
	"github.com/LLM-Dev-Ops/governance-dashboard-sub004/internal/ruvector"
)

// Config holds the HTTP server settings.
type Config struct {
	Host         string
	Port         int
	EnableCORS   bool
	Debug        bool
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// DefaultConfig returns the default server configuration.
func DefaultConfig() Config {
	return Config{
		Host:         "0.0.0.0",
		Port:         8080,
		EnableCORS:   true,
		Debug:        false,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
	}
}

// Server is the governance core HTTP server.
type Server struct {
	engine      *gin.Engine
	httpServer  *http.Server
	obs         *observability.Observability
	store       *ruvector.Client
	broadcaster *DecisionBroadcaster
	startTime   time.Time
}

// NewServer builds the router and handlers. store may be nil in dry-run
// deployments; the decision read routes are then not registered.
func NewServer(config Config, registry *agents.Registry, store *ruvector.Client, obs *observability.Observability) (*Server, error) {
	if !config.Debug {
		gin.SetMode(gin.ReleaseMode)
	}

	engine := gin.New()
	engine.Use(gin.Recovery())
	engine.Use(ObservabilityMiddleware(obs))

	if config.EnableCORS {
		corsConfig := cors.DefaultConfig()
		corsConfig.AllowAllOrigins = true
		corsConfig.AllowMethods = []string{"GET", "POST", "OPTIONS"}
		corsConfig.AllowHeaders = []string{
			"Origin", "Content-Type", "Authorization",
			"X-Execution-Id", "X-Request-Id", "X-Parent-Span-Id",
			"X-Caller-Service", "X-Caller-Version",
		}
		corsConfig.AllowWebSockets = true
		engine.Use(cors.New(corsConfig))
	}

	broadcaster := NewDecisionBroadcaster(obs)
	executeHandler := NewExecuteHandler(registry, obs, broadcaster)
	agentsHandler := NewAgentsHandler(registry)

	server := &Server{
		engine:      engine,
		obs:         obs,
		store:       store,
		broadcaster: broadcaster,
		startTime:   time.Now(),
	}

	engine.GET("/health", server.handleHealth)

	api := engine.Group("/api/v1")
	api.GET("/agents", agentsHandler.HandleList)
	api.GET("/agents/:agent", agentsHandler.HandleGet)
	api.POST("/agents/:agent/execute", executeHandler.HandleExecute)

	if store != nil {
		decisionsHandler, err := NewDecisionsHandler(store, obs)
		if err != nil {
			return nil, fmt.Errorf("create decisions handler: %w", err)
		}
		api.GET("/decisions", decisionsHandler.HandleList)
		api.GET("/decisions/:id", decisionsHandler.HandleGet)
	}
	api.GET("/decisions/stream", broadcaster.HandleStream)

	server.httpServer = &http.Server{
		Addr:         fmt.Sprintf("%s:%d", config.Host, config.Port),
		Handler:      engine,
		ReadTimeout:  config.ReadTimeout,
		WriteTimeout: config.WriteTimeout,
	}

	return server, nil
}

// Handler exposes the router for tests.
func (s *Server) Handler() http.Handler {
	return s.engine
}

// Start serves until the listener fails or Shutdown is called.
func (s *Server) Start() error {
	s.obs.Logger.Info("http server starting", "addr", s.httpServer.Addr)
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("http server: %w", err)
	}
	return nil
}

// Shutdown drains in-flight requests.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

type healthResponse struct {
	Status   string `json:"status"`
	Uptime   string `json:"uptime"`
	Upstream string `json:"upstream"`
}

func (s *Server) handleHealth(c *gin.Context) {
	upstream := "not_configured"
	status := http.StatusOK

	if s.store != nil {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
		defer cancel()
		if err := s.store.HealthCheck(ctx); err != nil {
			upstream = "unreachable"
		} else {
			upstream = "ok"
		}
	}

	c.JSON(status, healthResponse{
		Status:   "ok",
		Uptime:   time.Since(s.startTime).String(),
		Upstream: upstream,
	})
}
