// Package server sets up the HTTP server with all routes
package server

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/exitguard/exitguard/internal/auth"
	"github.com/exitguard/exitguard/internal/config"
	"github.com/exitguard/exitguard/internal/health"
	"github.com/exitguard/exitguard/internal/ingest"
	"github.com/exitguard/exitguard/internal/intervene"
	"github.com/exitguard/exitguard/internal/logging"
	"github.com/exitguard/exitguard/internal/metrics"
	"github.com/exitguard/exitguard/internal/mood"
	"github.com/exitguard/exitguard/internal/query"
	"github.com/exitguard/exitguard/internal/ratelimit"
	"github.com/exitguard/exitguard/internal/realtime"
	"github.com/exitguard/exitguard/internal/risk"
	"github.com/exitguard/exitguard/internal/salvage"
	"github.com/exitguard/exitguard/internal/security"
	"github.com/exitguard/exitguard/internal/session"
	"github.com/exitguard/exitguard/internal/traces"
	"github.com/exitguard/exitguard/internal/validation"
)

// -----------------------------------------------------------------------------
// Server
// -----------------------------------------------------------------------------

// Server wraps the HTTP server and dependencies
type Server struct {
	cfg          *config.Config
	store        *session.MemoryStore
	tracker      *salvage.Tracker
	ingestSvc    *ingest.Service
	salvageSvc   *salvage.Service
	janitor      *session.Janitor
	jwtMgr       *auth.JWTManager
	realtimeHub  *realtime.Hub
	rateLimiter  *ratelimit.Limiter
	healthReg    *health.Registry
	router       *gin.Engine
	httpSrv      *http.Server
	logger       *slog.Logger
	tracesClose  func(context.Context) error
	cancelRunCtx context.CancelFunc // cancels background goroutines started in Run

	// Health state
	ready   atomic.Bool
	healthy atomic.Bool
}

// Option configures the server
type Option func(*Server)

// WithLogger sets a custom logger
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		s.logger = logger
	}
}

// New creates a new server instance
func New(cfg *config.Config, opts ...Option) (*Server, error) {
	s := &Server{
		cfg:    cfg,
		logger: logging.New(cfg.LogLevel, "json"),
	}

	for _, opt := range opts {
		opt(s)
	}

	s.store = session.NewMemoryStore().WithTTL(cfg.SessionTTL)
	s.tracker = salvage.NewTracker(cfg.SalvageWindow)
	s.logger.Info("session store ready",
		"ttl", cfg.SessionTTL,
		"salvage_window", cfg.SalvageWindow,
	)

	s.realtimeHub = realtime.NewHub(s.logger)
	s.logger.Info("realtime streaming enabled")

	decider := intervene.NewDecider(intervene.Config{
		TriggerThreshold: cfg.TriggerThreshold,
		Cooldown:         cfg.Cooldown,
	})
	s.ingestSvc = ingest.NewService(
		s.store,
		mood.NewClassifier(nil),
		risk.NewScorer(nil),
		decider,
		s.tracker,
		s.realtimeHub,
		s.logger,
	)
	s.salvageSvc = salvage.NewService(s.store, s.tracker, s.realtimeHub, s.logger)

	s.janitor = session.NewJanitor(s.store, cfg.SweepInterval, s.logger).
		OnExpire(s.onSessionExpired)

	s.jwtMgr = auth.NewJWTManager(cfg.JWTSecret, auth.TokenTTL)
	s.logger.Info("API authentication enabled")

	s.healthReg = health.NewRegistry()
	s.healthReg.Register("store", func(_ context.Context) health.Status {
		return health.Status{Name: "store", Healthy: true, Detail: fmt.Sprintf("%d sessions", s.store.Len())}
	})
	s.healthReg.Register("janitor", func(_ context.Context) health.Status {
		st := health.Status{Name: "janitor", Healthy: s.janitor.Running()}
		if !st.Healthy {
			st.Detail = "sweep loop not running"
		}
		return st
	})

	// Configure gin
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	s.router = gin.New()
	s.setupMiddleware()
	s.setupRoutes()

	s.healthy.Store(true)

	return s, nil
}

// onSessionExpired runs for every session the janitor evicts. Sessions that
// never converted count as abandoned.
func (s *Server) onSessionExpired(sess *session.Session) {
	outcome := sess.Outcome
	if outcome == session.OutcomeNone {
		outcome = session.OutcomeAbandoned
	}
	metrics.SessionsExpiredTotal.WithLabelValues(string(outcome)).Inc()
	metrics.ActiveSessions.Set(float64(s.store.Len()))
}

// -----------------------------------------------------------------------------
// Middleware
// -----------------------------------------------------------------------------

func (s *Server) setupMiddleware() {
	// Recovery with logging
	s.router.Use(gin.CustomRecovery(func(c *gin.Context, recovered interface{}) {
		logging.L(c.Request.Context()).Error("panic recovered",
			"error", recovered,
			"path", c.Request.URL.Path,
		)
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
			"error":   "internal_error",
			"message": "An unexpected error occurred",
		})
	}))

	// Security headers
	s.router.Use(security.HeadersMiddleware())

	// CORS (the tracker runs on storefront origins, so allow all by default)
	s.router.Use(security.CORSMiddleware([]string{"*"}))

	// Request size limit
	s.router.Use(validation.RequestSizeMiddleware(validation.MaxRequestSize))

	// Rate limiting, sized for tracker batch cadence
	limiterCfg := ratelimit.TrackerConfig()
	if s.cfg.RateLimitRPM > 0 {
		limiterCfg.RequestsPerMinute = s.cfg.RateLimitRPM
	}
	s.rateLimiter = ratelimit.New(limiterCfg)
	s.router.Use(s.rateLimiter.Middleware())

	// Prometheus metrics
	s.router.Use(metrics.Middleware())

	// Request ID
	s.router.Use(s.requestIDMiddleware())

	// Logging
	s.router.Use(s.loggingMiddleware())
}

func (s *Server) requestIDMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		// Check for existing request ID (from load balancer, etc.)
		requestID := c.GetHeader("X-Request-ID")
		if requestID == "" {
			requestID = generateRequestID()
		}

		// Add to context
		ctx := logging.WithRequestID(c.Request.Context(), requestID)
		ctx = logging.WithLogger(ctx, s.logger)
		c.Request = c.Request.WithContext(ctx)

		// Set response header
		c.Header("X-Request-ID", requestID)

		c.Next()
	}
}

func (s *Server) loggingMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path

		c.Next()

		latency := time.Since(start)
		status := c.Writer.Status()

		logger := logging.L(c.Request.Context())

		// Log level based on status code
		switch {
		case status >= 500:
			logger.Error("request completed",
				"method", c.Request.Method,
				"path", path,
				"status", status,
				"latency_ms", latency.Milliseconds(),
				"client_ip", c.ClientIP(),
			)
		case status >= 400:
			logger.Warn("request completed",
				"method", c.Request.Method,
				"path", path,
				"status", status,
				"latency_ms", latency.Milliseconds(),
			)
		default:
			logger.Info("request completed",
				"method", c.Request.Method,
				"path", path,
				"status", status,
				"latency_ms", latency.Milliseconds(),
			)
		}
	}
}

// -----------------------------------------------------------------------------
// Routes
// -----------------------------------------------------------------------------

func (s *Server) setupRoutes() {
	// Health & metrics endpoints
	s.router.GET("/health", s.healthHandler)
	s.router.GET("/health/live", s.livenessHandler)
	s.router.GET("/health/ready", s.readinessHandler)
	s.router.GET("/metrics", metrics.Handler())

	// WebSocket for the live dashboard
	s.router.GET("/ws", func(c *gin.Context) {
		s.realtimeHub.HandleWebSocket(c.Writer, c.Request)
	})

	api := s.router.Group("/api")
	api.GET("/health", s.healthHandler) // tracker snippets probe this path

	// Dashboard login (public)
	auth.NewHandler(s.jwtMgr, s.cfg.DashboardUser, s.cfg.DashboardPass).RegisterRoutes(api)

	// TRACKER ROUTES (site key required)
	tracker := api.Group("")
	tracker.Use(auth.RequireAPIKey(s.cfg.APIKey))
	{
		ingest.NewHandler(s.ingestSvc).RegisterRoutes(tracker)
		salvage.NewHandler(s.salvageSvc).RegisterTrackerRoutes(tracker)

		sessionDetail := tracker.Group("")
		sessionDetail.Use(validation.SessionIDParamMiddleware())
		query.NewHandler(s.store).RegisterTrackerRoutes(sessionDetail)
	}

	// DASHBOARD ROUTES (bearer token required)
	dashboard := api.Group("")
	dashboard.Use(auth.RequireJWT(s.jwtMgr))
	{
		query.NewHandler(s.store).RegisterDashboardRoutes(dashboard)
		salvage.NewHandler(s.salvageSvc).RegisterDashboardRoutes(dashboard)
		dashboard.GET("/realtime-stats", s.realtimeStatsHandler)
	}
}

// -----------------------------------------------------------------------------
// Handlers
// -----------------------------------------------------------------------------

// HealthResponse for health check endpoints
type HealthResponse struct {
	Status    string          `json:"status"`
	Version   string          `json:"version"`
	Checks    []health.Status `json:"checks,omitempty"`
	Sessions  int             `json:"active_sessions"`
	Timestamp string          `json:"timestamp"`
}

func (s *Server) healthHandler(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	healthy, checks := s.healthReg.CheckAll(ctx)

	status := "healthy"
	httpStatus := http.StatusOK
	if !healthy {
		status = "degraded"
		httpStatus = http.StatusServiceUnavailable
	}

	c.JSON(httpStatus, HealthResponse{
		Status:    status,
		Version:   "0.1.0",
		Checks:    checks,
		Sessions:  s.store.Len(),
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	})
}

func (s *Server) livenessHandler(c *gin.Context) {
	if !s.healthy.Load() {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unhealthy"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "alive"})
}

func (s *Server) readinessHandler(c *gin.Context) {
	if !s.ready.Load() {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "not_ready"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ready"})
}

func (s *Server) realtimeStatsHandler(c *gin.Context) {
	c.JSON(http.StatusOK, s.realtimeHub.Stats())
}

// -----------------------------------------------------------------------------
// Lifecycle
// -----------------------------------------------------------------------------

// Run starts the HTTP server with graceful shutdown
func (s *Server) Run(ctx context.Context) error {
	// Create a cancellable context for background goroutines so Shutdown() can stop them.
	runCtx, cancel := context.WithCancel(ctx)
	s.cancelRunCtx = cancel

	shutdownTraces, err := traces.Init(runCtx, s.cfg.OTLPEndpoint, s.logger)
	if err != nil {
		s.logger.Warn("failed to initialize tracing", "error", err)
	} else {
		s.tracesClose = shutdownTraces
	}

	s.httpSrv = &http.Server{
		Addr:              ":" + s.cfg.Port,
		Handler:           s.router,
		ReadTimeout:       10 * time.Second,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	// Channel to catch server errors
	errChan := make(chan error, 1)

	// Start server in goroutine
	go func() {
		s.logger.Info("starting server",
			"port", s.cfg.Port,
			"env", s.cfg.Env,
		)
		if err := s.httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errChan <- err
		}
	}()

	// Start realtime hub
	go s.realtimeHub.Run(runCtx)

	// Start session janitor
	go s.janitor.Start(runCtx)

	// Mark as ready after brief delay for startup
	go func() {
		time.Sleep(100 * time.Millisecond)
		s.ready.Store(true)
		s.logger.Info("server ready")
	}()

	// Wait for shutdown signal or error
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errChan:
		return fmt.Errorf("server error: %w", err)
	case sig := <-sigChan:
		s.logger.Info("shutdown signal received", "signal", sig.String())
	case <-ctx.Done():
		s.logger.Info("context cancelled")
	}

	return s.Shutdown()
}

// Shutdown gracefully stops the server
func (s *Server) Shutdown() error {
	s.ready.Store(false)
	s.logger.Info("starting graceful shutdown")

	// Cancel the context for all background goroutines (hub, janitor)
	if s.cancelRunCtx != nil {
		s.cancelRunCtx()
	}

	// Give load balancers time to stop sending traffic
	time.Sleep(5 * time.Second)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := s.httpSrv.Shutdown(ctx); err != nil {
		s.logger.Error("shutdown error", "error", err)
		return err
	}

	// Stop session janitor
	s.janitor.Stop()
	s.logger.Info("session janitor stopped")

	// Stop rate limiter cleanup goroutine
	if s.rateLimiter != nil {
		s.rateLimiter.Stop()
		s.logger.Info("rate limiter stopped")
	}

	// Flush traces
	if s.tracesClose != nil {
		if err := s.tracesClose(ctx); err != nil {
			s.logger.Error("traces shutdown error", "error", err)
		}
	}

	s.logger.Info("server stopped")
	return nil
}

// Router returns the gin router for testing
func (s *Server) Router() *gin.Engine {
	return s.router
}

// -----------------------------------------------------------------------------
// Helpers
// -----------------------------------------------------------------------------

func generateRequestID() string {
	bytes := make([]byte, 16)
	if _, err := rand.Read(bytes); err != nil {
		// Fallback to timestamp-based ID
		return fmt.Sprintf("%d", time.Now().UnixNano())
	}
	return hex.EncodeToString(bytes)
}
